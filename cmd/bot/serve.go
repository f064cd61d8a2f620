package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"autofilter/internal/config"
	"autofilter/internal/logger"
	"autofilter/internal/outbox"
	"autofilter/internal/repository"
	"autofilter/internal/search"
	"autofilter/internal/server"
	"autofilter/internal/telegram_bot"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Connect to MongoDB and Telegram and start handling updates",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := loadConfig()
		if err != nil {
			return err
		}
		log, recent, err := logger.New(cfg)
		if err != nil {
			return fmt.Errorf("failed to build logger: %w", err)
		}
		defer func() {
			_ = log.Sync() // Flushes buffer, if any
		}()

		// Context for graceful shutdown
		ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
		defer cancel()

		if err := serve(ctx, cfg, log, recent); err != nil {
			log.Error("Bot stopped with error", zap.Error(err))
			return err
		}
		log.Info("Application stopped.")
		return nil
	},
}

func serve(ctx context.Context, cfg *config.Config, log *zap.Logger, recent *logger.Recent) error {
	connectCtx, cancelConnect := context.WithTimeout(ctx, cfg.DatabaseTimeout())
	client, db, err := repository.NewMongoDB(connectCtx, cfg.Database.URI, cfg.Database.Name, log)
	cancelConnect()
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer func() {
		if err := client.Disconnect(context.Background()); err != nil {
			log.Warn("Failed to disconnect from database", zap.Error(err))
		}
	}()

	// Run migrations
	if err := repository.MigrateDB(cfg.Database.URI, cfg.Database.Name, cfg.Database.MigrationsPath, log); err != nil {
		return err
	}

	// Initialize repositories
	files := repository.NewFileRepository(db, log)
	filters := repository.NewFilterRepository(db, log)
	settings := repository.NewSettingRepository(db, log)
	users := repository.NewUserRepository(db, log)

	botAPI, err := telegram_bot.NewBotAPI(cfg, log)
	if err != nil {
		return err
	}

	ob := outbox.New(botAPI, cfg.Outbox.Workers, cfg.Outbox.QueueSize, cfg.Outbox.PerChatPerSecond, log)
	bot := telegram_bot.NewBot(botAPI, botAPI.Self.UserName, cfg, telegram_bot.Deps{
		Files:    files,
		Filters:  filters,
		Settings: settings,
		Users:    users,
		Matcher:  search.NewMatcher(filters, files, cfg.Search.MaxResults, log),
		Pager:    search.NewPager(cfg.Search.PageSize, cfg.Pager.MaxInteractions, cfg.PagerTTL()),
		Outbox:   ob,
		Recent:   recent,
	}, log)

	srv := server.NewServer(httpLogger(cfg))

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		ob.Run(gctx)
		return nil
	})
	g.Go(func() error {
		return bot.Start(gctx)
	})
	g.Go(func() error {
		return srv.Run(gctx, cfg.Server.Port)
	})
	return g.Wait()
}

// httpLogger builds the logrus logger used by the health server.
func httpLogger(cfg *config.Config) *logrus.Logger {
	l := logrus.New()
	if level, err := logrus.ParseLevel(cfg.Log.Level); err == nil {
		l.SetLevel(level)
	}
	if cfg.Log.Format == "json" {
		l.SetFormatter(&logrus.JSONFormatter{})
	}
	if !cfg.Telegram.Debug {
		gin.SetMode(gin.ReleaseMode)
	}
	return l
}
