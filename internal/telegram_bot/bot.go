package telegram_bot

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"go.uber.org/zap"
	"golang.org/x/sync/semaphore"

	"autofilter/internal/apperr"
	"autofilter/internal/config"
	"autofilter/internal/logger"
	"autofilter/internal/metrics"
	"autofilter/internal/outbox"
	"autofilter/internal/repository"
	"autofilter/internal/search"
)

// API is the subset of *tgbotapi.BotAPI the bot uses.
type API interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
	Request(c tgbotapi.Chattable) (*tgbotapi.APIResponse, error)
	GetUpdatesChan(config tgbotapi.UpdateConfig) tgbotapi.UpdatesChannel
	StopReceivingUpdates()
}

// Deps are the collaborators the bot dispatches to.
type Deps struct {
	Files    repository.FileRepository
	Filters  repository.FilterRepository
	Settings repository.SettingRepository
	Users    repository.UserRepository
	Matcher  *search.Matcher
	Pager    *search.Pager
	Outbox   *outbox.Outbox
	Recent   *logger.Recent
}

// Bot routes Telegram updates to the autofilter and operator commands.
type Bot struct {
	api      API
	username string
	cfg      *config.Config
	deps     Deps
	commands map[string]command
	sem      *semaphore.Weighted
	logger   *zap.Logger
}

// NewBotAPI authorizes against Telegram with the configured token.
func NewBotAPI(cfg *config.Config, logger *zap.Logger) (*tgbotapi.BotAPI, error) {
	botAPI, err := tgbotapi.NewBotAPI(cfg.Telegram.BotToken)
	if err != nil {
		return nil, fmt.Errorf("failed to create Telegram bot API: %w", err)
	}
	botAPI.Debug = cfg.Telegram.Debug

	logger.Info("Telegram bot authorized", zap.String("username", botAPI.Self.UserName))
	return botAPI, nil
}

// NewBot creates a new bot. username is the bot's own @name, used to ignore
// commands addressed to other bots in groups.
func NewBot(api API, username string, cfg *config.Config, deps Deps, logger *zap.Logger) *Bot {
	b := &Bot{
		api:      api,
		username: username,
		cfg:      cfg,
		deps:     deps,
		sem:      semaphore.NewWeighted(int64(cfg.Telegram.Workers)),
		logger:   logger,
	}
	b.commands = b.commandTable()
	return b
}

// Start begins listening for updates from Telegram. Each update is handled in
// its own goroutine, at most telegram.workers at a time.
func (b *Bot) Start(ctx context.Context) error {
	u := tgbotapi.NewUpdate(0)
	u.Timeout = b.cfg.Telegram.UpdateTimeoutSeconds
	u.AllowedUpdates = []string{"message", "channel_post", "callback_query"}

	updates := b.api.GetUpdatesChan(u)

	b.logger.Info("Telegram bot started, waiting for updates...")

	for {
		select {
		case <-ctx.Done():
			b.logger.Info("Telegram bot shutting down...")
			b.api.StopReceivingUpdates()
			// wait for in-flight handlers
			_ = b.sem.Acquire(context.Background(), int64(b.cfg.Telegram.Workers))
			return nil
		case update, ok := <-updates:
			if !ok {
				return nil
			}
			if err := b.sem.Acquire(ctx, 1); err != nil {
				continue
			}
			go func(update tgbotapi.Update) {
				defer b.sem.Release(1)
				b.HandleUpdate(ctx, update)
			}(update)
		}
	}
}

// HandleUpdate classifies one update and dispatches it.
func (b *Bot) HandleUpdate(ctx context.Context, update tgbotapi.Update) {
	defer func() {
		if r := recover(); r != nil {
			b.logger.Error("Panic while handling update", zap.Int("update_id", update.UpdateID), zap.Any("panic", r))
		}
	}()

	kind := Classify(update)
	switch kind {
	case EventNewMedia:
		b.handleChannelPost(ctx, update.ChannelPost)
	case EventCommand:
		if b.isBanned(ctx, update.Message.From) {
			return
		}
		b.handleCommand(ctx, update.Message)
	case EventText:
		if b.isBanned(ctx, update.Message.From) {
			return
		}
		b.handleText(ctx, update.Message)
	case EventCallback:
		if b.isBanned(ctx, update.CallbackQuery.From) {
			b.answer(update.CallbackQuery.ID, "")
			return
		}
		b.handleCallbackQuery(ctx, update.CallbackQuery)
	default:
		b.logger.Debug("Ignoring update", zap.Int("update_id", update.UpdateID))
	}
}

func (b *Bot) isBanned(ctx context.Context, from *tgbotapi.User) bool {
	if from == nil || b.cfg.IsAdmin(from.ID) {
		return false
	}
	u, err := b.deps.Users.Get(ctx, from.ID)
	if err != nil {
		// fail open; a store outage should not silence the bot
		b.logger.Warn("Failed to check ban status", zap.Int64("user_id", from.ID), zap.Error(err))
		return false
	}
	return u != nil && u.Banned
}

// handleFailure turns a handler error into the user-visible reply and, for
// store failures, a log channel report.
func (b *Bot) handleFailure(chatID int64, op string, err error) {
	switch apperr.KindOf(err) {
	case apperr.KindNotFound:
		return
	case apperr.KindInvalidInput, apperr.KindUnauthorized:
		b.logger.Info("Rejected request", zap.String("op", op), zap.Int64("chat_id", chatID), zap.Error(err))
	default:
		metrics.StoreErrorsTotal.Inc()
		b.logger.Error("Request failed", zap.String("op", op), zap.Int64("chat_id", chatID), zap.Error(err))
		b.logError(fmt.Sprintf("%s in chat %d: %v", op, chatID, err))
	}
	b.sendMessage(chatID, apperr.UserMessage(err))
}

// sendMessage is a helper to send a simple text message
func (b *Bot) sendMessage(chatID int64, text string) {
	msg := tgbotapi.NewMessage(chatID, text)
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send message", zap.Int64("chat_id", chatID), zap.Error(err))
	}
}

func (b *Bot) reply(to *tgbotapi.Message, text string) {
	msg := tgbotapi.NewMessage(to.Chat.ID, text)
	msg.ReplyToMessageID = to.MessageID
	if _, err := b.api.Send(msg); err != nil {
		b.logger.Error("Failed to send reply", zap.Int64("chat_id", to.Chat.ID), zap.Error(err))
	}
}

func (b *Bot) answer(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallback(callbackID, text)); err != nil {
		b.logger.Error("Failed to send callback response", zap.Error(err))
	}
}

func (b *Bot) alert(callbackID, text string) {
	if _, err := b.api.Request(tgbotapi.NewCallbackWithAlert(callbackID, text)); err != nil {
		b.logger.Error("Failed to send callback alert", zap.Error(err))
	}
}

// logMessage posts to the configured log channel, if any.
func (b *Bot) logMessage(text string) {
	if b.cfg.Channels.Log == 0 {
		return
	}
	b.sendMessage(b.cfg.Channels.Log, text)
}

func (b *Bot) logError(text string) {
	b.logMessage("🚨 ERROR:\n" + text)
}

func displayName(u *tgbotapi.User) string {
	if u == nil {
		return ""
	}
	if u.UserName != "" {
		return u.UserName
	}
	return strings.TrimSpace(u.FirstName + " " + u.LastName)
}
