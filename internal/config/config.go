package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// Config holds the application's configuration. It is loaded once at startup
// and never mutated afterwards.
type Config struct {
	Telegram struct {
		BotToken             string `yaml:"bot_token"`
		UpdateTimeoutSeconds int    `yaml:"update_timeout_seconds"`
		Workers              int    `yaml:"workers"`
		Debug                bool   `yaml:"debug"`
	} `yaml:"telegram"`
	Database struct {
		URI            string `yaml:"uri"`
		Name           string `yaml:"name"`
		MigrationsPath string `yaml:"migrations_path"`
		TimeoutSeconds int    `yaml:"timeout_seconds"`
	} `yaml:"database"`
	Channels struct {
		Log       int64   `yaml:"log"`
		FileStore []int64 `yaml:"file_store"`
	} `yaml:"channels"`
	Access struct {
		Admins       []int64 `yaml:"admins"`
		LazyRenamers []int64 `yaml:"lazy_renamers"`
	} `yaml:"access"`
	Search struct {
		MaxResults int `yaml:"max_results"`
		PageSize   int `yaml:"page_size"`
		AllLimit   int `yaml:"all_limit"`
	} `yaml:"search"`
	Pager struct {
		MaxInteractions int `yaml:"max_interactions"`
		TTLMinutes      int `yaml:"ttl_minutes"`
	} `yaml:"pager"`
	Outbox struct {
		Workers          int `yaml:"workers"`
		QueueSize        int `yaml:"queue_size"`
		PerChatPerSecond int `yaml:"per_chat_per_second"`
	} `yaml:"outbox"`
	Server struct {
		Port string `yaml:"port"`
	} `yaml:"server"`
	Log struct {
		Level         string `yaml:"level"`
		Format        string `yaml:"format"`
		RecentEntries int    `yaml:"recent_entries"`
	} `yaml:"log"`
	Pics []string `yaml:"pics"`

	admins       map[int64]struct{}
	lazyRenamers map[int64]struct{}
	fileStore    map[int64]struct{}
}

// LoadConfig reads configuration from the specified YAML file. A .env file in
// the working directory is loaded first so ${VAR} references and the list
// overrides below can come from it.
func LoadConfig(configPath string) (*Config, error) {
	_ = godotenv.Load()

	config := &Config{}

	file, err := os.Open(configPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	decoder := yaml.NewDecoder(file)
	if err := decoder.Decode(config); err != nil {
		return nil, fmt.Errorf("failed to decode config file: %w", err)
	}

	config.Telegram.BotToken = os.ExpandEnv(config.Telegram.BotToken)
	config.Database.URI = os.ExpandEnv(config.Database.URI)

	if err := config.applyEnvOverrides(); err != nil {
		return nil, err
	}
	config.setDefaults()
	config.buildLookups()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

func (c *Config) setDefaults() {
	if c.Telegram.UpdateTimeoutSeconds == 0 {
		c.Telegram.UpdateTimeoutSeconds = 60
	}
	if c.Telegram.Workers == 0 {
		c.Telegram.Workers = 16
	}
	if c.Database.Name == "" {
		c.Database.Name = "AutoFilterBot"
	}
	if c.Database.MigrationsPath == "" {
		c.Database.MigrationsPath = "migrations"
	}
	if c.Database.TimeoutSeconds == 0 {
		c.Database.TimeoutSeconds = 10
	}
	if c.Search.MaxResults == 0 {
		c.Search.MaxResults = 50
	}
	if c.Search.PageSize == 0 {
		c.Search.PageSize = 10
	}
	if c.Search.AllLimit == 0 {
		c.Search.AllLimit = 5
	}
	if c.Pager.MaxInteractions == 0 {
		c.Pager.MaxInteractions = 10000
	}
	if c.Pager.TTLMinutes == 0 {
		c.Pager.TTLMinutes = 30
	}
	if c.Outbox.Workers == 0 {
		c.Outbox.Workers = 4
	}
	if c.Outbox.QueueSize == 0 {
		c.Outbox.QueueSize = 256
	}
	if c.Outbox.PerChatPerSecond == 0 {
		c.Outbox.PerChatPerSecond = 1
	}
	if c.Server.Port == "" {
		c.Server.Port = ":8080"
	}
	if c.Log.Level == "" {
		c.Log.Level = "info"
	}
	if c.Log.Format == "" {
		c.Log.Format = "console"
	}
	if c.Log.RecentEntries == 0 {
		c.Log.RecentEntries = 50
	}
}

// applyEnvOverrides lets deployments that only set environment variables keep
// working: ADMINS, LAZY_RENAMERS and FILE_STORE_CHANNEL are space separated ids.
func (c *Config) applyEnvOverrides() error {
	lists := []struct {
		env string
		dst *[]int64
	}{
		{"ADMINS", &c.Access.Admins},
		{"LAZY_RENAMERS", &c.Access.LazyRenamers},
		{"FILE_STORE_CHANNEL", &c.Channels.FileStore},
	}
	for _, l := range lists {
		raw, ok := os.LookupEnv(l.env)
		if !ok {
			continue
		}
		ids, err := ParseIDList(raw)
		if err != nil {
			return fmt.Errorf("invalid %s: %w", l.env, err)
		}
		*l.dst = ids
	}

	if raw, ok := os.LookupEnv("LOG_CHANNEL"); ok && raw != "" {
		id, err := strconv.ParseInt(strings.TrimSpace(raw), 10, 64)
		if err != nil {
			return fmt.Errorf("invalid LOG_CHANNEL: %w", err)
		}
		c.Channels.Log = id
	}
	if raw, ok := os.LookupEnv("PICS"); ok {
		c.Pics = strings.Fields(raw)
	}
	if raw, ok := os.LookupEnv("BOT_TOKEN"); ok && c.Telegram.BotToken == "" {
		c.Telegram.BotToken = raw
	}
	if raw, ok := os.LookupEnv("MONGO_URI"); ok && c.Database.URI == "" {
		c.Database.URI = raw
	}
	if raw, ok := os.LookupEnv("DATABASE_NAME"); ok && raw != "" {
		c.Database.Name = raw
	}
	return nil
}

// ParseIDList parses whitespace separated chat or user ids.
func ParseIDList(raw string) ([]int64, error) {
	fields := strings.Fields(raw)
	ids := make([]int64, 0, len(fields))
	for _, f := range fields {
		id, err := strconv.ParseInt(f, 10, 64)
		if err != nil {
			return nil, err
		}
		ids = append(ids, id)
	}
	return ids, nil
}

func (c *Config) buildLookups() {
	c.admins = toSet(c.Access.Admins)
	c.lazyRenamers = toSet(c.Access.LazyRenamers)
	c.fileStore = toSet(c.Channels.FileStore)
}

func toSet(ids []int64) map[int64]struct{} {
	set := make(map[int64]struct{}, len(ids))
	for _, id := range ids {
		set[id] = struct{}{}
	}
	return set
}

// Validate reports missing required settings and non-positive limits.
func (c *Config) Validate() error {
	var errs []error
	if c.Telegram.BotToken == "" {
		errs = append(errs, errors.New("telegram.bot_token is required"))
	}
	if c.Database.URI == "" {
		errs = append(errs, errors.New("database.uri is required"))
	}
	positive := []struct {
		name  string
		value int
	}{
		{"telegram.workers", c.Telegram.Workers},
		{"search.max_results", c.Search.MaxResults},
		{"search.page_size", c.Search.PageSize},
		{"search.all_limit", c.Search.AllLimit},
		{"pager.max_interactions", c.Pager.MaxInteractions},
		{"pager.ttl_minutes", c.Pager.TTLMinutes},
		{"outbox.workers", c.Outbox.Workers},
		{"outbox.queue_size", c.Outbox.QueueSize},
		{"outbox.per_chat_per_second", c.Outbox.PerChatPerSecond},
	}
	for _, p := range positive {
		if p.value <= 0 {
			errs = append(errs, fmt.Errorf("%s must be positive, got %d", p.name, p.value))
		}
	}
	return errors.Join(errs...)
}

func (c *Config) IsAdmin(userID int64) bool {
	_, ok := c.admins[userID]
	return ok
}

// IsLazyRenamer reports whether the user may manage lazy thumbnails. Admins always can.
func (c *Config) IsLazyRenamer(userID int64) bool {
	if c.IsAdmin(userID) {
		return true
	}
	_, ok := c.lazyRenamers[userID]
	return ok
}

func (c *Config) IsFileStoreChannel(chatID int64) bool {
	_, ok := c.fileStore[chatID]
	return ok
}

func (c *Config) DatabaseTimeout() time.Duration {
	return time.Duration(c.Database.TimeoutSeconds) * time.Second
}

func (c *Config) PagerTTL() time.Duration {
	return time.Duration(c.Pager.TTLMinutes) * time.Minute
}
