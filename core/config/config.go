// Package config loads the relay bot configuration from YAML with an
// environment overlay.
package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/kelseyhightower/envconfig"
	"gopkg.in/yaml.v3"
)

const (
	// RunModeWebhook selects webhook mode for Telegram updates.
	RunModeWebhook = "webhook"
	// RunModeLongpoll selects long-polling mode for Telegram updates.
	RunModeLongpoll = "longpoll"
)

// Directory backends.
const (
	BackendMemory   = "memory"
	BackendPostgres = "postgres"
	BackendSQLite   = "sqlite"
	BackendRedis    = "redis"
)

// Acknowledgement policies for inbound messages.
const (
	AckRequireOne = "require_one"
	AckBestEffort = "best_effort"
)

// TelegramConfig holds bot credentials and the administrator set.
type TelegramConfig struct {
	Token string `yaml:"token" envconfig:"BOT_TOKEN" validate:"required"`
	// AdminIDs is read from a comma separated list in the environment.
	AdminIDs []int64 `yaml:"admin_ids" envconfig:"TELEGRAM_ADMIN_IDS" validate:"min=1,dive,gt=0"`
	RunMode  string  `yaml:"run_mode" envconfig:"TELEGRAM_RUN_MODE" validate:"oneof=webhook longpoll"`
	// LongPollTimeoutSeconds defines long polling timeout; 0 -> default
	LongPollTimeoutSeconds int `yaml:"longpoll_timeout_seconds" envconfig:"TELEGRAM_LONGPOLL_TIMEOUT_SECONDS" validate:"gte=0"`
}

// WebhookConfig specifies webhook settings.
type WebhookConfig struct {
	URL         string `yaml:"url" envconfig:"WEBHOOK_URL" validate:"omitempty,url"`
	Listen      string `yaml:"listen" envconfig:"WEBHOOK_LISTEN"`
	Port        int    `yaml:"port" envconfig:"WEBHOOK_PORT" validate:"gte=0,lte=65535"`
	SecretToken string `yaml:"secret_token" envconfig:"WEBHOOK_SECRET_TOKEN"`
}

// LoggingConfig defines logging related configuration.
type LoggingConfig struct {
	Level       string `yaml:"level" envconfig:"LOG_LEVEL" validate:"omitempty,oneof=debug info warn warning error"`
	Format      string `yaml:"format" envconfig:"LOG_FORMAT" validate:"omitempty,oneof=json kv text pretty"`
	KeysOrder   string `yaml:"keys_order"`
	DebugSample string `yaml:"debug_sample"`
	Dir         string `yaml:"dir"`
	File        string `yaml:"file"`
	// Profile indicates environment profile such as "debug" or "prod".
	Profile string `yaml:"profile" envconfig:"LOG_PROFILE"`
}

// PostgresConfig holds database connection settings.
type PostgresConfig struct {
	Host           string `yaml:"host" envconfig:"DB_HOST"`
	Port           string `yaml:"port" envconfig:"DB_PORT"`
	User           string `yaml:"user" envconfig:"DB_USER"`
	Password       string `yaml:"password" envconfig:"DB_PASSWORD"`
	Name           string `yaml:"name" envconfig:"DB_NAME"`
	SSLMode        string `yaml:"sslmode" envconfig:"DB_SSLMODE"`
	MaxConnections int    `yaml:"max_connections" envconfig:"DB_MAX_CONNECTIONS" validate:"gte=0"`
}

// DSN renders the keyword/value connection string understood by lib/pq.
func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode,
	)
}

// SQLiteConfig points at the database file.
type SQLiteConfig struct {
	Path string `yaml:"path" envconfig:"SQLITE_PATH"`
}

// RedisConfig holds the redis connection used by the redis directory.
type RedisConfig struct {
	Addr     string `yaml:"addr" envconfig:"REDIS_ADDR"`
	Password string `yaml:"password" envconfig:"REDIS_PASSWORD"`
	DB       int    `yaml:"db" envconfig:"REDIS_DB" validate:"gte=0"`
	Prefix   string `yaml:"prefix" envconfig:"REDIS_PREFIX"`
}

// DirectoryConfig selects and configures the contact directory backend.
type DirectoryConfig struct {
	Backend string `yaml:"backend" envconfig:"DIRECTORY_BACKEND" validate:"oneof=memory postgres sqlite redis"`
	// TTL expires contacts that have not written for this long; 0 keeps them forever.
	TTL           time.Duration  `yaml:"ttl" envconfig:"DIRECTORY_TTL" validate:"gte=0"`
	SweepInterval time.Duration  `yaml:"sweep_interval" envconfig:"DIRECTORY_SWEEP_INTERVAL" validate:"gte=0"`
	Postgres      PostgresConfig `yaml:"postgres"`
	SQLite        SQLiteConfig   `yaml:"sqlite"`
	Redis         RedisConfig    `yaml:"redis"`
}

// MessagesConfig overrides user-visible texts; empty fields keep the defaults.
// Its fields mirror relay.Messages one to one.
type MessagesConfig struct {
	Welcome        string `yaml:"welcome"`
	Notice         string `yaml:"notice"`
	NoHandle       string `yaml:"no_handle"`
	Sent           string `yaml:"sent"`
	SendFailed     string `yaml:"send_failed"`
	ReplyUsage     string `yaml:"reply_usage"`
	InvalidID      string `yaml:"invalid_id"`
	NotFound       string `yaml:"not_found"`
	ReplyHeader    string `yaml:"reply_header"`
	ReplySent      string `yaml:"reply_sent"`
	ReplyFailed    string `yaml:"reply_failed"`
	AdminsOnly     string `yaml:"admins_only"`
	UnknownCommand string `yaml:"unknown_command"`
	AdminHint      string `yaml:"admin_hint"`
	TextOnly       string `yaml:"text_only"`
	Unavailable    string `yaml:"unavailable"`
	ReplyUnknown   string `yaml:"reply_unknown"`
}

// RelayConfig tunes delivery and ordering.
type RelayConfig struct {
	AckPolicy   string        `yaml:"ack_policy" envconfig:"RELAY_ACK_POLICY" validate:"oneof=require_one best_effort"`
	SendTimeout time.Duration `yaml:"send_timeout" envconfig:"RELAY_SEND_TIMEOUT" validate:"gte=0"`
	FanoutLimit int           `yaml:"fanout_limit" envconfig:"RELAY_FANOUT_LIMIT" validate:"gte=0"`
	// Shards and QueueSize size the per-user sequencer.
	Shards    int            `yaml:"shards" envconfig:"RELAY_SHARDS" validate:"gte=1,lte=1024"`
	QueueSize int            `yaml:"queue_size" envconfig:"RELAY_QUEUE_SIZE" validate:"gte=1"`
	Messages  MessagesConfig `yaml:"messages" ignored:"true"`
}

// MetricsConfig enables the operational HTTP listener.
type MetricsConfig struct {
	// Listen is host:port; empty disables the listener.
	Listen string `yaml:"listen" envconfig:"METRICS_LISTEN"`
}

// Config aggregates the whole configuration.
type Config struct {
	Telegram  TelegramConfig  `yaml:"telegram"`
	Webhook   WebhookConfig   `yaml:"webhook"`
	Logging   LoggingConfig   `yaml:"logging"`
	Directory DirectoryConfig `yaml:"directory"`
	Relay     RelayConfig     `yaml:"relay"`
	Metrics   MetricsConfig   `yaml:"metrics"`
}

var validate = validator.New(validator.WithRequiredStructEnabled())

// Load reads configuration from a YAML file and environment variables.
// A missing file is not an error; the environment alone may configure the bot.
func Load(path string) (*Config, error) {
	var cfg Config

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return nil, fmt.Errorf("failed to parse YAML config: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return nil, fmt.Errorf("failed to read config file: %w", err)
		}
	}
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process env: %w", err)
	}

	if err := Normalize(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Normalize fills defaults, resolves aliases and validates the result.
func Normalize(cfg *Config) error {
	if cfg == nil {
		return fmt.Errorf("nil config")
	}

	cfg.Telegram.Token = strings.TrimSpace(cfg.Telegram.Token)
	cfg.Telegram.AdminIDs = dedupeIDs(cfg.Telegram.AdminIDs)

	rm := strings.ToLower(strings.TrimSpace(cfg.Telegram.RunMode))
	switch rm {
	case "", "polling":
		rm = RunModeLongpoll
	}
	cfg.Telegram.RunMode = rm

	d := &cfg.Directory
	d.Backend = strings.ToLower(strings.TrimSpace(d.Backend))
	switch d.Backend {
	case "":
		d.Backend = BackendMemory
	case "postgresql", "pg":
		d.Backend = BackendPostgres
	case "sqlite3":
		d.Backend = BackendSQLite
	}
	if d.TTL > 0 && d.SweepInterval <= 0 {
		d.SweepInterval = time.Hour
	}
	if d.SQLite.Path == "" {
		d.SQLite.Path = "relaybot.db"
	}
	if d.Postgres.SSLMode == "" {
		d.Postgres.SSLMode = "disable"
	}
	if d.Postgres.MaxConnections == 0 {
		d.Postgres.MaxConnections = 5
	}

	r := &cfg.Relay
	r.AckPolicy = strings.ToLower(strings.TrimSpace(r.AckPolicy))
	if r.AckPolicy == "" {
		r.AckPolicy = AckRequireOne
	}
	if r.SendTimeout == 0 {
		r.SendTimeout = 10 * time.Second
	}
	if r.FanoutLimit == 0 {
		r.FanoutLimit = 8
	}
	if r.Shards == 0 {
		r.Shards = 16
	}
	if r.QueueSize == 0 {
		r.QueueSize = 64
	}

	if err := validate.Struct(cfg); err != nil {
		return fmt.Errorf("invalid config: %w", err)
	}

	switch rm {
	case RunModeWebhook:
		if strings.TrimSpace(cfg.Webhook.URL) == "" {
			return fmt.Errorf("webhook.url is required when telegram.run_mode is 'webhook'")
		}
		if cfg.Webhook.Port <= 0 {
			return fmt.Errorf("webhook.port must be > 0 when telegram.run_mode is 'webhook'")
		}
	}
	switch d.Backend {
	case BackendPostgres:
		if d.Postgres.Host == "" || d.Postgres.Name == "" {
			return fmt.Errorf("directory.postgres.host and directory.postgres.name are required for the postgres backend")
		}
	case BackendRedis:
		if d.Redis.Addr == "" {
			return fmt.Errorf("directory.redis.addr is required for the redis backend")
		}
	}
	return nil
}

func dedupeIDs(ids []int64) []int64 {
	if len(ids) == 0 {
		return ids
	}
	seen := make(map[int64]struct{}, len(ids))
	out := ids[:0]
	for _, id := range ids {
		if _, ok := seen[id]; ok {
			continue
		}
		seen[id] = struct{}{}
		out = append(out, id)
	}
	return out
}
