package config

import (
	"fmt"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"

	"github.com/adminlove520/daily-stock-analysis/pkg/errors"
)

type Config struct {
	App           AppConfig
	Discord       DiscordConfig
	Postgres      PostgresConfig
	Redis         RedisConfig
	Engine        EngineConfig
	Bridge        BridgeConfig
	Notify        NotifyConfig
	Report        ReportConfig
	Stocks        StockConfig
	Metrics       MetricsConfig
	ErrorTracking ErrorTrackingConfig
}

type AppConfig struct {
	Name     string `envconfig:"APP_NAME" default:"daily-stock-analysis"`
	Env      string `envconfig:"APP_ENV" default:"development"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogDir   string `envconfig:"LOG_DIR"`
	Debug    bool   `envconfig:"DEBUG" default:"false"`
}

type DiscordConfig struct {
	BotToken string `envconfig:"DISCORD_BOT_TOKEN" required:"true"`
	// GuildID scopes slash commands to one guild for instant registration.
	// Empty registers them globally (propagation can take up to an hour).
	GuildID      string `envconfig:"DISCORD_GUILD_ID"`
	PresenceText string `envconfig:"DISCORD_PRESENCE" default:"A股行情"`
}

type PostgresConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" required:"true"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" required:"true"`
	Password string `envconfig:"POSTGRES_PASSWORD" required:"true"`
	Database string `envconfig:"POSTGRES_DB" required:"true"`
	SSLMode  string `envconfig:"POSTGRES_SSL_MODE" default:"disable"`
	MaxConns int    `envconfig:"POSTGRES_MAX_CONNS" default:"10"`
}

func (c PostgresConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

// Enabled reports whether a Redis host is configured. The result cache is
// optional; without Redis every /analysis call goes straight to the engine.
func (c RedisConfig) Enabled() bool {
	return c.Host != ""
}

type EngineConfig struct {
	BaseURL  string        `envconfig:"ENGINE_BASE_URL" default:"http://localhost:5000"`
	Timeout  time.Duration `envconfig:"ENGINE_TIMEOUT" default:"5m"`
	CacheTTL time.Duration `envconfig:"ENGINE_CACHE_TTL" default:"10m"`
}

type BridgeConfig struct {
	// Workers bounds how many blocking engine calls may run concurrently.
	Workers int `envconfig:"BRIDGE_WORKERS" default:"4"`
}

type NotifyConfig struct {
	DiscordWebhookURLs []string `envconfig:"DISCORD_WEBHOOK_URLS"`
	WecomWebhookURL    string   `envconfig:"WECOM_WEBHOOK_URL"`
	TelegramBotToken   string   `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID     int64    `envconfig:"TELEGRAM_CHAT_ID"`
}

// ReportConfig controls market-report pagination. The cutover numbers are
// policy, not algorithm, so they live here instead of in the renderer.
type ReportConfig struct {
	ChunkSize          int `envconfig:"REPORT_CHUNK_SIZE" default:"1900"`
	SecondaryThreshold int `envconfig:"REPORT_SECONDARY_THRESHOLD" default:"3800"`
	MaxChunks          int `envconfig:"REPORT_MAX_CHUNKS" default:"2"`
}

type StockConfig struct {
	// FallbackCodes is shown when the watchlist store is empty.
	FallbackCodes []string `envconfig:"STOCK_LIST"`
}

type MetricsConfig struct {
	Addr string `envconfig:"METRICS_ADDR"`
}

type ErrorTrackingConfig struct {
	Enabled     bool   `envconfig:"ERROR_TRACKING_ENABLED" default:"false"`
	SentryDSN   string `envconfig:"SENTRY_DSN"`
	Environment string `envconfig:"SENTRY_ENVIRONMENT" default:"production"`
}

// Load reads configuration from environment variables
// It first tries to load .env file (useful for local development)
func Load() (*Config, error) {
	// Load .env file if exists (ignore error if not exists)
	_ = godotenv.Load()

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, errors.Wrap(err, "failed to process env config")
	}

	return &cfg, nil
}
