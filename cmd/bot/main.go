package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/adminlove520/daily-stock-analysis/internal/adapters/config"
	"github.com/adminlove520/daily-stock-analysis/internal/adapters/engine"
	"github.com/adminlove520/daily-stock-analysis/internal/adapters/errors/noop"
	"github.com/adminlove520/daily-stock-analysis/internal/adapters/errors/sentry"
	"github.com/adminlove520/daily-stock-analysis/internal/adapters/postgres"
	"github.com/adminlove520/daily-stock-analysis/internal/adapters/redis"
	"github.com/adminlove520/daily-stock-analysis/internal/commands"
	"github.com/adminlove520/daily-stock-analysis/internal/domain/analysis"
	"github.com/adminlove520/daily-stock-analysis/internal/metrics"
	"github.com/adminlove520/daily-stock-analysis/internal/notify"
	repo "github.com/adminlove520/daily-stock-analysis/internal/repository/postgres"
	watchlistsvc "github.com/adminlove520/daily-stock-analysis/internal/services/watchlist"
	"github.com/adminlove520/daily-stock-analysis/pkg/discord"
	"github.com/adminlove520/daily-stock-analysis/pkg/discord/adapters/discordgo"
	pkgerrors "github.com/adminlove520/daily-stock-analysis/pkg/errors"
	"github.com/adminlove520/daily-stock-analysis/pkg/logger"
	"github.com/adminlove520/daily-stock-analysis/pkg/taskpool"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	if err := logger.Init(cfg.App.LogLevel, cfg.App.Env, cfg.App.LogDir); err != nil {
		panic("failed to init logger: " + err.Error())
	}
	log := logger.Get()
	defer func() { _ = logger.Sync() }()

	log.Infow("Starting bot",
		"app", cfg.App.Name,
		"env", cfg.App.Env,
	)

	tracker := initTracker(cfg, log)
	logger.SetErrorTracker(tracker)
	defer func() { _ = tracker.Flush(context.Background()) }()

	// Postgres
	pg, err := postgres.NewClient(cfg.Postgres)
	if err != nil {
		log.Fatalw("Failed to connect to postgres", "error", err)
	}
	defer pg.Close()

	watchlistRepo := repo.NewWatchlistRepository(pg.DB())
	watchlistService := watchlistsvc.NewService(watchlistRepo, cfg.Stocks.FallbackCodes, log)

	// Analysis engine, optionally wrapped with the Redis result cache
	var eng analysis.Engine = engine.NewClient(cfg.Engine, log)
	if cfg.Redis.Enabled() {
		cache, err := redis.NewClient(cfg.Redis)
		if err != nil {
			log.Fatalw("Failed to connect to redis", "error", err)
		}
		defer cache.Close()

		eng = engine.NewCachedEngine(eng, cache, cfg.Engine.CacheTTL, log)
		log.Infow("Analysis result cache enabled", "ttl", cfg.Engine.CacheTTL)
	}

	notifier := notify.NewService(buildChannels(cfg.Notify, log), log)
	log.Infow("Notification fan-out configured", "channels", notifier.ChannelCount())

	pool := taskpool.New(cfg.Bridge.Workers, log)

	registry := discord.NewRegistry(log)
	handlers := commands.NewHandlers(watchlistService, eng, notifier, pool, cfg.Report, log)
	handlers.RegisterAll(registry)

	client, err := discordgo.NewClient(discordgo.Config{
		Token:        cfg.Discord.BotToken,
		GuildID:      cfg.Discord.GuildID,
		PresenceText: cfg.Discord.PresenceText,
		Debug:        cfg.App.Debug,
	}, registry, log)
	if err != nil {
		log.Fatalw("Failed to create discord client", "error", err)
	}

	metrics.Register()
	if cfg.Metrics.Addr != "" {
		go func() {
			log.Infow("Metrics endpoint listening", "addr", cfg.Metrics.Addr)
			if err := metrics.Serve(cfg.Metrics.Addr); err != nil && err != http.ErrServerClosed {
				log.Errorw("Metrics server failed", "error", err)
			}
		}()
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := client.Start(ctx); err != nil {
		log.Fatalw("Discord client failed", "error", err)
	}

	log.Infow("Shutdown complete")
}

// initTracker returns the Sentry tracker when configured, a noop otherwise
func initTracker(cfg *config.Config, log *logger.Logger) pkgerrors.Tracker {
	if !cfg.ErrorTracking.Enabled || cfg.ErrorTracking.SentryDSN == "" {
		return noop.New()
	}

	tracker, err := sentry.New(cfg.ErrorTracking.SentryDSN, cfg.ErrorTracking.Environment)
	if err != nil {
		log.Warnw("Failed to init sentry, falling back to noop tracker", "error", err)
		return noop.New()
	}

	log.Infow("Error tracking enabled", "environment", cfg.ErrorTracking.Environment)
	return tracker
}

// buildChannels assembles every notification channel with configuration
func buildChannels(cfg config.NotifyConfig, log *logger.Logger) []notify.Channel {
	channels := make([]notify.Channel, 0)

	for _, url := range cfg.DiscordWebhookURLs {
		if url != "" {
			channels = append(channels, notify.NewDiscordWebhookChannel(url))
		}
	}

	if cfg.WecomWebhookURL != "" {
		channels = append(channels, notify.NewWecomChannel(cfg.WecomWebhookURL))
	}

	if cfg.TelegramBotToken != "" && cfg.TelegramChatID != 0 {
		tg, err := notify.NewTelegramChannel(cfg.TelegramBotToken, cfg.TelegramChatID)
		if err != nil {
			log.Warnw("Failed to init telegram channel, skipping", "error", err)
		} else {
			channels = append(channels, tg)
		}
	}

	return channels
}
