package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"
	"time"

	"resi-tracker/internal/core/cache"
	"resi-tracker/internal/core/config"
	"resi-tracker/internal/core/httpclient"
	"resi-tracker/internal/core/logger"
	"resi-tracker/internal/core/metrics"
	"resi-tracker/internal/core/server"
	"resi-tracker/internal/features/bot"
	trackingadapter "resi-tracker/internal/features/tracking/adapters"
	"resi-tracker/internal/features/tracking/domain"
	trackinghandler "resi-tracker/internal/features/tracking/handler"
	trackingservice "resi-tracker/internal/features/tracking/service"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"go.uber.org/zap"
)

// botRequestMargin is added to the long-poll timeout for Bot API calls.
const botRequestMargin = 10 * time.Second

// @title Resi Tracker API
// @version 1.0
// @description Courier waybill tracking backed by the cekresi.com aggregator.
// @contact.name API Support
// @license.name MIT
// @host localhost:8080
// @BasePath /
func main() {
	cfg, err := config.Load(".")
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}

	if err := logger.Init(cfg.Environment, cfg.LogLevel, cfg.LogFile); err != nil {
		log.Fatalf("Failed to init logger: %v", err)
	}
	defer logger.Sync()

	l := logger.Get()
	l.Info("Application starting",
		zap.String("environment", cfg.Environment),
		zap.String("log_level", cfg.LogLevel),
		zap.Bool("bot_enabled", cfg.Telegram.Enabled()),
		zap.Bool("cache_enabled", cfg.Cache.Enabled()),
		zap.Bool("proxy_enabled", cfg.Proxy.Settings().HasProxy()),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Metrics
	registry := prometheus.NewRegistry()
	registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	lookupMetrics := metrics.NewLookupMetrics(cfg.Metrics.Namespace, registry)

	// Tracking pipeline
	expeditions := domain.MustNewRegistry(domain.DefaultExpeditions())

	fetcher, err := trackingadapter.NewCekResiAdapter(trackingadapter.CekResiOptions{
		BaseURL:       cfg.CekResi.BaseURL,
		WaitTimeout:   cfg.CekResi.WaitTimeout,
		LookupTimeout: cfg.CekResi.LookupTimeout,
		BrowserBin:    cfg.CekResi.BrowserBin,
		Headless:      cfg.CekResi.Headless,
		Stealth:       cfg.CekResi.Stealth,
		Proxy:         cfg.Proxy.Settings(),
	})
	if err != nil {
		l.Fatal("Failed to configure aggregator driver", zap.Error(err))
	}

	opts := []trackingservice.Option{trackingservice.WithMetrics(lookupMetrics)}
	if cfg.Cache.Enabled() {
		redisCache, err := cache.NewRedisAdapter(cfg.Cache.RedisURL, "resi:")
		if err != nil {
			l.Fatal("Failed to configure cache", zap.Error(err))
		}
		defer redisCache.Close()

		if err := redisCache.Ping(ctx); err != nil {
			l.Warn("Cache unreachable, lookups will not be cached until it recovers", zap.Error(err))
		}
		opts = append(opts, trackingservice.WithCache(redisCache, cfg.Cache.TTL))
	}

	trackingSvc := trackingservice.NewTrackingService(expeditions, fetcher, trackingadapter.NewCekResiParser(), opts...)
	trackingHdl := trackinghandler.NewTrackingHandler(trackingSvc)

	// Telegram bot
	if cfg.Telegram.Enabled() {
		chatBot, err := bot.New(bot.Config{
			Token:       cfg.Telegram.Token,
			PollTimeout: cfg.Telegram.PollTimeout,
			Client:      httpclient.NewClient(cfg.Telegram.PollTimeout + botRequestMargin),
		}, trackingSvc)
		if err != nil {
			l.Fatal("Failed to start Telegram bot", zap.Error(err))
		}
		go chatBot.Start()
		defer chatBot.Stop()
	}

	srv := server.New(cfg, registry)

	// Register Routes
	srv.App.Get("/tracking/:number", trackingHdl.GetTrackingHistory)
	srv.App.Get("/expeditions", trackingHdl.ListExpeditions)
	srv.App.Get("/expeditions/:name", trackingHdl.CheckExpedition)

	go func() {
		<-ctx.Done()
		l.Info("Shutting down")
		if err := srv.Shutdown(); err != nil {
			l.Error("Server shutdown failed", zap.Error(err))
		}
	}()

	if err := srv.Run(); err != nil {
		l.Fatal("Server failed to start", zap.Error(err))
	}
}
