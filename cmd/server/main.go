package main

import (
	"context"
	"errors"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/supplier-scraper/internal/api"
	"github.com/maltedev/supplier-scraper/internal/app"
	"github.com/maltedev/supplier-scraper/internal/archive"
	"github.com/maltedev/supplier-scraper/internal/config"
	"github.com/maltedev/supplier-scraper/internal/database"
	"github.com/maltedev/supplier-scraper/internal/jobs"
	"github.com/maltedev/supplier-scraper/internal/ratelimit"
	"github.com/maltedev/supplier-scraper/pkg/logger"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logger.New("info", "json").Error("failed to load config", "error", err)
		os.Exit(1)
	}

	log := logger.New(cfg.Logging.Level, cfg.Logging.Format)

	if err := cfg.Validate(); err != nil {
		log.Error("invalid config", "error", err)
		os.Exit(1)
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	jobManager := jobs.NewManager(a.Jobs, a.Service, cfg.Jobs.PollInterval, log)
	go jobManager.StartWorker(ctx)

	deps := api.Dependencies{
		Scraper:   a.Service,
		Jobs:      jobManager,
		Catalog:   a.Store,
		Suppliers: a.Suppliers,
		Images:    a.Fetcher,
		Throttle:  ratelimit.NewTokenBucket(cfg.Server.ScrapeRate, cfg.Server.ScrapeBurst),
	}

	if cfg.Redis.Enabled {
		redisClient := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		defer redisClient.Close()

		if err := redisClient.Ping(ctx).Err(); err != nil {
			log.Error("failed to connect to redis", "error", err)
			os.Exit(1)
		}

		relay := database.NewRelay(a.Outbox, redisClient, log, database.RelayConfig{
			PollInterval: cfg.Jobs.RelayEvery,
			BatchSize:    100,
			OnPublish:    a.Metrics.OutboxPublished,
		})
		go func() {
			if err := relay.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				log.Error("relay stopped with error", "error", err)
			}
		}()
		deps.Outbox = relay
	}

	if cfg.Archive.Bucket != "" {
		s3Client, err := archive.NewS3Client(ctx, cfg.Archive)
		if err != nil {
			log.Error("failed to create s3 client", "error", err)
			os.Exit(1)
		}
		deps.Archiver = archive.NewArchiver(s3Client, a.Fetcher, cfg.Archive.Bucket, cfg.Archive.Prefix, log)
		log.Info("image archive enabled", "bucket", cfg.Archive.Bucket)
	}

	router := api.NewRouter(api.NewHandlers(deps, log), api.RouterOptions{
		AllowedOrigins: cfg.Server.AllowedOrigins,
		Timeout:        cfg.Server.WriteTimeout,
		Recorder:       a.Metrics,
		Metrics:        a.Metrics.Handler(),
	})

	server := &http.Server{
		Addr:         net.JoinHostPort(cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		<-ctx.Done()
		log.Info("shutting down server...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer shutdownCancel()

		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Error("server shutdown failed", "error", err)
		}
	}()

	log.Info("server starting", "addr", server.Addr, "store", cfg.Store.Backend, "browser", cfg.Browser.Enabled)
	if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		log.Error("server failed", "error", err)
		os.Exit(1)
	}

	log.Info("server stopped")
}
