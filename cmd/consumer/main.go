// Command consumer scrapes the URLs published on the scrape request stream.
package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/supplier-scraper/internal/app"
	"github.com/maltedev/supplier-scraper/internal/config"
	"github.com/maltedev/supplier-scraper/internal/consumer"
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

	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	defer rdb.Close()

	if err := rdb.Ping(ctx).Err(); err != nil {
		log.Error("failed to connect to redis", "error", err, "addr", cfg.Redis.Addr)
		os.Exit(1)
	}
	log.Info("connected to redis", "addr", cfg.Redis.Addr)

	a, err := app.New(ctx, cfg, log)
	if err != nil {
		log.Error("failed to initialize", "error", err)
		os.Exit(1)
	}
	defer a.Close()

	c := consumer.New(rdb, a.Service, consumer.Config{
		Stream:   cfg.Consumer.Stream,
		Group:    cfg.Consumer.Group,
		Consumer: cfg.Consumer.Name,
		Block:    cfg.Consumer.Block,
		Count:    cfg.Consumer.Count,
	}, log)

	if err := c.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		log.Error("consumer failed", "error", err)
		a.Close()
		os.Exit(1)
	}
	log.Info("shutdown complete")
}
