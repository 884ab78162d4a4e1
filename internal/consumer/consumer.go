// Package consumer scrapes URLs requested on a Redis stream.
package consumer

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"

	"github.com/maltedev/supplier-scraper/internal/scraper"
)

// EventTypeScrapeRequested is the only event type the consumer acts on.
const EventTypeScrapeRequested = "SCRAPE_REQUESTED"

type StreamClient interface {
	XGroupCreateMkStream(ctx context.Context, stream, group, start string) *redis.StatusCmd
	XReadGroup(ctx context.Context, a *redis.XReadGroupArgs) *redis.XStreamSliceCmd
	XAck(ctx context.Context, stream, group string, ids ...string) *redis.IntCmd
}

type Scraper interface {
	Scrape(ctx context.Context, rawURL string, opts scraper.ScrapeOptions) (*scraper.ScrapeResult, error)
}

// ScrapeRequest is the JSON payload of a SCRAPE_REQUESTED message.
type ScrapeRequest struct {
	URL       string     `json:"url"`
	CreatedAt *time.Time `json:"created_at,omitempty"`
}

type Config struct {
	Stream   string
	Group    string
	Consumer string
	Block    time.Duration
	Count    int64
}

// Consumer reads scrape requests with a consumer group. A message is acked
// once its scrape finished, whatever the outcome. Messages interrupted by
// shutdown stay pending.
type Consumer struct {
	client  StreamClient
	scraper Scraper
	cfg     Config
	logger  *slog.Logger
	backoff time.Duration
}

func New(client StreamClient, s Scraper, cfg Config, logger *slog.Logger) *Consumer {
	if cfg.Block <= 0 {
		cfg.Block = 5 * time.Second
	}
	if cfg.Count <= 0 {
		cfg.Count = 1
	}
	return &Consumer{
		client:  client,
		scraper: s,
		cfg:     cfg,
		logger:  logger.With("component", "consumer", "stream", cfg.Stream),
		backoff: time.Second,
	}
}

// Run consumes until ctx is cancelled.
func (c *Consumer) Run(ctx context.Context) error {
	err := c.client.XGroupCreateMkStream(ctx, c.cfg.Stream, c.cfg.Group, "0").Err()
	if err != nil && !strings.HasPrefix(err.Error(), "BUSYGROUP") {
		return fmt.Errorf("failed to create consumer group: %w", err)
	}

	c.logger.Info("starting consumer", "group", c.cfg.Group, "consumer", c.cfg.Consumer)

	for {
		if ctx.Err() != nil {
			c.logger.Info("consumer stopped")
			return ctx.Err()
		}

		streams, err := c.client.XReadGroup(ctx, &redis.XReadGroupArgs{
			Group:    c.cfg.Group,
			Consumer: c.cfg.Consumer,
			Streams:  []string{c.cfg.Stream, ">"},
			Count:    c.cfg.Count,
			Block:    c.cfg.Block,
		}).Result()
		if err != nil {
			if errors.Is(err, redis.Nil) {
				continue
			}
			if ctx.Err() != nil {
				continue
			}
			c.logger.Error("failed to read from stream", "error", err)
			pause(ctx, c.backoff)
			continue
		}

		for _, stream := range streams {
			for _, msg := range stream.Messages {
				if err := c.handle(ctx, msg); err != nil {
					c.logger.Warn("message left pending", "id", msg.ID, "error", err)
					continue
				}
				if err := c.client.XAck(ctx, c.cfg.Stream, c.cfg.Group, msg.ID).Err(); err != nil {
					c.logger.Error("failed to acknowledge message", "id", msg.ID, "error", err)
				}
			}
		}
	}
}

// handle returns an error only when the message must not be acked.
func (c *Consumer) handle(ctx context.Context, msg redis.XMessage) error {
	eventType, _ := msg.Values["event_type"].(string)
	if eventType != EventTypeScrapeRequested {
		c.logger.Debug("skipping event", "id", msg.ID, "event_type", eventType)
		return nil
	}

	req, err := decodeRequest(msg)
	if err != nil {
		c.logger.Error("dropping malformed message", "id", msg.ID, "error", err)
		return nil
	}

	res, err := c.scraper.Scrape(ctx, req.URL, scraper.ScrapeOptions{CreatedAt: req.CreatedAt})
	if err != nil {
		if ctx.Err() != nil {
			return ctx.Err()
		}
		c.logger.Info("scrape request finished without product",
			"id", msg.ID,
			"url", req.URL,
			"kind", scraper.IgnoredKindFor(err))
		return nil
	}

	c.logger.Info("scrape request stored",
		"id", msg.ID,
		"url", req.URL,
		"product_id", res.Product.ID)
	return nil
}

func decodeRequest(msg redis.XMessage) (ScrapeRequest, error) {
	var req ScrapeRequest
	payload, ok := msg.Values["payload"].(string)
	if !ok {
		return req, errors.New("missing payload")
	}
	if err := json.Unmarshal([]byte(payload), &req); err != nil {
		return req, fmt.Errorf("failed to parse payload: %w", err)
	}
	if strings.TrimSpace(req.URL) == "" {
		return req, errors.New("missing url in payload")
	}
	return req, nil
}

func pause(ctx context.Context, d time.Duration) {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
	case <-t.C:
	}
}
