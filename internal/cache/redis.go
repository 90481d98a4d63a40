package cache

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"framewatch/internal/config"
	"framewatch/internal/model"
)

var ErrNotFound = errors.New("summary not found")

// SummaryCache keeps finalized run summaries in Redis so dashboards can
// look up past runs without hitting the SQL store.
type SummaryCache struct {
	client *redis.Client
	ttl    time.Duration
}

func NewSummaryCache(cfg config.CacheConfig) (*SummaryCache, error) {
	client := redis.NewClient(&redis.Options{
		Addr:       cfg.Addr,
		Password:   cfg.Password,
		DB:         cfg.DB,
		MaxRetries: 3,
	})
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("connect to redis: %w", err)
	}
	ttl := cfg.TTL
	if ttl <= 0 {
		ttl = time.Hour
	}
	return &SummaryCache{client: client, ttl: ttl}, nil
}

func summaryKey(runID string) string {
	return "summary:" + runID
}

func (c *SummaryCache) StoreSummary(ctx context.Context, summary *model.Summary) error {
	if summary == nil {
		return nil
	}
	data, err := json.Marshal(summary)
	if err != nil {
		return fmt.Errorf("marshal summary: %w", err)
	}
	return c.client.Set(ctx, summaryKey(summary.RunID), data, c.ttl).Err()
}

func (c *SummaryCache) GetSummary(ctx context.Context, runID string) (*model.Summary, error) {
	data, err := c.client.Get(ctx, summaryKey(runID)).Bytes()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	var summary model.Summary
	if err := json.Unmarshal(data, &summary); err != nil {
		return nil, fmt.Errorf("unmarshal summary: %w", err)
	}
	return &summary, nil
}

func (c *SummaryCache) Close() error {
	return c.client.Close()
}
