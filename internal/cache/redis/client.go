// Package redis caches JSON read views, keyed per document or per
// user. The pipeline invalidates document-scoped keys after it
// writes.
package redis

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/studyhall/backend/internal/metrics"
	"github.com/studyhall/backend/pkg/logger"
)

type Client struct {
	client *redis.Client
}

func NewClient(host string, port int, password string, db int) (*Client, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     fmt.Sprintf("%s:%d", host, port),
		Password: password,
		DB:       db,
	})

	ctx := context.Background()
	_, err := client.Ping(ctx).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to connect to redis: %w", err)
	}

	logger.Info("Redis client initialized", zap.String("addr", fmt.Sprintf("%s:%d", host, port)))

	return &Client{client: client}, nil
}

func (c *Client) Close() error {
	return c.client.Close()
}

// SetView caches a JSON view under the given key.
func (c *Client) SetView(ctx context.Context, key string, view interface{}, ttl time.Duration) error {
	data, err := json.Marshal(view)
	if err != nil {
		return fmt.Errorf("failed to marshal view: %w", err)
	}

	err = c.client.Set(ctx, fmt.Sprintf("view:%s", key), data, ttl).Err()
	if err != nil {
		return fmt.Errorf("failed to set view cache: %w", err)
	}

	logger.Debug("View cached", zap.String("key", key), zap.Duration("ttl", ttl))
	return nil
}

// GetView loads a cached view into the given target; false means miss.
func (c *Client) GetView(ctx context.Context, key string, view interface{}) (bool, error) {
	data, err := c.client.Get(ctx, fmt.Sprintf("view:%s", key)).Bytes()
	if err == redis.Nil {
		metrics.CacheMisses.WithLabelValues("view").Inc()
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to get view cache: %w", err)
	}

	err = json.Unmarshal(data, view)
	if err != nil {
		return false, fmt.Errorf("failed to unmarshal view: %w", err)
	}

	metrics.CacheHits.WithLabelValues("view").Inc()
	logger.Debug("View cache hit", zap.String("key", key))
	return true, nil
}

// InvalidateDocument removes every cached view keyed under a document.
func (c *Client) InvalidateDocument(ctx context.Context, documentID int64) error {
	pattern := fmt.Sprintf("view:doc:%d:*", documentID)

	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.String("key", iter.Val()), zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	logger.Debug("Document views invalidated", zap.Int64("document_id", documentID))
	return nil
}

// InvalidateUser removes cached due-review views for one user.
func (c *Client) InvalidateUser(ctx context.Context, userID int64) error {
	pattern := fmt.Sprintf("view:user:%d:*", userID)

	iter := c.client.Scan(ctx, 0, pattern, 0).Iterator()
	for iter.Next(ctx) {
		if err := c.client.Del(ctx, iter.Val()).Err(); err != nil {
			logger.Warn("Failed to delete cache key", zap.String("key", iter.Val()), zap.Error(err))
		}
	}

	if err := iter.Err(); err != nil {
		return fmt.Errorf("failed to iterate cache keys: %w", err)
	}

	return nil
}
