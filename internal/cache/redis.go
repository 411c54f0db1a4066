package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"frame-monitor/internal/models"

	"github.com/go-redis/redis/v8"
)

type Options struct {
	Addr      string
	Password  string
	DB        int
	KeyPrefix string
	TTL       time.Duration
	MaxDrops  int64
}

// commander is the part of *redis.Client the publisher depends on.
type commander interface {
	redis.Cmdable
	Close() error
}

// RedisClient publishes frame metrics for out-of-process dashboards and keeps a
// capped list of finished drop events. Entries expire after TTL.
type RedisClient struct {
	client commander
	opts   Options
}

func NewRedisClient(ctx context.Context, opts Options) (*RedisClient, error) {
	client := redis.NewClient(&redis.Options{
		Addr:         opts.Addr,
		Password:     opts.Password,
		DB:           opts.DB,
		PoolSize:     10,
		MinIdleConns: 2,
		MaxRetries:   3,
	})

	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, fmt.Errorf("failed to connect to Redis at %s: %w", opts.Addr, err)
	}

	return newRedisClient(client, opts), nil
}

func newRedisClient(client commander, opts Options) *RedisClient {
	if opts.TTL <= 0 {
		opts.TTL = time.Hour
	}
	if opts.MaxDrops <= 0 {
		opts.MaxDrops = 1000
	}
	return &RedisClient{client: client, opts: opts}
}

func (r *RedisClient) Name() string { return "redis" }

func (r *RedisClient) latestKey() string { return r.opts.KeyPrefix + ":latest" }

func (r *RedisClient) channel() string { return r.opts.KeyPrefix + ":snapshots" }

func (r *RedisClient) recentDropsKey() string { return r.opts.KeyPrefix + ":drops:recent" }

func (r *RedisClient) dropKey(e models.DropEvent) string {
	return fmt.Sprintf("%s:drop:%d", r.opts.KeyPrefix, e.StartedAt.UnixNano())
}

// Publish stores the latest snapshot and announces it on the snapshots channel.
func (r *RedisClient) Publish(ctx context.Context, m models.FrameMetrics) error {
	data, err := json.Marshal(m)
	if err != nil {
		return fmt.Errorf("failed to marshal frame metrics: %w", err)
	}

	pipe := r.client.Pipeline()
	pipe.Set(ctx, r.latestKey(), data, r.opts.TTL)
	pipe.Publish(ctx, r.channel(), data)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("failed to publish frame metrics to Redis: %w", err)
	}
	return nil
}

func (r *RedisClient) RecordDrop(ctx context.Context, e models.DropEvent) error {
	key := r.dropKey(e)

	data, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to marshal drop event: %w", err)
	}

	err = r.client.Set(ctx, key, data, r.opts.TTL).Err()
	if err != nil {
		return fmt.Errorf("failed to store drop event in Redis: %w", err)
	}

	err = r.client.LPush(ctx, r.recentDropsKey(), key).Err()
	if err != nil {
		return fmt.Errorf("failed to update recent drops list: %w", err)
	}

	err = r.client.LTrim(ctx, r.recentDropsKey(), 0, r.opts.MaxDrops-1).Err()
	if err != nil {
		return fmt.Errorf("failed to trim recent drops list: %w", err)
	}
	return nil
}

// GetRecentDrops returns up to count drop events, newest first.
func (r *RedisClient) GetRecentDrops(ctx context.Context, count int64) ([]models.DropEvent, error) {
	keys, err := r.client.LRange(ctx, r.recentDropsKey(), 0, count-1).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to get recent drop keys: %w", err)
	}

	var events []models.DropEvent
	for _, key := range keys {
		data, err := r.client.Get(ctx, key).Result()
		if err != nil {
			continue // expired
		}

		var e models.DropEvent
		if err := json.Unmarshal([]byte(data), &e); err != nil {
			continue
		}
		events = append(events, e)
	}
	return events, nil
}

func (r *RedisClient) GetLatest(ctx context.Context) (models.FrameMetrics, error) {
	var m models.FrameMetrics
	data, err := r.client.Get(ctx, r.latestKey()).Bytes()
	if err != nil {
		return m, fmt.Errorf("failed to get latest frame metrics: %w", err)
	}
	if err := json.Unmarshal(data, &m); err != nil {
		return m, fmt.Errorf("failed to unmarshal frame metrics: %w", err)
	}
	return m, nil
}

func (r *RedisClient) Close() error {
	return r.client.Close()
}
