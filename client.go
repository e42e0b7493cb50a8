package storecheck

import (
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Client drives one browser of an isoFleet worker pool. Commands travel as
// JSON on the worker's Redis task queue and results come back on a per-task
// result list.
type Client struct {
	rdb    *redis.Client
	lease  *FleetLease
	logger *zap.Logger
}

// NewRedisClient connects to the fleet's Redis, preferring cfg.RedisURL over
// the host/port/password fields.
func NewRedisClient(cfg Config) (*redis.Client, error) {
	if cfg.RedisURL != "" {
		opt, err := redis.ParseURL(cfg.RedisURL)
		if err != nil {
			return nil, fmt.Errorf("parse redis url: %w", err)
		}
		return redis.NewClient(opt), nil
	}
	return redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr(),
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	}), nil
}

// NewClient wraps rdb. The caller owns rdb and closes it.
func NewClient(rdb *redis.Client, logger *zap.Logger) *Client {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Client{rdb: rdb, logger: logger}
}

// Lease returns the acquired browser, or nil before Acquire and after Release.
func (c *Client) Lease() *FleetLease {
	return c.lease
}
