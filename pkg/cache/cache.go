package cache

import (
	"context"
	"fmt"
	"time"

	"github.com/ikkim/churchbook-backend/config"
	"github.com/ikkim/churchbook-backend/pkg/logger"
	"github.com/redis/go-redis/v9"
)

var client *redis.Client

// Init initializes the Redis connection. An empty address disables caching;
// every helper below is a no-op when the client is nil.
func Init(cfg *config.RedisConfig) error {
	if cfg.Addr == "" {
		logger.Info("Redis address not configured, cache disabled")
		return nil
	}

	logger.Info("Initializing Redis connection", map[string]interface{}{
		"addr": cfg.Addr,
		"db":   cfg.DB,
	})

	client = redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	// Test connection
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := client.Ping(ctx).Err(); err != nil {
		logger.Error("Failed to connect to Redis", err, map[string]interface{}{
			"addr": cfg.Addr,
		})
		client = nil
		return fmt.Errorf("failed to connect to Redis: %w", err)
	}

	logger.Info("Redis connection established successfully")
	return nil
}

// Enabled reports whether the cache is available.
func Enabled() bool {
	return client != nil
}

// Close closes the Redis connection
func Close() error {
	if client != nil {
		logger.Info("Closing Redis connection")
		return client.Close()
	}
	return nil
}

// Get returns the cached value, or ("", false) on miss or when disabled.
func Get(ctx context.Context, key string) (string, bool) {
	if client == nil {
		return "", false
	}

	val, err := client.Get(ctx, key).Result()
	if err == redis.Nil {
		return "", false
	}
	if err != nil {
		logger.Error("Failed to read from cache", err, map[string]interface{}{
			"key": key,
		})
		return "", false
	}
	return val, true
}

// Set stores a value with an expiry. Failures are logged and swallowed;
// the cache is best effort.
func Set(ctx context.Context, key, value string, expiry time.Duration) {
	if client == nil {
		return
	}

	if err := client.Set(ctx, key, value, expiry).Err(); err != nil {
		logger.Error("Failed to write to cache", err, map[string]interface{}{
			"key": key,
		})
	}
}

// Delete removes keys matching the given pattern.
func Delete(ctx context.Context, pattern string) {
	if client == nil {
		return
	}

	keys, err := client.Keys(ctx, pattern).Result()
	if err != nil {
		logger.Error("Failed to scan cache keys", err, map[string]interface{}{
			"pattern": pattern,
		})
		return
	}
	if len(keys) == 0 {
		return
	}

	if err := client.Del(ctx, keys...).Err(); err != nil {
		logger.Error("Failed to invalidate cache keys", err, map[string]interface{}{
			"pattern": pattern,
			"count":   len(keys),
		})
		return
	}

	logger.Debug("Cache keys invalidated", map[string]interface{}{
		"pattern": pattern,
		"count":   len(keys),
	})
}
