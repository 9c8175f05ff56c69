package util

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	_ "github.com/lib/pq"
)

const connectTimeout = 5 * time.Second

// NewDBConnection opens the credential store and verifies connectivity
// before handing the pool out. The returned cleanup closes the pool.
func NewDBConnection(logger *zap.SugaredLogger, cfg *DatabaseConfig) (*sql.DB, func(), error) {
	db, err := sql.Open("postgres", cfg.DSN)
	if err != nil {
		return nil, nil, fmt.Errorf("open postgres: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := db.PingContext(ctx); err != nil {
		db.Close()
		return nil, nil, fmt.Errorf("ping postgres: %w", err)
	}

	logger.Info("postgres connection established")

	cleanup := func() {
		if err := db.Close(); err != nil {
			logger.Errorw("close postgres", "error", err)
		}
	}

	return db, cleanup, nil
}

// NewRedisClient connects the rate limiter backend. The client is pinged
// before use so a misconfigured address fails at startup, not on the first
// throttled request.
func NewRedisClient(logger *zap.SugaredLogger, cfg *RedisConfig) (*redis.Client, func(), error) {
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})

	ctx, cancel := context.WithTimeout(context.Background(), connectTimeout)
	defer cancel()
	if err := client.Ping(ctx).Err(); err != nil {
		client.Close()
		return nil, nil, fmt.Errorf("ping redis: %w", err)
	}

	logger.Infow("redis connection established", "addr", cfg.Addr)

	cleanup := func() {
		if err := client.Close(); err != nil {
			logger.Errorw("close redis", "error", err)
		}
	}

	return client, cleanup, nil
}
