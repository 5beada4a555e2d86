package main

import (
	"context"
	"fmt"
	"sync"

	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/routes"
	"github.com/geniusappsio/tramita/pkg/config"
	"github.com/geniusappsio/tramita/pkg/database/postgresql"
	"github.com/geniusappsio/tramita/pkg/eventbus"
	applogger "github.com/geniusappsio/tramita/pkg/logger"
	"github.com/geniusappsio/tramita/pkg/metrics"
)

// commandContext lazily builds the shared dependencies of every subcommand.
type commandContext struct {
	configOnce sync.Once
	config     *config.Config
	logger     *zap.Logger

	pool    *pgxpool.Pool
	redis   *redis.Client
	bus     *eventbus.Bus
	metrics *metrics.Metrics
}

func newCommandContext() *commandContext {
	return &commandContext{}
}

func (c *commandContext) ensureConfig() *config.Config {
	c.configOnce.Do(func() {
		c.config = config.New()
		c.logger = applogger.NewLogger(c.config.Log.Level, c.config.Log.Outputs)
	})
	return c.config
}

func (c *commandContext) log() *zap.Logger {
	c.ensureConfig()
	return c.logger
}

// services connects to PostgreSQL (and Redis when enabled) and wires the service layer.
func (c *commandContext) services(ctx context.Context) (*routes.Services, error) {
	cfg := c.ensureConfig()

	if c.pool == nil {
		pool, err := postgresql.ConnectDB(ctx, cfg.Postgres.DSN)
		if err != nil {
			return nil, fmt.Errorf("failed to connect to postgres: %w", err)
		}
		c.pool = pool
	}

	if cfg.Redis.Enabled && c.redis == nil {
		client := redis.NewClient(&redis.Options{
			Addr:     cfg.Redis.Address,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		if err := client.Ping(ctx).Err(); err != nil {
			// the stage cache is optional; keep serving from the database
			c.logger.Warn("redis unavailable, stage cache disabled", zap.String("address", cfg.Redis.Address), zap.Error(err))
			_ = client.Close()
		} else {
			c.redis = client
		}
	}

	if c.bus == nil {
		c.bus = eventbus.New(c.logger)
	}
	if c.metrics == nil {
		c.metrics = metrics.New()
	}

	return routes.NewServices(c.pool, c.redis, c.bus, c.metrics, c.logger, cfg), nil
}

// close waits for in-flight listeners before releasing connections.
func (c *commandContext) close() {
	if c.bus != nil {
		c.bus.Wait()
	}
	if c.redis != nil {
		_ = c.redis.Close()
	}
	if c.pool != nil {
		c.pool.Close()
	}
	if c.logger != nil {
		_ = c.logger.Sync()
	}
}
