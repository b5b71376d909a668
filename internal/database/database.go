package database

import (
	"context"
	"fmt"
	"time"

	"catalog-api/internal/config"

	"github.com/jackc/pgx/v5/pgxpool"
)

// New creates a pgx connection pool and verifies connectivity.
func New(ctx context.Context, cfg config.DatabaseConfig) (*pgxpool.Pool, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN())
	if err != nil {
		return nil, fmt.Errorf("failed to parse database config: %w", err)
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create connection pool: %w", err)
	}

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()

	if err := pool.Ping(pingCtx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return pool, nil
}

// Health reports pool statistics for the health endpoint.
func Health(pool *pgxpool.Pool) map[string]any {
	stat := pool.Stat()
	return map[string]any{
		"status":            "up",
		"total_conns":       stat.TotalConns(),
		"idle_conns":        stat.IdleConns(),
		"acquired_conns":    stat.AcquiredConns(),
		"max_conns":         stat.MaxConns(),
		"new_conns_count":   stat.NewConnsCount(),
		"acquire_count":     stat.AcquireCount(),
		"canceled_acquires": stat.CanceledAcquireCount(),
	}
}
