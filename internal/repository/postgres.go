package repository

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	_ "github.com/lib/pq"
)

type PoolConfig struct {
	MaxOpenConns     int
	MaxIdleConns     int
	ConnMaxLifetimeS int
	ConnMaxIdleTimeS int
}

// NewPostgresDB opens the pool and waits for the database to come up; in
// compose-style deployments the database is often still starting when the
// API boots.
func NewPostgresDB(ctx context.Context, databaseURL string, pool PoolConfig) (*sql.DB, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("NewPostgresDB: open: %w", err)
	}

	db.SetMaxOpenConns(pool.MaxOpenConns)
	db.SetMaxIdleConns(pool.MaxIdleConns)
	db.SetConnMaxLifetime(time.Duration(pool.ConnMaxLifetimeS) * time.Second)
	db.SetConnMaxIdleTime(time.Duration(pool.ConnMaxIdleTimeS) * time.Second)

	for attempt := 1; ; attempt++ {
		err = db.PingContext(ctx)
		if err == nil {
			return db, nil
		}
		if attempt >= 30 {
			break
		}
		slog.Info("waiting for database", "attempt", attempt)
		select {
		case <-time.After(time.Second):
		case <-ctx.Done():
			db.Close()
			return nil, fmt.Errorf("NewPostgresDB: %w", ctx.Err())
		}
	}

	db.Close()
	return nil, fmt.Errorf("NewPostgresDB: gave up after 30 attempts: %w", err)
}
