package database

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"

	"github.com/tgwire/tgwire/core/logger"
)

// Connect opens the database, configures the pool, and verifies
// connectivity.
func Connect(cfg Config) (*sqlx.DB, error) {
	cfg.Normalize()
	dsn := fmt.Sprintf(
		"user=%s password=%s host=%s port=%s dbname=%s sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode,
	)

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	start := time.Now()
	db, err := sqlx.ConnectContext(ctx, "postgres", dsn)
	took := time.Since(start)
	if err != nil {
		logger.Error(ctx, logger.DB, "connect_failed",
			slog.String("endpoint", cfg.Host+":"+cfg.Port),
			slog.String("key", cfg.Name),
			slog.Int64("duration_ms", logger.RoundMS(took)),
			slog.String("err", err.Error()))
		return nil, fmt.Errorf("db connect: %w", err)
	}

	db.SetMaxOpenConns(cfg.MaxConnections)
	db.SetMaxIdleConns(cfg.MaxConnections)

	logger.Info(ctx, logger.DB, "connected",
		slog.String("endpoint", cfg.Host+":"+cfg.Port),
		slog.String("key", cfg.Name),
		slog.Int("pool_open", cfg.MaxConnections),
		slog.Int64("duration_ms", logger.RoundMS(took)))
	return db, nil
}

// WaitFor polls the database until it answers pings or the timeout passes.
func WaitFor(dsn string, timeout time.Duration) error {
	start := time.Now()
	var lastErr error
	for {
		db, err := sql.Open("postgres", dsn)
		if err == nil {
			if err = db.Ping(); err == nil {
				_ = db.Close()
				return nil
			}
			_ = db.Close()
		}
		lastErr = err
		if time.Since(start) > timeout {
			return fmt.Errorf("timeout waiting for database: %w", lastErr)
		}
		time.Sleep(2 * time.Second)
	}
}
