package database

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"

	"github.com/tgwire/tgwire/core/logger"
)

// RunMigrations applies all pending up migrations from the migrations
// directory next to the working directory.
func RunMigrations(cfg Config) error {
	cfg.Normalize()
	ctx := context.Background()
	dsn := fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		cfg.User, cfg.Password, cfg.Host, cfg.Port, cfg.Name, cfg.SSLMode,
	)

	if err := WaitFor(dsn, 30*time.Second); err != nil {
		logger.Error(ctx, logger.MIG, "db_not_ready",
			slog.String("err", err.Error()))
		return fmt.Errorf("database not ready: %w", err)
	}

	cwd, err := os.Getwd()
	if err != nil {
		return fmt.Errorf("get working directory: %w", err)
	}
	sourceURL := "file://" + filepath.Join(cwd, "migrations")

	m, err := migrate.New(sourceURL, dsn)
	if err != nil {
		logger.Error(ctx, logger.MIG, "init_failed",
			slog.String("err", err.Error()))
		return fmt.Errorf("initialize migrations: %w", err)
	}

	fromVer, _, _ := m.Version()
	start := time.Now()
	upErr := m.Up()
	took := time.Since(start)

	if upErr != nil && upErr != migrate.ErrNoChange {
		logger.Error(ctx, logger.MIG, "apply_failed",
			slog.Int64("duration_ms", logger.RoundMS(took)),
			slog.String("err", upErr.Error()))
		return fmt.Errorf("apply migrations: %w", upErr)
	}

	toVer, _, _ := m.Version()
	logger.Info(ctx, logger.MIG, "migrations_applied",
		slog.Uint64("from_ver", uint64(fromVer)),
		slog.Uint64("to_ver", uint64(toVer)),
		slog.Int64("duration_ms", logger.RoundMS(took)))
	return nil
}
