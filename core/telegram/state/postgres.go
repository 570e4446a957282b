package state

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
)

// PostgresStore keeps sessions in the bot_sessions table, one row per
// key/field pair. Expiry is enforced at read time by filtering on
// updated_at; expired rows are invisible immediately and reclaimed by
// Cleanup.
type PostgresStore struct {
	db  *sqlx.DB
	ttl time.Duration
}

// NewPostgresStore wraps an open database handle. A non-positive TTL falls
// back to 24 hours.
func NewPostgresStore(db *sqlx.DB, ttl time.Duration) *PostgresStore {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &PostgresStore{db: db, ttl: ttl}
}

func (s *PostgresStore) ttlSeconds() float64 { return s.ttl.Seconds() }

// GetField returns the value stored under key/field, treating stale rows as
// absent.
func (s *PostgresStore) GetField(ctx context.Context, key, field string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value,
		`SELECT value FROM bot_sessions
		 WHERE pool_key = $1 AND field = $2
		   AND updated_at > now() - ($3 * interval '1 second')`,
		key, field, s.ttlSeconds())
	if errors.Is(err, sql.ErrNoRows) {
		// Distinguish a missing hash from a missing field for parity with
		// the in-process store.
		var n int
		cntErr := s.db.GetContext(ctx, &n,
			`SELECT count(*) FROM bot_sessions
			 WHERE pool_key = $1
			   AND updated_at > now() - ($2 * interval '1 second')`,
			key, s.ttlSeconds())
		if cntErr != nil {
			return "", fmt.Errorf("state: read %s: %w", key, cntErr)
		}
		if n == 0 {
			return "", ErrKeyNotFound
		}
		return "", ErrFieldNotFound
	}
	if err != nil {
		return "", fmt.Errorf("state: read %s.%s: %w", key, field, err)
	}
	return value, nil
}

// PutField upserts the field and touches every row of the key so the whole
// hash shares one expiry clock.
func (s *PostgresStore) PutField(ctx context.Context, key, field, value string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("state: begin write %s: %w", key, err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO bot_sessions (pool_key, field, value, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (pool_key, field)
		 DO UPDATE SET value = EXCLUDED.value, updated_at = now()`,
		key, field, value); err != nil {
		return fmt.Errorf("state: write %s.%s: %w", key, field, err)
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE bot_sessions SET updated_at = now() WHERE pool_key = $1`,
		key); err != nil {
		return fmt.Errorf("state: touch %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("state: commit %s: %w", key, err)
	}
	return nil
}

// RemoveField deletes one field and touches the remaining rows of the key.
func (s *PostgresStore) RemoveField(ctx context.Context, key, field string) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("state: begin remove %s: %w", key, err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx,
		`DELETE FROM bot_sessions
		 WHERE pool_key = $1 AND field = $2
		   AND updated_at > now() - ($3 * interval '1 second')`,
		key, field, s.ttlSeconds())
	if err != nil {
		return fmt.Errorf("state: remove %s.%s: %w", key, field, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("state: remove %s.%s: %w", key, field, err)
	}
	if n == 0 {
		var left int
		if err := tx.GetContext(ctx, &left,
			`SELECT count(*) FROM bot_sessions
			 WHERE pool_key = $1
			   AND updated_at > now() - ($2 * interval '1 second')`,
			key, s.ttlSeconds()); err != nil {
			return fmt.Errorf("state: read %s: %w", key, err)
		}
		if left == 0 {
			return ErrKeyNotFound
		}
		return ErrFieldNotFound
	}
	if _, err := tx.ExecContext(ctx,
		`UPDATE bot_sessions SET updated_at = now() WHERE pool_key = $1`,
		key); err != nil {
		return fmt.Errorf("state: touch %s: %w", key, err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("state: commit %s: %w", key, err)
	}
	return nil
}

// RemoveKey drops every row of the key. Removing an absent key is a no-op.
func (s *PostgresStore) RemoveKey(ctx context.Context, key string) error {
	if _, err := s.db.ExecContext(ctx,
		`DELETE FROM bot_sessions WHERE pool_key = $1`, key); err != nil {
		return fmt.Errorf("state: remove %s: %w", key, err)
	}
	return nil
}

// Cleanup reclaims rows past their TTL and returns how many were deleted.
func (s *PostgresStore) Cleanup(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx,
		`DELETE FROM bot_sessions
		 WHERE updated_at <= now() - ($1 * interval '1 second')`,
		s.ttlSeconds())
	if err != nil {
		return 0, fmt.Errorf("state: cleanup: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("state: cleanup: %w", err)
	}
	return n, nil
}

var _ Store = (*PostgresStore)(nil)
