package cache

import (
	"context"
	"errors"
	"fmt"

	"github.com/jmoiron/sqlx"
)

// Initialize the Postgres schema used by SQLResponseCache.
func InitSchema(ctx context.Context, db *sqlx.DB) error {
	if db == nil {
		return errors.New("init schema: DB is nil")
	}

	tx, err := db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("init schema: begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	createResponseCacheQuery := `
	CREATE TABLE IF NOT EXISTS response_cache (
        cache_key TEXT PRIMARY KEY,
        body BYTEA NOT NULL,
        expires_at TIMESTAMPTZ
    );
	`

	createIndexQuery := `
	CREATE INDEX IF NOT EXISTS idx_response_cache_expires_at
    ON response_cache(expires_at);
	`

	statements := []string{
		createResponseCacheQuery,
		createIndexQuery,
	}

	for i, stmt := range statements {
		if _, err := tx.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init schema: exec statement #%d: %w", i+1, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("init schema: commit tx: %w", err)
	}

	return nil
}
