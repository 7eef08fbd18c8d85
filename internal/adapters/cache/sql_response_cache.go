package cache

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
	"trip-console/internal/platform/obs"

	"github.com/jmoiron/sqlx"
)

// SQLResponseCache is a Postgres-backed cache for encoded planner responses.
// Expired rows are ignored on read and overwritten on the next write.
type SQLResponseCache struct {
	DB  *sqlx.DB
	now func() time.Time
}

func NewSQLResponseCache(db *sqlx.DB) *SQLResponseCache {
	return &SQLResponseCache{DB: db, now: time.Now}
}

type responseRow struct {
	Body      []byte       `db:"body"`
	ExpiresAt sql.NullTime `db:"expires_at"`
}

// Fetch one cached response.
func (s *SQLResponseCache) Get(ctx context.Context, key string) (_ []byte, _ bool, err error) {
	defer obs.Time(ctx, "response.cache.sql.Get")(&err)

	if s.DB == nil {
		return nil, false, errors.New("response cache: db is nil")
	}
	if strings.TrimSpace(key) == "" {
		return nil, false, errors.New("get response cache: key must not be empty")
	}

	q := `
	SELECT body, expires_at
    FROM response_cache
    WHERE cache_key = $1;
	`

	var row responseRow
	if err := s.DB.GetContext(ctx, &row, q, key); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("get response cache: query response_cache table: %w", err)
	}

	if row.ExpiresAt.Valid && !row.ExpiresAt.Time.After(s.now()) {
		return nil, false, nil
	}

	return row.Body, true, nil
}

// Store one response, replacing any previous entry for key.
func (s *SQLResponseCache) Put(ctx context.Context, key string, body []byte, ttl time.Duration) error {
	if s.DB == nil {
		return errors.New("response cache: db is nil")
	}
	if strings.TrimSpace(key) == "" {
		return errors.New("insert response cache: key must not be empty")
	}

	var expiresAt sql.NullTime
	if ttl > 0 {
		expiresAt = sql.NullTime{Time: s.now().Add(ttl), Valid: true}
	}

	q := `
	INSERT INTO response_cache (cache_key, body, expires_at)
    VALUES ($1, $2, $3)
	ON CONFLICT (cache_key) DO UPDATE
	SET body = EXCLUDED.body,
		expires_at = EXCLUDED.expires_at;
	`

	if _, err := s.DB.ExecContext(ctx, q, key, body, expiresAt); err != nil {
		return fmt.Errorf("insert response cache key=%q: %w", key, err)
	}

	return nil
}

// Delete expired rows. Returns the number of rows removed.
func (s *SQLResponseCache) Purge(ctx context.Context) (int64, error) {
	if s.DB == nil {
		return 0, errors.New("response cache: db is nil")
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM response_cache WHERE expires_at IS NOT NULL AND expires_at <= $1;`, s.now())
	if err != nil {
		return 0, fmt.Errorf("purge response cache: %w", err)
	}

	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("purge response cache: rows affected: %w", err)
	}
	return n, nil
}
