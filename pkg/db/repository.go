package db

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const repoLogPrefix = "db:repository"

// Repository provides access to the http_cache_entries table.
type Repository struct {
	pool *pgxpool.Pool
}

// NewRepository creates a new Repository with the given connection pool.
func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

// GetCacheEntry returns the entry for key, or nil when absent.
func (r *Repository) GetCacheEntry(ctx context.Context, key string) (*CacheEntry, error) {
	var e CacheEntry
	err := r.pool.QueryRow(ctx,
		`SELECT cache_key, status_code, header, body, stored_at, expires_at
		 FROM http_cache_entries
		 WHERE cache_key = $1`, key,
	).Scan(&e.Key, &e.StatusCode, &e.Header, &e.Body, &e.StoredAt, &e.ExpiresAt)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("%s - GetCacheEntry failed: %w", repoLogPrefix, err)
	}
	return &e, nil
}

// PutCacheEntry inserts or replaces the entry for e.Key.
func (r *Repository) PutCacheEntry(ctx context.Context, e *CacheEntry) error {
	slog.Debug(fmt.Sprintf("%s - PutCacheEntry key=%s expires=%s", repoLogPrefix, e.Key, e.ExpiresAt.Format(time.RFC3339)))

	header := e.Header
	if len(header) == 0 {
		header = []byte("{}")
	}
	_, err := r.pool.Exec(ctx,
		`INSERT INTO http_cache_entries (cache_key, status_code, header, body, stored_at, expires_at)
		 VALUES ($1, $2, $3, $4, $5, $6)
		 ON CONFLICT (cache_key) DO UPDATE SET
		   status_code = EXCLUDED.status_code,
		   header = EXCLUDED.header,
		   body = EXCLUDED.body,
		   stored_at = EXCLUDED.stored_at,
		   expires_at = EXCLUDED.expires_at`,
		e.Key, e.StatusCode, header, e.Body, e.StoredAt, e.ExpiresAt)
	if err != nil {
		return fmt.Errorf("%s - PutCacheEntry failed: %w", repoLogPrefix, err)
	}
	return nil
}

// DeleteCacheEntry removes the entry for key.
func (r *Repository) DeleteCacheEntry(ctx context.Context, key string) error {
	if _, err := r.pool.Exec(ctx, `DELETE FROM http_cache_entries WHERE cache_key = $1`, key); err != nil {
		return fmt.Errorf("%s - DeleteCacheEntry failed: %w", repoLogPrefix, err)
	}
	return nil
}

// DeleteCacheEntriesByPrefix removes every entry whose key starts with prefix.
func (r *Repository) DeleteCacheEntriesByPrefix(ctx context.Context, prefix string) (int, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM http_cache_entries WHERE cache_key LIKE $1 ESCAPE '\'`, likePrefix(prefix))
	if err != nil {
		return 0, fmt.Errorf("%s - DeleteCacheEntriesByPrefix failed: %w", repoLogPrefix, err)
	}
	return int(tag.RowsAffected()), nil
}

// PurgeExpired removes entries that expired before now.
func (r *Repository) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	tag, err := r.pool.Exec(ctx, `DELETE FROM http_cache_entries WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, fmt.Errorf("%s - PurgeExpired failed: %w", repoLogPrefix, err)
	}
	n := int(tag.RowsAffected())
	if n > 0 {
		slog.Info(fmt.Sprintf("%s - Purged %d expired cache entries", repoLogPrefix, n))
	}
	return n, nil
}

// CountCacheEntries returns the number of stored rows.
func (r *Repository) CountCacheEntries(ctx context.Context) (int, error) {
	var n int
	if err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM http_cache_entries`).Scan(&n); err != nil {
		return 0, fmt.Errorf("%s - CountCacheEntries failed: %w", repoLogPrefix, err)
	}
	return n, nil
}

// Truncate empties the table and returns how many rows it held.
func (r *Repository) Truncate(ctx context.Context) (int, error) {
	var n int
	err := pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if err := tx.QueryRow(ctx, `SELECT COUNT(*) FROM http_cache_entries`).Scan(&n); err != nil {
			return err
		}
		_, err := tx.Exec(ctx, `TRUNCATE TABLE http_cache_entries`)
		return err
	})
	if err != nil {
		return 0, fmt.Errorf("%s - Truncate failed: %w", repoLogPrefix, err)
	}
	slog.Info(fmt.Sprintf("%s - Truncated %d cache entries", repoLogPrefix, n))
	return n, nil
}

// likePrefix escapes LIKE wildcards in prefix and appends %.
func likePrefix(prefix string) string {
	r := strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)
	return r.Replace(prefix) + "%"
}
