package cache

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	_ "modernc.org/sqlite"
)

const sqliteLogPrefix = "cache:sqlite"

var sqliteSchema = []string{
	`CREATE TABLE IF NOT EXISTS http_cache_entries (
		cache_key   TEXT PRIMARY KEY,
		status_code INTEGER NOT NULL,
		header      TEXT NOT NULL DEFAULT '{}',
		body        BLOB NOT NULL,
		stored_at   INTEGER NOT NULL,
		expires_at  INTEGER NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_http_cache_entries_expires_at ON http_cache_entries (expires_at)`,
}

// SQLiteStore keeps entries in a local SQLite file so the cache survives restarts.
type SQLiteStore struct {
	sqlDB *sql.DB
}

// OpenSQLiteStore opens (creating if needed) the database at path.
func OpenSQLiteStore(path string) (*SQLiteStore, error) {
	if strings.TrimSpace(path) == "" {
		return nil, fmt.Errorf("%s - storage path is required", sqliteLogPrefix)
	}
	dsn := filepath.Clean(path) + "?_pragma=journal_mode(WAL)&_pragma=busy_timeout(5000)"
	sqlDB, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("%s - open sqlite db: %w", sqliteLogPrefix, err)
	}
	if err := sqlDB.Ping(); err != nil {
		_ = sqlDB.Close()
		return nil, fmt.Errorf("%s - ping sqlite db: %w", sqliteLogPrefix, err)
	}
	for _, stmt := range sqliteSchema {
		if _, err := sqlDB.Exec(stmt); err != nil {
			_ = sqlDB.Close()
			return nil, fmt.Errorf("%s - create schema: %w", sqliteLogPrefix, err)
		}
	}
	slog.Info(fmt.Sprintf("%s - Opened cache database %s", sqliteLogPrefix, path))
	return &SQLiteStore{sqlDB: sqlDB}, nil
}

// Close releases the underlying connection.
func (s *SQLiteStore) Close() error {
	if s == nil || s.sqlDB == nil {
		return nil
	}
	return s.sqlDB.Close()
}

func (s *SQLiteStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	row := s.sqlDB.QueryRowContext(ctx,
		`SELECT cache_key, status_code, header, body, stored_at, expires_at
		 FROM http_cache_entries WHERE cache_key = ?`, key)

	var (
		e         Entry
		header    string
		storedAt  int64
		expiresAt int64
	)
	if err := row.Scan(&e.Key, &e.StatusCode, &header, &e.Body, &storedAt, &expiresAt); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s - get %s: %w", sqliteLogPrefix, key, err)
	}
	if header != "" {
		var h http.Header
		if err := json.Unmarshal([]byte(header), &h); err != nil {
			return nil, false, fmt.Errorf("%s - decode header of %s: %w", sqliteLogPrefix, key, err)
		}
		e.Header = h
	}
	e.StoredAt = time.UnixMilli(storedAt).UTC()
	e.ExpiresAt = time.UnixMilli(expiresAt).UTC()
	return &e, true, nil
}

func (s *SQLiteStore) Set(ctx context.Context, entry *Entry) error {
	header, err := json.Marshal(entry.Header)
	if err != nil {
		return fmt.Errorf("%s - encode header of %s: %w", sqliteLogPrefix, entry.Key, err)
	}
	body := entry.Body
	if body == nil {
		body = []byte{}
	}
	_, err = s.sqlDB.ExecContext(ctx,
		`INSERT INTO http_cache_entries (cache_key, status_code, header, body, stored_at, expires_at)
		 VALUES (?, ?, ?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET
		   status_code = excluded.status_code,
		   header = excluded.header,
		   body = excluded.body,
		   stored_at = excluded.stored_at,
		   expires_at = excluded.expires_at`,
		entry.Key, entry.StatusCode, string(header), body,
		entry.StoredAt.UnixMilli(), entry.ExpiresAt.UnixMilli())
	if err != nil {
		return fmt.Errorf("%s - put %s: %w", sqliteLogPrefix, entry.Key, err)
	}
	return nil
}

func (s *SQLiteStore) Delete(ctx context.Context, key string) error {
	if _, err := s.sqlDB.ExecContext(ctx, `DELETE FROM http_cache_entries WHERE cache_key = ?`, key); err != nil {
		return fmt.Errorf("%s - delete %s: %w", sqliteLogPrefix, key, err)
	}
	return nil
}

func (s *SQLiteStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	// LIKE would treat _ and % in keys as wildcards.
	res, err := s.sqlDB.ExecContext(ctx,
		`DELETE FROM http_cache_entries WHERE substr(cache_key, 1, ?) = ?`, utf8.RuneCountInString(prefix), prefix)
	if err != nil {
		return 0, fmt.Errorf("%s - delete prefix %s: %w", sqliteLogPrefix, prefix, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s - rows affected: %w", sqliteLogPrefix, err)
	}
	return int(n), nil
}

// PurgeExpired removes entries that expired before now.
func (s *SQLiteStore) PurgeExpired(ctx context.Context, now time.Time) (int, error) {
	res, err := s.sqlDB.ExecContext(ctx, `DELETE FROM http_cache_entries WHERE expires_at <= ?`, now.UnixMilli())
	if err != nil {
		return 0, fmt.Errorf("%s - purge expired: %w", sqliteLogPrefix, err)
	}
	n, _ := res.RowsAffected()
	return int(n), nil
}
