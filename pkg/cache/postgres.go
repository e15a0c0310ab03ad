package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/kenchiwar/fe-invetory/pkg/db"
)

const postgresLogPrefix = "cache:postgres"

// cacheRepository is the subset of db.Repository used by PostgresStore.
type cacheRepository interface {
	GetCacheEntry(ctx context.Context, key string) (*db.CacheEntry, error)
	PutCacheEntry(ctx context.Context, e *db.CacheEntry) error
	DeleteCacheEntry(ctx context.Context, key string) error
	DeleteCacheEntriesByPrefix(ctx context.Context, prefix string) (int, error)
}

// PostgresStore keeps entries in the http_cache_entries table.
type PostgresStore struct {
	repo cacheRepository
}

// NewPostgresStore wraps repo, typically a *db.Repository.
func NewPostgresStore(repo cacheRepository) *PostgresStore {
	return &PostgresStore{repo: repo}
}

func (s *PostgresStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	row, err := s.repo.GetCacheEntry(ctx, key)
	if err != nil {
		return nil, false, err
	}
	if row == nil {
		return nil, false, nil
	}
	e := &Entry{
		Key:        row.Key,
		StatusCode: row.StatusCode,
		Body:       row.Body,
		StoredAt:   row.StoredAt,
		ExpiresAt:  row.ExpiresAt,
	}
	if len(row.Header) > 0 {
		var h http.Header
		if err := json.Unmarshal(row.Header, &h); err != nil {
			return nil, false, fmt.Errorf("%s - decode header of %s: %w", postgresLogPrefix, key, err)
		}
		e.Header = h
	}
	return e, true, nil
}

func (s *PostgresStore) Set(ctx context.Context, entry *Entry) error {
	header, err := json.Marshal(entry.Header)
	if err != nil {
		return fmt.Errorf("%s - encode header of %s: %w", postgresLogPrefix, entry.Key, err)
	}
	return s.repo.PutCacheEntry(ctx, &db.CacheEntry{
		Key:        entry.Key,
		StatusCode: entry.StatusCode,
		Header:     header,
		Body:       entry.Body,
		StoredAt:   entry.StoredAt,
		ExpiresAt:  entry.ExpiresAt,
	})
}

func (s *PostgresStore) Delete(ctx context.Context, key string) error {
	return s.repo.DeleteCacheEntry(ctx, key)
}

func (s *PostgresStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	return s.repo.DeleteCacheEntriesByPrefix(ctx, prefix)
}
