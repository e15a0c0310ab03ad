package cache

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"

	"github.com/kenchiwar/fe-invetory/pkg/db"
)

const postgresTestPrefix = "cache:postgres_test"

// fakeRepo is an in-memory stand-in for db.Repository.
type fakeRepo struct {
	mu   sync.Mutex
	rows map[string]db.CacheEntry
	err  error
}

func newFakeRepo() *fakeRepo { return &fakeRepo{rows: map[string]db.CacheEntry{}} }

func (f *fakeRepo) GetCacheEntry(_ context.Context, key string) (*db.CacheEntry, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	row, ok := f.rows[key]
	if !ok {
		return nil, nil
	}
	return &row, nil
}

func (f *fakeRepo) PutCacheEntry(_ context.Context, e *db.CacheEntry) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.rows[e.Key] = *e
	return nil
}

func (f *fakeRepo) DeleteCacheEntry(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.rows, key)
	return nil
}

func (f *fakeRepo) DeleteCacheEntriesByPrefix(_ context.Context, prefix string) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for k := range f.rows {
		if strings.HasPrefix(k, prefix) {
			delete(f.rows, k)
			n++
		}
	}
	return n, nil
}

func TestPostgresStore_Contract(t *testing.T) {
	testStoreContract(t, postgresTestPrefix, NewPostgresStore(newFakeRepo()))
}

func TestPostgresStore_HeaderStoredAsJSON(t *testing.T) {
	repo := newFakeRepo()
	store := NewPostgresStore(repo)
	ctx := context.Background()
	_ = store.Set(ctx, &Entry{Key: "k", StatusCode: 200, Header: map[string][]string{"Etag": {`"v1"`}}})

	row := repo.rows["k"]
	if !strings.Contains(string(row.Header), `"Etag"`) {
		t.Errorf("%s - header column = %s", postgresTestPrefix, row.Header)
	}
}

func TestPostgresStore_RepositoryErrors(t *testing.T) {
	repo := newFakeRepo()
	repo.err = errors.New("connection refused")
	store := NewPostgresStore(repo)

	if _, _, err := store.Get(context.Background(), "k"); err == nil {
		t.Errorf("%s - expected Get error", postgresTestPrefix)
	}
	if err := store.Set(context.Background(), &Entry{Key: "k"}); err == nil {
		t.Errorf("%s - expected Set error", postgresTestPrefix)
	}
}

func TestPostgresStore_CorruptHeader(t *testing.T) {
	repo := newFakeRepo()
	repo.rows["k"] = db.CacheEntry{Key: "k", StatusCode: 200, Header: []byte("not json")}
	if _, _, err := NewPostgresStore(repo).Get(context.Background(), "k"); err == nil {
		t.Errorf("%s - expected decode error", postgresTestPrefix)
	}
}
