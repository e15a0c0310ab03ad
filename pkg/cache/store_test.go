package cache

import (
	"context"
	"net/http"
	"testing"
	"time"
)

// testStoreContract exercises the behaviour every Store must share.
func testStoreContract(t *testing.T, prefix string, store Store) {
	t.Helper()
	ctx := context.Background()
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)

	if _, ok, err := store.Get(ctx, "my-cache:GET /missing"); err != nil || ok {
		t.Fatalf("%s - Get missing ok=%v err=%v", prefix, ok, err)
	}

	entry := &Entry{
		Key:        "my-cache:GET /Brand?skip=0&take=10",
		StatusCode: http.StatusOK,
		Header:     http.Header{"Content-Type": {"application/json"}},
		Body:       []byte(`{"data":[{"id":1}]}`),
		StoredAt:   now,
		ExpiresAt:  now.Add(time.Hour),
	}
	if err := store.Set(ctx, entry); err != nil {
		t.Fatalf("%s - Set: %v", prefix, err)
	}
	got, ok, err := store.Get(ctx, entry.Key)
	if err != nil || !ok {
		t.Fatalf("%s - Get ok=%v err=%v", prefix, ok, err)
	}
	if got.StatusCode != http.StatusOK || string(got.Body) != string(entry.Body) {
		t.Errorf("%s - Get = %+v", prefix, got)
	}
	if got.Header.Get("Content-Type") != "application/json" {
		t.Errorf("%s - header not preserved: %v", prefix, got.Header)
	}
	if !got.ExpiresAt.Equal(entry.ExpiresAt) {
		t.Errorf("%s - ExpiresAt = %v, want %v", prefix, got.ExpiresAt, entry.ExpiresAt)
	}

	for _, key := range []string{"my-cache:GET /Brand/1", "my-cache:GET /CurrentStock", "my_cache:GET /Brand"} {
		if err := store.Set(ctx, &Entry{Key: key, StatusCode: http.StatusOK, Body: []byte("{}"), StoredAt: now, ExpiresAt: now.Add(time.Hour)}); err != nil {
			t.Fatalf("%s - Set %s: %v", prefix, key, err)
		}
	}

	n, err := store.DeletePrefix(ctx, "my-cache:GET /Brand")
	if err != nil {
		t.Fatalf("%s - DeletePrefix: %v", prefix, err)
	}
	if n != 2 {
		t.Errorf("%s - DeletePrefix removed %d, want 2", prefix, n)
	}
	if _, ok, _ := store.Get(ctx, "my_cache:GET /Brand"); !ok {
		t.Errorf("%s - key outside prefix must survive", prefix)
	}

	if err := store.Delete(ctx, "my-cache:GET /CurrentStock"); err != nil {
		t.Fatalf("%s - Delete: %v", prefix, err)
	}
	if _, ok, _ := store.Get(ctx, "my-cache:GET /CurrentStock"); ok {
		t.Errorf("%s - entry still present after Delete", prefix)
	}
	if err := store.Delete(ctx, "my-cache:GET /never-stored"); err != nil {
		t.Errorf("%s - Delete of missing key: %v", prefix, err)
	}
}
