package cache

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	comms "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

const kvLogPrefix = "cache:kv"

// DefaultKVBucket is the JetStream bucket used when none is configured.
const DefaultKVBucket = "inventory_http_cache"

// KVStoreOpts configures NewKVStore.
type KVStoreOpts struct {
	Bucket string
	// MaxAge bounds how long the bucket keeps any value. It must be at least
	// the longest TTL the layer will assign; zero keeps values until deleted.
	MaxAge time.Duration
}

// KVStore keeps entries in a NATS JetStream key-value bucket so several
// console processes can share one cache.
type KVStore struct {
	kv jetstream.KeyValue
}

// NewKVStore creates or updates the bucket and returns a store over it.
func NewKVStore(ctx context.Context, nc *comms.Conn, opts KVStoreOpts) (*KVStore, error) {
	bucket := opts.Bucket
	if bucket == "" {
		bucket = DefaultKVBucket
	}
	js, err := jetstream.New(nc)
	if err != nil {
		return nil, fmt.Errorf("%s - failed to create JetStream context: %w", kvLogPrefix, err)
	}
	kv, err := js.CreateOrUpdateKeyValue(ctx, jetstream.KeyValueConfig{
		Bucket:      bucket,
		Description: "HTTP response cache",
		TTL:         opts.MaxAge,
		History:     1,
	})
	if err != nil {
		return nil, fmt.Errorf("%s - failed to open bucket %s: %w", kvLogPrefix, bucket, err)
	}
	slog.Info(fmt.Sprintf("%s - Using JetStream bucket %s", kvLogPrefix, bucket))
	return &KVStore{kv: kv}, nil
}

// encodeKey maps an arbitrary cache key onto the KV key alphabet.
func encodeKey(key string) string {
	return base64.RawURLEncoding.EncodeToString([]byte(key))
}

func decodeKey(encoded string) (string, error) {
	b, err := base64.RawURLEncoding.DecodeString(encoded)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (s *KVStore) Get(ctx context.Context, key string) (*Entry, bool, error) {
	kve, err := s.kv.Get(ctx, encodeKey(key))
	if err != nil {
		if errors.Is(err, jetstream.ErrKeyNotFound) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("%s - get %s: %w", kvLogPrefix, key, err)
	}
	var e Entry
	if err := json.Unmarshal(kve.Value(), &e); err != nil {
		return nil, false, fmt.Errorf("%s - decode %s: %w", kvLogPrefix, key, err)
	}
	return &e, true, nil
}

func (s *KVStore) Set(ctx context.Context, entry *Entry) error {
	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("%s - encode %s: %w", kvLogPrefix, entry.Key, err)
	}
	if _, err := s.kv.Put(ctx, encodeKey(entry.Key), data); err != nil {
		return fmt.Errorf("%s - put %s: %w", kvLogPrefix, entry.Key, err)
	}
	return nil
}

func (s *KVStore) Delete(ctx context.Context, key string) error {
	if err := s.kv.Delete(ctx, encodeKey(key)); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
		return fmt.Errorf("%s - delete %s: %w", kvLogPrefix, key, err)
	}
	return nil
}

func (s *KVStore) DeletePrefix(ctx context.Context, prefix string) (int, error) {
	keys, err := s.kv.Keys(ctx)
	if err != nil {
		if errors.Is(err, jetstream.ErrNoKeysFound) {
			return 0, nil
		}
		return 0, fmt.Errorf("%s - list keys: %w", kvLogPrefix, err)
	}
	removed := 0
	for _, encoded := range keys {
		key, err := decodeKey(encoded)
		if err != nil || !strings.HasPrefix(key, prefix) {
			continue
		}
		if err := s.kv.Delete(ctx, encoded); err != nil && !errors.Is(err, jetstream.ErrKeyNotFound) {
			return removed, fmt.Errorf("%s - delete %s: %w", kvLogPrefix, key, err)
		}
		removed++
	}
	return removed, nil
}
