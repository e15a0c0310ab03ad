package cache

import (
	"context"
	"hash/fnv"
	"strings"
	"sync"
	"time"
)

const memoryShards = 16

// MemoryStore is a sharded in-process Store. Entries live until they are
// deleted or read after expiry.
type MemoryStore struct {
	shards []*memoryShard
	now    func() time.Time
}

type memoryShard struct {
	mu      sync.RWMutex
	entries map[string]*Entry
}

// NewMemoryStore creates an empty MemoryStore.
func NewMemoryStore() *MemoryStore {
	shards := make([]*memoryShard, memoryShards)
	for i := range shards {
		shards[i] = &memoryShard{entries: make(map[string]*Entry)}
	}
	return &MemoryStore{shards: shards, now: time.Now}
}

func (m *MemoryStore) shard(key string) *memoryShard {
	h := fnv.New32a()
	h.Write([]byte(key))
	return m.shards[h.Sum32()%uint32(len(m.shards))]
}

func (m *MemoryStore) Get(_ context.Context, key string) (*Entry, bool, error) {
	s := m.shard(key)
	s.mu.RLock()
	e, ok := s.entries[key]
	s.mu.RUnlock()
	if !ok {
		return nil, false, nil
	}
	if e.Expired(m.now()) {
		s.mu.Lock()
		if cur, ok := s.entries[key]; ok && cur == e {
			delete(s.entries, key)
		}
		s.mu.Unlock()
		return nil, false, nil
	}
	cp := *e
	return &cp, true, nil
}

func (m *MemoryStore) Set(_ context.Context, entry *Entry) error {
	cp := *entry
	s := m.shard(entry.Key)
	s.mu.Lock()
	s.entries[entry.Key] = &cp
	s.mu.Unlock()
	return nil
}

func (m *MemoryStore) Delete(_ context.Context, key string) error {
	s := m.shard(key)
	s.mu.Lock()
	delete(s.entries, key)
	s.mu.Unlock()
	return nil
}

func (m *MemoryStore) DeletePrefix(_ context.Context, prefix string) (int, error) {
	removed := 0
	for _, s := range m.shards {
		s.mu.Lock()
		for k := range s.entries {
			if strings.HasPrefix(k, prefix) {
				delete(s.entries, k)
				removed++
			}
		}
		s.mu.Unlock()
	}
	return removed, nil
}

// Len returns the number of stored entries, expired ones included.
func (m *MemoryStore) Len() int {
	n := 0
	for _, s := range m.shards {
		s.mu.RLock()
		n += len(s.entries)
		s.mu.RUnlock()
	}
	return n
}
