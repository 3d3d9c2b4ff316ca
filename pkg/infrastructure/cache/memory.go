package cache

import (
	"context"
	"strconv"
	"sync"
	"time"
)

type memItem struct {
	v       []byte
	expires time.Time
}

// MemoryStore is the in-process Store used when redis is disabled
type MemoryStore struct {
	mu    sync.Mutex
	items map[string]memItem
	now   func() time.Time
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{items: map[string]memItem{}, now: time.Now}
}

var _ Store = (*MemoryStore)(nil)

func (s *MemoryStore) Get(ctx context.Context, key string) ([]byte, bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	it, ok := s.lookupLocked(key)
	if !ok {
		return nil, false, nil
	}
	return clone(it.v), true, nil
}

func (s *MemoryStore) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	it := memItem{v: clone(value)}
	if ttl > 0 {
		it.expires = s.now().Add(ttl)
	}
	s.mu.Lock()
	s.items[key] = it
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	delete(s.items, key)
	s.mu.Unlock()
	return nil
}

// Incr increments an integer counter, creating it at 1; the expiry is kept
func (s *MemoryStore) Incr(ctx context.Context, key string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var n int64
	it, ok := s.lookupLocked(key)
	if ok {
		parsed, err := strconv.ParseInt(string(it.v), 10, 64)
		if err != nil {
			return 0, err
		}
		n = parsed
	}
	n++
	it.v = []byte(strconv.FormatInt(n, 10))
	s.items[key] = it
	return n, nil
}

func (s *MemoryStore) lookupLocked(key string) (memItem, bool) {
	it, ok := s.items[key]
	if !ok {
		return memItem{}, false
	}
	if !it.expires.IsZero() && s.now().After(it.expires) {
		delete(s.items, key)
		return memItem{}, false
	}
	return it, true
}

func clone(b []byte) []byte {
	if len(b) == 0 {
		return nil
	}
	out := make([]byte, len(b))
	copy(out, b)
	return out
}
