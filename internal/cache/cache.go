package cache

import (
	"sync"
	"time"
)

// MemCache is a minimal TTL map[string] -> raw page cache.
type MemCache struct {
	mu   sync.RWMutex
	data map[string]memItem
}

// memItem stores a payload and its expiry time.
type memItem struct {
	raw   []byte
	expAt time.Time
}

// NewMemCache constructs an in-memory TTL cache.
func NewMemCache() *MemCache { return &MemCache{data: make(map[string]memItem)} }

// Get retrieves a cached payload if not expired.
func (m *MemCache) Get(key string) ([]byte, bool) {
	m.mu.RLock()
	item, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(item.expAt) {
		m.mu.Lock()
		delete(m.data, key)
		m.mu.Unlock()
		return nil, false
	}
	// return a copy to avoid callers mutating cached bytes
	out := make([]byte, len(item.raw))
	copy(out, item.raw)
	return out, true
}

// Set stores a payload with TTL.
func (m *MemCache) Set(key string, raw []byte, ttl time.Duration) {
	m.mu.Lock()
	defer m.mu.Unlock()
	cp := make([]byte, len(raw))
	copy(cp, raw)
	m.data[key] = memItem{raw: cp, expAt: time.Now().Add(ttl)}
}

// Len returns the number of stored entries, expired or not.
func (m *MemCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.data)
}
