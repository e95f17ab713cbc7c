package kv

import (
	"context"
	"sync"
	"time"

	"eclassbot-backend/internal/components/chrono"
)

type memoryEntry struct {
	value     string
	expiresAt time.Time
}

// Memory is a process-local store for development and tests. Expiry is
// evaluated lazily against the injected clock.
type Memory struct {
	time    chrono.TimeAPI
	mutex   sync.Mutex
	entries map[string]memoryEntry
}

func NewMemory(time chrono.TimeAPI) *Memory {
	return &Memory{
		time:    time,
		entries: make(map[string]memoryEntry),
	}
}

func (m *Memory) live(key string) (memoryEntry, bool) {
	entry, ok := m.entries[key]
	if !ok {
		return memoryEntry{}, false
	}
	if !entry.expiresAt.IsZero() && !m.time.Now().Before(entry.expiresAt) {
		delete(m.entries, key)
		return memoryEntry{}, false
	}
	return entry, true
}

func (m *Memory) put(key, value string, ttl time.Duration) {
	entry := memoryEntry{value: value}
	if ttl > 0 {
		entry.expiresAt = m.time.Now().Add(ttl)
	}
	m.entries[key] = entry
}

func (m *Memory) SetNX(ctx context.Context, key, value string, ttl time.Duration) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	if _, ok := m.live(key); ok {
		return false, nil
	}
	m.put(key, value, ttl)
	return true, nil
}

func (m *Memory) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	m.put(key, value, ttl)
	return nil
}

func (m *Memory) Get(ctx context.Context, key string) (string, bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	entry, ok := m.live(key)
	return entry.value, ok, nil
}

func (m *Memory) Exists(ctx context.Context, key string) (bool, error) {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	_, ok := m.live(key)
	return ok, nil
}

func (m *Memory) Del(ctx context.Context, keys ...string) error {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	for _, k := range keys {
		delete(m.entries, k)
	}
	return nil
}

// Keys lists the live keys, used by tests to inspect dedupe state.
func (m *Memory) Keys() []string {
	m.mutex.Lock()
	defer m.mutex.Unlock()
	var keys []string
	for k := range m.entries {
		if _, ok := m.live(k); ok {
			keys = append(keys, k)
		}
	}
	return keys
}
