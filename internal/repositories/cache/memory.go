package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"
)

type memoryEntry struct {
	data      []byte
	expiresAt time.Time
}

// Memory is an in-process Cache used with the memory store and in tests.
// Values round-trip through JSON like they do in Redis.
type Memory struct {
	mu     sync.Mutex
	values map[string]memoryEntry
	lists  map[string][][]byte
	now    func() time.Time
}

func NewMemory() *Memory {
	return &Memory{
		values: make(map[string]memoryEntry),
		lists:  make(map[string][][]byte),
		now:    time.Now,
	}
}

func (m *Memory) Get(ctx context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	entry, ok := m.values[key]
	if ok && !entry.expiresAt.IsZero() && m.now().After(entry.expiresAt) {
		delete(m.values, key)
		ok = false
	}
	m.mu.Unlock()

	if !ok {
		return false, nil
	}
	if err := json.Unmarshal(entry.data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal cache value: %w", err)
	}
	return true, nil
}

func (m *Memory) SetWithTTL(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal cache value: %w", err)
	}
	entry := memoryEntry{data: data}
	if ttl > 0 {
		entry.expiresAt = m.now().Add(ttl)
	}

	m.mu.Lock()
	m.values[key] = entry
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(ctx context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.values, k)
		delete(m.lists, k)
	}
	return nil
}

func (m *Memory) Push(ctx context.Context, key string, value interface{}) error {
	data, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal queue item: %w", err)
	}
	m.mu.Lock()
	m.lists[key] = append(m.lists[key], data)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Pop(ctx context.Context, key string, dest interface{}) (bool, error) {
	m.mu.Lock()
	list := m.lists[key]
	if len(list) == 0 {
		m.mu.Unlock()
		return false, nil
	}
	data := list[0]
	m.lists[key] = list[1:]
	m.mu.Unlock()

	if err := json.Unmarshal(data, dest); err != nil {
		return false, fmt.Errorf("failed to unmarshal queue item: %w", err)
	}
	return true, nil
}

// Len reports the queue length for key.
func (m *Memory) Len(key string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.lists[key])
}

func (m *Memory) HealthCheck(ctx context.Context) error { return nil }
