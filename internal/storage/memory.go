package storage

import (
	"context"
	"fmt"
	"sync"
)

// Memory is an in-process Store. Nothing survives the process; it backs
// --ephemeral runs and tests.
type Memory struct {
	values   map[string][]byte
	maxBytes int64
	closed   bool
	mu       sync.RWMutex
}

// NewMemory returns an empty store. maxBytes <= 0 disables the quota.
func NewMemory(maxBytes int64) *Memory {
	return &Memory{
		values:   make(map[string][]byte),
		maxBytes: maxBytes,
	}
}

func (m *Memory) Get(ctx context.Context, key string) ([]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, fmt.Errorf("%w: store closed", ErrUnavailable)
	}
	value, exists := m.values[key]
	if !exists {
		return nil, ErrNotFound
	}
	return append([]byte(nil), value...), nil
}

func (m *Memory) Put(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return fmt.Errorf("%w: store closed", ErrUnavailable)
	}
	if m.maxBytes > 0 {
		total := int64(len(value))
		for k, v := range m.values {
			if k != key {
				total += int64(len(v))
			}
		}
		if total > m.maxBytes {
			return fmt.Errorf("%w: %d bytes needed, budget is %d", ErrQuotaExceeded, total, m.maxBytes)
		}
	}
	m.values[key] = append([]byte(nil), value...)
	return nil
}

// Keys returns a copy of the stored keys.
func (m *Memory) Keys() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.values))
	for k := range m.values {
		keys = append(keys, k)
	}
	return keys
}

func (m *Memory) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	return nil
}
