package store

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"

	"secretline/internal/domain"
)

var errClosed = errors.New("store closed")

// MemoryKV is an in-process KeyValueStore. Nothing survives Close.
type MemoryKV struct {
	mu     sync.RWMutex
	data   map[string][]byte
	closed bool
}

var _ domain.KeyValueStore = (*MemoryKV)(nil)

func NewMemoryKV() *MemoryKV { return &MemoryKV{data: make(map[string][]byte)} }

func (m *MemoryKV) Get(ctx context.Context, key string) ([]byte, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, domain.NewStorageError("get", key, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, false, domain.NewStorageError("get", key, errClosed)
	}
	v, ok := m.data[key]
	if !ok {
		return nil, false, nil
	}
	return append([]byte(nil), v...), true, nil
}

func (m *MemoryKV) Set(ctx context.Context, key string, value []byte) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStorageError("set", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.NewStorageError("set", key, errClosed)
	}
	m.data[key] = append([]byte(nil), value...)
	return nil
}

func (m *MemoryKV) Delete(ctx context.Context, key string) error {
	if err := ctx.Err(); err != nil {
		return domain.NewStorageError("delete", key, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return domain.NewStorageError("delete", key, errClosed)
	}
	delete(m.data, key)
	return nil
}

func (m *MemoryKV) Keys(ctx context.Context, prefix string) ([]string, error) {
	if err := ctx.Err(); err != nil {
		return nil, domain.NewStorageError("keys", prefix, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.closed {
		return nil, domain.NewStorageError("keys", prefix, errClosed)
	}
	return matchingKeys(m.data, prefix), nil
}

func (m *MemoryKV) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.closed = true
	m.data = nil
	return nil
}

func matchingKeys(data map[string][]byte, prefix string) []string {
	out := make([]string, 0, len(data))
	for k := range data {
		if strings.HasPrefix(k, prefix) {
			out = append(out, k)
		}
	}
	sort.Strings(out)
	return out
}
