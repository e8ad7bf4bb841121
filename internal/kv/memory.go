package kv

import (
	"context"
	"sync"
)

// MemoryGateway keeps values in process memory.
type MemoryGateway struct {
	mu     sync.RWMutex
	values map[string][]byte
	ls     listeners
}

func NewMemoryGateway() *MemoryGateway {
	return &MemoryGateway{values: map[string][]byte{}}
}

func (m *MemoryGateway) Get(ctx context.Context, keys ...string) (map[string][]byte, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make(map[string][]byte, len(keys))
	for _, k := range keys {
		if v, ok := m.values[k]; ok {
			out[k] = append([]byte(nil), v...)
		}
	}
	return out, nil
}

func (m *MemoryGateway) Set(ctx context.Context, values map[string][]byte) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	for k, v := range values {
		m.values[k] = append([]byte(nil), v...)
	}
	m.mu.Unlock()
	m.ls.notify(Change{Keys: keysOf(values)})
	return nil
}

func (m *MemoryGateway) OnChange(fn func(Change)) func() {
	return m.ls.add(fn)
}

func (m *MemoryGateway) Close() error { return nil }

func (m *MemoryGateway) Ping(ctx context.Context) error { return ctx.Err() }
