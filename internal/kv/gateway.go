package kv

import (
	"context"
	"sync"
)

// Well-known keys.
const (
	KeySavedArticles = "savedArticles"
	KeyCredential    = "credential"
)

// Change lists the keys touched by one Set call.
type Change struct {
	Keys []string
}

// Has reports whether key is part of the change.
func (c Change) Has(key string) bool {
	for _, k := range c.Keys {
		if k == key {
			return true
		}
	}
	return false
}

// Gateway is an async key-value store with whole-value reads and writes and
// change notifications. It has no partial update or transaction primitive.
type Gateway interface {
	// Get returns the stored values for keys; missing keys are absent from the map.
	Get(ctx context.Context, keys ...string) (map[string][]byte, error)
	// Set writes every entry of values and then notifies listeners.
	Set(ctx context.Context, values map[string][]byte) error
	// OnChange registers fn and returns a function removing it.
	OnChange(fn func(Change)) func()
	Close() error
}

// listeners is the fan-out shared by every backend.
type listeners struct {
	mu   sync.Mutex
	next int
	fns  map[int]func(Change)
}

func (l *listeners) add(fn func(Change)) func() {
	l.mu.Lock()
	defer l.mu.Unlock()
	if l.fns == nil {
		l.fns = map[int]func(Change){}
	}
	id := l.next
	l.next++
	l.fns[id] = fn
	return func() {
		l.mu.Lock()
		delete(l.fns, id)
		l.mu.Unlock()
	}
}

func (l *listeners) notify(c Change) {
	l.mu.Lock()
	fns := make([]func(Change), 0, len(l.fns))
	for _, fn := range l.fns {
		fns = append(fns, fn)
	}
	l.mu.Unlock()
	for _, fn := range fns {
		fn(c)
	}
}

func keysOf(values map[string][]byte) []string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	return keys
}
