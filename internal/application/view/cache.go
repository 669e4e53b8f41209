// Package view holds the per-screen state a client keeps between fetches:
// an ordered entity cache and a loading/loaded/failed indicator.
package view

import (
	"context"
	"sync"
)

// Entity is anything with a stable id.
type Entity interface {
	GetID() string
}

// Cache is an insertion-ordered, id-keyed list owned by a single screen.
// It is overwritten wholesale on every fetch and patched locally after
// successful mutations. Safe for concurrent use.
type Cache[T Entity] struct {
	mu    sync.RWMutex
	items []T
}

// NewCache returns an empty cache.
func NewCache[T Entity]() *Cache[T] {
	return &Cache[T]{}
}

// Reset replaces the contents with items.
func (c *Cache[T]) Reset(items []T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.items = append([]T(nil), items...)
}

// Append adds item at the end. An existing entry with the same id is
// replaced in place instead.
func (c *Cache[T]) Append(item T) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if i := c.indexOf(item.GetID()); i >= 0 {
		c.items[i] = item
		return
	}
	c.items = append(c.items, item)
}

// Replace swaps the entry with item's id. Returns false if absent.
func (c *Cache[T]) Replace(item T) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(item.GetID())
	if i < 0 {
		return false
	}
	c.items[i] = item
	return true
}

// Remove drops the entry with id. Returns false if absent.
func (c *Cache[T]) Remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	i := c.indexOf(id)
	if i < 0 {
		return false
	}
	c.items = append(c.items[:i], c.items[i+1:]...)
	return true
}

// Get returns the entry with id.
func (c *Cache[T]) Get(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if i := c.indexOf(id); i >= 0 {
		return c.items[i], true
	}
	var zero T
	return zero, false
}

// Items returns a snapshot in order.
func (c *Cache[T]) Items() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]T(nil), c.items...)
}

// Len returns the number of entries.
func (c *Cache[T]) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}

func (c *Cache[T]) indexOf(id string) int {
	for i, item := range c.items {
		if item.GetID() == id {
			return i
		}
	}
	return -1
}

// ══════════════════════════════════════════════════════════════════════════════
// LOAD STATE
// ══════════════════════════════════════════════════════════════════════════════

// Status is the tri-state of a screen's data.
type Status int

const (
	StatusLoading Status = iota
	StatusLoaded
	StatusFailed
)

// String returns the status name.
func (s Status) String() string {
	switch s {
	case StatusLoading:
		return "loading"
	case StatusLoaded:
		return "loaded"
	case StatusFailed:
		return "failed"
	default:
		return "unknown"
	}
}

// State pairs a cache with its load status and last error.
type State[T Entity] struct {
	Cache *Cache[T]

	mu     sync.RWMutex
	status Status
	err    error
}

// NewState returns a state in StatusLoading with an empty cache.
func NewState[T Entity]() *State[T] {
	return &State[T]{Cache: NewCache[T]()}
}

// Load runs fetch and stores its result. On failure the cache is left as it
// was and the error is returned.
func (s *State[T]) Load(ctx context.Context, fetch func(context.Context) ([]T, error)) error {
	s.set(StatusLoading, nil)

	items, err := fetch(ctx)
	if err != nil {
		s.set(StatusFailed, err)
		return err
	}

	s.Cache.Reset(items)
	s.set(StatusLoaded, nil)
	return nil
}

// Status returns the current status and the error of a failed load.
func (s *State[T]) Status() (Status, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.status, s.err
}

func (s *State[T]) set(status Status, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	s.err = err
}
