// Package cache holds the desk's latest-known copies of backend collections.
// Each Snapshot is a single mutable slot, refreshed wholesale after any
// mutation; there is no partial patching, so server-computed fields are never
// reconciled locally.
package cache

import (
	"context"
	"fmt"
	"sync"
	"time"
)

// Loader fetches the full collection from the backend.
type Loader[T any] func(ctx context.Context) ([]T, error)

// Snapshot is the latest-known copy of one backend collection.
// Concurrent refreshes are allowed; the last response to resolve wins.
type Snapshot[T any] struct {
	mu          sync.RWMutex
	items       []T
	version     uint64
	refreshedAt time.Time
	loader      Loader[T]
}

// NewSnapshot creates an empty snapshot backed by loader.
func NewSnapshot[T any](loader Loader[T]) *Snapshot[T] {
	return &Snapshot[T]{loader: loader}
}

// Refresh reloads the collection from the backend. On failure the previous
// snapshot is kept untouched.
func (s *Snapshot[T]) Refresh(ctx context.Context) error {
	if s.loader == nil {
		return fmt.Errorf("cache: snapshot has no loader")
	}
	items, err := s.loader(ctx)
	if err != nil {
		return fmt.Errorf("cache: refresh: %w", err)
	}
	s.Replace(items)
	return nil
}

// Replace overwrites the snapshot with items.
func (s *Snapshot[T]) Replace(items []T) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items = items
	s.version++
	s.refreshedAt = time.Now()
}

// Items returns the current snapshot. The returned slice must not be mutated.
func (s *Snapshot[T]) Items() []T {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.items
}

// Version returns how many times the snapshot has been replaced.
func (s *Snapshot[T]) Version() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.version
}

// RefreshedAt returns when the snapshot was last replaced; zero if never.
func (s *Snapshot[T]) RefreshedAt() time.Time {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.refreshedAt
}
