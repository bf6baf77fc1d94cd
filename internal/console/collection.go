package console

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/admin-console/admin-console/internal/telemetry"
)

// collection is the in-memory cache of one entity type. Readers get copies.
// Loading reports true until the first fetch settles and while any fetch is in flight.
// Concurrent fetches are not cancelled; the last one to complete wins.
type collection[T any] struct {
	entity    string
	fetch     func(ctx context.Context) ([]T, error)
	idOf      func(T) string
	createdAt func(T) time.Time

	mu       sync.RWMutex
	items    []T
	inflight int
	settled  bool
}

func newCollection[T any](entity string, fetch func(context.Context) ([]T, error), idOf func(T) string, createdAt func(T) time.Time) *collection[T] {
	return &collection[T]{
		entity:    entity,
		fetch:     fetch,
		idOf:      idOf,
		createdAt: createdAt,
		items:     []T{},
	}
}

// List returns a copy of the cache, newest first
func (c *collection[T]) List() []T {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make([]T, len(c.items))
	copy(out, c.items)
	return out
}

// Loading reports whether the collection has not loaded yet or is refetching
func (c *collection[T]) Loading() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return !c.settled || c.inflight > 0
}

// Refetch re-queries the store and replaces the cache on success.
// On failure the cache is left as it was and the error is logged and returned.
func (c *collection[T]) Refetch(ctx context.Context) error {
	c.mu.Lock()
	c.inflight++
	c.mu.Unlock()

	items, err := c.fetch(ctx)

	c.mu.Lock()
	defer c.mu.Unlock()
	c.inflight--
	c.settled = true
	if err != nil {
		telemetry.RefetchTotal.WithLabelValues(c.entity, "error").Inc()
		slog.Error("refetch failed, keeping cached records", "entity", c.entity, "cached", len(c.items), "error", err)
		return err
	}

	// Store order is kept for equal timestamps.
	sort.SliceStable(items, func(i, j int) bool {
		return c.createdAt(items[i]).After(c.createdAt(items[j]))
	})
	if items == nil {
		items = []T{}
	}
	c.items = items
	telemetry.RefetchTotal.WithLabelValues(c.entity, "success").Inc()
	return nil
}

// Find returns the cached record with id
func (c *collection[T]) Find(id string) (T, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	for _, item := range c.items {
		if c.idOf(item) == id {
			return item, true
		}
	}
	var zero T
	return zero, false
}

// patch applies fn to the cached record with id and returns the patched copy
func (c *collection[T]) patch(id string, fn func(*T)) (T, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.idOf(c.items[i]) == id {
			fn(&c.items[i])
			return c.items[i], true
		}
	}
	var zero T
	return zero, false
}

// remove drops the cached record with id, reporting whether it was present
func (c *collection[T]) remove(id string) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	for i := range c.items {
		if c.idOf(c.items[i]) == id {
			c.items = append(c.items[:i:i], c.items[i+1:]...)
			return true
		}
	}
	return false
}
