package services

import (
	"errors"
	"sync"
	"time"

	"github.com/google/uuid"
)

var ErrSessionNotFound = errors.New("session not found")

type registryItem[T any] struct {
	owner   uuid.UUID
	value   T
	touched time.Time
}

// Registry keeps per-owner review sessions in memory. Sessions idle for
// longer than ttl are evicted; evicting one never rolls back committed data.
type Registry[T any] struct {
	mu    sync.Mutex
	ttl   time.Duration
	now   func() time.Time
	items map[uuid.UUID]*registryItem[T]
}

func NewRegistry[T any](ttl time.Duration) *Registry[T] {
	return &Registry[T]{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[uuid.UUID]*registryItem[T]),
	}
}

func (r *Registry[T]) Put(owner uuid.UUID, value T) uuid.UUID {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	id := uuid.New()
	r.items[id] = &registryItem[T]{owner: owner, value: value, touched: r.now()}
	return id
}

// Get returns the session if it exists and belongs to owner.
func (r *Registry[T]) Get(owner, id uuid.UUID) (T, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	var zero T
	item, ok := r.items[id]
	if !ok || item.owner != owner {
		return zero, ErrSessionNotFound
	}
	item.touched = r.now()
	return item.value, nil
}

func (r *Registry[T]) Delete(owner, id uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	item, ok := r.items[id]
	if !ok || item.owner != owner {
		return false
	}
	delete(r.items, id)
	return true
}

func (r *Registry[T]) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.sweepLocked()
	return len(r.items)
}

func (r *Registry[T]) sweepLocked() {
	if r.ttl <= 0 {
		return
	}
	cutoff := r.now().Add(-r.ttl)
	for id, item := range r.items {
		if item.touched.Before(cutoff) {
			delete(r.items, id)
		}
	}
}
