package services

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/iota-uz/shepherd/modules/contacts/domain/aggregates/contact"
	"github.com/iota-uz/shepherd/pkg/eventbus"
)

type TagSource interface {
	Tags(ctx context.Context, ownerID uuid.UUID) ([]string, error)
}

type tagEntry struct {
	tags    []string
	fetched time.Time
}

// TagCache memoizes the tag list of each owner for ttl.
type TagCache struct {
	mu      sync.Mutex
	source  TagSource
	ttl     time.Duration
	now     func() time.Time
	entries map[uuid.UUID]tagEntry
}

func NewTagCache(source TagSource, ttl time.Duration) *TagCache {
	return &TagCache{
		source:  source,
		ttl:     ttl,
		now:     time.Now,
		entries: make(map[uuid.UUID]tagEntry),
	}
}

func (c *TagCache) Get(ctx context.Context, ownerID uuid.UUID) ([]string, error) {
	c.mu.Lock()
	if e, ok := c.entries[ownerID]; ok && c.now().Sub(e.fetched) < c.ttl {
		c.mu.Unlock()
		return append([]string(nil), e.tags...), nil
	}
	c.mu.Unlock()

	tags, err := c.source.Tags(ctx, ownerID)
	if err != nil {
		return nil, err
	}
	c.mu.Lock()
	c.entries[ownerID] = tagEntry{tags: tags, fetched: c.now()}
	c.mu.Unlock()
	return append([]string(nil), tags...), nil
}

func (c *TagCache) Invalidate(ownerID uuid.UUID) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, ownerID)
}

// Subscribe drops an owner's cached tags whenever one of their contacts changes.
func (c *TagCache) Subscribe(bus eventbus.EventBus) {
	bus.Subscribe(func(e *contact.CreatedEvent) { c.Invalidate(e.OwnerID) })
	bus.Subscribe(func(e *contact.UpdatedEvent) { c.Invalidate(e.OwnerID) })
	bus.Subscribe(func(e *contact.DeletedEvent) { c.Invalidate(e.OwnerID) })
}
