package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry_OwnerAndTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	r := NewRegistry[string](time.Hour)
	r.now = func() time.Time { return now }

	owner := uuid.New()
	id := r.Put(owner, "review")

	v, err := r.Get(owner, id)
	require.NoError(t, err)
	assert.Equal(t, "review", v)

	_, err = r.Get(uuid.New(), id)
	require.ErrorIs(t, err, ErrSessionNotFound)
	assert.False(t, r.Delete(uuid.New(), id))

	now = now.Add(50 * time.Minute)
	_, err = r.Get(owner, id)
	require.NoError(t, err, "a read refreshes the session")

	now = now.Add(61 * time.Minute)
	_, err = r.Get(owner, id)
	require.ErrorIs(t, err, ErrSessionNotFound)
	assert.Zero(t, r.Len())
}

type countingSource struct {
	calls int
	tags  []string
	err   error
}

func (s *countingSource) Tags(context.Context, uuid.UUID) ([]string, error) {
	s.calls++
	return s.tags, s.err
}

func TestTagCache_GetAndInvalidate(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2026, 1, 1, 9, 0, 0, 0, time.UTC)
	src := &countingSource{tags: []string{"donor"}}
	cache := NewTagCache(src, 5*time.Minute)
	cache.now = func() time.Time { return now }
	owner := uuid.New()

	for i := 0; i < 3; i++ {
		tags, err := cache.Get(ctx, owner)
		require.NoError(t, err)
		assert.Equal(t, []string{"donor"}, tags)
	}
	assert.Equal(t, 1, src.calls)

	tags, _ := cache.Get(ctx, owner)
	tags[0] = "mutated"
	again, _ := cache.Get(ctx, owner)
	assert.Equal(t, "donor", again[0])

	cache.Invalidate(owner)
	_, _ = cache.Get(ctx, owner)
	assert.Equal(t, 2, src.calls)

	now = now.Add(6 * time.Minute)
	_, _ = cache.Get(ctx, owner)
	assert.Equal(t, 3, src.calls)

	src.err = errors.New("db down")
	cache.Invalidate(owner)
	_, err := cache.Get(ctx, owner)
	require.Error(t, err)
}
