package eventbus

import (
	"bytes"
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type contactCreated struct {
	name string
}

type contactDeleted struct {
	name string
}

func bufferedLogger(level logrus.Level) (*logrus.Logger, *bytes.Buffer) {
	buf := &bytes.Buffer{}
	log := logrus.New()
	log.SetOutput(buf)
	log.SetLevel(level)
	return log, buf
}

func TestPublisher_DispatchesBySignature(t *testing.T) {
	bus := NewEventPublisher(nil)
	var created, deleted []string
	bus.Subscribe(func(e *contactCreated) { created = append(created, e.name) })
	bus.Subscribe(func(e *contactDeleted) { deleted = append(deleted, e.name) })

	bus.Publish(&contactCreated{name: "ann"})
	bus.Publish(&contactDeleted{name: "bob"})
	bus.Publish(&contactCreated{name: "cy"})

	assert.Equal(t, []string{"ann", "cy"}, created)
	assert.Equal(t, []string{"bob"}, deleted)
}

func TestPublisher_NoSubscribersIsLogged(t *testing.T) {
	log, buf := bufferedLogger(logrus.DebugLevel)
	bus := NewEventPublisher(log)
	bus.Subscribe(func(e *contactDeleted) { t.Error("should not be called") })

	bus.Publish(&contactCreated{})
	assert.Contains(t, buf.String(), "no matching subscribers")
}

func TestPublisher_PanicIsRecovered(t *testing.T) {
	log, buf := bufferedLogger(logrus.ErrorLevel)
	bus := NewEventPublisher(log)
	called := false
	bus.Subscribe(func(e *contactCreated) { panic("boom") })
	bus.Subscribe(func(e *contactCreated) { called = true })

	require.NotPanics(t, func() { bus.Publish(&contactCreated{name: "ann"}) })
	assert.True(t, called)
	assert.Contains(t, buf.String(), "panicked")
	assert.Contains(t, buf.String(), "boom")
}

func TestPublisher_PublishE(t *testing.T) {
	bus := NewEventPublisher(nil)
	require.ErrorIs(t, bus.PublishE(&contactCreated{}), ErrNoSubscribers)

	failure := errors.New("cache unavailable")
	bus.Subscribe(func(e *contactCreated) error { return nil })
	bus.Subscribe(func(e *contactCreated) error { return failure })
	bus.Subscribe(func(e *contactCreated) int { return 1 })
	bus.Subscribe(func(e *contactCreated) error { panic("bad") })

	err := bus.PublishE(&contactCreated{})
	require.ErrorIs(t, err, failure)
	require.ErrorIs(t, err, ErrInvalidHandlerReturn)
	assert.Contains(t, err.Error(), "panicked")
}

func TestPublisher_UnsubscribeAndClear(t *testing.T) {
	bus := NewEventPublisher(nil)
	calls := 0
	handler := func(e *contactCreated) { calls++ }
	bus.Subscribe(handler)
	bus.Subscribe(func(e *contactDeleted) {})
	require.Equal(t, 2, bus.SubscribersCount())

	bus.Unsubscribe(handler)
	bus.Publish(&contactCreated{})
	assert.Zero(t, calls)
	assert.Equal(t, 1, bus.SubscribersCount())

	bus.Clear()
	assert.Zero(t, bus.SubscribersCount())
}

func TestPublisher_ConcurrentPublish(t *testing.T) {
	bus := NewEventPublisher(nil)
	var mu sync.Mutex
	total := 0
	bus.Subscribe(func(e *contactCreated) {
		mu.Lock()
		total++
		mu.Unlock()
	})

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			bus.Publish(&contactCreated{})
		}()
	}
	wg.Wait()
	assert.Equal(t, 20, total)
}

func TestMatchSignature(t *testing.T) {
	assert.True(t, MatchSignature(func(e *contactCreated) {}, []interface{}{&contactCreated{}}))
	assert.False(t, MatchSignature(func(e *contactCreated) {}, []interface{}{&contactDeleted{}}))
	assert.False(t, MatchSignature(func(e *contactCreated) {}, nil))
	assert.True(t, MatchSignature(func(ctx context.Context) {}, []interface{}{context.Background()}))
	assert.True(t, MatchSignature(func(e *contactCreated) {}, []interface{}{nil}))
	assert.False(t, MatchSignature("not a func", nil))
}
