package events

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestDispatcher_FansOutToSubscribers(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	var mu sync.Mutex
	var received []Event
	var wg sync.WaitGroup
	wg.Add(2)

	handler := func(_ context.Context, event Event) error {
		mu.Lock()
		received = append(received, event)
		mu.Unlock()
		wg.Done()
		return nil
	}
	d.Subscribe(EventIncidentCreated, handler)
	d.Subscribe(EventIncidentCreated, handler)
	d.Subscribe(EventIncidentStatusChanged, handler)

	d.Publish(context.Background(), Event{ID: "e1", Type: EventIncidentCreated})

	done := make(chan struct{})
	go func() { wg.Wait(); close(done) }()
	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("handlers did not run")
	}

	mu.Lock()
	defer mu.Unlock()
	require.Len(t, received, 2)
	assert.Equal(t, "e1", received[0].ID)
}

func TestDispatcher_HandlerFailuresIsolated(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	got := make(chan Event, 1)
	d.Subscribe(EventIncidentCreated, func(context.Context, Event) error {
		panic("boom")
	})
	d.Subscribe(EventIncidentCreated, func(context.Context, Event) error {
		return errors.New("handler failed")
	})
	d.Subscribe(EventIncidentCreated, func(_ context.Context, event Event) error {
		got <- event
		return nil
	})

	d.Publish(context.Background(), Event{ID: "e2", Type: EventIncidentCreated})

	select {
	case event := <-got:
		assert.Equal(t, "e2", event.ID)
	case <-time.After(2 * time.Second):
		t.Fatal("healthy handler did not run")
	}
}

func TestDispatcher_SurvivesCancelledContext(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())

	got := make(chan error, 1)
	d.Subscribe(EventIncidentCreated, func(ctx context.Context, _ Event) error {
		got <- ctx.Err()
		return nil
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	d.Publish(ctx, Event{ID: "e3", Type: EventIncidentCreated})

	select {
	case err := <-got:
		// Handlers run detached from the request context.
		assert.NoError(t, err)
	case <-time.After(2 * time.Second):
		t.Fatal("handler did not run")
	}
}
