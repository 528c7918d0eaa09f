package events

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.uber.org/zap"
)

func TestAsyncDispatcher_DeliversBeforeClose(t *testing.T) {
	d := NewAsyncDispatcher(zap.NewNop(), 16)

	var mu sync.Mutex
	var got []Event
	d.Subscribe(EventTicketCreated, func(_ context.Context, event Event) error {
		mu.Lock()
		defer mu.Unlock()
		got = append(got, event)
		return nil
	})

	for i := 0; i < 5; i++ {
		require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated, TicketID: "ticket-1"}))
	}
	d.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Len(t, got, 5, "Close drains everything that was accepted")
}

func TestAsyncDispatcher_HandlerErrorDoesNotStopOthers(t *testing.T) {
	d := NewAsyncDispatcher(zap.NewNop(), 4)

	var mu sync.Mutex
	calls := 0
	d.Subscribe(EventTicketAssigned, func(context.Context, Event) error {
		return errors.New("boom")
	})
	d.Subscribe(EventTicketAssigned, func(context.Context, Event) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketAssigned}))
	d.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestAsyncDispatcher_HandlerPanicIsContained(t *testing.T) {
	d := NewAsyncDispatcher(zap.NewNop(), 4)

	var mu sync.Mutex
	calls := 0
	d.Subscribe(EventTicketUpdated, func(context.Context, Event) error {
		panic("handler bug")
	})
	d.Subscribe(EventTicketUpdated, func(context.Context, Event) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketUpdated}))
	d.Close()

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 1, calls)
}

func TestAsyncDispatcher_PublishNeverBlocks(t *testing.T) {
	d := NewAsyncDispatcher(zap.NewNop(), 1)

	release := make(chan struct{})
	d.Subscribe(EventTicketStatusChanged, func(context.Context, Event) error {
		<-release
		return nil
	})

	// saturate the queue while the handler is stuck; every Publish returns
	for i := 0; i < 10; i++ {
		require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketStatusChanged}))
	}
	close(release)
	d.Close()
}

func TestAsyncDispatcher_PublishAfterCloseIsDropped(t *testing.T) {
	d := NewAsyncDispatcher(zap.NewNop(), 4)

	var mu sync.Mutex
	calls := 0
	d.Subscribe(EventTicketCreated, func(context.Context, Event) error {
		mu.Lock()
		defer mu.Unlock()
		calls++
		return nil
	})
	d.Close()

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated}))

	mu.Lock()
	defer mu.Unlock()
	assert.Equal(t, 0, calls)
}

func TestAsyncDispatcher_NoSubscribersIsFine(t *testing.T) {
	d := NewAsyncDispatcher(zap.NewNop(), 4)
	require.NoError(t, d.Publish(context.Background(), Event{Type: EventTicketCreated}))
	d.Close()
}

func TestAsyncDispatcher_CloseIsIdempotent(t *testing.T) {
	d := NewAsyncDispatcher(zap.NewNop(), 4)
	d.Close()
	d.Close()
}
