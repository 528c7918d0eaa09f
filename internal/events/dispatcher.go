package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Dispatcher interface allows event publication/subscription.
type Dispatcher interface {
	Publish(ctx context.Context, event Event) error
	Subscribe(eventType EventType, handler EventHandler)
}

// asyncDispatcher delivers events on a background goroutine so that the
// publishing mutation returns before (or independent of) handler completion.
type asyncDispatcher struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
	queue     chan Event
	logger    *zap.Logger
	closing   chan struct{}
	done      chan struct{}
	closeOnce sync.Once
}

// NewAsyncDispatcher creates a dispatcher with the given queue capacity and
// starts its delivery goroutine.
func NewAsyncDispatcher(logger *zap.Logger, buffer int) *asyncDispatcher {
	if buffer <= 0 {
		buffer = 64
	}
	d := &asyncDispatcher{
		listeners: make(map[EventType][]EventHandler),
		queue:     make(chan Event, buffer),
		logger:    logger,
		closing:   make(chan struct{}),
		done:      make(chan struct{}),
	}
	go d.run()
	return d
}

// Publish enqueues the event and returns immediately. When the queue is
// saturated or the dispatcher is closed the event is dropped with a log
// line; publication never fails the caller.
func (d *asyncDispatcher) Publish(_ context.Context, event Event) error {
	select {
	case <-d.closing:
		d.logger.Warn("dispatcher closed, dropping event", zap.String("type", string(event.Type)))
		return nil
	default:
	}

	select {
	case d.queue <- event:
	default:
		d.logger.Warn("event queue full, dropping event",
			zap.String("type", string(event.Type)),
			zap.String("ticket_id", event.TicketID))
	}
	return nil
}

// Subscribe registers a handler for the given event type.
func (d *asyncDispatcher) Subscribe(eventType EventType, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventType] = append(d.listeners[eventType], handler)
}

// Close stops accepting events, drains the queue and waits for in-flight
// handlers to finish.
func (d *asyncDispatcher) Close() {
	d.closeOnce.Do(func() {
		close(d.closing)
	})
	<-d.done
}

func (d *asyncDispatcher) run() {
	defer close(d.done)
	for {
		select {
		case event := <-d.queue:
			d.deliver(event)
		case <-d.closing:
			// drain whatever was accepted before shutdown
			for {
				select {
				case event := <-d.queue:
					d.deliver(event)
				default:
					return
				}
			}
		}
	}
}

func (d *asyncDispatcher) deliver(event Event) {
	d.mu.RLock()
	handlers := append([]EventHandler{}, d.listeners[event.Type]...)
	d.mu.RUnlock()

	for _, handler := range handlers {
		if err := d.invoke(handler, event); err != nil {
			d.logger.Error("event handler failed",
				zap.String("type", string(event.Type)),
				zap.Error(err))
		}
	}
}

func (d *asyncDispatcher) invoke(handler EventHandler, event Event) (err error) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked", zap.Any("panic", r))
		}
	}()
	return handler(context.Background(), event)
}
