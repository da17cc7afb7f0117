// Package eventbus is a small in-process publish/subscribe bus, the Go
// port of the original asyncio queue-backed dispatcher (event_bus.py):
// handlers register by event name, emit is non-blocking, and one handler
// panicking or erroring never takes down the dispatch loop or another
// handler.
package eventbus

import (
	"context"
	"fmt"
	"sync"

	"github.com/campusafe/blackboard/internal/logging"
)

// Payload is the free-form data carried by an event.
type Payload map[string]any

// Handler processes one event. A returned error is logged, never propagated.
type Handler func(ctx context.Context, payload Payload) error

type envelope struct {
	name    string
	payload Payload
}

// Bus is a single-dispatcher event bus. The zero value is not usable;
// construct with New.
type Bus struct {
	log *logging.Logger

	mu       sync.RWMutex
	handlers map[string][]Handler

	queue  chan envelope
	done   chan struct{}
	once   sync.Once
	cancel context.CancelFunc
}

// New constructs a Bus with the given queue depth.
func New(queueDepth int) *Bus {
	if queueDepth <= 0 {
		queueDepth = 256
	}
	return &Bus{
		log:      logging.New("event_bus"),
		handlers: make(map[string][]Handler),
		queue:    make(chan envelope, queueDepth),
		done:     make(chan struct{}),
	}
}

// On registers a handler for eventName. Safe to call before or after Start.
func (b *Bus) On(eventName string, h Handler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.handlers[eventName] = append(b.handlers[eventName], h)
}

// Emit enqueues an event for dispatch and never blocks: when the internal
// queue is full, the event is dropped and logged — the bus never applies
// backpressure to producers.
func (b *Bus) Emit(eventName string, payload Payload) {
	select {
	case b.queue <- envelope{name: eventName, payload: payload}:
	default:
		b.log.Warn("event_bus.dropped", map[string]interface{}{"event": eventName})
	}
}

// Start launches the dispatch loop. Call Stop (or cancel ctx) to shut down.
func (b *Bus) Start(ctx context.Context) {
	ctx, cancel := context.WithCancel(ctx)
	b.cancel = cancel
	go b.dispatchLoop(ctx)
	b.log.Event("event_bus.started", nil)
}

// Stop cancels the dispatch loop and waits for it to exit. Idempotent.
func (b *Bus) Stop() {
	b.once.Do(func() {
		if b.cancel != nil {
			b.cancel()
		}
		<-b.done
		b.log.Event("event_bus.stopped", nil)
	})
}

func (b *Bus) dispatchLoop(ctx context.Context) {
	defer close(b.done)
	for {
		select {
		case <-ctx.Done():
			return
		case ev := <-b.queue:
			b.dispatch(ctx, ev)
		}
	}
}

func (b *Bus) dispatch(ctx context.Context, ev envelope) {
	b.mu.RLock()
	handlers := append([]Handler(nil), b.handlers[ev.name]...)
	b.mu.RUnlock()

	for _, h := range handlers {
		b.runHandler(ctx, ev, h)
	}
}

func (b *Bus) runHandler(ctx context.Context, ev envelope, h Handler) {
	defer func() {
		if r := recover(); r != nil {
			b.log.Error("event_bus.handler_panicked", fmt.Errorf("%v", r), map[string]interface{}{"event": ev.name})
		}
	}()
	if err := h(ctx, ev.payload); err != nil {
		b.log.Error("event_bus.handler_failed", err, map[string]interface{}{"event": ev.name})
	}
}
