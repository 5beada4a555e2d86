package eventbus

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"
)

// Event is anything published on the bus.
type Event interface {
	Name() string
}

// Listener handles one event. Errors are logged, never returned to the publisher.
type Listener func(ctx context.Context, event Event) error

const defaultListenerTimeout = time.Minute

// Bus is an in-process publish/subscribe hub. Listeners run on their own goroutines.
type Bus struct {
	listeners map[string][]Listener
	mu        sync.RWMutex
	inflight  sync.WaitGroup
	timeout   time.Duration
	logger    *zap.Logger
}

func New(logger *zap.Logger) *Bus {
	return &Bus{
		listeners: make(map[string][]Listener),
		timeout:   defaultListenerTimeout,
		logger:    logger,
	}
}

// WithTimeout changes the per-listener deadline.
func (b *Bus) WithTimeout(d time.Duration) *Bus {
	b.timeout = d
	return b
}

func (b *Bus) Subscribe(eventName string, listener Listener) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventName] = append(b.listeners[eventName], listener)
}

// Publish fans the event out to every subscriber and returns immediately.
// Listener contexts are detached from ctx so a finished HTTP request does not cancel them.
func (b *Bus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	listeners := append([]Listener(nil), b.listeners[event.Name()]...)
	b.mu.RUnlock()

	for _, listener := range listeners {
		b.inflight.Add(1)
		go b.dispatch(context.WithoutCancel(ctx), listener, event)
	}
}

func (b *Bus) dispatch(parent context.Context, l Listener, event Event) {
	defer b.inflight.Done()

	ctx, cancel := context.WithTimeout(parent, b.timeout)
	defer cancel()

	defer func() {
		if p := recover(); p != nil {
			b.logger.Error("event listener panicked",
				zap.String("event", event.Name()),
				zap.String("panic", fmt.Sprint(p)),
			)
		}
	}()

	if err := l(ctx, event); err != nil {
		b.logger.Error("event listener failed",
			zap.String("event", event.Name()),
			zap.Error(err),
		)
	}
}

// Wait blocks until every dispatched listener has returned. Used on shutdown and in tests.
func (b *Bus) Wait() {
	b.inflight.Wait()
}
