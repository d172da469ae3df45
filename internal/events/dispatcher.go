package events

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"github.com/spec-kit/staff-account-service/internal/domain"
)

// Bus publishes the events drained from aggregates. A failed publish aborts
// the unit of work that produced the events.
type Bus interface {
	PublishAll(ctx context.Context, events []domain.Event) error
}

// EventHandler handles a published event.
type EventHandler func(context.Context, domain.Event) error

// Dispatcher is a Bus that also delivers events to in-process subscribers.
type Dispatcher interface {
	Bus
	Subscribe(eventName string, handler EventHandler)
}

// inMemoryDispatcher is a simple synchronous dispatcher.
type inMemoryDispatcher struct {
	mu        sync.RWMutex
	listeners map[string][]EventHandler
}

// NewInMemoryDispatcher creates a dispatcher instance.
func NewInMemoryDispatcher() Dispatcher {
	return &inMemoryDispatcher{
		listeners: make(map[string][]EventHandler),
	}
}

// PublishAll synchronously invokes the handlers of every event in order.
// All handlers run; their errors are joined.
func (d *inMemoryDispatcher) PublishAll(ctx context.Context, events []domain.Event) error {
	var errs []error
	for _, event := range events {
		d.mu.RLock()
		handlers := append([]EventHandler{}, d.listeners[event.EventName()]...)
		d.mu.RUnlock()

		for _, handler := range handlers {
			if err := handler(ctx, event); err != nil {
				errs = append(errs, fmt.Errorf("handle %s: %w", event.EventName(), err))
			}
		}
	}
	return errors.Join(errs...)
}

// Subscribe registers a handler for the given event name.
func (d *inMemoryDispatcher) Subscribe(eventName string, handler EventHandler) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listeners[eventName] = append(d.listeners[eventName], handler)
}

// Fanout publishes to every bus in order and stops at the first failure.
type Fanout []Bus

// NewBus publishes to the transports first and to the in-process dispatcher
// last, so a failing transport aborts the unit of work before any subscriber
// has reacted to events that will be rolled back.
func NewBus(dispatcher Dispatcher, transports ...Bus) Fanout {
	bus := make(Fanout, 0, len(transports)+1)
	bus = append(bus, transports...)
	if dispatcher != nil {
		bus = append(bus, dispatcher)
	}
	return bus
}

func (f Fanout) PublishAll(ctx context.Context, events []domain.Event) error {
	if len(events) == 0 {
		return nil
	}
	for _, bus := range f {
		if bus == nil {
			continue
		}
		if err := bus.PublishAll(ctx, events); err != nil {
			return err
		}
	}
	return nil
}
