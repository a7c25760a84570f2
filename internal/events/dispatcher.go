package events

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Dispatcher hands events off for delivery. Implementations must not block
// the caller on delivery and never report delivery failures back.
type Dispatcher interface {
	Dispatch(ctx context.Context, events ...Event)
}

// DispatcherFunc adapts a function to Dispatcher.
type DispatcherFunc func(ctx context.Context, events ...Event)

func (f DispatcherFunc) Dispatch(ctx context.Context, events ...Event) { f(ctx, events...) }

// Discard drops every event.
var Discard Dispatcher = DispatcherFunc(func(context.Context, ...Event) {})

// EventHandler handles a published event.
type EventHandler func(context.Context, Event) error

// Bus allows event publication/subscription.
type Bus interface {
	Publish(ctx context.Context, event Event)
	Subscribe(eventType EventType, handler EventHandler)
}

// inMemoryBus is a simple synchronous bus.
type inMemoryBus struct {
	mu        sync.RWMutex
	listeners map[EventType][]EventHandler
	logger    *zap.Logger
}

// NewInMemoryBus creates a bus instance.
func NewInMemoryBus(logger *zap.Logger) Bus {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &inMemoryBus{
		listeners: make(map[EventType][]EventHandler),
		logger:    logger,
	}
}

// Publish synchronously invokes handlers for the given event. A failing
// handler is logged and does not stop the others.
func (b *inMemoryBus) Publish(ctx context.Context, event Event) {
	b.mu.RLock()
	handlers := append([]EventHandler{}, b.listeners[event.Type]...)
	b.mu.RUnlock()

	for _, handler := range handlers {
		if err := handler(ctx, event); err != nil {
			b.logger.Warn("event handler failed",
				zap.String("event_id", event.ID),
				zap.String("event_type", string(event.Type)),
				zap.String("ticket_id", event.TicketID),
				zap.Error(err))
		}
	}
}

// Subscribe registers a handler for the given event type.
func (b *inMemoryBus) Subscribe(eventType EventType, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.listeners[eventType] = append(b.listeners[eventType], handler)
}
