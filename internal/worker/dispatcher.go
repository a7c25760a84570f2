package worker

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/spec-kit/helpdesk/internal/events"
	"github.com/spec-kit/helpdesk/internal/observability"
)

const handleTimeout = 30 * time.Second

// AsyncDispatcher queues events on a bounded channel and publishes them to
// the bus from a fixed pool of workers. Dispatch never blocks; when the
// queue is full the event is dropped and counted.
type AsyncDispatcher struct {
	bus     events.Bus
	logger  *zap.Logger
	metrics *observability.Metrics
	queue   chan events.Event
	workers int

	mu     sync.RWMutex
	closed bool
	wg     sync.WaitGroup
}

// NewAsyncDispatcher sizes the queue and pool; non-positive values fall back to 1.
func NewAsyncDispatcher(bus events.Bus, queueSize, workers int, logger *zap.Logger, metrics *observability.Metrics) *AsyncDispatcher {
	if queueSize <= 0 {
		queueSize = 1
	}
	if workers <= 0 {
		workers = 1
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AsyncDispatcher{
		bus:     bus,
		logger:  logger,
		metrics: metrics,
		queue:   make(chan events.Event, queueSize),
		workers: workers,
	}
}

// Start launches the worker pool.
func (d *AsyncDispatcher) Start() {
	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.run()
	}
}

func (d *AsyncDispatcher) run() {
	defer d.wg.Done()
	for event := range d.queue {
		d.handle(event)
	}
}

func (d *AsyncDispatcher) handle(event events.Event) {
	defer func() {
		if r := recover(); r != nil {
			d.logger.Error("event handler panicked", zap.String("event_id", event.ID), zap.Any("panic", r))
		}
	}()
	// the originating request may be gone by now
	ctx, cancel := context.WithTimeout(context.Background(), handleTimeout)
	defer cancel()
	d.bus.Publish(ctx, event)
}

// Dispatch enqueues events without waiting for delivery.
func (d *AsyncDispatcher) Dispatch(_ context.Context, evs ...events.Event) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	for _, event := range evs {
		if d.closed {
			d.drop(event, "dispatcher stopped")
			continue
		}
		select {
		case d.queue <- event:
			d.metrics.RecordDispatched()
		default:
			d.drop(event, "dispatch queue full")
		}
	}
}

func (d *AsyncDispatcher) drop(event events.Event, reason string) {
	d.metrics.RecordDropped()
	d.logger.Warn("dropping event",
		zap.String("reason", reason),
		zap.String("event_id", event.ID),
		zap.String("event_type", string(event.Type)),
		zap.String("ticket_id", event.TicketID))
}

// Stop refuses new events and waits for queued ones to drain or ctx to expire.
func (d *AsyncDispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if !d.closed {
		d.closed = true
		close(d.queue)
	}
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}
