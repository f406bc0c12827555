package events

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// DispatcherConfig sizes the dispatcher
type DispatcherConfig struct {
	Workers        int
	QueueSize      int
	MaxAttempts    int
	PublishTimeout time.Duration
}

func (c DispatcherConfig) withDefaults() DispatcherConfig {
	if c.Workers <= 0 {
		c.Workers = 2
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 100
	}
	if c.MaxAttempts <= 0 {
		c.MaxAttempts = 3
	}
	if c.PublishTimeout <= 0 {
		c.PublishTimeout = 5 * time.Second
	}
	return c
}

type envelope struct {
	event   Event
	attempt int
}

// Dispatcher is a bounded event queue drained by a pool of workers. Emit never
// blocks: events that do not fit in the queue are dropped and logged.
type Dispatcher struct {
	publisher Publisher
	config    DispatcherConfig
	logger    *slog.Logger

	queue chan envelope
	wg    sync.WaitGroup

	mu      sync.RWMutex
	stopped bool
}

// NewDispatcher creates a dispatcher. Call Start to begin publishing.
func NewDispatcher(publisher Publisher, config DispatcherConfig, logger *slog.Logger) *Dispatcher {
	config = config.withDefaults()
	return &Dispatcher{
		publisher: publisher,
		config:    config,
		logger:    logger,
		queue:     make(chan envelope, config.QueueSize),
	}
}

// Start spawns the worker pool
func (d *Dispatcher) Start(ctx context.Context) {
	d.logger.Info("Spawning event dispatcher workers",
		slog.Int("workers", d.config.Workers),
		slog.Int("queue_size", d.config.QueueSize),
	)

	for i := 0; i < d.config.Workers; i++ {
		d.wg.Add(1)
		go d.workerLoop(ctx, i)
	}
}

// Emit queues e for publishing
func (d *Dispatcher) Emit(e Event) {
	if !d.enqueue(envelope{event: e}) {
		d.logger.Warn("Event dropped",
			slog.String("event_id", e.ID),
			slog.String("type", string(e.Type)),
		)
	}
}

// Pending returns the number of queued events
func (d *Dispatcher) Pending() int {
	return len(d.queue)
}

// Stop refuses new events, lets the workers drain the queue and waits for them
func (d *Dispatcher) Stop() {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	d.logger.Info("Stopping event dispatcher", slog.Int("pending", len(d.queue)))
	d.wg.Wait()
	d.logger.Info("Event dispatcher stopped")
}

func (d *Dispatcher) enqueue(env envelope) bool {
	d.mu.RLock()
	defer d.mu.RUnlock()

	if d.stopped {
		return false
	}
	select {
	case d.queue <- env:
		return true
	default:
		return false
	}
}

func (d *Dispatcher) workerLoop(ctx context.Context, workerNum int) {
	defer d.wg.Done()

	workerName := fmt.Sprintf("events-%d", workerNum)
	d.logger.Debug("Event worker started", slog.String("worker_name", workerName))

	for {
		select {
		case <-ctx.Done():
			d.logger.Debug("Event worker stopping - context canceled",
				slog.String("worker_name", workerName),
			)
			return

		case env, ok := <-d.queue:
			if !ok {
				d.logger.Debug("Event worker stopping - queue closed",
					slog.String("worker_name", workerName),
				)
				return
			}
			d.handle(ctx, workerName, env)
		}
	}
}

func (d *Dispatcher) handle(ctx context.Context, workerName string, env envelope) {
	publishCtx, cancel := context.WithTimeout(ctx, d.config.PublishTimeout)
	defer cancel()

	err := d.publisher.Publish(publishCtx, env.event)
	if err == nil {
		d.logger.Debug("Event published",
			slog.String("worker_name", workerName),
			slog.String("event_id", env.event.ID),
			slog.String("type", string(env.event.Type)),
		)
		return
	}

	attempt := env.attempt + 1
	if IsRetryable(err) && attempt < d.config.MaxAttempts {
		d.logger.Warn("Event publish failed, requeueing",
			slog.String("worker_name", workerName),
			slog.String("event_id", env.event.ID),
			slog.Int("attempt", attempt),
			slog.Any("error", err),
		)
		if d.enqueue(envelope{event: env.event, attempt: attempt}) {
			return
		}
	}

	d.logger.Error("Event publish failed",
		slog.String("worker_name", workerName),
		slog.String("event_id", env.event.ID),
		slog.String("type", string(env.event.Type)),
		slog.Int("attempts", attempt),
		slog.Any("error", err),
	)
}
