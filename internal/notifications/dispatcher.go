package notifications

import (
	"context"
	"fmt"
	"sync"
	"time"

	"geobus/pkg/logger"
	"geobus/pkg/model"
)

type DispatcherConfig struct {
	QueueSize  int
	Workers    int
	JobTimeout time.Duration
}

// Dispatcher hands tickets to a Delivery from a fixed pool of workers. Notify
// never blocks: when the queue is full the ticket is dropped with a warning.
type Dispatcher struct {
	delivery   Delivery
	queue      chan model.TicketBundle
	workers    int
	jobTimeout time.Duration
	log        *logger.Logger

	mu      sync.RWMutex
	started bool
	stopped bool
	wg      sync.WaitGroup
}

func NewDispatcher(delivery Delivery, cfg DispatcherConfig, log *logger.Logger) *Dispatcher {
	if cfg.QueueSize <= 0 {
		cfg.QueueSize = 1
	}
	if cfg.Workers <= 0 {
		cfg.Workers = 1
	}
	if cfg.JobTimeout <= 0 {
		cfg.JobTimeout = 30 * time.Second
	}
	return &Dispatcher{
		delivery:   delivery,
		queue:      make(chan model.TicketBundle, cfg.QueueSize),
		workers:    cfg.Workers,
		jobTimeout: cfg.JobTimeout,
		log:        log.With("component", "notifications", "delivery", delivery.Name()),
	}
}

func (d *Dispatcher) Start() {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.started || d.stopped {
		return
	}
	d.started = true

	for i := 0; i < d.workers; i++ {
		d.wg.Add(1)
		go d.work(i)
	}
	d.log.Info("Notification dispatcher started", "workers", d.workers, "queue_size", cap(d.queue))
}

func (d *Dispatcher) Notify(ticket model.TicketBundle) {
	if ticket.Booking == nil {
		return
	}

	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.stopped {
		d.log.Warn("Dispatcher stopped, ticket notification dropped", "ticket_id", ticket.Booking.TicketID)
		return
	}

	select {
	case d.queue <- ticket:
	default:
		d.log.Warn("Notification queue full, ticket notification dropped",
			"ticket_id", ticket.Booking.TicketID,
			"queue_size", cap(d.queue),
		)
	}
}

// Stop closes the queue and waits for queued tickets to drain, or for ctx.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	started := d.started
	d.mu.Unlock()

	if !started {
		return nil
	}

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()

	select {
	case <-done:
		d.log.Info("Notification dispatcher stopped")
		return nil
	case <-ctx.Done():
		return fmt.Errorf("notification dispatcher: %w", ctx.Err())
	}
}

func (d *Dispatcher) work(id int) {
	defer d.wg.Done()
	for ticket := range d.queue {
		d.run(id, ticket)
	}
}

func (d *Dispatcher) run(worker int, ticket model.TicketBundle) {
	ctx, cancel := context.WithTimeout(context.Background(), d.jobTimeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			d.log.Error("Ticket notification panicked",
				"worker", worker,
				"ticket_id", ticket.Booking.TicketID,
				"panic", r,
			)
		}
	}()

	start := time.Now()
	if err := d.delivery.Deliver(ctx, ticket); err != nil {
		d.log.Error("Ticket notification failed",
			"worker", worker,
			"ticket_id", ticket.Booking.TicketID,
			"duration", time.Since(start),
			"error", err,
		)
		return
	}
	d.log.Debug("Ticket notification delivered",
		"worker", worker,
		"ticket_id", ticket.Booking.TicketID,
		"duration", time.Since(start),
	)
}
