package service

import (
	"context"
	"errors"
	"time"

	"smart_switch/internal/logger"
	"smart_switch/internal/models"
)

const notifyTimeout = 10 * time.Second

// Notifier delivers one notification to one channel.
type Notifier interface {
	Notify(ctx context.Context, n models.Notification) error
}

// LogNotifier writes notifications to the application log.
type LogNotifier struct {
	log *logger.Logger
}

func NewLogNotifier(log *logger.Logger) *LogNotifier {
	if log == nil {
		log = logger.Nop()
	}
	return &LogNotifier{log: log}
}

func (l *LogNotifier) Notify(_ context.Context, n models.Notification) error {
	l.log.Infow("notification", "kind", n.Kind, "condition", n.Condition, "title", n.Title, "body", n.Body)
	return nil
}

// Dispatcher is a worker pool that hands notifications to every notifier
// off the controller goroutine.
type Dispatcher struct {
	size      int
	jobs      chan models.Notification
	notifiers []Notifier
	log       *logger.Logger
}

func NewDispatcher(size, queue int, log *logger.Logger, notifiers ...Notifier) *Dispatcher {
	if size <= 0 {
		size = 1
	}
	if log == nil {
		log = logger.Nop()
	}
	return &Dispatcher{
		size:      size,
		jobs:      make(chan models.Notification, queue),
		notifiers: notifiers,
		log:       log,
	}
}

// Start launches the workers; they exit when ctx is canceled.
func (d *Dispatcher) Start(ctx context.Context) {
	for i := 0; i < d.size; i++ {
		go d.worker(ctx, i)
	}
}

func (d *Dispatcher) worker(ctx context.Context, id int) {
	d.log.Debugw("notify_worker_started", "worker", id)
	for {
		select {
		case n := <-d.jobs:
			if err := d.deliver(ctx, n); err != nil {
				d.log.Errorw("notify_failed", "worker", id, "title", n.Title, "err", err)
			}
		case <-ctx.Done():
			return
		}
	}
}

func (d *Dispatcher) deliver(ctx context.Context, n models.Notification) error {
	var errs []error
	for _, nt := range d.notifiers {
		nctx, cancel := context.WithTimeout(ctx, notifyTimeout)
		errs = append(errs, nt.Notify(nctx, n))
		cancel()
	}
	return errors.Join(errs...)
}

// Dispatch queues n. It never blocks; when the queue is full n is dropped.
func (d *Dispatcher) Dispatch(n models.Notification) {
	select {
	case d.jobs <- n:
	default:
		d.log.Warnw("notify_queue_full", "title", n.Title)
	}
}
