package notify

import (
	model "bulk-auction/internal/models"
	"bulk-auction/utils"
	"context"
	"errors"
	"sync"
	"time"

	"github.com/sethvargo/go-retry"
)

// ErrQueueFull is returned when the delivery queue cannot take more events
var ErrQueueFull = errors.New("notify: delivery queue full")

// ErrClosed is returned for events dispatched after Close
var ErrClosed = errors.New("notify: dispatcher closed")

// Retrying delivers events in the background through next, retrying failures
// with exponential backoff. A single worker keeps events in dispatch order.
type Retrying struct {
	next       Dispatcher
	maxRetries uint64
	base       time.Duration

	mu     sync.RWMutex
	closed bool
	queue  chan model.Event
	done   chan struct{}
	stop   context.CancelFunc
}

// NewRetrying starts the delivery worker
func NewRetrying(next Dispatcher, maxRetries uint64, base time.Duration, queueSize int) *Retrying {
	ctx, cancel := context.WithCancel(context.Background())
	r := &Retrying{
		next:       next,
		maxRetries: maxRetries,
		base:       base,
		queue:      make(chan model.Event, queueSize),
		done:       make(chan struct{}),
		stop:       cancel,
	}
	go r.work(ctx)
	return r
}

// Dispatch queues the event for delivery
func (r *Retrying) Dispatch(_ context.Context, event model.Event) error {
	r.mu.RLock()
	defer r.mu.RUnlock()

	if r.closed {
		return ErrClosed
	}
	select {
	case r.queue <- event:
		return nil
	default:
		return ErrQueueFull
	}
}

// Close stops accepting events and waits for the queue to drain or ctx to end
func (r *Retrying) Close(ctx context.Context) error {
	r.mu.Lock()
	if !r.closed {
		r.closed = true
		close(r.queue)
	}
	r.mu.Unlock()

	select {
	case <-r.done:
		return nil
	case <-ctx.Done():
		r.stop()
		<-r.done
		return ctx.Err()
	}
}

func (r *Retrying) work(ctx context.Context) {
	defer close(r.done)
	for ev := range r.queue {
		if err := r.deliver(ctx, ev); err != nil {
			utils.Error("Notify: giving up on event", map[string]any{
				"eventID":   ev.EventID,
				"type":      ev.Type,
				"recipient": ev.RecipientID,
				"error":     err.Error(),
			})
		}
	}
}

func (r *Retrying) deliver(ctx context.Context, ev model.Event) error {
	backoff := retry.WithMaxRetries(r.maxRetries, retry.NewExponential(r.base))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		if err := r.next.Dispatch(ctx, ev); err != nil {
			utils.Warn("Notify: delivery failed, retrying", map[string]any{
				"eventID": ev.EventID,
				"error":   err.Error(),
			})
			return retry.RetryableError(err)
		}
		return nil
	})
}
