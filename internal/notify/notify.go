// Package notify delivers the events produced by bid and settlement transitions.
// Delivery happens after the listing lock is released and never rolls back state.
package notify

import (
	model "bulk-auction/internal/models"
	"bulk-auction/utils"
	"context"
	"errors"
	"sync"
)

// Dispatcher delivers a single event
type Dispatcher interface {
	Dispatch(ctx context.Context, event model.Event) error
}

// DispatchAll delivers events in order. Failures are logged and skipped.
func DispatchAll(ctx context.Context, d Dispatcher, events []model.Event) {
	if d == nil {
		return
	}
	for _, ev := range events {
		if err := d.Dispatch(ctx, ev); err != nil {
			utils.Error("Notify: failed to dispatch event", map[string]any{
				"eventID":   ev.EventID,
				"type":      ev.Type,
				"listingID": ev.ListingID,
				"recipient": ev.RecipientID,
				"error":     err.Error(),
			})
		}
	}
}

// Multi fans an event out to several dispatchers. Every target is tried.
type Multi []Dispatcher

// Dispatch delivers to every target and joins their errors
func (m Multi) Dispatch(ctx context.Context, event model.Event) error {
	var errs []error
	for _, d := range m {
		if err := d.Dispatch(ctx, event); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// LogDispatcher writes events to the structured log
type LogDispatcher struct{}

// Dispatch logs the event
func (LogDispatcher) Dispatch(_ context.Context, event model.Event) error {
	utils.Info("Notification", map[string]any{
		"eventID":   event.EventID,
		"type":      event.Type,
		"listingID": event.ListingID,
		"bidID":     event.BidID,
		"recipient": event.RecipientID,
	})
	return nil
}

// Recorder keeps delivered events in memory
type Recorder struct {
	mu     sync.Mutex
	events []model.Event
}

// Dispatch records the event
func (r *Recorder) Dispatch(_ context.Context, event model.Event) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, event)
	return nil
}

// Events returns a copy of the recorded events
func (r *Recorder) Events() []model.Event {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]model.Event(nil), r.events...)
}

// OfType returns recorded events of one type
func (r *Recorder) OfType(t model.EventType) []model.Event {
	var out []model.Event
	for _, ev := range r.Events() {
		if ev.Type == t {
			out = append(out, ev)
		}
	}
	return out
}
