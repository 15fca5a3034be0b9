// Package auctionclock moves listings through their lifecycle by time and by
// admin action, and hands listings whose window has ended to settlement.
package auctionclock

import (
	"bulk-auction/internal/biddingerrors"
	"bulk-auction/internal/directory"
	"bulk-auction/internal/lock"
	model "bulk-auction/internal/models"
	"bulk-auction/utils"
	"context"
	"fmt"
	"time"
)

// Clock owns the lifecycle fields of listings. Every change runs inside the
// listing's lock scope so it cannot interleave with a bid or a settlement.
type Clock struct {
	listings directory.ListingDirectory
	payments directory.PaymentGate
	locker   lock.Locker
	now      func() time.Time
}

// Option configures a Clock
type Option func(*Clock)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(c *Clock) { c.now = now }
}

// New creates a Clock
func New(listings directory.ListingDirectory, payments directory.PaymentGate, locker lock.Locker, opts ...Option) *Clock {
	c := &Clock{
		listings: listings,
		payments: payments,
		locker:   locker,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Schedule sets the bidding window of a draft or scheduled listing.
// The seller must be able to receive payments.
func (c *Clock) Schedule(ctx context.Context, listingID string, opensAt, closesAt time.Time) (model.Listing, error) {
	if !closesAt.After(opensAt) {
		return model.Listing{}, fmt.Errorf("clock: schedule %s: %w", listingID, biddingerrors.ErrInvalidSchedule)
	}

	return c.mutate(ctx, listingID, func(listing *model.Listing) error {
		if listing.Status != model.ListingStatusDraft && listing.Status != model.ListingStatusScheduled {
			return fmt.Errorf("clock: schedule %s from %s: %w", listingID, listing.Status, biddingerrors.ErrInvalidTransition)
		}

		ready, err := c.payments.IsPaymentReady(ctx, listing.OwnerID)
		if err != nil {
			return fmt.Errorf("clock: failed to check payment readiness of %s: %w", listing.OwnerID, err)
		}
		if !ready {
			return fmt.Errorf("clock: schedule %s: seller %s: %w", listingID, listing.OwnerID, biddingerrors.ErrPaymentNotReady)
		}

		listing.Status = model.ListingStatusScheduled
		listing.OpensAt = opensAt.UTC()
		listing.ClosesAt = closesAt.UTC()
		return nil
	})
}

// Sync applies the time-driven transitions that are due
func (c *Clock) Sync(ctx context.Context, listingID string) (model.Listing, error) {
	return c.mutate(ctx, listingID, func(*model.Listing) error { return nil })
}

// Suspend freezes a scheduled or active listing
func (c *Clock) Suspend(ctx context.Context, listingID string) (model.Listing, error) {
	return c.mutate(ctx, listingID, func(listing *model.Listing) error {
		if !listing.Status.CanTransitionTo(model.ListingStatusSuspended) {
			return fmt.Errorf("clock: suspend %s from %s: %w", listingID, listing.Status, biddingerrors.ErrInvalidTransition)
		}
		listing.SuspendedFrom = listing.Status
		listing.Status = model.ListingStatusSuspended
		return nil
	})
}

// Approve lifts a suspension and restores the state the listing was suspended from
func (c *Clock) Approve(ctx context.Context, listingID string) (model.Listing, error) {
	return c.mutate(ctx, listingID, func(listing *model.Listing) error {
		if listing.Status != model.ListingStatusSuspended {
			return fmt.Errorf("clock: approve %s from %s: %w", listingID, listing.Status, biddingerrors.ErrInvalidTransition)
		}
		restored := listing.SuspendedFrom
		if !model.ListingStatusSuspended.CanTransitionTo(restored) {
			restored = model.ListingStatusScheduled
		}
		listing.Status = restored
		listing.SuspendedFrom = ""
		return nil
	})
}

// Advance returns the listing with every due time-driven transition applied.
// A suspended listing does not move.
func Advance(listing model.Listing, now time.Time) model.Listing {
	if listing.Status == model.ListingStatusScheduled && !now.Before(listing.OpensAt) {
		listing.Status = model.ListingStatusActive
	}
	if listing.Status == model.ListingStatusActive && !now.Before(listing.ClosesAt) {
		listing.Status = model.ListingStatusClosing
	}
	return listing
}

// mutate loads the listing under its lock, applies fn and the due transitions,
// and writes the state back when it changed
func (c *Clock) mutate(ctx context.Context, listingID string, fn func(listing *model.Listing) error) (model.Listing, error) {
	release, err := c.locker.Acquire(ctx, listingID)
	if err != nil {
		return model.Listing{}, err
	}
	defer release()

	listing, err := c.listings.GetListing(ctx, listingID)
	if err != nil {
		return model.Listing{}, fmt.Errorf("clock: %w", err)
	}
	before := listing.State()

	if err := fn(&listing); err != nil {
		return model.Listing{}, err
	}
	listing = Advance(listing, c.now())

	if sameState(listing.State(), before) {
		return listing, nil
	}
	if err := c.listings.SetListingState(ctx, listingID, listing.State()); err != nil {
		return model.Listing{}, fmt.Errorf("clock: failed to store state of %s: %w", listingID, err)
	}

	utils.Info("Listing state changed", map[string]any{
		"listingID": listingID,
		"from":      before.Status,
		"to":        listing.Status,
	})
	return listing, nil
}

func sameState(a, b model.ListingState) bool {
	return a.Status == b.Status &&
		a.SuspendedFrom == b.SuspendedFrom &&
		a.OpensAt.Equal(b.OpensAt) &&
		a.ClosesAt.Equal(b.ClosesAt)
}
