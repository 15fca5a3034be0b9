package auctionclock

import (
	model "bulk-auction/internal/models"
	"bulk-auction/utils"
	"context"
	"time"
)

// Closer settles a listing whose bidding window has ended
type Closer interface {
	Close(ctx context.Context, listingID string, trigger model.CloseTrigger) (model.SettlementResult, error)
}

// Poller periodically syncs every listing and closes the ones that are due
type Poller struct {
	clock    *Clock
	closer   Closer
	interval time.Duration
}

// NewPoller creates a Poller
func NewPoller(clock *Clock, closer Closer, interval time.Duration) *Poller {
	return &Poller{clock: clock, closer: closer, interval: interval}
}

// Run ticks until ctx is done
func (p *Poller) Run(ctx context.Context) {
	ticker := time.NewTicker(p.interval)
	defer ticker.Stop()

	utils.Info("Clock poller started", map[string]any{"interval": p.interval.String()})
	for {
		select {
		case <-ctx.Done():
			utils.Info("Clock poller stopped", nil)
			return
		case <-ticker.C:
			p.Tick(ctx)
		}
	}
}

// Tick runs one sweep and returns the number of listings it closed.
// A failing listing is logged and picked up again on the next sweep.
func (p *Poller) Tick(ctx context.Context) int {
	listings, err := p.clock.listings.ListListings(ctx)
	if err != nil {
		utils.Error("Clock poller: failed to list listings", map[string]any{"error": err.Error()})
		return 0
	}

	closed := 0
	for _, l := range listings {
		switch l.Status {
		case model.ListingStatusScheduled, model.ListingStatusActive, model.ListingStatusClosing:
		default:
			continue
		}

		synced, err := p.clock.Sync(ctx, l.ListingID)
		if err != nil {
			utils.Warn("Clock poller: sync failed", map[string]any{
				"listingID": l.ListingID,
				"error":     err.Error(),
			})
			continue
		}
		if synced.Status != model.ListingStatusClosing {
			continue
		}

		if _, err := p.closer.Close(ctx, l.ListingID, model.CloseTriggerTimer); err != nil {
			utils.Error("Clock poller: close failed", map[string]any{
				"listingID": l.ListingID,
				"error":     err.Error(),
			})
			continue
		}
		closed++
	}
	return closed
}
