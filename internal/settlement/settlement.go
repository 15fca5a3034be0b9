// Package settlement closes listings: it picks the winner, finalizes every bid
// and records the outcome exactly once per listing.
package settlement

import (
	"bulk-auction/internal/biddingerrors"
	"bulk-auction/internal/directory"
	"bulk-auction/internal/ledger"
	"bulk-auction/internal/lock"
	model "bulk-auction/internal/models"
	"bulk-auction/internal/notify"
	"bulk-auction/internal/repository"
	"bulk-auction/internal/validator"
	"bulk-auction/utils"
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Service settles listings
type Service struct {
	repo       repository.AuctionDB
	listings   directory.ListingDirectory
	payments   directory.PaymentGate
	locker     lock.Locker
	dispatcher notify.Dispatcher
	now        func() time.Time
}

// Option configures a Service
type Option func(*Service)

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// New creates a settlement Service
func New(repo repository.AuctionDB, listings directory.ListingDirectory, payments directory.PaymentGate, locker lock.Locker, dispatcher notify.Dispatcher, opts ...Option) *Service {
	s := &Service{
		repo:       repo,
		listings:   listings,
		payments:   payments,
		locker:     locker,
		dispatcher: dispatcher,
		now:        func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Close settles the listing. Closing a closed listing returns the stored
// result and sends nothing.
func (s *Service) Close(ctx context.Context, listingID string, trigger model.CloseTrigger) (model.SettlementResult, error) {
	if !trigger.IsValid() {
		return model.SettlementResult{}, fmt.Errorf("settlement: trigger %q: %w", trigger, biddingerrors.ErrInvalidTrigger)
	}

	result, events, err := s.settle(ctx, listingID, trigger)
	if err != nil {
		return model.SettlementResult{}, err
	}

	notify.DispatchAll(ctx, s.dispatcher, events)
	return result, nil
}

// Get returns the recorded settlement of a listing
func (s *Service) Get(ctx context.Context, listingID string) (model.SettlementResult, error) {
	result, err := s.repo.GetSettlement(ctx, listingID)
	if err != nil {
		return model.SettlementResult{}, fmt.Errorf("settlement: %w", err)
	}
	return result, nil
}

// MarkPaid records the payment of a won bid
func (s *Service) MarkPaid(ctx context.Context, bidID string) (model.Bid, error) {
	stored, err := s.repo.GetBid(ctx, bidID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("settlement: %w", err)
	}

	release, err := s.locker.Acquire(ctx, stored.ListingID)
	if err != nil {
		return model.Bid{}, err
	}
	defer release()

	bid, err := s.repo.GetBid(ctx, bidID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("settlement: %w", err)
	}
	if bid.Status != model.BidStatusWon {
		return model.Bid{}, fmt.Errorf("settlement: bid %s is %s: %w", bidID, bid.Status, biddingerrors.ErrBidNotWon)
	}

	now := s.now()
	bid.Status = model.BidStatusPaid
	bid.UpdatedAt = now
	if err := s.repo.SaveBids(ctx, bid); err != nil {
		return model.Bid{}, fmt.Errorf("settlement: failed to save bid %s: %w", bidID, err)
	}
	if err := s.repo.AppendBidEvents(ctx, historyEntry(bid, model.BidEventPaid, now)); err != nil {
		return model.Bid{}, fmt.Errorf("settlement: failed to append history of %s: %w", bidID, err)
	}

	utils.Info("Bid paid", map[string]any{"bidID": bidID, "listingID": bid.ListingID})
	return bid, nil
}

func (s *Service) settle(ctx context.Context, listingID string, trigger model.CloseTrigger) (model.SettlementResult, []model.Event, error) {
	release, err := s.locker.Acquire(ctx, listingID)
	if err != nil {
		return model.SettlementResult{}, nil, err
	}
	defer release()

	listing, err := s.listings.GetListing(ctx, listingID)
	if err != nil {
		return model.SettlementResult{}, nil, fmt.Errorf("settlement: %w", err)
	}

	existing, err := s.repo.GetSettlement(ctx, listingID)
	switch {
	case err == nil:
		// an earlier close stored its result; make sure the rest of it landed too
		if err := s.finish(ctx, listing, existing); err != nil {
			return model.SettlementResult{}, nil, err
		}
		return existing, nil, nil
	case !errors.Is(err, biddingerrors.ErrSettlementNotFound):
		return model.SettlementResult{}, nil, fmt.Errorf("settlement: failed to check settlement of %s: %w", listingID, err)
	}

	now := s.now()
	if err := closable(listing, trigger, now); err != nil {
		return model.SettlementResult{}, nil, err
	}

	bids, err := s.repo.GetBidsByListing(ctx, listingID)
	if err != nil {
		return model.SettlementResult{}, nil, fmt.Errorf("settlement: failed to load bids of %s: %w", listingID, err)
	}
	live := ledger.LiveBids(bids)

	result := s.decide(ctx, listing, live, trigger, now)
	if err := s.repo.SaveSettlement(ctx, result); err != nil {
		return model.SettlementResult{}, nil, fmt.Errorf("settlement: failed to save settlement of %s: %w", listingID, err)
	}
	if err := s.finish(ctx, listing, result); err != nil {
		return model.SettlementResult{}, nil, err
	}

	utils.Info("Listing settled", map[string]any{
		"listingID": listingID,
		"outcome":   result.Outcome,
		"trigger":   result.Trigger,
		"winnerID":  result.WinnerID,
		"lostBids":  len(result.LostBidIDs),
	})
	return result, s.events(listing, live, result), nil
}

// closable checks the listing may settle now. A manual close may cut the
// window short; the timer only closes once the window has ended.
func closable(listing model.Listing, trigger model.CloseTrigger, now time.Time) error {
	switch listing.Status {
	case model.ListingStatusClosing:
		return nil
	case model.ListingStatusActive:
		if trigger == model.CloseTriggerManual || !now.Before(listing.ClosesAt) {
			return nil
		}
	case model.ListingStatusClosed:
		return fmt.Errorf("settlement: listing %s: %w", listing.ListingID, biddingerrors.ErrListingClosed)
	}
	return fmt.Errorf("settlement: listing %s is %s: %w", listing.ListingID, listing.Status, biddingerrors.ErrListingNotClosable)
}

// decide builds the settlement from the ranked live bids
func (s *Service) decide(ctx context.Context, listing model.Listing, live []model.Bid, trigger model.CloseTrigger, now time.Time) model.SettlementResult {
	result := model.SettlementResult{
		SettlementID:  utils.GenerateID(),
		ListingID:     listing.ListingID,
		Outcome:       model.SettlementOutcomeUnsold,
		Trigger:       trigger,
		WinningPrice:  decimal.Zero,
		WinningVolume: decimal.Zero,
		TotalValue:    decimal.Zero,
		Currency:      listing.Currency,
		LostBidIDs:    []string{},
		ClosedAt:      now,
	}

	winnerIdx := -1
	switch {
	case len(live) == 0:
		result.Reason = "no bids"
	case listing.HasReserve() && !validator.AtLeast(live[0].PricePerUnit, *listing.ReservePrice):
		result.Reason = fmt.Sprintf("reserve price %s not met", listing.ReservePrice.StringFixed(2))
	default:
		winnerIdx = 0
	}

	for i, b := range live {
		if i == winnerIdx {
			continue
		}
		result.LostBidIDs = append(result.LostBidIDs, b.BidID)
	}
	if winnerIdx < 0 {
		return result
	}

	top := live[winnerIdx]
	result.Outcome = model.SettlementOutcomeWon
	result.WinningBidID = top.BidID
	result.WinnerID = top.BidderID
	result.WinningPrice = top.PricePerUnit
	result.WinningVolume = top.VolumeRequested
	result.TotalValue = top.TotalValue()

	ready, err := s.payments.IsPaymentReady(ctx, listing.OwnerID)
	switch {
	case err != nil:
		result.Warnings = append(result.Warnings, "payment readiness check failed: "+err.Error())
	case !ready:
		result.Warnings = append(result.Warnings, "seller payment account not ready; payment capture not scheduled")
	default:
		result.PaymentScheduled = true
	}
	return result
}

// finish applies a stored settlement to bids and listing state. Steps already
// applied are skipped, so it is safe to run again after a partial failure.
func (s *Service) finish(ctx context.Context, listing model.Listing, result model.SettlementResult) error {
	bids, err := s.repo.GetBidsByListing(ctx, listing.ListingID)
	if err != nil {
		return fmt.Errorf("settlement: failed to load bids of %s: %w", listing.ListingID, err)
	}

	lost := make(map[string]bool, len(result.LostBidIDs))
	for _, id := range result.LostBidIDs {
		lost[id] = true
	}

	var changed []model.Bid
	var history []model.BidEvent
	for _, b := range bids {
		var target model.BidStatus
		var reason model.BidEventReason
		switch {
		case b.BidID == result.WinningBidID && b.Status.IsLive():
			target, reason = model.BidStatusWon, model.BidEventSettledWon
		case lost[b.BidID] && b.Status.IsLive():
			target, reason = model.BidStatusLost, model.BidEventSettledLost
		default:
			continue
		}
		b.Status = target
		b.UpdatedAt = result.ClosedAt
		changed = append(changed, b)
		history = append(history, historyEntry(b, reason, result.ClosedAt))
	}

	if len(changed) > 0 {
		if err := s.repo.SaveBids(ctx, changed...); err != nil {
			return fmt.Errorf("settlement: failed to finalize bids of %s: %w", listing.ListingID, err)
		}
		if err := s.repo.AppendBidEvents(ctx, history...); err != nil {
			return fmt.Errorf("settlement: failed to append history of %s: %w", listing.ListingID, err)
		}
	}

	if listing.Status != model.ListingStatusClosed {
		state := listing.State()
		state.Status = model.ListingStatusClosed
		state.SuspendedFrom = ""
		if err := s.listings.SetListingState(ctx, listing.ListingID, state); err != nil {
			return fmt.Errorf("settlement: failed to close listing %s: %w", listing.ListingID, err)
		}
	}
	return nil
}

// events lists the notifications of a fresh settlement: one auction_won at most
func (s *Service) events(listing model.Listing, live []model.Bid, result model.SettlementResult) []model.Event {
	base := map[string]any{
		"currency":   result.Currency,
		"outcome":    string(result.Outcome),
		"settlement": result.SettlementID,
	}
	newEvent := func(t model.EventType, recipient, bidID string, extra map[string]any) model.Event {
		data := make(map[string]any, len(base)+len(extra))
		for k, v := range base {
			data[k] = v
		}
		for k, v := range extra {
			data[k] = v
		}
		return model.Event{
			EventID:     utils.GenerateID(),
			Type:        t,
			RecipientID: recipient,
			ListingID:   listing.ListingID,
			BidID:       bidID,
			Data:        data,
			CreatedAt:   result.ClosedAt,
		}
	}

	var events []model.Event
	if result.HasWinner() {
		won := map[string]any{
			"price_per_unit": result.WinningPrice.String(),
			"volume":         result.WinningVolume.String(),
			"total_value":    result.TotalValue.String(),
		}
		events = append(events, newEvent(model.EventAuctionWon, result.WinnerID, result.WinningBidID, won))
		events = append(events, newEvent(model.EventListingSold, listing.OwnerID, result.WinningBidID, won))
		if result.PaymentScheduled {
			events = append(events, newEvent(model.EventPaymentCaptureRequested, listing.OwnerID, result.WinningBidID, map[string]any{
				"winner_id":   result.WinnerID,
				"total_value": result.TotalValue.String(),
			}))
		}
	} else {
		events = append(events, newEvent(model.EventListingClosedUnsold, listing.OwnerID, "", map[string]any{
			"reason": result.Reason,
		}))
	}

	for _, b := range live {
		if b.BidID == result.WinningBidID {
			continue
		}
		events = append(events, newEvent(model.EventBidLost, b.BidderID, b.BidID, map[string]any{
			"price_per_unit": b.PricePerUnit.String(),
		}))
	}
	return events
}

func historyEntry(b model.Bid, reason model.BidEventReason, at time.Time) model.BidEvent {
	return model.BidEvent{
		EventID:        utils.GenerateID(),
		BidID:          b.BidID,
		ListingID:      b.ListingID,
		BidderID:       b.BidderID,
		PreviousPrice:  b.PricePerUnit,
		NewPrice:       b.PricePerUnit,
		PreviousVolume: b.VolumeRequested,
		NewVolume:      b.VolumeRequested,
		Reason:         reason,
		CreatedAt:      at,
	}
}
