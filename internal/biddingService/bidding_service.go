package bidding

import (
	"bulk-auction/internal/auctionclock"
	"bulk-auction/internal/biddingerrors"
	"bulk-auction/internal/directory"
	"bulk-auction/internal/ledger"
	model "bulk-auction/internal/models"
	"bulk-auction/internal/notify"
	"bulk-auction/internal/repository"
	"bulk-auction/internal/settlement"
	"bulk-auction/internal/validator"
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Deps are the components the service coordinates
type Deps struct {
	Repo       repository.AuctionDB
	Listings   directory.ListingDirectory
	Bidders    directory.BidderDirectory
	Ledger     *ledger.Ledger
	Clock      *auctionclock.Clock
	Settlement *settlement.Service
	Dispatcher notify.Dispatcher
	Now        func() time.Time
}

// BiddingService defines the business logic for auction bidding
type BiddingService struct {
	repo       repository.AuctionDB
	listings   directory.ListingDirectory
	bidders    directory.BidderDirectory
	ledger     *ledger.Ledger
	clock      *auctionclock.Clock
	settlement *settlement.Service
	dispatcher notify.Dispatcher
	now        func() time.Time
}

// NewBiddingService creates a new BiddingService instance
func NewBiddingService(deps Deps) *BiddingService {
	now := deps.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	return &BiddingService{
		repo:       deps.Repo,
		listings:   deps.Listings,
		bidders:    deps.Bidders,
		ledger:     deps.Ledger,
		clock:      deps.Clock,
		settlement: deps.Settlement,
		dispatcher: deps.Dispatcher,
		now:        now,
	}
}

// PlaceBidInput is a bid submission
type PlaceBidInput struct {
	ListingID        string
	BidderID         string
	Price            decimal.Decimal
	Volume           decimal.Decimal
	Mode             model.VolumeMode
	AutoRaiseCeiling *decimal.Decimal
	IsAutoBid        bool
	Notes            string
}

// PlaceBid validates and records a bid, updating the bidder's existing bid if any
func (s *BiddingService) PlaceBid(ctx context.Context, in PlaceBidInput) (model.Bid, error) {
	if in.ListingID == "" || in.BidderID == "" {
		return model.Bid{}, fmt.Errorf("service: %w - missing listingID or bidderID", biddingerrors.ErrInvalidBid)
	}
	if _, err := s.clock.Sync(ctx, in.ListingID); err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to sync listing %s: %w", in.ListingID, err)
	}

	res, err := s.ledger.PlaceOrUpdate(ctx, ledger.PlaceRequest{
		ListingID:        in.ListingID,
		BidderID:         in.BidderID,
		Price:            in.Price,
		Volume:           in.Volume,
		Mode:             in.Mode,
		AutoRaiseCeiling: in.AutoRaiseCeiling,
		IsAutoBid:        in.IsAutoBid,
		Notes:            in.Notes,
	})
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to place bid on listing %s by %s: %w", in.ListingID, in.BidderID, err)
	}

	notify.DispatchAll(ctx, s.dispatcher, res.Events)
	return res.Bid, nil
}

// ValidateBid checks a bid against the listing without storing anything
func (s *BiddingService) ValidateBid(ctx context.Context, in PlaceBidInput) error {
	if in.ListingID == "" || in.BidderID == "" {
		return fmt.Errorf("service: %w - missing listingID or bidderID", biddingerrors.ErrInvalidBid)
	}
	listing, err := s.clock.Sync(ctx, in.ListingID)
	if err != nil {
		return fmt.Errorf("service: failed to sync listing %s: %w", in.ListingID, err)
	}
	bidder, err := s.bidders.GetBidder(ctx, in.BidderID)
	if err != nil {
		return fmt.Errorf("service: %w", err)
	}

	mode := in.Mode
	if mode == "" {
		mode = model.VolumeModePartial
	}
	return validator.Validate(listing, bidder, validator.Candidate{
		Price:            in.Price,
		Volume:           in.Volume,
		Mode:             mode,
		AutoRaiseCeiling: in.AutoRaiseCeiling,
		IsAutoBid:        in.IsAutoBid,
	}, s.now())
}

// UpdateBid changes the price, volume or ceiling of a live bid
func (s *BiddingService) UpdateBid(ctx context.Context, bidID string, req ledger.UpdateRequest) (model.Bid, error) {
	if req.Price == nil && req.Volume == nil && req.AutoRaiseCeiling == nil {
		return model.Bid{}, fmt.Errorf("service: %w - nothing to update", biddingerrors.ErrInvalidBid)
	}
	bid, err := s.GetBid(ctx, bidID)
	if err != nil {
		return model.Bid{}, err
	}
	if _, err := s.clock.Sync(ctx, bid.ListingID); err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to sync listing %s: %w", bid.ListingID, err)
	}

	res, err := s.ledger.Update(ctx, bidID, req)
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to update bid %s: %w", bidID, err)
	}

	notify.DispatchAll(ctx, s.dispatcher, res.Events)
	return res.Bid, nil
}

// CancelBid withdraws a live bid
func (s *BiddingService) CancelBid(ctx context.Context, bidID string) (model.Bid, error) {
	bid, err := s.GetBid(ctx, bidID)
	if err != nil {
		return model.Bid{}, err
	}
	if _, err := s.clock.Sync(ctx, bid.ListingID); err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to sync listing %s: %w", bid.ListingID, err)
	}

	res, err := s.ledger.Cancel(ctx, bidID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to cancel bid %s: %w", bidID, err)
	}

	notify.DispatchAll(ctx, s.dispatcher, res.Events)
	return res.Bid, nil
}

// GetBid returns a bid with its current rank
func (s *BiddingService) GetBid(ctx context.Context, bidID string) (model.Bid, error) {
	if bidID == "" {
		return model.Bid{}, fmt.Errorf("service: %w - empty bid ID", biddingerrors.ErrInvalidBid)
	}
	bid, err := s.repo.GetBid(ctx, bidID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to get bid %s: %w", bidID, err)
	}
	return bid, nil
}

// GetBidHistory returns the audit trail of a bid
func (s *BiddingService) GetBidHistory(ctx context.Context, bidID string) ([]model.BidEvent, error) {
	if _, err := s.GetBid(ctx, bidID); err != nil {
		return nil, err
	}
	events, err := s.repo.GetBidEvents(ctx, bidID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get history of bid %s: %w", bidID, err)
	}
	return events, nil
}

// MarkPaid records payment of a won bid
func (s *BiddingService) MarkPaid(ctx context.Context, bidID string) (model.Bid, error) {
	if bidID == "" {
		return model.Bid{}, fmt.Errorf("service: %w - empty bid ID", biddingerrors.ErrInvalidBid)
	}
	bid, err := s.settlement.MarkPaid(ctx, bidID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to mark bid %s paid: %w", bidID, err)
	}
	return bid, nil
}

// GetBidsForListing returns the non-cancelled bids of a listing in rank order
func (s *BiddingService) GetBidsForListing(ctx context.Context, listingID string) ([]model.Bid, error) {
	if listingID == "" {
		return nil, fmt.Errorf("service: %w - empty listing ID", biddingerrors.ErrInvalidBid)
	}
	bids, err := s.ledger.Bids(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for listing %s: %w", listingID, err)
	}
	return bids, nil
}

// GetWinningBid returns the leading bid, or the winner once settled
func (s *BiddingService) GetWinningBid(ctx context.Context, listingID string) (model.Bid, error) {
	if listingID == "" {
		return model.Bid{}, fmt.Errorf("service: %w - empty listing ID", biddingerrors.ErrInvalidBid)
	}
	bid, err := s.ledger.Leader(ctx, listingID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("service: failed to get winning bid for listing %s: %w", listingID, err)
	}
	return bid, nil
}

// GetStatistics summarises the bids of a listing
func (s *BiddingService) GetStatistics(ctx context.Context, listingID string) (model.BidStatistics, error) {
	if listingID == "" {
		return model.BidStatistics{}, fmt.Errorf("service: %w - empty listing ID", biddingerrors.ErrInvalidBid)
	}
	stats, err := s.ledger.Statistics(ctx, listingID)
	if err != nil {
		return model.BidStatistics{}, fmt.Errorf("service: failed to get statistics for listing %s: %w", listingID, err)
	}
	return stats, nil
}

// GetSettlement returns the recorded outcome of a closed listing
func (s *BiddingService) GetSettlement(ctx context.Context, listingID string) (model.SettlementResult, error) {
	result, err := s.settlement.Get(ctx, listingID)
	if err != nil {
		return model.SettlementResult{}, fmt.Errorf("service: failed to get settlement for listing %s: %w", listingID, err)
	}
	return result, nil
}

// CloseListing settles a listing on request. Repeated calls return the first result.
func (s *BiddingService) CloseListing(ctx context.Context, listingID string) (model.SettlementResult, error) {
	if _, err := s.clock.Sync(ctx, listingID); err != nil {
		return model.SettlementResult{}, fmt.Errorf("service: failed to sync listing %s: %w", listingID, err)
	}
	result, err := s.settlement.Close(ctx, listingID, model.CloseTriggerManual)
	if err != nil {
		return model.SettlementResult{}, fmt.Errorf("service: failed to close listing %s: %w", listingID, err)
	}
	return result, nil
}

// GetListing returns a listing as the directory holds it
func (s *BiddingService) GetListing(ctx context.Context, listingID string) (model.Listing, error) {
	if listingID == "" {
		return model.Listing{}, fmt.Errorf("service: %w - empty listing ID", biddingerrors.ErrInvalidBid)
	}
	listing, err := s.listings.GetListing(ctx, listingID)
	if err != nil {
		return model.Listing{}, fmt.Errorf("service: failed to get listing %s: %w", listingID, err)
	}
	return listing, nil
}

// ScheduleListing sets the bidding window of a listing
func (s *BiddingService) ScheduleListing(ctx context.Context, listingID string, opensAt, closesAt time.Time) (model.Listing, error) {
	listing, err := s.clock.Schedule(ctx, listingID, opensAt, closesAt)
	if err != nil {
		return model.Listing{}, fmt.Errorf("service: failed to schedule listing %s: %w", listingID, err)
	}
	return listing, nil
}

// SuspendListing freezes a listing pending review
func (s *BiddingService) SuspendListing(ctx context.Context, listingID string) (model.Listing, error) {
	listing, err := s.clock.Suspend(ctx, listingID)
	if err != nil {
		return model.Listing{}, fmt.Errorf("service: failed to suspend listing %s: %w", listingID, err)
	}
	return listing, nil
}

// ApproveListing lifts a suspension
func (s *BiddingService) ApproveListing(ctx context.Context, listingID string) (model.Listing, error) {
	listing, err := s.clock.Approve(ctx, listingID)
	if err != nil {
		return model.Listing{}, fmt.Errorf("service: failed to approve listing %s: %w", listingID, err)
	}
	return listing, nil
}

// GetBidsByBidder returns all bids a bidder has placed, newest first
func (s *BiddingService) GetBidsByBidder(ctx context.Context, bidderID string) ([]model.Bid, error) {
	if bidderID == "" {
		return nil, fmt.Errorf("service: %w - empty bidder ID", biddingerrors.ErrInvalidBid)
	}
	bids, err := s.repo.GetBidsByBidder(ctx, bidderID)
	if err != nil {
		return nil, fmt.Errorf("service: failed to get bids for bidder %s: %w", bidderID, err)
	}
	return bids, nil
}
