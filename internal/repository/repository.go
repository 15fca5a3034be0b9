package repository

import (
	"bulk-auction/internal/biddingerrors"
	model "bulk-auction/internal/models"
	"context"
	"fmt"
	"sort"
	"sync"
)

//go:generate mockgen -destination=mock_repository.go -package=repository bulk-auction/internal/repository AuctionDB

// AuctionDB defines the bid storage port consumed by the ledger and settlement
type AuctionDB interface {
	SaveBids(ctx context.Context, bids ...model.Bid) error
	GetBid(ctx context.Context, bidID string) (model.Bid, error)
	GetBidsByListing(ctx context.Context, listingID string) ([]model.Bid, error)
	GetBidsByBidder(ctx context.Context, bidderID string) ([]model.Bid, error)
	FindOpenBid(ctx context.Context, listingID, bidderID string) (model.Bid, error)
	AppendBidEvents(ctx context.Context, events ...model.BidEvent) error
	GetBidEvents(ctx context.Context, bidID string) ([]model.BidEvent, error)
	SaveSettlement(ctx context.Context, result model.SettlementResult) error
	GetSettlement(ctx context.Context, listingID string) (model.SettlementResult, error)
}

// MemoryRepo is a concurrency-safe in-memory implementation of AuctionDB
type MemoryRepo struct {
	mu          sync.RWMutex
	bids        map[string]model.Bid              // key: bidID -> value: bid
	listingBids map[string][]string               // key: listingID -> value: bidIDs in insertion order
	bidderBids  map[string][]string               // key: bidderID -> value: bidIDs in insertion order
	events      map[string][]model.BidEvent       // key: bidID -> value: append-only history
	settlements map[string]model.SettlementResult // key: listingID -> value: settlement
}

// NewMemoryRepo creates a new in-memory repository instance
func NewMemoryRepo() *MemoryRepo {
	return &MemoryRepo{
		bids:        make(map[string]model.Bid),
		listingBids: make(map[string][]string),
		bidderBids:  make(map[string][]string),
		events:      make(map[string][]model.BidEvent),
		settlements: make(map[string]model.SettlementResult),
	}
}

// SaveBids inserts or replaces bids in a single step
func (r *MemoryRepo) SaveBids(_ context.Context, bids ...model.Bid) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, bid := range bids {
		if bid.BidID == "" || bid.ListingID == "" {
			return fmt.Errorf("save bid %q: %w", bid.BidID, biddingerrors.ErrInvalidBid)
		}
	}

	for _, bid := range bids {
		if _, exists := r.bids[bid.BidID]; !exists {
			r.listingBids[bid.ListingID] = append(r.listingBids[bid.ListingID], bid.BidID)
			r.bidderBids[bid.BidderID] = append(r.bidderBids[bid.BidderID], bid.BidID)
		}
		r.bids[bid.BidID] = bid
	}
	return nil
}

// GetBid returns a single bid by identifier
func (r *MemoryRepo) GetBid(_ context.Context, bidID string) (model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bid, ok := r.bids[bidID]
	if !ok {
		return model.Bid{}, fmt.Errorf("get bid %s: %w", bidID, biddingerrors.ErrBidNotFound)
	}
	return bid, nil
}

// GetBidsByListing returns all bids for a listing, including cancelled and settled ones
func (r *MemoryRepo) GetBidsByListing(_ context.Context, listingID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.collect(r.listingBids[listingID]), nil
}

// GetBidsByBidder returns all bids a bidder has placed, newest first
func (r *MemoryRepo) GetBidsByBidder(_ context.Context, bidderID string) ([]model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	bids := r.collect(r.bidderBids[bidderID])
	sort.SliceStable(bids, func(i, j int) bool {
		return bids[i].CreatedAt.After(bids[j].CreatedAt)
	})
	return bids, nil
}

// FindOpenBid returns the bidder's non-cancelled bid on a listing
func (r *MemoryRepo) FindOpenBid(_ context.Context, listingID, bidderID string) (model.Bid, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, id := range r.bidderBids[bidderID] {
		bid := r.bids[id]
		if bid.ListingID == listingID && bid.Status != model.BidStatusCancelled {
			return bid, nil
		}
	}
	return model.Bid{}, fmt.Errorf("find bid of %s on %s: %w", bidderID, listingID, biddingerrors.ErrBidNotFound)
}

// AppendBidEvents appends audit records; existing records are never touched
func (r *MemoryRepo) AppendBidEvents(_ context.Context, events ...model.BidEvent) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, ev := range events {
		r.events[ev.BidID] = append(r.events[ev.BidID], ev)
	}
	return nil
}

// GetBidEvents returns the history of a bid in append order
func (r *MemoryRepo) GetBidEvents(_ context.Context, bidID string) ([]model.BidEvent, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return append([]model.BidEvent(nil), r.events[bidID]...), nil
}

// SaveSettlement records a listing's settlement. A listing settles once.
func (r *MemoryRepo) SaveSettlement(_ context.Context, result model.SettlementResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.settlements[result.ListingID]; exists {
		return fmt.Errorf("save settlement for %s: %w", result.ListingID, biddingerrors.ErrListingClosed)
	}
	r.settlements[result.ListingID] = result
	return nil
}

// GetSettlement returns the recorded settlement of a listing
func (r *MemoryRepo) GetSettlement(_ context.Context, listingID string) (model.SettlementResult, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	result, ok := r.settlements[listingID]
	if !ok {
		return model.SettlementResult{}, fmt.Errorf("get settlement for %s: %w", listingID, biddingerrors.ErrSettlementNotFound)
	}
	return result, nil
}

func (r *MemoryRepo) collect(ids []string) []model.Bid {
	bids := make([]model.Bid, 0, len(ids))
	for _, id := range ids {
		bids = append(bids, r.bids[id])
	}
	return bids
}
