// Package directory holds the collaborator ports the bidding core reads listings,
// bidders and seller payment readiness through, plus an in-memory implementation.
package directory

import (
	"bulk-auction/internal/biddingerrors"
	model "bulk-auction/internal/models"
	"context"
	"fmt"
	"sort"
	"sync"
)

// ListingDirectory is owned by the listing-authoring collaborator.
// The core only writes lifecycle state through SetListingState.
type ListingDirectory interface {
	GetListing(ctx context.Context, listingID string) (model.Listing, error)
	ListListings(ctx context.Context) ([]model.Listing, error)
	SetListingState(ctx context.Context, listingID string, state model.ListingState) error
}

// BidderDirectory resolves account details used for eligibility checks
type BidderDirectory interface {
	GetBidder(ctx context.Context, bidderID string) (model.Bidder, error)
}

// PaymentGate reports whether a seller can receive payments
type PaymentGate interface {
	IsPaymentReady(ctx context.Context, sellerID string) (bool, error)
}

// Memory is a concurrency-safe in-memory directory implementing all three ports
type Memory struct {
	mu       sync.RWMutex
	listings map[string]model.Listing
	bidders  map[string]model.Bidder
	payReady map[string]bool
}

// NewMemory creates an empty in-memory directory
func NewMemory() *Memory {
	return &Memory{
		listings: make(map[string]model.Listing),
		bidders:  make(map[string]model.Bidder),
		payReady: make(map[string]bool),
	}
}

// AddListing stores or replaces a listing
func (d *Memory) AddListing(listing model.Listing) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.listings[listing.ListingID] = listing
}

// AddBidder stores or replaces a bidder
func (d *Memory) AddBidder(bidder model.Bidder) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.bidders[bidder.BidderID] = bidder
}

// SetPaymentReady records a seller's payment-account readiness
func (d *Memory) SetPaymentReady(sellerID string, ready bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.payReady[sellerID] = ready
}

// GetListing returns a listing by identifier
func (d *Memory) GetListing(_ context.Context, listingID string) (model.Listing, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	listing, ok := d.listings[listingID]
	if !ok {
		return model.Listing{}, fmt.Errorf("get listing %s: %w", listingID, biddingerrors.ErrListingNotFound)
	}
	return listing, nil
}

// ListListings returns every listing ordered by identifier
func (d *Memory) ListListings(_ context.Context) ([]model.Listing, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	listings := make([]model.Listing, 0, len(d.listings))
	for _, l := range d.listings {
		listings = append(listings, l)
	}
	sort.Slice(listings, func(i, j int) bool { return listings[i].ListingID < listings[j].ListingID })
	return listings, nil
}

// SetListingState overwrites the lifecycle fields of a listing
func (d *Memory) SetListingState(_ context.Context, listingID string, state model.ListingState) error {
	d.mu.Lock()
	defer d.mu.Unlock()

	listing, ok := d.listings[listingID]
	if !ok {
		return fmt.Errorf("set state of listing %s: %w", listingID, biddingerrors.ErrListingNotFound)
	}
	listing.Status = state.Status
	listing.SuspendedFrom = state.SuspendedFrom
	listing.OpensAt = state.OpensAt
	listing.ClosesAt = state.ClosesAt
	d.listings[listingID] = listing
	return nil
}

// GetBidder returns a bidder by identifier
func (d *Memory) GetBidder(_ context.Context, bidderID string) (model.Bidder, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	bidder, ok := d.bidders[bidderID]
	if !ok {
		return model.Bidder{}, fmt.Errorf("get bidder %s: %w", bidderID, biddingerrors.ErrBidderNotFound)
	}
	return bidder, nil
}

// IsPaymentReady reports a seller's readiness; unknown sellers are not ready
func (d *Memory) IsPaymentReady(_ context.Context, sellerID string) (bool, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return d.payReady[sellerID], nil
}
