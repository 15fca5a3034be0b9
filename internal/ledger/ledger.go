// Package ledger keeps the authoritative bid set of each listing and its ranking.
// Every mutation runs inside the listing's lock scope as one Pass: validate,
// apply, re-rank, let the observer react to demotions, then commit. Notification
// events produced by a pass are returned to the caller for delivery after the
// scope is released.
package ledger

import (
	"bulk-auction/internal/biddingerrors"
	"bulk-auction/internal/directory"
	"bulk-auction/internal/lock"
	model "bulk-auction/internal/models"
	"bulk-auction/internal/repository"
	"bulk-auction/internal/validator"
	"bulk-auction/utils"
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Ledger serializes bid mutations per listing and keeps ranks consistent
type Ledger struct {
	repo     repository.AuctionDB
	listings directory.ListingDirectory
	bidders  directory.BidderDirectory
	locker   lock.Locker
	observer Observer
	now      func() time.Time
}

// Option configures a Ledger
type Option func(*Ledger)

// WithObserver registers the component told about demoted bids
func WithObserver(o Observer) Option {
	return func(l *Ledger) { l.observer = o }
}

// WithClock overrides the time source
func WithClock(now func() time.Time) Option {
	return func(l *Ledger) { l.now = now }
}

// New creates a Ledger
func New(repo repository.AuctionDB, listings directory.ListingDirectory, bidders directory.BidderDirectory, locker lock.Locker, opts ...Option) *Ledger {
	l := &Ledger{
		repo:     repo,
		listings: listings,
		bidders:  bidders,
		locker:   locker,
		now:      func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// PlaceRequest is a bid submission. A bidder holding a non-cancelled bid on the
// listing has it updated instead of getting a second one.
type PlaceRequest struct {
	ListingID        string
	BidderID         string
	Price            decimal.Decimal
	Volume           decimal.Decimal
	Mode             model.VolumeMode
	AutoRaiseCeiling *decimal.Decimal
	IsAutoBid        bool
	Notes            string
}

// UpdateRequest changes the price or volume of an existing bid. Nil fields are kept.
type UpdateRequest struct {
	Price            *decimal.Decimal
	Volume           *decimal.Decimal
	AutoRaiseCeiling *decimal.Decimal
	Notes            string
}

// Result is the stored bid after a pass plus the notifications it produced
type Result struct {
	Bid    model.Bid
	Events []model.Event
}

// PlaceOrUpdate validates the request and inserts or updates the bidder's bid
func (l *Ledger) PlaceOrUpdate(ctx context.Context, req PlaceRequest) (Result, error) {
	if req.ListingID == "" || req.BidderID == "" {
		return Result{}, fmt.Errorf("ledger: %w - missing listing or bidder", biddingerrors.ErrInvalidBid)
	}
	if req.Mode == "" {
		req.Mode = model.VolumeModePartial
	}

	var placed string
	res, err := l.run(ctx, req.ListingID, func(p *Pass) error {
		bidder, err := l.bidders.GetBidder(ctx, req.BidderID)
		if err != nil {
			return fmt.Errorf("ledger: failed to resolve bidder: %w", err)
		}
		b, err := p.upsert(bidder, validator.Candidate{
			Price:            req.Price,
			Volume:           req.Volume,
			Mode:             req.Mode,
			AutoRaiseCeiling: req.AutoRaiseCeiling,
			IsAutoBid:        req.IsAutoBid,
		}, req.Notes)
		if err != nil {
			return err
		}
		placed = b.BidID
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	res.Bid = *res.pass.bids[placed]
	utils.Info("Bid placed", map[string]any{
		"listingID": req.ListingID,
		"bidderID":  req.BidderID,
		"bidID":     placed,
		"price":     res.Bid.PricePerUnit.String(),
		"rank":      res.Bid.Rank,
	})
	return res.Result, nil
}

// Update changes an existing live bid
func (l *Ledger) Update(ctx context.Context, bidID string, req UpdateRequest) (Result, error) {
	stored, err := l.repo.GetBid(ctx, bidID)
	if err != nil {
		return Result{}, fmt.Errorf("ledger: failed to get bid %s: %w", bidID, err)
	}

	res, err := l.run(ctx, stored.ListingID, func(p *Pass) error {
		b := p.bids[bidID]
		if b == nil {
			return fmt.Errorf("ledger: bid %s: %w", bidID, biddingerrors.ErrBidNotFound)
		}
		if b.Status.IsTerminal() {
			return fmt.Errorf("ledger: bid %s is %s: %w", bidID, b.Status, biddingerrors.ErrBidTerminal)
		}
		bidder, err := l.bidders.GetBidder(ctx, b.BidderID)
		if err != nil {
			return fmt.Errorf("ledger: failed to resolve bidder: %w", err)
		}

		c := candidateOf(*b)
		if req.Price != nil {
			c.Price = *req.Price
		}
		if req.Volume != nil {
			c.Volume = *req.Volume
		}
		if req.AutoRaiseCeiling != nil {
			c.AutoRaiseCeiling = req.AutoRaiseCeiling
		}
		if err := validator.Validate(p.listing, bidder, c, p.now); err != nil {
			return err
		}
		p.apply(b, c, req.Notes)
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	res.Bid = *res.pass.bids[bidID]
	return res.Result, nil
}

// Cancel withdraws a live bid while the listing is open
func (l *Ledger) Cancel(ctx context.Context, bidID string) (Result, error) {
	stored, err := l.repo.GetBid(ctx, bidID)
	if err != nil {
		return Result{}, fmt.Errorf("ledger: failed to get bid %s: %w", bidID, err)
	}

	res, err := l.run(ctx, stored.ListingID, func(p *Pass) error {
		b := p.bids[bidID]
		if b == nil {
			return fmt.Errorf("ledger: bid %s: %w", bidID, biddingerrors.ErrBidNotFound)
		}
		if b.Status.IsTerminal() {
			return fmt.Errorf("ledger: bid %s is %s: %w", bidID, b.Status, biddingerrors.ErrBidTerminal)
		}
		if !p.listing.IsOpenAt(p.now) {
			return fmt.Errorf("ledger: cannot cancel bid %s: %w", bidID, biddingerrors.ErrAuctionNotOpen)
		}
		p.cancel(b)
		return nil
	})
	if err != nil {
		return Result{}, err
	}

	res.Bid = *res.pass.bids[bidID]
	utils.Info("Bid cancelled", map[string]any{
		"listingID": stored.ListingID,
		"bidID":     bidID,
	})
	return res.Result, nil
}

// RankOf returns the 1-based rank of a live bid. Terminal bids have rank 0.
func (l *Ledger) RankOf(ctx context.Context, bidID string) (int, error) {
	b, err := l.repo.GetBid(ctx, bidID)
	if err != nil {
		return 0, fmt.Errorf("ledger: failed to get bid %s: %w", bidID, err)
	}
	if !b.Status.IsLive() {
		return 0, nil
	}
	return b.Rank, nil
}

// IsWinning reports whether the bid holds rank 1 and its listing is still open
func (l *Ledger) IsWinning(ctx context.Context, bidID string) (bool, error) {
	b, err := l.repo.GetBid(ctx, bidID)
	if err != nil {
		return false, fmt.Errorf("ledger: failed to get bid %s: %w", bidID, err)
	}
	listing, err := l.listings.GetListing(ctx, b.ListingID)
	if err != nil {
		return false, fmt.Errorf("ledger: %w", err)
	}
	return b.IsWinningAt(listing, l.now()), nil
}

// Bids returns the non-cancelled bids of a listing in rank order
func (l *Ledger) Bids(ctx context.Context, listingID string) ([]model.Bid, error) {
	if _, err := l.listings.GetListing(ctx, listingID); err != nil {
		return nil, fmt.Errorf("ledger: %w", err)
	}
	all, err := l.repo.GetBidsByListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to get bids for listing %s: %w", listingID, err)
	}

	bids := make([]model.Bid, 0, len(all))
	for _, b := range all {
		if b.Status != model.BidStatusCancelled {
			bids = append(bids, b)
		}
	}
	SortBids(bids)
	return bids, nil
}

// Leader returns the rank-1 bid of a listing
func (l *Ledger) Leader(ctx context.Context, listingID string) (model.Bid, error) {
	bids, err := l.Bids(ctx, listingID)
	if err != nil {
		return model.Bid{}, err
	}
	for _, b := range bids {
		if b.Status == model.BidStatusWinning || b.Status == model.BidStatusWon || b.Status == model.BidStatusPaid {
			return b, nil
		}
	}
	return model.Bid{}, fmt.Errorf("ledger: listing %s: %w", listingID, biddingerrors.ErrNoBids)
}

// Statistics summarises the bids of a listing
func (l *Ledger) Statistics(ctx context.Context, listingID string) (model.BidStatistics, error) {
	if _, err := l.listings.GetListing(ctx, listingID); err != nil {
		return model.BidStatistics{}, fmt.Errorf("ledger: %w", err)
	}
	bids, err := l.repo.GetBidsByListing(ctx, listingID)
	if err != nil {
		return model.BidStatistics{}, fmt.Errorf("ledger: failed to get bids for listing %s: %w", listingID, err)
	}
	return Statistics(listingID, bids), nil
}

type passResult struct {
	Result
	pass *Pass
}

// run executes fn and the re-rank inside the listing scope and commits the pass
func (l *Ledger) run(ctx context.Context, listingID string, fn func(p *Pass) error) (passResult, error) {
	release, err := l.locker.Acquire(ctx, listingID)
	if err != nil {
		utils.Warn("Ledger: listing busy", map[string]any{
			"listingID": listingID,
			"error":     err.Error(),
		})
		return passResult{}, err
	}
	defer release()

	p, err := l.begin(ctx, listingID)
	if err != nil {
		return passResult{}, err
	}

	if err := fn(p); err != nil {
		return passResult{}, err
	}

	p.settle()

	if err := p.commit(); err != nil {
		return passResult{}, err
	}
	return passResult{Result: Result{Events: p.events}, pass: p}, nil
}
