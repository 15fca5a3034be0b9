package ledger

import (
	"bulk-auction/internal/biddingerrors"
	model "bulk-auction/internal/models"
	"bulk-auction/internal/validator"
	"bulk-auction/utils"
	"context"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// Observer is told about bids that lost rank 1 during a pass.
// It runs with the listing scope held and may raise bids through the pass.
type Observer interface {
	BidDemoted(ctx context.Context, pass *Pass, demoted, top model.Bid)
}

// Pass is one serialized unit of work on a listing. All changes are staged in
// memory and written together when the pass commits.
type Pass struct {
	ctx     context.Context
	ledger  *Ledger
	listing model.Listing
	now     time.Time

	bids    map[string]*model.Bid
	order   []string // bid IDs in load/insert order
	latest  time.Time
	dirty   map[string]bool
	visited map[string]bool
	queue   []string

	history []model.BidEvent
	events  []model.Event
}

func (l *Ledger) begin(ctx context.Context, listingID string) (*Pass, error) {
	listing, err := l.listings.GetListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to load listing %s: %w", listingID, err)
	}

	stored, err := l.repo.GetBidsByListing(ctx, listingID)
	if err != nil {
		return nil, fmt.Errorf("ledger: failed to load bids for listing %s: %w", listingID, err)
	}

	p := &Pass{
		ctx:     ctx,
		ledger:  l,
		listing: listing,
		now:     l.now(),
		bids:    make(map[string]*model.Bid, len(stored)),
		order:   make([]string, 0, len(stored)+1),
		dirty:   make(map[string]bool),
		visited: make(map[string]bool),
	}
	for i := range stored {
		b := stored[i]
		p.bids[b.BidID] = &b
		p.order = append(p.order, b.BidID)
		if b.CreatedAt.After(p.latest) {
			p.latest = b.CreatedAt
		}
	}
	return p, nil
}

// Listing returns the listing the pass works on
func (p *Pass) Listing() model.Listing {
	return p.listing
}

// Now returns the instant the pass started
func (p *Pass) Now() time.Time {
	return p.now
}

// Top returns the current rank-1 bid
func (p *Pass) Top() (model.Bid, bool) {
	for _, id := range p.order {
		if b := p.bids[id]; b.Status == model.BidStatusWinning {
			return *b, true
		}
	}
	return model.Bid{}, false
}

// Raise moves a live bid to a higher price as an automatic raise.
// The new ranking is computed immediately and any bid it demotes is queued.
func (p *Pass) Raise(bidID string, price decimal.Decimal) (model.Bid, error) {
	b, ok := p.bids[bidID]
	if !ok {
		return model.Bid{}, fmt.Errorf("raise bid %s: %w", bidID, biddingerrors.ErrBidNotFound)
	}
	if !b.Status.IsLive() {
		return model.Bid{}, fmt.Errorf("raise bid %s (%s): %w", bidID, b.Status, biddingerrors.ErrBidTerminal)
	}
	if !b.CanAutoRaise() {
		return model.Bid{}, fmt.Errorf("raise bid %s: not an auto-bid: %w", bidID, biddingerrors.ErrInvalidAutoBid)
	}
	if !price.GreaterThan(b.PricePerUnit) {
		return model.Bid{}, fmt.Errorf("raise bid %s to %s from %s: %w", bidID, price.String(), b.PricePerUnit.String(), biddingerrors.ErrInvalidBid)
	}
	if !validator.AtLeast(*b.AutoRaiseCeiling, price) {
		return model.Bid{}, fmt.Errorf("raise bid %s to %s over ceiling %s: %w", bidID, price.String(), b.AutoRaiseCeiling.String(), biddingerrors.ErrInvalidAutoBid)
	}

	bidder, err := p.ledger.bidders.GetBidder(p.ctx, b.BidderID)
	if err != nil {
		return model.Bid{}, fmt.Errorf("raise bid %s: %w", bidID, err)
	}
	c := candidateOf(*b)
	c.Price = price
	if err := validator.Validate(p.listing, bidder, c, p.now); err != nil {
		return model.Bid{}, err
	}

	prevPrice, prevVolume := b.PricePerUnit, b.VolumeRequested
	b.PricePerUnit = price
	b.UpdatedAt = p.now
	p.touch(b, prevPrice, prevVolume, model.BidEventAutoRaised)
	p.emit(model.EventAutoBidTriggered, *b, map[string]any{
		"previous_price": prevPrice.String(),
		"new_price":      price.String(),
		"ceiling":        b.AutoRaiseCeiling.String(),
	})

	p.recompute()
	return *b, nil
}

// upsert creates the bidder's bid or applies the candidate to the existing one
func (p *Pass) upsert(bidder model.Bidder, c validator.Candidate, notes string) (*model.Bid, error) {
	if err := validator.Validate(p.listing, bidder, c, p.now); err != nil {
		return nil, err
	}

	if existing := p.openBidOf(bidder.BidderID); existing != nil {
		if existing.Status.IsTerminal() {
			return nil, fmt.Errorf("bid %s is %s: %w", existing.BidID, existing.Status, biddingerrors.ErrBidTerminal)
		}
		p.apply(existing, c, notes)
		return existing, nil
	}

	// creation times stay strictly increasing per listing so ties resolve in arrival order
	createdAt := p.now
	if !createdAt.After(p.latest) {
		createdAt = p.latest.Add(time.Nanosecond)
	}
	p.latest = createdAt

	b := &model.Bid{
		BidID:            utils.GenerateID(),
		ListingID:        p.listing.ListingID,
		BidderID:         bidder.BidderID,
		PricePerUnit:     c.Price,
		VolumeRequested:  c.Volume,
		VolumeMode:       c.Mode,
		Status:           model.BidStatusActive,
		AutoRaiseCeiling: c.AutoRaiseCeiling,
		IsAutoBid:        c.IsAutoBid,
		Notes:            notes,
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
	}
	p.bids[b.BidID] = b
	p.order = append(p.order, b.BidID)
	p.touch(b, decimal.Zero, decimal.Zero, model.BidEventPlaced)
	p.emit(model.EventBidPlaced, *b, nil)
	return b, nil
}

// apply overwrites the editable fields of a live bid. CreatedAt is kept.
func (p *Pass) apply(b *model.Bid, c validator.Candidate, notes string) {
	prevPrice, prevVolume := b.PricePerUnit, b.VolumeRequested

	reason := model.BidEventUpdated
	if c.Price.GreaterThan(prevPrice) {
		reason = model.BidEventRaised
	}

	b.PricePerUnit = c.Price
	b.VolumeRequested = c.Volume
	b.VolumeMode = c.Mode
	b.AutoRaiseCeiling = c.AutoRaiseCeiling
	b.IsAutoBid = c.IsAutoBid
	if notes != "" {
		b.Notes = notes
	}
	b.UpdatedAt = p.now
	p.touch(b, prevPrice, prevVolume, reason)
}

func (p *Pass) cancel(b *model.Bid) {
	prevPrice, prevVolume := b.PricePerUnit, b.VolumeRequested
	b.Status = model.BidStatusCancelled
	b.Rank = 0
	b.UpdatedAt = p.now
	p.touch(b, prevPrice, prevVolume, model.BidEventCancelled)
}

// recompute assigns ranks to live bids and queues every bid that lost rank 1
func (p *Pass) recompute() {
	live := make([]model.Bid, 0, len(p.bids))
	for _, id := range p.order {
		if b := p.bids[id]; b.Status.IsLive() {
			live = append(live, *b)
		}
	}
	SortBids(live)

	for i, snapshot := range live {
		b := p.bids[snapshot.BidID]
		rank := i + 1
		status := model.BidStatusOutbid
		if rank == 1 {
			status = model.BidStatusWinning
		}

		if b.Status == model.BidStatusWinning && status == model.BidStatusOutbid {
			p.queue = append(p.queue, b.BidID)
			p.emit(model.EventBidOutbid, *b, map[string]any{
				"leading_price": live[0].PricePerUnit.String(),
			})
		}
		if b.Status != status || b.Rank != rank {
			b.Status = status
			b.Rank = rank
			p.dirty[b.BidID] = true
		}
	}
}

// settle ranks the listing and hands demoted bids to the observer until the
// queue drains. A bid is handed over at most once per pass, so two auto-bidders
// outbidding each other stop after one raise each.
func (p *Pass) settle() {
	p.recompute()

	observer := p.ledger.observer
	for len(p.queue) > 0 {
		id := p.queue[0]
		p.queue = p.queue[1:]

		if p.visited[id] {
			continue
		}
		p.visited[id] = true

		b := p.bids[id]
		if observer == nil || b.Status != model.BidStatusOutbid {
			continue
		}
		top, ok := p.Top()
		if !ok {
			continue
		}
		observer.BidDemoted(p.ctx, p, *b, top)
	}
}

// commit writes staged bids and history. Bids go first so history never
// describes a change that was not stored.
func (p *Pass) commit() error {
	if len(p.dirty) == 0 {
		return nil
	}

	changed := make([]model.Bid, 0, len(p.dirty))
	for _, id := range p.order {
		if p.dirty[id] {
			changed = append(changed, *p.bids[id])
		}
	}
	if err := p.ledger.repo.SaveBids(p.ctx, changed...); err != nil {
		return fmt.Errorf("ledger: failed to save bids for listing %s: %w", p.listing.ListingID, err)
	}
	if err := p.ledger.repo.AppendBidEvents(p.ctx, p.history...); err != nil {
		return fmt.Errorf("ledger: failed to append bid history for listing %s: %w", p.listing.ListingID, err)
	}
	return nil
}

func (p *Pass) openBidOf(bidderID string) *model.Bid {
	for _, id := range p.order {
		if b := p.bids[id]; b.BidderID == bidderID && b.Status != model.BidStatusCancelled {
			return b
		}
	}
	return nil
}

func (p *Pass) touch(b *model.Bid, prevPrice, prevVolume decimal.Decimal, reason model.BidEventReason) {
	p.dirty[b.BidID] = true
	p.history = append(p.history, model.BidEvent{
		EventID:        utils.GenerateID(),
		BidID:          b.BidID,
		ListingID:      b.ListingID,
		BidderID:       b.BidderID,
		PreviousPrice:  prevPrice,
		NewPrice:       b.PricePerUnit,
		PreviousVolume: prevVolume,
		NewVolume:      b.VolumeRequested,
		Reason:         reason,
		CreatedAt:      p.now,
	})
}

func (p *Pass) emit(eventType model.EventType, b model.Bid, data map[string]any) {
	payload := map[string]any{
		"price_per_unit": b.PricePerUnit.String(),
		"volume":         b.VolumeRequested.String(),
		"currency":       p.listing.Currency,
	}
	for k, v := range data {
		payload[k] = v
	}
	p.events = append(p.events, model.Event{
		EventID:     utils.GenerateID(),
		Type:        eventType,
		RecipientID: b.BidderID,
		ListingID:   b.ListingID,
		BidID:       b.BidID,
		Data:        payload,
		CreatedAt:   p.now,
	})
}

func candidateOf(b model.Bid) validator.Candidate {
	return validator.Candidate{
		Price:            b.PricePerUnit,
		Volume:           b.VolumeRequested,
		Mode:             b.VolumeMode,
		AutoRaiseCeiling: b.AutoRaiseCeiling,
		IsAutoBid:        b.IsAutoBid,
	}
}
