package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// AccountClass distinguishes bidder accounts for eligibility checks
type AccountClass string

const (
	AccountClassBuyer  AccountClass = "buyer"
	AccountClassBroker AccountClass = "broker"
)

// Bidder represents a participant that can place bids
type Bidder struct {
	BidderID     string       `json:"bidder_id"`
	AccountClass AccountClass `json:"account_class"`
}

// IsBroker reports whether the bidder trades on behalf of others
func (b Bidder) IsBroker() bool {
	return b.AccountClass == AccountClassBroker
}

// Listing represents a seller's time-boxed auction for a material lot
type Listing struct {
	ListingID          string           `json:"listing_id"`
	OwnerID            string           `json:"owner_id"`
	Currency           string           `json:"currency"`
	StartingPrice      decimal.Decimal  `json:"starting_price"`
	ReservePrice       *decimal.Decimal `json:"reserve_price,omitempty"`
	BidIncrement       *decimal.Decimal `json:"bid_increment,omitempty"`
	MinimumOrderVolume decimal.Decimal  `json:"minimum_order_volume"`
	AvailableVolume    decimal.Decimal  `json:"available_volume"`
	AllowBrokerBids    bool             `json:"allow_broker_bids"`
	Status             ListingStatus    `json:"status"`
	SuspendedFrom      ListingStatus    `json:"suspended_from,omitempty"`
	OpensAt            time.Time        `json:"opens_at"`
	ClosesAt           time.Time        `json:"closes_at"`
}

// IsOpenAt reports whether the listing accepts bids at the given instant
func (l Listing) IsOpenAt(now time.Time) bool {
	return l.Status == ListingStatusActive && !now.Before(l.OpensAt) && now.Before(l.ClosesAt)
}

// HasReserve reports whether a reserve price is set
func (l Listing) HasReserve() bool {
	return l.ReservePrice != nil
}

// ListingState holds the listing fields owned by the clock and settlement
type ListingState struct {
	Status        ListingStatus `json:"status"`
	SuspendedFrom ListingStatus `json:"suspended_from,omitempty"`
	OpensAt       time.Time     `json:"opens_at"`
	ClosesAt      time.Time     `json:"closes_at"`
}

// State returns the mutable lifecycle part of the listing
func (l Listing) State() ListingState {
	return ListingState{
		Status:        l.Status,
		SuspendedFrom: l.SuspendedFrom,
		OpensAt:       l.OpensAt,
		ClosesAt:      l.ClosesAt,
	}
}

// Bid represents a bidder's conditional commitment to a price and volume
type Bid struct {
	BidID            string           `json:"bid_id"`
	ListingID        string           `json:"listing_id"`
	BidderID         string           `json:"bidder_id"`
	PricePerUnit     decimal.Decimal  `json:"price_per_unit"`
	VolumeRequested  decimal.Decimal  `json:"volume_requested"`
	VolumeMode       VolumeMode       `json:"volume_mode"`
	Status           BidStatus        `json:"status"`
	Rank             int              `json:"rank"`
	AutoRaiseCeiling *decimal.Decimal `json:"auto_raise_ceiling,omitempty"`
	IsAutoBid        bool             `json:"is_auto_bid"`
	Notes            string           `json:"notes,omitempty"`
	CreatedAt        time.Time        `json:"created_at"`
	UpdatedAt        time.Time        `json:"updated_at"`
}

// TotalValue is the price per unit multiplied by the requested volume
func (b Bid) TotalValue() decimal.Decimal {
	return b.PricePerUnit.Mul(b.VolumeRequested)
}

// IsWinningAt reports whether the bid holds rank 1 on a listing still open at now.
// A leader past closes_at is not winning, even before settlement marks it won.
func (b Bid) IsWinningAt(listing Listing, now time.Time) bool {
	return b.Status == BidStatusWinning && listing.IsOpenAt(now)
}

// CanAutoRaise reports whether the bid is configured for automatic raising
func (b Bid) CanAutoRaise() bool {
	return b.IsAutoBid && b.AutoRaiseCeiling != nil
}

// BidEvent is an append-only audit record of a bid change
type BidEvent struct {
	EventID        string          `json:"event_id"`
	BidID          string          `json:"bid_id"`
	ListingID      string          `json:"listing_id"`
	BidderID       string          `json:"bidder_id"`
	PreviousPrice  decimal.Decimal `json:"previous_price"`
	NewPrice       decimal.Decimal `json:"new_price"`
	PreviousVolume decimal.Decimal `json:"previous_volume"`
	NewVolume      decimal.Decimal `json:"new_volume"`
	Reason         BidEventReason  `json:"reason"`
	CreatedAt      time.Time       `json:"created_at"`
}

// BidStatistics summarises the non-cancelled bids of a listing
type BidStatistics struct {
	ListingID         string          `json:"listing_id"`
	BidCount          int             `json:"bid_count"`
	HighestPrice      decimal.Decimal `json:"highest_price"`
	LowestPrice       decimal.Decimal `json:"lowest_price"`
	AveragePrice      decimal.Decimal `json:"average_price"`
	TotalVolume       decimal.Decimal `json:"total_volume"`
	UniqueBidderCount int             `json:"unique_bidder_count"`
}

// SettlementResult is the recorded outcome of closing a listing
type SettlementResult struct {
	SettlementID     string            `json:"settlement_id"`
	ListingID        string            `json:"listing_id"`
	Outcome          SettlementOutcome `json:"outcome"`
	Reason           string            `json:"reason,omitempty"`
	Trigger          CloseTrigger      `json:"trigger"`
	WinningBidID     string            `json:"winning_bid_id,omitempty"`
	WinnerID         string            `json:"winner_id,omitempty"`
	WinningPrice     decimal.Decimal   `json:"winning_price"`
	WinningVolume    decimal.Decimal   `json:"winning_volume"`
	TotalValue       decimal.Decimal   `json:"total_value"`
	Currency         string            `json:"currency"`
	LostBidIDs       []string          `json:"lost_bid_ids"`
	PaymentScheduled bool              `json:"payment_scheduled"`
	Warnings         []string          `json:"warnings,omitempty"`
	ClosedAt         time.Time         `json:"closed_at"`
}

// HasWinner reports whether the listing settled with a winning bid
func (r SettlementResult) HasWinner() bool {
	return r.Outcome == SettlementOutcomeWon
}
