// Package validator checks candidate bids against listing and bidder constraints.
// Nothing here mutates state, so callers may run it as often as they like.
package validator

import (
	"bulk-auction/internal/biddingerrors"
	model "bulk-auction/internal/models"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// MonetaryPrecision is the number of decimal places a price or volume may carry
const MonetaryPrecision int32 = 4

// Candidate is a bid as submitted, before it is stored
type Candidate struct {
	Price            decimal.Decimal
	Volume           decimal.Decimal
	Mode             model.VolumeMode
	AutoRaiseCeiling *decimal.Decimal
	IsAutoBid        bool
}

// ValidateBid runs the listing checks in order; the first failure wins:
// open window, self-bid, broker eligibility, precision, price floor, volume range.
func ValidateBid(listing model.Listing, bidder model.Bidder, price, volume decimal.Decimal, now time.Time) error {
	if !listing.IsOpenAt(now) {
		return fmt.Errorf("listing %s is %s: %w", listing.ListingID, openState(listing, now), biddingerrors.ErrAuctionNotOpen)
	}
	if bidder.BidderID == listing.OwnerID {
		return fmt.Errorf("bidder %s owns listing %s: %w", bidder.BidderID, listing.ListingID, biddingerrors.ErrSelfBid)
	}
	if bidder.IsBroker() && !listing.AllowBrokerBids {
		return fmt.Errorf("bidder %s: %w", bidder.BidderID, biddingerrors.ErrBrokerNotAllowed)
	}
	if !WithinPrecision(price) || !WithinPrecision(volume) {
		return fmt.Errorf("price %s, volume %s: at most %d decimal places: %w",
			price.String(), volume.String(), MonetaryPrecision, biddingerrors.ErrTooPrecise)
	}
	if !price.IsPositive() || !AtLeast(price, listing.StartingPrice) {
		return fmt.Errorf("price %s, starting price is %s: %w",
			price.String(), listing.StartingPrice.StringFixed(2), biddingerrors.ErrPriceTooLow)
	}
	if !volume.IsPositive() || !AtLeast(volume, listing.MinimumOrderVolume) || !AtLeast(listing.AvailableVolume, volume) {
		return fmt.Errorf("volume %s, allowed range is [%s, %s]: %w",
			volume.String(), listing.MinimumOrderVolume.String(), listing.AvailableVolume.String(), biddingerrors.ErrVolumeOutOfRange)
	}
	return nil
}

// Validate runs ValidateBid and then the volume-mode and auto-bid checks
func Validate(listing model.Listing, bidder model.Bidder, c Candidate, now time.Time) error {
	if err := ValidateBid(listing, bidder, c.Price, c.Volume, now); err != nil {
		return err
	}

	if !c.Mode.IsValid() {
		return fmt.Errorf("volume mode %q: %w", c.Mode, biddingerrors.ErrInvalidBid)
	}
	if c.Mode == model.VolumeModeFull && !c.Volume.Equal(listing.AvailableVolume) {
		return fmt.Errorf("full-volume bid must request %s: %w", listing.AvailableVolume.String(), biddingerrors.ErrVolumeOutOfRange)
	}

	if c.IsAutoBid && c.AutoRaiseCeiling == nil {
		return fmt.Errorf("auto-bid without ceiling: %w", biddingerrors.ErrInvalidAutoBid)
	}
	if c.AutoRaiseCeiling != nil && !WithinPrecision(*c.AutoRaiseCeiling) {
		return fmt.Errorf("ceiling %s: at most %d decimal places: %w", c.AutoRaiseCeiling.String(), MonetaryPrecision, biddingerrors.ErrTooPrecise)
	}
	if c.AutoRaiseCeiling != nil && !AtLeast(*c.AutoRaiseCeiling, c.Price) {
		return fmt.Errorf("ceiling %s below price %s: %w", c.AutoRaiseCeiling.String(), c.Price.String(), biddingerrors.ErrInvalidAutoBid)
	}
	return nil
}

// AtLeast reports a >= b on exact values
func AtLeast(a, b decimal.Decimal) bool {
	return a.GreaterThanOrEqual(b)
}

// WithinPrecision reports whether d has no digits past MonetaryPrecision
func WithinPrecision(d decimal.Decimal) bool {
	return d.Equal(d.Truncate(MonetaryPrecision))
}

// Round rounds to MonetaryPrecision
func Round(d decimal.Decimal) decimal.Decimal {
	return d.Round(MonetaryPrecision)
}

func openState(listing model.Listing, now time.Time) string {
	switch {
	case listing.Status != model.ListingStatusActive:
		return string(listing.Status)
	case now.Before(listing.OpensAt):
		return "not yet open"
	default:
		return "past its closing time"
	}
}
