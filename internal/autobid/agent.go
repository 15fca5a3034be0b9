// Package autobid raises auto-bids that lose the lead, up to their ceiling.
package autobid

import (
	"bulk-auction/internal/ledger"
	model "bulk-auction/internal/models"
	"bulk-auction/internal/validator"
	"bulk-auction/utils"
	"context"

	"github.com/shopspring/decimal"
)

// Agent is a ledger.Observer. It runs inside the ledger pass that demoted the bid.
type Agent struct {
	increment decimal.Decimal
}

// NewAgent creates an Agent. increment applies to listings without their own bid increment.
func NewAgent(increment decimal.Decimal) *Agent {
	return &Agent{increment: increment}
}

// Increment returns the step used for a listing
func (a *Agent) Increment(listing model.Listing) decimal.Decimal {
	if listing.BidIncrement != nil && listing.BidIncrement.IsPositive() {
		return *listing.BidIncrement
	}
	return a.increment
}

// NextPrice is the price an auto-bid would move to against top, and whether it can move at all
func (a *Agent) NextPrice(listing model.Listing, bid, top model.Bid) (decimal.Decimal, bool) {
	if !bid.CanAutoRaise() {
		return decimal.Zero, false
	}
	candidate := decimal.Min(*bid.AutoRaiseCeiling, top.PricePerUnit.Add(a.Increment(listing)))
	candidate = validator.Round(candidate)
	if !candidate.GreaterThan(bid.PricePerUnit) {
		return decimal.Zero, false
	}
	return candidate, true
}

// BidDemoted raises the demoted bid once if its ceiling allows
func (a *Agent) BidDemoted(ctx context.Context, pass *ledger.Pass, demoted, top model.Bid) {
	price, ok := a.NextPrice(pass.Listing(), demoted, top)
	if !ok {
		if demoted.CanAutoRaise() {
			utils.Debug("AutoBid: ceiling reached", map[string]any{
				"bidID":   demoted.BidID,
				"ceiling": demoted.AutoRaiseCeiling.String(),
				"leading": top.PricePerUnit.String(),
			})
		}
		return
	}

	raised, err := pass.Raise(demoted.BidID, price)
	if err != nil {
		utils.Warn("AutoBid: raise rejected", map[string]any{
			"bidID": demoted.BidID,
			"price": price.String(),
			"error": err.Error(),
		})
		return
	}

	utils.Info("AutoBid: bid raised", map[string]any{
		"listingID": raised.ListingID,
		"bidID":     raised.BidID,
		"price":     raised.PricePerUnit.String(),
		"rank":      raised.Rank,
	})
}
