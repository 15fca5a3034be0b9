package ledger

import (
	model "bulk-auction/internal/models"
	"bulk-auction/internal/validator"
	"sort"

	"github.com/shopspring/decimal"
)

// Less orders bids by price descending, then earliest creation, then identifier
func Less(a, b model.Bid) bool {
	if !a.PricePerUnit.Equal(b.PricePerUnit) {
		return a.PricePerUnit.GreaterThan(b.PricePerUnit)
	}
	if !a.CreatedAt.Equal(b.CreatedAt) {
		return a.CreatedAt.Before(b.CreatedAt)
	}
	return a.BidID < b.BidID
}

// SortBids sorts bids in place into rank order
func SortBids(bids []model.Bid) {
	sort.SliceStable(bids, func(i, j int) bool { return Less(bids[i], bids[j]) })
}

// LiveBids returns the bids taking part in ranking, in rank order
func LiveBids(bids []model.Bid) []model.Bid {
	live := make([]model.Bid, 0, len(bids))
	for _, b := range bids {
		if b.Status.IsLive() {
			live = append(live, b)
		}
	}
	SortBids(live)
	return live
}

// Statistics summarises the non-cancelled bids of a listing
func Statistics(listingID string, bids []model.Bid) model.BidStatistics {
	stats := model.BidStatistics{
		ListingID:    listingID,
		HighestPrice: decimal.Zero,
		LowestPrice:  decimal.Zero,
		AveragePrice: decimal.Zero,
		TotalVolume:  decimal.Zero,
	}

	bidders := make(map[string]struct{})
	sum := decimal.Zero
	for _, b := range bids {
		if b.Status == model.BidStatusCancelled {
			continue
		}
		if stats.BidCount == 0 || b.PricePerUnit.GreaterThan(stats.HighestPrice) {
			stats.HighestPrice = b.PricePerUnit
		}
		if stats.BidCount == 0 || b.PricePerUnit.LessThan(stats.LowestPrice) {
			stats.LowestPrice = b.PricePerUnit
		}
		stats.BidCount++
		sum = sum.Add(b.PricePerUnit)
		stats.TotalVolume = stats.TotalVolume.Add(b.VolumeRequested)
		bidders[b.BidderID] = struct{}{}
	}

	stats.UniqueBidderCount = len(bidders)
	if stats.BidCount > 0 {
		stats.AveragePrice = sum.DivRound(decimal.NewFromInt(int64(stats.BidCount)), validator.MonetaryPrecision)
	}
	return stats
}
