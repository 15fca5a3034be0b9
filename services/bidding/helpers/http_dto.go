package helpers

import (
	model "bulk-auction/internal/models"
	"time"

	"github.com/shopspring/decimal"
)

// Request/Response DTOs
type PlaceBidRequest struct {
	ListingID        string           `json:"listing_id" binding:"required"`
	BidderID         string           `json:"bidder_id" binding:"required"`
	PricePerUnit     decimal.Decimal  `json:"price_per_unit"`
	VolumeRequested  decimal.Decimal  `json:"volume_requested"`
	VolumeMode       string           `json:"volume_mode" binding:"omitempty,oneof=partial full"`
	AutoRaiseCeiling *decimal.Decimal `json:"auto_raise_ceiling,omitempty"`
	IsAutoBid        bool             `json:"is_auto_bid"`
	Notes            string           `json:"notes,omitempty" binding:"max=500"`
}

type UpdateBidRequest struct {
	PricePerUnit     *decimal.Decimal `json:"price_per_unit,omitempty"`
	VolumeRequested  *decimal.Decimal `json:"volume_requested,omitempty"`
	AutoRaiseCeiling *decimal.Decimal `json:"auto_raise_ceiling,omitempty"`
	Notes            string           `json:"notes,omitempty" binding:"max=500"`
}

type ScheduleListingRequest struct {
	OpensAt  time.Time `json:"opens_at" binding:"required"`
	ClosesAt time.Time `json:"closes_at" binding:"required"`
}

type BidResponse struct {
	BidID            string  `json:"bid_id"`
	ListingID        string  `json:"listing_id"`
	BidderID         string  `json:"bidder_id"`
	PricePerUnit     string  `json:"price_per_unit"`
	VolumeRequested  string  `json:"volume_requested"`
	TotalBidValue    string  `json:"total_bid_value"`
	VolumeMode       string  `json:"volume_mode"`
	Status           string  `json:"status"`
	Rank             int     `json:"rank"`
	IsWinning        bool    `json:"is_winning"`
	IsAutoBid        bool    `json:"is_auto_bid"`
	AutoRaiseCeiling *string `json:"auto_raise_ceiling,omitempty"`
	Notes            string  `json:"notes,omitempty"`
	CreatedAt        string  `json:"created_at"`
	UpdatedAt        string  `json:"updated_at"`
}

// NewBidResponse converts a bid for the wire. Terminal bids report rank 0;
// open tells whether the bid's listing still accepts bids.
func NewBidResponse(bid model.Bid, open bool) BidResponse {
	resp := BidResponse{
		BidID:           bid.BidID,
		ListingID:       bid.ListingID,
		BidderID:        bid.BidderID,
		PricePerUnit:    bid.PricePerUnit.String(),
		VolumeRequested: bid.VolumeRequested.String(),
		TotalBidValue:   bid.TotalValue().String(),
		VolumeMode:      string(bid.VolumeMode),
		Status:          string(bid.Status),
		IsWinning:       bid.Status == model.BidStatusWinning && open,
		IsAutoBid:       bid.IsAutoBid,
		Notes:           bid.Notes,
		CreatedAt:       bid.CreatedAt.UTC().Format(time.RFC3339Nano),
		UpdatedAt:       bid.UpdatedAt.UTC().Format(time.RFC3339Nano),
	}
	if bid.Status.IsLive() {
		resp.Rank = bid.Rank
	}
	if bid.AutoRaiseCeiling != nil {
		ceiling := bid.AutoRaiseCeiling.String()
		resp.AutoRaiseCeiling = &ceiling
	}
	return resp
}

// NewBidResponses converts a slice of bids; the result is never nil
func NewBidResponses(bids []model.Bid, open func(listingID string) bool) []BidResponse {
	out := make([]BidResponse, 0, len(bids))
	for _, b := range bids {
		out = append(out, NewBidResponse(b, open(b.ListingID)))
	}
	return out
}
