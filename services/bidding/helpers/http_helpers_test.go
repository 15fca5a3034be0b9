package helpers

import (
	"errors"
	"fmt"
	"net/http"
	"testing"
	"time"

	"bulk-auction/internal/biddingerrors"
	model "bulk-auction/internal/models"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func TestMapErrorToHTTP(t *testing.T) {
	tests := []struct {
		name           string
		err            error
		expectedStatus int
	}{
		{name: "malformed_bid", err: biddingerrors.ErrInvalidBid, expectedStatus: http.StatusBadRequest},
		{name: "unknown_trigger", err: biddingerrors.ErrInvalidTrigger, expectedStatus: http.StatusBadRequest},
		{name: "price_rule", err: biddingerrors.ErrPriceTooLow, expectedStatus: http.StatusUnprocessableEntity},
		{name: "precision_rule", err: biddingerrors.ErrTooPrecise, expectedStatus: http.StatusUnprocessableEntity},
		{name: "wrapped_rule", err: fmt.Errorf("service: %w", biddingerrors.ErrSelfBid), expectedStatus: http.StatusUnprocessableEntity},
		{name: "listing_missing", err: biddingerrors.ErrListingNotFound, expectedStatus: http.StatusNotFound},
		{name: "generic_not_found", err: fmt.Errorf("x: %w", biddingerrors.ErrNotFound), expectedStatus: http.StatusNotFound},
		{name: "lock_timeout", err: biddingerrors.ErrLockTimeout, expectedStatus: http.StatusConflict},
		{name: "state", err: biddingerrors.ErrListingClosed, expectedStatus: http.StatusConflict},
		{name: "unknown", err: errors.New("disk on fire"), expectedStatus: http.StatusInternalServerError},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			status, message := MapErrorToHTTP(tc.err)
			require.Equal(t, tc.expectedStatus, status)
			require.NotEmpty(t, message)
		})
	}
}

func TestNewBidResponse(t *testing.T) {
	ceiling := decimal.RequireFromString("70")
	now := time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)
	bid := model.Bid{
		BidID:            "bid1",
		ListingID:        "listing1",
		BidderID:         "buyer1",
		PricePerUnit:     decimal.RequireFromString("12.5"),
		VolumeRequested:  decimal.RequireFromString("4"),
		VolumeMode:       model.VolumeModePartial,
		Status:           model.BidStatusOutbid,
		Rank:             3,
		AutoRaiseCeiling: &ceiling,
		IsAutoBid:        true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}

	resp := NewBidResponse(bid, true)
	require.Equal(t, "50", resp.TotalBidValue)
	require.Equal(t, 3, resp.Rank)
	require.False(t, resp.IsWinning)
	require.NotNil(t, resp.AutoRaiseCeiling)
	require.Equal(t, "70", *resp.AutoRaiseCeiling)
	require.Equal(t, "2026-03-01T12:00:00Z", resp.CreatedAt)

	bid.Status = model.BidStatusWinning
	bid.Rank = 1
	require.True(t, NewBidResponse(bid, true).IsWinning)
	leaderAfterClose := NewBidResponse(bid, false)
	require.False(t, leaderAfterClose.IsWinning)
	require.Equal(t, 1, leaderAfterClose.Rank)

	bid.Status = model.BidStatusCancelled
	require.Zero(t, NewBidResponse(bid, true).Rank)
	require.NotNil(t, NewBidResponses(nil, func(string) bool { return true }))
}
