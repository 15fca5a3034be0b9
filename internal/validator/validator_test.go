package validator

import (
	"bulk-auction/internal/biddingerrors"
	model "bulk-auction/internal/models"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

var now = time.Date(2026, 3, 1, 12, 0, 0, 0, time.UTC)

// Helper to create an open listing
func newListing() model.Listing {
	return model.Listing{
		ListingID:          "listing1",
		OwnerID:            "seller1",
		Currency:           "EUR",
		StartingPrice:      decimal.NewFromInt(50),
		MinimumOrderVolume: decimal.NewFromInt(10),
		AvailableVolume:    decimal.NewFromInt(100),
		AllowBrokerBids:    false,
		Status:             model.ListingStatusActive,
		OpensAt:            now.Add(-time.Hour),
		ClosesAt:           now.Add(time.Hour),
	}
}

func dec(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func decPtr(s string) *decimal.Decimal {
	d := dec(s)
	return &d
}

// Tests ValidateBid
func TestValidateBid(t *testing.T) {
	t.Parallel()

	buyer := model.Bidder{BidderID: "buyer1", AccountClass: model.AccountClassBuyer}
	broker := model.Bidder{BidderID: "broker1", AccountClass: model.AccountClassBroker}
	owner := model.Bidder{BidderID: "seller1", AccountClass: model.AccountClassBuyer}

	tests := []struct {
		name          string
		listing       func() model.Listing
		bidder        model.Bidder
		price         string
		volume        string
		expectedError error
	}{
		{name: "valid_bid", listing: newListing, bidder: buyer, price: "55", volume: "50"},
		{name: "price_equal_to_start", listing: newListing, bidder: buyer, price: "50", volume: "10"},
		{name: "volume_equal_to_available", listing: newListing, bidder: buyer, price: "50", volume: "100"},
		{
			name: "listing_not_active",
			listing: func() model.Listing {
				l := newListing()
				l.Status = model.ListingStatusScheduled
				return l
			},
			bidder: buyer, price: "55", volume: "50",
			expectedError: biddingerrors.ErrAuctionNotOpen,
		},
		{
			name: "before_opens_at",
			listing: func() model.Listing {
				l := newListing()
				l.OpensAt = now.Add(time.Minute)
				return l
			},
			bidder: buyer, price: "55", volume: "50",
			expectedError: biddingerrors.ErrAuctionNotOpen,
		},
		{
			name: "at_closes_at",
			listing: func() model.Listing {
				l := newListing()
				l.ClosesAt = now
				return l
			},
			bidder: buyer, price: "55", volume: "50",
			expectedError: biddingerrors.ErrAuctionNotOpen,
		},
		{name: "self_bid", listing: newListing, bidder: owner, price: "55", volume: "50", expectedError: biddingerrors.ErrSelfBid},
		{name: "broker_not_allowed", listing: newListing, bidder: broker, price: "55", volume: "50", expectedError: biddingerrors.ErrBrokerNotAllowed},
		{
			name: "broker_allowed",
			listing: func() model.Listing {
				l := newListing()
				l.AllowBrokerBids = true
				return l
			},
			bidder: broker, price: "55", volume: "50",
		},
		{name: "price_below_start", listing: newListing, bidder: buyer, price: "49.9999", volume: "50", expectedError: biddingerrors.ErrPriceTooLow},
		{name: "price_with_trailing_zeros", listing: newListing, bidder: buyer, price: "50.000000", volume: "50.00000"},
		{name: "price_too_precise_below_start", listing: newListing, bidder: buyer, price: "49.99995", volume: "50", expectedError: biddingerrors.ErrTooPrecise},
		{name: "price_too_precise", listing: newListing, bidder: buyer, price: "60.00004", volume: "50", expectedError: biddingerrors.ErrTooPrecise},
		{name: "volume_too_precise", listing: newListing, bidder: buyer, price: "55", volume: "20.00001", expectedError: biddingerrors.ErrTooPrecise},
		{name: "zero_price", listing: newListing, bidder: buyer, price: "0", volume: "50", expectedError: biddingerrors.ErrPriceTooLow},
		{name: "volume_below_minimum", listing: newListing, bidder: buyer, price: "55", volume: "9", expectedError: biddingerrors.ErrVolumeOutOfRange},
		{name: "volume_above_available", listing: newListing, bidder: buyer, price: "55", volume: "101", expectedError: biddingerrors.ErrVolumeOutOfRange},
		// The owner check runs before the price check
		{name: "self_bid_with_low_price", listing: newListing, bidder: owner, price: "1", volume: "50", expectedError: biddingerrors.ErrSelfBid},
		// The window check runs first
		{
			name: "closed_with_low_price",
			listing: func() model.Listing {
				l := newListing()
				l.Status = model.ListingStatusClosed
				return l
			},
			bidder: buyer, price: "1", volume: "1",
			expectedError: biddingerrors.ErrAuctionNotOpen,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := ValidateBid(tc.listing(), tc.bidder, dec(tc.price), dec(tc.volume), now)
			if tc.expectedError == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.expectedError)
			require.ErrorIs(t, err, biddingerrors.ErrValidation)
		})
	}
}

// Tests Validate volume-mode and auto-bid rules
func TestValidate(t *testing.T) {
	t.Parallel()

	buyer := model.Bidder{BidderID: "buyer1", AccountClass: model.AccountClassBuyer}

	tests := []struct {
		name          string
		candidate     Candidate
		expectedError error
	}{
		{
			name:      "partial_bid",
			candidate: Candidate{Price: dec("55"), Volume: dec("20"), Mode: model.VolumeModePartial},
		},
		{
			name:      "full_bid_whole_lot",
			candidate: Candidate{Price: dec("55"), Volume: dec("100"), Mode: model.VolumeModeFull},
		},
		{
			name:          "full_bid_part_of_lot",
			candidate:     Candidate{Price: dec("55"), Volume: dec("20"), Mode: model.VolumeModeFull},
			expectedError: biddingerrors.ErrVolumeOutOfRange,
		},
		{
			name:          "unknown_mode",
			candidate:     Candidate{Price: dec("55"), Volume: dec("20"), Mode: "some"},
			expectedError: biddingerrors.ErrInvalidBid,
		},
		{
			name:      "auto_bid_with_ceiling",
			candidate: Candidate{Price: dec("55"), Volume: dec("20"), Mode: model.VolumeModePartial, IsAutoBid: true, AutoRaiseCeiling: decPtr("65")},
		},
		{
			name:          "auto_bid_without_ceiling",
			candidate:     Candidate{Price: dec("55"), Volume: dec("20"), Mode: model.VolumeModePartial, IsAutoBid: true},
			expectedError: biddingerrors.ErrInvalidAutoBid,
		},
		{
			name:          "ceiling_too_precise",
			candidate:     Candidate{Price: dec("55"), Volume: dec("20"), Mode: model.VolumeModePartial, IsAutoBid: true, AutoRaiseCeiling: decPtr("65.00001")},
			expectedError: biddingerrors.ErrTooPrecise,
		},
		{
			name:          "ceiling_below_price",
			candidate:     Candidate{Price: dec("55"), Volume: dec("20"), Mode: model.VolumeModePartial, IsAutoBid: true, AutoRaiseCeiling: decPtr("54")},
			expectedError: biddingerrors.ErrInvalidAutoBid,
		},
		{
			name:          "listing_checks_run_first",
			candidate:     Candidate{Price: dec("10"), Volume: dec("20"), Mode: "some"},
			expectedError: biddingerrors.ErrPriceTooLow,
		},
	}

	for _, tc := range tests {
		tc := tc
		t.Run(tc.name, func(t *testing.T) {
			t.Parallel()

			err := Validate(newListing(), buyer, tc.candidate, now)
			if tc.expectedError == nil {
				require.NoError(t, err)
				return
			}
			require.ErrorIs(t, err, tc.expectedError)
		})
	}
}

func TestAtLeast(t *testing.T) {
	t.Parallel()

	require.True(t, AtLeast(dec("10.00001"), dec("10")))
	require.True(t, AtLeast(dec("10.0000"), dec("10")))
	require.False(t, AtLeast(dec("9.99999"), dec("10")))
	require.False(t, AtLeast(dec("9.9999"), dec("10")))
}

func TestWithinPrecision(t *testing.T) {
	t.Parallel()

	require.True(t, WithinPrecision(dec("60")))
	require.True(t, WithinPrecision(dec("60.1234")))
	require.True(t, WithinPrecision(dec("60.123400")))
	require.False(t, WithinPrecision(dec("60.00004")))
	require.False(t, WithinPrecision(dec("-0.00001")))
}
