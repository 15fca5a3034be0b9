package models

import "time"

// EventType names a notification emitted by the bidding core
type EventType string

const (
	EventBidPlaced               EventType = "bid_placed"
	EventBidOutbid               EventType = "bid_outbid"
	EventAutoBidTriggered        EventType = "auto_bid_triggered"
	EventAuctionWon              EventType = "auction_won"
	EventBidLost                 EventType = "bid_lost"
	EventListingSold             EventType = "listing_sold"
	EventListingClosedUnsold     EventType = "listing_closed_unsold"
	EventPaymentCaptureRequested EventType = "payment_capture_requested"
)

// Event is a notification produced by a state transition.
// Transitions return events; a dispatcher delivers them after the listing lock is released.
type Event struct {
	EventID     string         `json:"event_id"`
	Type        EventType      `json:"type"`
	RecipientID string         `json:"recipient_id"`
	ListingID   string         `json:"listing_id"`
	BidID       string         `json:"bid_id,omitempty"`
	Data        map[string]any `json:"data,omitempty"`
	CreatedAt   time.Time      `json:"created_at"`
}
