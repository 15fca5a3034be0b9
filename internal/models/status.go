package models

// ListingStatus is the lifecycle state of a listing
type ListingStatus string

const (
	ListingStatusDraft     ListingStatus = "draft"
	ListingStatusScheduled ListingStatus = "scheduled"
	ListingStatusActive    ListingStatus = "active"
	ListingStatusSuspended ListingStatus = "suspended"
	ListingStatusClosing   ListingStatus = "closing"
	ListingStatusClosed    ListingStatus = "closed"
)

// listingTransitions lists every allowed lifecycle move.
// suspended -> {scheduled, active} is only reachable through approval, which restores SuspendedFrom.
var listingTransitions = map[ListingStatus][]ListingStatus{
	ListingStatusDraft:     {ListingStatusScheduled},
	ListingStatusScheduled: {ListingStatusActive, ListingStatusSuspended},
	ListingStatusActive:    {ListingStatusClosing, ListingStatusSuspended},
	ListingStatusSuspended: {ListingStatusScheduled, ListingStatusActive},
	ListingStatusClosing:   {ListingStatusClosed},
	ListingStatusClosed:    {},
}

// CanTransitionTo reports whether the lifecycle allows moving to next
func (s ListingStatus) CanTransitionTo(next ListingStatus) bool {
	for _, allowed := range listingTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsValid reports whether s is a known listing status
func (s ListingStatus) IsValid() bool {
	_, ok := listingTransitions[s]
	return ok
}

// BidStatus is the lifecycle state of a bid
type BidStatus string

const (
	BidStatusActive    BidStatus = "active"
	BidStatusWinning   BidStatus = "winning"
	BidStatusOutbid    BidStatus = "outbid"
	BidStatusWon       BidStatus = "won"
	BidStatusPaid      BidStatus = "paid"
	BidStatusLost      BidStatus = "lost"
	BidStatusCancelled BidStatus = "cancelled"
)

var bidTransitions = map[BidStatus][]BidStatus{
	BidStatusActive:    {BidStatusWinning, BidStatusOutbid, BidStatusCancelled, BidStatusWon, BidStatusLost},
	BidStatusWinning:   {BidStatusOutbid, BidStatusCancelled, BidStatusWon, BidStatusLost},
	BidStatusOutbid:    {BidStatusWinning, BidStatusCancelled, BidStatusWon, BidStatusLost},
	BidStatusWon:       {BidStatusPaid},
	BidStatusPaid:      {},
	BidStatusLost:      {},
	BidStatusCancelled: {},
}

// CanTransitionTo reports whether a bid may move to next. Staying put is always allowed.
func (s BidStatus) CanTransitionTo(next BidStatus) bool {
	if s == next {
		return true
	}
	for _, allowed := range bidTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// IsLive reports whether the bid takes part in ranking
func (s BidStatus) IsLive() bool {
	return s == BidStatusActive || s == BidStatusWinning || s == BidStatusOutbid
}

// IsTerminal reports whether the bid can no longer be edited
func (s BidStatus) IsTerminal() bool {
	switch s {
	case BidStatusWon, BidStatusPaid, BidStatusLost, BidStatusCancelled:
		return true
	}
	return false
}

// VolumeMode tells whether a bid accepts a partial allocation of the lot
type VolumeMode string

const (
	VolumeModePartial VolumeMode = "partial"
	VolumeModeFull    VolumeMode = "full"
)

// IsValid reports whether m is a known volume mode
func (m VolumeMode) IsValid() bool {
	return m == VolumeModePartial || m == VolumeModeFull
}

// BidEventReason records why a bid changed
type BidEventReason string

const (
	BidEventPlaced      BidEventReason = "placed"
	BidEventRaised      BidEventReason = "raised"
	BidEventUpdated     BidEventReason = "updated"
	BidEventAutoRaised  BidEventReason = "auto_raised"
	BidEventCancelled   BidEventReason = "cancelled"
	BidEventSettledWon  BidEventReason = "settled_won"
	BidEventSettledLost BidEventReason = "settled_lost"
	BidEventPaid        BidEventReason = "paid"
)

// SettlementOutcome is the result class of a settlement
type SettlementOutcome string

const (
	SettlementOutcomeWon    SettlementOutcome = "won"
	SettlementOutcomeUnsold SettlementOutcome = "unsold"
)

// CloseTrigger tells what caused a listing to close
type CloseTrigger string

const (
	CloseTriggerTimer  CloseTrigger = "timer"
	CloseTriggerManual CloseTrigger = "manual"
)

// IsValid reports whether t is a known trigger
func (t CloseTrigger) IsValid() bool {
	return t == CloseTriggerTimer || t == CloseTriggerManual
}
