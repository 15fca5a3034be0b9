package biddingerrors

import (
	"errors"
	"fmt"
)

// Error categories. Callers branch on these with errors.Is.
var (
	ErrValidation = errors.New("validation failed")
	ErrConflict   = errors.New("conflict, retry the request")
	ErrState      = errors.New("invalid state")
	ErrNotFound   = errors.New("not found")
)

// Validation errors
var (
	ErrInvalidBid       = fmt.Errorf("%w: invalid bid", ErrValidation)
	ErrAuctionNotOpen   = fmt.Errorf("%w: auction not open for bidding", ErrValidation)
	ErrSelfBid          = fmt.Errorf("%w: cannot bid on own listing", ErrValidation)
	ErrBrokerNotAllowed = fmt.Errorf("%w: broker bids not allowed on this listing", ErrValidation)
	ErrPriceTooLow      = fmt.Errorf("%w: bid price below starting price", ErrValidation)
	ErrVolumeOutOfRange = fmt.Errorf("%w: bid volume out of range", ErrValidation)
	ErrTooPrecise       = fmt.Errorf("%w: too many decimal places", ErrValidation)
	ErrInvalidAutoBid   = fmt.Errorf("%w: invalid auto-bid ceiling", ErrValidation)
	ErrInvalidSchedule  = fmt.Errorf("%w: closes_at must be after opens_at", ErrValidation)
	ErrInvalidTrigger   = fmt.Errorf("%w: unknown close trigger", ErrValidation)
)

// Conflict errors
var (
	ErrLockTimeout = fmt.Errorf("%w: listing is busy", ErrConflict)
)

// State errors
var (
	ErrBidTerminal        = fmt.Errorf("%w: bid is final", ErrState)
	ErrListingClosed      = fmt.Errorf("%w: listing already closed", ErrState)
	ErrListingNotClosable = fmt.Errorf("%w: listing cannot be closed in its current state", ErrState)
	ErrPaymentNotReady    = fmt.Errorf("%w: seller payment account not ready", ErrState)
	ErrInvalidTransition  = fmt.Errorf("%w: invalid listing transition", ErrState)
	ErrBidNotWon          = fmt.Errorf("%w: bid has not won", ErrState)
)

// Not-found errors
var (
	ErrListingNotFound    = fmt.Errorf("%w: listing", ErrNotFound)
	ErrBidNotFound        = fmt.Errorf("%w: bid", ErrNotFound)
	ErrBidderNotFound     = fmt.Errorf("%w: bidder", ErrNotFound)
	ErrSettlementNotFound = fmt.Errorf("%w: settlement", ErrNotFound)
	ErrNoBids             = fmt.Errorf("%w: no bids for listing", ErrNotFound)
)
