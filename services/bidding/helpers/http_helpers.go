package helpers

import (
	"errors"
	"fmt"
	"net/http"

	"bulk-auction/internal/biddingerrors"
	"bulk-auction/utils"

	"github.com/gin-gonic/gin"
)

// HandleBindError sends a standardized JSON error for binding failures
func HandleBindError(c *gin.Context, handlerName string, err error) {
	wrappedErr := fmt.Errorf("invalid request payload: %w", err)
	utils.JSONError(c, http.StatusBadRequest, wrappedErr, "invalid request payload")
	utils.Warn(handlerName+": binding error", map[string]any{"error": err.Error()})
}

// HandleServiceError maps err to a response and logs it with the handler's fields
func HandleServiceError(c *gin.Context, handlerName string, err error, fields map[string]any) {
	status, message := MapErrorToHTTP(err)
	utils.JSONError(c, status, fmt.Errorf("%s: %w", message, err), message)

	if fields == nil {
		fields = map[string]any{}
	}
	fields["handler"] = handlerName
	fields["error"] = err.Error()
	if status >= http.StatusInternalServerError {
		utils.Error(handlerName+": request failed", fields)
		return
	}
	utils.Warn(handlerName+": request rejected", fields)
}

// ruleErrors are validation failures of a well-formed request
var ruleErrors = []struct {
	err     error
	message string
}{
	{biddingerrors.ErrAuctionNotOpen, "auction not open for bidding"},
	{biddingerrors.ErrSelfBid, "cannot bid on own listing"},
	{biddingerrors.ErrBrokerNotAllowed, "broker bids not allowed"},
	{biddingerrors.ErrPriceTooLow, "bid price too low"},
	{biddingerrors.ErrVolumeOutOfRange, "bid volume out of range"},
	{biddingerrors.ErrTooPrecise, "too many decimal places"},
	{biddingerrors.ErrInvalidAutoBid, "invalid auto-bid ceiling"},
	{biddingerrors.ErrInvalidSchedule, "invalid schedule"},
}

// MapErrorToHTTP maps domain/service errors to HTTP status code and message
func MapErrorToHTTP(err error) (int, string) {
	for _, rule := range ruleErrors {
		if errors.Is(err, rule.err) {
			return http.StatusUnprocessableEntity, rule.message
		}
	}

	switch {
	case errors.Is(err, biddingerrors.ErrListingNotFound):
		return http.StatusNotFound, "listing not found"
	case errors.Is(err, biddingerrors.ErrBidNotFound):
		return http.StatusNotFound, "bid not found"
	case errors.Is(err, biddingerrors.ErrBidderNotFound):
		return http.StatusNotFound, "bidder not found"
	case errors.Is(err, biddingerrors.ErrSettlementNotFound):
		return http.StatusNotFound, "settlement not found"
	case errors.Is(err, biddingerrors.ErrNoBids):
		return http.StatusNotFound, "no bids found for listing"
	case errors.Is(err, biddingerrors.ErrNotFound):
		return http.StatusNotFound, "not found"
	case errors.Is(err, biddingerrors.ErrLockTimeout):
		return http.StatusConflict, "listing busy, retry the request"
	case errors.Is(err, biddingerrors.ErrConflict):
		return http.StatusConflict, "conflict, retry the request"
	case errors.Is(err, biddingerrors.ErrBidTerminal):
		return http.StatusConflict, "bid is final"
	case errors.Is(err, biddingerrors.ErrBidNotWon):
		return http.StatusConflict, "bid has not won"
	case errors.Is(err, biddingerrors.ErrListingClosed):
		return http.StatusConflict, "listing already closed"
	case errors.Is(err, biddingerrors.ErrListingNotClosable):
		return http.StatusConflict, "listing cannot be closed now"
	case errors.Is(err, biddingerrors.ErrPaymentNotReady):
		return http.StatusConflict, "seller payment account not ready"
	case errors.Is(err, biddingerrors.ErrInvalidTransition):
		return http.StatusConflict, "invalid listing transition"
	case errors.Is(err, biddingerrors.ErrState):
		return http.StatusConflict, "invalid state"
	case errors.Is(err, biddingerrors.ErrValidation):
		return http.StatusBadRequest, "invalid bid details"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}

// LogSuccess is a small helper to standardize logging of successful operations
func LogSuccess(handlerName, message string, ctx map[string]any) {
	utils.Info(handlerName+": "+message, ctx)
}
