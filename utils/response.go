package utils

import (
	"errors"
	"net/http"

	"bulk-auction/internal/biddingerrors"

	"github.com/gin-gonic/gin"
)

// ErrorCode tells clients which kind of failure they got without parsing messages
type ErrorCode string

const (
	CodeValidation  ErrorCode = "validation"
	CodeNotFound    ErrorCode = "not_found"
	CodeConflict    ErrorCode = "conflict"
	CodeState       ErrorCode = "state"
	CodeRateLimited ErrorCode = "rate_limited"
	CodeInternal    ErrorCode = "internal"
)

// Retryable reports whether the same request may succeed if sent again
func (c ErrorCode) Retryable() bool {
	return c == CodeConflict || c == CodeRateLimited
}

// CodeOf classifies err by its bidding error category, falling back to the HTTP status
func CodeOf(status int, err error) ErrorCode {
	switch {
	case errors.Is(err, biddingerrors.ErrConflict):
		return CodeConflict
	case errors.Is(err, biddingerrors.ErrValidation):
		return CodeValidation
	case errors.Is(err, biddingerrors.ErrNotFound):
		return CodeNotFound
	case errors.Is(err, biddingerrors.ErrState):
		return CodeState
	}

	switch {
	case status == http.StatusTooManyRequests:
		return CodeRateLimited
	case status == http.StatusNotFound:
		return CodeNotFound
	case status == http.StatusConflict:
		return CodeConflict
	case status >= 400 && status < 500:
		return CodeValidation
	default:
		return CodeInternal
	}
}

// JSONResponse sends a structured JSON response
func JSONResponse(c *gin.Context, status int, data any, message string) {
	c.JSON(status, gin.H{
		"status":  status,
		"message": message,
		"data":    data,
	})
}

// JSONError sends a structured error response. Retryable failures also get a Retry-After header.
func JSONError(c *gin.Context, status int, err error, message string) {
	code := CodeOf(status, err)
	if code.Retryable() {
		c.Header("Retry-After", "1")
	}
	c.JSON(status, gin.H{
		"status":    status,
		"message":   message,
		"error":     err.Error(),
		"code":      code,
		"retryable": code.Retryable(),
	})
}
