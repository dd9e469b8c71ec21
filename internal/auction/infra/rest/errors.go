package rest

import (
	"errors"
	"net/http"

	"github.com/cristianortiz/pigeonAuction/internal/auction/domain"
)

var (
	errUnauthenticated = errors.New("authentication required")
	errInvalidRequest  = errors.New("invalid request payload")
	errRateLimited     = errors.New("too many bids, slow down")
)

// MapErrorToHTTP maps domain errors to a status code and a short message
func MapErrorToHTTP(err error) (int, string) {
	switch {
	case errors.Is(err, errInvalidRequest):
		return http.StatusBadRequest, "invalid request payload"
	case errors.Is(err, errUnauthenticated):
		return http.StatusUnauthorized, "authentication required"
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests, "too many requests"
	case errors.Is(err, domain.ErrInvalidAmount):
		return http.StatusBadRequest, "invalid bid amount"
	case errors.Is(err, domain.ErrInvalidAuction):
		return http.StatusBadRequest, "invalid auction details"
	case errors.Is(err, domain.ErrAuctionNotFound):
		return http.StatusNotFound, "auction not found"
	case errors.Is(err, domain.ErrForbidden):
		return http.StatusForbidden, "operation not allowed"
	case errors.Is(err, domain.ErrAuctionNotActive):
		return http.StatusConflict, "auction is not active"
	case errors.Is(err, domain.ErrAuctionExpired):
		return http.StatusConflict, "auction has expired"
	case errors.Is(err, domain.ErrBidTooLow):
		return http.StatusConflict, "bid amount too low"
	case errors.Is(err, domain.ErrInvalidTransition):
		return http.StatusConflict, "invalid status change"
	case errors.Is(err, domain.ErrAlreadyFinalizedOrNotActive):
		return http.StatusConflict, "auction already finalized or not active"
	case errors.Is(err, domain.ErrPersistenceFailure):
		return http.StatusServiceUnavailable, "temporarily unavailable, try again"
	default:
		return http.StatusInternalServerError, "internal server error"
	}
}
