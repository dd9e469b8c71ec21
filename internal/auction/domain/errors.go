package domain

import "errors"

var (
	ErrAuctionNotFound             = errors.New("auction not found")
	ErrAuctionNotActive            = errors.New("auction is not active")
	ErrAuctionExpired              = errors.New("auction has expired")
	ErrBidTooLow                   = errors.New("bid amount is too low")
	ErrInvalidAmount               = errors.New("invalid bid amount")
	ErrAlreadyFinalizedOrNotActive = errors.New("auction is already finalized or not active")
	ErrInvalidTransition           = errors.New("invalid auction status transition")
	ErrInvalidAuction              = errors.New("invalid auction")
	ErrForbidden                   = errors.New("operation not allowed for this user")
	ErrPersistenceFailure          = errors.New("persistence failure")
)

// IsRejection reports whether err is a business rejection, as opposed to an infrastructure failure
func IsRejection(err error) bool {
	switch {
	case errors.Is(err, ErrAuctionNotFound),
		errors.Is(err, ErrAuctionNotActive),
		errors.Is(err, ErrAuctionExpired),
		errors.Is(err, ErrBidTooLow),
		errors.Is(err, ErrInvalidAmount),
		errors.Is(err, ErrAlreadyFinalizedOrNotActive),
		errors.Is(err, ErrInvalidTransition),
		errors.Is(err, ErrInvalidAuction),
		errors.Is(err, ErrForbidden):
		return true
	}
	return false
}
