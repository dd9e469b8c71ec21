package domain

import (
	"fmt"
	"strings"
	"time"

	"github.com/cristianortiz/pigeonAuction/internal/shared/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// Status represents the lifecycle state of an auction
type Status string

const (
	StatusPending   Status = "PENDING"
	StatusActive    Status = "ACTIVE"
	StatusEnded     Status = "ENDED"
	StatusCancelled Status = "CANCELLED"
)

// transitions is the only source of truth for legal status moves.
// ENDED and CANCELLED are terminal, so they have no entry.
var transitions = map[Status][]Status{
	StatusPending: {StatusActive, StatusCancelled},
	StatusActive:  {StatusEnded, StatusCancelled},
}

// ParseStatus converts a stored or user supplied value into a Status
func ParseStatus(s string) (Status, error) {
	st := Status(strings.ToUpper(strings.TrimSpace(s)))
	switch st {
	case StatusPending, StatusActive, StatusEnded, StatusCancelled:
		return st, nil
	}
	return "", fmt.Errorf("unknown auction status %q", s)
}

// IsTerminal reports whether no transition can leave this status
func (s Status) IsTerminal() bool {
	return s == StatusEnded || s == StatusCancelled
}

// CanTransition checks the transition table
func CanTransition(from, to Status) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

// ValidateTransition is CanTransition with an error carrying both states
func ValidateTransition(from, to Status) error {
	if !CanTransition(from, to) {
		return fmt.Errorf("%w: %s -> %s", ErrInvalidTransition, from, to)
	}
	return nil
}

// Auction is the sale listing of one pigeon. It's the aggregate root for its bids.
type Auction struct {
	ID            uuid.UUID
	Title         string
	Description   string
	Breed         string
	RingNumber    string // leg ring id of the bird
	SellerID      uuid.UUID
	StartingPrice decimal.Decimal
	CurrentPrice  decimal.Decimal
	BuyNowPrice   *decimal.Decimal
	ReservePrice  *decimal.Decimal
	StartTime     time.Time
	EndTime       time.Time
	Status        Status
	Approved      bool
	CreatedAt     time.Time
	UpdatedAt     time.Time
}

// NewAuctionParams groups the seller input for a new listing
type NewAuctionParams struct {
	Title         string
	Description   string
	Breed         string
	RingNumber    string
	SellerID      uuid.UUID
	StartingPrice decimal.Decimal
	BuyNowPrice   *decimal.Decimal
	ReservePrice  *decimal.Decimal
	StartTime     time.Time
	EndTime       time.Time
}

// NewAuction validates seller input and returns a PENDING, unapproved auction
func NewAuction(p NewAuctionParams, now time.Time) (*Auction, error) {
	title := strings.TrimSpace(p.Title)
	if title == "" {
		return nil, fmt.Errorf("%w: title is required", ErrInvalidAuction)
	}
	if p.SellerID == uuid.Nil {
		return nil, fmt.Errorf("%w: seller is required", ErrInvalidAuction)
	}
	if why := moneyProblem(p.StartingPrice); why != "" {
		return nil, fmt.Errorf("%w: starting price %s", ErrInvalidAuction, why)
	}
	start := p.StartTime
	if start.IsZero() {
		start = now
	}
	if !p.EndTime.After(start) {
		return nil, fmt.Errorf("%w: end time must be after start time", ErrInvalidAuction)
	}
	reserve := p.ReservePrice
	if reserve != nil && reserve.IsZero() {
		// zero reserve is the same as no reserve
		reserve = nil
	}
	if reserve != nil {
		if why := moneyProblem(*reserve); why != "" {
			return nil, fmt.Errorf("%w: reserve price %s", ErrInvalidAuction, why)
		}
	}
	if reserve != nil && reserve.LessThan(p.StartingPrice) {
		return nil, fmt.Errorf("%w: reserve price cannot be lower than starting price", ErrInvalidAuction)
	}
	if p.BuyNowPrice != nil {
		if why := moneyProblem(*p.BuyNowPrice); why != "" {
			return nil, fmt.Errorf("%w: buy now price %s", ErrInvalidAuction, why)
		}
	}
	if p.BuyNowPrice != nil && !p.BuyNowPrice.GreaterThan(p.StartingPrice) {
		return nil, fmt.Errorf("%w: buy now price must exceed starting price", ErrInvalidAuction)
	}

	return &Auction{
		ID:            uuid.New(),
		Title:         title,
		Description:   p.Description,
		Breed:         p.Breed,
		RingNumber:    p.RingNumber,
		SellerID:      p.SellerID,
		StartingPrice: p.StartingPrice,
		CurrentPrice:  p.StartingPrice, //current price starts at starting price
		BuyNowPrice:   p.BuyNowPrice,
		ReservePrice:  reserve,
		StartTime:     start,
		EndTime:       p.EndTime,
		Status:        StatusPending,
		Approved:      false,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// HasReserve is true when the seller set a non zero reserve price
func (a *Auction) HasReserve() bool {
	return a.ReservePrice != nil && a.ReservePrice.IsPositive()
}

// IsExpired reports whether bidding time is over. Bids exactly at EndTime are still valid.
func (a *Auction) IsExpired(now time.Time) bool {
	return now.After(a.EndTime)
}

// CheckBid runs the auction side bid validations, first failing check wins:
// status, expiry, current price and then the current leader.
// The leader check is normally implied by the price check but both are kept
// in case current_price and the bids table ever drift apart.
func (a *Auction) CheckBid(amount decimal.Decimal, highest *Bid, now time.Time) error {
	if a.Status != StatusActive {
		log.Warn("Bid rejected: auction not active",
			zap.String("auctionID", a.ID.String()),
			zap.String("status", string(a.Status)),
			zap.String("bidAmount", amount.String()),
		)
		return fmt.Errorf("%w: auction status is %s", ErrAuctionNotActive, a.Status)
	}
	if a.IsExpired(now) {
		log.Warn("Bid rejected: auction expired",
			zap.String("auctionID", a.ID.String()),
			zap.Time("endTime", a.EndTime),
			zap.String("bidAmount", amount.String()),
		)
		return fmt.Errorf("%w: auction ended at %s", ErrAuctionExpired, a.EndTime.UTC().Format(time.RFC3339))
	}
	if !amount.GreaterThan(a.CurrentPrice) {
		log.Warn("Bid rejected: amount too low",
			zap.String("auctionID", a.ID.String()),
			zap.String("bidAmount", amount.String()),
			zap.String("currentPrice", a.CurrentPrice.String()),
		)
		return fmt.Errorf("%w: amount must exceed current price %s", ErrBidTooLow, a.CurrentPrice.StringFixed(2))
	}
	if highest != nil && !amount.GreaterThan(highest.Amount) {
		log.Warn("Bid rejected: amount does not beat current leader",
			zap.String("auctionID", a.ID.String()),
			zap.String("bidAmount", amount.String()),
			zap.String("highestBid", highest.Amount.String()),
		)
		return fmt.Errorf("%w: amount must exceed current highest bid %s", ErrBidTooLow, highest.Amount.StringFixed(2))
	}
	return nil
}
