package domain

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// bid represents individual offer in an auction
// is also an entity inside Auction agreggate (DDD concepts)
type Bid struct {
	ID        uuid.UUID
	AuctionID uuid.UUID
	BidderID  uuid.UUID //users id who makes the bid
	Amount    decimal.Decimal
	IsWinning bool
	CreatedAt time.Time
}

// NewBid creates the bid as the new leader of its auction
func NewBid(id, auctionID, bidderID uuid.UUID, amount decimal.Decimal, createdAt time.Time) *Bid {
	return &Bid{
		ID:        id,
		AuctionID: auctionID,
		BidderID:  bidderID,
		Amount:    amount,
		IsWinning: true,
		CreatedAt: createdAt,
	}
}

// Outbids reports whether b should rank above other when looking for the highest bid.
// Higher amount wins, on equal amounts the earlier bid keeps the lead.
func (b *Bid) Outbids(other *Bid) bool {
	if other == nil {
		return true
	}
	if c := b.Amount.Cmp(other.Amount); c != 0 {
		return c > 0
	}
	return b.CreatedAt.Before(other.CreatedAt)
}

// Sale is the transaction record of a sold auction
type Sale struct {
	ID        uuid.UUID
	AuctionID uuid.UUID
	SellerID  uuid.UUID
	BuyerID   uuid.UUID
	BidID     uuid.UUID
	Amount    decimal.Decimal
	CreatedAt time.Time
}
