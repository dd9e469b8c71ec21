package domain

import (
	"context"
	"time"

	notification "github.com/cristianortiz/pigeonAuction/internal/notification/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// ListFilter narrows ListAuctions, zero value lists everything
type ListFilter struct {
	Status   *Status
	SellerID *uuid.UUID
	Limit    int
	Offset   int
}

// Gateway is the persistence boundary of the auction module.
// Reads outside RunAtomic are plain snapshots, every write goes through a Tx.
type Gateway interface {
	GetAuction(ctx context.Context, id uuid.UUID) (*Auction, error)
	// GetHighestBid returns nil, nil when the auction has no bids
	GetHighestBid(ctx context.Context, auctionID uuid.UUID) (*Bid, error)
	ListBids(ctx context.Context, auctionID uuid.UUID) ([]*Bid, error)
	ListAuctions(ctx context.Context, filter ListFilter) ([]*Auction, error)
	// ListExpiredActive returns ACTIVE auctions whose end time is before now, oldest first
	ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]*Auction, error)
	// RunAtomic commits when fn returns nil and rolls everything back otherwise.
	// Begin and commit failures come back wrapped in ErrPersistenceFailure.
	RunAtomic(ctx context.Context, fn func(ctx context.Context, tx Tx) error) error
}

// Tx is the set of operations available inside one atomic unit.
// Implementations must give at least read committed isolation plus a row lock
// taken by LockAuction, so checks made after LockAuction are serialized per auction.
type Tx interface {
	// LockAuction loads the auction and holds its row lock until the unit ends
	LockAuction(ctx context.Context, id uuid.UUID) (*Auction, error)
	HighestBid(ctx context.Context, auctionID uuid.UUID) (*Bid, error)
	InsertAuction(ctx context.Context, a *Auction) error
	InsertBid(ctx context.Context, b *Bid) error
	// ClearWinning sets is_winning=false on every bid of the auction except keepBidID
	ClearWinning(ctx context.Context, auctionID, keepBidID uuid.UUID) error
	UpdateCurrentPrice(ctx context.Context, auctionID uuid.UUID, price decimal.Decimal) error
	// UpdateStatus is a conditional update (WHERE status = from), it reports
	// false when the row was not in the expected status anymore.
	// Moving to ACTIVE also marks the auction approved.
	UpdateStatus(ctx context.Context, auctionID uuid.UUID, from, to Status) (bool, error)
	InsertSale(ctx context.Context, s *Sale) error
	EnqueueNotification(ctx context.Context, n *notification.Notification) error
}
