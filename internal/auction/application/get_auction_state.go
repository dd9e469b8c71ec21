package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/pigeonAuction/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// BidDTO is the public view of a bid
type BidDTO struct {
	ID        uuid.UUID       `json:"id"`
	AuctionID uuid.UUID       `json:"auction_id"`
	BidderID  uuid.UUID       `json:"bidder_id"`
	Amount    decimal.Decimal `json:"amount"`
	IsWinning bool            `json:"is_winning"`
	CreatedAt time.Time       `json:"created_at"`
}

// AuctionStateDTO is the output DTO for exposing auction state to the UI/WS
type AuctionStateDTO struct {
	AuctionID     uuid.UUID        `json:"auction_id"`
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Breed         string           `json:"breed,omitempty"`
	RingNumber    string           `json:"ring_number,omitempty"`
	SellerID      uuid.UUID        `json:"seller_id"`
	StartingPrice decimal.Decimal  `json:"starting_price"`
	CurrentPrice  decimal.Decimal  `json:"current_price"`
	BuyNowPrice   *decimal.Decimal `json:"buy_now_price,omitempty"`
	HasReserve    bool             `json:"has_reserve"`
	StartTime     time.Time        `json:"start_time"`
	EndTime       time.Time        `json:"end_time"`
	Status        domain.Status    `json:"status"`
	Approved      bool             `json:"approved"`
	LeadingBid    *BidDTO          `json:"leading_bid,omitempty"`
}

// NewBidDTO maps a domain bid
func NewBidDTO(b *domain.Bid) *BidDTO {
	if b == nil {
		return nil
	}
	return &BidDTO{
		ID:        b.ID,
		AuctionID: b.AuctionID,
		BidderID:  b.BidderID,
		Amount:    b.Amount,
		IsWinning: b.IsWinning,
		CreatedAt: b.CreatedAt,
	}
}

// the reserve amount itself is never exposed to bidders, only whether one exists
func newAuctionStateDTO(a *domain.Auction, leading *domain.Bid) *AuctionStateDTO {
	return &AuctionStateDTO{
		AuctionID:     a.ID,
		Title:         a.Title,
		Description:   a.Description,
		Breed:         a.Breed,
		RingNumber:    a.RingNumber,
		SellerID:      a.SellerID,
		StartingPrice: a.StartingPrice,
		CurrentPrice:  a.CurrentPrice,
		BuyNowPrice:   a.BuyNowPrice,
		HasReserve:    a.HasReserve(),
		StartTime:     a.StartTime,
		EndTime:       a.EndTime,
		Status:        a.Status,
		Approved:      a.Approved,
		LeadingBid:    NewBidDTO(leading),
	}
}

// GetAuctionStateUseCase retrieves the current state of an auction
type GetAuctionStateUseCase struct {
	gateway domain.Gateway
}

// NewGetAuctionStateUseCase creates a new instance of GetAuctionStateUseCase.
func NewGetAuctionStateUseCase(gateway domain.Gateway) *GetAuctionStateUseCase {
	return &GetAuctionStateUseCase{gateway: gateway}
}

func (uc *GetAuctionStateUseCase) Execute(ctx context.Context, auctionID uuid.UUID) (*AuctionStateDTO, error) {
	lot, err := uc.gateway.GetAuction(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("get auction %s: %w", auctionID, classify(err))
	}
	bid, err := uc.gateway.GetHighestBid(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("get highest bid for %s: %w", auctionID, classify(err))
	}
	return newAuctionStateDTO(lot, bid), nil
}

// ListBids returns the bids of an auction, oldest first
func (uc *GetAuctionStateUseCase) ListBids(ctx context.Context, auctionID uuid.UUID) ([]*BidDTO, error) {
	if _, err := uc.gateway.GetAuction(ctx, auctionID); err != nil {
		return nil, fmt.Errorf("get auction %s: %w", auctionID, classify(err))
	}
	bids, err := uc.gateway.ListBids(ctx, auctionID)
	if err != nil {
		return nil, fmt.Errorf("list bids for %s: %w", auctionID, classify(err))
	}
	out := make([]*BidDTO, 0, len(bids))
	for _, b := range bids {
		out = append(out, NewBidDTO(b))
	}
	return out, nil
}

// List returns auctions matching the filter, without leading bids
func (uc *GetAuctionStateUseCase) List(ctx context.Context, filter domain.ListFilter) ([]*AuctionStateDTO, error) {
	lots, err := uc.gateway.ListAuctions(ctx, filter)
	if err != nil {
		return nil, fmt.Errorf("list auctions: %w", classify(err))
	}
	out := make([]*AuctionStateDTO, 0, len(lots))
	for _, a := range lots {
		out = append(out, newAuctionStateDTO(a, nil))
	}
	return out, nil
}
