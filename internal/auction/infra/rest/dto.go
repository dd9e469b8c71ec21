package rest

import (
	"time"

	"github.com/shopspring/decimal"
)

// Request DTOs

type PlaceBidRequest struct {
	// decimal accepts both 120.5 and "120.50"
	Amount decimal.Decimal `json:"amount"`
}

type CreateAuctionRequest struct {
	Title         string           `json:"title"`
	Description   string           `json:"description"`
	Breed         string           `json:"breed"`
	RingNumber    string           `json:"ring_number"`
	StartingPrice decimal.Decimal  `json:"starting_price"`
	BuyNowPrice   *decimal.Decimal `json:"buy_now_price"`
	ReservePrice  *decimal.Decimal `json:"reserve_price"`
	StartTime     *time.Time       `json:"start_time"`
	EndTime       time.Time        `json:"end_time"`
}
