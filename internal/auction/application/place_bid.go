package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/pigeonAuction/internal/auction/domain"
	"github.com/cristianortiz/pigeonAuction/internal/shared/logger"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// PlaceBidDTO is DTO input for PlaceBid useCase, contains the necesary data to make a bid
type PlaceBidDTO struct {
	AuctionID uuid.UUID
	BidderID  uuid.UUID
	Amount    decimal.Decimal
}

// PlaceBidUseCase is the bid ledger: validates a bid and records it as the new leader
type PlaceBidUseCase struct {
	gateway   domain.Gateway
	publisher UpdatePublisher
	now       Clock
}

// NewPlaceBidUseCase creates a new instace of PlaceBidUseCase struct, it receives dependency through injection
func NewPlaceBidUseCase(gateway domain.Gateway, publisher UpdatePublisher, now Clock) *PlaceBidUseCase {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if now == nil {
		now = time.Now
	}
	return &PlaceBidUseCase{
		gateway:   gateway,
		publisher: publisher,
		now:       now,
	}
}

func (uc *PlaceBidUseCase) Execute(ctx context.Context, cmd PlaceBidDTO) (*domain.Bid, error) {
	log.Info("Executing PlaceBidUseCase",
		zap.String("auctionID", cmd.AuctionID.String()),
		zap.String("bidderID", cmd.BidderID.String()),
		zap.String("amount", cmd.Amount.String()),
	)
	// 1. input validation, before touching the store
	if err := domain.ValidateAmount(cmd.Amount); err != nil {
		log.Warn("PlaceBidUseCase: Invalid bid amount",
			zap.String("auctionID", cmd.AuctionID.String()),
			zap.String("bidderID", cmd.BidderID.String()),
			zap.String("amount", cmd.Amount.String()),
		)
		return nil, fmt.Errorf("place bid: %w", err)
	}

	var (
		newBid  *domain.Bid
		auction *domain.Auction
	)
	//2. everything else happens in one atomic unit, the auction row lock
	// serializes concurrent bids on the same auction
	err := uc.gateway.RunAtomic(ctx, func(ctx context.Context, tx domain.Tx) error {
		lot, err := tx.LockAuction(ctx, cmd.AuctionID)
		if err != nil {
			return err
		}
		highest, err := tx.HighestBid(ctx, cmd.AuctionID)
		if err != nil {
			return fmt.Errorf("load highest bid: %w", err)
		}

		now := uc.now()
		if err := lot.CheckBid(cmd.Amount, highest, now); err != nil {
			return err
		}

		bid := domain.NewBid(uuid.New(), lot.ID, cmd.BidderID, cmd.Amount, now)
		// previous leader goes first, only one winning bid per auction is allowed at any time
		if err := tx.ClearWinning(ctx, lot.ID, bid.ID); err != nil {
			return fmt.Errorf("clear previous leader: %w", err)
		}
		if err := tx.InsertBid(ctx, bid); err != nil {
			return fmt.Errorf("insert bid: %w", err)
		}
		if err := tx.UpdateCurrentPrice(ctx, lot.ID, bid.Amount); err != nil {
			return fmt.Errorf("update current price: %w", err)
		}

		lot.CurrentPrice = bid.Amount
		lot.UpdatedAt = now
		newBid, auction = bid, lot
		return nil
	})
	if err != nil {
		err = classify(err)
		if domain.IsRejection(err) {
			log.Warn("PlaceBidUseCase: bid rejected",
				zap.String("auctionID", cmd.AuctionID.String()),
				zap.String("bidderID", cmd.BidderID.String()),
				zap.Error(err),
			)
		} else {
			log.Error("PlaceBidUseCase: failed to record bid",
				zap.String("auctionID", cmd.AuctionID.String()),
				zap.String("bidderID", cmd.BidderID.String()),
				zap.Error(err),
			)
		}
		return nil, fmt.Errorf("place bid on auction %s: %w", cmd.AuctionID, err)
	}

	log.Info("Bid placed successfully",
		zap.String("auctionID", auction.ID.String()),
		zap.String("bidID", newBid.ID.String()),
		zap.String("bidderID", newBid.BidderID.String()),
		zap.String("newCurrentPrice", auction.CurrentPrice.String()),
	)

	//3. tx is committed, live clients can be told about the new leader
	uc.publisher.AuctionUpdated(ctx, newAuctionStateDTO(auction, newBid))

	return newBid, nil
}
