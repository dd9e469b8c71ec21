package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/pigeonAuction/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// CreateAuctionDTO is the seller input for a new listing
type CreateAuctionDTO struct {
	SellerID      uuid.UUID
	Title         string
	Description   string
	Breed         string
	RingNumber    string
	StartingPrice decimal.Decimal
	BuyNowPrice   *decimal.Decimal
	ReservePrice  *decimal.Decimal
	StartTime     time.Time
	EndTime       time.Time
}

// LifecycleUseCase covers the status moves that are not finalization:
// create (PENDING), admin approve (ACTIVE) and cancel (CANCELLED)
type LifecycleUseCase struct {
	gateway domain.Gateway
	now     Clock
}

func NewLifecycleUseCase(gateway domain.Gateway, now Clock) *LifecycleUseCase {
	if now == nil {
		now = time.Now
	}
	return &LifecycleUseCase{gateway: gateway, now: now}
}

// Create validates and stores a new PENDING auction
func (uc *LifecycleUseCase) Create(ctx context.Context, cmd CreateAuctionDTO) (*domain.Auction, error) {
	auction, err := domain.NewAuction(domain.NewAuctionParams{
		Title:         cmd.Title,
		Description:   cmd.Description,
		Breed:         cmd.Breed,
		RingNumber:    cmd.RingNumber,
		SellerID:      cmd.SellerID,
		StartingPrice: cmd.StartingPrice,
		BuyNowPrice:   cmd.BuyNowPrice,
		ReservePrice:  cmd.ReservePrice,
		StartTime:     cmd.StartTime,
		EndTime:       cmd.EndTime,
	}, uc.now())
	if err != nil {
		log.Warn("LifecycleUseCase: invalid auction",
			zap.String("sellerID", cmd.SellerID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("create auction: %w", err)
	}

	err = uc.gateway.RunAtomic(ctx, func(ctx context.Context, tx domain.Tx) error {
		return tx.InsertAuction(ctx, auction)
	})
	if err != nil {
		err = classify(err)
		log.Error("LifecycleUseCase: failed to create auction",
			zap.String("sellerID", cmd.SellerID.String()),
			zap.Error(err),
		)
		return nil, fmt.Errorf("create auction: %w", err)
	}

	log.Info("Auction created",
		zap.String("auctionID", auction.ID.String()),
		zap.String("sellerID", auction.SellerID.String()),
		zap.Time("endTime", auction.EndTime),
	)
	return auction, nil
}

// Approve moves a PENDING auction to ACTIVE
func (uc *LifecycleUseCase) Approve(ctx context.Context, auctionID uuid.UUID) (*domain.Auction, error) {
	return uc.transition(ctx, auctionID, domain.StatusActive)
}

// Cancel moves a PENDING or ACTIVE auction to CANCELLED
func (uc *LifecycleUseCase) Cancel(ctx context.Context, auctionID uuid.UUID) (*domain.Auction, error) {
	return uc.transition(ctx, auctionID, domain.StatusCancelled)
}

func (uc *LifecycleUseCase) transition(ctx context.Context, auctionID uuid.UUID, to domain.Status) (*domain.Auction, error) {
	var updated *domain.Auction
	err := uc.gateway.RunAtomic(ctx, func(ctx context.Context, tx domain.Tx) error {
		lot, err := tx.LockAuction(ctx, auctionID)
		if err != nil {
			return err
		}
		from := lot.Status
		if err := domain.ValidateTransition(from, to); err != nil {
			return err
		}
		ok, err := tx.UpdateStatus(ctx, auctionID, from, to)
		if err != nil {
			return fmt.Errorf("update status: %w", err)
		}
		if !ok {
			return fmt.Errorf("%w: status changed concurrently", domain.ErrInvalidTransition)
		}
		lot.Status = to
		if to == domain.StatusActive {
			lot.Approved = true
		}
		lot.UpdatedAt = uc.now()
		updated = lot
		return nil
	})
	if err != nil {
		err = classify(err)
		log.Warn("LifecycleUseCase: status change failed",
			zap.String("auctionID", auctionID.String()),
			zap.String("to", string(to)),
			zap.Error(err),
		)
		return nil, fmt.Errorf("move auction %s to %s: %w", auctionID, to, err)
	}

	log.Info("Auction status changed",
		zap.String("auctionID", auctionID.String()),
		zap.String("status", string(to)),
	)
	return updated, nil
}
