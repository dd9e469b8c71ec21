package application

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/pigeonAuction/internal/auction/domain"
	notification "github.com/cristianortiz/pigeonAuction/internal/notification/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

// FinalizeResult is the output DTO of FinalizeAuction
type FinalizeResult struct {
	AuctionID  uuid.UUID        `json:"auction_id"`
	Success    bool             `json:"success"`
	Message    string           `json:"message"`
	Outcome    domain.Outcome   `json:"outcome"`
	WinnerID   *uuid.UUID       `json:"winner_id,omitempty"`
	FinalPrice *decimal.Decimal `json:"final_price,omitempty"`
	ReserveMet bool             `json:"reserve_met"`
	// HighestBid is reported for unsold auctions too, FinalPrice only when sold
	HighestBid *decimal.Decimal `json:"highest_bid,omitempty"`
	SaleID     *uuid.UUID       `json:"sale_id,omitempty"`
}

// FinalizeAuctionUseCase closes an ACTIVE auction exactly once
type FinalizeAuctionUseCase struct {
	gateway   domain.Gateway
	publisher UpdatePublisher
	now       Clock
}

func NewFinalizeAuctionUseCase(gateway domain.Gateway, publisher UpdatePublisher, now Clock) *FinalizeAuctionUseCase {
	if publisher == nil {
		publisher = NopPublisher{}
	}
	if now == nil {
		now = time.Now
	}
	return &FinalizeAuctionUseCase{gateway: gateway, publisher: publisher, now: now}
}

// Execute finalizes the auction. Calling it on an auction that is no longer
// ACTIVE is not an error: the result has Success=false and Outcome NOT_ACTIVE
// and nothing is written, so schedulers can call it as often as they like.
func (uc *FinalizeAuctionUseCase) Execute(ctx context.Context, auctionID uuid.UUID) (*FinalizeResult, error) {
	log.Info("Executing FinalizeAuctionUseCase", zap.String("auctionID", auctionID.String()))

	var result *FinalizeResult
	err := uc.gateway.RunAtomic(ctx, func(ctx context.Context, tx domain.Tx) error {
		lot, err := tx.LockAuction(ctx, auctionID)
		if err != nil {
			return err
		}
		// only ACTIVE may move to ENDED, anything else is the no-op result
		if err := domain.ValidateTransition(lot.Status, domain.StatusEnded); err != nil {
			result = notActiveResult(auctionID, lot.Status)
			return nil
		}

		highest, err := tx.HighestBid(ctx, auctionID)
		if err != nil {
			return fmt.Errorf("load highest bid: %w", err)
		}
		decision := domain.DecideOutcome(lot, highest)

		// conditional update, a concurrent finalize that got here first wins
		ok, err := tx.UpdateStatus(ctx, auctionID, domain.StatusActive, domain.StatusEnded)
		if err != nil {
			return fmt.Errorf("end auction: %w", err)
		}
		if !ok {
			result = notActiveResult(auctionID, lot.Status)
			return nil
		}

		now := uc.now()
		res := &FinalizeResult{
			AuctionID:  auctionID,
			Success:    true,
			Outcome:    decision.Outcome,
			ReserveMet: decision.ReserveMet,
			WinnerID:   decision.WinnerID(),
			FinalPrice: decision.FinalPrice(),
			HighestBid: decision.HighestAmount,
		}
		if err := uc.applyOutcome(ctx, tx, lot, decision, res, now); err != nil {
			return err
		}
		result = res
		return nil
	})
	if err != nil {
		err = classify(err)
		if domain.IsRejection(err) {
			log.Warn("FinalizeAuctionUseCase: finalize rejected",
				zap.String("auctionID", auctionID.String()),
				zap.Error(err),
			)
		} else {
			log.Error("FinalizeAuctionUseCase: finalize failed, auction left untouched",
				zap.String("auctionID", auctionID.String()),
				zap.Error(err),
			)
		}
		return nil, fmt.Errorf("finalize auction %s: %w", auctionID, err)
	}

	if !result.Success {
		log.Info("FinalizeAuctionUseCase: nothing to do",
			zap.String("auctionID", auctionID.String()),
			zap.String("message", result.Message),
		)
		return result, nil
	}

	log.Info("Auction finalized",
		zap.String("auctionID", auctionID.String()),
		zap.String("outcome", string(result.Outcome)),
		zap.Bool("reserveMet", result.ReserveMet),
	)
	uc.publisher.AuctionFinalized(ctx, result)
	return result, nil
}

// applyOutcome writes the outcome artifacts inside the same tx as the status change
func (uc *FinalizeAuctionUseCase) applyOutcome(ctx context.Context, tx domain.Tx, lot *domain.Auction,
	decision domain.Decision, res *FinalizeResult, now time.Time) error {

	payload := map[string]string{
		"auction_id":    lot.ID.String(),
		"auction_title": lot.Title,
	}
	if decision.HighestAmount != nil {
		payload["highest_bid"] = decision.HighestAmount.StringFixed(2)
	}

	switch decision.Outcome {
	case domain.OutcomeSold:
		win := decision.WinningBid
		sale := &domain.Sale{
			ID:        uuid.New(),
			AuctionID: lot.ID,
			SellerID:  lot.SellerID,
			BuyerID:   win.BidderID,
			BidID:     win.ID,
			Amount:    win.Amount,
			CreatedAt: now,
		}
		if err := tx.InsertSale(ctx, sale); err != nil {
			return fmt.Errorf("insert sale: %w", err)
		}
		res.SaleID = &sale.ID
		res.Message = fmt.Sprintf("auction sold for %s", win.Amount.StringFixed(2))

		payload["final_price"] = win.Amount.StringFixed(2)
		payload["sale_id"] = sale.ID.String()
		if err := tx.EnqueueNotification(ctx, notification.New(win.BidderID, notification.KindAuctionWon, payload, now)); err != nil {
			return fmt.Errorf("enqueue winner notification: %w", err)
		}
		if err := tx.EnqueueNotification(ctx, notification.New(lot.SellerID, notification.KindAuctionSold, payload, now)); err != nil {
			return fmt.Errorf("enqueue seller notification: %w", err)
		}
	case domain.OutcomeReserveNotMet:
		payload["reserve_price"] = lot.ReservePrice.StringFixed(2)
		res.Message = "auction ended, reserve price not met"
		if err := tx.EnqueueNotification(ctx, notification.New(lot.SellerID, notification.KindReserveNotMet, payload, now)); err != nil {
			return fmt.Errorf("enqueue seller notification: %w", err)
		}
	case domain.OutcomeNoBids:
		res.Message = "auction ended without bids"
		if err := tx.EnqueueNotification(ctx, notification.New(lot.SellerID, notification.KindAuctionUnsold, payload, now)); err != nil {
			return fmt.Errorf("enqueue seller notification: %w", err)
		}
	}
	return nil
}

func notActiveResult(auctionID uuid.UUID, status domain.Status) *FinalizeResult {
	return &FinalizeResult{
		AuctionID: auctionID,
		Success:   false,
		Outcome:   domain.OutcomeNotActive,
		Message:   fmt.Sprintf("%s (status %s)", domain.ErrAlreadyFinalizedOrNotActive, status),
	}
}
