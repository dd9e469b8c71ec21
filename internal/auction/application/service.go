package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cristianortiz/pigeonAuction/internal/auction/domain"
	"github.com/google/uuid"
)

// Clock returns the current time, injected so tests can move time around
type Clock func() time.Time

// UpdatePublisher pushes committed changes to live subscribers (websocket hub).
// Calls are best effort and happen after the commit.
type UpdatePublisher interface {
	AuctionUpdated(ctx context.Context, state *AuctionStateDTO)
	AuctionFinalized(ctx context.Context, result *FinalizeResult)
}

// NopPublisher drops every update
type NopPublisher struct{}

func (NopPublisher) AuctionUpdated(context.Context, *AuctionStateDTO)  {}
func (NopPublisher) AuctionFinalized(context.Context, *FinalizeResult) {}

//go:generate mockgen -source=service.go -destination=mock/service.go -package=mock AuctionService

// AuctionService defines application interface layer of auction module
// exposes uses cases to external layer, aka infra
type AuctionService interface {
	// Placebid handles logic when a user makes a bid in an auction
	// receives a command with necesary data and returns the created bid or an error
	PlaceBid(ctx context.Context, cmd PlaceBidDTO) (*domain.Bid, error)
	FinalizeAuction(ctx context.Context, auctionID uuid.UUID) (*FinalizeResult, error)
	CreateAuction(ctx context.Context, cmd CreateAuctionDTO) (*AuctionStateDTO, error)
	ApproveAuction(ctx context.Context, auctionID uuid.UUID) (*AuctionStateDTO, error)
	CancelAuction(ctx context.Context, auctionID uuid.UUID) (*AuctionStateDTO, error)
	GetAuctionState(ctx context.Context, auctionID uuid.UUID) (*AuctionStateDTO, error)
	ListBids(ctx context.Context, auctionID uuid.UUID) ([]*BidDTO, error)
	ListAuctions(ctx context.Context, filter domain.ListFilter) ([]*AuctionStateDTO, error)
	// ExpiredAuctionIDs lists ACTIVE auctions past their end time, used by the scheduler
	ExpiredAuctionIDs(ctx context.Context, limit int) ([]uuid.UUID, error)
}

// concret implementation of AuctionService (struct)
type auctionService struct {
	placeBidUC        *PlaceBidUseCase
	finalizeUC        *FinalizeAuctionUseCase
	lifecycleUC       *LifecycleUseCase
	getAuctionStateUC *GetAuctionStateUseCase
	gateway           domain.Gateway
	now               Clock
}

func NewAuctionService(placeBidUC *PlaceBidUseCase,
	finalizeUC *FinalizeAuctionUseCase,
	lifecycleUC *LifecycleUseCase,
	getAuctionStateUC *GetAuctionStateUseCase,
	gateway domain.Gateway,
	now Clock) AuctionService {

	if now == nil {
		now = time.Now
	}
	return &auctionService{
		placeBidUC:        placeBidUC,
		finalizeUC:        finalizeUC,
		lifecycleUC:       lifecycleUC,
		getAuctionStateUC: getAuctionStateUC,
		gateway:           gateway,
		now:               now,
	}
}

// New wires every use case over one gateway
func New(gateway domain.Gateway, publisher UpdatePublisher, now Clock) AuctionService {
	return NewAuctionService(
		NewPlaceBidUseCase(gateway, publisher, now),
		NewFinalizeAuctionUseCase(gateway, publisher, now),
		NewLifecycleUseCase(gateway, now),
		NewGetAuctionStateUseCase(gateway),
		gateway,
		now,
	)
}

// PlaceBid implements AuctionService.
func (as *auctionService) PlaceBid(ctx context.Context, cmd PlaceBidDTO) (*domain.Bid, error) {
	return as.placeBidUC.Execute(ctx, cmd)
}

func (as *auctionService) FinalizeAuction(ctx context.Context, auctionID uuid.UUID) (*FinalizeResult, error) {
	return as.finalizeUC.Execute(ctx, auctionID)
}

func (as *auctionService) CreateAuction(ctx context.Context, cmd CreateAuctionDTO) (*AuctionStateDTO, error) {
	a, err := as.lifecycleUC.Create(ctx, cmd)
	if err != nil {
		return nil, err
	}
	return newAuctionStateDTO(a, nil), nil
}

func (as *auctionService) ApproveAuction(ctx context.Context, auctionID uuid.UUID) (*AuctionStateDTO, error) {
	a, err := as.lifecycleUC.Approve(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	return newAuctionStateDTO(a, nil), nil
}

func (as *auctionService) CancelAuction(ctx context.Context, auctionID uuid.UUID) (*AuctionStateDTO, error) {
	a, err := as.lifecycleUC.Cancel(ctx, auctionID)
	if err != nil {
		return nil, err
	}
	return newAuctionStateDTO(a, nil), nil
}

// GetAuctionState to implementss AuctionService
func (as *auctionService) GetAuctionState(ctx context.Context, auctionID uuid.UUID) (*AuctionStateDTO, error) {
	return as.getAuctionStateUC.Execute(ctx, auctionID)
}

func (as *auctionService) ListBids(ctx context.Context, auctionID uuid.UUID) ([]*BidDTO, error) {
	return as.getAuctionStateUC.ListBids(ctx, auctionID)
}

func (as *auctionService) ListAuctions(ctx context.Context, filter domain.ListFilter) ([]*AuctionStateDTO, error) {
	return as.getAuctionStateUC.List(ctx, filter)
}

func (as *auctionService) ExpiredAuctionIDs(ctx context.Context, limit int) ([]uuid.UUID, error) {
	lots, err := as.gateway.ListExpiredActive(ctx, as.now(), limit)
	if err != nil {
		return nil, fmt.Errorf("list expired auctions: %w", classify(err))
	}
	ids := make([]uuid.UUID, 0, len(lots))
	for _, a := range lots {
		ids = append(ids, a.ID)
	}
	return ids, nil
}

// classify keeps business rejections as they are and tags everything else
// as a persistence failure, so the boundary can tell "retry" from "rejected"
func classify(err error) error {
	if err == nil || domain.IsRejection(err) || errors.Is(err, domain.ErrPersistenceFailure) {
		return err
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return err
	}
	return fmt.Errorf("%w: %w", domain.ErrPersistenceFailure, err)
}
