package application

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/cristianortiz/pigeonAuction/internal/auction/domain"
	notification "github.com/cristianortiz/pigeonAuction/internal/notification/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

func kinds(ns []*notification.Notification) []notification.Kind {
	out := make([]notification.Kind, 0, len(ns))
	for _, n := range ns {
		out = append(out, n.Kind)
	}
	return out
}

func TestFinalizeAuction_Outcomes(t *testing.T) {
	tests := []struct {
		name         string
		reserve      *decimal.Decimal
		bids         []int64
		wantOutcome  domain.Outcome
		wantReserve  bool
		wantSale     bool
		wantHighest  *decimal.Decimal
		wantNotified []notification.Kind
	}{
		{
			name:         "reserve met",
			reserve:      decPtr(500),
			bids:         []int64{450, 600},
			wantOutcome:  domain.OutcomeSold,
			wantReserve:  true,
			wantSale:     true,
			wantHighest:  decPtr(600),
			wantNotified: []notification.Kind{notification.KindAuctionWon, notification.KindAuctionSold},
		},
		{
			name:         "no reserve",
			bids:         []int64{120},
			wantOutcome:  domain.OutcomeSold,
			wantReserve:  true,
			wantSale:     true,
			wantHighest:  decPtr(120),
			wantNotified: []notification.Kind{notification.KindAuctionWon, notification.KindAuctionSold},
		},
		{
			name:         "reserve not met",
			reserve:      decPtr(500),
			bids:         []int64{300, 450},
			wantOutcome:  domain.OutcomeReserveNotMet,
			wantHighest:  decPtr(450),
			wantNotified: []notification.Kind{notification.KindReserveNotMet},
		},
		{
			name:         "no bids",
			reserve:      decPtr(500),
			wantOutcome:  domain.OutcomeNoBids,
			wantNotified: []notification.Kind{notification.KindAuctionUnsold},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			ctx := context.Background()
			id := f.activeAuction(t, tt.reserve)

			var last *domain.Bid
			for _, amount := range tt.bids {
				b, err := f.bid(t, id, amount)
				require.NoError(t, err)
				last = b
			}

			res, err := f.svc.FinalizeAuction(ctx, id)
			require.NoError(t, err)
			require.True(t, res.Success)
			require.Equal(t, tt.wantOutcome, res.Outcome)
			require.Equal(t, tt.wantReserve, res.ReserveMet)
			require.NotEmpty(t, res.Message)

			if tt.wantHighest == nil {
				require.Nil(t, res.HighestBid)
			} else {
				require.True(t, res.HighestBid.Equal(*tt.wantHighest))
			}

			sale := f.gateway.Sale(id)
			if tt.wantSale {
				require.NotNil(t, sale)
				require.NotNil(t, res.WinnerID)
				require.Equal(t, last.BidderID, *res.WinnerID)
				require.True(t, res.FinalPrice.Equal(last.Amount))
				require.Equal(t, sale.ID, *res.SaleID)
				require.Equal(t, f.seller, sale.SellerID)
				require.Equal(t, last.BidderID, sale.BuyerID)
				require.True(t, sale.Amount.Equal(last.Amount))
			} else {
				require.Nil(t, sale)
				require.Nil(t, res.WinnerID)
				require.Nil(t, res.FinalPrice, "unsold auctions report no final price")
				require.Nil(t, res.SaleID)
			}

			state, err := f.svc.GetAuctionState(ctx, id)
			require.NoError(t, err)
			require.Equal(t, domain.StatusEnded, state.Status)

			require.ElementsMatch(t, tt.wantNotified, kinds(f.outbox.All()))
			for _, n := range f.outbox.All() {
				require.Equal(t, id.String(), n.Payload["auction_id"])
				require.Equal(t, notification.StatusPending, n.Status)
				if n.Kind == notification.KindAuctionWon {
					require.Equal(t, last.BidderID, n.UserID)
				} else {
					require.Equal(t, f.seller, n.UserID)
				}
			}

			_, finalized := f.publisher.counts()
			require.Equal(t, 1, finalized)
		})
	}
}

func TestFinalizeAuction_SecondCallIsNoop(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.activeAuction(t, nil)
	_, err := f.bid(t, id, 150)
	require.NoError(t, err)

	first, err := f.svc.FinalizeAuction(ctx, id)
	require.NoError(t, err)
	require.True(t, first.Success)
	notified := len(f.outbox.All())

	second, err := f.svc.FinalizeAuction(ctx, id)
	require.NoError(t, err)
	require.False(t, second.Success)
	require.Equal(t, domain.OutcomeNotActive, second.Outcome)
	require.Contains(t, second.Message, "ENDED")
	require.Nil(t, second.SaleID)

	require.Len(t, f.outbox.All(), notified)
	_, finalized := f.publisher.counts()
	require.Equal(t, 1, finalized)
}

func TestFinalizeAuction_NotActive(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()

	_, err := f.svc.FinalizeAuction(ctx, uuid.New())
	require.ErrorIs(t, err, domain.ErrAuctionNotFound)

	created, err := f.svc.CreateAuction(ctx, CreateAuctionDTO{
		SellerID:      f.seller,
		Title:         "pending",
		StartingPrice: decimal.NewFromInt(100),
		EndTime:       f.clock.Now().Add(time.Hour),
	})
	require.NoError(t, err)

	res, err := f.svc.FinalizeAuction(ctx, created.AuctionID)
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, domain.OutcomeNotActive, res.Outcome)

	state, err := f.svc.GetAuctionState(ctx, created.AuctionID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusPending, state.Status)

	// CANCELLED -> ENDED is not in the transition table either
	cancelled := f.activeAuction(t, nil)
	_, err = f.svc.CancelAuction(ctx, cancelled)
	require.NoError(t, err)
	res, err = f.svc.FinalizeAuction(ctx, cancelled)
	require.NoError(t, err)
	require.False(t, res.Success)
	require.Equal(t, domain.OutcomeNotActive, res.Outcome)
	require.Empty(t, f.outbox.All())
}

func TestFinalizeAuction_RetryAfterFailure(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	id := f.activeAuction(t, decPtr(500))
	_, err := f.bid(t, id, 600)
	require.NoError(t, err)

	f.gateway.FailNextCommit(errors.New("serialization failure"))
	_, err = f.svc.FinalizeAuction(ctx, id)
	require.ErrorIs(t, err, domain.ErrPersistenceFailure)

	state, err := f.svc.GetAuctionState(ctx, id)
	require.NoError(t, err)
	require.Equal(t, domain.StatusActive, state.Status, "failed finalize leaves the auction active")
	require.Nil(t, f.gateway.Sale(id))
	require.Empty(t, f.outbox.All())

	res, err := f.svc.FinalizeAuction(ctx, id)
	require.NoError(t, err)
	require.True(t, res.Success)
	require.Equal(t, domain.OutcomeSold, res.Outcome)
	require.True(t, res.FinalPrice.Equal(decimal.NewFromInt(600)))
	require.NotNil(t, f.gateway.Sale(id))
	require.Len(t, f.outbox.All(), 2)
}

func TestFinalizeAuction_ConcurrentCallers(t *testing.T) {
	f := newFixture(t)
	id := f.activeAuction(t, nil)
	_, err := f.bid(t, id, 150)
	require.NoError(t, err)

	const callers = 10
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		successes int
	)
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			res, err := f.svc.FinalizeAuction(context.Background(), id)
			if err != nil {
				return
			}
			mu.Lock()
			defer mu.Unlock()
			if res.Success {
				successes++
			}
		}()
	}
	wg.Wait()

	require.Equal(t, 1, successes)
	require.Len(t, f.outbox.All(), 2)
}

func TestFinalizedAuctionRejectsBids(t *testing.T) {
	f := newFixture(t)
	id := f.activeAuction(t, nil)
	_, err := f.svc.FinalizeAuction(context.Background(), id)
	require.NoError(t, err)

	_, err = f.bid(t, id, 500)
	require.ErrorIs(t, err, domain.ErrAuctionNotActive)
}
