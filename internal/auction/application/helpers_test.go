package application

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/cristianortiz/pigeonAuction/internal/auction/domain"
	auctionmem "github.com/cristianortiz/pigeonAuction/internal/auction/infra/repository/memory"
	notificationmem "github.com/cristianortiz/pigeonAuction/internal/notification/infra/repository/memory"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/require"
)

type fakeClock struct {
	mu sync.Mutex
	t  time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

type recordingPublisher struct {
	mu        sync.Mutex
	updates   []*AuctionStateDTO
	finalized []*FinalizeResult
}

func (p *recordingPublisher) AuctionUpdated(_ context.Context, s *AuctionStateDTO) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.updates = append(p.updates, s)
}

func (p *recordingPublisher) AuctionFinalized(_ context.Context, r *FinalizeResult) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.finalized = append(p.finalized, r)
}

func (p *recordingPublisher) counts() (int, int) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return len(p.updates), len(p.finalized)
}

// fixture is a service over the in-memory stores
type fixture struct {
	svc       AuctionService
	gateway   *auctionmem.Gateway
	outbox    *notificationmem.Outbox
	clock     *fakeClock
	publisher *recordingPublisher
	seller    uuid.UUID
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	outbox := notificationmem.NewOutbox()
	gw := auctionmem.NewGateway(outbox)
	clock := newFakeClock()
	pub := &recordingPublisher{}
	return &fixture{
		svc:       New(gw, pub, clock.Now),
		gateway:   gw,
		outbox:    outbox,
		clock:     clock,
		publisher: pub,
		seller:    uuid.New(),
	}
}

// activeAuction creates and approves an auction starting at 100, ending in one hour
func (f *fixture) activeAuction(t *testing.T, reserve *decimal.Decimal) uuid.UUID {
	t.Helper()
	ctx := context.Background()
	created, err := f.svc.CreateAuction(ctx, CreateAuctionDTO{
		SellerID:      f.seller,
		Title:         "Van Loon hen",
		StartingPrice: decimal.NewFromInt(100),
		ReservePrice:  reserve,
		EndTime:       f.clock.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	_, err = f.svc.ApproveAuction(ctx, created.AuctionID)
	require.NoError(t, err)
	return created.AuctionID
}

func (f *fixture) bid(t *testing.T, auctionID uuid.UUID, amount int64) (*domain.Bid, error) {
	t.Helper()
	return f.svc.PlaceBid(context.Background(), PlaceBidDTO{
		AuctionID: auctionID,
		BidderID:  uuid.New(),
		Amount:    decimal.NewFromInt(amount),
	})
}

// requireLedgerConsistent checks the single leader and price mirror properties
func (f *fixture) requireLedgerConsistent(t *testing.T, auctionID uuid.UUID) {
	t.Helper()
	ctx := context.Background()
	state, err := f.svc.GetAuctionState(ctx, auctionID)
	require.NoError(t, err)
	bids, err := f.svc.ListBids(ctx, auctionID)
	require.NoError(t, err)

	if len(bids) == 0 {
		require.True(t, state.CurrentPrice.Equal(state.StartingPrice))
		require.Nil(t, state.LeadingBid)
		return
	}

	var winners []*BidDTO
	top := bids[0]
	for i, b := range bids {
		if b.IsWinning {
			winners = append(winners, b)
		}
		if b.Amount.GreaterThan(top.Amount) {
			top = b
		}
		if i > 0 {
			require.True(t, b.Amount.GreaterThan(bids[i-1].Amount), "accepted bids must strictly increase")
		}
	}
	require.Len(t, winners, 1)
	require.Equal(t, top.ID, winners[0].ID)
	require.True(t, state.CurrentPrice.Equal(top.Amount))
}

func decPtr(v int64) *decimal.Decimal {
	d := decimal.NewFromInt(v)
	return &d
}
