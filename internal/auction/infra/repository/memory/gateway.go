// Package memory implements domain.Gateway in process. A single mutex is held
// for the whole RunAtomic call which makes every unit serializable, and writes
// are staged on a copy of the state that only replaces the live one on commit.
package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/cristianortiz/pigeonAuction/internal/auction/domain"
	notification "github.com/cristianortiz/pigeonAuction/internal/notification/domain"
	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// NotificationSink receives the notifications of committed units
type NotificationSink interface {
	Add(n *notification.Notification)
}

type state struct {
	auctions map[uuid.UUID]*domain.Auction
	bids     map[uuid.UUID][]*domain.Bid // key: auctionID
	sales    map[uuid.UUID]*domain.Sale  // key: auctionID
}

func newState() *state {
	return &state{
		auctions: make(map[uuid.UUID]*domain.Auction),
		bids:     make(map[uuid.UUID][]*domain.Bid),
		sales:    make(map[uuid.UUID]*domain.Sale),
	}
}

func (s *state) clone() *state {
	c := newState()
	for id, a := range s.auctions {
		c.auctions[id] = cloneAuction(a)
	}
	for id, bids := range s.bids {
		cp := make([]*domain.Bid, len(bids))
		for i, b := range bids {
			bb := *b
			cp[i] = &bb
		}
		c.bids[id] = cp
	}
	for id, sale := range s.sales {
		ss := *sale
		c.sales[id] = &ss
	}
	return c
}

// Gateway is the in-memory persistence gateway
type Gateway struct {
	mu         sync.Mutex
	st         *state
	sink       NotificationSink
	failCommit error
}

// NewGateway creates an empty store. sink may be nil.
func NewGateway(sink NotificationSink) *Gateway {
	return &Gateway{st: newState(), sink: sink}
}

// FailNextCommit makes the next RunAtomic discard its work and return err
// wrapped as a persistence failure. Intended for tests only.
func (g *Gateway) FailNextCommit(err error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.failCommit = err
}

func (g *Gateway) RunAtomic(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%w: begin: %w", domain.ErrPersistenceFailure, err)
	}
	g.mu.Lock()
	defer g.mu.Unlock()

	tx := &memTx{st: g.st.clone()}
	if err := fn(ctx, tx); err != nil {
		return err
	}
	if g.failCommit != nil {
		err := g.failCommit
		g.failCommit = nil
		return fmt.Errorf("%w: commit: %w", domain.ErrPersistenceFailure, err)
	}

	g.st = tx.st
	if g.sink != nil {
		for _, n := range tx.notifications {
			g.sink.Add(n)
		}
	}
	return nil
}

func (g *Gateway) GetAuction(_ context.Context, id uuid.UUID) (*domain.Auction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	a, ok := g.st.auctions[id]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	return cloneAuction(a), nil
}

func (g *Gateway) GetHighestBid(_ context.Context, auctionID uuid.UUID) (*domain.Bid, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	return highest(g.st.bids[auctionID]), nil
}

func (g *Gateway) ListBids(_ context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	bids := g.st.bids[auctionID]
	out := make([]*domain.Bid, 0, len(bids))
	for _, b := range bids {
		bb := *b
		out = append(out, &bb)
	}
	sort.SliceStable(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out, nil
}

func (g *Gateway) ListAuctions(_ context.Context, filter domain.ListFilter) ([]*domain.Auction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*domain.Auction
	for _, a := range g.st.auctions {
		if filter.Status != nil && a.Status != *filter.Status {
			continue
		}
		if filter.SellerID != nil && a.SellerID != *filter.SellerID {
			continue
		}
		out = append(out, cloneAuction(a))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return page(out, filter.Offset, filter.Limit), nil
}

func (g *Gateway) ListExpiredActive(_ context.Context, now time.Time, limit int) ([]*domain.Auction, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	var out []*domain.Auction
	for _, a := range g.st.auctions {
		if a.Status == domain.StatusActive && now.After(a.EndTime) {
			out = append(out, cloneAuction(a))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].EndTime.Before(out[j].EndTime) })
	return page(out, 0, limit), nil
}

// Sale returns the sale recorded for an auction, nil when there is none
func (g *Gateway) Sale(auctionID uuid.UUID) *domain.Sale {
	g.mu.Lock()
	defer g.mu.Unlock()
	s, ok := g.st.sales[auctionID]
	if !ok {
		return nil
	}
	ss := *s
	return &ss
}

// memTx stages every write on its own copy of the state
type memTx struct {
	st            *state
	notifications []*notification.Notification
}

func (t *memTx) LockAuction(_ context.Context, id uuid.UUID) (*domain.Auction, error) {
	a, ok := t.st.auctions[id]
	if !ok {
		return nil, domain.ErrAuctionNotFound
	}
	return cloneAuction(a), nil
}

func (t *memTx) HighestBid(_ context.Context, auctionID uuid.UUID) (*domain.Bid, error) {
	return highest(t.st.bids[auctionID]), nil
}

func (t *memTx) InsertAuction(_ context.Context, a *domain.Auction) error {
	if _, ok := t.st.auctions[a.ID]; ok {
		return fmt.Errorf("memory: auction %s already exists", a.ID)
	}
	t.st.auctions[a.ID] = cloneAuction(a)
	return nil
}

func (t *memTx) InsertBid(_ context.Context, b *domain.Bid) error {
	if _, ok := t.st.auctions[b.AuctionID]; !ok {
		return fmt.Errorf("memory: insert bid: %w", domain.ErrAuctionNotFound)
	}
	bb := *b
	t.st.bids[b.AuctionID] = append(t.st.bids[b.AuctionID], &bb)
	return nil
}

func (t *memTx) ClearWinning(_ context.Context, auctionID, keepBidID uuid.UUID) error {
	for _, b := range t.st.bids[auctionID] {
		if b.ID != keepBidID {
			b.IsWinning = false
		}
	}
	return nil
}

func (t *memTx) UpdateCurrentPrice(_ context.Context, auctionID uuid.UUID, price decimal.Decimal) error {
	a, ok := t.st.auctions[auctionID]
	if !ok {
		return fmt.Errorf("memory: update price: %w", domain.ErrAuctionNotFound)
	}
	a.CurrentPrice = price
	a.UpdatedAt = time.Now()
	return nil
}

func (t *memTx) UpdateStatus(_ context.Context, auctionID uuid.UUID, from, to domain.Status) (bool, error) {
	a, ok := t.st.auctions[auctionID]
	if !ok || a.Status != from {
		return false, nil
	}
	a.Status = to
	if to == domain.StatusActive {
		a.Approved = true
	}
	a.UpdatedAt = time.Now()
	return true, nil
}

func (t *memTx) InsertSale(_ context.Context, s *domain.Sale) error {
	if _, ok := t.st.sales[s.AuctionID]; ok {
		return fmt.Errorf("memory: sale for auction %s already exists", s.AuctionID)
	}
	ss := *s
	t.st.sales[s.AuctionID] = &ss
	return nil
}

func (t *memTx) EnqueueNotification(_ context.Context, n *notification.Notification) error {
	t.notifications = append(t.notifications, n)
	return nil
}

func highest(bids []*domain.Bid) *domain.Bid {
	var top *domain.Bid
	for _, b := range bids {
		if b.Outbids(top) {
			top = b
		}
	}
	if top == nil {
		return nil
	}
	bb := *top
	return &bb
}

func cloneAuction(a *domain.Auction) *domain.Auction {
	c := *a
	if a.ReservePrice != nil {
		r := *a.ReservePrice
		c.ReservePrice = &r
	}
	if a.BuyNowPrice != nil {
		b := *a.BuyNowPrice
		c.BuyNowPrice = &b
	}
	return &c
}

func page(in []*domain.Auction, offset, limit int) []*domain.Auction {
	if offset > 0 {
		if offset >= len(in) {
			return []*domain.Auction{}
		}
		in = in[offset:]
	}
	if limit > 0 && len(in) > limit {
		in = in[:limit]
	}
	return in
}

// Compile-time interface check.
var _ domain.Gateway = (*Gateway)(nil)
