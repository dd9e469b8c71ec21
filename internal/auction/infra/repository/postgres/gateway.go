package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/pigeonAuction/internal/auction/domain"
	notification "github.com/cristianortiz/pigeonAuction/internal/notification/domain"
	notificationpg "github.com/cristianortiz/pigeonAuction/internal/notification/infra/repository/postgres"
	"github.com/cristianortiz/pigeonAuction/internal/shared/logger"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

// querier is satisfied by both *pgxpool.Pool and pgx.Tx
type querier interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
}

// Gateway implements domain.Gateway over a pgx pool
type Gateway struct {
	pool *pgxpool.Pool
}

// NewGateway creates a new instance of Gateway
func NewGateway(pool *pgxpool.Pool) *Gateway {
	return &Gateway{pool: pool}
}

// RunAtomic runs fn inside one read committed transaction. The row lock taken
// by LockAuction is what serializes concurrent writers on the same auction.
func (g *Gateway) RunAtomic(ctx context.Context, fn func(ctx context.Context, tx domain.Tx) error) (err error) {
	tx, err := g.pool.BeginTx(ctx, pgx.TxOptions{IsoLevel: pgx.ReadCommitted})
	if err != nil {
		log.Error("Gateway: Failed to begin transaction", zap.Error(err))
		return fmt.Errorf("%w: begin transaction: %w", domain.ErrPersistenceFailure, err)
	}

	//config defer() to handles commit/rollback
	defer func() {
		if r := recover(); r != nil {
			log.Error("Gateway: Recovered from panic during transaction", zap.Any("panic", r))
			_ = tx.Rollback(ctx)
			panic(r)
		}
		if err != nil {
			// rollback errors are not interesting, the tx is discarded by the server anyway
			_ = tx.Rollback(ctx)
			return
		}
		if commitErr := tx.Commit(ctx); commitErr != nil {
			log.Error("Gateway: Failed to commit transaction", zap.Error(commitErr))
			err = fmt.Errorf("%w: commit transaction: %w", domain.ErrPersistenceFailure, commitErr)
		}
	}()

	err = fn(ctx, &pgTx{tx: tx})
	return err
}

func (g *Gateway) GetAuction(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	return getAuction(ctx, g.pool, id, false)
}

func (g *Gateway) GetHighestBid(ctx context.Context, auctionID uuid.UUID) (*domain.Bid, error) {
	return highestBid(ctx, g.pool, auctionID)
}

func (g *Gateway) ListBids(ctx context.Context, auctionID uuid.UUID) ([]*domain.Bid, error) {
	return listBids(ctx, g.pool, auctionID)
}

func (g *Gateway) ListAuctions(ctx context.Context, filter domain.ListFilter) ([]*domain.Auction, error) {
	return listAuctions(ctx, g.pool, filter)
}

func (g *Gateway) ListExpiredActive(ctx context.Context, now time.Time, limit int) ([]*domain.Auction, error) {
	return listExpiredActive(ctx, g.pool, now, limit)
}

// pgTx is the domain.Tx view of a pgx transaction
type pgTx struct {
	tx pgx.Tx
}

func (t *pgTx) LockAuction(ctx context.Context, id uuid.UUID) (*domain.Auction, error) {
	return getAuction(ctx, t.tx, id, true)
}

func (t *pgTx) HighestBid(ctx context.Context, auctionID uuid.UUID) (*domain.Bid, error) {
	return highestBid(ctx, t.tx, auctionID)
}

func (t *pgTx) InsertAuction(ctx context.Context, a *domain.Auction) error {
	return insertAuction(ctx, t.tx, a)
}

func (t *pgTx) InsertBid(ctx context.Context, b *domain.Bid) error {
	return insertBid(ctx, t.tx, b)
}

func (t *pgTx) ClearWinning(ctx context.Context, auctionID, keepBidID uuid.UUID) error {
	return clearWinning(ctx, t.tx, auctionID, keepBidID)
}

func (t *pgTx) UpdateCurrentPrice(ctx context.Context, auctionID uuid.UUID, price decimal.Decimal) error {
	return updateCurrentPrice(ctx, t.tx, auctionID, price)
}

func (t *pgTx) UpdateStatus(ctx context.Context, auctionID uuid.UUID, from, to domain.Status) (bool, error) {
	return updateStatus(ctx, t.tx, auctionID, from, to)
}

func (t *pgTx) InsertSale(ctx context.Context, s *domain.Sale) error {
	return insertSale(ctx, t.tx, s)
}

func (t *pgTx) EnqueueNotification(ctx context.Context, n *notification.Notification) error {
	return notificationpg.Insert(ctx, t.tx, n)
}

var _ domain.Gateway = (*Gateway)(nil)
