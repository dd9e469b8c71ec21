package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/cristianortiz/pigeonAuction/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/shopspring/decimal"
)

const auctionColumns = `id, title, description, breed, ring_number, seller_id, starting_price, current_price,
        buy_now_price, reserve_price, start_time, end_time, status, approved, created_at, updated_at`

func scanAuction(row pgx.Row) (*domain.Auction, error) {
	a := &domain.Auction{}
	var (
		buyNow, reserve decimal.NullDecimal // nullable NUMERIC columns
		status          string
	)
	err := row.Scan(
		&a.ID,
		&a.Title,
		&a.Description,
		&a.Breed,
		&a.RingNumber,
		&a.SellerID,
		&a.StartingPrice,
		&a.CurrentPrice,
		&buyNow,
		&reserve,
		&a.StartTime,
		&a.EndTime,
		&status,
		&a.Approved,
		&a.CreatedAt,
		&a.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if a.Status, err = domain.ParseStatus(status); err != nil {
		return nil, err
	}
	if buyNow.Valid {
		a.BuyNowPrice = &buyNow.Decimal
	}
	if reserve.Valid {
		a.ReservePrice = &reserve.Decimal
	}
	return a, nil
}

// getAuction loads one auction, with forUpdate the row stays locked until the tx ends
func getAuction(ctx context.Context, q querier, id uuid.UUID, forUpdate bool) (*domain.Auction, error) {
	query := `SELECT ` + auctionColumns + ` FROM auctions WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}
	a, err := scanAuction(q.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, domain.ErrAuctionNotFound
		}
		return nil, fmt.Errorf("select auction %s: %w", id, err)
	}
	return a, nil
}

func collectAuctions(rows pgx.Rows) ([]*domain.Auction, error) {
	defer rows.Close()
	lots := []*domain.Auction{}
	for rows.Next() {
		a, err := scanAuction(rows)
		if err != nil {
			return nil, err
		}
		lots = append(lots, a)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return lots, nil
}

func listAuctions(ctx context.Context, q querier, filter domain.ListFilter) ([]*domain.Auction, error) {
	var (
		where []string
		args  []any
	)
	if filter.Status != nil {
		args = append(args, string(*filter.Status))
		where = append(where, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.SellerID != nil {
		args = append(args, *filter.SellerID)
		where = append(where, fmt.Sprintf("seller_id = $%d", len(args)))
	}
	query := `SELECT ` + auctionColumns + ` FROM auctions`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY created_at DESC`
	if filter.Limit > 0 {
		args = append(args, filter.Limit)
		query += fmt.Sprintf(" LIMIT $%d", len(args))
	}
	if filter.Offset > 0 {
		args = append(args, filter.Offset)
		query += fmt.Sprintf(" OFFSET $%d", len(args))
	}

	rows, err := q.Query(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list auctions: %w", err)
	}
	return collectAuctions(rows)
}

func listExpiredActive(ctx context.Context, q querier, now time.Time, limit int) ([]*domain.Auction, error) {
	query := `
        SELECT ` + auctionColumns + `
        FROM auctions
        WHERE status = $1 AND end_time < $2
        ORDER BY end_time ASC
        LIMIT $3
    `
	if limit <= 0 {
		limit = 100
	}
	rows, err := q.Query(ctx, query, string(domain.StatusActive), now, limit)
	if err != nil {
		return nil, fmt.Errorf("list expired auctions: %w", err)
	}
	return collectAuctions(rows)
}

// created_at and updated_at come from the domain clock, not the column defaults
func insertAuction(ctx context.Context, q querier, a *domain.Auction) error {
	query := `
        INSERT INTO auctions (` + auctionColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
    `
	_, err := q.Exec(ctx, query,
		a.ID,
		a.Title,
		a.Description,
		a.Breed,
		a.RingNumber,
		a.SellerID,
		a.StartingPrice,
		a.CurrentPrice,
		nullDecimal(a.BuyNowPrice),
		nullDecimal(a.ReservePrice),
		a.StartTime,
		a.EndTime,
		string(a.Status),
		a.Approved,
		a.CreatedAt,
		a.UpdatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert auction %s: %w", a.ID, err)
	}
	return nil
}

func updateCurrentPrice(ctx context.Context, q querier, auctionID uuid.UUID, price decimal.Decimal) error {
	tag, err := q.Exec(ctx,
		`UPDATE auctions SET current_price = $2, updated_at = NOW() WHERE id = $1`,
		auctionID, price)
	if err != nil {
		return fmt.Errorf("update current price of %s: %w", auctionID, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrAuctionNotFound
	}
	return nil
}

// updateStatus only touches the row while it is still in status from
func updateStatus(ctx context.Context, q querier, auctionID uuid.UUID, from, to domain.Status) (bool, error) {
	query := `
        UPDATE auctions
        SET status = $3,
            approved = approved OR $3 = 'ACTIVE',
            updated_at = NOW()
        WHERE id = $1 AND status = $2
    `
	tag, err := q.Exec(ctx, query, auctionID, string(from), string(to))
	if err != nil {
		return false, fmt.Errorf("update status of %s: %w", auctionID, err)
	}
	return tag.RowsAffected() == 1, nil
}

func insertSale(ctx context.Context, q querier, s *domain.Sale) error {
	query := `
        INSERT INTO sales (id, auction_id, seller_id, buyer_id, bid_id, amount, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7)
    `
	_, err := q.Exec(ctx, query, s.ID, s.AuctionID, s.SellerID, s.BuyerID, s.BidID, s.Amount, s.CreatedAt)
	if err != nil {
		return fmt.Errorf("insert sale for %s: %w", s.AuctionID, err)
	}
	return nil
}

func nullDecimal(d *decimal.Decimal) decimal.NullDecimal {
	if d == nil {
		return decimal.NullDecimal{}
	}
	return decimal.NullDecimal{Decimal: *d, Valid: true}
}
