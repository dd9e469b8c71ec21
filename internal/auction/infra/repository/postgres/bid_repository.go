package postgres

import (
	"context"
	"errors"
	"fmt"

	"github.com/cristianortiz/pigeonAuction/internal/auction/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
)

const bidColumns = `id, auction_id, bidder_id, amount, is_winning, created_at`

func scanBid(row pgx.Row) (*domain.Bid, error) {
	bid := &domain.Bid{}
	err := row.Scan(
		&bid.ID,
		&bid.AuctionID,
		&bid.BidderID,
		&bid.Amount,
		&bid.IsWinning,
		&bid.CreatedAt,
	)
	return bid, err
}

// this method only inserts the new bid, clearing the previous leader is a separate statement of the same tx
func insertBid(ctx context.Context, q querier, bid *domain.Bid) error {
	query := `
        INSERT INTO bids (` + bidColumns + `)
        VALUES ($1, $2, $3, $4, $5, $6)
    `
	_, err := q.Exec(ctx, query,
		bid.ID,
		bid.AuctionID,
		bid.BidderID,
		bid.Amount,
		bid.IsWinning,
		bid.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert bid %s: %w", bid.ID, err)
	}
	return nil
}

func clearWinning(ctx context.Context, q querier, auctionID, keepBidID uuid.UUID) error {
	query := `
        UPDATE bids SET is_winning = FALSE
        WHERE auction_id = $1 AND id <> $2 AND is_winning
    `
	if _, err := q.Exec(ctx, query, auctionID, keepBidID); err != nil {
		return fmt.Errorf("clear winning bids of %s: %w", auctionID, err)
	}
	return nil
}

// highestBid ranks by amount and then by arrival, nil, nil when there are no bids
func highestBid(ctx context.Context, q querier, auctionID uuid.UUID) (*domain.Bid, error) {
	query := `
        SELECT ` + bidColumns + `
        FROM bids
        WHERE auction_id = $1
        ORDER BY amount DESC, created_at ASC
        LIMIT 1
    `
	bid, err := scanBid(q.QueryRow(ctx, query, auctionID))
	if err != nil {
		//if there is no bid for this auction
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("select highest bid of %s: %w", auctionID, err)
	}
	return bid, nil
}

func listBids(ctx context.Context, q querier, auctionID uuid.UUID) ([]*domain.Bid, error) {
	query := `
        SELECT ` + bidColumns + `
        FROM bids
        WHERE auction_id = $1
        ORDER BY created_at ASC
    `
	rows, err := q.Query(ctx, query, auctionID)
	if err != nil {
		return nil, fmt.Errorf("list bids of %s: %w", auctionID, err)
	}
	defer rows.Close()

	bids := []*domain.Bid{}
	for rows.Next() {
		bid, err := scanBid(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, bid)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bids, nil
}
