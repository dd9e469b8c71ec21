package postgres

import (
	"context"
	"fmt"
	"time"

	"github.com/cristianortiz/pigeonAuction/internal/notification/domain"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Execer is the part of pgx.Tx / *pgxpool.Pool needed to enqueue a row
type Execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// Insert enqueues n using the caller's transaction, so the row commits or
// rolls back together with whatever produced it
func Insert(ctx context.Context, db Execer, n *domain.Notification) error {
	query := `
        INSERT INTO notifications (id, user_id, kind, payload, status, attempts, last_error, next_attempt_at, created_at)
        VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
    `
	_, err := db.Exec(ctx, query,
		n.ID,
		n.UserID,
		string(n.Kind),
		n.Payload, // jsonb
		string(n.Status),
		n.Attempts,
		n.LastError,
		n.NextAttemptAt,
		n.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("insert notification %s: %w", n.ID, err)
	}
	return nil
}

// Outbox implements domain.Outbox on the notifications table
type Outbox struct {
	pool *pgxpool.Pool
}

func NewOutbox(pool *pgxpool.Pool) *Outbox {
	return &Outbox{pool: pool}
}

// ClaimPending uses SKIP LOCKED so several dispatchers can share the table
func (o *Outbox) ClaimPending(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*domain.Notification, error) {
	query := `
        UPDATE notifications
        SET next_attempt_at = $2, attempts = attempts + 1
        WHERE id IN (
            SELECT id FROM notifications
            WHERE status = 'PENDING' AND next_attempt_at <= $1
            ORDER BY created_at ASC
            LIMIT $3
            FOR UPDATE SKIP LOCKED
        )
        RETURNING id, user_id, kind, payload, status, attempts, last_error, next_attempt_at, created_at, sent_at
    `
	rows, err := o.pool.Query(ctx, query, now, now.Add(lease), limit)
	if err != nil {
		return nil, fmt.Errorf("claim notifications: %w", err)
	}
	defer rows.Close()

	var out []*domain.Notification
	for rows.Next() {
		n, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, n)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return out, nil
}

func (o *Outbox) MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error {
	tag, err := o.pool.Exec(ctx,
		`UPDATE notifications SET status = 'SENT', sent_at = $2, last_error = '' WHERE id = $1`,
		id, at)
	if err != nil {
		return fmt.Errorf("mark notification %s sent: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

func (o *Outbox) MarkFailed(ctx context.Context, id uuid.UUID, lastErr string, retryAt *time.Time) error {
	var (
		tag pgconn.CommandTag
		err error
	)
	if retryAt == nil {
		tag, err = o.pool.Exec(ctx,
			`UPDATE notifications SET status = 'FAILED', last_error = $2 WHERE id = $1`,
			id, lastErr)
	} else {
		tag, err = o.pool.Exec(ctx,
			`UPDATE notifications SET last_error = $2, next_attempt_at = $3 WHERE id = $1`,
			id, lastErr, *retryAt)
	}
	if err != nil {
		return fmt.Errorf("mark notification %s failed: %w", id, err)
	}
	if tag.RowsAffected() == 0 {
		return domain.ErrNotificationNotFound
	}
	return nil
}

func scanNotification(row pgx.Row) (*domain.Notification, error) {
	n := &domain.Notification{}
	var kind, status string
	err := row.Scan(
		&n.ID,
		&n.UserID,
		&kind,
		&n.Payload,
		&status,
		&n.Attempts,
		&n.LastError,
		&n.NextAttemptAt,
		&n.CreatedAt,
		&n.SentAt,
	)
	if err != nil {
		return nil, err
	}
	n.Kind = domain.Kind(kind)
	n.Status = domain.Status(status)
	return n, nil
}

var _ domain.Outbox = (*Outbox)(nil)
