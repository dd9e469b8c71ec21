// Package domain holds the notification outbox model.
// Rows are enqueued by other modules inside their own transactions and
// delivered later by the dispatcher, so a failed delivery never undoes the
// business change that produced it.
package domain

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
)

// Kind identifies the event a notification is about
type Kind string

const (
	KindAuctionWon    Kind = "auction_won"
	KindAuctionSold   Kind = "auction_sold"
	KindReserveNotMet Kind = "reserve_not_met"
	KindAuctionUnsold Kind = "auction_unsold"
)

// Status of an outbox row
type Status string

const (
	StatusPending Status = "PENDING"
	StatusSent    Status = "SENT"
	StatusFailed  Status = "FAILED"
)

var ErrNotificationNotFound = errors.New("notification not found")

// Notification is one outbox row
type Notification struct {
	ID            uuid.UUID
	UserID        uuid.UUID
	Kind          Kind
	Payload       map[string]string
	Status        Status
	Attempts      int
	LastError     string
	NextAttemptAt time.Time
	CreatedAt     time.Time
	SentAt        *time.Time
}

// New builds a pending notification ready to be enqueued
func New(userID uuid.UUID, kind Kind, payload map[string]string, now time.Time) *Notification {
	if payload == nil {
		payload = map[string]string{}
	}
	return &Notification{
		ID:            uuid.New(),
		UserID:        userID,
		Kind:          kind,
		Payload:       payload,
		Status:        StatusPending,
		NextAttemptAt: now,
		CreatedAt:     now,
	}
}

// Message is what a Sender delivers, already rendered
type Message struct {
	NotificationID uuid.UUID
	UserID         uuid.UUID
	Kind           Kind
	To             string // recipient email, may be empty
	Subject        string
	Body           string
}

// Outbox is the persistence port used by the dispatcher
type Outbox interface {
	// ClaimPending returns up to limit PENDING rows due at now. Claimed rows are
	// pushed forward by lease so concurrent dispatchers do not pick them again.
	ClaimPending(ctx context.Context, now time.Time, lease time.Duration, limit int) ([]*Notification, error)
	MarkSent(ctx context.Context, id uuid.UUID, at time.Time) error
	// MarkFailed records the error. When retryAt is nil the row becomes FAILED for good.
	MarkFailed(ctx context.Context, id uuid.UUID, lastErr string, retryAt *time.Time) error
}

// Recipient is the minimal user data needed to address a message
type Recipient struct {
	UserID      uuid.UUID
	Email       string
	DisplayName string
}

// RecipientResolver looks up where to deliver a user's notifications
type RecipientResolver interface {
	Resolve(ctx context.Context, userID uuid.UUID) (*Recipient, error)
}
