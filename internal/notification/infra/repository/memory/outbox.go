// Package memory is an in-process notification outbox, used with the
// in-memory auction store for local runs and tests.
package memory

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/cristianortiz/pigeonAuction/internal/notification/domain"
	"github.com/google/uuid"
)

// Outbox is a concurrency-safe implementation of domain.Outbox
type Outbox struct {
	mu   sync.Mutex
	rows map[uuid.UUID]*domain.Notification
}

func NewOutbox() *Outbox {
	return &Outbox{rows: make(map[uuid.UUID]*domain.Notification)}
}

// Add stores a copy of n. The auction store calls it when a transaction commits.
func (o *Outbox) Add(n *domain.Notification) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.rows[n.ID] = clone(n)
}

func (o *Outbox) ClaimPending(_ context.Context, now time.Time, lease time.Duration, limit int) ([]*domain.Notification, error) {
	o.mu.Lock()
	defer o.mu.Unlock()

	var due []*domain.Notification
	for _, n := range o.rows {
		if n.Status == domain.StatusPending && !n.NextAttemptAt.After(now) {
			due = append(due, n)
		}
	}
	sort.Slice(due, func(i, j int) bool { return due[i].CreatedAt.Before(due[j].CreatedAt) })
	if limit > 0 && len(due) > limit {
		due = due[:limit]
	}

	out := make([]*domain.Notification, 0, len(due))
	for _, n := range due {
		n.NextAttemptAt = now.Add(lease)
		n.Attempts++
		out = append(out, clone(n))
	}
	return out, nil
}

func (o *Outbox) MarkSent(_ context.Context, id uuid.UUID, at time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	n, ok := o.rows[id]
	if !ok {
		return domain.ErrNotificationNotFound
	}
	n.Status = domain.StatusSent
	n.SentAt = &at
	n.LastError = ""
	return nil
}

func (o *Outbox) MarkFailed(_ context.Context, id uuid.UUID, lastErr string, retryAt *time.Time) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	n, ok := o.rows[id]
	if !ok {
		return domain.ErrNotificationNotFound
	}
	n.LastError = lastErr
	if retryAt == nil {
		n.Status = domain.StatusFailed
		return nil
	}
	n.NextAttemptAt = *retryAt
	return nil
}

// All returns a snapshot of every row, oldest first
func (o *Outbox) All() []*domain.Notification {
	o.mu.Lock()
	defer o.mu.Unlock()
	out := make([]*domain.Notification, 0, len(o.rows))
	for _, n := range o.rows {
		out = append(out, clone(n))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })
	return out
}

func clone(n *domain.Notification) *domain.Notification {
	c := *n
	c.Payload = make(map[string]string, len(n.Payload))
	for k, v := range n.Payload {
		c.Payload[k] = v
	}
	if n.SentAt != nil {
		t := *n.SentAt
		c.SentAt = &t
	}
	return &c
}

var _ domain.Outbox = (*Outbox)(nil)
