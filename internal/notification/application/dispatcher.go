// Package application delivers the notification outbox.
package application

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/cristianortiz/pigeonAuction/internal/notification/domain"
	"github.com/cristianortiz/pigeonAuction/internal/shared/logger"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

//go:generate mockgen -source=dispatcher.go -destination=mock/sender.go -package=mock Sender

// Sender is one delivery channel (log, webhook, email...)
type Sender interface {
	Send(ctx context.Context, msg domain.Message) error
	// Name returns a human-readable identifier for the sender (e.g. "webhook").
	Name() string
}

// Config of the dispatcher, zero values fall back to defaults
type Config struct {
	Interval     time.Duration
	BatchSize    int
	MaxAttempts  int
	RetryBackoff time.Duration // doubled after every failed attempt
	Lease        time.Duration
}

// Stats counts what one DispatchPending call did
type Stats struct {
	Sent    int
	Retried int
	Failed  int
}

// Dispatcher moves PENDING outbox rows to SENT or FAILED
type Dispatcher struct {
	outbox   domain.Outbox
	resolver domain.RecipientResolver
	senders  []Sender
	cfg      Config
	now      func() time.Time
}

func NewDispatcher(outbox domain.Outbox, resolver domain.RecipientResolver, senders []Sender, cfg Config, now func() time.Time) *Dispatcher {
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 20
	}
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 5
	}
	if cfg.RetryBackoff <= 0 {
		cfg.RetryBackoff = time.Minute
	}
	if cfg.Lease <= 0 {
		cfg.Lease = 2 * time.Minute
	}
	if now == nil {
		now = time.Now
	}
	return &Dispatcher{outbox: outbox, resolver: resolver, senders: senders, cfg: cfg, now: now}
}

// Run dispatches on every tick until ctx is done
func (d *Dispatcher) Run(ctx context.Context) {
	log.Info("Notification dispatcher started",
		zap.Duration("interval", d.cfg.Interval),
		zap.Int("senders", len(d.senders)))

	ticker := time.NewTicker(d.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info("Notification dispatcher stopped")
			return
		case <-ticker.C:
			if _, err := d.DispatchPending(ctx); err != nil && ctx.Err() == nil {
				log.Error("Dispatcher: dispatch failed", zap.Error(err))
			}
		}
	}
}

// DispatchPending claims one batch of due notifications and tries to deliver each.
// A delivery failure only affects its own row.
func (d *Dispatcher) DispatchPending(ctx context.Context) (Stats, error) {
	var stats Stats
	batch, err := d.outbox.ClaimPending(ctx, d.now(), d.cfg.Lease, d.cfg.BatchSize)
	if err != nil {
		return stats, fmt.Errorf("claim pending notifications: %w", err)
	}

	for _, n := range batch {
		deliverErr := d.deliver(ctx, n)
		now := d.now()
		if deliverErr == nil {
			if err := d.outbox.MarkSent(ctx, n.ID, now); err != nil {
				return stats, fmt.Errorf("mark %s sent: %w", n.ID, err)
			}
			stats.Sent++
			continue
		}

		var retryAt *time.Time
		if n.Attempts < d.cfg.MaxAttempts {
			t := now.Add(d.backoff(n.Attempts))
			retryAt = &t
			stats.Retried++
			log.Warn("Dispatcher: delivery failed, will retry",
				zap.String("notificationID", n.ID.String()),
				zap.String("kind", string(n.Kind)),
				zap.Int("attempts", n.Attempts),
				zap.Time("retryAt", t),
				zap.Error(deliverErr))
		} else {
			stats.Failed++
			log.Error("Dispatcher: delivery failed for good",
				zap.String("notificationID", n.ID.String()),
				zap.String("kind", string(n.Kind)),
				zap.Int("attempts", n.Attempts),
				zap.Error(deliverErr))
		}
		if err := d.outbox.MarkFailed(ctx, n.ID, deliverErr.Error(), retryAt); err != nil {
			return stats, fmt.Errorf("mark %s failed: %w", n.ID, err)
		}
	}
	return stats, nil
}

func (d *Dispatcher) deliver(ctx context.Context, n *domain.Notification) error {
	recipient, err := d.resolver.Resolve(ctx, n.UserID)
	if err != nil {
		return err
	}
	msg := Render(n, recipient)

	var errs []error
	for _, s := range d.senders {
		if err := s.Send(ctx, msg); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", s.Name(), err))
		}
	}
	return errors.Join(errs...)
}

// backoff for the given attempt number, starting at 1
func (d *Dispatcher) backoff(attempt int) time.Duration {
	if attempt < 1 {
		attempt = 1
	}
	if attempt > 10 {
		attempt = 10
	}
	return d.cfg.RetryBackoff * time.Duration(1<<(attempt-1))
}
