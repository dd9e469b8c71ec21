// Package scheduler finalizes auctions once their end time has passed.
package scheduler

import (
	"context"
	"errors"
	"time"

	"github.com/cristianortiz/pigeonAuction/internal/auction/application"
	"github.com/cristianortiz/pigeonAuction/internal/shared/cache"
	"github.com/cristianortiz/pigeonAuction/internal/shared/logger"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var log = logger.GetLogger()

const lockKey = "auction-sweeper"

// Finalizer is the part of application.AuctionService the sweeper drives
type Finalizer interface {
	ExpiredAuctionIDs(ctx context.Context, limit int) ([]uuid.UUID, error)
	FinalizeAuction(ctx context.Context, auctionID uuid.UUID) (*application.FinalizeResult, error)
}

// Config of the sweeper, zero values fall back to defaults
type Config struct {
	Interval  time.Duration
	BatchSize int
	LockTTL   time.Duration
}

// Sweeper ticks and finalizes every ACTIVE auction past its end time.
// The lock only keeps several instances from doing the same work, two sweeps
// racing on one auction still end it once because finalize is conditional.
type Sweeper struct {
	finalizer Finalizer
	locks     cache.LockManager
	cfg       Config
}

// NewSweeper creates the sweeper, locks may be nil for single instance deployments
func NewSweeper(finalizer Finalizer, locks cache.LockManager, cfg Config) *Sweeper {
	if cfg.Interval <= 0 {
		cfg.Interval = 30 * time.Second
	}
	if cfg.BatchSize <= 0 {
		cfg.BatchSize = 50
	}
	if cfg.LockTTL <= 0 {
		cfg.LockTTL = cfg.Interval
	}
	return &Sweeper{finalizer: finalizer, locks: locks, cfg: cfg}
}

// Run sweeps once right away and then on every tick until ctx is done
func (s *Sweeper) Run(ctx context.Context) {
	log.Info("Sweeper started",
		zap.Duration("interval", s.cfg.Interval),
		zap.Int("batchSize", s.cfg.BatchSize))

	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()

	for {
		s.tick(ctx)
		select {
		case <-ctx.Done():
			log.Info("Sweeper stopped")
			return
		case <-ticker.C:
		}
	}
}

func (s *Sweeper) tick(ctx context.Context) {
	sweepCtx, cancel := context.WithTimeout(ctx, s.cfg.Interval)
	defer cancel()

	if _, err := s.SweepOnce(sweepCtx); err != nil && !errors.Is(err, cache.ErrLockHeld) {
		log.Error("Sweeper: sweep failed", zap.Error(err))
	}
}

// SweepOnce finalizes one batch of expired auctions and returns how many were
// actually finalized by this call. Auctions failing to finalize are logged and
// picked up again by the next sweep.
func (s *Sweeper) SweepOnce(ctx context.Context) (int, error) {
	if s.locks != nil {
		unlock, err := s.locks.Acquire(ctx, lockKey, s.cfg.LockTTL)
		if err != nil {
			if errors.Is(err, cache.ErrLockHeld) {
				log.Debug("Sweeper: another instance is sweeping")
			}
			return 0, err
		}
		defer unlock()
	}

	ids, err := s.finalizer.ExpiredAuctionIDs(ctx, s.cfg.BatchSize)
	if err != nil {
		return 0, err
	}

	finalized := 0
	for _, id := range ids {
		if ctx.Err() != nil {
			break
		}
		res, err := s.finalizer.FinalizeAuction(ctx, id)
		if err != nil {
			log.Error("Sweeper: failed to finalize expired auction",
				zap.String("auctionID", id.String()),
				zap.Error(err))
			continue
		}
		if !res.Success {
			// finalized by someone else in between, nothing to do
			continue
		}
		finalized++
	}

	if len(ids) > 0 {
		log.Info("Sweeper: batch done",
			zap.Int("expired", len(ids)),
			zap.Int("finalized", finalized))
	}
	return finalized, nil
}
