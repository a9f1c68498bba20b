package sweeper

import (
	"context"
	"fmt"
	"log"
	"time"

	"capsulevault/internal/clock"
	"capsulevault/internal/lifecycle"
	"capsulevault/internal/repository"
)

// Sweeper reconciles the stored expired flag with derived lifecycle state on
// a fixed interval. It is an optimization over the read path's lazy expiry,
// never a substitute for it: the flag may lag reality by up to one interval.
type Sweeper struct {
	capsules repository.CapsuleRepository
	interval time.Duration
	now      func() time.Time
}

// New creates a sweeper over the given repository.
func New(capsules repository.CapsuleRepository, interval time.Duration) *Sweeper {
	return &Sweeper{
		capsules: capsules,
		interval: interval,
		now:      clock.Now,
	}
}

// Start runs sweep cycles until ctx is cancelled. A failed cycle is logged
// and the next tick proceeds.
func (s *Sweeper) Start(ctx context.Context) {
	go func() {
		ticker := time.NewTicker(s.interval)
		defer ticker.Stop()

		for {
			select {
			case <-ctx.Done():
				return
			case <-ticker.C:
				count, err := s.Sweep(ctx)
				if err != nil {
					log.Printf("sweeper: cycle failed: %v", err)
					continue
				}
				if count > 0 {
					log.Printf("sweeper: marked %d capsule(s) expired", count)
				}
			}
		}
	}()
}

// Sweep runs one cycle: load every capsule not yet flagged, derive its state
// against the current time, and flip the expired ones in one batch. The flip
// only ever goes false to true, so concurrent sweeps and read-path lazy
// expiry converge on the same rows without conflict.
func (s *Sweeper) Sweep(ctx context.Context) (int64, error) {
	capsules, err := s.capsules.ListUnexpired(ctx)
	if err != nil {
		return 0, fmt.Errorf("load capsules: %w", err)
	}

	now := s.now()
	var ids []uint
	for _, c := range capsules {
		if lifecycle.StateAt(c.UnlockAt, c.Expired, now) == lifecycle.StateExpired {
			ids = append(ids, c.ID)
		}
	}
	if len(ids) == 0 {
		return 0, nil
	}

	count, err := s.capsules.MarkExpired(ctx, ids)
	if err != nil {
		return 0, fmt.Errorf("mark expired: %w", err)
	}
	return count, nil
}
