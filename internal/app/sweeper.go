package app

import (
	"context"
	"log"
	"time"
)

// HoldExpirer is the slice of HoldService the sweeper needs.
type HoldExpirer interface {
	ExpireDueHolds(ctx context.Context) (int64, error)
}

// Sweeper expires overdue holds on a fixed cadence, independent of request
// traffic. It only ever performs the one-way active -> expired transition,
// which commutes safely with any acquire or promote racing it; the lazy
// expiry check in every capacity query remains the correctness backstop.
type Sweeper struct {
	holds    HoldExpirer
	logger   *log.Logger
	interval time.Duration
}

const defaultSweepInterval = 30 * time.Second

func NewSweeper(holds HoldExpirer, logger *log.Logger, interval time.Duration) *Sweeper {
	if logger == nil {
		logger = log.Default()
	}
	if interval <= 0 {
		interval = defaultSweepInterval
	}
	return &Sweeper{holds: holds, logger: logger, interval: interval}
}

// Run blocks until ctx is cancelled, sweeping once per interval.
func (s *Sweeper) Run(ctx context.Context) {
	ticker := time.NewTicker(s.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			expired, err := s.holds.ExpireDueHolds(ctx)
			if err != nil {
				s.logger.Printf("hold sweep failed: %v", err)
				continue
			}
			if expired > 0 {
				s.logger.Printf("hold sweep expired %d holds", expired)
			}
		}
	}
}
