// Package scheduler drives the deadline sweeps. Deadlines live on the wager
// rows, so the loop is stateless and restart-safe: every tick re-reads
// whatever is overdue.
package scheduler

import (
	"context"
	"expvar"
	"time"

	"github.com/rs/zerolog/log"
)

var (
	metricTicksTotal      = expvar.NewInt("scheduler_ticks_total")
	metricTickErrorsTotal = expvar.NewInt("scheduler_tick_errors_total")
)

// Sweeper processes everything whose deadline has passed.
type Sweeper interface {
	SweepExpired(ctx context.Context) error
}

type Scheduler struct {
	sweeper  Sweeper
	interval time.Duration
	ticks    <-chan time.Time // test override
}

func New(sweeper Sweeper, interval time.Duration) *Scheduler {
	if interval <= 0 {
		interval = time.Minute
	}
	return &Scheduler{sweeper: sweeper, interval: interval}
}

// SetTicks replaces the internal ticker in tests.
func (s *Scheduler) SetTicks(ticks <-chan time.Time) {
	s.ticks = ticks
}

// Start runs the sweep loop until ctx is cancelled. One sweep runs
// immediately so a restart catches up without waiting a full interval.
func (s *Scheduler) Start(ctx context.Context) {
	go func() {
		s.tick(ctx)
		ticks := s.ticks
		if ticks == nil {
			ticker := time.NewTicker(s.interval)
			defer ticker.Stop()
			ticks = ticker.C
		}
		for {
			select {
			case <-ctx.Done():
				return
			case <-ticks:
				s.tick(ctx)
			}
		}
	}()
}

func (s *Scheduler) tick(ctx context.Context) {
	metricTicksTotal.Add(1)
	if err := s.sweeper.SweepExpired(ctx); err != nil {
		metricTickErrorsTotal.Add(1)
		log.Error().Err(err).Msg("deadline sweep failed")
	}
}
