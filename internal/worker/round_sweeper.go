// Package worker runs background jobs owned by the server process.
package worker

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Sweeper persists derived round statuses.
type Sweeper interface {
	SweepRounds(ctx context.Context) (int, error)
}

// RoundSweeper calls Sweeper.SweepRounds every interval until stopped.
type RoundSweeper struct {
	sweeper  Sweeper
	interval time.Duration
	log      zerolog.Logger

	mu     sync.Mutex
	cancel context.CancelFunc
	done   chan struct{}
}

func NewRoundSweeper(sweeper Sweeper, interval time.Duration, log zerolog.Logger) *RoundSweeper {
	return &RoundSweeper{
		sweeper:  sweeper,
		interval: interval,
		log:      log.With().Str("worker", "round_sweeper").Logger(),
	}
}

// Start runs one sweep immediately and then one per tick. Calling Start on a
// running sweeper is a no-op.
func (w *RoundSweeper) Start(ctx context.Context) {
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.cancel != nil {
		return
	}

	ctx, cancel := context.WithCancel(ctx)
	w.cancel = cancel
	w.done = make(chan struct{})

	ticker := time.NewTicker(w.interval)
	go func(done chan<- struct{}) {
		defer close(done)
		defer ticker.Stop()

		w.sweep(ctx)
		for {
			select {
			case <-ticker.C:
				w.sweep(ctx)
			case <-ctx.Done():
				return
			}
		}
	}(w.done)
	w.log.Info().Dur("interval", w.interval).Msg("round sweeper started")
}

// Stop cancels the loop and waits for an in-flight sweep to return.
func (w *RoundSweeper) Stop() {
	w.mu.Lock()
	cancel, done := w.cancel, w.done
	w.cancel, w.done = nil, nil
	w.mu.Unlock()

	if cancel == nil {
		return
	}
	cancel()
	<-done
	w.log.Info().Msg("round sweeper stopped")
}

func (w *RoundSweeper) sweep(ctx context.Context) {
	moved, err := w.sweeper.SweepRounds(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return
		}
		w.log.Error().Err(err).Msg("round sweep failed")
		return
	}
	if moved > 0 {
		w.log.Info().Int("rounds_updated", moved).Msg("round statuses persisted")
	}
}
