package matching

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/gridwatt/energymarket/internal/types"
)

// Executor settles the candidates a cycle proposed.
type Executor interface {
	ExecuteBatch(ctx context.Context, cands []types.Candidate) ([]*types.Trade, error)
}

// Runner drives the engine on a fixed interval and hands each cycle's
// candidates to the executor.
type Runner struct {
	engine   *Engine
	executor Executor
	interval time.Duration
	log      zerolog.Logger
}

func NewRunner(engine *Engine, executor Executor, interval time.Duration, log zerolog.Logger) *Runner {
	if interval <= 0 {
		interval = 5 * time.Second
	}
	return &Runner{
		engine:   engine,
		executor: executor,
		interval: interval,
		log:      log.With().Str("component", "matching").Logger(),
	}
}

// Start blocks, running cycles until the context is cancelled. Cycle errors
// are logged and the next tick retries; matching is idempotent over the
// surviving book.
func (r *Runner) Start(ctx context.Context) {
	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()

	r.log.Info().Dur("interval", r.interval).Msg("matching runner started")
	for {
		select {
		case <-ctx.Done():
			r.log.Info().Msg("matching runner stopped")
			return
		case <-ticker.C:
			if err := r.Cycle(ctx); err != nil {
				r.log.Error().Err(err).Msg("matching cycle failed")
			}
		}
	}
}

// Cycle runs one match-then-settle pass.
func (r *Runner) Cycle(ctx context.Context) error {
	candidates, err := r.engine.Run(ctx)
	if err != nil {
		return err
	}
	if len(candidates) == 0 {
		return nil
	}
	_, err = r.executor.ExecuteBatch(ctx, candidates)
	return err
}
