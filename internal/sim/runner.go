// Package sim plays a game headlessly in batches of rounds on a simulated clock,
// writing the sale ledger and a snapshot after every batch.
package sim

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"coinforge/internal/game"
	"coinforge/internal/retry"
	"coinforge/internal/storage"
)

// RunConfig holds runtime settings for the simulator.
type RunConfig struct {
	Rounds       uint64
	BatchSize    uint64
	Step         time.Duration
	Start        time.Time
	Strategy     Strategy
	MaxRetries   int
	RetryBackoff time.Duration
}

// Runner plays rounds and persists progress.
type Runner struct {
	cfg        RunConfig
	game       *game.Game
	store      storage.SnapshotStore
	sink       storage.SaleSink
	checkpoint *CheckpointStore
	logger     *zap.Logger
}

// NewRunner builds a Runner with its dependencies.
func NewRunner(cfg RunConfig, g *game.Game, store storage.SnapshotStore, sink storage.SaleSink, checkpoint *CheckpointStore, logger *zap.Logger) *Runner {
	if logger == nil {
		logger = zap.NewNop()
	}
	if checkpoint == nil {
		checkpoint = NewCheckpointStore("")
	}
	if cfg.Strategy == (Strategy{}) {
		cfg.Strategy = DefaultStrategy()
	}
	return &Runner{
		cfg:        cfg,
		game:       g,
		store:      store,
		sink:       sink,
		checkpoint: checkpoint,
		logger:     logger,
	}
}

// Run plays rounds 1..Rounds, resuming after the last checkpointed round.
func (r *Runner) Run(ctx context.Context) (RoundStats, error) {
	var total RoundStats
	if r.game == nil {
		return total, fmt.Errorf("game is nil")
	}
	if r.cfg.BatchSize == 0 {
		return total, fmt.Errorf("batch size must be greater than zero")
	}
	if r.cfg.Step <= 0 {
		return total, fmt.Errorf("step must be positive")
	}

	from := uint64(1)
	now := r.cfg.Start
	if now.IsZero() {
		now = time.Now().UTC()
	}

	cp, ok, err := r.checkpoint.Load()
	if err != nil {
		return total, err
	}
	if ok && cp.LastRound >= from {
		from = cp.LastRound + 1
		now = time.UnixMilli(cp.SimTimeMS).UTC()
		if err := r.restore(ctx); err != nil {
			return total, err
		}
		r.logger.Info("resume from checkpoint", zap.Uint64("last_round", cp.LastRound), zap.Uint64("from", from))
	}

	if from > r.cfg.Rounds {
		r.logger.Info("nothing to simulate", zap.Uint64("from", from), zap.Uint64("rounds", r.cfg.Rounds))
		return total, nil
	}

	batches, err := SplitRounds(from, r.cfg.Rounds, r.cfg.BatchSize)
	if err != nil {
		return total, err
	}

	for _, batch := range batches {
		select {
		case <-ctx.Done():
			return total, ctx.Err()
		default:
		}

		var stats RoundStats
		for round := batch.From; round <= batch.To; round++ {
			now = now.Add(r.cfg.Step)
			stats.add(r.cfg.Strategy.Play(r.game, now))
		}
		total.add(stats)

		if err := r.flush(ctx, now); err != nil {
			return total, err
		}
		if err := r.checkpoint.Save(batch.To, now); err != nil {
			return total, err
		}

		econ := r.game.Economy()
		r.logger.Info("batch complete",
			zap.Uint64("from", batch.From),
			zap.Uint64("to", batch.To),
			zap.Int("coins_dealt", stats.CoinsDealt),
			zap.Int("sold", stats.Sold),
			zap.Int("earned", stats.Earned),
			zap.Int("currency", econ.Currency),
			zap.Int("prestige_level", econ.PrestigeLevel),
			zap.Int("unlocked_slots", econ.UnlockedSlots),
		)
	}

	return total, nil
}

func (r *Runner) restore(ctx context.Context) error {
	if r.store == nil {
		return nil
	}
	snap, ok, err := r.store.Load(ctx)
	if err != nil {
		return fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		return nil
	}
	if err := r.game.Restore(snap); err != nil {
		return fmt.Errorf("restore snapshot: %w", err)
	}
	return nil
}

func (r *Runner) flush(ctx context.Context, now time.Time) error {
	sales := r.game.DrainSales()
	if len(sales) > 0 && r.sink != nil {
		recordedAt := now.UTC().Format(time.RFC3339Nano)
		for i := range sales {
			sales[i].RecordedAt = recordedAt
		}
		err := retry.Do(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(context.Context) error {
			err := r.sink.PutSaleBatch(sales)
			if err != nil {
				r.logger.Warn("store sales failed", zap.Error(err), zap.Int("sales", len(sales)))
			}
			return err
		})
		if err != nil {
			return fmt.Errorf("store sales: %w", err)
		}
	}

	if r.store == nil {
		return nil
	}
	snap := r.game.Snapshot()
	err := retry.Do(ctx, r.cfg.MaxRetries, r.cfg.RetryBackoff, func(ctx context.Context) error {
		err := r.store.Save(ctx, snap)
		if err != nil {
			r.logger.Warn("snapshot save failed", zap.Error(err))
		}
		return err
	})
	if err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}
