// Package loop owns a game.Game on a single goroutine. Every command, tick and
// snapshot runs there; persistence I/O runs on the caller's goroutine.
package loop

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"coinforge/internal/game"
	"coinforge/internal/model"
	"coinforge/internal/retry"
	"coinforge/internal/storage"
)

// ErrLoopStopped is returned by Submit once Run has exited.
var ErrLoopStopped = errors.New("loop stopped")

const (
	DefaultTickInterval = time.Second / 60
	maxPendingSales     = 10_000
	shutdownTimeout     = 10 * time.Second
)

// Config holds runtime settings for the loop.
type Config struct {
	TickInterval     time.Duration
	AutosaveInterval time.Duration
	MaxRetries       int
	RetryBackoff     time.Duration
	Now              func() time.Time
}

type command struct {
	fn   func(*game.Game)
	done chan struct{}
}

// Loop serializes access to one game.
type Loop struct {
	cfg    Config
	game   *game.Game
	store  storage.SnapshotStore
	sink   storage.SaleSink
	logger *zap.Logger

	cmds    chan command
	done    chan struct{}
	saveMu  sync.Mutex
	pending []model.SaleRecord
}

// New builds a Loop. store and sink may be nil.
func New(cfg Config, g *game.Game, store storage.SnapshotStore, sink storage.SaleSink, logger *zap.Logger) *Loop {
	if logger == nil {
		logger = zap.NewNop()
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = DefaultTickInterval
	}
	if cfg.Now == nil {
		cfg.Now = time.Now
	}
	return &Loop{
		cfg:    cfg,
		game:   g,
		store:  store,
		sink:   sink,
		logger: logger,
		cmds:   make(chan command),
		done:   make(chan struct{}),
	}
}

// Now returns the loop clock.
func (l *Loop) Now() time.Time {
	return l.cfg.Now()
}

// Run processes commands and ticks until ctx is cancelled, then flushes the
// sale ledger and writes a final snapshot.
func (l *Loop) Run(ctx context.Context) error {
	if l.game == nil {
		return fmt.Errorf("game is nil")
	}
	defer close(l.done)

	var wg sync.WaitGroup
	if l.cfg.AutosaveInterval > 0 && l.store != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			l.autosave(ctx)
		}()
	}

	ticker := time.NewTicker(l.cfg.TickInterval)
	defer ticker.Stop()

	l.logger.Info("loop start", zap.Duration("tick_interval", l.cfg.TickInterval), zap.Duration("autosave", l.cfg.AutosaveInterval))

	for {
		select {
		case <-ctx.Done():
			wg.Wait()
			return l.shutdown()
		case cmd := <-l.cmds:
			cmd.fn(l.game)
			close(cmd.done)
		case <-ticker.C:
			rep := l.game.Tick(l.cfg.Now())
			if rep.WorkerDealt {
				l.logger.Debug("worker dealt", zap.Int("dealt", rep.Worker.Dealt), zap.Int("gained", rep.Worker.Gained))
			}
			l.flushSales()
		}
	}
}

func (l *Loop) shutdown() error {
	l.game.CancelDrag()
	l.flushSales()
	if l.store == nil {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := l.persist(ctx, l.game.Snapshot()); err != nil {
		return fmt.Errorf("final save: %w", err)
	}
	l.logger.Info("loop stopped")
	return nil
}

// Submit runs fn on the loop goroutine and waits for it to finish.
func (l *Loop) Submit(ctx context.Context, fn func(*game.Game)) error {
	cmd := command{fn: fn, done: make(chan struct{})}
	select {
	case l.cmds <- cmd:
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrLoopStopped
	}
	<-cmd.done
	return nil
}

// Save snapshots the game on the loop and persists it with retries.
func (l *Loop) Save(ctx context.Context) error {
	if l.store == nil {
		return fmt.Errorf("no snapshot store configured")
	}
	var snap model.Snapshot
	if err := l.Submit(ctx, func(g *game.Game) {
		g.CancelDrag()
		snap = g.Snapshot()
	}); err != nil {
		return err
	}
	return l.persist(ctx, snap)
}

// Load restores the stored snapshot. It reports false when nothing was stored.
func (l *Loop) Load(ctx context.Context) (bool, error) {
	if l.store == nil {
		return false, fmt.Errorf("no snapshot store configured")
	}
	snap, ok, err := l.store.Load(ctx)
	if err != nil {
		return false, fmt.Errorf("load snapshot: %w", err)
	}
	if !ok {
		return false, nil
	}
	var restoreErr error
	if err := l.Submit(ctx, func(g *game.Game) { restoreErr = g.Restore(snap) }); err != nil {
		return false, err
	}
	if restoreErr != nil {
		return false, fmt.Errorf("restore snapshot: %w", restoreErr)
	}
	return true, nil
}

func (l *Loop) persist(ctx context.Context, snap model.Snapshot) error {
	l.saveMu.Lock()
	defer l.saveMu.Unlock()
	return retry.Do(ctx, l.cfg.MaxRetries, l.cfg.RetryBackoff, func(ctx context.Context) error {
		err := l.store.Save(ctx, snap)
		if err != nil {
			l.logger.Warn("snapshot save failed", zap.Error(err))
		}
		return err
	})
}

func (l *Loop) autosave(ctx context.Context) {
	ticker := time.NewTicker(l.cfg.AutosaveInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if err := l.Save(ctx); err != nil && ctx.Err() == nil {
				l.logger.Error("autosave", zap.Error(err))
			}
		}
	}
}

// flushSales moves drained sale records to the sink. Failed batches stay
// pending for the next tick.
func (l *Loop) flushSales() {
	sales := l.game.DrainSales()
	if len(sales) > 0 {
		recordedAt := l.cfg.Now().UTC().Format(time.RFC3339Nano)
		for i := range sales {
			sales[i].RecordedAt = recordedAt
		}
		l.pending = append(l.pending, sales...)
	}
	if len(l.pending) == 0 || l.sink == nil {
		l.pending = nil
		return
	}
	if err := l.sink.PutSaleBatch(l.pending); err != nil {
		if over := len(l.pending) - maxPendingSales; over > 0 {
			l.logger.Warn("dropping unsent sales", zap.Int("dropped", over))
			l.pending = append([]model.SaleRecord(nil), l.pending[over:]...)
		}
		l.logger.Warn("store sales", zap.Error(err), zap.Int("pending", len(l.pending)))
		return
	}
	l.pending = nil
}
