package aggregate

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"sort"
	"time"

	"go.uber.org/zap"

	"coinforge/internal/model"
)

// MetricsSink stores finished windows.
type MetricsSink interface {
	UpsertWindowMetrics(ctx context.Context, metrics []model.SaleWindowMetrics) error
}

// Config controls aggregation behavior.
type Config struct {
	Window        time.Duration
	BatchSize     int
	RecomputeFrom int64
	StateStore    StateStore
}

// Aggregator folds sale ledger rows into per-level window metrics.
type Aggregator struct {
	cfg          Config
	sink         MetricsSink
	logger       *zap.Logger
	accumulators map[int]*Accumulator
}

func NewAggregator(cfg Config, sink MetricsSink, logger *zap.Logger) *Aggregator {
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Aggregator{
		cfg:          cfg,
		sink:         sink,
		logger:       logger,
		accumulators: make(map[int]*Accumulator),
	}
}

// Run executes aggregation over a sale ledger JSONL file.
func (a *Aggregator) Run(ctx context.Context, inputPath string) error {
	if a.sink == nil {
		return fmt.Errorf("metrics sink is nil")
	}
	windowMS := a.cfg.Window.Milliseconds()
	if windowMS < 1000 {
		return fmt.Errorf("window must be at least 1s")
	}
	if a.cfg.BatchSize <= 0 {
		a.cfg.BatchSize = 1000
	}

	startTs, err := a.loadStartTimestamp(ctx)
	if err != nil {
		return err
	}

	file, err := os.Open(inputPath)
	if err != nil {
		return fmt.Errorf("open input: %w", err)
	}
	defer file.Close()

	scanner := bufio.NewScanner(file)
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 10*1024*1024)

	batch := make([]model.SaleWindowMetrics, 0, a.cfg.BatchSize)
	maxTs := startTs
	var total, windows, skipped, failed int

	for scanner.Scan() {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		line := bytes.TrimSpace(scanner.Bytes())
		if len(line) == 0 {
			continue
		}
		total++

		var record model.SaleRecord
		if err := json.Unmarshal(line, &record); err != nil {
			failed++
			a.logger.Warn("decode sale record", zap.Error(err))
			continue
		}
		if record.Level < 1 || record.Quantity < 1 {
			failed++
			a.logger.Warn("invalid sale record", zap.Int("level", record.Level), zap.Int("quantity", record.Quantity))
			continue
		}

		if record.Timestamp <= startTs {
			skipped++
			continue
		}

		start := windowStart(record.Timestamp, windowMS)
		acc := a.accumulators[record.Level]
		if acc == nil {
			acc = NewAccumulator(record, start, start+windowMS)
			a.accumulators[record.Level] = acc
		} else if acc.WindowStart != start {
			batch = append(batch, acc.Metrics(a.cfg.Window))
			windows++
			acc = NewAccumulator(record, start, start+windowMS)
			a.accumulators[record.Level] = acc
		}
		acc.AddSale(record)

		if record.Timestamp > maxTs {
			maxTs = record.Timestamp
		}

		if len(batch) >= a.cfg.BatchSize {
			if err := a.sink.UpsertWindowMetrics(ctx, batch); err != nil {
				return fmt.Errorf("store window metrics: %w", err)
			}
			batch = batch[:0]

			if err := a.saveState(ctx); err != nil {
				return err
			}
		}
	}

	if err := scanner.Err(); err != nil {
		return fmt.Errorf("scan input: %w", err)
	}

	levels := make([]int, 0, len(a.accumulators))
	for level := range a.accumulators {
		levels = append(levels, level)
	}
	sort.Ints(levels)
	for _, level := range levels {
		batch = append(batch, a.accumulators[level].Metrics(a.cfg.Window))
		windows++
	}
	a.accumulators = make(map[int]*Accumulator)

	if len(batch) > 0 {
		if err := a.sink.UpsertWindowMetrics(ctx, batch); err != nil {
			return fmt.Errorf("store window metrics: %w", err)
		}
	}

	a.cfg.RecomputeFrom = maxTs
	if err := a.saveState(ctx); err != nil {
		return err
	}

	a.logger.Info("aggregate complete",
		zap.Int("total", total),
		zap.Int("windows", windows),
		zap.Int("skipped", skipped),
		zap.Int("failed", failed),
	)

	return nil
}

func (a *Aggregator) loadStartTimestamp(ctx context.Context) (int64, error) {
	if a.cfg.RecomputeFrom > 0 {
		return a.cfg.RecomputeFrom - 1, nil
	}
	if a.cfg.StateStore == nil {
		return 0, nil
	}
	last, ok, err := a.cfg.StateStore.Load(ctx)
	if err != nil {
		return 0, err
	}
	if !ok {
		return 0, nil
	}
	return last, nil
}

// saveState records the newest timestamp whose window is closed, so a rerun
// rebuilds every still-open window.
func (a *Aggregator) saveState(ctx context.Context) error {
	if a.cfg.StateStore == nil {
		return nil
	}

	if len(a.accumulators) == 0 {
		return a.cfg.StateStore.Save(ctx, a.cfg.RecomputeFrom)
	}

	safeTs := minOpenWindowStart(a.accumulators)
	if safeTs > 0 {
		safeTs = safeTs - 1
	}
	if safeTs == 0 {
		safeTs = a.cfg.RecomputeFrom
	}
	return a.cfg.StateStore.Save(ctx, safeTs)
}

func windowStart(ts, windowMS int64) int64 {
	return ts - (ts % windowMS)
}

func minOpenWindowStart(acc map[int]*Accumulator) int64 {
	var earliest int64
	for _, entry := range acc {
		if entry == nil {
			continue
		}
		if earliest == 0 || entry.WindowStart < earliest {
			earliest = entry.WindowStart
		}
	}
	return earliest
}
