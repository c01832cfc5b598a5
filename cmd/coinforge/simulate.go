package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"coinforge/internal/config"
	"coinforge/internal/sim"
)

func runSimulate(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.LoadSimulate(cfgFile, cmd.Flags())
	if err != nil {
		return err
	}

	logger, err := newLogger(cfg.Log)
	if err != nil {
		return err
	}
	defer logger.Sync()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	be, err := openBackend(ctx, cfg.Store, logger)
	if err != nil {
		return err
	}
	defer be.Close()

	sessionID := uuid.NewString()
	g, err := newGame(cfg.Balance, cfg.Seed, sessionID, logger.With(zap.String("session", sessionID)))
	if err != nil {
		return err
	}

	runner := sim.NewRunner(sim.RunConfig{
		Rounds:       cfg.Rounds,
		BatchSize:    cfg.BatchSize,
		Step:         cfg.Step,
		Start:        time.Now().UTC(),
		MaxRetries:   cfg.Store.MaxRetries,
		RetryBackoff: cfg.Store.RetryBackoff,
	}, g, be.store, be.ledgerSink(cfg.Ledger), sim.NewCheckpointStore(cfg.Checkpoint), logger)

	logger.Info("simulate start",
		zap.String("session", sessionID),
		zap.Uint64("rounds", cfg.Rounds),
		zap.Uint64("batch_size", cfg.BatchSize),
		zap.Duration("step", cfg.Step),
		zap.String("ledger", cfg.Ledger),
		zap.String("checkpoint", cfg.Checkpoint),
		zap.String("store", cfg.Store.Backend),
		zap.Uint64("seed", cfg.Seed),
	)

	stats, err := runner.Run(ctx)
	econ := g.Economy()
	logger.Info("simulate done",
		zap.Int("deals", stats.Deals),
		zap.Int("coins_dealt", stats.CoinsDealt),
		zap.Int("gained", stats.Gained),
		zap.Int("sales", stats.Sales),
		zap.Int("sold", stats.Sold),
		zap.Int("earned", stats.Earned),
		zap.Int("quick_sells", stats.QuickSells),
		zap.Int("purchases", stats.Purchases),
		zap.Int("prestiges", stats.Prestiges),
		zap.Int("currency", econ.Currency),
		zap.Int("prestige_level", econ.PrestigeLevel),
	)
	return err
}
