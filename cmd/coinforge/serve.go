package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"coinforge/internal/config"
	"coinforge/internal/loop"
	"coinforge/internal/server"
)

const httpShutdownTimeout = 10 * time.Second

func runServe(cmd *cobra.Command, _ []string) error {
	cfgFile, _ := cmd.Flags().GetString("config")
	cfg, err := config.Load(cfgFile, cmd.Flags())
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

	snap, ok, err := be.store.Load(ctx)
	if err == nil && ok {
		err = g.Restore(snap)
	}
	switch {
	case err != nil:
		logger.Warn("snapshot unusable, starting fresh", zap.Error(err))
	case ok:
		logger.Info("snapshot restored", zap.Int("currency", snap.Currency), zap.Int("prestige_level", snap.PrestigeLevel))
	default:
		logger.Info("no snapshot, starting fresh")
	}

	l := loop.New(loop.Config{
		TickInterval:     cfg.TickInterval(),
		AutosaveInterval: cfg.Autosave,
		MaxRetries:       cfg.Store.MaxRetries,
		RetryBackoff:     cfg.Store.RetryBackoff,
	}, g, be.store, be.ledgerSink(cfg.Ledger), logger)

	loopCtx, cancelLoop := context.WithCancel(context.Background())
	defer cancelLoop()
	loopErr := make(chan error, 1)
	go func() { loopErr <- l.Run(loopCtx) }()

	srv := &http.Server{
		Addr:              cfg.Listen,
		Handler:           server.New(l, logger).Router(cfg.CORSOrigins),
		ReadHeaderTimeout: 10 * time.Second,
	}
	srvErr := make(chan error, 1)
	go func() {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			srvErr <- err
		}
		close(srvErr)
	}()

	logger.Info("serve start",
		zap.String("session", sessionID),
		zap.String("listen", cfg.Listen),
		zap.Strings("cors_origins", cfg.CORSOrigins),
		zap.String("store", cfg.Store.Backend),
		zap.String("ledger", cfg.Ledger),
		zap.Int("tick_rate", cfg.TickRate),
		zap.Duration("autosave", cfg.Autosave),
		zap.Uint64("seed", cfg.Seed),
	)

	var runErr error
	select {
	case <-ctx.Done():
	case err := <-srvErr:
		if err != nil {
			runErr = fmt.Errorf("http server: %w", err)
		}
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), httpShutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown", zap.Error(err))
	}

	cancelLoop()
	if err := <-loopErr; err != nil {
		return errors.Join(runErr, err)
	}
	logger.Info("serve stopped")
	return runErr
}
