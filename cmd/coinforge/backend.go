package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"coinforge/internal/config"
	"coinforge/internal/game"
	"coinforge/internal/rng"
	"coinforge/internal/storage"
	"coinforge/internal/storage/postgres"
)

type backend struct {
	store storage.SnapshotStore
	pg    *postgres.Store
	close func()
}

func (b *backend) Close() {
	if b.close != nil {
		b.close()
	}
}

func openBackend(ctx context.Context, sc config.StoreConfig, logger *zap.Logger) (*backend, error) {
	switch sc.Backend {
	case config.StoreFile:
		logger.Info("snapshot store", zap.String("backend", sc.Backend), zap.String("path", sc.SavePath))
		return &backend{store: storage.NewFileSnapshotStore(sc.SavePath)}, nil
	case config.StoreBadger:
		db, err := storage.OpenBadger(sc.BadgerDir, sc.SnapshotName)
		if err != nil {
			return nil, err
		}
		logger.Info("snapshot store", zap.String("backend", sc.Backend), zap.String("dir", sc.BadgerDir), zap.String("name", sc.SnapshotName))
		return &backend{store: db, close: func() {
			if err := db.Close(); err != nil {
				logger.Warn("close badger", zap.Error(err))
			}
		}}, nil
	case config.StorePostgres:
		pg, err := postgres.NewStore(ctx, sc.PGDSN)
		if err != nil {
			return nil, fmt.Errorf("connect postgres: %w", err)
		}
		if err := pg.EnsureSchema(ctx); err != nil {
			pg.Close()
			return nil, err
		}
		logger.Info("snapshot store", zap.String("backend", sc.Backend), zap.String("pg_dsn", redactDSN(sc.PGDSN)), zap.String("name", sc.SnapshotName))
		return &backend{
			store: &postgres.SnapshotStore{Store: pg, Name: sc.SnapshotName},
			pg:    pg,
			close: pg.Close,
		}, nil
	default:
		return nil, fmt.Errorf("unknown store %q", sc.Backend)
	}
}

// ledgerSink writes sales to the JSONL ledger and, on the postgres backend, to
// the sales table as well.
func (b *backend) ledgerSink(ledger string) storage.SaleSink {
	var sinks storage.MultiSink
	if ledger != "" {
		sinks = append(sinks, storage.NewJsonlStorage(ledger))
	}
	if b.pg != nil {
		sinks = append(sinks, &postgres.SaleSink{Store: b.pg})
	}
	switch len(sinks) {
	case 0:
		return nil
	case 1:
		return sinks[0]
	default:
		return sinks
	}
}

func newGame(balancePath string, seed uint64, sessionID string, logger *zap.Logger) (*game.Game, error) {
	sheet, err := config.LoadSheet(balancePath)
	if err != nil {
		return nil, err
	}
	opts := game.Options{
		Balance:   sheet.Balance,
		Market:    sheet.Market,
		SessionID: sessionID,
		Logger:    logger,
	}
	if seed != 0 {
		opts.SpawnRNG = rng.NewSeededRNG(seed)
		opts.NoiseRNG = rng.NewSeededRNG(seed + 1)
	}
	return game.New(opts)
}
