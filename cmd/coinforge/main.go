package main

import (
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"

	"coinforge/internal/config"
)

func main() {
	root := &cobra.Command{
		Use:          "coinforge",
		Short:        "Merge-coin economy engine",
		SilenceUsage: true,
	}

	root.PersistentFlags().String("config", "", "config file path")

	serveCmd := &cobra.Command{
		Use:   "serve",
		Short: "Run the game loop behind an HTTP API",
		RunE:  runServe,
	}

	serveCmd.Flags().String("listen", ":8080", "HTTP listen address")
	serveCmd.Flags().StringSlice("cors-origins", []string{"*"}, "allowed CORS origins (comma-separated)")
	serveCmd.Flags().String("ledger", "./data/sales.jsonl", "sale ledger JSONL path, empty disables it")
	serveCmd.Flags().Int("tick-rate", 60, "loop ticks per second")
	serveCmd.Flags().Duration("autosave", 30*time.Second, "autosave interval, 0 disables it")
	addGameFlags(serveCmd.Flags())
	addStoreFlags(serveCmd.Flags(), "./data/save.json", "default")
	addLogFlags(serveCmd.Flags())

	root.AddCommand(serveCmd)

	simulateCmd := &cobra.Command{
		Use:   "simulate",
		Short: "Play a scripted session headlessly on a simulated clock",
		RunE:  runSimulate,
	}

	simulateCmd.Flags().Uint64("rounds", 10_000, "rounds to play")
	simulateCmd.Flags().Uint64("batch-size", 500, "rounds per persisted batch")
	simulateCmd.Flags().Duration("step", 250*time.Millisecond, "simulated time per round")
	simulateCmd.Flags().String("ledger", "./data/sim_sales.jsonl", "sale ledger JSONL path")
	simulateCmd.Flags().String("checkpoint", "./data/sim_checkpoint.json", "checkpoint file path, empty disables resume")
	addGameFlags(simulateCmd.Flags())
	addStoreFlags(simulateCmd.Flags(), "./data/sim_save.json", "simulate")
	addLogFlags(simulateCmd.Flags())

	root.AddCommand(simulateCmd)

	reportCmd := &cobra.Command{
		Use:   "report",
		Short: "Aggregate a sale ledger into per-level window metrics",
		RunE:  runReport,
	}

	reportCmd.Flags().String("in", "./data/sales.jsonl", "input sale ledger JSONL")
	reportCmd.Flags().String("window", "5m", "aggregation window (e.g. 1m, 5m, 1h)")
	reportCmd.Flags().String("pg-dsn", "", "Postgres DSN, empty writes JSON lines to stdout")
	reportCmd.Flags().Int("batch-size", 1000, "batch size for metric writes")
	reportCmd.Flags().String("state-file", "", "optional local state file for progress tracking")
	reportCmd.Flags().String("recompute-from", "", "recompute from timestamp (unix seconds or RFC3339)")
	addLogFlags(reportCmd.Flags())

	root.AddCommand(reportCmd)

	inspectCmd := &cobra.Command{
		Use:   "inspect",
		Short: "Print the stored snapshot",
		RunE:  runInspect,
	}

	addStoreFlags(inspectCmd.Flags(), "./data/save.json", "default")
	addLogFlags(inspectCmd.Flags())

	root.AddCommand(inspectCmd)

	if err := root.Execute(); err != nil {
		os.Exit(1)
	}
}

func addGameFlags(fs *pflag.FlagSet) {
	fs.String("balance", "", "balance sheet YAML, empty uses the defaults")
	fs.Uint64("seed", 0, "seed for deterministic spawns and price noise, 0 uses crypto randomness")
}

func addStoreFlags(fs *pflag.FlagSet, savePath, snapshotName string) {
	fs.String("store", config.StoreFile, "snapshot store (file, badger, postgres)")
	fs.String("save-path", savePath, "snapshot file path for store=file")
	fs.String("badger-dir", "./data/badger", "badger directory for store=badger")
	fs.String("pg-dsn", "", "Postgres DSN for store=postgres")
	fs.String("snapshot-name", snapshotName, "snapshot key for badger and postgres stores")
	fs.Int("max-retries", 5, "maximum save attempts")
	fs.Duration("retry-backoff", 500*time.Millisecond, "initial retry backoff")
}

func addLogFlags(fs *pflag.FlagSet) {
	fs.String("log-level", "info", "log level (debug, info, warn, error)")
	fs.String("log-file", "", "also write logs to this rotating file")
}

func newLogger(lc config.LogConfig) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Level = zap.NewAtomicLevel()
	if err := cfg.Level.UnmarshalText([]byte(lc.Level)); err != nil {
		return nil, err
	}

	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	logger, err := cfg.Build()
	if err != nil {
		return nil, err
	}
	if lc.File == "" {
		return logger, nil
	}

	rotating := zapcore.AddSync(&lumberjack.Logger{
		Filename:   lc.File,
		MaxSize:    lc.MaxSizeMB,
		MaxBackups: lc.MaxBackups,
		MaxAge:     lc.MaxAgeDays,
		Compress:   true,
	})
	fileCore := zapcore.NewCore(zapcore.NewJSONEncoder(cfg.EncoderConfig), rotating, cfg.Level)
	return logger.WithOptions(zap.WrapCore(func(core zapcore.Core) zapcore.Core {
		return zapcore.NewTee(core, fileCore)
	})), nil
}

func redactDSN(dsn string) string {
	if dsn == "" {
		return dsn
	}
	return "***"
}
