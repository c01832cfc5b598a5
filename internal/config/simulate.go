package config

import (
	"fmt"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

// SimulateConfig holds configuration for the headless simulator.
type SimulateConfig struct {
	Rounds     uint64
	BatchSize  uint64
	Step       time.Duration
	Store      StoreConfig
	Checkpoint string
	Ledger     string
	Balance    string
	Seed       uint64
	Log        LogConfig
}

// LoadSimulate merges config file, environment variables, and flags into SimulateConfig.
func LoadSimulate(cfgFile string, flags *pflag.FlagSet) (SimulateConfig, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("rounds", uint64(10_000))
		v.SetDefault("batch-size", uint64(500))
		v.SetDefault("step", 250*time.Millisecond)
		v.SetDefault("ledger", "./data/sim_sales.jsonl")
		v.SetDefault("save-path", "./data/sim_save.json")
		v.SetDefault("snapshot-name", "simulate")
		v.SetDefault("checkpoint", "./data/sim_checkpoint.json")
	})
	if err != nil {
		return SimulateConfig{}, err
	}

	cfg := SimulateConfig{
		Rounds:     v.GetUint64("rounds"),
		BatchSize:  v.GetUint64("batch-size"),
		Step:       v.GetDuration("step"),
		Store:      storeConfig(v),
		Checkpoint: v.GetString("checkpoint"),
		Ledger:     v.GetString("ledger"),
		Balance:    v.GetString("balance"),
		Seed:       v.GetUint64("seed"),
		Log:        logConfig(v),
	}
	if cfg.Rounds == 0 {
		return SimulateConfig{}, fmt.Errorf("rounds must be greater than zero")
	}
	if cfg.BatchSize == 0 {
		return SimulateConfig{}, fmt.Errorf("batch-size must be greater than zero")
	}
	if cfg.Step <= 0 {
		return SimulateConfig{}, fmt.Errorf("step must be positive")
	}
	if err := cfg.Store.Validate(); err != nil {
		return SimulateConfig{}, err
	}
	return cfg, nil
}
