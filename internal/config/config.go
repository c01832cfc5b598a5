package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const envPrefix = "COINFORGE"

// Store backends.
const (
	StoreFile     = "file"
	StoreBadger   = "badger"
	StorePostgres = "postgres"
)

// LogConfig selects the log level and the optional rotating log file.
type LogConfig struct {
	Level      string
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// StoreConfig selects where snapshots live.
type StoreConfig struct {
	Backend      string
	SavePath     string
	BadgerDir    string
	PGDSN        string
	SnapshotName string
	MaxRetries   int
	RetryBackoff time.Duration
}

// Config holds configuration for the serve command.
type Config struct {
	Listen      string
	CORSOrigins []string
	Store       StoreConfig
	Ledger      string
	TickRate    int
	Autosave    time.Duration
	Balance     string
	Seed        uint64
	Log         LogConfig
}

// Load merges config file, environment variables, and flags into Config.
func Load(cfgFile string, flags *pflag.FlagSet) (Config, error) {
	v, err := newViper(cfgFile, flags, func(v *viper.Viper) {
		v.SetDefault("listen", ":8080")
		v.SetDefault("cors-origins", []string{"*"})
		v.SetDefault("ledger", "./data/sales.jsonl")
		v.SetDefault("tick-rate", 60)
		v.SetDefault("autosave", 30*time.Second)
	})
	if err != nil {
		return Config{}, err
	}

	cfg := Config{
		Listen:      v.GetString("listen"),
		CORSOrigins: getStringSlice(v, "cors-origins"),
		Store:       storeConfig(v),
		Ledger:      v.GetString("ledger"),
		TickRate:    v.GetInt("tick-rate"),
		Autosave:    v.GetDuration("autosave"),
		Balance:     v.GetString("balance"),
		Seed:        v.GetUint64("seed"),
		Log:         logConfig(v),
	}
	if cfg.TickRate <= 0 {
		return Config{}, fmt.Errorf("tick-rate must be positive")
	}
	if err := cfg.Store.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// TickInterval converts the tick rate to a period.
func (c Config) TickInterval() time.Duration {
	return time.Second / time.Duration(c.TickRate)
}

// Validate checks that the selected backend has what it needs.
func (s StoreConfig) Validate() error {
	switch s.Backend {
	case StoreFile:
		if s.SavePath == "" {
			return fmt.Errorf("save-path is required for store=file")
		}
	case StoreBadger:
		if s.BadgerDir == "" {
			return fmt.Errorf("badger-dir is required for store=badger")
		}
	case StorePostgres:
		if s.PGDSN == "" {
			return fmt.Errorf("pg-dsn is required for store=postgres")
		}
	default:
		return fmt.Errorf("unknown store %q (want file, badger or postgres)", s.Backend)
	}
	return nil
}

func newViper(cfgFile string, flags *pflag.FlagSet, defaults func(v *viper.Viper)) (*viper.Viper, error) {
	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	v.AutomaticEnv()

	v.SetDefault("store", StoreFile)
	v.SetDefault("save-path", "./data/save.json")
	v.SetDefault("badger-dir", "./data/badger")
	v.SetDefault("snapshot-name", "default")
	v.SetDefault("max-retries", 5)
	v.SetDefault("retry-backoff", 500*time.Millisecond)
	v.SetDefault("log-level", "info")
	v.SetDefault("log-max-size", 100)
	v.SetDefault("log-max-backups", 3)
	v.SetDefault("log-max-age", 28)
	if defaults != nil {
		defaults(v)
	}

	if flags != nil {
		if err := v.BindPFlags(flags); err != nil {
			return nil, fmt.Errorf("bind flags: %w", err)
		}
	}

	if cfgFile != "" {
		v.SetConfigFile(cfgFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("read config: %w", err)
		}
	} else {
		v.SetConfigName("config")
		v.AddConfigPath(".")
		if err := v.ReadInConfig(); err != nil {
			if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
				return nil, fmt.Errorf("read config: %w", err)
			}
		}
	}
	return v, nil
}

func storeConfig(v *viper.Viper) StoreConfig {
	return StoreConfig{
		Backend:      strings.ToLower(strings.TrimSpace(v.GetString("store"))),
		SavePath:     v.GetString("save-path"),
		BadgerDir:    v.GetString("badger-dir"),
		PGDSN:        v.GetString("pg-dsn"),
		SnapshotName: v.GetString("snapshot-name"),
		MaxRetries:   v.GetInt("max-retries"),
		RetryBackoff: v.GetDuration("retry-backoff"),
	}
}

func logConfig(v *viper.Viper) LogConfig {
	return LogConfig{
		Level:      v.GetString("log-level"),
		File:       v.GetString("log-file"),
		MaxSizeMB:  v.GetInt("log-max-size"),
		MaxBackups: v.GetInt("log-max-backups"),
		MaxAgeDays: v.GetInt("log-max-age"),
	}
}

func getStringSlice(v *viper.Viper, key string) []string {
	if !v.IsSet(key) {
		return nil
	}

	val := v.Get(key)
	switch typed := val.(type) {
	case []string:
		return cleanStrings(typed)
	case string:
		return splitAndClean(typed)
	case []interface{}:
		items := make([]string, 0, len(typed))
		for _, item := range typed {
			items = append(items, fmt.Sprintf("%v", item))
		}
		return cleanStrings(items)
	default:
		return nil
	}
}

func splitAndClean(input string) []string {
	if input == "" {
		return nil
	}
	parts := strings.Split(input, ",")
	return cleanStrings(parts)
}

func cleanStrings(items []string) []string {
	out := make([]string, 0, len(items))
	for _, item := range items {
		item = strings.TrimSpace(item)
		if item == "" {
			continue
		}
		out = append(out, item)
	}
	return out
}

// LoadStore reads only the snapshot store and logging settings.
func LoadStore(cfgFile string, flags *pflag.FlagSet) (StoreConfig, LogConfig, error) {
	v, err := newViper(cfgFile, flags, nil)
	if err != nil {
		return StoreConfig{}, LogConfig{}, err
	}
	store := storeConfig(v)
	if err := store.Validate(); err != nil {
		return StoreConfig{}, LogConfig{}, err
	}
	return store, logConfig(v), nil
}
