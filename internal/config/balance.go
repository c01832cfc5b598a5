package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"coinforge/internal/market"
	"coinforge/internal/rules"
)

// Sheet is the tunable part of a game: economy balance and market model.
type Sheet struct {
	Balance rules.Balance
	Market  market.Config
}

// DefaultSheet returns the stock balance and market parameters.
func DefaultSheet() Sheet {
	return Sheet{Balance: rules.DefaultBalance(), Market: market.DefaultConfig()}
}

// RawSheet mirrors the YAML balance file. Unset fields keep their defaults.
type RawSheet struct {
	Slots    RawSlots    `yaml:"slots"`
	Economy  RawEconomy  `yaml:"economy"`
	Deal     RawDeal     `yaml:"deal"`
	Upgrades RawUpgrades `yaml:"upgrades"`
	Market   RawMarket   `yaml:"market"`
}

type RawSlots struct {
	Initial  *int `yaml:"initial"`
	Max      *int `yaml:"max"`
	Capacity *int `yaml:"capacity"`
	BaseCost *int `yaml:"base_cost"`
}

type RawEconomy struct {
	PrestigeMinCurrency *int     `yaml:"prestige_min_currency"`
	PrestigeStep        *float64 `yaml:"prestige_step"`
	SellAllAmplify      *int     `yaml:"sell_all_amplification"`
	QuickSellDivisor    *int     `yaml:"quick_sell_divisor"`
}

type RawDeal struct {
	Cooldown    *time.Duration `yaml:"cooldown"`
	MinCooldown *time.Duration `yaml:"min_cooldown"`
	SpawnDecay  *float64       `yaml:"spawn_decay"`
}

type RawUpgrades struct {
	TimeThiefReduction *time.Duration `yaml:"time_thief_reduction"`
	TimeThiefBaseCost  *int           `yaml:"time_thief_base_cost"`
	WorkerCost         *int           `yaml:"worker_cost"`
	WorkerInterval     *time.Duration `yaml:"worker_interval"`
}

type RawMarket struct {
	SaleHistory   *int           `yaml:"sale_history"`
	ChartHistory  *int           `yaml:"chart_history"`
	Lookback      *time.Duration `yaml:"lookback"`
	MaxSamples    *int           `yaml:"max_samples"`
	PriceInterval *time.Duration `yaml:"price_interval"`
	Noise         *float64       `yaml:"noise"`
}

// LoadSheet reads a YAML balance file over the defaults. An empty path returns
// the defaults.
func LoadSheet(path string) (Sheet, error) {
	if strings.TrimSpace(path) == "" {
		return DefaultSheet(), nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return Sheet{}, fmt.Errorf("read balance: %w", err)
	}
	return ParseSheet(data)
}

// ParseSheet decodes YAML balance data, overlays it on the defaults and validates
// the result.
func ParseSheet(data []byte) (Sheet, error) {
	var raw RawSheet
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return Sheet{}, fmt.Errorf("parse balance: %w", err)
	}
	sheet := mergeSheet(DefaultSheet(), raw)
	if err := ValidateSheet(sheet); err != nil {
		return Sheet{}, err
	}
	return sheet, nil
}

func mergeSheet(out Sheet, raw RawSheet) Sheet {
	b := &out.Balance
	setInt(&b.InitialSlots, raw.Slots.Initial)
	setInt(&b.MaxSlots, raw.Slots.Max)
	setInt(&b.SlotCapacity, raw.Slots.Capacity)
	setInt(&b.SlotBaseCost, raw.Slots.BaseCost)

	setInt(&b.PrestigeMinCurrency, raw.Economy.PrestigeMinCurrency)
	setFloat(&b.PrestigeStep, raw.Economy.PrestigeStep)
	setInt(&b.SellAllAmplify, raw.Economy.SellAllAmplify)
	setInt(&b.QuickSellDivisor, raw.Economy.QuickSellDivisor)

	setDuration(&b.DealCooldown, raw.Deal.Cooldown)
	setDuration(&b.MinDealCooldown, raw.Deal.MinCooldown)
	setFloat(&b.SpawnDecay, raw.Deal.SpawnDecay)

	setDuration(&b.TimeThiefReduction, raw.Upgrades.TimeThiefReduction)
	setInt(&b.TimeThiefBaseCost, raw.Upgrades.TimeThiefBaseCost)
	setInt(&b.WorkerCost, raw.Upgrades.WorkerCost)
	setDuration(&b.WorkerInterval, raw.Upgrades.WorkerInterval)

	m := &out.Market
	setInt(&m.SaleHistoryCap, raw.Market.SaleHistory)
	setInt(&m.ChartHistoryCap, raw.Market.ChartHistory)
	setDuration(&m.Lookback, raw.Market.Lookback)
	setInt(&m.MaxSamples, raw.Market.MaxSamples)
	setFloat(&m.Noise, raw.Market.Noise)
	setDuration(&b.PriceInterval, raw.Market.PriceInterval)
	return out
}

// ValidateSheet reports every violated constraint in one error.
func ValidateSheet(s Sheet) error {
	var errs []string
	b := s.Balance

	if b.InitialSlots < 1 {
		errs = append(errs, "slots.initial must be >= 1")
	}
	if b.MaxSlots < b.InitialSlots {
		errs = append(errs, "slots.max must be >= slots.initial")
	}
	if b.MaxSlots-b.InitialSlots > 30 {
		errs = append(errs, "slots.max - slots.initial must be <= 30")
	}
	if b.SlotCapacity < 2 {
		errs = append(errs, "slots.capacity must be >= 2")
	}
	if b.SlotBaseCost < 1 {
		errs = append(errs, "slots.base_cost must be >= 1")
	}
	if b.PrestigeMinCurrency < 0 {
		errs = append(errs, "economy.prestige_min_currency must be >= 0")
	}
	if b.PrestigeStep <= 0 {
		errs = append(errs, "economy.prestige_step must be > 0")
	}
	if b.SellAllAmplify < 1 {
		errs = append(errs, "economy.sell_all_amplification must be >= 1")
	}
	if b.QuickSellDivisor < 1 {
		errs = append(errs, "economy.quick_sell_divisor must be >= 1")
	}
	if b.MinDealCooldown <= 0 {
		errs = append(errs, "deal.min_cooldown must be > 0")
	}
	if b.DealCooldown < b.MinDealCooldown {
		errs = append(errs, "deal.cooldown must be >= deal.min_cooldown")
	}
	if b.SpawnDecay <= 1 {
		errs = append(errs, "deal.spawn_decay must be > 1")
	}
	if b.TimeThiefReduction <= 0 {
		errs = append(errs, "upgrades.time_thief_reduction must be > 0")
	} else if n := rules.MaxTimeThief(b); n > 30 {
		errs = append(errs, fmt.Sprintf("upgrades allow %d time thieves, at most 30 are supported", n))
	}
	if b.TimeThiefBaseCost < 1 {
		errs = append(errs, "upgrades.time_thief_base_cost must be >= 1")
	}
	if b.WorkerCost < 0 {
		errs = append(errs, "upgrades.worker_cost must be >= 0")
	}
	if b.WorkerInterval <= 0 {
		errs = append(errs, "upgrades.worker_interval must be > 0")
	}

	m := s.Market
	if m.SaleHistoryCap < 1 {
		errs = append(errs, "market.sale_history must be >= 1")
	}
	if m.ChartHistoryCap < 1 {
		errs = append(errs, "market.chart_history must be >= 1")
	}
	if m.Lookback <= 0 {
		errs = append(errs, "market.lookback must be > 0")
	}
	if m.MaxSamples < 1 {
		errs = append(errs, "market.max_samples must be >= 1")
	}
	if m.Noise < 0 || m.Noise >= 1 {
		errs = append(errs, "market.noise must be in [0,1)")
	}
	if b.PriceInterval <= 0 {
		errs = append(errs, "market.price_interval must be > 0")
	}

	if len(errs) > 0 {
		return errors.New("invalid balance: " + strings.Join(errs, "; "))
	}
	return nil
}

func setInt(dst *int, src *int) {
	if src != nil {
		*dst = *src
	}
}

func setFloat(dst *float64, src *float64) {
	if src != nil {
		*dst = *src
	}
}

func setDuration(dst *time.Duration, src *time.Duration) {
	if src != nil {
		*dst = *src
	}
}
