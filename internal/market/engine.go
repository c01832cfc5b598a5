// Package market derives per-level coin prices from sale history and recent demand.
package market

import (
	"math"
	"sort"
	"time"

	"coinforge/internal/combine"
	"coinforge/internal/rng"
)

// Config tunes the pricing model.
type Config struct {
	SaleHistoryCap  int
	ChartHistoryCap int
	Lookback        time.Duration
	MaxSamples      int
	DemandBase      float64
	DemandFloor     float64
	Noise           float64
	AlwaysTracked   int
}

// DefaultConfig returns the stock pricing parameters.
func DefaultConfig() Config {
	return Config{
		SaleHistoryCap:  1000,
		ChartHistoryCap: 80,
		Lookback:        30 * time.Second,
		MaxSamples:      100,
		DemandBase:      1.2,
		DemandFloor:     0.3,
		Noise:           0.02,
		AlwaysTracked:   3,
	}
}

type levelBook struct {
	prices *fifo[int]
	times  *fifo[time.Time]
	chart  *fifo[int]
}

// Engine keeps sale history per level and the derived prices.
type Engine struct {
	cfg     Config
	noise   rng.RandomSource
	books   map[int]*levelBook
	current map[int]int
}

// NewEngine builds an engine. A nil noise source uses rng.DefaultRNG.
func NewEngine(cfg Config, noise rng.RandomSource) *Engine {
	def := DefaultConfig()
	if cfg.SaleHistoryCap <= 0 {
		cfg.SaleHistoryCap = def.SaleHistoryCap
	}
	if cfg.ChartHistoryCap <= 0 {
		cfg.ChartHistoryCap = def.ChartHistoryCap
	}
	if cfg.Lookback <= 0 {
		cfg.Lookback = def.Lookback
	}
	if cfg.MaxSamples <= 0 {
		cfg.MaxSamples = def.MaxSamples
	}
	if cfg.DemandBase <= 0 {
		cfg.DemandBase = def.DemandBase
	}
	if cfg.DemandFloor <= 0 {
		cfg.DemandFloor = def.DemandFloor
	}
	if cfg.Noise < 0 {
		cfg.Noise = 0
	}
	if cfg.AlwaysTracked <= 0 {
		cfg.AlwaysTracked = def.AlwaysTracked
	}
	if noise == nil {
		noise = rng.DefaultRNG()
	}
	return &Engine{
		cfg:     cfg,
		noise:   noise,
		books:   make(map[int]*levelBook),
		current: make(map[int]int),
	}
}

func (e *Engine) book(level int) *levelBook {
	b := e.books[level]
	if b == nil {
		b = &levelBook{
			prices: newFIFO[int](e.cfg.SaleHistoryCap),
			times:  newFIFO[time.Time](e.cfg.SaleHistoryCap),
			chart:  newFIFO[int](e.cfg.ChartHistoryCap),
		}
		e.books[level] = b
	}
	return b
}

// RecordSale appends price and at to the level's history amplification times.
func (e *Engine) RecordSale(level, price, amplification int, at time.Time) {
	if level < 1 || price < 1 {
		return
	}
	if amplification < 1 {
		amplification = 1
	}
	b := e.book(level)
	for i := 0; i < amplification; i++ {
		b.prices.Push(price)
		b.times.Push(at)
	}
}

// Recompute refreshes the price of every tracked level: present, previously sold,
// and 1..AlwaysTracked. It returns the new prices.
func (e *Engine) Recompute(now time.Time, present []int) map[int]int {
	out := make(map[int]int)
	for _, level := range e.trackedLevels(present) {
		price := e.price(level, now)
		e.current[level] = price
		e.book(level).chart.Push(price)
		out[level] = price
	}
	return out
}

func (e *Engine) trackedLevels(present []int) []int {
	seen := make(map[int]struct{})
	for level := 1; level <= e.cfg.AlwaysTracked; level++ {
		seen[level] = struct{}{}
	}
	for _, level := range present {
		if level >= 1 {
			seen[level] = struct{}{}
		}
	}
	for level, b := range e.books {
		if b.prices.Len() > 0 {
			seen[level] = struct{}{}
		}
	}
	levels := make([]int, 0, len(seen))
	for level := range seen {
		levels = append(levels, level)
	}
	sort.Ints(levels)
	return levels
}

func (e *Engine) price(level int, now time.Time) int {
	value := float64(combine.CoinValue(level))
	base := value
	sales := 0

	if b := e.books[level]; b != nil && b.prices.Len() > 0 {
		base = e.basePrice(b, now, value)
		sales = e.recentSales(b, now)
	}

	demand := math.Max(e.cfg.DemandFloor, e.cfg.DemandBase-float64(sales)/(10+float64(level)))
	noise := rng.Uniform(e.noise, -e.cfg.Noise, e.cfg.Noise)
	price := int(math.Round(base * demand * (1 + noise)))
	if price < 1 {
		price = 1
	}
	return price
}

func (e *Engine) basePrice(b *levelBook, now time.Time, value float64) float64 {
	window := 2 * e.cfg.Lookback
	var recentSum, olderSum float64
	var recentN, olderN int
	for i := b.prices.Len() - 1; i >= 0; i-- {
		p := float64(b.prices.At(i))
		if now.Sub(b.times.At(i)) <= window {
			if recentN < e.cfg.MaxSamples {
				recentSum += p
				recentN++
			}
			continue
		}
		olderSum += p
		olderN++
	}
	switch {
	case recentN > 0:
		return recentSum / float64(recentN)
	case olderN > 0:
		return 0.4*(olderSum/float64(olderN)) + 0.6*value
	default:
		return value
	}
}

func (e *Engine) recentSales(b *levelBook, now time.Time) int {
	count := 0
	for i := b.times.Len() - 1; i >= 0; i-- {
		if now.Sub(b.times.At(i)) > e.cfg.Lookback {
			break
		}
		count++
	}
	return count
}

// Price returns the last computed price, or the coin value before the first recompute.
func (e *Engine) Price(level int) int {
	if p, ok := e.current[level]; ok {
		return p
	}
	if v := combine.CoinValue(level); v > 0 {
		return v
	}
	return 1
}

// Prices returns a copy of the last computed prices.
func (e *Engine) Prices() map[int]int {
	out := make(map[int]int, len(e.current))
	for level, p := range e.current {
		out[level] = p
	}
	return out
}

// Computed reports whether Recompute has produced any price yet.
func (e *Engine) Computed() bool {
	return len(e.current) > 0
}

// ChartHistory returns the displayed prices for level, oldest first.
func (e *Engine) ChartHistory(level int) []int {
	b := e.books[level]
	if b == nil {
		return nil
	}
	return b.chart.Items()
}

// ChartLevels returns the levels that have chart history, ascending.
func (e *Engine) ChartLevels() []int {
	levels := make([]int, 0, len(e.books))
	for level, b := range e.books {
		if b.chart.Len() > 0 {
			levels = append(levels, level)
		}
	}
	sort.Ints(levels)
	return levels
}

// SaleCount returns how many sale entries are held for level.
func (e *Engine) SaleCount(level int) int {
	b := e.books[level]
	if b == nil {
		return 0
	}
	return b.prices.Len()
}
