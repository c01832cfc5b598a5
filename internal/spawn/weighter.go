// Package spawn picks the level of newly dealt coins.
package spawn

import (
	"math"
	"sort"

	"coinforge/internal/bank"
	"coinforge/internal/rng"
)

const (
	DefaultDecay = 2.0

	lowMass  = 95.0
	highMass = 5.0
	lowTop   = 3
)

// Weighter samples coin levels from the distribution exposed by Probabilities.
type Weighter struct {
	Decay float64
	RNG   rng.RandomSource
}

// NewWeighter builds a weighter; a nil rng uses DefaultRNG.
func NewWeighter(decay float64, src rng.RandomSource) *Weighter {
	if decay <= 1 {
		decay = DefaultDecay
	}
	if src == nil {
		src = rng.DefaultRNG()
	}
	return &Weighter{Decay: decay, RNG: src}
}

// Weight is one entry of the spawn distribution, in percent.
type Weight struct {
	Level   int     `json:"level"`
	Percent float64 `json:"percent"`
}

// Distribution returns the normalized spawn distribution in ascending level order.
// Every returned level is placeable in b. It is empty only when nothing is placeable.
func (w *Weighter) Distribution(b *bank.Bank, maxLevel int) []Weight {
	candidates := w.candidates(b, maxLevel)
	if len(candidates) == 0 {
		if level, ok := fallbackLevel(b, maxLevel); ok {
			return []Weight{{Level: level, Percent: 100}}
		}
		return nil
	}

	var low, high []int
	for _, level := range candidates {
		if level <= lowTop {
			low = append(low, level)
		} else {
			high = append(high, level)
		}
	}

	raw := make([]Weight, 0, len(candidates))
	for _, level := range low {
		raw = append(raw, Weight{Level: level, Percent: lowMass / float64(len(low))})
	}
	if len(high) > 0 {
		minHigh := high[0]
		var sum float64
		shares := make([]float64, len(high))
		for i, level := range high {
			shares[i] = math.Pow(w.decay(), -float64(level-minHigh))
			sum += shares[i]
		}
		for i, level := range high {
			raw = append(raw, Weight{Level: level, Percent: highMass * shares[i] / sum})
		}
	}

	var total float64
	for _, r := range raw {
		total += r.Percent
	}
	for i := range raw {
		raw[i].Percent = raw[i].Percent * 100 / total
	}
	return raw
}

// Probabilities exposes Distribution keyed by level for display.
func (w *Weighter) Probabilities(b *bank.Bank, maxLevel int) map[int]float64 {
	dist := w.Distribution(b, maxLevel)
	out := make(map[int]float64, len(dist))
	for _, d := range dist {
		out[d.Level] = d.Percent
	}
	return out
}

// Pick samples one level. When nothing is placeable it still returns level 1;
// callers decide legality separately.
func (w *Weighter) Pick(b *bank.Bank, maxLevel int) int {
	dist := w.Distribution(b, maxLevel)
	if len(dist) == 0 {
		return 1
	}
	x := w.source().Float64() * 100
	var acc float64
	for _, d := range dist {
		acc += d.Percent
		if x < acc {
			return d.Level
		}
	}
	return dist[len(dist)-1].Level
}

func (w *Weighter) candidates(b *bank.Bank, maxLevel int) []int {
	seen := make(map[int]struct{})
	var levels []int
	add := func(level int) {
		if _, ok := seen[level]; ok {
			return
		}
		seen[level] = struct{}{}
		if b.CanPlace(level) {
			levels = append(levels, level)
		}
	}
	for level := 1; level <= lowTop && level <= maxLevel; level++ {
		add(level)
	}
	for _, level := range b.PresentLevels() {
		add(level)
	}
	sort.Ints(levels)
	return levels
}

func fallbackLevel(b *bank.Bank, maxLevel int) (int, bool) {
	limit := b.HighestLevel()
	if limit == 0 {
		limit = lowTop
	}
	if maxLevel > limit {
		limit = maxLevel
	}
	for level := 1; level <= limit; level++ {
		if b.CanPlace(level) {
			return level, true
		}
	}
	return 0, false
}

func (w *Weighter) decay() float64 {
	if w.Decay <= 1 {
		return DefaultDecay
	}
	return w.Decay
}

func (w *Weighter) source() rng.RandomSource {
	if w.RNG == nil {
		w.RNG = rng.DefaultRNG()
	}
	return w.RNG
}
