// Package combine resolves cascading promotions across a slot bank.
package combine

import (
	"math"

	"coinforge/internal/bank"
)

// MaxLevel is the highest coin level with a distinct value. Reaching it through
// play takes capacity^(MaxLevel-1) level-1 coins.
const MaxLevel = 40

// CoinValue returns 10 * 2^(level-1) for level >= 1 and 0 otherwise. Levels
// above MaxLevel are valued as MaxLevel.
func CoinValue(level int) int {
	if level < 1 {
		return 0
	}
	if level > MaxLevel {
		level = MaxLevel
	}
	return 10 << (level - 1)
}

// Outcome summarizes one Resolve call. Promotions counts coins created and
// Overwrites those that replaced their source slot; Levels maps each created
// level to its count.
type Outcome struct {
	Gained     int
	RawGained  int
	Promotions int
	Overwrites int
	Levels     map[int]int
	Passes     int
}

// Resolve promotes every slot at or above capacity until a full pass produces no
// promotion, credits floor(raw*multiplier) to the economy and returns it.
//
// A promoted coin goes through the bank placement policy; when nothing can take it,
// it overwrites its source slot instead so no promotion is lost. Promoted levels
// stop at MaxLevel. Every promotion lowers the coin count, which bounds the number
// of passes by the starting coin count.
func Resolve(b *bank.Bank, econ *Economy) Outcome {
	var out Outcome
	if b == nil || b.Capacity() < 2 {
		return out
	}
	capacity := b.Capacity()
	maxPasses := b.TotalCoins() + 1

	for promoted := true; promoted && out.Passes < maxPasses; {
		promoted = false
		out.Passes++
		for i := 0; i < b.Len(); i++ {
			s := b.At(i)
			if s.Empty() || s.Count < capacity {
				continue
			}
			promos := s.Count / capacity
			s.Count %= capacity
			for p := 0; p < promos; p++ {
				// an overwrite changes the slot level, so later coins go one higher
				target := s.Level + 1
				if target > MaxLevel {
					target = MaxLevel
				}
				if !b.Place(target) {
					s.Level = target
					s.Count = 1
					out.Overwrites++
				}
				out.RawGained += CoinValue(target)
				out.Promotions++
				if out.Levels == nil {
					out.Levels = make(map[int]int)
				}
				out.Levels[target]++
				promoted = true
			}
			if s.Count == 0 {
				s.Level = 0
			}
		}
	}

	if econ != nil {
		out.Gained = applyMultiplier(out.RawGained, econ.Multiplier())
		econ.Earn(out.Gained)
	} else {
		out.Gained = out.RawGained
	}
	return out
}

func applyMultiplier(raw int, mult float64) int {
	if raw <= 0 {
		return 0
	}
	if v := float64(raw) * mult; v >= math.MaxInt64 {
		return math.MaxInt
	}
	// epsilon keeps exact products like 80*1.1 from flooring to 87
	return int(math.Floor(float64(raw)*mult + 1e-9))
}
