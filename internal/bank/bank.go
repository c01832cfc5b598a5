// Package bank holds the fixed-capacity slot array and its placement policy.
package bank

import (
	"fmt"
	"sort"

	"coinforge/internal/model"
)

const (
	DefaultCapacity     = 10
	DefaultInitialSlots = 5
	DefaultMaxSlots     = 16
)

// Bank is an ordered arena of slots addressed by index.
type Bank struct {
	capacity int
	maxSlots int
	slots    []model.Slot
}

// New returns a bank with size empty slots.
func New(capacity, size, maxSlots int) (*Bank, error) {
	if capacity <= 0 {
		return nil, fmt.Errorf("slot capacity must be greater than zero")
	}
	if size <= 0 {
		return nil, fmt.Errorf("bank size must be greater than zero")
	}
	if maxSlots < size {
		return nil, fmt.Errorf("max slots %d is below bank size %d", maxSlots, size)
	}
	return &Bank{
		capacity: capacity,
		maxSlots: maxSlots,
		slots:    make([]model.Slot, size),
	}, nil
}

func (b *Bank) Capacity() int { return b.capacity }
func (b *Bank) MaxSlots() int { return b.maxSlots }
func (b *Bank) Len() int      { return len(b.slots) }

// Slot returns a copy of the slot at i.
func (b *Bank) Slot(i int) (model.Slot, bool) {
	if i < 0 || i >= len(b.slots) {
		return model.Slot{}, false
	}
	return b.slots[i], true
}

// At returns a pointer into the arena for in-place mutation by the engine packages.
// Callers must not retain it across Grow or Reset.
func (b *Bank) At(i int) *model.Slot {
	if i < 0 || i >= len(b.slots) {
		return nil
	}
	return &b.slots[i]
}

// Clone returns an independent copy of the bank.
func (b *Bank) Clone() *Bank {
	return &Bank{capacity: b.capacity, maxSlots: b.maxSlots, slots: b.Slots()}
}

// Slots returns a copy of all slots.
func (b *Bank) Slots() []model.Slot {
	out := make([]model.Slot, len(b.slots))
	copy(out, b.slots)
	return out
}

// find returns the index a coin of level would land in, or -1.
// A same-level slot with room wins over the first empty slot.
func (b *Bank) find(level int) int {
	for i, s := range b.slots {
		if s.Level == level && s.Count < b.capacity {
			return i
		}
	}
	for i, s := range b.slots {
		if s.Empty() {
			return i
		}
	}
	return -1
}

// Place adds one coin of level following the placement policy.
// It returns false without mutating when no slot can take the coin.
func (b *Bank) Place(level int) bool {
	if level <= 0 {
		return false
	}
	i := b.find(level)
	if i < 0 {
		return false
	}
	s := &b.slots[i]
	if s.Empty() {
		s.Level = level
		s.Count = 1
		return true
	}
	s.Count++
	return true
}

// CanPlace reports whether Place(level) would succeed.
func (b *Bank) CanPlace(level int) bool {
	if level <= 0 {
		return false
	}
	return b.find(level) >= 0
}

// AnyPlaceable reports whether any level in 1..maxLevel can be placed.
func (b *Bank) AnyPlaceable(maxLevel int) bool {
	for level := 1; level <= maxLevel; level++ {
		if b.CanPlace(level) {
			return true
		}
	}
	return false
}

// Grow appends one empty slot. It returns false once MaxSlots is reached.
func (b *Bank) Grow() bool {
	if len(b.slots) >= b.maxSlots {
		return false
	}
	b.slots = append(b.slots, model.Slot{})
	return true
}

// Reset replaces the bank with size empty slots, clamped to [1, MaxSlots].
func (b *Bank) Reset(size int) {
	if size < 1 {
		size = 1
	}
	if size > b.maxSlots {
		size = b.maxSlots
	}
	b.slots = make([]model.Slot, size)
}

// HighestLevel returns the largest level present, or 0 for an empty bank.
func (b *Bank) HighestLevel() int {
	highest := 0
	for _, s := range b.slots {
		if s.Level > highest {
			highest = s.Level
		}
	}
	return highest
}

// PresentLevels returns the distinct non-empty levels in ascending order.
func (b *Bank) PresentLevels() []int {
	seen := make(map[int]struct{})
	levels := make([]int, 0, len(b.slots))
	for _, s := range b.slots {
		if s.Empty() {
			continue
		}
		if _, ok := seen[s.Level]; ok {
			continue
		}
		seen[s.Level] = struct{}{}
		levels = append(levels, s.Level)
	}
	sort.Ints(levels)
	return levels
}

// Supply returns the total coin count held at level.
func (b *Bank) Supply(level int) int {
	total := 0
	for _, s := range b.slots {
		if s.Level == level {
			total += s.Count
		}
	}
	return total
}

// TotalCoins returns the number of coins across all slots.
func (b *Bank) TotalCoins() int {
	total := 0
	for _, s := range b.slots {
		total += s.Count
	}
	return total
}
