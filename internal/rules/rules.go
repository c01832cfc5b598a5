// Package rules holds the derived predicates and cost formulas of the game.
// Nothing here mutates state.
package rules

import (
	"time"

	"coinforge/internal/bank"
	"coinforge/internal/combine"
)

// Balance carries the tunable economy parameters.
type Balance struct {
	InitialSlots        int
	MaxSlots            int
	SlotCapacity        int
	SlotBaseCost        int
	PrestigeMinCurrency int
	PrestigeStep        float64
	DealCooldown        time.Duration
	MinDealCooldown     time.Duration
	TimeThiefReduction  time.Duration
	TimeThiefBaseCost   int
	WorkerCost          int
	WorkerInterval      time.Duration
	SellAllAmplify      int
	QuickSellDivisor    int
	SpawnDecay          float64
	PriceInterval       time.Duration
}

// DefaultBalance returns the stock parameters.
func DefaultBalance() Balance {
	return Balance{
		InitialSlots:        bank.DefaultInitialSlots,
		MaxSlots:            bank.DefaultMaxSlots,
		SlotCapacity:        bank.DefaultCapacity,
		SlotBaseCost:        100,
		PrestigeMinCurrency: 1000,
		PrestigeStep:        combine.DefaultPrestigeStep,
		DealCooldown:        time.Second,
		MinDealCooldown:     200 * time.Millisecond,
		TimeThiefReduction:  100 * time.Millisecond,
		TimeThiefBaseCost:   500,
		WorkerCost:          1000,
		WorkerInterval:      5 * time.Second,
		SellAllAmplify:      2,
		QuickSellDivisor:    2,
		SpawnDecay:          2.0,
		PriceInterval:       time.Second,
	}
}

// NoLegalMoves is true when no dealable level fits and the next slot is unaffordable.
func NoLegalMoves(b *bank.Bank, econ *combine.Economy, maxDealLevel, nextSlotCost int) bool {
	return !b.AnyPlaceable(maxDealLevel) && econ.Currency < nextSlotCost
}

// NextSlotCost returns base * 2^(unlocked-initial).
func NextSlotCost(bal Balance, unlocked int) int {
	extra := unlocked - bal.InitialSlots
	if extra < 0 {
		extra = 0
	}
	return bal.SlotBaseCost << extra
}

// MaxDealLevel returns max(3, highest+1, unlocked).
func MaxDealLevel(highest, unlocked int) int {
	level := 3
	if highest+1 > level {
		level = highest + 1
	}
	if unlocked > level {
		level = unlocked
	}
	return level
}

// DealCap bounds the spawn weighter: min(maxDealLevel, unlocked+2).
func DealCap(highest, unlocked int) int {
	limit := MaxDealLevel(highest, unlocked)
	if unlocked+2 < limit {
		limit = unlocked + 2
	}
	return limit
}

// EffectiveCooldown returns max(min, base - count*reduction).
func EffectiveCooldown(bal Balance, timeThiefCount int) time.Duration {
	cd := bal.DealCooldown - time.Duration(timeThiefCount)*bal.TimeThiefReduction
	if cd < bal.MinDealCooldown {
		cd = bal.MinDealCooldown
	}
	return cd
}

// MaxTimeThief returns floor((base-min)/reduction).
func MaxTimeThief(bal Balance) int {
	if bal.TimeThiefReduction <= 0 || bal.DealCooldown <= bal.MinDealCooldown {
		return 0
	}
	return int((bal.DealCooldown - bal.MinDealCooldown) / bal.TimeThiefReduction)
}

// TimeThiefCost returns the price of the next purchase given count already owned.
func TimeThiefCost(bal Balance, count int) int {
	if count < 0 {
		count = 0
	}
	return bal.TimeThiefBaseCost << count
}

// HighestPurchasable is one level below the highest coin present, at least 1.
func HighestPurchasable(highest int) int {
	if highest <= 1 {
		return 1
	}
	return highest - 1
}

// CoinOffers lists the three purchasable levels for the shop.
func CoinOffers(highest int) []int {
	h := HighestPurchasable(highest)
	return []int{maxInt(1, h-2), maxInt(1, h-1), h}
}

// CanPrestige requires either a bought slot or enough currency.
func CanPrestige(bal Balance, unlocked, currency int) bool {
	return unlocked > bal.InitialSlots || currency >= bal.PrestigeMinCurrency
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
