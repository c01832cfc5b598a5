package game

import (
	"time"

	"coinforge/internal/combine"
	"coinforge/internal/model"
	"coinforge/internal/rules"
	"coinforge/internal/spawn"
)

// EconomyView is the read-only economy state.
type EconomyView struct {
	Currency      int     `json:"currency"`
	PrestigeLevel int     `json:"prestige_level"`
	Multiplier    float64 `json:"prestige_multiplier"`
	UnlockedSlots int     `json:"unlocked_slots"`
	MaxSlots      int     `json:"max_slots"`
	NextSlotCost  int     `json:"next_slot_cost"`
	LastGain      int     `json:"last_gain"`
	CanPrestige   bool    `json:"can_prestige"`
}

// Offer is one entry of the coin shop.
type Offer struct {
	Level      int  `json:"level"`
	Cost       int  `json:"cost"`
	Affordable bool `json:"affordable"`
	Placeable  bool `json:"placeable"`
}

// UpgradeView is the read-only upgrade state.
type UpgradeView struct {
	WorkerOwned       bool          `json:"worker_owned"`
	WorkerEnabled     bool          `json:"worker_enabled"`
	WorkerCost        int           `json:"worker_cost"`
	TimeThiefCount    int           `json:"time_thief_count"`
	TimeThiefMax      int           `json:"time_thief_max"`
	NextTimeThiefCost int           `json:"next_time_thief_cost"`
	DealCooldown      time.Duration `json:"deal_cooldown"`
}

// HeldView describes the dragged coin.
type HeldView struct {
	Level  int `json:"level"`
	Source int `json:"source"`
}

// State bundles every query for rendering.
type State struct {
	Slots         []model.Slot   `json:"slots"`
	Economy       EconomyView    `json:"economy"`
	Prices        map[int]int    `json:"prices"`
	Probabilities []spawn.Weight `json:"probabilities"`
	Offers        []Offer        `json:"offers"`
	Upgrades      UpgradeView    `json:"upgrades"`
	Held          *HeldView      `json:"held,omitempty"`
	NoLegalMoves  bool           `json:"no_legal_moves"`
}

// Slots returns a copy of the bank contents.
func (g *Game) Slots() []model.Slot {
	return g.bank.Slots()
}

// Economy returns the economy view.
func (g *Game) Economy() EconomyView {
	unlocked := g.bank.Len()
	return EconomyView{
		Currency:      g.econ.Currency,
		PrestigeLevel: g.econ.PrestigeLevel,
		Multiplier:    g.econ.Multiplier(),
		UnlockedSlots: unlocked,
		MaxSlots:      g.bank.MaxSlots(),
		NextSlotCost:  rules.NextSlotCost(g.bal, unlocked),
		LastGain:      g.lastGain,
		CanPrestige:   rules.CanPrestige(g.bal, unlocked, g.econ.Currency),
	}
}

// Prices returns the last computed market prices.
func (g *Game) Prices() map[int]int {
	return g.market.Prices()
}

// ChartHistory returns the recorded display prices of level, oldest first.
func (g *Game) ChartHistory(level int) []int {
	return g.market.ChartHistory(level)
}

// ChartLevels lists levels with chart history.
func (g *Game) ChartLevels() []int {
	return g.market.ChartLevels()
}

// Probabilities is the distribution the next deal samples from.
func (g *Game) Probabilities() []spawn.Weight {
	maxLevel := rules.DealCap(g.bank.HighestLevel(), g.bank.Len())
	return g.spawner.Distribution(g.bank, maxLevel)
}

// Offers lists the coin shop.
func (g *Game) Offers() []Offer {
	levels := rules.CoinOffers(g.bank.HighestLevel())
	out := make([]Offer, 0, len(levels))
	seen := make(map[int]bool, len(levels))
	for _, level := range levels {
		if seen[level] {
			continue
		}
		seen[level] = true
		cost := combine.CoinValue(level)
		out = append(out, Offer{
			Level:      level,
			Cost:       cost,
			Affordable: g.econ.Currency >= cost,
			Placeable:  g.bank.CanPlace(level),
		})
	}
	return out
}

// Upgrades returns the upgrade view.
func (g *Game) Upgrades() UpgradeView {
	return UpgradeView{
		WorkerOwned:       g.up.workerOwned,
		WorkerEnabled:     g.up.workerEnabled,
		WorkerCost:        g.bal.WorkerCost,
		TimeThiefCount:    g.up.timeThief,
		TimeThiefMax:      rules.MaxTimeThief(g.bal),
		NextTimeThiefCost: rules.TimeThiefCost(g.bal, g.up.timeThief),
		DealCooldown:      rules.EffectiveCooldown(g.bal, g.up.timeThief),
	}
}

// State collects every view in one value.
func (g *Game) State() State {
	st := State{
		Slots:         g.Slots(),
		Economy:       g.Economy(),
		Prices:        g.Prices(),
		Probabilities: g.Probabilities(),
		Offers:        g.Offers(),
		Upgrades:      g.Upgrades(),
		NoLegalMoves:  g.noMoves,
	}
	if g.held != nil {
		st.Held = &HeldView{Level: g.held.level, Source: g.held.source}
	}
	return st
}
