package sim

import (
	"time"

	"coinforge/internal/combine"
	"coinforge/internal/game"
)

// Strategy is a greedy autoplayer. It deals whenever allowed, buys upgrades and
// slots it can afford, sells low coins while the market pays a premium and
// prestiges once currency reaches PrestigeAt.
type Strategy struct {
	SellMarkup float64
	KeepTop    int
	PrestigeAt int
}

// DefaultStrategy returns the stock autoplayer.
func DefaultStrategy() Strategy {
	return Strategy{SellMarkup: 1.1, KeepTop: 2, PrestigeAt: 20_000}
}

// RoundStats counts what one or more rounds did.
type RoundStats struct {
	Deals      int
	CoinsDealt int
	Gained     int
	Sales      int
	Sold       int
	Earned     int
	QuickSells int
	Purchases  int
	Prestiges  int
}

func (s *RoundStats) add(o RoundStats) {
	s.Deals += o.Deals
	s.CoinsDealt += o.CoinsDealt
	s.Gained += o.Gained
	s.Sales += o.Sales
	s.Sold += o.Sold
	s.Earned += o.Earned
	s.QuickSells += o.QuickSells
	s.Purchases += o.Purchases
	s.Prestiges += o.Prestiges
}

// Play runs one round against g at now.
func (st Strategy) Play(g *game.Game, now time.Time) RoundStats {
	var stats RoundStats

	rep := g.Tick(now)
	if rep.WorkerDealt {
		stats.CoinsDealt += rep.Worker.Dealt
		stats.Gained += rep.Worker.Gained
	}

	if res := g.Deal(now); res.OK {
		stats.Deals++
		stats.CoinsDealt += res.Dealt
		stats.Gained += res.Gained
	}

	st.buy(g, &stats)
	st.sell(g, now, &stats)

	if g.Economy().CanPrestige && g.Economy().Currency >= st.PrestigeAt {
		if res := g.Prestige(); res.OK {
			stats.Prestiges++
		}
	}
	return stats
}

func (st Strategy) buy(g *game.Game, stats *RoundStats) {
	up := g.Upgrades()
	if !up.WorkerOwned && g.Economy().Currency >= up.WorkerCost {
		if res := g.BuyUpgrade(game.UpgradeWorker); res.OK {
			stats.Purchases++
		}
	}
	up = g.Upgrades()
	if up.TimeThiefCount < up.TimeThiefMax && g.Economy().Currency >= 2*up.NextTimeThiefCost {
		if res := g.BuyUpgrade(game.UpgradeTimeThief); res.OK {
			stats.Purchases++
		}
	}
	econ := g.Economy()
	if econ.UnlockedSlots < econ.MaxSlots && econ.Currency >= econ.NextSlotCost {
		if res := g.BuySlot(); res.OK {
			stats.Purchases++
		}
	}
}

func (st Strategy) sell(g *game.Game, now time.Time, stats *RoundStats) {
	slots := g.Slots()
	highest := 0
	for _, s := range slots {
		if s.Level > highest {
			highest = s.Level
		}
	}
	prices := g.Prices()
	sold := make(map[int]bool)
	for i, s := range slots {
		if s.Empty() || sold[s.Level] || s.Level > highest-st.KeepTop {
			continue
		}
		price, ok := prices[s.Level]
		if !ok || float64(price) < st.SellMarkup*float64(combine.CoinValue(s.Level)) {
			continue
		}
		if res := g.Sell(s.Level, i, game.SellAll, now); res.OK {
			sold[s.Level] = true
			stats.Sales++
			stats.Sold += res.Sold
			stats.Earned += res.Earned
		}
	}

	if g.NoLegalMoves() {
		if res := g.QuickSell(); res.OK {
			stats.QuickSells++
			stats.Earned += res.Earned
		}
	}
}
