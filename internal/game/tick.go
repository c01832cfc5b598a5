package game

import (
	"time"

	"coinforge/internal/rules"
)

// TickReport says what a Tick did.
type TickReport struct {
	Repriced     bool
	WorkerDealt  bool
	Worker       Result
	NoLegalMoves bool
}

// Tick advances the fixed-rate timers: the market recompute every PriceInterval
// and the worker auto-deal every WorkerInterval. The worker ignores the manual
// deal cooldown.
func (g *Game) Tick(now time.Time) TickReport {
	var rep TickReport
	if !g.market.Computed() || now.Sub(g.lastPrice) >= g.bal.PriceInterval {
		g.market.Recompute(now, g.bank.PresentLevels())
		g.lastPrice = now
		rep.Repriced = true
	}
	if g.up.workerOwned && g.up.workerEnabled {
		if g.lastWorker.IsZero() {
			g.lastWorker = now
		} else if now.Sub(g.lastWorker) >= g.bal.WorkerInterval {
			g.cancelDrag()
			rep.Worker = g.deal()
			rep.WorkerDealt = true
			g.lastWorker = now
		}
	}
	g.noMoves = g.computeNoLegalMoves()
	rep.NoLegalMoves = g.noMoves
	return rep
}

// NoLegalMoves is the flag refreshed by the last Tick.
func (g *Game) NoLegalMoves() bool {
	return g.noMoves
}

func (g *Game) computeNoLegalMoves() bool {
	unlocked := g.bank.Len()
	maxDeal := rules.MaxDealLevel(g.bank.HighestLevel(), unlocked)
	next := rules.NextSlotCost(g.bal, unlocked)
	if unlocked >= g.bank.MaxSlots() {
		// no slot left to buy
		return !g.bank.AnyPlaceable(maxDeal)
	}
	return rules.NoLegalMoves(g.bank, g.econ, maxDeal, next)
}
