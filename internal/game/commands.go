package game

import (
	"time"

	"go.uber.org/zap"

	"coinforge/internal/bank"
	"coinforge/internal/combine"
	"coinforge/internal/model"
	"coinforge/internal/rules"
)

// Deal places one spawned coin per unlocked slot, then resolves. It is gated by
// the effective deal cooldown.
func (g *Game) Deal(now time.Time) Result {
	cd := rules.EffectiveCooldown(g.bal, g.up.timeThief)
	if !g.lastDeal.IsZero() && now.Sub(g.lastDeal) < cd {
		return refused(ReasonCooldown)
	}
	g.cancelDrag()
	res := g.deal()
	g.lastDeal = now
	return res
}

func (g *Game) deal() Result {
	unlocked := g.bank.Len()
	maxLevel := rules.DealCap(g.bank.HighestLevel(), unlocked)
	dealt := 0
	for i := 0; i < unlocked; i++ {
		if g.bank.Place(g.spawner.Pick(g.bank, maxLevel)) {
			dealt++
		}
	}
	out := g.resolve()
	g.logger.Debug("dealt coins", zap.Int("dealt", dealt), zap.Int("gained", out.Gained))
	return Result{OK: true, Dealt: dealt, Gained: out.Gained}
}

func (g *Game) resolve() combine.Outcome {
	out := combine.Resolve(g.bank, g.econ)
	g.lastGain = out.Gained
	return out
}

// PickUp lifts one coin out of slot and holds it until PlaceDraggedCoin or CancelDrag.
func (g *Game) PickUp(slot int) Result {
	if g.held != nil {
		return refused(ReasonHolding)
	}
	s := g.bank.At(slot)
	if s == nil || s.Empty() {
		return refused(ReasonInvalid)
	}
	level := s.Level
	s.Count--
	if s.Count == 0 {
		s.Clear()
	}
	g.held = &heldCoin{level: level, source: slot}
	return Result{OK: true, Level: level}
}

// Held returns the coin being dragged, if any.
func (g *Game) Held() (level, source int, ok bool) {
	if g.held == nil {
		return 0, 0, false
	}
	return g.held.level, g.held.source, true
}

// PlaceDraggedCoin drops the held coin on target. Dropping on an empty slot moves
// it there, on a same-level slot merges and resolves, anywhere else returns it to
// its source slot.
func (g *Game) PlaceDraggedCoin(level, target int) Result {
	if g.held == nil || g.held.level != level {
		return refused(ReasonInvalid)
	}
	held := *g.held
	g.held = nil

	s := g.bank.At(target)
	switch {
	case target == NoSlot || s == nil:
		g.returnCoin(held)
		return Result{OK: true, Level: level}
	case s.Empty():
		s.Level = level
		s.Count = 1
		return Result{OK: true, Level: level}
	case s.Level == level:
		s.Count++
		out := g.resolve()
		return Result{OK: true, Level: level, Gained: out.Gained}
	default:
		g.returnCoin(held)
		return Result{OK: true, Level: level}
	}
}

// CancelDrag puts a held coin back into its source slot.
func (g *Game) CancelDrag() Result {
	if g.held == nil {
		return refused(ReasonInvalid)
	}
	level := g.held.level
	g.cancelDrag()
	return Result{OK: true, Level: level}
}

func (g *Game) cancelDrag() {
	if g.held == nil {
		return
	}
	held := *g.held
	g.held = nil
	g.returnCoin(held)
}

// settled returns the bank as it will look once the drag is cancelled. Commands
// validate against it so a refusal leaves the held coin in hand.
func (g *Game) settled() *bank.Bank {
	if g.held == nil {
		return g.bank
	}
	b := g.bank.Clone()
	putBack(b, *g.held)
	return b
}

// returnCoin restores a dragged coin. Every other bank mutation cancels the drag
// first, so the source slot is normally unchanged since PickUp.
func (g *Game) returnCoin(h heldCoin) {
	if !putBack(g.bank, h) {
		g.logger.Warn("dragged coin lost", zap.Int("level", h.level), zap.Int("source", h.source))
	}
}

func putBack(b *bank.Bank, h heldCoin) bool {
	if s := b.At(h.source); s != nil {
		if s.Empty() {
			s.Level = h.level
			s.Count = 1
			return true
		}
		if s.Level == h.level && s.Count < b.Capacity() {
			s.Count++
			return true
		}
	}
	return b.Place(h.level)
}

// Sell sells qty coins of level, or every coin of level when qty is SellAll. The
// indexed slot must hold level; it is drained first, then the other slots of
// that level in index order.
func (g *Game) Sell(level, slot, qty int, now time.Time) Result {
	if qty == 0 || qty < SellAll {
		return refused(ReasonInvalid)
	}
	if s := g.settled().At(slot); s == nil || s.Empty() || s.Level != level {
		return refused(ReasonInvalid)
	}
	g.cancelDrag()
	s := g.bank.At(slot)

	amplification := 1
	want := qty
	if qty == SellAll {
		amplification = g.bal.SellAllAmplify
		want = g.bank.Supply(level)
	}

	sold := take(s, want)
	for i := 0; i < g.bank.Len() && sold < want; i++ {
		if i == slot {
			continue
		}
		if other := g.bank.At(i); !other.Empty() && other.Level == level {
			sold += take(other, want-sold)
		}
	}

	price := g.market.Price(level)
	earned := sold * price
	g.econ.Earn(earned)
	for i := 0; i < sold; i++ {
		g.market.RecordSale(level, price, amplification, now)
	}
	g.market.Recompute(now, g.bank.PresentLevels())
	g.pending = append(g.pending, model.SaleRecord{
		SessionID:     g.sessionID,
		Level:         level,
		Price:         price,
		Quantity:      sold,
		Amplification: amplification,
		Timestamp:     now.UnixMilli(),
	})

	g.logger.Debug("sold coins",
		zap.Int("level", level),
		zap.Int("sold", sold),
		zap.Int("price", price),
		zap.Int("amplification", amplification),
	)
	return Result{OK: true, Level: level, Sold: sold, Earned: earned}
}

func take(s *model.Slot, want int) int {
	n := s.Count
	if want < n {
		n = want
	}
	s.Count -= n
	if s.Count == 0 {
		s.Clear()
	}
	return n
}

// QuickSell sells one coin from the highest-level slot at a fixed discount. The
// market is not touched.
func (g *Game) QuickSell() Result {
	highest := g.settled().HighestLevel()
	if highest == 0 {
		return refused(ReasonInvalid)
	}
	g.cancelDrag()
	for i := 0; i < g.bank.Len(); i++ {
		s := g.bank.At(i)
		if s.Empty() || s.Level != highest {
			continue
		}
		take(s, 1)
		divisor := g.bal.QuickSellDivisor
		if divisor < 1 {
			divisor = 1
		}
		earned := combine.CoinValue(highest) / divisor
		g.econ.Earn(earned)
		return Result{OK: true, Level: highest, Sold: 1, Earned: earned}
	}
	return refused(ReasonInvalid)
}

// BuySlot unlocks one more slot.
func (g *Game) BuySlot() Result {
	if g.bank.Len() >= g.bank.MaxSlots() {
		return refused(ReasonMaxed)
	}
	cost := rules.NextSlotCost(g.bal, g.bank.Len())
	if !g.econ.Spend(cost) {
		return refused(ReasonInsufficientFunds)
	}
	g.cancelDrag()
	g.bank.Grow()
	g.logger.Info("slot unlocked", zap.Int("unlocked_slots", g.bank.Len()), zap.Int("cost", cost))
	return Result{OK: true, Spent: cost}
}

// BuyCoin buys one coin of level from the shop, then resolves and reprices.
func (g *Game) BuyCoin(level int, now time.Time) Result {
	view := g.settled()
	if level < 1 || level > rules.HighestPurchasable(view.HighestLevel()) {
		return refused(ReasonNotAllowed)
	}
	if !view.CanPlace(level) {
		return refused(ReasonNoRoom)
	}
	cost := combine.CoinValue(level)
	if g.econ.Currency < cost {
		return refused(ReasonInsufficientFunds)
	}
	g.cancelDrag()
	g.econ.Spend(cost)
	g.bank.Place(level)
	out := g.resolve()
	g.market.Recompute(now, g.bank.PresentLevels())
	return Result{OK: true, Level: level, Spent: cost, Gained: out.Gained}
}

// BuyUpgrade purchases the worker (once) or one more time thief.
func (g *Game) BuyUpgrade(kind UpgradeKind) Result {
	switch kind {
	case UpgradeWorker:
		if g.up.workerOwned {
			return refused(ReasonMaxed)
		}
		if !g.econ.Spend(g.bal.WorkerCost) {
			return refused(ReasonInsufficientFunds)
		}
		g.up.workerOwned = true
		g.up.workerEnabled = true
		g.lastWorker = time.Time{}
		g.logger.Info("worker hired")
		return Result{OK: true, Spent: g.bal.WorkerCost}
	case UpgradeTimeThief:
		if g.up.timeThief >= rules.MaxTimeThief(g.bal) {
			return refused(ReasonMaxed)
		}
		cost := rules.TimeThiefCost(g.bal, g.up.timeThief)
		if !g.econ.Spend(cost) {
			return refused(ReasonInsufficientFunds)
		}
		g.up.timeThief++
		g.logger.Info("time thief bought", zap.Int("count", g.up.timeThief))
		return Result{OK: true, Spent: cost}
	default:
		return refused(ReasonInvalid)
	}
}

// SetWorkerEnabled toggles auto-dealing of an owned worker.
func (g *Game) SetWorkerEnabled(enabled bool, now time.Time) Result {
	if !g.up.workerOwned {
		return refused(ReasonNotOwned)
	}
	if enabled && !g.up.workerEnabled {
		g.lastWorker = now
	}
	g.up.workerEnabled = enabled
	return Result{OK: true}
}

// Prestige trades the bank and currency for one more prestige level. Upgrades
// and market history are kept.
func (g *Game) Prestige() Result {
	if !rules.CanPrestige(g.bal, g.bank.Len(), g.econ.Currency) {
		return refused(ReasonNotAllowed)
	}
	g.cancelDrag()
	g.econ.PrestigeLevel++
	g.econ.Currency = 0
	g.bank.Reset(g.bal.InitialSlots)
	g.lastGain = 0
	g.logger.Info("prestiged",
		zap.Int("prestige_level", g.econ.PrestigeLevel),
		zap.Float64("multiplier", g.econ.Multiplier()),
	)
	return Result{OK: true, Level: g.econ.PrestigeLevel}
}

// Restart clears the bank and currency. Prestige and upgrades are kept.
func (g *Game) Restart() Result {
	g.held = nil
	g.econ.Currency = 0
	g.bank.Reset(g.bal.InitialSlots)
	g.lastGain = 0
	g.lastDeal = time.Time{}
	g.logger.Info("game restarted")
	return Result{OK: true}
}
