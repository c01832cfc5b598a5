package combine

import "math"

// DefaultPrestigeStep is the multiplier gained per prestige level.
const DefaultPrestigeStep = 0.1

// Economy tracks currency and prestige. The multiplier is always derived from
// the prestige level so the two cannot drift apart.
type Economy struct {
	Currency      int
	PrestigeLevel int
	PrestigeStep  float64
}

// NewEconomy returns an empty economy using the default prestige step.
func NewEconomy() *Economy {
	return &Economy{PrestigeStep: DefaultPrestigeStep}
}

// Multiplier returns 1 + PrestigeLevel*PrestigeStep.
func (e *Economy) Multiplier() float64 {
	step := e.PrestigeStep
	if step <= 0 {
		step = DefaultPrestigeStep
	}
	return 1.0 + float64(e.PrestigeLevel)*step
}

// Spend deducts cost when affordable.
func (e *Economy) Spend(cost int) bool {
	if cost < 0 || e.Currency < cost {
		return false
	}
	e.Currency -= cost
	return true
}

// Earn adds a non-negative amount, saturating at math.MaxInt.
func (e *Economy) Earn(amount int) {
	if amount <= 0 {
		return
	}
	if e.Currency > math.MaxInt-amount {
		e.Currency = math.MaxInt
		return
	}
	e.Currency += amount
}
