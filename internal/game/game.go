// Package game runs one merge-economy session: the slot bank, combine engine,
// spawn weighter and market behind a small command surface.
//
// A Game is not safe for concurrent use. internal/loop serializes access.
package game

import (
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"coinforge/internal/bank"
	"coinforge/internal/combine"
	"coinforge/internal/market"
	"coinforge/internal/model"
	"coinforge/internal/rng"
	"coinforge/internal/rules"
	"coinforge/internal/spawn"
)

// ErrInvalidSnapshot is returned by Restore for records play cannot produce.
// The game is left unchanged.
var ErrInvalidSnapshot = errors.New("invalid snapshot")

// MaxPrestigeLevel bounds restored prestige levels.
const MaxPrestigeLevel = 10_000

// Options configures a new Game.
type Options struct {
	Balance   rules.Balance
	Market    market.Config
	SpawnRNG  rng.RandomSource
	NoiseRNG  rng.RandomSource
	SessionID string
	Logger    *zap.Logger
}

type heldCoin struct {
	level  int
	source int
}

type upgrades struct {
	workerOwned   bool
	workerEnabled bool
	timeThief     int
}

// Game is a single-owner simulation session.
type Game struct {
	bal     rules.Balance
	bank    *bank.Bank
	econ    *combine.Economy
	market  *market.Engine
	spawner *spawn.Weighter
	up      upgrades
	held    *heldCoin

	lastDeal   time.Time
	lastWorker time.Time
	lastPrice  time.Time
	lastGain   int
	noMoves    bool

	sessionID string
	pending   []model.SaleRecord
	logger    *zap.Logger
}

// New builds a fresh game with InitialSlots empty slots.
func New(opts Options) (*Game, error) {
	bal := opts.Balance
	if bal == (rules.Balance{}) {
		bal = rules.DefaultBalance()
	}
	if bal.SlotCapacity < 2 {
		return nil, fmt.Errorf("slot capacity must be at least 2")
	}
	b, err := bank.New(bal.SlotCapacity, bal.InitialSlots, bal.MaxSlots)
	if err != nil {
		return nil, fmt.Errorf("create bank: %w", err)
	}
	logger := opts.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	econ := combine.NewEconomy()
	econ.PrestigeStep = bal.PrestigeStep

	return &Game{
		bal:       bal,
		bank:      b,
		econ:      econ,
		market:    market.NewEngine(opts.Market, opts.NoiseRNG),
		spawner:   spawn.NewWeighter(bal.SpawnDecay, opts.SpawnRNG),
		sessionID: opts.SessionID,
		logger:    logger,
	}, nil
}

// Balance returns the parameters the game runs with.
func (g *Game) Balance() rules.Balance {
	return g.bal
}

// SessionID identifies the game on ledger rows.
func (g *Game) SessionID() string {
	return g.sessionID
}

// Snapshot returns the persistence record. A coin held mid-drag is reported in
// its source slot.
func (g *Game) Snapshot() model.Snapshot {
	slots := g.bank.Slots()
	if g.held != nil && g.held.source < len(slots) {
		s := &slots[g.held.source]
		if s.Empty() {
			s.Level = g.held.level
		}
		s.Count++
	}
	records := make([]model.SlotRecord, len(slots))
	for i, s := range slots {
		records[i] = model.SlotRecord{Coin: s.Level, Count: s.Count}
	}
	return model.Snapshot{
		Slots:          records,
		UnlockedSlots:  len(slots),
		Currency:       g.econ.Currency,
		PrestigeLevel:  g.econ.PrestigeLevel,
		WorkerOwned:    g.up.workerOwned,
		WorkerEnabled:  g.up.workerEnabled,
		TimeThiefCount: g.up.timeThief,
	}
}

// Restore replaces bank, economy and upgrades with snap. Market history is kept.
// The slot count is clamped to [InitialSlots, MaxSlots]; extra stored slots are
// dropped and missing ones stay empty. Coins above combine.MaxLevel, slot counts
// above SlotCapacity^2 and prestige above MaxPrestigeLevel fail with
// ErrInvalidSnapshot.
func (g *Game) Restore(snap model.Snapshot) error {
	unlocked := snap.UnlockedSlots
	if unlocked < g.bal.InitialSlots {
		unlocked = g.bal.InitialSlots
	}
	if unlocked > g.bal.MaxSlots {
		unlocked = g.bal.MaxSlots
	}
	if err := g.checkSnapshot(snap, unlocked); err != nil {
		return err
	}

	g.held = nil
	g.bank.Reset(unlocked)
	for i, rec := range snap.Slots {
		if i >= unlocked {
			break
		}
		if rec.Coin <= 0 || rec.Count <= 0 {
			continue
		}
		s := g.bank.At(i)
		s.Level = rec.Coin
		s.Count = rec.Count
	}
	// a hand-edited save may hold full slots; settle them without paying out
	if out := combine.Resolve(g.bank, nil); out.Promotions > 0 {
		g.logger.Warn("restored snapshot had full slots", zap.Int("promotions", out.Promotions))
	}

	g.econ.Currency = maxInt(0, snap.Currency)
	g.econ.PrestigeLevel = maxInt(0, snap.PrestigeLevel)

	g.up.workerOwned = snap.WorkerOwned
	g.up.workerEnabled = snap.WorkerOwned && snap.WorkerEnabled
	g.up.timeThief = snap.TimeThiefCount
	if g.up.timeThief < 0 {
		g.up.timeThief = 0
	}
	if limit := rules.MaxTimeThief(g.bal); g.up.timeThief > limit {
		g.up.timeThief = limit
	}

	g.lastDeal = time.Time{}
	g.lastWorker = time.Time{}
	g.lastGain = 0
	g.noMoves = g.computeNoLegalMoves()

	g.logger.Info("snapshot restored",
		zap.Int("unlocked_slots", unlocked),
		zap.Int("currency", g.econ.Currency),
		zap.Int("prestige_level", g.econ.PrestigeLevel),
	)
	return nil
}

func (g *Game) checkSnapshot(snap model.Snapshot, unlocked int) error {
	maxCount := g.bal.SlotCapacity * g.bal.SlotCapacity
	for i, rec := range snap.Slots {
		if i >= unlocked {
			break
		}
		if rec.Coin > combine.MaxLevel {
			return fmt.Errorf("%w: slot %d coin %d above max level %d", ErrInvalidSnapshot, i, rec.Coin, combine.MaxLevel)
		}
		if rec.Count > maxCount {
			return fmt.Errorf("%w: slot %d count %d above %d", ErrInvalidSnapshot, i, rec.Count, maxCount)
		}
	}
	if snap.PrestigeLevel > MaxPrestigeLevel {
		return fmt.Errorf("%w: prestige level %d above %d", ErrInvalidSnapshot, snap.PrestigeLevel, MaxPrestigeLevel)
	}
	return nil
}

// DrainSales returns and clears the sale records produced since the last call.
func (g *Game) DrainSales() []model.SaleRecord {
	if len(g.pending) == 0 {
		return nil
	}
	out := g.pending
	g.pending = nil
	return out
}

func maxInt(a, b int) int {
	if a > b {
		return a
	}
	return b
}
