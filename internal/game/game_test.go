package game

import (
	"errors"
	"reflect"
	"testing"
	"time"

	"coinforge/internal/model"
	"coinforge/internal/rules"
)

type fixedRNG float64

func (f fixedRNG) Float64() float64 { return float64(f) }

var t0 = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func newGame(t *testing.T) *Game {
	t.Helper()
	g, err := New(Options{SpawnRNG: fixedRNG(0), NoiseRNG: fixedRNG(0.5), SessionID: "test"})
	if err != nil {
		t.Fatalf("new game: %v", err)
	}
	return g
}

func restored(t *testing.T, snap model.Snapshot) *Game {
	t.Helper()
	g := newGame(t)
	if snap.UnlockedSlots == 0 {
		snap.UnlockedSlots = len(snap.Slots)
	}
	if err := g.Restore(snap); err != nil {
		t.Fatalf("restore: %v", err)
	}
	return g
}

func slots(pairs ...int) []model.SlotRecord {
	out := make([]model.SlotRecord, 0, len(pairs)/2)
	for i := 0; i+1 < len(pairs); i += 2 {
		out = append(out, model.SlotRecord{Coin: pairs[i], Count: pairs[i+1]})
	}
	return out
}

func TestNewGameStartsEmpty(t *testing.T) {
	g := newGame(t)
	if got := len(g.Slots()); got != rules.DefaultBalance().InitialSlots {
		t.Fatalf("slots = %d, want %d", got, rules.DefaultBalance().InitialSlots)
	}
	econ := g.Economy()
	if econ.Currency != 0 || econ.PrestigeLevel != 0 || econ.Multiplier != 1 {
		t.Fatalf("unexpected economy: %+v", econ)
	}
	if econ.NextSlotCost != 100 {
		t.Fatalf("next slot cost = %d, want 100", econ.NextSlotCost)
	}
}

func TestDealFillsAndRespectsCooldown(t *testing.T) {
	g := newGame(t)

	res := g.Deal(t0)
	if !res.OK || res.Dealt != 5 {
		t.Fatalf("first deal: %+v", res)
	}
	if got := g.Slots()[0]; got != (model.Slot{Level: 1, Count: 5}) {
		t.Fatalf("slot 0 = %+v", got)
	}

	if res := g.Deal(t0.Add(500 * time.Millisecond)); res.OK || res.Reason != ReasonCooldown {
		t.Fatalf("expected cooldown, got %+v", res)
	}

	res = g.Deal(t0.Add(time.Second))
	if !res.OK || res.Gained != 20 {
		t.Fatalf("second deal: %+v", res)
	}
	want := []model.Slot{{}, {Level: 2, Count: 1}, {}, {}, {}}
	if got := g.Slots(); !reflect.DeepEqual(got, want) {
		t.Fatalf("slots mismatch: %+v != %+v", got, want)
	}
	if g.Economy().Currency != 20 || g.Economy().LastGain != 20 {
		t.Fatalf("economy: %+v", g.Economy())
	}
}

func TestDragMergeIntoNextSlot(t *testing.T) {
	g := restored(t, model.Snapshot{Slots: slots(3, 9, 3, 1, 0, 0, 0, 0, 0, 0)})

	if res := g.PickUp(1); !res.OK || res.Level != 3 {
		t.Fatalf("pick up: %+v", res)
	}
	res := g.PlaceDraggedCoin(3, 0)
	if !res.OK || res.Gained != 80 {
		t.Fatalf("drop: %+v", res)
	}
	want := []model.Slot{{}, {Level: 4, Count: 1}, {}, {}, {}}
	if got := g.Slots(); !reflect.DeepEqual(got, want) {
		t.Fatalf("slots mismatch: %+v != %+v", got, want)
	}
}

func TestDragReturnsToSource(t *testing.T) {
	g := restored(t, model.Snapshot{Slots: slots(2, 3, 1, 4, 0, 0, 0, 0, 0, 0)})
	before := g.Slots()

	g.PickUp(0)
	if res := g.PickUp(1); res.Reason != ReasonHolding {
		t.Fatalf("second pick up: %+v", res)
	}
	if res := g.PlaceDraggedCoin(2, 1); !res.OK {
		t.Fatalf("drop on other level: %+v", res)
	}
	if got := g.Slots(); !reflect.DeepEqual(got, before) {
		t.Fatalf("coin not returned: %+v", got)
	}

	g.PickUp(0)
	if res := g.PlaceDraggedCoin(2, NoSlot); !res.OK {
		t.Fatalf("drop outside: %+v", res)
	}
	if got := g.Slots(); !reflect.DeepEqual(got, before) {
		t.Fatalf("coin not returned: %+v", got)
	}

	g.PickUp(1)
	if res := g.PlaceDraggedCoin(2, 3); res.Reason != ReasonInvalid {
		t.Fatalf("wrong level accepted: %+v", res)
	}
	g.CancelDrag()
	if got := g.Slots(); !reflect.DeepEqual(got, before) {
		t.Fatalf("cancel did not return coin: %+v", got)
	}
}

func TestDragToEmptySlot(t *testing.T) {
	g := restored(t, model.Snapshot{Slots: slots(2, 3, 0, 0, 0, 0, 0, 0, 0, 0)})
	g.PickUp(0)
	g.PlaceDraggedCoin(2, 4)
	want := []model.Slot{{Level: 2, Count: 2}, {}, {}, {}, {Level: 2, Count: 1}}
	if got := g.Slots(); !reflect.DeepEqual(got, want) {
		t.Fatalf("slots mismatch: %+v != %+v", got, want)
	}
}

func TestSnapshotIncludesHeldCoin(t *testing.T) {
	g := restored(t, model.Snapshot{Slots: slots(2, 1, 0, 0, 0, 0, 0, 0, 0, 0)})
	g.PickUp(0)
	snap := g.Snapshot()
	if snap.Slots[0] != (model.SlotRecord{Coin: 2, Count: 1}) {
		t.Fatalf("held coin missing from snapshot: %+v", snap.Slots)
	}
	if _, _, ok := g.Held(); !ok {
		t.Fatalf("snapshot must not end the drag")
	}
}

func TestSellQuantityScenario(t *testing.T) {
	g := restored(t, model.Snapshot{Slots: slots(2, 3, 2, 4, 0, 0, 0, 0, 0, 0)})
	g.Tick(t0)
	price := g.Prices()[2]
	if price != 24 {
		t.Fatalf("price = %d, want 24", price)
	}

	res := g.Sell(2, 0, 5, t0)
	if !res.OK || res.Sold != 5 || res.Earned != 5*price {
		t.Fatalf("sell: %+v", res)
	}
	if got := g.Economy().Currency; got != 5*price {
		t.Fatalf("currency = %d, want %d", got, 5*price)
	}
	if got := g.market.SaleCount(2); got != 5 {
		t.Fatalf("sale history = %d, want 5", got)
	}
	want := []model.Slot{{}, {Level: 2, Count: 2}, {}, {}, {}}
	if got := g.Slots(); !reflect.DeepEqual(got, want) {
		t.Fatalf("slots mismatch: %+v != %+v", got, want)
	}

	sales := g.DrainSales()
	if len(sales) != 1 || sales[0].Quantity != 5 || sales[0].Price != price || sales[0].SessionID != "test" {
		t.Fatalf("ledger records: %+v", sales)
	}
	if g.DrainSales() != nil {
		t.Fatalf("drain did not clear")
	}
}

func TestSellAllAmplifies(t *testing.T) {
	g := restored(t, model.Snapshot{Slots: slots(2, 4, 1, 3, 2, 5, 0, 0, 0, 0)})

	res := g.Sell(2, 2, SellAll, t0)
	if !res.OK || res.Sold != 9 || res.Earned != 9*20 {
		t.Fatalf("sell all: %+v", res)
	}
	if got := g.market.SaleCount(2); got != 18 {
		t.Fatalf("sale history = %d, want 18", got)
	}
	want := []model.Slot{{}, {Level: 1, Count: 3}, {}, {}, {}}
	if got := g.Slots(); !reflect.DeepEqual(got, want) {
		t.Fatalf("slots mismatch: %+v != %+v", got, want)
	}
	if sales := g.DrainSales(); len(sales) != 1 || sales[0].Amplification != 2 {
		t.Fatalf("ledger records: %+v", sales)
	}
}

func TestSellInvalidIsNoop(t *testing.T) {
	g := restored(t, model.Snapshot{Slots: slots(2, 4, 0, 0, 0, 0, 0, 0, 0, 0)})
	before := g.Snapshot()

	cases := []struct {
		name             string
		level, slot, qty int
	}{
		{"wrong level", 3, 0, 1},
		{"empty slot", 2, 1, 1},
		{"out of range", 2, 9, 1},
		{"zero quantity", 2, 0, 0},
	}
	for _, tc := range cases {
		if res := g.Sell(tc.level, tc.slot, tc.qty, t0); res.OK || res.Reason != ReasonInvalid {
			t.Fatalf("%s: %+v", tc.name, res)
		}
	}
	if got := g.Snapshot(); !reflect.DeepEqual(got, before) {
		t.Fatalf("state changed: %+v", got)
	}
	if g.market.SaleCount(2) != 0 || g.DrainSales() != nil {
		t.Fatalf("market touched by invalid sell")
	}
}

func TestRefusedCommandsKeepHeldCoin(t *testing.T) {
	g := restored(t, model.Snapshot{Slots: slots(2, 3, 0, 0, 0, 0, 0, 0, 0, 0)})
	if res := g.PickUp(0); !res.OK {
		t.Fatalf("pickup: %+v", res)
	}

	cases := []struct {
		name string
		run  func() Result
		want Reason
	}{
		{"sell wrong level", func() Result { return g.Sell(1, 0, 1, t0) }, ReasonInvalid},
		{"sell out of range", func() Result { return g.Sell(2, 99, SellAll, t0) }, ReasonInvalid},
		{"buy above shop", func() Result { return g.BuyCoin(5, t0) }, ReasonNotAllowed},
		{"buy unaffordable", func() Result { return g.BuyCoin(1, t0) }, ReasonInsufficientFunds},
	}
	for _, tc := range cases {
		if res := tc.run(); res.OK || res.Reason != tc.want {
			t.Fatalf("%s: %+v, want %q", tc.name, res, tc.want)
		}
		if level, source, ok := g.Held(); !ok || level != 2 || source != 0 {
			t.Fatalf("%s: held coin dropped", tc.name)
		}
		if got := g.Slots()[0]; got != (model.Slot{Level: 2, Count: 2}) {
			t.Fatalf("%s: slot 0 = %+v", tc.name, got)
		}
	}
}

func TestSellCountsHeldCoin(t *testing.T) {
	g := restored(t, model.Snapshot{Slots: slots(2, 1, 0, 0, 0, 0, 0, 0, 0, 0)})
	g.PickUp(0)

	res := g.Sell(2, 0, 1, t0)
	if !res.OK || res.Sold != 1 || res.Earned != 20 {
		t.Fatalf("sell: %+v", res)
	}
	if _, _, ok := g.Held(); ok {
		t.Fatalf("drag should be cancelled by the sale")
	}
	if got := g.Slots()[0]; !got.Empty() {
		t.Fatalf("slot 0 = %+v, want empty", got)
	}
}

func TestQuickSell(t *testing.T) {
	g := restored(t, model.Snapshot{Slots: slots(1, 3, 4, 1, 0, 0, 0, 0, 0, 0)})
	res := g.QuickSell()
	if !res.OK || res.Level != 4 || res.Earned != 40 {
		t.Fatalf("quick sell: %+v", res)
	}
	if g.Slots()[1] != (model.Slot{}) || g.market.SaleCount(4) != 0 {
		t.Fatalf("unexpected state after quick sell")
	}
	empty := newGame(t)
	if res := empty.QuickSell(); res.OK {
		t.Fatalf("quick sell on empty bank: %+v", res)
	}
}

func TestBuySlot(t *testing.T) {
	g := restored(t, model.Snapshot{Currency: 100, Slots: slots(0, 0, 0, 0, 0, 0, 0, 0, 0, 0)})
	if res := g.BuySlot(); !res.OK || res.Spent != 100 {
		t.Fatalf("buy slot: %+v", res)
	}
	if got := g.Economy(); got.UnlockedSlots != 6 || got.Currency != 0 || got.NextSlotCost != 200 {
		t.Fatalf("economy: %+v", got)
	}
	if res := g.BuySlot(); res.Reason != ReasonInsufficientFunds {
		t.Fatalf("expected insufficient funds: %+v", res)
	}

	full := restored(t, model.Snapshot{Currency: 1 << 30, UnlockedSlots: 16})
	if res := full.BuySlot(); res.Reason != ReasonMaxed {
		t.Fatalf("expected maxed: %+v", res)
	}
}

func TestBuyCoin(t *testing.T) {
	g := restored(t, model.Snapshot{Currency: 25, Slots: slots(3, 1, 0, 0, 0, 0, 0, 0, 0, 0)})
	if res := g.BuyCoin(3, t0); res.Reason != ReasonNotAllowed {
		t.Fatalf("level above offers accepted: %+v", res)
	}
	if res := g.BuyCoin(2, t0); !res.OK || res.Spent != 20 {
		t.Fatalf("buy coin: %+v", res)
	}
	if g.Economy().Currency != 5 {
		t.Fatalf("currency = %d, want 5", g.Economy().Currency)
	}
	if res := g.BuyCoin(2, t0); res.Reason != ReasonInsufficientFunds {
		t.Fatalf("expected insufficient funds: %+v", res)
	}
	offers := g.Offers()
	if len(offers) != 2 || offers[0].Level != 1 || offers[1].Level != 2 {
		t.Fatalf("offers: %+v", offers)
	}
}

func TestTimeThiefUpgrades(t *testing.T) {
	g := restored(t, model.Snapshot{Currency: 1 << 20, UnlockedSlots: 5})
	limit := rules.MaxTimeThief(g.Balance())
	if limit != 8 {
		t.Fatalf("max time thief = %d, want 8", limit)
	}
	spent := 0
	for i := 0; i < limit; i++ {
		res := g.BuyUpgrade(UpgradeTimeThief)
		if !res.OK {
			t.Fatalf("purchase %d: %+v", i, res)
		}
		spent += res.Spent
	}
	if spent != 500*255 {
		t.Fatalf("spent = %d, want %d", spent, 500*255)
	}
	if res := g.BuyUpgrade(UpgradeTimeThief); res.Reason != ReasonMaxed {
		t.Fatalf("expected maxed: %+v", res)
	}
	if got := g.Upgrades().DealCooldown; got != 200*time.Millisecond {
		t.Fatalf("cooldown = %v", got)
	}

	g.Deal(t0)
	if res := g.Deal(t0.Add(200 * time.Millisecond)); !res.OK {
		t.Fatalf("deal after reduced cooldown: %+v", res)
	}
}

func TestWorkerAutoDeals(t *testing.T) {
	g := restored(t, model.Snapshot{Currency: 1000, UnlockedSlots: 5})
	if res := g.SetWorkerEnabled(true, t0); res.Reason != ReasonNotOwned {
		t.Fatalf("toggle without worker: %+v", res)
	}
	if res := g.BuyUpgrade(UpgradeWorker); !res.OK {
		t.Fatalf("buy worker: %+v", res)
	}
	if res := g.BuyUpgrade(UpgradeWorker); res.OK {
		t.Fatalf("second worker bought: %+v", res)
	}

	if rep := g.Tick(t0); rep.WorkerDealt {
		t.Fatalf("worker dealt on arming tick")
	}
	g.Deal(t0)
	if rep := g.Tick(t0.Add(time.Second)); rep.WorkerDealt {
		t.Fatalf("worker dealt early")
	}
	rep := g.Tick(t0.Add(5 * time.Second))
	if !rep.WorkerDealt || rep.Worker.Dealt != 5 {
		t.Fatalf("worker did not deal: %+v", rep)
	}

	g.SetWorkerEnabled(false, t0)
	if rep := g.Tick(t0.Add(20 * time.Second)); rep.WorkerDealt {
		t.Fatalf("disabled worker dealt")
	}
}

func TestTickReprices(t *testing.T) {
	g := newGame(t)
	if rep := g.Tick(t0); !rep.Repriced {
		t.Fatalf("first tick must reprice")
	}
	want := map[int]int{1: 12, 2: 24, 3: 48}
	if got := g.Prices(); !reflect.DeepEqual(got, want) {
		t.Fatalf("prices = %v, want %v", got, want)
	}
	if rep := g.Tick(t0.Add(500 * time.Millisecond)); rep.Repriced {
		t.Fatalf("repriced before interval")
	}
	if rep := g.Tick(t0.Add(time.Second)); !rep.Repriced {
		t.Fatalf("no reprice after interval")
	}
	if got := len(g.ChartHistory(1)); got != 2 {
		t.Fatalf("chart history = %d, want 2", got)
	}
	if g.NoLegalMoves() {
		t.Fatalf("empty bank reported no legal moves")
	}
}

func TestPrestige(t *testing.T) {
	g := newGame(t)
	if res := g.Prestige(); res.Reason != ReasonNotAllowed {
		t.Fatalf("prestige on fresh game: %+v", res)
	}

	g = restored(t, model.Snapshot{
		Slots:          slots(2, 4, 0, 0, 0, 0, 0, 0, 0, 0, 0, 0),
		UnlockedSlots:  6,
		Currency:       50,
		WorkerOwned:    true,
		TimeThiefCount: 2,
	})
	g.Sell(2, 0, 1, t0)

	if res := g.Prestige(); !res.OK || res.Level != 1 {
		t.Fatalf("prestige: %+v", res)
	}
	econ := g.Economy()
	if econ.Currency != 0 || econ.UnlockedSlots != 5 || econ.Multiplier != 1.1 {
		t.Fatalf("economy after prestige: %+v", econ)
	}
	for i, s := range g.Slots() {
		if !s.Empty() {
			t.Fatalf("slot %d not reset: %+v", i, s)
		}
	}
	if up := g.Upgrades(); !up.WorkerOwned || up.TimeThiefCount != 2 {
		t.Fatalf("upgrades lost: %+v", up)
	}
	if g.market.SaleCount(2) != 1 {
		t.Fatalf("market history reset by prestige")
	}
}

func TestRestartKeepsPrestige(t *testing.T) {
	g := restored(t, model.Snapshot{Slots: slots(2, 4), UnlockedSlots: 7, Currency: 300, PrestigeLevel: 3})
	g.Restart()
	econ := g.Economy()
	if econ.Currency != 0 || econ.PrestigeLevel != 3 || econ.UnlockedSlots != 5 {
		t.Fatalf("economy after restart: %+v", econ)
	}
}

func TestRestoreClampsAndSanitizes(t *testing.T) {
	big := make([]model.SlotRecord, 20)
	for i := range big {
		big[i] = model.SlotRecord{Coin: 1, Count: 1}
	}
	cases := []struct {
		name         string
		snap         model.Snapshot
		wantSlots    int
		wantCurrency int
	}{
		{"above max", model.Snapshot{Slots: big, UnlockedSlots: 40}, 16, 0},
		{"below initial", model.Snapshot{Slots: slots(1, 1), UnlockedSlots: 2}, 5, 0},
		{"negative currency", model.Snapshot{UnlockedSlots: 5, Currency: -10}, 5, 0},
		{"currency kept", model.Snapshot{UnlockedSlots: 6, Currency: 77}, 6, 77},
	}
	for _, tc := range cases {
		g := newGame(t)
		if err := g.Restore(tc.snap); err != nil {
			t.Fatalf("%s: restore: %v", tc.name, err)
		}
		if got := len(g.Slots()); got != tc.wantSlots {
			t.Fatalf("%s: slots = %d, want %d", tc.name, got, tc.wantSlots)
		}
		if got := g.Economy().Currency; got != tc.wantCurrency {
			t.Fatalf("%s: currency = %d, want %d", tc.name, got, tc.wantCurrency)
		}
	}

	g := newGame(t)
	err := g.Restore(model.Snapshot{
		Slots:          slots(1, 0, 0, 5, -1, 2, 3, 4),
		UnlockedSlots:  5,
		PrestigeLevel:  2,
		WorkerEnabled:  true,
		TimeThiefCount: 99,
	})
	if err != nil {
		t.Fatalf("restore: %v", err)
	}
	want := []model.Slot{{}, {}, {}, {Level: 3, Count: 4}, {}}
	if got := g.Slots(); !reflect.DeepEqual(got, want) {
		t.Fatalf("slots mismatch: %+v != %+v", got, want)
	}
	if g.Economy().Multiplier != 1.2 {
		t.Fatalf("multiplier = %v, want 1.2", g.Economy().Multiplier)
	}
	up := g.Upgrades()
	if up.WorkerEnabled || up.TimeThiefCount != 8 {
		t.Fatalf("upgrades not sanitized: %+v", up)
	}
}

func TestRestoreRejectsOutOfRange(t *testing.T) {
	cases := []struct {
		name string
		snap model.Snapshot
	}{
		{"level above max", model.Snapshot{Slots: slots(62, 3, 70, 2), UnlockedSlots: 5}},
		{"huge count", model.Snapshot{Slots: slots(1, 1<<40), UnlockedSlots: 5}},
		{"count above capacity squared", model.Snapshot{Slots: slots(1, 101), UnlockedSlots: 5}},
		{"prestige above max", model.Snapshot{UnlockedSlots: 5, PrestigeLevel: MaxPrestigeLevel + 1}},
	}
	for _, tc := range cases {
		g := restored(t, model.Snapshot{Slots: slots(2, 3), UnlockedSlots: 5, Currency: 50})
		before := g.Snapshot()

		err := g.Restore(tc.snap)
		if !errors.Is(err, ErrInvalidSnapshot) {
			t.Fatalf("%s: err = %v, want ErrInvalidSnapshot", tc.name, err)
		}
		if got := g.Snapshot(); !reflect.DeepEqual(got, before) {
			t.Fatalf("%s: state changed: %+v != %+v", tc.name, got, before)
		}
	}

	// out-of-range data in slots beyond the unlocked count is discarded, not rejected
	g := newGame(t)
	big := append(slots(1, 1, 0, 0, 0, 0, 0, 0, 0, 0), model.SlotRecord{Coin: 99, Count: 1 << 40})
	if err := g.Restore(model.Snapshot{Slots: big, UnlockedSlots: 5}); err != nil {
		t.Fatalf("restore: %v", err)
	}

	// the largest accepted count settles within the slot range
	g = restored(t, model.Snapshot{Slots: slots(1, 100), UnlockedSlots: 5})
	for i, s := range g.Slots() {
		if s.Count >= g.Balance().SlotCapacity {
			t.Fatalf("slot %d not settled: %+v", i, s)
		}
	}
	if g.Economy().Currency != 0 {
		t.Fatalf("settling paid out %d", g.Economy().Currency)
	}
}

func TestSnapshotRoundTrip(t *testing.T) {
	snap := model.Snapshot{
		Slots:          slots(1, 3, 0, 0, 4, 2, 0, 0, 0, 0, 7, 1),
		UnlockedSlots:  6,
		Currency:       1234,
		PrestigeLevel:  2,
		WorkerOwned:    true,
		WorkerEnabled:  true,
		TimeThiefCount: 3,
	}
	g := restored(t, snap)
	if got := g.Snapshot(); !reflect.DeepEqual(got, snap) {
		t.Fatalf("snapshot mismatch: %+v != %+v", got, snap)
	}
}
