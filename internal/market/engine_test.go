package market

import (
	"math/rand/v2"
	"testing"
	"time"

	"coinforge/internal/rng"
)

type fixedRNG float64

func (f fixedRNG) Float64() float64 { return float64(f) }

// zeroNoise makes Uniform(-n, n) return exactly 0.
var zeroNoise = fixedRNG(0.5)

var epoch = time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)

func TestRecomputeWithoutHistory(t *testing.T) {
	e := NewEngine(DefaultConfig(), zeroNoise)

	prices := e.Recompute(epoch, nil)

	want := map[int]int{1: 12, 2: 24, 3: 48}
	if len(prices) != len(want) {
		t.Fatalf("prices = %v, want %v", prices, want)
	}
	for level, p := range want {
		if prices[level] != p {
			t.Fatalf("level %d price = %d, want %d", level, prices[level], p)
		}
	}
}

func TestRecomputeTracksPresentAndSoldLevels(t *testing.T) {
	e := NewEngine(DefaultConfig(), zeroNoise)
	e.RecordSale(7, 600, 1, epoch)

	prices := e.Recompute(epoch, []int{5})

	for _, level := range []int{1, 2, 3, 5, 7} {
		if _, ok := prices[level]; !ok {
			t.Fatalf("level %d not tracked: %v", level, prices)
		}
	}
	if _, ok := prices[4]; ok {
		t.Fatalf("level 4 should not be tracked: %v", prices)
	}
}

func TestRecentSamplesDriveBasePrice(t *testing.T) {
	e := NewEngine(DefaultConfig(), zeroNoise)
	e.RecordSale(2, 50, 2, epoch.Add(-10*time.Second))

	prices := e.Recompute(epoch, nil)

	// base 50, two recent sales: demand = 1.2 - 2/12
	if prices[2] != 52 {
		t.Fatalf("price = %d, want 52", prices[2])
	}
}

func TestOlderHistoryBlendsWithCoinValue(t *testing.T) {
	e := NewEngine(DefaultConfig(), zeroNoise)
	e.RecordSale(2, 30, 1, epoch.Add(-2*time.Minute))

	prices := e.Recompute(epoch, nil)

	// base 0.4*30 + 0.6*20 = 24, no recent sales: demand 1.2
	if prices[2] != 29 {
		t.Fatalf("price = %d, want 29", prices[2])
	}
}

func TestDemandWindowBoundary(t *testing.T) {
	e := NewEngine(DefaultConfig(), zeroNoise)
	e.RecordSale(1, 10, 1, epoch.Add(-31*time.Second))
	e.RecordSale(1, 10, 1, epoch.Add(-30*time.Second))

	prices := e.Recompute(epoch, nil)

	// one sale inside the lookback: demand = 1.2 - 1/11
	if prices[1] != 11 {
		t.Fatalf("price = %d, want 11", prices[1])
	}
}

func TestDemandFloorAndMinimumPrice(t *testing.T) {
	e := NewEngine(DefaultConfig(), fixedRNG(0))
	e.RecordSale(1, 1, 200, epoch)

	prices := e.Recompute(epoch, nil)

	if prices[1] != 1 {
		t.Fatalf("price = %d, want clamp to 1", prices[1])
	}
}

func TestSaleHistoryIsBounded(t *testing.T) {
	cfg := DefaultConfig()
	e := NewEngine(cfg, zeroNoise)
	e.RecordSale(3, 40, 1200, epoch)
	if e.SaleCount(3) != cfg.SaleHistoryCap {
		t.Fatalf("sale count = %d, want %d", e.SaleCount(3), cfg.SaleHistoryCap)
	}

	for i := 0; i < 100; i++ {
		e.Recompute(epoch.Add(time.Duration(i)*time.Second), nil)
	}
	if got := len(e.ChartHistory(3)); got != cfg.ChartHistoryCap {
		t.Fatalf("chart len = %d, want %d", got, cfg.ChartHistoryCap)
	}
}

func TestRecordSaleIgnoresInvalid(t *testing.T) {
	e := NewEngine(DefaultConfig(), zeroNoise)
	e.RecordSale(0, 10, 1, epoch)
	e.RecordSale(2, 0, 1, epoch)
	e.RecordSale(2, 20, 0, epoch)
	if e.SaleCount(0) != 0 || e.SaleCount(2) != 1 {
		t.Fatalf("unexpected counts: %d %d", e.SaleCount(0), e.SaleCount(2))
	}
}

func TestPriceBeforeRecompute(t *testing.T) {
	e := NewEngine(DefaultConfig(), zeroNoise)
	if e.Computed() {
		t.Fatalf("fresh engine must not report computed prices")
	}
	if e.Price(4) != 80 {
		t.Fatalf("price = %d, want coin value 80", e.Price(4))
	}
}

func TestRecomputeNeverBelowOne(t *testing.T) {
	r := rand.New(rand.NewPCG(3, 5))
	e := NewEngine(DefaultConfig(), rng.NewSeededRNG(1))
	for i := 0; i < 2000; i++ {
		level := 1 + r.IntN(8)
		at := epoch.Add(time.Duration(r.IntN(600)) * time.Second)
		e.RecordSale(level, 1+r.IntN(2000), 1+r.IntN(3), at)
		if i%50 == 0 {
			for level, p := range e.Recompute(epoch.Add(10*time.Minute), []int{level}) {
				if p < 1 {
					t.Fatalf("level %d price %d < 1", level, p)
				}
			}
		}
	}
}
