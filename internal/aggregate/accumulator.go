package aggregate

import (
	"time"

	"coinforge/internal/model"
)

// Accumulator holds aggregate values for one coin level and window.
type Accumulator struct {
	Level       int
	WindowStart int64
	WindowEnd   int64
	SaleCount   uint64
	Quantity    int64
	Volume      int64
	MinPrice    int
	MaxPrice    int
	LastTS      int64
	sessions    map[string]struct{}
}

func NewAccumulator(record model.SaleRecord, windowStart, windowEnd int64) *Accumulator {
	return &Accumulator{
		Level:       record.Level,
		WindowStart: windowStart,
		WindowEnd:   windowEnd,
		MinPrice:    record.Price,
		MaxPrice:    record.Price,
		LastTS:      record.Timestamp,
		sessions:    make(map[string]struct{}),
	}
}

// AddSale folds one ledger row into the window.
func (a *Accumulator) AddSale(record model.SaleRecord) {
	if record.Timestamp >= a.LastTS {
		a.LastTS = record.Timestamp
	}
	if record.Price < a.MinPrice {
		a.MinPrice = record.Price
	}
	if record.Price > a.MaxPrice {
		a.MaxPrice = record.Price
	}
	a.SaleCount++
	a.Quantity += int64(record.Quantity)
	a.Volume += int64(record.Proceeds())
	if record.SessionID != "" {
		a.sessions[record.SessionID] = struct{}{}
	}
}

// Metrics converts the window to its stored form. AvgPrice is weighted by quantity.
func (a *Accumulator) Metrics(windowSize time.Duration) model.SaleWindowMetrics {
	var avg float64
	if a.Quantity > 0 {
		avg = float64(a.Volume) / float64(a.Quantity)
	}
	return model.SaleWindowMetrics{
		Level:          a.Level,
		WindowSizeSecs: int64(windowSize / time.Second),
		WindowStart:    time.UnixMilli(a.WindowStart).UTC(),
		WindowEnd:      time.UnixMilli(a.WindowEnd).UTC(),
		SaleCount:      a.SaleCount,
		Quantity:       a.Quantity,
		Volume:         a.Volume,
		MinPrice:       a.MinPrice,
		MaxPrice:       a.MaxPrice,
		AvgPrice:       avg,
		Sessions:       len(a.sessions),
	}
}
