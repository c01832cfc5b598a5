package model

import "time"

// SaleWindowMetrics stores aggregated ledger activity for one coin level and window.
type SaleWindowMetrics struct {
	Level          int       `json:"level"`
	WindowSizeSecs int64     `json:"window_size_seconds"`
	WindowStart    time.Time `json:"window_start"`
	WindowEnd      time.Time `json:"window_end"`
	SaleCount      uint64    `json:"sale_count"`
	Quantity       int64     `json:"quantity"`
	Volume         int64     `json:"volume"`
	MinPrice       int       `json:"min_price"`
	MaxPrice       int       `json:"max_price"`
	AvgPrice       float64   `json:"avg_price"`
	Sessions       int       `json:"sessions"`
}
