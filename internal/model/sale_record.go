package model

import (
	"encoding/json"
)

// SaleRecord is one sell command as written to the sale ledger.
type SaleRecord struct {
	SessionID     string `json:"session_id"`
	Level         int    `json:"level"`
	Price         int    `json:"price"`
	Quantity      int    `json:"quantity"`
	Amplification int    `json:"amplification"`
	Timestamp     int64  `json:"timestamp"`
	RecordedAt    string `json:"recorded_at"`
}

// Proceeds returns the currency the sale paid out.
func (r SaleRecord) Proceeds() int {
	return r.Price * r.Quantity
}

// MarshalJSON ensures SaleRecord is encoded with stable field names.
func (r SaleRecord) MarshalJSON() ([]byte, error) {
	type Alias SaleRecord
	return json.Marshal(Alias(r))
}

// UnmarshalJSON decodes a SaleRecord from JSON.
func (r *SaleRecord) UnmarshalJSON(data []byte) error {
	type Alias SaleRecord
	var a Alias
	if err := json.Unmarshal(data, &a); err != nil {
		return err
	}
	*r = SaleRecord(a)
	return nil
}
