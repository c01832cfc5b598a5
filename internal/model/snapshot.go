package model

// SlotRecord is the persisted form of a single slot.
type SlotRecord struct {
	Coin  int `json:"coin"`
	Count int `json:"count"`
}

// Snapshot is the persisted game record.
type Snapshot struct {
	Slots          []SlotRecord `json:"slots"`
	UnlockedSlots  int          `json:"unlocked_slots"`
	Currency       int          `json:"currency"`
	PrestigeLevel  int          `json:"prestige_level"`
	WorkerOwned    bool         `json:"worker_owned"`
	WorkerEnabled  bool         `json:"worker_enabled"`
	TimeThiefCount int          `json:"time_thief_count"`
}
