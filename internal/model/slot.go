package model

// Slot is one capacity-bounded container of same-level coins.
// Level 0 means empty, and an empty slot always has Count 0.
type Slot struct {
	Level int `json:"level"`
	Count int `json:"count"`
}

// Empty reports whether the slot holds no coins.
func (s Slot) Empty() bool {
	return s.Level == 0
}

// Clear resets the slot to empty.
func (s *Slot) Clear() {
	s.Level = 0
	s.Count = 0
}
