package slots

import "carshop-display-backend/internal/model"

// Slot is one display in a Table.
type Slot struct {
	Index    int               `json:"index"`
	ScreenID string            `json:"screenId"`
	Record   *model.SlotRecord `json:"record"`
}

// Status is Active when the slot has an occupant.
func (s Slot) Status() model.SlotStatus {
	if s.Record.Occupied() {
		return model.StatusActive
	}
	return model.StatusInactive
}

// Table is an immutable copy of every slot at one version.
type Table struct {
	Version uint64 `json:"version"`
	Slots   []Slot `json:"slots"`
}

// Slot finds the slot for a screen identity.
func (t Table) Slot(screenID string) (Slot, bool) {
	for _, s := range t.Slots {
		if s.ScreenID == screenID {
			return s, true
		}
	}
	return Slot{}, false
}

// Occupied counts slots with an occupant.
func (t Table) Occupied() int {
	n := 0
	for _, s := range t.Slots {
		if s.Record.Occupied() {
			n++
		}
	}
	return n
}
