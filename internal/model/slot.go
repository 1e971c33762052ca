package model

import (
	"strings"
	"time"
)

// SlotStatus is the derived state shown on a display card.
type SlotStatus string

const (
	StatusActive   SlotStatus = "Active"
	StatusInactive SlotStatus = "Inactive"
)

// SlotRecord is the occupant currently assigned to one display.
// A nil *SlotRecord is an empty display.
type SlotRecord struct {
	CustomerName string     `json:"customerName"`
	Brand        string     `json:"brand"`
	CarType      string     `json:"carType"`
	Service      string     `json:"service"`
	LicensePlate string     `json:"licensePlate"`
	Year         string     `json:"year,omitempty"`
	Status       SlotStatus `json:"status"`
	// EstimatedFinishAt is nil when the service is not in the catalog.
	EstimatedFinishAt *time.Time `json:"estimatedFinishAt"`
}

// Occupied reports whether r describes a real occupant.
func (r *SlotRecord) Occupied() bool {
	return r != nil && strings.TrimSpace(r.CustomerName) != ""
}

// Clone returns a deep copy of r.
func (r *SlotRecord) Clone() *SlotRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.EstimatedFinishAt != nil {
		t := *r.EstimatedFinishAt
		c.EstimatedFinishAt = &t
	}
	return &c
}

// NormalizeRecord folds a record without a customer into the empty state
// and re-derives the status of an occupied one.
func NormalizeRecord(r *SlotRecord) *SlotRecord {
	if !r.Occupied() {
		return nil
	}
	c := r.Clone()
	c.Status = StatusActive
	return c
}
