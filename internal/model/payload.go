package model

import (
	"strings"
	"time"
)

// ScreenPayload is the flat wire shape a TV view and the external screen API exchange.
type ScreenPayload struct {
	ID            string     `json:"id"`
	ScreenID      string     `json:"screen_id"`
	CustomerName  string     `json:"customer_name"`
	Brand         string     `json:"brand"`
	Type          string     `json:"type"`
	LicensePlate  string     `json:"license_plate"`
	Year          string     `json:"year"`
	Service       string     `json:"service"`
	EstimatedTime *time.Time `json:"estimated_time"`
	IsActive      bool       `json:"is_active"`
}

// PayloadFromRecord builds the payload for a screen; a nil record yields the standby shape.
func PayloadFromRecord(screenID string, r *SlotRecord) ScreenPayload {
	p := ScreenPayload{ID: screenID, ScreenID: screenID}
	if !r.Occupied() {
		return p
	}
	p.CustomerName = r.CustomerName
	p.Brand = r.Brand
	p.Type = r.CarType
	p.LicensePlate = r.LicensePlate
	p.Year = r.Year
	p.Service = r.Service
	p.EstimatedTime = r.Clone().EstimatedFinishAt
	p.IsActive = true
	return p
}

// Record returns the occupant carried by the payload, or nil for an inactive screen.
func (p ScreenPayload) Record() *SlotRecord {
	if !p.IsActive || strings.TrimSpace(p.CustomerName) == "" {
		return nil
	}
	return NormalizeRecord(&SlotRecord{
		CustomerName:      p.CustomerName,
		Brand:             p.Brand,
		CarType:           p.Type,
		Service:           p.Service,
		LicensePlate:      p.LicensePlate,
		Year:              p.Year,
		EstimatedFinishAt: p.EstimatedTime,
	})
}

// NoticeCatalogChanged marks a push channel message saying the service catalog was edited.
const NoticeCatalogChanged = "catalog:changed"

// ScreenUpdate is one message on the realtime push channel. A nil payload clears the screen.
// Type is empty for screen updates.
type ScreenUpdate struct {
	Type     string         `json:"type,omitempty"`
	ScreenID string         `json:"screen_id"`
	Payload  *ScreenPayload `json:"payload"`
	Origin   string         `json:"origin,omitempty"`
	SentAt   time.Time      `json:"sent_at"`
}

// CatalogNotice tells other instances to reload the service catalog.
type CatalogNotice struct {
	Type   string    `json:"type"`
	Origin string    `json:"origin"`
	SentAt time.Time `json:"sent_at"`
}
