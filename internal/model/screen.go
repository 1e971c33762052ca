package model

import "time"

// Screen is the persisted assignment of one physical display.
type Screen struct {
	ID                string `gorm:"primaryKey;size:64"` // External screen identity
	Position          int    `gorm:"uniqueIndex;not null"`
	CustomerName      string `gorm:"size:256;not null;default:''"`
	Brand             string `gorm:"size:128;not null;default:''"`
	CarType           string `gorm:"size:128;not null;default:''"`
	Service           string `gorm:"size:128;not null;default:''"`
	LicensePlate      string `gorm:"size:32;not null;default:''"`
	Year              string `gorm:"size:8;not null;default:''"`
	IsActive          bool   `gorm:"not null;default:false"`
	EstimatedFinishAt *time.Time
	AssignedAt        *time.Time
	AssignedBy        string `gorm:"size:128;not null;default:''"`
	CreatedAt         time.Time
	UpdatedAt         time.Time
}

// Record converts the row into the occupant it describes, or nil when the screen is idle.
func (s Screen) Record() *SlotRecord {
	if !s.IsActive {
		return nil
	}
	return NormalizeRecord(&SlotRecord{
		CustomerName:      s.CustomerName,
		Brand:             s.Brand,
		CarType:           s.CarType,
		Service:           s.Service,
		LicensePlate:      s.LicensePlate,
		Year:              s.Year,
		EstimatedFinishAt: s.EstimatedFinishAt,
	})
}

// ScreenHistory archives an assignment once it is cleared or overwritten.
type ScreenHistory struct {
	ID                int64     `gorm:"primaryKey;autoIncrement"`
	ScreenID          string    `gorm:"size:64;not null;index"`
	CustomerName      string    `gorm:"size:256;not null"`
	Brand             string    `gorm:"size:128"`
	CarType           string    `gorm:"size:128"`
	Service           string    `gorm:"size:128;not null"`
	LicensePlate      string    `gorm:"size:32"`
	Year              string    `gorm:"size:8"`
	AssignedAt        time.Time `gorm:"not null"`
	EstimatedFinishAt *time.Time
	EndedAt           time.Time `gorm:"not null;index"` // When the screen was cleared or reassigned
	EndedBy           string    `gorm:"size:128"`
}
