package model

// ServiceDefinition is one entry of the service catalog.
type ServiceDefinition struct {
	Label           string `json:"label" yaml:"label"`
	Identifier      string `json:"value" yaml:"value"`
	DurationMinutes int    `json:"durationMinutes" yaml:"duration_minutes"`
}

// CatalogEntry is the persisted row of a ServiceDefinition.
type CatalogEntry struct {
	ID              int64  `gorm:"primaryKey"`
	Position        int    `gorm:"index;not null"`
	Label           string `gorm:"size:128;not null"`
	Identifier      string `gorm:"size:128;not null"`
	DurationMinutes int    `gorm:"not null"`
}

// TableName keeps the table name stable regardless of the struct name.
func (CatalogEntry) TableName() string {
	return "service_definitions"
}
