package store

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"carshop-display-backend/internal/model"
)

// CatalogRepository persists the service catalog in the service_definitions table.
type CatalogRepository struct {
	db *gorm.DB
}

// NewCatalogRepository creates a catalog repository on db.
func NewCatalogRepository(db *gorm.DB) *CatalogRepository {
	return &CatalogRepository{db: db}
}

// Load returns the stored services in position order.
func (r *CatalogRepository) Load(ctx context.Context) ([]model.ServiceDefinition, error) {
	var rows []model.CatalogEntry
	if err := r.db.WithContext(ctx).Order("position").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("failed to load catalog: %w", err)
	}

	services := make([]model.ServiceDefinition, 0, len(rows))
	for _, row := range rows {
		services = append(services, model.ServiceDefinition{
			Label:           row.Label,
			Identifier:      row.Identifier,
			DurationMinutes: row.DurationMinutes,
		})
	}
	return services, nil
}

// Save replaces every stored row with services.
func (r *CatalogRepository) Save(ctx context.Context, services []model.ServiceDefinition) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("1 = 1").Delete(&model.CatalogEntry{}).Error; err != nil {
			return fmt.Errorf("failed to clear catalog: %w", err)
		}
		if len(services) == 0 {
			return nil
		}

		rows := make([]model.CatalogEntry, 0, len(services))
		for i, s := range services {
			rows = append(rows, model.CatalogEntry{
				Position:        i,
				Label:           s.Label,
				Identifier:      s.Identifier,
				DurationMinutes: s.DurationMinutes,
			})
		}
		if err := tx.Create(&rows).Error; err != nil {
			return fmt.Errorf("failed to save catalog: %w", err)
		}
		return nil
	})
}
