package catalog

import (
	"context"
	"fmt"
	"log"
	"strings"
	"sync"
	"time"

	"carshop-display-backend/internal/model"
)

// Repository persists the catalog as a whole. Load returns an empty slice when nothing is stored.
type Repository interface {
	Load(ctx context.Context) ([]model.ServiceDefinition, error)
	Save(ctx context.Context, services []model.ServiceDefinition) error
}

var defaultServices = []model.ServiceDefinition{
	{Label: "Instalasi Carmat", Identifier: "Instalasi Carmat", DurationMinutes: 30},
	{Label: "Instalasi Dashcam", Identifier: "Instalasi Dashcam", DurationMinutes: 60},
	{Label: "Coating Quick Shield", Identifier: "Coating Quick Shield", DurationMinutes: 1440},
	{Label: "Coating Pro", Identifier: "Coating Pro", DurationMinutes: 4320},
	{Label: "Coating Diamond", Identifier: "Coating Diamond", DurationMinutes: 4320},
	{Label: "PPF", Identifier: "PPF", DurationMinutes: 10080},
	{Label: "Interior Cleaning/Detailing", Identifier: "Interior Cleaning/Detailing", DurationMinutes: 180},
	{Label: "Pemasangan Kaca Film", Identifier: "Instal Kaca Film", DurationMinutes: 120},
}

// Defaults returns a copy of the built-in service list.
func Defaults() []model.ServiceDefinition {
	return append([]model.ServiceDefinition(nil), defaultServices...)
}

// Catalog is the editable list of services and their standard durations.
type Catalog struct {
	mu       sync.RWMutex
	repo     Repository
	services []model.ServiceDefinition
}

// New creates a catalog backed by repo and loads the persisted list.
func New(ctx context.Context, repo Repository) *Catalog {
	c := &Catalog{repo: repo}
	c.Reload(ctx)
	return c
}

// Reload replaces the working copy with the persisted catalog, or the defaults when none is stored.
func (c *Catalog) Reload(ctx context.Context) {
	services, err := c.repo.Load(ctx)
	if err != nil {
		log.Printf("catalog: load failed, using defaults: %v", err)
		services = nil
	}
	if len(services) == 0 {
		services = Defaults()
	}

	c.mu.Lock()
	c.services = services
	c.mu.Unlock()
}

// List returns the current catalog in order.
func (c *Catalog) List() []model.ServiceDefinition {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return append([]model.ServiceDefinition(nil), c.services...)
}

// Add appends a service identified by its label and persists the catalog.
func (c *Catalog) Add(ctx context.Context, def model.ServiceDefinition) (model.ServiceDefinition, error) {
	label := strings.TrimSpace(def.Label)
	if label == "" {
		return model.ServiceDefinition{}, fmt.Errorf("%w: service label is required", model.ErrValidation)
	}
	if def.DurationMinutes < 0 {
		return model.ServiceDefinition{}, fmt.Errorf("%w: duration must not be negative", model.ErrValidation)
	}
	added := model.ServiceDefinition{Label: label, Identifier: label, DurationMinutes: def.DurationMinutes}

	c.mu.Lock()
	defer c.mu.Unlock()

	for _, s := range c.services {
		if s.Identifier == added.Identifier {
			return model.ServiceDefinition{}, fmt.Errorf("%w: service %q already exists", model.ErrValidation, added.Identifier)
		}
	}

	updated := append(append([]model.ServiceDefinition(nil), c.services...), added)
	if err := c.repo.Save(ctx, updated); err != nil {
		return model.ServiceDefinition{}, fmt.Errorf("failed to persist catalog: %w", err)
	}
	c.services = updated
	return added, nil
}

// Remove drops the service at position from the working copy. Out-of-range positions are ignored.
func (c *Catalog) Remove(position int) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	if position < 0 || position >= len(c.services) {
		return false
	}
	updated := make([]model.ServiceDefinition, 0, len(c.services)-1)
	updated = append(updated, c.services[:position]...)
	updated = append(updated, c.services[position+1:]...)
	c.services = updated
	return true
}

// Save persists the working copy, replacing whatever was stored before.
func (c *Catalog) Save(ctx context.Context) error {
	c.mu.RLock()
	services := append([]model.ServiceDefinition(nil), c.services...)
	c.mu.RUnlock()

	if err := c.repo.Save(ctx, services); err != nil {
		return fmt.Errorf("failed to persist catalog: %w", err)
	}
	return nil
}

// Lookup finds the first service with the given identifier.
func (c *Catalog) Lookup(identifier string) (model.ServiceDefinition, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return find(c.services, identifier)
}

// EstimatedFinishDate returns now plus the service duration. When the service
// is unknown it returns now and false.
func (c *Catalog) EstimatedFinishDate(identifier string, now time.Time) (time.Time, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return FinishDate(c.services, identifier, now)
}

// FinishDate is the lookup-and-offset rule on an explicit service list.
func FinishDate(services []model.ServiceDefinition, identifier string, now time.Time) (time.Time, bool) {
	s, ok := find(services, identifier)
	if !ok {
		return now, false
	}
	return now.Add(time.Duration(s.DurationMinutes) * time.Minute), true
}

func find(services []model.ServiceDefinition, identifier string) (model.ServiceDefinition, bool) {
	if identifier == "" {
		return model.ServiceDefinition{}, false
	}
	for _, s := range services {
		if s.Identifier == identifier {
			return s, true
		}
	}
	return model.ServiceDefinition{}, false
}
