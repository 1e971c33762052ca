package store

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"carshop-display-backend/internal/model"
)

// Store defines the database operations behind the screen system of record.
type Store interface {
	EnsureScreens(ctx context.Context, screenIDs []string) error
	ListScreens(ctx context.Context) ([]model.ScreenPayload, error)
	AssignScreen(ctx context.Context, screenID string, rec model.SlotRecord, actor string) error
	ClearScreen(ctx context.Context, screenID string, actor string) error
	ListHistory(ctx context.Context, screenID string, limit int) ([]model.ScreenHistory, error)
	DB() *gorm.DB
}

// gormStore implements the Store interface using GORM.
type gormStore struct {
	db  *gorm.DB
	now func() time.Time
}

// NewGormStore creates a new GORM-backed store.
func NewGormStore(db *gorm.DB) Store {
	return &gormStore{db: db, now: func() time.Time { return time.Now().UTC() }}
}

func (s *gormStore) DB() *gorm.DB {
	return s.db
}

// EnsureScreens creates a row for every configured screen and pins its position.
// Screens no longer configured keep their rows but drop out of ListScreens.
func (s *gormStore) EnsureScreens(ctx context.Context, screenIDs []string) error {
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// Park every live row below the lowest position in use, so neither a reordered config
		// nor screens parked by an earlier run can trip the unique position index.
		var lowest int
		if err := tx.Model(&model.Screen{}).Select("COALESCE(MIN(position), 0)").Scan(&lowest).Error; err != nil {
			return fmt.Errorf("failed to read screen positions: %w", err)
		}
		if lowest > 0 {
			lowest = 0
		}
		if err := tx.Model(&model.Screen{}).Where("position >= ?", 0).
			Update("position", gorm.Expr("? - 1 - position", lowest)).Error; err != nil {
			return fmt.Errorf("failed to release screen positions: %w", err)
		}

		for i, id := range screenIDs {
			screen := model.Screen{ID: id, Position: i}
			if err := tx.Clauses(clause.OnConflict{
				Columns:   []clause.Column{{Name: "id"}},
				DoUpdates: clause.AssignmentColumns([]string{"position", "updated_at"}),
			}).Create(&screen).Error; err != nil {
				return fmt.Errorf("failed to upsert screen %s: %w", id, err)
			}
		}
		log.Printf("store: %d screens registered", len(screenIDs))
		return nil
	})
}

// ListScreens returns the configured screens in position order.
func (s *gormStore) ListScreens(ctx context.Context) ([]model.ScreenPayload, error) {
	var screens []model.Screen
	if err := s.db.WithContext(ctx).Where("position >= ?", 0).Order("position").Find(&screens).Error; err != nil {
		return nil, fmt.Errorf("failed to list screens: %w", err)
	}

	payloads := make([]model.ScreenPayload, 0, len(screens))
	for _, screen := range screens {
		payloads = append(payloads, model.PayloadFromRecord(screen.ID, screen.Record()))
	}
	return payloads, nil
}

// AssignScreen stores rec as the screen's occupant, archiving whoever was there.
func (s *gormStore) AssignScreen(ctx context.Context, screenID string, rec model.SlotRecord, actor string) error {
	now := s.now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		screen, err := findScreen(tx, screenID)
		if err != nil {
			return err
		}
		if screen.IsActive {
			if err := archiveAssignment(tx, screen, now, actor); err != nil {
				return err
			}
		}

		screen.CustomerName = rec.CustomerName
		screen.Brand = rec.Brand
		screen.CarType = rec.CarType
		screen.Service = rec.Service
		screen.LicensePlate = rec.LicensePlate
		screen.Year = rec.Year
		screen.IsActive = true
		screen.EstimatedFinishAt = rec.EstimatedFinishAt
		screen.AssignedAt = &now
		screen.AssignedBy = actor
		if err := tx.Save(&screen).Error; err != nil {
			return fmt.Errorf("failed to assign screen %s: %w", screenID, err)
		}
		return nil
	})
}

// ClearScreen empties the screen. Clearing an idle screen changes nothing.
func (s *gormStore) ClearScreen(ctx context.Context, screenID string, actor string) error {
	now := s.now()
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		screen, err := findScreen(tx, screenID)
		if err != nil {
			return err
		}
		if !screen.IsActive {
			return nil
		}
		if err := archiveAssignment(tx, screen, now, actor); err != nil {
			return err
		}

		cleared := model.Screen{
			ID:        screen.ID,
			Position:  screen.Position,
			CreatedAt: screen.CreatedAt,
		}
		if err := tx.Save(&cleared).Error; err != nil {
			return fmt.Errorf("failed to clear screen %s: %w", screenID, err)
		}
		return nil
	})
}

// ListHistory returns the most recent finished assignments of a screen, newest first.
func (s *gormStore) ListHistory(ctx context.Context, screenID string, limit int) ([]model.ScreenHistory, error) {
	if limit <= 0 {
		limit = 50
	}
	var history []model.ScreenHistory
	if err := s.db.WithContext(ctx).
		Where("screen_id = ?", screenID).
		Order("ended_at DESC").
		Limit(limit).
		Find(&history).Error; err != nil {
		return nil, fmt.Errorf("failed to list history for screen %s: %w", screenID, err)
	}
	return history, nil
}

func findScreen(tx *gorm.DB, screenID string) (model.Screen, error) {
	var screen model.Screen
	err := tx.Where("id = ? AND position >= ?", screenID, 0).First(&screen).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return model.Screen{}, fmt.Errorf("%w: %q", model.ErrData, screenID)
	}
	if err != nil {
		return model.Screen{}, fmt.Errorf("failed to load screen %s: %w", screenID, err)
	}
	return screen, nil
}

// archiveAssignment keeps a record of an assignment that is about to end.
func archiveAssignment(tx *gorm.DB, screen model.Screen, endedAt time.Time, actor string) error {
	assignedAt := endedAt
	if screen.AssignedAt != nil {
		assignedAt = *screen.AssignedAt
	}

	entry := model.ScreenHistory{
		ScreenID:          screen.ID,
		CustomerName:      screen.CustomerName,
		Brand:             screen.Brand,
		CarType:           screen.CarType,
		Service:           screen.Service,
		LicensePlate:      screen.LicensePlate,
		Year:              screen.Year,
		AssignedAt:        assignedAt,
		EstimatedFinishAt: screen.EstimatedFinishAt,
		EndedAt:           endedAt,
		EndedBy:           actor,
	}
	if err := tx.Create(&entry).Error; err != nil {
		return fmt.Errorf("failed to archive assignment on screen %s: %w", screen.ID, err)
	}
	return nil
}
