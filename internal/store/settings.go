package store

import (
	"context"
	"errors"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"omip-benchmark/internal/model"
)

const pointerID = 1

// CreateSettings appends a new immutable version and, when activate is set,
// points "current" at it in the same transaction.
func (s *Store) CreateSettings(ctx context.Context, settings *model.AdjustmentSettings, activate bool) error {
	return s.InTx(ctx, func(tx *gorm.DB) error {
		settings.Version = 0
		if err := tx.Create(settings).Error; err != nil {
			return err
		}
		if !activate {
			return nil
		}
		return setPointer(tx, settings.Version)
	})
}

// CurrentSettings returns the active version, or nil, nil when none is set.
func (s *Store) CurrentSettings(ctx context.Context) (*model.AdjustmentSettings, error) {
	var item model.AdjustmentSettings
	err := s.db.WithContext(ctx).
		Joins("JOIN adjustment_settings_current p ON p.version = adjustment_settings.version AND p.id = ?", pointerID).
		Take(&item).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &item, nil
}

func (s *Store) GetSettings(ctx context.Context, version int64) (*model.AdjustmentSettings, error) {
	var item model.AdjustmentSettings
	if err := s.db.WithContext(ctx).Where("version = ?", version).Take(&item).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

// ActivateSettings moves the current pointer to an existing version.
func (s *Store) ActivateSettings(ctx context.Context, version int64) error {
	return s.InTx(ctx, func(tx *gorm.DB) error {
		var count int64
		if err := tx.Model(&model.AdjustmentSettings{}).Where("version = ?", version).Count(&count).Error; err != nil {
			return err
		}
		if count == 0 {
			return model.ErrNotFound
		}
		return setPointer(tx, version)
	})
}

func (s *Store) ListSettings(ctx context.Context, limit int) ([]model.AdjustmentSettings, error) {
	var items []model.AdjustmentSettings
	err := s.db.WithContext(ctx).
		Order("version DESC").
		Limit(normalizeLimit(limit, 50)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func setPointer(tx *gorm.DB, version int64) error {
	return tx.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "id"}},
		DoUpdates: clause.AssignmentColumns([]string{"version", "updated_at"}),
	}).Create(&model.SettingsPointer{ID: pointerID, Version: version}).Error
}
