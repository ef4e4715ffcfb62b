package store

import (
	"context"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"omip-benchmark/internal/model"
)

// UpsertMonthlyPrices writes rows in order inside a single transaction, so a
// month repeated in one batch ends with its last value and a failure leaves
// the table untouched.
func (s *Store) UpsertMonthlyPrices(ctx context.Context, rows []model.MonthlyPrice) (int, error) {
	if len(rows) == 0 {
		return 0, nil
	}
	n := 0
	err := s.InTx(ctx, func(tx *gorm.DB) error {
		for i := range rows {
			row := rows[i]
			err := tx.Clauses(clause.OnConflict{
				Columns: []clause.Column{{Name: "month"}},
				DoUpdates: clause.AssignmentColumns([]string{
					"price_eur_mwh",
					"source",
					"updated_at",
				}),
			}).Create(&row).Error
			if err != nil {
				return err
			}
			n++
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// ListMonthlyPrices returns prices with start <= month < end, oldest first.
// A zero bound is open.
func (s *Store) ListMonthlyPrices(ctx context.Context, start, end model.Month) ([]model.MonthlyPrice, error) {
	query := s.db.WithContext(ctx).Model(&model.MonthlyPrice{})
	if !start.IsZero() {
		query = query.Where("month >= ?", start)
	}
	if !end.IsZero() {
		query = query.Where("month < ?", end)
	}
	var items []model.MonthlyPrice
	if err := query.Order("month ASC").Find(&items).Error; err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) LatestMonthlyPrices(ctx context.Context, limit int) ([]model.MonthlyPrice, error) {
	var items []model.MonthlyPrice
	err := s.db.WithContext(ctx).
		Order("month DESC").
		Limit(normalizeLimit(limit, 12)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) PriceCoverage(ctx context.Context) (model.PriceCoverage, error) {
	var row struct {
		Total int64
		First model.Month
		Last  model.Month
	}
	err := s.db.WithContext(ctx).
		Model(&model.MonthlyPrice{}).
		Select("COUNT(*) AS total, MIN(month) AS first, MAX(month) AS last").
		Scan(&row).Error
	if err != nil {
		return model.PriceCoverage{}, err
	}
	return model.PriceCoverage{Total: row.Total, First: row.First, Last: row.Last}, nil
}

func normalizeLimit(limit, def int) int {
	if limit <= 0 {
		return def
	}
	if limit > 1000 {
		return 1000
	}
	return limit
}
