package store

import (
	"context"
	"strings"

	"omip-benchmark/internal/model"
)

func (s *Store) SaveSimulation(ctx context.Context, sim *model.Simulation) error {
	return s.db.WithContext(ctx).Create(sim).Error
}

func (s *Store) GetSimulation(ctx context.Context, id string) (*model.Simulation, error) {
	var item model.Simulation
	if err := s.db.WithContext(ctx).Where("id = ?", id).Take(&item).Error; err != nil {
		return nil, notFound(err)
	}
	return &item, nil
}

func (s *Store) ListSimulationsByEmail(ctx context.Context, email string, limit int) ([]model.Simulation, error) {
	var items []model.Simulation
	err := s.db.WithContext(ctx).
		Where("lower(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		Order("created_at DESC").
		Limit(normalizeLimit(limit, 100)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}

func (s *Store) ListSimulations(ctx context.Context, limit int) ([]model.Simulation, error) {
	var items []model.Simulation
	err := s.db.WithContext(ctx).
		Order("created_at DESC").
		Limit(normalizeLimit(limit, 200)).
		Find(&items).Error
	if err != nil {
		return nil, err
	}
	return items, nil
}
