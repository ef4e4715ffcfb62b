// Package settings manages versioned adjustment terms.
package settings

import (
	"context"
	"errors"

	"go.uber.org/zap"

	"omip-benchmark/internal/apperr"
	"omip-benchmark/internal/model"
)

const DefaultListLimit = 50

type Store interface {
	CreateSettings(ctx context.Context, s *model.AdjustmentSettings, activate bool) error
	CurrentSettings(ctx context.Context) (*model.AdjustmentSettings, error)
	GetSettings(ctx context.Context, version int64) (*model.AdjustmentSettings, error)
	ActivateSettings(ctx context.Context, version int64) error
	ListSettings(ctx context.Context, limit int) ([]model.AdjustmentSettings, error)
}

// Current is the active terms: a stored version, or the fallback when no
// version has been activated.
type Current struct {
	Source   string
	Settings *model.AdjustmentSettings
	Fallback model.Adjustments
}

// Adjustments returns the terms the calculator would apply.
func (c Current) Adjustments() model.Adjustments {
	if c.Settings != nil {
		return c.Settings.Adjustments
	}
	return c.Fallback
}

type Service struct {
	store    Store
	fallback model.Adjustments
	log      *zap.Logger
}

func NewService(store Store, fallback model.Adjustments, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, fallback: fallback, log: log}
}

// Create validates and stores a new version, optionally making it current.
func (s *Service) Create(ctx context.Context, in *model.AdjustmentSettings, activate bool) (*model.AdjustmentSettings, error) {
	if err := in.Validate(); err != nil {
		return nil, apperr.Malformed("INVALID_SETTINGS", "%v", err)
	}
	cp := *in
	if err := s.store.CreateSettings(ctx, &cp, activate); err != nil {
		s.log.Error("create settings failed", zap.Error(err))
		return nil, apperr.Unavailable("DB_ERROR", err)
	}
	s.log.Info("settings version created",
		zap.Int64("version", cp.Version),
		zap.Bool("activated", activate),
		zap.Float64("losses_percent", cp.LossesPercent),
		zap.Float64("eric_per_mwh", cp.EricPerMWh),
		zap.Float64("ren_per_mwh", cp.RenPerMWh),
	)
	return &cp, nil
}

func (s *Service) Current(ctx context.Context) (*Current, error) {
	cur, err := s.store.CurrentSettings(ctx)
	if err != nil {
		return nil, apperr.Unavailable("DB_ERROR", err)
	}
	out := &Current{Source: "fallback", Settings: cur, Fallback: s.fallback}
	if cur != nil {
		out.Source = "version"
	}
	return out, nil
}

// Activate points "current" at an existing version.
func (s *Service) Activate(ctx context.Context, version int64) (*model.AdjustmentSettings, error) {
	if version < 1 {
		return nil, apperr.Malformed("INVALID_VERSION", "version must be a positive integer")
	}
	err := s.store.ActivateSettings(ctx, version)
	if errors.Is(err, model.ErrNotFound) {
		return nil, apperr.NotFound("SETTINGS_VERSION_NOT_FOUND", "settings version %d does not exist", version)
	}
	if err != nil {
		return nil, apperr.Unavailable("DB_ERROR", err)
	}
	got, err := s.store.GetSettings(ctx, version)
	if err != nil {
		return nil, apperr.Unavailable("DB_ERROR", err)
	}
	s.log.Info("settings version activated", zap.Int64("version", version))
	return got, nil
}

// List returns versions newest first.
func (s *Service) List(ctx context.Context, limit int) ([]model.AdjustmentSettings, error) {
	if limit <= 0 {
		limit = DefaultListLimit
	}
	items, err := s.store.ListSettings(ctx, limit)
	if err != nil {
		return nil, apperr.Unavailable("DB_ERROR", err)
	}
	if items == nil {
		items = []model.AdjustmentSettings{}
	}
	return items, nil
}
