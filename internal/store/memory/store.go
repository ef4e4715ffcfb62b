// Package memory is an in-memory store for tests, dry runs and local demos.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"omip-benchmark/internal/model"
)

// Store implements the same operations as the postgres store.
type Store struct {
	mu       sync.RWMutex
	prices   map[model.Month]model.MonthlyPrice
	settings []model.AdjustmentSettings
	current  int64
	sims     map[string]model.Simulation
	leads    map[string]model.Lead

	// Err, when set, is returned by every operation. Tests use it to
	// simulate an unreachable database.
	Err error
}

// New constructs an empty store.
func New() *Store {
	return &Store{
		prices: make(map[model.Month]model.MonthlyPrice),
		sims:   make(map[string]model.Simulation),
		leads:  make(map[string]model.Lead),
	}
}

func (s *Store) Ping(_ context.Context) error {
	return s.Err
}

// UpsertMonthlyPrices applies the whole batch or nothing.
func (s *Store) UpsertMonthlyPrices(_ context.Context, rows []model.MonthlyPrice) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return 0, s.Err
	}
	now := time.Now().UTC()
	for _, r := range rows {
		if prev, ok := s.prices[r.Month]; ok {
			r.CreatedAt = prev.CreatedAt
		} else {
			r.CreatedAt = now
		}
		r.UpdatedAt = now
		s.prices[r.Month] = r
	}
	return len(rows), nil
}

// ListMonthlyPrices returns prices with start <= month < end, ascending.
func (s *Store) ListMonthlyPrices(_ context.Context, start, end model.Month) ([]model.MonthlyPrice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.MonthlyPrice
	for m, p := range s.prices {
		if !start.IsZero() && m.Before(start) {
			continue
		}
		if !end.IsZero() && !m.Before(end) {
			continue
		}
		out = append(out, p)
	}
	sortAsc(out)
	return out, nil
}

// LatestMonthlyPrices returns the most recent months first.
func (s *Store) LatestMonthlyPrices(ctx context.Context, limit int) ([]model.MonthlyPrice, error) {
	all, err := s.ListMonthlyPrices(ctx, model.Month{}, model.Month{})
	if err != nil {
		return nil, err
	}
	for i, j := 0, len(all)-1; i < j; i, j = i+1, j-1 {
		all[i], all[j] = all[j], all[i]
	}
	if limit > 0 && len(all) > limit {
		all = all[:limit]
	}
	return all, nil
}

func (s *Store) PriceCoverage(ctx context.Context) (model.PriceCoverage, error) {
	all, err := s.ListMonthlyPrices(ctx, model.Month{}, model.Month{})
	if err != nil {
		return model.PriceCoverage{}, err
	}
	cov := model.PriceCoverage{Total: int64(len(all))}
	if len(all) > 0 {
		cov.First = all[0].Month
		cov.Last = all[len(all)-1].Month
	}
	return cov, nil
}

func (s *Store) CreateSettings(_ context.Context, settings *model.AdjustmentSettings, activate bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	settings.Version = int64(len(s.settings) + 1)
	settings.CreatedAt = time.Now().UTC()
	s.settings = append(s.settings, *settings)
	if activate {
		s.current = settings.Version
	}
	return nil
}

// CurrentSettings returns nil, nil when no version is active.
func (s *Store) CurrentSettings(_ context.Context) (*model.AdjustmentSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if s.current == 0 {
		return nil, nil
	}
	cp := s.settings[s.current-1]
	return &cp, nil
}

func (s *Store) GetSettings(_ context.Context, version int64) (*model.AdjustmentSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	if version < 1 || version > int64(len(s.settings)) {
		return nil, model.ErrNotFound
	}
	cp := s.settings[version-1]
	return &cp, nil
}

func (s *Store) ActivateSettings(_ context.Context, version int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if version < 1 || version > int64(len(s.settings)) {
		return model.ErrNotFound
	}
	s.current = version
	return nil
}

// ListSettings returns versions newest first.
func (s *Store) ListSettings(_ context.Context, limit int) ([]model.AdjustmentSettings, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	out := make([]model.AdjustmentSettings, 0, len(s.settings))
	for i := len(s.settings) - 1; i >= 0; i-- {
		out = append(out, s.settings[i])
		if limit > 0 && len(out) == limit {
			break
		}
	}
	return out, nil
}

func (s *Store) SaveSimulation(_ context.Context, sim *model.Simulation) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	if sim.CreatedAt.IsZero() {
		sim.CreatedAt = time.Now().UTC()
	}
	s.sims[sim.ID] = *sim
	return nil
}

func (s *Store) GetSimulation(_ context.Context, id string) (*model.Simulation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	sim, ok := s.sims[id]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &sim, nil
}

func (s *Store) ListSimulationsByEmail(ctx context.Context, email string, limit int) ([]model.Simulation, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	return s.listSimulations(ctx, limit, func(sim model.Simulation) bool {
		return strings.EqualFold(sim.Email, email)
	})
}

func (s *Store) ListSimulations(ctx context.Context, limit int) ([]model.Simulation, error) {
	return s.listSimulations(ctx, limit, func(model.Simulation) bool { return true })
}

func (s *Store) listSimulations(_ context.Context, limit int, keep func(model.Simulation) bool) ([]model.Simulation, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	var out []model.Simulation
	for _, sim := range s.sims {
		if keep(sim) {
			out = append(out, sim)
		}
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out, nil
}

func (s *Store) EnsureLead(_ context.Context, email string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	s.leadLocked(email)
	return nil
}

func (s *Store) GetLead(_ context.Context, email string) (*model.Lead, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.Err != nil {
		return nil, s.Err
	}
	l, ok := s.leads[strings.ToLower(strings.TrimSpace(email))]
	if !ok {
		return nil, model.ErrNotFound
	}
	return &l, nil
}

func (s *Store) MarkLeadVerified(_ context.Context, email string, at time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return s.Err
	}
	l := s.leadLocked(email)
	l.VerifiedAt = &at
	l.UpdatedAt = at
	s.leads[l.Email] = *l
	return nil
}

func (s *Store) RecordConsent(_ context.Context, email string, terms, marketing bool, at time.Time) (*model.Lead, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.Err != nil {
		return nil, s.Err
	}
	l := s.leadLocked(email)
	l.TermsAcceptedAt = consentTime(terms, l.TermsAcceptedAt, at)
	l.MarketingOptInAt = consentTime(marketing, l.MarketingOptInAt, at)
	l.TermsAccepted = terms
	l.MarketingOptIn = marketing
	l.UpdatedAt = at
	s.leads[l.Email] = *l
	cp := *l
	return &cp, nil
}

func (s *Store) leadLocked(email string) *model.Lead {
	key := strings.ToLower(strings.TrimSpace(email))
	l, ok := s.leads[key]
	if !ok {
		now := time.Now().UTC()
		l = model.Lead{Email: key, CreatedAt: now, UpdatedAt: now}
		s.leads[key] = l
	}
	return &l
}

func consentTime(on bool, prev *time.Time, at time.Time) *time.Time {
	if !on {
		return nil
	}
	if prev != nil {
		return prev
	}
	return &at
}

func sortAsc(rows []model.MonthlyPrice) {
	sort.Slice(rows, func(i, j int) bool { return rows[i].Month.Before(rows[j].Month) })
}
