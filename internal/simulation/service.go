// Package simulation compares a client's tariff against the OMIP reference.
package simulation

import (
	"context"
	"encoding/json"
	"errors"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"omip-benchmark/internal/analysis"
	"omip-benchmark/internal/apperr"
	"omip-benchmark/internal/model"
)

const (
	DefaultListLimit  = 100
	DefaultAdminLimit = 200
)

type Store interface {
	SaveSimulation(ctx context.Context, sim *model.Simulation) error
	GetSimulation(ctx context.Context, id string) (*model.Simulation, error)
	ListSimulationsByEmail(ctx context.Context, email string, limit int) ([]model.Simulation, error)
	ListSimulations(ctx context.Context, limit int) ([]model.Simulation, error)
	EnsureLead(ctx context.Context, email string) error
}

// Reference computes the reference for a window.
type Reference interface {
	Compute(ctx context.Context, start model.Month, months int) (*analysis.Result, error)
}

type Recorder interface {
	ObserveSimulation(installType string, saved bool)
}

// Input is a client's request. Prices are kept as typed so "0,1234" and
// "1.234,5" both reach the locale parser.
type Input struct {
	Email                string            `json:"email"`
	NIF                  string            `json:"nif"`
	Company              string            `json:"company"`
	Responsible          string            `json:"responsible"`
	Supplier             string            `json:"supplier"`
	InstallType          string            `json:"installType"`
	Cycle                string            `json:"cycle"`
	Unit                 string            `json:"unit"`
	StartDate            string            `json:"startDate"`
	TermMonths           int               `json:"termMonths"`
	IncludeNetworks      bool              `json:"includeNetworks"`
	AnnualConsumptionMWh *float64          `json:"annualConsumptionMWh"`
	Prices               map[string]string `json:"prices"`
}

// Outcome is a computed simulation together with the window it used.
type Outcome struct {
	Simulation    model.Simulation `json:"simulation"`
	MonthsUsed    []string         `json:"monthsUsed"`
	MonthsMissing []string         `json:"monthsMissing"`
	Reference     *analysis.Result `json:"reference"`
}

type Service struct {
	store   Store
	ref     Reference
	metrics Recorder
	log     *zap.Logger
}

func NewService(store Store, ref Reference, metrics Recorder, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	return &Service{store: store, ref: ref, metrics: metrics, log: log}
}

// Simulate computes without persisting anything.
func (s *Service) Simulate(ctx context.Context, in Input) (*Outcome, error) {
	out, err := s.compute(ctx, in)
	if err != nil {
		return nil, err
	}
	s.observe(out.Simulation.InstallType, false)
	return out, nil
}

// Save computes, stores the simulation under a new id and makes sure the
// email is known as a lead.
func (s *Service) Save(ctx context.Context, in Input) (*Outcome, error) {
	out, err := s.compute(ctx, in)
	if err != nil {
		return nil, err
	}
	sim := &out.Simulation
	sim.ID = uuid.NewString()

	if err := s.store.EnsureLead(ctx, sim.Email); err != nil {
		return nil, apperr.Unavailable("DB_ERROR", err)
	}
	if err := s.store.SaveSimulation(ctx, sim); err != nil {
		s.log.Error("save simulation failed", zap.String("email", sim.Email), zap.Error(err))
		return nil, apperr.Unavailable("DB_ERROR", err)
	}
	s.observe(sim.InstallType, true)
	s.log.Info("simulation saved",
		zap.String("id", sim.ID),
		zap.String("install_type", string(sim.InstallType)),
		zap.Int("months_found", sim.MonthsFound),
	)
	return out, nil
}

func (s *Service) Get(ctx context.Context, id string) (*model.Simulation, error) {
	if _, err := uuid.Parse(id); err != nil {
		return nil, apperr.NotFound("SIMULATION_NOT_FOUND", "simulation %q not found", id)
	}
	sim, err := s.store.GetSimulation(ctx, id)
	if errors.Is(err, model.ErrNotFound) {
		return nil, apperr.NotFound("SIMULATION_NOT_FOUND", "simulation %q not found", id)
	}
	if err != nil {
		return nil, apperr.Unavailable("DB_ERROR", err)
	}
	return sim, nil
}

func (s *Service) ListByEmail(ctx context.Context, email string) ([]model.Simulation, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil, apperr.Malformed("MISSING_EMAIL", "email is required")
	}
	sims, err := s.store.ListSimulationsByEmail(ctx, email, DefaultListLimit)
	if err != nil {
		return nil, apperr.Unavailable("DB_ERROR", err)
	}
	return nonNil(sims), nil
}

// ListAll is the admin listing.
func (s *Service) ListAll(ctx context.Context, limit int) ([]model.Simulation, error) {
	if limit <= 0 || limit > DefaultAdminLimit {
		limit = DefaultAdminLimit
	}
	sims, err := s.store.ListSimulations(ctx, limit)
	if err != nil {
		return nil, apperr.Unavailable("DB_ERROR", err)
	}
	return nonNil(sims), nil
}

func (s *Service) compute(ctx context.Context, in Input) (*Outcome, error) {
	sim, err := validate(in)
	if err != nil {
		return nil, err
	}

	ref, err := s.ref.Compute(ctx, sim.StartMonth, sim.TermMonths)
	if err != nil {
		return nil, err
	}

	sim.ClientAvgMWh = ClientAverage(sim.InstallType, sim.Cycle, sim.Unit, in.Prices)
	if sim.IncludeNetworks {
		sim.NetworkPerMWh = ref.Networks.For(sim.InstallType)
	}
	sim.ClientEnergyAvgMWh = EnergyAverage(sim.ClientAvgMWh, sim.NetworkPerMWh)
	sim.MonthsFound = ref.MonthsFound
	sim.AvgIndexPrice = ref.AvgIndexPrice
	sim.ReferencePrice = ref.ReferencePrice
	sim.SettingsVersion = ref.SettingsVersion
	if sim.ClientEnergyAvgMWh != nil && ref.ReferencePrice != nil {
		abs, pct := analysis.Deviation(*sim.ClientEnergyAvgMWh, *ref.ReferencePrice)
		sim.DeviationAbs = &abs
		sim.DeviationPct = pct
	}

	return &Outcome{
		Simulation:    *sim,
		MonthsUsed:    ref.MonthsUsed,
		MonthsMissing: ref.MonthsMissing,
		Reference:     ref.Public(),
	}, nil
}

func validate(in Input) (*model.Simulation, error) {
	email := strings.ToLower(strings.TrimSpace(in.Email))
	if email == "" || !strings.Contains(email, "@") {
		return nil, apperr.Malformed("INVALID_EMAIL", "a valid email is required")
	}
	installType, err := model.ParseInstallType(strings.ToUpper(strings.TrimSpace(in.InstallType)))
	if err != nil {
		return nil, apperr.Malformed("INVALID_INSTALL_TYPE", "%v", err)
	}
	var cycle model.TariffCycle
	if installType == model.InstallBTN {
		if cycle, err = model.ParseTariffCycle(in.Cycle); err != nil {
			return nil, apperr.Malformed("INVALID_CYCLE", "%v", err)
		}
	}
	unit, err := model.ParsePriceUnit(in.Unit)
	if err != nil {
		return nil, apperr.Malformed("INVALID_UNIT", "%v", err)
	}
	start, err := model.ParseQueryMonth(in.StartDate)
	if err != nil {
		return nil, apperr.Malformed("INVALID_START_DATE", "%v", err)
	}
	if in.AnnualConsumptionMWh != nil && *in.AnnualConsumptionMWh < 0 {
		return nil, apperr.Malformed("INVALID_CONSUMPTION", "annualConsumptionMWh must be >= 0")
	}

	prices, err := json.Marshal(in.Prices)
	if err != nil {
		return nil, apperr.Malformed("INVALID_PRICES", "prices: %v", err)
	}

	return &model.Simulation{
		Email:                email,
		NIF:                  strings.TrimSpace(in.NIF),
		Company:              strings.TrimSpace(in.Company),
		Responsible:          strings.TrimSpace(in.Responsible),
		Supplier:             strings.TrimSpace(in.Supplier),
		InstallType:          installType,
		Cycle:                cycle,
		Unit:                 unit,
		StartMonth:           start,
		TermMonths:           in.TermMonths,
		AnnualConsumptionMWh: in.AnnualConsumptionMWh,
		IncludeNetworks:      in.IncludeNetworks,
		Prices:               prices,
	}, nil
}

// priceFields lists the form fields that count towards the client average.
func priceFields(t model.InstallType, c model.TariffCycle) []string {
	switch t {
	case model.InstallMT, model.InstallBTE:
		return []string{"ponta", "cheia", "vazio", "svazio"}
	}
	switch c {
	case model.CycleSimples:
		return []string{"simples"}
	case model.CycleBi:
		return []string{"bi_cheia", "bi_vazio"}
	default:
		return []string{"tri_ponta", "tri_cheia", "tri_vazio"}
	}
}

// ClientAverage is the mean of the usable price fields in EUR/MWh, or nil
// when none of them parse.
func ClientAverage(t model.InstallType, c model.TariffCycle, unit model.PriceUnit, prices map[string]string) *float64 {
	sum := decimal.Zero
	n := 0
	for _, f := range priceFields(t, c) {
		v, err := model.ParseLocaleNumber(prices[f])
		if err != nil {
			continue
		}
		sum = sum.Add(decimal.NewFromFloat(unit.ToMWh(v)))
		n++
	}
	if n == 0 {
		return nil
	}
	avg := sum.Div(decimal.NewFromInt(int64(n))).InexactFloat64()
	return &avg
}

// EnergyAverage strips the network cost from a client average, never going
// below zero.
func EnergyAverage(clientAvg *float64, network float64) *float64 {
	if clientAvg == nil {
		return nil
	}
	v := decimal.NewFromFloat(*clientAvg).Sub(decimal.NewFromFloat(network))
	if v.IsNegative() {
		v = decimal.Zero
	}
	f := v.InexactFloat64()
	return &f
}

func (s *Service) observe(t model.InstallType, saved bool) {
	if s.metrics != nil {
		s.metrics.ObserveSimulation(string(t), saved)
	}
}

func nonNil(sims []model.Simulation) []model.Simulation {
	if sims == nil {
		return []model.Simulation{}
	}
	return sims
}
