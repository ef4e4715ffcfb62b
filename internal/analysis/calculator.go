// Package analysis computes the OMIP reference price for a window of months.
package analysis

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"go.uber.org/zap"

	"omip-benchmark/internal/apperr"
	"omip-benchmark/internal/model"
)

const (
	SettingsFromVersion  = "version"
	SettingsFromFallback = "fallback"
)

type PriceReader interface {
	ListMonthlyPrices(ctx context.Context, start, end model.Month) ([]model.MonthlyPrice, error)
}

type SettingsReader interface {
	CurrentSettings(ctx context.Context) (*model.AdjustmentSettings, error)
}

// Generation identifies the cache contents a lookup saw. Invalidate moves a
// cache to a new generation.
type Generation int64

// NoGeneration is returned when the current generation is unknown; Set
// ignores it.
const NoGeneration Generation = -1

// Cache stores computed results. Implementations must be safe for
// concurrent use and must hand out values the caller may not mutate.
// Set stores r only if gen, as returned by the Get that missed, is still
// current, so a result read before an import never outlives it.
type Cache interface {
	Get(ctx context.Context, key string) (*Result, Generation, bool)
	Set(ctx context.Context, key string, gen Generation, r *Result)
}

type Recorder interface {
	ObserveReference(outcome string)
}

// Result is a computed reference. AvgIndexPrice and ReferencePrice are nil
// when no month in the window has a stored price.
type Result struct {
	Start           model.Month          `json:"start"`
	End             model.Month          `json:"end"`
	Months          int                  `json:"months"`
	MonthsFound     int                  `json:"monthsFound"`
	AvgIndexPrice   *float64             `json:"avgIndexPrice"`
	MinIndexPrice   *float64             `json:"minIndexPrice"`
	MaxIndexPrice   *float64             `json:"maxIndexPrice"`
	LossesPercent   float64              `json:"lossesPercent"`
	EricPerMWh      float64              `json:"ericPerMWh"`
	RenPerMWh       float64              `json:"renPerMWh"`
	ReferencePrice  *float64             `json:"referencePrice"`
	SettingsVersion int64                `json:"settingsVersion"`
	SettingsSource  string               `json:"settingsSource"`
	Networks        model.NetworkCosts   `json:"networks"`
	MonthsUsed      []string             `json:"monthsUsed"`
	MonthsMissing   []string             `json:"monthsMissing"`
	Rows            []model.MonthlyPrice `json:"rows,omitempty"`
}

// Public returns a copy without the raw rows.
func (r *Result) Public() *Result {
	cp := *r
	cp.Rows = nil
	return &cp
}

func (r *Result) Adjustments() model.Adjustments {
	return model.Adjustments{LossesPercent: r.LossesPercent, EricPerMWh: r.EricPerMWh, RenPerMWh: r.RenPerMWh}
}

// Calculator averages stored prices over a window and applies the current
// adjustment settings.
type Calculator struct {
	prices    PriceReader
	settings  SettingsReader
	fallback  model.Adjustments
	maxMonths int
	cache     Cache
	metrics   Recorder
	log       *zap.Logger
}

type Option func(*Calculator)

func WithCache(c Cache) Option { return func(calc *Calculator) { calc.cache = c } }
func WithRecorder(r Recorder) Option { return func(calc *Calculator) { calc.metrics = r } }
func WithLogger(l *zap.Logger) Option { return func(calc *Calculator) { calc.log = l } }
func WithMaxMonths(n int) Option { return func(calc *Calculator) { calc.maxMonths = n } }

// NewCalculator builds a Calculator. fallback is applied when no settings
// version is active.
func NewCalculator(prices PriceReader, settings SettingsReader, fallback model.Adjustments, opts ...Option) *Calculator {
	c := &Calculator{
		prices:    prices,
		settings:  settings,
		fallback:  fallback,
		maxMonths: DefaultMaxMonths,
		log:       zap.NewNop(),
	}
	for _, o := range opts {
		o(c)
	}
	return c
}

func (c *Calculator) MaxMonths() int { return c.maxMonths }

// Compute returns the reference for [start, start+months).
func (c *Calculator) Compute(ctx context.Context, start model.Month, months int) (*Result, error) {
	w, err := NewWindow(start, months, c.maxMonths)
	if err != nil {
		c.observe("malformed")
		return nil, err
	}

	adj, networks, version, source, err := c.currentAdjustments(ctx)
	if err != nil {
		c.observe("error")
		return nil, err
	}

	key := cacheKey(w, version)
	gen := NoGeneration
	if c.cache != nil {
		r, g, ok := c.cache.Get(ctx, key)
		if ok {
			c.observe("cached")
			return r, nil
		}
		gen = g
	}

	rows, err := c.prices.ListMonthlyPrices(ctx, w.Start, w.End)
	if err != nil {
		c.log.Error("reference price query failed",
			zap.String("start", w.Start.String()),
			zap.Int("months", w.Months),
			zap.Error(err),
		)
		c.observe("error")
		return nil, apperr.Unavailable("DB_ERROR", err)
	}

	stats := Summarize(rows)
	used, missing := w.Coverage(rows)
	res := &Result{
		Start:           w.Start,
		End:             w.End,
		Months:          w.Months,
		MonthsFound:     stats.Count,
		AvgIndexPrice:   stats.Mean,
		MinIndexPrice:   stats.Min,
		MaxIndexPrice:   stats.Max,
		LossesPercent:   adj.LossesPercent,
		EricPerMWh:      adj.EricPerMWh,
		RenPerMWh:       adj.RenPerMWh,
		SettingsVersion: version,
		SettingsSource:  source,
		Networks:        networks,
		MonthsUsed:      used,
		MonthsMissing:   missing,
		Rows:            rows,
	}
	if res.Rows == nil {
		res.Rows = []model.MonthlyPrice{}
	}
	if stats.Mean != nil {
		ref := ReferencePrice(*stats.Mean, adj)
		res.ReferencePrice = &ref
		c.observe("found")
	} else {
		c.observe("empty")
	}

	if c.cache != nil {
		c.cache.Set(ctx, key, gen, res)
	}
	return res, nil
}

func (c *Calculator) currentAdjustments(ctx context.Context) (model.Adjustments, model.NetworkCosts, int64, string, error) {
	s, err := c.settings.CurrentSettings(ctx)
	if err != nil {
		c.log.Error("settings lookup failed", zap.Error(err))
		return model.Adjustments{}, model.NetworkCosts{}, 0, "", apperr.Unavailable("DB_ERROR", err)
	}
	if s == nil {
		return c.fallback, model.NetworkCosts{}, 0, SettingsFromFallback, nil
	}
	return s.Adjustments, s.Networks, s.Version, SettingsFromVersion, nil
}

func (c *Calculator) observe(outcome string) {
	if c.metrics != nil {
		c.metrics.ObserveReference(outcome)
	}
}

func cacheKey(w Window, version int64) string {
	return fmt.Sprintf("%s:%d:v%d", w.Start.String(), w.Months, version)
}

// ParseQuery reads the start and months query parameters.
func ParseQuery(start, months string) (model.Month, int, error) {
	m, err := model.ParseQueryMonth(start)
	if err != nil {
		return model.Month{}, 0, apperr.Malformed("INVALID_START", "%v", err)
	}
	months = strings.TrimSpace(months)
	n, err := strconv.Atoi(months)
	if err != nil {
		return model.Month{}, 0, apperr.Malformed("INVALID_MONTHS", "months must be an integer, got %q", months)
	}
	return m, n, nil
}
