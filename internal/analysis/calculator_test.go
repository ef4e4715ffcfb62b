package analysis

import (
	"context"
	"errors"
	"math"
	"sync"
	"testing"
	"time"

	"omip-benchmark/internal/apperr"
	"omip-benchmark/internal/model"
	"omip-benchmark/internal/store/memory"
)

var fallback = model.Adjustments{LossesPercent: 7, EricPerMWh: 3, RenPerMWh: 1.5}

func seed(t *testing.T, st *memory.Store, prices map[string]float64) {
	t.Helper()
	var rows []model.MonthlyPrice
	for m, p := range prices {
		month, err := model.ParseQueryMonth(m)
		if err != nil {
			t.Fatal(err)
		}
		rows = append(rows, model.MonthlyPrice{Month: month, Price: p, Source: model.DefaultSource})
	}
	if _, err := st.UpsertMonthlyPrices(context.Background(), rows); err != nil {
		t.Fatal(err)
	}
}

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func TestNewWindow(t *testing.T) {
	start := model.NewMonth(2025, time.January)
	w, err := NewWindow(start, 3, 120)
	if err != nil {
		t.Fatal(err)
	}
	if w.End.Date() != "2025-04-01" {
		t.Fatalf("end = %s", w.End.Date())
	}
	if got := len(w.List()); got != 3 {
		t.Fatalf("list = %d", got)
	}

	for _, months := range []int{0, -1, 121} {
		if _, err := NewWindow(start, months, 120); !apperr.Is(err, apperr.KindMalformedInput) {
			t.Fatalf("months=%d: err = %v, want MalformedInput", months, err)
		}
	}
	if _, err := NewWindow(model.Month{}, 3, 120); !apperr.Is(err, apperr.KindMalformedInput) {
		t.Fatalf("zero start: err = %v", err)
	}
}

func TestReferencePrice(t *testing.T) {
	tests := []struct {
		name string
		avg  float64
		adj  model.Adjustments
		want float64
	}{
		{"documented example", 100, model.Adjustments{LossesPercent: 2.5, EricPerMWh: 3, RenPerMWh: 1.5}, 107.1125},
		{"fallback terms", 100, fallback, 111.815},
		{"zero adjustments", 55.5, model.Adjustments{}, 55.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ReferencePrice(tt.avg, tt.adj); !near(got, tt.want) {
				t.Fatalf("ReferencePrice = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeviation(t *testing.T) {
	abs, pct := Deviation(110, 100)
	if !near(abs, 10) || pct == nil || !near(*pct, 10) {
		t.Fatalf("Deviation = %v, %v", abs, pct)
	}
	if _, pct := Deviation(5, 0); pct != nil {
		t.Fatalf("pct should be nil for zero reference, got %v", *pct)
	}
}

func TestComputeAverageOverWindow(t *testing.T) {
	st := memory.New()
	seed(t, st, map[string]float64{
		"2024-12": 500,
		"2025-01": 100,
		"2025-02": 102,
		"2025-03": 98,
		"2025-04": 500,
	})
	calc := NewCalculator(st, st, fallback)

	res, err := calc.Compute(context.Background(), model.NewMonth(2025, time.January), 3)
	if err != nil {
		t.Fatal(err)
	}
	if res.MonthsFound != 3 {
		t.Fatalf("monthsFound = %d", res.MonthsFound)
	}
	if res.AvgIndexPrice == nil || !near(*res.AvgIndexPrice, 100) {
		t.Fatalf("avg = %v", res.AvgIndexPrice)
	}
	if res.SettingsSource != SettingsFromFallback || res.SettingsVersion != 0 {
		t.Fatalf("settings = %s v%d", res.SettingsSource, res.SettingsVersion)
	}
	if res.ReferencePrice == nil || !near(*res.ReferencePrice, ReferencePrice(100, fallback)) {
		t.Fatalf("ref = %v", res.ReferencePrice)
	}
	if *res.MinIndexPrice != 98 || *res.MaxIndexPrice != 102 {
		t.Fatalf("min/max = %v/%v", *res.MinIndexPrice, *res.MaxIndexPrice)
	}
	if len(res.MonthsMissing) != 0 || len(res.MonthsUsed) != 3 {
		t.Fatalf("coverage used=%v missing=%v", res.MonthsUsed, res.MonthsMissing)
	}
}

func TestComputeEmptyWindowIsNull(t *testing.T) {
	st := memory.New()
	seed(t, st, map[string]float64{"2020-01": 40})
	calc := NewCalculator(st, st, fallback)

	res, err := calc.Compute(context.Background(), model.NewMonth(2030, time.January), 6)
	if err != nil {
		t.Fatal(err)
	}
	if res.MonthsFound != 0 {
		t.Fatalf("monthsFound = %d", res.MonthsFound)
	}
	if res.AvgIndexPrice != nil || res.ReferencePrice != nil {
		t.Fatalf("expected null avg and ref, got %v %v", res.AvgIndexPrice, res.ReferencePrice)
	}
	if len(res.MonthsMissing) != 6 {
		t.Fatalf("missing = %v", res.MonthsMissing)
	}
}

func TestComputePartialWindow(t *testing.T) {
	st := memory.New()
	seed(t, st, map[string]float64{"2025-01": 90, "2025-03": 110})
	calc := NewCalculator(st, st, fallback)

	res, err := calc.Compute(context.Background(), model.NewMonth(2025, time.January), 3)
	if err != nil {
		t.Fatal(err)
	}
	if res.MonthsFound != 2 || !near(*res.AvgIndexPrice, 100) {
		t.Fatalf("found=%d avg=%v", res.MonthsFound, *res.AvgIndexPrice)
	}
	if len(res.MonthsMissing) != 1 || res.MonthsMissing[0] != "2025-02" {
		t.Fatalf("missing = %v", res.MonthsMissing)
	}
}

func TestComputeUsesCurrentSettings(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	seed(t, st, map[string]float64{"2025-01": 100})

	zero := &model.AdjustmentSettings{Adjustments: model.Adjustments{}}
	if err := st.CreateSettings(ctx, zero, true); err != nil {
		t.Fatal(err)
	}
	calc := NewCalculator(st, st, fallback)

	res, err := calc.Compute(ctx, model.NewMonth(2025, time.January), 1)
	if err != nil {
		t.Fatal(err)
	}
	if res.SettingsSource != SettingsFromVersion || res.SettingsVersion != zero.Version {
		t.Fatalf("settings = %s v%d", res.SettingsSource, res.SettingsVersion)
	}
	if !near(*res.ReferencePrice, 100) {
		t.Fatalf("stored zero adjustments must be honored, ref = %v", *res.ReferencePrice)
	}
}

type mapCache struct {
	mu   sync.Mutex
	m    map[string]*Result
	hits int
}

func (c *mapCache) Get(_ context.Context, key string) (*Result, Generation, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	r, ok := c.m[key]
	if ok {
		c.hits++
	}
	return r, 0, ok
}

func (c *mapCache) Set(_ context.Context, key string, _ Generation, r *Result) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.m[key] = r
}

func TestComputeCachesPerSettingsVersion(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	seed(t, st, map[string]float64{"2025-01": 100})
	cache := &mapCache{m: map[string]*Result{}}
	calc := NewCalculator(st, st, fallback, WithCache(cache))

	start := model.NewMonth(2025, time.January)
	if _, err := calc.Compute(ctx, start, 1); err != nil {
		t.Fatal(err)
	}
	if _, err := calc.Compute(ctx, start, 1); err != nil {
		t.Fatal(err)
	}
	if cache.hits != 1 {
		t.Fatalf("hits = %d, want 1", cache.hits)
	}

	if err := st.CreateSettings(ctx, &model.AdjustmentSettings{}, true); err != nil {
		t.Fatal(err)
	}
	res, err := calc.Compute(ctx, start, 1)
	if err != nil {
		t.Fatal(err)
	}
	if cache.hits != 1 || res.SettingsVersion != 1 {
		t.Fatalf("activating a version must bypass old entries: hits=%d version=%d", cache.hits, res.SettingsVersion)
	}
}

func TestComputeStoreUnavailable(t *testing.T) {
	st := memory.New()
	st.Err = errors.New("connection refused")
	calc := NewCalculator(st, st, fallback)

	_, err := calc.Compute(context.Background(), model.NewMonth(2025, time.January), 3)
	if !apperr.Is(err, apperr.KindStoreUnavailable) {
		t.Fatalf("err = %v, want StoreUnavailable", err)
	}
}

func TestParseQuery(t *testing.T) {
	m, n, err := ParseQuery("2025-11-20", "12")
	if err != nil {
		t.Fatal(err)
	}
	if m.String() != "2025-11" || n != 12 {
		t.Fatalf("got %s %d", m, n)
	}
	if _, _, err := ParseQuery("11/2025", "12"); !apperr.Is(err, apperr.KindMalformedInput) {
		t.Fatalf("bad start: %v", err)
	}
	if _, _, err := ParseQuery("2025-11", "twelve"); !apperr.Is(err, apperr.KindMalformedInput) {
		t.Fatalf("bad months: %v", err)
	}
}
