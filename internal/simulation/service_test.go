package simulation

import (
	"bytes"
	"context"
	"errors"
	"math"
	"testing"
	"time"

	"github.com/xuri/excelize/v2"

	"omip-benchmark/internal/analysis"
	"omip-benchmark/internal/apperr"
	"omip-benchmark/internal/model"
	"omip-benchmark/internal/store/memory"
)

func near(a, b float64) bool { return math.Abs(a-b) < 1e-9 }

func seed(t *testing.T, st *memory.Store, prices ...float64) {
	t.Helper()
	rows := make([]model.MonthlyPrice, len(prices))
	for i, p := range prices {
		rows[i] = model.MonthlyPrice{Month: model.NewMonth(2025, time.January).AddMonths(i), Price: p, Source: "test"}
	}
	if _, err := st.UpsertMonthlyPrices(context.Background(), rows); err != nil {
		t.Fatal(err)
	}
}

func newService(t *testing.T, st *memory.Store) *Service {
	t.Helper()
	fallback := model.Adjustments{LossesPercent: 0, EricPerMWh: 0, RenPerMWh: 0}
	return NewService(st, analysis.NewCalculator(st, st, fallback), nil, nil)
}

func TestClientAverage(t *testing.T) {
	tests := []struct {
		name   string
		typ    model.InstallType
		cycle  model.TariffCycle
		unit   model.PriceUnit
		prices map[string]string
		want   *float64
	}{
		{
			name:   "MT averages four periods",
			typ:    model.InstallMT,
			unit:   model.UnitMWh,
			prices: map[string]string{"ponta": "120", "cheia": "100", "vazio": "80", "svazio": "60", "simples": "999"},
			want:   ptr(90),
		},
		{
			name:   "BTE ignores blanks and garbage",
			typ:    model.InstallBTE,
			unit:   model.UnitMWh,
			prices: map[string]string{"ponta": "1.234,5", "cheia": "", "vazio": "abc"},
			want:   ptr(1234.5),
		},
		{
			name:   "BTN simples in kWh",
			typ:    model.InstallBTN,
			cycle:  model.CycleSimples,
			unit:   model.UnitKWh,
			prices: map[string]string{"simples": "0,1234"},
			want:   ptr(123.4),
		},
		{
			name:   "BTN bi-horario",
			typ:    model.InstallBTN,
			cycle:  model.CycleBi,
			unit:   model.UnitKWh,
			prices: map[string]string{"bi_cheia": "0.15", "bi_vazio": "0.09", "tri_ponta": "5"},
			want:   ptr(120),
		},
		{
			name:   "BTN tri-horario",
			typ:    model.InstallBTN,
			cycle:  model.CycleTri,
			unit:   model.UnitMWh,
			prices: map[string]string{"tri_ponta": "150", "tri_cheia": "120", "tri_vazio": "90"},
			want:   ptr(120),
		},
		{
			name:   "nothing usable",
			typ:    model.InstallMT,
			unit:   model.UnitMWh,
			prices: map[string]string{"simples": "100"},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := ClientAverage(tt.typ, tt.cycle, tt.unit, tt.prices)
			if tt.want == nil {
				if got != nil {
					t.Fatalf("got %v, want nil", *got)
				}
				return
			}
			if got == nil || !near(*got, *tt.want) {
				t.Fatalf("got %v, want %v", got, *tt.want)
			}
		})
	}
}

func TestEnergyAverageFloorsAtZero(t *testing.T) {
	if got := EnergyAverage(ptr(100), 30); !near(*got, 70) {
		t.Fatalf("got %v", *got)
	}
	if got := EnergyAverage(ptr(10), 30); *got != 0 {
		t.Fatalf("got %v, want 0", *got)
	}
	if EnergyAverage(nil, 30) != nil {
		t.Fatal("nil average must stay nil")
	}
}

func TestSimulateComparesToReference(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	seed(t, st, 100, 102, 98)

	settings := &model.AdjustmentSettings{
		Adjustments: model.Adjustments{LossesPercent: 0, EricPerMWh: 0, RenPerMWh: 0},
		Networks:    model.NetworkCosts{MTPerMWh: 10},
	}
	if err := st.CreateSettings(ctx, settings, true); err != nil {
		t.Fatal(err)
	}

	svc := newService(t, st)
	out, err := svc.Simulate(ctx, Input{
		Email:           "Ana@Example.pt",
		InstallType:     "mt",
		Unit:            "/MWh",
		StartDate:       "2025-01-15",
		TermMonths:      6,
		IncludeNetworks: true,
		Prices:          map[string]string{"ponta": "140", "cheia": "120", "vazio": "100", "svazio": "80"},
	})
	if err != nil {
		t.Fatal(err)
	}
	sim := out.Simulation
	if sim.Email != "ana@example.pt" || sim.InstallType != model.InstallMT || sim.ID != "" {
		t.Fatalf("sim = %+v", sim)
	}
	if *sim.ClientAvgMWh != 110 || *sim.ClientEnergyAvgMWh != 100 || sim.NetworkPerMWh != 10 {
		t.Fatalf("client avg = %v energy = %v network = %v", *sim.ClientAvgMWh, *sim.ClientEnergyAvgMWh, sim.NetworkPerMWh)
	}
	if sim.MonthsFound != 3 || *sim.ReferencePrice != 100 {
		t.Fatalf("months found = %d reference = %v", sim.MonthsFound, *sim.ReferencePrice)
	}
	if *sim.DeviationAbs != 0 || *sim.DeviationPct != 0 {
		t.Fatalf("deviation = %v / %v", *sim.DeviationAbs, *sim.DeviationPct)
	}
	if len(out.MonthsUsed) != 3 || len(out.MonthsMissing) != 3 || out.MonthsMissing[0] != "2025-04" {
		t.Fatalf("used = %v missing = %v", out.MonthsUsed, out.MonthsMissing)
	}
	if sim.SettingsVersion != 1 {
		t.Fatalf("settings version = %d", sim.SettingsVersion)
	}

	list, _ := st.ListSimulations(ctx, 10)
	if len(list) != 0 {
		t.Fatal("simulate must not persist")
	}
}

func TestSimulateWithoutPricesHasNullDeviation(t *testing.T) {
	svc := newService(t, memory.New())
	out, err := svc.Simulate(context.Background(), Input{
		Email:       "a@b.pt",
		InstallType: "BTN",
		Cycle:       "Simples",
		StartDate:   "2030-01",
		TermMonths:  12,
		Prices:      map[string]string{"simples": "100"},
	})
	if err != nil {
		t.Fatal(err)
	}
	sim := out.Simulation
	if sim.ReferencePrice != nil || sim.DeviationAbs != nil || sim.DeviationPct != nil {
		t.Fatalf("expected nulls, got %+v", sim)
	}
	if sim.ClientAvgMWh == nil || *sim.ClientAvgMWh != 100 {
		t.Fatalf("client avg = %v", sim.ClientAvgMWh)
	}
}

func TestSimulateValidation(t *testing.T) {
	svc := newService(t, memory.New())
	base := Input{Email: "a@b.pt", InstallType: "MT", StartDate: "2025-01", TermMonths: 12}

	tests := []struct {
		name   string
		mutate func(*Input)
		code   string
	}{
		{"email", func(in *Input) { in.Email = "nope" }, "INVALID_EMAIL"},
		{"install type", func(in *Input) { in.InstallType = "HV" }, "INVALID_INSTALL_TYPE"},
		{"btn cycle", func(in *Input) {
			in.InstallType = "BTN"
			in.Cycle = ""
		}, "INVALID_CYCLE"},
		{"unit", func(in *Input) { in.Unit = "/GWh" }, "INVALID_UNIT"},
		{"start", func(in *Input) { in.StartDate = "01/2025" }, "INVALID_START_DATE"},
		{"term", func(in *Input) { in.TermMonths = 0 }, "INVALID_MONTHS"},
		{"consumption", func(in *Input) { in.AnnualConsumptionMWh = ptr(-1) }, "INVALID_CONSUMPTION"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			in := base
			tt.mutate(&in)
			_, err := svc.Simulate(context.Background(), in)
			e, ok := apperr.As(err)
			if !ok || e.Kind != apperr.KindMalformedInput || e.Code != tt.code {
				t.Fatalf("err = %v, want MalformedInput/%s", err, tt.code)
			}
		})
	}
}

func TestSaveGetAndList(t *testing.T) {
	ctx := context.Background()
	st := memory.New()
	seed(t, st, 100)
	svc := newService(t, st)

	in := Input{
		Email:       "ana@example.pt",
		Company:     "Acme",
		InstallType: "BTE",
		StartDate:   "2025-01",
		TermMonths:  1,
		Prices:      map[string]string{"ponta": "110"},
	}
	out, err := svc.Save(ctx, in)
	if err != nil {
		t.Fatal(err)
	}
	id := out.Simulation.ID
	if id == "" {
		t.Fatal("saved simulation has no id")
	}

	got, err := svc.Get(ctx, id)
	if err != nil {
		t.Fatal(err)
	}
	if got.Company != "Acme" || *got.DeviationAbs != 10 {
		t.Fatalf("got = %+v", got)
	}

	lead, err := st.GetLead(ctx, "ana@example.pt")
	if err != nil || lead.Verified() {
		t.Fatalf("lead = %+v, err = %v", lead, err)
	}

	list, err := svc.ListByEmail(ctx, " ANA@example.pt ")
	if err != nil || len(list) != 1 {
		t.Fatalf("list = %v, err = %v", list, err)
	}
	all, err := svc.ListAll(ctx, 0)
	if err != nil || len(all) != 1 {
		t.Fatalf("all = %v, err = %v", all, err)
	}

	if _, err := svc.Get(ctx, "not-a-uuid"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v", err)
	}
	if _, err := svc.Get(ctx, "7b0c6f1e-3c1a-4b8e-9f55-0d4a1b2c3d4e"); !apperr.Is(err, apperr.KindNotFound) {
		t.Fatalf("err = %v", err)
	}
}

func TestSaveStoreFailure(t *testing.T) {
	st := memory.New()
	svc := newService(t, st)
	st.Err = errors.New("down")
	_, err := svc.Save(context.Background(), Input{Email: "a@b.pt", InstallType: "MT", StartDate: "2025-01", TermMonths: 1})
	if !apperr.Is(err, apperr.KindStoreUnavailable) {
		t.Fatalf("err = %v", err)
	}
}

func TestExports(t *testing.T) {
	sim := model.Simulation{
		ID:             "7b0c6f1e-3c1a-4b8e-9f55-0d4a1b2c3d4e",
		Email:          "ana@example.pt",
		Company:        "Açores Lda",
		InstallType:    model.InstallBTN,
		Cycle:          model.CycleBi,
		Unit:           model.UnitKWh,
		StartMonth:     model.NewMonth(2025, time.January),
		TermMonths:     12,
		ClientAvgMWh:   ptr(120),
		ReferencePrice: ptr(110),
		DeviationAbs:   ptr(10),
		CreatedAt:      time.Date(2025, 2, 1, 10, 0, 0, 0, time.UTC),
	}

	pdf, err := BuildReportPDF(&sim)
	if err != nil {
		t.Fatal(err)
	}
	if !bytes.HasPrefix(pdf, []byte("%PDF")) {
		t.Fatal("report is not a PDF")
	}

	raw, err := BuildSimulationsXLSX([]model.Simulation{sim})
	if err != nil {
		t.Fatal(err)
	}
	f, err := excelize.OpenReader(bytes.NewReader(raw))
	if err != nil {
		t.Fatal(err)
	}
	defer f.Close()
	rows, err := f.GetRows("simulations")
	if err != nil {
		t.Fatal(err)
	}
	if len(rows) != 2 || rows[1][0] != sim.ID || rows[1][4] != "Açores Lda" {
		t.Fatalf("rows = %v", rows)
	}
}

func ptr(v float64) *float64 { return &v }
