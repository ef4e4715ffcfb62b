package api

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"

	"omip-benchmark/internal/analysis"
	"omip-benchmark/internal/api/handlers"
	"omip-benchmark/internal/auth"
	"omip-benchmark/internal/cache"
	"omip-benchmark/internal/ingest"
	"omip-benchmark/internal/leads"
	"omip-benchmark/internal/metrics"
	"omip-benchmark/internal/model"
	"omip-benchmark/internal/notify"
	"omip-benchmark/internal/settings"
	"omip-benchmark/internal/simulation"
	"omip-benchmark/internal/store/memory"
)

const adminKey = "test-admin-key"

type fixture struct {
	router *gin.Engine
	store  *memory.Store
	tokens *auth.Tokens
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	gin.SetMode(gin.TestMode)

	st := memory.New()
	m := metrics.New()
	refCache := cache.NewMemory(time.Minute)
	t.Cleanup(func() { refCache.Close() })

	fallback := model.Adjustments{LossesPercent: 7, EricPerMWh: 3, RenPerMWh: 1.5}
	calc := analysis.NewCalculator(st, st, fallback, analysis.WithCache(refCache), analysis.WithRecorder(m))
	tokens := auth.NewTokens("secret", time.Hour, 7*24*time.Hour)

	router := NewRouter(Deps{
		Store:          st,
		Importer:       ingest.NewImporter(st, refCache, m, nil),
		Calculator:     calc,
		Settings:       settings.NewService(st, fallback, nil),
		Simulations:    simulation.NewService(st, calc, m, nil),
		Leads:          leads.NewService(st, tokens, notify.NewLog(nil), "http://localhost:8080", m, nil),
		Tokens:         tokens,
		Metrics:        m,
		AdminKey:       adminKey,
		Cookie:         handlers.CookieConfig{Name: "b2p_ev"},
		MaxUploadBytes: 1 << 20,
	})
	return &fixture{router: router, store: st, tokens: tokens}
}

func (f *fixture) do(t *testing.T, req *http.Request) (*httptest.ResponseRecorder, map[string]any) {
	t.Helper()
	w := httptest.NewRecorder()
	f.router.ServeHTTP(w, req)
	var body map[string]any
	if strings.HasPrefix(w.Header().Get("Content-Type"), "application/json") {
		if err := json.Unmarshal(w.Body.Bytes(), &body); err != nil {
			t.Fatalf("decode %s: %v", w.Body.String(), err)
		}
	}
	return w, body
}

func uploadRequest(t *testing.T, name, content, key string) *http.Request {
	t.Helper()
	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	fw, err := mw.CreateFormFile("file", name)
	if err != nil {
		t.Fatal(err)
	}
	fw.Write([]byte(content))
	mw.Close()

	req := httptest.NewRequest(http.MethodPost, "/api/admin/omip", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	if key != "" {
		req.Header.Set(auth.AdminKeyHeader, key)
	}
	return req
}

func jsonRequest(method, target string, body any) *http.Request {
	raw, _ := json.Marshal(body)
	req := httptest.NewRequest(method, target, bytes.NewReader(raw))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestUploadThenMarketAverage(t *testing.T) {
	f := newFixture(t)

	// Warm the cache with an empty window; the import must invalidate it.
	w, body := f.do(t, httptest.NewRequest(http.MethodGet, "/api/quote/market-average?start=2025-01&months=3", nil))
	if w.Code != http.StatusOK || body["avgIndexPrice"] != nil || body["monthsFound"] != float64(0) {
		t.Fatalf("before import: %d %v", w.Code, body)
	}

	csv := "month;price_eur_mwh\n2025-01;100\n2025-02;102\n2025-03;98\n"
	w, body = f.do(t, uploadRequest(t, "omip.csv", csv, adminKey))
	if w.Code != http.StatusOK {
		t.Fatalf("upload: %d %v", w.Code, body)
	}
	if body["success"] != true || body["rowsUpserted"] != float64(3) {
		t.Fatalf("upload body = %v", body)
	}

	w, body = f.do(t, httptest.NewRequest(http.MethodGet, "/api/quote/market-average?start=2025-01&months=3", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("market average: %d %v", w.Code, body)
	}
	if body["monthsFound"] != float64(3) || body["avgIndexPrice"] != float64(100) {
		t.Fatalf("market average body = %v", body)
	}
	if body["settingsSource"] != "fallback" || body["end"] != "2025-04-01" {
		t.Fatalf("market average body = %v", body)
	}
	// (100 + 3 + 1.5) * 1.07
	if ref, _ := body["referencePrice"].(float64); ref < 111.8149 || ref > 111.8151 {
		t.Fatalf("referencePrice = %v", body["referencePrice"])
	}
	if _, ok := body["rows"]; ok {
		t.Fatal("public endpoint must not expose rows")
	}

	w, body = f.do(t, httptest.NewRequest(http.MethodGet, "/api/admin/omip/ref?start=2025-01&months=3&key="+adminKey, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("admin ref: %d", w.Code)
	}
	if rows, _ := body["rows"].([]any); len(rows) != 3 {
		t.Fatalf("admin rows = %v", body["rows"])
	}

	w, body = f.do(t, httptest.NewRequest(http.MethodGet, "/api/admin/omip?key="+adminKey, nil))
	if w.Code != http.StatusOK || body["total"] != float64(3) || body["maxMonth"] != "2025-03-01" {
		t.Fatalf("status: %d %v", w.Code, body)
	}
}

func TestMarketAverageRejectsBadQuery(t *testing.T) {
	f := newFixture(t)
	for _, q := range []string{"start=2025-13&months=3", "start=2025-01&months=0", "start=2025-01&months=121", "start=jan&months=3", "start=2025-01"} {
		w, body := f.do(t, httptest.NewRequest(http.MethodGet, "/api/quote/market-average?"+q, nil))
		if w.Code != http.StatusBadRequest || body["errorKind"] != "MalformedInput" || body["success"] != false {
			t.Errorf("%s: %d %v", q, w.Code, body)
		}
	}
}

func TestUploadErrors(t *testing.T) {
	f := newFixture(t)

	w, _ := f.do(t, uploadRequest(t, "omip.csv", "month;price\n2025-01;1\n", ""))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("no key: %d", w.Code)
	}

	w, body := f.do(t, uploadRequest(t, "omip.csv", "date;value\n2025-01;1\n", adminKey))
	if w.Code != http.StatusBadRequest || body["code"] != "MISSING_COLUMNS" {
		t.Fatalf("missing columns: %d %v", w.Code, body)
	}

	f.store.Err = errTest
	w, body = f.do(t, uploadRequest(t, "omip.csv", "month;price\n2025-01;1\n", adminKey))
	if w.Code != http.StatusServiceUnavailable || body["errorKind"] != "StoreUnavailable" {
		t.Fatalf("store down: %d %v", w.Code, body)
	}
}

func TestSettingsAdmin(t *testing.T) {
	f := newFixture(t)
	withKey := func(r *http.Request) *http.Request {
		r.Header.Set(auth.AdminKeyHeader, adminKey)
		return r
	}

	w, body := f.do(t, withKey(jsonRequest(http.MethodPost, "/api/admin/settings", map[string]any{
		"lossesPercent": 0, "ericPerMWh": 0, "renPerMWh": 0, "activate": true,
	})))
	if w.Code != http.StatusCreated {
		t.Fatalf("create: %d %v", w.Code, body)
	}

	w, body = f.do(t, withKey(httptest.NewRequest(http.MethodGet, "/api/admin/settings", nil)))
	if w.Code != http.StatusOK || body["source"] != "version" {
		t.Fatalf("current: %d %v", w.Code, body)
	}

	w, body = f.do(t, withKey(jsonRequest(http.MethodPost, "/api/admin/settings", map[string]any{"lossesPercent": 1})))
	if w.Code != http.StatusBadRequest {
		t.Fatalf("missing fields: %d %v", w.Code, body)
	}

	w, _ = f.do(t, withKey(jsonRequest(http.MethodPut, "/api/admin/settings/current", map[string]any{"version": 42})))
	if w.Code != http.StatusNotFound {
		t.Fatalf("activate unknown: %d", w.Code)
	}

	w, body = f.do(t, withKey(httptest.NewRequest(http.MethodGet, "/api/admin/settings/versions", nil)))
	if versions, _ := body["versions"].([]any); w.Code != http.StatusOK || len(versions) != 1 {
		t.Fatalf("versions: %d %v", w.Code, body)
	}
}

func TestConfirmationAndSimulationFlow(t *testing.T) {
	f := newFixture(t)
	if _, err := f.store.UpsertMonthlyPrices(context.Background(), []model.MonthlyPrice{
		{Month: model.NewMonth(2025, time.January), Price: 100, Source: "test"},
	}); err != nil {
		t.Fatal(err)
	}

	simReq := map[string]any{
		"email":       "ana@example.pt",
		"installType": "MT",
		"unit":        "/MWh",
		"startDate":   "2025-01",
		"termMonths":  1,
		"prices":      map[string]string{"ponta": "130"},
	}
	w, _ := f.do(t, jsonRequest(http.MethodPost, "/api/simulations/simulate", simReq))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("simulate without session: %d", w.Code)
	}

	w, body := f.do(t, jsonRequest(http.MethodPost, "/api/send-confirmation", map[string]string{"email": "ana@example.pt"}))
	if w.Code != http.StatusOK {
		t.Fatalf("send confirmation: %d %v", w.Code, body)
	}
	link, _ := body["confirmUrl"].(string)
	u, err := url.Parse(link)
	if err != nil || u.Query().Get("token") == "" {
		t.Fatalf("confirmUrl = %q", link)
	}

	w, _ = f.do(t, httptest.NewRequest(http.MethodGet, "/api/confirm?"+u.RawQuery, nil))
	if w.Code != http.StatusFound || w.Header().Get("Location") != "/confirmed" {
		t.Fatalf("confirm: %d %s", w.Code, w.Header().Get("Location"))
	}
	var session *http.Cookie
	for _, c := range w.Result().Cookies() {
		if c.Name == "b2p_ev" {
			session = c
		}
	}
	if session == nil || !session.HttpOnly {
		t.Fatalf("session cookie = %+v", session)
	}
	withSession := func(r *http.Request) *http.Request {
		r.AddCookie(&http.Cookie{Name: session.Name, Value: session.Value})
		return r
	}

	w, body = f.do(t, withSession(httptest.NewRequest(http.MethodGet, "/api/confirm-status?email=ANA@example.pt", nil)))
	if body["verified"] != true {
		t.Fatalf("confirm-status: %v", body)
	}

	w, body = f.do(t, withSession(jsonRequest(http.MethodPost, "/api/simulations", simReq)))
	if w.Code != http.StatusCreated {
		t.Fatalf("save: %d %v", w.Code, body)
	}
	sim, _ := body["simulation"].(map[string]any)
	id, _ := sim["id"].(string)
	// (100 + 3 + 1.5) * 1.07 = 111.815; 130 - 111.815 = 18.185
	if dev, _ := sim["deviationAbs"].(float64); dev < 18.1849 || dev > 18.1851 {
		t.Fatalf("deviationAbs = %v", sim["deviationAbs"])
	}

	other := jsonRequest(http.MethodPost, "/api/simulations", map[string]any{"email": "eve@example.pt"})
	w, _ = f.do(t, withSession(other))
	if w.Code != http.StatusUnauthorized {
		t.Fatalf("foreign email: %d", w.Code)
	}

	w, body = f.do(t, withSession(httptest.NewRequest(http.MethodGet, "/api/simulations?email=ana@example.pt", nil)))
	if list, _ := body["simulations"].([]any); w.Code != http.StatusOK || len(list) != 1 {
		t.Fatalf("list: %d %v", w.Code, body)
	}

	w, _ = f.do(t, httptest.NewRequest(http.MethodGet, "/api/simulations/"+id, nil))
	if w.Code != http.StatusOK {
		t.Fatalf("get: %d", w.Code)
	}
	w, _ = f.do(t, httptest.NewRequest(http.MethodGet, "/api/simulations/"+id+"/report.pdf", nil))
	if w.Code != http.StatusOK || w.Header().Get("Content-Type") != "application/pdf" {
		t.Fatalf("report: %d %s", w.Code, w.Header().Get("Content-Type"))
	}

	req := httptest.NewRequest(http.MethodGet, "/api/admin/simulations/export.xlsx", nil)
	req.Header.Set(auth.AdminKeyHeader, adminKey)
	w, _ = f.do(t, req)
	if w.Code != http.StatusOK || !bytes.HasPrefix(w.Body.Bytes(), []byte("PK")) {
		t.Fatalf("export: %d", w.Code)
	}

	w, body = f.do(t, httptest.NewRequest(http.MethodGet, "/api/user/status?email=ana@example.pt", nil))
	if body["exists"] != true || body["verified"] != true {
		t.Fatalf("user status: %v", body)
	}
}

func TestHealthAndMetrics(t *testing.T) {
	f := newFixture(t)
	w, _ := f.do(t, httptest.NewRequest(http.MethodGet, "/health", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("health: %d", w.Code)
	}
	w, _ = f.do(t, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("ready: %d", w.Code)
	}
	f.store.Err = errTest
	w, _ = f.do(t, httptest.NewRequest(http.MethodGet, "/ready", nil))
	if w.Code != http.StatusServiceUnavailable {
		t.Fatalf("ready with db down: %d", w.Code)
	}

	w, _ = f.do(t, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK || !strings.Contains(w.Body.String(), "omip_http_requests_total") {
		t.Fatalf("metrics: %d", w.Code)
	}
}

type testError string

func (e testError) Error() string { return string(e) }

const errTest = testError("database unreachable")
