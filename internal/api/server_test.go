package api

import (
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	_ "modernc.org/sqlite"

	"github.com/nmorelli/climarg/internal/models"
	"github.com/nmorelli/climarg/internal/repair"
	"github.com/nmorelli/climarg/internal/store"
)

func testServer(t *testing.T) (*Server, *store.Store) {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	loc, err := time.LoadLocation("America/Argentina/Buenos_Aires")
	if err != nil {
		t.Fatalf("load timezone: %v", err)
	}
	st := store.New(db, loc)
	if err := st.Migrate(); err != nil {
		t.Fatalf("migrate: %v", err)
	}
	return NewServer(st, "0"), st
}

func get(t *testing.T, srv *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

// Thirty days of hourly observations with a six hour hole mid-series,
// repaired and persisted the way a pipeline run would.
func seedRepairedHistory(t *testing.T, st *store.Store, region string, start time.Time) (gapStart time.Time) {
	t.Helper()

	var raw []models.Observation
	gapStart = start.Add(14*24*time.Hour + 9*time.Hour)
	for i := 0; i < 30*24; i++ {
		ts := start.Add(time.Duration(i) * time.Hour)
		if !ts.Before(gapStart) && ts.Before(gapStart.Add(6*time.Hour)) {
			continue
		}
		raw = append(raw, models.Observation{
			Region:     region,
			ObservedAt: ts,
			Temp:       nf(18 + 6*float64(i%24)/24),
			Dewpoint:   nf(12),
			Humidity:   nf(65),
			WindSpeed:  nf(10),
			Pressure:   nf(1013),
			PrecipRate: nf(0),
			FetchedAt:  ts,
		})
	}

	repaired, err := repair.Repair(raw)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if err := st.UpsertRegion(models.Region{Name: region, StationID: "1", Active: true}); err != nil {
		t.Fatalf("UpsertRegion: %v", err)
	}
	if err := st.ReplaceSeries(region, repaired); err != nil {
		t.Fatalf("ReplaceSeries: %v", err)
	}
	return gapStart
}

func TestCurrentInsideRepairedGap(t *testing.T) {
	srv, st := testServer(t)
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, st.Location())
	gapStart := seedRepairedHistory(t, st, "capital", start)

	// Now falls inside the window that was originally a hole.
	srv.now = func() time.Time { return gapStart.Add(2*time.Hour + 15*time.Minute) }

	rec := get(t, srv, "/api/current")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var out []models.CurrentConditions
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(out) != 1 {
		t.Fatalf("len(out) = %d, want 1", len(out))
	}
	if out[0].Temp == nil {
		t.Fatal("Temp is null inside repaired gap, want interpolated value")
	}
	if out[0].SkyCode == nil {
		t.Error("SkyCode is null, repair should synthesize one")
	}
}

func TestHourlySixEntriesFromGap(t *testing.T) {
	srv, st := testServer(t)
	start := time.Date(2026, 3, 1, 0, 0, 0, 0, st.Location())
	gapStart := seedRepairedHistory(t, st, "capital", start)

	srv.now = func() time.Time { return gapStart.Add(2 * time.Hour) }

	rec := get(t, srv, "/api/hourly?region=capital")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}

	var entries []models.HourlyEntry
	if err := json.Unmarshal(rec.Body.Bytes(), &entries); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if len(entries) != 6 {
		t.Fatalf("len(entries) = %d, want 6", len(entries))
	}
	if entries[0].TimeLabel != "now" {
		t.Errorf("first label = %q, want now", entries[0].TimeLabel)
	}
	var prev time.Time
	for i, e := range entries {
		ts, err := time.Parse(time.RFC3339, e.ObservedAt)
		if err != nil {
			t.Fatalf("entry %d timestamp: %v", i, err)
		}
		if i > 0 && !ts.After(prev) {
			t.Errorf("entries not in ascending time order at %d", i)
		}
		prev = ts
	}
}

func TestHourlyRequiresRegion(t *testing.T) {
	srv, _ := testServer(t)
	rec := get(t, srv, "/api/hourly")
	if rec.Code != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", rec.Code)
	}
}

func TestForecastNotFound(t *testing.T) {
	srv, _ := testServer(t)
	rec := get(t, srv, "/api/forecast?region=nowhere")
	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
}

func TestForecastAndCarousel(t *testing.T) {
	srv, st := testServer(t)
	loc := st.Location()
	gen := time.Date(2026, 3, 10, 0, 0, 0, 0, loc)

	if err := st.UpsertRegion(models.Region{Name: "capital", StationID: "1", Active: true}); err != nil {
		t.Fatalf("UpsertRegion: %v", err)
	}
	fc := models.RegionForecast{Region: "capital", GeneratedOn: gen}
	for i := 0; i < 7; i++ {
		fc.Days = append(fc.Days, models.ForecastDay{
			Date: gen.AddDate(0, 0, i), TempHigh: 25, TempLow: 15, TempAvg: 20,
			Precip: 0, SkyCode: 2, Sensation: 19,
		})
	}
	if err := st.SaveForecast(fc); err != nil {
		t.Fatalf("SaveForecast: %v", err)
	}

	rec := get(t, srv, "/api/forecast?region=capital")
	if rec.Code != http.StatusOK {
		t.Fatalf("forecast status = %d", rec.Code)
	}
	var view ForecastView
	if err := json.Unmarshal(rec.Body.Bytes(), &view); err != nil {
		t.Fatalf("unmarshal forecast: %v", err)
	}
	if len(view.Days) != 7 {
		t.Errorf("len(Days) = %d, want 7", len(view.Days))
	}
	if view.Days[0].Icon == "" {
		t.Error("forecast day icon missing")
	}

	rec = get(t, srv, "/api/carousel")
	if rec.Code != http.StatusOK {
		t.Fatalf("carousel status = %d", rec.Code)
	}
	var insights []models.CarouselInsight
	if err := json.Unmarshal(rec.Body.Bytes(), &insights); err != nil {
		t.Fatalf("unmarshal carousel: %v", err)
	}
	if len(insights) != 1 {
		t.Fatalf("len(insights) = %d, want 1", len(insights))
	}
	if insights[0].Region != "capital" {
		t.Errorf("Region = %q, want capital", insights[0].Region)
	}
}

func TestHealth(t *testing.T) {
	srv, _ := testServer(t)
	rec := get(t, srv, "/health")
	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d", rec.Code)
	}
	var body map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if body["status"] != "ok" {
		t.Errorf("status field = %v, want ok", body["status"])
	}
}
