package repair

import (
	"database/sql"
	"errors"
	"testing"
	"time"

	"github.com/nmorelli/climarg/internal/models"
)

func nf(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}

func obsAt(ts time.Time, temp float64) models.Observation {
	return models.Observation{
		Region:     "Cordoba",
		ObservedAt: ts,
		Temp:       nf(temp),
		Dewpoint:   nf(temp - 5),
		Humidity:   nf(60),
		WindSpeed:  nf(10),
		Pressure:   nf(1013),
		FetchedAt:  ts,
	}
}

func TestRepairContiguity(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)

	// 48h span with a 6h hole and shuffled input order.
	var raw []models.Observation
	for h := 47; h >= 0; h-- {
		if h >= 20 && h < 26 {
			continue
		}
		raw = append(raw, obsAt(start.Add(time.Duration(h)*time.Hour), 15+float64(h%10)))
	}

	series, err := Repair(raw)
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if len(series) != 48 {
		t.Fatalf("len(series) = %d, want 48", len(series))
	}
	for i, o := range series {
		want := start.Add(time.Duration(i) * time.Hour)
		if !o.ObservedAt.Equal(want) {
			t.Fatalf("series[%d].ObservedAt = %v, want %v", i, o.ObservedAt, want)
		}
	}
}

func TestRepairDuplicatesNewestWins(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	old := obsAt(ts, 10)
	old.FetchedAt = ts
	newer := obsAt(ts, 20)
	newer.FetchedAt = ts.Add(time.Hour)

	series, err := Repair([]models.Observation{old, newer, obsAt(ts.Add(time.Hour), 21)})
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	if series[0].Temp.Float64 != 20 {
		t.Errorf("duplicate timestamp kept temp %v, want 20 (newest fetch)", series[0].Temp.Float64)
	}
}

func TestRepairZeroFillsAccumulative(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	a := obsAt(start, 15)
	a.PrecipRate = nf(4)
	b := obsAt(start.Add(3*time.Hour), 16)

	series, err := Repair([]models.Observation{a, b})
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	// Gap rows and rows that never reported precip get zero, never an
	// interpolated value.
	for i := 1; i < len(series); i++ {
		if !series[i].PrecipRate.Valid || series[i].PrecipRate.Float64 != 0 {
			t.Errorf("series[%d].PrecipRate = %+v, want 0", i, series[i].PrecipRate)
		}
	}
}

func TestRepairInterpolationBounded(t *testing.T) {
	start := time.Date(2025, 3, 1, 0, 0, 0, 0, time.UTC)
	a := obsAt(start, 10)
	b := obsAt(start.Add(6*time.Hour), 22)

	series, err := Repair([]models.Observation{a, b})
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	for i, o := range series {
		if !o.Temp.Valid {
			t.Fatalf("series[%d].Temp invalid after interpolation", i)
		}
		if o.Temp.Float64 < 10 || o.Temp.Float64 > 22 {
			t.Errorf("series[%d].Temp = %v, outside [10, 22]", i, o.Temp.Float64)
		}
	}
	// Midpoint check.
	if got := series[3].Temp.Float64; got != 16 {
		t.Errorf("midpoint temp = %v, want 16", got)
	}
}

func TestRepairFillsRegionAndDerived(t *testing.T) {
	start := time.Date(2025, 1, 10, 10, 0, 0, 0, time.UTC)
	a := obsAt(start, 25)
	b := models.Observation{ObservedAt: start.Add(2 * time.Hour), FetchedAt: start}
	c := obsAt(start.Add(4*time.Hour), 27)

	series, err := Repair([]models.Observation{a, b, c})
	if err != nil {
		t.Fatalf("Repair: %v", err)
	}
	for i, o := range series {
		if o.Region != "Cordoba" {
			t.Errorf("series[%d].Region = %q, want Cordoba", i, o.Region)
		}
		if !o.SkyCode.Valid || o.SkyCode.Int64 < 1 {
			t.Errorf("series[%d].SkyCode = %+v, want synthesized code", i, o.SkyCode)
		}
		if !o.Visibility.Valid {
			t.Errorf("series[%d].Visibility invalid, want computed", i)
		}
		if !o.Sensation.Valid {
			t.Errorf("series[%d].Sensation invalid, want computed", i)
		}
		if !o.UVIndex.Valid {
			t.Errorf("series[%d].UVIndex invalid, want computed", i)
		}
	}
}

func TestRepairEmptyInput(t *testing.T) {
	if _, err := Repair(nil); !errors.Is(err, ErrEmptySeries) {
		t.Errorf("Repair(nil) err = %v, want ErrEmptySeries", err)
	}
	// Rows with zero timestamps only are unusable too.
	if _, err := Repair([]models.Observation{{}}); !errors.Is(err, ErrEmptySeries) {
		t.Errorf("Repair(zero rows) err = %v, want ErrEmptySeries", err)
	}
}

func TestMergeNewestWins(t *testing.T) {
	ts := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)

	existing := []models.Observation{obsAt(ts, 10), obsAt(ts.Add(time.Hour), 11)}
	fresher := obsAt(ts.Add(time.Hour), 99)
	fresher.FetchedAt = ts.Add(48 * time.Hour)
	fresh := []models.Observation{fresher, obsAt(ts.Add(2*time.Hour), 12)}

	merged := Merge(existing, fresh)
	if len(merged) != 3 {
		t.Fatalf("len(merged) = %d, want 3", len(merged))
	}
	if merged[1].Temp.Float64 != 99 {
		t.Errorf("merged[1].Temp = %v, want 99 (fresher fetch wins)", merged[1].Temp.Float64)
	}
	for i := 1; i < len(merged); i++ {
		if !merged[i-1].ObservedAt.Before(merged[i].ObservedAt) {
			t.Errorf("merged not sorted at %d", i)
		}
	}
}
