// Package forecast builds regression features from a repaired hourly
// series, trains per-target models, and extends them into a 7-day
// forecast by walk-forward prediction.
package forecast

import (
	"math"
	"strconv"
	"time"

	"github.com/nmorelli/climarg/internal/models"
)

// Base physical fields used as features and as prediction targets.
const (
	fieldTemp = "temp"
	fieldDwpt = "dwpt"
	fieldRhum = "rhum"
	fieldWspd = "wspd"
	fieldPres = "pres"
)

var baseFields = []string{fieldTemp, fieldDwpt, fieldRhum, fieldWspd, fieldPres}

var lagHours = []int{1, 24, 48, 72}
var rollingHours = []int{24, 72}

// Matrix is a dense feature matrix with a stable column order.
type Matrix struct {
	Names []string
	Rows  [][]float64
}

func fieldValue(o *models.Observation, field string) (float64, bool) {
	switch field {
	case fieldTemp:
		return o.Temp.Float64, o.Temp.Valid
	case fieldDwpt:
		return o.Dewpoint.Float64, o.Dewpoint.Valid
	case fieldRhum:
		return o.Humidity.Float64, o.Humidity.Valid
	case fieldWspd:
		return o.WindSpeed.Float64, o.WindSpeed.Valid
	case fieldPres:
		return o.Pressure.Float64, o.Pressure.Valid
	}
	return 0, false
}

// Fallbacks when a column has no known values at all.
var fieldFallback = map[string]float64{
	fieldTemp: 15.0,
	fieldDwpt: 10.0,
	fieldRhum: 50.0,
	fieldWspd: 0.0,
	fieldPres: 1013.0,
}

// column extracts one base field as a fully filled numeric column:
// forward-fill, then backward-fill, then a constant fallback. A model
// must never receive a missing value.
func column(series []models.Observation, field string) []float64 {
	col := make([]float64, len(series))
	valid := make([]bool, len(series))
	for i := range series {
		col[i], valid[i] = fieldValue(&series[i], field)
	}

	last := math.NaN()
	for i := range col {
		if valid[i] {
			last = col[i]
		} else if !math.IsNaN(last) {
			col[i] = last
			valid[i] = true
		}
	}
	next := math.NaN()
	for i := len(col) - 1; i >= 0; i-- {
		if valid[i] {
			next = col[i]
		} else if !math.IsNaN(next) {
			col[i] = next
			valid[i] = true
		}
	}
	for i := range col {
		if !valid[i] {
			col[i] = fieldFallback[field]
		}
	}
	return col
}

// FeatureNames returns the stable column order of the feature matrix:
// base physical fields, calendar encodings, lags, rolling means.
func FeatureNames() []string {
	names := append([]string{}, baseFields...)
	names = append(names, "hour", "dayofyear", "month", "hour_sin", "hour_cos", "doy_sin", "doy_cos")
	for _, f := range baseFields {
		for _, lag := range lagHours {
			names = append(names, lagName(f, lag))
		}
	}
	for _, f := range baseFields {
		for _, w := range rollingHours {
			names = append(names, rollName(f, w))
		}
	}
	return names
}

func lagName(field string, lag int) string {
	return field + "_lag" + strconv.Itoa(lag)
}

func rollName(field string, w int) string {
	return field + "_roll" + strconv.Itoa(w)
}

func calendarFeatures(ts time.Time) []float64 {
	hour := float64(ts.Hour())
	doy := float64(ts.YearDay())
	month := float64(int(ts.Month()))
	return []float64{
		hour,
		doy,
		month,
		math.Sin(2 * math.Pi * hour / 24),
		math.Cos(2 * math.Pi * hour / 24),
		math.Sin(2 * math.Pi * doy / 365),
		math.Cos(2 * math.Pi * doy / 365),
	}
}

// BuildFeatures constructs the full training feature matrix for a
// repaired series. Lags use the earliest available value for rows before
// the offset; rolling means use a minimum period of one so the very
// first rows still produce a value.
func BuildFeatures(series []models.Observation) *Matrix {
	cols := make(map[string][]float64, len(baseFields))
	for _, f := range baseFields {
		cols[f] = column(series, f)
	}

	names := FeatureNames()
	rows := make([][]float64, len(series))

	for i := range series {
		row := make([]float64, 0, len(names))
		for _, f := range baseFields {
			row = append(row, cols[f][i])
		}
		row = append(row, calendarFeatures(series[i].ObservedAt)...)
		for _, f := range baseFields {
			for _, lag := range lagHours {
				j := i - lag
				if j < 0 {
					j = 0
				}
				row = append(row, cols[f][j])
			}
		}
		for _, f := range baseFields {
			for _, w := range rollingHours {
				row = append(row, trailingMean(cols[f], i, w))
			}
		}
		rows[i] = row
	}

	return &Matrix{Names: names, Rows: rows}
}

func trailingMean(col []float64, i, window int) float64 {
	lo := i - window + 1
	if lo < 0 {
		lo = 0
	}
	sum := 0.0
	for j := lo; j <= i; j++ {
		sum += col[j]
	}
	return sum / float64(i-lo+1)
}

// TargetColumn extracts the fully filled target vector for one base field.
func TargetColumn(series []models.Observation, field string) []float64 {
	return column(series, field)
}
