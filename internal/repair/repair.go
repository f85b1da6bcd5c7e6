// Package repair turns a raw, gap-ridden observation series into a
// complete hourly grid: duplicate timestamps collapsed, accumulative
// fields zero-filled, continuous fields interpolated, categorical fields
// carried across gaps, and derived quantities backfilled wherever missing.
package repair

import (
	"database/sql"
	"errors"
	"math"
	"sort"
	"time"

	"github.com/nmorelli/climarg/internal/derive"
	"github.com/nmorelli/climarg/internal/models"
)

// ErrEmptySeries reports that the input held no usable rows. The caller
// decides whether to keep prior persisted data.
var ErrEmptySeries = errors.New("repair: empty series")

// Repair produces a contiguous hourly series spanning [min, max] of the
// input timestamps. The input is not mutated; a new series is returned.
func Repair(raw []models.Observation) ([]models.Observation, error) {
	rows := collapse(raw)
	if len(rows) == 0 {
		return nil, ErrEmptySeries
	}

	series := reindexHourly(rows)

	zeroFillAccumulative(series)
	interpolateContinuous(series)
	fillRegion(series)

	for i := range series {
		o := &series[i]

		if !o.SkyCode.Valid || o.SkyCode.Int64 <= 0 {
			dwpt := o.Dewpoint
			if !dwpt.Valid && o.Temp.Valid {
				// conservative near-saturation guess
				dwpt = sql.NullFloat64{Float64: o.Temp.Float64 - 2.0, Valid: true}
			}
			code := derive.SkyCode(o.Temp, dwpt, o.Humidity, o.Pressure, o.PrecipRate, o.SnowRate)
			o.SkyCode = sql.NullInt64{Int64: int64(code), Valid: true}
		}

		o.Visibility = derive.Visibility(o.Temp, o.Humidity, o.Dewpoint, o.PrecipRate, o.SnowRate, o.WindSpeed, int(o.SkyCode.Int64))

		if !o.Sensation.Valid {
			o.Sensation = derive.Sensation(o.Temp, o.Humidity, o.WindSpeed)
		}
		if !o.UVIndex.Valid {
			o.UVIndex = sql.NullFloat64{Float64: derive.UVIndex(int(o.SkyCode.Int64), o.ObservedAt), Valid: true}
		}

		roundFields(o)
	}

	return series, nil
}

// Merge unions two series by timestamp, newest fetch winning, sorted
// ascending. Used to fold freshly fetched rows into the persisted series.
func Merge(existing, fresh []models.Observation) []models.Observation {
	byHour := make(map[time.Time]models.Observation, len(existing)+len(fresh))
	for _, o := range existing {
		byHour[o.ObservedAt.Truncate(time.Hour)] = o
	}
	for _, o := range fresh {
		key := o.ObservedAt.Truncate(time.Hour)
		if prev, ok := byHour[key]; ok && prev.FetchedAt.After(o.FetchedAt) {
			continue
		}
		byHour[key] = o
	}

	merged := make([]models.Observation, 0, len(byHour))
	for _, o := range byHour {
		merged = append(merged, o)
	}
	sort.Slice(merged, func(i, j int) bool { return merged[i].ObservedAt.Before(merged[j].ObservedAt) })
	return merged
}

// collapse sorts by timestamp and keeps the most recently fetched row per
// hour. Rows with a zero timestamp are dropped.
func collapse(raw []models.Observation) []models.Observation {
	byHour := make(map[time.Time]models.Observation, len(raw))
	for _, o := range raw {
		if o.ObservedAt.IsZero() {
			continue
		}
		key := o.ObservedAt.Truncate(time.Hour)
		if prev, ok := byHour[key]; ok && prev.FetchedAt.After(o.FetchedAt) {
			continue
		}
		o.ObservedAt = key
		byHour[key] = o
	}

	rows := make([]models.Observation, 0, len(byHour))
	for _, o := range byHour {
		rows = append(rows, o)
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ObservedAt.Before(rows[j].ObservedAt) })
	return rows
}

// reindexHourly places the rows onto the full hourly grid between the
// first and last timestamp, introducing all-missing gap rows.
func reindexHourly(rows []models.Observation) []models.Observation {
	first := rows[0].ObservedAt
	last := rows[len(rows)-1].ObservedAt

	n := int(last.Sub(first)/time.Hour) + 1
	series := make([]models.Observation, 0, n)

	i := 0
	for ts := first; !ts.After(last); ts = ts.Add(time.Hour) {
		if i < len(rows) && rows[i].ObservedAt.Equal(ts) {
			series = append(series, rows[i])
			i++
			continue
		}
		series = append(series, models.Observation{ObservedAt: ts})
	}
	return series
}

// Absence of an accumulative report means zero accumulation, not unknown.
func zeroFillAccumulative(series []models.Observation) {
	for i := range series {
		for _, f := range []*sql.NullFloat64{&series[i].PrecipRate, &series[i].SnowRate, &series[i].Sunshine} {
			if !f.Valid {
				*f = sql.NullFloat64{Float64: 0, Valid: true}
			}
		}
	}
}

func interpolateContinuous(series []models.Observation) {
	fields := []func(*models.Observation) *sql.NullFloat64{
		func(o *models.Observation) *sql.NullFloat64 { return &o.Temp },
		func(o *models.Observation) *sql.NullFloat64 { return &o.Dewpoint },
		func(o *models.Observation) *sql.NullFloat64 { return &o.Humidity },
		func(o *models.Observation) *sql.NullFloat64 { return &o.WindSpeed },
		func(o *models.Observation) *sql.NullFloat64 { return &o.Pressure },
	}
	for _, field := range fields {
		interpolateField(series, field)
	}
}

// interpolateField linearly interpolates interior gaps and extends the
// nearest known value across leading/trailing gaps. A column with no
// known values at all is left missing.
func interpolateField(series []models.Observation, field func(*models.Observation) *sql.NullFloat64) {
	known := []int{}
	for i := range series {
		if field(&series[i]).Valid {
			known = append(known, i)
		}
	}
	if len(known) == 0 {
		return
	}

	// boundary fill
	firstVal := field(&series[known[0]]).Float64
	for i := 0; i < known[0]; i++ {
		*field(&series[i]) = sql.NullFloat64{Float64: firstVal, Valid: true}
	}
	lastVal := field(&series[known[len(known)-1]]).Float64
	for i := known[len(known)-1] + 1; i < len(series); i++ {
		*field(&series[i]) = sql.NullFloat64{Float64: lastVal, Valid: true}
	}

	// interior gaps
	for k := 0; k+1 < len(known); k++ {
		lo, hi := known[k], known[k+1]
		if hi == lo+1 {
			continue
		}
		v0 := field(&series[lo]).Float64
		v1 := field(&series[hi]).Float64
		span := float64(hi - lo)
		for i := lo + 1; i < hi; i++ {
			frac := float64(i-lo) / span
			*field(&series[i]) = sql.NullFloat64{Float64: v0 + (v1-v0)*frac, Valid: true}
		}
	}
}

// fillRegion carries the region name forward then backward across gaps.
func fillRegion(series []models.Observation) {
	last := ""
	for i := range series {
		if series[i].Region != "" {
			last = series[i].Region
		} else if last != "" {
			series[i].Region = last
		}
	}
	last = ""
	for i := len(series) - 1; i >= 0; i-- {
		if series[i].Region != "" {
			last = series[i].Region
		} else if last != "" {
			series[i].Region = last
		}
	}
}

func roundFields(o *models.Observation) {
	round1 := []*sql.NullFloat64{&o.Temp, &o.Dewpoint, &o.WindSpeed, &o.WindGust, &o.Visibility, &o.Sensation, &o.UVIndex, &o.PrecipRate, &o.SnowRate, &o.Pressure}
	for _, f := range round1 {
		if f.Valid {
			f.Float64 = math.Round(f.Float64*10) / 10
		}
	}
	if o.Humidity.Valid {
		o.Humidity.Float64 = math.Round(o.Humidity.Float64)
	}
}
