package api

import (
	"database/sql"
	"time"

	"github.com/nmorelli/climarg/internal/derive"
	"github.com/nmorelli/climarg/internal/models"
)

const hourlyEntries = 6

// BuildCurrent shapes the latest repaired observation at or before now
// for display. When the whole series is in the future the first row is
// used instead, so a region never renders blank.
func BuildCurrent(region string, series []models.Observation, now time.Time) models.CurrentConditions {
	obs := latestAt(series, now)

	cc := models.CurrentConditions{
		Region:     region,
		Temp:       fptr(obs.Temp),
		Humidity:   fptr(obs.Humidity),
		Precip:     fptr(obs.PrecipRate),
		WindSpeed:  fptr(obs.WindSpeed),
		Visibility: fptr(obs.Visibility),
		Sensation:  fptr(obs.Sensation),
		UVIndex:    fptr(obs.UVIndex),
		SkyCode:    iptr(obs.SkyCode),
		ObservedAt: obs.ObservedAt.Format(time.RFC3339),
	}
	if obs.SkyCode.Valid {
		code := int(obs.SkyCode.Int64)
		cc.Icon = derive.Icon(code, now.Hour())
		cc.Description = derive.Description(code)
	}
	return cc
}

// BuildHourly returns up to six hourly entries starting from the
// observation current at now. The first entry is labeled "now"; the
// rest carry clock labels. Icons switch to night variants per row.
func BuildHourly(series []models.Observation, now time.Time) []models.HourlyEntry {
	if len(series) == 0 {
		return nil
	}

	start := latestIndex(series, now)
	entries := make([]models.HourlyEntry, 0, hourlyEntries)
	for i := start; i < len(series) && len(entries) < hourlyEntries; i++ {
		o := series[i]
		entry := models.HourlyEntry{
			TimeLabel:  o.ObservedAt.Format("3 PM"),
			Temp:       fptr(o.Temp),
			SkyCode:    iptr(o.SkyCode),
			ObservedAt: o.ObservedAt.Format(time.RFC3339),
		}
		if len(entries) == 0 {
			entry.TimeLabel = "now"
		}
		if o.SkyCode.Valid {
			entry.Icon = derive.Icon(int(o.SkyCode.Int64), o.ObservedAt.Hour())
		}
		entries = append(entries, entry)
	}
	return entries
}

// ForecastDayView is one forecast day with display fields attached.
type ForecastDayView struct {
	Date        string  `json:"date"`
	TempHigh    float64 `json:"temp_high"`
	TempLow     float64 `json:"temp_low"`
	TempAvg     float64 `json:"temp_avg"`
	Precip      float64 `json:"precip"`
	SkyCode     int     `json:"sky_code"`
	Sensation   float64 `json:"sensation"`
	Icon        string  `json:"icon"`
	Description string  `json:"description"`
}

type ForecastView struct {
	Region      string            `json:"region"`
	GeneratedOn string            `json:"generated_on"`
	Days        []ForecastDayView `json:"days"`
}

// BuildForecastView attaches icons and descriptions to a persisted
// forecast. Daytime icons only; forecast days have no single hour.
func BuildForecastView(fc *models.RegionForecast) ForecastView {
	view := ForecastView{
		Region:      fc.Region,
		GeneratedOn: fc.GeneratedOn.Format("2006-01-02"),
		Days:        make([]ForecastDayView, 0, len(fc.Days)),
	}
	for _, day := range fc.Days {
		view.Days = append(view.Days, ForecastDayView{
			Date:        day.Date.Format("2006-01-02"),
			TempHigh:    day.TempHigh,
			TempLow:     day.TempLow,
			TempAvg:     day.TempAvg,
			Precip:      day.Precip,
			SkyCode:     day.SkyCode,
			Sensation:   day.Sensation,
			Icon:        derive.Icon(day.SkyCode, 12),
			Description: derive.Description(day.SkyCode),
		})
	}
	return view
}

func latestIndex(series []models.Observation, now time.Time) int {
	idx := -1
	for i := range series {
		if !series[i].ObservedAt.After(now) {
			idx = i
		}
	}
	if idx < 0 {
		return 0
	}
	return idx
}

func latestAt(series []models.Observation, now time.Time) models.Observation {
	if len(series) == 0 {
		return models.Observation{ObservedAt: now}
	}
	return series[latestIndex(series, now)]
}

func fptr(v sql.NullFloat64) *float64 {
	if !v.Valid {
		return nil
	}
	f := v.Float64
	return &f
}

func iptr(v sql.NullInt64) *int {
	if !v.Valid {
		return nil
	}
	n := int(v.Int64)
	return &n
}
