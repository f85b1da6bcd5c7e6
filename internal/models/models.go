package models

import (
	"database/sql"
	"time"
)

// Region is an administrative subdivision for which one observation
// series and one forecast are maintained.
type Region struct {
	Name      string
	StationID string
	Latitude  float64
	Longitude float64
	Active    bool
}

// Observation is one hourly record for one region. Raw fetches may leave
// any field invalid; after repair the continuous fields (Temp, Dewpoint,
// Humidity, WindSpeed, Pressure) and the accumulative fields (PrecipRate,
// SnowRate, Sunshine) carry values wherever the series had any data, and
// SkyCode always holds a real code.
type Observation struct {
	ID         int64
	Region     string
	ObservedAt time.Time // region-local civil time, hourly resolution
	Temp       sql.NullFloat64
	Dewpoint   sql.NullFloat64
	Humidity   sql.NullFloat64
	PrecipRate sql.NullFloat64
	SnowRate   sql.NullFloat64
	WindSpeed  sql.NullFloat64
	WindGust   sql.NullFloat64
	WindDir    sql.NullInt64
	Pressure   sql.NullFloat64
	Sunshine   sql.NullFloat64 // minutes of sunshine in the hour
	SkyCode    sql.NullInt64
	Visibility sql.NullFloat64
	Sensation  sql.NullFloat64
	UVIndex    sql.NullFloat64
	FetchedAt  time.Time
}

// ForecastDay is one predicted day for one region. Day 0 is today using
// the latest real observation where available; days 1-6 come from the
// walk-forward forecaster. Never mutated after creation.
type ForecastDay struct {
	Date        time.Time
	TempHigh    float64
	TempLow     float64
	TempAvg     float64
	Precip      float64
	SkyCode     int
	Sensation   float64
	Icon        string
	Description string
}

// RegionForecast is the unit of persistence for the 7-day forecast:
// the full ordered sequence stamped with its generation date.
type RegionForecast struct {
	Region      string
	GeneratedOn time.Time
	Days        []ForecastDay
}

// CurrentConditions is the latest repaired observation shaped for display.
// Unavailable fields serialize as null rather than being dropped so the
// downstream schema stays stable.
type CurrentConditions struct {
	Region      string   `json:"region"`
	Temp        *float64 `json:"temp"`
	Humidity    *float64 `json:"humidity"`
	Precip      *float64 `json:"precip"`
	WindSpeed   *float64 `json:"wind_speed"`
	Visibility  *float64 `json:"visibility"`
	Sensation   *float64 `json:"sensation"`
	UVIndex     *float64 `json:"uv_index"`
	SkyCode     *int     `json:"sky_code"`
	Icon        string   `json:"icon"`
	Description string   `json:"description"`
	ObservedAt  string   `json:"observed_at"`
}

// HourlyEntry is one row of the next-N-hours view.
type HourlyEntry struct {
	TimeLabel  string   `json:"time"`
	Icon       string   `json:"icon"`
	Temp       *float64 `json:"temp"`
	SkyCode    *int     `json:"sky_code"`
	ObservedAt string   `json:"observed_at"`
}

// CarouselInsight is the day-1 summary derived from the 7-day forecast.
type CarouselInsight struct {
	Region          string  `json:"region"`
	RainProbability int     `json:"rain_probability"`
	Sensation       float64 `json:"sensation"`
	Cloudiness      string  `json:"cloudiness"`
	CloudinessPct   int     `json:"cloudiness_pct"`
	Icon            string  `json:"icon"`
	PredictionDate  string  `json:"prediction_date"`
	GeneratedAt     string  `json:"generated_at"`
}

// RegionStatus classifies the outcome of one region's pipeline task.
type RegionStatus string

const (
	StatusUpdated RegionStatus = "updated"
	StatusSkipped RegionStatus = "skipped"
	StatusEmpty   RegionStatus = "empty"
	StatusError   RegionStatus = "error"
)

// RunReport is the per-run status report across all regions: the
// externally observable error surface of a pipeline run.
type RunReport struct {
	StartedAt time.Time
	Regions   map[RegionStatus][]string
}

func NewRunReport(startedAt time.Time) *RunReport {
	return &RunReport{
		StartedAt: startedAt,
		Regions:   map[RegionStatus][]string{},
	}
}

func (r *RunReport) Record(region string, status RegionStatus) {
	r.Regions[status] = append(r.Regions[status], region)
}

func (r *RunReport) Count(status RegionStatus) int {
	return len(r.Regions[status])
}
