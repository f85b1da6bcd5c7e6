package store

import (
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/nmorelli/climarg/internal/models"
)

// Store wraps the SQLite database holding per-region observation series
// and forecast artifacts. The location is the regions' civil timezone.
type Store struct {
	db  *sql.DB
	loc *time.Location
}

func New(db *sql.DB, loc *time.Location) *Store {
	return &Store{db: db, loc: loc}
}

func (s *Store) Location() *time.Location {
	return s.loc
}

func (s *Store) UpsertRegion(r models.Region) error {
	_, err := s.db.Exec(`
		INSERT INTO regions (name, station_id, latitude, longitude, active)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(name) DO UPDATE SET
			station_id = excluded.station_id,
			latitude = excluded.latitude,
			longitude = excluded.longitude,
			active = excluded.active
	`, r.Name, r.StationID, r.Latitude, r.Longitude, r.Active)
	return err
}

func (s *Store) GetActiveRegions() ([]models.Region, error) {
	rows, err := s.db.Query(`SELECT name, station_id, latitude, longitude, active FROM regions WHERE active = TRUE ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var regions []models.Region
	for rows.Next() {
		var r models.Region
		if err := rows.Scan(&r.Name, &r.StationID, &r.Latitude, &r.Longitude, &r.Active); err != nil {
			return nil, err
		}
		regions = append(regions, r)
	}
	return regions, rows.Err()
}

const obsColumns = `region, observed_at, temp, dewpoint, humidity, precip_rate, snow_rate, wind_speed, wind_gust, wind_dir, pressure, sunshine, sky_code, visibility, sensation, uv_index, fetched_at`

// ReplaceSeries swaps a region's persisted series wholesale for a freshly
// repaired one. A repaired series is immutable; a new repair run replaces
// it, never patches it.
func (s *Store) ReplaceSeries(region string, series []models.Observation) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM observations WHERE region = ?`, region); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear series: %w", err)
	}

	stmt, err := tx.Prepare(`INSERT INTO observations (` + obsColumns + `) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return fmt.Errorf("prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, o := range series {
		if _, err := stmt.Exec(region, o.ObservedAt, o.Temp, o.Dewpoint, o.Humidity, o.PrecipRate, o.SnowRate,
			o.WindSpeed, o.WindGust, o.WindDir, o.Pressure, o.Sunshine, o.SkyCode, o.Visibility,
			o.Sensation, o.UVIndex, o.FetchedAt); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert observation %s: %w", o.ObservedAt, err)
		}
	}
	return tx.Commit()
}

// GetSeries returns a region's full persisted series ordered by time.
func (s *Store) GetSeries(region string) ([]models.Observation, error) {
	rows, err := s.db.Query(`SELECT id, `+obsColumns+` FROM observations WHERE region = ? ORDER BY observed_at`, region)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var series []models.Observation
	for rows.Next() {
		var o models.Observation
		if err := rows.Scan(&o.ID, &o.Region, &o.ObservedAt, &o.Temp, &o.Dewpoint, &o.Humidity, &o.PrecipRate,
			&o.SnowRate, &o.WindSpeed, &o.WindGust, &o.WindDir, &o.Pressure, &o.Sunshine, &o.SkyCode,
			&o.Visibility, &o.Sensation, &o.UVIndex, &o.FetchedAt); err != nil {
			return nil, err
		}
		o.ObservedAt = o.ObservedAt.In(s.loc)
		series = append(series, o)
	}
	return series, rows.Err()
}

// LastObservedAt returns the newest persisted timestamp for a region, or
// ok=false when no series exists yet.
func (s *Store) LastObservedAt(region string) (time.Time, bool, error) {
	var ts sql.NullTime
	err := s.db.QueryRow(`SELECT MAX(observed_at) FROM observations WHERE region = ?`, region).Scan(&ts)
	if err != nil {
		return time.Time{}, false, err
	}
	if !ts.Valid {
		return time.Time{}, false, nil
	}
	return ts.Time.In(s.loc), true, nil
}

// SaveForecast stores the full 7-day sequence for one region and
// generation date, replacing any forecast previously stamped with the
// same date.
func (s *Store) SaveForecast(fc models.RegionForecast) error {
	tx, err := s.db.Begin()
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	if _, err := tx.Exec(`DELETE FROM forecast_days WHERE region = ?`, fc.Region); err != nil {
		tx.Rollback()
		return fmt.Errorf("clear forecast: %w", err)
	}
	for i, day := range fc.Days {
		if _, err := tx.Exec(`
			INSERT INTO forecast_days (region, generated_on, day_index, date, temp_high, temp_low, temp_avg, precip, sky_code, sensation)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`, fc.Region, fc.GeneratedOn.Format("2006-01-02"), i, day.Date.Format("2006-01-02"),
			day.TempHigh, day.TempLow, day.TempAvg, day.Precip, day.SkyCode, day.Sensation); err != nil {
			tx.Rollback()
			return fmt.Errorf("insert forecast day %d: %w", i, err)
		}
	}
	return tx.Commit()
}

// GetForecast returns a region's persisted forecast, or nil when none
// exists. Corrupt rows are treated as absence: the caller regenerates.
func (s *Store) GetForecast(region string) (*models.RegionForecast, error) {
	rows, err := s.db.Query(`
		SELECT generated_on, date, temp_high, temp_low, temp_avg, precip, sky_code, sensation
		FROM forecast_days WHERE region = ? ORDER BY day_index
	`, region)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	fc := &models.RegionForecast{Region: region}
	for rows.Next() {
		var genStr, dateStr string
		var day models.ForecastDay
		if err := rows.Scan(&genStr, &dateStr, &day.TempHigh, &day.TempLow, &day.TempAvg, &day.Precip, &day.SkyCode, &day.Sensation); err != nil {
			return nil, err
		}
		gen, err := time.ParseInLocation("2006-01-02", genStr, s.loc)
		if err != nil {
			return nil, nil
		}
		date, err := time.ParseInLocation("2006-01-02", dateStr, s.loc)
		if err != nil {
			return nil, nil
		}
		fc.GeneratedOn = gen
		day.Date = date
		fc.Days = append(fc.Days, day)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	if len(fc.Days) == 0 {
		return nil, nil
	}
	return fc, nil
}

// HasForecastForDate reports whether a region already has a forecast
// stamped with the given generation date; the daily regeneration skip.
func (s *Store) HasForecastForDate(region string, date time.Time) (bool, error) {
	var count int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM forecast_days WHERE region = ? AND generated_on = ?
	`, region, date.Format("2006-01-02")).Scan(&count)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

// SaveRunReport persists the per-run region status report.
func (s *Store) SaveRunReport(report *models.RunReport, finishedAt time.Time) error {
	_, err := s.db.Exec(`
		INSERT INTO run_reports (started_at, finished_at, updated, skipped, empty, error)
		VALUES (?, ?, ?, ?, ?, ?)
	`, report.StartedAt, finishedAt,
		joinRegions(report, models.StatusUpdated),
		joinRegions(report, models.StatusSkipped),
		joinRegions(report, models.StatusEmpty),
		joinRegions(report, models.StatusError))
	return err
}

func joinRegions(report *models.RunReport, status models.RegionStatus) string {
	return strings.Join(report.Regions[status], ",")
}
