package ingest

import (
	"bytes"
	"compress/gzip"
	"context"
	"database/sql"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/cenkalti/backoff/v4"

	"github.com/nmorelli/climarg/internal/httputil"
	"github.com/nmorelli/climarg/internal/metrics"
	"github.com/nmorelli/climarg/internal/models"
)

// Provider supplies raw hourly observations for a station over a
// [start, end) range. Implementations are not assumed safe for
// concurrent calls; the runner serializes access.
type Provider interface {
	FetchHourly(ctx context.Context, stationID string, start, end time.Time) ([]models.Observation, error)
}

const bulkBaseURL = "https://bulk.meteostat.net/v2"

// MeteostatClient downloads hourly station archives from the Meteostat
// bulk endpoint: one gzipped CSV per station covering its full history.
type MeteostatClient struct {
	baseURL string
	client  *http.Client
	loc     *time.Location
}

func NewMeteostatClient(loc *time.Location) *MeteostatClient {
	return &MeteostatClient{
		baseURL: bulkBaseURL,
		client:  httputil.NewClient(),
		loc:     loc,
	}
}

// Bulk hourly CSV column order. No header row.
const (
	colDate = iota
	colHour
	colTemp
	colDewpoint
	colHumidity
	colPrecip
	colSnow
	colWindDir
	colWindSpeed
	colWindGust
	colPressure
	colSunshine
	colSkyCode
	colCount
)

func (c *MeteostatClient) FetchHourly(ctx context.Context, stationID string, start, end time.Time) ([]models.Observation, error) {
	url := fmt.Sprintf("%s/hourly/%s.csv.gz", c.baseURL, stationID)

	began := time.Now()
	var body []byte
	operation := func() error {
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("build request: %w", err))
		}
		resp, err := c.client.Do(req)
		if err != nil {
			return fmt.Errorf("fetch hourly: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500 {
			return fmt.Errorf("fetch hourly: status %d", resp.StatusCode)
		}
		if resp.StatusCode != http.StatusOK {
			return backoff.Permanent(fmt.Errorf("fetch hourly: status %d", resp.StatusCode))
		}

		gz, err := gzip.NewReader(resp.Body)
		if err != nil {
			return backoff.Permanent(fmt.Errorf("gzip reader: %w", err))
		}
		defer gz.Close()

		body, err = io.ReadAll(gz)
		if err != nil {
			return fmt.Errorf("read body: %w", err)
		}
		return nil
	}

	bo := backoff.NewExponentialBackOff()
	bo.MaxElapsedTime = 3 * time.Minute
	if err := backoff.Retry(operation, backoff.WithContext(bo, ctx)); err != nil {
		metrics.StationFetchesTotal.WithLabelValues(stationID, "error").Inc()
		return nil, err
	}
	metrics.StationFetchesTotal.WithLabelValues(stationID, "ok").Inc()
	metrics.StationFetchLatency.WithLabelValues(stationID).Observe(time.Since(began).Seconds())

	return c.parseCSV(body, start, end)
}

func (c *MeteostatClient) parseCSV(body []byte, start, end time.Time) ([]models.Observation, error) {
	reader := csv.NewReader(bytes.NewReader(body))
	reader.FieldsPerRecord = -1

	fetchedAt := time.Now().In(c.loc)
	var out []models.Observation
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("parse csv: %w", err)
		}
		if len(record) < colCount {
			continue
		}

		hour, err := strconv.Atoi(record[colHour])
		if err != nil {
			continue
		}
		day, err := time.ParseInLocation("2006-01-02", record[colDate], c.loc)
		if err != nil {
			continue
		}
		ts := day.Add(time.Duration(hour) * time.Hour)
		if ts.Before(start) || !ts.Before(end) {
			continue
		}

		out = append(out, models.Observation{
			ObservedAt: ts,
			Temp:       parseFloat(record[colTemp]),
			Dewpoint:   parseFloat(record[colDewpoint]),
			Humidity:   parseFloat(record[colHumidity]),
			PrecipRate: parseFloat(record[colPrecip]),
			SnowRate:   parseFloat(record[colSnow]),
			WindDir:    parseInt(record[colWindDir]),
			WindSpeed:  parseFloat(record[colWindSpeed]),
			WindGust:   parseFloat(record[colWindGust]),
			Pressure:   parseFloat(record[colPressure]),
			Sunshine:   parseFloat(record[colSunshine]),
			SkyCode:    parseInt(record[colSkyCode]),
			FetchedAt:  fetchedAt,
		})
	}
	return out, nil
}

func parseFloat(s string) sql.NullFloat64 {
	if s == "" {
		return sql.NullFloat64{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: v, Valid: true}
}

func parseInt(s string) sql.NullInt64 {
	if s == "" {
		return sql.NullInt64{}
	}
	// Some archives write integer columns with a trailing .0.
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: int64(v), Valid: true}
}
