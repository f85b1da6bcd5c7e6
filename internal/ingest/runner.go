package ingest

import (
	"context"
	"errors"
	"fmt"
	"log"
	"math/rand"
	"sync"
	"time"

	"github.com/nmorelli/climarg/internal/forecast"
	"github.com/nmorelli/climarg/internal/metrics"
	"github.com/nmorelli/climarg/internal/models"
	"github.com/nmorelli/climarg/internal/repair"
	"github.com/nmorelli/climarg/internal/store"
)

// Runner executes one full pipeline batch: for every active region,
// fetch fresh observations, merge with the persisted series, repair,
// retrain, and regenerate the 7-day forecast. Regions are independent
// tasks distributed over a bounded worker pool; only the provider
// fetch is serialized.
type Runner struct {
	store        *store.Store
	provider     Provider
	loc          *time.Location
	workers      int
	historyYears int

	// The provider is not safe for concurrent calls.
	fetchMu sync.Mutex
}

func NewRunner(st *store.Store, provider Provider, workers, historyYears int) *Runner {
	return &Runner{
		store:        st,
		provider:     provider,
		loc:          st.Location(),
		workers:      workers,
		historyYears: historyYears,
	}
}

type taskResult struct {
	region string
	status models.RegionStatus
	err    error
}

// RunOnce processes every active region and returns the run's status
// report. One region failing never aborts its siblings or the run.
func (r *Runner) RunOnce(ctx context.Context) *models.RunReport {
	started := time.Now().In(r.loc)
	report := models.NewRunReport(started)

	regions, err := r.store.GetActiveRegions()
	if err != nil {
		log.Printf("runner: load regions: %v", err)
		return report
	}
	if len(regions) == 0 {
		log.Println("runner: no active regions")
		return report
	}

	tasks := make(chan models.Region)
	results := make(chan taskResult, len(regions))

	var wg sync.WaitGroup
	for i := 0; i < r.workers; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for region := range tasks {
				results <- r.runTask(ctx, region, started)
			}
		}()
	}
	for _, region := range regions {
		tasks <- region
	}
	close(tasks)
	wg.Wait()
	close(results)

	for res := range results {
		if res.err != nil {
			log.Printf("runner: region %s: %v", res.region, res.err)
		}
		report.Record(res.region, res.status)
		metrics.RegionsProcessed.WithLabelValues(string(res.status)).Inc()
	}

	metrics.PipelineRunDuration.Observe(time.Since(started).Seconds())
	if err := r.store.SaveRunReport(report, time.Now().In(r.loc)); err != nil {
		log.Printf("runner: save run report: %v", err)
	}
	log.Printf("runner: run complete: %d updated, %d skipped, %d empty, %d error",
		report.Count(models.StatusUpdated), report.Count(models.StatusSkipped),
		report.Count(models.StatusEmpty), report.Count(models.StatusError))
	return report
}

// runTask is the region-task boundary: any failure inside, including a
// panic from a worker, downgrades that one region to an error result.
func (r *Runner) runTask(ctx context.Context, region models.Region, now time.Time) (res taskResult) {
	defer func() {
		if p := recover(); p != nil {
			res = taskResult{region: region.Name, status: models.StatusError, err: fmt.Errorf("panic: %v", p)}
		}
	}()

	status, err := r.processRegion(ctx, region, now)
	return taskResult{region: region.Name, status: status, err: err}
}

func (r *Runner) processRegion(ctx context.Context, region models.Region, now time.Time) (models.RegionStatus, error) {
	prior, err := r.store.GetSeries(region.Name)
	if err != nil {
		// Unreadable prior series: fall back to a full refetch.
		log.Printf("runner: region %s: read persisted series: %v", region.Name, err)
		prior = nil
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, r.loc)

	start := today.AddDate(-r.historyYears, 0, 0)
	if last, ok, err := r.store.LastObservedAt(region.Name); err == nil && ok && len(prior) > 0 {
		start = last.Add(time.Hour)
	}
	end := today.Add(48 * time.Hour)

	var fresh []models.Observation
	if start.Before(end) {
		r.fetchMu.Lock()
		fresh, err = r.provider.FetchHourly(ctx, region.StationID, start, end)
		r.fetchMu.Unlock()
		if err != nil {
			if len(prior) == 0 {
				return models.StatusError, fmt.Errorf("fetch: %w", err)
			}
			// Keep serving the persisted series when the provider is down.
			log.Printf("runner: region %s: fetch failed, keeping persisted series: %v", region.Name, err)
			fresh = nil
		}
	}
	for i := range fresh {
		fresh[i].Region = region.Name
	}

	if len(fresh) == 0 && len(prior) == 0 {
		return models.StatusEmpty, nil
	}

	// Nothing new and today's forecast already stamped: short-circuit.
	if len(fresh) == 0 {
		if has, err := r.store.HasForecastForDate(region.Name, today); err == nil && has {
			return models.StatusSkipped, nil
		}
	}

	merged := repair.Merge(prior, fresh)
	repaired, err := repair.Repair(merged)
	if err != nil {
		if errors.Is(err, repair.ErrEmptySeries) {
			return models.StatusEmpty, nil
		}
		return models.StatusError, fmt.Errorf("repair: %w", err)
	}

	if err := r.store.ReplaceSeries(region.Name, repaired); err != nil {
		return models.StatusError, fmt.Errorf("persist series: %w", err)
	}
	metrics.ObservationsRepaired.WithLabelValues(region.Name).Add(float64(len(repaired)))

	if has, err := r.store.HasForecastForDate(region.Name, today); err == nil && has {
		// Series refreshed; forecast regenerates at most once per day.
		return models.StatusUpdated, nil
	}

	set, err := forecast.Train(repaired)
	if err != nil {
		return models.StatusError, fmt.Errorf("train: %w", err)
	}
	rng := rand.New(rand.NewSource(time.Now().UnixNano()))
	fc, err := forecast.NewForecaster(set, rng).Forecast(repaired, now)
	if err != nil {
		return models.StatusError, fmt.Errorf("forecast: %w", err)
	}
	if err := r.store.SaveForecast(*fc); err != nil {
		return models.StatusError, fmt.Errorf("persist forecast: %w", err)
	}
	metrics.ForecastsGenerated.WithLabelValues(region.Name).Inc()

	return models.StatusUpdated, nil
}
