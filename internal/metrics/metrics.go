package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	StationFetchesTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "climarg_station_fetches_total",
			Help: "Total bulk station data fetches",
		},
		[]string{"region", "status"},
	)

	StationFetchLatency = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "climarg_station_fetch_latency_seconds",
			Help:    "Bulk station fetch latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"region"},
	)

	RegionsProcessed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "climarg_regions_processed_total",
			Help: "Regions processed per pipeline run by outcome",
		},
		[]string{"status"},
	)

	ObservationsRepaired = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "climarg_observations_repaired_total",
			Help: "Hourly observations persisted after series repair",
		},
		[]string{"region"},
	)

	ForecastsGenerated = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "climarg_forecasts_generated_total",
			Help: "Seven day forecasts generated",
		},
		[]string{"region"},
	)

	PipelineRunDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "climarg_pipeline_run_duration_seconds",
			Help:    "End to end pipeline run duration in seconds",
			Buckets: prometheus.ExponentialBuckets(0.5, 2, 10),
		},
	)
)
