package forecast

import (
	"math"
	"testing"
	"time"
)

func TestScalerStandardizes(t *testing.T) {
	X := [][]float64{{1, 10}, {2, 20}, {3, 30}}
	s := &Scaler{}
	s.Fit(X)
	scaled := s.TransformAll(X)

	for j := 0; j < 2; j++ {
		mean, sq := 0.0, 0.0
		for _, row := range scaled {
			mean += row[j]
		}
		mean /= 3
		for _, row := range scaled {
			sq += (row[j] - mean) * (row[j] - mean)
		}
		std := math.Sqrt(sq / 3)
		if math.Abs(mean) > 1e-9 || math.Abs(std-1) > 1e-9 {
			t.Errorf("column %d: mean=%v std=%v, want 0/1", j, mean, std)
		}
	}
}

func TestScalerConstantColumn(t *testing.T) {
	X := [][]float64{{5, 1}, {5, 2}, {5, 3}}
	s := &Scaler{}
	s.Fit(X)
	out := s.Transform([]float64{5, 2})
	if out[0] != 0 {
		t.Errorf("constant column scaled to %v, want 0", out[0])
	}
}

func TestRidgeRecoversLinear(t *testing.T) {
	// y = 3 + 2a - b with a sprinkle of points.
	var X [][]float64
	var y []float64
	for a := 0.0; a < 10; a++ {
		for b := 0.0; b < 5; b++ {
			X = append(X, []float64{a, b})
			y = append(y, 3+2*a-b)
		}
	}
	r := NewRidge()
	if err := r.Fit(X, y); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	got := r.Predict([]float64{4, 2})
	if math.Abs(got-9) > 0.5 {
		t.Errorf("Predict(4,2) = %v, want ~9", got)
	}
}

func TestMeanModelFallback(t *testing.T) {
	m := &MeanModel{}
	if err := m.Fit(nil, []float64{10, 20, 30}); err != nil {
		t.Fatalf("Fit: %v", err)
	}
	if got := m.Predict([]float64{1, 2, 3}); got != 20 {
		t.Errorf("Predict = %v, want 20", got)
	}
}

func TestTrainProducesAllTargets(t *testing.T) {
	start := time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC)
	series := hourlySeries(start, 24*14)

	set, err := Train(series)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	for _, target := range targetFields {
		if set.Models[target] == nil {
			t.Errorf("missing model for %s", target)
		}
	}
	if len(set.Features) != len(FeatureNames()) {
		t.Errorf("feature names = %d, want %d", len(set.Features), len(FeatureNames()))
	}

	// Prediction at the last training row should stay near the series.
	m := BuildFeatures(series)
	x := set.Scaler.Transform(m.Rows[len(m.Rows)-1])
	got := set.Models[fieldTemp].Predict(x)
	if got < 0 || got > 40 {
		t.Errorf("temp prediction = %v, outside sane band", got)
	}
}

func TestTrainDegenerateHistory(t *testing.T) {
	// Near-constant history must not fail: the trainer degrades to a
	// mean predictor instead of raising.
	start := time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)
	series := hourlySeries(start, 48)
	for i := range series {
		series[i].Temp = nf(12)
		series[i].Dewpoint = nf(8)
		series[i].Humidity = nf(60)
		series[i].WindSpeed = nf(5)
		series[i].Pressure = nf(1013)
	}

	set, err := Train(series)
	if err != nil {
		t.Fatalf("Train: %v", err)
	}
	x := make([]float64, len(set.Features))
	got := set.Models[fieldTemp].Predict(set.Scaler.Transform(x))
	if math.IsNaN(got) || math.IsInf(got, 0) {
		t.Errorf("degenerate prediction = %v, want finite", got)
	}
}
