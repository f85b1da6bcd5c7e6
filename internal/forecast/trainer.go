package forecast

import (
	"errors"
	"fmt"
	"math"

	"github.com/nmorelli/climarg/internal/models"
)

// Regressor is an abstract fit/predict capability. The concrete family is
// an implementation choice; the pipeline only relies on one-step
// relationships learned from the feature matrix.
type Regressor interface {
	Fit(X [][]float64, y []float64) error
	Predict(x []float64) float64
}

// Scaler standardizes features to zero mean and unit variance. Fitted
// once on the full training matrix and reused for every walk-forward step.
type Scaler struct {
	mean []float64
	std  []float64
}

func (s *Scaler) Fit(X [][]float64) {
	if len(X) == 0 {
		return
	}
	n := len(X[0])
	s.mean = make([]float64, n)
	s.std = make([]float64, n)
	for _, row := range X {
		for j, v := range row {
			s.mean[j] += v
		}
	}
	for j := range s.mean {
		s.mean[j] /= float64(len(X))
	}
	for _, row := range X {
		for j, v := range row {
			d := v - s.mean[j]
			s.std[j] += d * d
		}
	}
	for j := range s.std {
		s.std[j] = math.Sqrt(s.std[j] / float64(len(X)))
		if s.std[j] == 0 {
			// constant column: pass through unscaled
			s.std[j] = 1
		}
	}
}

func (s *Scaler) Transform(x []float64) []float64 {
	out := make([]float64, len(x))
	for j, v := range x {
		out[j] = (v - s.mean[j]) / s.std[j]
	}
	return out
}

func (s *Scaler) TransformAll(X [][]float64) [][]float64 {
	out := make([][]float64, len(X))
	for i, row := range X {
		out[i] = s.Transform(row)
	}
	return out
}

// Ridge is a linear model fitted by regularized normal equations. The
// small L2 penalty keeps the solve stable on the strongly collinear
// lag/rolling features.
type Ridge struct {
	Lambda  float64
	weights []float64 // weights[0] is the intercept
}

func NewRidge() *Ridge {
	return &Ridge{Lambda: 1.0}
}

func (r *Ridge) Fit(X [][]float64, y []float64) error {
	if len(X) == 0 || len(X) != len(y) {
		return errors.New("ridge: empty or mismatched training data")
	}
	p := len(X[0]) + 1 // leading intercept column

	// normal equations: (A'A + λI) w = A'y
	ata := make([][]float64, p)
	for i := range ata {
		ata[i] = make([]float64, p)
	}
	aty := make([]float64, p)

	row := make([]float64, p)
	for i, x := range X {
		row[0] = 1
		copy(row[1:], x)
		for a := 0; a < p; a++ {
			for b := 0; b < p; b++ {
				ata[a][b] += row[a] * row[b]
			}
			aty[a] += row[a] * y[i]
		}
	}
	for a := 1; a < p; a++ { // intercept unpenalized
		ata[a][a] += r.Lambda
	}

	w, err := solve(ata, aty)
	if err != nil {
		return fmt.Errorf("ridge fit: %w", err)
	}
	for _, v := range w {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("ridge fit: non-finite weights")
		}
	}
	r.weights = w
	return nil
}

func (r *Ridge) Predict(x []float64) float64 {
	if r.weights == nil {
		return 0
	}
	out := r.weights[0]
	for j, v := range x {
		if j+1 < len(r.weights) {
			out += r.weights[j+1] * v
		}
	}
	return out
}

// solve runs Gaussian elimination with partial pivoting on a copy of A.
func solve(A [][]float64, b []float64) ([]float64, error) {
	n := len(A)
	m := make([][]float64, n)
	for i := range m {
		m[i] = append(append([]float64{}, A[i]...), b[i])
	}

	for col := 0; col < n; col++ {
		pivot := col
		for i := col + 1; i < n; i++ {
			if math.Abs(m[i][col]) > math.Abs(m[pivot][col]) {
				pivot = i
			}
		}
		if math.Abs(m[pivot][col]) < 1e-12 {
			return nil, errors.New("singular matrix")
		}
		m[col], m[pivot] = m[pivot], m[col]

		for i := col + 1; i < n; i++ {
			f := m[i][col] / m[col][col]
			for j := col; j <= n; j++ {
				m[i][j] -= f * m[col][j]
			}
		}
	}

	x := make([]float64, n)
	for i := n - 1; i >= 0; i-- {
		sum := m[i][n]
		for j := i + 1; j < n; j++ {
			sum -= m[i][j] * x[j]
		}
		x[i] = sum / m[i][i]
	}
	return x, nil
}

// MeanModel predicts the historical mean regardless of input. Fallback
// for degenerate training data where the ridge solve fails.
type MeanModel struct {
	mean float64
}

func (m *MeanModel) Fit(_ [][]float64, y []float64) error {
	if len(y) == 0 {
		return errors.New("mean model: no targets")
	}
	sum := 0.0
	for _, v := range y {
		sum += v
	}
	m.mean = sum / float64(len(y))
	return nil
}

func (m *MeanModel) Predict(_ []float64) float64 { return m.mean }

// Targets predicted by the trainer, in training order.
var targetFields = []string{fieldTemp, fieldRhum, fieldPres, fieldWspd}

// ModelSet is one region's trained models plus the fitted scaler and the
// feature-name order used to produce them. Owned by a single forecast
// run and never persisted.
type ModelSet struct {
	Models   map[string]Regressor
	Scaler   *Scaler
	Features []string
}

// Train fits one regressor per target on the features built from the
// repaired series. A target whose ridge fit fails degrades to a
// constant-mean predictor rather than failing the set.
func Train(series []models.Observation) (*ModelSet, error) {
	if len(series) == 0 {
		return nil, errors.New("train: empty series")
	}

	matrix := BuildFeatures(series)
	scaler := &Scaler{}
	scaler.Fit(matrix.Rows)
	scaled := scaler.TransformAll(matrix.Rows)

	set := &ModelSet{
		Models:   make(map[string]Regressor, len(targetFields)),
		Scaler:   scaler,
		Features: matrix.Names,
	}

	for _, target := range targetFields {
		y := TargetColumn(series, target)
		var model Regressor = NewRidge()
		if err := model.Fit(scaled, y); err != nil {
			fallback := &MeanModel{}
			if ferr := fallback.Fit(nil, y); ferr != nil {
				return nil, fmt.Errorf("train %s: %w", target, ferr)
			}
			model = fallback
		}
		set.Models[target] = model
	}
	return set, nil
}
