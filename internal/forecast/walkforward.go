package forecast

import (
	"database/sql"
	"errors"
	"math"
	"math/rand"
	"time"

	"github.com/nmorelli/climarg/internal/derive"
	"github.com/nmorelli/climarg/internal/models"
)

// Physical bounds enforced on every predicted value. Models trained on a
// few weeks of history will happily extrapolate nonsense without them.
const (
	minTempOut = -10.0
	maxTempOut = 42.0
	minRhumOut = 0.0
	maxRhumOut = 100.0
	minPresOut = 950.0
	maxPresOut = 1060.0
)

// Perturbation half-widths. The models learn one-step relationships only;
// without small zero-mean noise every multi-day forecast collapses to a
// flat line.
const (
	noiseTemp = 1.5
	noiseRhum = 3.0
	noisePres = 2.0
	noiseWspd = 1.2
)

const forecastDays = 7
const middayAnchor = 12 // day-representative hour for calendar features

// Forecaster extends a trained ModelSet into a 7-day forecast by
// iterative walk-forward prediction: each day's outputs are folded into
// the rolling state that produces the next day's inputs.
type Forecaster struct {
	set *ModelSet
	rng *rand.Rand
}

func NewForecaster(set *ModelSet, rng *rand.Rand) *Forecaster {
	return &Forecaster{set: set, rng: rng}
}

// walkState is the rolling state carried between forecast days. Lag
// slots shift one position per day and rolling means are updated by a
// fixed-weight blend of the previous mean and the newly produced value.
// That blend is a deliberate approximation: the full hourly window is
// not retained during iteration.
type walkState struct {
	base map[string]float64
	lags map[string][]float64          // one slot per entry of lagHours[1:]
	roll map[string]map[int]float64
}

func newWalkState(series []models.Observation) *walkState {
	st := &walkState{
		base: map[string]float64{},
		lags: map[string][]float64{},
		roll: map[string]map[int]float64{},
	}
	last := len(series) - 1
	for _, f := range baseFields {
		col := column(series, f)
		st.base[f] = col[last]
		slots := make([]float64, len(lagHours)-1)
		for k, lag := range lagHours[1:] {
			j := last - lag
			if j < 0 {
				j = 0
			}
			slots[k] = col[j]
		}
		st.lags[f] = slots
		st.roll[f] = map[int]float64{}
		for _, w := range rollingHours {
			st.roll[f][w] = trailingMean(col, last, w)
		}
	}
	return st
}

// vector produces the single-row feature vector for a target date in the
// same column order as the training matrix.
func (st *walkState) vector(date time.Time) []float64 {
	anchor := time.Date(date.Year(), date.Month(), date.Day(), middayAnchor, 0, 0, 0, date.Location())
	row := make([]float64, 0, len(baseFields)*(1+len(lagHours)+len(rollingHours))+7)
	for _, f := range baseFields {
		row = append(row, st.base[f])
	}
	row = append(row, calendarFeatures(anchor)...)
	for _, f := range baseFields {
		row = append(row, st.base[f]) // lag 1: the state's own value
		row = append(row, st.lags[f]...)
	}
	for _, f := range baseFields {
		for _, w := range rollingHours {
			row = append(row, st.roll[f][w])
		}
	}
	return row
}

// fold writes a day's predictions back into the state for the next step.
func (st *walkState) fold(pred map[string]float64) {
	for _, f := range baseFields {
		v, ok := pred[f]
		if !ok {
			v = st.base[f]
		}
		// shift daily lag slots before overwriting the current value
		slots := st.lags[f]
		for k := len(slots) - 1; k > 0; k-- {
			slots[k] = slots[k-1]
		}
		if len(slots) > 0 {
			slots[0] = st.base[f]
		}
		st.base[f] = v
		for _, w := range rollingHours {
			st.roll[f][w] = (st.roll[f][w]*float64(w-1) + v) / float64(w)
		}
	}
}

// Forecast produces the 7-day sequence for a repaired series. Day 0 uses
// the latest real observation at or before now; days 1-6 are synthesized
// by walk-forward prediction.
func (f *Forecaster) Forecast(series []models.Observation, now time.Time) (*models.RegionForecast, error) {
	if len(series) == 0 {
		return nil, errors.New("forecast: empty series")
	}

	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, now.Location())
	out := &models.RegionForecast{
		Region:      series[0].Region,
		GeneratedOn: today,
		Days:        make([]models.ForecastDay, 0, forecastDays),
	}

	out.Days = append(out.Days, f.dayZero(series, now, today))

	st := newWalkState(series)
	for i := 1; i < forecastDays; i++ {
		date := today.AddDate(0, 0, i)
		day, pred := f.step(st, date)
		out.Days = append(out.Days, day)
		st.fold(pred)
	}
	return out, nil
}

// dayZero passes the latest real observation through instead of calling
// the models.
func (f *Forecaster) dayZero(series []models.Observation, now, today time.Time) models.ForecastDay {
	obs := &series[0]
	for i := range series {
		if series[i].ObservedAt.After(now) {
			break
		}
		obs = &series[i]
	}

	temp := fieldFallback[fieldTemp]
	if obs.Temp.Valid {
		temp = obs.Temp.Float64
	}
	dwpt := temp - 2
	if obs.Dewpoint.Valid {
		dwpt = obs.Dewpoint.Float64
	}
	code := derive.CodeFair
	if obs.SkyCode.Valid {
		code = int(obs.SkyCode.Int64)
	}
	precip := 0.0
	if obs.PrecipRate.Valid {
		precip = obs.PrecipRate.Float64
	}
	sensation := temp
	if obs.Sensation.Valid {
		sensation = obs.Sensation.Float64
	}

	high := round1(temp + 1.5)
	low := round1(temp - 1.5)
	high, low = enforceTempInvariants(high, low, dwpt)

	return models.ForecastDay{
		Date:        today,
		TempHigh:    high,
		TempLow:     low,
		TempAvg:     round1(temp),
		Precip:      round1(precip),
		SkyCode:     code,
		Sensation:   round1(sensation),
		Icon:        derive.Icon(code, middayAnchor),
		Description: derive.Description(code),
	}
}

// step runs one walk-forward transition and returns the completed day
// plus the predictions to fold into the state.
func (f *Forecaster) step(st *walkState, date time.Time) (models.ForecastDay, map[string]float64) {
	scaled := f.set.Scaler.Transform(st.vector(date))

	temp := f.set.Models[fieldTemp].Predict(scaled) + f.uniform(-noiseTemp, noiseTemp)
	rhum := f.set.Models[fieldRhum].Predict(scaled) + f.uniform(-noiseRhum, noiseRhum)
	pres := f.set.Models[fieldPres].Predict(scaled) + f.uniform(-noisePres, noisePres)
	wspd := f.set.Models[fieldWspd].Predict(scaled) + f.uniform(-noiseWspd, noiseWspd)

	temp = clamp(temp, minTempOut, maxTempOut)
	rhum = clamp(rhum, minRhumOut, maxRhumOut)
	pres = clamp(pres, minPresOut, maxPresOut)
	wspd = math.Max(0, wspd)

	dwpt := f.dewpoint(temp, rhum)
	precip := f.precip(temp, dwpt, rhum, pres)

	code := derive.SkyCode(nullF(temp), nullF(dwpt), nullF(rhum), nullF(pres), nullF(precip), nullF(0))
	sensation := derive.Sensation(nullF(temp), nullF(rhum), nullF(wspd))
	sensVal := temp
	if sensation.Valid {
		sensVal = sensation.Float64
	}

	// Diurnal asymmetry plus a trend-linked spread keeps highs and lows
	// from collapsing onto the single predicted average.
	spread := 3.5 + f.uniform(0, 2.5) + math.Abs(temp-st.base[fieldTemp])*0.3
	high := temp + spread*0.55
	low := temp - spread*0.45
	high, low = enforceTempInvariants(round1(high), round1(low), dwpt)

	day := models.ForecastDay{
		Date:        date,
		TempHigh:    high,
		TempLow:     low,
		TempAvg:     round1(temp),
		Precip:      round1(precip),
		SkyCode:     code,
		Sensation:   round1(sensVal),
		Icon:        derive.Icon(code, middayAnchor),
		Description: derive.Description(code),
	}

	pred := map[string]float64{
		fieldTemp: temp,
		fieldDwpt: dwpt,
		fieldRhum: rhum,
		fieldPres: pres,
		fieldWspd: wspd,
	}
	return day, pred
}

// dewpoint inverts the Magnus-Tetens relation. When the inversion is
// numerically degenerate it falls back to a small random offset below the
// temperature.
func (f *Forecaster) dewpoint(temp, rhum float64) float64 {
	if rhum <= 0 || rhum > 100 {
		return temp - 1 - f.uniform(0, 2)
	}
	gamma := math.Log(rhum/100.0) + (17.62*temp)/(243.12+temp)
	if gamma >= 17.62 || math.IsNaN(gamma) || math.IsInf(gamma, 0) {
		return temp - 1 - f.uniform(0, 2)
	}
	dp := 243.12 * gamma / (17.62 - gamma)
	if math.IsNaN(dp) || dp > temp {
		return temp - 1 - f.uniform(0, 2)
	}
	return dp
}

// precip maps a physically motivated wetness index through ordered
// thresholds into stochastic ranges per intensity category. Below the
// lowest threshold the result is deterministically zero.
func (f *Forecaster) precip(temp, dwpt, rhum, pres float64) float64 {
	spread := temp - dwpt

	idx := 0.0
	idx += (rhum - 60.0) / 40.0
	idx += (1013.0 - pres) / 15.0
	idx += (3.0 - spread) / 4.0
	if temp > 30 {
		idx += 0.3 // convective boost
	}

	switch {
	case idx < 0.5:
		return 0
	case idx < 1.2:
		return f.uniform(0.2, 2.0)
	case idx < 2.0:
		return f.uniform(2.0, 8.0)
	case idx < 2.8:
		return f.uniform(8.0, 18.0)
	default:
		return f.uniform(18.0, 40.0)
	}
}

// enforceTempInvariants guarantees low >= dwpt-2 and high > low,
// adjusting high upward when violated.
func enforceTempInvariants(high, low, dwpt float64) (float64, float64) {
	if low < dwpt-2 {
		low = round1(dwpt - 2)
	}
	if high <= low {
		high = round1(low + 1)
	}
	return high, low
}

func (f *Forecaster) uniform(a, b float64) float64 {
	return a + f.rng.Float64()*(b-a)
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(v, hi))
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

func nullF(v float64) sql.NullFloat64 {
	return sql.NullFloat64{Float64: v, Valid: true}
}
