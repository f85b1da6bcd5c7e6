// Package derive implements the pure derived-quantity calculators:
// sensation temperature, estimated UV index, estimated visibility and the
// categorical sky-condition code. Every function is total over its input
// domain: invalid or missing inputs produce an explicit unavailable result,
// never a panic.
package derive

import (
	"database/sql"
	"math"
)

// Physically plausible input ranges. Anything outside is treated as
// missing rather than fed into a formula.
const (
	minTemp     = -60.0
	maxTemp     = 60.0
	minPressure = 870.0
	maxPressure = 1100.0
	maxWind     = 250.0
)

func validTemp(t float64) bool     { return t >= minTemp && t <= maxTemp && !math.IsNaN(t) }
func validHumidity(rh float64) bool { return rh >= 0 && rh <= 100 && !math.IsNaN(rh) }
func validWind(w float64) bool     { return w >= 0 && w <= maxWind && !math.IsNaN(w) }
func validPressure(p float64) bool { return p >= minPressure && p <= maxPressure && !math.IsNaN(p) }

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}

// vapourPressure returns the actual vapour pressure in hPa via Magnus-Tetens.
func vapourPressure(tempC, rhPct float64) float64 {
	es := 6.112 * math.Exp((17.62*tempC)/(243.12+tempC))
	return (rhPct / 100.0) * es
}

// WindChill computes the Canadian wind-chill equivalent temperature.
// Valid only for temp <= 10°C and wind >= 4.8 km/h; ok is false otherwise.
func WindChill(tempC, windKmh float64) (float64, bool) {
	if !validTemp(tempC) || !validWind(windKmh) {
		return 0, false
	}
	if tempC > 10 || windKmh < 4.8 {
		return 0, false
	}
	w16 := math.Pow(windKmh, 0.16)
	wc := 13.12 + 0.6215*tempC - 11.37*w16 + 0.3965*tempC*w16
	return round1(wc), true
}

// HeatIndex computes the NOAA heat index (Rothfusz regression, evaluated in
// Fahrenheit with the low/high humidity corrections, converted back to °C).
// Valid only for temp >= 27°C and humidity >= 40%; ok is false otherwise.
func HeatIndex(tempC, rhPct float64) (float64, bool) {
	if !validTemp(tempC) || !validHumidity(rhPct) {
		return 0, false
	}
	if tempC < 27.0 || rhPct < 40.0 {
		return 0, false
	}

	tf := tempC*9.0/5.0 + 32.0
	rh := rhPct

	hi := -42.379 + 2.04901523*tf + 10.14333127*rh -
		0.22475541*tf*rh - 0.00683783*tf*tf -
		0.05481717*rh*rh + 0.00122874*tf*tf*rh +
		0.00085282*tf*rh*rh - 0.00000199*tf*tf*rh*rh

	if rh < 13 && tf >= 80.0 && tf <= 112.0 {
		hi -= ((13.0 - rh) / 4.0) * math.Sqrt((17.0-math.Abs(tf-95.0))/17.0)
	} else if rh > 85 && tf >= 80.0 && tf <= 87.0 {
		hi += ((rh - 85.0) / 10.0) * ((87.0 - tf) / 5.0)
	}

	return round1((hi - 32.0) * 5.0 / 9.0), true
}

// ApparentTemp computes the Australian apparent temperature:
// AT = T + 0.33*e - 0.70*v - 4.0 with e in hPa and v in m/s.
// Valid whenever temperature, humidity and wind are all plausible.
func ApparentTemp(tempC, rhPct, windKmh float64) (float64, bool) {
	if !validTemp(tempC) || !validHumidity(rhPct) || !validWind(windKmh) {
		return 0, false
	}
	v := windKmh / 3.6
	e := vapourPressure(tempC, rhPct)
	return round1(tempC + 0.33*e - 0.70*v - 4.0), true
}

// Sensation selects the sensation temperature: wind chill when it applies,
// else heat index, else apparent temperature, else the raw temperature.
// The result is invalid only when temperature itself is missing.
func Sensation(temp, humidity, wind sql.NullFloat64) sql.NullFloat64 {
	if temp.Valid && wind.Valid {
		if wc, ok := WindChill(temp.Float64, wind.Float64); ok {
			return sql.NullFloat64{Float64: wc, Valid: true}
		}
	}
	if temp.Valid && humidity.Valid {
		if hi, ok := HeatIndex(temp.Float64, humidity.Float64); ok {
			return sql.NullFloat64{Float64: hi, Valid: true}
		}
	}
	if temp.Valid && humidity.Valid && wind.Valid {
		if at, ok := ApparentTemp(temp.Float64, humidity.Float64, wind.Float64); ok {
			return sql.NullFloat64{Float64: at, Valid: true}
		}
	}
	if temp.Valid && validTemp(temp.Float64) {
		return sql.NullFloat64{Float64: round1(temp.Float64), Valid: true}
	}
	return sql.NullFloat64{}
}
