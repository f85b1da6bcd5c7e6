package derive

import (
	"database/sql"
	"math"
)

const (
	visBase = 20.0 // km, clean dry air
	visMin  = 0.05
)

// Visibility estimates horizontal visibility in km. Degradation is applied
// in priority order: snow (with blowing-snow wind reduction), then rain
// (worse under storm-class sky codes), then fog/mist from near-saturation,
// then baseline reduced by humidity tiers and high-wind dust suspension.
// Result clamped to [0.05, 20] and rounded to 0.1. Unavailable when the
// core inputs (temperature, humidity, dew point) are missing or implausible.
func Visibility(temp, humidity, dewpoint, precip, snow, wind sql.NullFloat64, skyCode int) sql.NullFloat64 {
	if !temp.Valid || !validTemp(temp.Float64) ||
		!humidity.Valid || !validHumidity(humidity.Float64) ||
		!dewpoint.Valid || !validTemp(dewpoint.Float64) {
		return sql.NullFloat64{}
	}
	t := temp.Float64
	rh := humidity.Float64
	d := dewpoint.Float64

	w := 0.0
	if wind.Valid && validWind(wind.Float64) {
		w = wind.Float64
	}
	prcp := 0.0
	if precip.Valid && precip.Float64 > 0 {
		prcp = precip.Float64
	}
	sn := 0.0
	if snow.Valid && snow.Float64 > 0 {
		sn = snow.Float64
	}

	if sn > 0 {
		visM := math.Max(100, 1500-sn*80)
		if w > 25 {
			// blowing snow
			visM *= 0.6
		}
		return clampVis(visM / 1000)
	}

	if prcp > 0 {
		visM := math.Max(300, 6000-prcp*1000)
		if skyCode == CodeStorm || skyCode == CodeHeavyDownpour {
			visM *= 0.5
		}
		return clampVis(visM / 1000)
	}

	spread := t - d
	if rh >= 85 && spread <= 3.0 {
		var vis float64
		switch {
		case spread < 0.5:
			vis = 0.2
		case spread < 1.0:
			vis = 0.4
		case spread < 2.0:
			vis = 0.8
		default:
			vis = 2.0
		}
		if w > 15 {
			// wind mixes the boundary layer and thins fog
			vis *= 1.5
		}
		return clampVis(vis)
	}

	vis := visBase
	switch {
	case rh > 95:
		vis -= 14
	case rh > 85:
		vis -= 9
	case rh > 75:
		vis -= 5
	case rh > 65:
		vis -= 3
	}
	if skyCode == CodeFog || skyCode == CodeFreezingFog {
		vis = 0.5
	}
	if w > 35 {
		// suspended dust in dry high wind
		vis -= 5
	}
	return clampVis(vis)
}

func clampVis(v float64) sql.NullFloat64 {
	v = math.Max(visMin, math.Min(v, visBase))
	return sql.NullFloat64{Float64: round1(v), Valid: true}
}
