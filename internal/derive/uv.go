package derive

import (
	"math"
	"time"
)

// Southern-hemisphere seasons by month.
type season int

const (
	seasonSummer season = iota
	seasonAutumn
	seasonWinter
	seasonSpring
)

func seasonOf(month time.Month) season {
	switch month {
	case time.December, time.January, time.February:
		return seasonSummer
	case time.March, time.April, time.May:
		return seasonAutumn
	case time.June, time.July, time.August:
		return seasonWinter
	default:
		return seasonSpring
	}
}

// Daylight window boundaries (decimal hours) per season.
var daylight = map[season][2]float64{
	seasonSummer: {5.45, 20.30},
	seasonAutumn: {6.50, 19.10},
	seasonWinter: {7.40, 18.25},
	seasonSpring: {6.20, 19.45},
}

var seasonScale = map[season]float64{
	seasonSummer: 1.15,
	seasonAutumn: 0.85,
	seasonWinter: 0.55,
	seasonSpring: 1.00,
}

// Attenuation per sky code: clear skies pass nearly everything, storms
// block most of it. Codes not listed fall back to a middling 0.60.
var skyAttenuation = map[int]float64{
	CodeClear:         1.00,
	CodeFair:          0.90,
	CodeCloudy:        0.70,
	CodeOvercast:      0.40,
	CodeFog:           0.25,
	CodeLightRain:     0.65,
	CodeRain:          0.55,
	CodeHeavyRain:     0.50,
	CodeLightSnow:     0.50,
	CodeSnow:          0.40,
	CodeHeavySnow:     0.30,
	CodeHeavyDownpour: 0.25,
	CodeStorm:         0.10,
}

const (
	uvSolarPeak  = 12.88 // local solar noon, decimal hours
	uvSigma      = 2.4
	uvBase       = 12.5
	uvLongitudeCorr = -4.0 // minutes, rough UTC-3 offset correction
)

// UVIndex estimates the UV index for a sky code at a local civil time.
// Zero outside the season's daylight window; otherwise a bell curve peaked
// near solar noon, scaled by season, attenuated by sky condition, clipped
// to [0, 13].
func UVIndex(skyCode int, at time.Time) float64 {
	localHour := float64(at.Hour()) + float64(at.Minute())/60.0
	s := seasonOf(at.Month())

	window := daylight[s]
	if localHour < window[0] || localHour > window[1] {
		return 0.0
	}

	// Equation of time shifts apparent solar noon through the year.
	doy := float64(at.YearDay())
	eqTime := -7.65 * math.Sin((360.0/365.0)*(doy+10)*math.Pi/180.0)
	solarHour := localHour + eqTime/60.0 + uvLongitudeCorr/60.0

	z := (solarHour - uvSolarPeak) / uvSigma
	uv := uvBase * math.Exp(-0.5*z*z) * seasonScale[s]

	att, ok := skyAttenuation[skyCode]
	if !ok {
		att = 0.60
	}
	uv *= att

	uv = math.Max(0.0, math.Min(uv, 13.0))
	return round1(uv)
}
