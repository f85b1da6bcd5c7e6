package derive

import (
	"database/sql"
	"math"
)

// Sky-condition codes. Closed enum; the decision table below only ever
// produces a subset, but ingest may deliver any of 1-28.
const (
	CodeClear          = 1
	CodeFair           = 2
	CodeCloudy         = 3
	CodeOvercast       = 4
	CodeFog            = 5
	CodeFreezingFog    = 6
	CodeLightRain      = 7
	CodeRain           = 8
	CodeHeavyRain      = 9
	CodeLightSnow      = 14
	CodeSnow           = 15
	CodeHeavySnow      = 16
	CodeHeavyDownpour  = 26
	CodeStorm          = 27
)

// Defaults substituted for missing sky-code inputs. A missing report of an
// instantaneous quantity still has to resolve to some code; these keep the
// table total.
const (
	defaultTemp     = 15.0
	defaultHumidity = 50.0
	defaultPressure = 1013.0
)

// SkyCode classifies the sky condition from physical inputs. Priority:
// snow > storm > rain intensity tiers > fog > cloud tiers by humidity >
// clear. Deterministic and total: always returns a valid code.
func SkyCode(temp, dewpoint, humidity, pressure, precip, snow sql.NullFloat64) int {
	t := defaultTemp
	if temp.Valid && validTemp(temp.Float64) {
		t = temp.Float64
	}
	rh := defaultHumidity
	if humidity.Valid && validHumidity(humidity.Float64) {
		rh = humidity.Float64
	}
	d := t - 2.0
	if dewpoint.Valid && validTemp(dewpoint.Float64) {
		d = dewpoint.Float64
	}
	p := defaultPressure
	if pressure.Valid && validPressure(pressure.Float64) {
		p = pressure.Float64
	}
	prcp := 0.0
	if precip.Valid && precip.Float64 >= 0 {
		prcp = precip.Float64
	}
	sn := 0.0
	if snow.Valid && snow.Float64 >= 0 {
		sn = snow.Float64
	}

	spread := math.Abs(t - d)

	switch {
	case sn >= 5.0:
		return CodeHeavySnow
	case sn >= 2.0:
		return CodeSnow
	case sn > 0.0:
		return CodeLightSnow
	}

	switch {
	case prcp >= 50.0:
		return CodeStorm
	case prcp >= 20.0 && p < 1005.0:
		return CodeStorm
	case prcp >= 20.0:
		return CodeHeavyDownpour
	}

	switch {
	case prcp >= 15.0:
		return CodeHeavyRain
	case prcp >= 5.0:
		return CodeRain
	case prcp >= 2.5:
		return CodeLightRain
	}

	if rh >= 95 && spread <= 2.0 {
		if t < 0 {
			return CodeFreezingFog
		}
		return CodeFog
	}

	switch {
	case rh >= 85:
		return CodeOvercast
	case rh >= 70:
		return CodeCloudy
	}

	if rh < 55 && spread > 6.0 {
		return CodeClear
	}
	return CodeFair
}

var icons = map[int]string{
	1:  "clear.svg",
	2:  "fair.svg",
	3:  "cloudy.svg",
	4:  "overcast.svg",
	5:  "fog.svg",
	6:  "freezing_fog.svg",
	7:  "light_rain.svg",
	8:  "rain.svg",
	9:  "heavy_rain.svg",
	10: "freezing_rain.svg",
	11: "heavy_sleet.svg",
	12: "sleet.svg",
	13: "heavy_sleet.svg",
	14: "light_snowfall.svg",
	15: "snowfall.svg",
	16: "heavy_snowfall.svg",
	17: "rain.svg",
	18: "heavy_rain.svg",
	19: "sleet.svg",
	20: "heavy_sleet.svg",
	21: "light_snowfall.svg",
	22: "heavy_snowfall.svg",
	23: "lightning.svg",
	24: "hail.svg",
	25: "thunderstorms.svg",
	26: "heavy_thunderstorm.svg",
	27: "storm.svg",
	28: "wind.svg",
}

var descriptions = map[int]string{
	1:  "Clear",
	2:  "Fair",
	3:  "Cloudy",
	4:  "Overcast",
	5:  "Fog",
	6:  "Freezing fog",
	7:  "Light rain",
	8:  "Rain",
	9:  "Heavy rain",
	10: "Freezing rain",
	11: "Heavy freezing rain",
	12: "Sleet",
	13: "Heavy sleet",
	14: "Light snowfall",
	15: "Snowfall",
	16: "Heavy snowfall",
	17: "Rain shower",
	18: "Heavy rain shower",
	19: "Sleet shower",
	20: "Heavy sleet shower",
	21: "Snow shower",
	22: "Heavy snow shower",
	23: "Lightning",
	24: "Hail",
	25: "Thunderstorm",
	26: "Heavy thunderstorm",
	27: "Storm",
	28: "Windy",
}

// Night window: hour >= 20 or hour < 7 local time. Only clear and fair
// have a night-variant icon.
func isNightHour(hour int) bool {
	return hour >= 20 || hour < 7
}

// Icon returns the icon file for a sky code, substituting the night
// variant for clear/fair when the local hour falls in the night window.
func Icon(code int, localHour int) string {
	icon, ok := icons[code]
	if !ok {
		return "unknown.svg"
	}
	if isNightHour(localHour) {
		switch icon {
		case "clear.svg":
			return "clear_night.svg"
		case "fair.svg":
			return "fair_night.svg"
		}
	}
	return icon
}

// Description returns the human-readable description for a sky code.
func Description(code int) string {
	if d, ok := descriptions[code]; ok {
		return d
	}
	return "Unknown"
}
