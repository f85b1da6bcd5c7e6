package forecast

import (
	"math"
	"time"

	"github.com/nmorelli/climarg/internal/derive"
	"github.com/nmorelli/climarg/internal/models"
)

// Rain-probability reference ceiling: predicted precipitation at or above
// this many mm maps to 100%.
const rainReferenceMM = 5.0

// Precipitation above this threshold lets the sky-code description
// override the generic cloudiness label; rain reads better than "cloudy".
const rainNarrativeThresholdMM = 1.0

// Cloudiness blend weights: precipitation-derived vs sky-code-derived.
const (
	cloudPrecipWeight = 0.4
	cloudSkyWeight    = 0.6
)

var skyCloudiness = map[int]float64{
	derive.CodeClear:         10,
	derive.CodeFair:          40,
	derive.CodeCloudy:        60,
	derive.CodeOvercast:      80,
	derive.CodeFog:           70,
	derive.CodeFreezingFog:   70,
	derive.CodeLightRain:     70,
	derive.CodeRain:          85,
	derive.CodeHeavyRain:     90,
	derive.CodeLightSnow:     75,
	derive.CodeSnow:          85,
	derive.CodeHeavySnow:     90,
	derive.CodeHeavyDownpour: 95,
	derive.CodeStorm:         95,
}

// BuildCarousel derives the day-1 summary: a cloudiness synopsis and rain
// probability for tomorrow, taken from the forecast sequence.
func BuildCarousel(fc *models.RegionForecast, generatedAt time.Time) models.CarouselInsight {
	day := fc.Days[0]
	if len(fc.Days) > 1 {
		day = fc.Days[1]
	}

	rainProb := 0
	if day.Precip > 0.1 {
		rainProb = int(math.Min(100, day.Precip/rainReferenceMM*100))
	}

	precipFactor := math.Min(100, day.Precip/rainReferenceMM*100)
	skyFactor, ok := skyCloudiness[day.SkyCode]
	if !ok {
		skyFactor = 50
	}
	cloudPct := int(math.Round(cloudPrecipWeight*precipFactor + cloudSkyWeight*skyFactor))

	label := cloudinessLabel(cloudPct)
	if day.Precip > rainNarrativeThresholdMM {
		label = derive.Description(day.SkyCode)
	}

	return models.CarouselInsight{
		Region:          fc.Region,
		RainProbability: rainProb,
		Sensation:       day.Sensation,
		Cloudiness:      label,
		CloudinessPct:   cloudPct,
		Icon:            derive.Icon(day.SkyCode, middayAnchor),
		PredictionDate:  day.Date.Format("2006-01-02"),
		GeneratedAt:     generatedAt.Format("2006-01-02 15:04:05"),
	}
}

func cloudinessLabel(pct int) string {
	switch {
	case pct < 25:
		return "Clear"
	case pct < 50:
		return "Partly cloudy"
	case pct < 70:
		return "Cloudy"
	default:
		return "Very cloudy"
	}
}
