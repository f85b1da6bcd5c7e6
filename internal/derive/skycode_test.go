package derive

import (
	"database/sql"
	"testing"
	"time"
)

func TestSkyCodeTable(t *testing.T) {
	tests := []struct {
		name                                      string
		temp, dwpt, rhum, pres, precip, snow      sql.NullFloat64
		want                                      int
	}{
		{"heavy snow wins over rain", nf(-2), nf(-4), nf(90), nf(1000), nf(30), nf(6), CodeHeavySnow},
		{"moderate snow", nf(-1), nf(-3), nf(85), nf(1010), nf(0), nf(3), CodeSnow},
		{"light snow", nf(0), nf(-2), nf(80), nf(1010), nf(0), nf(0.5), CodeLightSnow},
		{"extreme precip is storm", nf(22), nf(20), nf(95), nf(1010), nf(55), nf(0), CodeStorm},
		{"heavy precip with low pressure is storm", nf(22), nf(20), nf(95), nf(1000), nf(25), nf(0), CodeStorm},
		{"heavy precip with normal pressure", nf(22), nf(20), nf(95), nf(1012), nf(25), nf(0), CodeHeavyDownpour},
		{"heavy rain", nf(18), nf(16), nf(90), nf(1010), nf(16), nf(0), CodeHeavyRain},
		{"moderate rain", nf(18), nf(16), nf(90), nf(1010), nf(6), nf(0), CodeRain},
		{"light rain", nf(18), nf(16), nf(90), nf(1010), nf(3), nf(0), CodeLightRain},
		{"fog near saturation", nf(8), nf(7.5), nf(97), nf(1015), nf(0), nf(0), CodeFog},
		{"freezing fog below zero", nf(-3), nf(-4), nf(97), nf(1015), nf(0), nf(0), CodeFreezingFog},
		{"overcast by humidity", nf(15), nf(10), nf(88), nf(1013), nf(0), nf(0), CodeOvercast},
		{"cloudy by humidity", nf(15), nf(8), nf(75), nf(1013), nf(0), nf(0), CodeCloudy},
		{"clear when dry", nf(25), nf(10), nf(40), nf(1018), nf(0), nf(0), CodeClear},
		{"default partly cloudy", nf(15), nf(11), nf(60), nf(1013), nf(0), nf(0), CodeFair},
		{"all missing falls back to defaults", sql.NullFloat64{}, sql.NullFloat64{}, sql.NullFloat64{}, sql.NullFloat64{}, sql.NullFloat64{}, sql.NullFloat64{}, CodeFair},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := SkyCode(tt.temp, tt.dwpt, tt.rhum, tt.pres, tt.precip, tt.snow)
			if got != tt.want {
				t.Errorf("SkyCode() = %d, want %d", got, tt.want)
			}
		})
	}
}

func TestSkyCodeDeterministic(t *testing.T) {
	a := SkyCode(nf(18), nf(12), nf(72), nf(1011), nf(1.2), nf(0))
	b := SkyCode(nf(18), nf(12), nf(72), nf(1011), nf(1.2), nf(0))
	if a != b {
		t.Errorf("SkyCode not deterministic: %d vs %d", a, b)
	}
}

func TestIconNightVariant(t *testing.T) {
	tests := []struct {
		code int
		hour int
		want string
	}{
		{CodeClear, 22, "clear_night.svg"},
		{CodeClear, 14, "clear.svg"},
		{CodeClear, 6, "clear_night.svg"},
		{CodeFair, 23, "fair_night.svg"},
		{CodeFair, 12, "fair.svg"},
		{CodeRain, 22, "rain.svg"}, // no night variant for rain
		{999, 12, "unknown.svg"},
	}
	for _, tt := range tests {
		if got := Icon(tt.code, tt.hour); got != tt.want {
			t.Errorf("Icon(%d, %d) = %q, want %q", tt.code, tt.hour, got, tt.want)
		}
	}
}

func TestUVIndex(t *testing.T) {
	// Midnight in any season is zero.
	night := time.Date(2025, 1, 15, 2, 0, 0, 0, time.UTC)
	if got := UVIndex(CodeClear, night); got != 0 {
		t.Errorf("UVIndex at 02:00 = %v, want 0", got)
	}

	// Summer midday under clear sky is strong.
	noon := time.Date(2025, 1, 15, 13, 0, 0, 0, time.UTC)
	clearUV := UVIndex(CodeClear, noon)
	if clearUV < 8 || clearUV > 13 {
		t.Errorf("UVIndex clear summer noon = %v, want 8..13", clearUV)
	}

	// Storm attenuates heavily relative to clear.
	stormUV := UVIndex(CodeStorm, noon)
	if stormUV >= clearUV/2 {
		t.Errorf("UVIndex storm = %v, want well below clear %v", stormUV, clearUV)
	}

	// Winter noon is weaker than summer noon.
	winterNoon := time.Date(2025, 7, 15, 13, 0, 0, 0, time.UTC)
	if got := UVIndex(CodeClear, winterNoon); got >= clearUV {
		t.Errorf("UVIndex winter noon = %v, want below summer %v", got, clearUV)
	}

	// Never outside [0, 13].
	for h := 0; h < 24; h++ {
		at := time.Date(2025, 1, 15, h, 0, 0, 0, time.UTC)
		uv := UVIndex(CodeClear, at)
		if uv < 0 || uv > 13 {
			t.Errorf("UVIndex hour %d = %v, outside [0, 13]", h, uv)
		}
	}
}

func TestVisibility(t *testing.T) {
	// Snow dominates.
	v := Visibility(nf(-2), nf(90), nf(-3), nf(10), nf(4), nf(10), CodeSnow)
	if !v.Valid || v.Float64 > 2 {
		t.Errorf("Visibility in snow = %+v, want short and valid", v)
	}

	// Rain reduces, storm-class code reduces further.
	rain := Visibility(nf(18), nf(90), nf(16), nf(5), nf(0), nf(10), CodeRain)
	storm := Visibility(nf(18), nf(90), nf(16), nf(5), nf(0), nf(10), CodeStorm)
	if !rain.Valid || !storm.Valid {
		t.Fatal("Visibility in rain invalid")
	}
	if storm.Float64 >= rain.Float64 {
		t.Errorf("storm visibility %v >= rain visibility %v", storm.Float64, rain.Float64)
	}

	// Fog: near-saturation with tiny dew-point depression.
	fog := Visibility(nf(8), nf(99), nf(7.8), nf(0), nf(0), nf(2), CodeFog)
	if !fog.Valid || fog.Float64 > 1 {
		t.Errorf("Visibility in fog = %+v, want under 1km", fog)
	}

	// Clean dry air pegs at the base.
	clear := Visibility(nf(25), nf(40), nf(8), nf(0), nf(0), nf(5), CodeClear)
	if !clear.Valid || clear.Float64 != visBase {
		t.Errorf("Visibility clear = %+v, want %v", clear, visBase)
	}

	// Missing core input is unavailable, not a guess.
	missing := Visibility(sql.NullFloat64{}, nf(50), nf(10), nf(0), nf(0), nf(5), CodeFair)
	if missing.Valid {
		t.Errorf("Visibility without temperature = %+v, want invalid", missing)
	}

	// Always within [0.05, 20].
	extreme := Visibility(nf(-10), nf(100), nf(-10), nf(0), nf(80), nf(100), CodeHeavySnow)
	if !extreme.Valid || extreme.Float64 < visMin || extreme.Float64 > visBase {
		t.Errorf("Visibility extreme = %+v, outside clamp", extreme)
	}
}
