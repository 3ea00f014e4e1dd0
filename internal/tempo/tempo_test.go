package tempo

import (
	"math"
	"testing"
)

func TestPercentToRate(t *testing.T) {
	tests := []struct {
		in   float64
		want float64
	}{
		{25, 0.25},
		{100, 1.0},
		{150, 1.5},
		{400, 4.0},
		{1000, 4.0},
		{10, 0.25},
		{math.NaN(), DefaultRate},
		{math.Inf(1), DefaultRate},
	}
	for _, tt := range tests {
		if got := PercentToRate(tt.in); got != tt.want {
			t.Errorf("PercentToRate(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestRateToPercent(t *testing.T) {
	tests := []struct {
		in   float64
		want int
	}{
		{0.25, 25},
		{1, 100},
		{0.333, 33},
		{1.5, 150},
		{8, 400},
		{0.01, 25},
		{math.NaN(), 100},
	}
	for _, tt := range tests {
		if got := RateToPercent(tt.in); got != tt.want {
			t.Errorf("RateToPercent(%v) = %v, want %v", tt.in, got, tt.want)
		}
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(math.NaN()); got != DefaultRate {
		t.Errorf("Clamp(NaN) = %v", got)
	}
	if got := Clamp(0); got != MinRate {
		t.Errorf("Clamp(0) = %v", got)
	}
	if got := Clamp(5); got != MaxRate {
		t.Errorf("Clamp(5) = %v", got)
	}
}

func TestAdjustBPM(t *testing.T) {
	tests := []struct {
		bpm, rate float64
		want      int
	}{
		{120, 1.5, 180},
		{120, 1, 120},
		{128, 0.75, 96},
		{0, 1.5, 0},
		{math.NaN(), 1.5, 0},
		{120, math.NaN(), 120},
		{120, 10, 480},
	}
	for _, tt := range tests {
		if got := AdjustBPM(tt.bpm, tt.rate); got != tt.want {
			t.Errorf("AdjustBPM(%v, %v) = %v, want %v", tt.bpm, tt.rate, got, tt.want)
		}
	}
}

func TestStateRoundTrip(t *testing.T) {
	for p := MinPercent; p <= MaxPercent; p++ {
		s := Default().WithPercent(float64(p))
		if s.Percent() != p {
			t.Fatalf("percent %d -> rate %v -> %d", p, s.Rate, s.Percent())
		}
	}
}

func TestStep(t *testing.T) {
	s := Default().Step(5)
	if s.Percent() != 105 {
		t.Errorf("Step(5) = %d", s.Percent())
	}
	s = Default().WithRate(4).Step(10)
	if s.Rate != MaxRate {
		t.Errorf("Step past max = %v", s.Rate)
	}
}

func TestFormatAndPresets(t *testing.T) {
	if got := Format(1.5); got != "150%" {
		t.Errorf("Format(1.5) = %q", got)
	}
	p := Presets()
	p[0] = 999
	if Presets()[0] != 25 {
		t.Errorf("Presets returned shared slice")
	}
}
