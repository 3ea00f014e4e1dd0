package timemath

import (
	"math"
	"testing"
)

func TestFormat(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "00:00"},
		{59.999, "00:59"},
		{61, "01:01"},
		{3599, "59:59"},
		{6000, "100:00"},
		{-1, "00:00"},
		{math.NaN(), "00:00"},
		{math.Inf(1), "00:00"},
		{1e15, "16666666666666:40"},
		{1e300, "16666666666666:40"},
		{math.MaxFloat64, "16666666666666:40"},
	}
	for _, tt := range tests {
		if got := Format(tt.in); got != tt.want {
			t.Errorf("Format(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatHMS(t *testing.T) {
	tests := []struct {
		in   float64
		want string
	}{
		{0, "00:00:00"},
		{61.5, "00:01:01"},
		{3600, "01:00:00"},
		{3661, "01:01:01"},
		{-5, "00:00:00"},
		{math.Inf(-1), "00:00:00"},
		{1e300, "277777777777:46:40"},
	}
	for _, tt := range tests {
		if got := FormatHMS(tt.in); got != tt.want {
			t.Errorf("FormatHMS(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestFormatFor(t *testing.T) {
	if got := FormatFor(75, 300, false); got != "01:15" {
		t.Errorf("short track = %q, want 01:15", got)
	}
	if got := FormatFor(75, 3600, false); got != "00:01:15" {
		t.Errorf("long track = %q, want 00:01:15", got)
	}
	if got := FormatFor(75, 300, true); got != "00:01:15" {
		t.Errorf("forced hours = %q, want 00:01:15", got)
	}
}

func TestClamp(t *testing.T) {
	if got := Clamp(math.NaN(), 2, 10); got != 2 {
		t.Errorf("Clamp(NaN) = %v, want 2", got)
	}
	if got := Clamp(-3, 0, 10); got != 0 {
		t.Errorf("Clamp(-3) = %v, want 0", got)
	}
	if got := Clamp(12, 0, 10); got != 10 {
		t.Errorf("Clamp(12) = %v, want 10", got)
	}
	if got := Clamp(4.5, 0, 10); got != 4.5 {
		t.Errorf("Clamp(4.5) = %v, want 4.5", got)
	}
}

func TestProgressGuards(t *testing.T) {
	if got := Progress(10, 0); got != 0 {
		t.Errorf("zero duration = %v, want 0", got)
	}
	if got := Progress(math.NaN(), 10); got != 0 {
		t.Errorf("NaN current = %v, want 0", got)
	}
	if got := Progress(5, 20); got != 25 {
		t.Errorf("Progress(5, 20) = %v, want 25", got)
	}
	if got := TimeFromProgress(150, 20); got != 20 {
		t.Errorf("TimeFromProgress over 100%% = %v, want 20", got)
	}
	if got := TimeFromProgress(-10, 20); got != 0 {
		t.Errorf("TimeFromProgress below 0%% = %v, want 0", got)
	}
}

func TestProgressRoundTrip(t *testing.T) {
	for _, duration := range []float64{0.5, 30, 187.3, 7200} {
		for i := 0; i <= 50; i++ {
			want := duration * float64(i) / 50
			got := TimeFromProgress(Progress(want, duration), duration)
			if math.Abs(got-want) > 1e-9 {
				t.Errorf("round trip of %v in %v = %v", want, duration, got)
			}
		}
	}
}

func TestParseTimestamp(t *testing.T) {
	tests := []struct {
		m, s float64
		want float64
	}{
		{1, 30, 90},
		{1.9, 30.7, 90},
		{-2, 10, 10},
		{0, 75, 59},
		{2, -4, 120},
		{math.NaN(), 1, 0},
	}
	for _, tt := range tests {
		if got := ParseTimestamp(tt.m, tt.s); got != tt.want {
			t.Errorf("ParseTimestamp(%v, %v) = %v, want %v", tt.m, tt.s, got, tt.want)
		}
	}
}
