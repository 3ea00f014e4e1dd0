package loop

import (
	"errors"
	"math"
	"testing"
)

func TestValidateBounds(t *testing.T) {
	tests := []struct {
		name            string
		start, end, dur float64
		want            error
	}{
		{"valid", 10, 20, 120, nil},
		{"whole track", 0, 120, 120, nil},
		{"non-finite start", math.NaN(), 20, 120, ErrNonFinite},
		{"non-finite duration", 1, 2, math.Inf(1), ErrNonFinite},
		{"negative start", -1, 5, 10, ErrNegative},
		{"negative end", 1, -5, 10, ErrNegative},
		{"start at duration", 10, 12, 10, ErrStartPastDuration},
		{"end past duration", 2, 11, 10, ErrEndPastDuration},
		{"start after end", 5, 3, 10, ErrStartNotBeforeEnd},
		{"empty region", 5, 5, 10, ErrStartNotBeforeEnd},
		// Several rules broken at once: the earliest rule wins.
		{"negative and inverted", -1, -5, 10, ErrNegative},
		{"nan and negative", math.NaN(), -5, 10, ErrNonFinite},
		{"start past duration and inverted", 12, 11, 10, ErrStartPastDuration},
		{"end past duration and inverted", 8, 20, 10, ErrEndPastDuration},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateBounds(tt.start, tt.end, tt.dur)
			if tt.want == nil {
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				return
			}
			if !errors.Is(err, tt.want) {
				t.Fatalf("error = %v, want %v", err, tt.want)
			}
		})
	}
}

func TestValidateBoundsAcceptsAllValidRegions(t *testing.T) {
	const dur = 60.0
	for s := 0.0; s < dur; s += 2.5 {
		for e := s + 0.5; e <= dur; e += 3.5 {
			if err := ValidateBounds(s, e, dur); err != nil {
				t.Fatalf("ValidateBounds(%v, %v, %v) = %v", s, e, dur, err)
			}
		}
	}
}

func TestShouldLoop(t *testing.T) {
	tests := []struct {
		current, end float64
		want         bool
	}{
		{29.995, 30, true},
		{29.98, 30, false},
		{30, 30, true},
		{31, 30, true},
		{10, 30, false},
		{math.NaN(), 30, false},
		{30, math.Inf(1), false},
	}
	for _, tt := range tests {
		if got := ShouldLoop(tt.current, tt.end); got != tt.want {
			t.Errorf("ShouldLoop(%v, %v) = %v, want %v", tt.current, tt.end, got, tt.want)
		}
	}
}

func TestStartTime(t *testing.T) {
	if got := StartTime(math.NaN()); got != 0 {
		t.Errorf("StartTime(NaN) = %v, want 0", got)
	}
	if got := StartTime(-3); got != 0 {
		t.Errorf("StartTime(-3) = %v, want 0", got)
	}
	if got := StartTime(12.5); got != 12.5 {
		t.Errorf("StartTime(12.5) = %v, want 12.5", got)
	}
}

func TestWindow(t *testing.T) {
	r := Window(50, 10, 120)
	if r.Start != 45 || r.End != 55 || !r.Active {
		t.Errorf("Window(50, 10) = %+v", r)
	}
	r = Window(2, 10, 120)
	if r.Start != 0 || r.End != 7 {
		t.Errorf("Window near start = %+v", r)
	}
	r = Window(118, 10, 120)
	if r.Start != 113 || r.End != 120 {
		t.Errorf("Window near end = %+v", r)
	}
}

func TestDrag(t *testing.T) {
	base := Region{Start: 10, End: 20, Active: true}

	tests := []struct {
		name   string
		marker Marker
		t      float64
		want   Region
	}{
		{"start inside", MarkerStart, 15, Region{15, 20, true}},
		{"start clamped low", MarkerStart, -4, Region{0, 20, true}},
		{"start crosses end", MarkerStart, 30, Region{30, 40, true}},
		{"start crosses end near track end", MarkerStart, 95, Region{90, 100, true}},
		{"end inside", MarkerEnd, 12, Region{10, 12, true}},
		{"end clamped high", MarkerEnd, 400, Region{10, 100, true}},
		{"end crosses start", MarkerEnd, 5, Region{0, 10, true}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Drag(base, tt.marker, tt.t, 100)
			if got != tt.want {
				t.Fatalf("Drag = %+v, want %+v", got, tt.want)
			}
		})
	}
}
