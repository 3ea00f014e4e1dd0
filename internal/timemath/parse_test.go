package timemath

import (
	"errors"
	"testing"
)

func TestParseText(t *testing.T) {
	tests := []struct {
		in           string
		requireHours bool
		want         float64
		err          error
	}{
		{"01:30", false, 90, nil},
		{" 1:05 ", false, 65, nil},
		{"120:00", false, 7200, nil},
		{"1:02:03", false, 3723, nil},
		{"1:02:03", true, 3723, nil},
		{"01:30", true, 0, ErrMalformedTimestamp},
		{"", false, 0, ErrEmptyTimestamp},
		{"   ", false, 0, ErrEmptyTimestamp},
		{"01:60", false, 0, ErrFieldRange},
		{"01:75", false, 0, ErrFieldRange},
		{"1:60:00", false, 0, ErrFieldRange},
		{"1:00:60", true, 0, ErrFieldRange},
		{"90", false, 0, ErrMalformedTimestamp},
		{"1:2:3:4", false, 0, ErrMalformedTimestamp},
		{"a:10", false, 0, ErrMalformedTimestamp},
		{"01:100", false, 0, ErrMalformedTimestamp},
		{"-1:10", false, 0, ErrMalformedTimestamp},
	}
	for _, tt := range tests {
		got, err := ParseText(tt.in, tt.requireHours)
		if tt.err != nil {
			if !errors.Is(err, tt.err) {
				t.Errorf("ParseText(%q, %v) error = %v, want %v", tt.in, tt.requireHours, err, tt.err)
			}
			continue
		}
		if err != nil {
			t.Errorf("ParseText(%q, %v) unexpected error: %v", tt.in, tt.requireHours, err)
			continue
		}
		if got != tt.want {
			t.Errorf("ParseText(%q, %v) = %v, want %v", tt.in, tt.requireHours, got, tt.want)
		}
	}
}

// The text parser rejects what the numeric parser clamps.
func TestParseTextRejectsWhatParseTimestampClamps(t *testing.T) {
	if _, err := ParseText("00:75", false); !errors.Is(err, ErrFieldRange) {
		t.Fatalf("ParseText accepted 00:75: %v", err)
	}
	if got := ParseTimestamp(0, 75); got != 59 {
		t.Fatalf("ParseTimestamp(0, 75) = %v, want 59", got)
	}
}

func TestNormalizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
		ok   bool
	}{
		{"1:5", "01:05", true},
		{"123:05", "123:05", true},
		{"1:2:3", "1:02:03", true},
		{"1:75", "", false},
	}
	for _, tt := range tests {
		got, ok := NormalizeText(tt.in, false)
		if ok != tt.ok || got != tt.want {
			t.Errorf("NormalizeText(%q) = %q, %v; want %q, %v", tt.in, got, ok, tt.want, tt.ok)
		}
	}
}

func TestSanitizeText(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"12", "12"},
		{"1a2:3b4", "12:34"},
		{"01:234", "01:23"},
		{"1234:567:890", "123:56:89"},
		{"1:2:3:4", "1:2:3"},
	}
	for _, tt := range tests {
		if got := SanitizeText(tt.in); got != tt.want {
			t.Errorf("SanitizeText(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
