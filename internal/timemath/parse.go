package timemath

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
)

// Errors returned by ParseText.
var (
	ErrEmptyTimestamp     = errors.New("timestamp is empty")
	ErrMalformedTimestamp = errors.New("timestamp is malformed")
	ErrFieldRange         = errors.New("minutes and seconds must be below 60")
)

var (
	unbounded = regexp.MustCompile(`^\d+$`)
	twoDigits = regexp.MustCompile(`^\d{1,2}$`)
	notDigit  = regexp.MustCompile(`[^\d:]`)
)

// ParseText parses a user-entered loop bound. Accepted forms are MM:SS
// (rejected when requireHours is set) and HH:MM:SS. Unlike ParseTimestamp,
// minute or second fields of 60 or more are an error rather than clamped.
func ParseText(value string, requireHours bool) (float64, error) {
	s := strings.TrimSpace(value)
	if s == "" {
		return 0, ErrEmptyTimestamp
	}

	parts := strings.Split(s, ":")
	switch {
	case len(parts) == 2 && !requireHours:
		if !unbounded.MatchString(parts[0]) || !twoDigits.MatchString(parts[1]) {
			return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, value)
		}
		mm, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, value)
		}
		ss, _ := strconv.Atoi(parts[1])
		if ss >= 60 {
			return 0, fmt.Errorf("%w: %q", ErrFieldRange, value)
		}
		return ParseTimestamp(mm, float64(ss)), nil

	case len(parts) == 3:
		if !unbounded.MatchString(parts[0]) || !twoDigits.MatchString(parts[1]) || !twoDigits.MatchString(parts[2]) {
			return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, value)
		}
		hh, err := strconv.ParseFloat(parts[0], 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, value)
		}
		mm, _ := strconv.Atoi(parts[1])
		ss, _ := strconv.Atoi(parts[2])
		if mm >= 60 || ss >= 60 {
			return 0, fmt.Errorf("%w: %q", ErrFieldRange, value)
		}
		return hh*3600 + float64(mm*60+ss), nil
	}

	return 0, fmt.Errorf("%w: %q", ErrMalformedTimestamp, value)
}

// NormalizeText pads a valid timestamp's fields to two digits, as done when
// an input field loses focus. The boolean is false if value does not parse.
func NormalizeText(value string, requireHours bool) (string, bool) {
	if _, err := ParseText(value, requireHours); err != nil {
		return "", false
	}
	parts := strings.Split(strings.TrimSpace(value), ":")
	if len(parts) == 2 {
		return pad2(parts[0]) + ":" + pad2(parts[1]), true
	}
	// Hours keep their own width.
	return parts[0] + ":" + pad2(parts[1]) + ":" + pad2(parts[2]), true
}

// SanitizeText strips everything but digits and colons from raw input and
// truncates fields so the result can still become a valid timestamp.
func SanitizeText(raw string) string {
	parts := strings.Split(notDigit.ReplaceAllString(raw, ""), ":")
	if len(parts) > 3 {
		parts = parts[:3]
	}
	switch len(parts) {
	case 1:
		return parts[0]
	case 2:
		return parts[0] + ":" + truncate(parts[1], 2)
	default:
		return truncate(parts[0], 3) + ":" + truncate(parts[1], 2) + ":" + truncate(parts[2], 2)
	}
}

func pad2(s string) string {
	if len(s) < 2 {
		return strings.Repeat("0", 2-len(s)) + s
	}
	return s
}

func truncate(s string, n int) string {
	if len(s) > n {
		return s[:n]
	}
	return s
}
