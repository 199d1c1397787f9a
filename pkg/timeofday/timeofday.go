// Package timeofday represents radar publication timestamps as seconds
// since midnight with a fixed-width HHMMSS text form.
package timeofday

import (
	"errors"
	"fmt"
)

// SecondsPerDay is the exclusive upper bound for a TimeOfDay value.
const SecondsPerDay = 24 * 60 * 60

var (
	// ErrFormat reports malformed timestamp text.
	ErrFormat = errors.New("malformed timestamp")
	// ErrRange reports a seconds value outside a single day.
	ErrRange = errors.New("seconds out of range")
)

// TimeOfDay is a number of seconds since midnight in [0, 86400).
// The canonical textual form is a 6-digit HHMMSS string; round-tripping
// through the textual form is lossless.
type TimeOfDay int

// Parse decodes a 6-digit HHMMSS string.
func Parse(text string) (TimeOfDay, error) {
	if len(text) != 6 {
		return 0, fmt.Errorf("%w: %q is not 6 digits", ErrFormat, text)
	}
	for _, c := range []byte(text) {
		if c < '0' || c > '9' {
			return 0, fmt.Errorf("%w: %q is not 6 digits", ErrFormat, text)
		}
	}
	h := int(text[0]-'0')*10 + int(text[1]-'0')
	m := int(text[2]-'0')*10 + int(text[3]-'0')
	s := int(text[4]-'0')*10 + int(text[5]-'0')
	if h > 23 || m > 59 || s > 59 {
		return 0, fmt.Errorf("%w: %q has out-of-range components", ErrFormat, text)
	}
	return TimeOfDay(h*3600 + m*60 + s), nil
}

// FromSeconds converts a seconds-since-midnight count. Callers are
// responsible for wrapping or clamping across midnight; multi-day spans
// are not representable.
func FromSeconds(sec int) (TimeOfDay, error) {
	if sec < 0 || sec >= SecondsPerDay {
		return 0, fmt.Errorf("%w: %d", ErrRange, sec)
	}
	return TimeOfDay(sec), nil
}

// FromClock builds a TimeOfDay from wall-clock components.
func FromClock(hour, minute, second int) (TimeOfDay, error) {
	if hour < 0 || hour > 23 || minute < 0 || minute > 59 || second < 0 || second > 59 {
		return 0, fmt.Errorf("%w: %02d:%02d:%02d", ErrRange, hour, minute, second)
	}
	return TimeOfDay(hour*3600 + minute*60 + second), nil
}

// Seconds returns the seconds-since-midnight value.
func (t TimeOfDay) Seconds() int { return int(t) }

// Hour returns the hour component, used for hour-bucket filtering.
func (t TimeOfDay) Hour() int { return int(t) / 3600 }

// String returns the canonical 6-digit HHMMSS form.
func (t TimeOfDay) String() string {
	h := int(t) / 3600
	m := int(t) % 3600 / 60
	s := int(t) % 60
	return fmt.Sprintf("%02d%02d%02d", h, m, s)
}

// Clock returns a human-readable HH:MM:SS form for log and report output.
func (t TimeOfDay) Clock() string {
	h := int(t) / 3600
	m := int(t) % 3600 / 60
	s := int(t) % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}
