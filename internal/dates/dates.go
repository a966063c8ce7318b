// Package dates formats the calendar dates and times the backend expects.
// Dates are built from local calendar fields, never from a UTC-normalized
// timestamp; near midnight in negative-offset zones (Argentina, UTC-3) the
// UTC route lands on the wrong day.
package dates

import (
	"fmt"
	"regexp"
	"time"
)

const maxAgeYears = 150

var timeRe = regexp.MustCompile(`^([0-1][0-9]|2[0-3]):[0-5][0-9](:[0-5][0-9])?$`)

// FormatYMD renders t as YYYY-MM-DD using its local calendar fields.
func FormatYMD(t time.Time) string {
	return fmt.Sprintf("%04d-%02d-%02d", t.Year(), int(t.Month()), t.Day())
}

// Today returns the current local date as YYYY-MM-DD.
func Today() string {
	return FormatYMD(time.Now())
}

// ParseYMD parses a YYYY-MM-DD string.
func ParseYMD(s string) (time.Time, error) {
	t, err := time.ParseInLocation("2006-01-02", s, time.Local)
	if err != nil {
		return time.Time{}, fmt.Errorf("dates: invalid date %q: %w", s, err)
	}
	return t, nil
}

// NormalizeTime converts user time input to the backend's HH:mm:ss form.
// Accepts 24-hour HH:mm or HH:mm:ss; anything else is rejected so no network
// call is wasted on input the backend would bounce.
func NormalizeTime(s string) (string, error) {
	if !timeRe.MatchString(s) {
		return "", fmt.Errorf("dates: invalid time %q", s)
	}
	// Seconds are always forced to :00; the scheduler works in whole minutes.
	return s[:5] + ":00", nil
}

// Age derives full years from a YYYY-MM-DD birth date at the reference time.
// Unparseable, future, or implausibly old (>150y) dates return ok=false;
// age is display-only and never stored.
func Age(birth string, now time.Time) (int, bool) {
	b, err := ParseYMD(birth)
	if err != nil {
		return 0, false
	}
	if b.After(now) {
		return 0, false
	}
	if b.Year() < now.Year()-maxAgeYears {
		return 0, false
	}

	age := now.Year() - b.Year()
	if int(now.Month()) < int(b.Month()) ||
		(now.Month() == b.Month() && now.Day() < b.Day()) {
		age--
	}
	return age, true
}
