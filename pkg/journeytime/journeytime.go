// Package journeytime handles the calendar-day and time-of-day strings used by
// bus schedules and search.
//
// Calendar days are represented as time.Time values at midnight UTC so they
// compare and serialise the same way regardless of the server zone.
package journeytime

import (
	"errors"
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"time"
)

const DayLayout = "2006-01-02"

var (
	ErrInvalidDate   = errors.New("date must be YYYY-MM-DD or RFC3339")
	ErrInvalidOffset = errors.New("offset must look like +05:30")
	ErrNotAfterToday = errors.New("date must be after today")
	ErrTooFarAhead   = errors.New("date is too far in the future")
)

var (
	offsetRegex    = regexp.MustCompile(`^([+-])(\d{2}):(\d{2})$`)
	clock12Regex   = regexp.MustCompile(`^(\d{1,2}):(\d{2})\s*([AaPp][Mm])$`)
	clock24Regex   = regexp.MustCompile(`^(\d{1,2}):(\d{2})$`)
	minutesPerHour = 60
)

// ParseOffset turns "+05:30" style offsets into a fixed zone.
func ParseOffset(offset string) (*time.Location, error) {
	m := offsetRegex.FindStringSubmatch(strings.TrimSpace(offset))
	if m == nil {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOffset, offset)
	}

	hours, _ := strconv.Atoi(m[2])
	minutes, _ := strconv.Atoi(m[3])
	if hours > 14 || minutes > 59 {
		return nil, fmt.Errorf("%w: %q", ErrInvalidOffset, offset)
	}

	seconds := hours*3600 + minutes*60
	if m[1] == "-" {
		seconds = -seconds
	}
	return time.FixedZone("UTC"+m[0], seconds), nil
}

// ParseDay accepts YYYY-MM-DD or RFC3339 and returns the calendar day as
// written, at midnight UTC.
func ParseDay(value string) (time.Time, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return time.Time{}, ErrInvalidDate
	}

	if t, err := time.Parse(DayLayout, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return StartOfDay(t), nil
	}
	return time.Time{}, fmt.Errorf("%w: %q", ErrInvalidDate, value)
}

// StartOfDay drops the clock part of t, keeping t's own calendar day.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// Today is the current calendar day in the reference zone.
func Today(now time.Time, loc *time.Location) time.Time {
	if loc == nil {
		loc = time.UTC
	}
	return StartOfDay(now.In(loc))
}

// CheckSearchDay enforces today < day <= today+maxDaysAhead.
func CheckSearchDay(day, today time.Time, maxDaysAhead int) error {
	if !day.After(today) {
		return ErrNotAfterToday
	}
	if day.After(today.AddDate(0, 0, maxDaysAhead)) {
		return ErrTooFarAhead
	}
	return nil
}

// FormatDay renders a day as YYYY-MM-DD.
func FormatDay(t time.Time) string {
	return t.UTC().Format(DayLayout)
}

// IsClock reports whether clock is a 12-hour or 24-hour time of day.
func IsClock(clock string) bool {
	clock = strings.TrimSpace(clock)
	if m := clock12Regex.FindStringSubmatch(clock); m != nil {
		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		return hours >= 1 && hours <= 12 && minutes <= 59
	}
	if m := clock24Regex.FindStringSubmatch(clock); m != nil {
		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		return hours <= 23 && minutes <= 59
	}
	return false
}

// MinutesSinceMidnight understands "10:30 PM" and "22:30". Anything else is 0.
func MinutesSinceMidnight(clock string) int {
	clock = strings.TrimSpace(clock)

	if m := clock12Regex.FindStringSubmatch(clock); m != nil {
		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		if hours < 1 || hours > 12 || minutes > 59 {
			return 0
		}
		pm := strings.EqualFold(m[3], "PM")
		if hours == 12 {
			hours = 0
		}
		if pm {
			hours += 12
		}
		return hours*minutesPerHour + minutes
	}

	if m := clock24Regex.FindStringSubmatch(clock); m != nil {
		hours, _ := strconv.Atoi(m[1])
		minutes, _ := strconv.Atoi(m[2])
		if hours > 23 || minutes > 59 {
			return 0
		}
		return hours*minutesPerHour + minutes
	}

	return 0
}
