// Package schedule holds the time arithmetic of the booking engine: the fixed
// slot grid of the trainer's day and the overlap rules applied to it.
package schedule

import (
	"errors"
	"fmt"
	"time"
)

const (
	OpeningClock   = 6 * 60
	LastSlotClock  = 21*60 + 30
	SlotStep       = 30
	LunchStart     = 14 * 60
	LunchEnd       = 15*60 + 30
	minutesPerDay  = 24 * 60
	DateLayout     = "2006-01-02"
	ClockLayoutLen = len("15:04")
)

var ErrInvalidClock = errors.New("time must be HH:MM")

// GenerateSlots returns the bookable times of any day, ascending.
// Lunch blackout is half-open: 14:00 and 15:00 are excluded, 15:30 is not.
func GenerateSlots() []string {
	slots := make([]string, 0, (LastSlotClock-OpeningClock)/SlotStep+1)
	for m := OpeningClock; m <= LastSlotClock; m += SlotStep {
		if m >= LunchStart && m < LunchEnd {
			continue
		}
		slots = append(slots, FormatClock(m))
	}
	return slots
}

// IsSlot reports whether clock (minutes since midnight) is on the grid.
func IsSlot(clock int) bool {
	if clock < OpeningClock || clock > LastSlotClock {
		return false
	}
	if (clock-OpeningClock)%SlotStep != 0 {
		return false
	}
	return clock < LunchStart || clock >= LunchEnd
}

// ParseClock converts "HH:MM" into minutes since midnight.
func ParseClock(s string) (int, error) {
	if len(s) != ClockLayoutLen || s[2] != ':' {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	h, okH := twoDigits(s[0], s[1])
	m, okM := twoDigits(s[3], s[4])
	if !okH || !okM || h > 23 || m > 59 {
		return 0, fmt.Errorf("%w: %q", ErrInvalidClock, s)
	}
	return h*60 + m, nil
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

func FormatClock(clock int) string {
	clock = ((clock % minutesPerDay) + minutesPerDay) % minutesPerDay
	return fmt.Sprintf("%02d:%02d", clock/60, clock%60)
}

// Day truncates t to midnight of its calendar day in loc.
func Day(t time.Time, loc *time.Location) time.Time {
	t = t.In(loc)
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}

// ParseDate reads a YYYY-MM-DD calendar day in loc.
func ParseDate(s string, loc *time.Location) (time.Time, error) {
	return time.ParseInLocation(DateLayout, s, loc)
}

// StartOf returns the instant a slot begins on the given day.
func StartOf(day time.Time, clock int, loc *time.Location) time.Time {
	d := Day(day, loc)
	return time.Date(d.Year(), d.Month(), d.Day(), clock/60, clock%60, 0, 0, loc)
}

// ClockOf returns minutes since midnight of t in loc.
func ClockOf(t time.Time, loc *time.Location) int {
	t = t.In(loc)
	return t.Hour()*60 + t.Minute()
}
