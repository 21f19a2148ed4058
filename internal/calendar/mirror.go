package calendar

import (
	"context"
	"time"

	"trainerbook/internal/schedule"
)

// Event is a confirmed booking as shown on the trainer's calendar.
type Event struct {
	BookingID   int
	Title       string
	Description string
	Start       time.Time
	End         time.Time
}

// Mirror is a best-effort copy of confirmed bookings on an external calendar.
// Callers treat every error as "no information".
type Mirror interface {
	CreateEvent(ctx context.Context, ev Event) (string, error)
	UpdateEvent(ctx context.Context, eventID string, ev Event) error
	DeleteEvent(ctx context.Context, eventID string) error
	// BusyIntervals lists time the trainer is busy on day for reasons other
	// than mirrored bookings, in minutes since midnight.
	BusyIntervals(ctx context.Context, day time.Time) ([]schedule.Interval, error)
}

// Noop is used when no calendar is configured.
type Noop struct{}

func (Noop) CreateEvent(context.Context, Event) (string, error) { return "", nil }
func (Noop) UpdateEvent(context.Context, string, Event) error   { return nil }
func (Noop) DeleteEvent(context.Context, string) error          { return nil }
func (Noop) BusyIntervals(context.Context, time.Time) ([]schedule.Interval, error) {
	return nil, nil
}

const minutesPerDay = 24 * 60

// clampToDay cuts [start, end) down to the part that falls on day.
func clampToDay(start, end, day time.Time, loc *time.Location) (schedule.Interval, bool) {
	dayStart := schedule.Day(day, loc)
	dayEnd := dayStart.AddDate(0, 0, 1)
	if !start.Before(dayEnd) || !end.After(dayStart) {
		return schedule.Interval{}, false
	}

	iv := schedule.Interval{Start: 0, End: minutesPerDay}
	if start.After(dayStart) {
		iv.Start = int(start.Sub(dayStart) / time.Minute)
	}
	if end.Before(dayEnd) {
		iv.End = int(end.Sub(dayStart) / time.Minute)
	}
	return iv, iv.End > iv.Start
}
