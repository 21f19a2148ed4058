package booking

import (
	"time"

	"trainerbook/internal/auth"
	"trainerbook/internal/email"
	"trainerbook/internal/schedule"
)

type Status string

const (
	StatusConfirmed Status = "CONFIRMED"
	StatusCancelled Status = "CANCELLED"
)

// Booking is one session with the trainer. Date is YYYY-MM-DD and Time is
// HH:MM, both in the operating timezone.
type Booking struct {
	ID              int       `db:"id" json:"id"`
	UserID          int       `db:"user_id" json:"user_id"`
	PackageID       int       `db:"package_id" json:"package_id"`
	Date            string    `db:"date" json:"date" example:"2026-03-02"`
	Time            string    `db:"time" json:"time" example:"10:00"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes" example:"60"`
	Status          Status    `db:"status" json:"status" example:"CONFIRMED"`
	CalendarEventID *string   `db:"calendar_event_id" json:"calendar_event_id,omitempty"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
	UpdatedAt       time.Time `db:"updated_at" json:"updated_at"`
}

func (b *Booking) Start(loc *time.Location) (time.Time, error) {
	day, err := schedule.ParseDate(b.Date, loc)
	if err != nil {
		return time.Time{}, err
	}
	clock, err := schedule.ParseClock(b.Time)
	if err != nil {
		return time.Time{}, err
	}
	return schedule.StartOf(day, clock, loc), nil
}

func (b *Booking) slot() email.Slot {
	return email.Slot{Date: b.Date, Time: b.Time, Duration: b.DurationMinutes}
}

type CreateRequest struct {
	ActorID int
	Role    auth.Role
	// UserID is who the booking is for. Clients may only book for
	// themselves; an admin may leave it zero to use the package's first participant.
	UserID    int
	PackageID int
	Date      string
	Time      string
}

type CancelRequest struct {
	BookingID int
	ActorID   int
	Role      auth.Role
}

// RescheduleRequest changes any subset of date, time and duration; nil keeps the current value.
type RescheduleRequest struct {
	BookingID       int
	ActorID         int
	Role            auth.Role
	Date            *string
	Time            *string
	DurationMinutes *int
}

// EventPayload is the data of booking.* domain events.
type EventPayload struct {
	BookingID       int        `json:"booking_id"`
	UserID          int        `json:"user_id"`
	PackageID       int        `json:"package_id"`
	Date            string     `json:"date"`
	Time            string     `json:"time"`
	DurationMinutes int        `json:"duration_minutes"`
	Status          Status     `json:"status"`
	ActorID         int        `json:"actor_id"`
	Previous        *SlotValue `json:"previous,omitempty"`
}

type SlotValue struct {
	Date            string `json:"date"`
	Time            string `json:"time"`
	DurationMinutes int    `json:"duration_minutes"`
}

func payloadOf(b *Booking, actorID int) EventPayload {
	return EventPayload{
		BookingID:       b.ID,
		UserID:          b.UserID,
		PackageID:       b.PackageID,
		Date:            b.Date,
		Time:            b.Time,
		DurationMinutes: b.DurationMinutes,
		Status:          b.Status,
		ActorID:         actorID,
	}
}
