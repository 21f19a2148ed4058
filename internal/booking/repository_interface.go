package booking

import (
	"context"
	"time"

	"trainerbook/internal/schedule"
)

type Repository interface {
	// ListConfirmedOn feeds the overlap resolver; Shared is true when the
	// booking's package has more than one participant.
	ListConfirmedOn(ctx context.Context, day time.Time) ([]schedule.Booked, error)
	ListConfirmedAfter(ctx context.Context, date, clock string) ([]Booking, error)
	ListByDate(ctx context.Context, date string) ([]Booking, error)
	ListForUser(ctx context.Context, userID int) ([]Booking, error)
	Create(ctx context.Context, b *Booking) error
	GetByID(ctx context.Context, id int, forUpdate bool) (*Booking, error)
	UpdateStatus(ctx context.Context, id int, status Status) error
	UpdateSchedule(ctx context.Context, id int, date, clock string, durationMinutes int) error
	SetCalendarEventID(ctx context.Context, id int, eventID *string) error
	// LockDay serializes writers of one calendar day until the transaction ends.
	LockDay(ctx context.Context, date string) error
}
