package booking

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"

	"trainerbook/internal/schedule"
)

const bookingColumns = `id, user_id, package_id, to_char(date, 'YYYY-MM-DD') AS date, time,
		duration_minutes, status, calendar_event_id, created_at, updated_at`

type repository struct {
	db sqlx.ExtContext
}

// NewRepository works on a *sqlx.DB or, inside an atomic unit, a *sqlx.Tx.
func NewRepository(db sqlx.ExtContext) Repository {
	return &repository{db: db}
}

type bookedRow struct {
	ID              int    `db:"id"`
	PackageID       int    `db:"package_id"`
	Time            string `db:"time"`
	DurationMinutes int    `db:"duration_minutes"`
	Shared          bool   `db:"shared"`
}

func (r *repository) ListConfirmedOn(ctx context.Context, day time.Time) ([]schedule.Booked, error) {
	query := `
		SELECT b.id, b.package_id, b.time, b.duration_minutes,
		       (SELECT COUNT(*) FROM package_participants pp WHERE pp.package_id = b.package_id) > 1 AS shared
		FROM bookings b
		WHERE b.date = $1 AND b.status = 'CONFIRMED'
		ORDER BY b.time, b.id
	`

	var rows []bookedRow
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, day.Format(schedule.DateLayout)); err != nil {
		return nil, err
	}

	booked := make([]schedule.Booked, 0, len(rows))
	for _, row := range rows {
		clock, err := schedule.ParseClock(row.Time)
		if err != nil {
			return nil, fmt.Errorf("booking %d: %w", row.ID, err)
		}
		booked = append(booked, schedule.Booked{
			ID:        row.ID,
			PackageID: row.PackageID,
			Start:     clock,
			Duration:  row.DurationMinutes,
			Shared:    row.Shared,
		})
	}
	return booked, nil
}

// ListConfirmedAfter returns CONFIRMED bookings of date starting strictly after clock.
func (r *repository) ListConfirmedAfter(ctx context.Context, date, clock string) ([]Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE date = $1 AND status = 'CONFIRMED' AND time > $2
		ORDER BY time, id
	`

	bookings := []Booking{}
	if err := sqlx.SelectContext(ctx, r.db, &bookings, query, date, clock); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *repository) ListByDate(ctx context.Context, date string) ([]Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE date = $1
		ORDER BY time, id
	`

	bookings := []Booking{}
	if err := sqlx.SelectContext(ctx, r.db, &bookings, query, date); err != nil {
		return nil, err
	}
	return bookings, nil
}

// ListForUser covers every package the user participates in, so shared
// bookings made by a partner are included.
func (r *repository) ListForUser(ctx context.Context, userID int) ([]Booking, error) {
	query := `
		SELECT ` + bookingColumns + `
		FROM bookings
		WHERE package_id IN (SELECT package_id FROM package_participants WHERE user_id = $1)
		ORDER BY date DESC, time DESC, id DESC
	`

	bookings := []Booking{}
	if err := sqlx.SelectContext(ctx, r.db, &bookings, query, userID); err != nil {
		return nil, err
	}
	return bookings, nil
}

func (r *repository) Create(ctx context.Context, b *Booking) error {
	query := `
		INSERT INTO bookings (user_id, package_id, date, time, duration_minutes, status)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING id, created_at, updated_at
	`

	row := r.db.QueryRowxContext(ctx, query, b.UserID, b.PackageID, b.Date, b.Time, b.DurationMinutes, b.Status)
	return row.Scan(&b.ID, &b.CreatedAt, &b.UpdatedAt)
}

func (r *repository) GetByID(ctx context.Context, id int, forUpdate bool) (*Booking, error) {
	query := `SELECT ` + bookingColumns + ` FROM bookings WHERE id = $1`
	if forUpdate {
		query += ` FOR UPDATE`
	}

	var b Booking
	err := sqlx.GetContext(ctx, r.db, &b, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, err
	}

	return &b, nil
}

// UpdateStatus only moves CONFIRMED bookings.
func (r *repository) UpdateStatus(ctx context.Context, id int, status Status) error {
	query := `
		UPDATE bookings
		SET status = $1, updated_at = NOW()
		WHERE id = $2 AND status = 'CONFIRMED'
	`

	result, err := r.db.ExecContext(ctx, query, status, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrAlreadyCancelled
	}

	return nil
}

func (r *repository) UpdateSchedule(ctx context.Context, id int, date, clock string, durationMinutes int) error {
	query := `
		UPDATE bookings
		SET date = $1, time = $2, duration_minutes = $3, updated_at = NOW()
		WHERE id = $4 AND status = 'CONFIRMED'
	`

	result, err := r.db.ExecContext(ctx, query, date, clock, durationMinutes, id)
	if err != nil {
		return err
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if rowsAffected == 0 {
		return ErrAlreadyCancelled
	}

	return nil
}

func (r *repository) SetCalendarEventID(ctx context.Context, id int, eventID *string) error {
	query := `UPDATE bookings SET calendar_event_id = $1, updated_at = NOW() WHERE id = $2`

	_, err := r.db.ExecContext(ctx, query, eventID, id)
	return err
}

func (r *repository) LockDay(ctx context.Context, date string) error {
	query := `SELECT pg_advisory_xact_lock(hashtext('bookings:' || $1))`

	_, err := r.db.ExecContext(ctx, query, date)
	return err
}
