// Package availability answers "which grid slots can still be booked on this
// day" for a caller and, optionally, a package.
package availability

import (
	"context"
	"errors"
	"fmt"
	"time"

	"trainerbook/internal/auth"
	"trainerbook/internal/calendar"
	"trainerbook/internal/ledger"
	"trainerbook/internal/logger"
	"trainerbook/internal/metrics"
	"trainerbook/internal/schedule"
)

const defaultBusyTimeout = 3 * time.Second

var ErrUnknownPackage = errors.New("unknown package")

// BookingLister returns the day's CONFIRMED bookings, each marked shared or not.
type BookingLister interface {
	ListConfirmedOn(ctx context.Context, day time.Time) ([]schedule.Booked, error)
}

type PackageReader interface {
	GetPackage(ctx context.Context, id int) (*ledger.Package, error)
	CountParticipants(ctx context.Context, packageID int) (int, error)
}

type Service struct {
	bookings    BookingLister
	packages    PackageReader
	mirror      calendar.Mirror
	loc         *time.Location
	now         func() time.Time
	busyTimeout time.Duration
}

func NewService(bookings BookingLister, packages PackageReader, mirror calendar.Mirror, loc *time.Location) *Service {
	if mirror == nil {
		mirror = calendar.Noop{}
	}
	return &Service{
		bookings:    bookings,
		packages:    packages,
		mirror:      mirror,
		loc:         loc,
		now:         time.Now,
		busyTimeout: defaultBusyTimeout,
	}
}

// ListAvailableSlots returns the open slots of date in grid order. Days in the
// past have none; today drops slots at or before the current time.
func (s *Service) ListAvailableSlots(ctx context.Context, date time.Time, role auth.Role, packageID *int) ([]string, error) {
	day := schedule.Day(date, s.loc)
	now := s.now().In(s.loc)
	today := schedule.Day(now, s.loc)

	kind := schedule.KindUnknown
	pkgID := 0
	if packageID != nil {
		k, err := s.packageKind(ctx, *packageID)
		if err != nil {
			return nil, err
		}
		kind, pkgID = k, *packageID
	}

	slots := []string{}
	if day.Before(today) {
		return slots, nil
	}

	existing, err := s.bookings.ListConfirmedOn(ctx, day)
	if err != nil {
		return nil, fmt.Errorf("list bookings of %s: %w", day.Format(schedule.DateLayout), err)
	}
	busy := s.externalBusy(ctx, day)

	nowClock := -1
	if day.Equal(today) {
		nowClock = schedule.ClockOf(now, s.loc)
	}

	for _, slot := range schedule.GenerateSlots() {
		clock, _ := schedule.ParseClock(slot)
		if clock <= nowClock {
			continue
		}
		probe := schedule.Candidate{
			Start:     clock,
			Duration:  schedule.DefaultProbeMinutes,
			Role:      role,
			PackageID: pkgID,
			Kind:      kind,
		}
		if blockedExternally(probe.Interval(), busy) {
			continue
		}
		if !schedule.Resolve(probe, existing).Bookable {
			continue
		}
		slots = append(slots, slot)
	}

	return slots, nil
}

func (s *Service) packageKind(ctx context.Context, packageID int) (schedule.PackageKind, error) {
	if _, err := s.packages.GetPackage(ctx, packageID); err != nil {
		if errors.Is(err, ledger.ErrPackageNotFound) {
			return schedule.KindUnknown, fmt.Errorf("%w: %d", ErrUnknownPackage, packageID)
		}
		return schedule.KindUnknown, err
	}
	n, err := s.packages.CountParticipants(ctx, packageID)
	if err != nil {
		return schedule.KindUnknown, err
	}
	return schedule.KindFromParticipants(n), nil
}

// externalBusy never fails: a calendar outage means no external blocks.
func (s *Service) externalBusy(ctx context.Context, day time.Time) []schedule.Interval {
	ctx, cancel := context.WithTimeout(ctx, s.busyTimeout)
	defer cancel()

	busy, err := s.mirror.BusyIntervals(ctx, day)
	if err != nil {
		logger.Warn("calendar busy-list unavailable, using bookings only",
			"date", day.Format(schedule.DateLayout), "error", err)
		metrics.RecordAvailability(false)
		return nil
	}
	metrics.RecordAvailability(true)
	return busy
}

func blockedExternally(probe schedule.Interval, busy []schedule.Interval) bool {
	for _, b := range busy {
		if probe.Overlaps(b) {
			return true
		}
	}
	return false
}

// Verify is the authoritative overlap check used while booking. lister must
// read inside the caller's transaction; the external calendar is not consulted.
func Verify(ctx context.Context, lister BookingLister, day time.Time, c schedule.Candidate) (schedule.Decision, error) {
	existing, err := lister.ListConfirmedOn(ctx, day)
	if err != nil {
		return schedule.Decision{}, fmt.Errorf("list bookings of %s: %w", day.Format(schedule.DateLayout), err)
	}
	return schedule.Resolve(c, existing), nil
}
