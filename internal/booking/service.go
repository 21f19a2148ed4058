// Package booking creates, cancels and moves sessions. Every change to a
// booking and to the session ledger happens in one atomic unit; calendar
// mirroring, notifications and events follow the commit on a best-effort basis.
package booking

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"time"

	"trainerbook/internal/auth"
	"trainerbook/internal/availability"
	"trainerbook/internal/calendar"
	"trainerbook/internal/email"
	"trainerbook/internal/events"
	"trainerbook/internal/ledger"
	"trainerbook/internal/metrics"
	"trainerbook/internal/schedule"
	"trainerbook/internal/user"
)

// CancelNotice is how long before the start a client may still cancel.
const CancelNotice = 3 * time.Hour

type Notifier interface {
	Send(ctx context.Context, to, subject, body string) error
}

type EventPublisher interface {
	Publish(ctx context.Context, eventType string, data any) error
}

type Directory interface {
	FindByID(ctx context.Context, id int) (*user.User, error)
	FindByIDs(ctx context.Context, ids []int) ([]user.User, error)
	ListAdmins(ctx context.Context) ([]user.User, error)
}

type Service struct {
	store             Store
	users             Directory
	mirror            calendar.Mirror
	notifier          Notifier
	events            EventPublisher
	loc               *time.Location
	now               func() time.Time
	sideEffectTimeout time.Duration
}

func NewService(
	store Store,
	users Directory,
	mirror calendar.Mirror,
	notifier Notifier,
	publisher EventPublisher,
	loc *time.Location,
	sideEffectTimeout time.Duration,
) *Service {
	if mirror == nil {
		mirror = calendar.Noop{}
	}
	if publisher == nil {
		publisher = events.Nop{}
	}
	if sideEffectTimeout <= 0 {
		sideEffectTimeout = DefaultSideEffectTimeout
	}
	return &Service{
		store:             store,
		users:             users,
		mirror:            mirror,
		notifier:          notifier,
		events:            publisher,
		loc:               loc,
		now:               time.Now,
		sideEffectTimeout: sideEffectTimeout,
	}
}

// slotAt validates a date and grid time and returns the start instant.
func (s *Service) slotAt(date, clock string) (time.Time, int, error) {
	day, err := schedule.ParseDate(date, s.loc)
	if err != nil {
		return time.Time{}, 0, invalid("date %q must be YYYY-MM-DD", date)
	}
	minutes, err := schedule.ParseClock(clock)
	if err != nil {
		return time.Time{}, 0, fmt.Errorf("%w: %w", ErrValidation, err)
	}
	if !schedule.IsSlot(minutes) {
		return time.Time{}, 0, invalid("%s is not a bookable time", clock)
	}
	start := schedule.StartOf(day, minutes, s.loc)
	if !start.After(s.now()) {
		return time.Time{}, 0, invalid("%s %s is in the past", date, clock)
	}
	return start, minutes, nil
}

func (s *Service) Create(ctx context.Context, req CreateRequest) (*Booking, error) {
	b, err := s.create(ctx, req)
	metrics.RecordBooking("create", Category(err))
	if err != nil {
		return nil, err
	}

	created := *b
	s.runSideEffects(ctx, "create", b.ID, []sideEffect{
		{name: "calendar.create", run: func(ctx context.Context) error {
			return s.mirrorCreate(ctx, b)
		}},
		{name: "notify.owner", run: func(ctx context.Context) error {
			return s.notifyUsers(ctx, []int{created.UserID}, func(u *user.User) email.Message {
				return email.BookingConfirmed(u.Name, created.slot())
			})
		}},
		{name: "event.publish", run: func(ctx context.Context) error {
			return s.events.Publish(ctx, events.BookingCreated, payloadOf(&created, req.ActorID))
		}},
	})

	return b, nil
}

func (s *Service) create(ctx context.Context, req CreateRequest) (*Booking, error) {
	if !req.Role.Valid() {
		return nil, ErrForbidden
	}
	if req.PackageID <= 0 {
		return nil, invalid("package_id is required")
	}

	owner := req.UserID
	if !req.Role.IsAdmin() {
		if owner != 0 && owner != req.ActorID {
			return nil, fmt.Errorf("%w: clients can only book for themselves", ErrForbidden)
		}
		owner = req.ActorID
	}

	_, clock, err := s.slotAt(req.Date, req.Time)
	if err != nil {
		return nil, err
	}
	day, _ := schedule.ParseDate(req.Date, s.loc)

	var created *Booking
	err = s.store.Atomically(ctx, func(uow UnitOfWork) error {
		if err := uow.Bookings().LockDay(ctx, req.Date); err != nil {
			return err
		}

		l := ledger.New(uow.Ledger())
		acct, err := l.Load(ctx, req.PackageID, true)
		if err != nil {
			return fromLedger(err)
		}
		if !acct.Package.IsActive {
			return invalid("package %d is not active", req.PackageID)
		}

		userID := owner
		if userID == 0 {
			userID = acct.Participants[0].UserID
		}
		if !acct.HasParticipant(userID) {
			if req.Role.IsAdmin() {
				return invalid("user %d is not a participant of package %d", userID, req.PackageID)
			}
			return fmt.Errorf("%w: not a participant of package %d", ErrForbidden, req.PackageID)
		}

		if err := acct.CheckQuota(userID); err != nil {
			return err
		}

		decision, err := availability.Verify(ctx, uow.Bookings(), day, schedule.Candidate{
			Start:     clock,
			Duration:  acct.Package.DurationMinutes,
			Role:      req.Role,
			PackageID: req.PackageID,
			Kind:      acct.Kind(),
		})
		if err != nil {
			return err
		}
		if !decision.Bookable {
			return &ConflictError{Reason: decision.Reason}
		}

		b := &Booking{
			UserID:          userID,
			PackageID:       req.PackageID,
			Date:            req.Date,
			Time:            schedule.FormatClock(clock),
			DurationMinutes: acct.Package.DurationMinutes,
			Status:          StatusConfirmed,
		}
		if err := uow.Bookings().Create(ctx, b); err != nil {
			return fmt.Errorf("insert booking: %w", err)
		}
		if err := l.Consume(ctx, acct, userID); err != nil {
			return err
		}

		created = b
		return nil
	})
	if err != nil {
		return nil, err
	}
	return created, nil
}

func (s *Service) Cancel(ctx context.Context, req CancelRequest) (*Booking, error) {
	res, err := s.cancel(ctx, req)
	metrics.RecordBooking("cancel", Category(err))
	if err != nil {
		return nil, err
	}

	b := res.booking
	effects := []sideEffect{
		{name: "notify.admins", run: func(ctx context.Context) error {
			owner, err := s.users.FindByID(ctx, b.UserID)
			if err != nil {
				return fmt.Errorf("load owner: %w", err)
			}
			return s.notifyAdmins(ctx, req.ActorID, func(*user.User) email.Message {
				return email.BookingCancelledAdmin(owner.Name, b.ID, b.slot())
			})
		}},
		{name: "notify.earlier_slot", run: func(ctx context.Context) error {
			return s.notifyEarlierSlot(ctx, &b, res.later, res.audience)
		}},
		{name: "event.publish", run: func(ctx context.Context) error {
			return s.events.Publish(ctx, events.BookingCancelled, payloadOf(&b, req.ActorID))
		}},
	}
	if b.CalendarEventID != nil && *b.CalendarEventID != "" {
		eventID := *b.CalendarEventID
		effects = append(effects, sideEffect{name: "calendar.delete", run: func(ctx context.Context) error {
			return s.mirror.DeleteEvent(ctx, eventID)
		}})
	}
	if res.shared {
		others := without(res.audience, req.ActorID)
		effects = append(effects, sideEffect{name: "notify.participants", run: func(ctx context.Context) error {
			return s.notifyUsers(ctx, others, func(u *user.User) email.Message {
				return email.SharedSlotReleased(u.Name, b.slot())
			})
		}})
	}
	s.runSideEffects(ctx, "cancel", b.ID, effects)

	return &b, nil
}

type cancelResult struct {
	booking  Booking
	shared   bool
	audience []int
	later    []Booking
}

func (s *Service) cancel(ctx context.Context, req CancelRequest) (*cancelResult, error) {
	if !req.Role.Valid() {
		return nil, ErrForbidden
	}

	var res *cancelResult
	err := s.store.Atomically(ctx, func(uow UnitOfWork) error {
		b, err := uow.Bookings().GetByID(ctx, req.BookingID, true)
		if err != nil {
			return err
		}
		if b.Status == StatusCancelled {
			return ErrAlreadyCancelled
		}

		l := ledger.New(uow.Ledger())
		acct, err := l.Load(ctx, b.PackageID, true)
		if err != nil {
			return err
		}

		if !req.Role.IsAdmin() {
			if !acct.HasParticipant(req.ActorID) {
				return fmt.Errorf("%w: not a participant of package %d", ErrForbidden, b.PackageID)
			}
			start, err := b.Start(s.loc)
			if err != nil {
				return err
			}
			if !s.now().Before(start.Add(-CancelNotice)) {
				return ErrNoticePeriod
			}
		}

		if err := uow.Bookings().UpdateStatus(ctx, b.ID, StatusCancelled); err != nil {
			return err
		}
		if err := l.Restore(ctx, acct, b.UserID); err != nil {
			return err
		}
		audience, err := acct.Audience(b.UserID)
		if err != nil {
			return err
		}
		later, err := uow.Bookings().ListConfirmedAfter(ctx, b.Date, b.Time)
		if err != nil {
			return err
		}

		b.Status = StatusCancelled
		res = &cancelResult{booking: *b, shared: acct.Shared(), audience: audience, later: later}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// notifyEarlierSlot tells owners of later bookings that day that an earlier
// slot has opened. People who were on the cancelled booking are skipped.
func (s *Service) notifyEarlierSlot(ctx context.Context, freed *Booking, later []Booking, skip []int) error {
	current := make(map[int]email.Slot)
	var owners []int
	for _, lb := range later {
		if _, seen := current[lb.UserID]; seen {
			continue
		}
		current[lb.UserID] = lb.slot()
		owners = append(owners, lb.UserID)
	}
	owners = without(owners, skip...)

	return s.notifyUsers(ctx, owners, func(u *user.User) email.Message {
		return email.EarlierSlotAvailable(u.Name, freed.slot(), current[u.ID])
	})
}

func (s *Service) Reschedule(ctx context.Context, req RescheduleRequest) (*Booking, error) {
	res, err := s.reschedule(ctx, req)
	metrics.RecordBooking("reschedule", Category(err))
	if err != nil {
		return nil, err
	}

	b := res.after
	before := res.before
	payload := payloadOf(&b, req.ActorID)
	payload.Previous = &SlotValue{Date: before.Date, Time: before.Time, DurationMinutes: before.DurationMinutes}

	s.runSideEffects(ctx, "reschedule", b.ID, []sideEffect{
		{name: "calendar.update", run: func(ctx context.Context) error {
			if b.CalendarEventID == nil || *b.CalendarEventID == "" {
				return s.mirrorCreate(ctx, &b)
			}
			ev, err := s.calendarEvent(ctx, &b)
			if err != nil {
				return err
			}
			return s.mirror.UpdateEvent(ctx, *b.CalendarEventID, ev)
		}},
		{name: "notify.audience", run: func(ctx context.Context) error {
			return s.notifyUsers(ctx, res.audience, func(u *user.User) email.Message {
				return email.BookingRescheduled(u.Name, before.slot(), b.slot())
			})
		}},
		{name: "event.publish", run: func(ctx context.Context) error {
			return s.events.Publish(ctx, events.BookingRescheduled, payload)
		}},
	})

	return &b, nil
}

type rescheduleResult struct {
	before   Booking
	after    Booking
	audience []int
}

func (s *Service) reschedule(ctx context.Context, req RescheduleRequest) (*rescheduleResult, error) {
	if !req.Role.IsAdmin() {
		return nil, fmt.Errorf("%w: only the trainer can reschedule", ErrForbidden)
	}
	if req.Date == nil && req.Time == nil && req.DurationMinutes == nil {
		return nil, invalid("nothing to change")
	}
	if req.DurationMinutes != nil && *req.DurationMinutes <= 0 {
		return nil, invalid("duration must be positive")
	}

	var res *rescheduleResult
	err := s.store.Atomically(ctx, func(uow UnitOfWork) error {
		b, err := uow.Bookings().GetByID(ctx, req.BookingID, true)
		if err != nil {
			return err
		}
		if b.Status == StatusCancelled {
			return ErrAlreadyCancelled
		}

		after := *b
		if req.Date != nil {
			after.Date = *req.Date
		}
		if req.Time != nil {
			after.Time = *req.Time
		}
		if req.DurationMinutes != nil {
			after.DurationMinutes = *req.DurationMinutes
		}

		_, clock, err := s.slotAt(after.Date, after.Time)
		if err != nil {
			return err
		}
		after.Time = schedule.FormatClock(clock)

		for _, d := range lockOrder(b.Date, after.Date) {
			if err := uow.Bookings().LockDay(ctx, d); err != nil {
				return err
			}
		}

		acct, err := ledger.New(uow.Ledger()).Load(ctx, b.PackageID, false)
		if err != nil {
			return err
		}

		day, _ := schedule.ParseDate(after.Date, s.loc)
		decision, err := availability.Verify(ctx, uow.Bookings(), day, schedule.Candidate{
			Start:     clock,
			Duration:  after.DurationMinutes,
			Role:      req.Role,
			PackageID: b.PackageID,
			Kind:      acct.Kind(),
			ExcludeID: b.ID,
		})
		if err != nil {
			return err
		}
		if !decision.Bookable {
			return &ConflictError{Reason: decision.Reason}
		}

		if err := uow.Bookings().UpdateSchedule(ctx, b.ID, after.Date, after.Time, after.DurationMinutes); err != nil {
			return err
		}

		audience := []int{b.UserID}
		if acct.Shared() {
			audience = acct.UserIDs()
		}
		res = &rescheduleResult{before: *b, after: after, audience: audience}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return res, nil
}

// lockOrder returns the distinct days in ascending order so concurrent
// reschedules take advisory locks in the same sequence.
func lockOrder(days ...string) []string {
	seen := make(map[string]struct{}, len(days))
	out := make([]string, 0, len(days))
	for _, d := range days {
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		out = append(out, d)
	}
	sort.Strings(out)
	return out
}

// Get returns a booking visible to the actor: admins see all, clients only
// bookings of packages they participate in.
func (s *Service) Get(ctx context.Context, id, actorID int, role auth.Role) (*Booking, error) {
	b, err := s.store.Bookings().GetByID(ctx, id, false)
	if err != nil {
		return nil, err
	}
	if role.IsAdmin() {
		return b, nil
	}

	acct, err := ledger.New(s.store.Ledger()).Load(ctx, b.PackageID, false)
	if err != nil {
		return nil, err
	}
	if !acct.HasParticipant(actorID) {
		// Hide existence from non-participants.
		return nil, ErrNotFound
	}
	return b, nil
}

func (s *Service) ListMine(ctx context.Context, userID int) ([]Booking, error) {
	return s.store.Bookings().ListForUser(ctx, userID)
}

func (s *Service) ListByDate(ctx context.Context, date string) ([]Booking, error) {
	if _, err := schedule.ParseDate(date, s.loc); err != nil {
		return nil, invalid("date %q must be YYYY-MM-DD", date)
	}
	return s.store.Bookings().ListByDate(ctx, date)
}

func (s *Service) calendarEvent(ctx context.Context, b *Booking) (calendar.Event, error) {
	start, err := b.Start(s.loc)
	if err != nil {
		return calendar.Event{}, err
	}

	title := "Session #" + strconv.Itoa(b.ID)
	if owner, err := s.users.FindByID(ctx, b.UserID); err == nil {
		title = "Session - " + owner.Name
	} else if !errors.Is(err, user.ErrUserNotFound) {
		return calendar.Event{}, fmt.Errorf("load owner: %w", err)
	}

	return calendar.Event{
		BookingID:   b.ID,
		Title:       title,
		Description: fmt.Sprintf("Booking #%d, package #%d", b.ID, b.PackageID),
		Start:       start,
		End:         start.Add(time.Duration(b.DurationMinutes) * time.Minute),
	}, nil
}

// mirrorCreate puts the booking on the calendar and remembers the event id.
func (s *Service) mirrorCreate(ctx context.Context, b *Booking) error {
	ev, err := s.calendarEvent(ctx, b)
	if err != nil {
		return err
	}
	eventID, err := s.mirror.CreateEvent(ctx, ev)
	if err != nil {
		return err
	}
	if eventID == "" {
		return nil
	}
	if err := s.store.Bookings().SetCalendarEventID(ctx, b.ID, &eventID); err != nil {
		return fmt.Errorf("store calendar event id: %w", err)
	}
	b.CalendarEventID = &eventID
	return nil
}
