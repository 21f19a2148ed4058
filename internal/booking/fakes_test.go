package booking

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"trainerbook/internal/calendar"
	"trainerbook/internal/ledger"
	"trainerbook/internal/schedule"
	"trainerbook/internal/user"
)

// memState is the whole database. Transactions work on a clone and swap it in on commit.
type memState struct {
	bookings     map[int]Booking
	packages     map[int]ledger.Package
	participants map[int][]ledger.Participant
	nextID       int
}

func (s *memState) clone() *memState {
	c := &memState{
		bookings:     make(map[int]Booking, len(s.bookings)),
		packages:     make(map[int]ledger.Package, len(s.packages)),
		participants: make(map[int][]ledger.Participant, len(s.participants)),
		nextID:       s.nextID,
	}
	for k, v := range s.bookings {
		if v.CalendarEventID != nil {
			id := *v.CalendarEventID
			v.CalendarEventID = &id
		}
		c.bookings[k] = v
	}
	for k, v := range s.packages {
		c.packages[k] = v
	}
	for k, v := range s.participants {
		c.participants[k] = append([]ledger.Participant(nil), v...)
	}
	return c
}

// memStore serializes transactions behind one mutex, which is stricter than
// SERIALIZABLE but gives the same observable outcome.
type memStore struct {
	mu     sync.Mutex
	state  *memState
	faults map[string]error
	now    func() time.Time
}

func newMemStore() *memStore {
	return &memStore{
		state: &memState{
			bookings:     map[int]Booking{},
			packages:     map[int]ledger.Package{},
			participants: map[int][]ledger.Participant{},
		},
		faults: map[string]error{},
		now:    time.Now,
	}
}

func (m *memStore) addPackage(id, total, duration int, used map[int]int, userIDs ...int) {
	m.state.packages[id] = ledger.Package{ID: id, Name: fmt.Sprintf("pkg-%d", id), TotalSessions: total, DurationMinutes: duration, IsActive: true}
	sorted := append([]int(nil), userIDs...)
	sort.Ints(sorted)
	for _, uid := range sorted {
		m.state.participants[id] = append(m.state.participants[id], ledger.Participant{PackageID: id, UserID: uid, UsedSessions: used[uid]})
	}
}

func (m *memStore) failOn(op string, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[op] = err
}

func (m *memStore) snapshot() *memState {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state.clone()
}

func (m *memStore) used(packageID, userID int) int {
	st := m.snapshot()
	for _, p := range st.participants[packageID] {
		if p.UserID == userID {
			return p.UsedSessions
		}
	}
	return -1
}

func (m *memStore) booking(id int) Booking {
	return m.snapshot().bookings[id]
}

func (m *memStore) confirmed() []Booking {
	var out []Booking
	for _, b := range m.snapshot().bookings {
		if b.Status == StatusConfirmed {
			out = append(out, b)
		}
	}
	return out
}

func (m *memStore) Bookings() Repository      { return &memBookings{store: m} }
func (m *memStore) Ledger() ledger.Repository { return &memLedger{store: m} }

func (m *memStore) Atomically(ctx context.Context, fn func(uow UnitOfWork) error) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	tx := m.state.clone()
	if err := fn(&unit{bookings: &memBookings{store: m, tx: tx}, ledger: &memLedger{store: m, tx: tx}}); err != nil {
		return err
	}
	m.state = tx
	return nil
}

// with runs fn on the transaction's state, or on the committed state under the lock.
func (m *memStore) with(tx *memState, op string, fn func(st *memState) error) error {
	if tx == nil {
		m.mu.Lock()
		defer m.mu.Unlock()
		if err := m.faults[op]; err != nil {
			return err
		}
		return fn(m.state)
	}
	if err := m.faults[op]; err != nil {
		return err
	}
	return fn(tx)
}

type memBookings struct {
	store *memStore
	tx    *memState
}

func sortBookings(bs []Booking) {
	sort.Slice(bs, func(i, j int) bool {
		if bs[i].Date != bs[j].Date {
			return bs[i].Date < bs[j].Date
		}
		if bs[i].Time != bs[j].Time {
			return bs[i].Time < bs[j].Time
		}
		return bs[i].ID < bs[j].ID
	})
}

func (r *memBookings) filter(op string, keep func(st *memState, b Booking) bool) ([]Booking, error) {
	out := []Booking{}
	err := r.store.with(r.tx, op, func(st *memState) error {
		for _, b := range st.bookings {
			if keep(st, b) {
				out = append(out, b)
			}
		}
		return nil
	})
	sortBookings(out)
	return out, err
}

func (r *memBookings) ListConfirmedOn(_ context.Context, day time.Time) ([]schedule.Booked, error) {
	date := day.Format(schedule.DateLayout)
	var shared map[int]bool
	bs, err := r.filter("ListConfirmedOn", func(st *memState, b Booking) bool {
		if shared == nil {
			shared = map[int]bool{}
			for id, ps := range st.participants {
				shared[id] = len(ps) > 1
			}
		}
		return b.Date == date && b.Status == StatusConfirmed
	})
	if err != nil {
		return nil, err
	}

	out := make([]schedule.Booked, 0, len(bs))
	for _, b := range bs {
		clock, _ := schedule.ParseClock(b.Time)
		out = append(out, schedule.Booked{ID: b.ID, PackageID: b.PackageID, Start: clock, Duration: b.DurationMinutes, Shared: shared[b.PackageID]})
	}
	return out, nil
}

func (r *memBookings) ListConfirmedAfter(_ context.Context, date, clock string) ([]Booking, error) {
	return r.filter("ListConfirmedAfter", func(_ *memState, b Booking) bool {
		return b.Date == date && b.Status == StatusConfirmed && b.Time > clock
	})
}

func (r *memBookings) ListByDate(_ context.Context, date string) ([]Booking, error) {
	return r.filter("ListByDate", func(_ *memState, b Booking) bool { return b.Date == date })
}

func (r *memBookings) ListForUser(_ context.Context, userID int) ([]Booking, error) {
	return r.filter("ListForUser", func(st *memState, b Booking) bool {
		for _, p := range st.participants[b.PackageID] {
			if p.UserID == userID {
				return true
			}
		}
		return false
	})
}

func (r *memBookings) Create(_ context.Context, b *Booking) error {
	return r.store.with(r.tx, "Create", func(st *memState) error {
		st.nextID++
		b.ID = st.nextID
		b.CreatedAt = r.store.now()
		b.UpdatedAt = b.CreatedAt
		st.bookings[b.ID] = *b
		return nil
	})
}

func (r *memBookings) GetByID(_ context.Context, id int, _ bool) (*Booking, error) {
	var out *Booking
	err := r.store.with(r.tx, "GetByID", func(st *memState) error {
		b, ok := st.bookings[id]
		if !ok {
			return ErrNotFound
		}
		out = &b
		return nil
	})
	return out, err
}

func (r *memBookings) UpdateStatus(_ context.Context, id int, status Status) error {
	return r.store.with(r.tx, "UpdateStatus", func(st *memState) error {
		b, ok := st.bookings[id]
		if !ok || b.Status != StatusConfirmed {
			return ErrAlreadyCancelled
		}
		b.Status = status
		st.bookings[id] = b
		return nil
	})
}

func (r *memBookings) UpdateSchedule(_ context.Context, id int, date, clock string, duration int) error {
	return r.store.with(r.tx, "UpdateSchedule", func(st *memState) error {
		b, ok := st.bookings[id]
		if !ok || b.Status != StatusConfirmed {
			return ErrAlreadyCancelled
		}
		b.Date, b.Time, b.DurationMinutes = date, clock, duration
		st.bookings[id] = b
		return nil
	})
}

func (r *memBookings) SetCalendarEventID(_ context.Context, id int, eventID *string) error {
	return r.store.with(r.tx, "SetCalendarEventID", func(st *memState) error {
		b := st.bookings[id]
		b.CalendarEventID = eventID
		st.bookings[id] = b
		return nil
	})
}

func (r *memBookings) LockDay(context.Context, string) error {
	return r.store.with(r.tx, "LockDay", func(*memState) error { return nil })
}

type memLedger struct {
	store *memStore
	tx    *memState
}

func (r *memLedger) GetPackage(_ context.Context, id int) (*ledger.Package, error) {
	var out *ledger.Package
	err := r.store.with(r.tx, "GetPackage", func(st *memState) error {
		p, ok := st.packages[id]
		if !ok {
			return ledger.ErrPackageNotFound
		}
		out = &p
		return nil
	})
	return out, err
}

func (r *memLedger) ListPackagesForUser(_ context.Context, userID int) ([]ledger.Package, error) {
	out := []ledger.Package{}
	err := r.store.with(r.tx, "ListPackagesForUser", func(st *memState) error {
		for id, ps := range st.participants {
			for _, p := range ps {
				if p.UserID == userID {
					out = append(out, st.packages[id])
				}
			}
		}
		return nil
	})
	return out, err
}

func (r *memLedger) ListParticipants(_ context.Context, packageID int) ([]ledger.Participant, error) {
	var out []ledger.Participant
	err := r.store.with(r.tx, "ListParticipants", func(st *memState) error {
		out = append(out, st.participants[packageID]...)
		return nil
	})
	return out, err
}

func (r *memLedger) LockParticipants(ctx context.Context, packageID int) ([]ledger.Participant, error) {
	return r.ListParticipants(ctx, packageID)
}

func (r *memLedger) CountParticipants(_ context.Context, packageID int) (int, error) {
	var n int
	err := r.store.with(r.tx, "CountParticipants", func(st *memState) error {
		n = len(st.participants[packageID])
		return nil
	})
	return n, err
}

func (r *memLedger) adjust(op string, packageID int, userIDs []int, delta int) (int64, error) {
	var affected int64
	err := r.store.with(r.tx, op, func(st *memState) error {
		total := st.packages[packageID].TotalSessions
		ps := st.participants[packageID]
		for i := range ps {
			for _, uid := range userIDs {
				if ps[i].UserID != uid {
					continue
				}
				next := ps[i].UsedSessions + delta
				if next < 0 || next > total {
					continue
				}
				ps[i].UsedSessions = next
				affected++
			}
		}
		return nil
	})
	return affected, err
}

func (r *memLedger) IncrementUsed(_ context.Context, packageID int, userIDs []int) (int64, error) {
	return r.adjust("IncrementUsed", packageID, userIDs, 1)
}

func (r *memLedger) DecrementUsed(_ context.Context, packageID int, userIDs []int) (int64, error) {
	return r.adjust("DecrementUsed", packageID, userIDs, -1)
}

type stubDirectory struct {
	users map[int]user.User
}

func (d *stubDirectory) FindByID(_ context.Context, id int) (*user.User, error) {
	u, ok := d.users[id]
	if !ok {
		return nil, user.ErrUserNotFound
	}
	return &u, nil
}

func (d *stubDirectory) FindByIDs(_ context.Context, ids []int) ([]user.User, error) {
	var out []user.User
	for _, id := range ids {
		if u, ok := d.users[id]; ok {
			out = append(out, u)
		}
	}
	return out, nil
}

func (d *stubDirectory) ListAdmins(context.Context) ([]user.User, error) {
	var out []user.User
	for _, u := range d.users {
		if u.Role.IsAdmin() {
			out = append(out, u)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

type sentMail struct {
	To      string
	Subject string
	Body    string
}

type recordingNotifier struct {
	mu    sync.Mutex
	sent  []sentMail
	fail  map[string]error
	panic bool
}

func (n *recordingNotifier) Send(_ context.Context, to, subject, body string) error {
	if n.panic {
		panic("smtp client exploded")
	}
	n.mu.Lock()
	defer n.mu.Unlock()
	if err := n.fail[to]; err != nil {
		return err
	}
	n.sent = append(n.sent, sentMail{To: to, Subject: subject, Body: body})
	return nil
}

func (n *recordingNotifier) to(addr string) []sentMail {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []sentMail
	for _, m := range n.sent {
		if m.To == addr {
			out = append(out, m)
		}
	}
	return out
}

func (n *recordingNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.sent)
}

type publishedEvent struct {
	Type string
	Data any
}

type recordingPublisher struct {
	mu     sync.Mutex
	events []publishedEvent
}

func (p *recordingPublisher) Publish(_ context.Context, eventType string, data any) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, publishedEvent{Type: eventType, Data: data})
	return nil
}

func (p *recordingPublisher) types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []string
	for _, e := range p.events {
		out = append(out, e.Type)
	}
	return out
}

// blockingMirror never answers until the caller gives up.
type blockingMirror struct {
	calendar.Noop
}

func (blockingMirror) CreateEvent(ctx context.Context, _ calendar.Event) (string, error) {
	<-ctx.Done()
	return "", ctx.Err()
}
