package schedule

import "trainerbook/internal/auth"

// DefaultProbeMinutes is the duration assumed when listing availability
// before a package (and so its real duration) is known.
const DefaultProbeMinutes = 60

// PackageKind is the shared/single classification of a package,
// computed once per operation from its participant count.
type PackageKind int

const (
	// KindUnknown is treated like KindShared.
	KindUnknown PackageKind = iota
	KindSingle
	KindShared
)

func KindFromParticipants(n int) PackageKind {
	if n > 1 {
		return KindShared
	}
	return KindSingle
}

func (k PackageKind) String() string {
	switch k {
	case KindSingle:
		return "single"
	case KindShared:
		return "shared"
	default:
		return "unknown"
	}
}

type Reason string

const (
	ReasonNone           Reason = ""
	ReasonSlotTaken      Reason = "slot_taken"
	ReasonSharedConflict Reason = "shared_conflict"
	ReasonSamePackage    Reason = "same_package"
	ReasonCoBookingLimit Reason = "co_booking_limit"
	ReasonExternalBusy   Reason = "external_busy"
)

// maxCoBookedPackages is how many distinct single packages may share an
// instant when an admin books.
const maxCoBookedPackages = 2

// Interval is a [Start, End) range in minutes since midnight.
type Interval struct {
	Start int
	End   int
}

func (i Interval) Overlaps(o Interval) bool {
	return i.Start < o.End && i.End > o.Start
}

// Booked is an existing CONFIRMED booking of the day.
type Booked struct {
	ID        int
	PackageID int
	Start     int
	Duration  int
	Shared    bool
}

func (b Booked) Interval() Interval {
	return Interval{Start: b.Start, End: b.Start + b.Duration}
}

type Candidate struct {
	Start     int
	Duration  int
	Role      auth.Role
	PackageID int
	Kind      PackageKind
	// ExcludeID skips the booking being moved on reschedule.
	ExcludeID int
}

func (c Candidate) Interval() Interval {
	return Interval{Start: c.Start, End: c.Start + c.Duration}
}

type Decision struct {
	Bookable bool
	Reason   Reason
}

func allow() Decision          { return Decision{Bookable: true} }
func reject(r Reason) Decision { return Decision{Reason: r} }

// Resolve decides whether the candidate may be booked next to the existing
// bookings. Availability listing and booking validation both go through here.
func Resolve(c Candidate, existing []Booked) Decision {
	want := c.Interval()

	var overlapping []Booked
	for _, b := range existing {
		if c.ExcludeID != 0 && b.ID == c.ExcludeID {
			continue
		}
		if want.Overlaps(b.Interval()) {
			overlapping = append(overlapping, b)
		}
	}

	if len(overlapping) == 0 {
		return allow()
	}
	if !c.Role.IsAdmin() {
		return reject(ReasonSlotTaken)
	}
	if c.Kind != KindSingle {
		return reject(ReasonSharedConflict)
	}

	packages := make(map[int]struct{}, len(overlapping))
	for _, b := range overlapping {
		if b.Shared {
			return reject(ReasonSharedConflict)
		}
		if b.PackageID == c.PackageID {
			return reject(ReasonSamePackage)
		}
		packages[b.PackageID] = struct{}{}
	}
	if len(packages) >= maxCoBookedPackages {
		return reject(ReasonCoBookingLimit)
	}

	return allow()
}
