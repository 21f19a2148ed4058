package ledger

import (
	"time"

	"trainerbook/internal/schedule"
)

// Package is a prepaid quota of training sessions.
type Package struct {
	ID              int       `db:"id" json:"id"`
	Name            string    `db:"name" json:"name"`
	TotalSessions   int       `db:"total_sessions" json:"total_sessions"`
	DurationMinutes int       `db:"duration_minutes" json:"duration_minutes"`
	IsActive        bool      `db:"is_active" json:"is_active"`
	CreatedAt       time.Time `db:"created_at" json:"created_at"`
}

// Participant is one ledger row: how many sessions a user has used from a package.
type Participant struct {
	PackageID    int `db:"package_id" json:"package_id"`
	UserID       int `db:"user_id" json:"user_id"`
	UsedSessions int `db:"used_sessions" json:"used_sessions"`
}

// Account is a package together with its ledger rows, loaded once per operation.
type Account struct {
	Package      Package
	Participants []Participant
}

type ParticipantBalance struct {
	UserID    int `json:"user_id"`
	Used      int `json:"used_sessions"`
	Remaining int `json:"remaining_sessions"`
}

type AccountSummary struct {
	Package      Package              `json:"package"`
	Kind         string               `json:"kind"`
	Participants []ParticipantBalance `json:"participants"`
}

func (a *Account) Kind() schedule.PackageKind {
	return schedule.KindFromParticipants(len(a.Participants))
}

func (a *Account) Shared() bool {
	return a.Kind() == schedule.KindShared
}

func (a *Account) participant(userID int) (*Participant, bool) {
	for i := range a.Participants {
		if a.Participants[i].UserID == userID {
			return &a.Participants[i], true
		}
	}
	return nil, false
}

func (a *Account) HasParticipant(userID int) bool {
	_, ok := a.participant(userID)
	return ok
}

// UserIDs lists every participant, in ledger order.
func (a *Account) UserIDs() []int {
	ids := make([]int, 0, len(a.Participants))
	for _, p := range a.Participants {
		ids = append(ids, p.UserID)
	}
	return ids
}

func (a *Account) Summary() AccountSummary {
	s := AccountSummary{Package: a.Package, Kind: a.Kind().String()}
	for _, p := range a.Participants {
		s.Participants = append(s.Participants, ParticipantBalance{
			UserID:    p.UserID,
			Used:      p.UsedSessions,
			Remaining: a.Package.TotalSessions - p.UsedSessions,
		})
	}
	return s
}
