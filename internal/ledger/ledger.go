package ledger

import (
	"context"
	"errors"
	"fmt"

	"trainerbook/internal/logger"
)

var (
	ErrPackageNotFound = errors.New("package not found")
	ErrPackageInactive = errors.New("package is not active")
	ErrNoParticipants  = errors.New("package has no participants")
	ErrNotParticipant  = errors.New("user is not a participant of the package")
	ErrQuotaExhausted  = errors.New("no sessions left")
	ErrLedgerOutOfSync = errors.New("ledger rows changed during the operation")
)

// Ledger applies session accounting to one package at a time. Build it over a
// transaction-scoped Repository so quota checks and mutations share the atomic
// unit of the booking write.
type Ledger struct {
	repo Repository
}

func New(repo Repository) *Ledger {
	return &Ledger{repo: repo}
}

// Load reads the package and its participant rows; lock takes row locks on the ledger.
func (l *Ledger) Load(ctx context.Context, packageID int, lock bool) (*Account, error) {
	pkg, err := l.repo.GetPackage(ctx, packageID)
	if err != nil {
		return nil, err
	}

	var rows []Participant
	if lock {
		rows, err = l.repo.LockParticipants(ctx, packageID)
	} else {
		rows, err = l.repo.ListParticipants(ctx, packageID)
	}
	if err != nil {
		return nil, fmt.Errorf("load participants of package %d: %w", packageID, err)
	}
	if len(rows) == 0 {
		return nil, fmt.Errorf("%w: package %d", ErrNoParticipants, packageID)
	}

	return &Account{Package: *pkg, Participants: rows}, nil
}

// Remaining is total minus used sessions for one participant of packageID.
func (l *Ledger) Remaining(ctx context.Context, packageID, userID int) (int, error) {
	acct, err := l.Load(ctx, packageID, false)
	if err != nil {
		return 0, err
	}
	return acct.Remaining(userID)
}

func (a *Account) Remaining(userID int) (int, error) {
	p, ok := a.participant(userID)
	if !ok {
		return 0, fmt.Errorf("%w: user %d, package %d", ErrNotParticipant, userID, a.Package.ID)
	}
	return a.Package.TotalSessions - p.UsedSessions, nil
}

// Audience is who a booking by userID is charged to: every participant of a
// shared package, otherwise the user alone.
func (a *Account) Audience(userID int) ([]int, error) {
	if !a.HasParticipant(userID) {
		return nil, fmt.Errorf("%w: user %d, package %d", ErrNotParticipant, userID, a.Package.ID)
	}
	if a.Shared() {
		return a.UserIDs(), nil
	}
	return []int{userID}, nil
}

// CheckQuota requires remaining > 0 for everyone in the audience.
func (a *Account) CheckQuota(userID int) error {
	audience, err := a.Audience(userID)
	if err != nil {
		return err
	}
	for _, id := range audience {
		remaining, _ := a.Remaining(id)
		if remaining <= 0 {
			return fmt.Errorf("%w: user %d, package %d", ErrQuotaExhausted, id, a.Package.ID)
		}
	}
	return nil
}

// Consume charges one session to the audience of userID.
func (l *Ledger) Consume(ctx context.Context, acct *Account, userID int) error {
	if !acct.Package.IsActive {
		return fmt.Errorf("%w: package %d", ErrPackageInactive, acct.Package.ID)
	}
	if err := acct.CheckQuota(userID); err != nil {
		return err
	}

	audience, _ := acct.Audience(userID)
	affected, err := l.repo.IncrementUsed(ctx, acct.Package.ID, audience)
	if err != nil {
		return fmt.Errorf("increment used sessions: %w", err)
	}
	if affected != int64(len(audience)) {
		return fmt.Errorf("%w: package %d changed while booking", ErrQuotaExhausted, acct.Package.ID)
	}

	for _, id := range audience {
		p, _ := acct.participant(id)
		p.UsedSessions++
	}
	return nil
}

// Restore gives back the session Consume took. Rows already at zero are left
// alone so used_sessions never goes negative.
func (l *Ledger) Restore(ctx context.Context, acct *Account, userID int) error {
	audience, err := acct.Audience(userID)
	if err != nil {
		return err
	}

	refundable := make([]int, 0, len(audience))
	for _, id := range audience {
		p, _ := acct.participant(id)
		if p.UsedSessions <= 0 {
			logger.Warn("ledger row already at zero, not restoring",
				"package_id", acct.Package.ID, "user_id", id)
			continue
		}
		refundable = append(refundable, id)
	}
	if len(refundable) == 0 {
		return nil
	}

	affected, err := l.repo.DecrementUsed(ctx, acct.Package.ID, refundable)
	if err != nil {
		return fmt.Errorf("decrement used sessions: %w", err)
	}
	if affected != int64(len(refundable)) {
		return fmt.Errorf("%w: package %d", ErrLedgerOutOfSync, acct.Package.ID)
	}

	for _, id := range refundable {
		p, _ := acct.participant(id)
		p.UsedSessions--
	}
	return nil
}
