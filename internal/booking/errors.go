package booking

import (
	"errors"
	"fmt"

	"trainerbook/internal/ledger"
	"trainerbook/internal/schedule"
)

var (
	ErrValidation       = errors.New("invalid booking request")
	ErrNotFound         = errors.New("booking not found")
	ErrSlotConflict     = errors.New("slot is not available")
	ErrForbidden        = errors.New("operation not allowed")
	ErrNoticePeriod     = fmt.Errorf("%w: cancellations close 3 hours before the session", ErrForbidden)
	ErrAlreadyCancelled = errors.New("booking already cancelled")
)

// ConflictError carries the overlap rule that rejected the slot.
type ConflictError struct {
	Reason schedule.Reason
}

func (e *ConflictError) Error() string {
	return fmt.Sprintf("%s: %s", ErrSlotConflict, e.Reason)
}

func (e *ConflictError) Unwrap() error {
	return ErrSlotConflict
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrValidation, fmt.Sprintf(format, args...))
}

// Category names the error class reported to callers and in metrics.
func Category(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, ErrValidation):
		return "validation"
	case errors.Is(err, ledger.ErrQuotaExhausted):
		return "quota_exhausted"
	case errors.Is(err, ErrSlotConflict):
		return "slot_conflict"
	case errors.Is(err, ErrForbidden):
		return "forbidden"
	case errors.Is(err, ErrNotFound):
		return "not_found"
	case errors.Is(err, ErrAlreadyCancelled):
		return "already_cancelled"
	default:
		return "internal"
	}
}

// fromLedger turns ledger lookup failures into request errors.
func fromLedger(err error) error {
	switch {
	case errors.Is(err, ledger.ErrPackageNotFound),
		errors.Is(err, ledger.ErrNoParticipants),
		errors.Is(err, ledger.ErrPackageInactive):
		return fmt.Errorf("%w: %w", ErrValidation, err)
	default:
		return err
	}
}
