package ledger

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

type repository struct {
	db sqlx.ExtContext
}

// NewRepository works on a *sqlx.DB or, inside an atomic unit, a *sqlx.Tx.
func NewRepository(db sqlx.ExtContext) Repository {
	return &repository{db: db}
}

func (r *repository) GetPackage(ctx context.Context, id int) (*Package, error) {
	query := `
		SELECT id, name, total_sessions, duration_minutes, is_active, created_at
		FROM packages
		WHERE id = $1
	`

	var p Package
	err := sqlx.GetContext(ctx, r.db, &p, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrPackageNotFound
	}
	if err != nil {
		return nil, err
	}

	return &p, nil
}

func (r *repository) ListPackagesForUser(ctx context.Context, userID int) ([]Package, error) {
	query := `
		SELECT p.id, p.name, p.total_sessions, p.duration_minutes, p.is_active, p.created_at
		FROM packages p
		JOIN package_participants pp ON pp.package_id = p.id
		WHERE pp.user_id = $1
		ORDER BY p.id
	`

	packages := []Package{}
	if err := sqlx.SelectContext(ctx, r.db, &packages, query, userID); err != nil {
		return nil, err
	}
	return packages, nil
}

func (r *repository) ListParticipants(ctx context.Context, packageID int) ([]Participant, error) {
	query := `
		SELECT package_id, user_id, used_sessions
		FROM package_participants
		WHERE package_id = $1
		ORDER BY user_id
	`

	var rows []Participant
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, packageID); err != nil {
		return nil, err
	}
	return rows, nil
}

// LockParticipants reads the ledger rows with FOR UPDATE; only meaningful inside a transaction.
func (r *repository) LockParticipants(ctx context.Context, packageID int) ([]Participant, error) {
	query := `
		SELECT package_id, user_id, used_sessions
		FROM package_participants
		WHERE package_id = $1
		ORDER BY user_id
		FOR UPDATE
	`

	var rows []Participant
	if err := sqlx.SelectContext(ctx, r.db, &rows, query, packageID); err != nil {
		return nil, err
	}
	return rows, nil
}

func (r *repository) CountParticipants(ctx context.Context, packageID int) (int, error) {
	query := `SELECT COUNT(*) FROM package_participants WHERE package_id = $1`

	var count int
	if err := sqlx.GetContext(ctx, r.db, &count, query, packageID); err != nil {
		return 0, err
	}
	return count, nil
}

// IncrementUsed never pushes a row past the package total; the caller compares
// the affected count with len(userIDs).
func (r *repository) IncrementUsed(ctx context.Context, packageID int, userIDs []int) (int64, error) {
	query := `
		UPDATE package_participants pp
		SET used_sessions = pp.used_sessions + 1
		FROM packages p
		WHERE p.id = pp.package_id
		  AND pp.package_id = $1
		  AND pp.user_id = ANY($2)
		  AND pp.used_sessions < p.total_sessions
	`

	result, err := r.db.ExecContext(ctx, query, packageID, pq.Array(userIDs))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}

func (r *repository) DecrementUsed(ctx context.Context, packageID int, userIDs []int) (int64, error) {
	query := `
		UPDATE package_participants
		SET used_sessions = used_sessions - 1
		WHERE package_id = $1
		  AND user_id = ANY($2)
		  AND used_sessions > 0
	`

	result, err := r.db.ExecContext(ctx, query, packageID, pq.Array(userIDs))
	if err != nil {
		return 0, err
	}
	return result.RowsAffected()
}
