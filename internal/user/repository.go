package user

import (
	"context"
	"database/sql"
	"errors"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var ErrUserNotFound = errors.New("user not found")

const userColumns = `id, name, email, phone, role, notifications_enabled, created_at`

type repository struct {
	db sqlx.ExtContext
}

func NewRepository(db sqlx.ExtContext) Repository {
	return &repository{db: db}
}

func (r *repository) FindByID(ctx context.Context, id int) (*User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE id = $1`

	var u User
	err := sqlx.GetContext(ctx, r.db, &u, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}

	return &u, nil
}

func (r *repository) FindByIDs(ctx context.Context, ids []int) ([]User, error) {
	users := []User{}
	if len(ids) == 0 {
		return users, nil
	}

	query := `SELECT ` + userColumns + ` FROM users WHERE id = ANY($1) ORDER BY id`
	if err := sqlx.SelectContext(ctx, r.db, &users, query, pq.Array(ids)); err != nil {
		return nil, err
	}
	return users, nil
}

func (r *repository) ListAdmins(ctx context.Context) ([]User, error) {
	query := `SELECT ` + userColumns + ` FROM users WHERE role = 'admin' ORDER BY id`

	users := []User{}
	if err := sqlx.SelectContext(ctx, r.db, &users, query); err != nil {
		return nil, err
	}
	return users, nil
}
