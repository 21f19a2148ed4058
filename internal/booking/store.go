package booking

import (
	"context"

	"github.com/jmoiron/sqlx"

	"trainerbook/internal/db"
	"trainerbook/internal/ledger"
)

// UnitOfWork exposes repositories bound to one transaction, or to the pool
// for reads outside of one.
type UnitOfWork interface {
	Bookings() Repository
	Ledger() ledger.Repository
}

// Store runs fn atomically: every write made through uow commits together
// or not at all.
type Store interface {
	UnitOfWork
	Atomically(ctx context.Context, fn func(uow UnitOfWork) error) error
}

type unit struct {
	bookings Repository
	ledger   ledger.Repository
}

func (u *unit) Bookings() Repository      { return u.bookings }
func (u *unit) Ledger() ledger.Repository { return u.ledger }

type pgStore struct {
	unit
	db *sqlx.DB
}

func NewStore(conn *sqlx.DB) Store {
	return &pgStore{
		unit: unit{bookings: NewRepository(conn), ledger: ledger.NewRepository(conn)},
		db:   conn,
	}
}

func (s *pgStore) Atomically(ctx context.Context, fn func(uow UnitOfWork) error) error {
	return db.RunInTx(ctx, s.db, func(tx *sqlx.Tx) error {
		return fn(&unit{bookings: NewRepository(tx), ledger: ledger.NewRepository(tx)})
	})
}
