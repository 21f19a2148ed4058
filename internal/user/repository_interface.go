package user

import "context"

type Repository interface {
	FindByID(ctx context.Context, id int) (*User, error)
	FindByIDs(ctx context.Context, ids []int) ([]User, error)
	ListAdmins(ctx context.Context) ([]User, error)
}
