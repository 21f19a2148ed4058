package ledger

import "context"

type Repository interface {
	GetPackage(ctx context.Context, id int) (*Package, error)
	ListPackagesForUser(ctx context.Context, userID int) ([]Package, error)
	ListParticipants(ctx context.Context, packageID int) ([]Participant, error)
	LockParticipants(ctx context.Context, packageID int) ([]Participant, error)
	CountParticipants(ctx context.Context, packageID int) (int, error)
	IncrementUsed(ctx context.Context, packageID int, userIDs []int) (int64, error)
	DecrementUsed(ctx context.Context, packageID int, userIDs []int) (int64, error)
}
