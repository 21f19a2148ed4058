package ledger

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"trainerbook/internal/schedule"
)

type MockRepo struct{ mock.Mock }

func (m *MockRepo) GetPackage(ctx context.Context, id int) (*Package, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*Package), args.Error(1)
}

func (m *MockRepo) ListPackagesForUser(ctx context.Context, userID int) ([]Package, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Package), args.Error(1)
}

func (m *MockRepo) ListParticipants(ctx context.Context, packageID int) ([]Participant, error) {
	args := m.Called(ctx, packageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Participant), args.Error(1)
}

func (m *MockRepo) LockParticipants(ctx context.Context, packageID int) ([]Participant, error) {
	args := m.Called(ctx, packageID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]Participant), args.Error(1)
}

func (m *MockRepo) CountParticipants(ctx context.Context, packageID int) (int, error) {
	args := m.Called(ctx, packageID)
	return args.Int(0), args.Error(1)
}

func (m *MockRepo) IncrementUsed(ctx context.Context, packageID int, userIDs []int) (int64, error) {
	args := m.Called(ctx, packageID, userIDs)
	return args.Get(0).(int64), args.Error(1)
}

func (m *MockRepo) DecrementUsed(ctx context.Context, packageID int, userIDs []int) (int64, error) {
	args := m.Called(ctx, packageID, userIDs)
	return args.Get(0).(int64), args.Error(1)
}

func account(total int, used map[int]int, order ...int) *Account {
	acct := &Account{Package: Package{ID: 5, TotalSessions: total, DurationMinutes: 60, IsActive: true}}
	for _, id := range order {
		acct.Participants = append(acct.Participants, Participant{PackageID: 5, UserID: id, UsedSessions: used[id]})
	}
	return acct
}

func TestAccountKind(t *testing.T) {
	assert.Equal(t, schedule.KindSingle, account(10, nil, 1).Kind())
	assert.Equal(t, schedule.KindShared, account(10, nil, 1, 2).Kind())
}

func TestAccountAudience(t *testing.T) {
	single := account(10, nil, 1)
	ids, err := single.Audience(1)
	require.NoError(t, err)
	assert.Equal(t, []int{1}, ids)

	_, err = single.Audience(9)
	assert.ErrorIs(t, err, ErrNotParticipant)

	shared := account(10, nil, 1, 2, 3)
	ids, err = shared.Audience(2)
	require.NoError(t, err)
	assert.Equal(t, []int{1, 2, 3}, ids)
}

func TestCheckQuota(t *testing.T) {
	tests := []struct {
		name    string
		acct    *Account
		userID  int
		wantErr error
	}{
		{"single with sessions left", account(10, map[int]int{1: 9}, 1), 1, nil},
		{"single exhausted", account(10, map[int]int{1: 10}, 1), 1, ErrQuotaExhausted},
		{"shared all have sessions", account(5, map[int]int{1: 4, 2: 2}, 1, 2), 2, nil},
		{"shared one participant exhausted blocks everyone", account(5, map[int]int{1: 5, 2: 2}, 1, 2), 2, ErrQuotaExhausted},
		{"not a participant", account(5, nil, 1), 7, ErrNotParticipant},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.acct.CheckQuota(tt.userID)
			if tt.wantErr == nil {
				assert.NoError(t, err)
				return
			}
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestLoad(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepo)
	repo.On("GetPackage", ctx, 5).Return(&Package{ID: 5, TotalSessions: 10, IsActive: true}, nil)
	repo.On("LockParticipants", ctx, 5).Return([]Participant{{PackageID: 5, UserID: 1, UsedSessions: 3}}, nil)

	acct, err := New(repo).Load(ctx, 5, true)
	require.NoError(t, err)

	remaining, err := acct.Remaining(1)
	require.NoError(t, err)
	assert.Equal(t, 7, remaining)
	repo.AssertExpectations(t)
	repo.AssertNotCalled(t, "ListParticipants", mock.Anything, mock.Anything)
}

func TestLoadWithoutParticipants(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepo)
	repo.On("GetPackage", ctx, 5).Return(&Package{ID: 5, TotalSessions: 10}, nil)
	repo.On("ListParticipants", ctx, 5).Return([]Participant{}, nil)

	_, err := New(repo).Load(ctx, 5, false)
	assert.ErrorIs(t, err, ErrNoParticipants)
}

func TestRemaining(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepo)
	repo.On("GetPackage", ctx, 5).Return(&Package{ID: 5, TotalSessions: 10, IsActive: true}, nil)
	repo.On("ListParticipants", ctx, 5).Return([]Participant{{PackageID: 5, UserID: 1, UsedSessions: 9}}, nil)

	remaining, err := New(repo).Remaining(ctx, 5, 1)
	require.NoError(t, err)
	assert.Equal(t, 1, remaining)
}

func TestConsumeSingle(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepo)
	acct := account(10, map[int]int{1: 9}, 1)
	repo.On("IncrementUsed", ctx, 5, []int{1}).Return(int64(1), nil)

	require.NoError(t, New(repo).Consume(ctx, acct, 1))

	remaining, _ := acct.Remaining(1)
	assert.Equal(t, 0, remaining)
	assert.ErrorIs(t, acct.CheckQuota(1), ErrQuotaExhausted)
	repo.AssertExpectations(t)
}

func TestConsumeSharedChargesEveryone(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepo)
	acct := account(5, map[int]int{1: 4, 2: 2}, 1, 2)
	repo.On("IncrementUsed", ctx, 5, []int{1, 2}).Return(int64(2), nil)

	require.NoError(t, New(repo).Consume(ctx, acct, 2))

	assert.Equal(t, 5, acct.Participants[0].UsedSessions)
	assert.Equal(t, 3, acct.Participants[1].UsedSessions)
}

func TestConsumeRejectsBeforeWriting(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepo)

	err := New(repo).Consume(ctx, account(5, map[int]int{1: 5, 2: 0}, 1, 2), 2)
	assert.ErrorIs(t, err, ErrQuotaExhausted)

	inactive := account(5, nil, 1)
	inactive.Package.IsActive = false
	err = New(repo).Consume(ctx, inactive, 1)
	assert.ErrorIs(t, err, ErrPackageInactive)

	repo.AssertNotCalled(t, "IncrementUsed", mock.Anything, mock.Anything, mock.Anything)
}

func TestConsumeDetectsConcurrentUse(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepo)
	acct := account(5, map[int]int{1: 1, 2: 1}, 1, 2)
	repo.On("IncrementUsed", ctx, 5, []int{1, 2}).Return(int64(1), nil)

	err := New(repo).Consume(ctx, acct, 1)
	assert.ErrorIs(t, err, ErrQuotaExhausted)
}

func TestConsumePropagatesStoreError(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepo)
	boom := errors.New("connection reset")
	repo.On("IncrementUsed", ctx, 5, []int{1}).Return(int64(0), boom)

	err := New(repo).Consume(ctx, account(5, nil, 1), 1)
	assert.ErrorIs(t, err, boom)
}

func TestRestoreIsInverseOfConsume(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepo)
	acct := account(5, map[int]int{1: 2, 2: 4}, 1, 2)
	repo.On("IncrementUsed", ctx, 5, []int{1, 2}).Return(int64(2), nil)
	repo.On("DecrementUsed", ctx, 5, []int{1, 2}).Return(int64(2), nil)

	l := New(repo)
	require.NoError(t, l.Consume(ctx, acct, 1))
	require.NoError(t, l.Restore(ctx, acct, 1))

	assert.Equal(t, 2, acct.Participants[0].UsedSessions)
	assert.Equal(t, 4, acct.Participants[1].UsedSessions)
}

func TestRestoreSkipsRowsAtZero(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepo)
	acct := account(5, map[int]int{1: 0, 2: 3}, 1, 2)
	repo.On("DecrementUsed", ctx, 5, []int{2}).Return(int64(1), nil)

	require.NoError(t, New(repo).Restore(ctx, acct, 1))

	assert.Equal(t, 0, acct.Participants[0].UsedSessions)
	assert.Equal(t, 2, acct.Participants[1].UsedSessions)
	repo.AssertExpectations(t)
}

func TestRestoreDetectsLedgerDrift(t *testing.T) {
	ctx := context.Background()
	repo := new(MockRepo)
	acct := account(5, map[int]int{1: 1}, 1)
	repo.On("DecrementUsed", ctx, 5, []int{1}).Return(int64(0), nil)

	err := New(repo).Restore(ctx, acct, 1)
	assert.ErrorIs(t, err, ErrLedgerOutOfSync)
}

func TestSummary(t *testing.T) {
	s := account(5, map[int]int{1: 4, 2: 2}, 1, 2).Summary()

	assert.Equal(t, "shared", s.Kind)
	require.Len(t, s.Participants, 2)
	assert.Equal(t, 1, s.Participants[0].Remaining)
	assert.Equal(t, 3, s.Participants[1].Remaining)
}
