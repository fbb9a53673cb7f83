package service

import (
	"context"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/mock"

	"github.com/studyhive/studyroom-server/internal/database"
	"github.com/studyhive/studyroom-server/internal/model"
	"github.com/studyhive/studyroom-server/internal/repository"
)

// fakeTxRunner runs the transaction body directly; the mocks below ignore
// the nil tx.
type fakeTxRunner struct{}

func (fakeTxRunner) WithTx(ctx context.Context, fn database.TxFunc) error {
	return fn(nil)
}

// Mock timer repository
type mockTimerRepo struct {
	mock.Mock
}

func (m *mockTimerRepo) FindOpen(ctx context.Context, userID, roomID int64) (*model.Timer, error) {
	args := m.Called(ctx, userID, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Timer), args.Error(1)
}

func (m *mockTimerRepo) FindOpenByRoom(ctx context.Context, roomID int64) ([]model.Timer, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Timer), args.Error(1)
}

func (m *mockTimerRepo) Create(ctx context.Context, params model.CreateTimerParams) (*model.Timer, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Timer), args.Error(1)
}

func (m *mockTimerRepo) Close(ctx context.Context, userID, roomID int64, endTime time.Time) (*model.Timer, error) {
	args := m.Called(ctx, userID, roomID, endTime)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Timer), args.Error(1)
}

func (m *mockTimerRepo) SumByRoom(ctx context.Context, roomID int64, since *time.Time) ([]model.UserTotal, error) {
	args := m.Called(ctx, roomID, since)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.UserTotal), args.Error(1)
}

func (m *mockTimerRepo) FindCompletedByUser(ctx context.Context, userID int64) ([]model.Timer, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Timer), args.Error(1)
}

// Mock user repository
type mockUserRepo struct {
	mock.Mock
}

func (m *mockUserRepo) FindByID(ctx context.Context, id int64) (*model.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) FindByIDs(ctx context.Context, ids []int64) ([]model.User, error) {
	args := m.Called(ctx, ids)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.User), args.Error(1)
}

func (m *mockUserRepo) FindByEmail(ctx context.Context, email string) (*model.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) FindByTokenHash(ctx context.Context, tokenHash string) (*model.User, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) Create(ctx context.Context, params model.CreateUserParams) (*model.User, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.User), args.Error(1)
}

func (m *mockUserRepo) UpdateTokenHash(ctx context.Context, id int64, tokenHash string) error {
	args := m.Called(ctx, id, tokenHash)
	return args.Error(0)
}

func (m *mockUserRepo) ClearTokenHash(ctx context.Context, id int64) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

// Mock room repository
type mockRoomRepo struct {
	mock.Mock
}

func (m *mockRoomRepo) WithTx(tx *sqlx.Tx) repository.RoomRepository {
	return m
}

func (m *mockRoomRepo) FindByID(ctx context.Context, id int64) (*model.Room, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Room), args.Error(1)
}

func (m *mockRoomRepo) FindByCode(ctx context.Context, code string) (*model.Room, error) {
	args := m.Called(ctx, code)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Room), args.Error(1)
}

func (m *mockRoomRepo) FindByUserID(ctx context.Context, userID int64) ([]model.Room, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.Room), args.Error(1)
}

func (m *mockRoomRepo) Create(ctx context.Context, params model.CreateRoomParams) (*model.Room, error) {
	args := m.Called(ctx, params)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*model.Room), args.Error(1)
}

func (m *mockRoomRepo) AddMember(ctx context.Context, roomID, userID int64) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

func (m *mockRoomRepo) RemoveMember(ctx context.Context, roomID, userID int64) error {
	args := m.Called(ctx, roomID, userID)
	return args.Error(0)
}

func (m *mockRoomRepo) IsMember(ctx context.Context, roomID, userID int64) (bool, error) {
	args := m.Called(ctx, roomID, userID)
	return args.Bool(0), args.Error(1)
}

func (m *mockRoomRepo) ListMembers(ctx context.Context, roomID int64) ([]model.MemberProfile, error) {
	args := m.Called(ctx, roomID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]model.MemberProfile), args.Error(1)
}
