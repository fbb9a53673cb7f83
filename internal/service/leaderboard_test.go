package service

import (
	"context"
	"testing"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apperrors "github.com/studyhive/studyroom-server/internal/errors"
	"github.com/studyhive/studyroom-server/internal/model"
)

// Wednesday 2024-03-13 15:30 UTC.
var leaderboardNow = time.Date(2024, time.March, 13, 15, 30, 0, 0, time.UTC)

func newLeaderboardFixture(t *testing.T) (*LeaderboardService, *mockTimerRepo, *mockUserRepo, *mockRoomRepo) {
	t.Helper()
	timerRepo := new(mockTimerRepo)
	userRepo := new(mockUserRepo)
	roomRepo := new(mockRoomRepo)
	clock := clockwork.NewFakeClockAt(leaderboardNow)
	svc := NewLeaderboardService(timerRepo, userRepo, roomRepo, nil, clock, 10*time.Second)
	return svc, timerRepo, userRepo, roomRepo
}

func TestLeaderboardService_WindowBoundaries(t *testing.T) {
	svc, timerRepo, userRepo, roomRepo := newLeaderboardFixture(t)
	ctx := context.Background()

	roomRepo.On("FindByCode", ctx, "focus").Return(&model.Room{ID: 9, Code: "focus"}, nil)

	day := time.Date(2024, time.March, 13, 0, 0, 0, 0, time.UTC)
	week := time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)
	month := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)

	timerRepo.On("SumByRoom", ctx, int64(9), (*time.Time)(nil)).
		Return([]model.UserTotal{{UserID: 1, Total: 400}}, nil)
	timerRepo.On("SumByRoom", ctx, int64(9), &month).
		Return([]model.UserTotal{{UserID: 1, Total: 300}}, nil)
	timerRepo.On("SumByRoom", ctx, int64(9), &week).
		Return([]model.UserTotal{{UserID: 1, Total: 200}}, nil)
	timerRepo.On("SumByRoom", ctx, int64(9), &day).
		Return([]model.UserTotal{{UserID: 1, Total: 100}}, nil)
	userRepo.On("FindByIDs", ctx, []int64{1}).
		Return([]model.User{{ID: 1, Name: "ana"}}, nil)

	board, err := svc.ForRoom(ctx, "focus")
	require.NoError(t, err)

	assert.Equal(t, int64(400), board.Overall[0].TotalSeconds)
	assert.Equal(t, int64(300), board.Monthly[0].TotalSeconds)
	assert.Equal(t, int64(200), board.Weekly[0].TotalSeconds)
	assert.Equal(t, int64(100), board.Daily[0].TotalSeconds)
	timerRepo.AssertExpectations(t)
}

func TestLeaderboardService_SundayBelongsToMondayWeek(t *testing.T) {
	timerRepo := new(mockTimerRepo)
	userRepo := new(mockUserRepo)
	roomRepo := new(mockRoomRepo)
	// Sunday 2024-03-17: the week still starts Monday 2024-03-11.
	clock := clockwork.NewFakeClockAt(time.Date(2024, time.March, 17, 9, 0, 0, 0, time.UTC))
	svc := NewLeaderboardService(timerRepo, userRepo, roomRepo, nil, clock, 10*time.Second)
	ctx := context.Background()

	roomRepo.On("FindByCode", ctx, "focus").Return(&model.Room{ID: 9}, nil)

	day := time.Date(2024, time.March, 17, 0, 0, 0, 0, time.UTC)
	week := time.Date(2024, time.March, 11, 0, 0, 0, 0, time.UTC)
	month := time.Date(2024, time.March, 1, 0, 0, 0, 0, time.UTC)
	timerRepo.On("SumByRoom", ctx, int64(9), (*time.Time)(nil)).Return([]model.UserTotal{}, nil)
	timerRepo.On("SumByRoom", ctx, int64(9), &month).Return([]model.UserTotal{}, nil)
	timerRepo.On("SumByRoom", ctx, int64(9), &week).Return([]model.UserTotal{}, nil)
	timerRepo.On("SumByRoom", ctx, int64(9), &day).Return([]model.UserTotal{}, nil)

	_, err := svc.ForRoom(ctx, "focus")
	require.NoError(t, err)
	timerRepo.AssertExpectations(t)
}

func TestLeaderboardService_RanksByTotalThenUserID(t *testing.T) {
	svc, timerRepo, userRepo, roomRepo := newLeaderboardFixture(t)
	ctx := context.Background()

	roomRepo.On("FindByCode", ctx, "focus").Return(&model.Room{ID: 9}, nil)
	timerRepo.On("SumByRoom", ctx, int64(9), mock.Anything).
		Return([]model.UserTotal{
			{UserID: 3, Total: 50},
			{UserID: 1, Total: 100},
			{UserID: 2, Total: 100},
		}, nil)
	userRepo.On("FindByIDs", ctx, []int64{3, 1, 2}).
		Return([]model.User{
			{ID: 1, Name: "ana"},
			{ID: 2, Name: "ben"},
			{ID: 3, Name: "cho"},
		}, nil)

	board, err := svc.ForRoom(ctx, "focus")
	require.NoError(t, err)

	require.Len(t, board.Overall, 3)
	assert.Equal(t, int64(1), board.Overall[0].UserID)
	assert.Equal(t, int64(2), board.Overall[1].UserID)
	assert.Equal(t, int64(3), board.Overall[2].UserID)
}

func TestLeaderboardService_UnknownRoom(t *testing.T) {
	svc, _, _, roomRepo := newLeaderboardFixture(t)
	ctx := context.Background()

	roomRepo.On("FindByCode", ctx, "ghost").Return(nil, nil)

	_, err := svc.ForRoom(ctx, "ghost")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeNotFound, apperrors.GetCode(err))
}

func TestLeaderboardService_EmptyWindowsAreEmptyLists(t *testing.T) {
	svc, timerRepo, _, roomRepo := newLeaderboardFixture(t)
	ctx := context.Background()

	roomRepo.On("FindByCode", ctx, "focus").Return(&model.Room{ID: 9}, nil)
	timerRepo.On("SumByRoom", ctx, int64(9), mock.Anything).
		Return([]model.UserTotal{}, nil)

	board, err := svc.ForRoom(ctx, "focus")
	require.NoError(t, err)

	assert.NotNil(t, board.Overall)
	assert.Empty(t, board.Overall)
	assert.Empty(t, board.Daily)
}
