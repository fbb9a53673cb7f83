package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/studyhive/studyroom-server/internal/model"
)

func completedTimer(userID, roomID int64, start time.Time, duration int64) model.Timer {
	end := start.Add(time.Duration(duration) * time.Second)
	return model.Timer{
		UserID:    userID,
		RoomID:    roomID,
		StartTime: start,
		EndTime:   &end,
		Duration:  duration,
	}
}

func TestStatsService_AnalysisRollups(t *testing.T) {
	timerRepo := new(mockTimerRepo)
	roomRepo := new(mockRoomRepo)
	svc := NewStatsService(timerRepo, roomRepo)
	ctx := context.Background()

	mon := time.Date(2024, time.March, 11, 9, 0, 0, 0, time.UTC)
	tue := time.Date(2024, time.March, 12, 9, 0, 0, 0, time.UTC)
	nextMon := time.Date(2024, time.March, 18, 9, 0, 0, 0, time.UTC)

	timerRepo.On("FindCompletedByUser", ctx, int64(1)).Return([]model.Timer{
		completedTimer(1, 9, mon, 600),
		completedTimer(1, 9, mon.Add(4*time.Hour), 300),
		completedTimer(1, 12, tue, 1200),
		completedTimer(1, 9, nextMon, 900),
	}, nil)
	roomRepo.On("FindByID", ctx, int64(9)).Return(&model.Room{ID: 9, Name: "Focus"}, nil)
	roomRepo.On("FindByID", ctx, int64(12)).Return(&model.Room{ID: 12, Name: "Deep Work"}, nil)

	analysis, err := svc.Analysis(ctx, 1)
	require.NoError(t, err)

	require.Len(t, analysis.Daily, 3)
	assert.Equal(t, DailyTotal{Date: "2024-03-11", TotalSeconds: 900}, analysis.Daily[0])
	assert.Equal(t, DailyTotal{Date: "2024-03-12", TotalSeconds: 1200}, analysis.Daily[1])
	assert.Equal(t, DailyTotal{Date: "2024-03-18", TotalSeconds: 900}, analysis.Daily[2])

	require.Len(t, analysis.Weekly, 2)
	assert.Equal(t, WeeklyTotal{Week: "2024-W11", TotalSeconds: 2100}, analysis.Weekly[0])
	assert.Equal(t, WeeklyTotal{Week: "2024-W12", TotalSeconds: 900}, analysis.Weekly[1])

	require.Len(t, analysis.RoomComparison, 2)
	assert.Equal(t, RoomTotal{Room: "Deep Work", TotalSeconds: 1200}, analysis.RoomComparison[0])
	assert.Equal(t, RoomTotal{Room: "Focus", TotalSeconds: 1800}, analysis.RoomComparison[1])

	assert.Equal(t, []int64{600, 300, 1200, 900}, analysis.SessionDurations)
}

func TestStatsService_AnalysisDeletedRoomKeepsPlaceholder(t *testing.T) {
	timerRepo := new(mockTimerRepo)
	roomRepo := new(mockRoomRepo)
	svc := NewStatsService(timerRepo, roomRepo)
	ctx := context.Background()

	start := time.Date(2024, time.March, 11, 9, 0, 0, 0, time.UTC)
	timerRepo.On("FindCompletedByUser", ctx, int64(1)).Return([]model.Timer{
		completedTimer(1, 77, start, 120),
	}, nil)
	roomRepo.On("FindByID", ctx, int64(77)).Return(nil, nil)

	analysis, err := svc.Analysis(ctx, 1)
	require.NoError(t, err)

	require.Len(t, analysis.RoomComparison, 1)
	assert.Equal(t, RoomTotal{Room: "Room 77", TotalSeconds: 120}, analysis.RoomComparison[0])
}

func TestStatsService_AnalysisNoSessions(t *testing.T) {
	timerRepo := new(mockTimerRepo)
	roomRepo := new(mockRoomRepo)
	svc := NewStatsService(timerRepo, roomRepo)
	ctx := context.Background()

	timerRepo.On("FindCompletedByUser", ctx, int64(1)).Return([]model.Timer{}, nil)

	analysis, err := svc.Analysis(ctx, 1)
	require.NoError(t, err)

	assert.Empty(t, analysis.Daily)
	assert.Empty(t, analysis.Weekly)
	assert.Empty(t, analysis.RoomComparison)
	assert.Empty(t, analysis.SessionDurations)
}
