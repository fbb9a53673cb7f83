package service

import (
	"context"
	"fmt"
	"sort"

	"github.com/studyhive/studyroom-server/internal/repository"
)

type DailyTotal struct {
	Date         string `json:"date"`
	TotalSeconds int64  `json:"totalSeconds"`
}

type WeeklyTotal struct {
	Week         string `json:"week"`
	TotalSeconds int64  `json:"totalSeconds"`
}

type RoomTotal struct {
	Room         string `json:"room"`
	TotalSeconds int64  `json:"totalSeconds"`
}

// StudyAnalysis is a user's personal rollup over their completed sessions.
type StudyAnalysis struct {
	Daily            []DailyTotal  `json:"daily"`
	Weekly           []WeeklyTotal `json:"weekly"`
	SessionDurations []int64       `json:"sessionDurations"`
	RoomComparison   []RoomTotal   `json:"roomComparison"`
}

type StatsService struct {
	timerRepo repository.TimerRepository
	roomRepo  repository.RoomRepository
}

func NewStatsService(timerRepo repository.TimerRepository, roomRepo repository.RoomRepository) *StatsService {
	return &StatsService{
		timerRepo: timerRepo,
		roomRepo:  roomRepo,
	}
}

// Analysis aggregates the user's completed sessions by calendar day, ISO
// week and room. Rooms that no longer resolve keep a placeholder label so
// the totals still add up.
func (s *StatsService) Analysis(ctx context.Context, userID int64) (*StudyAnalysis, error) {
	timers, err := s.timerRepo.FindCompletedByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("find completed timers: %w", err)
	}

	daily := make(map[string]int64)
	weekly := make(map[string]int64)
	byRoom := make(map[int64]int64)
	durations := make([]int64, 0, len(timers))

	for _, timer := range timers {
		start := timer.StartTime.UTC()
		daily[start.Format("2006-01-02")] += timer.Duration

		year, week := start.ISOWeek()
		weekly[fmt.Sprintf("%d-W%02d", year, week)] += timer.Duration

		byRoom[timer.RoomID] += timer.Duration
		durations = append(durations, timer.Duration)
	}

	analysis := &StudyAnalysis{
		Daily:            make([]DailyTotal, 0, len(daily)),
		Weekly:           make([]WeeklyTotal, 0, len(weekly)),
		SessionDurations: durations,
		RoomComparison:   make([]RoomTotal, 0, len(byRoom)),
	}

	for date, total := range daily {
		analysis.Daily = append(analysis.Daily, DailyTotal{Date: date, TotalSeconds: total})
	}
	sort.Slice(analysis.Daily, func(i, j int) bool {
		return analysis.Daily[i].Date < analysis.Daily[j].Date
	})

	for week, total := range weekly {
		analysis.Weekly = append(analysis.Weekly, WeeklyTotal{Week: week, TotalSeconds: total})
	}
	sort.Slice(analysis.Weekly, func(i, j int) bool {
		return analysis.Weekly[i].Week < analysis.Weekly[j].Week
	})

	for roomID, total := range byRoom {
		label := fmt.Sprintf("Room %d", roomID)
		room, err := s.roomRepo.FindByID(ctx, roomID)
		if err != nil {
			return nil, fmt.Errorf("find room: %w", err)
		}
		if room != nil {
			label = room.Name
		}
		analysis.RoomComparison = append(analysis.RoomComparison, RoomTotal{Room: label, TotalSeconds: total})
	}
	sort.Slice(analysis.RoomComparison, func(i, j int) bool {
		return analysis.RoomComparison[i].Room < analysis.RoomComparison[j].Room
	})

	return analysis, nil
}
