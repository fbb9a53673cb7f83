package service

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	goredis "github.com/redis/go-redis/v9"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	apperrors "github.com/studyhive/studyroom-server/internal/errors"
	"github.com/studyhive/studyroom-server/internal/model"
	redisclient "github.com/studyhive/studyroom-server/internal/redis"
	"github.com/studyhive/studyroom-server/internal/repository"
)

type LeaderboardEntry struct {
	UserID         int64  `json:"userId"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture"`
	TotalSeconds   int64  `json:"totalSeconds"`
}

// Leaderboard carries the four ranking windows for a room. Each window ranks
// completed sessions only; an empty window is an empty list, not an error.
type Leaderboard struct {
	Overall []LeaderboardEntry `json:"overall"`
	Monthly []LeaderboardEntry `json:"monthly"`
	Weekly  []LeaderboardEntry `json:"weekly"`
	Daily   []LeaderboardEntry `json:"daily"`
}

// LeaderboardService computes rankings from the timer store, never from the
// live presence view. Results are cached in redis for a short TTL since every
// member of a room polls the same board.
type LeaderboardService struct {
	timerRepo repository.TimerRepository
	userRepo  repository.UserRepository
	roomRepo  repository.RoomRepository
	cache     *redisclient.Client
	clock     clockwork.Clock
	cacheTTL  time.Duration
}

func NewLeaderboardService(
	timerRepo repository.TimerRepository,
	userRepo repository.UserRepository,
	roomRepo repository.RoomRepository,
	cache *redisclient.Client,
	clock clockwork.Clock,
	cacheTTL time.Duration,
) *LeaderboardService {
	return &LeaderboardService{
		timerRepo: timerRepo,
		userRepo:  userRepo,
		roomRepo:  roomRepo,
		cache:     cache,
		clock:     clock,
		cacheTTL:  cacheTTL,
	}
}

func (s *LeaderboardService) ForRoom(ctx context.Context, roomCode string) (*Leaderboard, error) {
	room, err := s.roomRepo.FindByCode(ctx, roomCode)
	if err != nil {
		return nil, fmt.Errorf("find room: %w", err)
	}
	if room == nil {
		return nil, apperrors.NotFound("Room")
	}

	if cached := s.fromCache(ctx, room.ID); cached != nil {
		return cached, nil
	}

	board, err := s.compute(ctx, room.ID)
	if err != nil {
		return nil, err
	}

	s.toCache(ctx, room.ID, board)
	return board, nil
}

func (s *LeaderboardService) compute(ctx context.Context, roomID int64) (*Leaderboard, error) {
	now := s.clock.Now().UTC()
	startOfDay := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	startOfMonth := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
	startOfWeek := mondayOf(startOfDay)

	board := &Leaderboard{}
	windows := []struct {
		name  string
		since *time.Time
		dest  *[]LeaderboardEntry
	}{
		{"overall", nil, &board.Overall},
		{"monthly", &startOfMonth, &board.Monthly},
		{"weekly", &startOfWeek, &board.Weekly},
		{"daily", &startOfDay, &board.Daily},
	}

	for _, w := range windows {
		totals, err := s.timerRepo.SumByRoom(ctx, roomID, w.since)
		if err != nil {
			return nil, fmt.Errorf("sum %s window: %w", w.name, err)
		}
		entries, err := s.rank(ctx, totals)
		if err != nil {
			return nil, err
		}
		*w.dest = entries
	}

	return board, nil
}

// rank resolves display fields and orders entries by total descending, user
// ID ascending on ties so equal totals rank deterministically. Users that no
// longer resolve are omitted.
func (s *LeaderboardService) rank(ctx context.Context, totals []model.UserTotal) ([]LeaderboardEntry, error) {
	if len(totals) == 0 {
		return []LeaderboardEntry{}, nil
	}

	ids := make([]int64, 0, len(totals))
	for _, t := range totals {
		ids = append(ids, t.UserID)
	}
	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	byID := make(map[int64]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	entries := make([]LeaderboardEntry, 0, len(totals))
	for _, t := range totals {
		user, ok := byID[t.UserID]
		if !ok {
			continue
		}
		entries = append(entries, LeaderboardEntry{
			UserID:         t.UserID,
			Username:       user.Name,
			ProfilePicture: user.ProfilePicture,
			TotalSeconds:   t.Total,
		})
	}

	sort.Slice(entries, func(i, j int) bool {
		if entries[i].TotalSeconds != entries[j].TotalSeconds {
			return entries[i].TotalSeconds > entries[j].TotalSeconds
		}
		return entries[i].UserID < entries[j].UserID
	})
	return entries, nil
}

func (s *LeaderboardService) fromCache(ctx context.Context, roomID int64) *Leaderboard {
	if s.cache == nil {
		return nil
	}

	data, err := s.cache.Get(ctx, redisclient.LeaderboardKey(roomID)).Bytes()
	if err != nil {
		if err != goredis.Nil {
			log.Warn().Err(err).Int64("roomId", roomID).Msg("leaderboard cache read failed")
		}
		return nil
	}

	var board Leaderboard
	if err := json.Unmarshal(data, &board); err != nil {
		log.Warn().Err(err).Int64("roomId", roomID).Msg("leaderboard cache corrupt, recomputing")
		return nil
	}
	return &board
}

func (s *LeaderboardService) toCache(ctx context.Context, roomID int64, board *Leaderboard) {
	if s.cache == nil {
		return
	}

	data, err := json.Marshal(board)
	if err != nil {
		return
	}
	if err := s.cache.Set(ctx, redisclient.LeaderboardKey(roomID), data, s.cacheTTL).Err(); err != nil {
		log.Warn().Err(err).Int64("roomId", roomID).Msg("leaderboard cache write failed")
	}
}

// mondayOf returns the most recent Monday at or before the given midnight.
func mondayOf(day time.Time) time.Time {
	wd := int(day.Weekday())
	if wd == 0 {
		wd = 7
	}
	return day.AddDate(0, 0, -(wd - 1))
}
