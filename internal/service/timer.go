package service

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/studyhive/studyroom-server/internal/model"
	"github.com/studyhive/studyroom-server/internal/presence"
	"github.com/studyhive/studyroom-server/internal/repository"
)

const pairLockShards = 64

// StudyingMember is one row of a room's live study view.
type StudyingMember struct {
	UserID         int64  `json:"userId"`
	Username       string `json:"username"`
	ProfilePicture string `json:"profilePicture"`
	ElapsedSeconds int64  `json:"elapsedSeconds"`
	Paused         bool   `json:"paused"`
}

// TimerService owns the per-(user, room) timer state machine. Durable writes
// go to the timer repository, the live view to the presence tracker; both
// sides of a transition happen under the pair's lock so concurrent commands
// for the same pair serialize while distinct pairs proceed in parallel.
type TimerService struct {
	timerRepo repository.TimerRepository
	userRepo  repository.UserRepository
	tracker   *presence.Tracker
	clock     clockwork.Clock

	pairLocks [pairLockShards]sync.Mutex
}

func NewTimerService(
	timerRepo repository.TimerRepository,
	userRepo repository.UserRepository,
	tracker *presence.Tracker,
	clock clockwork.Clock,
) *TimerService {
	return &TimerService{
		timerRepo: timerRepo,
		userRepo:  userRepo,
		tracker:   tracker,
		clock:     clock,
	}
}

func (s *TimerService) pairLock(userID, roomID int64) *sync.Mutex {
	h := uint64(userID)*31 + uint64(roomID)
	return &s.pairLocks[h%pairLockShards]
}

// Start begins a new session or resumes a paused one. A start while a session
// is already running is a no-op: it never creates a second open session or a
// second running marker. The durable insert happens before the running marker
// is installed, so a failed insert leaves no ghost presence.
func (s *TimerService) Start(ctx context.Context, userID, roomID int64) error {
	lock := s.pairLock(userID, roomID)
	lock.Lock()
	defer lock.Unlock()

	if start, ok := s.tracker.Resume(roomID, userID); ok {
		log.Info().
			Int64("userId", userID).
			Int64("roomId", roomID).
			Time("virtualStart", start).
			Msg("timer resumed")
		return nil
	}

	open, err := s.timerRepo.FindOpen(ctx, userID, roomID)
	if err != nil {
		return fmt.Errorf("find open timer: %w", err)
	}
	if open != nil {
		log.Debug().
			Int64("userId", userID).
			Int64("roomId", roomID).
			Msg("start ignored: open session already exists")
		return nil
	}

	start := s.clock.Now().UTC()
	if _, err := s.timerRepo.Create(ctx, model.CreateTimerParams{
		UserID:    userID,
		RoomID:    roomID,
		StartTime: start,
	}); err != nil {
		return fmt.Errorf("create timer: %w", err)
	}
	s.tracker.SetRunning(roomID, userID, start)

	log.Info().
		Int64("userId", userID).
		Int64("roomId", roomID).
		Time("startTime", start).
		Msg("timer started")
	return nil
}

// Pause freezes a running timer's elapsed seconds in the live view. The open
// session in the store keeps its original start time and stays open. Pausing
// a timer that is not running is a no-op.
func (s *TimerService) Pause(ctx context.Context, userID, roomID int64) error {
	lock := s.pairLock(userID, roomID)
	lock.Lock()
	defer lock.Unlock()

	elapsed, ok := s.tracker.Pause(roomID, userID)
	if !ok {
		log.Debug().
			Int64("userId", userID).
			Int64("roomId", roomID).
			Msg("pause ignored: timer not running")
		return nil
	}

	log.Info().
		Int64("userId", userID).
		Int64("roomId", roomID).
		Int64("elapsed", elapsed).
		Msg("timer paused")
	return nil
}

// Stop closes the open session with its computed duration and drops the
// pair's marker. With no open session it is a no-op. On a store failure the
// marker is kept so the live view and the store never disagree in favor of
// the ephemeral side.
func (s *TimerService) Stop(ctx context.Context, userID, roomID int64) error {
	lock := s.pairLock(userID, roomID)
	lock.Lock()
	defer lock.Unlock()

	closed, err := s.timerRepo.Close(ctx, userID, roomID, s.clock.Now().UTC())
	if err != nil {
		return fmt.Errorf("close timer: %w", err)
	}
	s.tracker.Remove(roomID, userID)

	if closed == nil {
		log.Debug().
			Int64("userId", userID).
			Int64("roomId", roomID).
			Msg("stop ignored: no open session")
		return nil
	}

	log.Info().
		Int64("userId", userID).
		Int64("roomId", roomID).
		Int64("duration", closed.Duration).
		Msg("timer stopped")
	return nil
}

// Reset is stop plus a guaranteed marker removal: the live view drops the
// user even when no open session was found or the close failed.
func (s *TimerService) Reset(ctx context.Context, userID, roomID int64) error {
	lock := s.pairLock(userID, roomID)
	lock.Lock()
	defer lock.Unlock()

	defer s.tracker.Remove(roomID, userID)

	closed, err := s.timerRepo.Close(ctx, userID, roomID, s.clock.Now().UTC())
	if err != nil {
		return fmt.Errorf("close timer: %w", err)
	}

	if closed != nil {
		log.Info().
			Int64("userId", userID).
			Int64("roomId", roomID).
			Int64("duration", closed.Duration).
			Msg("timer reset")
	}
	return nil
}

// LiveMembers formats the room's presence snapshot for broadcasting. Members
// whose user row cannot be resolved are silently omitted.
func (s *TimerService) LiveMembers(ctx context.Context, roomID int64) ([]StudyingMember, error) {
	return s.resolveMembers(ctx, s.tracker.Snapshot(roomID))
}

// RoomSnapshot is the join-time view: the presence snapshot reconciled with
// open sessions from the store, so a member whose marker predates this
// process (or lives on another node) still shows up with elapsed time derived
// from the durable start time.
func (s *TimerService) RoomSnapshot(ctx context.Context, roomID int64) ([]StudyingMember, error) {
	snapshot := s.tracker.Snapshot(roomID)
	known := make(map[int64]bool, len(snapshot))
	for _, m := range snapshot {
		known[m.UserID] = true
	}

	open, err := s.timerRepo.FindOpenByRoom(ctx, roomID)
	if err != nil {
		return nil, fmt.Errorf("find open timers: %w", err)
	}

	now := s.clock.Now()
	for _, timer := range open {
		if known[timer.UserID] {
			continue
		}
		elapsed := int64(now.Sub(timer.StartTime).Seconds())
		if elapsed < 0 {
			elapsed = 0
		}
		snapshot = append(snapshot, presence.Member{
			UserID:  timer.UserID,
			Elapsed: elapsed,
		})
	}

	return s.resolveMembers(ctx, snapshot)
}

// ActiveRooms lists rooms with at least one live marker.
func (s *TimerService) ActiveRooms() []int64 {
	return s.tracker.ActiveRooms()
}

func (s *TimerService) resolveMembers(ctx context.Context, snapshot []presence.Member) ([]StudyingMember, error) {
	if len(snapshot) == 0 {
		return []StudyingMember{}, nil
	}

	ids := make([]int64, 0, len(snapshot))
	for _, m := range snapshot {
		ids = append(ids, m.UserID)
	}

	users, err := s.userRepo.FindByIDs(ctx, ids)
	if err != nil {
		return nil, fmt.Errorf("find users: %w", err)
	}
	byID := make(map[int64]model.User, len(users))
	for _, u := range users {
		byID[u.ID] = u
	}

	members := make([]StudyingMember, 0, len(snapshot))
	for _, m := range snapshot {
		user, ok := byID[m.UserID]
		if !ok {
			continue
		}
		members = append(members, StudyingMember{
			UserID:         m.UserID,
			Username:       user.Name,
			ProfilePicture: user.ProfilePicture,
			ElapsedSeconds: m.Elapsed,
			Paused:         m.Paused,
		})
	}

	sort.Slice(members, func(i, j int) bool {
		return members[i].UserID < members[j].UserID
	})
	return members, nil
}
