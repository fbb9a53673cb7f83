package presence

import (
	"sort"
	"sync"
	"time"

	"github.com/jonboulle/clockwork"
)

// Member is one entry in a room snapshot. Elapsed is whole seconds: live for
// running members, frozen for paused ones.
type Member struct {
	UserID  int64
	Elapsed int64
	Paused  bool
}

// Tracker is the in-memory mirror of who is studying right now. It holds two
// partitions per room, running (start time) and paused (frozen elapsed), and
// guarantees a (room, user) pair is in at most one of them. It carries no
// validation of its own; the timer service decides what gets written here.
type Tracker struct {
	clock clockwork.Clock

	mu      sync.RWMutex
	running map[int64]map[int64]time.Time
	paused  map[int64]map[int64]int64
}

func NewTracker(clock clockwork.Clock) *Tracker {
	return &Tracker{
		clock:   clock,
		running: make(map[int64]map[int64]time.Time),
		paused:  make(map[int64]map[int64]int64),
	}
}

// SetRunning installs a running marker, displacing any paused marker.
func (t *Tracker) SetRunning(roomID, userID int64, start time.Time) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.deletePaused(roomID, userID)
	if t.running[roomID] == nil {
		t.running[roomID] = make(map[int64]time.Time)
	}
	t.running[roomID][userID] = start
}

// Pause freezes a running marker into a paused one and reports the elapsed
// whole seconds. Returns false if the pair was not running; nothing changes.
func (t *Tracker) Pause(roomID, userID int64) (int64, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	start, ok := t.running[roomID][userID]
	if !ok {
		return 0, false
	}
	elapsed := int64(t.clock.Now().Sub(start) / time.Second)

	t.deleteRunning(roomID, userID)
	if t.paused[roomID] == nil {
		t.paused[roomID] = make(map[int64]int64)
	}
	t.paused[roomID][userID] = elapsed

	return elapsed, true
}

// Resume converts a paused marker back into a running one whose virtual start
// time is now minus the frozen elapsed, so elapsed arithmetic continues
// seamlessly. The swap is a single atomic step. Returns false if the pair was
// not paused.
func (t *Tracker) Resume(roomID, userID int64) (time.Time, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	elapsed, ok := t.paused[roomID][userID]
	if !ok {
		return time.Time{}, false
	}
	start := t.clock.Now().Add(-time.Duration(elapsed) * time.Second)

	t.deletePaused(roomID, userID)
	if t.running[roomID] == nil {
		t.running[roomID] = make(map[int64]time.Time)
	}
	t.running[roomID][userID] = start

	return start, true
}

// Remove drops any marker, running or paused, for the pair.
func (t *Tracker) Remove(roomID, userID int64) {
	t.mu.Lock()
	defer t.mu.Unlock()

	t.deleteRunning(roomID, userID)
	t.deletePaused(roomID, userID)
}

// IsRunning reports whether the pair currently holds a running marker.
func (t *Tracker) IsRunning(roomID, userID int64) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	_, ok := t.running[roomID][userID]
	return ok
}

// Snapshot lists everyone studying in the room, running members with live
// elapsed seconds and paused members with their frozen value, ordered by
// user ID.
func (t *Tracker) Snapshot(roomID int64) []Member {
	t.mu.RLock()
	defer t.mu.RUnlock()

	now := t.clock.Now()
	members := make([]Member, 0, len(t.running[roomID])+len(t.paused[roomID]))

	for userID, start := range t.running[roomID] {
		members = append(members, Member{
			UserID:  userID,
			Elapsed: int64(now.Sub(start) / time.Second),
		})
	}
	for userID, elapsed := range t.paused[roomID] {
		members = append(members, Member{
			UserID:  userID,
			Elapsed: elapsed,
			Paused:  true,
		})
	}

	sortMembers(members)
	return members
}

// ActiveRooms lists rooms holding at least one marker.
func (t *Tracker) ActiveRooms() []int64 {
	t.mu.RLock()
	defer t.mu.RUnlock()

	seen := make(map[int64]bool, len(t.running)+len(t.paused))
	rooms := make([]int64, 0, len(t.running)+len(t.paused))
	for roomID := range t.running {
		if !seen[roomID] {
			seen[roomID] = true
			rooms = append(rooms, roomID)
		}
	}
	for roomID := range t.paused {
		if !seen[roomID] {
			seen[roomID] = true
			rooms = append(rooms, roomID)
		}
	}
	return rooms
}

func (t *Tracker) deleteRunning(roomID, userID int64) {
	if users, ok := t.running[roomID]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(t.running, roomID)
		}
	}
}

func (t *Tracker) deletePaused(roomID, userID int64) {
	if users, ok := t.paused[roomID]; ok {
		delete(users, userID)
		if len(users) == 0 {
			delete(t.paused, roomID)
		}
	}
}

func sortMembers(members []Member) {
	sort.Slice(members, func(i, j int) bool {
		return members[i].UserID < members[j].UserID
	})
}
