package jobs

import (
	"context"
	"time"

	"github.com/jonboulle/clockwork"
	"github.com/rs/zerolog/log"

	"github.com/studyhive/studyroom-server/internal/service"
)

const tickTimeout = 5 * time.Second

// Snapshotter reports the rooms with live timers and the current studying
// members of a room.
type Snapshotter interface {
	ActiveRooms() []int64
	LiveMembers(ctx context.Context, roomID int64) ([]service.StudyingMember, error)
}

// Broadcaster pushes a studying-members snapshot to a room's subscribers.
type Broadcaster interface {
	BroadcastMembers(ctx context.Context, roomID int64, members []service.StudyingMember) error
}

// BroadcastJob periodically pushes fresh elapsed times to every room that
// has at least one live timer, so clients see ticking clocks without
// requesting anything.
type BroadcastJob struct {
	snapshotter Snapshotter
	broadcaster Broadcaster
	clock       clockwork.Clock
	interval    time.Duration
	done        chan struct{}
}

func NewBroadcastJob(snapshotter Snapshotter, broadcaster Broadcaster, clock clockwork.Clock, interval time.Duration) *BroadcastJob {
	return &BroadcastJob{
		snapshotter: snapshotter,
		broadcaster: broadcaster,
		clock:       clock,
		interval:    interval,
		done:        make(chan struct{}),
	}
}

func (j *BroadcastJob) Start() {
	go j.run()
	log.Info().Dur("interval", j.interval).Msg("broadcast job started")
}

func (j *BroadcastJob) Stop() {
	close(j.done)
	log.Info().Msg("broadcast job stopped")
}

func (j *BroadcastJob) run() {
	ticker := j.clock.NewTicker(j.interval)
	defer ticker.Stop()

	for {
		select {
		case <-j.done:
			return
		case <-ticker.Chan():
			j.broadcast()
		}
	}
}

func (j *BroadcastJob) broadcast() {
	ctx, cancel := context.WithTimeout(context.Background(), tickTimeout)
	defer cancel()

	for _, roomID := range j.snapshotter.ActiveRooms() {
		members, err := j.snapshotter.LiveMembers(ctx, roomID)
		if err != nil {
			log.Error().Err(err).Int64("roomId", roomID).Msg("broadcast job: failed to snapshot room")
			continue
		}
		if err := j.broadcaster.BroadcastMembers(ctx, roomID, members); err != nil {
			log.Error().Err(err).Int64("roomId", roomID).Msg("broadcast job: failed to publish snapshot")
		}
	}
}
