package model

import (
	"time"
)

// Timer is one study session. While EndTime is nil the session is open and
// Duration is meaningless; Close sets both in a single statement.
type Timer struct {
	ID        int64      `db:"id" json:"id"`
	UserID    int64      `db:"user_id" json:"userId"`
	RoomID    int64      `db:"room_id" json:"roomId"`
	StartTime time.Time  `db:"start_time" json:"startTime"`
	EndTime   *time.Time `db:"end_time" json:"endTime,omitempty"`
	Duration  int64      `db:"duration" json:"duration"`
}

type CreateTimerParams struct {
	UserID    int64
	RoomID    int64
	StartTime time.Time
}

// UserTotal is an aggregated per-user duration sum for a leaderboard window.
type UserTotal struct {
	UserID int64 `db:"user_id"`
	Total  int64 `db:"total"`
}
