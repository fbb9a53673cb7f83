package repository

import (
	"context"
	"database/sql"
	"time"

	"github.com/jmoiron/sqlx"

	"github.com/studyhive/studyroom-server/internal/model"
)

type TimerRepository interface {
	FindOpen(ctx context.Context, userID, roomID int64) (*model.Timer, error)
	FindOpenByRoom(ctx context.Context, roomID int64) ([]model.Timer, error)
	Create(ctx context.Context, params model.CreateTimerParams) (*model.Timer, error)
	// Close finalizes the open session for the pair, setting end_time and the
	// whole-second duration in one guarded statement. Returns nil when no open
	// session exists, so of two concurrent closes exactly one gets the row back.
	Close(ctx context.Context, userID, roomID int64, endTime time.Time) (*model.Timer, error)
	SumByRoom(ctx context.Context, roomID int64, since *time.Time) ([]model.UserTotal, error)
	FindCompletedByUser(ctx context.Context, userID int64) ([]model.Timer, error)
}

type timerDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type timerRepo struct {
	db timerDB
}

func NewTimerRepository(db *sqlx.DB) TimerRepository {
	return &timerRepo{db: db}
}

func (r *timerRepo) FindOpen(ctx context.Context, userID, roomID int64) (*model.Timer, error) {
	var timer model.Timer
	err := r.db.GetContext(ctx, &timer, `
		SELECT * FROM timers
		WHERE user_id = $1 AND room_id = $2 AND end_time IS NULL
	`, userID, roomID)
	return HandleNotFound(&timer, err)
}

func (r *timerRepo) FindOpenByRoom(ctx context.Context, roomID int64) ([]model.Timer, error) {
	var timers []model.Timer
	err := r.db.SelectContext(ctx, &timers, `
		SELECT * FROM timers
		WHERE room_id = $1 AND end_time IS NULL
		ORDER BY user_id
	`, roomID)
	if err != nil {
		return nil, err
	}
	return timers, nil
}

func (r *timerRepo) Create(ctx context.Context, params model.CreateTimerParams) (*model.Timer, error) {
	var timer model.Timer
	err := r.db.GetContext(ctx, &timer, `
		INSERT INTO timers (user_id, room_id, start_time, duration)
		VALUES ($1, $2, $3, 0)
		RETURNING *
	`, params.UserID, params.RoomID, params.StartTime)
	if err != nil {
		return nil, err
	}
	return &timer, nil
}

func (r *timerRepo) Close(ctx context.Context, userID, roomID int64, endTime time.Time) (*model.Timer, error) {
	var timer model.Timer
	err := r.db.GetContext(ctx, &timer, `
		UPDATE timers SET
			end_time = $3,
			duration = FLOOR(EXTRACT(EPOCH FROM ($3::timestamptz - start_time)))::bigint
		WHERE user_id = $1 AND room_id = $2 AND end_time IS NULL
		RETURNING *
	`, userID, roomID, endTime)
	return HandleNotFound(&timer, err)
}

func (r *timerRepo) SumByRoom(ctx context.Context, roomID int64, since *time.Time) ([]model.UserTotal, error) {
	var totals []model.UserTotal
	var err error
	if since == nil {
		err = r.db.SelectContext(ctx, &totals, `
			SELECT user_id, SUM(duration) AS total
			FROM timers
			WHERE room_id = $1 AND end_time IS NOT NULL
			GROUP BY user_id
		`, roomID)
	} else {
		err = r.db.SelectContext(ctx, &totals, `
			SELECT user_id, SUM(duration) AS total
			FROM timers
			WHERE room_id = $1 AND end_time IS NOT NULL AND start_time >= $2
			GROUP BY user_id
		`, roomID, *since)
	}
	if err != nil {
		return nil, err
	}
	return totals, nil
}

func (r *timerRepo) FindCompletedByUser(ctx context.Context, userID int64) ([]model.Timer, error) {
	var timers []model.Timer
	err := r.db.SelectContext(ctx, &timers, `
		SELECT * FROM timers
		WHERE user_id = $1 AND end_time IS NOT NULL
		ORDER BY start_time
	`, userID)
	if err != nil {
		return nil, err
	}
	return timers, nil
}
