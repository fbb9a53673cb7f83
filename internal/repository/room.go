package repository

import (
	"context"
	"database/sql"

	"github.com/jmoiron/sqlx"

	"github.com/studyhive/studyroom-server/internal/model"
)

type RoomRepository interface {
	// WithTx returns a new repository that uses the given transaction
	WithTx(tx *sqlx.Tx) RoomRepository
	FindByID(ctx context.Context, id int64) (*model.Room, error)
	FindByCode(ctx context.Context, code string) (*model.Room, error)
	FindByUserID(ctx context.Context, userID int64) ([]model.Room, error)
	Create(ctx context.Context, params model.CreateRoomParams) (*model.Room, error)
	AddMember(ctx context.Context, roomID, userID int64) error
	RemoveMember(ctx context.Context, roomID, userID int64) error
	IsMember(ctx context.Context, roomID, userID int64) (bool, error)
	ListMembers(ctx context.Context, roomID int64) ([]model.MemberProfile, error)
}

type roomDB interface {
	GetContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	SelectContext(ctx context.Context, dest interface{}, query string, args ...interface{}) error
	ExecContext(ctx context.Context, query string, args ...interface{}) (sql.Result, error)
}

type roomRepo struct {
	db roomDB
}

func NewRoomRepository(db *sqlx.DB) RoomRepository {
	return &roomRepo{db: db}
}

func (r *roomRepo) WithTx(tx *sqlx.Tx) RoomRepository {
	return &roomRepo{db: tx}
}

func (r *roomRepo) FindByID(ctx context.Context, id int64) (*model.Room, error) {
	var room model.Room
	err := r.db.GetContext(ctx, &room, `
		SELECT * FROM rooms WHERE id = $1
	`, id)
	return HandleNotFound(&room, err)
}

func (r *roomRepo) FindByCode(ctx context.Context, code string) (*model.Room, error) {
	var room model.Room
	err := r.db.GetContext(ctx, &room, `
		SELECT * FROM rooms WHERE code = $1
	`, code)
	return HandleNotFound(&room, err)
}

func (r *roomRepo) FindByUserID(ctx context.Context, userID int64) ([]model.Room, error) {
	var rooms []model.Room
	err := r.db.SelectContext(ctx, &rooms, `
		SELECT r.* FROM rooms r
		JOIN room_members m ON m.room_id = r.id
		WHERE m.user_id = $1
		ORDER BY m.joined_at
	`, userID)
	if err != nil {
		return nil, err
	}
	return rooms, nil
}

func (r *roomRepo) Create(ctx context.Context, params model.CreateRoomParams) (*model.Room, error) {
	var room model.Room
	err := r.db.GetContext(ctx, &room, `
		INSERT INTO rooms (name, code, owner_id)
		VALUES ($1, $2, $3)
		RETURNING *
	`, params.Name, params.Code, params.OwnerID)
	if err != nil {
		return nil, err
	}
	return &room, nil
}

func (r *roomRepo) AddMember(ctx context.Context, roomID, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO room_members (room_id, user_id)
		VALUES ($1, $2)
		ON CONFLICT (room_id, user_id) DO NOTHING
	`, roomID, userID)
	return err
}

func (r *roomRepo) RemoveMember(ctx context.Context, roomID, userID int64) error {
	_, err := r.db.ExecContext(ctx, `
		DELETE FROM room_members WHERE room_id = $1 AND user_id = $2
	`, roomID, userID)
	return err
}

func (r *roomRepo) IsMember(ctx context.Context, roomID, userID int64) (bool, error) {
	var count int
	err := r.db.GetContext(ctx, &count, `
		SELECT COUNT(*) FROM room_members WHERE room_id = $1 AND user_id = $2
	`, roomID, userID)
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func (r *roomRepo) ListMembers(ctx context.Context, roomID int64) ([]model.MemberProfile, error) {
	var members []model.MemberProfile
	err := r.db.SelectContext(ctx, &members, `
		SELECT u.id AS user_id, u.name, u.profile_picture
		FROM users u
		JOIN room_members m ON m.user_id = u.id
		WHERE m.room_id = $1
		ORDER BY m.joined_at
	`, roomID)
	if err != nil {
		return nil, err
	}
	return members, nil
}
