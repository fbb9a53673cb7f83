package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/jmoiron/sqlx"
	"github.com/rs/zerolog/log"

	"github.com/studyhive/studyroom-server/internal/database"
	apperrors "github.com/studyhive/studyroom-server/internal/errors"
	"github.com/studyhive/studyroom-server/internal/model"
	"github.com/studyhive/studyroom-server/internal/repository"
)

// txRunner is the slice of *database.DB the room service needs.
type txRunner interface {
	WithTx(ctx context.Context, fn database.TxFunc) error
}

type RoomService struct {
	db       txRunner
	roomRepo repository.RoomRepository
}

func NewRoomService(db txRunner, roomRepo repository.RoomRepository) *RoomService {
	return &RoomService{db: db, roomRepo: roomRepo}
}

// Create makes a room with a caller-chosen join code and adds the owner as
// the first member.
func (s *RoomService) Create(ctx context.Context, ownerID int64, name, code string) (*model.Room, error) {
	name = strings.TrimSpace(name)
	code = strings.TrimSpace(code)
	if name == "" {
		return nil, apperrors.MissingRequired("name")
	}
	if code == "" {
		return nil, apperrors.MissingRequired("code")
	}

	existing, err := s.roomRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("find room by code: %w", err)
	}
	if existing != nil {
		return nil, apperrors.AlreadyExists("Room code")
	}

	// Room row and owner membership commit together.
	var room *model.Room
	err = s.db.WithTx(ctx, func(tx *sqlx.Tx) error {
		repo := s.roomRepo.WithTx(tx)

		created, err := repo.Create(ctx, model.CreateRoomParams{
			Name:    name,
			Code:    code,
			OwnerID: ownerID,
		})
		if err != nil {
			return fmt.Errorf("create room: %w", err)
		}
		if err := repo.AddMember(ctx, created.ID, ownerID); err != nil {
			return fmt.Errorf("add owner membership: %w", err)
		}

		room = created
		return nil
	})
	if err != nil {
		return nil, err
	}

	log.Info().
		Int64("roomId", room.ID).
		Int64("ownerId", ownerID).
		Str("code", room.Code).
		Msg("room created")
	return room, nil
}

// Join adds the user to the room behind the code. Joining a room the user is
// already in succeeds without a second membership row.
func (s *RoomService) Join(ctx context.Context, userID int64, code string) (*model.Room, error) {
	room, err := s.roomRepo.FindByCode(ctx, strings.TrimSpace(code))
	if err != nil {
		return nil, fmt.Errorf("find room by code: %w", err)
	}
	if room == nil {
		return nil, apperrors.NotFound("Room")
	}

	if err := s.roomRepo.AddMember(ctx, room.ID, userID); err != nil {
		return nil, fmt.Errorf("add membership: %w", err)
	}

	log.Info().
		Int64("roomId", room.ID).
		Int64("userId", userID).
		Msg("user joined room")
	return room, nil
}

// Leave removes the user's membership. The user's timer, if any, keeps
// running; leaving a room is not a stop.
func (s *RoomService) Leave(ctx context.Context, userID, roomID int64) error {
	if err := s.roomRepo.RemoveMember(ctx, roomID, userID); err != nil {
		return fmt.Errorf("remove membership: %w", err)
	}

	log.Info().
		Int64("roomId", roomID).
		Int64("userId", userID).
		Msg("user left room")
	return nil
}

func (s *RoomService) ListForUser(ctx context.Context, userID int64) ([]model.Room, error) {
	rooms, err := s.roomRepo.FindByUserID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list rooms: %w", err)
	}
	if rooms == nil {
		rooms = []model.Room{}
	}
	return rooms, nil
}

func (s *RoomService) FindByCode(ctx context.Context, code string) (*model.Room, error) {
	room, err := s.roomRepo.FindByCode(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("find room by code: %w", err)
	}
	if room == nil {
		return nil, apperrors.NotFound("Room")
	}
	return room, nil
}

// Members lists the room's current membership with display fields.
func (s *RoomService) Members(ctx context.Context, code string) ([]model.MemberProfile, error) {
	room, err := s.FindByCode(ctx, code)
	if err != nil {
		return nil, err
	}

	members, err := s.roomRepo.ListMembers(ctx, room.ID)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	if members == nil {
		members = []model.MemberProfile{}
	}
	return members, nil
}
