package model

import (
	"time"
)

type Room struct {
	ID        int64     `db:"id" json:"id"`
	Name      string    `db:"name" json:"name"`
	Code      string    `db:"code" json:"code"`
	OwnerID   int64     `db:"owner_id" json:"ownerId"`
	CreatedAt time.Time `db:"created_at" json:"createdAt"`
}

type CreateRoomParams struct {
	Name    string
	Code    string
	OwnerID int64
}

// MemberProfile is the joined member listing row: identity plus display fields.
type MemberProfile struct {
	UserID         int64  `db:"user_id" json:"userId"`
	Name           string `db:"name" json:"name"`
	ProfilePicture string `db:"profile_picture" json:"profilePicture"`
}
