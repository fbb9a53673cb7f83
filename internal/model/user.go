package model

import (
	"time"
)

type User struct {
	ID             int64     `db:"id" json:"id"`
	Name           string    `db:"name" json:"name"`
	Email          string    `db:"email" json:"email"`
	PasswordHash   string    `db:"password_hash" json:"-"`
	TokenHash      *string   `db:"token_hash" json:"-"`
	ProfilePicture string    `db:"profile_picture" json:"profilePicture"`
	Description    *string   `db:"description" json:"description,omitempty"`
	CreatedAt      time.Time `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time `db:"updated_at" json:"updatedAt"`
}

type CreateUserParams struct {
	Name         string
	Email        string
	PasswordHash string
}
