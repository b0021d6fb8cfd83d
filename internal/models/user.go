package models

import (
	"time"

	"github.com/google/uuid"
)

// User as stored by the user directory
type User struct {
	ID             uuid.UUID
	CreatedAt      time.Time
	Name           string
	Username       string
	HashedPassword string
}

// PublicUser is the user without credentials
// The only shape of user that leaves the user directory
type PublicUser struct {
	ID       uuid.UUID `json:"id"`
	Name     string    `json:"name"`
	Username string    `json:"username"`
}

func (u User) Public() PublicUser {
	return PublicUser{ID: u.ID, Name: u.Name, Username: u.Username}
}

// UserUpdate holds fields to change, nil means keep as is
type UserUpdate struct {
	Name     *string
	Username *string
	Password *string
}
