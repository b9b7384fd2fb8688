package domain

import (
	"time"

	"github.com/google/uuid"
)

type UserStatus string

const (
	StatusOnline  UserStatus = "ONLINE"
	StatusOffline UserStatus = "OFFLINE"
	StatusInGame  UserStatus = "IN_GAME"
)

func (s UserStatus) Valid() bool {
	switch s {
	case StatusOnline, StatusOffline, StatusInGame:
		return true
	}
	return false
}

type User struct {
	ID           uuid.UUID  `json:"id"`
	Email        string     `json:"email"`
	Username     string     `json:"username"`
	DisplayName  string     `json:"display_name"`
	PasswordHash string     `json:"-"`
	AvatarURL    *string    `json:"avatar_url,omitempty"`
	Status       UserStatus `json:"status"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

func (u *User) Summary() UserSummary {
	return UserSummary{ID: u.ID, Username: u.Username, Avatar: u.AvatarURL, Status: u.Status}
}

// UserSummary is how other users appear inside channel and friend lists.
type UserSummary struct {
	ID       uuid.UUID  `json:"id"`
	Username string     `json:"username"`
	Avatar   *string    `json:"avatar,omitempty"`
	Status   UserStatus `json:"status"`
}

// AuthenticatedUser is the self snapshot a client starts from.
type AuthenticatedUser struct {
	UserSummary
	Friends  []UserSummary    `json:"friends"`
	Channels []ChannelSummary `json:"channels"`
}
