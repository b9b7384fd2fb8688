package domain

import (
	"time"

	"github.com/google/uuid"
)

type ChannelKind string

const (
	KindPublic    ChannelKind = "PUBLIC"
	KindProtected ChannelKind = "PROTECTED"
	KindPrivate   ChannelKind = "PRIVATE"
	KindDirect    ChannelKind = "DIRECT"
)

func (k ChannelKind) Valid() bool {
	switch k {
	case KindPublic, KindProtected, KindPrivate, KindDirect:
		return true
	}
	return false
}

// RequiresPassword reports whether channels of this kind carry a password digest.
func (k ChannelKind) RequiresPassword() bool {
	return k == KindProtected || k == KindPrivate
}

// Listed reports whether the channel shows up in the public directory.
func (k ChannelKind) Listed() bool {
	return k == KindPublic || k == KindProtected
}

type Role string

const (
	RoleOwner  Role = "OWNER"
	RoleAdmin  Role = "ADMIN"
	RoleMember Role = "MEMBER"
	RoleBanned Role = "BANNED"
)

func (r Role) Valid() bool {
	switch r {
	case RoleOwner, RoleAdmin, RoleMember, RoleBanned:
		return true
	}
	return false
}

// Rank orders roles for hierarchy checks. BANNED and unknown roles rank lowest.
func (r Role) Rank() int {
	switch r {
	case RoleOwner:
		return 3
	case RoleAdmin:
		return 2
	case RoleMember:
		return 1
	}
	return 0
}

type Channel struct {
	ID           uuid.UUID   `json:"id"`
	Name         string      `json:"name"`
	Kind         ChannelKind `json:"kind"`
	Avatar       *string     `json:"avatar,omitempty"`
	PasswordHash *string     `json:"-"`
	CreatedAt    time.Time   `json:"created_at"`
}

type ChannelMember struct {
	ChannelID uuid.UUID `json:"channel_id"`
	UserID    uuid.UUID `json:"user_id"`
	Role      Role      `json:"role"`
	// Seq is the membership creation order inside the channel.
	Seq      int64     `json:"-"`
	JoinedAt time.Time `json:"joined_at"`
	// Joined fields
	Username string     `json:"username,omitempty"`
	Avatar   *string    `json:"avatar,omitempty"`
	Status   UserStatus `json:"status,omitempty"`
}

func (m *ChannelMember) Summary() UserSummary {
	return UserSummary{ID: m.UserID, Username: m.Username, Avatar: m.Avatar, Status: m.Status}
}

// ChannelSummary is the entry a user sees in their own channel list.
type ChannelSummary struct {
	ID     uuid.UUID   `json:"id"`
	Name   string      `json:"name"`
	Avatar *string     `json:"avatar,omitempty"`
	Kind   ChannelKind `json:"kind"`
	Role   Role        `json:"role"`
}

// ChannelDetail is the full membership projection of one channel.
type ChannelDetail struct {
	Channel
	Owner    *UserSummary            `json:"owner,omitempty"`
	Admins   []UserSummary           `json:"admins"`
	Members  []UserSummary           `json:"members"`
	Banned   []UserSummary           `json:"banned"`
	Mutes    map[uuid.UUID]time.Time `json:"mutes"`
	Messages []Message               `json:"messages"`
}

// ChannelPatch carries the mutable channel fields. Nil means unchanged.
type ChannelPatch struct {
	Name   *string      `json:"name,omitempty"`
	Kind   *ChannelKind `json:"kind,omitempty"`
	Avatar *string      `json:"avatar,omitempty"`
}

type MuteEntry struct {
	ChannelID uuid.UUID `json:"channel_id"`
	UserID    uuid.UUID `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}
