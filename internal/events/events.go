// Package events defines the envelope and payloads the server pushes to
// clients whenever authoritative channel or user state changes. The same
// types are decoded by the client-side mirror.
package events

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/arena/internal/domain"
)

type Type string

// Server → client state events.
const (
	TypeMemberJoined           Type = "member.joined"
	TypeMemberLeft             Type = "member.left"
	TypeRoleChanged            Type = "member.role_changed"
	TypeOwnerChanged           Type = "channel.owner_changed"
	TypeChannelUpdated         Type = "channel.updated"
	TypeChannelDeleted         Type = "channel.deleted"
	TypeMemberMuted            Type = "member.muted"
	TypeMemberUnbanned         Type = "member.unbanned"
	TypeMessagePosted          Type = "message.posted"
	TypeChallengeStatusChanged Type = "challenge.status_changed"
	TypeUserStatusChanged      Type = "user.status_changed"
	TypeUserUpdated            Type = "user.updated"
	TypeDirectCreated          Type = "direct.created"
)

// Envelope is the frame every event travels in.
type Envelope struct {
	Type      Type            `json:"type"`
	ChannelID *uuid.UUID      `json:"channel_id,omitempty"`
	Payload   json.RawMessage `json:"payload,omitempty"`
	Timestamp int64           `json:"ts,omitempty"`
}

// New marshals payload into an envelope stamped with the current time.
func New(t Type, channelID *uuid.UUID, payload any) (Envelope, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return Envelope{}, err
	}
	return Envelope{
		Type:      t,
		ChannelID: channelID,
		Payload:   data,
		Timestamp: time.Now().UnixMilli(),
	}, nil
}

// Decode unmarshals the payload into v.
func (e Envelope) Decode(v any) error {
	return json.Unmarshal(e.Payload, v)
}

type MemberJoined struct {
	ChannelID uuid.UUID          `json:"channel_id"`
	Member    domain.UserSummary `json:"member"`
	Role      domain.Role        `json:"role"`
	// Channel lets the joining user add the channel to their own list.
	Channel domain.ChannelSummary `json:"channel"`
}

type MemberLeft struct {
	ChannelID uuid.UUID `json:"channel_id"`
	UserID    uuid.UUID `json:"user_id"`
	WasOwner  bool      `json:"was_owner"`
	Kicked    bool      `json:"kicked,omitempty"`
}

type RoleChanged struct {
	ChannelID    uuid.UUID          `json:"channel_id"`
	User         domain.UserSummary `json:"user"`
	Role         domain.Role        `json:"role"`
	PreviousRole domain.Role        `json:"previous_role"`
}

type OwnerChanged struct {
	ChannelID uuid.UUID          `json:"channel_id"`
	Owner     domain.UserSummary `json:"owner"`
	// PreviousOwnerID is nil when nobody held ownership before.
	PreviousOwnerID *uuid.UUID `json:"previous_owner_id,omitempty"`
	// PreviousRole is the role the former owner holds now, empty when they
	// are no longer in the channel.
	PreviousRole domain.Role `json:"previous_role,omitempty"`
}

type ChannelUpdated struct {
	ChannelID uuid.UUID `json:"channel_id"`
	domain.ChannelPatch
}

type ChannelDeleted struct {
	ChannelID uuid.UUID `json:"channel_id"`
}

type MemberMuted struct {
	ChannelID uuid.UUID `json:"channel_id"`
	UserID    uuid.UUID `json:"user_id"`
	ExpiresAt time.Time `json:"expires_at"`
}

type MemberUnbanned struct {
	ChannelID uuid.UUID `json:"channel_id"`
	UserID    uuid.UUID `json:"user_id"`
}

type MessagePosted struct {
	domain.Message
}

type ChallengeStatusChanged struct {
	ChannelID uuid.UUID              `json:"channel_id"`
	MessageID uuid.UUID              `json:"message_id"`
	Status    domain.ChallengeStatus `json:"status"`
}

type UserStatusChanged struct {
	UserID uuid.UUID         `json:"user_id"`
	Status domain.UserStatus `json:"status"`
}

type UserUpdated struct {
	User domain.UserSummary `json:"user"`
}

// DirectCreated is addressed to one party; Counterpart is the other one.
type DirectCreated struct {
	Channel     domain.ChannelSummary `json:"channel"`
	Counterpart domain.UserSummary    `json:"counterpart"`
}
