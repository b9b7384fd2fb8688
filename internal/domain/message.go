package domain

import (
	"time"

	"github.com/google/uuid"
)

type MessageType string

const (
	MessageText       MessageType = "TEXT"
	MessageInvitation MessageType = "INVITATION"
)

type ChallengeStatus string

const (
	ChallengePending  ChallengeStatus = "PENDING"
	ChallengeAccepted ChallengeStatus = "ACCEPTED"
	ChallengeDeclined ChallengeStatus = "DECLINED"
	ChallengeExpired  ChallengeStatus = "EXPIRED"
)

func (s ChallengeStatus) Valid() bool {
	switch s {
	case ChallengePending, ChallengeAccepted, ChallengeDeclined, ChallengeExpired:
		return true
	}
	return false
}

type Message struct {
	ID        uuid.UUID        `json:"id"`
	ChannelID uuid.UUID        `json:"channel_id"`
	SenderID  uuid.UUID        `json:"sender_id"`
	Type      MessageType      `json:"type"`
	Content   *string          `json:"content,omitempty"`
	TargetID  *uuid.UUID       `json:"target_id,omitempty"`
	Status    *ChallengeStatus `json:"status,omitempty"`
	CreatedAt time.Time        `json:"created_at"`
	// Joined fields
	SenderUsername string `json:"sender_username,omitempty"`
}
