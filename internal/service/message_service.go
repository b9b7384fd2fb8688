package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vedran77/arena/internal/domain"
	"github.com/vedran77/arena/internal/events"
	"github.com/vedran77/arena/internal/policy"
)

const maxMessageLength = 2000

// MessageService posts channel messages and game challenges. It shares the
// channel locks with ChannelService so posts and membership changes of one
// channel are emitted in commit order.
type MessageService struct {
	core
}

func NewMessageService(d Deps) *MessageService {
	return &MessageService{core: newCore(d)}
}

func (s *MessageService) PostText(ctx context.Context, channelID, senderID uuid.UUID, content string) (*domain.Message, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("%w: message content is required", ErrInvalidArgument)
	}
	if len([]rune(content)) > maxMessageLength {
		return nil, fmt.Errorf("%w: message longer than %d characters", ErrInvalidArgument, maxMessageLength)
	}

	msg := &domain.Message{
		ID:        uuid.New(),
		ChannelID: channelID,
		SenderID:  senderID,
		Type:      domain.MessageText,
		Content:   &content,
	}
	if err := s.post(ctx, "post_text", msg, nil); err != nil {
		return nil, err
	}
	return msg, nil
}

// PostInvitation challenges another member of the channel to a game.
func (s *MessageService) PostInvitation(ctx context.Context, channelID, senderID, targetID uuid.UUID) (*domain.Message, error) {
	if senderID == targetID {
		return nil, fmt.Errorf("%w: cannot challenge yourself", ErrInvalidArgument)
	}

	pending := domain.ChallengePending
	msg := &domain.Message{
		ID:        uuid.New(),
		ChannelID: channelID,
		SenderID:  senderID,
		Type:      domain.MessageInvitation,
		TargetID:  &targetID,
		Status:    &pending,
	}
	check := func(ctx context.Context) error {
		_, role, err := s.roleOf(ctx, channelID, targetID)
		if err != nil {
			return err
		}
		if role == policy.NoRole || role == domain.RoleBanned {
			return fmt.Errorf("%w: challenged user is not in this channel", ErrNotFound)
		}
		return nil
	}
	if err := s.post(ctx, "post_invitation", msg, check); err != nil {
		return nil, err
	}
	return msg, nil
}

func (s *MessageService) post(ctx context.Context, op string, msg *domain.Message, check func(ctx context.Context) error) error {
	return s.mutate(ctx, op, msg.ChannelID, func(ctx context.Context, out *outbox) error {
		ch, err := s.requireChannel(ctx, msg.ChannelID)
		if err != nil {
			return err
		}
		_, role, err := s.roleOf(ctx, ch.ID, msg.SenderID)
		if err != nil {
			return err
		}
		d := policy.Decide(policy.Request{Action: policy.ActionPost, Kind: ch.Kind, Actor: role})
		if !d.Allowed {
			return decisionError(d.Reason)
		}

		now := s.now()
		muted, err := s.store.Mutes.Get(ctx, ch.ID, msg.SenderID, now)
		if err != nil {
			return err
		}
		if muted != nil {
			return ErrMuted
		}
		if check != nil {
			if err := check(ctx); err != nil {
				return err
			}
		}

		sender, err := s.requireUser(ctx, msg.SenderID)
		if err != nil {
			return err
		}
		msg.CreatedAt = now
		msg.SenderUsername = sender.Username
		if err := s.store.Messages.Create(ctx, msg); err != nil {
			return fmt.Errorf("creating message: %w", err)
		}

		out.channel(ch.ID, events.TypeMessagePosted, events.MessagePosted{Message: *msg})
		return nil
	})
}

// SetChallengeStatus moves a PENDING challenge to its outcome. Only the
// challenged user accepts or declines; either side may let it expire.
func (s *MessageService) SetChallengeStatus(ctx context.Context, channelID, messageID, actorID uuid.UUID, status domain.ChallengeStatus) (*domain.Message, error) {
	if !status.Valid() || status == domain.ChallengePending {
		return nil, fmt.Errorf("%w: unsupported challenge status %q", ErrInvalidArgument, status)
	}

	var msg *domain.Message
	err := s.mutate(ctx, "challenge_status", channelID, func(ctx context.Context, out *outbox) error {
		var err error
		msg, err = s.store.Messages.GetByID(ctx, messageID)
		if err != nil {
			return err
		}
		if msg == nil || msg.ChannelID != channelID || msg.Type != domain.MessageInvitation {
			return ErrMessageNotFound
		}

		_, role, err := s.roleOf(ctx, channelID, actorID)
		if err != nil {
			return err
		}
		if role == policy.NoRole || role == domain.RoleBanned {
			return ErrNotChannelMember
		}

		isTarget := msg.TargetID != nil && *msg.TargetID == actorID
		isSender := msg.SenderID == actorID
		switch status {
		case domain.ChallengeAccepted, domain.ChallengeDeclined:
			if !isTarget {
				return fmt.Errorf("%w: only the challenged user can answer", ErrForbidden)
			}
		case domain.ChallengeExpired:
			if !isTarget && !isSender {
				return fmt.Errorf("%w: not part of this challenge", ErrForbidden)
			}
		}
		if msg.Status == nil || *msg.Status != domain.ChallengePending {
			return ErrChallengeClosed
		}

		if err := s.store.Messages.UpdateStatus(ctx, messageID, status); err != nil {
			return fmt.Errorf("updating challenge: %w", err)
		}
		msg.Status = &status

		out.channel(channelID, events.TypeChallengeStatusChanged, events.ChallengeStatusChanged{
			ChannelID: channelID, MessageID: messageID, Status: status,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return msg, nil
}
