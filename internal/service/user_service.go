package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/vedran77/arena/internal/domain"
	"github.com/vedran77/arena/internal/events"
	"github.com/vedran77/arena/internal/repository"
	"go.uber.org/zap"
)

type UserService struct {
	core
}

func NewUserService(d Deps) *UserService {
	return &UserService{core: newCore(d)}
}

type UpdateProfileInput struct {
	Username    *string `json:"username,omitempty"`
	DisplayName *string `json:"display_name,omitempty"`
	Avatar      *string `json:"avatar,omitempty"`
}

// Me returns the self snapshot a client mirror starts from.
func (s *UserService) Me(ctx context.Context, userID uuid.UUID) (*domain.AuthenticatedUser, error) {
	user, err := s.requireUser(ctx, userID)
	if err != nil {
		return nil, err
	}
	friends, err := s.store.Friends.ListFriends(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing friends: %w", err)
	}
	channels, err := s.store.Channels.ListByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("listing channels: %w", err)
	}

	if friends == nil {
		friends = []domain.UserSummary{}
	}
	if channels == nil {
		channels = []domain.ChannelSummary{}
	}
	return &domain.AuthenticatedUser{
		UserSummary: user.Summary(),
		Friends:     friends,
		Channels:    channels,
	}, nil
}

// SetStatus changes presence and tells every connected client.
func (s *UserService) SetStatus(ctx context.Context, userID uuid.UUID, status domain.UserStatus) (*domain.User, error) {
	if !status.Valid() {
		return nil, fmt.Errorf("%w: unknown status %q", ErrInvalidArgument, status)
	}

	var user *domain.User
	err := s.mutate(ctx, "set_status", userID, func(ctx context.Context, out *outbox) error {
		var err error
		user, err = s.requireUser(ctx, userID)
		if err != nil {
			return err
		}
		if user.Status == status {
			return nil
		}
		if err := s.store.Users.UpdateStatus(ctx, userID, status); err != nil {
			return fmt.Errorf("updating status: %w", err)
		}
		user.Status = status
		out.all(events.TypeUserStatusChanged, events.UserStatusChanged{UserID: userID, Status: status})
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Debug("status changed", zap.String("user_id", userID.String()), zap.String("status", string(status)))
	return user, nil
}

func (s *UserService) UpdateProfile(ctx context.Context, userID uuid.UUID, input UpdateProfileInput) (*domain.User, error) {
	if input.Username == nil && input.DisplayName == nil && input.Avatar == nil {
		return nil, fmt.Errorf("%w: empty patch", ErrInvalidArgument)
	}

	var user *domain.User
	err := s.mutate(ctx, "update_profile", userID, func(ctx context.Context, out *outbox) error {
		var err error
		user, err = s.requireUser(ctx, userID)
		if err != nil {
			return err
		}

		if input.Username != nil {
			name := strings.TrimSpace(*input.Username)
			if name == "" {
				return fmt.Errorf("%w: username is required", ErrInvalidArgument)
			}
			user.Username = name
		}
		if input.DisplayName != nil {
			user.DisplayName = strings.TrimSpace(*input.DisplayName)
		}
		if input.Avatar != nil {
			user.AvatarURL = input.Avatar
		}
		user.UpdatedAt = s.now()

		if err := s.store.Users.UpdateProfile(ctx, user); err != nil {
			if errors.Is(err, repository.ErrDuplicate) {
				return ErrUsernameTaken
			}
			return fmt.Errorf("updating profile: %w", err)
		}
		out.all(events.TypeUserUpdated, events.UserUpdated{User: user.Summary()})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}
