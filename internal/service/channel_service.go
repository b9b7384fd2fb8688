package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/arena/internal/domain"
	"github.com/vedran77/arena/internal/events"
	"github.com/vedran77/arena/internal/policy"
	"github.com/vedran77/arena/internal/repository"
	"github.com/vedran77/arena/pkg/validator"
	"go.uber.org/zap"
)

// ChannelService is the only writer of channel and membership state.
type ChannelService struct {
	core
}

func NewChannelService(d Deps) *ChannelService {
	return &ChannelService{core: newCore(d)}
}

type CreateChannelInput struct {
	Name     string             `json:"name"`
	Kind     domain.ChannelKind `json:"kind"`
	Password *string            `json:"password,omitempty"`
	Avatar   *string            `json:"avatar,omitempty"`
}

type UpdateChannelInput struct {
	Name     *string             `json:"name,omitempty"`
	Kind     *domain.ChannelKind `json:"kind,omitempty"`
	Password *string             `json:"password,omitempty"`
	Avatar   *string             `json:"avatar,omitempty"`
}

func (s *ChannelService) CreateChannel(ctx context.Context, creatorID uuid.UUID, input CreateChannelInput) (*domain.Channel, error) {
	name := validator.NormalizeName(input.Name)
	if name == "" {
		return nil, fmt.Errorf("%w: channel name is required", ErrInvalidArgument)
	}
	if !input.Kind.Valid() || input.Kind == domain.KindDirect {
		return nil, fmt.Errorf("%w: unsupported channel kind %q", ErrInvalidArgument, input.Kind)
	}

	ch := &domain.Channel{
		ID:        uuid.New(),
		Name:      name,
		Kind:      input.Kind,
		Avatar:    input.Avatar,
		CreatedAt: s.now(),
	}
	if input.Kind.RequiresPassword() {
		if input.Password == nil || *input.Password == "" {
			return nil, fmt.Errorf("%w: %s channels need a password", ErrInvalidArgument, strings.ToLower(string(input.Kind)))
		}
		digest, err := s.hasher.Hash(*input.Password)
		if err != nil {
			return nil, fmt.Errorf("hashing channel password: %w", err)
		}
		ch.PasswordHash = &digest
	}

	err := s.mutate(ctx, "create", ch.ID, func(ctx context.Context, out *outbox) error {
		creator, err := s.requireUser(ctx, creatorID)
		if err != nil {
			return err
		}
		if err := s.store.Channels.Create(ctx, ch); err != nil {
			return fmt.Errorf("creating channel: %w", err)
		}
		owner := &domain.ChannelMember{
			ChannelID: ch.ID,
			UserID:    creatorID,
			Role:      domain.RoleOwner,
			JoinedAt:  ch.CreatedAt,
		}
		if err := s.store.Channels.AddMember(ctx, owner); err != nil {
			return fmt.Errorf("adding owner: %w", err)
		}
		out.channel(ch.ID, events.TypeMemberJoined, joinedPayload(ch, creator.Summary(), domain.RoleOwner))
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info("channel created",
		zap.String("channel_id", ch.ID.String()),
		zap.String("user_id", creatorID.String()),
		zap.String("kind", string(ch.Kind)),
	)
	return ch, nil
}

// JoinChannel adds the user as MEMBER. Password-guarded channels need the
// matching secret.
func (s *ChannelService) JoinChannel(ctx context.Context, channelID, userID uuid.UUID, password *string) (*domain.ChannelMember, error) {
	var member *domain.ChannelMember

	err := s.mutate(ctx, "join", channelID, func(ctx context.Context, out *outbox) error {
		ch, err := s.requireChannel(ctx, channelID)
		if err != nil {
			return err
		}
		_, role, err := s.roleOf(ctx, channelID, userID)
		if err != nil {
			return err
		}
		d := policy.Decide(policy.Request{Action: policy.ActionJoin, Kind: ch.Kind, Actor: role, Target: role, Self: true})
		if !d.Allowed {
			return decisionError(d.Reason)
		}
		if ch.Kind.RequiresPassword() && !s.checkPassword(ch, password) {
			return ErrWrongPassword
		}

		user, err := s.requireUser(ctx, userID)
		if err != nil {
			return err
		}
		member, err = s.addMember(ctx, ch, user, out)
		return err
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

// AddMember lets an existing member bring someone else into the channel.
// No password is asked for.
func (s *ChannelService) AddMember(ctx context.Context, channelID, actorID, targetID uuid.UUID) (*domain.ChannelMember, error) {
	var member *domain.ChannelMember

	err := s.mutate(ctx, "add_member", channelID, func(ctx context.Context, out *outbox) error {
		ch, actorRole, targetRole, err := s.loadPair(ctx, channelID, actorID, targetID)
		if err != nil {
			return err
		}
		d := policy.Decide(policy.Request{
			Action: policy.ActionInvite, Kind: ch.Kind,
			Actor: actorRole, Target: targetRole, Self: actorID == targetID,
		})
		if !d.Allowed {
			return decisionError(d.Reason)
		}

		target, err := s.requireUser(ctx, targetID)
		if err != nil {
			return err
		}
		member, err = s.addMember(ctx, ch, target, out)
		return err
	})
	if err != nil {
		return nil, err
	}
	return member, nil
}

func (s *ChannelService) addMember(ctx context.Context, ch *domain.Channel, user *domain.User, out *outbox) (*domain.ChannelMember, error) {
	summary := user.Summary()
	m := &domain.ChannelMember{
		ChannelID: ch.ID,
		UserID:    user.ID,
		Role:      domain.RoleMember,
		JoinedAt:  s.now(),
		Username:  summary.Username,
		Avatar:    summary.Avatar,
		Status:    summary.Status,
	}
	if err := s.store.Channels.AddMember(ctx, m); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, ErrAlreadyMember
		}
		return nil, fmt.Errorf("adding member: %w", err)
	}
	out.channel(ch.ID, events.TypeMemberJoined, joinedPayload(ch, summary, domain.RoleMember))
	return m, nil
}

// LeaveChannel removes the caller's own membership. When the owner leaves,
// ownership passes to the successor in the same transaction, or the channel
// is deleted if nobody eligible remains. Leaving a direct channel deletes it
// for both parties.
func (s *ChannelService) LeaveChannel(ctx context.Context, channelID, userID uuid.UUID) error {
	return s.mutate(ctx, "leave", channelID, func(ctx context.Context, out *outbox) error {
		ch, err := s.requireChannel(ctx, channelID)
		if err != nil {
			return err
		}
		_, role, err := s.roleOf(ctx, channelID, userID)
		if err != nil {
			return err
		}
		d := policy.Decide(policy.Request{Action: policy.ActionLeave, Kind: ch.Kind, Actor: role, Target: role, Self: true})
		if !d.Allowed {
			return decisionError(d.Reason)
		}

		if err := s.store.Channels.RemoveMember(ctx, channelID, userID); err != nil {
			return fmt.Errorf("removing member: %w", err)
		}
		wasOwner := role == domain.RoleOwner
		out.channel(channelID, events.TypeMemberLeft, events.MemberLeft{
			ChannelID: channelID, UserID: userID, WasOwner: wasOwner,
		}, userID)

		// A direct channel is the pair; it cannot outlive either party.
		if ch.Kind == domain.KindDirect {
			return s.removeChannel(ctx, channelID, []uuid.UUID{userID}, out)
		}

		remaining, err := s.store.Channels.ListMembers(ctx, channelID)
		if err != nil {
			return err
		}
		if _, active := policy.OwnerCount(remaining); active == 0 {
			return s.removeChannel(ctx, channelID, []uuid.UUID{userID}, out)
		}
		if !wasOwner {
			return nil
		}

		next, ok := policy.Successor(remaining, userID)
		if !ok {
			return s.removeChannel(ctx, channelID, []uuid.UUID{userID}, out)
		}
		if err := s.store.Channels.UpdateMemberRole(ctx, channelID, next.UserID, domain.RoleOwner); err != nil {
			return fmt.Errorf("transferring ownership: %w", err)
		}
		out.channel(channelID, events.TypeOwnerChanged, events.OwnerChanged{
			ChannelID:       channelID,
			Owner:           next.Summary(),
			PreviousOwnerID: &userID,
		})

		s.logger.Info("ownership transferred",
			zap.String("channel_id", channelID.String()),
			zap.String("user_id", next.UserID.String()),
			zap.String("previous_role", string(next.Role)),
		)
		return nil
	})
}

// KickMember removes another member without banning them.
func (s *ChannelService) KickMember(ctx context.Context, channelID, actorID, targetID uuid.UUID) error {
	return s.mutate(ctx, "kick", channelID, func(ctx context.Context, out *outbox) error {
		ch, actorRole, targetRole, err := s.loadPair(ctx, channelID, actorID, targetID)
		if err != nil {
			return err
		}
		d := policy.Decide(policy.Request{
			Action: policy.ActionKick, Kind: ch.Kind,
			Actor: actorRole, Target: targetRole, Self: actorID == targetID,
		})
		if !d.Allowed {
			return decisionError(d.Reason)
		}

		if err := s.store.Channels.RemoveMember(ctx, channelID, targetID); err != nil {
			return fmt.Errorf("removing member: %w", err)
		}
		out.channel(channelID, events.TypeMemberLeft, events.MemberLeft{
			ChannelID: channelID, UserID: targetID, Kicked: true,
		}, targetID)
		return nil
	})
}

// SetRole promotes, demotes or bans the target. OWNER is never granted here.
func (s *ChannelService) SetRole(ctx context.Context, channelID, actorID, targetID uuid.UUID, newRole domain.Role) (*domain.ChannelMember, error) {
	action, ok := policy.ActionForRole(newRole)
	if !ok {
		return nil, fmt.Errorf("%w: unknown role %q", ErrInvalidArgument, newRole)
	}

	var updated *domain.ChannelMember
	err := s.mutate(ctx, "set_role", channelID, func(ctx context.Context, out *outbox) error {
		ch, err := s.requireChannel(ctx, channelID)
		if err != nil {
			return err
		}
		_, actorRole, err := s.roleOf(ctx, channelID, actorID)
		if err != nil {
			return err
		}
		target, targetRole, err := s.roleOf(ctx, channelID, targetID)
		if err != nil {
			return err
		}
		d := policy.Decide(policy.Request{
			Action: action, Kind: ch.Kind,
			Actor: actorRole, Target: targetRole, Self: actorID == targetID,
		})
		if !d.Allowed {
			return decisionError(d.Reason)
		}

		if err := s.store.Channels.UpdateMemberRole(ctx, channelID, targetID, newRole); err != nil {
			return fmt.Errorf("updating role: %w", err)
		}
		updated = target
		updated.Role = newRole

		// A banned user is no longer in the channel audience but must still
		// learn about the ban.
		out.channel(channelID, events.TypeRoleChanged, events.RoleChanged{
			ChannelID:    channelID,
			User:         target.Summary(),
			Role:         newRole,
			PreviousRole: targetRole,
		}, targetID)
		return nil
	})
	if err != nil {
		return nil, err
	}
	return updated, nil
}

// UnbanMember deletes a BANNED membership so the user may join again.
func (s *ChannelService) UnbanMember(ctx context.Context, channelID, actorID, targetID uuid.UUID) error {
	return s.mutate(ctx, "unban", channelID, func(ctx context.Context, out *outbox) error {
		ch, actorRole, targetRole, err := s.loadPair(ctx, channelID, actorID, targetID)
		if err != nil {
			return err
		}
		d := policy.Decide(policy.Request{
			Action: policy.ActionUnban, Kind: ch.Kind,
			Actor: actorRole, Target: targetRole, Self: actorID == targetID,
		})
		if !d.Allowed {
			return decisionError(d.Reason)
		}

		if err := s.store.Channels.RemoveMember(ctx, channelID, targetID); err != nil {
			return fmt.Errorf("removing ban: %w", err)
		}
		out.channel(channelID, events.TypeMemberUnbanned, events.MemberUnbanned{
			ChannelID: channelID, UserID: targetID,
		}, targetID)
		return nil
	})
}

// MuteMember blocks the target from posting until now+duration.
func (s *ChannelService) MuteMember(ctx context.Context, channelID, actorID, targetID uuid.UUID, duration time.Duration) (*domain.MuteEntry, error) {
	if duration <= 0 {
		return nil, fmt.Errorf("%w: mute duration must be positive", ErrInvalidArgument)
	}

	var entry domain.MuteEntry
	err := s.mutate(ctx, "mute", channelID, func(ctx context.Context, out *outbox) error {
		ch, actorRole, targetRole, err := s.loadPair(ctx, channelID, actorID, targetID)
		if err != nil {
			return err
		}
		d := policy.Decide(policy.Request{
			Action: policy.ActionMute, Kind: ch.Kind,
			Actor: actorRole, Target: targetRole, Self: actorID == targetID,
		})
		if !d.Allowed {
			return decisionError(d.Reason)
		}

		now := s.now()
		entry = domain.MuteEntry{ChannelID: channelID, UserID: targetID, ExpiresAt: now.Add(duration)}
		if err := s.store.Mutes.Set(ctx, entry, now); err != nil {
			return fmt.Errorf("storing mute: %w", err)
		}
		out.channel(channelID, events.TypeMemberMuted, events.MemberMuted{
			ChannelID: channelID, UserID: targetID, ExpiresAt: entry.ExpiresAt,
		})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return &entry, nil
}

// UpdateChannel applies an owner's patch. Switching to a password-guarded
// kind needs a password unless the channel already has one.
func (s *ChannelService) UpdateChannel(ctx context.Context, channelID, actorID uuid.UUID, input UpdateChannelInput) (*domain.Channel, error) {
	if input.Name == nil && input.Kind == nil && input.Password == nil && input.Avatar == nil {
		return nil, fmt.Errorf("%w: empty patch", ErrInvalidArgument)
	}
	if input.Name != nil && strings.TrimSpace(*input.Name) == "" {
		return nil, fmt.Errorf("%w: channel name is required", ErrInvalidArgument)
	}
	if input.Kind != nil && (!input.Kind.Valid() || *input.Kind == domain.KindDirect) {
		return nil, fmt.Errorf("%w: unsupported channel kind %q", ErrInvalidArgument, *input.Kind)
	}
	if input.Password != nil && *input.Password == "" {
		return nil, fmt.Errorf("%w: password must not be empty", ErrInvalidArgument)
	}

	var ch *domain.Channel
	err := s.mutate(ctx, "update", channelID, func(ctx context.Context, out *outbox) error {
		var err error
		ch, err = s.requireChannel(ctx, channelID)
		if err != nil {
			return err
		}
		_, actorRole, err := s.roleOf(ctx, channelID, actorID)
		if err != nil {
			return err
		}
		d := policy.Decide(policy.Request{Action: policy.ActionUpdate, Kind: ch.Kind, Actor: actorRole})
		if !d.Allowed {
			return decisionError(d.Reason)
		}

		patch, err := s.applyPatch(ch, input)
		if err != nil {
			return err
		}
		if err := s.store.Channels.Update(ctx, ch); err != nil {
			return fmt.Errorf("updating channel: %w", err)
		}
		out.channel(channelID, events.TypeChannelUpdated, events.ChannelUpdated{ChannelID: channelID, ChannelPatch: patch})
		return nil
	})
	if err != nil {
		return nil, err
	}
	return ch, nil
}

func (s *ChannelService) applyPatch(ch *domain.Channel, input UpdateChannelInput) (domain.ChannelPatch, error) {
	var patch domain.ChannelPatch

	if input.Name != nil {
		name := validator.NormalizeName(*input.Name)
		ch.Name = name
		patch.Name = &name
	}
	if input.Avatar != nil {
		ch.Avatar = input.Avatar
		patch.Avatar = input.Avatar
	}
	if input.Kind != nil {
		kind := *input.Kind
		ch.Kind = kind
		patch.Kind = &kind
	}

	if !ch.Kind.RequiresPassword() {
		ch.PasswordHash = nil
		return patch, nil
	}
	if input.Password != nil {
		digest, err := s.hasher.Hash(*input.Password)
		if err != nil {
			return patch, fmt.Errorf("hashing channel password: %w", err)
		}
		ch.PasswordHash = &digest
	}
	if ch.PasswordHash == nil {
		return patch, fmt.Errorf("%w: %s channels need a password", ErrInvalidArgument, strings.ToLower(string(ch.Kind)))
	}
	return patch, nil
}

// DeleteChannel is the owner's explicit delete.
func (s *ChannelService) DeleteChannel(ctx context.Context, channelID, actorID uuid.UUID) error {
	return s.mutate(ctx, "delete", channelID, func(ctx context.Context, out *outbox) error {
		ch, err := s.requireChannel(ctx, channelID)
		if err != nil {
			return err
		}
		_, actorRole, err := s.roleOf(ctx, channelID, actorID)
		if err != nil {
			return err
		}
		d := policy.Decide(policy.Request{Action: policy.ActionDelete, Kind: ch.Kind, Actor: actorRole})
		if !d.Allowed {
			return decisionError(d.Reason)
		}
		return s.removeChannel(ctx, channelID, nil, out)
	})
}

// RemoveChannel deletes a channel on behalf of the system, without a role check.
func (s *ChannelService) RemoveChannel(ctx context.Context, channelID uuid.UUID) error {
	return s.mutate(ctx, "remove", channelID, func(ctx context.Context, out *outbox) error {
		if _, err := s.requireChannel(ctx, channelID); err != nil {
			return err
		}
		return s.removeChannel(ctx, channelID, nil, out)
	})
}

// removeChannel drops memberships, messages and mutes, then the channel.
// Everyone still in the audience, plus notify, learns about the deletion.
func (s *ChannelService) removeChannel(ctx context.Context, channelID uuid.UUID, notify []uuid.UUID, out *outbox) error {
	audience, err := s.store.Channels.ListMemberIDs(ctx, channelID)
	if err != nil {
		return err
	}
	audience = appendMissing(audience, notify...)

	if err := s.store.Channels.RemoveAllMembers(ctx, channelID); err != nil {
		return fmt.Errorf("removing memberships: %w", err)
	}
	if err := s.store.Messages.DeleteByChannel(ctx, channelID); err != nil {
		return fmt.Errorf("removing messages: %w", err)
	}
	if err := s.store.Channels.Delete(ctx, channelID); err != nil {
		return fmt.Errorf("deleting channel: %w", err)
	}
	if err := s.store.Mutes.ClearChannel(ctx, channelID); err != nil {
		// Mutes of a deleted channel are unreachable; they only linger until expiry.
		s.logger.Warn("clearing mutes", zap.String("channel_id", channelID.String()), zap.Error(err))
	}

	out.users(&channelID, audience, events.TypeChannelDeleted, events.ChannelDeleted{ChannelID: channelID})
	s.logger.Info("channel deleted", zap.String("channel_id", channelID.String()))
	return nil
}

// GetChannel returns the full membership projection for a non-banned member.
func (s *ChannelService) GetChannel(ctx context.Context, channelID, viewerID uuid.UUID) (*domain.ChannelDetail, error) {
	ch, err := s.requireChannel(ctx, channelID)
	if err != nil {
		return nil, err
	}
	_, role, err := s.roleOf(ctx, channelID, viewerID)
	if err != nil {
		return nil, err
	}
	if role == policy.NoRole || role == domain.RoleBanned {
		return nil, ErrNotChannelMember
	}

	members, err := s.store.Channels.ListMembers(ctx, channelID)
	if err != nil {
		return nil, err
	}
	mutes, err := s.store.Mutes.ListByChannel(ctx, channelID, s.now())
	if err != nil {
		return nil, err
	}

	detail := &domain.ChannelDetail{
		Channel:  *ch,
		Admins:   []domain.UserSummary{},
		Members:  []domain.UserSummary{},
		Banned:   []domain.UserSummary{},
		Mutes:    make(map[uuid.UUID]time.Time, len(mutes)),
		Messages: []domain.Message{},
	}
	for _, m := range members {
		summary := m.Summary()
		switch m.Role {
		case domain.RoleOwner:
			detail.Owner = &summary
		case domain.RoleAdmin:
			detail.Admins = append(detail.Admins, summary)
		case domain.RoleMember:
			detail.Members = append(detail.Members, summary)
		case domain.RoleBanned:
			detail.Banned = append(detail.Banned, summary)
		}
	}
	for _, mute := range mutes {
		detail.Mutes[mute.UserID] = mute.ExpiresAt
	}
	return detail, nil
}

// ListPublicChannels returns the channels anyone can find.
func (s *ChannelService) ListPublicChannels(ctx context.Context) ([]domain.Channel, error) {
	channels, err := s.store.Channels.ListListed(ctx)
	if err != nil {
		return nil, err
	}
	if channels == nil {
		channels = []domain.Channel{}
	}
	return channels, nil
}

// OpenDirect returns the direct channel between the two users, creating it
// when it does not exist yet. created reports which of the two happened.
func (s *ChannelService) OpenDirect(ctx context.Context, userID, counterpartID uuid.UUID) (ch *domain.Channel, created bool, err error) {
	if userID == counterpartID {
		return nil, false, fmt.Errorf("%w: cannot open a direct channel with yourself", ErrInvalidArgument)
	}

	err = s.mutate(ctx, "open_direct", pairKey(userID, counterpartID), func(ctx context.Context, out *outbox) error {
		existing, err := s.store.Channels.FindDirect(ctx, userID, counterpartID)
		if err != nil {
			return err
		}
		if existing != nil {
			ch = existing
			return nil
		}

		user, err := s.requireUser(ctx, userID)
		if err != nil {
			return err
		}
		counterpart, err := s.requireUser(ctx, counterpartID)
		if err != nil {
			return err
		}

		now := s.now()
		ch = &domain.Channel{
			ID:        uuid.New(),
			Name:      user.Username + ", " + counterpart.Username,
			Kind:      domain.KindDirect,
			CreatedAt: now,
		}
		if err := s.store.Channels.Create(ctx, ch); err != nil {
			return fmt.Errorf("creating direct channel: %w", err)
		}
		for _, m := range []*domain.ChannelMember{
			{ChannelID: ch.ID, UserID: userID, Role: domain.RoleOwner, JoinedAt: now},
			{ChannelID: ch.ID, UserID: counterpartID, Role: domain.RoleMember, JoinedAt: now},
		} {
			if err := s.store.Channels.AddMember(ctx, m); err != nil {
				return fmt.Errorf("adding direct member: %w", err)
			}
		}

		// Each side sees the channel under the other side's name.
		out.users(&ch.ID, []uuid.UUID{userID}, events.TypeDirectCreated, events.DirectCreated{
			Channel:     directSummary(ch, counterpart, domain.RoleOwner),
			Counterpart: counterpart.Summary(),
		})
		out.users(&ch.ID, []uuid.UUID{counterpartID}, events.TypeDirectCreated, events.DirectCreated{
			Channel:     directSummary(ch, user, domain.RoleMember),
			Counterpart: user.Summary(),
		})
		created = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}
	return ch, created, nil
}

func (s *ChannelService) checkPassword(ch *domain.Channel, password *string) bool {
	if ch.PasswordHash == nil || password == nil {
		return false
	}
	return s.hasher.Verify(*ch.PasswordHash, *password)
}

// loadPair loads the channel and the roles of actor and target.
func (s *ChannelService) loadPair(ctx context.Context, channelID, actorID, targetID uuid.UUID) (*domain.Channel, domain.Role, domain.Role, error) {
	ch, err := s.requireChannel(ctx, channelID)
	if err != nil {
		return nil, "", "", err
	}
	_, actorRole, err := s.roleOf(ctx, channelID, actorID)
	if err != nil {
		return nil, "", "", err
	}
	_, targetRole, err := s.roleOf(ctx, channelID, targetID)
	if err != nil {
		return nil, "", "", err
	}
	return ch, actorRole, targetRole, nil
}

func joinedPayload(ch *domain.Channel, member domain.UserSummary, role domain.Role) events.MemberJoined {
	return events.MemberJoined{
		ChannelID: ch.ID,
		Member:    member,
		Role:      role,
		Channel: domain.ChannelSummary{
			ID: ch.ID, Name: ch.Name, Avatar: ch.Avatar, Kind: ch.Kind, Role: role,
		},
	}
}

func directSummary(ch *domain.Channel, other *domain.User, role domain.Role) domain.ChannelSummary {
	return domain.ChannelSummary{
		ID: ch.ID, Name: other.Username, Avatar: other.AvatarURL, Kind: domain.KindDirect, Role: role,
	}
}

// pairKey derives one lock key for an unordered pair of users.
func pairKey(a, b uuid.UUID) uuid.UUID {
	if a.String() > b.String() {
		a, b = b, a
	}
	return uuid.NewSHA1(a, b[:])
}

func appendMissing(ids []uuid.UUID, extra ...uuid.UUID) []uuid.UUID {
	for _, id := range extra {
		found := false
		for _, have := range ids {
			if have == id {
				found = true
				break
			}
		}
		if !found {
			ids = append(ids, id)
		}
	}
	return ids
}
