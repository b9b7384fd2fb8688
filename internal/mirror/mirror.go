// Package mirror keeps a client's local view of its own channels and of the
// channel it has open. The view changes only by applying server events, in
// the order they arrive on one connection.
package mirror

import (
	"fmt"
	"slices"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/arena/internal/domain"
	"github.com/vedran77/arena/internal/events"
)

// State is what one client knows. Self is seeded from GET /me and Open from
// GET /channels/{id}. Either may be nil.
type State struct {
	Self *domain.AuthenticatedUser
	Open *domain.ChannelDetail
}

// Apply returns the state after evt. s itself is never modified: any slice
// or map that changes is copied first, so older states stay valid and
// applying an event twice gives the same result as applying it once.
// Unknown event types leave the state unchanged.
func Apply(s State, evt events.Envelope) (State, error) {
	r, ok := reducers[evt.Type]
	if !ok {
		return s, nil
	}
	return r(s, evt)
}

type reducer func(State, events.Envelope) (State, error)

func rule[P any](fn func(State, P) State) reducer {
	return func(s State, evt events.Envelope) (State, error) {
		var p P
		if err := evt.Decode(&p); err != nil {
			return s, fmt.Errorf("decoding %s: %w", evt.Type, err)
		}
		return fn(s, p), nil
	}
}

var reducers = map[events.Type]reducer{
	events.TypeMemberJoined:           rule(memberJoined),
	events.TypeMemberLeft:             rule(memberLeft),
	events.TypeRoleChanged:            rule(roleChanged),
	events.TypeOwnerChanged:           rule(ownerChanged),
	events.TypeChannelUpdated:         rule(channelUpdated),
	events.TypeChannelDeleted:         rule(channelDeleted),
	events.TypeMemberMuted:            rule(memberMuted),
	events.TypeMemberUnbanned:         rule(memberUnbanned),
	events.TypeMessagePosted:          rule(messagePosted),
	events.TypeChallengeStatusChanged: rule(challengeStatusChanged),
	events.TypeUserStatusChanged:      rule(userStatusChanged),
	events.TypeUserUpdated:            rule(userUpdated),
	events.TypeDirectCreated:          rule(directCreated),
}

func (s State) isSelf(userID uuid.UUID) bool {
	return s.Self != nil && s.Self.ID == userID
}

func (s State) isOpen(channelID uuid.UUID) bool {
	return s.Open != nil && s.Open.ID == channelID
}

// self and open return shallow copies that the rules may reassign fields on.
func (s State) self() *domain.AuthenticatedUser {
	u := *s.Self
	return &u
}

func (s State) open() *domain.ChannelDetail {
	d := *s.Open
	return &d
}

func memberJoined(s State, p events.MemberJoined) State {
	if s.isSelf(p.Member.ID) {
		if channels, ok := addChannel(s.Self.Channels, p.Channel); ok {
			self := s.self()
			self.Channels = channels
			s.Self = self
		}
		return s
	}
	if !s.isOpen(p.ChannelID) || listed(s.Open, p.Member.ID) {
		return s
	}
	d := s.open()
	place(d, p.Member, p.Role)
	s.Open = d
	return s
}

func memberLeft(s State, p events.MemberLeft) State {
	if s.isSelf(p.UserID) {
		return dropChannel(s, p.ChannelID)
	}
	if !s.isOpen(p.ChannelID) {
		return s
	}
	d := s.open()
	if removeUserInChannel(d, p.UserID) {
		s.Open = d
	}
	return s
}

func roleChanged(s State, p events.RoleChanged) State {
	if s.isSelf(p.User.ID) {
		if p.Role == domain.RoleBanned {
			return dropChannel(s, p.ChannelID)
		}
		if channels, ok := setChannelRole(s.Self.Channels, p.ChannelID, p.Role); ok {
			self := s.self()
			self.Channels = channels
			s.Self = self
		}
	}
	if !s.isOpen(p.ChannelID) || !listed(s.Open, p.User.ID) {
		return s
	}
	d := s.open()
	removeUserInChannel(d, p.User.ID)
	d.Banned, _ = without(d.Banned, p.User.ID)
	place(d, p.User, p.Role)
	s.Open = d
	return s
}

func ownerChanged(s State, p events.OwnerChanged) State {
	if s.Self != nil {
		var (
			channels []domain.ChannelSummary
			changed  bool
		)
		switch {
		case s.isSelf(p.Owner.ID):
			channels, changed = setChannelRole(s.Self.Channels, p.ChannelID, domain.RoleOwner)
		case p.PreviousOwnerID != nil && s.isSelf(*p.PreviousOwnerID) && p.PreviousRole != "":
			channels, changed = setChannelRole(s.Self.Channels, p.ChannelID, p.PreviousRole)
		}
		if changed {
			self := s.self()
			self.Channels = channels
			s.Self = self
		}
	}

	if !s.isOpen(p.ChannelID) {
		return s
	}
	d := s.open()
	if cur := d.Owner; cur != nil && cur.ID != p.Owner.ID {
		d.Owner = nil
		formerOwner := p.PreviousOwnerID == nil || *p.PreviousOwnerID == cur.ID
		if formerOwner && p.PreviousRole != "" && p.PreviousRole != domain.RoleOwner {
			place(d, *cur, p.PreviousRole)
		}
	}
	d.Admins, _ = without(d.Admins, p.Owner.ID)
	d.Members, _ = without(d.Members, p.Owner.ID)
	d.Banned, _ = without(d.Banned, p.Owner.ID)
	owner := p.Owner
	d.Owner = &owner
	s.Open = d
	return s
}

func channelUpdated(s State, p events.ChannelUpdated) State {
	if s.Self != nil {
		if i := channelIndex(s.Self.Channels, p.ChannelID); i >= 0 {
			channels := slices.Clone(s.Self.Channels)
			c := &channels[i]
			if p.Name != nil && c.Kind != domain.KindDirect {
				c.Name = *p.Name
			}
			if p.Kind != nil {
				c.Kind = *p.Kind
			}
			if p.Avatar != nil {
				c.Avatar = p.Avatar
			}
			self := s.self()
			self.Channels = channels
			s.Self = self
		}
	}
	if s.isOpen(p.ChannelID) {
		d := s.open()
		if p.Name != nil {
			d.Name = *p.Name
		}
		if p.Kind != nil {
			d.Kind = *p.Kind
		}
		if p.Avatar != nil {
			d.Avatar = p.Avatar
		}
		s.Open = d
	}
	return s
}

func channelDeleted(s State, p events.ChannelDeleted) State {
	return dropChannel(s, p.ChannelID)
}

func memberMuted(s State, p events.MemberMuted) State {
	if !s.isOpen(p.ChannelID) {
		return s
	}
	if cur, ok := s.Open.Mutes[p.UserID]; ok && cur.Equal(p.ExpiresAt) {
		return s
	}
	d := s.open()
	mutes := make(map[uuid.UUID]time.Time, len(d.Mutes)+1)
	for id, at := range d.Mutes {
		mutes[id] = at
	}
	mutes[p.UserID] = p.ExpiresAt
	d.Mutes = mutes
	s.Open = d
	return s
}

func memberUnbanned(s State, p events.MemberUnbanned) State {
	if !s.isOpen(p.ChannelID) {
		return s
	}
	banned, ok := without(s.Open.Banned, p.UserID)
	if !ok {
		return s
	}
	d := s.open()
	d.Banned = banned
	s.Open = d
	return s
}

func messagePosted(s State, p events.MessagePosted) State {
	if !s.isOpen(p.ChannelID) {
		return s
	}
	if slices.ContainsFunc(s.Open.Messages, func(m domain.Message) bool { return m.ID == p.ID }) {
		return s
	}
	d := s.open()
	d.Messages = append(slices.Clip(d.Messages), p.Message)
	s.Open = d
	return s
}

func challengeStatusChanged(s State, p events.ChallengeStatusChanged) State {
	if !s.isOpen(p.ChannelID) {
		return s
	}
	i := slices.IndexFunc(s.Open.Messages, func(m domain.Message) bool { return m.ID == p.MessageID })
	if i < 0 || s.Open.Messages[i].Type != domain.MessageInvitation {
		return s
	}
	d := s.open()
	d.Messages = slices.Clone(d.Messages)
	status := p.Status
	d.Messages[i].Status = &status
	s.Open = d
	return s
}

func userStatusChanged(s State, p events.UserStatusChanged) State {
	return updateUser(s, p.UserID, func(u *domain.UserSummary) {
		u.Status = p.Status
	})
}

func userUpdated(s State, p events.UserUpdated) State {
	return updateUser(s, p.User.ID, func(u *domain.UserSummary) {
		u.Username = p.User.Username
		u.Avatar = p.User.Avatar
	})
}

func directCreated(s State, p events.DirectCreated) State {
	if s.Self == nil {
		return s
	}
	channels, ok := addChannel(s.Self.Channels, p.Channel)
	if !ok {
		return s
	}
	self := s.self()
	self.Channels = channels
	s.Self = self
	return s
}

// dropChannel forgets a channel self no longer belongs to.
func dropChannel(s State, channelID uuid.UUID) State {
	if s.Self != nil {
		if i := channelIndex(s.Self.Channels, channelID); i >= 0 {
			self := s.self()
			self.Channels = slices.Delete(slices.Clone(s.Self.Channels), i, i+1)
			s.Self = self
		}
	}
	if s.isOpen(channelID) {
		s.Open = nil
	}
	return s
}

// updateUser applies fn to every copy of one user the state holds.
func updateUser(s State, userID uuid.UUID, fn func(*domain.UserSummary)) State {
	if s.Self != nil {
		self := s.self()
		changed := false
		if self.ID == userID {
			fn(&self.UserSummary)
			changed = true
		}
		if friends, ok := mapUser(self.Friends, userID, fn); ok {
			self.Friends = friends
			changed = true
		}
		if changed {
			s.Self = self
		}
	}
	if s.Open != nil && listed(s.Open, userID) {
		d := s.open()
		if d.Owner != nil && d.Owner.ID == userID {
			owner := *d.Owner
			fn(&owner)
			d.Owner = &owner
		}
		d.Admins, _ = mapUser(d.Admins, userID, fn)
		d.Members, _ = mapUser(d.Members, userID, fn)
		d.Banned, _ = mapUser(d.Banned, userID, fn)
		s.Open = d
	}
	return s
}

// removeUserInChannel strips a user from the owner, admin and member views.
// Banned entries are left alone.
func removeUserInChannel(d *domain.ChannelDetail, userID uuid.UUID) bool {
	removed := false
	if d.Owner != nil && d.Owner.ID == userID {
		d.Owner = nil
		removed = true
	}
	var ok bool
	if d.Admins, ok = without(d.Admins, userID); ok {
		removed = true
	}
	if d.Members, ok = without(d.Members, userID); ok {
		removed = true
	}
	return removed
}

// place puts u in the bucket for role. d must not list u already.
func place(d *domain.ChannelDetail, u domain.UserSummary, role domain.Role) {
	switch role {
	case domain.RoleOwner:
		d.Owner = &u
	case domain.RoleAdmin:
		d.Admins = append(slices.Clip(d.Admins), u)
	case domain.RoleMember:
		d.Members = append(slices.Clip(d.Members), u)
	case domain.RoleBanned:
		d.Banned = append(slices.Clip(d.Banned), u)
	}
}

func listed(d *domain.ChannelDetail, userID uuid.UUID) bool {
	if d.Owner != nil && d.Owner.ID == userID {
		return true
	}
	has := func(u domain.UserSummary) bool { return u.ID == userID }
	return slices.ContainsFunc(d.Admins, has) ||
		slices.ContainsFunc(d.Members, has) ||
		slices.ContainsFunc(d.Banned, has)
}

// without returns list minus userID in a new slice, or list itself when the
// user is absent.
func without(list []domain.UserSummary, userID uuid.UUID) ([]domain.UserSummary, bool) {
	i := slices.IndexFunc(list, func(u domain.UserSummary) bool { return u.ID == userID })
	if i < 0 {
		return list, false
	}
	return slices.Delete(slices.Clone(list), i, i+1), true
}

func mapUser(list []domain.UserSummary, userID uuid.UUID, fn func(*domain.UserSummary)) ([]domain.UserSummary, bool) {
	i := slices.IndexFunc(list, func(u domain.UserSummary) bool { return u.ID == userID })
	if i < 0 {
		return list, false
	}
	out := slices.Clone(list)
	fn(&out[i])
	return out, true
}

func channelIndex(list []domain.ChannelSummary, channelID uuid.UUID) int {
	return slices.IndexFunc(list, func(c domain.ChannelSummary) bool { return c.ID == channelID })
}

func addChannel(list []domain.ChannelSummary, c domain.ChannelSummary) ([]domain.ChannelSummary, bool) {
	if channelIndex(list, c.ID) >= 0 {
		return list, false
	}
	return append(slices.Clip(list), c), true
}

func setChannelRole(list []domain.ChannelSummary, channelID uuid.UUID, role domain.Role) ([]domain.ChannelSummary, bool) {
	i := channelIndex(list, channelID)
	if i < 0 || list[i].Role == role {
		return list, false
	}
	out := slices.Clone(list)
	out[i].Role = role
	return out, true
}
