package mirror

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/arena/internal/domain"
	"github.com/vedran77/arena/internal/events"
)

// world is one open PUBLIC channel seen by self, a plain member.
type world struct {
	self, owner, admin, member domain.UserSummary
	channel                    domain.ChannelSummary
}

func newWorld() world {
	user := func(name string) domain.UserSummary {
		return domain.UserSummary{ID: uuid.New(), Username: name, Status: domain.StatusOnline}
	}
	return world{
		self:    user("self"),
		owner:   user("owner"),
		admin:   user("admin"),
		member:  user("member"),
		channel: domain.ChannelSummary{ID: uuid.New(), Name: "lobby", Kind: domain.KindPublic, Role: domain.RoleMember},
	}
}

func (w world) state() State {
	owner := w.owner
	return State{
		Self: &domain.AuthenticatedUser{
			UserSummary: w.self,
			Friends:     []domain.UserSummary{w.member},
			Channels:    []domain.ChannelSummary{w.channel},
		},
		Open: &domain.ChannelDetail{
			Channel:  domain.Channel{ID: w.channel.ID, Name: w.channel.Name, Kind: w.channel.Kind},
			Owner:    &owner,
			Admins:   []domain.UserSummary{w.admin},
			Members:  []domain.UserSummary{w.self, w.member},
			Banned:   []domain.UserSummary{},
			Mutes:    map[uuid.UUID]time.Time{},
			Messages: []domain.Message{},
		},
	}
}

func envelope(t *testing.T, typ events.Type, payload any) events.Envelope {
	t.Helper()
	evt, err := events.New(typ, nil, payload)
	require.NoError(t, err)
	return evt
}

func apply(t *testing.T, s State, evts ...events.Envelope) State {
	t.Helper()
	for _, evt := range evts {
		var err error
		s, err = Apply(s, evt)
		require.NoError(t, err)
	}
	return s
}

func ids(users []domain.UserSummary) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(users))
	for _, u := range users {
		out = append(out, u.ID)
	}
	return out
}

func channelIDs(list []domain.ChannelSummary) []uuid.UUID {
	out := make([]uuid.UUID, 0, len(list))
	for _, c := range list {
		out = append(out, c.ID)
	}
	return out
}

func TestApply_MemberLeftTwiceEqualsOnce(t *testing.T) {
	w := newWorld()
	left := envelope(t, events.TypeMemberLeft, events.MemberLeft{ChannelID: w.channel.ID, UserID: w.member.ID})

	once := apply(t, w.state(), left)
	twice := apply(t, once, left)

	assert.Equal(t, once, twice)
	assert.Equal(t, []uuid.UUID{w.self.ID}, ids(once.Open.Members))
}

func TestApply_LeavesInputUntouched(t *testing.T) {
	w := newWorld()
	before := w.state()

	msg := domain.Message{ID: uuid.New(), ChannelID: w.channel.ID, SenderID: w.owner.ID, Type: domain.MessageText}
	name := "renamed"
	_ = apply(t, before,
		envelope(t, events.TypeMemberLeft, events.MemberLeft{ChannelID: w.channel.ID, UserID: w.member.ID}),
		envelope(t, events.TypeRoleChanged, events.RoleChanged{ChannelID: w.channel.ID, User: w.admin, Role: domain.RoleBanned}),
		envelope(t, events.TypeMemberMuted, events.MemberMuted{ChannelID: w.channel.ID, UserID: w.self.ID, ExpiresAt: time.Now()}),
		envelope(t, events.TypeMessagePosted, events.MessagePosted{Message: msg}),
		envelope(t, events.TypeChannelUpdated, events.ChannelUpdated{ChannelID: w.channel.ID, ChannelPatch: domain.ChannelPatch{Name: &name}}),
		envelope(t, events.TypeUserStatusChanged, events.UserStatusChanged{UserID: w.member.ID, Status: domain.StatusInGame}),
		envelope(t, events.TypeChannelDeleted, events.ChannelDeleted{ChannelID: w.channel.ID}),
	)

	assert.Equal(t, w.state(), before)
}

func TestApply_MemberJoined(t *testing.T) {
	w := newWorld()
	stranger := domain.UserSummary{ID: uuid.New(), Username: "stranger"}
	joined := envelope(t, events.TypeMemberJoined, events.MemberJoined{
		ChannelID: w.channel.ID, Member: stranger, Role: domain.RoleMember, Channel: w.channel,
	})

	s := apply(t, w.state(), joined, joined)

	assert.Equal(t, []uuid.UUID{w.self.ID, w.member.ID, stranger.ID}, ids(s.Open.Members))
	assert.Len(t, s.Self.Channels, 1)
}

func TestApply_SelfJoinAddsChannelOnce(t *testing.T) {
	w := newWorld()
	other := domain.ChannelSummary{ID: uuid.New(), Name: "other", Kind: domain.KindProtected, Role: domain.RoleMember}
	joined := envelope(t, events.TypeMemberJoined, events.MemberJoined{
		ChannelID: other.ID, Member: w.self, Role: domain.RoleMember, Channel: other,
	})

	s := apply(t, w.state(), joined, joined)

	assert.Equal(t, []uuid.UUID{w.channel.ID, other.ID}, channelIDs(s.Self.Channels))
	assert.Equal(t, w.state().Open, s.Open)
}

func TestApply_SelfLeaveClearsOpenChannel(t *testing.T) {
	w := newWorld()

	s := apply(t, w.state(), envelope(t, events.TypeMemberLeft, events.MemberLeft{
		ChannelID: w.channel.ID, UserID: w.self.ID, Kicked: true,
	}))

	assert.Nil(t, s.Open)
	assert.Empty(t, s.Self.Channels)
}

func TestApply_BanEvictsFromEveryView(t *testing.T) {
	w := newWorld()

	s := apply(t, w.state(),
		envelope(t, events.TypeRoleChanged, events.RoleChanged{
			ChannelID: w.channel.ID, User: w.admin, Role: domain.RoleBanned, PreviousRole: domain.RoleAdmin,
		}),
		envelope(t, events.TypeRoleChanged, events.RoleChanged{
			ChannelID: w.channel.ID, User: w.member, Role: domain.RoleBanned, PreviousRole: domain.RoleMember,
		}),
	)

	assert.Empty(t, s.Open.Admins)
	assert.Equal(t, []uuid.UUID{w.self.ID}, ids(s.Open.Members))
	assert.Equal(t, []uuid.UUID{w.admin.ID, w.member.ID}, ids(s.Open.Banned))
	assert.Equal(t, w.owner.ID, s.Open.Owner.ID)
	// Friends are not channel state.
	assert.Equal(t, []uuid.UUID{w.member.ID}, ids(s.Self.Friends))

	s = apply(t, s, envelope(t, events.TypeMemberUnbanned, events.MemberUnbanned{ChannelID: w.channel.ID, UserID: w.member.ID}))
	assert.Equal(t, []uuid.UUID{w.admin.ID}, ids(s.Open.Banned))
}

func TestApply_BanOfSelfDropsChannel(t *testing.T) {
	w := newWorld()

	s := apply(t, w.state(), envelope(t, events.TypeRoleChanged, events.RoleChanged{
		ChannelID: w.channel.ID, User: w.self, Role: domain.RoleBanned, PreviousRole: domain.RoleMember,
	}))

	assert.Nil(t, s.Open)
	assert.Empty(t, s.Self.Channels)
}

func TestApply_RoleChangedReclassifies(t *testing.T) {
	w := newWorld()

	s := apply(t, w.state(),
		envelope(t, events.TypeRoleChanged, events.RoleChanged{
			ChannelID: w.channel.ID, User: w.self, Role: domain.RoleAdmin, PreviousRole: domain.RoleMember,
		}),
		envelope(t, events.TypeRoleChanged, events.RoleChanged{
			ChannelID: w.channel.ID, User: w.admin, Role: domain.RoleMember, PreviousRole: domain.RoleAdmin,
		}),
	)

	assert.Equal(t, []uuid.UUID{w.self.ID}, ids(s.Open.Admins))
	assert.Equal(t, []uuid.UUID{w.member.ID, w.admin.ID}, ids(s.Open.Members))
	assert.Equal(t, domain.RoleAdmin, s.Self.Channels[0].Role)
}

func TestApply_RoleChangedForUnknownUserIsNoop(t *testing.T) {
	w := newWorld()
	stranger := domain.UserSummary{ID: uuid.New(), Username: "stranger"}

	s := apply(t, w.state(), envelope(t, events.TypeRoleChanged, events.RoleChanged{
		ChannelID: w.channel.ID, User: stranger, Role: domain.RoleAdmin, PreviousRole: domain.RoleMember,
	}))

	assert.Equal(t, w.state(), s)
}

func TestApply_OwnerLeavesAdminTakesOver(t *testing.T) {
	w := newWorld()
	sequence := []events.Envelope{
		envelope(t, events.TypeMemberLeft, events.MemberLeft{ChannelID: w.channel.ID, UserID: w.owner.ID, WasOwner: true}),
		envelope(t, events.TypeOwnerChanged, events.OwnerChanged{ChannelID: w.channel.ID, Owner: w.admin, PreviousOwnerID: &w.owner.ID}),
	}

	s := apply(t, w.state(), sequence...)

	require.NotNil(t, s.Open.Owner)
	assert.Equal(t, w.admin.ID, s.Open.Owner.ID)
	assert.Empty(t, s.Open.Admins)
	assert.Equal(t, []uuid.UUID{w.self.ID, w.member.ID}, ids(s.Open.Members))

	assert.Equal(t, s, apply(t, s, sequence...))
}

func TestApply_OwnerChangedMovesPreviousOwner(t *testing.T) {
	w := newWorld()

	s := apply(t, w.state(), envelope(t, events.TypeOwnerChanged, events.OwnerChanged{
		ChannelID: w.channel.ID, Owner: w.self, PreviousOwnerID: &w.owner.ID, PreviousRole: domain.RoleAdmin,
	}))

	assert.Equal(t, w.self.ID, s.Open.Owner.ID)
	assert.Equal(t, []uuid.UUID{w.admin.ID, w.owner.ID}, ids(s.Open.Admins))
	assert.Equal(t, []uuid.UUID{w.member.ID}, ids(s.Open.Members))
	assert.Equal(t, domain.RoleOwner, s.Self.Channels[0].Role)
}

func TestApply_ChannelUpdatedAndDeleted(t *testing.T) {
	w := newWorld()
	name := "arena"
	kind := domain.KindProtected

	s := apply(t, w.state(), envelope(t, events.TypeChannelUpdated, events.ChannelUpdated{
		ChannelID: w.channel.ID, ChannelPatch: domain.ChannelPatch{Name: &name, Kind: &kind},
	}))
	assert.Equal(t, "arena", s.Self.Channels[0].Name)
	assert.Equal(t, domain.KindProtected, s.Self.Channels[0].Kind)
	assert.Equal(t, "arena", s.Open.Name)
	assert.Equal(t, domain.KindProtected, s.Open.Kind)

	deleted := envelope(t, events.TypeChannelDeleted, events.ChannelDeleted{ChannelID: w.channel.ID})
	s = apply(t, s, deleted, deleted)
	assert.Nil(t, s.Open)
	assert.Empty(t, s.Self.Channels)
}

func TestApply_MutesAndMessages(t *testing.T) {
	w := newWorld()
	expires := time.Date(2024, 3, 1, 12, 5, 0, 0, time.UTC)
	target := w.self.ID
	pending := domain.ChallengePending
	invitation := domain.Message{
		ID: uuid.New(), ChannelID: w.channel.ID, SenderID: w.member.ID,
		Type: domain.MessageInvitation, TargetID: &target, Status: &pending,
	}
	text := "gg"
	chat := domain.Message{ID: uuid.New(), ChannelID: w.channel.ID, SenderID: w.owner.ID, Type: domain.MessageText, Content: &text}

	posted := envelope(t, events.TypeMessagePosted, events.MessagePosted{Message: invitation})
	s := apply(t, w.state(),
		envelope(t, events.TypeMemberMuted, events.MemberMuted{ChannelID: w.channel.ID, UserID: w.member.ID, ExpiresAt: expires}),
		posted, posted,
		envelope(t, events.TypeMessagePosted, events.MessagePosted{Message: chat}),
		envelope(t, events.TypeChallengeStatusChanged, events.ChallengeStatusChanged{
			ChannelID: w.channel.ID, MessageID: invitation.ID, Status: domain.ChallengeAccepted,
		}),
		envelope(t, events.TypeChallengeStatusChanged, events.ChallengeStatusChanged{
			ChannelID: w.channel.ID, MessageID: chat.ID, Status: domain.ChallengeAccepted,
		}),
	)

	require.Contains(t, s.Open.Mutes, w.member.ID)
	assert.True(t, expires.Equal(s.Open.Mutes[w.member.ID]))
	require.Len(t, s.Open.Messages, 2)
	assert.Equal(t, domain.ChallengeAccepted, *s.Open.Messages[0].Status)
	assert.Nil(t, s.Open.Messages[1].Status)
}

func TestApply_UserChangesReachEveryCopy(t *testing.T) {
	w := newWorld()
	avatar := "https://cdn.arena.test/m.png"
	renamed := w.member
	renamed.Username = "member2"
	renamed.Avatar = &avatar

	s := apply(t, w.state(),
		envelope(t, events.TypeUserStatusChanged, events.UserStatusChanged{UserID: w.member.ID, Status: domain.StatusInGame}),
		envelope(t, events.TypeUserStatusChanged, events.UserStatusChanged{UserID: w.self.ID, Status: domain.StatusOffline}),
		envelope(t, events.TypeUserUpdated, events.UserUpdated{User: renamed}),
	)

	assert.Equal(t, domain.StatusOffline, s.Self.Status)
	friend := s.Self.Friends[0]
	assert.Equal(t, domain.StatusInGame, friend.Status)
	assert.Equal(t, "member2", friend.Username)
	assert.Equal(t, &avatar, friend.Avatar)
	assert.Equal(t, friend, s.Open.Members[1])
	assert.Equal(t, domain.StatusOffline, s.Open.Members[0].Status)
}

func TestApply_DirectCreated(t *testing.T) {
	w := newWorld()
	direct := domain.ChannelSummary{ID: uuid.New(), Name: w.member.Username, Kind: domain.KindDirect, Role: domain.RoleMember}
	evt := envelope(t, events.TypeDirectCreated, events.DirectCreated{Channel: direct, Counterpart: w.member})

	s := apply(t, w.state(), evt, evt)

	assert.Equal(t, []uuid.UUID{w.channel.ID, direct.ID}, channelIDs(s.Self.Channels))
}

func TestApply_OtherChannelsAndEmptyState(t *testing.T) {
	w := newWorld()
	elsewhere := uuid.New()
	evts := []events.Envelope{
		envelope(t, events.TypeMemberLeft, events.MemberLeft{ChannelID: elsewhere, UserID: w.member.ID}),
		envelope(t, events.TypeRoleChanged, events.RoleChanged{ChannelID: elsewhere, User: w.member, Role: domain.RoleBanned}),
		envelope(t, events.TypeOwnerChanged, events.OwnerChanged{ChannelID: elsewhere, Owner: w.member}),
		envelope(t, events.TypeChannelDeleted, events.ChannelDeleted{ChannelID: elsewhere}),
		envelope(t, events.TypeMemberMuted, events.MemberMuted{ChannelID: elsewhere, UserID: w.member.ID}),
	}

	assert.Equal(t, w.state(), apply(t, w.state(), evts...))
	assert.Equal(t, State{}, apply(t, State{}, evts...))
}

func TestApply_UnknownAndMalformedEvents(t *testing.T) {
	w := newWorld()

	s, err := Apply(w.state(), events.Envelope{Type: "pong"})
	require.NoError(t, err)
	assert.Equal(t, w.state(), s)

	s, err = Apply(w.state(), events.Envelope{Type: events.TypeMemberLeft, Payload: json.RawMessage(`{"user_id":`)})
	require.Error(t, err)
	assert.Equal(t, w.state(), s)
}
