package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/arena/internal/domain"
	"github.com/vedran77/arena/internal/events"
)

func TestMe(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice, bob, carol := f.user(t, "alice"), f.user(t, "bob"), f.user(t, "carol")

	me, err := f.userSvc.Me(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, "alice", me.Username)
	assert.NotNil(t, me.Friends)
	assert.NotNil(t, me.Channels)
	assert.Empty(t, me.Channels)

	f.friends.AddFriendship(ctx, alice, bob)
	owned := f.channel(t, alice, domain.KindPublic, "")
	joined := f.channel(t, carol, domain.KindPublic, "")
	f.join(t, joined, alice)
	banning := f.channel(t, carol, domain.KindPublic, "")
	f.join(t, banning, alice)
	f.setRole(t, banning, carol, alice, domain.RoleBanned)

	me, err = f.userSvc.Me(ctx, alice)
	require.NoError(t, err)
	require.Len(t, me.Friends, 1)
	assert.Equal(t, bob, me.Friends[0].ID)

	require.Len(t, me.Channels, 2, "banned memberships are not listed")
	assert.Equal(t, owned, me.Channels[0].ID)
	assert.Equal(t, domain.RoleOwner, me.Channels[0].Role)
	assert.Equal(t, joined, me.Channels[1].ID)
	assert.Equal(t, domain.RoleMember, me.Channels[1].Role)

	_, err = f.userSvc.Me(ctx, uuid.New())
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestSetStatus(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")

	_, err := f.userSvc.SetStatus(ctx, alice, "AWAY")
	assert.ErrorIs(t, err, ErrInvalidArgument)

	// Fixture users start ONLINE.
	_, err = f.userSvc.SetStatus(ctx, alice, domain.StatusOnline)
	require.NoError(t, err)
	assert.Empty(t, f.bus.deliveries())

	user, err := f.userSvc.SetStatus(ctx, alice, domain.StatusInGame)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInGame, user.Status)

	require.Len(t, f.bus.deliveries(), 1)
	d := f.bus.deliveries()[0]
	assert.True(t, d.all)
	var payload events.UserStatusChanged
	require.NoError(t, d.evt.Decode(&payload))
	assert.Equal(t, alice, payload.UserID)
	assert.Equal(t, domain.StatusInGame, payload.Status)

	stored, err := f.users.GetByID(ctx, alice)
	require.NoError(t, err)
	assert.Equal(t, domain.StatusInGame, stored.Status)
}

func TestUpdateProfile(t *testing.T) {
	f := newFixture(t)
	ctx := context.Background()
	alice := f.user(t, "alice")
	f.user(t, "bob")

	_, err := f.userSvc.UpdateProfile(ctx, alice, UpdateProfileInput{})
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = f.userSvc.UpdateProfile(ctx, alice, UpdateProfileInput{Username: ptr("bob")})
	assert.ErrorIs(t, err, ErrUsernameTaken)
	assert.Empty(t, f.bus.deliveries())

	user, err := f.userSvc.UpdateProfile(ctx, alice, UpdateProfileInput{
		Username: ptr("alicia"),
		Avatar:   ptr("https://cdn.arena.test/a.png"),
	})
	require.NoError(t, err)
	assert.Equal(t, "alicia", user.Username)
	assert.Equal(t, []events.Type{events.TypeUserUpdated}, f.bus.types())

	stored, err := f.users.GetByUsername(ctx, "alicia")
	require.NoError(t, err)
	require.NotNil(t, stored)
	assert.Equal(t, alice, stored.ID)
}
