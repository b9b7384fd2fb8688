package redisstore

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/arena/internal/domain"
	"go.uber.org/zap"
)

// newTestStore runs an in-process Redis for the test.
func newTestStore(t *testing.T) (*MuteStore, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client, err := NewClient(context.Background(), mr.Addr(), "", 0, 4, zap.NewNop())
	require.NoError(t, err)
	t.Cleanup(func() { _ = client.Close() })
	return NewMuteStore(client), mr
}

func TestMuteStore_SetGetList(t *testing.T) {
	store, _ := newTestStore(t)
	ctx := context.Background()
	channelID, alice, bob := uuid.New(), uuid.New(), uuid.New()
	other := uuid.New()

	now := time.Now()
	require.NoError(t, store.Set(ctx, domain.MuteEntry{ChannelID: channelID, UserID: alice, ExpiresAt: now.Add(time.Minute)}, now))
	require.NoError(t, store.Set(ctx, domain.MuteEntry{ChannelID: channelID, UserID: bob, ExpiresAt: now.Add(time.Hour)}, now))
	require.NoError(t, store.Set(ctx, domain.MuteEntry{ChannelID: other, UserID: alice, ExpiresAt: now.Add(time.Hour)}, now))

	got, err := store.Get(ctx, channelID, alice, now)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, alice, got.UserID)
	assert.True(t, got.ExpiresAt.Equal(now.Add(time.Minute)))

	got, err = store.Get(ctx, channelID, alice, now.Add(2*time.Minute))
	require.NoError(t, err)
	assert.Nil(t, got, "expired entries read as absent")

	entries, err := store.ListByChannel(ctx, channelID, now)
	require.NoError(t, err)
	assert.Len(t, entries, 2)

	entries, err = store.ListByChannel(ctx, channelID, now.Add(2*time.Minute))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, bob, entries[0].UserID)

	require.NoError(t, store.ClearChannel(ctx, channelID))
	entries, err = store.ListByChannel(ctx, channelID, now)
	require.NoError(t, err)
	assert.Empty(t, entries)

	got, err = store.Get(ctx, other, alice, now)
	require.NoError(t, err)
	assert.NotNil(t, got, "clearing one channel keeps the others")
}

func TestMuteStore_TTLFollowsCallerClock(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	channelID, alice := uuid.New(), uuid.New()

	// A clock a day behind the wall clock still yields a live entry.
	now := time.Now().Add(-24 * time.Hour)
	require.NoError(t, store.Set(ctx, domain.MuteEntry{ChannelID: channelID, UserID: alice, ExpiresAt: now.Add(time.Minute)}, now))

	assert.Equal(t, time.Minute, mr.TTL(store.key(channelID, alice)))
	got, err := store.Get(ctx, channelID, alice, now)
	require.NoError(t, err)
	assert.NotNil(t, got)

	mr.FastForward(time.Minute)
	got, err = store.Get(ctx, channelID, alice, now)
	require.NoError(t, err)
	assert.Nil(t, got, "the key expires with its TTL")
}

func TestMuteStore_PastExpiryDeletes(t *testing.T) {
	store, mr := newTestStore(t)
	ctx := context.Background()
	channelID, alice := uuid.New(), uuid.New()

	now := time.Now()
	require.NoError(t, store.Set(ctx, domain.MuteEntry{ChannelID: channelID, UserID: alice, ExpiresAt: now.Add(time.Minute)}, now))
	require.NoError(t, store.Set(ctx, domain.MuteEntry{ChannelID: channelID, UserID: alice, ExpiresAt: now}, now))

	assert.False(t, mr.Exists(store.key(channelID, alice)))
	got, err := store.Get(ctx, channelID, alice, now.Add(-time.Hour))
	require.NoError(t, err)
	assert.Nil(t, got)
}
