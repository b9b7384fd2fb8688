package service

import (
	"context"
	"fmt"
	"runtime"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"
	"github.com/vedran77/arena/internal/crypto"
	"github.com/vedran77/arena/internal/domain"
	"github.com/vedran77/arena/internal/events"
	"github.com/vedran77/arena/internal/policy"
	"github.com/vedran77/arena/internal/repository"
	"github.com/vedran77/arena/internal/repository/memory"
)

type delivery struct {
	evt events.Envelope
	to  []uuid.UUID
	all bool
}

// recorder resolves channel audiences from storage at call time, like the hub.
type recorder struct {
	mu       sync.Mutex
	channels repository.ChannelRepository
	log      []delivery
}

func (r *recorder) ToChannel(ctx context.Context, channelID uuid.UUID, evt events.Envelope, also ...uuid.UUID) {
	ids, err := r.channels.ListMemberIDs(ctx, channelID)
	if err != nil {
		panic(err)
	}
	r.add(delivery{evt: evt, to: appendMissing(ids, also...)})
}

func (r *recorder) ToUsers(_ context.Context, userIDs []uuid.UUID, evt events.Envelope) {
	r.add(delivery{evt: evt, to: append([]uuid.UUID(nil), userIDs...)})
}

func (r *recorder) ToAll(_ context.Context, evt events.Envelope) {
	r.add(delivery{evt: evt, all: true})
}

func (r *recorder) add(d delivery) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = append(r.log, d)
}

func (r *recorder) deliveries() []delivery {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]delivery(nil), r.log...)
}

func (r *recorder) types() []events.Type {
	var types []events.Type
	for _, d := range r.deliveries() {
		types = append(types, d.evt.Type)
	}
	return types
}

// received lists the event types that reached userID, in order.
func (r *recorder) received(userID uuid.UUID) []events.Type {
	var types []events.Type
	for _, d := range r.deliveries() {
		if d.all {
			types = append(types, d.evt.Type)
			continue
		}
		for _, id := range d.to {
			if id == userID {
				types = append(types, d.evt.Type)
				break
			}
		}
	}
	return types
}

func (r *recorder) reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.log = nil
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

var testHashParams = crypto.Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 16, SaltLen: 8}

type fixture struct {
	db       *memory.DB
	users    *memory.UserRepo
	friends  *memory.FriendRepo
	channels *memory.ChannelRepo
	messages *memory.MessageRepo
	mutes    *memory.MuteStore
	bus      *recorder
	clock    *fakeClock
	hasher   *crypto.Hasher

	deps       Deps
	channelSvc *ChannelService
	messageSvc *MessageService
	userSvc    *UserService
}

func newFixture(t *testing.T) *fixture {
	t.Helper()

	db := memory.NewDB()
	f := &fixture{
		db:       db,
		users:    memory.NewUserRepo(db),
		friends:  memory.NewFriendRepo(db),
		channels: memory.NewChannelRepo(db),
		messages: memory.NewMessageRepo(db),
		mutes:    memory.NewMuteStore(),
		clock:    &fakeClock{now: time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)},
		hasher:   crypto.NewHasher(testHashParams),
	}
	f.bus = &recorder{channels: f.channels}

	deps := Deps{
		Store: Store{
			Tx:       db,
			Users:    f.users,
			Friends:  f.friends,
			Channels: f.channels,
			Messages: f.messages,
			Mutes:    f.mutes,
		},
		Hasher: f.hasher,
		Bus:    f.bus,
		Locks:  NewChannelLocks(),
		Clock:  f.clock.Now,
	}
	f.start(deps)
	return f
}

func (f *fixture) start(deps Deps) {
	f.deps = deps
	f.channelSvc = NewChannelService(deps)
	f.messageSvc = NewMessageService(deps)
	f.userSvc = NewUserService(deps)
}

// newAutocommitFixture is newFixture over storage that gives concurrent
// operations no isolation at all: every repository call commits on its own.
// ChannelLocks is then the only thing keeping writers of a channel apart.
func newAutocommitFixture(t *testing.T) (*fixture, *autocommit, *ownerAudit) {
	t.Helper()
	f := newFixture(t)

	tx := &autocommit{holders: make(map[uuid.UUID]*txToken)}
	audit := &ownerAudit{recorder: f.bus}
	deps := f.deps
	deps.Store.Tx = tx
	deps.Store.Channels = watchedChannels{ChannelRepository: f.channels, tx: tx}
	deps.Bus = audit
	f.start(deps)
	return f, tx, audit
}

type txToken struct{ _ byte }

type txTokenKey struct{}

// autocommit runs fn without a transaction and reports when two operations
// touch the same channel while both are still running.
type autocommit struct {
	mu       sync.Mutex
	holders  map[uuid.UUID]*txToken
	overlaps int
}

func (a *autocommit) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txTokenKey{}).(*txToken); ok {
		return fn(ctx)
	}
	tok := &txToken{}
	defer a.release(tok)
	return fn(context.WithValue(ctx, txTokenKey{}, tok))
}

func (a *autocommit) touch(ctx context.Context, channelID uuid.UUID) {
	tok, ok := ctx.Value(txTokenKey{}).(*txToken)
	if !ok {
		return
	}
	a.mu.Lock()
	holder, held := a.holders[channelID]
	switch {
	case !held:
		a.holders[channelID] = tok
	case holder != tok:
		a.overlaps++
	}
	a.mu.Unlock()

	// Widen the window between statements.
	runtime.Gosched()
}

func (a *autocommit) release(tok *txToken) {
	a.mu.Lock()
	defer a.mu.Unlock()
	for id, holder := range a.holders {
		if holder == tok {
			delete(a.holders, id)
		}
	}
}

func (a *autocommit) overlapCount() int {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.overlaps
}

// watchedChannels reports every channel-scoped call to the autocommit store.
type watchedChannels struct {
	repository.ChannelRepository
	tx *autocommit
}

func (w watchedChannels) GetByID(ctx context.Context, id uuid.UUID) (*domain.Channel, error) {
	w.tx.touch(ctx, id)
	return w.ChannelRepository.GetByID(ctx, id)
}

func (w watchedChannels) Delete(ctx context.Context, id uuid.UUID) error {
	w.tx.touch(ctx, id)
	return w.ChannelRepository.Delete(ctx, id)
}

func (w watchedChannels) AddMember(ctx context.Context, member *domain.ChannelMember) error {
	w.tx.touch(ctx, member.ChannelID)
	return w.ChannelRepository.AddMember(ctx, member)
}

func (w watchedChannels) UpdateMemberRole(ctx context.Context, channelID, userID uuid.UUID, role domain.Role) error {
	w.tx.touch(ctx, channelID)
	return w.ChannelRepository.UpdateMemberRole(ctx, channelID, userID, role)
}

func (w watchedChannels) RemoveMember(ctx context.Context, channelID, userID uuid.UUID) error {
	w.tx.touch(ctx, channelID)
	return w.ChannelRepository.RemoveMember(ctx, channelID, userID)
}

func (w watchedChannels) RemoveAllMembers(ctx context.Context, channelID uuid.UUID) error {
	w.tx.touch(ctx, channelID)
	return w.ChannelRepository.RemoveAllMembers(ctx, channelID)
}

func (w watchedChannels) GetMember(ctx context.Context, channelID, userID uuid.UUID) (*domain.ChannelMember, error) {
	w.tx.touch(ctx, channelID)
	return w.ChannelRepository.GetMember(ctx, channelID, userID)
}

func (w watchedChannels) ListMembers(ctx context.Context, channelID uuid.UUID) ([]domain.ChannelMember, error) {
	w.tx.touch(ctx, channelID)
	return w.ChannelRepository.ListMembers(ctx, channelID)
}

func (w watchedChannels) ListMemberIDs(ctx context.Context, channelID uuid.UUID) ([]uuid.UUID, error) {
	w.tx.touch(ctx, channelID)
	return w.ChannelRepository.ListMemberIDs(ctx, channelID)
}

// ownerAudit checks the one-owner rule whenever an operation publishes a
// channel event. That happens after the operation committed and before it
// released the channel lock, so every state it sees is a settled one.
type ownerAudit struct {
	*recorder
	mu         sync.Mutex
	violations []string
}

func (a *ownerAudit) ToChannel(ctx context.Context, channelID uuid.UUID, evt events.Envelope, also ...uuid.UUID) {
	a.recorder.ToChannel(ctx, channelID, evt, also...)

	members, err := a.channels.ListMembers(ctx, channelID)
	if err != nil {
		panic(err)
	}
	if owners, active := policy.OwnerCount(members); active > 0 && owners != 1 {
		a.mu.Lock()
		defer a.mu.Unlock()
		a.violations = append(a.violations, fmt.Sprintf("%s: %d owners among %d active", evt.Type, owners, active))
	}
}

func (a *ownerAudit) failures() []string {
	a.mu.Lock()
	defer a.mu.Unlock()
	return append([]string(nil), a.violations...)
}

func (f *fixture) user(t *testing.T, name string) uuid.UUID {
	t.Helper()
	u := &domain.User{
		ID:          uuid.New(),
		Email:       name + "@arena.test",
		Username:    name,
		DisplayName: name,
		Status:      domain.StatusOnline,
		CreatedAt:   f.clock.Now(),
		UpdatedAt:   f.clock.Now(),
	}
	require.NoError(t, f.users.Create(context.Background(), u))
	return u.ID
}

func (f *fixture) channel(t *testing.T, owner uuid.UUID, kind domain.ChannelKind, password string) uuid.UUID {
	t.Helper()
	input := CreateChannelInput{Name: "room-" + uuid.NewString()[:8], Kind: kind}
	if password != "" {
		input.Password = &password
	}
	ch, err := f.channelSvc.CreateChannel(context.Background(), owner, input)
	require.NoError(t, err)
	return ch.ID
}

func (f *fixture) join(t *testing.T, channelID, userID uuid.UUID) {
	t.Helper()
	_, err := f.channelSvc.JoinChannel(context.Background(), channelID, userID, nil)
	require.NoError(t, err)
}

func (f *fixture) setRole(t *testing.T, channelID, actor, target uuid.UUID, role domain.Role) {
	t.Helper()
	_, err := f.channelSvc.SetRole(context.Background(), channelID, actor, target, role)
	require.NoError(t, err)
}

func (f *fixture) role(t *testing.T, channelID, userID uuid.UUID) domain.Role {
	t.Helper()
	m, err := f.channels.GetMember(context.Background(), channelID, userID)
	require.NoError(t, err)
	if m == nil {
		return ""
	}
	return m.Role
}

// requireSingleOwner checks that a channel with active members has exactly one owner.
func (f *fixture) requireSingleOwner(t *testing.T, channelID uuid.UUID) {
	t.Helper()
	members, err := f.channels.ListMembers(context.Background(), channelID)
	require.NoError(t, err)

	owners, active := policy.OwnerCount(members)
	if active > 0 {
		require.Equal(t, 1, owners, "channel %s has %d owners", channelID, owners)
	}
}
