package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/arena/internal/domain"
	"github.com/vedran77/arena/internal/events"
	"github.com/vedran77/arena/internal/metrics"
	"github.com/vedran77/arena/internal/repository"
	"go.uber.org/zap"
)

// Broadcaster delivers events to connected clients. Implementations log and
// swallow delivery failures.
type Broadcaster interface {
	// ToChannel delivers to the channel's non-banned members as stored at the
	// time of the call, plus any ids in also.
	ToChannel(ctx context.Context, channelID uuid.UUID, evt events.Envelope, also ...uuid.UUID)
	ToUsers(ctx context.Context, userIDs []uuid.UUID, evt events.Envelope)
	ToAll(ctx context.Context, evt events.Envelope)
}

type PasswordHasher interface {
	Hash(secret string) (string, error)
	Verify(digest, secret string) bool
}

// Store bundles the storage gateway.
type Store struct {
	Tx       repository.Transactor
	Users    repository.UserRepository
	Friends  repository.FriendRepository
	Channels repository.ChannelRepository
	Messages repository.MessageRepository
	Mutes    repository.MuteStore
}

// Deps is shared by every service. Services that mutate the same channels
// must share one Locks value.
type Deps struct {
	Store   Store
	Hasher  PasswordHasher
	Bus     Broadcaster
	Locks   *ChannelLocks
	Logger  *zap.Logger
	Metrics *metrics.Metrics
	Clock   func() time.Time
}

type core struct {
	store   Store
	hasher  PasswordHasher
	bus     Broadcaster
	locks   *ChannelLocks
	logger  *zap.Logger
	metrics *metrics.Metrics
	now     func() time.Time
}

func newCore(d Deps) core {
	c := core{
		store:   d.Store,
		hasher:  d.Hasher,
		bus:     d.Bus,
		locks:   d.Locks,
		logger:  d.Logger,
		metrics: d.Metrics,
		now:     d.Clock,
	}
	if c.bus == nil {
		c.bus = nopBroadcaster{}
	}
	if c.locks == nil {
		c.locks = NewChannelLocks()
	}
	if c.logger == nil {
		c.logger = zap.NewNop()
	}
	if c.now == nil {
		c.now = time.Now
	}
	return c
}

type scope int

const (
	scopeChannel scope = iota
	scopeUsers
	scopeAll
)

type emission struct {
	scope     scope
	channelID uuid.UUID
	users     []uuid.UUID
	evt       events.Envelope
}

// outbox collects the events of one operation. They are only handed to the
// broadcaster once the transaction has committed.
type outbox struct {
	logger  *zap.Logger
	pending []emission
}

func (o *outbox) build(t events.Type, channelID *uuid.UUID, payload any) (events.Envelope, bool) {
	evt, err := events.New(t, channelID, payload)
	if err != nil {
		o.logger.Error("encoding event", zap.String("event", string(t)), zap.Error(err))
		return events.Envelope{}, false
	}
	return evt, true
}

// channel queues an event for the channel audience plus also.
func (o *outbox) channel(channelID uuid.UUID, t events.Type, payload any, also ...uuid.UUID) {
	if evt, ok := o.build(t, &channelID, payload); ok {
		o.pending = append(o.pending, emission{scope: scopeChannel, channelID: channelID, users: also, evt: evt})
	}
}

func (o *outbox) users(channelID *uuid.UUID, userIDs []uuid.UUID, t events.Type, payload any) {
	if len(userIDs) == 0 {
		return
	}
	if evt, ok := o.build(t, channelID, payload); ok {
		o.pending = append(o.pending, emission{scope: scopeUsers, users: userIDs, evt: evt})
	}
}

func (o *outbox) all(t events.Type, payload any) {
	if evt, ok := o.build(t, nil, payload); ok {
		o.pending = append(o.pending, emission{scope: scopeAll, evt: evt})
	}
}

// mutate runs fn in one transaction while holding the lock for key, then
// flushes the queued events in order before releasing the lock. Events of one
// key therefore reach the broadcaster in commit order.
func (c *core) mutate(ctx context.Context, op string, key uuid.UUID, fn func(ctx context.Context, out *outbox) error) (err error) {
	start := time.Now()
	defer func() { c.metrics.ObserveOp(op, time.Since(start).Seconds(), err) }()

	unlock := c.locks.Lock(key)
	defer unlock()

	out := &outbox{logger: c.logger}
	if err := c.store.Tx.WithinTx(ctx, func(ctx context.Context) error {
		return fn(ctx, out)
	}); err != nil {
		return storageError(err)
	}

	c.flush(ctx, out)
	return nil
}

func (c *core) flush(ctx context.Context, out *outbox) {
	// The mutation has committed; a cancelled request must not lose its events.
	ctx = context.WithoutCancel(ctx)

	for _, e := range out.pending {
		switch e.scope {
		case scopeChannel:
			c.bus.ToChannel(ctx, e.channelID, e.evt, e.users...)
		case scopeUsers:
			c.bus.ToUsers(ctx, e.users, e.evt)
		case scopeAll:
			c.bus.ToAll(ctx, e.evt)
		}
		c.metrics.EventEmitted(string(e.evt.Type))
	}
}

// requireUser loads a user or fails with ErrUserNotFound.
func (c *core) requireUser(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := c.store.Users.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrUserNotFound
	}
	return user, nil
}

func (c *core) requireChannel(ctx context.Context, id uuid.UUID) (*domain.Channel, error) {
	ch, err := c.store.Channels.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if ch == nil {
		return nil, ErrChannelNotFound
	}
	return ch, nil
}

// roleOf returns the stored membership (nil when absent) and its role.
func (c *core) roleOf(ctx context.Context, channelID, userID uuid.UUID) (*domain.ChannelMember, domain.Role, error) {
	m, err := c.store.Channels.GetMember(ctx, channelID, userID)
	if err != nil {
		return nil, "", err
	}
	if m == nil {
		return nil, "", nil
	}
	return m, m.Role, nil
}

type nopBroadcaster struct{}

func (nopBroadcaster) ToChannel(context.Context, uuid.UUID, events.Envelope, ...uuid.UUID) {}
func (nopBroadcaster) ToUsers(context.Context, []uuid.UUID, events.Envelope)              {}
func (nopBroadcaster) ToAll(context.Context, events.Envelope)                            {}
