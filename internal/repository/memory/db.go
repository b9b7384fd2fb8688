// Package memory is an in-process StorageGateway used by tests and by the
// "memory" storage driver. Transactions snapshot the whole dataset and roll
// back by restoring it.
package memory

import (
	"context"
	"maps"
	"sync"

	"github.com/google/uuid"
	"github.com/vedran77/arena/internal/domain"
)

type memberKey struct {
	channelID uuid.UUID
	userID    uuid.UUID
}

type tables struct {
	users    map[uuid.UUID]domain.User
	channels map[uuid.UUID]domain.Channel
	members  map[memberKey]domain.ChannelMember
	messages map[uuid.UUID]domain.Message
	friends  map[uuid.UUID]map[uuid.UUID]struct{}
	seq      int64
}

func (t *tables) clone() *tables {
	friends := make(map[uuid.UUID]map[uuid.UUID]struct{}, len(t.friends))
	for id, set := range t.friends {
		friends[id] = maps.Clone(set)
	}
	return &tables{
		users:    maps.Clone(t.users),
		channels: maps.Clone(t.channels),
		members:  maps.Clone(t.members),
		messages: maps.Clone(t.messages),
		friends:  friends,
		seq:      t.seq,
	}
}

// DB is the shared dataset behind every memory repository.
type DB struct {
	mu sync.Mutex
	t  *tables
}

func NewDB() *DB {
	return &DB{t: &tables{
		users:    make(map[uuid.UUID]domain.User),
		channels: make(map[uuid.UUID]domain.Channel),
		members:  make(map[memberKey]domain.ChannelMember),
		messages: make(map[uuid.UUID]domain.Message),
		friends:  make(map[uuid.UUID]map[uuid.UUID]struct{}),
	}}
}

type txKey struct{}

func (db *DB) inTx(ctx context.Context) bool {
	owner, _ := ctx.Value(txKey{}).(*DB)
	return owner == db
}

// lock takes the dataset mutex unless ctx already runs inside one of our
// transactions, which holds it for the whole callback.
func (db *DB) lock(ctx context.Context) func() {
	if db.inTx(ctx) {
		return func() {}
	}
	db.mu.Lock()
	return db.mu.Unlock
}

func (db *DB) WithinTx(ctx context.Context, fn func(ctx context.Context) error) error {
	if db.inTx(ctx) {
		return fn(ctx)
	}

	db.mu.Lock()
	defer db.mu.Unlock()

	snapshot := db.t.clone()
	if err := fn(context.WithValue(ctx, txKey{}, db)); err != nil {
		db.t = snapshot
		return err
	}
	return nil
}
