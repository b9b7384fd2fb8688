package repository

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/arena/internal/domain"
)

var (
	// ErrDuplicate is returned when an insert hits a uniqueness constraint.
	ErrDuplicate = errors.New("duplicate key")
	// ErrConflict is returned when a concurrent transaction invalidated this one.
	ErrConflict = errors.New("concurrent modification")
)

// Transactor runs fn inside one storage transaction. Repositories called with
// the ctx handed to fn take part in that transaction. Nested calls reuse the
// outer transaction.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByUsername(ctx context.Context, username string) (*domain.User, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.UserStatus) error
	UpdateProfile(ctx context.Context, user *domain.User) error
}

type FriendRepository interface {
	ListFriends(ctx context.Context, userID uuid.UUID) ([]domain.UserSummary, error)
}

type ChannelRepository interface {
	Create(ctx context.Context, channel *domain.Channel) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Channel, error)
	ListListed(ctx context.Context) ([]domain.Channel, error)
	FindDirect(ctx context.Context, userA, userB uuid.UUID) (*domain.Channel, error)
	ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.ChannelSummary, error)
	Update(ctx context.Context, channel *domain.Channel) error
	Delete(ctx context.Context, id uuid.UUID) error

	// AddMember inserts a membership and assigns its Seq. A second membership
	// for the same (channel, user) pair fails with ErrDuplicate.
	AddMember(ctx context.Context, member *domain.ChannelMember) error
	UpdateMemberRole(ctx context.Context, channelID, userID uuid.UUID, role domain.Role) error
	RemoveMember(ctx context.Context, channelID, userID uuid.UUID) error
	RemoveAllMembers(ctx context.Context, channelID uuid.UUID) error
	GetMember(ctx context.Context, channelID, userID uuid.UUID) (*domain.ChannelMember, error)
	// ListMembers returns every membership, banned ones included, in Seq order.
	ListMembers(ctx context.Context, channelID uuid.UUID) ([]domain.ChannelMember, error)
	// ListMemberIDs returns the non-banned members, the audience of channel events.
	ListMemberIDs(ctx context.Context, channelID uuid.UUID) ([]uuid.UUID, error)
}

type MessageRepository interface {
	Create(ctx context.Context, msg *domain.Message) error
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ChallengeStatus) error
	DeleteByChannel(ctx context.Context, channelID uuid.UUID) error
}

// MuteStore keeps advisory mute entries. Expired entries read as absent.
// now is the caller's clock; every method judges expiry against it.
type MuteStore interface {
	Set(ctx context.Context, entry domain.MuteEntry, now time.Time) error
	Get(ctx context.Context, channelID, userID uuid.UUID, now time.Time) (*domain.MuteEntry, error)
	ListByChannel(ctx context.Context, channelID uuid.UUID, now time.Time) ([]domain.MuteEntry, error)
	ClearChannel(ctx context.Context, channelID uuid.UUID) error
}
