package memory

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/arena/internal/domain"
	"github.com/vedran77/arena/internal/repository"
)

type UserRepo struct {
	db *DB
}

func NewUserRepo(db *DB) *UserRepo {
	return &UserRepo{db: db}
}

func (r *UserRepo) Create(ctx context.Context, user *domain.User) error {
	defer r.db.lock(ctx)()

	for _, u := range r.db.t.users {
		if u.Email == user.Email || u.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	if _, exists := r.db.t.users[user.ID]; exists {
		return repository.ErrDuplicate
	}
	r.db.t.users[user.ID] = *user
	return nil
}

func (r *UserRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	defer r.db.lock(ctx)()

	u, ok := r.db.t.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (r *UserRepo) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.find(ctx, func(u domain.User) bool { return u.Email == email })
}

func (r *UserRepo) GetByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.find(ctx, func(u domain.User) bool { return u.Username == username })
}

func (r *UserRepo) find(ctx context.Context, match func(domain.User) bool) (*domain.User, error) {
	defer r.db.lock(ctx)()

	for _, u := range r.db.t.users {
		if match(u) {
			return &u, nil
		}
	}
	return nil, nil
}

func (r *UserRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.UserStatus) error {
	defer r.db.lock(ctx)()

	u, ok := r.db.t.users[id]
	if !ok {
		return nil
	}
	u.Status = status
	u.UpdatedAt = time.Now()
	r.db.t.users[id] = u
	return nil
}

func (r *UserRepo) UpdateProfile(ctx context.Context, user *domain.User) error {
	defer r.db.lock(ctx)()

	u, ok := r.db.t.users[user.ID]
	if !ok {
		return nil
	}
	for id, other := range r.db.t.users {
		if id != user.ID && other.Username == user.Username {
			return repository.ErrDuplicate
		}
	}
	u.Username = user.Username
	u.DisplayName = user.DisplayName
	u.AvatarURL = user.AvatarURL
	u.UpdatedAt = time.Now()
	r.db.t.users[user.ID] = u
	return nil
}

type FriendRepo struct {
	db *DB
}

func NewFriendRepo(db *DB) *FriendRepo {
	return &FriendRepo{db: db}
}

// AddFriendship records a mutual friendship.
func (r *FriendRepo) AddFriendship(ctx context.Context, a, b uuid.UUID) {
	defer r.db.lock(ctx)()

	for _, pair := range [][2]uuid.UUID{{a, b}, {b, a}} {
		set := r.db.t.friends[pair[0]]
		if set == nil {
			set = make(map[uuid.UUID]struct{})
			r.db.t.friends[pair[0]] = set
		}
		set[pair[1]] = struct{}{}
	}
}

func (r *FriendRepo) ListFriends(ctx context.Context, userID uuid.UUID) ([]domain.UserSummary, error) {
	defer r.db.lock(ctx)()

	var friends []domain.UserSummary
	for id := range r.db.t.friends[userID] {
		if u, ok := r.db.t.users[id]; ok {
			friends = append(friends, u.Summary())
		}
	}
	sortSummaries(friends)
	return friends, nil
}
