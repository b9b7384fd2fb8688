package memory

import (
	"context"
	"slices"
	"strings"

	"github.com/google/uuid"
	"github.com/vedran77/arena/internal/domain"
	"github.com/vedran77/arena/internal/repository"
)

type ChannelRepo struct {
	db *DB
}

func NewChannelRepo(db *DB) *ChannelRepo {
	return &ChannelRepo{db: db}
}

func (r *ChannelRepo) Create(ctx context.Context, ch *domain.Channel) error {
	defer r.db.lock(ctx)()

	if _, exists := r.db.t.channels[ch.ID]; exists {
		return repository.ErrDuplicate
	}
	r.db.t.channels[ch.ID] = *ch
	return nil
}

func (r *ChannelRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Channel, error) {
	defer r.db.lock(ctx)()

	ch, ok := r.db.t.channels[id]
	if !ok {
		return nil, nil
	}
	return &ch, nil
}

func (r *ChannelRepo) ListListed(ctx context.Context) ([]domain.Channel, error) {
	defer r.db.lock(ctx)()

	var channels []domain.Channel
	for _, ch := range r.db.t.channels {
		if ch.Kind.Listed() {
			channels = append(channels, ch)
		}
	}
	slices.SortFunc(channels, func(a, b domain.Channel) int {
		return a.CreatedAt.Compare(b.CreatedAt)
	})
	return channels, nil
}

func (r *ChannelRepo) FindDirect(ctx context.Context, userA, userB uuid.UUID) (*domain.Channel, error) {
	defer r.db.lock(ctx)()

	for id, ch := range r.db.t.channels {
		if ch.Kind != domain.KindDirect {
			continue
		}
		_, hasA := r.db.t.members[memberKey{id, userA}]
		_, hasB := r.db.t.members[memberKey{id, userB}]
		if hasA && hasB {
			return &ch, nil
		}
	}
	return nil, nil
}

func (r *ChannelRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.ChannelSummary, error) {
	defer r.db.lock(ctx)()

	var mine []domain.ChannelMember
	for key, m := range r.db.t.members {
		if key.userID == userID && m.Role != domain.RoleBanned {
			mine = append(mine, m)
		}
	}
	sortMembers(mine)

	summaries := make([]domain.ChannelSummary, 0, len(mine))
	for _, m := range mine {
		ch, ok := r.db.t.channels[m.ChannelID]
		if !ok {
			continue
		}
		summaries = append(summaries, domain.ChannelSummary{
			ID: ch.ID, Name: ch.Name, Avatar: ch.Avatar, Kind: ch.Kind, Role: m.Role,
		})
	}
	return summaries, nil
}

func (r *ChannelRepo) Update(ctx context.Context, ch *domain.Channel) error {
	defer r.db.lock(ctx)()

	if _, exists := r.db.t.channels[ch.ID]; !exists {
		return nil
	}
	r.db.t.channels[ch.ID] = *ch
	return nil
}

func (r *ChannelRepo) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.db.lock(ctx)()

	delete(r.db.t.channels, id)
	return nil
}

func (r *ChannelRepo) AddMember(ctx context.Context, m *domain.ChannelMember) error {
	defer r.db.lock(ctx)()

	key := memberKey{m.ChannelID, m.UserID}
	if _, exists := r.db.t.members[key]; exists {
		return repository.ErrDuplicate
	}
	r.db.t.seq++
	m.Seq = r.db.t.seq
	r.db.t.members[key] = *m
	return nil
}

func (r *ChannelRepo) UpdateMemberRole(ctx context.Context, channelID, userID uuid.UUID, role domain.Role) error {
	defer r.db.lock(ctx)()

	key := memberKey{channelID, userID}
	m, ok := r.db.t.members[key]
	if !ok {
		return nil
	}
	m.Role = role
	r.db.t.members[key] = m
	return nil
}

func (r *ChannelRepo) RemoveMember(ctx context.Context, channelID, userID uuid.UUID) error {
	defer r.db.lock(ctx)()

	delete(r.db.t.members, memberKey{channelID, userID})
	return nil
}

func (r *ChannelRepo) RemoveAllMembers(ctx context.Context, channelID uuid.UUID) error {
	defer r.db.lock(ctx)()

	for key := range r.db.t.members {
		if key.channelID == channelID {
			delete(r.db.t.members, key)
		}
	}
	return nil
}

func (r *ChannelRepo) GetMember(ctx context.Context, channelID, userID uuid.UUID) (*domain.ChannelMember, error) {
	defer r.db.lock(ctx)()

	m, ok := r.db.t.members[memberKey{channelID, userID}]
	if !ok {
		return nil, nil
	}
	r.joinUser(&m)
	return &m, nil
}

func (r *ChannelRepo) ListMembers(ctx context.Context, channelID uuid.UUID) ([]domain.ChannelMember, error) {
	defer r.db.lock(ctx)()

	var members []domain.ChannelMember
	for key, m := range r.db.t.members {
		if key.channelID == channelID {
			r.joinUser(&m)
			members = append(members, m)
		}
	}
	sortMembers(members)
	return members, nil
}

func (r *ChannelRepo) ListMemberIDs(ctx context.Context, channelID uuid.UUID) ([]uuid.UUID, error) {
	members, err := r.ListMembers(ctx, channelID)
	if err != nil {
		return nil, err
	}
	ids := make([]uuid.UUID, 0, len(members))
	for _, m := range members {
		if m.Role != domain.RoleBanned {
			ids = append(ids, m.UserID)
		}
	}
	return ids, nil
}

func (r *ChannelRepo) joinUser(m *domain.ChannelMember) {
	if u, ok := r.db.t.users[m.UserID]; ok {
		m.Username = u.Username
		m.Avatar = u.AvatarURL
		m.Status = u.Status
	}
}

func sortMembers(members []domain.ChannelMember) {
	slices.SortFunc(members, func(a, b domain.ChannelMember) int {
		switch {
		case a.Seq < b.Seq:
			return -1
		case a.Seq > b.Seq:
			return 1
		}
		return 0
	})
}

func sortSummaries(users []domain.UserSummary) {
	slices.SortFunc(users, func(a, b domain.UserSummary) int {
		return strings.Compare(a.Username, b.Username)
	})
}
