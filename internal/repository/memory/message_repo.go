package memory

import (
	"context"

	"github.com/google/uuid"
	"github.com/vedran77/arena/internal/domain"
	"github.com/vedran77/arena/internal/repository"
)

type MessageRepo struct {
	db *DB
}

func NewMessageRepo(db *DB) *MessageRepo {
	return &MessageRepo{db: db}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	defer r.db.lock(ctx)()

	if _, exists := r.db.t.messages[msg.ID]; exists {
		return repository.ErrDuplicate
	}
	r.db.t.messages[msg.ID] = *msg
	return nil
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	defer r.db.lock(ctx)()

	msg, ok := r.db.t.messages[id]
	if !ok {
		return nil, nil
	}
	if u, ok := r.db.t.users[msg.SenderID]; ok {
		msg.SenderUsername = u.Username
	}
	return &msg, nil
}

func (r *MessageRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ChallengeStatus) error {
	defer r.db.lock(ctx)()

	msg, ok := r.db.t.messages[id]
	if !ok {
		return nil
	}
	msg.Status = &status
	r.db.t.messages[id] = msg
	return nil
}

func (r *MessageRepo) DeleteByChannel(ctx context.Context, channelID uuid.UUID) error {
	defer r.db.lock(ctx)()

	for id, msg := range r.db.t.messages {
		if msg.ChannelID == channelID {
			delete(r.db.t.messages, id)
		}
	}
	return nil
}
