package postgres

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/arena/internal/database"
	"github.com/vedran77/arena/internal/domain"
)

type MessageRepo struct {
	pool *pgxpool.Pool
}

func NewMessageRepo(pool *pgxpool.Pool) *MessageRepo {
	return &MessageRepo{pool: pool}
}

func (r *MessageRepo) Create(ctx context.Context, msg *domain.Message) error {
	query := `
		INSERT INTO messages (id, channel_id, sender_id, type, content, target_id, status, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)`
	_, err := database.Conn(ctx, r.pool).Exec(ctx, query,
		msg.ID, msg.ChannelID, msg.SenderID, msg.Type, msg.Content, msg.TargetID, msg.Status, msg.CreatedAt,
	)
	return translate(err)
}

func (r *MessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	query := `
		SELECT m.id, m.channel_id, m.sender_id, m.type, m.content, m.target_id,
			m.status, m.created_at, u.username
		FROM messages m
		JOIN users u ON m.sender_id = u.id
		WHERE m.id = $1`
	var msg domain.Message
	err := database.Conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&msg.ID, &msg.ChannelID, &msg.SenderID, &msg.Type, &msg.Content,
		&msg.TargetID, &msg.Status, &msg.CreatedAt, &msg.SenderUsername,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &msg, nil
}

func (r *MessageRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.ChallengeStatus) error {
	_, err := database.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE messages SET status = $1 WHERE id = $2 AND type = 'INVITATION'`, status, id)
	return err
}

func (r *MessageRepo) DeleteByChannel(ctx context.Context, channelID uuid.UUID) error {
	_, err := database.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM messages WHERE channel_id = $1`, channelID)
	return err
}
