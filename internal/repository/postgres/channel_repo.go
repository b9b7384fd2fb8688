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

const channelColumns = `c.id, c.name, c.kind, c.avatar, c.password_hash, c.created_at`

const memberColumns = `m.channel_id, m.user_id, m.role, m.seq, m.joined_at, u.username, u.avatar_url, u.status`

type ChannelRepo struct {
	pool *pgxpool.Pool
}

func NewChannelRepo(pool *pgxpool.Pool) *ChannelRepo {
	return &ChannelRepo{pool: pool}
}

func (r *ChannelRepo) Create(ctx context.Context, ch *domain.Channel) error {
	query := `
		INSERT INTO channels (id, name, kind, avatar, password_hash, created_at)
		VALUES ($1, $2, $3, $4, $5, $6)`
	_, err := database.Conn(ctx, r.pool).Exec(ctx, query,
		ch.ID, ch.Name, ch.Kind, ch.Avatar, ch.PasswordHash, ch.CreatedAt,
	)
	return translate(err)
}

func (r *ChannelRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels c WHERE c.id = $1`
	var ch domain.Channel
	err := database.Conn(ctx, r.pool).QueryRow(ctx, query, id).Scan(
		&ch.ID, &ch.Name, &ch.Kind, &ch.Avatar, &ch.PasswordHash, &ch.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (r *ChannelRepo) ListListed(ctx context.Context) ([]domain.Channel, error) {
	query := `SELECT ` + channelColumns + ` FROM channels c
		WHERE c.kind IN ('PUBLIC', 'PROTECTED') ORDER BY c.created_at`

	rows, err := database.Conn(ctx, r.pool).Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var channels []domain.Channel
	for rows.Next() {
		var ch domain.Channel
		if err := rows.Scan(&ch.ID, &ch.Name, &ch.Kind, &ch.Avatar, &ch.PasswordHash, &ch.CreatedAt); err != nil {
			return nil, err
		}
		channels = append(channels, ch)
	}
	return channels, rows.Err()
}

func (r *ChannelRepo) FindDirect(ctx context.Context, userA, userB uuid.UUID) (*domain.Channel, error) {
	query := `
		SELECT ` + channelColumns + `
		FROM channels c
		JOIN channel_members a ON a.channel_id = c.id AND a.user_id = $1
		JOIN channel_members b ON b.channel_id = c.id AND b.user_id = $2
		WHERE c.kind = 'DIRECT'
		ORDER BY c.created_at
		LIMIT 1`
	var ch domain.Channel
	err := database.Conn(ctx, r.pool).QueryRow(ctx, query, userA, userB).Scan(
		&ch.ID, &ch.Name, &ch.Kind, &ch.Avatar, &ch.PasswordHash, &ch.CreatedAt,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &ch, nil
}

func (r *ChannelRepo) ListByUser(ctx context.Context, userID uuid.UUID) ([]domain.ChannelSummary, error) {
	query := `
		SELECT c.id, c.name, c.avatar, c.kind, m.role
		FROM channel_members m
		JOIN channels c ON c.id = m.channel_id
		WHERE m.user_id = $1 AND m.role <> 'BANNED'
		ORDER BY m.seq`

	rows, err := database.Conn(ctx, r.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	summaries := []domain.ChannelSummary{}
	for rows.Next() {
		var s domain.ChannelSummary
		if err := rows.Scan(&s.ID, &s.Name, &s.Avatar, &s.Kind, &s.Role); err != nil {
			return nil, err
		}
		summaries = append(summaries, s)
	}
	return summaries, rows.Err()
}

func (r *ChannelRepo) Update(ctx context.Context, ch *domain.Channel) error {
	query := `UPDATE channels SET name = $1, kind = $2, avatar = $3, password_hash = $4 WHERE id = $5`
	_, err := database.Conn(ctx, r.pool).Exec(ctx, query, ch.Name, ch.Kind, ch.Avatar, ch.PasswordHash, ch.ID)
	return translate(err)
}

// Delete drops the channel; memberships and messages go with it by cascade.
func (r *ChannelRepo) Delete(ctx context.Context, id uuid.UUID) error {
	_, err := database.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM channels WHERE id = $1`, id)
	return err
}

func (r *ChannelRepo) AddMember(ctx context.Context, m *domain.ChannelMember) error {
	query := `
		INSERT INTO channel_members (channel_id, user_id, role, joined_at)
		VALUES ($1, $2, $3, $4)
		RETURNING seq`
	err := database.Conn(ctx, r.pool).QueryRow(ctx, query, m.ChannelID, m.UserID, m.Role, m.JoinedAt).Scan(&m.Seq)
	return translate(err)
}

func (r *ChannelRepo) UpdateMemberRole(ctx context.Context, channelID, userID uuid.UUID, role domain.Role) error {
	_, err := database.Conn(ctx, r.pool).Exec(ctx,
		`UPDATE channel_members SET role = $1 WHERE channel_id = $2 AND user_id = $3`,
		role, channelID, userID)
	return translate(err)
}

func (r *ChannelRepo) RemoveMember(ctx context.Context, channelID, userID uuid.UUID) error {
	_, err := database.Conn(ctx, r.pool).Exec(ctx,
		`DELETE FROM channel_members WHERE channel_id = $1 AND user_id = $2`, channelID, userID)
	return err
}

func (r *ChannelRepo) RemoveAllMembers(ctx context.Context, channelID uuid.UUID) error {
	_, err := database.Conn(ctx, r.pool).Exec(ctx, `DELETE FROM channel_members WHERE channel_id = $1`, channelID)
	return err
}

func (r *ChannelRepo) GetMember(ctx context.Context, channelID, userID uuid.UUID) (*domain.ChannelMember, error) {
	query := `SELECT ` + memberColumns + `
		FROM channel_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.channel_id = $1 AND m.user_id = $2`
	var m domain.ChannelMember
	err := database.Conn(ctx, r.pool).QueryRow(ctx, query, channelID, userID).Scan(
		&m.ChannelID, &m.UserID, &m.Role, &m.Seq, &m.JoinedAt, &m.Username, &m.Avatar, &m.Status,
	)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &m, nil
}

func (r *ChannelRepo) ListMembers(ctx context.Context, channelID uuid.UUID) ([]domain.ChannelMember, error) {
	query := `SELECT ` + memberColumns + `
		FROM channel_members m
		JOIN users u ON u.id = m.user_id
		WHERE m.channel_id = $1
		ORDER BY m.seq`

	rows, err := database.Conn(ctx, r.pool).Query(ctx, query, channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var members []domain.ChannelMember
	for rows.Next() {
		var m domain.ChannelMember
		if err := rows.Scan(&m.ChannelID, &m.UserID, &m.Role, &m.Seq, &m.JoinedAt,
			&m.Username, &m.Avatar, &m.Status); err != nil {
			return nil, err
		}
		members = append(members, m)
	}
	return members, rows.Err()
}

func (r *ChannelRepo) ListMemberIDs(ctx context.Context, channelID uuid.UUID) ([]uuid.UUID, error) {
	rows, err := database.Conn(ctx, r.pool).Query(ctx,
		`SELECT user_id FROM channel_members WHERE channel_id = $1 AND role <> 'BANNED' ORDER BY seq`,
		channelID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	return pgx.CollectRows(rows, pgx.RowTo[uuid.UUID])
}
