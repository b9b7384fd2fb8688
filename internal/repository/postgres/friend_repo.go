package postgres

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/vedran77/arena/internal/database"
	"github.com/vedran77/arena/internal/domain"
)

type FriendRepo struct {
	pool *pgxpool.Pool
}

func NewFriendRepo(pool *pgxpool.Pool) *FriendRepo {
	return &FriendRepo{pool: pool}
}

// AddFriendship stores the pair once, lower id first.
func (r *FriendRepo) AddFriendship(ctx context.Context, userA, userB uuid.UUID) error {
	u1, u2 := userA, userB
	if u1.String() > u2.String() {
		u1, u2 = u2, u1
	}
	_, err := database.Conn(ctx, r.pool).Exec(ctx,
		`INSERT INTO friendships (user1_id, user2_id, created_at) VALUES ($1, $2, $3)
		ON CONFLICT DO NOTHING`,
		u1, u2, time.Now())
	return translate(err)
}

func (r *FriendRepo) ListFriends(ctx context.Context, userID uuid.UUID) ([]domain.UserSummary, error) {
	query := `
		SELECT u.id, u.username, u.avatar_url, u.status
		FROM friendships f
		JOIN users u ON u.id = CASE WHEN f.user1_id = $1 THEN f.user2_id ELSE f.user1_id END
		WHERE f.user1_id = $1 OR f.user2_id = $1
		ORDER BY u.username ASC`

	rows, err := database.Conn(ctx, r.pool).Query(ctx, query, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	friends := []domain.UserSummary{}
	for rows.Next() {
		var s domain.UserSummary
		if err := rows.Scan(&s.ID, &s.Username, &s.Avatar, &s.Status); err != nil {
			return nil, err
		}
		friends = append(friends, s)
	}
	return friends, rows.Err()
}
