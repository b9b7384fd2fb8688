package redisstore

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/vedran77/arena/internal/domain"
)

const scanBatch = 100

type MuteStore struct {
	client *redis.Client
	prefix string
}

func NewMuteStore(client *redis.Client) *MuteStore {
	return &MuteStore{client: client, prefix: "arena:mute:"}
}

func (s *MuteStore) key(channelID, userID uuid.UUID) string {
	return s.prefix + channelID.String() + ":" + userID.String()
}

func (s *MuteStore) channelPattern(channelID uuid.UUID) string {
	return s.prefix + channelID.String() + ":*"
}

// Set stores the entry with a TTL of its remaining time as of now. Entries
// that are already over are dropped instead.
func (s *MuteStore) Set(ctx context.Context, entry domain.MuteEntry, now time.Time) error {
	key := s.key(entry.ChannelID, entry.UserID)

	ttl := entry.ExpiresAt.Sub(now)
	if ttl <= 0 {
		return s.client.Del(ctx, key).Err()
	}

	data, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("failed to marshal mute: %w", err)
	}
	if err := s.client.Set(ctx, key, data, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set mute in Redis: %w", err)
	}
	return nil
}

func (s *MuteStore) Get(ctx context.Context, channelID, userID uuid.UUID, now time.Time) (*domain.MuteEntry, error) {
	data, err := s.client.Get(ctx, s.key(channelID, userID)).Bytes()
	if err == redis.Nil {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get mute from Redis: %w", err)
	}

	entry, err := decodeEntry(data)
	if err != nil {
		return nil, err
	}
	// TTL resolution is coarser than the caller's clock.
	if !now.Before(entry.ExpiresAt) {
		return nil, nil
	}
	return entry, nil
}

func (s *MuteStore) ListByChannel(ctx context.Context, channelID uuid.UUID, now time.Time) ([]domain.MuteEntry, error) {
	keys, err := s.scan(ctx, s.channelPattern(channelID))
	if err != nil {
		return nil, err
	}
	if len(keys) == 0 {
		return nil, nil
	}

	values, err := s.client.MGet(ctx, keys...).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to read mutes from Redis: %w", err)
	}

	var entries []domain.MuteEntry
	for _, v := range values {
		raw, ok := v.(string)
		if !ok {
			// expired between SCAN and MGET
			continue
		}
		entry, err := decodeEntry([]byte(raw))
		if err != nil {
			return nil, err
		}
		if now.Before(entry.ExpiresAt) {
			entries = append(entries, *entry)
		}
	}
	return entries, nil
}

func (s *MuteStore) ClearChannel(ctx context.Context, channelID uuid.UUID) error {
	keys, err := s.scan(ctx, s.channelPattern(channelID))
	if err != nil {
		return err
	}
	if len(keys) == 0 {
		return nil
	}
	if err := s.client.Del(ctx, keys...).Err(); err != nil {
		return fmt.Errorf("failed to clear mutes in Redis: %w", err)
	}
	return nil
}

func (s *MuteStore) scan(ctx context.Context, pattern string) ([]string, error) {
	var keys []string
	iter := s.client.Scan(ctx, 0, pattern, scanBatch).Iterator()
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		return nil, fmt.Errorf("failed to scan mutes in Redis: %w", err)
	}
	return keys, nil
}

func decodeEntry(data []byte) (*domain.MuteEntry, error) {
	var entry domain.MuteEntry
	if err := json.Unmarshal(data, &entry); err != nil {
		return nil, fmt.Errorf("failed to unmarshal mute: %w", err)
	}
	return &entry, nil
}
