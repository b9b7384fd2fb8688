package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/vedran77/arena/internal/domain"
)

// MuteStore keeps mute entries in a map; expired entries are pruned on read.
type MuteStore struct {
	mu      sync.Mutex
	entries map[memberKey]domain.MuteEntry
}

func NewMuteStore() *MuteStore {
	return &MuteStore{entries: make(map[memberKey]domain.MuteEntry)}
}

func (s *MuteStore) Set(ctx context.Context, entry domain.MuteEntry, now time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey{entry.ChannelID, entry.UserID}
	if !entry.ExpiresAt.After(now) {
		delete(s.entries, key)
		return nil
	}
	s.entries[key] = entry
	return nil
}

func (s *MuteStore) Get(ctx context.Context, channelID, userID uuid.UUID, now time.Time) (*domain.MuteEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	key := memberKey{channelID, userID}
	entry, ok := s.entries[key]
	if !ok {
		return nil, nil
	}
	if !entry.ExpiresAt.After(now) {
		delete(s.entries, key)
		return nil, nil
	}
	return &entry, nil
}

func (s *MuteStore) ListByChannel(ctx context.Context, channelID uuid.UUID, now time.Time) ([]domain.MuteEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var entries []domain.MuteEntry
	for key, entry := range s.entries {
		if key.channelID != channelID {
			continue
		}
		if !entry.ExpiresAt.After(now) {
			delete(s.entries, key)
			continue
		}
		entries = append(entries, entry)
	}
	slices.SortFunc(entries, func(a, b domain.MuteEntry) int {
		return a.ExpiresAt.Compare(b.ExpiresAt)
	})
	return entries, nil
}

func (s *MuteStore) ClearChannel(ctx context.Context, channelID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for key := range s.entries {
		if key.channelID == channelID {
			delete(s.entries, key)
		}
	}
	return nil
}
