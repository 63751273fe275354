package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/mindbloss/internal/domain"
)

// JournalStore is an in-memory implementation of domain.JournalStore.
// It is NOT persistent and is only suitable for development / local mode.
// Entries are cloned on the way in and out.
type JournalStore struct {
	mu      sync.RWMutex
	max     int
	entries map[string][]*domain.JournalEntry // keyed by domain.JournalKey
	now     func() time.Time
}

// NewJournalStore creates an in-memory JournalStore keeping at most max entries
// per user. max <= 0 uses domain.DefaultHistoryCap.
func NewJournalStore(max int) *JournalStore {
	if max <= 0 {
		max = domain.DefaultHistoryCap
	}
	return &JournalStore{
		max:     max,
		entries: make(map[string][]*domain.JournalEntry),
		now:     time.Now,
	}
}

// AppendJournalEntry saves a new entry and evicts the oldest ones past the cap.
func (s *JournalStore) AppendJournalEntry(_ context.Context, entry *domain.JournalEntry) error {
	if entry == nil {
		return nil
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == "" {
		entry.ID = domain.JournalEntryID(uuid.NewString())
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}

	key := domain.JournalKey(entry.UserID)
	list := append(s.entries[key], entry.Clone())
	s.entries[key] = domain.CapHistory(list, s.max)

	return nil
}

// ListJournalEntriesByUser returns the last `limit` entries for a user, oldest first.
// If limit <= 0, returns all.
func (s *JournalStore) ListJournalEntriesByUser(_ context.Context, userID domain.UserID, limit int) ([]*domain.JournalEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	list := domain.CapHistory(s.entries[domain.JournalKey(userID)], limit)
	out := make([]*domain.JournalEntry, len(list))
	for i, e := range list {
		out[i] = e.Clone()
	}
	return out, nil
}

var _ domain.JournalStore = (*JournalStore)(nil)
