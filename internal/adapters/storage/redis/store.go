// Package redis stores journal history and check-in sessions in Redis.
//
// Keys are namespaced as "{prefix}:journal:{user}" (a list, oldest first) and
// "{prefix}:session:{id}" (a JSON string with a sliding TTL).
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	goredis "github.com/redis/go-redis/v9"

	"github.com/PabloGalante/mindbloss/internal/domain"
)

const defaultPrefix = "mindbloss"

// Config configures the Redis store.
type Config struct {
	Prefix     string        // key prefix, default "mindbloss"
	HistoryCap int           // entries kept per user, default domain.DefaultHistoryCap
	SessionTTL time.Duration // 0 = sessions never expire
}

// Store implements domain.JournalStore and domain.SessionStore.
type Store struct {
	client goredis.Cmdable
	lookup domain.Lookup
	prefix string
	max    int
	ttl    time.Duration
	now    func() time.Time
}

// NewStore wraps a go-redis client. lookup resolves persona and protocol ids
// when sessions are read back.
func NewStore(client goredis.Cmdable, lookup domain.Lookup, cfg Config) *Store {
	if cfg.Prefix == "" {
		cfg.Prefix = defaultPrefix
	}
	if cfg.HistoryCap <= 0 {
		cfg.HistoryCap = domain.DefaultHistoryCap
	}
	return &Store{
		client: client,
		lookup: lookup,
		prefix: cfg.Prefix,
		max:    cfg.HistoryCap,
		ttl:    cfg.SessionTTL,
		now:    time.Now,
	}
}

// Dial connects to addr and verifies the connection with PING.
func Dial(ctx context.Context, addr, password string, db int) (*goredis.Client, error) {
	client := goredis.NewClient(&goredis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("redis ping %s: %w", addr, err)
	}
	return client, nil
}

func (s *Store) journalKey(user domain.UserID) string {
	return s.prefix + ":" + domain.JournalKey(user)
}

func (s *Store) sessionKey(id domain.SessionID) string {
	return fmt.Sprintf("%s:session:%s", s.prefix, id)
}

// ─────────────────────────────────────────
// JournalStore implementation
// ─────────────────────────────────────────

// AppendJournalEntry pushes the entry and trims the list to the newest cap
// entries in one transaction.
func (s *Store) AppendJournalEntry(ctx context.Context, entry *domain.JournalEntry) error {
	if entry == nil {
		return nil
	}
	if entry.ID == "" {
		entry.ID = domain.JournalEntryID(uuid.NewString())
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now()
	}

	raw, err := json.Marshal(entry)
	if err != nil {
		return fmt.Errorf("redis AppendJournalEntry encode: %w", err)
	}

	key := s.journalKey(entry.UserID)
	_, err = s.client.TxPipelined(ctx, func(pipe goredis.Pipeliner) error {
		pipe.RPush(ctx, key, raw)
		pipe.LTrim(ctx, key, int64(-s.max), -1)
		return nil
	})
	if err != nil {
		return fmt.Errorf("redis AppendJournalEntry: %w", err)
	}
	return nil
}

func (s *Store) ListJournalEntriesByUser(ctx context.Context, userID domain.UserID, limit int) ([]*domain.JournalEntry, error) {
	start := int64(0)
	if limit > 0 {
		start = int64(-limit)
	}

	items, err := s.client.LRange(ctx, s.journalKey(userID), start, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("redis ListJournalEntriesByUser: %w", err)
	}

	out := make([]*domain.JournalEntry, 0, len(items))
	for _, item := range items {
		var e domain.JournalEntry
		if err := json.Unmarshal([]byte(item), &e); err != nil {
			return nil, fmt.Errorf("decode journal entry: %w", err)
		}
		out = append(out, &e)
	}
	return out, nil
}

// ─────────────────────────────────────────
// SessionStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	raw, err := json.Marshal(session.Record())
	if err != nil {
		return fmt.Errorf("redis CreateSession encode: %w", err)
	}

	ok, err := s.client.SetNX(ctx, s.sessionKey(session.ID), raw, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis CreateSession: %w", err)
	}
	if !ok {
		return domain.ErrSessionExists
	}
	return nil
}

func (s *Store) UpdateSession(ctx context.Context, session *domain.Session) error {
	raw, err := json.Marshal(session.Record())
	if err != nil {
		return fmt.Errorf("redis UpdateSession encode: %w", err)
	}

	ok, err := s.client.SetXX(ctx, s.sessionKey(session.ID), raw, s.ttl).Result()
	if err != nil {
		return fmt.Errorf("redis UpdateSession: %w", err)
	}
	if !ok {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	raw, err := s.client.Get(ctx, s.sessionKey(id)).Bytes()
	if err != nil {
		if errors.Is(err, goredis.Nil) {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("redis GetSession: %w", err)
	}

	var rec domain.SessionRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("redis GetSession decode: %w", err)
	}
	return rec.Restore(s.lookup)
}

func (s *Store) DeleteSession(ctx context.Context, id domain.SessionID) error {
	if err := s.client.Del(ctx, s.sessionKey(id)).Err(); err != nil {
		return fmt.Errorf("redis DeleteSession: %w", err)
	}
	return nil
}

var (
	_ domain.JournalStore = (*Store)(nil)
	_ domain.SessionStore = (*Store)(nil)
)
