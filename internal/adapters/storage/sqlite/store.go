// Package sqlite persists journal history and check-in sessions in a SQLite
// database through gorm.
package sqlite

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	sqlitedriver "gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormLogger "gorm.io/gorm/logger"

	"github.com/PabloGalante/mindbloss/internal/domain"
)

// journalRow is the table layout. Seq gives a stable insertion order that
// survives identical timestamps.
type journalRow struct {
	Seq          uint   `gorm:"primaryKey;autoIncrement"`
	ID           string `gorm:"uniqueIndex;size:64"`
	UserID       string `gorm:"index;size:128"`
	SessionID    string `gorm:"size:64"`
	CreatedAt    time.Time
	Mode         string
	PersonaID    string
	PersonaName  string
	ProtocolID   string
	ProtocolName string
	Answers      datatypes.JSONSlice[domain.Answer]
	Entry        string
	Reflection   string
	Mood         int
	Emotions     datatypes.JSONSlice[string]
}

func (journalRow) TableName() string { return "journal_entries" }

// sessionRow stores the session record as a JSON column.
type sessionRow struct {
	ID        string `gorm:"primaryKey;size:64"`
	UserID    string `gorm:"index;size:128"`
	Record    datatypes.JSONType[domain.SessionRecord]
	UpdatedAt time.Time
}

func (sessionRow) TableName() string { return "checkin_sessions" }

// Store implements domain.JournalStore and domain.SessionStore on SQLite.
type Store struct {
	db     *gorm.DB
	lookup domain.Lookup
	max    int
	now    func() time.Time
}

// Open opens (or creates) the database at path and migrates the schema.
func Open(path string, lookup domain.Lookup, max int) (*Store, error) {
	db, err := gorm.Open(sqlitedriver.Open(path), &gorm.Config{
		Logger: gormLogger.Default.LogMode(gormLogger.Silent),
	})
	if err != nil {
		return nil, fmt.Errorf("open sqlite %s: %w", path, err)
	}
	return New(db, lookup, max)
}

// New wraps an existing gorm handle.
func New(db *gorm.DB, lookup domain.Lookup, max int) (*Store, error) {
	if max <= 0 {
		max = domain.DefaultHistoryCap
	}
	if err := db.AutoMigrate(&journalRow{}, &sessionRow{}); err != nil {
		return nil, fmt.Errorf("migrate sqlite schema: %w", err)
	}
	return &Store{db: db, lookup: lookup, max: max, now: time.Now}, nil
}

// Close releases the underlying connection pool.
func (s *Store) Close() error {
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

// AppendJournalEntry inserts the entry and deletes the user's rows older than
// the newest cap entries, in one transaction.
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

	row := toRow(entry)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("sqlite AppendJournalEntry: %w", err)
		}

		var cutoff journalRow
		err := tx.Select("seq").
			Where("user_id = ?", row.UserID).
			Order("seq desc").
			Offset(s.max).
			Limit(1).
			Take(&cutoff).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("sqlite find eviction cutoff: %w", err)
		}

		if err := tx.Where("user_id = ? AND seq <= ?", row.UserID, cutoff.Seq).Delete(&journalRow{}).Error; err != nil {
			return fmt.Errorf("sqlite evict journal entries: %w", err)
		}
		return nil
	})
}

func (s *Store) ListJournalEntriesByUser(ctx context.Context, userID domain.UserID, limit int) ([]*domain.JournalEntry, error) {
	q := s.db.WithContext(ctx).Where("user_id = ?", string(userID)).Order("seq desc")
	if limit > 0 {
		q = q.Limit(limit)
	}

	var rows []journalRow
	if err := q.Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("sqlite ListJournalEntriesByUser: %w", err)
	}

	out := make([]*domain.JournalEntry, len(rows))
	for i, r := range rows {
		out[len(rows)-1-i] = fromRow(r)
	}
	return out, nil
}

func toRow(e *domain.JournalEntry) journalRow {
	return journalRow{
		ID:           string(e.ID),
		UserID:       string(e.UserID),
		SessionID:    string(e.SessionID),
		CreatedAt:    e.CreatedAt,
		Mode:         string(e.Mode),
		PersonaID:    string(e.PersonaID),
		PersonaName:  e.PersonaName,
		ProtocolID:   string(e.ProtocolID),
		ProtocolName: e.ProtocolName,
		Answers:      datatypes.NewJSONSlice(e.Answers),
		Entry:        e.Entry,
		Reflection:   e.Reflection,
		Mood:         e.Mood,
		Emotions:     datatypes.NewJSONSlice(e.Emotions),
	}
}

func fromRow(r journalRow) *domain.JournalEntry {
	return &domain.JournalEntry{
		ID:           domain.JournalEntryID(r.ID),
		UserID:       domain.UserID(r.UserID),
		SessionID:    domain.SessionID(r.SessionID),
		CreatedAt:    r.CreatedAt,
		Mode:         domain.ModeID(r.Mode),
		PersonaID:    domain.PersonaID(r.PersonaID),
		PersonaName:  r.PersonaName,
		ProtocolID:   domain.ProtocolID(r.ProtocolID),
		ProtocolName: r.ProtocolName,
		Answers:      []domain.Answer(r.Answers),
		Entry:        r.Entry,
		Reflection:   r.Reflection,
		Mood:         r.Mood,
		Emotions:     []string(r.Emotions),
	}
}

// ─────────────────────────────────────────
// SessionStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	row := toSessionRow(session)
	return s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var existing int64
		if err := tx.Model(&sessionRow{}).Where("id = ?", row.ID).Count(&existing).Error; err != nil {
			return fmt.Errorf("sqlite CreateSession: %w", err)
		}
		if existing > 0 {
			return domain.ErrSessionExists
		}
		if err := tx.Create(&row).Error; err != nil {
			return fmt.Errorf("sqlite CreateSession: %w", err)
		}
		return nil
	})
}

func (s *Store) UpdateSession(ctx context.Context, session *domain.Session) error {
	row := toSessionRow(session)
	res := s.db.WithContext(ctx).Model(&sessionRow{}).Where("id = ?", row.ID).Updates(map[string]any{
		"user_id":    row.UserID,
		"record":     row.Record,
		"updated_at": row.UpdatedAt,
	})
	if res.Error != nil {
		return fmt.Errorf("sqlite UpdateSession: %w", res.Error)
	}
	if res.RowsAffected == 0 {
		return domain.ErrSessionNotFound
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	var row sessionRow
	err := s.db.WithContext(ctx).Where("id = ?", string(id)).Take(&row).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, domain.ErrSessionNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("sqlite GetSession: %w", err)
	}
	return row.Record.Data().Restore(s.lookup)
}

func (s *Store) DeleteSession(ctx context.Context, id domain.SessionID) error {
	if err := s.db.WithContext(ctx).Where("id = ?", string(id)).Delete(&sessionRow{}).Error; err != nil {
		return fmt.Errorf("sqlite DeleteSession: %w", err)
	}
	return nil
}

func toSessionRow(session *domain.Session) sessionRow {
	return sessionRow{
		ID:        string(session.ID),
		UserID:    string(session.UserID),
		Record:    datatypes.NewJSONType(session.Record()),
		UpdatedAt: session.UpdatedAt,
	}
}

var (
	_ domain.JournalStore = (*Store)(nil)
	_ domain.SessionStore = (*Store)(nil)
)
