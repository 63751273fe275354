package domain

import (
	"context"
	"slices"
	"strings"
	"time"
)

// DefaultHistoryCap is the number of journal entries kept per user.
const DefaultHistoryCap = 100

// JournalEntry is one completed interaction kept in the user's history.
type JournalEntry struct {
	ID        JournalEntryID `json:"id"`
	UserID    UserID         `json:"user_id"`
	SessionID SessionID      `json:"session_id,omitempty"`
	CreatedAt time.Time      `json:"created_at"`

	Mode         ModeID     `json:"mode"`
	PersonaID    PersonaID  `json:"persona_id"`
	PersonaName  string     `json:"persona_name"`
	ProtocolID   ProtocolID `json:"protocol_id,omitempty"`
	ProtocolName string     `json:"protocol_name,omitempty"`

	// Answers is filled for guided check-ins, Entry for free-text debriefs.
	Answers []Answer `json:"answers,omitempty"`
	Entry   string   `json:"entry,omitempty"`

	Reflection string   `json:"reflection"`
	Mood       int      `json:"mood"`
	Emotions   []string `json:"emotions,omitempty"`
}

// Clone returns a copy whose slices are not shared with e.
func (e *JournalEntry) Clone() *JournalEntry {
	if e == nil {
		return nil
	}
	cp := *e
	cp.Answers = slices.Clone(e.Answers)
	cp.Emotions = slices.Clone(e.Emotions)
	return &cp
}

// Text is what the user wrote: the free entry, or the answers flattened in step order.
func (e *JournalEntry) Text() string {
	if strings.TrimSpace(e.Entry) != "" {
		return e.Entry
	}
	return FlattenAnswers(e.Answers)
}

// FlattenAnswers renders answers as "key: value" lines in their recorded order.
func FlattenAnswers(answers []Answer) string {
	lines := make([]string, 0, len(answers))
	for _, a := range answers {
		lines = append(lines, string(a.Key)+": "+a.Value)
	}
	return strings.Join(lines, "\n")
}

// JournalStore is an append-only history per user. Implementations keep at most
// their configured cap of entries per user and evict the oldest ones first.
type JournalStore interface {
	AppendJournalEntry(ctx context.Context, entry *JournalEntry) error
	// ListJournalEntriesByUser returns entries oldest first. limit <= 0 means all.
	ListJournalEntriesByUser(ctx context.Context, userID UserID, limit int) ([]*JournalEntry, error)
}

// CapHistory keeps the newest max entries of an oldest-first slice.
func CapHistory[T any](entries []T, max int) []T {
	if max <= 0 || len(entries) <= max {
		return entries
	}
	return entries[len(entries)-max:]
}

// JournalKey is the namespace key a user's history lives under.
func JournalKey(userID UserID) string {
	return "journal:" + string(userID)
}
