package journal

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/PabloGalante/mindbloss/internal/app/prompts"
	"github.com/PabloGalante/mindbloss/internal/catalog"
	"github.com/PabloGalante/mindbloss/internal/domain"
	"github.com/PabloGalante/mindbloss/internal/observability"
)

const (
	defaultListLimit   = 20
	DefaultRecapWindow = 7 * 24 * time.Hour

	// EmptyRecapMessage is shown when there is nothing to summarize.
	EmptyRecapMessage = "Nothing to summarize yet: there are no journal entries from the past week."
)

// Service holds the logic of reading, recording and summarizing journal entries.
type Service struct {
	store  domain.JournalStore
	llm    domain.CompletionClient
	reg    *catalog.Registry
	now    func() time.Time
	window time.Duration
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithRecapWindow sets how far back WeeklyRecap looks.
func WithRecapWindow(d time.Duration) Option {
	return func(s *Service) {
		if d > 0 {
			s.window = d
		}
	}
}

// NewService creates a journal service from a JournalStore and the completion client used for recaps.
func NewService(store domain.JournalStore, llm domain.CompletionClient, reg *catalog.Registry, opts ...Option) *Service {
	s := &Service{
		store:  store,
		llm:    llm,
		reg:    reg,
		now:    time.Now,
		window: DefaultRecapWindow,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

// GetUserJournal returns the last `limit` journal entries for a user, oldest first.
// If limit <= 0, a reasonable default value is used.
func (s *Service) GetUserJournal(ctx context.Context, userID domain.UserID, limit int) ([]*domain.JournalEntry, error) {
	if strings.TrimSpace(string(userID)) == "" {
		return nil, domain.ErrMissingUser
	}
	if limit <= 0 {
		limit = defaultListLimit
	}

	entries, err := s.store.ListJournalEntriesByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	if entries == nil {
		entries = []*domain.JournalEntry{}
	}
	return entries, nil
}

// Record appends entry to its user's history, filling ID and CreatedAt when unset.
// The store evicts the oldest entries past its cap.
func (s *Service) Record(ctx context.Context, entry *domain.JournalEntry) error {
	if entry == nil || entry.UserID == "" {
		return domain.ErrMissingUser
	}
	if entry.ID == "" {
		entry.ID = domain.JournalEntryID(uuid.NewString())
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.now().UTC()
	}

	if err := s.store.AppendJournalEntry(ctx, entry); err != nil {
		return fmt.Errorf("append journal entry: %w", err)
	}

	observability.LoggerFromContext(ctx).Infow("journal entry recorded",
		"user_id", entry.UserID,
		"entry_id", entry.ID,
		"mode", entry.Mode,
	)
	return nil
}

// Recap is the outcome of WeeklyRecap. Empty is true when no entries fell in
// the window; Text then carries EmptyRecapMessage and no completion was requested.
type Recap struct {
	UserID     domain.UserID
	Text       string
	Empty      bool
	EntryCount int
	From       time.Time
	To         time.Time
}

// WeeklyRecap summarizes the user's entries from the recap window.
func (s *Service) WeeklyRecap(ctx context.Context, userID domain.UserID) (*Recap, error) {
	if strings.TrimSpace(string(userID)) == "" {
		return nil, domain.ErrMissingUser
	}

	to := s.now().UTC()
	from := to.Add(-s.window)
	out := &Recap{UserID: userID, From: from, To: to}

	all, err := s.store.ListJournalEntriesByUser(ctx, userID, 0)
	if err != nil {
		return nil, fmt.Errorf("list journal: %w", err)
	}
	recent := SelectWindow(all, from, to)
	out.EntryCount = len(recent)

	mode, _ := s.reg.Mode(domain.ModeRecap)
	system := ""
	if mode != nil {
		system = mode.SystemPrompt
	}

	prompt, ok := prompts.BuildRecap(system, recent)
	if !ok {
		out.Empty = true
		out.Text = EmptyRecapMessage
		return out, nil
	}

	log := observability.LoggerFromContext(ctx).With("user_id", userID, "entries", len(recent))
	res, err := s.llm.Complete(ctx, prompts.ForMode(prompt, mode))
	if err != nil {
		log.Errorw("recap completion failed", "error", err)
		return nil, fmt.Errorf("weekly recap: %w", domain.CompletionError(err))
	}
	log.Infow("recap generated")

	out.Text = res.Text
	return out, nil
}

// SelectWindow keeps entries created in [from, to], preserving order.
func SelectWindow(entries []*domain.JournalEntry, from, to time.Time) []*domain.JournalEntry {
	out := make([]*domain.JournalEntry, 0, len(entries))
	for _, e := range entries {
		if e == nil || e.CreatedAt.Before(from) || e.CreatedAt.After(to) {
			continue
		}
		out = append(out, e)
	}
	return out
}
