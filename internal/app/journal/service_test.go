package journal_test

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/PabloGalante/mindbloss/internal/adapters/llm"
	"github.com/PabloGalante/mindbloss/internal/adapters/storage/memory"
	journalapp "github.com/PabloGalante/mindbloss/internal/app/journal"
	"github.com/PabloGalante/mindbloss/internal/catalog"
	"github.com/PabloGalante/mindbloss/internal/domain"
)

var now = time.Date(2025, 3, 14, 12, 0, 0, 0, time.UTC)

func newService(t *testing.T) (*journalapp.Service, *memory.JournalStore, *llm.MockLLM) {
	t.Helper()
	store := memory.NewJournalStore(0)
	mock := llm.NewMockLLM()
	svc := journalapp.NewService(store, mock, catalog.MustDefault(),
		journalapp.WithClock(func() time.Time { return now }),
	)
	return svc, store, mock
}

func TestRecordFillsIDAndTime(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newService(t)

	entry := &domain.JournalEntry{UserID: "u1", Entry: "walked by the river"}
	if err := svc.Record(ctx, entry); err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if entry.ID == "" {
		t.Fatalf("expected id")
	}
	if !entry.CreatedAt.Equal(now) {
		t.Fatalf("expected created_at %s, got %s", now, entry.CreatedAt)
	}

	got, err := svc.GetUserJournal(ctx, "u1", 0)
	if err != nil {
		t.Fatalf("GetUserJournal failed: %v", err)
	}
	if len(got) != 1 || got[0].Entry != "walked by the river" {
		t.Fatalf("unexpected journal %+v", got)
	}
}

func TestRecordRequiresUser(t *testing.T) {
	svc, _, _ := newService(t)
	if err := svc.Record(context.Background(), &domain.JournalEntry{Entry: "x"}); !errors.Is(err, domain.ErrMissingUser) {
		t.Fatalf("expected ErrMissingUser, got %v", err)
	}
	if _, err := svc.GetUserJournal(context.Background(), "", 5); !errors.Is(err, domain.ErrMissingUser) {
		t.Fatalf("expected ErrMissingUser, got %v", err)
	}
}

func TestGetUserJournalEmptyIsNotNil(t *testing.T) {
	svc, _, _ := newService(t)
	got, err := svc.GetUserJournal(context.Background(), "nobody", 5)
	if err != nil {
		t.Fatalf("GetUserJournal failed: %v", err)
	}
	if got == nil || len(got) != 0 {
		t.Fatalf("expected empty slice, got %#v", got)
	}
}

func TestWeeklyRecapEmptySkipsCompletion(t *testing.T) {
	ctx := context.Background()
	svc, store, mock := newService(t)

	// only an entry older than the window
	old := &domain.JournalEntry{UserID: "u1", Entry: "old", CreatedAt: now.Add(-8 * 24 * time.Hour)}
	if err := store.AppendJournalEntry(ctx, old); err != nil {
		t.Fatalf("append: %v", err)
	}

	recap, err := svc.WeeklyRecap(ctx, "u1")
	if err != nil {
		t.Fatalf("WeeklyRecap failed: %v", err)
	}
	if !recap.Empty || recap.Text != journalapp.EmptyRecapMessage {
		t.Fatalf("expected empty recap, got %+v", recap)
	}
	if n := len(mock.Requests()); n != 0 {
		t.Fatalf("expected no completion request, got %d", n)
	}
}

func TestWeeklyRecapUsesLastSevenDays(t *testing.T) {
	ctx := context.Background()
	svc, store, mock := newService(t)

	entries := []*domain.JournalEntry{
		{UserID: "u1", Entry: "too old", CreatedAt: now.Add(-10 * 24 * time.Hour)},
		{UserID: "u1", Entry: "monday entry", CreatedAt: now.Add(-4 * 24 * time.Hour)},
		{UserID: "u1", Answers: []domain.Answer{{Key: "good_things", Value: "sunny walk"}}, CreatedAt: now.Add(-time.Hour)},
		{UserID: "u2", Entry: "someone else", CreatedAt: now.Add(-time.Hour)},
	}
	for _, e := range entries {
		if err := store.AppendJournalEntry(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
	}

	recap, err := svc.WeeklyRecap(ctx, "u1")
	if err != nil {
		t.Fatalf("WeeklyRecap failed: %v", err)
	}
	if recap.Empty || recap.EntryCount != 2 || recap.Text == "" {
		t.Fatalf("unexpected recap %+v", recap)
	}

	reqs := mock.Requests()
	if len(reqs) != 1 {
		t.Fatalf("expected 1 completion request, got %d", len(reqs))
	}
	user := reqs[0].UserContent
	if strings.Contains(user, "too old") || strings.Contains(user, "someone else") {
		t.Fatalf("recap included out-of-scope entries:\n%s", user)
	}
	newest := strings.Index(user, "good_things: sunny walk")
	older := strings.Index(user, "monday entry")
	if newest < 0 || older < 0 || newest > older {
		t.Fatalf("expected most recent entry first:\n%s", user)
	}
	if !strings.Contains(reqs[0].SystemPrompt, "exactly three") {
		t.Fatalf("expected recap system prompt, got %q", reqs[0].SystemPrompt)
	}
	if reqs[0].MaxOutputTokens != 500 {
		t.Fatalf("expected recap token budget, got %d", reqs[0].MaxOutputTokens)
	}
}

func TestWeeklyRecapCompletionFailure(t *testing.T) {
	ctx := context.Background()
	svc, store, mock := newService(t)
	mock.Err = errors.New("upstream down")

	if err := store.AppendJournalEntry(ctx, &domain.JournalEntry{UserID: "u1", Entry: "x", CreatedAt: now}); err != nil {
		t.Fatalf("append: %v", err)
	}
	if _, err := svc.WeeklyRecap(ctx, "u1"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestSelectWindow(t *testing.T) {
	from, to := now.Add(-time.Hour), now
	in := []*domain.JournalEntry{
		{Entry: "before", CreatedAt: from.Add(-time.Second)},
		{Entry: "edge", CreatedAt: from},
		nil,
		{Entry: "inside", CreatedAt: now.Add(-time.Minute)},
		{Entry: "after", CreatedAt: to.Add(time.Second)},
	}
	got := journalapp.SelectWindow(in, from, to)
	if len(got) != 2 || got[0].Entry != "edge" || got[1].Entry != "inside" {
		t.Fatalf("unexpected selection %+v", got)
	}
}
