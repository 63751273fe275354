// Package storetest holds behaviour checks shared by every store backend.
package storetest

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/PabloGalante/mindbloss/internal/catalog"
	"github.com/PabloGalante/mindbloss/internal/domain"
)

// JournalFactory returns an empty store that keeps at most max entries per user.
type JournalFactory func(t *testing.T, max int) domain.JournalStore

// SessionFactory returns an empty session store.
type SessionFactory func(t *testing.T) domain.SessionStore

// RunJournalStore checks round trips, ordering and the eviction cap.
func RunJournalStore(t *testing.T, newStore JournalFactory) {
	t.Helper()
	ctx := context.Background()

	t.Run("round trip keeps order", func(t *testing.T) {
		store := newStore(t, 10)
		base := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

		for i := 0; i < 5; i++ {
			e := entry("u1", i, base)
			if err := store.AppendJournalEntry(ctx, e); err != nil {
				t.Fatalf("append %d: %v", i, err)
			}
		}
		// another user must not leak in
		if err := store.AppendJournalEntry(ctx, entry("u2", 99, base)); err != nil {
			t.Fatalf("append other user: %v", err)
		}

		got, err := store.ListJournalEntriesByUser(ctx, "u1", 0)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 5 {
			t.Fatalf("expected 5 entries, got %d", len(got))
		}
		for i, e := range got {
			if want := fmt.Sprintf("entry %d", i); e.Entry != want {
				t.Errorf("entry %d = %q, want %q", i, e.Entry, want)
			}
			if e.ID == "" {
				t.Errorf("entry %d has no id", i)
			}
		}
		if got[1].Answers[0].Value != "v1" || got[1].Mood != 1 || len(got[1].Emotions) != 2 {
			t.Errorf("fields lost in round trip: %+v", got[1])
		}
		if !got[1].CreatedAt.Equal(base.Add(time.Minute)) {
			t.Errorf("created_at = %s", got[1].CreatedAt)
		}

		limited, err := store.ListJournalEntriesByUser(ctx, "u1", 2)
		if err != nil {
			t.Fatalf("list limited: %v", err)
		}
		if len(limited) != 2 || limited[0].Entry != "entry 3" || limited[1].Entry != "entry 4" {
			t.Fatalf("limit should keep the newest entries, got %v", entryTexts(limited))
		}
	})

	t.Run("cap evicts oldest first", func(t *testing.T) {
		store := newStore(t, 3)
		base := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
		for i := 0; i < 7; i++ {
			if err := store.AppendJournalEntry(ctx, entry("u1", i, base)); err != nil {
				t.Fatalf("append %d: %v", i, err)
			}
		}

		got, err := store.ListJournalEntriesByUser(ctx, "u1", 0)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		texts := entryTexts(got)
		want := []string{"entry 4", "entry 5", "entry 6"}
		if fmt.Sprint(texts) != fmt.Sprint(want) {
			t.Fatalf("got %v, want %v", texts, want)
		}
	})

	t.Run("stored entries are isolated from callers", func(t *testing.T) {
		store := newStore(t, 3)
		base := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

		e := entry("u1", 0, base)
		if err := store.AppendJournalEntry(ctx, e); err != nil {
			t.Fatalf("append: %v", err)
		}
		e.Answers[0].Value = "changed after append"
		e.Emotions[0] = "changed"

		listed, err := store.ListJournalEntriesByUser(ctx, "u1", 0)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		listed[0].Entry = "changed after list"
		listed[0].Answers[0].Value = "changed after list"

		got, err := store.ListJournalEntriesByUser(ctx, "u1", 0)
		if err != nil {
			t.Fatalf("list again: %v", err)
		}
		if got[0].Entry != "entry 0" || got[0].Answers[0].Value != "v0" || got[0].Emotions[0] == "changed" {
			t.Fatalf("stored entry was mutated: %+v", got[0])
		}
	})

	t.Run("unknown user is empty", func(t *testing.T) {
		store := newStore(t, 3)
		got, err := store.ListJournalEntriesByUser(ctx, "nobody", 0)
		if err != nil {
			t.Fatalf("list: %v", err)
		}
		if len(got) != 0 {
			t.Fatalf("expected no entries, got %d", len(got))
		}
	})
}

// RunSessionStore checks create/get/update/delete semantics.
func RunSessionStore(t *testing.T, newStore SessionFactory) {
	t.Helper()
	ctx := context.Background()
	reg := catalog.MustDefault()

	store := newStore(t)
	now := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)

	sess := domain.NewSession("sess-1", "u1", now)
	persona, _ := reg.Persona(domain.PersonaSol)
	protocol, _ := reg.Protocol(domain.ProtocolReflectiveListening)
	if err := sess.Start(4, []string{"sad"}, domain.Decision{Persona: persona, Protocol: protocol, Priority: domain.PriorityNormal}); err != nil {
		t.Fatalf("start: %v", err)
	}

	if err := store.CreateSession(ctx, sess); err != nil {
		t.Fatalf("create: %v", err)
	}
	if err := store.CreateSession(ctx, sess); !errors.Is(err, domain.ErrSessionExists) {
		t.Fatalf("duplicate create: got %v", err)
	}

	if err := sess.SubmitStep(domain.StepInput{Text: "a rough week"}, now); err != nil {
		t.Fatalf("submit: %v", err)
	}
	if err := store.UpdateSession(ctx, sess); err != nil {
		t.Fatalf("update: %v", err)
	}

	got, err := store.GetSession(ctx, "sess-1")
	if err != nil {
		t.Fatalf("get: %v", err)
	}
	if got.StepIndex != 1 || len(got.Answers) != 1 || got.Answers[0].Value != "a rough week" {
		t.Fatalf("update not persisted: %+v", got)
	}
	if got.Persona == nil || got.Persona.ID != domain.PersonaSol || got.Protocol.ID != domain.ProtocolReflectiveListening {
		t.Fatalf("persona/protocol not restored: %+v", got)
	}

	if err := store.UpdateSession(ctx, domain.NewSession("missing", "u1", now)); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("update missing: got %v", err)
	}

	if err := store.DeleteSession(ctx, "sess-1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, err := store.GetSession(ctx, "sess-1"); !errors.Is(err, domain.ErrSessionNotFound) {
		t.Fatalf("get after delete: got %v", err)
	}
}

func entry(user domain.UserID, i int, base time.Time) *domain.JournalEntry {
	return &domain.JournalEntry{
		UserID:      user,
		CreatedAt:   base.Add(time.Duration(i) * time.Minute),
		Mode:        domain.ModeGuided,
		PersonaID:   domain.PersonaSol,
		PersonaName: "Sol",
		Answers:     []domain.Answer{{Key: "k", Value: fmt.Sprintf("v%d", i)}},
		Entry:       fmt.Sprintf("entry %d", i),
		Reflection:  "reflection",
		Mood:        i % 11,
		Emotions:    []string{"sad", "tired"},
	}
}

func entryTexts(entries []*domain.JournalEntry) []string {
	out := make([]string, 0, len(entries))
	for _, e := range entries {
		out = append(out, e.Entry)
	}
	return out
}
