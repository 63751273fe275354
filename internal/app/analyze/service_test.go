package analyze_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/PabloGalante/mindbloss/internal/adapters/llm"
	"github.com/PabloGalante/mindbloss/internal/adapters/storage/memory"
	"github.com/PabloGalante/mindbloss/internal/app/analyze"
	journalapp "github.com/PabloGalante/mindbloss/internal/app/journal"
	"github.com/PabloGalante/mindbloss/internal/catalog"
	"github.com/PabloGalante/mindbloss/internal/domain"
)

func newService(t *testing.T) (*analyze.Service, *llm.MockLLM, *memory.JournalStore) {
	t.Helper()
	reg := catalog.MustDefault()
	mock := llm.NewMockLLM()
	store := memory.NewJournalStore(0)
	return analyze.NewService(mock, journalapp.NewService(store, mock, reg), reg), mock, store
}

func mood(m int) *int { return &m }

func TestAnalyzeWithCharacter(t *testing.T) {
	svc, mock, _ := newService(t)

	out, err := svc.Analyze(context.Background(), analyze.Input{
		Entry:       "I finally finished the report.",
		CharacterID: "nova",
		Protocol:    "thought-record",
		Mood:        mood(6),
		Emotions:    []string{"Relieved", "tired"},
	})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if out.Analysis == "" || out.Persona == nil || out.Persona.ID != domain.PersonaNova {
		t.Fatalf("unexpected output %+v", out)
	}
	if out.Entry != nil {
		t.Fatalf("no user id means no journal entry")
	}

	req := mock.Requests()[0]
	if !strings.HasPrefix(req.SystemPrompt, "You are Nova") {
		t.Fatalf("expected nova template, got %q", req.SystemPrompt)
	}
	for _, want := range []string{
		"User mood: 6/10. Emotions: relieved, tired.",
		"They completed the Thought Record protocol. Respond supportively.",
	} {
		if !strings.Contains(req.SystemPrompt, want) {
			t.Fatalf("system prompt missing %q:\n%s", want, req.SystemPrompt)
		}
	}
	if req.UserContent != "I finally finished the report." {
		t.Fatalf("unexpected user content %q", req.UserContent)
	}
	if req.Temperature != 0.7 || req.MaxOutputTokens != 300 {
		t.Fatalf("expected debrief settings, got %v/%d", req.Temperature, req.MaxOutputTokens)
	}
}

func TestAnalyzeFallbacks(t *testing.T) {
	svc, mock, _ := newService(t)
	ctx := context.Background()

	out, err := svc.Analyze(ctx, analyze.Input{Entry: "hello", CharacterID: "zorro"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if out.Persona.ID != domain.PersonaSol {
		t.Fatalf("unknown persona should fall back to sol, got %s", out.Persona.ID)
	}

	out, err = svc.Analyze(ctx, analyze.Input{Entry: "hello", Mode: "nonsense"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if out.Mode.ID != domain.ModeDebrief || out.Persona != nil {
		t.Fatalf("unknown mode should fall back to debrief, got %+v", out)
	}

	out, err = svc.Analyze(ctx, analyze.Input{Entry: "hello", Mode: "chat", Protocol: "Box Breathing"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	req := mock.Requests()[2]
	if out.Mode.ID != domain.ModeChat || req.MaxOutputTokens != 500 {
		t.Fatalf("expected chat settings, got %+v / %d", out.Mode, req.MaxOutputTokens)
	}
	if !strings.Contains(req.SystemPrompt, "They completed the Box Breathing protocol.") {
		t.Fatalf("free-form protocol name missing:\n%s", req.SystemPrompt)
	}
	if strings.Contains(req.SystemPrompt, "User mood") {
		t.Fatalf("mood clause must be omitted without a mood")
	}
}

func TestAnalyzeJournalsForUser(t *testing.T) {
	svc, _, store := newService(t)
	ctx := context.Background()

	out, err := svc.Analyze(ctx, analyze.Input{UserID: "u1", Entry: "rainy day", Mood: mood(4)})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if out.Entry == nil {
		t.Fatalf("expected journal entry")
	}

	entries, _ := store.ListJournalEntriesByUser(ctx, "u1", 0)
	if len(entries) != 1 || entries[0].Entry != "rainy day" || entries[0].Mood != 4 || entries[0].Mode != domain.ModeDebrief {
		t.Fatalf("unexpected journal %+v", entries)
	}
}

func TestAnalyzeValidation(t *testing.T) {
	svc, mock, _ := newService(t)
	ctx := context.Background()

	if _, err := svc.Analyze(ctx, analyze.Input{Entry: "   "}); !errors.Is(err, domain.ErrEmptyEntry) {
		t.Fatalf("expected ErrEmptyEntry, got %v", err)
	}
	if _, err := svc.Analyze(ctx, analyze.Input{Entry: "x", Mood: mood(12)}); !errors.Is(err, domain.ErrInvalidMood) {
		t.Fatalf("expected ErrInvalidMood, got %v", err)
	}
	if len(mock.Requests()) != 0 {
		t.Fatalf("invalid input must not reach the completion client")
	}
}

func TestAnalyzeCompletionFailure(t *testing.T) {
	svc, mock, store := newService(t)
	mock.Err = errors.New("boom")

	if _, err := svc.Analyze(context.Background(), analyze.Input{UserID: "u1", Entry: "x"}); err == nil {
		t.Fatalf("expected error")
	}
	if entries, _ := store.ListJournalEntriesByUser(context.Background(), "u1", 0); len(entries) != 0 {
		t.Fatalf("failure must not be journaled")
	}
}

func TestAnalyzeDefaultsToDebriefVoice(t *testing.T) {
	svc, mock, _ := newService(t)

	out, err := svc.Analyze(context.Background(), analyze.Input{Entry: "long day"})
	if err != nil {
		t.Fatalf("Analyze failed: %v", err)
	}
	if out.Mode.ID != domain.ModeDebrief || out.Persona != nil {
		t.Fatalf("expected debrief mode voice, got %+v", out)
	}
	req := mock.Requests()[0]
	if !strings.HasPrefix(req.SystemPrompt, strings.TrimSpace(out.Mode.SystemPrompt)) {
		t.Fatalf("system prompt should start with the debrief prompt:\n%s", req.SystemPrompt)
	}
}
