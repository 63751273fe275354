// Package analyze answers a free-form journal entry with a persona or mode voice.
package analyze

import (
	"context"
	"fmt"
	"strings"

	journalapp "github.com/PabloGalante/mindbloss/internal/app/journal"
	"github.com/PabloGalante/mindbloss/internal/app/prompts"
	"github.com/PabloGalante/mindbloss/internal/catalog"
	"github.com/PabloGalante/mindbloss/internal/domain"
	"github.com/PabloGalante/mindbloss/internal/observability"
)

type Service struct {
	llm     domain.CompletionClient
	journal *journalapp.Service
	reg     *catalog.Registry
}

func NewService(llm domain.CompletionClient, journal *journalapp.Service, reg *catalog.Registry) *Service {
	return &Service{llm: llm, journal: journal, reg: reg}
}

type Input struct {
	// UserID, when set, journals the result.
	UserID domain.UserID
	Entry  string
	// CharacterID picks a persona voice and wins over Mode.
	CharacterID string
	Mode        string
	// Protocol is a protocol id or a free-form name.
	Protocol string
	Mood     *int
	Emotions []string
}

type Output struct {
	Analysis string
	Persona  *domain.Persona
	Mode     *domain.Mode
	Entry    *domain.JournalEntry
}

// Analyze builds the prompt for a free entry and returns the completion text.
// Unknown persona ids fall back to sol, unknown modes to debrief.
func (s *Service) Analyze(ctx context.Context, in Input) (*Output, error) {
	text := strings.TrimSpace(in.Entry)
	if text == "" {
		return nil, domain.ErrEmptyEntry
	}
	if in.Mood != nil && (*in.Mood < domain.MinMood || *in.Mood > domain.MaxMood) {
		return nil, domain.ErrInvalidMood
	}

	persona, mode, base := s.voice(in)
	protocolID, protocolName := s.protocol(in.Protocol)
	emotions := domain.NormalizeEmotions(in.Emotions)

	system := prompts.SystemPrompt(base, prompts.Context{
		Mood:         in.Mood,
		Emotions:     emotions,
		ProtocolName: protocolName,
	})
	req := prompts.ForMode(prompts.Prompt{System: system, User: text}, mode)

	log := observability.LoggerFromContext(ctx).With("mode", mode.ID)
	if persona != nil {
		log = log.With("persona", persona.ID)
	}

	res, err := s.llm.Complete(ctx, req)
	if err != nil {
		log.Errorw("analysis failed", "error", err)
		return nil, fmt.Errorf("analyze entry: %w", domain.CompletionError(err))
	}

	out := &Output{Analysis: res.Text, Persona: persona, Mode: mode}
	if in.UserID == "" {
		return out, nil
	}

	entry := &domain.JournalEntry{
		UserID:       in.UserID,
		Mode:         mode.ID,
		ProtocolID:   protocolID,
		ProtocolName: protocolName,
		Entry:        text,
		Reflection:   res.Text,
		Emotions:     emotions,
	}
	if persona != nil {
		entry.PersonaID = persona.ID
		entry.PersonaName = persona.Name
	}
	if in.Mood != nil {
		entry.Mood = *in.Mood
	}
	if err := s.journal.Record(ctx, entry); err != nil {
		log.Errorw("failed to journal analysis", "error", err)
		return out, nil
	}
	out.Entry = entry
	return out, nil
}

// voice resolves the base system prompt and the generation settings.
func (s *Service) voice(in Input) (*domain.Persona, *domain.Mode, string) {
	mode, ok := s.reg.Mode(domain.ModeID(in.Mode))
	if !ok {
		mode, _ = s.reg.Mode(domain.ModeDebrief)
	}

	if in.CharacterID == "" && strings.TrimSpace(mode.SystemPrompt) != "" {
		return nil, mode, mode.SystemPrompt
	}

	persona, ok := s.reg.Persona(domain.PersonaID(in.CharacterID))
	if !ok {
		persona, _ = s.reg.Persona(domain.PersonaSol)
	}
	return persona, mode, persona.SystemPrompt
}

func (s *Service) protocol(raw string) (domain.ProtocolID, string) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return "", ""
	}
	if p, ok := s.reg.Protocol(domain.ProtocolID(raw)); ok {
		return p.ID, p.Name
	}
	return "", raw
}
