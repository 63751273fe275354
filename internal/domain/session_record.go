package domain

import (
	"fmt"
	"slices"
)

// Lookup resolves registry ids back to their static definitions.
type Lookup interface {
	Persona(id PersonaID) (*Persona, bool)
	Protocol(id ProtocolID) (*Protocol, bool)
}

// SessionRecord is the storable form of a Session. Personas and protocols are
// referenced by id since their definitions live in the registry.
type SessionRecord struct {
	ID         SessionID  `json:"id"`
	UserID     UserID     `json:"user_id"`
	CreatedAt  Timestamp  `json:"created_at"`
	UpdatedAt  Timestamp  `json:"updated_at"`
	Mood       int        `json:"mood"`
	Emotions   []string   `json:"emotions,omitempty"`
	Priority   Priority   `json:"priority"`
	PersonaID  PersonaID  `json:"persona_id,omitempty"`
	ProtocolID ProtocolID `json:"protocol_id,omitempty"`
	Phase      Phase      `json:"phase"`
	StepIndex  int        `json:"step_index"`
	Answers    []Answer   `json:"answers,omitempty"`
	Reflection string     `json:"reflection,omitempty"`
	Generation int        `json:"generation"`
}

// Record converts the session into its storable form.
func (s *Session) Record() SessionRecord {
	r := SessionRecord{
		ID:         s.ID,
		UserID:     s.UserID,
		CreatedAt:  s.CreatedAt,
		UpdatedAt:  s.UpdatedAt,
		Mood:       s.Mood,
		Emotions:   slices.Clone(s.Emotions),
		Priority:   s.Priority,
		Phase:      s.Phase,
		StepIndex:  s.StepIndex,
		Answers:    slices.Clone(s.Answers),
		Reflection: s.Reflection,
		Generation: s.Generation,
	}
	if s.Persona != nil {
		r.PersonaID = s.Persona.ID
	}
	if s.Protocol != nil {
		r.ProtocolID = s.Protocol.ID
	}
	return r
}

// Restore rebuilds a Session, resolving persona and protocol through lookup.
func (r SessionRecord) Restore(lookup Lookup) (*Session, error) {
	s := &Session{
		ID:         r.ID,
		UserID:     r.UserID,
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		Mood:       r.Mood,
		Emotions:   r.Emotions,
		Priority:   r.Priority,
		Phase:      r.Phase,
		StepIndex:  r.StepIndex,
		Answers:    r.Answers,
		Reflection: r.Reflection,
		Generation: r.Generation,
	}
	if r.PersonaID != "" {
		p, ok := lookup.Persona(r.PersonaID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownPersona, r.PersonaID)
		}
		s.Persona = p
	}
	if r.ProtocolID != "" {
		p, ok := lookup.Protocol(r.ProtocolID)
		if !ok {
			return nil, fmt.Errorf("%w: %s", ErrUnknownProtocol, r.ProtocolID)
		}
		s.Protocol = p
	}
	if s.Phase == "" {
		s.Phase = PhaseWelcome
	}
	return s, nil
}
