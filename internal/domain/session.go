package domain

import (
	"fmt"
	"slices"
	"strings"
)

// Phase is the state of a check-in session.
//
// Valid transitions:
//
//	welcome    --Start-->      collecting(0)
//	collecting --SubmitStep--> collecting(i+1) | complete
//	any        --Reset-->      welcome
type Phase string

const (
	PhaseWelcome    Phase = "welcome"
	PhaseCollecting Phase = "collecting"
	PhaseComplete   Phase = "complete"
)

// StepInput is what a client submits for the current step.
type StepInput struct {
	Text    string   `json:"text,omitempty"`
	Choices []string `json:"choices,omitempty"`
}

// Answer is one recorded step answer.
type Answer struct {
	Key   StepKey `json:"key"`
	Value string  `json:"value"`
}

// Session is one guided check-in.
type Session struct {
	ID        SessionID
	UserID    UserID
	CreatedAt Timestamp
	UpdatedAt Timestamp

	Mood     int
	Emotions []string
	Priority Priority

	Persona  *Persona
	Protocol *Protocol

	Phase     Phase
	StepIndex int
	Answers   []Answer

	// Reflection holds the completion text once the session is complete.
	Reflection string

	// Generation is bumped on every Reset so late completion results can be dropped.
	Generation int
}

// NewSession returns a session waiting in the welcome phase.
func NewSession(id SessionID, user UserID, now Timestamp) *Session {
	return &Session{
		ID:        id,
		UserID:    user,
		CreatedAt: now,
		UpdatedAt: now,
		Phase:     PhaseWelcome,
		Priority:  PriorityNormal,
	}
}

// Start binds a routing decision to the session and moves it to collecting(0).
func (s *Session) Start(mood int, emotions []string, d Decision) error {
	if d.Persona == nil || d.Protocol == nil {
		return fmt.Errorf("start session: incomplete routing decision")
	}
	if len(d.Protocol.Steps) == 0 {
		return fmt.Errorf("start session: protocol %s has no steps", d.Protocol.ID)
	}
	s.Mood = ClampMood(mood)
	s.Emotions = NormalizeEmotions(emotions)
	s.Persona = d.Persona
	s.Protocol = d.Protocol
	s.Priority = d.Priority
	s.Phase = PhaseCollecting
	s.StepIndex = 0
	s.Answers = nil
	s.Reflection = ""
	return nil
}

// CurrentStep returns the step awaiting an answer, or nil outside collecting.
func (s *Session) CurrentStep() *Step {
	if s.Phase != PhaseCollecting || s.Protocol == nil {
		return nil
	}
	if s.StepIndex < 0 || s.StepIndex >= len(s.Protocol.Steps) {
		return nil
	}
	return &s.Protocol.Steps[s.StepIndex]
}

// IsLastStep reports whether the current step is the final one.
func (s *Session) IsLastStep() bool {
	return s.Protocol != nil && s.StepIndex == len(s.Protocol.Steps)-1
}

// SubmitStep records an answer for the current step. Invalid answers leave the
// session untouched and return ErrInvalidAnswer.
func (s *Session) SubmitStep(in StepInput, now Timestamp) error {
	step := s.CurrentStep()
	if step == nil {
		return ErrNotCollecting
	}

	value, err := step.Accept(in)
	if err != nil {
		return err
	}

	s.Answers = append(s.Answers, Answer{Key: step.Key, Value: value})
	s.UpdatedAt = now

	if s.IsLastStep() {
		s.Phase = PhaseComplete
		return nil
	}
	s.StepIndex++
	return nil
}

// Complete stores the reflection returned for a finished protocol.
func (s *Session) Complete(reflection string, now Timestamp) {
	s.Reflection = reflection
	s.UpdatedAt = now
}

// Reset discards the active protocol and returns to welcome.
func (s *Session) Reset(now Timestamp) {
	s.Persona = nil
	s.Protocol = nil
	s.Priority = PriorityNormal
	s.Phase = PhaseWelcome
	s.StepIndex = 0
	s.Answers = nil
	s.Reflection = ""
	s.Mood = 0
	s.Emotions = nil
	s.Generation++
	s.UpdatedAt = now
}

// Clone returns a copy whose mutable slices are not shared with s.
func (s *Session) Clone() *Session {
	if s == nil {
		return nil
	}
	cp := *s
	cp.Emotions = slices.Clone(s.Emotions)
	cp.Answers = slices.Clone(s.Answers)
	return &cp
}

// Accept validates in against the step constraints and returns the text to record.
func (st Step) Accept(in StepInput) (string, error) {
	switch st.Kind {
	case InputSingleChoice:
		choice := strings.TrimSpace(in.Text)
		if choice == "" && len(in.Choices) == 1 {
			choice = strings.TrimSpace(in.Choices[0])
		}
		opt, ok := st.matchOption(choice)
		if !ok {
			return "", ErrInvalidAnswer
		}
		return opt, nil

	case InputMultiChoice:
		if len(in.Choices) == 0 {
			return "", ErrInvalidAnswer
		}
		picked := make([]string, 0, len(in.Choices))
		for _, c := range in.Choices {
			opt, ok := st.matchOption(strings.TrimSpace(c))
			if !ok {
				return "", ErrInvalidAnswer
			}
			if !slices.Contains(picked, opt) {
				picked = append(picked, opt)
			}
		}
		return strings.Join(picked, ", "), nil

	default:
		text := strings.TrimSpace(in.Text)
		if text == "" {
			return "", ErrInvalidAnswer
		}
		return text, nil
	}
}

func (st Step) matchOption(v string) (string, bool) {
	if v == "" {
		return "", false
	}
	for _, o := range st.Options {
		if strings.EqualFold(o, v) {
			return o, true
		}
	}
	return "", false
}

// NormalizeEmotions lowercases, trims and dedupes emotion tags.
func NormalizeEmotions(in []string) []string {
	out := make([]string, 0, len(in))
	for _, e := range in {
		e = strings.ToLower(strings.TrimSpace(e))
		if e == "" || slices.Contains(out, e) {
			continue
		}
		out = append(out, e)
	}
	return out
}
