// Package checkin hosts guided check-ins: routing a mood report to a persona and
// protocol, collecting step answers and requesting the closing reflection.
package checkin

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	journalapp "github.com/PabloGalante/mindbloss/internal/app/journal"
	"github.com/PabloGalante/mindbloss/internal/app/prompts"
	"github.com/PabloGalante/mindbloss/internal/app/routing"
	"github.com/PabloGalante/mindbloss/internal/catalog"
	"github.com/PabloGalante/mindbloss/internal/domain"
	"github.com/PabloGalante/mindbloss/internal/observability"
)

type Service struct {
	llm      domain.CompletionClient
	sessions domain.SessionStore
	journal  *journalapp.Service
	reg      *catalog.Registry
	router   *routing.Router
	now      func() time.Time
	loc      *time.Location

	// mu guards busy and serializes the generation check with writes from Reset.
	mu   sync.Mutex
	busy map[domain.SessionID]struct{}
}

type Option func(*Service)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.now = now }
}

// WithLocation sets the timezone used to derive the hour when the client sends none.
func WithLocation(loc *time.Location) Option {
	return func(s *Service) {
		if loc != nil {
			s.loc = loc
		}
	}
}

func NewService(
	llm domain.CompletionClient,
	sessions domain.SessionStore,
	journal *journalapp.Service,
	reg *catalog.Registry,
	opts ...Option,
) *Service {
	s := &Service{
		llm:      llm,
		sessions: sessions,
		journal:  journal,
		reg:      reg,
		router:   routing.NewRouter(reg),
		now:      time.Now,
		loc:      time.Local,
		busy:     make(map[domain.SessionID]struct{}),
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type StartInput struct {
	// SessionID restarts an existing session that is back in welcome. Empty creates one.
	SessionID domain.SessionID
	UserID    domain.UserID
	Mood      int
	Emotions  []string
	// Hour is the client's local hour; nil uses the server clock.
	Hour *int
}

type StartOutput struct {
	Session  *domain.Session
	Decision domain.Decision
}

// Start routes the mood report and opens the selected protocol at its first step.
func (s *Service) Start(ctx context.Context, in StartInput) (*StartOutput, error) {
	if strings.TrimSpace(string(in.UserID)) == "" {
		return nil, domain.ErrMissingUser
	}
	if in.Mood < domain.MinMood || in.Mood > domain.MaxMood {
		return nil, domain.ErrInvalidMood
	}

	now := s.now()
	hour := now.In(s.loc).Hour()
	if in.Hour != nil {
		if *in.Hour < 0 || *in.Hour > 23 {
			return nil, domain.ErrInvalidHour
		}
		hour = *in.Hour
	}

	decision := s.router.Route(in.Mood, in.Emotions, hour)

	log := observability.LoggerFromContext(ctx).With(
		"user_id", in.UserID,
		"rule", decision.Rule,
		"priority", decision.Priority,
	)

	session, create, err := s.sessionForStart(ctx, in, now)
	if err != nil {
		return nil, err
	}
	if err := session.Start(in.Mood, in.Emotions, decision); err != nil {
		return nil, err
	}
	session.UpdatedAt = now

	if create {
		err = s.sessions.CreateSession(ctx, session)
	} else {
		err = s.sessions.UpdateSession(ctx, session)
	}
	if err != nil {
		log.Errorw("failed to save session", "error", err)
		return nil, fmt.Errorf("save session: %w", err)
	}

	log.Infow("check-in started",
		"session_id", session.ID,
		"persona", session.Persona.ID,
		"protocol", session.Protocol.ID,
	)
	return &StartOutput{Session: session, Decision: decision}, nil
}

func (s *Service) sessionForStart(ctx context.Context, in StartInput, now time.Time) (*domain.Session, bool, error) {
	if in.SessionID == "" {
		return domain.NewSession(domain.SessionID(uuid.NewString()), in.UserID, now), true, nil
	}

	existing, err := s.owned(ctx, in.SessionID, in.UserID)
	if err != nil {
		return nil, false, err
	}
	if existing.Phase != domain.PhaseWelcome {
		return nil, false, domain.ErrSessionActive
	}
	return existing, false, nil
}

type SubmitInput struct {
	SessionID domain.SessionID
	UserID    domain.UserID
	Answer    domain.StepInput
}

type SubmitOutput struct {
	Session *domain.Session
	// Entry is set once the protocol completed and was journaled.
	Entry *domain.JournalEntry
}

// Submit records the answer for the current step. Submitting the last step
// requests the reflection; if that fails the stored session is unchanged so
// the same answer can be submitted again.
func (s *Service) Submit(ctx context.Context, in SubmitInput) (*SubmitOutput, error) {
	if !s.acquire(in.SessionID) {
		return nil, domain.ErrSessionBusy
	}
	defer s.release(in.SessionID)

	current, err := s.owned(ctx, in.SessionID, in.UserID)
	if err != nil {
		return nil, err
	}

	log := observability.LoggerFromContext(ctx).With(
		"session_id", current.ID,
		"user_id", current.UserID,
	)

	next := current.Clone()
	if err := next.SubmitStep(in.Answer, s.now()); err != nil {
		return nil, err
	}

	if next.Phase != domain.PhaseComplete {
		if err := s.commitIfCurrent(ctx, next, current.Generation, nil); err != nil {
			return nil, err
		}
		log.Debugw("step recorded", "step_index", next.StepIndex)
		return &SubmitOutput{Session: next}, nil
	}

	mode, _ := s.reg.Mode(domain.ModeGuided)
	prompt := prompts.BuildRequest(next.Persona, next.Protocol.Name, next.Mood, next.Emotions, next.Answers)

	start := time.Now()
	res, err := s.llm.Complete(ctx, prompts.ForMode(prompt, mode))
	if err != nil {
		log.Errorw("reflection failed, session left unchanged", "error", err)
		return nil, fmt.Errorf("complete check-in: %w", domain.CompletionError(err))
	}
	log.Infow("reflection received", "elapsed_ms", time.Since(start).Milliseconds())

	complete := func() { next.Complete(res.Text, s.now()) }
	if err := s.commitIfCurrent(ctx, next, current.Generation, complete); err != nil {
		if errors.Is(err, domain.ErrSessionReset) {
			log.Warnw("discarding reflection for reset session")
		}
		return nil, err
	}

	entry := &domain.JournalEntry{
		UserID:       next.UserID,
		SessionID:    next.ID,
		CreatedAt:    next.UpdatedAt.UTC(),
		Mode:         domain.ModeGuided,
		PersonaID:    next.Persona.ID,
		PersonaName:  next.Persona.Name,
		ProtocolID:   next.Protocol.ID,
		ProtocolName: next.Protocol.Name,
		Answers:      slices.Clone(next.Answers),
		Reflection:   next.Reflection,
		Mood:         next.Mood,
		Emotions:     slices.Clone(next.Emotions),
	}
	if err := s.journal.Record(ctx, entry); err != nil {
		// the reflection is already saved on the session
		log.Errorw("failed to journal completed check-in", "error", err)
		entry = nil
	}

	return &SubmitOutput{Session: next, Entry: entry}, nil
}

// commitIfCurrent applies finish (if any) and saves next unless the stored
// session was reset or removed since generation gen was read.
func (s *Service) commitIfCurrent(ctx context.Context, next *domain.Session, gen int, finish func()) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	latest, err := s.sessions.GetSession(ctx, next.ID)
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return domain.ErrSessionReset
		}
		return fmt.Errorf("load session: %w", err)
	}
	if latest.Generation != gen {
		return domain.ErrSessionReset
	}

	if finish != nil {
		finish()
	}
	if err := s.sessions.UpdateSession(ctx, next); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Get returns a session owned by user. An empty user skips the ownership check.
func (s *Service) Get(ctx context.Context, id domain.SessionID, user domain.UserID) (*domain.Session, error) {
	return s.owned(ctx, id, user)
}

// Reset returns the session to welcome. A completion still in flight for it is
// discarded when it arrives.
func (s *Service) Reset(ctx context.Context, id domain.SessionID, user domain.UserID) (*domain.Session, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	session, err := s.owned(ctx, id, user)
	if err != nil {
		return nil, err
	}
	session.Reset(s.now())
	if err := s.sessions.UpdateSession(ctx, session); err != nil {
		return nil, fmt.Errorf("save session: %w", err)
	}

	observability.LoggerFromContext(ctx).Infow("check-in reset",
		"session_id", id,
		"generation", session.Generation,
	)
	return session, nil
}

// Discard removes the session entirely.
func (s *Service) Discard(ctx context.Context, id domain.SessionID, user domain.UserID) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := s.owned(ctx, id, user); err != nil {
		return err
	}
	if err := s.sessions.DeleteSession(ctx, id); err != nil {
		return fmt.Errorf("delete session: %w", err)
	}
	return nil
}

// SupportContacts are shown alongside crisis-priority check-ins.
func (s *Service) SupportContacts() []domain.SupportContact {
	return s.reg.SupportContacts()
}

func (s *Service) owned(ctx context.Context, id domain.SessionID, user domain.UserID) (*domain.Session, error) {
	session, err := s.sessions.GetSession(ctx, id)
	if err != nil {
		return nil, err
	}
	// other users' sessions look missing
	if user != "" && session.UserID != user {
		return nil, domain.ErrSessionNotFound
	}
	return session, nil
}

func (s *Service) acquire(id domain.SessionID) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.busy[id]; ok {
		return false
	}
	s.busy[id] = struct{}{}
	return true
}

func (s *Service) release(id domain.SessionID) {
	s.mu.Lock()
	delete(s.busy, id)
	s.mu.Unlock()
}
