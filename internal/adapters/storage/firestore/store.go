package firestore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"cloud.google.com/go/firestore"
	"github.com/google/uuid"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/PabloGalante/mindbloss/internal/domain"
)

type Store struct {
	client *firestore.Client
	lookup domain.Lookup
	max    int
	now    func() time.Time
}

// NewStore creates a Firestore store.
// Uses the project passed (MINDBLOSS_GCP_PROJECT).
func NewStore(ctx context.Context, projectID string, lookup domain.Lookup, max int) (*Store, error) {
	if projectID == "" {
		return nil, fmt.Errorf("projectID is required for Firestore store")
	}

	client, err := firestore.NewClient(ctx, projectID)
	if err != nil {
		return nil, fmt.Errorf("creating firestore client: %w", err)
	}

	if max <= 0 {
		max = domain.DefaultHistoryCap
	}
	return &Store{client: client, lookup: lookup, max: max, now: time.Now}, nil
}

func (s *Store) Close() error {
	return s.client.Close()
}

// ─────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────

func (s *Store) checkinsCol() *firestore.CollectionRef {
	return s.client.Collection("checkins")
}

func (s *Store) checkinDoc(id domain.SessionID) *firestore.DocumentRef {
	return s.checkinsCol().Doc(string(id))
}

func (s *Store) journalCol(userID domain.UserID) *firestore.CollectionRef {
	return s.client.Collection("users").Doc(string(userID)).Collection("journal")
}

// ─────────────────────────────────────────
// Firestore Types
// ─────────────────────────────────────────

type answerDoc struct {
	Key   string `firestore:"key"`
	Value string `firestore:"value"`
}

type checkinDoc struct {
	UserID     string      `firestore:"user_id"`
	CreatedAt  time.Time   `firestore:"created_at"`
	UpdatedAt  time.Time   `firestore:"updated_at"`
	Mood       int         `firestore:"mood"`
	Emotions   []string    `firestore:"emotions"`
	Priority   string      `firestore:"priority"`
	PersonaID  string      `firestore:"persona_id"`
	ProtocolID string      `firestore:"protocol_id"`
	Phase      string      `firestore:"phase"`
	StepIndex  int         `firestore:"step_index"`
	Answers    []answerDoc `firestore:"answers"`
	Reflection string      `firestore:"reflection"`
	Generation int         `firestore:"generation"`
}

type journalDoc struct {
	SessionID    string      `firestore:"session_id"`
	CreatedAt    time.Time   `firestore:"created_at"`
	Mode         string      `firestore:"mode"`
	PersonaID    string      `firestore:"persona_id"`
	PersonaName  string      `firestore:"persona_name"`
	ProtocolID   string      `firestore:"protocol_id"`
	ProtocolName string      `firestore:"protocol_name"`
	Answers      []answerDoc `firestore:"answers"`
	Entry        string      `firestore:"entry"`
	Reflection   string      `firestore:"reflection"`
	Mood         int         `firestore:"mood"`
	Emotions     []string    `firestore:"emotions"`
}

func toAnswerDocs(in []domain.Answer) []answerDoc {
	out := make([]answerDoc, 0, len(in))
	for _, a := range in {
		out = append(out, answerDoc{Key: string(a.Key), Value: a.Value})
	}
	return out
}

func fromAnswerDocs(in []answerDoc) []domain.Answer {
	if len(in) == 0 {
		return nil
	}
	out := make([]domain.Answer, 0, len(in))
	for _, a := range in {
		out = append(out, domain.Answer{Key: domain.StepKey(a.Key), Value: a.Value})
	}
	return out
}

func toCheckinDoc(session *domain.Session) checkinDoc {
	r := session.Record()
	return checkinDoc{
		UserID:     string(r.UserID),
		CreatedAt:  r.CreatedAt,
		UpdatedAt:  r.UpdatedAt,
		Mood:       r.Mood,
		Emotions:   r.Emotions,
		Priority:   string(r.Priority),
		PersonaID:  string(r.PersonaID),
		ProtocolID: string(r.ProtocolID),
		Phase:      string(r.Phase),
		StepIndex:  r.StepIndex,
		Answers:    toAnswerDocs(r.Answers),
		Reflection: r.Reflection,
		Generation: r.Generation,
	}
}

// ─────────────────────────────────────────
// SessionStore implementation
// ─────────────────────────────────────────

func (s *Store) CreateSession(ctx context.Context, session *domain.Session) error {
	_, err := s.checkinDoc(session.ID).Create(ctx, toCheckinDoc(session))
	if err != nil {
		if status.Code(err) == codes.AlreadyExists {
			return domain.ErrSessionExists
		}
		return fmt.Errorf("firestore CreateSession: %w", err)
	}
	return nil
}

func (s *Store) UpdateSession(ctx context.Context, session *domain.Session) error {
	ref := s.checkinDoc(session.ID)
	err := s.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		if _, err := tx.Get(ref); err != nil {
			if status.Code(err) == codes.NotFound {
				return domain.ErrSessionNotFound
			}
			return err
		}
		return tx.Set(ref, toCheckinDoc(session))
	})
	if err != nil {
		if errors.Is(err, domain.ErrSessionNotFound) {
			return err
		}
		return fmt.Errorf("firestore UpdateSession: %w", err)
	}
	return nil
}

func (s *Store) GetSession(ctx context.Context, id domain.SessionID) (*domain.Session, error) {
	snap, err := s.checkinDoc(id).Get(ctx)
	if err != nil {
		if status.Code(err) == codes.NotFound {
			return nil, domain.ErrSessionNotFound
		}
		return nil, fmt.Errorf("firestore GetSession: %w", err)
	}

	var doc checkinDoc
	if err := snap.DataTo(&doc); err != nil {
		return nil, fmt.Errorf("firestore GetSession decode: %w", err)
	}

	rec := domain.SessionRecord{
		ID:         id,
		UserID:     domain.UserID(doc.UserID),
		CreatedAt:  doc.CreatedAt,
		UpdatedAt:  doc.UpdatedAt,
		Mood:       doc.Mood,
		Emotions:   doc.Emotions,
		Priority:   domain.Priority(doc.Priority),
		PersonaID:  domain.PersonaID(doc.PersonaID),
		ProtocolID: domain.ProtocolID(doc.ProtocolID),
		Phase:      domain.Phase(doc.Phase),
		StepIndex:  doc.StepIndex,
		Answers:    fromAnswerDocs(doc.Answers),
		Reflection: doc.Reflection,
		Generation: doc.Generation,
	}
	return rec.Restore(s.lookup)
}

func (s *Store) DeleteSession(ctx context.Context, id domain.SessionID) error {
	if _, err := s.checkinDoc(id).Delete(ctx); err != nil {
		return fmt.Errorf("firestore DeleteSession: %w", err)
	}
	return nil
}

// ─────────────────────────────────────────
// JournalStore implementation
// ─────────────────────────────────────────

// AppendJournalEntry writes the entry, then deletes anything older than the
// newest cap entries for the user.
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

	doc := journalDoc{
		SessionID:    string(entry.SessionID),
		CreatedAt:    entry.CreatedAt,
		Mode:         string(entry.Mode),
		PersonaID:    string(entry.PersonaID),
		PersonaName:  entry.PersonaName,
		ProtocolID:   string(entry.ProtocolID),
		ProtocolName: entry.ProtocolName,
		Answers:      toAnswerDocs(entry.Answers),
		Entry:        entry.Entry,
		Reflection:   entry.Reflection,
		Mood:         entry.Mood,
		Emotions:     entry.Emotions,
	}

	col := s.journalCol(entry.UserID)
	if _, err := col.Doc(string(entry.ID)).Set(ctx, doc); err != nil {
		return fmt.Errorf("firestore AppendJournalEntry: %w", err)
	}

	iter := col.OrderBy("created_at", firestore.Desc).Offset(s.max).Documents(ctx)
	defer iter.Stop()

	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return fmt.Errorf("firestore evict journal entries: %w", err)
		}
		if _, err := snap.Ref.Delete(ctx); err != nil {
			return fmt.Errorf("firestore evict %s: %w", snap.Ref.ID, err)
		}
	}
	return nil
}

func (s *Store) ListJournalEntriesByUser(ctx context.Context, userID domain.UserID, limit int) ([]*domain.JournalEntry, error) {
	q := s.journalCol(userID).OrderBy("created_at", firestore.Desc)
	if limit > 0 {
		q = q.Limit(limit)
	}

	iter := q.Documents(ctx)
	defer iter.Stop()

	var newestFirst []*domain.JournalEntry
	for {
		snap, err := iter.Next()
		if err != nil {
			if err == iterator.Done {
				break
			}
			return nil, fmt.Errorf("firestore ListJournalEntriesByUser: %w", err)
		}

		var doc journalDoc
		if err := snap.DataTo(&doc); err != nil {
			return nil, fmt.Errorf("decode journalDoc: %w", err)
		}

		newestFirst = append(newestFirst, &domain.JournalEntry{
			ID:           domain.JournalEntryID(snap.Ref.ID),
			UserID:       userID,
			SessionID:    domain.SessionID(doc.SessionID),
			CreatedAt:    doc.CreatedAt,
			Mode:         domain.ModeID(doc.Mode),
			PersonaID:    domain.PersonaID(doc.PersonaID),
			PersonaName:  doc.PersonaName,
			ProtocolID:   domain.ProtocolID(doc.ProtocolID),
			ProtocolName: doc.ProtocolName,
			Answers:      fromAnswerDocs(doc.Answers),
			Entry:        doc.Entry,
			Reflection:   doc.Reflection,
			Mood:         doc.Mood,
			Emotions:     doc.Emotions,
		})
	}

	out := make([]*domain.JournalEntry, len(newestFirst))
	for i, e := range newestFirst {
		out[len(newestFirst)-1-i] = e
	}
	return out, nil
}

var (
	_ domain.JournalStore = (*Store)(nil)
	_ domain.SessionStore = (*Store)(nil)
)
