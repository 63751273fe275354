package httpadapter

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/PabloGalante/mindbloss/internal/apierr"
	"github.com/PabloGalante/mindbloss/internal/app/analyze"
	"github.com/PabloGalante/mindbloss/internal/app/checkin"
	journalapp "github.com/PabloGalante/mindbloss/internal/app/journal"
	"github.com/PabloGalante/mindbloss/internal/catalog"
	"github.com/PabloGalante/mindbloss/internal/domain"
	"github.com/PabloGalante/mindbloss/internal/observability"
)

// Services are the application services exposed over HTTP.
type Services struct {
	CheckIns *checkin.Service
	Journal  *journalapp.Service
	Analyze  *analyze.Service
	Catalog  *catalog.Registry
}

type Options struct {
	CORSOrigins []string
}

type Server struct {
	svc Services
}

func NewServer(svc Services, opts Options) http.Handler {
	s := &Server{svc: svc}

	r := gin.New()
	r.Use(requestID(), requestLogger(), recovery(), withCORS(opts.CORSOrigins))

	r.GET("/healthz", s.handleHealthz)

	api := r.Group("/api")
	api.POST("/analyze", s.handleAnalyze)
	api.GET("/catalog", s.handleCatalog)

	api.POST("/checkins", s.handleStartCheckIn)
	api.GET("/checkins/:id", s.handleGetCheckIn)
	api.POST("/checkins/:id/steps", s.handleSubmitStep)
	api.DELETE("/checkins/:id", s.handleResetCheckIn)

	api.GET("/journal", s.handleListJournal)
	api.POST("/journal/recap", s.handleRecap)

	return r
}

// ─────────────────────────────────────────────
// DTOs (request/response)
// ─────────────────────────────────────────────

type errorResponse struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

type analyzeRequest struct {
	UserID      string   `json:"user_id"`
	Entry       string   `json:"entry"`
	Mode        string   `json:"mode"`
	CharacterID string   `json:"characterId"`
	Protocol    string   `json:"protocol"`
	Mood        *int     `json:"mood"`
	Emotions    []string `json:"emotions"`
}

type analyzeResponse struct {
	Analysis string `json:"analysis"`
	EntryID  string `json:"entry_id,omitempty"`
}

type catalogResponse struct {
	Personas        []*domain.Persona       `json:"personas"`
	Protocols       []*domain.Protocol      `json:"protocols"`
	Modes           []*domain.Mode          `json:"modes"`
	EmotionGroups   []domain.EmotionGroup   `json:"emotion_groups"`
	HighRiskTag     string                  `json:"high_risk_tag"`
	SupportContacts []domain.SupportContact `json:"support_contacts"`
}

type startCheckInRequest struct {
	UserID    string   `json:"user_id"`
	SessionID string   `json:"session_id,omitempty"`
	Mood      *int     `json:"mood"`
	Emotions  []string `json:"emotions"`
	Hour      *int     `json:"hour,omitempty"`
}

type submitStepRequest struct {
	UserID  string   `json:"user_id,omitempty"`
	Answer  string   `json:"answer,omitempty"`
	Choices []string `json:"choices,omitempty"`
}

type personaView struct {
	ID      string `json:"id"`
	Name    string `json:"name"`
	Tagline string `json:"tagline"`
}

type protocolView struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	StepCount int    `json:"step_count"`
}

type stepView struct {
	Index   int      `json:"index"`
	Key     string   `json:"key"`
	Prompt  string   `json:"prompt"`
	Kind    string   `json:"kind"`
	Options []string `json:"options,omitempty"`
}

type checkInResponse struct {
	ID              string                  `json:"id"`
	UserID          string                  `json:"user_id"`
	Phase           string                  `json:"phase"`
	Mood            int                     `json:"mood"`
	Emotions        []string                `json:"emotions"`
	Priority        string                  `json:"priority"`
	Crisis          bool                    `json:"crisis"`
	SupportContacts []domain.SupportContact `json:"support_contacts,omitempty"`
	Persona         *personaView            `json:"persona,omitempty"`
	Protocol        *protocolView           `json:"protocol,omitempty"`
	CurrentStep     *stepView               `json:"current_step,omitempty"`
	Answers         []domain.Answer         `json:"answers"`
	Reflection      string                  `json:"reflection,omitempty"`
	Generation      int                     `json:"generation"`
	CreatedAt       time.Time               `json:"created_at"`
	UpdatedAt       time.Time               `json:"updated_at"`
	JournalEntryID  string                  `json:"journal_entry_id,omitempty"`
}

type journalResponse struct {
	UserID  string                 `json:"user_id"`
	Entries []*domain.JournalEntry `json:"entries"`
}

type recapRequest struct {
	UserID string `json:"user_id"`
}

type recapResponse struct {
	Recap      string    `json:"recap,omitempty"`
	Message    string    `json:"message,omitempty"`
	Empty      bool      `json:"empty"`
	EntryCount int       `json:"entry_count"`
	From       time.Time `json:"from"`
	To         time.Time `json:"to"`
}

// ─────────────────────────────────────────────
// Handlers
// ─────────────────────────────────────────────

func (s *Server) handleHealthz(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// handleAnalyze keeps the plain {"error":"Failed"} contract for completion failures.
func (s *Server) handleAnalyze(c *gin.Context) {
	var req analyzeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}

	out, err := s.svc.Analyze.Analyze(c.Request.Context(), analyze.Input{
		UserID:      domain.UserID(strings.TrimSpace(req.UserID)),
		Entry:       req.Entry,
		CharacterID: req.CharacterID,
		Mode:        req.Mode,
		Protocol:    req.Protocol,
		Mood:        req.Mood,
		Emotions:    req.Emotions,
	})
	if err != nil {
		if ae := apierr.From(err); ae.Status == http.StatusBadRequest {
			writeError(c, ae)
			return
		}
		observability.LoggerFromContext(c.Request.Context()).Errorw("analyze failed", "error", err)
		c.JSON(http.StatusInternalServerError, errorResponse{Error: "Failed"})
		return
	}

	resp := analyzeResponse{Analysis: out.Analysis}
	if out.Entry != nil {
		resp.EntryID = string(out.Entry.ID)
	}
	c.JSON(http.StatusOK, resp)
}

func (s *Server) handleCatalog(c *gin.Context) {
	reg := s.svc.Catalog
	c.JSON(http.StatusOK, catalogResponse{
		Personas:        reg.Personas(),
		Protocols:       reg.Protocols(),
		Modes:           reg.Modes(),
		EmotionGroups:   reg.EmotionGroups(),
		HighRiskTag:     reg.HighRiskTag(),
		SupportContacts: reg.SupportContacts(),
	})
}

func (s *Server) handleStartCheckIn(c *gin.Context) {
	var req startCheckInRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}
	if req.Mood == nil {
		badRequest(c, "mood is required")
		return
	}

	out, err := s.svc.CheckIns.Start(c.Request.Context(), checkin.StartInput{
		SessionID: domain.SessionID(req.SessionID),
		UserID:    domain.UserID(strings.TrimSpace(req.UserID)),
		Mood:      *req.Mood,
		Emotions:  req.Emotions,
		Hour:      req.Hour,
	})
	if err != nil {
		writeError(c, err)
		return
	}

	status := http.StatusCreated
	if req.SessionID != "" {
		status = http.StatusOK
	}
	c.JSON(status, s.toCheckInResponse(out.Session, nil))
}

func (s *Server) handleGetCheckIn(c *gin.Context) {
	session, err := s.svc.CheckIns.Get(c.Request.Context(), sessionID(c), queryUser(c))
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.toCheckInResponse(session, nil))
}

func (s *Server) handleSubmitStep(c *gin.Context) {
	var req submitStepRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}

	out, err := s.svc.CheckIns.Submit(c.Request.Context(), checkin.SubmitInput{
		SessionID: sessionID(c),
		UserID:    domain.UserID(strings.TrimSpace(req.UserID)),
		Answer:    domain.StepInput{Text: req.Answer, Choices: req.Choices},
	})
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.toCheckInResponse(out.Session, out.Entry))
}

// handleResetCheckIn resets the check-in to welcome, or removes it with ?purge=true.
func (s *Server) handleResetCheckIn(c *gin.Context) {
	ctx := c.Request.Context()
	id, user := sessionID(c), queryUser(c)

	if purge, _ := strconv.ParseBool(c.Query("purge")); purge {
		if err := s.svc.CheckIns.Discard(ctx, id, user); err != nil {
			writeError(c, err)
			return
		}
		c.Status(http.StatusNoContent)
		return
	}

	session, err := s.svc.CheckIns.Reset(ctx, id, user)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, s.toCheckInResponse(session, nil))
}

func (s *Server) handleListJournal(c *gin.Context) {
	user := queryUser(c)

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			badRequest(c, "limit must be a non-negative integer")
			return
		}
		limit = n
	}

	entries, err := s.svc.Journal.GetUserJournal(c.Request.Context(), user, limit)
	if err != nil {
		writeError(c, err)
		return
	}
	c.JSON(http.StatusOK, journalResponse{UserID: string(user), Entries: entries})
}

func (s *Server) handleRecap(c *gin.Context) {
	var req recapRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid JSON body")
		return
	}

	recap, err := s.svc.Journal.WeeklyRecap(c.Request.Context(), domain.UserID(strings.TrimSpace(req.UserID)))
	if err != nil {
		writeError(c, err)
		return
	}

	resp := recapResponse{
		Empty:      recap.Empty,
		EntryCount: recap.EntryCount,
		From:       recap.From,
		To:         recap.To,
	}
	if recap.Empty {
		resp.Message = recap.Text
	} else {
		resp.Recap = recap.Text
	}
	c.JSON(http.StatusOK, resp)
}

// ─────────────────────────────────────────────
// Helpers
// ─────────────────────────────────────────────

func (s *Server) toCheckInResponse(session *domain.Session, entry *domain.JournalEntry) checkInResponse {
	resp := checkInResponse{
		ID:         string(session.ID),
		UserID:     string(session.UserID),
		Phase:      string(session.Phase),
		Mood:       session.Mood,
		Emotions:   session.Emotions,
		Priority:   string(session.Priority),
		Crisis:     session.Priority == domain.PriorityHigh,
		Answers:    session.Answers,
		Reflection: session.Reflection,
		Generation: session.Generation,
		CreatedAt:  session.CreatedAt,
		UpdatedAt:  session.UpdatedAt,
	}
	if resp.Emotions == nil {
		resp.Emotions = []string{}
	}
	if resp.Answers == nil {
		resp.Answers = []domain.Answer{}
	}
	if resp.Crisis {
		resp.SupportContacts = s.svc.CheckIns.SupportContacts()
	}
	if p := session.Persona; p != nil {
		resp.Persona = &personaView{ID: string(p.ID), Name: p.Name, Tagline: p.Tagline}
	}
	if p := session.Protocol; p != nil {
		resp.Protocol = &protocolView{ID: string(p.ID), Name: p.Name, StepCount: len(p.Steps)}
	}
	if st := session.CurrentStep(); st != nil {
		resp.CurrentStep = &stepView{
			Index:   session.StepIndex,
			Key:     string(st.Key),
			Prompt:  st.Prompt,
			Kind:    string(st.Kind),
			Options: st.Options,
		}
	}
	if entry != nil {
		resp.JournalEntryID = string(entry.ID)
	}
	return resp
}

func sessionID(c *gin.Context) domain.SessionID {
	return domain.SessionID(c.Param("id"))
}

func queryUser(c *gin.Context) domain.UserID {
	return domain.UserID(strings.TrimSpace(c.Query("user_id")))
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, errorResponse{Error: msg, Code: "invalid_request"})
}

func writeError(c *gin.Context, err error) {
	ae := apierr.From(err)
	if ae.Status >= 500 {
		observability.LoggerFromContext(c.Request.Context()).Errorw("request failed",
			"path", c.FullPath(),
			"error", err,
		)
	}
	c.JSON(ae.Status, errorResponse{Error: ae.Error(), Code: ae.Code})
}

