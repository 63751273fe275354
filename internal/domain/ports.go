package domain

import "context"

// CompletionRequest is the single text-in request sent to the completion service.
type CompletionRequest struct {
	SystemPrompt    string
	UserContent     string
	Temperature     float64
	MaxOutputTokens int
}

// CompletionResult is the text returned by the completion service.
type CompletionResult struct {
	Text string
}

// CompletionClient defines how the core application talks to an LLM service.
type CompletionClient interface {
	Complete(ctx context.Context, req CompletionRequest) (CompletionResult, error)
}

// Decision is the outcome of routing a mood check-in.
type Decision struct {
	Persona  *Persona
	Protocol *Protocol
	Priority Priority
	// Crisis means support contacts must stay visible for this check-in.
	Crisis bool
	// Rule names the routing rule that matched, for logs.
	Rule string
}

// SessionStore defines session persistence.
type SessionStore interface {
	CreateSession(ctx context.Context, session *Session) error
	UpdateSession(ctx context.Context, session *Session) error
	GetSession(ctx context.Context, id SessionID) (*Session, error)
	DeleteSession(ctx context.Context, id SessionID) error
}
