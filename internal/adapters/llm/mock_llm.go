package llm

import (
	"context"
	"fmt"
	"strings"
	"sync"

	"github.com/PabloGalante/mindbloss/internal/domain"
)

// MockLLM answers deterministically and remembers the requests it saw.
// Err, when set, is returned instead of a reply.
type MockLLM struct {
	mu       sync.Mutex
	requests []domain.CompletionRequest
	Err      error
}

func NewMockLLM() *MockLLM {
	return &MockLLM{}
}

func (m *MockLLM) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResult, error) {
	m.mu.Lock()
	m.requests = append(m.requests, req)
	err := m.Err
	m.mu.Unlock()

	if err != nil {
		return domain.CompletionResult{}, err
	}
	if err := ctx.Err(); err != nil {
		return domain.CompletionResult{}, err
	}

	first := strings.TrimSpace(req.UserContent)
	if i := strings.IndexByte(first, '\n'); i >= 0 {
		first = first[:i]
	}
	return domain.CompletionResult{
		Text: fmt.Sprintf("I hear you. You shared %q. What feels most important about that right now?", first),
	}, nil
}

// Requests returns a copy of every request received so far.
func (m *MockLLM) Requests() []domain.CompletionRequest {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]domain.CompletionRequest, len(m.requests))
	copy(out, m.requests)
	return out
}
