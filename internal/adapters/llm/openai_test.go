package llm_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/PabloGalante/mindbloss/internal/adapters/llm"
	"github.com/PabloGalante/mindbloss/internal/domain"
)

const chatCompletionBody = `{
  "id": "chatcmpl-1",
  "object": "chat.completion",
  "created": 1700000000,
  "model": "gpt-4o-mini",
  "choices": [{
    "index": 0,
    "finish_reason": "stop",
    "message": {"role": "assistant", "content": "  Take a slow breath.  "}
  }],
  "usage": {"prompt_tokens": 10, "completion_tokens": 5, "total_tokens": 15}
}`

func TestOpenAIClientComplete(t *testing.T) {
	var got map[string]any
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/chat/completions" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected auth header %q", auth)
		}
		body, _ := io.ReadAll(r.Body)
		_ = json.Unmarshal(body, &got)
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, chatCompletionBody)
	}))
	defer srv.Close()

	client, err := llm.NewOpenAIClient("test-key", "gpt-4o-mini", srv.URL)
	if err != nil {
		t.Fatalf("NewOpenAIClient: %v", err)
	}

	res, err := client.Complete(context.Background(), domain.CompletionRequest{
		SystemPrompt:    "You are Sol.",
		UserContent:     "happening: long day",
		Temperature:     0.7,
		MaxOutputTokens: 300,
	})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.Text != "Take a slow breath." {
		t.Fatalf("unexpected text %q", res.Text)
	}

	if got["model"] != "gpt-4o-mini" {
		t.Fatalf("unexpected model %v", got["model"])
	}
	if got["max_tokens"] != float64(300) {
		t.Fatalf("unexpected max_tokens %v", got["max_tokens"])
	}
	msgs, _ := got["messages"].([]any)
	if len(msgs) != 2 {
		t.Fatalf("expected system and user messages, got %v", got["messages"])
	}
	first, _ := msgs[0].(map[string]any)
	if first["role"] != "system" || first["content"] != "You are Sol." {
		t.Fatalf("unexpected system message %v", first)
	}
}

func TestOpenAIClientServerErrorIsTransient(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, `{"error":{"message":"overloaded","type":"server_error"}}`)
	}))
	defer srv.Close()

	client, err := llm.NewOpenAIClient("test-key", "", srv.URL)
	if err != nil {
		t.Fatalf("NewOpenAIClient: %v", err)
	}

	_, err = client.Complete(context.Background(), domain.CompletionRequest{UserContent: "hi"})
	if err == nil {
		t.Fatalf("expected error")
	}
	var te *llm.TransientError
	if !errors.As(err, &te) {
		t.Fatalf("expected TransientError, got %T: %v", err, err)
	}
}

func TestOpenAIClientBadRequestIsPermanent(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = io.WriteString(w, `{"error":{"message":"bad","type":"invalid_request_error"}}`)
	}))
	defer srv.Close()

	client, err := llm.NewOpenAIClient("test-key", "", srv.URL)
	if err != nil {
		t.Fatalf("NewOpenAIClient: %v", err)
	}

	_, err = client.Complete(context.Background(), domain.CompletionRequest{UserContent: "hi"})
	if err == nil || llm.IsTransient(err) {
		t.Fatalf("expected permanent error, got %v", err)
	}
}

func TestNewOpenAIClientRequiresKey(t *testing.T) {
	if _, err := llm.NewOpenAIClient("  ", "", ""); err == nil {
		t.Fatalf("expected error without api key")
	}
}

func TestMockLLMRecordsRequests(t *testing.T) {
	m := llm.NewMockLLM()
	res, err := m.Complete(context.Background(), domain.CompletionRequest{UserContent: "first line\nsecond"})
	if err != nil {
		t.Fatalf("Complete: %v", err)
	}
	if res.Text == "" {
		t.Fatalf("expected text")
	}
	if reqs := m.Requests(); len(reqs) != 1 || reqs[0].UserContent != "first line\nsecond" {
		t.Fatalf("unexpected requests %+v", reqs)
	}

	m.Err = errors.New("down")
	if _, err := m.Complete(context.Background(), domain.CompletionRequest{}); err == nil {
		t.Fatalf("expected configured error")
	}
}
