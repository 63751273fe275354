package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"

	"google.golang.org/genai"

	"github.com/PabloGalante/mindbloss/internal/domain"
)

const defaultVertexModel = "gemini-2.5-flash"

type VertexClient struct {
	client    *genai.Client
	modelName string
}

// NewVertexClient creates a CompletionClient based on Vertex AI (Gemini).
func NewVertexClient(ctx context.Context, projectID, location, modelName string) (*VertexClient, error) {
	if projectID == "" || location == "" {
		return nil, fmt.Errorf("vertex: project and location must be set")
	}
	if modelName == "" {
		modelName = defaultVertexModel
	}

	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		Project:  projectID,
		Location: location,
		Backend:  genai.BackendVertexAI,
	})
	if err != nil {
		return nil, fmt.Errorf("creating Vertex AI client: %w", err)
	}

	return &VertexClient{
		client:    client,
		modelName: modelName,
	}, nil
}

// Complete implements domain.CompletionClient using Vertex AI.
func (v *VertexClient) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResult, error) {
	contents := []*genai.Content{
		genai.NewContentFromText(req.UserContent, genai.RoleUser),
	}

	temp := float32(req.Temperature)
	cfg := &genai.GenerateContentConfig{
		// genai expects RoleUser here, not "system"
		SystemInstruction: genai.NewContentFromText(req.SystemPrompt, genai.RoleUser),
		Temperature:       &temp,
		MaxOutputTokens:   int32(req.MaxOutputTokens),
	}

	res, err := v.client.Models.GenerateContent(ctx, v.modelName, contents, cfg)
	if err != nil {
		err = fmt.Errorf("vertex generate content: %w", err)
		if isTransientVertex(err) {
			return domain.CompletionResult{}, &TransientError{Err: err}
		}
		return domain.CompletionResult{}, err
	}

	// only the text, never the raw structs
	text := res.Text()
	if text == "" {
		return domain.CompletionResult{}, fmt.Errorf("vertex returned empty text")
	}

	return domain.CompletionResult{Text: text}, nil
}

func isTransientVertex(err error) bool {
	var apiErr genai.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Code == http.StatusTooManyRequests || apiErr.Code >= 500
	}
	return looksTransient(err)
}
