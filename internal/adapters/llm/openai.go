package llm

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"github.com/PabloGalante/mindbloss/internal/domain"
)

const defaultOpenAIModel = "gpt-4o-mini"

// OpenAIClient sends completions through the chat completions API.
type OpenAIClient struct {
	client openai.Client
	model  string
}

// NewOpenAIClient builds a client. Retries are disabled at the SDK level so the
// Policy wrapper stays the only retry decision.
func NewOpenAIClient(apiKey, model, baseURL string, extra ...option.RequestOption) (*OpenAIClient, error) {
	apiKey = strings.TrimSpace(apiKey)
	if apiKey == "" {
		return nil, fmt.Errorf("openai: missing API key")
	}
	if strings.TrimSpace(model) == "" {
		model = defaultOpenAIModel
	}

	opts := []option.RequestOption{
		option.WithAPIKey(apiKey),
		option.WithMaxRetries(0),
	}
	if baseURL = strings.TrimSpace(baseURL); baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	opts = append(opts, extra...)

	return &OpenAIClient{
		client: openai.NewClient(opts...),
		model:  model,
	}, nil
}

// Complete implements domain.CompletionClient.
func (c *OpenAIClient) Complete(ctx context.Context, req domain.CompletionRequest) (domain.CompletionResult, error) {
	params := openai.ChatCompletionNewParams{
		Model: openai.ChatModel(c.model),
		Messages: []openai.ChatCompletionMessageParamUnion{
			openai.SystemMessage(req.SystemPrompt),
			openai.UserMessage(req.UserContent),
		},
	}
	if req.Temperature > 0 {
		params.Temperature = openai.Float(req.Temperature)
	}
	if req.MaxOutputTokens > 0 {
		params.MaxTokens = openai.Int(int64(req.MaxOutputTokens))
	}

	resp, err := c.client.Chat.Completions.New(ctx, params)
	if err != nil {
		err = fmt.Errorf("openai chat completion: %w", err)
		if isTransientOpenAI(err) {
			return domain.CompletionResult{}, &TransientError{Err: err}
		}
		return domain.CompletionResult{}, err
	}

	if len(resp.Choices) == 0 {
		return domain.CompletionResult{}, fmt.Errorf("openai returned no choices")
	}
	text := strings.TrimSpace(resp.Choices[0].Message.Content)
	if text == "" {
		return domain.CompletionResult{}, fmt.Errorf("openai returned empty text")
	}
	return domain.CompletionResult{Text: text}, nil
}

func isTransientOpenAI(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == http.StatusTooManyRequests || apiErr.StatusCode >= 500
	}
	return looksTransient(err)
}
