package ai

import (
	"context"
	"time"
)

const (
	openaiBaseURL      = "https://api.openai.com/v1"
	defaultOpenAIModel = "gpt-3.5-turbo-1106"
)

// OpenAI completes prompts with the chat completions API.
type OpenAI struct {
	model string
	cfg   Config
}

// NewOpenAI creates an OpenAI completer.
func NewOpenAI(model string, cfg Config) *OpenAI {
	if model == "" {
		model = defaultOpenAIModel
	}
	cfg = cfg.withDefaults(120 * time.Second)
	if cfg.BaseURL == "" {
		cfg.BaseURL = openaiBaseURL
	}
	return &OpenAI{model: model, cfg: cfg}
}

// Name returns the provider identifier.
func (p *OpenAI) Name() string { return "openai" }

type openaiMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openaiRequest struct {
	Model       string          `json:"model"`
	Messages    []openaiMessage `json:"messages"`
	Temperature float64         `json:"temperature"`
	MaxTokens   int             `json:"max_tokens,omitempty"`
}

type openaiResponse struct {
	Choices []struct {
		Message struct {
			Content string `json:"content"`
		} `json:"message"`
	} `json:"choices"`
}

// Complete sends prompt as a single user message.
func (p *OpenAI) Complete(ctx context.Context, prompt string) (string, error) {
	req := openaiRequest{
		Model:       p.model,
		Messages:    []openaiMessage{{Role: "user", Content: prompt}},
		Temperature: p.cfg.Temperature,
		MaxTokens:   p.cfg.MaxTokens,
	}
	headers := map[string]string{"Authorization": "Bearer " + p.cfg.APIKey}

	return withRetry(ctx, p.cfg, func() (string, error) {
		var resp openaiResponse
		if err := postJSON(ctx, p.Name(), p.cfg.Client, p.cfg.BaseURL+"/chat/completions", headers, req, &resp); err != nil {
			return "", err
		}
		if len(resp.Choices) == 0 {
			return "", &APIError{Provider: p.Name(), StatusCode: 200, Message: "API returned no choices"}
		}
		return resp.Choices[0].Message.Content, nil
	})
}
