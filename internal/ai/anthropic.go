package ai

import (
	"context"
	"strings"
	"time"
)

const (
	anthropicBaseURL      = "https://api.anthropic.com/v1"
	anthropicAPIVersion   = "2023-06-01"
	defaultAnthropicModel = "claude-sonnet-4-20250514"
	defaultAnthropicMax   = 1024
)

// Anthropic completes prompts with the messages API.
type Anthropic struct {
	model string
	cfg   Config
}

// NewAnthropic creates an Anthropic completer.
func NewAnthropic(model string, cfg Config) *Anthropic {
	if model == "" {
		model = defaultAnthropicModel
	}
	cfg = cfg.withDefaults(120 * time.Second)
	if cfg.BaseURL == "" {
		cfg.BaseURL = anthropicBaseURL
	}
	if cfg.MaxTokens <= 0 {
		cfg.MaxTokens = defaultAnthropicMax
	}
	return &Anthropic{model: model, cfg: cfg}
}

// Name returns the provider identifier.
func (p *Anthropic) Name() string { return "anthropic" }

type anthropicMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type anthropicRequest struct {
	Model       string             `json:"model"`
	MaxTokens   int                `json:"max_tokens"`
	Temperature float64            `json:"temperature"`
	Messages    []anthropicMessage `json:"messages"`
}

type anthropicResponse struct {
	Content []struct {
		Type string `json:"type"`
		Text string `json:"text"`
	} `json:"content"`
}

// Complete sends prompt as a single user message and joins the text blocks
// of the reply.
func (p *Anthropic) Complete(ctx context.Context, prompt string) (string, error) {
	req := anthropicRequest{
		Model:       p.model,
		MaxTokens:   p.cfg.MaxTokens,
		Temperature: p.cfg.Temperature,
		Messages:    []anthropicMessage{{Role: "user", Content: prompt}},
	}
	headers := map[string]string{
		"x-api-key":         p.cfg.APIKey,
		"anthropic-version": anthropicAPIVersion,
	}

	return withRetry(ctx, p.cfg, func() (string, error) {
		var resp anthropicResponse
		if err := postJSON(ctx, p.Name(), p.cfg.Client, p.cfg.BaseURL+"/messages", headers, req, &resp); err != nil {
			return "", err
		}
		if len(resp.Content) == 0 {
			return "", &APIError{Provider: p.Name(), StatusCode: 200, Message: "API returned empty response"}
		}
		var text strings.Builder
		for _, block := range resp.Content {
			text.WriteString(block.Text)
		}
		return text.String(), nil
	})
}
