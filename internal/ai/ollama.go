package ai

import (
	"context"
	"fmt"
	"time"
)

const (
	ollamaBaseURL      = "http://localhost:11434"
	defaultOllamaModel = "llama3.1"
)

// Ollama completes prompts with a local Ollama server.
type Ollama struct {
	model string
	cfg   Config
}

// NewOllama creates an Ollama completer.
func NewOllama(model string, cfg Config) *Ollama {
	if model == "" {
		model = defaultOllamaModel
	}
	cfg = cfg.withDefaults(300 * time.Second)
	if cfg.BaseURL == "" {
		cfg.BaseURL = ollamaBaseURL
	}
	return &Ollama{model: model, cfg: cfg}
}

// Name returns the provider identifier.
func (p *Ollama) Name() string { return "ollama" }

type ollamaOptions struct {
	Temperature float64 `json:"temperature"`
	NumPredict  int     `json:"num_predict,omitempty"`
}

type ollamaRequest struct {
	Model   string        `json:"model"`
	Prompt  string        `json:"prompt"`
	Stream  bool          `json:"stream"`
	Options ollamaOptions `json:"options"`
}

type ollamaResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}

// Complete sends prompt to /api/generate without streaming.
func (p *Ollama) Complete(ctx context.Context, prompt string) (string, error) {
	req := ollamaRequest{
		Model:  p.model,
		Prompt: prompt,
		Options: ollamaOptions{
			Temperature: p.cfg.Temperature,
			NumPredict:  p.cfg.MaxTokens,
		},
	}

	return withRetry(ctx, p.cfg, func() (string, error) {
		var resp ollamaResponse
		err := postJSON(ctx, p.Name(), p.cfg.Client, p.cfg.BaseURL+"/api/generate", nil, req, &resp)
		if err != nil {
			if apiErr, ok := err.(*APIError); ok && apiErr.StatusCode == 0 {
				apiErr.Message = fmt.Sprintf("could not connect to Ollama at %s — is Ollama running? Start it with 'ollama serve'", p.cfg.BaseURL)
			}
			return "", err
		}
		return resp.Response, nil
	})
}
