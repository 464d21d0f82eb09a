// Package ai sends single-prompt completion requests to hosted or local
// language model providers.
package ai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"os"
	"strings"
	"time"
)

// Completer answers a prompt with generated text.
type Completer interface {
	Complete(ctx context.Context, prompt string) (string, error)
	// Name returns the provider identifier.
	Name() string
}

// Config configures a Completer. Zero values fall back to provider defaults.
type Config struct {
	APIKey      string
	BaseURL     string
	Temperature float64
	MaxTokens   int
	// MaxRetries bounds attempts on rate limits and server errors.
	MaxRetries int
	// Backoff is the base delay between retries, doubled per attempt.
	Backoff time.Duration
	Client  *http.Client
}

const (
	defaultTemperature = 0.7
	defaultMaxRetries  = 3
	defaultBackoff     = time.Second
)

func (c Config) withDefaults(timeout time.Duration) Config {
	if c.Temperature == 0 {
		c.Temperature = defaultTemperature
	}
	if c.MaxRetries <= 0 {
		c.MaxRetries = defaultMaxRetries
	}
	if c.Backoff <= 0 {
		c.Backoff = defaultBackoff
	}
	if c.Client == nil {
		c.Client = &http.Client{Timeout: timeout}
	}
	c.BaseURL = strings.TrimRight(c.BaseURL, "/")
	return c
}

// APIError is a failed completion request. StatusCode is zero when the
// request never got a response.
type APIError struct {
	Provider   string
	StatusCode int
	Message    string
	Err        error
}

func (e *APIError) Error() string {
	msg := e.Message
	if msg == "" && e.Err != nil {
		msg = e.Err.Error()
	}
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s API returned status %d: %s", e.Provider, e.StatusCode, msg)
	}
	return fmt.Sprintf("%s request failed: %s", e.Provider, msg)
}

func (e *APIError) Unwrap() error { return e.Err }

// Retryable reports whether the request may succeed if sent again.
func (e *APIError) Retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// IsAPIError reports whether err is or wraps an *APIError.
func IsAPIError(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr)
}

// NewCompleter creates a completer by provider name. API keys come from cfg
// or, when empty, the provider's usual environment variable.
func NewCompleter(name, model string, cfg Config) (Completer, error) {
	switch strings.ToLower(name) {
	case "openai", "":
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("OPENAI_API_KEY")
		}
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY environment variable is not set — get your API key at https://platform.openai.com/api-keys or run 'tabkit config set api_keys.openai <key>'")
		}
		return NewOpenAI(model, cfg), nil
	case "anthropic":
		if cfg.APIKey == "" {
			cfg.APIKey = os.Getenv("ANTHROPIC_API_KEY")
		}
		if cfg.APIKey == "" {
			return nil, fmt.Errorf("ANTHROPIC_API_KEY environment variable is not set — get your API key at https://console.anthropic.com/settings/keys")
		}
		return NewAnthropic(model, cfg), nil
	case "ollama":
		if cfg.BaseURL == "" {
			cfg.BaseURL = os.Getenv("OLLAMA_HOST")
		}
		return NewOllama(model, cfg), nil
	default:
		return nil, fmt.Errorf("unknown AI provider %q — supported providers: openai, anthropic, ollama", name)
	}
}

// postJSON sends body to url and decodes a 200 response into out. Non-200
// responses become an *APIError carrying the provider's error message.
func postJSON(ctx context.Context, provider string, client *http.Client, url string, headers map[string]string, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("could not marshal request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		return fmt.Errorf("could not create request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	for k, v := range headers {
		req.Header.Set(k, v)
	}

	resp, err := client.Do(req)
	if err != nil {
		return &APIError{Provider: provider, Err: err}
	}
	defer resp.Body.Close()

	respBody, err := io.ReadAll(resp.Body)
	if err != nil {
		return &APIError{Provider: provider, StatusCode: resp.StatusCode, Err: fmt.Errorf("could not read response: %w", err)}
	}

	if resp.StatusCode != http.StatusOK {
		return &APIError{Provider: provider, StatusCode: resp.StatusCode, Message: errorMessage(respBody)}
	}

	if err := json.Unmarshal(respBody, out); err != nil {
		return &APIError{Provider: provider, StatusCode: resp.StatusCode, Message: "could not parse response", Err: err}
	}
	return nil
}

// errorMessage extracts {"error": {"message": ...}} or {"error": "..."} and
// falls back to the raw body.
func errorMessage(body []byte) string {
	var nested struct {
		Error struct {
			Message string `json:"message"`
		} `json:"error"`
	}
	if json.Unmarshal(body, &nested) == nil && nested.Error.Message != "" {
		return nested.Error.Message
	}
	var flat struct {
		Error string `json:"error"`
	}
	if json.Unmarshal(body, &flat) == nil && flat.Error != "" {
		return flat.Error
	}
	return strings.TrimSpace(string(body))
}

// withRetry calls fn until it succeeds, fails with a non-retryable error,
// or runs out of attempts.
func withRetry(ctx context.Context, cfg Config, fn func() (string, error)) (string, error) {
	var lastErr error
	for attempt := 0; attempt < cfg.MaxRetries; attempt++ {
		if attempt > 0 {
			backoff := time.Duration(math.Pow(2, float64(attempt-1))) * cfg.Backoff
			select {
			case <-ctx.Done():
				return "", ctx.Err()
			case <-time.After(backoff):
			}
		}

		text, err := fn()
		if err == nil {
			return text, nil
		}
		lastErr = err

		var apiErr *APIError
		if !errors.As(err, &apiErr) || !apiErr.Retryable() {
			return "", err
		}
	}
	return "", lastErr
}
