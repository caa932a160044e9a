// Package llm talks to the model providers. One Client interface, three
// implementations (Anthropic over raw HTTP, OpenAI, Gemini), plus the stateful
// ChatSession the query generator drives.
package llm

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"
)

// Tagged error kinds. Providers wrap their transport failures in these so
// callers classify with errors.Is instead of sniffing message strings.
var (
	// ErrRateLimited marks provider throttling (HTTP 429 and equivalents).
	ErrRateLimited = errors.New("model provider rate limited the request")
	// ErrUnauthorized marks a rejected credential (HTTP 401/403).
	ErrUnauthorized = errors.New("model provider rejected the API key")
	// ErrBadRequest marks a request the provider refused as malformed.
	ErrBadRequest = errors.New("model provider rejected the request")
	// ErrServerError marks a provider-side failure (HTTP 5xx).
	ErrServerError = errors.New("model provider internal error")
)

// Message roles.
const (
	RoleUser      = "user"
	RoleAssistant = "assistant"
)

// Message is one turn of a conversation.
type Message struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

// CompletionRequest is a provider-neutral chat completion request.
type CompletionRequest struct {
	System      string
	Messages    []Message
	MaxTokens   int
	Temperature float64
}

// CompletionResponse is the provider's reply plus token accounting.
type CompletionResponse struct {
	Text         string
	InputTokens  int
	OutputTokens int
}

// Client is a chat completion provider.
type Client interface {
	Complete(ctx context.Context, req CompletionRequest) (*CompletionResponse, error)
	Provider() string
}

// Config holds provider selection and credentials.
type Config struct {
	Provider    string // "anthropic", "openai", "gemini"
	APIKey      string
	Model       string
	BaseURL     string // override for tests; empty means the provider default
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// New selects a provider client from configuration.
func New(cfg Config) (Client, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "anthropic":
		return NewAnthropicClient(cfg)
	case "openai":
		return NewOpenAIClient(cfg)
	case "gemini":
		return NewGeminiClient(cfg)
	default:
		return nil, fmt.Errorf("unknown model provider: %q", cfg.Provider)
	}
}
