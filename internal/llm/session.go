package llm

import (
	"context"
)

// ChatSession is a stateful conversation with a model: a fixed system
// instruction plus an ordered turn history. A failed send leaves the user
// turn in the history (some failures are retried with the same turn in
// place); DiscardLastTurn removes the trailing exchange when the caller
// decides the failed exchange should not pollute the conversation.
//
// A session serves one conversation at a time; concurrent callers need a
// session each.
type ChatSession struct {
	client      Client
	system      string
	history     []Message
	maxTokens   int
	temperature float64
	retry       *RetryConfig
}

// SessionOption configures a ChatSession.
type SessionOption func(*ChatSession)

// WithMaxTokens overrides the per-request token ceiling.
func WithMaxTokens(n int) SessionOption {
	return func(s *ChatSession) { s.maxTokens = n }
}

// WithTemperature overrides the sampling temperature.
func WithTemperature(t float64) SessionOption {
	return func(s *ChatSession) { s.temperature = t }
}

// WithRetry enables provider-level retry with backoff for transient
// failures. Callers that manage their own retry budget leave this unset.
func WithRetry(cfg RetryConfig) SessionOption {
	return func(s *ChatSession) { s.retry = &cfg }
}

// NewChatSession creates a session with the given system instruction.
func NewChatSession(client Client, system string, opts ...SessionOption) *ChatSession {
	s := &ChatSession{
		client: client,
		system: system,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Send appends the prompt as a user turn, requests a completion over the
// full history, and appends the assistant reply on success.
func (s *ChatSession) Send(ctx context.Context, prompt string) (string, error) {
	s.history = append(s.history, Message{Role: RoleUser, Content: prompt})

	req := CompletionRequest{
		System:      s.system,
		Messages:    s.history,
		MaxTokens:   s.maxTokens,
		Temperature: s.temperature,
	}

	var resp *CompletionResponse
	var err error
	if s.retry != nil {
		resp, err = CompleteWithRetry(ctx, s.client, req, *s.retry)
	} else {
		resp, err = s.client.Complete(ctx, req)
	}
	if err != nil {
		return "", err
	}

	s.history = append(s.history, Message{Role: RoleAssistant, Content: resp.Text})
	return resp.Text, nil
}

// DiscardLastTurn removes the most recent exchange: the trailing assistant
// reply if one exists, plus the user turn before it. After a failed send only
// the user turn is present, and only it is removed.
func (s *ChatSession) DiscardLastTurn() {
	if len(s.history) == 0 {
		return
	}
	if s.history[len(s.history)-1].Role == RoleAssistant {
		s.history = s.history[:len(s.history)-1]
	}
	if len(s.history) > 0 && s.history[len(s.history)-1].Role == RoleUser {
		s.history = s.history[:len(s.history)-1]
	}
}

// History returns a copy of the conversation so far.
func (s *ChatSession) History() []Message {
	out := make([]Message, len(s.history))
	copy(out, s.history)
	return out
}

// Len returns the number of turns in the history.
func (s *ChatSession) Len() int {
	return len(s.history)
}
