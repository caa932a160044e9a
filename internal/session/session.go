// Package session stores conversation state in Redis so follow-up questions
// can refer to the previous answer.
package session

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"
)

const (
	conversationPrefix = "conversation:"
	conversationIDLen  = 32
)

// Conversation is the per-conversation state carried between questions.
type Conversation struct {
	ID           string    `json:"id"`
	UserID       string    `json:"user_id,omitempty"`
	LastAnswer   string    `json:"last_answer,omitempty"`
	LastCypher   string    `json:"last_cypher,omitempty"`
	Turns        int       `json:"turns"`
	CreatedAt    time.Time `json:"created_at"`
	LastActivity time.Time `json:"last_activity"`
}

// ErrNotFound is returned when a conversation does not exist or has expired.
var ErrNotFound = fmt.Errorf("conversation not found")

// Manager handles conversation storage and retrieval
type Manager struct {
	redis *redis.Client
	ttl   time.Duration
}

// NewManager creates a new conversation manager
func NewManager(redisClient *redis.Client, ttl time.Duration) *Manager {
	return &Manager{
		redis: redisClient,
		ttl:   ttl,
	}
}

// GetOrCreate returns the conversation with the given ID, or starts a fresh
// one when the ID is empty or unknown.
func (m *Manager) GetOrCreate(ctx context.Context, conversationID, userID string) (*Conversation, error) {
	if conversationID != "" {
		conv, err := m.Get(ctx, conversationID)
		if err == nil {
			return conv, nil
		}
		if err != ErrNotFound {
			return nil, err
		}
	}
	return m.create(ctx, userID)
}

func (m *Manager) create(ctx context.Context, userID string) (*Conversation, error) {
	id, err := generateConversationID()
	if err != nil {
		return nil, fmt.Errorf("failed to generate conversation ID: %w", err)
	}

	conv := &Conversation{
		ID:           id,
		UserID:       userID,
		CreatedAt:    time.Now(),
		LastActivity: time.Now(),
	}

	if err := m.store(ctx, conv); err != nil {
		return nil, err
	}
	return conv, nil
}

// Get retrieves a conversation by ID
func (m *Manager) Get(ctx context.Context, conversationID string) (*Conversation, error) {
	key := conversationPrefix + conversationID
	data, err := m.redis.Get(ctx, key).Result()
	if err == redis.Nil {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get conversation: %w", err)
	}

	var conv Conversation
	if err := json.Unmarshal([]byte(data), &conv); err != nil {
		return nil, fmt.Errorf("failed to unmarshal conversation: %w", err)
	}

	return &conv, nil
}

// Update records the latest answer and query and bumps the turn counter.
func (m *Manager) Update(ctx context.Context, conv *Conversation, answer, cypherQuery string) error {
	conv.LastAnswer = answer
	conv.LastCypher = cypherQuery
	conv.Turns++
	conv.LastActivity = time.Now()
	return m.store(ctx, conv)
}

// Delete removes a conversation
func (m *Manager) Delete(ctx context.Context, conversationID string) error {
	key := conversationPrefix + conversationID
	return m.redis.Del(ctx, key).Err()
}

// Refresh extends the conversation's TTL without changing its state
func (m *Manager) Refresh(ctx context.Context, conversationID string) error {
	key := conversationPrefix + conversationID
	return m.redis.Expire(ctx, key, m.ttl).Err()
}

func (m *Manager) store(ctx context.Context, conv *Conversation) error {
	data, err := json.Marshal(conv)
	if err != nil {
		return fmt.Errorf("failed to marshal conversation: %w", err)
	}

	key := conversationPrefix + conv.ID
	if err := m.redis.Set(ctx, key, data, m.ttl).Err(); err != nil {
		return fmt.Errorf("failed to store conversation: %w", err)
	}
	return nil
}

// generateConversationID generates a cryptographically secure random ID
func generateConversationID() (string, error) {
	b := make([]byte, conversationIDLen)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
