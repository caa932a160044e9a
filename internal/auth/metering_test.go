package auth

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/askgraph/askgraph/internal/errors"
	"github.com/askgraph/askgraph/internal/llm"
	"github.com/askgraph/askgraph/internal/observability"
)

type countingLLM struct {
	calls int
	resp  *llm.CompletionResponse
}

func (c *countingLLM) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	c.calls++
	return c.resp, nil
}

func (c *countingLLM) Provider() string { return "counting" }

func TestMeterLLM_ChargesCallingUser(t *testing.T) {
	m := NewManager(Config{JWTSecret: "test-secret", DailyTokenCap: 1000})
	user, err := m.CreateUser("alice", "alice@example.com", "pw", []string{"user"})
	require.NoError(t, err)

	inner := &countingLLM{resp: &llm.CompletionResponse{Text: "ok", InputTokens: 120, OutputTokens: 30}}
	client := m.MeterLLM(inner)

	ctx := observability.WithUserID(context.Background(), user.ID)
	resp, err := client.Complete(ctx, llm.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, "ok", resp.Text)

	usage := m.Budget().Usage(user.ID)
	require.NotNil(t, usage)
	assert.Equal(t, int64(1000), usage.DailyLimit)
	assert.Equal(t, int64(150), usage.Used)
}

func TestMeterLLM_BlocksExhaustedBudget(t *testing.T) {
	m := NewManager(Config{JWTSecret: "test-secret", DailyTokenCap: 100})
	user, err := m.CreateUser("alice", "alice@example.com", "pw", []string{"user"})
	require.NoError(t, err)
	m.Budget().Charge(user.ID, 100)

	inner := &countingLLM{resp: &llm.CompletionResponse{Text: "ok"}}
	client := m.MeterLLM(inner)

	ctx := observability.WithUserID(context.Background(), user.ID)
	_, err = client.Complete(ctx, llm.CompletionRequest{})

	require.Error(t, err)
	var enhanced *apperrors.EnhancedError
	require.True(t, errors.As(err, &enhanced))
	assert.Equal(t, apperrors.ErrCodeBudgetExceeded, enhanced.Code)
	assert.Equal(t, 0, inner.calls)
}

func TestMeterLLM_NoUserIsUnmetered(t *testing.T) {
	m := NewManager(Config{JWTSecret: "test-secret", DailyTokenCap: 100})
	user, err := m.CreateUser("alice", "alice@example.com", "pw", []string{"user"})
	require.NoError(t, err)

	inner := &countingLLM{resp: &llm.CompletionResponse{Text: "ok", InputTokens: 50, OutputTokens: 50}}
	client := m.MeterLLM(inner)

	// Startup probes and CLI tools carry no user in the context.
	_, err = client.Complete(context.Background(), llm.CompletionRequest{})
	require.NoError(t, err)
	assert.Equal(t, 1, inner.calls)
	assert.Equal(t, int64(0), m.Budget().Usage(user.ID).Used)
}
