package auth

import (
	"context"

	"github.com/askgraph/askgraph/internal/llm"
	"github.com/askgraph/askgraph/internal/observability"
)

// MeterLLM wraps a model client so every completion charges the calling
// user's daily token budget. The user comes from the request context; calls
// without one (startup probes, CLI tools) are not metered.
func (m *Manager) MeterLLM(client llm.Client) llm.Client {
	return &meteredClient{client: client, budget: m.budget}
}

type meteredClient struct {
	client llm.Client
	budget *BudgetManager
}

func (mc *meteredClient) Provider() string {
	return mc.client.Provider()
}

func (mc *meteredClient) Complete(ctx context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	userID := observability.GetUserID(ctx)

	if userID != "" {
		if err := mc.budget.Check(userID, 1); err != nil {
			return nil, err
		}
	}

	resp, err := mc.client.Complete(ctx, req)
	if err != nil {
		return nil, err
	}

	if userID != "" {
		mc.budget.Charge(userID, int64(resp.InputTokens+resp.OutputTokens))
	}
	return resp, nil
}
