package graph

import (
	"context"
	stderrors "errors"
	"time"

	"github.com/sony/gobreaker"

	"github.com/askgraph/askgraph/internal/errors"
	"github.com/askgraph/askgraph/internal/observability"
)

// BreakerConfig defines circuit breaker configuration for the graph store.
type BreakerConfig struct {
	MaxRequests   uint32
	Interval      time.Duration
	Timeout       time.Duration
	ReadyToTrip   func(counts gobreaker.Counts) bool
	OnStateChange func(name string, from gobreaker.State, to gobreaker.State)
}

// DefaultBreakerConfig provides sensible defaults for the graph store.
var DefaultBreakerConfig = BreakerConfig{
	MaxRequests: 1,
	Interval:    10 * time.Second,
	Timeout:     30 * time.Second,
	ReadyToTrip: func(counts gobreaker.Counts) bool {
		failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
		return counts.Requests >= 3 && (counts.ConsecutiveFailures >= 5 || failureRatio >= 0.6)
	},
	OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
		observability.NewLogger("graph-breaker").Warn(context.Background(),
			"Circuit breaker state changed", map[string]interface{}{
				"breaker": name,
				"from":    from.String(),
				"to":      to.String(),
			})
	},
}

// BreakerClient wraps a graph client with circuit breaker protection.
type BreakerClient struct {
	client  *Client
	breaker *gobreaker.CircuitBreaker
}

// NewBreakerClient creates a circuit breaker wrapped graph client.
func NewBreakerClient(client *Client, name string, config BreakerConfig) *BreakerClient {
	settings := gobreaker.Settings{
		Name:          name,
		MaxRequests:   config.MaxRequests,
		Interval:      config.Interval,
		Timeout:       config.Timeout,
		ReadyToTrip:   config.ReadyToTrip,
		OnStateChange: config.OnStateChange,
	}

	return &BreakerClient{
		client:  client,
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// Query executes a Cypher statement through the breaker. Engine errors pass
// through unchanged so their message stays usable in repair prompts; only
// breaker rejections are rewritten as connection failures.
func (b *BreakerClient) Query(ctx context.Context, cypher string) (*QueryResult, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.client.Query(ctx, cypher)
	})
	if err != nil {
		return nil, b.classify(err)
	}
	return result.(*QueryResult), nil
}

// ROQuery executes a read-only Cypher statement through the breaker.
func (b *BreakerClient) ROQuery(ctx context.Context, cypher string) (*QueryResult, error) {
	result, err := b.breaker.Execute(func() (interface{}, error) {
		return b.client.ROQuery(ctx, cypher)
	})
	if err != nil {
		return nil, b.classify(err)
	}
	return result.(*QueryResult), nil
}

// Ping checks connectivity through the breaker.
func (b *BreakerClient) Ping(ctx context.Context) error {
	_, err := b.breaker.Execute(func() (interface{}, error) {
		return nil, b.client.Ping(ctx)
	})
	if err != nil {
		return b.classify(err)
	}
	return nil
}

// Labels returns the node labels present in the graph.
func (b *BreakerClient) Labels(ctx context.Context) ([]string, error) {
	return b.client.Labels(ctx)
}

// RelationshipTypes returns the relationship types present in the graph.
func (b *BreakerClient) RelationshipTypes(ctx context.Context) ([]string, error) {
	return b.client.RelationshipTypes(ctx)
}

// PropertyKeys returns the property keys present in the graph.
func (b *BreakerClient) PropertyKeys(ctx context.Context) ([]string, error) {
	return b.client.PropertyKeys(ctx)
}

func (b *BreakerClient) classify(err error) error {
	if stderrors.Is(err, gobreaker.ErrOpenState) || stderrors.Is(err, gobreaker.ErrTooManyRequests) {
		return errors.NewGraphConnectionError(err)
	}
	return err
}

// State returns the current state of the circuit breaker.
func (b *BreakerClient) State() gobreaker.State {
	return b.breaker.State()
}

// Counts returns the current failure counts.
func (b *BreakerClient) Counts() gobreaker.Counts {
	return b.breaker.Counts()
}
