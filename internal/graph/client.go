// Package graph is the FalkorDB client. FalkorDB speaks the Redis protocol,
// so queries go over a regular Redis connection as GRAPH.QUERY commands.
package graph

import (
	"context"
	stderrors "errors"
	"io"
	"net"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/askgraph/askgraph/internal/errors"
	"github.com/askgraph/askgraph/internal/observability"
)

// Config holds connection settings for the graph store.
type Config struct {
	Addr         string
	Password     string
	GraphName    string
	QueryTimeout time.Duration
}

// Client executes Cypher queries against a single named graph.
type Client struct {
	rdb       *redis.Client
	graphName string
	timeout   time.Duration
	logger    *observability.Logger
}

// NewClient creates a graph client. The connection is lazy; use Ping to
// verify connectivity.
func NewClient(cfg Config) *Client {
	timeout := 30 * time.Second
	if cfg.QueryTimeout > 0 {
		timeout = cfg.QueryTimeout
	}

	return &Client{
		rdb: redis.NewClient(&redis.Options{
			Addr:     cfg.Addr,
			Password: cfg.Password,
		}),
		graphName: cfg.GraphName,
		timeout:   timeout,
		logger:    observability.NewLogger("graph"),
	}
}

// GraphName returns the name of the graph this client targets.
func (c *Client) GraphName() string {
	return c.graphName
}

// Query executes a Cypher statement with GRAPH.QUERY.
func (c *Client) Query(ctx context.Context, cypher string) (*QueryResult, error) {
	return c.run(ctx, "GRAPH.QUERY", cypher)
}

// ROQuery executes a read-only Cypher statement with GRAPH.RO_QUERY, which a
// replica can also serve.
func (c *Client) ROQuery(ctx context.Context, cypher string) (*QueryResult, error) {
	return c.run(ctx, "GRAPH.RO_QUERY", cypher)
}

func (c *Client) run(ctx context.Context, command, cypher string) (*QueryResult, error) {
	if _, hasDeadline := ctx.Deadline(); !hasDeadline {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	raw, err := c.rdb.Do(ctx, command, c.graphName, cypher).Result()
	duration := time.Since(start)

	if err != nil {
		observability.RecordGraphMetrics(command, duration, 0, err)
		if ctx.Err() != nil || isConnectionError(err) {
			return nil, errors.NewGraphConnectionError(err)
		}
		// Anything else came back from the engine itself (syntax error,
		// unknown function, missing graph).
		return nil, errors.NewQueryExecutionError(err, cypher)
	}

	result, err := ParseReply(raw)
	if err != nil {
		observability.RecordGraphMetrics(command, duration, 0, err)
		return nil, errors.Wrap(err, errors.ErrCodeGraphQuery, "Failed to decode graph reply").
			WithMetadata("query", cypher)
	}

	observability.RecordGraphMetrics(command, duration, len(result.Rows), nil)
	c.logger.Debug(ctx, "Graph query executed", map[string]interface{}{
		"command":     command,
		"rows":        len(result.Rows),
		"elapsed_ms":  result.Elapsed,
		"duration_ms": duration.Milliseconds(),
	})

	return result, nil
}

func isConnectionError(err error) bool {
	var netErr net.Error
	if stderrors.As(err, &netErr) {
		return true
	}
	return stderrors.Is(err, io.EOF) || stderrors.Is(err, redis.ErrClosed)
}

// Labels returns the node labels present in the graph.
func (c *Client) Labels(ctx context.Context) ([]string, error) {
	return c.callStrings(ctx, "CALL db.labels()")
}

// RelationshipTypes returns the relationship types present in the graph.
func (c *Client) RelationshipTypes(ctx context.Context) ([]string, error) {
	return c.callStrings(ctx, "CALL db.relationshipTypes()")
}

// PropertyKeys returns the property keys present in the graph.
func (c *Client) PropertyKeys(ctx context.Context) ([]string, error) {
	return c.callStrings(ctx, "CALL db.propertyKeys()")
}

func (c *Client) callStrings(ctx context.Context, query string) ([]string, error) {
	result, err := c.ROQuery(ctx, query)
	if err != nil {
		return nil, err
	}
	out := make([]string, 0, len(result.Rows))
	for _, row := range result.Rows {
		if len(row) == 0 {
			continue
		}
		if s, ok := row[0].(string); ok {
			out = append(out, s)
		}
	}
	return out, nil
}

// GraphList returns the names of all graphs on the store.
func (c *Client) GraphList(ctx context.Context) ([]string, error) {
	raw, err := c.rdb.Do(ctx, "GRAPH.LIST").Result()
	if err != nil {
		return nil, errors.NewGraphConnectionError(err)
	}
	items, ok := raw.([]interface{})
	if !ok {
		return nil, errors.New(errors.ErrCodeGraphQuery, "Unexpected GRAPH.LIST reply")
	}
	names := make([]string, 0, len(items))
	for _, item := range items {
		if s, ok := item.(string); ok {
			names = append(names, s)
		}
	}
	return names, nil
}

// Exists reports whether the configured graph is present on the store.
func (c *Client) Exists(ctx context.Context) (bool, error) {
	names, err := c.GraphList(ctx)
	if err != nil {
		return false, err
	}
	for _, name := range names {
		if name == c.graphName {
			return true, nil
		}
	}
	return false, nil
}

// Delete removes the configured graph and all its data.
func (c *Client) Delete(ctx context.Context) error {
	if err := c.rdb.Do(ctx, "GRAPH.DELETE", c.graphName).Err(); err != nil {
		return errors.NewQueryExecutionError(err, "GRAPH.DELETE")
	}
	return nil
}

// Ping verifies connectivity to the store.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.rdb.Ping(ctx).Err(); err != nil {
		return errors.NewGraphConnectionError(err)
	}
	return nil
}

// Close releases the underlying connection pool.
func (c *Client) Close() error {
	return c.rdb.Close()
}
