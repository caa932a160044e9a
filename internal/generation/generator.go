// Package generation drives the Cypher generation retry loop: build a prompt,
// send it to the model, extract and validate a query, execute it, and repair
// the prompt from whatever went wrong, within a bounded attempt budget.
package generation

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/askgraph/askgraph/internal/cypher"
	apperrors "github.com/askgraph/askgraph/internal/errors"
	"github.com/askgraph/askgraph/internal/graph"
	"github.com/askgraph/askgraph/internal/llm"
	"github.com/askgraph/askgraph/internal/observability"
)

// ErrNoAnswer is returned when the model declines to produce a query, or its
// reply carries nothing extractable. The invocation aborts immediately;
// retrying the same question will not help.
var ErrNoAnswer = errors.New("model could not produce a query for the question")

// ErrNoAttempts is returned when the controller is constructed with a
// non-positive attempt budget. No model call is made.
var ErrNoAttempts = errors.New("no generation attempts made: attempt budget is zero")

// GenerationError reports an exhausted attempt budget. LastErr is the failure
// recorded on the final attempt and is never nil.
type GenerationError struct {
	Attempts int
	LastErr  error
}

func (e *GenerationError) Error() string {
	return fmt.Sprintf("query generation failed after %d attempts: %v", e.Attempts, e.LastErr)
}

func (e *GenerationError) Unwrap() error { return e.LastErr }

// Result is a successfully generated and executed query.
type Result struct {
	// Context is the stringified result set, ready for an answer prompt.
	// Empty when the accepted query returned no rows.
	Context string
	// Query is the Cypher statement that produced the context.
	Query string
	// Elapsed is the engine-reported execution time in whole milliseconds.
	Elapsed int64
	// Display is the optional human-facing variant of the query.
	Display string
}

// ModelSession is the conversational surface the controller drives. Satisfied
// by llm.ChatSession.
type ModelSession interface {
	Send(ctx context.Context, prompt string) (string, error)
	DiscardLastTurn()
}

// GraphClient executes Cypher against the graph store. Satisfied by
// graph.Client and its circuit-breaker wrapper.
type GraphClient interface {
	Query(ctx context.Context, cypher string) (*graph.QueryResult, error)
}

// Validator checks a query against the graph schema. A nil or empty slice
// means the query is valid. Satisfied by ontology.Ontology.
type Validator interface {
	ValidateQuery(cypher string) []string
}

// Controller runs the generation loop for one question at a time. It is not
// safe for concurrent use; create one per in-flight question.
type Controller struct {
	session   ModelSession
	store     GraphClient
	validator Validator

	maxAttempts     int
	lastAnswer      string
	freshTemplate   string
	historyTemplate string

	extract   func(reply string) *cypher.Extracted
	stringify func(rows [][]graph.Value) string
	logger    *observability.Logger
}

// Option configures a Controller.
type Option func(*Controller)

// WithMaxAttempts sets the attempt budget. Each model send consumes one
// attempt.
func WithMaxAttempts(n int) Option {
	return func(c *Controller) { c.maxAttempts = n }
}

// WithLastAnswer supplies the previous answer in the conversation, switching
// prompt construction to the with-history template.
func WithLastAnswer(answer string) Option {
	return func(c *Controller) { c.lastAnswer = answer }
}

// WithTemplates overrides the fresh and with-history prompt templates.
func WithTemplates(fresh, history string) Option {
	return func(c *Controller) {
		if fresh != "" {
			c.freshTemplate = fresh
		}
		if history != "" {
			c.historyTemplate = history
		}
	}
}

// WithLogger overrides the controller's logger.
func WithLogger(logger *observability.Logger) Option {
	return func(c *Controller) { c.logger = logger }
}

// DefaultMaxAttempts is the attempt budget used when none is configured.
const DefaultMaxAttempts = 10

// NewController builds a Controller around a model session, a graph store,
// and a schema validator.
func NewController(session ModelSession, store GraphClient, validator Validator, opts ...Option) *Controller {
	c := &Controller{
		session:         session,
		store:           store,
		validator:       validator,
		maxAttempts:     DefaultMaxAttempts,
		freshTemplate:   DefaultFreshTemplate,
		historyTemplate: DefaultHistoryTemplate,
		extract:         cypher.ExtractResponse,
		stringify:       cypher.StringifyResultSet,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.logger == nil {
		c.logger = observability.NewLogger("generation")
	}
	return c
}

// loopState is the mutable state threaded through one Generate invocation.
type loopState struct {
	prompt         string
	lastEmptyQuery string
	lastErr        error
}

// Generate runs the retry loop for one question. It returns ErrNoAnswer when
// the model declines, a *GenerationError when the attempt budget runs out,
// and ErrNoAttempts when the budget is non-positive.
func (c *Controller) Generate(ctx context.Context, question string) (*Result, error) {
	if c.maxAttempts <= 0 {
		return nil, ErrNoAttempts
	}

	var state loopState
	for attempt := 1; attempt <= c.maxAttempts; attempt++ {
		if state.prompt == "" {
			state.prompt = c.buildPrompt(question)
		}

		c.logger.Debug(ctx, "sending generation prompt", map[string]interface{}{
			"attempt": attempt,
			"prompt":  state.prompt,
		})

		reply, err := c.session.Send(ctx, state.prompt)
		if err != nil {
			if errors.Is(err, llm.ErrRateLimited) {
				// Drop the failed turn and resend the identical prompt.
				c.session.DiscardLastTurn()
				state.lastErr = err
				c.logger.Warn(ctx, "model rate limited, retrying with same prompt", map[string]interface{}{
					"attempt": attempt,
				})
				continue
			}
			state.lastErr = err
			state.prompt = errorRepairPrompt(errorText(err), question)
			c.logger.Warn(ctx, "model send failed", map[string]interface{}{
				"attempt": attempt,
				"error":   err.Error(),
			})
			continue
		}

		c.logger.Debug(ctx, "model reply received", map[string]interface{}{
			"attempt":    attempt,
			"reply":      reply,
			"reply_size": len(reply),
		})

		extracted := c.extract(reply)
		if extracted == nil || extracted.Refused || extracted.Query == "" {
			observability.RecordGenerationMetrics(attempt, "no_answer")
			return nil, ErrNoAnswer
		}

		c.logger.Debug(ctx, "extracted query", map[string]interface{}{
			"attempt": attempt,
			"query":   extracted.Query,
		})

		if violations := c.validator.ValidateQuery(extracted.Query); len(violations) > 0 {
			state.lastErr = apperrors.NewQueryValidationError(violations)
			state.prompt = errorRepairPrompt(strings.Join(violations, "\n"), question)
			c.logger.Warn(ctx, "query failed schema validation", map[string]interface{}{
				"attempt":    attempt,
				"query":      extracted.Query,
				"violations": violations,
			})
			continue
		}

		result, err := c.store.Query(ctx, extracted.Query)
		if err != nil {
			state.lastErr = apperrors.NewQueryExecutionError(err, extracted.Query)
			state.prompt = errorRepairPrompt(errorText(err), question)
			c.logger.Warn(ctx, "query execution failed", map[string]interface{}{
				"attempt": attempt,
				"query":   extracted.Query,
				"error":   err.Error(),
			})
			continue
		}

		if result.Empty() && extracted.Query != state.lastEmptyQuery {
			state.lastEmptyQuery = extracted.Query
			state.prompt = emptyResultPrompt(question)
			c.logger.Debug(ctx, "query returned empty result, asking for reformulation", map[string]interface{}{
				"attempt": attempt,
				"query":   extracted.Query,
			})
			continue
		}

		// Non-empty rows, or the model stood by the same query twice: the
		// (possibly empty) result set is the answer context.
		context := c.stringify(result.Rows)
		c.logger.Debug(ctx, "generation succeeded", map[string]interface{}{
			"attempt":      attempt,
			"query":        extracted.Query,
			"elapsed_ms":   result.Elapsed,
			"context_size": len(context),
		})
		observability.RecordGenerationMetrics(attempt, "success")

		return &Result{
			Context: context,
			Query:   extracted.Query,
			Elapsed: result.Elapsed,
			Display: extracted.Display,
		}, nil
	}

	if state.lastErr == nil {
		state.lastErr = errors.New("unknown generation failure")
	}
	observability.RecordGenerationMetrics(c.maxAttempts, "exhausted")
	return nil, &GenerationError{Attempts: c.maxAttempts, LastErr: state.lastErr}
}

func (c *Controller) buildPrompt(question string) string {
	if c.lastAnswer != "" {
		return fillTemplate(c.historyTemplate, question, c.lastAnswer)
	}
	return fillTemplate(c.freshTemplate, question, "")
}

// errorText renders an error for a repair prompt, preferring the underlying
// cause over wrapper framing so the model sees the provider's own message.
func errorText(err error) string {
	var enhanced *apperrors.EnhancedError
	if errors.As(err, &enhanced) && enhanced.Cause != nil {
		return enhanced.Cause.Error()
	}
	return err.Error()
}
