// Package pipeline wires the ask flow end to end: conversation state,
// few-shot examples, Cypher generation, answer synthesis, and caching.
package pipeline

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-redis/redis/v8"

	apperrors "github.com/askgraph/askgraph/internal/errors"
	"github.com/askgraph/askgraph/internal/generation"
	"github.com/askgraph/askgraph/internal/graph"
	"github.com/askgraph/askgraph/internal/llm"
	"github.com/askgraph/askgraph/internal/observability"
	"github.com/askgraph/askgraph/internal/ontology"
	"github.com/askgraph/askgraph/internal/semantic"
	"github.com/askgraph/askgraph/internal/session"
)

// AskRequest is an incoming natural language question.
type AskRequest struct {
	Question       string `json:"question" binding:"required"`
	ConversationID string `json:"conversation_id,omitempty"`
	UserID         string `json:"user_id,omitempty"`
}

// AskResponse is the answered question.
type AskResponse struct {
	Answer          string                 `json:"answer"`
	Cypher          string                 `json:"cypher,omitempty"`
	DisplayCypher   string                 `json:"display_cypher,omitempty"`
	Context         string                 `json:"context,omitempty"`
	ExecutionTimeMS int64                  `json:"execution_time_ms"`
	Cached          bool                   `json:"cached"`
	ConversationID  string                 `json:"conversation_id,omitempty"`
	Metadata        map[string]interface{} `json:"metadata,omitempty"`
}

// GraphStore is the graph surface the pipeline needs. Satisfied by
// graph.Client and graph.BreakerClient.
type GraphStore interface {
	Query(ctx context.Context, cypher string) (*graph.QueryResult, error)
	Labels(ctx context.Context) ([]string, error)
	RelationshipTypes(ctx context.Context) ([]string, error)
	PropertyKeys(ctx context.Context) ([]string, error)
}

// Config holds pipeline tuning knobs.
type Config struct {
	CacheTTL        time.Duration
	MaxExamples     int
	FallbackAnswer  string
	MaxAttempts     int
	FreshTemplate   string
	HistoryTemplate string
}

// Service answers questions against the knowledge graph.
type Service struct {
	llmClient     llm.Client
	store         GraphStore
	ont           *ontology.Ontology
	embedder      llm.Embedder
	examples      semantic.Store
	conversations *session.Manager
	cache         *redis.Client
	logger        *observability.Logger
	healthChecker *observability.HealthChecker
	config        Config
}

// NewService assembles the ask pipeline. examples, embedder, conversations,
// and cache may be nil; the corresponding steps are skipped.
func NewService(llmClient llm.Client, store GraphStore, ont *ontology.Ontology,
	embedder llm.Embedder, examples semantic.Store, conversations *session.Manager,
	cache *redis.Client, config Config) *Service {

	if config.MaxExamples == 0 {
		config.MaxExamples = 5
	}
	if config.CacheTTL == 0 {
		config.CacheTTL = 5 * time.Minute
	}
	if config.MaxAttempts == 0 {
		config.MaxAttempts = generation.DefaultMaxAttempts
	}
	if config.FallbackAnswer == "" {
		config.FallbackAnswer = "I could not find an answer to that question in the knowledge graph."
	}

	return &Service{
		llmClient:     llmClient,
		store:         store,
		ont:           ont,
		embedder:      embedder,
		examples:      examples,
		conversations: conversations,
		cache:         cache,
		logger:        observability.NewLogger("pipeline"),
		config:        config,
	}
}

// SetHealthChecker sets the health checker used by the health endpoint.
func (s *Service) SetHealthChecker(checker *observability.HealthChecker) {
	s.healthChecker = checker
}

// Ask answers one question.
func (s *Service) Ask(ctx context.Context, req *AskRequest) (*AskResponse, error) {
	start := time.Now()

	s.logger.Info(ctx, "Answering question", map[string]interface{}{
		"question":        req.Question,
		"conversation_id": req.ConversationID,
	})

	var errorType string
	var response *AskResponse
	var askErr error

	defer func() {
		duration := time.Since(start)
		success := askErr == nil
		cached := response != nil && response.Cached
		observability.RecordAskMetrics(duration, success, cached, errorType)

		if askErr != nil {
			s.logger.Error(ctx, "Question failed", askErr, map[string]interface{}{
				"question":    req.Question,
				"duration_ms": duration.Milliseconds(),
				"error_type":  errorType,
			})
		} else {
			s.logger.Info(ctx, "Question answered", map[string]interface{}{
				"question":    req.Question,
				"duration_ms": duration.Milliseconds(),
				"cache_hit":   cached,
			})
		}
	}()

	// Conversation-less questions can be served from cache.
	if req.ConversationID == "" {
		if cachedResp, err := s.getCached(ctx, req.Question); err == nil {
			cachedResp.Cached = true
			response = cachedResp
			return cachedResp, nil
		}
	}

	var conv *session.Conversation
	if s.conversations != nil {
		var err error
		conv, err = s.conversations.GetOrCreate(ctx, req.ConversationID, req.UserID)
		if err != nil {
			// Conversation state is an enhancement, not a requirement.
			s.logger.Warn(ctx, "Failed to load conversation state", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	system := s.systemInstruction(ctx, req.Question)
	cypherSession := llm.NewChatSession(s.llmClient, system)

	opts := []generation.Option{
		generation.WithMaxAttempts(s.config.MaxAttempts),
		generation.WithTemplates(s.config.FreshTemplate, s.config.HistoryTemplate),
	}
	if conv != nil && conv.LastAnswer != "" {
		opts = append(opts, generation.WithLastAnswer(conv.LastAnswer))
	}
	controller := generation.NewController(cypherSession, s.store, s.ont, opts...)

	result, err := controller.Generate(ctx, req.Question)
	if err != nil {
		if errors.Is(err, generation.ErrNoAnswer) {
			errorType = "no_answer"
			response = &AskResponse{
				Answer:          s.config.FallbackAnswer,
				ExecutionTimeMS: 0,
				ConversationID:  conversationID(conv),
			}
			return response, nil
		}
		errorType = "query_generation"
		askErr = apperrors.NewQueryGenerationError(err)
		return nil, askErr
	}

	answer, err := s.answerQuestion(ctx, req.Question, result)
	if err != nil {
		errorType = "answer_generation"
		askErr = apperrors.NewAnswerStepError(err)
		return nil, askErr
	}

	if s.conversations != nil && conv != nil {
		if err := s.conversations.Update(ctx, conv, answer, result.Query); err != nil {
			s.logger.Warn(ctx, "Failed to persist conversation state", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	s.saveExample(ctx, req.Question, result.Query)

	response = &AskResponse{
		Answer:          answer,
		Cypher:          result.Query,
		DisplayCypher:   result.Display,
		Context:         result.Context,
		ExecutionTimeMS: result.Elapsed,
		ConversationID:  conversationID(conv),
		Metadata: map[string]interface{}{
			"graph_elapsed_ms": result.Elapsed,
		},
	}

	if req.ConversationID == "" {
		// Cached entries are shared across callers, so the conversation ID
		// stays out of the cache.
		cacheCopy := *response
		cacheCopy.ConversationID = ""
		if err := s.setCached(ctx, req.Question, &cacheCopy); err != nil {
			s.logger.Warn(ctx, "Failed to cache response", map[string]interface{}{
				"error": err.Error(),
			})
		}
	}

	return response, nil
}

// systemInstruction builds the Cypher session's system prompt from the
// ontology and similar past examples.
func (s *Service) systemInstruction(ctx context.Context, question string) string {
	var sb strings.Builder
	sb.WriteString("You translate natural language questions into Cypher queries against a knowledge graph.\n\n")
	sb.WriteString("Ontology (entities, relations, attributes):\n")
	sb.WriteString(s.ont.Prompt())
	sb.WriteString("\n")

	for _, ex := range s.similarExamples(ctx, question) {
		sb.WriteString(fmt.Sprintf("\nExample question: %s\nExample Cypher: %s\n", ex.Question, ex.Query))
	}

	return sb.String()
}

func (s *Service) similarExamples(ctx context.Context, question string) []semantic.Example {
	if s.examples == nil || s.embedder == nil {
		return nil
	}

	embedding, err := s.embedder.Embed(ctx, question)
	if err != nil {
		s.logger.Warn(ctx, "Failed to embed question for example search", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}

	examples, err := s.examples.FindSimilar(ctx, embedding, s.config.MaxExamples)
	if err != nil {
		s.logger.Warn(ctx, "Failed to find similar examples", map[string]interface{}{
			"error": err.Error(),
		})
		return nil
	}
	return examples
}

// saveExample records a question that produced a working query.
func (s *Service) saveExample(ctx context.Context, question, cypherQuery string) {
	if s.examples == nil || s.embedder == nil {
		return
	}

	embedding, err := s.embedder.Embed(ctx, question)
	if err != nil {
		s.logger.Warn(ctx, "Failed to embed question for example store", map[string]interface{}{
			"error": err.Error(),
		})
		return
	}

	if err := s.examples.Save(ctx, question, embedding, cypherQuery); err != nil {
		s.logger.Warn(ctx, "Failed to save example", map[string]interface{}{
			"error": err.Error(),
		})
	}
}

func conversationID(conv *session.Conversation) string {
	if conv == nil {
		return ""
	}
	return conv.ID
}

func cacheKey(question string) string {
	normalized := strings.ToLower(strings.Join(strings.Fields(question), " "))
	sum := sha256.Sum256([]byte(normalized))
	return "ask:" + hex.EncodeToString(sum[:])
}

func (s *Service) getCached(ctx context.Context, question string) (*AskResponse, error) {
	if s.cache == nil {
		return nil, redis.Nil
	}

	data, err := s.cache.Get(ctx, cacheKey(question)).Result()
	if err != nil {
		return nil, err
	}

	var response AskResponse
	if err := json.Unmarshal([]byte(data), &response); err != nil {
		return nil, err
	}
	return &response, nil
}

func (s *Service) setCached(ctx context.Context, question string, response *AskResponse) error {
	if s.cache == nil {
		return nil
	}

	data, err := json.Marshal(response)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, cacheKey(question), data, s.config.CacheTTL).Err()
}
