package pipeline

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/go-redis/redis/v8"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/askgraph/askgraph/internal/errors"
	"github.com/askgraph/askgraph/internal/graph"
	"github.com/askgraph/askgraph/internal/llm"
	"github.com/askgraph/askgraph/internal/ontology"
	"github.com/askgraph/askgraph/internal/semantic"
	"github.com/askgraph/askgraph/internal/session"
)

// fakeLLM replays scripted replies in order and records every request.
type fakeLLM struct {
	replies []string
	err     error
	calls   []llm.CompletionRequest
}

func (f *fakeLLM) Complete(_ context.Context, req llm.CompletionRequest) (*llm.CompletionResponse, error) {
	f.calls = append(f.calls, req)
	if f.err != nil {
		return nil, f.err
	}
	if len(f.replies) == 0 {
		return nil, errors.New("no scripted reply left")
	}
	reply := f.replies[0]
	f.replies = f.replies[1:]
	return &llm.CompletionResponse{Text: reply}, nil
}

func (f *fakeLLM) Provider() string { return "fake" }

type fakeGraph struct {
	result  *graph.QueryResult
	err     error
	queries []string
}

func (f *fakeGraph) Query(_ context.Context, cypher string) (*graph.QueryResult, error) {
	f.queries = append(f.queries, cypher)
	if f.err != nil {
		return nil, f.err
	}
	return f.result, nil
}

func (f *fakeGraph) Labels(context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []string{"Person", "Movie"}, nil
}

func (f *fakeGraph) RelationshipTypes(context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []string{"ACTED_IN"}, nil
}

func (f *fakeGraph) PropertyKeys(context.Context) ([]string, error) {
	if f.err != nil {
		return nil, f.err
	}
	return []string{"name", "title"}, nil
}

type fakeEmbedder struct{}

func (fakeEmbedder) Embed(_ context.Context, _ string) ([]float32, error) {
	return []float32{0.1, 0.2, 0.3}, nil
}

func (fakeEmbedder) Dimensions() int { return 3 }

type fakeExampleStore struct {
	examples []semantic.Example
	saved    []semantic.Example
}

func (f *fakeExampleStore) FindSimilar(_ context.Context, _ []float32, limit int) ([]semantic.Example, error) {
	if limit < len(f.examples) {
		return f.examples[:limit], nil
	}
	return f.examples, nil
}

func (f *fakeExampleStore) Save(_ context.Context, question string, _ []float32, query string) error {
	f.saved = append(f.saved, semantic.Example{Question: question, Query: query})
	return nil
}

func (f *fakeExampleStore) Ping(context.Context) error { return nil }
func (f *fakeExampleStore) Close() error               { return nil }

func testOntology() *ontology.Ontology {
	return &ontology.Ontology{
		Entities: []ontology.Entity{
			{Label: "Person", Attributes: []ontology.Attribute{{Name: "name", Type: "string"}}},
			{Label: "Movie", Attributes: []ontology.Attribute{{Name: "title", Type: "string"}}},
		},
		Relations: []ontology.Relation{
			{Label: "ACTED_IN", Source: "Person", Target: "Movie"},
		},
	}
}

func fencedCypher(query string) string {
	return fmt.Sprintf("```cypher\n%s\n```", query)
}

func oneRowResult() *graph.QueryResult {
	return &graph.QueryResult{
		Columns: []string{"p.name"},
		Rows:    [][]graph.Value{{"Keanu Reeves"}},
		Elapsed: 3,
	}
}

func TestAsk_Success(t *testing.T) {
	client := &fakeLLM{replies: []string{
		fencedCypher("MATCH (p:Person) RETURN p.name"),
		"Keanu Reeves is in the graph.",
	}}
	store := &fakeGraph{result: oneRowResult()}

	svc := NewService(client, store, testOntology(), nil, nil, nil, nil, Config{})
	resp, err := svc.Ask(context.Background(), &AskRequest{Question: "Who is in the graph?"})

	require.NoError(t, err)
	assert.Equal(t, "Keanu Reeves is in the graph.", resp.Answer)
	assert.Equal(t, "MATCH (p:Person) RETURN p.name", resp.Cypher)
	assert.Equal(t, "Keanu Reeves", resp.Context)
	assert.False(t, resp.Cached)
	require.Len(t, store.queries, 1)

	// The Cypher session carries the ontology, the answer session the results.
	require.Len(t, client.calls, 2)
	assert.Contains(t, client.calls[0].System, "Person")
	assert.Contains(t, client.calls[1].Messages[0].Content, "Keanu Reeves")
}

func TestAsk_ThroughModelCircuitBreaker(t *testing.T) {
	inner := &fakeLLM{replies: []string{
		fencedCypher("MATCH (p:Person) RETURN p.name"),
		"Keanu Reeves is in the graph.",
	}}
	client := llm.NewCircuitBreakerClient(inner, "fake", llm.DefaultCircuitBreakerConfig)
	store := &fakeGraph{result: oneRowResult()}

	svc := NewService(client, store, testOntology(), nil, nil, nil, nil, Config{})
	resp, err := svc.Ask(context.Background(), &AskRequest{Question: "Who is in the graph?"})

	require.NoError(t, err)
	assert.Equal(t, "Keanu Reeves is in the graph.", resp.Answer)
	require.Len(t, inner.calls, 2)
}

func TestAsk_NoAnswerFallback(t *testing.T) {
	client := &fakeLLM{replies: []string{"I have no idea what you mean."}}
	store := &fakeGraph{result: oneRowResult()}

	svc := NewService(client, store, testOntology(), nil, nil, nil, nil, Config{})
	resp, err := svc.Ask(context.Background(), &AskRequest{Question: "gibberish?"})

	require.NoError(t, err)
	assert.Equal(t, "I could not find an answer to that question in the knowledge graph.", resp.Answer)
	assert.Empty(t, resp.Cypher)
	assert.Empty(t, store.queries)
}

func TestAsk_GenerationFailureWrapped(t *testing.T) {
	client := &fakeLLM{err: llm.ErrServerError}
	store := &fakeGraph{result: oneRowResult()}

	svc := NewService(client, store, testOntology(), nil, nil, nil, nil, Config{MaxAttempts: 2})
	_, err := svc.Ask(context.Background(), &AskRequest{Question: "Who is in the graph?"})

	require.Error(t, err)
	var enhanced *apperrors.EnhancedError
	require.ErrorAs(t, err, &enhanced)
	assert.Equal(t, apperrors.ErrCodeQueryGeneration, enhanced.Code)
}

func TestAsk_AnswerFailureWrapped(t *testing.T) {
	// One reply for the Cypher session, then the QA session hits the scripted
	// replies running out.
	client := &fakeLLM{replies: []string{fencedCypher("MATCH (p:Person) RETURN p.name")}}
	store := &fakeGraph{result: oneRowResult()}

	svc := NewService(client, store, testOntology(), nil, nil, nil, nil, Config{})
	_, err := svc.Ask(context.Background(), &AskRequest{Question: "Who is in the graph?"})

	require.Error(t, err)
	var enhanced *apperrors.EnhancedError
	require.ErrorAs(t, err, &enhanced)
	assert.Equal(t, apperrors.ErrCodeAnswerStep, enhanced.Code)
}

func TestAsk_CacheHit(t *testing.T) {
	mr := miniredis.RunT(t)
	cache := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer cache.Close()

	client := &fakeLLM{replies: []string{
		fencedCypher("MATCH (p:Person) RETURN p.name"),
		"Keanu Reeves is in the graph.",
	}}
	store := &fakeGraph{result: oneRowResult()}

	svc := NewService(client, store, testOntology(), nil, nil, nil, cache, Config{})

	first, err := svc.Ask(context.Background(), &AskRequest{Question: "Who is in the graph?"})
	require.NoError(t, err)
	require.False(t, first.Cached)

	// No scripted replies remain: a second model call would fail.
	second, err := svc.Ask(context.Background(), &AskRequest{Question: "Who is in the graph?"})
	require.NoError(t, err)
	assert.True(t, second.Cached)
	assert.Equal(t, first.Answer, second.Answer)
	require.Len(t, store.queries, 1)
}

func TestAsk_CacheKeyNormalizesQuestion(t *testing.T) {
	assert.Equal(t, cacheKey("Who is in the graph?"), cacheKey("  who IS in   the graph?  "))
	assert.NotEqual(t, cacheKey("Who is in the graph?"), cacheKey("Who is not in the graph?"))
}

func TestAsk_ConversationQuestionsSkipCache(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	conversations := session.NewManager(rdb, time.Hour)

	client := &fakeLLM{replies: []string{
		fencedCypher("MATCH (p:Person) RETURN p.name"),
		"Keanu Reeves is in the graph.",
	}}
	store := &fakeGraph{result: oneRowResult()}

	svc := NewService(client, store, testOntology(), nil, nil, conversations, rdb, Config{})

	existing, err := conversations.GetOrCreate(context.Background(), "", "user-1")
	require.NoError(t, err)

	resp, err := svc.Ask(context.Background(), &AskRequest{
		Question:       "Who is in the graph?",
		ConversationID: existing.ID,
	})
	require.NoError(t, err)
	assert.Equal(t, existing.ID, resp.ConversationID)

	// Nothing was cached for the conversation-bound question.
	keys := rdb.Keys(context.Background(), "ask:*").Val()
	assert.Empty(t, keys)

	conv, err := conversations.Get(context.Background(), existing.ID)
	require.NoError(t, err)
	assert.Equal(t, "Keanu Reeves is in the graph.", conv.LastAnswer)
	assert.Equal(t, "MATCH (p:Person) RETURN p.name", conv.LastCypher)
}

func TestAsk_FollowUpCarriesLastAnswer(t *testing.T) {
	mr := miniredis.RunT(t)
	rdb := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	defer rdb.Close()
	conversations := session.NewManager(rdb, time.Hour)

	client := &fakeLLM{replies: []string{
		fencedCypher("MATCH (p:Person) RETURN p.name"),
		"Keanu Reeves is in the graph.",
		fencedCypher("MATCH (p:Person)-[:ACTED_IN]->(m:Movie) RETURN m.title"),
		"He acted in The Matrix.",
	}}
	store := &fakeGraph{result: oneRowResult()}

	svc := NewService(client, store, testOntology(), nil, nil, conversations, rdb, Config{})

	first, err := svc.Ask(context.Background(), &AskRequest{Question: "Who is in the graph?"})
	require.NoError(t, err)

	_, err = svc.Ask(context.Background(), &AskRequest{
		Question:       "What did he act in?",
		ConversationID: first.ConversationID,
	})
	require.NoError(t, err)

	// The follow-up's Cypher prompt includes the previous answer.
	require.GreaterOrEqual(t, len(client.calls), 3)
	assert.Contains(t, client.calls[2].Messages[0].Content, "Keanu Reeves is in the graph.")
}

func TestAsk_SimilarExamplesInSystemPrompt(t *testing.T) {
	examples := &fakeExampleStore{examples: []semantic.Example{
		{Question: "List every person", Query: "MATCH (p:Person) RETURN p"},
	}}

	client := &fakeLLM{replies: []string{
		fencedCypher("MATCH (p:Person) RETURN p.name"),
		"Keanu Reeves is in the graph.",
	}}
	store := &fakeGraph{result: oneRowResult()}

	svc := NewService(client, store, testOntology(), fakeEmbedder{}, examples, nil, nil, Config{})
	_, err := svc.Ask(context.Background(), &AskRequest{Question: "Who is in the graph?"})
	require.NoError(t, err)

	require.NotEmpty(t, client.calls)
	assert.Contains(t, client.calls[0].System, "List every person")
	assert.Contains(t, client.calls[0].System, "MATCH (p:Person) RETURN p")
}

func TestAsk_SavesWorkingQueryAsExample(t *testing.T) {
	examples := &fakeExampleStore{}

	client := &fakeLLM{replies: []string{
		fencedCypher("MATCH (p:Person) RETURN p.name"),
		"Keanu Reeves is in the graph.",
	}}
	store := &fakeGraph{result: oneRowResult()}

	svc := NewService(client, store, testOntology(), fakeEmbedder{}, examples, nil, nil, Config{})
	_, err := svc.Ask(context.Background(), &AskRequest{Question: "Who is in the graph?"})
	require.NoError(t, err)

	require.Len(t, examples.saved, 1)
	assert.Equal(t, "Who is in the graph?", examples.saved[0].Question)
	assert.Equal(t, "MATCH (p:Person) RETURN p.name", examples.saved[0].Query)
}

func TestAsk_CustomFallbackAnswer(t *testing.T) {
	client := &fakeLLM{replies: []string{"nothing useful"}}
	store := &fakeGraph{result: oneRowResult()}

	svc := NewService(client, store, testOntology(), nil, nil, nil, nil, Config{
		FallbackAnswer: "No idea, sorry.",
	})
	resp, err := svc.Ask(context.Background(), &AskRequest{Question: "???"})

	require.NoError(t, err)
	assert.Equal(t, "No idea, sorry.", resp.Answer)
}
