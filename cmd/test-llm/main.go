// Command test-llm smoke tests the configured model provider: a plain
// completion, a multi-turn session, Cypher extraction, and embeddings.
package main

import (
	"context"
	"fmt"
	"log"
	"math"

	"github.com/joho/godotenv"

	"github.com/askgraph/askgraph/internal/config"
	"github.com/askgraph/askgraph/internal/cypher"
	"github.com/askgraph/askgraph/internal/llm"
)

func main() {
	_ = godotenv.Load()

	ctx := context.Background()
	cfg := config.NewDefaultLoader().MustLoad(ctx)
	if cfg.LLM.APIKey == "" {
		log.Fatal("Please set LLM_API_KEY")
	}

	fmt.Printf("=== Model Client Test (%s / %s) ===\n", cfg.LLM.Provider, cfg.LLM.Model)

	client, err := llm.New(llm.Config{
		Provider:    cfg.LLM.Provider,
		APIKey:      cfg.LLM.APIKey,
		Model:       cfg.LLM.Model,
		MaxTokens:   cfg.LLM.MaxTokens,
		Temperature: cfg.LLM.Temperature,
		Timeout:     cfg.LLM.Timeout,
	})
	if err != nil {
		log.Fatalf("Failed to create model client: %v", err)
	}
	fmt.Println("client created")

	fmt.Println("\n1. Testing completion...")
	testCompletion(ctx, client)

	fmt.Println("\n2. Testing chat session...")
	testSession(ctx, client)

	fmt.Println("\n3. Testing Cypher generation and extraction...")
	testCypherGeneration(ctx, client)

	fmt.Println("\n4. Testing embeddings...")
	testEmbeddings(ctx, cfg)

	fmt.Println("\nAll model client tests completed")
}

func testCompletion(ctx context.Context, client llm.Client) {
	resp, err := client.Complete(ctx, llm.CompletionRequest{
		Messages: []llm.Message{{Role: "user", Content: "Reply with the single word: pong"}},
	})
	if err != nil {
		fmt.Printf("  error: %v\n", err)
		return
	}
	fmt.Printf("  reply: %q (in=%d out=%d tokens)\n", resp.Text, resp.InputTokens, resp.OutputTokens)
}

func testSession(ctx context.Context, client llm.Client) {
	session := llm.NewChatSession(client, "You are terse. Answer in one word.")

	first, err := session.Send(ctx, "What color is the sky on a clear day?")
	if err != nil {
		fmt.Printf("  error: %v\n", err)
		return
	}
	fmt.Printf("  first: %q\n", first)

	second, err := session.Send(ctx, "And at sunset?")
	if err != nil {
		fmt.Printf("  error: %v\n", err)
		return
	}
	fmt.Printf("  second: %q (history length %d)\n", second, session.Len())
}

func testCypherGeneration(ctx context.Context, client llm.Client) {
	system := "You translate questions into Cypher. The graph has (:Person {name}) nodes " +
		"and (:Person)-[:KNOWS]->(:Person) relationships. Reply with a ```cypher fenced block."

	session := llm.NewChatSession(client, system)
	reply, err := session.Send(ctx, "How many people are there?")
	if err != nil {
		fmt.Printf("  error: %v\n", err)
		return
	}

	extracted := cypher.ExtractResponse(reply)
	if extracted == nil {
		fmt.Printf("  no query extracted from reply: %q\n", reply)
		return
	}
	if extracted.Refused {
		fmt.Println("  model refused to answer")
		return
	}
	fmt.Printf("  extracted Cypher: %s\n", extracted.Query)
}

func testEmbeddings(ctx context.Context, cfg *config.Config) {
	embedder, err := llm.NewEmbedder(llm.EmbedderConfig{
		Provider:   cfg.Embedding.Provider,
		APIKey:     cfg.Embedding.APIKey,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
	})
	if err != nil {
		fmt.Printf("  error: %v\n", err)
		return
	}

	queries := []string{
		"who acted in The Matrix",
		"which actors appeared in The Matrix",
		"how many movies were released in 1999",
	}

	embeddings := make([][]float32, len(queries))
	for i, q := range queries {
		embeddings[i], err = embedder.Embed(ctx, q)
		if err != nil {
			fmt.Printf("  error embedding %q: %v\n", q, err)
			return
		}
		fmt.Printf("  embedded %q (dim %d)\n", q, len(embeddings[i]))
	}

	fmt.Printf("  similarity(paraphrase) = %.3f\n", cosineSimilarity(embeddings[0], embeddings[1]))
	fmt.Printf("  similarity(unrelated)  = %.3f\n", cosineSimilarity(embeddings[0], embeddings[2]))
}

func cosineSimilarity(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dot, normA, normB float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
		normA += float64(a[i]) * float64(a[i])
		normB += float64(b[i]) * float64(b[i])
	}
	if normA == 0 || normB == 0 {
		return 0
	}
	return dot / (math.Sqrt(normA) * math.Sqrt(normB))
}
