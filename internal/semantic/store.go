// Package semantic persists question/query pairs with embeddings so the
// pipeline can retrieve similar past examples for few-shot prompting.
package semantic

import (
	"context"
	"time"
)

// Example is a question that previously produced a working Cypher query.
type Example struct {
	ID         string    `json:"id"`
	Question   string    `json:"question"`
	Query      string    `json:"query"`
	Similarity float64   `json:"similarity,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

// Store finds and records question/query examples by embedding similarity.
type Store interface {
	// FindSimilar returns up to limit examples whose stored embedding has
	// cosine similarity above the store's threshold, most similar first.
	FindSimilar(ctx context.Context, embedding []float32, limit int) ([]Example, error)

	// Save records a question/query pair, replacing any existing example
	// for the same question text.
	Save(ctx context.Context, question string, embedding []float32, query string) error

	Ping(ctx context.Context) error
	Close() error
}
