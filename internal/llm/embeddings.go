package llm

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
)

// Embedder turns text into a fixed-size vector for similarity search.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
	Dimensions() int
}

// EmbedderConfig holds embedding provider configuration.
type EmbedderConfig struct {
	Provider   string // "openai", "gemini", or "none"
	APIKey     string
	Model      string
	Dimensions int
}

// NewEmbedder selects an embedder from configuration. Anthropic has no
// embeddings endpoint, so provider "none" (the default when the chat provider
// is anthropic) falls back to a deterministic local hasher: worse recall than
// a real model, but the example store keeps functioning.
func NewEmbedder(cfg EmbedderConfig) (Embedder, error) {
	dims := cfg.Dimensions
	if dims == 0 {
		dims = 1536
	}

	switch strings.ToLower(strings.TrimSpace(cfg.Provider)) {
	case "", "none", "local":
		return NewHashEmbedder(dims), nil
	case "openai":
		client, err := NewOpenAIClient(Config{APIKey: cfg.APIKey})
		if err != nil {
			return nil, err
		}
		return &providerEmbedder{
			embed: func(ctx context.Context, text string) ([]float32, error) {
				return client.Embed(ctx, cfg.Model, text)
			},
			dims: dims,
		}, nil
	case "gemini":
		client, err := NewGeminiClient(Config{APIKey: cfg.APIKey})
		if err != nil {
			return nil, err
		}
		return &providerEmbedder{
			embed: func(ctx context.Context, text string) ([]float32, error) {
				return client.Embed(ctx, cfg.Model, text)
			},
			dims: dims,
		}, nil
	default:
		return nil, fmt.Errorf("unknown embedding provider: %q", cfg.Provider)
	}
}

type providerEmbedder struct {
	embed func(ctx context.Context, text string) ([]float32, error)
	dims  int
}

func (p *providerEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return p.embed(ctx, text)
}

func (p *providerEmbedder) Dimensions() int {
	return p.dims
}

// HashEmbedder produces deterministic vectors by hashing word tokens into
// buckets. Same text, same vector; similar wording, nearby vectors.
type HashEmbedder struct {
	dims int
}

// NewHashEmbedder creates a hash embedder with the given dimensionality.
func NewHashEmbedder(dims int) *HashEmbedder {
	return &HashEmbedder{dims: dims}
}

// Embed hashes each lowercased token into a bucket and normalizes the
// resulting count vector to unit length.
func (h *HashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, h.dims)

	for _, token := range strings.Fields(strings.ToLower(text)) {
		token = strings.Trim(token, ".,;:!?\"'()")
		if token == "" {
			continue
		}
		hasher := fnv.New32a()
		hasher.Write([]byte(token))
		vec[int(hasher.Sum32())%h.dims]++
	}

	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	if magnitude > 0 {
		scale := float32(1.0 / math.Sqrt(magnitude))
		for i := range vec {
			vec[i] *= scale
		}
	}

	return vec, nil
}

// Dimensions returns the vector size.
func (h *HashEmbedder) Dimensions() int {
	return h.dims
}
