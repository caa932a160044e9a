package llm

import (
	"context"
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHashEmbedder_Deterministic(t *testing.T) {
	embedder := NewHashEmbedder(256)

	a, err := embedder.Embed(context.Background(), "How many people are there?")
	require.NoError(t, err)
	b, err := embedder.Embed(context.Background(), "How many people are there?")
	require.NoError(t, err)

	assert.Equal(t, a, b)
	assert.Len(t, a, 256)
}

func TestHashEmbedder_UnitLength(t *testing.T) {
	embedder := NewHashEmbedder(128)

	vec, err := embedder.Embed(context.Background(), "actors who appeared in a movie")
	require.NoError(t, err)

	var magnitude float64
	for _, v := range vec {
		magnitude += float64(v) * float64(v)
	}
	assert.InDelta(t, 1.0, math.Sqrt(magnitude), 0.001)
}

func TestHashEmbedder_EmptyText(t *testing.T) {
	embedder := NewHashEmbedder(64)

	vec, err := embedder.Embed(context.Background(), "")
	require.NoError(t, err)
	for _, v := range vec {
		assert.Zero(t, v)
	}
}

func TestNewEmbedder_DefaultsToHasher(t *testing.T) {
	embedder, err := NewEmbedder(EmbedderConfig{Provider: "none", Dimensions: 32})
	require.NoError(t, err)
	assert.Equal(t, 32, embedder.Dimensions())
	_, ok := embedder.(*HashEmbedder)
	assert.True(t, ok)
}

func TestNewEmbedder_UnknownProvider(t *testing.T) {
	_, err := NewEmbedder(EmbedderConfig{Provider: "watson"})
	assert.Error(t, err)
}
