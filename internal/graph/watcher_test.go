package graph

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/askgraph/askgraph/internal/ontology"
)

type stubIntrospector struct {
	labels    []string
	relations []string
	pingErr   error
	labelsErr error
}

func (s *stubIntrospector) Ping(ctx context.Context) error {
	return s.pingErr
}

func (s *stubIntrospector) Labels(ctx context.Context) ([]string, error) {
	return s.labels, s.labelsErr
}

func (s *stubIntrospector) RelationshipTypes(ctx context.Context) ([]string, error) {
	return s.relations, nil
}

func watcherOntology() *ontology.Ontology {
	return &ontology.Ontology{
		Entities: []ontology.Entity{
			{Label: "Person"},
			{Label: "Movie"},
			{Label: "Genre"},
		},
		Relations: []ontology.Relation{
			{Label: "ACTED_IN", Source: "Person", Target: "Movie"},
		},
	}
}

// TestRunOnceDetectsDrift tests drift computation against a stub graph
func TestRunOnceDetectsDrift(t *testing.T) {
	stub := &stubIntrospector{
		labels:    []string{"Person", "Movie", "Studio"},
		relations: []string{"ACTED_IN", "PRODUCED"},
	}
	watcher := NewSchemaWatcher(stub, watcherOntology(), WatcherConfig{Enabled: true})

	drift, err := watcher.RunOnce(context.Background())
	require.NoError(t, err)

	assert.Equal(t, []string{"Studio"}, drift.UndeclaredLabels)
	assert.Equal(t, []string{"Genre"}, drift.MissingLabels)
	assert.Equal(t, []string{"PRODUCED"}, drift.UndeclaredRelations)
	assert.Empty(t, drift.MissingRelations)
	assert.False(t, drift.Clean())

	assert.Equal(t, drift, watcher.LastDrift())
}

// TestRunOnceCleanSchema tests a graph that matches the ontology
func TestRunOnceCleanSchema(t *testing.T) {
	stub := &stubIntrospector{
		labels:    []string{"Genre", "Movie", "Person"},
		relations: []string{"ACTED_IN"},
	}
	watcher := NewSchemaWatcher(stub, watcherOntology(), WatcherConfig{Enabled: true})

	drift, err := watcher.RunOnce(context.Background())
	require.NoError(t, err)
	assert.True(t, drift.Clean())
}

// TestRunOnceIntrospectionFailure tests error propagation
func TestRunOnceIntrospectionFailure(t *testing.T) {
	stub := &stubIntrospector{labelsErr: assert.AnError}
	watcher := NewSchemaWatcher(stub, watcherOntology(), WatcherConfig{Enabled: true})

	_, err := watcher.RunOnce(context.Background())
	require.Error(t, err)
	assert.Contains(t, err.Error(), "live labels")
	assert.Nil(t, watcher.LastDrift())
}

// TestWatcherLifecycle tests Start and Stop
func TestWatcherLifecycle(t *testing.T) {
	t.Run("disabled watcher does not start", func(t *testing.T) {
		stub := &stubIntrospector{}
		watcher := NewSchemaWatcher(stub, watcherOntology(), WatcherConfig{Enabled: false})

		require.NoError(t, watcher.Start(context.Background()))
		watcher.Stop() // no-op, must not panic
	})

	t.Run("start fails when graph is unreachable", func(t *testing.T) {
		stub := &stubIntrospector{pingErr: assert.AnError}
		watcher := NewSchemaWatcher(stub, watcherOntology(), WatcherConfig{Enabled: true})

		err := watcher.Start(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "failed to connect")
	})

	t.Run("double start is rejected", func(t *testing.T) {
		stub := &stubIntrospector{
			labels:    []string{"Person", "Movie", "Genre"},
			relations: []string{"ACTED_IN"},
		}
		watcher := NewSchemaWatcher(stub, watcherOntology(), WatcherConfig{
			Enabled:  true,
			Interval: time.Hour,
		})

		require.NoError(t, watcher.Start(context.Background()))
		defer watcher.Stop()

		err := watcher.Start(context.Background())
		require.Error(t, err)
		assert.Contains(t, err.Error(), "already running")
	})
}

// TestDiffSets tests the set comparison helper
func TestDiffSets(t *testing.T) {
	undeclared, missing := diffSets(
		[]string{"c", "a", "b"},
		[]string{"b", "d"},
	)
	assert.Equal(t, []string{"a", "c"}, undeclared)
	assert.Equal(t, []string{"d"}, missing)

	undeclared, missing = diffSets(nil, nil)
	assert.Empty(t, undeclared)
	assert.Empty(t, missing)
}
