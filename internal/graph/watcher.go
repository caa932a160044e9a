package graph

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/askgraph/askgraph/internal/observability"
	"github.com/askgraph/askgraph/internal/ontology"
)

// WatcherConfig holds configuration for the schema watcher.
type WatcherConfig struct {
	Enabled  bool
	Interval time.Duration
}

// SchemaDrift describes the difference between the live graph schema and the
// loaded ontology after one watcher cycle.
type SchemaDrift struct {
	UndeclaredLabels    []string  `json:"undeclared_labels,omitempty"`
	MissingLabels       []string  `json:"missing_labels,omitempty"`
	UndeclaredRelations []string  `json:"undeclared_relations,omitempty"`
	MissingRelations    []string  `json:"missing_relations,omitempty"`
	CheckedAt           time.Time `json:"checked_at"`
}

// Clean reports whether the live schema and the ontology agree.
func (d *SchemaDrift) Clean() bool {
	return len(d.UndeclaredLabels) == 0 && len(d.MissingLabels) == 0 &&
		len(d.UndeclaredRelations) == 0 && len(d.MissingRelations) == 0
}

// Introspector is the slice of the graph client the watcher needs.
type Introspector interface {
	Ping(ctx context.Context) error
	Labels(ctx context.Context) ([]string, error)
	RelationshipTypes(ctx context.Context) ([]string, error)
}

// SchemaWatcher periodically compares the live graph schema against the
// loaded ontology. Drift does not stop the service; the generated Cypher is
// validated against the ontology regardless, so the watcher exists to tell
// operators the ontology has gone stale.
type SchemaWatcher struct {
	client   Introspector
	ont      *ontology.Ontology
	config   WatcherConfig
	logger   *observability.Logger
	metrics  *observability.MetricsCollector
	stopChan chan struct{}
	ticker   *time.Ticker
	running  bool
	mu       sync.Mutex

	lastDrift *SchemaDrift
}

// NewSchemaWatcher creates a schema watcher.
func NewSchemaWatcher(client Introspector, ont *ontology.Ontology, config WatcherConfig) *SchemaWatcher {
	if config.Interval == 0 {
		config.Interval = 5 * time.Minute
	}

	return &SchemaWatcher{
		client:   client,
		ont:      ont,
		config:   config,
		logger:   observability.NewLogger("schema-watcher"),
		metrics:  observability.GetGlobalMetrics(),
		stopChan: make(chan struct{}),
	}
}

// Start begins periodic schema comparison.
func (w *SchemaWatcher) Start(ctx context.Context) error {
	w.mu.Lock()
	defer w.mu.Unlock()

	if w.running {
		return fmt.Errorf("schema watcher already running")
	}

	if !w.config.Enabled {
		w.logger.Info(ctx, "Schema watcher is disabled", nil)
		return nil
	}

	if err := w.client.Ping(ctx); err != nil {
		return fmt.Errorf("failed to connect to graph store: %w", err)
	}

	go func() {
		if _, err := w.RunOnce(ctx); err != nil {
			w.logger.Error(ctx, "Initial schema check failed", err, nil)
		}
	}()

	w.ticker = time.NewTicker(w.config.Interval)
	w.running = true

	go w.watchLoop(ctx)

	w.logger.Info(ctx, "Schema watcher started", map[string]interface{}{
		"interval": w.config.Interval.String(),
	})
	return nil
}

// Stop stops the watcher.
func (w *SchemaWatcher) Stop() {
	w.mu.Lock()
	defer w.mu.Unlock()

	if !w.running {
		return
	}

	close(w.stopChan)
	if w.ticker != nil {
		w.ticker.Stop()
	}
	w.running = false
}

func (w *SchemaWatcher) watchLoop(ctx context.Context) {
	for {
		select {
		case <-w.stopChan:
			return
		case <-w.ticker.C:
			if _, err := w.RunOnce(ctx); err != nil {
				w.logger.Error(ctx, "Schema check failed", err, nil)
			}
		}
	}
}

// LastDrift returns the result of the most recent cycle, or nil before the
// first one completes.
func (w *SchemaWatcher) LastDrift() *SchemaDrift {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.lastDrift
}

// RunOnce performs a single comparison cycle.
func (w *SchemaWatcher) RunOnce(ctx context.Context) (*SchemaDrift, error) {
	w.metrics.Inc(observability.MetricSchemaRuns, nil)

	liveLabels, err := w.client.Labels(ctx)
	if err != nil {
		w.metrics.Inc(observability.MetricSchemaErrors, nil)
		return nil, fmt.Errorf("failed to fetch live labels: %w", err)
	}
	liveRelations, err := w.client.RelationshipTypes(ctx)
	if err != nil {
		w.metrics.Inc(observability.MetricSchemaErrors, nil)
		return nil, fmt.Errorf("failed to fetch live relationship types: %w", err)
	}

	w.metrics.Set(observability.MetricSchemaLabels, float64(len(liveLabels)), nil)
	w.metrics.Set(observability.MetricSchemaRelations, float64(len(liveRelations)), nil)

	drift := &SchemaDrift{CheckedAt: time.Now()}
	drift.UndeclaredLabels, drift.MissingLabels = diffSets(liveLabels, w.ont.Labels())
	drift.UndeclaredRelations, drift.MissingRelations = diffSets(liveRelations, w.ont.RelationLabels())

	driftItems := len(drift.UndeclaredLabels) + len(drift.MissingLabels) +
		len(drift.UndeclaredRelations) + len(drift.MissingRelations)
	w.metrics.Set(observability.MetricSchemaDrift, float64(driftItems), nil)

	if drift.Clean() {
		w.logger.Debug(ctx, "Schema check completed, ontology matches live graph", map[string]interface{}{
			"labels":    len(liveLabels),
			"relations": len(liveRelations),
		})
	} else {
		w.logger.Warn(ctx, "Schema drift detected between ontology and live graph", map[string]interface{}{
			"undeclared_labels":    drift.UndeclaredLabels,
			"missing_labels":       drift.MissingLabels,
			"undeclared_relations": drift.UndeclaredRelations,
			"missing_relations":    drift.MissingRelations,
		})
	}

	w.mu.Lock()
	w.lastDrift = drift
	w.mu.Unlock()

	return drift, nil
}

// diffSets returns live entries absent from declared, and declared entries
// absent from live, both sorted.
func diffSets(live, declared []string) (undeclared, missing []string) {
	declaredSet := make(map[string]bool, len(declared))
	for _, d := range declared {
		declaredSet[d] = true
	}
	liveSet := make(map[string]bool, len(live))
	for _, l := range live {
		liveSet[l] = true
	}

	for _, l := range live {
		if !declaredSet[l] {
			undeclared = append(undeclared, l)
		}
	}
	for _, d := range declared {
		if !liveSet[d] {
			missing = append(missing, d)
		}
	}

	sort.Strings(undeclared)
	sort.Strings(missing)
	return undeclared, missing
}
