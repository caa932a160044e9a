package observability

import (
	"strconv"
	"sync"
	"time"
)

// MetricType represents the type of metric
type MetricType string

const (
	MetricTypeCounter   MetricType = "counter"
	MetricTypeGauge     MetricType = "gauge"
	MetricTypeHistogram MetricType = "histogram"
)

// Metric represents a single metric
type Metric struct {
	Name      string                 `json:"name"`
	Type      MetricType             `json:"type"`
	Value     float64                `json:"value"`
	Labels    map[string]string      `json:"labels,omitempty"`
	Timestamp time.Time              `json:"timestamp"`
	Extra     map[string]interface{} `json:"extra,omitempty"`
}

// MetricsCollector collects and stores application metrics
type MetricsCollector struct {
	mu      sync.RWMutex
	metrics map[string]*Metric
}

// NewMetricsCollector creates a new metrics collector
func NewMetricsCollector() *MetricsCollector {
	return &MetricsCollector{
		metrics: make(map[string]*Metric),
	}
}

// metricKey generates a unique key for a metric
func metricKey(name string, labels map[string]string) string {
	key := name
	for k, v := range labels {
		key += "." + k + "=" + v
	}
	return key
}

// Inc increments a counter metric
func (mc *MetricsCollector) Inc(name string, labels map[string]string) {
	mc.Add(name, 1, labels)
}

// Add adds a value to a counter metric
func (mc *MetricsCollector) Add(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := metricKey(name, labels)
	if metric, exists := mc.metrics[key]; exists {
		metric.Value += value
		metric.Timestamp = time.Now()
		return
	}
	mc.metrics[key] = &Metric{
		Name:      name,
		Type:      MetricTypeCounter,
		Value:     value,
		Labels:    labels,
		Timestamp: time.Now(),
	}
}

// Set sets a gauge metric value
func (mc *MetricsCollector) Set(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := metricKey(name, labels)
	mc.metrics[key] = &Metric{
		Name:      name,
		Type:      MetricTypeGauge,
		Value:     value,
		Labels:    labels,
		Timestamp: time.Now(),
	}
}

// Observe records a histogram observation, tracking count, sum and average
func (mc *MetricsCollector) Observe(name string, value float64, labels map[string]string) {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	key := metricKey(name, labels)
	metric, exists := mc.metrics[key]
	if !exists {
		mc.metrics[key] = &Metric{
			Name:      name,
			Type:      MetricTypeHistogram,
			Value:     value,
			Labels:    labels,
			Timestamp: time.Now(),
			Extra: map[string]interface{}{
				"count": 1.0,
				"sum":   value,
			},
		}
		return
	}

	count := 1.0
	sum := value
	if c, ok := metric.Extra["count"].(float64); ok {
		count = c + 1
	}
	if s, ok := metric.Extra["sum"].(float64); ok {
		sum = s + value
	}
	metric.Extra["count"] = count
	metric.Extra["sum"] = sum
	metric.Value = sum / count
	metric.Timestamp = time.Now()
}

// Get retrieves a metric by name and labels
func (mc *MetricsCollector) Get(name string, labels map[string]string) (*Metric, bool) {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	metric, exists := mc.metrics[metricKey(name, labels)]
	return metric, exists
}

// GetAll retrieves a copy of all metrics
func (mc *MetricsCollector) GetAll() map[string]*Metric {
	mc.mu.RLock()
	defer mc.mu.RUnlock()

	result := make(map[string]*Metric, len(mc.metrics))
	for k, v := range mc.metrics {
		result[k] = v
	}
	return result
}

// Reset clears all metrics
func (mc *MetricsCollector) Reset() {
	mc.mu.Lock()
	defer mc.mu.Unlock()

	mc.metrics = make(map[string]*Metric)
}

// Standard metric names
const (
	// Ask pipeline metrics
	MetricAskTotal      = "askgraph_questions_total"
	MetricAskDuration   = "askgraph_question_duration_seconds"
	MetricAskSuccess    = "askgraph_questions_success_total"
	MetricAskFailure    = "askgraph_questions_failure_total"
	MetricAskNoAnswer   = "askgraph_questions_no_answer_total"
	MetricAskCacheHits  = "askgraph_cache_hits_total"
	MetricAskCacheMiss  = "askgraph_cache_misses_total"

	// Query generation metrics
	MetricGenAttempts        = "generation_attempts_total"
	MetricGenSuccess         = "generation_success_total"
	MetricGenFailure         = "generation_failure_total"
	MetricGenEmptyRetries    = "generation_empty_result_retries_total"
	MetricGenRepairPrompts   = "generation_repair_prompts_total"
	MetricGenRateLimitRetries = "generation_rate_limit_retries_total"
	MetricGenValidationFails = "generation_validation_failures_total"

	// Model provider metrics
	MetricLLMRequests = "llm_requests_total"
	MetricLLMDuration = "llm_request_duration_seconds"
	MetricLLMTokens   = "llm_tokens_total"
	MetricLLMErrors   = "llm_errors_total"
	MetricEmbedding   = "llm_embedding_requests_total"

	// Graph store metrics
	MetricGraphQueries  = "graph_queries_total"
	MetricGraphDuration = "graph_query_duration_seconds"
	MetricGraphErrors   = "graph_errors_total"
	MetricGraphRows     = "graph_rows_returned"
	MetricGraphEmpty    = "graph_empty_results_total"

	// Schema watcher metrics
	MetricSchemaRuns       = "schema_watcher_runs_total"
	MetricSchemaDrift      = "schema_watcher_drift_items"
	MetricSchemaErrors     = "schema_watcher_errors_total"
	MetricSchemaLabels     = "schema_watcher_labels_found"
	MetricSchemaRelations  = "schema_watcher_relations_found"

	// Database metrics
	MetricDBQueries  = "database_queries_total"
	MetricDBDuration = "database_query_duration_seconds"
	MetricDBErrors   = "database_errors_total"

	// Auth metrics
	MetricAuthAttempts      = "auth_attempts_total"
	MetricAuthSuccess       = "auth_success_total"
	MetricAuthFailure       = "auth_failure_total"
	MetricAuthTokensCreated = "auth_tokens_created_total"
	MetricAuthAPIKeyUse     = "auth_apikey_requests_total"

	// HTTP metrics
	MetricHTTPRequests     = "http_requests_total"
	MetricHTTPDuration     = "http_request_duration_seconds"
	MetricHTTPErrors       = "http_errors_total"
	MetricHTTPResponseSize = "http_response_size_bytes"
)

// Global metrics collector instance
var globalMetrics = NewMetricsCollector()

// GetGlobalMetrics returns the global metrics collector
func GetGlobalMetrics() *MetricsCollector {
	return globalMetrics
}

// RecordAskMetrics records metrics for one question through the pipeline
func RecordAskMetrics(duration time.Duration, success bool, cached bool, errorType string) {
	metrics := GetGlobalMetrics()

	metrics.Inc(MetricAskTotal, nil)

	if success {
		metrics.Inc(MetricAskSuccess, nil)
	} else {
		labels := map[string]string{}
		if errorType != "" {
			labels["error_type"] = errorType
		}
		metrics.Inc(MetricAskFailure, labels)
	}

	if cached {
		metrics.Inc(MetricAskCacheHits, nil)
	} else {
		metrics.Inc(MetricAskCacheMiss, nil)
	}

	metrics.Observe(MetricAskDuration, duration.Seconds(), nil)
}

// RecordGenerationMetrics records the outcome of one generation invocation
func RecordGenerationMetrics(attempts int, outcome string) {
	metrics := GetGlobalMetrics()

	metrics.Add(MetricGenAttempts, float64(attempts), nil)
	switch outcome {
	case "success":
		metrics.Inc(MetricGenSuccess, nil)
	case "no_answer":
		metrics.Inc(MetricAskNoAnswer, nil)
	default:
		metrics.Inc(MetricGenFailure, map[string]string{"outcome": outcome})
	}
}

// RecordLLMMetrics records metrics for model provider operations
func RecordLLMMetrics(provider, operation string, duration time.Duration, tokens int, err error) {
	metrics := GetGlobalMetrics()

	labels := map[string]string{"provider": provider, "operation": operation}

	metrics.Inc(MetricLLMRequests, labels)
	metrics.Observe(MetricLLMDuration, duration.Seconds(), labels)

	if tokens > 0 {
		metrics.Add(MetricLLMTokens, float64(tokens), labels)
	}

	if err != nil {
		metrics.Inc(MetricLLMErrors, map[string]string{
			"provider":  provider,
			"operation": operation,
		})
	}
}

// RecordGraphMetrics records metrics for graph store operations
func RecordGraphMetrics(operation string, duration time.Duration, rows int, err error) {
	metrics := GetGlobalMetrics()

	labels := map[string]string{"operation": operation}

	metrics.Inc(MetricGraphQueries, labels)
	metrics.Observe(MetricGraphDuration, duration.Seconds(), labels)

	if err != nil {
		metrics.Inc(MetricGraphErrors, labels)
		return
	}

	metrics.Observe(MetricGraphRows, float64(rows), nil)
	if rows == 0 {
		metrics.Inc(MetricGraphEmpty, nil)
	}
}

// RecordDBMetrics records metrics for database operations
func RecordDBMetrics(operation string, duration time.Duration, err error) {
	metrics := GetGlobalMetrics()

	labels := map[string]string{"operation": operation}

	metrics.Inc(MetricDBQueries, labels)
	metrics.Observe(MetricDBDuration, duration.Seconds(), labels)

	if err != nil {
		metrics.Inc(MetricDBErrors, labels)
	}
}

// RecordHTTPMetrics records metrics for HTTP requests
func RecordHTTPMetrics(method, path string, statusCode int, duration time.Duration, responseSize int) {
	metrics := GetGlobalMetrics()

	labels := map[string]string{
		"method": method,
		"path":   path,
		"status": strconv.Itoa(statusCode),
	}

	metrics.Inc(MetricHTTPRequests, labels)
	metrics.Observe(MetricHTTPDuration, duration.Seconds(), labels)

	if statusCode >= 400 {
		metrics.Inc(MetricHTTPErrors, labels)
	}

	if responseSize > 0 {
		metrics.Observe(MetricHTTPResponseSize, float64(responseSize), labels)
	}
}
