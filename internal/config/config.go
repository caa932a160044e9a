package config

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Graph store (FalkorDB) configuration
	Graph GraphConfig

	// Model provider configuration
	LLM LLMConfig

	// Embedding configuration for the example store
	Embedding EmbeddingConfig

	// PostgreSQL configuration (query example store)
	Database DatabaseConfig

	// Redis configuration (cache, conversations, rate limits)
	Redis RedisConfig

	// Authentication configuration
	Auth AuthConfig

	// Server configuration
	Server ServerConfig

	// Query generation configuration
	Generation GenerationConfig

	// Ask pipeline configuration
	Pipeline PipelineConfig

	// Schema watcher configuration
	Watcher WatcherConfig
}

// GraphConfig holds FalkorDB connection configuration
type GraphConfig struct {
	Addr         string
	Password     string
	GraphName    string
	QueryTimeout time.Duration
}

// LLMConfig holds model provider configuration
type LLMConfig struct {
	Provider    string // "anthropic", "openai", "gemini"
	APIKey      string
	Model       string
	MaxTokens   int
	Temperature float64
	Timeout     time.Duration
}

// EmbeddingConfig holds embedding provider configuration.
// Provider "none" disables vector search and the example store falls
// back to a deterministic local hasher.
type EmbeddingConfig struct {
	Provider   string
	APIKey     string
	Model      string
	Dimensions int
}

// DatabaseConfig holds PostgreSQL configuration
type DatabaseConfig struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	SSLMode  string
}

// RedisConfig holds Redis configuration
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// AuthConfig holds authentication and authorization configuration
type AuthConfig struct {
	JWTSecret      string
	JWTExpiry      time.Duration
	RateLimit      int
	AllowAnonymous bool
	DailyTokenCap  int64
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port    string
	GinMode string
}

// GenerationConfig holds query generation configuration
type GenerationConfig struct {
	MaxAttempts      int
	FreshTemplate    string
	HistoryTemplate  string
}

// PipelineConfig holds ask pipeline configuration
type PipelineConfig struct {
	OntologyPath        string
	CacheTTL            time.Duration
	ConversationTTL     time.Duration
	MaxExamples         int
	SimilarityThreshold float64
	FallbackAnswer      string
}

// WatcherConfig holds schema watcher configuration
type WatcherConfig struct {
	Enabled  bool
	Interval time.Duration
}

// Loader handles loading configuration from various sources
type Loader struct {
	provider SecretProvider
}

// NewLoader creates a new configuration loader with the given secret provider
func NewLoader(provider SecretProvider) *Loader {
	return &Loader{
		provider: provider,
	}
}

// NewDefaultLoader creates a loader with the default provider chain:
// 1. Kubernetes secrets (if available)
// 2. File-based secrets (if available)
// 3. Environment variables (fallback)
func NewDefaultLoader() *Loader {
	providers := []SecretProvider{
		NewK8sProvider("", ""),          // Auto-detect K8s environment
		NewFileProvider("/var/secrets"), // Common secret mount path
		NewEnvProvider(),                // Always available fallback
	}

	return &Loader{
		provider: NewChainProvider(providers...),
	}
}

// Load loads the complete configuration
func (l *Loader) Load(ctx context.Context) (*Config, error) {
	cfg := &Config{}

	cfg.Graph = GraphConfig{
		Addr:         l.getString(ctx, "FALKORDB_ADDR", "localhost:6379"),
		Password:     l.getString(ctx, "FALKORDB_PASSWORD", ""),
		GraphName:    l.getString(ctx, "FALKORDB_GRAPH", "knowledge"),
		QueryTimeout: l.getDuration(ctx, "FALKORDB_QUERY_TIMEOUT", 30*time.Second),
	}

	cfg.LLM = LLMConfig{
		Provider:    l.getString(ctx, "LLM_PROVIDER", "anthropic"),
		APIKey:      l.getString(ctx, "LLM_API_KEY", ""),
		Model:       l.getString(ctx, "LLM_MODEL", defaultModelFor(l.getString(ctx, "LLM_PROVIDER", "anthropic"))),
		MaxTokens:   l.getInt(ctx, "LLM_MAX_TOKENS", 2048),
		Temperature: l.getFloat(ctx, "LLM_TEMPERATURE", 0.0),
		Timeout:     l.getDuration(ctx, "LLM_TIMEOUT", 60*time.Second),
	}

	cfg.Embedding = EmbeddingConfig{
		Provider:   l.getString(ctx, "EMBEDDING_PROVIDER", "none"),
		APIKey:     l.getString(ctx, "EMBEDDING_API_KEY", cfg.LLM.APIKey),
		Model:      l.getString(ctx, "EMBEDDING_MODEL", "text-embedding-3-small"),
		Dimensions: l.getInt(ctx, "EMBEDDING_DIMENSIONS", 1536),
	}

	cfg.Database = DatabaseConfig{
		Host:     l.getString(ctx, "DB_HOST", "localhost"),
		Port:     l.getString(ctx, "DB_PORT", "5432"),
		Database: l.getString(ctx, "DB_NAME", "askgraph"),
		Username: l.getString(ctx, "DB_USER", "askgraph"),
		Password: l.getString(ctx, "DB_PASSWORD", ""),
		SSLMode:  l.getString(ctx, "DB_SSLMODE", "disable"),
	}

	cfg.Redis = RedisConfig{
		Addr:     l.getString(ctx, "REDIS_ADDR", "localhost:6380"),
		Password: l.getString(ctx, "REDIS_PASSWORD", ""),
		DB:       l.getInt(ctx, "REDIS_DB", 0),
	}

	cfg.Auth = AuthConfig{
		JWTSecret:      l.getString(ctx, "JWT_SECRET", ""),
		JWTExpiry:      l.getDuration(ctx, "JWT_EXPIRY", 24*time.Hour),
		RateLimit:      l.getInt(ctx, "RATE_LIMIT", 100),
		AllowAnonymous: l.getBool(ctx, "ALLOW_ANONYMOUS", false),
		DailyTokenCap:  int64(l.getInt(ctx, "DAILY_TOKEN_CAP", 500000)),
	}

	cfg.Server = ServerConfig{
		Port:    l.getString(ctx, "PORT", "8080"),
		GinMode: l.getString(ctx, "GIN_MODE", "debug"),
	}

	cfg.Generation = GenerationConfig{
		MaxAttempts:     l.getInt(ctx, "GENERATION_MAX_ATTEMPTS", 10),
		FreshTemplate:   l.getString(ctx, "GENERATION_TEMPLATE", ""),
		HistoryTemplate: l.getString(ctx, "GENERATION_TEMPLATE_WITH_HISTORY", ""),
	}

	cfg.Pipeline = PipelineConfig{
		OntologyPath:        l.getString(ctx, "ONTOLOGY_PATH", "ontology.json"),
		CacheTTL:            l.getDuration(ctx, "CACHE_TTL", 5*time.Minute),
		ConversationTTL:     l.getDuration(ctx, "CONVERSATION_TTL", 24*time.Hour),
		MaxExamples:         l.getInt(ctx, "MAX_EXAMPLES", 5),
		SimilarityThreshold: l.getFloat(ctx, "SIMILARITY_THRESHOLD", 0.8),
		FallbackAnswer:      l.getString(ctx, "FALLBACK_ANSWER", "I could not find an answer to that question in the knowledge graph."),
	}

	cfg.Watcher = WatcherConfig{
		Enabled:  l.getBool(ctx, "SCHEMA_WATCHER_ENABLED", true),
		Interval: l.getDuration(ctx, "SCHEMA_WATCHER_INTERVAL", 5*time.Minute),
	}

	return cfg, nil
}

// defaultModelFor returns the default model name for a provider
func defaultModelFor(provider string) string {
	switch strings.ToLower(provider) {
	case "openai":
		return "gpt-4o-mini"
	case "gemini":
		return "gemini-1.5-flash"
	default:
		return "claude-3-haiku-20240307"
	}
}

// Helper methods for retrieving and parsing configuration values

func (l *Loader) getString(ctx context.Context, key, defaultValue string) string {
	value, err := l.provider.GetSecret(ctx, key)
	if err != nil || value == "" {
		return defaultValue
	}
	return value
}

func (l *Loader) getBool(ctx context.Context, key string, defaultValue bool) bool {
	value, err := l.provider.GetSecret(ctx, key)
	if err != nil || value == "" {
		return defaultValue
	}

	b, err := strconv.ParseBool(value)
	if err != nil {
		return defaultValue
	}
	return b
}

func (l *Loader) getInt(ctx context.Context, key string, defaultValue int) int {
	value, err := l.provider.GetSecret(ctx, key)
	if err != nil || value == "" {
		return defaultValue
	}

	i, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return i
}

func (l *Loader) getFloat(ctx context.Context, key string, defaultValue float64) float64 {
	value, err := l.provider.GetSecret(ctx, key)
	if err != nil || value == "" {
		return defaultValue
	}

	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return f
}

func (l *Loader) getDuration(ctx context.Context, key string, defaultValue time.Duration) time.Duration {
	value, err := l.provider.GetSecret(ctx, key)
	if err != nil || value == "" {
		return defaultValue
	}

	d, err := time.ParseDuration(value)
	if err != nil {
		return defaultValue
	}
	return d
}

// MustLoad loads configuration and panics on error
// Useful for application startup
func (l *Loader) MustLoad(ctx context.Context) *Config {
	cfg, err := l.Load(ctx)
	if err != nil {
		panic(fmt.Sprintf("failed to load configuration: %v", err))
	}
	return cfg
}
