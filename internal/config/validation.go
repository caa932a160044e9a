package config

import (
	"fmt"
	"strconv"
	"strings"
)

// ValidationError represents a configuration validation error
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error: %s - %s", e.Field, e.Message)
}

// ValidationErrors is a collection of validation errors
type ValidationErrors []ValidationError

func (e ValidationErrors) Error() string {
	if len(e) == 0 {
		return "no validation errors"
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%d validation error(s):\n", len(e)))
	for i, err := range e {
		sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, err.Error()))
	}
	return sb.String()
}

// HasErrors returns true if there are any validation errors
func (e ValidationErrors) HasErrors() bool {
	return len(e) > 0
}

// Validate performs comprehensive validation on the configuration
func (c *Config) Validate() error {
	var errors ValidationErrors

	errors = append(errors, c.validateGraph()...)
	errors = append(errors, c.validateLLM()...)
	errors = append(errors, c.validateEmbedding()...)
	errors = append(errors, c.validateDatabase()...)
	errors = append(errors, c.validateRedis()...)
	errors = append(errors, c.validateAuth()...)
	errors = append(errors, c.validateServer()...)
	errors = append(errors, c.validateGeneration()...)
	errors = append(errors, c.validatePipeline()...)

	if errors.HasErrors() {
		return errors
	}

	return nil
}

func (c *Config) validateGraph() []ValidationError {
	var errors []ValidationError

	if c.Graph.Addr == "" {
		errors = append(errors, ValidationError{
			Field:   "Graph.Addr",
			Message: "FalkorDB address is required",
		})
	}

	if c.Graph.GraphName == "" {
		errors = append(errors, ValidationError{
			Field:   "Graph.GraphName",
			Message: "graph name is required",
		})
	}

	if c.Graph.QueryTimeout <= 0 {
		errors = append(errors, ValidationError{
			Field:   "Graph.QueryTimeout",
			Message: "query timeout must be positive",
		})
	}

	return errors
}

func (c *Config) validateLLM() []ValidationError {
	var errors []ValidationError

	switch strings.ToLower(c.LLM.Provider) {
	case "anthropic", "openai", "gemini":
	default:
		errors = append(errors, ValidationError{
			Field:   "LLM.Provider",
			Message: fmt.Sprintf("unknown provider %q (must be 'anthropic', 'openai', or 'gemini')", c.LLM.Provider),
		})
	}

	if c.LLM.APIKey == "" {
		errors = append(errors, ValidationError{
			Field:   "LLM.APIKey",
			Message: "model provider API key is required",
		})
	}

	if c.LLM.Model == "" {
		errors = append(errors, ValidationError{
			Field:   "LLM.Model",
			Message: "model name is required",
		})
	}

	if c.LLM.MaxTokens <= 0 {
		errors = append(errors, ValidationError{
			Field:   "LLM.MaxTokens",
			Message: "max tokens must be positive",
		})
	}

	if c.LLM.Temperature < 0 || c.LLM.Temperature > 2 {
		errors = append(errors, ValidationError{
			Field:   "LLM.Temperature",
			Message: "temperature must be between 0 and 2",
		})
	}

	return errors
}

func (c *Config) validateEmbedding() []ValidationError {
	var errors []ValidationError

	switch strings.ToLower(c.Embedding.Provider) {
	case "none", "openai", "gemini":
	default:
		errors = append(errors, ValidationError{
			Field:   "Embedding.Provider",
			Message: fmt.Sprintf("unknown provider %q (must be 'none', 'openai', or 'gemini')", c.Embedding.Provider),
		})
	}

	if c.Embedding.Dimensions <= 0 {
		errors = append(errors, ValidationError{
			Field:   "Embedding.Dimensions",
			Message: "embedding dimensions must be positive",
		})
	}

	return errors
}

func (c *Config) validateDatabase() []ValidationError {
	var errors []ValidationError

	if c.Database.Host == "" {
		errors = append(errors, ValidationError{
			Field:   "Database.Host",
			Message: "database host is required",
		})
	}

	if c.Database.Port == "" {
		errors = append(errors, ValidationError{
			Field:   "Database.Port",
			Message: "database port is required",
		})
	} else if _, err := strconv.Atoi(c.Database.Port); err != nil {
		errors = append(errors, ValidationError{
			Field:   "Database.Port",
			Message: "database port must be numeric",
		})
	}

	if c.Database.Database == "" {
		errors = append(errors, ValidationError{
			Field:   "Database.Database",
			Message: "database name is required",
		})
	}

	if c.Database.Username == "" {
		errors = append(errors, ValidationError{
			Field:   "Database.Username",
			Message: "database username is required",
		})
	}

	switch c.Database.SSLMode {
	case "disable", "allow", "prefer", "require", "verify-ca", "verify-full":
	default:
		errors = append(errors, ValidationError{
			Field:   "Database.SSLMode",
			Message: fmt.Sprintf("invalid SSL mode %q", c.Database.SSLMode),
		})
	}

	return errors
}

func (c *Config) validateRedis() []ValidationError {
	var errors []ValidationError

	if c.Redis.Addr == "" {
		errors = append(errors, ValidationError{
			Field:   "Redis.Addr",
			Message: "redis address is required",
		})
	}

	if c.Redis.DB < 0 || c.Redis.DB > 15 {
		errors = append(errors, ValidationError{
			Field:   "Redis.DB",
			Message: "redis database must be between 0 and 15",
		})
	}

	return errors
}

func (c *Config) validateAuth() []ValidationError {
	var errors []ValidationError

	if c.Auth.JWTSecret == "" && !c.Auth.AllowAnonymous {
		errors = append(errors, ValidationError{
			Field:   "Auth.JWTSecret",
			Message: "JWT secret is required when anonymous access is disabled",
		})
	}

	if c.Auth.JWTExpiry <= 0 {
		errors = append(errors, ValidationError{
			Field:   "Auth.JWTExpiry",
			Message: "JWT expiry must be positive",
		})
	}

	if c.Auth.RateLimit < 0 {
		errors = append(errors, ValidationError{
			Field:   "Auth.RateLimit",
			Message: "rate limit must be non-negative",
		})
	}

	if c.Auth.DailyTokenCap < 0 {
		errors = append(errors, ValidationError{
			Field:   "Auth.DailyTokenCap",
			Message: "daily token cap must be non-negative",
		})
	}

	return errors
}

func (c *Config) validateServer() []ValidationError {
	var errors []ValidationError

	if c.Server.Port == "" {
		errors = append(errors, ValidationError{
			Field:   "Server.Port",
			Message: "server port is required",
		})
	} else if port, err := strconv.Atoi(c.Server.Port); err != nil || port < 1 || port > 65535 {
		errors = append(errors, ValidationError{
			Field:   "Server.Port",
			Message: "server port must be a number between 1 and 65535",
		})
	}

	switch c.Server.GinMode {
	case "debug", "release", "test":
	default:
		errors = append(errors, ValidationError{
			Field:   "Server.GinMode",
			Message: fmt.Sprintf("invalid gin mode %q (must be 'debug', 'release', or 'test')", c.Server.GinMode),
		})
	}

	return errors
}

func (c *Config) validateGeneration() []ValidationError {
	var errors []ValidationError

	if c.Generation.MaxAttempts < 1 {
		errors = append(errors, ValidationError{
			Field:   "Generation.MaxAttempts",
			Message: "max attempts must be at least 1",
		})
	}

	return errors
}

func (c *Config) validatePipeline() []ValidationError {
	var errors []ValidationError

	if c.Pipeline.OntologyPath == "" {
		errors = append(errors, ValidationError{
			Field:   "Pipeline.OntologyPath",
			Message: "ontology path is required",
		})
	}

	if c.Pipeline.SimilarityThreshold < 0 || c.Pipeline.SimilarityThreshold > 1 {
		errors = append(errors, ValidationError{
			Field:   "Pipeline.SimilarityThreshold",
			Message: "similarity threshold must be between 0 and 1",
		})
	}

	if c.Pipeline.MaxExamples < 0 {
		errors = append(errors, ValidationError{
			Field:   "Pipeline.MaxExamples",
			Message: "max examples must be non-negative",
		})
	}

	if c.Pipeline.CacheTTL < 0 {
		errors = append(errors, ValidationError{
			Field:   "Pipeline.CacheTTL",
			Message: "cache TTL must be non-negative",
		})
	}

	return errors
}
