// Package errors provides enhanced error types with helpful context and suggestions
package errors

import (
	"fmt"
	"strings"
)

// ErrorCode represents a unique error identifier
type ErrorCode string

const (
	// Question answering errors
	ErrCodeQueryGeneration ErrorCode = "QUERY_GENERATION_FAILED"
	ErrCodeQueryValidation ErrorCode = "QUERY_VALIDATION_FAILED"
	ErrCodeQueryExecution  ErrorCode = "QUERY_EXECUTION_FAILED"
	ErrCodeAnswerStep      ErrorCode = "ANSWER_GENERATION_FAILED"
	ErrCodeNoAnswer        ErrorCode = "NO_ANSWER"

	// Model provider errors
	ErrCodeLLMUnavailable ErrorCode = "LLM_UNAVAILABLE"
	ErrCodeLLMRateLimit   ErrorCode = "LLM_RATE_LIMITED"
	ErrCodeEmbedding      ErrorCode = "EMBEDDING_GENERATION_FAILED"

	// Graph store errors
	ErrCodeGraphConnection ErrorCode = "GRAPH_CONNECTION_FAILED"
	ErrCodeGraphQuery      ErrorCode = "GRAPH_QUERY_FAILED"
	ErrCodeGraphNotFound   ErrorCode = "GRAPH_NOT_FOUND"

	// Ontology errors
	ErrCodeOntologyLoad    ErrorCode = "ONTOLOGY_LOAD_FAILED"
	ErrCodeOntologyInvalid ErrorCode = "ONTOLOGY_INVALID"

	// Authentication errors
	ErrCodeInvalidCredentials ErrorCode = "INVALID_CREDENTIALS"
	ErrCodeTokenCreation      ErrorCode = "TOKEN_CREATION_FAILED"
	ErrCodeNotAuthenticated   ErrorCode = "NOT_AUTHENTICATED"
	ErrCodeInsufficientPerms  ErrorCode = "INSUFFICIENT_PERMISSIONS"
	ErrCodeBudgetExceeded     ErrorCode = "TOKEN_BUDGET_EXCEEDED"

	// Input validation errors
	ErrCodeInvalidInput    ErrorCode = "INVALID_INPUT"
	ErrCodeMissingRequired ErrorCode = "MISSING_REQUIRED_FIELD"

	// Storage errors
	ErrCodeDatabaseConnection ErrorCode = "DATABASE_CONNECTION_FAILED"
	ErrCodeDatabaseQuery      ErrorCode = "DATABASE_QUERY_FAILED"
	ErrCodeCacheRead          ErrorCode = "CACHE_READ_FAILED"
	ErrCodeCacheWrite         ErrorCode = "CACHE_WRITE_FAILED"
	ErrCodeConversation       ErrorCode = "CONVERSATION_STORE_FAILED"
)

// EnhancedError represents an error with additional context and helpful information
type EnhancedError struct {
	Code          ErrorCode              `json:"code"`
	Message       string                 `json:"message"`
	Details       string                 `json:"details,omitempty"`
	Suggestion    string                 `json:"suggestion,omitempty"`
	Documentation string                 `json:"documentation,omitempty"`
	Metadata      map[string]interface{} `json:"metadata,omitempty"`
	Cause         error                  `json:"-"`
}

// Error implements the error interface
func (e *EnhancedError) Error() string {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("[%s] %s", e.Code, e.Message))
	if e.Details != "" {
		sb.WriteString(fmt.Sprintf(": %s", e.Details))
	}
	if e.Cause != nil {
		sb.WriteString(fmt.Sprintf(" (cause: %v)", e.Cause))
	}
	return sb.String()
}

// Unwrap returns the underlying error for error chain unwrapping
func (e *EnhancedError) Unwrap() error {
	return e.Cause
}

// UserMessage returns a user-friendly error message with suggestions
func (e *EnhancedError) UserMessage() string {
	var sb strings.Builder
	sb.WriteString(e.Message)

	if e.Details != "" {
		sb.WriteString(fmt.Sprintf("\n\nDetails: %s", e.Details))
	}

	if e.Suggestion != "" {
		sb.WriteString(fmt.Sprintf("\n\nSuggestion: %s", e.Suggestion))
	}

	if e.Documentation != "" {
		sb.WriteString(fmt.Sprintf("\n\nLearn more: %s", e.Documentation))
	}

	return sb.String()
}

// New creates a new EnhancedError
func New(code ErrorCode, message string) *EnhancedError {
	return &EnhancedError{
		Code:     code,
		Message:  message,
		Metadata: make(map[string]interface{}),
	}
}

// Wrap wraps an existing error with enhanced context
func Wrap(err error, code ErrorCode, message string) *EnhancedError {
	return &EnhancedError{
		Code:     code,
		Message:  message,
		Cause:    err,
		Metadata: make(map[string]interface{}),
	}
}

// WithDetails adds detailed information about the error
func (e *EnhancedError) WithDetails(details string) *EnhancedError {
	e.Details = details
	return e
}

// WithSuggestion adds a suggestion on how to fix the error
func (e *EnhancedError) WithSuggestion(suggestion string) *EnhancedError {
	e.Suggestion = suggestion
	return e
}

// WithMetadata adds additional metadata to the error
func (e *EnhancedError) WithMetadata(key string, value interface{}) *EnhancedError {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// Common error constructors with pre-configured messages

// NewQueryGenerationError creates an error for Cypher generation failures
func NewQueryGenerationError(err error) *EnhancedError {
	return Wrap(err, ErrCodeQueryGeneration, "Failed to generate Cypher query").
		WithDetails("The model was unable to produce a working Cypher query for your question within the retry budget").
		WithSuggestion("Try rephrasing the question using the entity and relationship names from the graph ontology, or ask something narrower.")
}

// NewQueryValidationError creates an error for ontology validation failures
func NewQueryValidationError(violations []string) *EnhancedError {
	return New(ErrCodeQueryValidation, "Generated query does not conform to the ontology").
		WithDetails(strings.Join(violations, "\n")).
		WithSuggestion("The query references labels or relationships that do not exist in the graph schema.")
}

// NewQueryExecutionError creates an error for graph execution failures
func NewQueryExecutionError(err error, query string) *EnhancedError {
	return Wrap(err, ErrCodeQueryExecution, "Graph query execution failed").
		WithDetails(fmt.Sprintf("FalkorDB rejected or failed to run the query: %s", query)).
		WithMetadata("query", query)
}

// NewAnswerStepError creates an error for answer synthesis failures
func NewAnswerStepError(err error) *EnhancedError {
	return Wrap(err, ErrCodeAnswerStep, "Failed to generate an answer from the query results").
		WithDetails("The query executed successfully but the model could not summarize the results").
		WithMetadata("retryable", true)
}

// NewLLMUnavailableError creates an error for model provider failures
func NewLLMUnavailableError(err error, provider string) *EnhancedError {
	return Wrap(err, ErrCodeLLMUnavailable, "Model provider request failed").
		WithDetails(fmt.Sprintf("The %s provider did not return a usable response", provider)).
		WithSuggestion("This is typically a temporary issue. Please try your question again in a moment.").
		WithMetadata("provider", provider).
		WithMetadata("retryable", true)
}

// NewEmbeddingError creates an error for embedding generation failures
func NewEmbeddingError(err error) *EnhancedError {
	return Wrap(err, ErrCodeEmbedding, "Failed to generate question embedding").
		WithDetails("The embedding service was unable to process the question for similarity search").
		WithMetadata("retryable", true)
}

// NewGraphConnectionError creates an error for graph store connection failures
func NewGraphConnectionError(err error) *EnhancedError {
	return Wrap(err, ErrCodeGraphConnection, "Graph store connection failed").
		WithDetails("Unable to reach FalkorDB").
		WithSuggestion("The graph store may be down or unreachable. Please try again in a moment.").
		WithMetadata("retryable", true)
}

// NewGraphNotFoundError creates an error for a missing graph
func NewGraphNotFoundError(graphName string) *EnhancedError {
	return New(ErrCodeGraphNotFound, "Graph not found").
		WithDetails(fmt.Sprintf("No graph named '%s' exists on the store", graphName)).
		WithSuggestion("Check the configured graph name, or list available graphs with GRAPH.LIST.").
		WithMetadata("graph_name", graphName)
}

// NewOntologyLoadError creates an error for ontology loading failures
func NewOntologyLoadError(err error, path string) *EnhancedError {
	return Wrap(err, ErrCodeOntologyLoad, "Failed to load ontology").
		WithDetails(fmt.Sprintf("Could not read or parse the ontology file: %s", path)).
		WithSuggestion("Verify the file exists and contains valid ontology JSON (entities and relations).")
}

// NewInvalidCredentialsError creates an error for authentication failures
func NewInvalidCredentialsError() *EnhancedError {
	return New(ErrCodeInvalidCredentials, "Invalid username or password").
		WithDetails("Authentication failed with the provided credentials").
		WithSuggestion("Please check your username and password and try again. If you've forgotten your password, contact your administrator.")
}

// NewTokenCreationError creates an error for token creation failures
func NewTokenCreationError(err error) *EnhancedError {
	return Wrap(err, ErrCodeTokenCreation, "Failed to create authentication token").
		WithDetails("The system was unable to generate an authentication token").
		WithSuggestion("Please try logging in again. If the problem persists, contact support.").
		WithMetadata("retryable", true)
}

// NewNotAuthenticatedError creates an error for unauthenticated requests
func NewNotAuthenticatedError() *EnhancedError {
	return New(ErrCodeNotAuthenticated, "Authentication required").
		WithDetails("This endpoint requires authentication").
		WithSuggestion("Please log in using the /api/v1/auth/login endpoint, or include a valid API key in the 'X-API-Key' header.")
}

// NewBudgetExceededError creates an error for exhausted token budgets
func NewBudgetExceededError(used, limit int64) *EnhancedError {
	return New(ErrCodeBudgetExceeded, "Daily token budget exceeded").
		WithDetails(fmt.Sprintf("You have used %d of %d allowed model tokens today", used, limit)).
		WithSuggestion("The budget resets at midnight UTC. Contact your administrator if you need a higher limit.").
		WithMetadata("tokens_used", used).
		WithMetadata("tokens_limit", limit)
}

// NewInvalidInputError creates an error for invalid input
func NewInvalidInputError(field string, reason string) *EnhancedError {
	return New(ErrCodeInvalidInput, "Invalid input").
		WithDetails(fmt.Sprintf("Field '%s' is invalid: %s", field, reason)).
		WithSuggestion("Please check the API documentation for the expected format and try again.")
}

// NewDatabaseConnectionError creates an error for database connection failures
func NewDatabaseConnectionError(err error) *EnhancedError {
	return Wrap(err, ErrCodeDatabaseConnection, "Database connection failed").
		WithDetails("Unable to connect to the database").
		WithSuggestion("This is an internal server error. The service may be experiencing issues. Please try again in a moment.").
		WithMetadata("retryable", true)
}

// NewDatabaseQueryError creates an error for database query failures
func NewDatabaseQueryError(err error, operation string) *EnhancedError {
	return Wrap(err, ErrCodeDatabaseQuery, "Database query failed").
		WithDetails(fmt.Sprintf("Failed to execute database operation: %s", operation)).
		WithSuggestion("This is an internal server error. If the problem persists, contact support.").
		WithMetadata("retryable", true)
}

// NewConversationError creates an error for conversation store failures
func NewConversationError(err error, op string) *EnhancedError {
	return Wrap(err, ErrCodeConversation, "Conversation store operation failed").
		WithDetails(fmt.Sprintf("Failed to %s conversation state", op)).
		WithMetadata("retryable", true)
}
