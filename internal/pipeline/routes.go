package pipeline

import (
	"net/http"

	"github.com/gin-gonic/gin"

	apperrors "github.com/askgraph/askgraph/internal/errors"
	"github.com/askgraph/askgraph/internal/observability"
)

// AuthMiddleware guards the protected API routes.
type AuthMiddleware interface {
	Middleware() gin.HandlerFunc
}

// SetupRoutes builds the HTTP router. authMiddleware may be nil for
// unauthenticated deployments.
func (s *Service) SetupRoutes(authMiddleware AuthMiddleware) *gin.Engine {
	r := gin.New()

	r.Use(observability.RecoveryMiddleware(s.logger))
	r.Use(observability.RequestLoggingMiddleware(s.logger))
	r.Use(observability.MetricsMiddleware())
	r.Use(observability.CORSWithLogging(s.logger))
	r.Use(observability.MetricsEndpointMiddleware(observability.GetGlobalMetrics()))

	if s.healthChecker != nil {
		r.Use(observability.HealthCheckMiddleware(s.healthChecker))
	} else {
		r.GET("/health", func(c *gin.Context) {
			c.JSON(http.StatusOK, gin.H{"status": "healthy", "service": "askgraph"})
		})
	}

	api := r.Group("/api/v1")
	if authMiddleware != nil {
		api.Use(authMiddleware.Middleware())
	}
	{
		api.POST("/ask", s.handleAsk)
		api.GET("/ontology", s.handleGetOntology)
		api.GET("/schema/live", s.handleGetLiveSchema)
		api.GET("/conversations/:id", s.handleGetConversation)
		api.DELETE("/conversations/:id", s.handleDeleteConversation)
	}

	return r
}

func (s *Service) handleAsk(c *gin.Context) {
	var req AskRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		enhancedErr := apperrors.NewInvalidInputError("request body", err.Error())
		c.JSON(http.StatusBadRequest, formatErrorResponse(enhancedErr))
		return
	}

	ctx := c.Request.Context()
	if userID, ok := c.Get("user_id"); ok {
		if id, isString := userID.(string); isString {
			req.UserID = id
			ctx = observability.WithUserID(ctx, id)
		}
	}
	if req.ConversationID != "" {
		ctx = observability.WithConversationID(ctx, req.ConversationID)
	}

	response, err := s.Ask(ctx, &req)
	if err != nil {
		c.JSON(getErrorStatusCode(err), formatErrorResponse(err))
		return
	}

	c.JSON(http.StatusOK, response)
}

func (s *Service) handleGetOntology(c *gin.Context) {
	c.JSON(http.StatusOK, s.ont)
}

// handleGetLiveSchema introspects the graph store for the schema it actually
// holds, as opposed to the declared ontology.
func (s *Service) handleGetLiveSchema(c *gin.Context) {
	ctx := c.Request.Context()

	labels, err := s.store.Labels(ctx)
	if err != nil {
		enhancedErr := apperrors.NewGraphConnectionError(err)
		c.JSON(http.StatusServiceUnavailable, formatErrorResponse(enhancedErr))
		return
	}

	relations, err := s.store.RelationshipTypes(ctx)
	if err != nil {
		enhancedErr := apperrors.NewGraphConnectionError(err)
		c.JSON(http.StatusServiceUnavailable, formatErrorResponse(enhancedErr))
		return
	}

	properties, err := s.store.PropertyKeys(ctx)
	if err != nil {
		enhancedErr := apperrors.NewGraphConnectionError(err)
		c.JSON(http.StatusServiceUnavailable, formatErrorResponse(enhancedErr))
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"labels":        labels,
		"relationships": relations,
		"properties":    properties,
	})
}

func (s *Service) handleGetConversation(c *gin.Context) {
	if s.conversations == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversations are not enabled"})
		return
	}

	conv, err := s.conversations.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		enhancedErr := apperrors.NewConversationError(err, "load")
		c.JSON(http.StatusNotFound, formatErrorResponse(enhancedErr))
		return
	}

	c.JSON(http.StatusOK, conv)
}

func (s *Service) handleDeleteConversation(c *gin.Context) {
	if s.conversations == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "conversations are not enabled"})
		return
	}

	if err := s.conversations.Delete(c.Request.Context(), c.Param("id")); err != nil {
		enhancedErr := apperrors.NewConversationError(err, "delete")
		c.JSON(http.StatusInternalServerError, formatErrorResponse(enhancedErr))
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "conversation deleted"})
}

// formatErrorResponse formats an error into a user-friendly response
func formatErrorResponse(err error) gin.H {
	if enhancedErr, ok := err.(*apperrors.EnhancedError); ok {
		errBody := gin.H{
			"code":    enhancedErr.Code,
			"message": enhancedErr.Message,
		}
		if enhancedErr.Details != "" {
			errBody["details"] = enhancedErr.Details
		}
		if enhancedErr.Suggestion != "" {
			errBody["suggestion"] = enhancedErr.Suggestion
		}
		if len(enhancedErr.Metadata) > 0 {
			errBody["metadata"] = enhancedErr.Metadata
		}
		return gin.H{"error": errBody}
	}

	return gin.H{
		"error": gin.H{
			"code":    "INTERNAL_ERROR",
			"message": err.Error(),
		},
	}
}

// getErrorStatusCode maps error codes to HTTP status codes
func getErrorStatusCode(err error) int {
	if enhancedErr, ok := err.(*apperrors.EnhancedError); ok {
		switch enhancedErr.Code {
		case apperrors.ErrCodeInvalidInput, apperrors.ErrCodeMissingRequired:
			return http.StatusBadRequest
		case apperrors.ErrCodeInvalidCredentials, apperrors.ErrCodeNotAuthenticated:
			return http.StatusUnauthorized
		case apperrors.ErrCodeInsufficientPerms:
			return http.StatusForbidden
		case apperrors.ErrCodeBudgetExceeded, apperrors.ErrCodeLLMRateLimit:
			return http.StatusTooManyRequests
		case apperrors.ErrCodeGraphNotFound:
			return http.StatusNotFound
		case apperrors.ErrCodeGraphConnection, apperrors.ErrCodeLLMUnavailable,
			apperrors.ErrCodeDatabaseConnection:
			return http.StatusServiceUnavailable
		default:
			return http.StatusInternalServerError
		}
	}
	return http.StatusInternalServerError
}
