package auth

import (
	"errors"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"

	apperrors "github.com/askgraph/askgraph/internal/errors"
)

// Middleware authenticates a request with either an API key or a bearer JWT,
// after applying the per-client rate limit.
func (m *Manager) Middleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		clientID := clientID(c)
		if !m.limiter.Allow(clientID, m.config.RateLimit) {
			c.JSON(http.StatusTooManyRequests, gin.H{"error": "rate limit exceeded"})
			c.Abort()
			return
		}

		user, err := m.authenticateRequest(c)
		if err != nil {
			authErr := apperrors.NewNotAuthenticatedError()
			c.JSON(http.StatusUnauthorized, gin.H{
				"error": gin.H{
					"code":       authErr.Code,
					"message":    authErr.Message,
					"suggestion": authErr.Suggestion,
				},
			})
			c.Abort()
			return
		}

		if err := m.budget.Check(user.ID, 1); err != nil {
			var budgetErr *apperrors.EnhancedError
			if errors.As(err, &budgetErr) {
				c.JSON(http.StatusTooManyRequests, gin.H{
					"error": gin.H{
						"code":     budgetErr.Code,
						"message":  budgetErr.Message,
						"metadata": budgetErr.Metadata,
					},
				})
			} else {
				c.JSON(http.StatusTooManyRequests, gin.H{"error": "daily token budget exceeded"})
			}
			c.Abort()
			return
		}

		c.Set("user", user)
		c.Set("user_id", user.ID)
		c.Set("username", user.Username)
		c.Set("roles", user.Roles)

		c.Next()
	}
}

// RequireRole rejects requests whose user has none of the given roles.
func (m *Manager) RequireRole(requiredRoles ...string) gin.HandlerFunc {
	return func(c *gin.Context) {
		user, exists := GetCurrentUser(c)
		if !exists {
			c.JSON(http.StatusUnauthorized, gin.H{"error": "authentication required"})
			c.Abort()
			return
		}

		for _, required := range requiredRoles {
			for _, role := range user.Roles {
				if role == required {
					c.Next()
					return
				}
			}
		}

		c.JSON(http.StatusForbidden, gin.H{"error": "insufficient permissions"})
		c.Abort()
	}
}

func (m *Manager) authenticateRequest(c *gin.Context) (*User, error) {
	if user, err := m.authenticateAPIKey(c); err == nil {
		return user, nil
	}
	return m.authenticateJWT(c)
}

func (m *Manager) authenticateJWT(c *gin.Context) (*User, error) {
	authHeader := c.GetHeader("Authorization")
	parts := strings.Split(authHeader, " ")
	if len(parts) != 2 || parts[0] != "Bearer" {
		return nil, http.ErrAbortHandler
	}

	claims, err := m.ValidateToken(parts[1])
	if err != nil {
		return nil, err
	}

	return m.GetUser(claims.UserID)
}

func (m *Manager) authenticateAPIKey(c *gin.Context) (*User, error) {
	apiKey := c.GetHeader("X-API-Key")
	if apiKey == "" {
		return nil, http.ErrAbortHandler
	}

	user, _, err := m.ValidateAPIKey(apiKey)
	return user, err
}

// clientID picks a rate-limit bucket: API key prefix, then client IP.
func clientID(c *gin.Context) string {
	if apiKey := c.GetHeader("X-API-Key"); len(apiKey) >= 12 {
		return "key:" + apiKey[:12]
	}
	return "ip:" + c.ClientIP()
}

// GetCurrentUser returns the authenticated user set by Middleware.
func GetCurrentUser(c *gin.Context) (*User, bool) {
	value, exists := c.Get("user")
	if !exists {
		return nil, false
	}
	user, ok := value.(*User)
	return user, ok
}

// GetCurrentUserID returns the authenticated user's ID set by Middleware.
func GetCurrentUserID(c *gin.Context) (string, bool) {
	value, exists := c.Get("user_id")
	if !exists {
		return "", false
	}
	userID, ok := value.(string)
	return userID, ok
}
