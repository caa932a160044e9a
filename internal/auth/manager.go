// Package auth provides API key and JWT authentication for the ask API,
// plus per-client rate limiting and per-user model token budgets.
package auth

import (
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	apperrors "github.com/askgraph/askgraph/internal/errors"
)

// User is an account that can log in and own API keys.
type User struct {
	ID           string   `json:"id"`
	Username     string   `json:"username"`
	Email        string   `json:"email"`
	PasswordHash string   `json:"-"`
	Roles        []string `json:"roles"`
	Active       bool     `json:"active"`
}

// APIKey is a long-lived credential. Only the sha256 of the key is kept;
// the plaintext is returned once at creation.
type APIKey struct {
	ID         string    `json:"id"`
	Name       string    `json:"name"`
	Key        string    `json:"key,omitempty"`
	HashedKey  string    `json:"-"`
	UserID     string    `json:"user_id"`
	ExpiresAt  time.Time `json:"expires_at"`
	CreatedAt  time.Time `json:"created_at"`
	LastUsedAt time.Time `json:"last_used_at"`
	Active     bool      `json:"active"`
}

// Claims are the JWT claims issued at login.
type Claims struct {
	UserID   string   `json:"user_id"`
	Username string   `json:"username"`
	Roles    []string `json:"roles"`
	jwt.RegisteredClaims
}

const tokenIssuer = "askgraph"

// dummyHash is a structurally valid bcrypt hash used to equalize timing for
// unknown usernames. The comparison result is always discarded.
const dummyHash = "$2a$10$N9qo8uLOickgx2ZMRZoMyeIjZAgcfl7p92ldGxad68LJZdL17lhWy"

// Config holds authentication configuration.
type Config struct {
	JWTSecret     string
	JWTExpiry     time.Duration
	RateLimit     int   // requests per minute per client
	DailyTokenCap int64 // model tokens per user per day, 0 means unlimited
	AdminPassword string
}

// Manager holds users and API keys in memory and issues JWTs.
type Manager struct {
	config  Config
	users   map[string]*User   // userID -> User
	apiKeys map[string]*APIKey // hashedKey -> APIKey
	byName  map[string]*User   // username -> User
	limiter *RateLimiter
	budget  *BudgetManager
	mu      sync.RWMutex
}

// NewManager creates an authentication manager. When AdminPassword is set, an
// admin user is seeded so the service is usable out of the box.
func NewManager(config Config) *Manager {
	if config.JWTExpiry == 0 {
		config.JWTExpiry = 24 * time.Hour
	}
	if config.RateLimit == 0 {
		config.RateLimit = 100
	}
	if config.JWTSecret == "" {
		config.JWTSecret = generateRandomString(32)
	}

	m := &Manager{
		config:  config,
		users:   make(map[string]*User),
		apiKeys: make(map[string]*APIKey),
		byName:  make(map[string]*User),
		limiter: NewRateLimiter(),
		budget:  NewBudgetManager(),
	}

	if config.AdminPassword != "" {
		if _, err := m.CreateUser("admin", "admin@localhost", config.AdminPassword, []string{"admin", "user"}); err != nil {
			panic(fmt.Sprintf("failed to seed admin user: %v", err))
		}
	}

	return m
}

// CreateUser registers a user with a bcrypt-hashed password.
func (m *Manager) CreateUser(username, email, password string, roles []string) (*User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.byName[username]; exists {
		return nil, fmt.Errorf("user already exists: %s", username)
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &User{
		ID:           uuid.New().String(),
		Username:     username,
		Email:        email,
		PasswordHash: string(hashed),
		Roles:        roles,
		Active:       true,
	}

	m.users[user.ID] = user
	m.byName[username] = user

	if m.config.DailyTokenCap > 0 {
		m.budget.SetLimit(user.ID, m.config.DailyTokenCap)
	}

	return user, nil
}

// Budget exposes the per-user daily token budgets.
func (m *Manager) Budget() *BudgetManager {
	return m.budget
}

// Authenticate checks a username/password pair.
func (m *Manager) Authenticate(username, password string) (*User, error) {
	m.mu.RLock()
	user, exists := m.byName[username]
	m.mu.RUnlock()

	if !exists || !user.Active {
		// Burn a bcrypt comparison so missing users cost the same as bad
		// passwords.
		_ = bcrypt.CompareHashAndPassword([]byte(dummyHash), []byte(password))
		return nil, apperrors.NewInvalidCredentialsError()
	}

	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, apperrors.NewInvalidCredentialsError()
	}

	return user, nil
}

// GetUser retrieves a user by ID.
func (m *Manager) GetUser(userID string) (*User, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	user, exists := m.users[userID]
	if !exists {
		return nil, fmt.Errorf("user not found: %s", userID)
	}
	return user, nil
}

// CreateToken issues a signed JWT for a user.
func (m *Manager) CreateToken(user *User) (string, error) {
	now := time.Now()
	claims := &Claims{
		UserID:   user.ID,
		Username: user.Username,
		Roles:    user.Roles,
		RegisteredClaims: jwt.RegisteredClaims{
			ExpiresAt: jwt.NewNumericDate(now.Add(m.config.JWTExpiry)),
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			Issuer:    tokenIssuer,
			Subject:   user.ID,
		},
	}

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(m.config.JWTSecret))
	if err != nil {
		return "", apperrors.NewTokenCreationError(err)
	}
	return signed, nil
}

// ValidateToken parses and verifies a JWT, and confirms the user is still
// active.
func (m *Manager) ValidateToken(tokenString string) (*Claims, error) {
	token, err := jwt.ParseWithClaims(tokenString, &Claims{}, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return []byte(m.config.JWTSecret), nil
	})
	if err != nil {
		return nil, fmt.Errorf("failed to parse token: %w", err)
	}

	claims, ok := token.Claims.(*Claims)
	if !ok || !token.Valid {
		return nil, fmt.Errorf("invalid token")
	}

	m.mu.RLock()
	user, exists := m.users[claims.UserID]
	m.mu.RUnlock()

	if !exists || !user.Active {
		return nil, fmt.Errorf("user not found or inactive")
	}

	return claims, nil
}

// CreateAPIKey mints a new key for a user. The returned APIKey carries the
// plaintext; it is never retrievable again.
func (m *Manager) CreateAPIKey(userID, name string, expiresIn time.Duration) (*APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.users[userID]; !exists {
		return nil, fmt.Errorf("user not found: %s", userID)
	}

	key := generateAPIKey()
	apiKey := &APIKey{
		ID:        uuid.New().String(),
		Name:      name,
		Key:       key,
		HashedKey: hashAPIKey(key),
		UserID:    userID,
		CreatedAt: time.Now(),
		ExpiresAt: time.Now().Add(expiresIn),
		Active:    true,
	}

	m.apiKeys[apiKey.HashedKey] = apiKey

	return apiKey, nil
}

// ValidateAPIKey resolves a plaintext key to its user.
func (m *Manager) ValidateAPIKey(key string) (*User, *APIKey, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	apiKey, exists := m.apiKeys[hashAPIKey(key)]
	if !exists || !apiKey.Active {
		return nil, nil, fmt.Errorf("invalid API key")
	}
	if time.Now().After(apiKey.ExpiresAt) {
		return nil, nil, fmt.Errorf("API key has expired")
	}

	user, exists := m.users[apiKey.UserID]
	if !exists || !user.Active {
		return nil, nil, fmt.Errorf("user not found or inactive for API key")
	}

	apiKey.LastUsedAt = time.Now()

	return user, apiKey, nil
}

// RevokeAPIKey deactivates a key by ID, scoped to its owner.
func (m *Manager) RevokeAPIKey(userID, keyID string) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	for _, apiKey := range m.apiKeys {
		if apiKey.ID == keyID && subtle.ConstantTimeCompare([]byte(apiKey.UserID), []byte(userID)) == 1 {
			apiKey.Active = false
			return nil
		}
	}
	return fmt.Errorf("API key not found: %s", keyID)
}

// ListAPIKeys returns a user's keys with the plaintext stripped.
func (m *Manager) ListAPIKeys(userID string) []*APIKey {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var keys []*APIKey
	for _, apiKey := range m.apiKeys {
		if apiKey.UserID == userID {
			keyCopy := *apiKey
			keyCopy.Key = ""
			keys = append(keys, &keyCopy)
		}
	}
	return keys
}

// CleanupExpired drops API keys past their expiry.
func (m *Manager) CleanupExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()

	now := time.Now()
	for hash, apiKey := range m.apiKeys {
		if now.After(apiKey.ExpiresAt) {
			delete(m.apiKeys, hash)
		}
	}
}

func generateRandomString(length int) string {
	bytes := make([]byte, length)
	if _, err := rand.Read(bytes); err != nil {
		panic(err)
	}
	return hex.EncodeToString(bytes)
}

// generateAPIKey mints a key with the "agk_" prefix.
func generateAPIKey() string {
	return "agk_" + generateRandomString(32)
}

func hashAPIKey(key string) string {
	hash := sha256.Sum256([]byte(key))
	return hex.EncodeToString(hash[:])
}
