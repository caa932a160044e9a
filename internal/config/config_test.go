package config

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestEnvProvider(t *testing.T) {
	ctx := context.Background()

	os.Setenv("TEST_SECRET", "test-value")
	defer os.Unsetenv("TEST_SECRET")

	provider := NewEnvProvider()

	t.Run("retrieves existing env var", func(t *testing.T) {
		value, err := provider.GetSecret(ctx, "TEST_SECRET")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if value != "test-value" {
			t.Errorf("expected 'test-value', got '%s'", value)
		}
	})

	t.Run("returns empty for non-existent env var", func(t *testing.T) {
		value, err := provider.GetSecret(ctx, "NON_EXISTENT")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if value != "" {
			t.Errorf("expected empty string, got '%s'", value)
		}
	})

	t.Run("is always available", func(t *testing.T) {
		if !provider.IsAvailable(ctx) {
			t.Error("env provider should always be available")
		}
	})

	t.Run("has correct name", func(t *testing.T) {
		if provider.Name() != "env" {
			t.Errorf("expected name 'env', got '%s'", provider.Name())
		}
	})
}

func TestFileProvider(t *testing.T) {
	ctx := context.Background()

	tmpDir := t.TempDir()

	secretFile := tmpDir + "/llm-api-key"
	err := os.WriteFile(secretFile, []byte("sk-test-key\n"), 0600)
	if err != nil {
		t.Fatalf("failed to create test secret file: %v", err)
	}

	provider := NewFileProvider(tmpDir)

	t.Run("retrieves secret from file", func(t *testing.T) {
		value, err := provider.GetSecret(ctx, "LLM_API_KEY")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if value != "sk-test-key" {
			t.Errorf("expected 'sk-test-key', got '%s'", value)
		}
	})

	t.Run("returns empty for non-existent file", func(t *testing.T) {
		value, err := provider.GetSecret(ctx, "NON_EXISTENT_SECRET")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if value != "" {
			t.Errorf("expected empty string, got '%s'", value)
		}
	})

	t.Run("is available when directory exists", func(t *testing.T) {
		if !provider.IsAvailable(ctx) {
			t.Error("file provider should be available when directory exists")
		}
	})

	t.Run("is not available when directory doesn't exist", func(t *testing.T) {
		provider := NewFileProvider("/non/existent/path")
		if provider.IsAvailable(ctx) {
			t.Error("file provider should not be available for non-existent directory")
		}
	})

	t.Run("is not available when path is empty", func(t *testing.T) {
		provider := NewFileProvider("")
		if provider.IsAvailable(ctx) {
			t.Error("file provider should not be available with empty path")
		}
	})

	t.Run("returns error when secrets path not configured", func(t *testing.T) {
		provider := NewFileProvider("")
		_, err := provider.GetSecret(ctx, "ANY_KEY")
		if err == nil {
			t.Error("expected error when secrets path is empty")
		}
	})

	t.Run("has correct name", func(t *testing.T) {
		if provider.Name() != "file" {
			t.Errorf("expected name 'file', got '%s'", provider.Name())
		}
	})
}

func TestChainProvider(t *testing.T) {
	ctx := context.Background()

	os.Setenv("ENV_SECRET", "from-env")
	defer os.Unsetenv("ENV_SECRET")

	tmpDir := t.TempDir()
	err := os.WriteFile(tmpDir+"/file-secret", []byte("from-file"), 0600)
	if err != nil {
		t.Fatalf("failed to create test file: %v", err)
	}

	envProvider := NewEnvProvider()
	fileProvider := NewFileProvider(tmpDir)
	chain := NewChainProvider(fileProvider, envProvider)

	t.Run("uses first available provider", func(t *testing.T) {
		value, err := chain.GetSecret(ctx, "FILE_SECRET")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if value != "from-file" {
			t.Errorf("expected 'from-file', got '%s'", value)
		}
	})

	t.Run("falls back to next provider", func(t *testing.T) {
		value, err := chain.GetSecret(ctx, "ENV_SECRET")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if value != "from-env" {
			t.Errorf("expected 'from-env', got '%s'", value)
		}
	})

	t.Run("returns error when all providers fail", func(t *testing.T) {
		emptyChain := NewChainProvider(NewFileProvider("/non/existent"))
		_, err := emptyChain.GetSecret(ctx, "ANY_KEY")
		if err == nil {
			t.Error("expected error when all providers fail")
		}
	})

	t.Run("has correct name", func(t *testing.T) {
		if chain.Name() != "chain" {
			t.Errorf("expected name 'chain', got '%s'", chain.Name())
		}
	})

	t.Run("is available when at least one provider is available", func(t *testing.T) {
		if !chain.IsAvailable(ctx) {
			t.Error("chain should be available when at least one provider is available")
		}
	})

	t.Run("is not available when no providers are available", func(t *testing.T) {
		emptyChain := NewChainProvider(NewFileProvider("/non/existent"))
		if emptyChain.IsAvailable(ctx) {
			t.Error("chain should not be available when no providers are available")
		}
	})
}

func TestConfigLoader(t *testing.T) {
	ctx := context.Background()

	testEnv := map[string]string{
		"FALKORDB_ADDR":    "test-falkor:6379",
		"FALKORDB_GRAPH":   "movies",
		"LLM_PROVIDER":     "anthropic",
		"LLM_API_KEY":      "sk-test",
		"LLM_MODEL":        "claude-3-haiku-20240307",
		"DB_HOST":          "test-host",
		"DB_PORT":          "5432",
		"DB_NAME":          "test-db",
		"DB_USER":          "test-user",
		"DB_PASSWORD":      "test-pass",
		"REDIS_ADDR":       "test-redis:6380",
		"JWT_SECRET":       "test-jwt-secret-with-sufficient-length-32chars",
		"PORT":             "8080",
		"GIN_MODE":         "debug",
		"RATE_LIMIT":       "50",
		"ALLOW_ANONYMOUS":  "false",
	}

	for k, v := range testEnv {
		os.Setenv(k, v)
	}
	defer func() {
		for k := range testEnv {
			os.Unsetenv(k)
		}
	}()

	loader := NewLoader(NewEnvProvider())

	t.Run("loads all configuration sections", func(t *testing.T) {
		cfg, err := loader.Load(ctx)
		if err != nil {
			t.Fatalf("unexpected error loading config: %v", err)
		}

		if cfg.Graph.Addr != "test-falkor:6379" {
			t.Errorf("expected graph addr 'test-falkor:6379', got '%s'", cfg.Graph.Addr)
		}
		if cfg.Graph.GraphName != "movies" {
			t.Errorf("expected graph name 'movies', got '%s'", cfg.Graph.GraphName)
		}

		if cfg.LLM.Provider != "anthropic" {
			t.Errorf("expected provider 'anthropic', got '%s'", cfg.LLM.Provider)
		}
		if cfg.LLM.APIKey != "sk-test" {
			t.Errorf("expected API key 'sk-test', got '%s'", cfg.LLM.APIKey)
		}

		if cfg.Database.Host != "test-host" {
			t.Errorf("expected DB host 'test-host', got '%s'", cfg.Database.Host)
		}
		if cfg.Database.Password != "test-pass" {
			t.Errorf("expected DB password 'test-pass', got '%s'", cfg.Database.Password)
		}

		if cfg.Redis.Addr != "test-redis:6380" {
			t.Errorf("expected Redis addr 'test-redis:6380', got '%s'", cfg.Redis.Addr)
		}

		if cfg.Auth.JWTSecret != "test-jwt-secret-with-sufficient-length-32chars" {
			t.Errorf("expected JWT secret, got '%s'", cfg.Auth.JWTSecret)
		}
		if cfg.Auth.RateLimit != 50 {
			t.Errorf("expected rate limit 50, got %d", cfg.Auth.RateLimit)
		}

		if cfg.Server.Port != "8080" {
			t.Errorf("expected port '8080', got '%s'", cfg.Server.Port)
		}
	})

	t.Run("uses default values when env vars not set", func(t *testing.T) {
		for k := range testEnv {
			os.Unsetenv(k)
		}

		cfg, err := loader.Load(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Graph.Addr != "localhost:6379" {
			t.Errorf("expected default graph addr 'localhost:6379', got '%s'", cfg.Graph.Addr)
		}
		if cfg.Graph.GraphName != "knowledge" {
			t.Errorf("expected default graph name 'knowledge', got '%s'", cfg.Graph.GraphName)
		}
		if cfg.LLM.Provider != "anthropic" {
			t.Errorf("expected default provider 'anthropic', got '%s'", cfg.LLM.Provider)
		}
		if cfg.Generation.MaxAttempts != 10 {
			t.Errorf("expected default max attempts 10, got %d", cfg.Generation.MaxAttempts)
		}
		if cfg.Pipeline.MaxExamples != 5 {
			t.Errorf("expected default max examples 5, got %d", cfg.Pipeline.MaxExamples)
		}
		if cfg.Auth.RateLimit != 100 {
			t.Errorf("expected default rate limit 100, got %d", cfg.Auth.RateLimit)
		}

		for k, v := range testEnv {
			os.Setenv(k, v)
		}
	})

	t.Run("parses durations correctly", func(t *testing.T) {
		os.Setenv("JWT_EXPIRY", "12h")
		os.Setenv("FALKORDB_QUERY_TIMEOUT", "45s")
		defer os.Unsetenv("JWT_EXPIRY")
		defer os.Unsetenv("FALKORDB_QUERY_TIMEOUT")

		cfg, err := loader.Load(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Auth.JWTExpiry != 12*time.Hour {
			t.Errorf("expected JWT expiry 12h, got %v", cfg.Auth.JWTExpiry)
		}
		if cfg.Graph.QueryTimeout != 45*time.Second {
			t.Errorf("expected query timeout 45s, got %v", cfg.Graph.QueryTimeout)
		}
	})

	t.Run("parses floats correctly", func(t *testing.T) {
		os.Setenv("LLM_TEMPERATURE", "0.7")
		os.Setenv("SIMILARITY_THRESHOLD", "0.65")
		defer os.Unsetenv("LLM_TEMPERATURE")
		defer os.Unsetenv("SIMILARITY_THRESHOLD")

		cfg, err := loader.Load(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.LLM.Temperature != 0.7 {
			t.Errorf("expected temperature 0.7, got %v", cfg.LLM.Temperature)
		}
		if cfg.Pipeline.SimilarityThreshold != 0.65 {
			t.Errorf("expected similarity threshold 0.65, got %v", cfg.Pipeline.SimilarityThreshold)
		}
	})

	t.Run("falls back to default on malformed values", func(t *testing.T) {
		os.Setenv("GENERATION_MAX_ATTEMPTS", "not-a-number")
		os.Setenv("LLM_TEMPERATURE", "warm")
		defer os.Unsetenv("GENERATION_MAX_ATTEMPTS")
		defer os.Unsetenv("LLM_TEMPERATURE")

		cfg, err := loader.Load(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if cfg.Generation.MaxAttempts != 10 {
			t.Errorf("expected default max attempts 10, got %d", cfg.Generation.MaxAttempts)
		}
		if cfg.LLM.Temperature != 0.0 {
			t.Errorf("expected default temperature 0.0, got %v", cfg.LLM.Temperature)
		}
	})
}

func TestK8sProvider(t *testing.T) {
	ctx := context.Background()

	t.Run("reads secrets from mounted kubernetes secret files", func(t *testing.T) {
		tmpDir := t.TempDir()

		llmKeyFile := filepath.Join(tmpDir, "llm-api-key")
		err := os.WriteFile(llmKeyFile, []byte("sk-k8s-test-key"), 0600)
		if err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		jwtSecretFile := filepath.Join(tmpDir, "jwt-secret")
		err = os.WriteFile(jwtSecretFile, []byte("k8s-jwt-secret-32-chars-minimum!"), 0600)
		if err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		provider := NewK8sProvider(tmpDir, "test-namespace")

		llmKey, err := provider.GetSecret(ctx, "LLM_API_KEY")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if llmKey != "sk-k8s-test-key" {
			t.Errorf("expected 'sk-k8s-test-key', got '%s'", llmKey)
		}

		jwtSecret, err := provider.GetSecret(ctx, "JWT_SECRET")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if jwtSecret != "k8s-jwt-secret-32-chars-minimum!" {
			t.Errorf("expected 'k8s-jwt-secret-32-chars-minimum!', got '%s'", jwtSecret)
		}
	})

	t.Run("returns empty for non-existent secrets", func(t *testing.T) {
		tmpDir := t.TempDir()
		provider := NewK8sProvider(tmpDir, "test-namespace")

		value, err := provider.GetSecret(ctx, "NON_EXISTENT_SECRET")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if value != "" {
			t.Errorf("expected empty string, got '%s'", value)
		}
	})

	t.Run("is not available when secrets directory doesn't exist", func(t *testing.T) {
		provider := NewK8sProvider("/non/existent/path", "test-namespace")

		if provider.IsAvailable(ctx) {
			t.Error("provider should not be available when secrets directory doesn't exist")
		}
	})

	t.Run("has correct name", func(t *testing.T) {
		provider := NewK8sProvider("", "")

		if provider.Name() != "kubernetes" {
			t.Errorf("expected name 'kubernetes', got '%s'", provider.Name())
		}
	})

	t.Run("uses provided namespace when specified", func(t *testing.T) {
		provider := NewK8sProvider("", "production")

		if provider.GetNamespace() != "production" {
			t.Errorf("expected namespace 'production', got '%s'", provider.GetNamespace())
		}
	})

	t.Run("handles secrets with whitespace and newlines", func(t *testing.T) {
		tmpDir := t.TempDir()

		secretFile := filepath.Join(tmpDir, "db-password")
		err := os.WriteFile(secretFile, []byte("my-password\n"), 0600)
		if err != nil {
			t.Fatalf("failed to create test file: %v", err)
		}

		provider := NewK8sProvider(tmpDir, "test-namespace")

		value, err := provider.GetSecret(ctx, "DB_PASSWORD")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		if value != "my-password" {
			t.Errorf("expected 'my-password' (trimmed), got '%s'", value)
		}
	})
}
