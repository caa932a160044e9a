package semantic

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	_ "github.com/lib/pq"
	"github.com/pgvector/pgvector-go"
)

// PostgresConfig holds PostgreSQL connection configuration
type PostgresConfig struct {
	Host     string
	Port     string
	Database string
	Username string
	Password string
	SSLMode  string

	// SimilarityThreshold is the minimum cosine similarity for FindSimilar
	// matches. Defaults to 0.8.
	SimilarityThreshold float64
}

// PostgresStore implements the Store interface on PostgreSQL with pgvector
type PostgresStore struct {
	db        *sql.DB
	threshold float64
}

// NewPostgresStore opens a connection pool and verifies it with a ping
func NewPostgresStore(config PostgresConfig) (*PostgresStore, error) {
	if config.SSLMode == "" {
		config.SSLMode = "disable"
	}
	if config.SimilarityThreshold == 0 {
		config.SimilarityThreshold = 0.8
	}

	dsn := fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		config.Host, config.Port, config.Username, config.Password, config.Database, config.SSLMode)

	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	// Test the connection
	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	// Configure connection pool
	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(25)
	db.SetConnMaxLifetime(5 * time.Minute)

	return &PostgresStore{db: db, threshold: config.SimilarityThreshold}, nil
}

// Ping tests the database connection
func (ps *PostgresStore) Ping(ctx context.Context) error {
	return ps.db.PingContext(ctx)
}

// Close closes the database connection
func (ps *PostgresStore) Close() error {
	return ps.db.Close()
}

// FindSimilar returns past examples whose embedding cosine similarity to the
// given vector exceeds the configured threshold, most similar first
func (ps *PostgresStore) FindSimilar(ctx context.Context, embedding []float32, limit int) ([]Example, error) {
	if limit <= 0 {
		limit = 5
	}

	vector := pgvector.NewVector(embedding)

	query := `
		SELECT id, question, cypher_query,
		       1 - (embedding <=> $1) as similarity,
		       created_at
		FROM query_examples
		WHERE 1 - (embedding <=> $1) > $2
		ORDER BY similarity DESC
		LIMIT $3
	`

	rows, err := ps.db.QueryContext(ctx, query, vector, ps.threshold, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to query similar examples: %w", err)
	}
	defer rows.Close()

	var examples []Example
	for rows.Next() {
		var ex Example
		err := rows.Scan(
			&ex.ID,
			&ex.Question,
			&ex.Query,
			&ex.Similarity,
			&ex.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan example row: %w", err)
		}

		examples = append(examples, ex)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating example rows: %w", err)
	}

	return examples, nil
}

// Save records a question/query pair for future similarity search. Saving the
// same question again replaces its embedding and query
func (ps *PostgresStore) Save(ctx context.Context, question string, embedding []float32, cypherQuery string) error {
	vector := pgvector.NewVector(embedding)

	insertQuery := `
		INSERT INTO query_examples (id, question, embedding, cypher_query, created_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (question) DO UPDATE SET
			embedding = $3,
			cypher_query = $4,
			updated_at = $5
	`

	id := uuid.New().String()
	now := time.Now()

	_, err := ps.db.ExecContext(ctx, insertQuery, id, question, vector, cypherQuery, now)
	if err != nil {
		return fmt.Errorf("failed to store example: %w", err)
	}

	return nil
}
