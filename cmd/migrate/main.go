package main

import (
	"flag"
	"fmt"
	"log"
	"os"

	"github.com/askgraph/askgraph/internal/database"
	"github.com/askgraph/askgraph/internal/semantic"
)

func main() {
	down := flag.Bool("down", false, "roll back the most recent migration")
	path := flag.String("path", "./internal/database/migrations", "migrations directory")
	flag.Parse()

	config := semantic.PostgresConfig{
		Host:     getEnv("DB_HOST", "localhost"),
		Port:     getEnv("DB_PORT", "5432"),
		Database: getEnv("DB_NAME", "askgraph"),
		Username: getEnv("DB_USER", "askgraph"),
		Password: getEnv("DB_PASSWORD", ""),
		SSLMode:  getEnv("DB_SSLMODE", "disable"),
	}

	fmt.Printf("Connecting to database: %s@%s:%s/%s\n", config.Username, config.Host, config.Port, config.Database)

	if err := database.VerifyDatabase(config.Host, config.Port, config.Username, config.Password, config.Database); err != nil {
		log.Fatalf("Database connectivity failed: %v", err)
	}

	migrationConfig := database.MigrationConfig{
		DatabaseURL: fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
			config.Username, config.Password, config.Host, config.Port, config.Database, config.SSLMode),
		MigrationsPath: *path,
	}

	if *down {
		if err := database.RollbackMigration(migrationConfig); err != nil {
			log.Fatalf("Rollback failed: %v", err)
		}
		fmt.Println("Rolled back the most recent migration")
		return
	}

	if err := database.RunMigrations(migrationConfig); err != nil {
		log.Fatalf("Migration failed: %v", err)
	}
	fmt.Println("Database migrations completed")
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}
