package config

import (
	"os"
	"strings"

	apperrors "cfdiag-api/internal/errors"
)

// Store drivers accepted by STORE_DRIVER.
const (
	StoreMemory   = "memory"
	StoreSQLite   = "sqlite"
	StorePostgres = "postgres"
	StoreQdrant   = "qdrant"
)

// Config holds the application configuration
type Config struct {
	Port              string
	Environment       string
	LogLevel          string
	APIKey            string
	AdminUsername     string
	AdminPassword     string
	StoreDriver       string
	SQLitePath        string
	DatabaseURL       string
	QdrantURL         string
	QdrantAPIKey      string
	QdrantCollection  string
	KnowledgeBasePath string
	CORSAllowOrigins  []string
	Timezone          string
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Port:              getEnv("PORT", "8080"),
		Environment:       getEnv("ENVIRONMENT", "development"),
		LogLevel:          getEnv("LOG_LEVEL", ""),
		APIKey:            getEnv("API_KEY", ""),
		AdminUsername:     getEnv("ADMIN_USERNAME", "admin"),
		AdminPassword:     getEnv("ADMIN_PASSWORD", ""),
		StoreDriver:       strings.ToLower(getEnv("STORE_DRIVER", StoreSQLite)),
		SQLitePath:        getEnv("SQLITE_PATH", "data/diagnosis.db"),
		DatabaseURL:       getEnv("DATABASE_URL", ""),
		QdrantURL:         getEnv("QDRANT_URL", "localhost:6334"),
		QdrantAPIKey:      getEnv("QDRANT_API_KEY", ""),
		QdrantCollection:  getEnv("QDRANT_COLLECTION", "diagnosis_results"),
		KnowledgeBasePath: getEnv("KNOWLEDGE_BASE_PATH", ""),
		CORSAllowOrigins:  splitList(getEnv("CORS_ALLOW_ORIGINS", "")),
		Timezone:          getEnv("TIMEZONE", "Asia/Jakarta"),
	}
}

// Validate checks that the selected store driver has what it needs.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case StoreMemory:
	case StoreSQLite:
		if c.SQLitePath == "" {
			return apperrors.ConfigInvalid("SQLITE_PATH is required for the sqlite store")
		}
	case StorePostgres:
		if c.DatabaseURL == "" {
			return apperrors.ConfigInvalid("DATABASE_URL is required for the postgres store")
		}
	case StoreQdrant:
		if c.QdrantURL == "" {
			return apperrors.ConfigInvalid("QDRANT_URL is required for the qdrant store")
		}
	default:
		return apperrors.ConfigInvalid("unknown STORE_DRIVER " + c.StoreDriver)
	}
	if c.AdminPassword == "" && c.Environment == "production" {
		return apperrors.ConfigInvalid("ADMIN_PASSWORD is required in production")
	}
	return nil
}

// getEnv gets an environment variable with a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
