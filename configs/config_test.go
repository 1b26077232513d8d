package config

import (
	"os"
	"testing"

	apperrors "cfdiag-api/internal/errors"

	"github.com/stretchr/testify/assert"
)

func TestLoadConfig(t *testing.T) {
	// set test environment
	testCases := map[string]string{
		"PORT":               "9090",
		"ENVIRONMENT":        "test",
		"STORE_DRIVER":       "Postgres",
		"DATABASE_URL":       "postgres://cf:cf@localhost/cf?sslmode=disable",
		"CORS_ALLOW_ORIGINS": "http://localhost:5173, https://cf.example.org,",
		"ADMIN_USERNAME":     "operator",
	}

	for key, value := range testCases {
		t.Setenv(key, value)
	}

	cfg := LoadConfig()

	if cfg.Port != "9090" {
		t.Errorf("Expected Port to be '9090', got '%s'", cfg.Port)
	}

	if cfg.Environment != "test" {
		t.Errorf("Expected Environment to be 'test', got '%s'", cfg.Environment)
	}

	if cfg.StoreDriver != StorePostgres {
		t.Errorf("Expected StoreDriver to be '%s', got '%s'", StorePostgres, cfg.StoreDriver)
	}

	assert.Equal(t, []string{"http://localhost:5173", "https://cf.example.org"}, cfg.CORSAllowOrigins)
	assert.Equal(t, "operator", cfg.AdminUsername)
	assert.NoError(t, cfg.Validate())
}

func TestLoadConfigDefaults(t *testing.T) {
	// clear environment
	vars := []string{
		"PORT", "ENVIRONMENT", "STORE_DRIVER", "SQLITE_PATH",
		"QDRANT_COLLECTION", "TIMEZONE", "CORS_ALLOW_ORIGINS",
	}

	for _, v := range vars {
		os.Unsetenv(v)
	}

	cfg := LoadConfig()

	if cfg.Port != "8080" {
		t.Errorf("Expected default Port to be '8080', got '%s'", cfg.Port)
	}

	if cfg.Environment != "development" {
		t.Errorf("Expected default Environment to be 'development', got '%s'", cfg.Environment)
	}

	assert.Equal(t, StoreSQLite, cfg.StoreDriver)
	assert.Equal(t, "data/diagnosis.db", cfg.SQLitePath)
	assert.Equal(t, "diagnosis_results", cfg.QdrantCollection)
	assert.Equal(t, "Asia/Jakarta", cfg.Timezone)
	assert.Nil(t, cfg.CORSAllowOrigins)
}

func TestValidate(t *testing.T) {
	cases := []struct {
		name    string
		cfg     Config
		wantErr bool
	}{
		{"memory", Config{StoreDriver: StoreMemory}, false},
		{"sqlite without path", Config{StoreDriver: StoreSQLite}, true},
		{"postgres without url", Config{StoreDriver: StorePostgres}, true},
		{"qdrant", Config{StoreDriver: StoreQdrant, QdrantURL: "localhost:6334"}, false},
		{"unknown driver", Config{StoreDriver: "mongo"}, true},
		{"production without admin password", Config{StoreDriver: StoreMemory, Environment: "production"}, true},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			err := tc.cfg.Validate()
			if tc.wantErr {
				assert.Equal(t, apperrors.CodeConfigInvalid, apperrors.GetCode(err))
				return
			}
			assert.NoError(t, err)
		})
	}
}
