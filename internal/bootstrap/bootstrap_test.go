package bootstrap

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"testing"

	config "cfdiag-api/configs"
	apperrors "cfdiag-api/internal/errors"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testConfig() *config.Config {
	return &config.Config{
		Environment:      "test",
		StoreDriver:      config.StoreMemory,
		AdminUsername:    "admin",
		QdrantCollection: "diagnosis_results",
		Timezone:         "Asia/Jakarta",
	}
}

func TestBuildMemory(t *testing.T) {
	gin.SetMode(gin.TestMode)

	app, err := Build(context.Background(), testConfig(), nil)
	require.NoError(t, err)
	defer app.Close()

	assert.Len(t, app.KB.ListHypotheses(), 3)

	w := httptest.NewRecorder()
	app.Router().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/hypotheses", nil))
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestBuildSQLite(t *testing.T) {
	cfg := testConfig()
	cfg.StoreDriver = config.StoreSQLite
	cfg.SQLitePath = filepath.Join(t.TempDir(), "data", "diagnosis.db")

	app, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	require.NoError(t, app.Close())

	_, err = os.Stat(cfg.SQLitePath)
	assert.NoError(t, err)
}

func TestBuildRejectsBadConfig(t *testing.T) {
	cfg := testConfig()
	cfg.StoreDriver = "mongo"
	_, err := Build(context.Background(), cfg, nil)
	assert.Equal(t, apperrors.CodeConfigInvalid, apperrors.GetCode(err))

	cfg = testConfig()
	cfg.KnowledgeBasePath = filepath.Join(t.TempDir(), "missing.yaml")
	_, err = Build(context.Background(), cfg, nil)
	assert.Equal(t, apperrors.CodeConfigInvalid, apperrors.GetCode(err))

	bad := filepath.Join(t.TempDir(), "kb.yaml")
	require.NoError(t, os.WriteFile(bad, []byte("version: x\nhypotheses:\n  - id: 1\n    code: P1\n    symptoms: [G99]\n"), 0o600))
	cfg = testConfig()
	cfg.KnowledgeBasePath = bad
	_, err = Build(context.Background(), cfg, nil)
	assert.Equal(t, apperrors.CodeConfigInvalid, apperrors.GetCode(err))
}

func TestBuildUnknownTimezoneFallsBack(t *testing.T) {
	cfg := testConfig()
	cfg.Timezone = "Mars/Olympus"
	app, err := Build(context.Background(), cfg, nil)
	require.NoError(t, err)
	assert.NoError(t, app.Close())
}
