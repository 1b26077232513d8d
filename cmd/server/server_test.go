package main

import (
	"context"
	"net/http"
	"net/http/httptest"
	"os"
	"testing"
	"time"

	config "cfdiag-api/configs"
	"cfdiag-api/internal/bootstrap"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestMain(m *testing.M) {
	gin.SetMode(gin.TestMode)
	os.Exit(m.Run())
}

func memoryConfig() *config.Config {
	cfg := config.LoadConfig()
	cfg.StoreDriver = config.StoreMemory
	cfg.Environment = "test"
	cfg.APIKey = ""
	cfg.Port = "0"
	return cfg
}

func TestApplicationSetup(t *testing.T) {
	app, err := bootstrap.Build(context.Background(), memoryConfig(), zap.NewNop())
	require.NoError(t, err)
	defer app.Close()

	srv := httptest.NewServer(newServer("0", app.Router()).Handler)
	defer srv.Close()

	resp, err := http.Get(srv.URL + "/health")
	require.NoError(t, err)
	defer resp.Body.Close()
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestRunStopsOnCancel(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- run(ctx, memoryConfig(), zap.NewNop()) }()

	time.Sleep(100 * time.Millisecond)
	cancel()

	select {
	case err := <-done:
		assert.NoError(t, err)
	case <-time.After(5 * time.Second):
		t.Fatal("server did not shut down")
	}
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := memoryConfig()
	cfg.StoreDriver = "unknown"
	assert.Error(t, run(context.Background(), cfg, zap.NewNop()))
}
