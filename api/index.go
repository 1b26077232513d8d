package handler

import (
	"context"
	"log"
	"net/http"
	"sync"

	config "cfdiag-api/configs"
	"cfdiag-api/internal/bootstrap"
	"cfdiag-api/internal/logging"

	"github.com/gin-gonic/gin"
)

var (
	app     http.Handler
	initErr error
	once    sync.Once
)

// setupApp builds the application once per serverless instance. The
// environment is provided by the platform, so no .env file is read.
func setupApp() (http.Handler, error) {
	once.Do(func() {
		cfg := config.LoadConfig()
		if cfg.Environment == "production" {
			gin.SetMode(gin.ReleaseMode)
		}
		logger, err := logging.New(cfg.Environment, cfg.LogLevel)
		if err != nil {
			initErr = err
			return
		}
		built, err := bootstrap.Build(context.Background(), cfg, logger)
		if err != nil {
			initErr = err
			return
		}
		app = built.Router()
	})
	return app, initErr
}

// Handler is the serverless entry point for every request.
func Handler(w http.ResponseWriter, r *http.Request) {
	h, err := setupApp()
	if err != nil {
		log.Printf("failed to initialize application: %v", err)
		http.Error(w, `{"error":"service unavailable","code":"STORE_UNAVAILABLE"}`, http.StatusServiceUnavailable)
		return
	}
	h.ServeHTTP(w, r)
}
