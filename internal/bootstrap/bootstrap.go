// Package bootstrap assembles the services shared by the HTTP server, the
// serverless entry point and the CLI.
package bootstrap

import (
	"context"
	"fmt"
	"time"

	config "cfdiag-api/configs"
	apperrors "cfdiag-api/internal/errors"
	"cfdiag-api/pkg/handlers"
	"cfdiag-api/pkg/services"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// App holds every long-lived service built from one Config.
type App struct {
	Config     *config.Config
	Logger     *zap.Logger
	KB         *services.KnowledgeBase
	Store      services.ResultStore
	Monitoring *services.MonitoringService
	Diagnosis  *services.DiagnosisService
	Statistics *services.StatisticsService
	Reports    *services.ReportService
}

// OpenStore opens the result store selected by cfg.StoreDriver.
func OpenStore(ctx context.Context, cfg *config.Config, logger *zap.Logger) (services.ResultStore, error) {
	switch cfg.StoreDriver {
	case config.StoreMemory:
		return services.NewMemoryResultStore(), nil
	case config.StoreSQLite:
		return services.OpenSQLiteResultStore(ctx, cfg.SQLitePath, logger)
	case config.StorePostgres:
		return services.OpenPostgresResultStore(ctx, cfg.DatabaseURL, logger)
	case config.StoreQdrant:
		return services.NewQdrantResultStore(ctx, cfg.QdrantURL, cfg.QdrantAPIKey, cfg.QdrantCollection, logger)
	default:
		return nil, apperrors.ConfigInvalid("unknown STORE_DRIVER " + cfg.StoreDriver)
	}
}

// Build validates cfg, loads the knowledge base and opens the store.
// The caller owns the returned App and must Close it.
func Build(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	if logger == nil {
		logger = zap.NewNop()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		logger.Warn("unknown timezone, falling back to UTC", zap.String("timezone", cfg.Timezone), zap.Error(err))
		loc = time.UTC
	}

	def, err := config.LoadKnowledgeBase(cfg.KnowledgeBasePath)
	if err != nil {
		return nil, apperrors.ConfigInvalid(err.Error())
	}
	kb, err := services.NewKnowledgeBase(def, logger)
	if err != nil {
		return nil, err
	}

	store, err := OpenStore(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s result store: %w", cfg.StoreDriver, err)
	}
	logger.Info("result store ready", zap.String("driver", cfg.StoreDriver))

	monitoring := services.NewMonitoringService(loc, logger)
	stats := services.NewStatisticsService(store, kb)

	return &App{
		Config:     cfg,
		Logger:     logger,
		KB:         kb,
		Store:      store,
		Monitoring: monitoring,
		Diagnosis:  services.NewDiagnosisService(kb, nil, store, monitoring, logger),
		Statistics: stats,
		Reports:    services.NewReportService(store, stats, loc),
	}, nil
}

// Router builds the gin engine over the App's services.
func (a *App) Router() *gin.Engine {
	return handlers.NewRouter(handlers.RouterDeps{
		Config:     a.Config,
		Logger:     a.Logger,
		Diagnosis:  a.Diagnosis,
		Statistics: a.Statistics,
		Reports:    a.Reports,
		Monitoring: a.Monitoring,
	})
}

// Close releases the result store.
func (a *App) Close() error {
	return a.Store.Close()
}
