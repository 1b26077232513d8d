package handlers

import (
	"crypto/subtle"
	"net/http"
	"time"

	config "cfdiag-api/configs"
	apperrors "cfdiag-api/internal/errors"
	"cfdiag-api/pkg/services"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// RouterDeps are the services the HTTP surface is built from.
type RouterDeps struct {
	Config     *config.Config
	Logger     *zap.Logger
	Diagnosis  *services.DiagnosisService
	Statistics *services.StatisticsService
	Reports    *services.ReportService
	Monitoring *services.MonitoringService
}

// authMiddleware requires X-API-KEY when an API key is configured.
func authMiddleware(apiKey string) gin.HandlerFunc {
	return func(c *gin.Context) {
		if apiKey == "" {
			c.Next()
			return
		}
		providedKey := c.GetHeader("X-API-KEY")
		if subtle.ConstantTimeCompare([]byte(providedKey), []byte(apiKey)) != 1 {
			c.AbortWithStatusJSON(http.StatusUnauthorized, ErrorResponse{Error: "Unauthorized", Code: apperrors.CodeUnauthorized})
			return
		}
		c.Next()
	}
}

func corsMiddleware(origins []string) gin.HandlerFunc {
	if len(origins) == 0 || (len(origins) == 1 && origins[0] == "*") {
		return cors.Default()
	}
	return cors.New(cors.Config{
		AllowOrigins:     origins,
		AllowMethods:     []string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions},
		AllowHeaders:     []string{"Origin", "Content-Type", "Accept", "X-API-KEY"},
		ExposeHeaders:    []string{"Content-Disposition"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	})
}

func recoveryMiddleware(logger *zap.Logger) gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered interface{}) {
		logger.Error("panic recovered", zap.Any("panic", recovered), zap.String("path", c.Request.URL.Path))
		c.AbortWithStatusJSON(http.StatusInternalServerError, ErrorResponse{Error: "internal server error", Code: apperrors.CodeInternalError})
	})
}

// NewRouter builds the gin engine with every route registered.
func NewRouter(d RouterDeps) *gin.Engine {
	logger := d.Logger
	if logger == nil {
		logger = zap.NewNop()
	}

	r := gin.New()
	r.Use(recoveryMiddleware(logger))
	r.Use(d.Monitoring.LoggingMiddleware())
	r.Use(corsMiddleware(d.Config.CORSAllowOrigins))

	diagnosisHandler := NewDiagnosisHandler(d.Diagnosis)
	statisticsHandler := NewStatisticsHandler(d.Statistics)
	reportHandler := NewReportHandler(d.Reports)
	adminHandler := NewAdminHandler(d.Config, logger)
	monitoringHandler := NewMonitoringHandler(d.Monitoring)

	r.GET("/health", adminHandler.HealthCheck)
	r.GET("/metrics", monitoringHandler.Metrics)

	v1 := r.Group("/api/v1")
	v1.Use(authMiddleware(d.Config.APIKey))
	{
		v1.GET("/hypotheses", diagnosisHandler.ListHypotheses)
		v1.GET("/questions/:hypothesisId", diagnosisHandler.GetQuestions)
		v1.GET("/cf-scale", diagnosisHandler.GetCFScale)
		v1.POST("/user-info", diagnosisHandler.SubmitUserInfo)
		v1.POST("/selected-hypothesis", diagnosisHandler.SelectHypothesis)
		v1.POST("/submit-questionnaire", diagnosisHandler.SubmitQuestionnaire)
		v1.GET("/result/:id", diagnosisHandler.GetResult)
		v1.DELETE("/result/:id", diagnosisHandler.DeleteResult)

		v1.GET("/statistics", statisticsHandler.GetStatistics)

		v1.GET("/download-report/:id", reportHandler.DownloadReport)
		v1.GET("/download-all-reports", reportHandler.DownloadAllReports)

		admin := v1.Group("/admin")
		{
			admin.GET("/health-status", adminHandler.GetHealthStatus)
			admin.POST("/maintenance/start", adminHandler.StartMaintenance)
			admin.POST("/maintenance/stop", adminHandler.StopMaintenance)
		}

		monitoring := v1.Group("/monitoring")
		{
			monitoring.GET("/logs", monitoringHandler.GetLogs)
		}
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, ErrorResponse{Error: "route not found", Code: apperrors.CodeNotFound})
	})
	return r
}
