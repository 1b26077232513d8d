package handlers

import (
	"net/http"

	"cfdiag-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// StatisticsHandler serves the aggregated dashboard statistics.
type StatisticsHandler struct {
	service *services.StatisticsService
}

// NewStatisticsHandler creates a handler over service.
func NewStatisticsHandler(service *services.StatisticsService) *StatisticsHandler {
	return &StatisticsHandler{service: service}
}

// GetStatistics handles GET /statistics.
func (h *StatisticsHandler) GetStatistics(c *gin.Context) {
	st, err := h.service.Compute(c.Request.Context())
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, st)
}
