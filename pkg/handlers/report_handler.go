package handlers

import (
	"fmt"
	"net/http"

	"cfdiag-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// ReportHandler serves downloadable reports.
type ReportHandler struct {
	service *services.ReportService
}

// NewReportHandler creates a handler over service.
func NewReportHandler(service *services.ReportService) *ReportHandler {
	return &ReportHandler{service: service}
}

func sendReport(c *gin.Context, report services.Report) {
	c.Header("Content-Disposition", fmt.Sprintf(`attachment; filename="%s"`, report.Filename))
	c.Data(http.StatusOK, report.ContentType, report.Data)
}

// DownloadReport handles GET /download-report/:id?format=excel|pdf.
func (h *ReportHandler) DownloadReport(c *gin.Context) {
	format, err := services.ParseReportFormat(c.Query("format"))
	if err != nil {
		respondError(c, err)
		return
	}
	report, err := h.service.ResultReport(c.Request.Context(), c.Param("id"), format)
	if err != nil {
		respondError(c, err)
		return
	}
	sendReport(c, report)
}

// DownloadAllReports handles GET /download-all-reports?format=excel|pdf.
func (h *ReportHandler) DownloadAllReports(c *gin.Context) {
	format, err := services.ParseReportFormat(c.Query("format"))
	if err != nil {
		respondError(c, err)
		return
	}
	report, err := h.service.AllReports(c.Request.Context(), format)
	if err != nil {
		respondError(c, err)
		return
	}
	sendReport(c, report)
}
