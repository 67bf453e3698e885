// internal/handlers/report.go
package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"

	"github.com/javajoker/eco-backend/internal/services"
	"github.com/javajoker/eco-backend/internal/utils"
)

const defaultTrendDays = 30

type ReportHandler struct {
	reportService *services.ReportService
}

func NewReportHandler(reportService *services.ReportService) *ReportHandler {
	return &ReportHandler{reportService: reportService}
}

// GET /dashboard/stats
func (h *ReportHandler) GetDashboardStats(c *gin.Context) {
	stats, err := h.reportService.DashboardStats(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, stats)
}

// GET /reports/eco-summary
func (h *ReportHandler) GetECOSummary(c *gin.Context) {
	summary, err := h.reportService.ECOSummary(c.Request.Context())
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, summary)
}

// GET /reports/eco-trend?days=
func (h *ReportHandler) GetECOTrend(c *gin.Context) {
	days := defaultTrendDays
	if raw := c.Query("days"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil {
			utils.BadRequestResponse(c, "days must be an integer", nil)
			return
		}
		days = parsed
	}

	points, err := h.reportService.ECOTrend(c.Request.Context(), days)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	utils.SuccessResponse(c, points)
}

// GET /reports/ecos/export?format=xlsx|csv
func (h *ReportHandler) ExportECOs(c *gin.Context) {
	filter := services.ECOFilter{
		Status:    c.Query("status"),
		Type:      c.Query("type"),
		ProductID: c.Query("productId"),
	}

	file, err := h.reportService.ExportECOs(c.Request.Context(), c.Query("format"), filter)
	if err != nil {
		utils.HandleError(c, err)
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+file.FileName)
	c.Data(http.StatusOK, file.ContentType, file.Data)
}
