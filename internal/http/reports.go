package http

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/openshelf/circulate/internal/config"
	"github.com/openshelf/circulate/internal/database/reports"
)

// ReportsController serves the read-only reporting endpoints.
type ReportsController struct {
	reports *reports.Repository
	config  config.Reports
}

func NewReportsController(reportsRepo *reports.Repository, cfg config.Reports) *ReportsController {
	return &ReportsController{reports: reportsRepo, config: cfg}
}

func (controller *ReportsController) dateRange(c *gin.Context) reports.DateRange {
	return reports.NewDateRange(dateQuery(c, "start"), dateQuery(c, "end"))
}

// Summary handles GET /api/reports/summary.
func (controller *ReportsController) Summary(c *gin.Context) {
	summary, err := controller.reports.Summary(controller.dateRange(c), controller.config.RecentLoans)
	if err != nil {
		respondInternalError(c, err, "summary report")
		return
	}
	c.JSON(http.StatusOK, summary)
}

// Popular handles GET /api/reports/popular.
func (controller *ReportsController) Popular(c *gin.Context) {
	params := reports.PopularParams{
		Range:    controller.dateRange(c),
		Query:    c.Query("q"),
		Category: c.Query("category"),
		Sort:     c.DefaultQuery("sort", "count"),
		Order:    c.DefaultQuery("order", "desc"),
		Limit:    intQuery(c, "limit", 20),
	}

	ranked, err := controller.reports.Popular(params)
	if err != nil {
		respondInternalError(c, err, "popularity report")
		return
	}
	c.JSON(http.StatusOK, gin.H{"range": params.Range, "items": ranked})
}

// Categories handles GET /api/reports/categories.
func (controller *ReportsController) Categories(c *gin.Context) {
	params := reports.CategoryParams{
		Query:   c.Query("q"),
		Sort:    c.DefaultQuery("sort", "category"),
		Order:   c.DefaultQuery("order", "asc"),
		Page:    intQuery(c, "page", 1),
		PerPage: intQuery(c, "per_page", 10),
	}

	stats, total, err := controller.reports.Categories(params)
	if err != nil {
		respondInternalError(c, err, "category report")
		return
	}
	c.JSON(http.StatusOK, PageResponse{
		Items:   stats,
		Total:   total,
		Page:    params.Page,
		PerPage: params.PerPage,
	})
}

// Overdue handles GET /api/reports/overdue.
func (controller *ReportsController) Overdue(c *gin.Context) {
	params := reports.OverdueParams{
		Query:   c.Query("q"),
		Days:    intQuery(c, "days", controller.config.OverdueDays),
		Sort:    c.DefaultQuery("sort", "days_overdue"),
		Order:   c.DefaultQuery("order", "desc"),
		Page:    intQuery(c, "page", 1),
		PerPage: intQuery(c, "per_page", 10),
	}

	loans, total, err := controller.reports.Overdue(params, time.Now())
	if err != nil {
		respondInternalError(c, err, "overdue report")
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"items":    loans,
		"total":    total,
		"page":     params.Page,
		"per_page": params.PerPage,
		"days":     params.Days,
	})
}

// TimeSeries handles GET /api/reports/timeseries.
func (controller *ReportsController) TimeSeries(c *gin.Context) {
	series, err := controller.reports.TimeSeries(controller.dateRange(c))
	if err != nil {
		respondInternalError(c, err, "timeseries report")
		return
	}
	c.JSON(http.StatusOK, series)
}

// Dashboard handles GET /api/dashboard.
func (controller *ReportsController) Dashboard(c *gin.Context) {
	dashboard, err := controller.reports.Dashboard(controller.config.RecentLoans)
	if err != nil {
		respondInternalError(c, err, "dashboard")
		return
	}
	c.JSON(http.StatusOK, dashboard)
}
