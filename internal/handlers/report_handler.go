package handlers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/nazhim/markaz-api/internal/services"
)

type ReportHandler struct {
	reportService *services.ReportService
	exportService *services.ExportService
}

func NewReportHandler(reportService *services.ReportService, exportService *services.ExportService) *ReportHandler {
	return &ReportHandler{reportService: reportService, exportService: exportService}
}

// @Summary Monthly Ledger Report
// @Description Ledger totals for a Hijri month, with per-vehicle fuel breakdown
// @Tags Reports
// @Produce json
// @Param year query int true "Hijri year (AH)"
// @Param month query int true "Hijri month (1-12)"
// @Success 200 {object} services.MonthlyLedgerReport
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /reports/monthly_ledger [get]
func (h *ReportHandler) MonthlyLedger(c *gin.Context) {
	year, _ := strconv.Atoi(c.Query("year"))
	month, _ := strconv.Atoi(c.Query("month"))

	report, err := h.reportService.MonthlyLedgerReportFor(c.Request.Context(), year, month)
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// @Summary Spending Report
// @Description Funded tasks of a Gregorian month with settlement summaries, plus unfunded tasks created in it
// @Tags Reports
// @Produce json
// @Param year query int true "Year (YYYY)"
// @Param month query int true "Month (1-12)"
// @Success 200 {object} services.SpendingReport
// @Failure 422 {object} map[string]interface{}
// @Security BearerAuth
// @Router /reports/spending [get]
func (h *ReportHandler) Spending(c *gin.Context) {
	year, _ := strconv.Atoi(c.Query("year"))
	month, _ := strconv.Atoi(c.Query("month"))

	report, err := h.reportService.SpendingReportFor(c.Request.Context(), year, time.Month(month))
	if err != nil {
		respondError(c, err)
		return
	}
	c.JSON(http.StatusOK, report)
}

// @Summary Export Monthly Ledger Report
// @Description Download the Hijri month ledger report as CSV or XLSX
// @Tags Reports
// @Produce application/octet-stream
// @Param year query int true "Hijri year (AH)"
// @Param month query int true "Hijri month (1-12)"
// @Param format query string true "Export format (csv, xlsx)"
// @Success 200 {file} binary
// @Failure 400 {object} map[string]string
// @Security BearerAuth
// @Router /reports/monthly_ledger/export [get]
func (h *ReportHandler) ExportMonthlyLedger(c *gin.Context) {
	year, _ := strconv.Atoi(c.Query("year"))
	month, _ := strconv.Atoi(c.Query("month"))
	format := c.Query("format")

	var (
		data     []byte
		filename string
		err      error
	)
	switch format {
	case "csv":
		data, filename, err = h.exportService.MonthlyLedgerCSV(c.Request.Context(), year, month)
	case "xlsx":
		data, filename, err = h.exportService.MonthlyLedgerXLSX(c.Request.Context(), year, month)
	default:
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid format (csv, xlsx)"})
		return
	}
	if err != nil {
		respondError(c, err)
		return
	}

	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%s", filename))
	c.Data(http.StatusOK, "application/octet-stream", data)
}
