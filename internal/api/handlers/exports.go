package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"

	"airtrack/internal/export"
	"airtrack/internal/storage"
)

// ExportHandler generates and lists monthly airplay reports.
type ExportHandler struct {
	exporter *export.Exporter
	storage  *storage.Client
}

func NewExportHandler(exporter *export.Exporter, st *storage.Client) *ExportHandler {
	return &ExportHandler{exporter: exporter, storage: st}
}

// ExportMonth generates the CSV airplay report for a calendar month and
// uploads it to the report store.
func (h *ExportHandler) ExportMonth(c *gin.Context) {
	year, err := strconv.Atoi(c.Param("year"))
	if err != nil || year < 2000 || year > 2100 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid year"})
		return
	}
	month, err := strconv.Atoi(c.Param("month"))
	if err != nil || month < 1 || month > 12 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid month"})
		return
	}

	key, err := h.exporter.ExportMonth(year, time.Month(month))
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{"key": key})
}

// ListReports returns the keys of all generated reports.
func (h *ExportHandler) ListReports(c *gin.Context) {
	keys, err := h.storage.ListReports()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"reports": keys})
}

// DownloadReport streams a stored report back to the caller.
func (h *ExportHandler) DownloadReport(c *gin.Context) {
	key := "reports/" + c.Param("name")

	obj, err := h.storage.GetReport(key)
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Report not found"})
		return
	}
	defer obj.Body.Close()

	c.Header("Content-Disposition", "attachment; filename="+c.Param("name"))
	c.DataFromReader(http.StatusOK, obj.ContentLength, "text/csv", obj.Body, nil)
}
