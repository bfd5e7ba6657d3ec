package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"airtrack/internal/models"
	"airtrack/internal/stats"
)

// StatsHandler exposes per-submission statistics and catalog-wide views.
type StatsHandler struct {
	db  *gorm.DB
	loc *time.Location
}

func NewStatsHandler(db *gorm.DB, loc *time.Location) *StatsHandler {
	return &StatsHandler{db: db, loc: loc}
}

// GetSubmissionStats returns the aggregated statistics for one submission.
// A submission with no plays yet gets an empty-but-valid row back.
func (h *StatsHandler) GetSubmissionStats(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return
	}

	var sub models.Submission
	if err := h.db.First(&sub, id).Error; err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
		return
	}

	var row models.PlayStatistics
	if err := h.db.Where("submission_id = ?", sub.ID).First(&row).Error; err != nil {
		// Never played yet: report zeros rather than a 404
		row = models.PlayStatistics{
			SubmissionID: sub.ID,
			PeakHour:     -1,
			PeakWeekday:  -1,
		}
	}

	c.JSON(http.StatusOK, row)
}

// Leaderboard returns the most-played submissions over a window.
func (h *StatsHandler) Leaderboard(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "20"))
	if limit <= 0 || limit > 100 {
		limit = 20
	}

	orderCol := "total_plays"
	switch c.DefaultQuery("window", "all") {
	case "week":
		orderCol = "plays_week"
	case "month":
		orderCol = "plays_month"
	case "year":
		orderCol = "plays_year"
	}

	type leaderboardRow struct {
		models.PlayStatistics
		Title  string `json:"title"`
		Artist string `json:"artist"`
	}

	var rows []leaderboardRow
	err := h.db.Model(&models.PlayStatistics{}).
		Select("play_statistics.*, submissions.title, submissions.artist").
		Joins("JOIN submissions ON submissions.id = play_statistics.submission_id").
		Where(orderCol + " > 0").
		Order(orderCol + " DESC").
		Limit(limit).
		Scan(&rows).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to build leaderboard"})
		return
	}

	c.JSON(http.StatusOK, rows)
}

// Reconcile recomputes every statistics row from the play log. Heavy;
// admin-only. The normal sync path keeps stats fresh incrementally, so
// this exists for recovery after manual database surgery.
func (h *StatsHandler) Reconcile(c *gin.Context) {
	count, err := stats.New(h.db, h.loc).ReconcileAll()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"recomputed": count})
}
