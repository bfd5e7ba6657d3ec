package handlers

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"airtrack/internal/models"
	"airtrack/internal/playlog"
	"airtrack/internal/syncer"
)

// PlayLogHandler exposes the play log and the operator correction flow.
type PlayLogHandler struct {
	db   *gorm.DB
	sync *syncer.Service
}

func NewPlayLogHandler(db *gorm.DB, sync *syncer.Service) *PlayLogHandler {
	return &PlayLogHandler{db: db, sync: sync}
}

// ListPlays returns play log entries, newest first, paginated.
func (h *PlayLogHandler) ListPlays(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if limit <= 0 || limit > 500 {
		limit = 50
	}
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	query := h.db.Preload("Submission").Order("played_at DESC")

	if subID := c.Query("submission_id"); subID != "" {
		query = query.Where("submission_id = ?", subID)
	}
	if origin := c.Query("origin"); origin != "" {
		query = query.Where("origin = ?", origin)
	}

	var entries []models.PlayLogEntry
	if err := query.Limit(limit).Offset(offset).Find(&entries).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch play log"})
		return
	}
	c.JSON(http.StatusOK, entries)
}

// ListStaged returns staged automation events, filterable by status.
// The unmatched ones are what operators come here for.
func (h *PlayLogHandler) ListStaged(c *gin.Context) {
	query := h.db.Order("played_at DESC")
	if status := c.DefaultQuery("status", "unmatched"); status != "all" {
		query = query.Where("status = ?", status)
	}

	var staged []models.StagedPlayEvent
	if err := query.Limit(200).Find(&staged).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch staged events"})
		return
	}
	c.JSON(http.StatusOK, staged)
}

// Rematch retries attribution for all unmatched staged events.
func (h *PlayLogHandler) Rematch(c *gin.Context) {
	count, err := h.sync.Rematch()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"rematched": count})
}

// ManualLog records an operator-entered play for a submission.
func (h *PlayLogHandler) ManualLog(c *gin.Context) {
	var input struct {
		SubmissionID uint      `json:"submission_id" binding:"required"`
		PlayedAt     time.Time `json:"played_at" binding:"required"`
		DurationSecs int       `json:"duration_secs"`
		ShowName     string    `json:"show_name"`
		DJName       string    `json:"dj_name"`
		Note         string    `json:"note"`
	}
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	entry, err := h.sync.ManualLog(playlog.ManualEntry{
		SubmissionID: input.SubmissionID,
		PlayedAt:     input.PlayedAt,
		DurationSecs: input.DurationSecs,
		ShowName:     input.ShowName,
		DJName:       input.DJName,
		Note:         input.Note,
	})
	if err != nil {
		if err == syncer.ErrSubmissionMissing {
			c.JSON(http.StatusNotFound, gin.H{"error": "Submission not found"})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, entry)
}
