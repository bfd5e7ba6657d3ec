package handlers

import (
	"bytes"
	"io"
	"net/http"
	"strconv"
	"strings"

	"github.com/dhowden/tag"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"

	"airtrack/internal/models"
	"airtrack/internal/syncer"
	"airtrack/internal/utils"
)

// SubmissionHandler manages the submission catalog that plays are
// attributed against.
type SubmissionHandler struct {
	db   *gorm.DB
	sync *syncer.Service
}

func NewSubmissionHandler(db *gorm.DB, sync *syncer.Service) *SubmissionHandler {
	return &SubmissionHandler{db: db, sync: sync}
}

// ListSubmissions returns the catalog, optionally filtered by status or
// a free-text search over artist/title.
func (h *SubmissionHandler) ListSubmissions(c *gin.Context) {
	var subs []models.Submission
	query := h.db.Order("created_at DESC")

	if status := c.Query("status"); status != "" {
		query = query.Where("status = ?", status)
	}
	if q := c.Query("q"); q != "" {
		pattern := "%" + q + "%"
		query = query.Where("LOWER(title) LIKE LOWER(?) OR LOWER(artist) LIKE LOWER(?)", pattern, pattern)
	}

	if err := query.Find(&subs).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to fetch submissions"})
		return
	}
	c.JSON(http.StatusOK, subs)
}

// GetSubmission returns a single submission with its statistics attached.
func (h *SubmissionHandler) GetSubmission(c *gin.Context) {
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

	var stats models.PlayStatistics
	h.db.Where("submission_id = ?", sub.ID).First(&stats)

	c.JSON(http.StatusOK, gin.H{"submission": sub, "statistics": stats})
}

type submissionInput struct {
	Title        string  `json:"title" binding:"required"`
	Artist       string  `json:"artist" binding:"required"`
	Album        string  `json:"album"`
	Genre        string  `json:"genre"`
	Year         string  `json:"year"`
	ISRC         string  `json:"isrc"`
	Filename     string  `json:"filename"`
	Duration     float64 `json:"duration"`
	ContactEmail string  `json:"contact_email"`
}

// CreateSubmission adds a track to the catalog and immediately retries
// any staged play events that never matched, since the newcomer may be
// exactly what they were waiting for.
func (h *SubmissionHandler) CreateSubmission(c *gin.Context) {
	var input submissionInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	sub := models.Submission{
		Title:        strings.TrimSpace(input.Title),
		Artist:       strings.TrimSpace(input.Artist),
		Album:        input.Album,
		Genre:        input.Genre,
		Year:         input.Year,
		ISRC:         input.ISRC,
		Filename:     input.Filename,
		Duration:     input.Duration,
		ContactEmail: input.ContactEmail,
		Status:       "active",
	}
	if err := h.db.Create(&sub).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to create submission"})
		return
	}

	rematched, err := h.sync.Rematch()
	if err != nil {
		// The submission exists; a failed rematch pass is not fatal here
		c.JSON(http.StatusCreated, gin.H{"submission": sub, "rematch_error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"submission": sub, "rematched_plays": rematched})
}

// UpdateSubmission edits catalog metadata.
func (h *SubmissionHandler) UpdateSubmission(c *gin.Context) {
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

	var input map[string]any
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	// Whitelist editable columns
	allowed := map[string]bool{
		"title": true, "artist": true, "album": true, "genre": true,
		"year": true, "isrc": true, "filename": true, "duration": true,
		"contact_email": true, "status": true,
	}
	updates := map[string]any{}
	for k, v := range input {
		if allowed[k] {
			updates[k] = v
		}
	}

	if err := h.db.Model(&sub).Updates(updates).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update submission"})
		return
	}
	c.JSON(http.StatusOK, sub)
}

// DeleteSubmission removes a track and everything derived from it: its
// play log rows and its statistics row go with it.
func (h *SubmissionHandler) DeleteSubmission(c *gin.Context) {
	id, err := strconv.Atoi(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid submission ID"})
		return
	}

	err = h.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Where("submission_id = ?", id).Delete(&models.PlayLogEntry{}).Error; err != nil {
			return err
		}
		if err := tx.Where("submission_id = ?", id).Delete(&models.PlayStatistics{}).Error; err != nil {
			return err
		}
		return tx.Delete(&models.Submission{}, id).Error
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to delete submission"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"message": "Submission deleted"})
}

// AnalyzeUpload reads the tags out of an uploaded audio file and returns
// prefilled submission metadata, so operators don't type ISRCs by hand.
func (h *SubmissionHandler) AnalyzeUpload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file provided"})
		return
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to read file"})
		return
	}

	m, err := tag.ReadFrom(bytes.NewReader(data))
	if err != nil {
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": "Unreadable or untagged audio file"})
		return
	}

	// Untagged files still get a usable title guess from the filename
	title := m.Title()
	if title == "" {
		title = utils.CleanFilename(header.Filename)
	}

	year := ""
	if m.Year() > 0 {
		year = strconv.Itoa(m.Year())
	}

	// ISRC lives in the TSRC frame for ID3, not in the common tag set
	isrc := ""
	if raw, ok := m.Raw()["TSRC"]; ok {
		if s, ok := raw.(string); ok {
			isrc = s
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"title":    title,
		"artist":   m.Artist(),
		"album":    m.Album(),
		"genre":    m.Genre(),
		"year":     year,
		"isrc":     isrc,
		"filename": header.Filename,
	})
}
