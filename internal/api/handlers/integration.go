package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"airtrack/internal/syncer"
)

// IntegrationHandler manages the radio-automation platform connection:
// sync triggering, config updates and health.
type IntegrationHandler struct {
	sync *syncer.Service
}

func NewIntegrationHandler(sync *syncer.Service) *IntegrationHandler {
	return &IntegrationHandler{sync: sync}
}

// TriggerSync runs one reconciliation pass right now.
func (h *IntegrationHandler) TriggerSync(c *gin.Context) {
	var input struct {
		LookbackHours int `json:"lookback_hours"`
	}
	// Body is optional; default lookback applies when absent
	c.ShouldBindJSON(&input)

	summary, err := h.sync.Sync(input.LookbackHours)
	if err != nil {
		switch err {
		case syncer.ErrNotConfigured:
			c.JSON(http.StatusConflict, gin.H{"error": "Integration is not configured yet"})
		case syncer.ErrIntegrationPaused:
			c.JSON(http.StatusConflict, gin.H{"error": "Integration is paused"})
		default:
			c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		}
		return
	}

	c.JSON(http.StatusOK, summary)
}

// GetConfig returns the stored integration settings. The API key never
// leaves the server.
func (h *IntegrationHandler) GetConfig(c *gin.Context) {
	cfg, err := h.sync.Config()
	if err != nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "Integration is not configured"})
		return
	}
	c.JSON(http.StatusOK, cfg)
}

type configInput struct {
	BaseURL             string `json:"base_url" binding:"required,url"`
	APIKey              string `json:"api_key" binding:"required"`
	SyncIntervalMinutes int    `json:"sync_interval_minutes"`
	AutoSyncEnabled     *bool  `json:"auto_sync_enabled"`
}

// ValidateConfig checks a candidate URL/key against the platform without
// saving anything.
func (h *IntegrationHandler) ValidateConfig(c *gin.Context) {
	var input configInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	if err := h.sync.ValidateConfig(input.BaseURL, input.APIKey); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"valid": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"valid": true})
}

// UpdateConfig saves new connection settings. The new settings are probed
// first; if the platform rejects them, nothing is stored.
func (h *IntegrationHandler) UpdateConfig(c *gin.Context) {
	var input configInput
	if err := c.ShouldBindJSON(&input); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	autoSync := true
	if input.AutoSyncEnabled != nil {
		autoSync = *input.AutoSyncEnabled
	}

	cfg, err := h.sync.UpdateConfig(syncer.ConfigUpdate{
		BaseURL:             input.BaseURL,
		APIKey:              input.APIKey,
		SyncIntervalMinutes: input.SyncIntervalMinutes,
		AutoSyncEnabled:     autoSync,
	})
	if err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusOK, cfg)
}

// CheckHealth probes the platform and updates the health counters.
func (h *IntegrationHandler) CheckHealth(c *gin.Context) {
	if err := h.sync.CheckHealth(); err != nil {
		c.JSON(http.StatusBadGateway, gin.H{"healthy": false, "error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"healthy": true})
}

// Pause stops automatic and manual syncing until resumed.
func (h *IntegrationHandler) Pause(c *gin.Context) {
	if err := h.sync.Pause(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "paused"})
}

// Resume re-enables the integration and clears its error history.
func (h *IntegrationHandler) Resume(c *gin.Context) {
	if err := h.sync.Resume(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "active"})
}
