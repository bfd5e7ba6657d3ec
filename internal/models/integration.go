package models

import "time"

// Integration health states
const (
	IntegrationActive = "active"
	IntegrationPaused = "paused"
	IntegrationError  = "error"
)

// IntegrationConfig holds the connection settings for the external
// radio-automation platform. There is ONE row in this table (ID=1).
// It is only mutated through the update operation, which validates the
// new URL/credential against the platform before saving anything.
type IntegrationConfig struct {
	ID      uint   `gorm:"primaryKey" json:"-"`
	BaseURL string `json:"base_url"`
	APIKey  string `json:"-"` // Never serialized to the API

	// The history-API shape that last worked, so the fetcher doesn't have
	// to re-probe every known variant on every sync.
	EndpointHint string `gorm:"type:varchar(40)" json:"endpoint_hint"`

	LastSyncAt          *time.Time `json:"last_sync_at"`
	SyncIntervalMinutes int        `gorm:"default:60" json:"sync_interval_minutes"`
	AutoSyncEnabled     bool       `gorm:"default:true" json:"auto_sync_enabled"`

	Status     string `gorm:"type:varchar(10);default:'active'" json:"status"`
	ErrorCount int    `json:"error_count"`
	LastError  string `json:"last_error"`

	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the default pluralization
func (IntegrationConfig) TableName() string {
	return "integration_config"
}
