package models

import "gorm.io/gorm"

// Submission represents a piece of music submitted to the station for airplay
type Submission struct {
	gorm.Model

	// Core Metadata
	Title  string `gorm:"index" json:"title"`
	Artist string `gorm:"index" json:"artist"`
	Album  string `json:"album"`
	Genre  string `json:"genre"`
	Year   string `json:"year"`

	// Identifiers used by the attribution matcher
	ISRC     string `gorm:"index" json:"isrc"`     // e.g., "USGPH2400001"
	Filename string `gorm:"index" json:"filename"` // The file as loaded into the automation system

	// Tech Details
	Duration float64 `json:"duration"` // In seconds

	// Submitter
	ContactEmail string `json:"contact_email"`

	Status string `gorm:"type:varchar(20);default:'active'" json:"status"`
}
