package models

import (
	"time"

	"gorm.io/gorm"
)

// PlayLogEntry records a single confirmed broadcast of a submission.
// Rows are append-only: they are never updated after creation and are
// deleted only when the owning submission is deleted.
type PlayLogEntry struct {
	gorm.Model
	SubmissionID uint       `gorm:"index;not null" json:"submission_id"`
	Submission   Submission `json:"-"`

	PlayedAt     time.Time `gorm:"index" json:"played_at"`
	DurationSecs int       `json:"duration_secs"`

	// "radio" for automation-reported plays, "manual" for operator corrections
	PlayType string `json:"play_type" gorm:"type:varchar(20);default:'radio'"`

	// "sync" rows carry the automation platform's own event id, which acts
	// as the dedup key. The composite unique index is what makes sync
	// idempotent even when two overlapping windows run at the same time.
	// Manual rows have a NULL external id and are never deduplicated.
	Origin          string  `gorm:"type:varchar(10);not null;uniqueIndex:idx_play_log_dedup" json:"origin"`
	ExternalEventID *string `gorm:"uniqueIndex:idx_play_log_dedup" json:"external_event_id"`

	// Derived part-of-day label ("Morning", "Afternoon", "Evening", "Late Night")
	TimeSlot string `gorm:"type:varchar(20)" json:"time_slot"`

	// Broadcast context
	ShowName string `json:"show_name"`
	DJName   string `json:"dj_name"`
	Context  string `gorm:"type:text" json:"context"` // Arbitrary extra context, JSON-encoded
}

// StagedPlayEvent keeps every event the automation platform reported,
// whether or not it could be attributed. Unmatched rows stay around so
// they can be re-matched after new submissions arrive, instead of
// vanishing without a trace.
type StagedPlayEvent struct {
	gorm.Model
	ExternalEventID string    `gorm:"uniqueIndex;not null" json:"external_event_id"`
	PlayedAt        time.Time `gorm:"index" json:"played_at"`
	DurationSecs    int       `json:"duration_secs"`

	Artist   string `json:"artist"`
	Title    string `json:"title"`
	Filename string `json:"filename"`
	ISRC     string `json:"isrc"`
	ShowID   string `json:"show_id"`
	ShowName string `json:"show_name"`
	DJName   string `json:"dj_name"`

	Status              string `gorm:"type:varchar(12);index;default:'unmatched'" json:"status"` // "matched" or "unmatched"
	MatchedSubmissionID *uint  `gorm:"index" json:"matched_submission_id"`
	MatchStrategy       string `gorm:"type:varchar(20)" json:"match_strategy"` // "isrc", "filename", "artist_title", "title"
}
