package models

import "time"

// PlayStatistics is a materialized view over PlayLogEntry: one row per
// submission, entirely recomputed by the aggregator. It must never be
// patched independently of the underlying log rows.
type PlayStatistics struct {
	ID           uint `gorm:"primaryKey" json:"-"`
	SubmissionID uint `gorm:"uniqueIndex;not null" json:"submission_id"`

	TotalPlays int `json:"total_plays"`

	// Rolling windows, relative to "now" at aggregation time. The same
	// historical play can shift between windows across runs.
	PlaysWeek  int `json:"plays_week"`
	PlaysMonth int `json:"plays_month"`
	PlaysYear  int `json:"plays_year"`

	// -1 when the submission has no plays yet
	PeakHour    int `json:"peak_hour"`    // 0-23
	PeakWeekday int `json:"peak_weekday"` // 0=Sunday .. 6=Saturday

	LastPlayedAt *time.Time `json:"last_played_at"`
	LastShow     string     `json:"last_show"`
	LastDJ       string     `json:"last_dj"`

	UpdatedAt time.Time `json:"updated_at"`
}

// TableName overrides the default pluralization
func (PlayStatistics) TableName() string {
	return "play_statistics"
}
