package playlog

import (
	"encoding/json"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"airtrack/internal/automation"
	"airtrack/internal/models"
)

// Store persists play log entries. Sync-origin writes are idempotent on
// the automation platform's event id; manual writes always insert.
type Store struct {
	db  *gorm.DB
	loc *time.Location
}

func NewStore(db *gorm.DB, loc *time.Location) *Store {
	if loc == nil {
		loc = time.Local
	}
	return &Store{db: db, loc: loc}
}

// RecordSyncPlay inserts the entry for a resolved automation event unless
// one already exists for its external id. The unique index on
// (origin, external_event_id) plus ON CONFLICT DO NOTHING makes this safe
// even when two overlapping sync windows race each other: exactly one
// insert wins and the other collapses to a no-op.
// Returns true when a new row was created.
func (s *Store) RecordSyncPlay(submissionID uint, ev automation.RawPlayEvent, strategy string) (bool, error) {
	extID := ev.ExternalID
	entry := models.PlayLogEntry{
		SubmissionID:    submissionID,
		PlayedAt:        ev.PlayedAt,
		DurationSecs:    ev.DurationSecs,
		PlayType:        "radio",
		Origin:          "sync",
		ExternalEventID: &extID,
		TimeSlot:        SlotFor(ev.PlayedAt.In(s.loc)),
		ShowName:        ev.ShowName,
		DJName:          ev.DJName,
		Context:         syncContext(ev, strategy),
	}

	res := s.db.Clauses(clause.OnConflict{
		Columns:   []clause.Column{{Name: "origin"}, {Name: "external_event_id"}},
		DoNothing: true,
	}).Create(&entry)
	if res.Error != nil {
		return false, res.Error
	}
	return res.RowsAffected > 0, nil
}

// ManualEntry describes an operator correction. There is no external id,
// so nothing to deduplicate on: identical calls create identical rows.
type ManualEntry struct {
	SubmissionID uint
	PlayedAt     time.Time
	DurationSecs int
	ShowName     string
	DJName       string
	Note         string
}

// RecordManualPlay inserts a correction row. No existence check on purpose.
func (s *Store) RecordManualPlay(in ManualEntry) (*models.PlayLogEntry, error) {
	entry := models.PlayLogEntry{
		SubmissionID: in.SubmissionID,
		PlayedAt:     in.PlayedAt,
		DurationSecs: in.DurationSecs,
		PlayType:     "manual",
		Origin:       "manual",
		TimeSlot:     SlotFor(in.PlayedAt.In(s.loc)),
		ShowName:     in.ShowName,
		DJName:       in.DJName,
		Context:      manualContext(in),
	}
	if err := s.db.Create(&entry).Error; err != nil {
		return nil, err
	}
	return &entry, nil
}

func syncContext(ev automation.RawPlayEvent, strategy string) string {
	ctx := map[string]string{
		"match_strategy": strategy,
	}
	if ev.Filename != "" {
		ctx["source_filename"] = ev.Filename
	}
	if ev.ShowID != "" {
		ctx["show_id"] = ev.ShowID
	}
	blob, _ := json.Marshal(ctx)
	return string(blob)
}

func manualContext(in ManualEntry) string {
	if in.Note == "" {
		return ""
	}
	blob, _ := json.Marshal(map[string]string{"note": in.Note})
	return string(blob)
}
