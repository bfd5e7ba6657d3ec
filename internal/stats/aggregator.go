package stats

import (
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"airtrack/internal/models"
)

// Aggregator recomputes play statistics from the play log. Each row it
// writes is a pure function of the log rows for that submission at the
// moment of the pass; nothing else may touch the statistics table.
type Aggregator struct {
	db  *gorm.DB
	loc *time.Location

	// Overridable clock so window math is testable
	now func() time.Time
}

func New(db *gorm.DB, loc *time.Location) *Aggregator {
	if loc == nil {
		loc = time.Local
	}
	return &Aggregator{db: db, loc: loc, now: time.Now}
}

// WithClock swaps the time source. Test hook.
func (a *Aggregator) WithClock(now func() time.Time) *Aggregator {
	a.now = now
	return a
}

// Recompute rebuilds the statistics rows for the given submissions.
// Cost is proportional to each submission's play history, so the syncer
// calls this with only the submissions touched by the batch.
func (a *Aggregator) Recompute(submissionIDs ...uint) error {
	for _, id := range submissionIDs {
		if err := a.recomputeOne(id); err != nil {
			return err
		}
	}
	return nil
}

// ReconcileAll recomputes every submission that has at least one play.
// This is the infrequent drift-correction pass, not the per-sync path.
func (a *Aggregator) ReconcileAll() (int, error) {
	var ids []uint
	err := a.db.Model(&models.PlayLogEntry{}).
		Distinct("submission_id").
		Pluck("submission_id", &ids).Error
	if err != nil {
		return 0, err
	}
	if err := a.Recompute(ids...); err != nil {
		return 0, err
	}
	return len(ids), nil
}

func (a *Aggregator) recomputeOne(submissionID uint) error {
	var entries []models.PlayLogEntry
	err := a.db.Where("submission_id = ?", submissionID).
		Order("played_at ASC").
		Find(&entries).Error
	if err != nil {
		return err
	}

	now := a.now()
	weekCutoff := now.AddDate(0, 0, -7)
	monthCutoff := now.AddDate(0, -1, 0)
	yearCutoff := now.AddDate(-1, 0, 0)

	stat := models.PlayStatistics{
		SubmissionID: submissionID,
		TotalPlays:   len(entries),
		PeakHour:     -1,
		PeakWeekday:  -1,
	}

	var hourCounts [24]int
	var dayCounts [7]int

	for i := range entries {
		e := &entries[i]

		// Rolling windows are measured against "now", so an old play can
		// drift out of a window between runs. That is intentional.
		if e.PlayedAt.After(weekCutoff) {
			stat.PlaysWeek++
		}
		if e.PlayedAt.After(monthCutoff) {
			stat.PlaysMonth++
		}
		if e.PlayedAt.After(yearCutoff) {
			stat.PlaysYear++
		}

		local := e.PlayedAt.In(a.loc)
		hourCounts[local.Hour()]++
		dayCounts[int(local.Weekday())]++

		// Entries are scanned oldest-first, so the last one wins
		playedAt := e.PlayedAt
		stat.LastPlayedAt = &playedAt
		stat.LastShow = e.ShowName
		stat.LastDJ = e.DJName
	}

	if len(entries) > 0 {
		// Ties break toward the smaller hour/weekday, so repeated passes
		// over the same data always report the same peak.
		stat.PeakHour = argmax(hourCounts[:])
		stat.PeakWeekday = argmax(dayCounts[:])
	}

	return a.db.Clauses(clause.OnConflict{
		Columns: []clause.Column{{Name: "submission_id"}},
		DoUpdates: clause.AssignmentColumns([]string{
			"total_plays", "plays_week", "plays_month", "plays_year",
			"peak_hour", "peak_weekday",
			"last_played_at", "last_show", "last_dj", "updated_at",
		}),
	}).Create(&stat).Error
}

func argmax(counts []int) int {
	best := 0
	for i, c := range counts {
		if c > counts[best] {
			best = i
		}
	}
	return best
}
