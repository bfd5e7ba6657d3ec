package export

import (
	"bytes"
	"encoding/csv"
	"fmt"
	"log/slog"
	"strconv"
	"time"

	"gorm.io/gorm"

	"airtrack/internal/models"
	"airtrack/internal/storage"
)

// Exporter writes monthly airplay reports — the play log as rights
// organizations want to receive it — to the configured report store.
type Exporter struct {
	db      *gorm.DB
	storage *storage.Client
	loc     *time.Location
}

func New(db *gorm.DB, st *storage.Client, loc *time.Location) *Exporter {
	if loc == nil {
		loc = time.Local
	}
	return &Exporter{db: db, storage: st, loc: loc}
}

// ExportMonth renders every play in the given calendar month as CSV and
// uploads it. Returns the storage key of the report.
func (e *Exporter) ExportMonth(year int, month time.Month) (string, error) {
	start := time.Date(year, month, 1, 0, 0, 0, 0, e.loc)
	end := start.AddDate(0, 1, 0)

	var entries []models.PlayLogEntry
	err := e.db.Preload("Submission").
		Where("played_at >= ? AND played_at < ?", start, end).
		Order("played_at ASC").
		Find(&entries).Error
	if err != nil {
		return "", fmt.Errorf("loading play log: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)
	w.Write([]string{
		"played_at", "artist", "title", "isrc",
		"duration_secs", "origin", "time_slot", "show", "dj",
	})
	for i := range entries {
		entry := &entries[i]
		w.Write([]string{
			entry.PlayedAt.In(e.loc).Format(time.RFC3339),
			entry.Submission.Artist,
			entry.Submission.Title,
			entry.Submission.ISRC,
			strconv.Itoa(entry.DurationSecs),
			entry.Origin,
			entry.TimeSlot,
			entry.ShowName,
			entry.DJName,
		})
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return "", err
	}

	key := fmt.Sprintf("reports/airplay-%d-%02d.csv", year, int(month))
	if err := e.storage.PutReport(key, bytes.NewReader(buf.Bytes())); err != nil {
		return "", fmt.Errorf("uploading report: %w", err)
	}

	slog.Info("Airplay report exported", "key", key, "plays", len(entries))
	return key, nil
}
