package export

import (
	"encoding/csv"
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"airtrack/internal/models"
	"airtrack/internal/storage"
)

func TestExportMonth(t *testing.T) {
	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open in-memory DB: %v", err)
	}
	db.AutoMigrate(&models.Submission{}, &models.PlayLogEntry{})

	sub := models.Submission{Title: "Midnight Dub", Artist: "Deep Current", ISRC: "USGPH2400001"}
	db.Create(&sub)

	db.Create(&models.PlayLogEntry{
		SubmissionID: sub.ID,
		PlayedAt:     time.Date(2024, 6, 1, 9, 15, 0, 0, time.UTC),
		DurationSecs: 212,
		Origin:       "sync",
		TimeSlot:     "Morning",
		ShowName:     "Morning Haze",
	})
	// Outside the requested month, must not appear
	db.Create(&models.PlayLogEntry{
		SubmissionID: sub.ID,
		PlayedAt:     time.Date(2024, 7, 2, 9, 0, 0, 0, time.UTC),
		Origin:       "sync",
	})

	store := storage.NewWithProvider(storage.NewLocalProvider(t.TempDir()), "airplay-reports")
	exporter := New(db, store, time.UTC)

	key, err := exporter.ExportMonth(2024, time.June)
	if err != nil {
		t.Fatalf("ExportMonth failed: %v", err)
	}
	if key != "reports/airplay-2024-06.csv" {
		t.Errorf("Unexpected report key %q", key)
	}

	obj, err := store.GetReport(key)
	if err != nil {
		t.Fatalf("Report not stored: %v", err)
	}
	defer obj.Body.Close()

	rows, err := csv.NewReader(obj.Body).ReadAll()
	if err != nil {
		t.Fatalf("Report is not valid CSV: %v", err)
	}

	// Header + exactly one June play
	if len(rows) != 2 {
		t.Fatalf("Expected 2 CSV rows, got %d", len(rows))
	}
	if rows[1][1] != "Deep Current" || rows[1][2] != "Midnight Dub" || rows[1][3] != "USGPH2400001" {
		t.Errorf("Play row mapped wrong: %v", rows[1])
	}
}
