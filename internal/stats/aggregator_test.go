package stats

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"airtrack/internal/models"
)

// SetupInMemoryDB creates a throwaway DB for testing
func SetupInMemoryDB(t *testing.T) *gorm.DB {
	d, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open in-memory DB: %v", err)
	}
	d.AutoMigrate(&models.PlayLogEntry{}, &models.PlayStatistics{})
	return d
}

func seedEntry(t *testing.T, db *gorm.DB, subID uint, playedAt time.Time, show, dj string) {
	entry := models.PlayLogEntry{
		SubmissionID: subID,
		PlayedAt:     playedAt,
		Origin:       "manual",
		ShowName:     show,
		DJName:       dj,
	}
	if err := db.Create(&entry).Error; err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
}

func TestRecompute_TotalsAndWindows(t *testing.T) {
	db := SetupInMemoryDB(t)
	now := time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

	// 2 plays inside the week, 1 more inside the month, 1 more inside the
	// year, 1 ancient play outside every window.
	seedEntry(t, db, 1, now.Add(-2*time.Hour), "Drive", "Mo")
	seedEntry(t, db, 1, now.AddDate(0, 0, -3), "", "")
	seedEntry(t, db, 1, now.AddDate(0, 0, -20), "", "")
	seedEntry(t, db, 1, now.AddDate(0, -6, 0), "", "")
	seedEntry(t, db, 1, now.AddDate(-3, 0, 0), "", "")

	agg := New(db, time.UTC).WithClock(func() time.Time { return now })
	if err := agg.Recompute(1); err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}

	var stat models.PlayStatistics
	if err := db.Where("submission_id = ?", 1).First(&stat).Error; err != nil {
		t.Fatalf("No statistics row: %v", err)
	}

	if stat.TotalPlays != 5 {
		t.Errorf("TotalPlays = %d, want 5", stat.TotalPlays)
	}
	if stat.PlaysWeek != 2 {
		t.Errorf("PlaysWeek = %d, want 2", stat.PlaysWeek)
	}
	if stat.PlaysMonth != 3 {
		t.Errorf("PlaysMonth = %d, want 3", stat.PlaysMonth)
	}
	if stat.PlaysYear != 4 {
		t.Errorf("PlaysYear = %d, want 4", stat.PlaysYear)
	}
	if stat.LastPlayedAt == nil || !stat.LastPlayedAt.Equal(now.Add(-2*time.Hour)) {
		t.Errorf("LastPlayedAt = %v, want %v", stat.LastPlayedAt, now.Add(-2*time.Hour))
	}
	if stat.LastShow != "Drive" || stat.LastDJ != "Mo" {
		t.Errorf("Last attribution = %q/%q, want Drive/Mo", stat.LastShow, stat.LastDJ)
	}
}

func TestRecompute_PeakHourAndWeekday(t *testing.T) {
	db := SetupInMemoryDB(t)

	// Two plays at 09:xx on a Monday, one at 18:xx on a Tuesday
	monday := time.Date(2024, 6, 3, 9, 5, 0, 0, time.UTC) // Mon
	seedEntry(t, db, 2, monday, "", "")
	seedEntry(t, db, 2, monday.Add(30*time.Minute), "", "")
	seedEntry(t, db, 2, time.Date(2024, 6, 4, 18, 0, 0, 0, time.UTC), "", "")

	agg := New(db, time.UTC)
	if err := agg.Recompute(2); err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}

	var stat models.PlayStatistics
	db.Where("submission_id = ?", 2).First(&stat)

	if stat.PeakHour != 9 {
		t.Errorf("PeakHour = %d, want 9", stat.PeakHour)
	}
	if stat.PeakWeekday != int(time.Monday) {
		t.Errorf("PeakWeekday = %d, want %d (Monday)", stat.PeakWeekday, int(time.Monday))
	}
}

func TestRecompute_IsAPureFunctionOfTheLog(t *testing.T) {
	db := SetupInMemoryDB(t)
	now := time.Now().UTC()

	seedEntry(t, db, 3, now.Add(-time.Hour), "", "")
	agg := New(db, time.UTC)

	// Poison the statistics row, then recompute: the view must heal.
	db.Create(&models.PlayStatistics{SubmissionID: 3, TotalPlays: 999, PeakHour: 5})
	if err := agg.Recompute(3); err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}

	var stat models.PlayStatistics
	db.Where("submission_id = ?", 3).First(&stat)

	var logCount int64
	db.Model(&models.PlayLogEntry{}).Where("submission_id = ?", 3).Count(&logCount)

	if int64(stat.TotalPlays) != logCount {
		t.Errorf("TotalPlays = %d, want %d (count of log rows)", stat.TotalPlays, logCount)
	}
}

func TestRecompute_NoPlays(t *testing.T) {
	db := SetupInMemoryDB(t)

	agg := New(db, time.UTC)
	if err := agg.Recompute(42); err != nil {
		t.Fatalf("Recompute failed: %v", err)
	}

	var stat models.PlayStatistics
	db.Where("submission_id = ?", 42).First(&stat)

	if stat.TotalPlays != 0 || stat.PeakHour != -1 || stat.PeakWeekday != -1 || stat.LastPlayedAt != nil {
		t.Errorf("Empty submission should yield a zeroed row with -1 peaks, got %+v", stat)
	}
}

func TestReconcileAll(t *testing.T) {
	db := SetupInMemoryDB(t)
	now := time.Now().UTC()

	seedEntry(t, db, 1, now.Add(-time.Hour), "", "")
	seedEntry(t, db, 2, now.Add(-2*time.Hour), "", "")
	seedEntry(t, db, 2, now.Add(-3*time.Hour), "", "")

	n, err := New(db, time.UTC).ReconcileAll()
	if err != nil {
		t.Fatalf("ReconcileAll failed: %v", err)
	}
	if n != 2 {
		t.Errorf("Expected 2 submissions reconciled, got %d", n)
	}

	var count int64
	db.Model(&models.PlayStatistics{}).Count(&count)
	if count != 2 {
		t.Errorf("Expected 2 statistics rows, got %d", count)
	}
}
