package playlog

import (
	"testing"
	"time"

	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"airtrack/internal/automation"
	"airtrack/internal/models"
)

// SetupInMemoryDB creates a throwaway DB for testing
func SetupInMemoryDB(t *testing.T) *gorm.DB {
	d, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("Failed to open in-memory DB: %v", err)
	}
	d.AutoMigrate(&models.Submission{}, &models.PlayLogEntry{})
	return d
}

func TestRecordSyncPlay_Dedup(t *testing.T) {
	db := SetupInMemoryDB(t)
	store := NewStore(db, time.UTC)

	ev := automation.RawPlayEvent{
		ExternalID: "ext-1",
		PlayedAt:   time.Date(2024, 6, 1, 9, 15, 0, 0, time.UTC),
		Artist:     "Deep Current",
		Title:      "Midnight Dub",
	}

	created, err := store.RecordSyncPlay(1, ev, "isrc")
	if err != nil {
		t.Fatalf("First insert failed: %v", err)
	}
	if !created {
		t.Fatal("First insert should create a row")
	}

	// Same external event again (e.g. overlapping sync windows)
	created, err = store.RecordSyncPlay(1, ev, "isrc")
	if err != nil {
		t.Fatalf("Duplicate insert errored: %v", err)
	}
	if created {
		t.Error("Duplicate external event id must collapse to a no-op")
	}

	var count int64
	db.Model(&models.PlayLogEntry{}).Count(&count)
	if count != 1 {
		t.Errorf("Expected exactly 1 row, got %d", count)
	}
}

func TestRecordSyncPlay_DerivesTimeSlot(t *testing.T) {
	db := SetupInMemoryDB(t)
	store := NewStore(db, time.UTC)

	ev := automation.RawPlayEvent{
		ExternalID: "ext-2",
		PlayedAt:   time.Date(2024, 6, 1, 18, 30, 0, 0, time.UTC),
		ShowName:   "Evening Drive",
		DJName:     "Mo",
	}

	if _, err := store.RecordSyncPlay(7, ev, "title"); err != nil {
		t.Fatalf("Insert failed: %v", err)
	}

	var entry models.PlayLogEntry
	db.First(&entry)
	if entry.TimeSlot != SlotEvening {
		t.Errorf("Expected time slot %q, got %q", SlotEvening, entry.TimeSlot)
	}
	if entry.Origin != "sync" || entry.ExternalEventID == nil || *entry.ExternalEventID != "ext-2" {
		t.Errorf("Sync row missing origin/external id: %+v", entry)
	}
	if entry.ShowName != "Evening Drive" || entry.DJName != "Mo" {
		t.Errorf("Broadcast context not carried over: %+v", entry)
	}
}

func TestRecordManualPlay_BypassesDedup(t *testing.T) {
	db := SetupInMemoryDB(t)
	store := NewStore(db, time.UTC)

	in := ManualEntry{
		SubmissionID: 3,
		PlayedAt:     time.Date(2024, 6, 2, 23, 0, 0, 0, time.UTC),
		DurationSecs: 200,
		DJName:       "Mo",
		Note:         "missed by automation export",
	}

	// Two identical manual entries are two real rows
	if _, err := store.RecordManualPlay(in); err != nil {
		t.Fatalf("First manual insert failed: %v", err)
	}
	if _, err := store.RecordManualPlay(in); err != nil {
		t.Fatalf("Second manual insert failed: %v", err)
	}

	var count int64
	db.Model(&models.PlayLogEntry{}).Where("origin = ?", "manual").Count(&count)
	if count != 2 {
		t.Errorf("Expected 2 manual rows, got %d", count)
	}

	var entry models.PlayLogEntry
	db.First(&entry)
	if entry.ExternalEventID != nil {
		t.Error("Manual rows must not carry an external event id")
	}
	if entry.TimeSlot != SlotLateNight {
		t.Errorf("Expected %q slot for 23:00, got %q", SlotLateNight, entry.TimeSlot)
	}
}
