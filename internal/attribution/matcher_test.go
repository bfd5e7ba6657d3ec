package attribution

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
	d.AutoMigrate(&models.Submission{})
	return d
}

func seedSubmissions(t *testing.T, db *gorm.DB) (codeMatch, titleMatch models.Submission) {
	codeMatch = models.Submission{
		Title:    "Midnight Dub",
		Artist:   "Deep Current",
		ISRC:     "USGPH2400001",
		Filename: "deep_current-midnight_dub.mp3",
	}
	titleMatch = models.Submission{
		Title:    "Midnight Dub (Club Edit)",
		Artist:   "Someone Else",
		Filename: "someone_else-midnight_dub_club.mp3",
	}
	if err := db.Create(&codeMatch).Error; err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	if err := db.Create(&titleMatch).Error; err != nil {
		t.Fatalf("Seed failed: %v", err)
	}
	return codeMatch, titleMatch
}

func TestMatch_ISRCBeatsTitle(t *testing.T) {
	db := SetupInMemoryDB(t)
	codeMatch, titleMatch := seedSubmissions(t, db)

	// The ISRC points at codeMatch while the title text also substring-
	// matches titleMatch. Strategy 1 must win.
	ev := automation.RawPlayEvent{
		ExternalID: "ev-1",
		PlayedAt:   time.Now(),
		ISRC:       "USGPH2400001",
		Title:      "Midnight Dub",
	}

	res, err := NewMatcher(db).Match(ev)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if res == nil {
		t.Fatal("Expected a match, got none")
	}
	if res.SubmissionID != codeMatch.ID {
		t.Errorf("Expected ISRC match on submission %d, got %d (title match is %d)",
			codeMatch.ID, res.SubmissionID, titleMatch.ID)
	}
	if res.Strategy != StrategyISRC {
		t.Errorf("Expected strategy %q, got %q", StrategyISRC, res.Strategy)
	}
}

func TestMatch_FilenameSubstring(t *testing.T) {
	db := SetupInMemoryDB(t)
	codeMatch, _ := seedSubmissions(t, db)

	// No ISRC in the event; the playout log reports the file with a path
	// prefix and different casing.
	ev := automation.RawPlayEvent{
		ExternalID: "ev-2",
		Filename:   "carts/DEEP_CURRENT-MIDNIGHT_DUB.WAV",
	}

	res, err := NewMatcher(db).Match(ev)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if res == nil || res.SubmissionID != codeMatch.ID {
		t.Fatalf("Expected filename match on submission %d, got %+v", codeMatch.ID, res)
	}
	if res.Strategy != StrategyFilename {
		t.Errorf("Expected strategy %q, got %q", StrategyFilename, res.Strategy)
	}
}

func TestMatch_ArtistAndTitle(t *testing.T) {
	db := SetupInMemoryDB(t)
	codeMatch, _ := seedSubmissions(t, db)

	ev := automation.RawPlayEvent{
		ExternalID: "ev-3",
		Artist:     "deep current",
		Title:      "midnight dub",
	}

	res, err := NewMatcher(db).Match(ev)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if res == nil || res.SubmissionID != codeMatch.ID {
		t.Fatalf("Expected artist+title match on submission %d, got %+v", codeMatch.ID, res)
	}
	if res.Strategy != StrategyArtistTitle {
		t.Errorf("Expected strategy %q, got %q", StrategyArtistTitle, res.Strategy)
	}
}

func TestMatch_TitleOnlyFallback(t *testing.T) {
	db := SetupInMemoryDB(t)
	seedSubmissions(t, db)

	// The artist text matches nothing, so strategy 3 misses and the
	// title-only fallback picks the lowest submission id.
	ev := automation.RawPlayEvent{
		ExternalID: "ev-4",
		Artist:     "Unknown Artist",
		Title:      "Midnight Dub",
	}

	res, err := NewMatcher(db).Match(ev)
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if res == nil {
		t.Fatal("Expected a title-only match, got none")
	}
	if res.Strategy != StrategyTitle {
		t.Errorf("Expected strategy %q, got %q", StrategyTitle, res.Strategy)
	}
}

func TestMatch_NoMatchReturnsNil(t *testing.T) {
	db := SetupInMemoryDB(t)
	seedSubmissions(t, db)

	ev := automation.RawPlayEvent{
		ExternalID: "ev-5",
		Artist:     "Totally Unrelated",
		Title:      "Nothing Here",
		Filename:   "jingles/station_id_04.mp3",
		ISRC:       "ZZZZZ0000000",
	}

	res, err := NewMatcher(db).Match(ev)
	if err != nil {
		t.Fatalf("Match must not error on a miss: %v", err)
	}
	if res != nil {
		t.Errorf("Expected no match, got %+v", res)
	}
}

func TestMatch_EmptyFieldsDoNotWildcard(t *testing.T) {
	db := SetupInMemoryDB(t)
	seedSubmissions(t, db)

	// An event with every identifying field blank must not match anything
	// (an empty LIKE pattern would otherwise match every row).
	res, err := NewMatcher(db).Match(automation.RawPlayEvent{ExternalID: "ev-6"})
	if err != nil {
		t.Fatalf("Match failed: %v", err)
	}
	if res != nil {
		t.Errorf("Blank event should not match, got %+v", res)
	}
}
