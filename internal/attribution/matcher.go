package attribution

import (
	"strings"

	"gorm.io/gorm"

	"airtrack/internal/automation"
	"airtrack/internal/models"
)

// Match strategies, in priority order. Earlier wins.
const (
	StrategyISRC        = "isrc"
	StrategyFilename    = "filename"
	StrategyArtistTitle = "artist_title"
	StrategyTitle       = "title"
)

// Result names the submission a play event was attributed to and which
// strategy got there.
type Result struct {
	SubmissionID uint
	Strategy     string
}

// Matcher resolves raw automation events to submissions. Results are only
// deterministic against a fixed database snapshot: a previously-unmatched
// event can resolve later once the right submission exists.
type Matcher struct {
	db *gorm.DB
}

func NewMatcher(db *gorm.DB) *Matcher {
	return &Matcher{db: db}
}

// Match tries each strategy in order and returns the first hit, or nil
// when no strategy resolves the event.
func (m *Matcher) Match(ev automation.RawPlayEvent) (*Result, error) {
	// --- STRATEGY 1: Exact ISRC ---
	// The automation platform rarely carries the code, but when it does
	// it is the only identifier we trust completely.
	if ev.ISRC != "" {
		id, err := m.firstID(
			m.db.Model(&models.Submission{}).
				Where("isrc <> '' AND UPPER(isrc) = ?", ev.ISRC),
		)
		if err != nil {
			return nil, err
		}
		if id != 0 {
			return &Result{SubmissionID: id, Strategy: StrategyISRC}, nil
		}
	}

	// --- STRATEGY 2: Filename substring ---
	// Playout logs report the cart/file name, often with a path prefix or
	// a re-encoded extension, so we compare on the bare basename.
	if base := baseName(ev.Filename); base != "" {
		id, err := m.firstID(
			m.db.Model(&models.Submission{}).
				Where("filename <> '' AND LOWER(filename) LIKE ?", like(base)),
		)
		if err != nil {
			return nil, err
		}
		if id != 0 {
			return &Result{SubmissionID: id, Strategy: StrategyFilename}, nil
		}
	}

	// --- STRATEGY 3: Artist AND Title substrings ---
	if ev.Artist != "" && ev.Title != "" {
		id, err := m.firstID(
			m.db.Model(&models.Submission{}).
				Where("LOWER(artist) LIKE ? AND LOWER(title) LIKE ?",
					like(ev.Artist), like(ev.Title)),
		)
		if err != nil {
			return nil, err
		}
		if id != 0 {
			return &Result{SubmissionID: id, Strategy: StrategyArtistTitle}, nil
		}
	}

	// --- STRATEGY 4: Title only (lowest confidence) ---
	if ev.Title != "" {
		id, err := m.firstID(
			m.db.Model(&models.Submission{}).
				Where("LOWER(title) LIKE ?", like(ev.Title)),
		)
		if err != nil {
			return nil, err
		}
		if id != 0 {
			return &Result{SubmissionID: id, Strategy: StrategyTitle}, nil
		}
	}

	return nil, nil
}

// firstID runs the query ordered by id so repeated syncs attribute
// ambiguous events to the same submission.
func (m *Matcher) firstID(query *gorm.DB) (uint, error) {
	var ids []uint
	if err := query.Order("id ASC").Limit(1).Pluck("id", &ids).Error; err != nil {
		return 0, err
	}
	if len(ids) == 0 {
		return 0, nil
	}
	return ids[0], nil
}

// like builds a case-folded substring pattern. The matched text appears
// *within* the submission's column, per the reconciliation rules.
func like(term string) string {
	return "%" + strings.ToLower(strings.TrimSpace(term)) + "%"
}

// baseName strips directories and the extension but keeps separators
// intact, since the stored filename carries them too.
func baseName(filename string) string {
	name := strings.ReplaceAll(filename, "\\", "/")
	if idx := strings.LastIndex(name, "/"); idx != -1 {
		name = name[idx+1:]
	}
	if idx := strings.LastIndex(name, "."); idx > 0 {
		name = name[:idx]
	}
	return strings.TrimSpace(name)
}
