package syncer

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"airtrack/internal/attribution"
	"airtrack/internal/automation"
	"airtrack/internal/models"
	"airtrack/internal/playlog"
	"airtrack/internal/stats"
	"airtrack/internal/timetable"
)

var (
	ErrNotConfigured     = errors.New("integration is not configured")
	ErrIntegrationPaused = errors.New("integration is paused")
	ErrSubmissionMissing = errors.New("submission does not exist")
)

// After this many consecutive failed health checks the integration is
// flagged as broken.
const errorThreshold = 3

// Fetcher is what the orchestrator needs from the automation client.
// Narrowed to an interface so tests can point it at a stub platform.
type Fetcher interface {
	FetchWindow(cfg models.IntegrationConfig, start, end time.Time) ([]automation.RawPlayEvent, string)
	Probe(baseURL, apiKey string) error
}

// Service composes fetch, attribution, persistence and aggregation into
// the batch sync operation, and owns the integration config lifecycle.
// It runs no timer of its own: each Sync call is one complete pass,
// triggered externally (admin action or cron via cmd/sync).
type Service struct {
	db      *gorm.DB
	fetcher Fetcher
	loc     *time.Location
	shows   *timetable.Timetable // optional, may be nil

	now func() time.Time
}

func New(db *gorm.DB, fetcher Fetcher, loc *time.Location, shows *timetable.Timetable) *Service {
	if loc == nil {
		loc = time.Local
	}
	return &Service{
		db:      db,
		fetcher: fetcher,
		loc:     loc,
		shows:   shows,
		now:     time.Now,
	}
}

// WithClock swaps the time source. Test hook.
func (s *Service) WithClock(now func() time.Time) *Service {
	s.now = now
	return s
}

// Summary is what a sync pass reports back to the caller. A total
// transport outage and a genuinely quiet window both come back as
// EventsSeen == 0; check the integration health for the difference.
type Summary struct {
	WindowStart time.Time `json:"window_start"`
	WindowEnd   time.Time `json:"window_end"`
	EventsSeen  int       `json:"events_seen"`
	NewEntries  int       `json:"new_entries"`
	Duplicates  int       `json:"duplicates"`
	Unmatched   int       `json:"unmatched"`
}

// Sync runs one reconciliation pass over the trailing lookback window.
// The fetch happens outside the transaction (it is read-only against the
// platform); every database write of the batch commits atomically or not
// at all.
func (s *Service) Sync(lookbackHours int) (Summary, error) {
	timer := prometheus.NewTimer(syncDuration)
	defer timer.ObserveDuration()

	cfg, err := s.loadConfig()
	if err != nil {
		syncRuns.WithLabelValues("rejected").Inc()
		return Summary{}, err
	}
	if cfg.Status == models.IntegrationPaused {
		syncRuns.WithLabelValues("rejected").Inc()
		return Summary{}, ErrIntegrationPaused
	}
	if lookbackHours <= 0 {
		lookbackHours = 24
	}

	now := s.now().UTC()
	summary := Summary{
		WindowStart: now.Add(-time.Duration(lookbackHours) * time.Hour),
		WindowEnd:   now,
	}

	events, usedShape := s.fetcher.FetchWindow(cfg, summary.WindowStart, summary.WindowEnd)
	summary.EventsSeen = len(events)

	err = s.db.Transaction(func(tx *gorm.DB) error {
		matcher := attribution.NewMatcher(tx)
		store := playlog.NewStore(tx, s.loc)
		agg := stats.New(tx, s.loc).WithClock(s.now)

		touched := make(map[uint]bool)

		for _, ev := range events {
			res, err := matcher.Match(ev)
			if err != nil {
				return fmt.Errorf("matching event %s: %w", ev.ExternalID, err)
			}

			s.fillShowContext(&ev)

			if err := stageEvent(tx, ev, res); err != nil {
				return fmt.Errorf("staging event %s: %w", ev.ExternalID, err)
			}

			if res == nil {
				summary.Unmatched++
				syncEvents.WithLabelValues("unmatched").Inc()
				continue
			}

			created, err := store.RecordSyncPlay(res.SubmissionID, ev, res.Strategy)
			if err != nil {
				return fmt.Errorf("persisting event %s: %w", ev.ExternalID, err)
			}
			if created {
				summary.NewEntries++
				touched[res.SubmissionID] = true
				syncEvents.WithLabelValues("matched").Inc()
			} else {
				summary.Duplicates++
				syncEvents.WithLabelValues("duplicate").Inc()
			}
		}

		if len(touched) > 0 {
			ids := make([]uint, 0, len(touched))
			for id := range touched {
				ids = append(ids, id)
			}
			if err := agg.Recompute(ids...); err != nil {
				return fmt.Errorf("recomputing statistics: %w", err)
			}
		}

		// Remember when we ran and which endpoint shape answered, so the
		// next fetch skips the probing dance.
		updates := map[string]any{"last_sync_at": now}
		if usedShape != "" && usedShape != cfg.EndpointHint {
			updates["endpoint_hint"] = usedShape
		}
		return tx.Model(&models.IntegrationConfig{}).
			Where("id = ?", cfg.ID).
			Updates(updates).Error
	})
	if err != nil {
		syncRuns.WithLabelValues("failed").Inc()
		return Summary{}, err
	}

	syncRuns.WithLabelValues("ok").Inc()
	slog.Info("Sync pass complete",
		"events", summary.EventsSeen,
		"new", summary.NewEntries,
		"duplicates", summary.Duplicates,
		"unmatched", summary.Unmatched)
	return summary, nil
}

// stageEvent records the raw event whether or not it was attributed.
// Unmatched events are the whole point: they stay queryable and
// re-matchable instead of silently disappearing.
func stageEvent(tx *gorm.DB, ev automation.RawPlayEvent, res *attribution.Result) error {
	staged := models.StagedPlayEvent{
		ExternalEventID: ev.ExternalID,
		PlayedAt:        ev.PlayedAt,
		DurationSecs:    ev.DurationSecs,
		Artist:          ev.Artist,
		Title:           ev.Title,
		Filename:        ev.Filename,
		ISRC:            ev.ISRC,
		ShowID:          ev.ShowID,
		ShowName:        ev.ShowName,
		DJName:          ev.DJName,
		Status:          "unmatched",
	}
	if res != nil {
		staged.Status = "matched"
		staged.MatchedSubmissionID = &res.SubmissionID
		staged.MatchStrategy = res.Strategy
	}

	// A previously-staged event that resolves on a later overlapping sync
	// gets its match recorded; everything else stays as first seen.
	onConflict := clause.OnConflict{
		Columns:   []clause.Column{{Name: "external_event_id"}},
		DoNothing: true,
	}
	if res != nil {
		onConflict.DoNothing = false
		onConflict.DoUpdates = clause.AssignmentColumns([]string{
			"status", "matched_submission_id", "match_strategy",
		})
	}
	return tx.Clauses(onConflict).Create(&staged).Error
}

// Rematch retries attribution for every staged event that is still
// unmatched — typically after a new submission was added. Events that now
// resolve flow through the same idempotent play-log insert as a sync.
func (s *Service) Rematch() (int, error) {
	rematched := 0
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var pending []models.StagedPlayEvent
		if err := tx.Where("status = ?", "unmatched").Find(&pending).Error; err != nil {
			return err
		}

		matcher := attribution.NewMatcher(tx)
		store := playlog.NewStore(tx, s.loc)
		agg := stats.New(tx, s.loc).WithClock(s.now)
		touched := make(map[uint]bool)

		for i := range pending {
			staged := &pending[i]
			ev := automation.RawPlayEvent{
				ExternalID:   staged.ExternalEventID,
				PlayedAt:     staged.PlayedAt,
				DurationSecs: staged.DurationSecs,
				Artist:       staged.Artist,
				Title:        staged.Title,
				Filename:     staged.Filename,
				ISRC:         staged.ISRC,
				ShowID:       staged.ShowID,
				ShowName:     staged.ShowName,
				DJName:       staged.DJName,
			}

			res, err := matcher.Match(ev)
			if err != nil {
				return err
			}
			if res == nil {
				continue
			}

			s.fillShowContext(&ev)
			if _, err := store.RecordSyncPlay(res.SubmissionID, ev, res.Strategy); err != nil {
				return err
			}

			err = tx.Model(staged).Updates(map[string]any{
				"status":                "matched",
				"matched_submission_id": res.SubmissionID,
				"match_strategy":        res.Strategy,
			}).Error
			if err != nil {
				return err
			}

			touched[res.SubmissionID] = true
			rematched++
		}

		if len(touched) > 0 {
			ids := make([]uint, 0, len(touched))
			for id := range touched {
				ids = append(ids, id)
			}
			return agg.Recompute(ids...)
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	if rematched > 0 {
		slog.Info("Rematch pass resolved staged events", "count", rematched)
	}
	return rematched, nil
}

// ManualLog records an operator correction and refreshes that
// submission's statistics, atomically.
func (s *Service) ManualLog(in playlog.ManualEntry) (*models.PlayLogEntry, error) {
	var entry *models.PlayLogEntry
	err := s.db.Transaction(func(tx *gorm.DB) error {
		var sub models.Submission
		if err := tx.First(&sub, in.SubmissionID).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return ErrSubmissionMissing
			}
			return err
		}

		store := playlog.NewStore(tx, s.loc)
		created, err := store.RecordManualPlay(in)
		if err != nil {
			return err
		}
		entry = created

		return stats.New(tx, s.loc).WithClock(s.now).Recompute(in.SubmissionID)
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// fillShowContext labels a play from the station timetable when the
// automation platform didn't say what show was on air.
func (s *Service) fillShowContext(ev *automation.RawPlayEvent) {
	if s.shows == nil || ev.ShowName != "" {
		return
	}
	show, dj := s.shows.Lookup(ev.PlayedAt.In(s.loc))
	ev.ShowName = show
	if ev.DJName == "" {
		ev.DJName = dj
	}
}

// --- Integration configuration lifecycle ---

func (s *Service) loadConfig() (models.IntegrationConfig, error) {
	var cfg models.IntegrationConfig
	if err := s.db.First(&cfg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return cfg, ErrNotConfigured
		}
		return cfg, err
	}
	if cfg.BaseURL == "" {
		return cfg, ErrNotConfigured
	}
	return cfg, nil
}

// Config returns the stored integration settings.
func (s *Service) Config() (models.IntegrationConfig, error) {
	var cfg models.IntegrationConfig
	err := s.db.First(&cfg).Error
	return cfg, err
}

// ValidateConfig checks an arbitrary URL/credential pair against the
// platform without touching stored state.
func (s *Service) ValidateConfig(baseURL, apiKey string) error {
	return s.fetcher.Probe(baseURL, apiKey)
}

// ConfigUpdate is the writable subset of the integration settings.
type ConfigUpdate struct {
	BaseURL             string
	APIKey              string
	SyncIntervalMinutes int
	AutoSyncEnabled     bool
}

// UpdateConfig validates the new settings against the platform FIRST.
// A failed probe rejects the update outright and the previous
// configuration stays in force. A successful update clears the error
// counter and marks the integration active.
func (s *Service) UpdateConfig(in ConfigUpdate) (models.IntegrationConfig, error) {
	if err := s.fetcher.Probe(in.BaseURL, in.APIKey); err != nil {
		return models.IntegrationConfig{}, fmt.Errorf("validation failed: %w", err)
	}

	var cfg models.IntegrationConfig
	err := s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&cfg).Error; err != nil && !errors.Is(err, gorm.ErrRecordNotFound) {
			return err
		}

		cfg.ID = 1
		cfg.BaseURL = in.BaseURL
		cfg.APIKey = in.APIKey
		if in.SyncIntervalMinutes > 0 {
			cfg.SyncIntervalMinutes = in.SyncIntervalMinutes
		}
		cfg.AutoSyncEnabled = in.AutoSyncEnabled
		cfg.Status = models.IntegrationActive
		cfg.ErrorCount = 0
		cfg.LastError = ""
		// The old endpoint hint may not apply to the new URL
		cfg.EndpointHint = ""

		return tx.Save(&cfg).Error
	})
	return cfg, err
}

// CheckHealth probes the stored configuration and maintains the
// consecutive-error counter. This is the only path that flips the
// integration into the error state; fetch degradation never does.
func (s *Service) CheckHealth() error {
	cfg, err := s.loadConfig()
	if err != nil {
		return err
	}

	probeErr := s.fetcher.Probe(cfg.BaseURL, cfg.APIKey)
	if probeErr == nil {
		updates := map[string]any{"error_count": 0, "last_error": ""}
		if cfg.Status == models.IntegrationError {
			updates["status"] = models.IntegrationActive
		}
		return s.db.Model(&models.IntegrationConfig{}).
			Where("id = ?", cfg.ID).Updates(updates).Error
	}

	cfg.ErrorCount++
	updates := map[string]any{
		"error_count": cfg.ErrorCount,
		"last_error":  probeErr.Error(),
	}
	if cfg.ErrorCount >= errorThreshold && cfg.Status == models.IntegrationActive {
		updates["status"] = models.IntegrationError
		slog.Error("Integration marked unhealthy",
			"consecutive_errors", cfg.ErrorCount, "error", probeErr)
	}
	if err := s.db.Model(&models.IntegrationConfig{}).
		Where("id = ?", cfg.ID).Updates(updates).Error; err != nil {
		return err
	}
	return probeErr
}

// Pause disables syncing until an operator resumes it.
func (s *Service) Pause() error {
	return s.db.Model(&models.IntegrationConfig{}).
		Where("id = ?", 1).
		Update("status", models.IntegrationPaused).Error
}

// Resume re-enables a paused integration and forgives past errors.
func (s *Service) Resume() error {
	return s.db.Model(&models.IntegrationConfig{}).
		Where("id = ?", 1).
		Updates(map[string]any{
			"status":      models.IntegrationActive,
			"error_count": 0,
			"last_error":  "",
		}).Error
}
