package automation

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"airtrack/internal/models"
)

func historyPayload() []map[string]any {
	return []map[string]any{
		{
			"event_id":  "ev-100",
			"played_at": "2024-06-01T09:15:00Z",
			"duration":  212,
			"artist":    "Rhythm & Sound",
			"title":     "King In My Empire",
			"filename":  "music/rhythm_and_sound-king_in_my_empire.mp3",
			"isrc":      "DEXX19900123",
		},
		{
			"event_id":   "ev-101",
			"started_at": "2024-06-01 10:02:30",
			"duration":   180.5,
			"artist":     "Maurizio",
			"title":      "M5",
		},
	}
}

func TestFetchWindow_FallsThroughCandidates(t *testing.T) {
	var hits []string
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits = append(hits, r.URL.Path)

		// Only the legacy shape exists on this "platform"
		if r.URL.Path != "/playout/history.json" {
			http.NotFound(w, r)
			return
		}
		if r.URL.Query().Get("date_from") == "" || r.URL.Query().Get("date_to") == "" {
			t.Errorf("legacy shape called without date_from/date_to params: %s", r.URL.RawQuery)
		}
		json.NewEncoder(w).Encode(historyPayload())
	}))
	defer srv.Close()

	client := NewClient(2 * time.Second)
	cfg := models.IntegrationConfig{BaseURL: srv.URL, APIKey: "secret"}

	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	events, shape := client.FetchWindow(cfg, start, start.Add(24*time.Hour))

	if shape != "legacy" {
		t.Errorf("Expected legacy shape to answer, got %q", shape)
	}
	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if events[0].ExternalID != "ev-100" || events[0].ISRC != "DEXX19900123" {
		t.Errorf("First event mapped wrong: %+v", events[0])
	}
	if events[1].PlayedAt.Hour() != 10 {
		t.Errorf("started_at fallback timestamp not parsed: %v", events[1].PlayedAt)
	}

	// v2 and v1 must have been tried (and failed) before legacy
	if len(hits) != 3 {
		t.Errorf("Expected 3 candidate attempts, got %d (%v)", len(hits), hits)
	}
}

func TestFetchWindow_HintShortCircuits(t *testing.T) {
	var hits int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		hits++
		if r.URL.Path != "/playout/history.json" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode(historyPayload())
	}))
	defer srv.Close()

	client := NewClient(2 * time.Second)
	cfg := models.IntegrationConfig{BaseURL: srv.URL, APIKey: "secret", EndpointHint: "legacy"}

	now := time.Now().UTC()
	events, _ := client.FetchWindow(cfg, now.Add(-time.Hour), now)

	if len(events) != 2 {
		t.Fatalf("Expected 2 events, got %d", len(events))
	}
	if hits != 1 {
		t.Errorf("Cached hint should be tried first and only: got %d requests", hits)
	}
}

func TestFetchWindow_TotalFailureDegradesToEmpty(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "nope", http.StatusInternalServerError)
	}))
	defer srv.Close()

	client := NewClient(2 * time.Second)
	cfg := models.IntegrationConfig{BaseURL: srv.URL}

	now := time.Now().UTC()
	events, shape := client.FetchWindow(cfg, now.Add(-time.Hour), now)

	if len(events) != 0 {
		t.Errorf("Expected zero events on total failure, got %d", len(events))
	}
	if shape != "" {
		t.Errorf("Expected no working shape, got %q", shape)
	}
}

func TestFetchWindow_SkipsEventsWithoutID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/v2/history" {
			http.NotFound(w, r)
			return
		}
		json.NewEncoder(w).Encode([]map[string]any{
			{"played_at": "2024-06-01T09:15:00Z", "title": "Orphan"}, // no id
			{"id": "ev-1", "played_at": "2024-06-01T09:20:00Z", "title": "Kept"},
		})
	}))
	defer srv.Close()

	client := NewClient(2 * time.Second)
	now := time.Now().UTC()
	events, _ := client.FetchWindow(models.IntegrationConfig{BaseURL: srv.URL}, now.Add(-time.Hour), now)

	if len(events) != 1 || events[0].ExternalID != "ev-1" {
		t.Errorf("Expected only the event with an id, got %+v", events)
	}
}

func TestProbe(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/version" {
			http.NotFound(w, r)
			return
		}
		if r.Header.Get("X-API-Key") != "good-key" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		json.NewEncoder(w).Encode(map[string]string{"version": "4.2.1", "api_version": "2"})
	}))
	defer srv.Close()

	client := NewClient(2 * time.Second)

	if err := client.Probe(srv.URL, "good-key"); err != nil {
		t.Errorf("Expected probe to succeed, got %v", err)
	}
	if err := client.Probe(srv.URL, "bad-key"); err == nil {
		t.Error("Expected probe to fail with a rejected credential")
	}
}

func TestProbe_MissingVersionFields(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"version": "4.2.1"}) // api_version missing
	}))
	defer srv.Close()

	client := NewClient(2 * time.Second)
	if err := client.Probe(srv.URL, "key"); err == nil {
		t.Error("Expected probe to reject a version body missing expected fields")
	}
}
