package automation

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"net/url"
	"strings"
	"time"

	"airtrack/internal/models"
)

// RawPlayEvent is one broadcast occurrence as reported by the automation
// platform. It is transient: the syncer stages it, the matcher consumes it.
type RawPlayEvent struct {
	ExternalID   string
	PlayedAt     time.Time
	DurationSecs int
	Artist       string
	Title        string
	Filename     string
	ISRC         string
	ShowID       string
	ShowName     string
	DJName       string
}

// endpointShape describes one known variant of the platform's history API.
// Vendors have shipped at least three shapes over the years; we probe them
// in order and remember the one that answered.
type endpointShape struct {
	Name       string // Persisted as IntegrationConfig.EndpointHint
	Path       string
	StartParam string
	EndParam   string
	TimeLayout string
}

var historyShapes = []endpointShape{
	{Name: "v2", Path: "/api/v2/history", StartParam: "start", EndParam: "end", TimeLayout: time.RFC3339},
	{Name: "v1", Path: "/api/history", StartParam: "from", EndParam: "to", TimeLayout: time.RFC3339},
	{Name: "legacy", Path: "/playout/history.json", StartParam: "date_from", EndParam: "date_to", TimeLayout: "2006-01-02 15:04:05"},
}

// wireEvent is the union of field names seen across the known API variants.
type wireEvent struct {
	ID           string  `json:"id"`
	EventID      string  `json:"event_id"`
	PlayedAt     string  `json:"played_at"`
	StartedAt    string  `json:"started_at"`
	DurationSecs float64 `json:"duration"`
	Artist       string  `json:"artist"`
	Title        string  `json:"title"`
	Filename     string  `json:"filename"`
	ISRC         string  `json:"isrc"`
	ShowID       string  `json:"show_id"`
	ShowName     string  `json:"show_name"`
	DJName       string  `json:"dj_name"`
}

type Client struct {
	httpClient *http.Client
}

func NewClient(timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		httpClient: &http.Client{Timeout: timeout},
	}
}

// FetchWindow pulls the play history for [start, end) from the platform.
// It never returns an error: every transport/parse failure is logged and
// the next endpoint shape is tried, and total exhaustion yields an empty
// slice. The name of the shape that answered is returned so the caller can
// cache it; it is tried first on the next fetch.
func (c *Client) FetchWindow(cfg models.IntegrationConfig, start, end time.Time) ([]RawPlayEvent, string) {
	if cfg.BaseURL == "" {
		slog.Warn("Automation fetch skipped: no base URL configured")
		return nil, ""
	}

	for _, shape := range orderedShapes(cfg.EndpointHint) {
		events, err := c.fetchShape(cfg, shape, start, end)
		if err != nil {
			slog.Warn("History endpoint candidate failed",
				"shape", shape.Name, "error", err)
			continue
		}
		slog.Info("Fetched play history",
			"shape", shape.Name, "events", len(events))
		return events, shape.Name
	}

	// All candidates exhausted. The orchestrator treats this the same as a
	// quiet window; connectivity problems surface through config validation.
	slog.Warn("All history endpoint candidates exhausted", "base_url", cfg.BaseURL)
	return nil, ""
}

// orderedShapes puts the cached working shape first so a healthy
// integration only ever issues one request per sync.
func orderedShapes(hint string) []endpointShape {
	if hint == "" {
		return historyShapes
	}
	ordered := make([]endpointShape, 0, len(historyShapes))
	for _, s := range historyShapes {
		if s.Name == hint {
			ordered = append(ordered, s)
		}
	}
	for _, s := range historyShapes {
		if s.Name != hint {
			ordered = append(ordered, s)
		}
	}
	return ordered
}

func (c *Client) fetchShape(cfg models.IntegrationConfig, shape endpointShape, start, end time.Time) ([]RawPlayEvent, error) {
	u, err := url.Parse(strings.TrimSuffix(cfg.BaseURL, "/") + shape.Path)
	if err != nil {
		return nil, fmt.Errorf("bad base URL: %w", err)
	}
	q := u.Query()
	q.Set(shape.StartParam, start.UTC().Format(shape.TimeLayout))
	q.Set(shape.EndParam, end.UTC().Format(shape.TimeLayout))
	u.RawQuery = q.Encode()

	req, err := http.NewRequest("GET", u.String(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("X-API-Key", cfg.APIKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("status %d", resp.StatusCode)
	}

	// The history endpoint must answer with a JSON array; anything else
	// (HTML error pages, wrapped objects) means this isn't our shape.
	var wire []wireEvent
	if err := json.NewDecoder(resp.Body).Decode(&wire); err != nil {
		return nil, fmt.Errorf("unparsable body: %w", err)
	}

	events := make([]RawPlayEvent, 0, len(wire))
	for _, w := range wire {
		ev, err := w.toEvent()
		if err != nil {
			slog.Warn("Skipping malformed play event", "error", err)
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func (w wireEvent) toEvent() (RawPlayEvent, error) {
	id := w.ID
	if id == "" {
		id = w.EventID
	}
	if id == "" {
		return RawPlayEvent{}, fmt.Errorf("event without id")
	}

	raw := w.PlayedAt
	if raw == "" {
		raw = w.StartedAt
	}
	playedAt, err := parseTimestamp(raw)
	if err != nil {
		return RawPlayEvent{}, fmt.Errorf("event %s: %w", id, err)
	}

	return RawPlayEvent{
		ExternalID:   id,
		PlayedAt:     playedAt,
		DurationSecs: int(w.DurationSecs),
		Artist:       strings.TrimSpace(w.Artist),
		Title:        strings.TrimSpace(w.Title),
		Filename:     strings.TrimSpace(w.Filename),
		ISRC:         strings.ToUpper(strings.TrimSpace(w.ISRC)),
		ShowID:       w.ShowID,
		ShowName:     w.ShowName,
		DJName:       w.DJName,
	}, nil
}

func parseTimestamp(raw string) (time.Time, error) {
	if raw == "" {
		return time.Time{}, fmt.Errorf("missing timestamp")
	}
	for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02T15:04:05"} {
		if t, err := time.Parse(layout, raw); err == nil {
			return t.UTC(), nil
		}
	}
	return time.Time{}, fmt.Errorf("unrecognized timestamp %q", raw)
}

// Probe checks connectivity and the credential against the platform's
// version endpoint. Used by config validation only, never by the sync path.
func (c *Client) Probe(baseURL, apiKey string) error {
	u := strings.TrimSuffix(baseURL, "/") + "/api/version"

	req, err := http.NewRequest("GET", u, nil)
	if err != nil {
		return fmt.Errorf("bad URL: %w", err)
	}
	req.Header.Set("X-API-Key", apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("platform unreachable: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
		return fmt.Errorf("credential rejected (status %d)", resp.StatusCode)
	}
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("unexpected status %d", resp.StatusCode)
	}

	var version struct {
		Version    string `json:"version"`
		APIVersion string `json:"api_version"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&version); err != nil {
		return fmt.Errorf("unparsable version response: %w", err)
	}
	if version.Version == "" || version.APIVersion == "" {
		return fmt.Errorf("version response missing expected fields")
	}
	return nil
}
