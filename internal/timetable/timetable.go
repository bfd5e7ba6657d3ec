package timetable

import (
	"log"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Timetable is the station's weekly show grid. It is used to label plays
// with a show/DJ when the automation platform omits them; attribution
// itself never depends on it.
type Timetable struct {
	Defaults ShowSlot              `yaml:"defaults"`
	Week     map[string][]ShowSlot `yaml:"timetable"`
}

type ShowSlot struct {
	StartHour int    `yaml:"start_hour"`
	EndHour   int    `yaml:"end_hour"`
	Name      string `yaml:"name"`
	DJ        string `yaml:"dj"`
}

// Load reads the YAML grid from disk.
func Load(path string) (*Timetable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var tt Timetable
	if err := yaml.Unmarshal(data, &tt); err != nil {
		return nil, err
	}

	log.Printf("📅 Timetable Loaded: Defaults + %d days of shows", len(tt.Week))
	return &tt, nil
}

// Lookup returns the show name and DJ on air at t (station-local time).
// Falls back to the YAML defaults when no slot covers the hour.
func (tt *Timetable) Lookup(t time.Time) (show, dj string) {
	dayName := strings.ToLower(t.Weekday().String())
	hour := t.Hour()

	if slots, ok := tt.Week[dayName]; ok {
		for _, slot := range slots {
			if hour >= slot.StartHour && hour < slot.EndHour {
				return slot.Name, slot.DJ
			}
		}
	}

	return tt.Defaults.Name, tt.Defaults.DJ
}
