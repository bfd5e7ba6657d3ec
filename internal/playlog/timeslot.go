package playlog

import "time"

// Part-of-day labels attached to every play log entry
const (
	SlotMorning   = "Morning"
	SlotAfternoon = "Afternoon"
	SlotEvening   = "Evening"
	SlotLateNight = "Late Night"
)

// SlotForHour maps a local hour to its coarse part-of-day label.
// Boundaries: [6,12) Morning, [12,17) Afternoon, [17,22) Evening,
// everything else Late Night.
func SlotForHour(hour int) string {
	switch {
	case hour >= 6 && hour < 12:
		return SlotMorning
	case hour >= 12 && hour < 17:
		return SlotAfternoon
	case hour >= 17 && hour < 22:
		return SlotEvening
	default:
		return SlotLateNight
	}
}

// SlotFor labels a play timestamp. The caller is responsible for handing
// in the time already converted to the station's local zone.
func SlotFor(t time.Time) string {
	return SlotForHour(t.Hour())
}
