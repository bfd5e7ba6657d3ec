package playlog

import (
	"testing"
	"time"
)

func TestSlotForHour_Boundaries(t *testing.T) {
	cases := []struct {
		hour int
		want string
	}{
		{5, SlotLateNight},
		{6, SlotMorning},
		{11, SlotMorning},
		{12, SlotAfternoon},
		{16, SlotAfternoon},
		{17, SlotEvening},
		{21, SlotEvening},
		{22, SlotLateNight},
		{0, SlotLateNight},
		{23, SlotLateNight},
	}

	for _, tc := range cases {
		if got := SlotForHour(tc.hour); got != tc.want {
			t.Errorf("SlotForHour(%d) = %q, want %q", tc.hour, got, tc.want)
		}
	}
}

func TestSlotFor_UsesHourOfGivenTime(t *testing.T) {
	morning := time.Date(2024, 6, 1, 9, 15, 0, 0, time.UTC)
	if got := SlotFor(morning); got != SlotMorning {
		t.Errorf("SlotFor(09:15) = %q, want %q", got, SlotMorning)
	}
}
