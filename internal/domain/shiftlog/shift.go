package shiftlog

import (
	"strings"
	"time"
)

// Shift is one of the three fixed daily windows used to bucket logged
// activity. The string values are the keys persisted in the 'shift' column.
type Shift string

const (
	ShiftDay     Shift = "dia"   // [07:00, 15:00)
	ShiftEvening Shift = "tarde" // [15:00, 23:00)
	ShiftNight   Shift = "noche" // [23:00, 07:00), wraps past midnight
)

var displayLabels = map[Shift]string{
	ShiftDay:     "Día ☀️",
	ShiftEvening: "Tarde 🌅",
	ShiftNight:   "Noche 🌑",
}

// Display returns the human label used in formatted output.
func (s Shift) Display() string {
	if label, ok := displayLabels[s]; ok {
		return label
	}
	return string(s)
}

// ParseShift maps a user-entered keyword to a Shift.
func ParseShift(raw string) (Shift, bool) {
	switch s := Shift(strings.ToLower(strings.TrimSpace(raw))); s {
	case ShiftDay, ShiftEvening, ShiftNight:
		return s, true
	default:
		return "", false
	}
}

// ResolveShift maps a timestamp to the shift containing it, using the
// wall-clock hour in the given location. Total: every timestamp falls in
// exactly one shift.
func ResolveShift(t time.Time, loc *time.Location) Shift {
	hour := t.In(loc).Hour()
	switch {
	case hour >= 7 && hour < 15:
		return ShiftDay
	case hour >= 15 && hour < 23:
		return ShiftEvening
	default:
		return ShiftNight
	}
}
