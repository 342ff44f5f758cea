package shiftlog

import (
	"database/sql"
	"time"
)

// Entry is one shift-indexed log row. Rows are append-only: Shift is
// derived from Timestamp at write time and never edited afterward.
// Corresponds to the 'change_log_entries' table.
type Entry struct {
	ID           int64
	AuthorID     int64
	ProfileLabel sql.NullString // optional profile the message was sent as
	Content      string
	Timestamp    time.Time
	Shift        Shift
}

// Nicknames holds an operator's per-shift display labels.
// Corresponds to the 'operator_nicknames' table.
type Nicknames struct {
	UserID  int64
	Day     sql.NullString
	Evening sql.NullString
	Night   sql.NullString
}

// ForShift returns the label configured for the given shift, if any.
func (n *Nicknames) ForShift(s Shift) (string, bool) {
	var label sql.NullString
	switch s {
	case ShiftDay:
		label = n.Day
	case ShiftEvening:
		label = n.Evening
	case ShiftNight:
		label = n.Night
	}
	return label.String, label.Valid && label.String != ""
}
