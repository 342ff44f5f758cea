package broadcast

import "time"

// Status is the delivery state of a scheduled broadcast. It is persisted
// as a smallint. Transitions are one-way: a broadcast leaves StatusPending
// exactly once, into StatusSent or StatusFailed, and never comes back.
type Status int16

const (
	StatusPending Status = 0
	StatusSent    Status = 1
	StatusFailed  Status = 2
)

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "PENDING"
	case StatusSent:
		return "SENT"
	case StatusFailed:
		return "FAILED"
	default:
		return "UNKNOWN"
	}
}

// ScheduledBroadcast is a persisted request to deliver a message to a
// channel at a future time. Corresponds to the 'scheduled_broadcasts' table.
type ScheduledBroadcast struct {
	ID       int64
	OriginID int64 // chat the scheduling command came from
	DestID   int64 // destination channel
	AuthorID int64
	Content  string
	SendAt   time.Time
	Status   Status
}
