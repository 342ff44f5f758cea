package broadcast

import (
	"context"
	"time"
)

// Repository defines persistence operations for scheduled broadcasts.
type Repository interface {
	// Create persists a new broadcast and assigns its ID.
	Create(ctx context.Context, b *ScheduledBroadcast) error
	// ListDue returns every pending broadcast with send_at <= now.
	ListDue(ctx context.Context, now time.Time) ([]*ScheduledBroadcast, error)
	// ListPending returns the pending broadcasts created from the given
	// origin chat, ordered by send time.
	ListPending(ctx context.Context, originID int64) ([]*ScheduledBroadcast, error)
	// DeletePending removes a still-pending broadcast by ID, scoped to its
	// origin chat. Broadcasts that already reached a terminal status are
	// kept for audit.
	DeletePending(ctx context.Context, id, originID int64) error
	// MarkStatus performs the terminal transition out of StatusPending.
	// Re-marking the same terminal status is a no-op; marking a different
	// status after the first is rejected.
	MarkStatus(ctx context.Context, id int64, status Status) error
}
