package shiftlog

import (
	"context"
	"time"

	"community_ops_bot/internal/domain/period"
)

// EntryFilter narrows period reads beyond the date predicate. Zero value
// means no narrowing.
type EntryFilter struct {
	Shift     Shift   // "" matches any shift
	AuthorIDs []int64 // nil matches any author
}

// BucketCount is one per-(author, shift) aggregation row.
type BucketCount struct {
	AuthorID int64
	Shift    Shift
	Count    int
}

// Repository defines persistence operations for shift-indexed log entries.
type Repository interface {
	// Insert appends an entry and assigns its ID.
	Insert(ctx context.Context, e *Entry) error
	// CountByBucket counts entries whose local (date, shift) equals the
	// given bucket, interpreting dates in loc.
	CountByBucket(ctx context.Context, day time.Time, shift Shift, loc *time.Location) (int, error)
	// ListByPeriod returns entries matching the period filter, newest
	// first, at most limit rows.
	ListByPeriod(ctx context.Context, f period.Filter, narrow EntryFilter, limit int) ([]*Entry, error)
	// CountsByPeriod aggregates matching entries per (author, shift),
	// ordered by count descending.
	CountsByPeriod(ctx context.Context, f period.Filter, narrow EntryFilter) ([]BucketCount, error)
}

// NicknameRepository reads the per-shift operator display labels.
type NicknameRepository interface {
	Get(ctx context.Context, userID int64) (*Nicknames, error)
	// Search returns every operator whose label in any shift contains the
	// given fragment (case-insensitive).
	Search(ctx context.Context, fragment string) ([]*Nicknames, error)
	ListAll(ctx context.Context) ([]*Nicknames, error)
}
