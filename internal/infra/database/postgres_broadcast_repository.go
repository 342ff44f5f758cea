package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"community_ops_bot/internal/domain/broadcast"
)

// Custom errors specific to the broadcast repository.
var ErrBroadcastNotFound = fmt.Errorf("scheduled broadcast not found")
var ErrTerminalStatus = fmt.Errorf("scheduled broadcast already in a terminal status")

type PostgresBroadcastRepository struct {
	db *sql.DB
}

func NewPostgresBroadcastRepository(db *sql.DB) *PostgresBroadcastRepository {
	return &PostgresBroadcastRepository{db: db}
}

func (r *PostgresBroadcastRepository) Create(ctx context.Context, b *broadcast.ScheduledBroadcast) error {
	query := `INSERT INTO scheduled_broadcasts (origin_id, dest_id, author_id, content, send_at, status)
              VALUES ($1, $2, $3, $4, $5, $6)
              RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		b.OriginID, b.DestID, b.AuthorID, b.Content, b.SendAt, b.Status,
	).Scan(&b.ID)
	if err != nil {
		return fmt.Errorf("error creating scheduled broadcast: %w", err)
	}
	return nil
}

func (r *PostgresBroadcastRepository) ListDue(ctx context.Context, now time.Time) ([]*broadcast.ScheduledBroadcast, error) {
	query := `SELECT id, origin_id, dest_id, author_id, content, send_at, status
              FROM scheduled_broadcasts
              WHERE status = $1 AND send_at <= $2`
	rows, err := r.db.QueryContext(ctx, query, broadcast.StatusPending, now)
	if err != nil {
		return nil, fmt.Errorf("error listing due broadcasts: %w", err)
	}
	defer rows.Close()
	return scanBroadcasts(rows)
}

func (r *PostgresBroadcastRepository) ListPending(ctx context.Context, originID int64) ([]*broadcast.ScheduledBroadcast, error) {
	query := `SELECT id, origin_id, dest_id, author_id, content, send_at, status
              FROM scheduled_broadcasts
              WHERE status = $1 AND origin_id = $2
              ORDER BY send_at ASC`
	rows, err := r.db.QueryContext(ctx, query, broadcast.StatusPending, originID)
	if err != nil {
		return nil, fmt.Errorf("error listing pending broadcasts: %w", err)
	}
	defer rows.Close()
	return scanBroadcasts(rows)
}

func (r *PostgresBroadcastRepository) DeletePending(ctx context.Context, id, originID int64) error {
	query := `DELETE FROM scheduled_broadcasts
              WHERE id = $1 AND origin_id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, id, originID, broadcast.StatusPending)
	if err != nil {
		return fmt.Errorf("error deleting pending broadcast %d: %w", id, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking delete result for broadcast %d: %w", id, err)
	}
	if affected == 0 {
		return ErrBroadcastNotFound
	}
	return nil
}

// MarkStatus performs the terminal transition out of StatusPending as a
// compare-and-swap: the row is only updated while still pending, so two
// racing markers cannot overwrite each other's terminal status.
func (r *PostgresBroadcastRepository) MarkStatus(ctx context.Context, id int64, status broadcast.Status) error {
	query := `UPDATE scheduled_broadcasts SET status = $1
              WHERE id = $2 AND status = $3`
	res, err := r.db.ExecContext(ctx, query, status, id, broadcast.StatusPending)
	if err != nil {
		return fmt.Errorf("error marking broadcast %d as %s: %w", id, status, err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("error checking mark result for broadcast %d: %w", id, err)
	}
	if affected > 0 {
		return nil
	}

	// No pending row matched: the broadcast is missing or already terminal.
	var current broadcast.Status
	err = r.db.QueryRowContext(ctx,
		`SELECT status FROM scheduled_broadcasts WHERE id = $1`, id,
	).Scan(&current)
	if err == sql.ErrNoRows {
		return ErrBroadcastNotFound
	}
	if err != nil {
		return fmt.Errorf("error reading status of broadcast %d: %w", id, err)
	}
	if current == status {
		return nil // idempotent re-mark of the same terminal status
	}
	return fmt.Errorf("%w: broadcast %d is %s, refusing %s", ErrTerminalStatus, id, current, status)
}

func scanBroadcasts(rows *sql.Rows) ([]*broadcast.ScheduledBroadcast, error) {
	var result []*broadcast.ScheduledBroadcast
	for rows.Next() {
		b := broadcast.ScheduledBroadcast{}
		if err := rows.Scan(&b.ID, &b.OriginID, &b.DestID, &b.AuthorID, &b.Content, &b.SendAt, &b.Status); err != nil {
			return nil, fmt.Errorf("error scanning scheduled broadcast: %w", err)
		}
		result = append(result, &b)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating scheduled broadcasts: %w", err)
	}
	return result, nil
}
