package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "github.com/lib/pq" // PostgreSQL driver
)

const (
	defaultMaxOpenConns    = 25
	defaultMaxIdleConns    = 25
	defaultConnMaxLifetime = 5 * time.Minute
	defaultConnMaxIdleTime = 1 * time.Minute
)

// NewPostgresConnection creates and returns a new PostgreSQL database
// connection, pinging it to verify connectivity.
func NewPostgresConnection(dataSourceName string) (*sql.DB, error) {
	db, err := sql.Open("postgres", dataSourceName)
	if err != nil {
		return nil, fmt.Errorf("failed to open database connection: %w", err)
	}

	db.SetMaxOpenConns(defaultMaxOpenConns)
	db.SetMaxIdleConns(defaultMaxIdleConns)
	db.SetConnMaxLifetime(defaultConnMaxLifetime)
	db.SetConnMaxIdleTime(defaultConnMaxIdleTime)

	if err = db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return db, nil
}

var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS scheduled_broadcasts (
		id BIGSERIAL PRIMARY KEY,
		origin_id BIGINT NOT NULL,
		dest_id BIGINT NOT NULL,
		author_id BIGINT NOT NULL,
		content TEXT NOT NULL,
		send_at TIMESTAMPTZ NOT NULL,
		status SMALLINT NOT NULL DEFAULT 0
	)`,
	`CREATE TABLE IF NOT EXISTS change_log_entries (
		id BIGSERIAL PRIMARY KEY,
		author_id BIGINT NOT NULL,
		profile_label TEXT,
		content TEXT NOT NULL,
		timestamp TIMESTAMPTZ NOT NULL,
		shift TEXT NOT NULL
	)`,
	`CREATE TABLE IF NOT EXISTS operator_nicknames (
		user_id BIGINT PRIMARY KEY,
		day_label TEXT,
		evening_label TEXT,
		night_label TEXT
	)`,
	`CREATE INDEX IF NOT EXISTS idx_scheduled_broadcasts_due
		ON scheduled_broadcasts (status, send_at)`,
	`CREATE INDEX IF NOT EXISTS idx_change_log_entries_timestamp
		ON change_log_entries (timestamp)`,
}

// EnsureSchema creates the tables the bot needs if they do not exist yet.
// Every statement is idempotent, so running it on every startup is safe.
func EnsureSchema(ctx context.Context, db *sql.DB) error {
	for _, stmt := range schemaStatements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("failed to ensure schema: %w", err)
		}
	}
	return nil
}
