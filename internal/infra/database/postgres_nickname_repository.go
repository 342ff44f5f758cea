package database

import (
	"context"
	"database/sql"
	"fmt"

	"community_ops_bot/internal/domain/shiftlog"
)

var ErrNicknamesNotFound = fmt.Errorf("operator nicknames not found")

type PostgresNicknameRepository struct {
	db *sql.DB
}

func NewPostgresNicknameRepository(db *sql.DB) *PostgresNicknameRepository {
	return &PostgresNicknameRepository{db: db}
}

func (r *PostgresNicknameRepository) Get(ctx context.Context, userID int64) (*shiftlog.Nicknames, error) {
	query := `SELECT user_id, day_label, evening_label, night_label
              FROM operator_nicknames WHERE user_id = $1`
	n := shiftlog.Nicknames{}
	err := r.db.QueryRowContext(ctx, query, userID).Scan(&n.UserID, &n.Day, &n.Evening, &n.Night)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, ErrNicknamesNotFound
		}
		return nil, fmt.Errorf("error getting operator nicknames: %w", err)
	}
	return &n, nil
}

func (r *PostgresNicknameRepository) Search(ctx context.Context, fragment string) ([]*shiftlog.Nicknames, error) {
	query := `SELECT user_id, day_label, evening_label, night_label
              FROM operator_nicknames
              WHERE day_label ILIKE $1 OR evening_label ILIKE $1 OR night_label ILIKE $1`
	rows, err := r.db.QueryContext(ctx, query, "%"+fragment+"%")
	if err != nil {
		return nil, fmt.Errorf("error searching operator nicknames: %w", err)
	}
	defer rows.Close()
	return scanNicknames(rows)
}

func (r *PostgresNicknameRepository) ListAll(ctx context.Context) ([]*shiftlog.Nicknames, error) {
	query := `SELECT user_id, day_label, evening_label, night_label FROM operator_nicknames`
	rows, err := r.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("error listing operator nicknames: %w", err)
	}
	defer rows.Close()
	return scanNicknames(rows)
}

func scanNicknames(rows *sql.Rows) ([]*shiftlog.Nicknames, error) {
	var result []*shiftlog.Nicknames
	for rows.Next() {
		n := shiftlog.Nicknames{}
		if err := rows.Scan(&n.UserID, &n.Day, &n.Evening, &n.Night); err != nil {
			return nil, fmt.Errorf("error scanning operator nicknames: %w", err)
		}
		result = append(result, &n)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating operator nicknames: %w", err)
	}
	return result, nil
}
