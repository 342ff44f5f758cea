package database

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"community_ops_bot/internal/domain/period"
	"community_ops_bot/internal/domain/shiftlog"

	"github.com/lib/pq" // For pq.Array and driver registration
)

const bucketDateLayout = "2006-01-02"

type PostgresShiftLogRepository struct {
	db  *sql.DB
	loc *time.Location
}

// NewPostgresShiftLogRepository builds the repository. All date predicates
// interpret timestamps in loc, the bot's configured timezone.
func NewPostgresShiftLogRepository(db *sql.DB, loc *time.Location) *PostgresShiftLogRepository {
	return &PostgresShiftLogRepository{db: db, loc: loc}
}

func (r *PostgresShiftLogRepository) Insert(ctx context.Context, e *shiftlog.Entry) error {
	query := `INSERT INTO change_log_entries (author_id, profile_label, content, timestamp, shift)
              VALUES ($1, $2, $3, $4, $5)
              RETURNING id`
	err := r.db.QueryRowContext(ctx, query,
		e.AuthorID, e.ProfileLabel, e.Content, e.Timestamp, e.Shift,
	).Scan(&e.ID)
	if err != nil {
		return fmt.Errorf("error inserting change log entry: %w", err)
	}
	return nil
}

func (r *PostgresShiftLogRepository) CountByBucket(ctx context.Context, day time.Time, shift shiftlog.Shift, loc *time.Location) (int, error) {
	query := `SELECT COUNT(*) FROM change_log_entries
              WHERE DATE(timestamp AT TIME ZONE $1) = $2 AND shift = $3`
	var count int
	err := r.db.QueryRowContext(ctx, query,
		loc.String(), day.In(loc).Format(bucketDateLayout), shift,
	).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("error counting bucket (%s, %s): %w", day.Format(bucketDateLayout), shift, err)
	}
	return count, nil
}

func (r *PostgresShiftLogRepository) ListByPeriod(ctx context.Context, f period.Filter, narrow shiftlog.EntryFilter, limit int) ([]*shiftlog.Entry, error) {
	where, args := r.buildPredicate(f, narrow)
	args = append(args, limit)
	query := fmt.Sprintf(`SELECT id, author_id, profile_label, content, timestamp, shift
              FROM change_log_entries
              WHERE %s
              ORDER BY timestamp DESC
              LIMIT $%d`, where, len(args))

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error listing change log entries: %w", err)
	}
	defer rows.Close()

	var result []*shiftlog.Entry
	for rows.Next() {
		e := shiftlog.Entry{}
		if err := rows.Scan(&e.ID, &e.AuthorID, &e.ProfileLabel, &e.Content, &e.Timestamp, &e.Shift); err != nil {
			return nil, fmt.Errorf("error scanning change log entry: %w", err)
		}
		result = append(result, &e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating change log entries: %w", err)
	}
	return result, nil
}

func (r *PostgresShiftLogRepository) CountsByPeriod(ctx context.Context, f period.Filter, narrow shiftlog.EntryFilter) ([]shiftlog.BucketCount, error) {
	where, args := r.buildPredicate(f, narrow)
	query := fmt.Sprintf(`SELECT author_id, shift, COUNT(*)
              FROM change_log_entries
              WHERE %s
              GROUP BY author_id, shift
              ORDER BY COUNT(*) DESC`, where)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("error aggregating change log entries: %w", err)
	}
	defer rows.Close()

	var result []shiftlog.BucketCount
	for rows.Next() {
		var bc shiftlog.BucketCount
		if err := rows.Scan(&bc.AuthorID, &bc.Shift, &bc.Count); err != nil {
			return nil, fmt.Errorf("error scanning aggregation row: %w", err)
		}
		result = append(result, bc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating aggregation rows: %w", err)
	}
	return result, nil
}

// buildPredicate turns the resolved period filter plus narrowing into a
// parameterized WHERE clause. Only filter payloads ever become parameters;
// no user text is concatenated into the query.
func (r *PostgresShiftLogRepository) buildPredicate(f period.Filter, narrow shiftlog.EntryFilter) (string, []any) {
	var clauses []string
	var args []any
	arg := func(v any) string {
		args = append(args, v)
		return fmt.Sprintf("$%d", len(args))
	}
	tz := r.loc.String()

	switch f.Kind {
	case period.KindExactDate:
		clauses = append(clauses, fmt.Sprintf(
			"DATE(timestamp AT TIME ZONE %s) = %s",
			arg(tz), arg(f.Date.Format(bucketDateLayout))))
	case period.KindRange:
		clauses = append(clauses, fmt.Sprintf(
			"DATE(timestamp AT TIME ZONE %s) BETWEEN %s AND %s",
			arg(tz), arg(f.Start.Format(bucketDateLayout)), arg(f.End.Format(bucketDateLayout))))
	case period.KindWeek:
		clauses = append(clauses, fmt.Sprintf(
			"EXTRACT(ISOYEAR FROM timestamp AT TIME ZONE %s) = %s",
			arg(tz), arg(f.ISOYear)))
		clauses = append(clauses, fmt.Sprintf(
			"EXTRACT(WEEK FROM timestamp AT TIME ZONE %s) = %s",
			arg(tz), arg(f.ISOWeek)))
	case period.KindMonth:
		clauses = append(clauses, fmt.Sprintf(
			"EXTRACT(YEAR FROM timestamp AT TIME ZONE %s) = %s",
			arg(tz), arg(f.Year)))
		clauses = append(clauses, fmt.Sprintf(
			"EXTRACT(MONTH FROM timestamp AT TIME ZONE %s) = %s",
			arg(tz), arg(int(f.Month))))
	}

	if narrow.Shift != "" {
		clauses = append(clauses, fmt.Sprintf("shift = %s", arg(narrow.Shift)))
	}
	if len(narrow.AuthorIDs) > 0 {
		clauses = append(clauses, fmt.Sprintf("author_id = ANY(%s)", arg(pq.Array(narrow.AuthorIDs))))
	}

	return strings.Join(clauses, " AND "), args
}
