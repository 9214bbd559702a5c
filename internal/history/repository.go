package history

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/nerrad567/gray-logic-audio/internal/node"
	"github.com/nerrad567/gray-logic-audio/internal/routing"
)

const (
	defaultHistoryLimit = 50
	maxHistoryLimit     = 200
)

// timestampLayout sorts lexically in time order, unlike RFC3339Nano which
// trims trailing zeros.
const timestampLayout = "2006-01-02T15:04:05.000000Z07:00"

// SQLiteRepository stores route history in the route_history and
// routing_passes tables.
type SQLiteRepository struct {
	db *sql.DB
}

// NewSQLiteRepository creates a new route history repository.
//
// Parameters:
//   - db: Open SQLite connection with the route history schema applied
//
// Returns:
//   - *SQLiteRepository: Repository instance ready for use
func NewSQLiteRepository(db *sql.DB) *SQLiteRepository {
	return &SQLiteRepository{db: db}
}

// RecordPass stores a pass and its route changes in one transaction.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - rep: Finished pass report
//   - at: Time the pass finished
//
// Returns:
//   - error: nil on success, otherwise the underlying database error
func (r *SQLiteRepository) RecordPass(ctx context.Context, rep *routing.Report, at time.Time) error {
	createdAt := at.UTC().Format(timestampLayout)

	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("beginning transaction: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // No-op after commit

	_, err = tx.ExecContext(ctx,
		`INSERT INTO routing_passes (stamp, kind, routed, unroutable, explicit, duration_us, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		int64(rep.Stamp), //nolint:gosec // stamps stay far below MaxInt64
		string(rep.Kind),
		rep.Routed,
		rep.Unroutable,
		rep.Explicit,
		rep.Duration.Microseconds(),
		createdAt,
	)
	if err != nil {
		return fmt.Errorf("inserting routing pass: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx,
		`INSERT INTO route_history (id, kind, stamp, source_id, source_key, sink_id, sink_key, class, zone, connection_id, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("preparing route history insert: %w", err)
	}
	defer stmt.Close()

	insert := func(rt routing.Route, added bool) error {
		_, err := stmt.ExecContext(ctx,
			uuid.NewString(),
			string(kindOf(rt, added)),
			int64(rep.Stamp), //nolint:gosec // stamps stay far below MaxInt64
			int64(rt.Source),
			rt.SourceKey,
			int64(rt.Sink),
			rt.SinkKey,
			nullableString(rt.Class),
			nullableString(rt.Zone),
			nullableConnection(rt.ConnectionID),
			createdAt,
		)
		if err != nil {
			return fmt.Errorf("inserting route history: %w", err)
		}
		return nil
	}
	for _, rt := range rep.Removed {
		if err := insert(rt, false); err != nil {
			return err
		}
	}
	for _, rt := range rep.Added {
		if err := insert(rt, true); err != nil {
			return err
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("committing routing pass: %w", err)
	}
	return nil
}

// nullableString returns nil for empty strings, or the string otherwise.
// Used for nullable TEXT columns in SQLite.
func nullableString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullableConnection(id uint32) any {
	if id == 0 {
		return nil
	}
	return int64(id)
}

// List returns route changes matching the filter, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - filter: Optional kind, key, class and zone filters plus pagination
//
// Returns:
//   - *ListResult: One page of entries and the total matching count
//   - error: nil on success, otherwise the underlying query error
func (r *SQLiteRepository) List(ctx context.Context, filter Filter) (*ListResult, error) {
	if filter.Limit <= 0 {
		filter.Limit = defaultHistoryLimit
	}
	if filter.Limit > maxHistoryLimit {
		filter.Limit = maxHistoryLimit
	}
	if filter.Offset < 0 {
		filter.Offset = 0
	}

	var conditions []string
	var args []any

	if filter.Kind != "" {
		conditions = append(conditions, "kind = ?")
		args = append(args, string(filter.Kind))
	}
	if filter.Key != "" {
		conditions = append(conditions, "(source_key = ? OR sink_key = ?)")
		args = append(args, filter.Key, filter.Key)
	}
	if filter.Class != "" {
		conditions = append(conditions, "class = ?")
		args = append(args, filter.Class)
	}
	if filter.Zone != "" {
		conditions = append(conditions, "zone = ?")
		args = append(args, filter.Zone)
	}

	where := ""
	if len(conditions) > 0 {
		where = "WHERE " + strings.Join(conditions, " AND ")
	}

	countQuery := "SELECT COUNT(*) FROM route_history " + where
	var total int
	if err := r.db.QueryRowContext(ctx, countQuery, args...).Scan(&total); err != nil {
		return nil, fmt.Errorf("counting route history: %w", err)
	}

	query := fmt.Sprintf( //nolint:gosec // WHERE built from parameterised conditions, not user input
		`SELECT id, kind, stamp, source_id, source_key, sink_id, sink_key, class, zone, connection_id, created_at
		 FROM route_history %s
		 ORDER BY created_at DESC, rowid DESC
		 LIMIT ? OFFSET ?`,
		where,
	)
	args = append(args, filter.Limit, filter.Offset)

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("querying route history: %w", err)
	}
	defer rows.Close()

	entries := make([]Entry, 0, filter.Limit)
	for rows.Next() {
		var e Entry
		var kind, createdAt string
		var stamp, sourceID, sinkID int64
		var class, zone sql.NullString
		var connID sql.NullInt64

		if err := rows.Scan(&e.ID, &kind, &stamp, &sourceID, &e.SourceKey, &sinkID, &e.SinkKey,
			&class, &zone, &connID, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning route history: %w", err)
		}

		e.Kind = Kind(kind)
		e.Stamp = uint64(stamp)        //nolint:gosec // written from a uint64
		e.SourceID = node.ID(sourceID) //nolint:gosec // written from a node.ID
		e.SinkID = node.ID(sinkID)     //nolint:gosec // written from a node.ID
		e.Class = class.String
		e.Zone = zone.String
		if connID.Valid {
			e.ConnectionID = uint32(connID.Int64) //nolint:gosec // written from a uint32
		}

		timestamp, err := parseHistoryTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		e.CreatedAt = timestamp

		entries = append(entries, e)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating route history: %w", err)
	}

	return &ListResult{
		Entries: entries,
		Total:   total,
		Limit:   filter.Limit,
		Offset:  filter.Offset,
	}, nil
}

// ListPasses returns the most recent routing passes, newest first.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - limit: Maximum passes to return (default 50, max 200)
//
// Returns:
//   - []Pass: Passes ordered by created_at DESC
//   - error: nil on success, otherwise the underlying query error
func (r *SQLiteRepository) ListPasses(ctx context.Context, limit int) ([]Pass, error) {
	if limit <= 0 {
		limit = defaultHistoryLimit
	}
	if limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	rows, err := r.db.QueryContext(ctx,
		`SELECT id, stamp, kind, routed, unroutable, explicit, duration_us, created_at
		 FROM routing_passes
		 ORDER BY created_at DESC, id DESC
		 LIMIT ?`,
		limit,
	)
	if err != nil {
		return nil, fmt.Errorf("querying routing passes: %w", err)
	}
	defer rows.Close()

	passes := make([]Pass, 0, limit)
	for rows.Next() {
		var p Pass
		var stamp, durationUS int64
		var kind, createdAt string

		if err := rows.Scan(&p.ID, &stamp, &kind, &p.Routed, &p.Unroutable, &p.Explicit, &durationUS, &createdAt); err != nil {
			return nil, fmt.Errorf("scanning routing pass: %w", err)
		}
		p.Stamp = uint64(stamp) //nolint:gosec // written from a uint64
		p.Kind = routing.PassKind(kind)
		p.Duration = time.Duration(durationUS) * time.Microsecond

		timestamp, err := parseHistoryTimestamp(createdAt)
		if err != nil {
			return nil, err
		}
		p.CreatedAt = timestamp

		passes = append(passes, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating routing passes: %w", err)
	}

	return passes, nil
}

// Prune deletes route changes and passes older than the given duration.
//
// Parameters:
//   - ctx: Context for cancellation and timeout
//   - olderThan: Duration to retain (rows older than now-olderThan are deleted)
//
// Returns:
//   - int64: Number of rows deleted across both tables
//   - error: nil on success, otherwise the underlying database error
func (r *SQLiteRepository) Prune(ctx context.Context, olderThan time.Duration) (int64, error) {
	if olderThan <= 0 {
		return 0, ErrInvalidRetention
	}

	cutoff := time.Now().UTC().Add(-olderThan).Format(timestampLayout)

	var deleted int64
	for _, table := range []string{"route_history", "routing_passes"} {
		result, err := r.db.ExecContext(ctx,
			"DELETE FROM "+table+" WHERE created_at < ?", //nolint:gosec // table name is a constant
			cutoff,
		)
		if err != nil {
			return deleted, fmt.Errorf("deleting from %s: %w", table, err)
		}
		n, err := result.RowsAffected()
		if err != nil {
			return deleted, fmt.Errorf("checking rows affected: %w", err)
		}
		deleted += n
	}

	return deleted, nil
}

// parseHistoryTimestamp parses a timestamp stored in SQLite.
func parseHistoryTimestamp(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, fmt.Errorf("created_at is empty")
	}

	timestamp, err := time.Parse(time.RFC3339, value)
	if err == nil {
		return timestamp, nil
	}

	fallback, fallbackErr := time.Parse("2006-01-02T15:04:05Z", value)
	if fallbackErr == nil {
		return fallback, nil
	}

	return time.Time{}, fmt.Errorf("parsing created_at: %w", err)
}
