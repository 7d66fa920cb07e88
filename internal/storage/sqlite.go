package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"slack_line_mirror/internal/model"
	"slack_line_mirror/migrations"
)

const timeLayout = "2006-01-02T15:04:05Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db *sql.DB
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=OFF"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("disable foreign keys: %w", err)
	}

	if err := migrations.Run(db); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db}, nil
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// RecordRun inserts a run outcome and populates its ID.
func (s *SQLite) RecordRun(ctx context.Context, run *model.Run) error {
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO runs (channel_id, started_at, finished_at, fetched, delivered, skipped, failed, watermark, error)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		run.ChannelID,
		run.StartedAt.UTC().Format(timeLayout),
		run.FinishedAt.UTC().Format(timeLayout),
		run.Fetched, run.Delivered, run.Skipped, run.Failed,
		run.Watermark, run.Error,
	)
	if err != nil {
		return fmt.Errorf("insert run: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	run.ID = id
	return nil
}

// ListRuns returns the most recent runs, newest first.
func (s *SQLite) ListRuns(ctx context.Context, limit int) ([]model.Run, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, channel_id, started_at, finished_at, fetched, delivered, skipped, failed, watermark, error
		 FROM runs ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var runs []model.Run
	for rows.Next() {
		r, err := scanRun(rows)
		if err != nil {
			return nil, err
		}
		runs = append(runs, r)
	}
	return runs, rows.Err()
}

// RecordDelivery inserts a failed push record and populates its ID and
// CreatedAt.
func (s *SQLite) RecordDelivery(ctx context.Context, d *model.Delivery) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO deliveries (run_id, message_ts, author_id, error, created_at) VALUES (?, ?, ?, ?, ?)`,
		d.RunID, d.MessageTS, d.AuthorID, d.Error, now,
	)
	if err != nil {
		return fmt.Errorf("insert delivery: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	d.ID = id
	d.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// ListDeliveries returns the failed push records for a run.
func (s *SQLite) ListDeliveries(ctx context.Context, runID int64) ([]model.Delivery, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, message_ts, author_id, error, created_at
		 FROM deliveries WHERE run_id = ? ORDER BY id`, runID,
	)
	if err != nil {
		return nil, fmt.Errorf("query deliveries: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var deliveries []model.Delivery
	for rows.Next() {
		var d model.Delivery
		var createdStr string
		if err := rows.Scan(&d.ID, &d.RunID, &d.MessageTS, &d.AuthorID, &d.Error, &createdStr); err != nil {
			return nil, fmt.Errorf("scan delivery: %w", err)
		}
		d.CreatedAt, _ = time.Parse(timeLayout, createdStr)
		deliveries = append(deliveries, d)
	}
	return deliveries, rows.Err()
}

// CreateFilter inserts a new filter and populates its ID and CreatedAt.
func (s *SQLite) CreateFilter(ctx context.Context, f *model.Filter) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO filters (kind, scope, value, created_at) VALUES (?, ?, ?, ?)`,
		string(f.Kind), string(f.Scope), f.Value, now,
	)
	if err != nil {
		return fmt.Errorf("insert filter: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	f.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// ListFilters returns all filters in creation order.
func (s *SQLite) ListFilters(ctx context.Context) ([]model.Filter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, kind, scope, value, created_at FROM filters ORDER BY id`,
	)
	if err != nil {
		return nil, fmt.Errorf("query filters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var filters []model.Filter
	for rows.Next() {
		f, err := scanFilter(rows)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, rows.Err()
}

// GetFilter returns a single filter by its ID.
func (s *SQLite) GetFilter(ctx context.Context, id int64) (*model.Filter, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, kind, scope, value, created_at FROM filters WHERE id = ?`, id,
	)
	f, err := scanFilter(row)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// DeleteFilter removes a filter by its ID.
func (s *SQLite) DeleteFilter(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM filters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete filter: %w", err)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRun(row scannable) (model.Run, error) {
	var r model.Run
	var startedStr, finishedStr string
	err := row.Scan(&r.ID, &r.ChannelID, &startedStr, &finishedStr,
		&r.Fetched, &r.Delivered, &r.Skipped, &r.Failed, &r.Watermark, &r.Error)
	if err != nil {
		return r, fmt.Errorf("scan run: %w", err)
	}
	r.StartedAt, _ = time.Parse(timeLayout, startedStr)
	r.FinishedAt, _ = time.Parse(timeLayout, finishedStr)
	return r, nil
}

func scanFilter(row scannable) (model.Filter, error) {
	var f model.Filter
	var kindStr, scopeStr, createdStr string
	err := row.Scan(&f.ID, &kindStr, &scopeStr, &f.Value, &createdStr)
	if err != nil {
		return f, fmt.Errorf("scan filter: %w", err)
	}
	f.Kind = model.FilterKind(kindStr)
	f.Scope = model.FilterScope(scopeStr)
	f.CreatedAt, _ = time.Parse(timeLayout, createdStr)
	return f, nil
}
