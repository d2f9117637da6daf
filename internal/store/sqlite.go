package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	_ "modernc.org/sqlite"

	"github.com/nhle/daily-digest/internal/model"
)

// SQLiteStore implements the Store interface using a local SQLite database.
type SQLiteStore struct {
	db *sqlx.DB
}

// NewSQLiteStore opens (or creates) a SQLite database at dbPath,
// enables WAL mode, and runs any pending schema migrations.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	db, err := sqlx.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("opening sqlite db: %w", err)
	}

	// Enable WAL mode for better concurrent read performance.
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("enabling WAL mode: %w", err)
	}

	s := &SQLiteStore{db: db}
	if err := s.runMigrations(); err != nil {
		db.Close()
		return nil, fmt.Errorf("running migrations: %w", err)
	}

	return s, nil
}

// Close closes the underlying database connection.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

// runMigrations checks the current schema version and applies any
// outstanding migrations in order.
func (s *SQLiteStore) runMigrations() error {
	currentVersion := 0

	var tableCount int
	err := s.db.Get(
		&tableCount,
		"SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name='schema_version'",
	)
	if err != nil {
		return fmt.Errorf("checking schema_version table: %w", err)
	}

	if tableCount > 0 {
		err = s.db.Get(&currentVersion, "SELECT COALESCE(MAX(version), 0) FROM schema_version")
		if err != nil {
			return fmt.Errorf("reading schema version: %w", err)
		}
	}

	for _, m := range migrations {
		if m.version <= currentVersion {
			continue
		}
		if _, err := s.db.Exec(m.sql); err != nil {
			return fmt.Errorf("applying migration v%d: %w", m.version, err)
		}
	}

	return nil
}

// RecordRun inserts one pipeline run outcome. A missing id is filled in.
func (s *SQLiteStore) RecordRun(ctx context.Context, run model.RunRecord) error {
	if run.ID == "" {
		run.ID = uuid.NewString()
	}

	const query = `
		INSERT INTO runs (
			id, started_at, finished_at, status,
			mail_count, headline_count,
			weather_text, text_body, html_body, error
		) VALUES (
			?, ?, ?, ?,
			?, ?,
			?, ?, ?, ?
		)`

	_, err := s.db.ExecContext(ctx, query,
		run.ID, run.StartedAt.UTC(), run.FinishedAt.UTC(), run.Status,
		run.MailCount, run.HeadlineCount,
		run.WeatherText, run.TextBody, run.HTMLBody, run.Error,
	)
	if err != nil {
		return fmt.Errorf("recording run %s: %w", run.ID, err)
	}

	return nil
}

// GetRuns retrieves run records matching the filter, newest first.
func (s *SQLiteStore) GetRuns(ctx context.Context, filter RunFilter) ([]model.RunRecord, error) {
	var conditions []string
	var args []interface{}

	if filter.Status != nil {
		conditions = append(conditions, "status = ?")
		args = append(args, *filter.Status)
	}

	query := "SELECT * FROM runs"
	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY started_at DESC"

	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
	}
	if filter.Offset > 0 {
		query += " OFFSET ?"
		args = append(args, filter.Offset)
	}

	var runs []model.RunRecord
	if err := s.db.SelectContext(ctx, &runs, query, args...); err != nil {
		return nil, fmt.Errorf("querying runs: %w", err)
	}

	return runs, nil
}

// GetRunByID retrieves a single run record, or nil when absent.
func (s *SQLiteStore) GetRunByID(ctx context.Context, id string) (*model.RunRecord, error) {
	var run model.RunRecord
	err := s.db.GetContext(ctx, &run, "SELECT * FROM runs WHERE id = ?", id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying run %s: %w", id, err)
	}

	return &run, nil
}

// LastSentRun returns the most recent run with status "sent", or nil.
func (s *SQLiteStore) LastSentRun(ctx context.Context) (*model.RunRecord, error) {
	var run model.RunRecord
	err := s.db.GetContext(ctx, &run,
		"SELECT * FROM runs WHERE status = ? ORDER BY started_at DESC LIMIT 1",
		model.RunStatusSent,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying last sent run: %w", err)
	}

	return &run, nil
}
