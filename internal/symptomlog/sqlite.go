package symptomlog

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/flare-risk-server/internal/domain"
)

// SQLiteStore implements the Store interface using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

// NewSQLiteStore creates a new SQLite symptom log store.
// It creates the database file and schema if they don't exist.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// Enable WAL mode for better concurrency
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{
		db:     db,
		dbPath: dbPath,
	}, nil
}

// scanner is an interface for sql.Row and sql.Rows
type scanner interface {
	Scan(dest ...interface{}) error
}

func scanEntry(s scanner) (*Entry, error) {
	e := &Entry{}
	err := s.Scan(
		&e.ID, &e.Date, &e.FlareLikely, &e.AbdominalPain,
		&e.Bloating, &e.RomeCriteriaMet, &e.CreatedAt,
	)
	if err != nil {
		return nil, err
	}
	return e, nil
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS symptom_log (
		id TEXT PRIMARY KEY,
		log_date TEXT NOT NULL,
		flare_likely INTEGER NOT NULL,
		abdominal_pain INTEGER NOT NULL CHECK (abdominal_pain BETWEEN 0 AND 10),
		bloating INTEGER NOT NULL CHECK (bloating BETWEEN 0 AND 10),
		rome_criteria_met INTEGER NOT NULL DEFAULT 0,
		created_at DATETIME NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_symptom_log_date ON symptom_log(log_date);
	CREATE INDEX IF NOT EXISTS idx_symptom_log_created_at ON symptom_log(created_at);
	`

	_, err := db.Exec(schema)
	return err
}

// Append stores record as a new entry.
func (s *SQLiteStore) Append(ctx context.Context, record domain.SymptomLogRecord) error {
	if _, err := s.insert(ctx, NewEntry(record)); err != nil {
		return domain.SinkUnavailable(err)
	}
	return nil
}

// insert writes e unless its id is already stored.
func (s *SQLiteStore) insert(ctx context.Context, e *Entry) (bool, error) {
	result, err := s.db.ExecContext(ctx, `
		INSERT INTO symptom_log (
			id, log_date, flare_likely, abdominal_pain,
			bloating, rome_criteria_met, created_at
		) VALUES (?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`,
		e.ID,
		e.Date,
		e.FlareLikely,
		e.AbdominalPain,
		e.Bloating,
		e.RomeCriteriaMet,
		e.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}

// List returns entries newest first with pagination.
func (s *SQLiteStore) List(ctx context.Context, limit, offset int) ([]*Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, log_date, flare_likely, abdominal_pain,
			bloating, rome_criteria_met, created_at
		FROM symptom_log
		ORDER BY created_at DESC, id
		LIMIT ? OFFSET ?
	`, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	var result []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, e)
	}
	return result, rows.Err()
}

// Count returns the total number of entries.
func (s *SQLiteStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM symptom_log").Scan(&count)
	return count, err
}

// ExportJSON writes every entry to writer.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}
	return writeExport(writer, all)
}

// ImportJSON reads an export and stores unseen entries.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return importEntries(ctx, reader, s.insert)
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}

func writeExport(writer io.Writer, entries []*Entry) error {
	if entries == nil {
		entries = []*Entry{}
	}
	export := &LogExport{
		Version:    ExportVersion,
		ExportedAt: time.Now(),
		Count:      len(entries),
		Entries:    entries,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

func importEntries(ctx context.Context, reader io.Reader, insert func(context.Context, *Entry) (bool, error)) (imported int, skipped int, err error) {
	var export LogExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}

	for _, e := range export.Entries {
		if e == nil || e.ID == "" {
			skipped++
			continue
		}
		if err := e.Validate(); err != nil {
			skipped++
			continue
		}
		if e.CreatedAt.IsZero() {
			e.CreatedAt = time.Now().UTC()
		}

		added, err := insert(ctx, e)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		if added {
			imported++
		} else {
			skipped++
		}
	}

	return imported, skipped, nil
}
