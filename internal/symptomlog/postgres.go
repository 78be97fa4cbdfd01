package symptomlog

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"time"

	_ "github.com/lib/pq"

	"github.com/flare-risk-server/internal/domain"
)

// PostgresStore implements the Store interface using PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

// NewPostgresStore creates a new PostgreSQL symptom log store.
// It expects the schema to already exist (created via migrations).
func NewPostgresStore(db *sql.DB) (*PostgresStore, error) {
	if db == nil {
		return nil, fmt.Errorf("database connection is required")
	}

	if err := db.Ping(); err != nil {
		return nil, fmt.Errorf("failed to ping database: %w", err)
	}

	return &PostgresStore{db: db}, nil
}

// NewPostgresStoreFromURL creates a new PostgreSQL symptom log store from a connection URL.
func NewPostgresStoreFromURL(databaseURL string) (*PostgresStore, error) {
	db, err := sql.Open("postgres", databaseURL)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	db.SetMaxOpenConns(25)
	db.SetMaxIdleConns(5)
	db.SetConnMaxLifetime(5 * time.Minute)

	store, err := NewPostgresStore(db)
	if err != nil {
		db.Close()
		return nil, err
	}

	return store, nil
}

// Append stores record as a new entry.
func (s *PostgresStore) Append(ctx context.Context, record domain.SymptomLogRecord) error {
	if _, err := s.insert(ctx, NewEntry(record)); err != nil {
		return domain.SinkUnavailable(err)
	}
	return nil
}

func (s *PostgresStore) insert(ctx context.Context, e *Entry) (bool, error) {
	query := `
		INSERT INTO symptom_log (
			id, log_date, flare_likely, abdominal_pain,
			bloating, rome_criteria_met, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (id) DO NOTHING
	`

	result, err := s.db.ExecContext(ctx, query,
		e.ID,
		e.Date,
		e.FlareLikely,
		e.AbdominalPain,
		e.Bloating,
		e.RomeCriteriaMet,
		e.CreatedAt,
	)
	if err != nil {
		return false, fmt.Errorf("failed to insert symptom log entry: %w", err)
	}

	n, err := result.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("failed to get affected rows: %w", err)
	}
	return n > 0, nil
}

// List returns entries newest first with pagination.
func (s *PostgresStore) List(ctx context.Context, limit, offset int) ([]*Entry, error) {
	query := `
		SELECT id, log_date, flare_likely, abdominal_pain,
			bloating, rome_criteria_met, created_at
		FROM symptom_log
		ORDER BY created_at DESC, id
		LIMIT $1 OFFSET $2
	`

	rows, err := s.db.QueryContext(ctx, query, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("failed to list symptom log: %w", err)
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
func (s *PostgresStore) Count(ctx context.Context) (int64, error) {
	var count int64
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM symptom_log").Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("failed to count symptom log: %w", err)
	}
	return count, nil
}

// ExportJSON writes every entry to writer.
func (s *PostgresStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.List(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list entries: %w", err)
	}
	return writeExport(writer, all)
}

// ImportJSON reads an export and stores unseen entries.
func (s *PostgresStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	return importEntries(ctx, reader, s.insert)
}

// Close closes the store and releases resources.
func (s *PostgresStore) Close() error {
	return s.db.Close()
}
