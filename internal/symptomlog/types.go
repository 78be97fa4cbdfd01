// Package symptomlog provides durable sinks for finalized symptom log records.
// Records are append-only; nothing written here is ever updated in place.
package symptomlog

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"

	"github.com/flare-risk-server/internal/domain"
)

// ExportVersion is written into every JSON export.
const ExportVersion = "1.0"

// maxExportLimit is the maximum number of entries to export at once.
const maxExportLimit = 1000000

// Entry is a stored record with its storage metadata.
type Entry struct {
	ID        string    `json:"id"`
	CreatedAt time.Time `json:"created_at"`
	domain.SymptomLogRecord
}

// NewEntry stamps record with a fresh id and creation time.
func NewEntry(record domain.SymptomLogRecord) *Entry {
	return &Entry{
		ID:               uuid.New().String(),
		CreatedAt:        time.Now().UTC(),
		SymptomLogRecord: record,
	}
}

// Sink is a SymptomLogSink holding resources that must be released.
type Sink interface {
	domain.SymptomLogSink

	// Close releases the sink's resources.
	Close() error
}

// Store is a queryable Sink.
type Store interface {
	Sink

	// List returns entries newest first with pagination.
	List(ctx context.Context, limit, offset int) ([]*Entry, error)

	// Count returns the total number of entries.
	Count(ctx context.Context) (int64, error)

	// ExportJSON writes every entry to writer.
	ExportJSON(ctx context.Context, writer io.Writer) error

	// ImportJSON reads an export and stores entries whose id is not yet known.
	// Returns the number of imported and skipped entries.
	ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error)
}

// LogExport represents the JSON export format.
type LogExport struct {
	Version    string    `json:"version"`
	ExportedAt time.Time `json:"exported_at"`
	Count      int       `json:"count"`
	Entries    []*Entry  `json:"entries"`
}
