package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/flare-risk-server/internal/domain"
	"github.com/flare-risk-server/internal/service"
)

var _ service.PredictionAuditor = (*PredictionRepository)(nil)

// PredictionRepository keeps the prediction audit trail in PostgreSQL.
type PredictionRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

// NewPredictionRepository creates a new prediction repository
func NewPredictionRepository(db *pgxpool.Pool, logger *logrus.Logger) *PredictionRepository {
	return &PredictionRepository{
		db:  db,
		log: logger,
	}
}

// SavePrediction inserts a prediction. Saving the same id twice is a no-op.
func (r *PredictionRepository) SavePrediction(ctx context.Context, p *service.Prediction) error {
	vectorJSON, err := json.Marshal(p.Vector)
	if err != nil {
		return fmt.Errorf("marshaling feature vector: %w", err)
	}
	triggersJSON, err := json.Marshal(p.Triggers)
	if err != nil {
		return fmt.Errorf("marshaling triggers: %w", err)
	}
	detectedJSON, err := json.Marshal(p.DetectedTriggers)
	if err != nil {
		return fmt.Errorf("marshaling detected triggers: %w", err)
	}

	query := `
		INSERT INTO predictions (
			id, session_id, flare_likely, feature_vector, triggers, detected_triggers,
			record_date, abdominal_pain, bloating, rome_criteria_met, created_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11
		)
		ON CONFLICT (id) DO NOTHING`

	_, err = r.db.Exec(ctx, query,
		p.ID,
		p.SessionID,
		p.FlareLikely,
		vectorJSON,
		triggersJSON,
		detectedJSON,
		p.Record.Date,
		p.Record.AbdominalPain,
		p.Record.Bloating,
		p.Record.RomeCriteriaMet,
		p.CreatedAt,
	)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"prediction_id": p.ID,
			"session_id":    p.SessionID,
			"error":         err,
		}).Error("Failed to save prediction")
		return fmt.Errorf("saving prediction: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"prediction_id": p.ID,
		"session_id":    p.SessionID,
	}).Debug("Prediction saved")

	return nil
}

const predictionColumns = `
	id::text, session_id, flare_likely, feature_vector, triggers, detected_triggers,
	record_date, abdominal_pain, bloating, rome_criteria_met, created_at`

func scanPrediction(row pgx.Row) (*service.Prediction, error) {
	var (
		p                              service.Prediction
		vectorJSON, triggers, detected []byte
		createdAt                      time.Time
	)

	err := row.Scan(
		&p.ID,
		&p.SessionID,
		&p.FlareLikely,
		&vectorJSON,
		&triggers,
		&detected,
		&p.Record.Date,
		&p.Record.AbdominalPain,
		&p.Record.Bloating,
		&p.Record.RomeCriteriaMet,
		&createdAt,
	)
	if err != nil {
		return nil, err
	}

	if err := json.Unmarshal(vectorJSON, &p.Vector); err != nil {
		return nil, fmt.Errorf("unmarshaling feature vector: %w", err)
	}
	if err := json.Unmarshal(triggers, &p.Triggers); err != nil {
		return nil, fmt.Errorf("unmarshaling triggers: %w", err)
	}
	if err := json.Unmarshal(detected, &p.DetectedTriggers); err != nil {
		return nil, fmt.Errorf("unmarshaling detected triggers: %w", err)
	}

	p.Record.FlareLikely = p.FlareLikely
	p.Advice = domain.AdviceFor(p.FlareLikely)
	p.CreatedAt = createdAt
	return &p, nil
}

// GetByID retrieves a prediction by its ID
func (r *PredictionRepository) GetByID(ctx context.Context, id string) (*service.Prediction, error) {
	query := `SELECT ` + predictionColumns + ` FROM predictions WHERE id = $1`

	p, err := scanPrediction(r.db.QueryRow(ctx, query, id))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("prediction not found: %w", domain.ErrNotFound)
		}
		return nil, fmt.Errorf("getting prediction by ID: %w", err)
	}
	return p, nil
}

// ListBySession returns a session's predictions, newest first.
func (r *PredictionRepository) ListBySession(ctx context.Context, sessionID string, limit, offset int) ([]*service.Prediction, error) {
	query := `SELECT ` + predictionColumns + `
		FROM predictions
		WHERE session_id = $1
		ORDER BY created_at DESC
		LIMIT $2 OFFSET $3`

	rows, err := r.db.Query(ctx, query, sessionID, limit, offset)
	if err != nil {
		return nil, fmt.Errorf("listing predictions: %w", err)
	}
	defer rows.Close()

	var result []*service.Prediction
	for rows.Next() {
		p, err := scanPrediction(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning prediction: %w", err)
		}
		result = append(result, p)
	}
	return result, rows.Err()
}

// CountBySession returns how many predictions a session has made.
func (r *PredictionRepository) CountBySession(ctx context.Context, sessionID string) (int64, error) {
	var count int64
	err := r.db.QueryRow(ctx, "SELECT COUNT(*) FROM predictions WHERE session_id = $1", sessionID).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("counting predictions: %w", err)
	}
	return count, nil
}
