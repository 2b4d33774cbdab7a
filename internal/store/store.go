// Package store persists match results, feedback, training data and model
// metrics in PostgreSQL.
package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"matching_engine/internal/models"
)

// Store handles database operations.
type Store struct {
	db *sqlx.DB
}

// NewStore creates a new Store.
func NewStore(db *sqlx.DB) *Store {
	return &Store{db: db}
}

// DB returns the underlying database connection.
func (s *Store) DB() *sqlx.DB {
	return s.db
}

// SaveMatchResult inserts one scored match. Results are immutable; there is
// no update path.
func (s *Store) SaveMatchResult(ctx context.Context, r *models.MatchResult) error {
	scores, err := json.Marshal(r.ComponentScores)
	if err != nil {
		return fmt.Errorf("failed to encode component scores: %w", err)
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO match_results (
			id, job_id, job_title, candidate_id, probability, component_scores,
			critical_gaps, minor_gaps, strengths, feature_vector,
			tier, meets_threshold, needs_human_review,
			confidence, data_completeness, job_posted_at, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)`,
		r.ID, r.JobID, r.JobTitle, r.CandidateID, r.Probability, scores,
		pq.Array(r.CriticalGaps), pq.Array(r.MinorGaps), pq.Array(r.Strengths),
		pq.Array(r.FeatureVector),
		nullString(string(r.Tier)), r.MeetsThreshold, r.NeedsHumanReview,
		r.Confidence, r.DataCompleteness, nullTime(r.JobPostedAt), r.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save match result: %w", err)
	}
	return nil
}

// GetMatchResult loads one match by id. Returns models.ErrMatchNotFound
// when absent.
func (s *Store) GetMatchResult(ctx context.Context, id uuid.UUID) (*models.MatchResult, error) {
	var row struct {
		ID               uuid.UUID       `db:"id"`
		JobID            string          `db:"job_id"`
		JobTitle         string          `db:"job_title"`
		CandidateID      string          `db:"candidate_id"`
		Probability      float64         `db:"probability"`
		ComponentScores  []byte          `db:"component_scores"`
		CriticalGaps     pq.StringArray  `db:"critical_gaps"`
		MinorGaps        pq.StringArray  `db:"minor_gaps"`
		Strengths        pq.StringArray  `db:"strengths"`
		FeatureVector    pq.Float64Array `db:"feature_vector"`
		Tier             sql.NullString  `db:"tier"`
		MeetsThreshold   bool            `db:"meets_threshold"`
		NeedsHumanReview bool            `db:"needs_human_review"`
		Confidence       float64         `db:"confidence"`
		DataCompleteness float64         `db:"data_completeness"`
		JobPostedAt      sql.NullTime    `db:"job_posted_at"`
		CreatedAt        time.Time       `db:"created_at"`
	}

	err := s.db.GetContext(ctx, &row, `
		SELECT id, job_id, job_title, candidate_id, probability, component_scores,
		       critical_gaps, minor_gaps, strengths, feature_vector,
		       tier, meets_threshold, needs_human_review,
		       confidence, data_completeness, job_posted_at, created_at
		FROM match_results
		WHERE id = $1`,
		id,
	)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, models.ErrMatchNotFound
		}
		return nil, fmt.Errorf("failed to get match result: %w", err)
	}

	result := &models.MatchResult{
		ID:               row.ID,
		JobID:            row.JobID,
		JobTitle:         row.JobTitle,
		CandidateID:      row.CandidateID,
		Probability:      row.Probability,
		CriticalGaps:     row.CriticalGaps,
		MinorGaps:        row.MinorGaps,
		Strengths:        row.Strengths,
		FeatureVector:    row.FeatureVector,
		Tier:             models.SubscriptionTier(row.Tier.String),
		MeetsThreshold:   row.MeetsThreshold,
		NeedsHumanReview: row.NeedsHumanReview,
		Confidence:       row.Confidence,
		DataCompleteness: row.DataCompleteness,
		CreatedAt:        row.CreatedAt,
	}
	if row.JobPostedAt.Valid {
		result.JobPostedAt = row.JobPostedAt.Time
	}
	if err := json.Unmarshal(row.ComponentScores, &result.ComponentScores); err != nil {
		return nil, fmt.Errorf("failed to decode component scores: %w", err)
	}
	return result, nil
}

// AppendFeedback stores one feedback event and its derived training point
// in a single transaction; both are durable before the call returns.
func (s *Store) AppendFeedback(ctx context.Context, fb *models.MatchFeedback, tp *models.TrainingDataPoint) error {
	tx, err := s.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO match_feedback (
			id, match_id, outcome, applied_at, responded_at,
			interview_rounds, offer_received, user_rating, comments, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)`,
		fb.ID, fb.MatchID, fb.Outcome, fb.AppliedAt, fb.RespondedAt,
		fb.InterviewRounds, fb.OfferReceived, fb.UserRating, nullString(fb.Comments), fb.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save feedback: %w", err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO training_data (id, match_id, features, label, observed_at)
		VALUES ($1, $2, $3, $4, $5)`,
		tp.ID, tp.MatchID, pq.Array(tp.Features), tp.Label, tp.ObservedAt,
	)
	if err != nil {
		return fmt.Errorf("failed to save training point: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit feedback: %w", err)
	}
	return nil
}

// ListTrainingData returns all training points, oldest first.
func (s *Store) ListTrainingData(ctx context.Context) ([]models.TrainingDataPoint, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, match_id, features, label, observed_at
		FROM training_data
		ORDER BY observed_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list training data: %w", err)
	}
	defer rows.Close()

	var out []models.TrainingDataPoint
	for rows.Next() {
		var row struct {
			ID         uuid.UUID       `db:"id"`
			MatchID    uuid.UUID       `db:"match_id"`
			Features   pq.Float64Array `db:"features"`
			Label      int             `db:"label"`
			ObservedAt time.Time       `db:"observed_at"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("failed to scan training point: %w", err)
		}
		out = append(out, models.TrainingDataPoint{
			ID:         row.ID,
			MatchID:    row.MatchID,
			Features:   row.Features,
			Label:      row.Label,
			ObservedAt: row.ObservedAt,
		})
	}
	return out, rows.Err()
}

// SaveModelMetrics appends one training run record.
func (s *Store) SaveModelMetrics(ctx context.Context, m *models.ModelMetrics) error {
	importances, err := json.Marshal(m.FeatureImportances)
	if err != nil {
		return fmt.Errorf("failed to encode feature importances: %w", err)
	}
	params := m.Params
	if params == nil {
		params = []byte("null")
	}
	_, err = s.db.ExecContext(ctx, `
		INSERT INTO model_metrics (
			id, accuracy, precision_score, recall_score, auc_roc,
			calibration_error, trained_at, sample_count,
			feature_importances, activated, params
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`,
		m.ID, m.Accuracy, m.Precision, m.Recall, m.AUCROC,
		m.CalibrationError, m.TrainedAt, m.SampleCount,
		importances, m.Activated, []byte(params),
	)
	if err != nil {
		return fmt.Errorf("failed to save model metrics: %w", err)
	}
	return nil
}

// LatestActivatedMetrics returns the most recent activated training run,
// or nil when no model has ever been activated.
func (s *Store) LatestActivatedMetrics(ctx context.Context) (*models.ModelMetrics, error) {
	list, err := s.listMetrics(ctx, `WHERE activated ORDER BY trained_at DESC LIMIT 1`)
	if err != nil {
		return nil, err
	}
	if len(list) == 0 {
		return nil, nil
	}
	return &list[0], nil
}

// ListModelMetrics returns the training-run history, newest first.
func (s *Store) ListModelMetrics(ctx context.Context, limit int) ([]models.ModelMetrics, error) {
	if limit <= 0 || limit > 200 {
		limit = 50
	}
	return s.listMetrics(ctx, fmt.Sprintf(`ORDER BY trained_at DESC LIMIT %d`, limit))
}

func (s *Store) listMetrics(ctx context.Context, tail string) ([]models.ModelMetrics, error) {
	rows, err := s.db.QueryxContext(ctx, `
		SELECT id, accuracy, precision_score, recall_score, auc_roc,
		       calibration_error, trained_at, sample_count,
		       feature_importances, activated, params
		FROM model_metrics `+tail)
	if err != nil {
		return nil, fmt.Errorf("failed to list model metrics: %w", err)
	}
	defer rows.Close()

	var out []models.ModelMetrics
	for rows.Next() {
		var row struct {
			ID                 uuid.UUID `db:"id"`
			Accuracy           float64   `db:"accuracy"`
			Precision          float64   `db:"precision_score"`
			Recall             float64   `db:"recall_score"`
			AUCROC             float64   `db:"auc_roc"`
			CalibrationError   float64   `db:"calibration_error"`
			TrainedAt          time.Time `db:"trained_at"`
			SampleCount        int       `db:"sample_count"`
			FeatureImportances []byte    `db:"feature_importances"`
			Activated          bool      `db:"activated"`
			Params             []byte    `db:"params"`
		}
		if err := rows.StructScan(&row); err != nil {
			return nil, fmt.Errorf("failed to scan model metrics: %w", err)
		}
		m := models.ModelMetrics{
			ID:               row.ID,
			Accuracy:         row.Accuracy,
			Precision:        row.Precision,
			Recall:           row.Recall,
			AUCROC:           row.AUCROC,
			CalibrationError: row.CalibrationError,
			TrainedAt:        row.TrainedAt,
			SampleCount:      row.SampleCount,
			Activated:        row.Activated,
			Params:           row.Params,
		}
		if len(row.FeatureImportances) > 0 {
			if err := json.Unmarshal(row.FeatureImportances, &m.FeatureImportances); err != nil {
				return nil, fmt.Errorf("failed to decode feature importances: %w", err)
			}
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
