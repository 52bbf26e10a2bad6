package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/sirupsen/logrus"

	"github.com/posbindu-risk-engine/internal/domain"
)

// AssessmentRepository persists visit assessments in Postgres.
type AssessmentRepository struct {
	db  *pgxpool.Pool
	log *logrus.Logger
}

var _ domain.AssessmentStore = (*AssessmentRepository)(nil)

// NewAssessmentRepository creates a repository on an open pool.
func NewAssessmentRepository(db *pgxpool.Pool, logger *logrus.Logger) *AssessmentRepository {
	return &AssessmentRepository{
		db:  db,
		log: logger,
	}
}

const selectAssessment = `
	SELECT id::text, created_at, payload
	FROM assessments`

// Save inserts an assessment, or replaces the stored assessment of the same
// visit. The stored row keeps its original id and created_at.
func (r *AssessmentRepository) Save(ctx context.Context, assessment *domain.VisitAssessment) error {
	if assessment.VisitID == "" {
		return domain.Missing("visit_id")
	}
	id, err := uuid.Parse(assessment.ID)
	if err != nil {
		return domain.Invalid("id", assessment.ID, "must be a UUID")
	}
	if assessment.CreatedAt.IsZero() {
		assessment.CreatedAt = time.Now().UTC()
	}

	payload, err := json.Marshal(assessment)
	if err != nil {
		return fmt.Errorf("marshaling assessment: %w", err)
	}
	reasons, err := json.Marshal(assessment.Referral.Reasons)
	if err != nil {
		return fmt.Errorf("marshaling referral reasons: %w", err)
	}

	var cvdScore *int
	var cvdCategory *string
	if assessment.CVD != nil {
		score := assessment.CVD.TotalScore
		category := assessment.CVD.Category.String()
		cvdScore, cvdCategory = &score, &category
	}

	query := `
		INSERT INTO assessments (
			id, visit_id, participant_id, assessed_at, referral_required,
			referral_reasons, cvd_score, cvd_category, payload, created_at, updated_at
		) VALUES (
			$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, NOW()
		)
		ON CONFLICT (visit_id) DO UPDATE SET
			participant_id = EXCLUDED.participant_id,
			assessed_at = EXCLUDED.assessed_at,
			referral_required = EXCLUDED.referral_required,
			referral_reasons = EXCLUDED.referral_reasons,
			cvd_score = EXCLUDED.cvd_score,
			cvd_category = EXCLUDED.cvd_category,
			payload = EXCLUDED.payload,
			updated_at = NOW()
		RETURNING id::text, created_at`

	err = r.db.QueryRow(ctx, query,
		id,
		assessment.VisitID,
		assessment.ParticipantID,
		assessment.AssessedAt,
		assessment.Referral.Required,
		reasons,
		cvdScore,
		cvdCategory,
		payload,
		assessment.CreatedAt,
	).Scan(&assessment.ID, &assessment.CreatedAt)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"assessment_id":  assessment.ID,
			"visit_id":       assessment.VisitID,
			"participant_id": assessment.ParticipantID,
			"error":          err,
		}).Error("Failed to save assessment")
		return fmt.Errorf("saving assessment: %w", err)
	}

	r.log.WithFields(logrus.Fields{
		"assessment_id":     assessment.ID,
		"visit_id":          assessment.VisitID,
		"referral_required": assessment.Referral.Required,
	}).Debug("Assessment saved")

	return nil
}

func scanAssessment(row pgx.Row) (*domain.VisitAssessment, error) {
	var id string
	var createdAt time.Time
	var payload []byte

	if err := row.Scan(&id, &createdAt, &payload); err != nil {
		return nil, err
	}

	var assessment domain.VisitAssessment
	if err := json.Unmarshal(payload, &assessment); err != nil {
		return nil, fmt.Errorf("unmarshaling assessment payload: %w", err)
	}
	assessment.ID = id
	assessment.CreatedAt = createdAt
	return &assessment, nil
}

// GetByID retrieves an assessment by its ID.
func (r *AssessmentRepository) GetByID(ctx context.Context, id string) (*domain.VisitAssessment, error) {
	parsed, err := uuid.Parse(id)
	if err != nil {
		return nil, fmt.Errorf("assessment %s: %w", id, domain.ErrNotFound)
	}

	assessment, err := scanAssessment(r.db.QueryRow(ctx, selectAssessment+` WHERE id = $1`, parsed))
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, fmt.Errorf("assessment %s: %w", id, domain.ErrNotFound)
		}
		r.log.WithFields(logrus.Fields{
			"assessment_id": id,
			"error":         err,
		}).Error("Failed to get assessment by ID")
		return nil, fmt.Errorf("getting assessment by ID: %w", err)
	}
	return assessment, nil
}

// ListByParticipant returns a participant's assessments, newest first.
func (r *AssessmentRepository) ListByParticipant(ctx context.Context, participantID string, limit, offset int) ([]*domain.VisitAssessment, error) {
	query := selectAssessment + `
		WHERE participant_id = $1
		ORDER BY assessed_at DESC, created_at DESC
		LIMIT $2 OFFSET $3`

	assessments, err := r.list(ctx, query, participantID, limit, offset)
	if err != nil {
		r.log.WithFields(logrus.Fields{
			"participant_id": participantID,
			"error":          err,
		}).Error("Failed to list assessments by participant")
		return nil, fmt.Errorf("listing assessments by participant: %w", err)
	}
	return assessments, nil
}

// ListReferrals returns assessments that require referral, newest first.
func (r *AssessmentRepository) ListReferrals(ctx context.Context, limit, offset int) ([]*domain.VisitAssessment, error) {
	query := selectAssessment + `
		WHERE referral_required
		ORDER BY assessed_at DESC, created_at DESC
		LIMIT $1 OFFSET $2`

	assessments, err := r.list(ctx, query, limit, offset)
	if err != nil {
		r.log.WithError(err).Error("Failed to list referrals")
		return nil, fmt.Errorf("listing referrals: %w", err)
	}
	return assessments, nil
}

func (r *AssessmentRepository) list(ctx context.Context, query string, args ...any) ([]*domain.VisitAssessment, error) {
	rows, err := r.db.Query(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	assessments := []*domain.VisitAssessment{}
	for rows.Next() {
		assessment, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning assessment row: %w", err)
		}
		assessments = append(assessments, assessment)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating assessment rows: %w", err)
	}
	return assessments, nil
}

// Count returns the number of stored assessments.
func (r *AssessmentRepository) Count(ctx context.Context) (int, error) {
	var count int
	if err := r.db.QueryRow(ctx, `SELECT COUNT(*) FROM assessments`).Scan(&count); err != nil {
		return 0, fmt.Errorf("counting assessments: %w", err)
	}
	return count, nil
}

// Close is a no-op; the pool is owned by database.DB.
func (r *AssessmentRepository) Close() error {
	return nil
}
