package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"time"

	_ "modernc.org/sqlite"

	"github.com/posbindu-risk-engine/internal/domain"
)

// timeLayout is fixed width so stored timestamps sort lexically.
const timeLayout = "2006-01-02T15:04:05.000000000Z"

// busyTimeoutMs bounds how long a writer waits for the database lock.
const busyTimeoutMs = 5000

// maxExportLimit is the maximum number of assessments exported at once.
const maxExportLimit = 1000000

// SQLiteStore implements domain.AssessmentStore using SQLite.
type SQLiteStore struct {
	db     *sql.DB
	dbPath string
}

var _ Portable = (*SQLiteStore)(nil)

// NewSQLiteStore opens (or creates) the database file at dbPath and its schema.
func NewSQLiteStore(dbPath string) (*SQLiteStore, error) {
	dir := filepath.Dir(dbPath)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	db, err := sql.Open("sqlite", fmt.Sprintf("%s?_pragma=busy_timeout(%d)", dbPath, busyTimeoutMs))
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to set WAL mode: %w", err)
	}

	if err := createSchema(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create schema: %w", err)
	}

	return &SQLiteStore{db: db, dbPath: dbPath}, nil
}

// NewSQLiteStoreWithDB wraps an already opened database. The schema is
// assumed to exist.
func NewSQLiteStoreWithDB(db *sql.DB) *SQLiteStore {
	return &SQLiteStore{db: db}
}

func createSchema(db *sql.DB) error {
	schema := `
	CREATE TABLE IF NOT EXISTS assessments (
		id TEXT PRIMARY KEY,
		visit_id TEXT NOT NULL UNIQUE,
		participant_id TEXT NOT NULL,
		assessed_at TEXT NOT NULL,
		referral_required INTEGER NOT NULL DEFAULT 0,
		payload TEXT NOT NULL,
		created_at TEXT NOT NULL,
		updated_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_assessments_participant ON assessments(participant_id, assessed_at);
	CREATE INDEX IF NOT EXISTS idx_assessments_referral ON assessments(referral_required, assessed_at);
	`

	_, err := db.Exec(schema)
	return err
}

func formatTime(t time.Time) string {
	return t.UTC().Format(timeLayout)
}

type scanner interface {
	Scan(dest ...interface{}) error
}

func scanAssessment(s scanner) (*domain.VisitAssessment, error) {
	var id, createdAt, payload string
	if err := s.Scan(&id, &createdAt, &payload); err != nil {
		return nil, err
	}

	var a domain.VisitAssessment
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return nil, fmt.Errorf("failed to decode payload: %w", err)
	}
	created, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return nil, fmt.Errorf("failed to parse created_at: %w", err)
	}
	a.ID = id
	a.CreatedAt = created
	return &a, nil
}

// Save stores an assessment. A second assessment of the same visit replaces
// the first and keeps its ID and creation time.
func (s *SQLiteStore) Save(ctx context.Context, assessment *domain.VisitAssessment) error {
	if assessment.ID == "" || assessment.VisitID == "" {
		return domain.Missing("visit_id")
	}

	now := time.Now().UTC()
	if assessment.CreatedAt.IsZero() {
		assessment.CreatedAt = now
	}

	payload, err := json.Marshal(assessment)
	if err != nil {
		return fmt.Errorf("failed to encode payload: %w", err)
	}

	var id, createdAt string
	err = s.db.QueryRowContext(ctx, `
		INSERT INTO assessments (
			id, visit_id, participant_id, assessed_at,
			referral_required, payload, created_at, updated_at
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(visit_id) DO UPDATE SET
			participant_id = excluded.participant_id,
			assessed_at = excluded.assessed_at,
			referral_required = excluded.referral_required,
			payload = excluded.payload,
			updated_at = excluded.updated_at
		RETURNING id, created_at
	`,
		assessment.ID,
		assessment.VisitID,
		assessment.ParticipantID,
		formatTime(assessment.AssessedAt),
		assessment.Referral.Required,
		string(payload),
		formatTime(assessment.CreatedAt),
		formatTime(now),
	).Scan(&id, &createdAt)
	if err != nil {
		return fmt.Errorf("failed to upsert: %w", err)
	}

	created, err := time.Parse(timeLayout, createdAt)
	if err != nil {
		return fmt.Errorf("failed to parse created_at: %w", err)
	}
	assessment.ID = id
	assessment.CreatedAt = created
	return nil
}

// GetByID retrieves one assessment.
func (s *SQLiteStore) GetByID(ctx context.Context, id string) (*domain.VisitAssessment, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, created_at, payload FROM assessments WHERE id = ?", id)

	a, err := scanAssessment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("assessment %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return a, nil
}

func (s *SQLiteStore) getByVisitID(ctx context.Context, visitID string) (*domain.VisitAssessment, error) {
	row := s.db.QueryRowContext(ctx, "SELECT id, created_at, payload FROM assessments WHERE visit_id = ?", visitID)

	a, err := scanAssessment(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan: %w", err)
	}
	return a, nil
}

// ListByParticipant returns a participant's assessments, newest first.
func (s *SQLiteStore) ListByParticipant(ctx context.Context, participantID string, limit, offset int) ([]*domain.VisitAssessment, error) {
	return s.list(ctx, `
		SELECT id, created_at, payload FROM assessments
		WHERE participant_id = ?
		ORDER BY assessed_at DESC, created_at DESC
		LIMIT ? OFFSET ?
	`, participantID, limit, offset)
}

// ListReferrals returns assessments that require referral, newest first.
func (s *SQLiteStore) ListReferrals(ctx context.Context, limit, offset int) ([]*domain.VisitAssessment, error) {
	return s.list(ctx, `
		SELECT id, created_at, payload FROM assessments
		WHERE referral_required = 1
		ORDER BY assessed_at DESC, created_at DESC
		LIMIT ? OFFSET ?
	`, limit, offset)
}

func (s *SQLiteStore) listAll(ctx context.Context, limit, offset int) ([]*domain.VisitAssessment, error) {
	return s.list(ctx, `
		SELECT id, created_at, payload FROM assessments
		ORDER BY created_at ASC
		LIMIT ? OFFSET ?
	`, limit, offset)
}

func (s *SQLiteStore) list(ctx context.Context, query string, args ...interface{}) ([]*domain.VisitAssessment, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query: %w", err)
	}
	defer rows.Close()

	result := []*domain.VisitAssessment{}
	for rows.Next() {
		a, err := scanAssessment(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		result = append(result, a)
	}
	return result, rows.Err()
}

// Count returns the number of stored assessments.
func (s *SQLiteStore) Count(ctx context.Context) (int, error) {
	var count int
	err := s.db.QueryRowContext(ctx, "SELECT COUNT(*) FROM assessments").Scan(&count)
	return count, err
}

// ExportJSON writes every assessment to writer, oldest first.
func (s *SQLiteStore) ExportJSON(ctx context.Context, writer io.Writer) error {
	all, err := s.listAll(ctx, maxExportLimit, 0)
	if err != nil {
		return fmt.Errorf("failed to list assessments: %w", err)
	}

	export := &AssessmentExport{
		Version:     ExportVersion,
		ExportedAt:  time.Now().UTC(),
		Count:       len(all),
		Assessments: all,
	}

	encoder := json.NewEncoder(writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(export)
}

// ImportJSON reads an export and saves the assessments of unseen visits.
func (s *SQLiteStore) ImportJSON(ctx context.Context, reader io.Reader) (imported int, skipped int, err error) {
	var export AssessmentExport
	if err := json.NewDecoder(reader).Decode(&export); err != nil {
		return 0, 0, fmt.Errorf("failed to decode JSON: %w", err)
	}
	if export.Version != ExportVersion {
		return 0, 0, fmt.Errorf("unsupported export version %q", export.Version)
	}

	for _, a := range export.Assessments {
		existing, err := s.getByVisitID(ctx, a.VisitID)
		if err != nil {
			return imported, skipped, fmt.Errorf("failed to check existing: %w", err)
		}
		if existing != nil {
			skipped++
			continue
		}

		if err := s.Save(ctx, a); err != nil {
			return imported, skipped, fmt.Errorf("failed to save: %w", err)
		}
		imported++
	}

	return imported, skipped, nil
}

// Path returns the database file path.
func (s *SQLiteStore) Path() string {
	return s.dbPath
}

// Close closes the store and releases resources.
func (s *SQLiteStore) Close() error {
	return s.db.Close()
}
