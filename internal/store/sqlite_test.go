package store

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posbindu-risk-engine/internal/domain"
)

func createTestStore(t *testing.T) *SQLiteStore {
	t.Helper()

	tmpDir, err := os.MkdirTemp("", "store-test-*")
	require.NoError(t, err)
	t.Cleanup(func() { os.RemoveAll(tmpDir) })

	store, err := NewSQLiteStore(filepath.Join(tmpDir, "assessments.db"))
	require.NoError(t, err)
	return store
}

func testAssessment(id, visitID, participantID string, assessedAt time.Time, referral bool) *domain.VisitAssessment {
	reasons := []string{}
	if referral {
		reasons = append(reasons, "Tekanan darah krisis")
	}
	return &domain.VisitAssessment{
		ID:            id,
		VisitID:       visitID,
		ParticipantID: participantID,
		AssessedAt:    assessedAt,
		Snapshot: domain.MeasurementSnapshot{
			AgeYears:      domain.IntPtr(50),
			Sex:           domain.SexFemale,
			BloodPressure: []domain.BPReading{{Systolic: 182, Diastolic: 95}},
			WeightKg:      domain.DecimalPtr("61.5"),
		},
		Vitals: &domain.VitalsResult{
			SystolicAvg:   182,
			DiastolicAvg:  95,
			BloodPressure: domain.ClassificationResult{Category: domain.BPCrisis},
			SpO2:          domain.ClassificationResult{Category: domain.SpO2TidakDiukur},
		},
		Referral:        domain.ReferralDecision{Required: referral, Reasons: reasons},
		Recommendations: []string{},
	}
}

func day(d int) time.Time {
	return time.Date(2024, 7, d, 9, 0, 0, 0, time.UTC)
}

func TestNewSQLiteStore(t *testing.T) {
	tmpDir, err := os.MkdirTemp("", "store-test-*")
	require.NoError(t, err)
	defer os.RemoveAll(tmpDir)

	dbPath := filepath.Join(tmpDir, "nested", "assessments.db")

	// Act
	store, err := NewSQLiteStore(dbPath)

	// Assert
	require.NoError(t, err)
	defer store.Close()

	_, err = os.Stat(dbPath)
	assert.NoError(t, err, "database file should exist")
	assert.Equal(t, dbPath, store.Path())
}

func TestSQLiteStore_SaveAndGet(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	a := testAssessment("a-1", "visit-1", "p-1", day(1), true)

	// Act
	require.NoError(t, store.Save(ctx, a))
	got, err := store.GetByID(ctx, "a-1")

	// Assert
	require.NoError(t, err)
	assert.Equal(t, "visit-1", got.VisitID)
	assert.Equal(t, "p-1", got.ParticipantID)
	assert.True(t, got.AssessedAt.Equal(day(1)))
	assert.False(t, got.CreatedAt.IsZero())
	assert.Equal(t, domain.BPCrisis, got.Vitals.BloodPressure.Category)
	assert.Equal(t, []string{"Tekanan darah krisis"}, got.Referral.Reasons)
	require.NotNil(t, got.Snapshot.WeightKg)
	assert.Equal(t, "61.5", got.Snapshot.WeightKg.String())
}

func TestSQLiteStore_SaveSameVisitReplaces(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	first := testAssessment("a-1", "visit-1", "p-1", day(1), true)
	require.NoError(t, store.Save(ctx, first))

	second := testAssessment("a-2", "visit-1", "p-1", day(2), false)

	// Act
	require.NoError(t, store.Save(ctx, second))

	// Assert
	assert.Equal(t, "a-1", second.ID, "existing id is kept")
	assert.True(t, second.CreatedAt.Equal(first.CreatedAt))

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := store.GetByID(ctx, "a-1")
	require.NoError(t, err)
	assert.False(t, got.Referral.Required)
	assert.True(t, got.AssessedAt.Equal(day(2)))
}

func TestSQLiteStore_ConcurrentFirstSavesOfSameVisit(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	const writers = 8
	saved := make([]*domain.VisitAssessment, writers)
	errs := make([]error, writers)

	// Act
	var wg sync.WaitGroup
	for i := 0; i < writers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			saved[i] = testAssessment(fmt.Sprintf("a-%d", i), "visit-1", "p-1", day(1), false)
			errs[i] = store.Save(ctx, saved[i])
		}(i)
	}
	wg.Wait()

	// Assert
	for i := 0; i < writers; i++ {
		require.NoError(t, errs[i], "writer %d", i)
		assert.Equal(t, saved[0].ID, saved[i].ID, "every writer sees the stored id")
	}

	count, err := store.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	got, err := store.GetByID(ctx, saved[0].ID)
	require.NoError(t, err)
	assert.Equal(t, saved[0].ID, got.ID)
}

func TestSQLiteStore_SaveRequiresIDs(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	err := store.Save(context.Background(), &domain.VisitAssessment{ID: "a-1"})
	assert.True(t, errors.Is(err, domain.ErrIncompleteSnapshot))
}

func TestSQLiteStore_GetByIDNotFound(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()

	_, err := store.GetByID(context.Background(), "missing")
	assert.True(t, errors.Is(err, domain.ErrNotFound))
}

func TestSQLiteStore_ListByParticipant(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testAssessment("a-1", "v-1", "p-1", day(1), false)))
	require.NoError(t, store.Save(ctx, testAssessment("a-2", "v-2", "p-1", day(3), false)))
	require.NoError(t, store.Save(ctx, testAssessment("a-3", "v-3", "p-2", day(2), false)))
	require.NoError(t, store.Save(ctx, testAssessment("a-4", "v-4", "p-1", day(2), false)))

	tests := []struct {
		name     string
		limit    int
		offset   int
		expected []string
	}{
		{"all newest first", 10, 0, []string{"a-2", "a-4", "a-1"}},
		{"first page", 2, 0, []string{"a-2", "a-4"}},
		{"second page", 2, 2, []string{"a-1"}},
		{"past the end", 2, 5, []string{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := store.ListByParticipant(ctx, "p-1", tt.limit, tt.offset)
			require.NoError(t, err)

			ids := make([]string, 0, len(got))
			for _, a := range got {
				ids = append(ids, a.ID)
			}
			assert.Equal(t, tt.expected, ids)
		})
	}
}

func TestSQLiteStore_ListReferrals(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	require.NoError(t, store.Save(ctx, testAssessment("a-1", "v-1", "p-1", day(1), true)))
	require.NoError(t, store.Save(ctx, testAssessment("a-2", "v-2", "p-2", day(2), false)))
	require.NoError(t, store.Save(ctx, testAssessment("a-3", "v-3", "p-3", day(3), true)))

	got, err := store.ListReferrals(ctx, 10, 0)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, "a-3", got[0].ID)
	assert.Equal(t, "a-1", got[1].ID)
}

func TestSQLiteStore_ExportImport(t *testing.T) {
	source := createTestStore(t)
	defer source.Close()
	ctx := context.Background()

	require.NoError(t, source.Save(ctx, testAssessment("a-1", "v-1", "p-1", day(1), true)))
	require.NoError(t, source.Save(ctx, testAssessment("a-2", "v-2", "p-1", day(2), false)))

	var buf bytes.Buffer

	// Act
	require.NoError(t, source.ExportJSON(ctx, &buf))

	// Assert
	var export AssessmentExport
	require.NoError(t, json.Unmarshal(buf.Bytes(), &export))
	assert.Equal(t, "1.0", export.Version)
	assert.Equal(t, 2, export.Count)
	require.Len(t, export.Assessments, 2)

	target := createTestStore(t)
	defer target.Close()
	require.NoError(t, target.Save(ctx, testAssessment("x-1", "v-1", "p-1", day(1), true)))

	imported, skipped, err := target.ImportJSON(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1, imported)
	assert.Equal(t, 1, skipped)

	count, err := target.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	got, err := target.GetByID(ctx, "a-2")
	require.NoError(t, err)
	assert.Equal(t, "v-2", got.VisitID)
}

func TestSQLiteStore_ImportRejectsBadInput(t *testing.T) {
	store := createTestStore(t)
	defer store.Close()
	ctx := context.Background()

	_, _, err := store.ImportJSON(ctx, bytes.NewReader([]byte("not json")))
	assert.Error(t, err)

	_, _, err = store.ImportJSON(ctx, bytes.NewReader([]byte(`{"version":"2.0","assessments":[]}`)))
	assert.Error(t, err)
	assert.Contains(t, err.Error(), "unsupported export version")
}
