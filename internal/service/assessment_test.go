package service

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/posbindu-risk-engine/internal/domain"
)

func testLogger() (*logrus.Logger, *bytes.Buffer) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetOutput(&buf)
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetLevel(logrus.InfoLevel)
	return logger, &buf
}

func fixedClock() time.Time {
	return time.Date(2024, 9, 2, 8, 30, 0, 0, time.UTC)
}

func newTestService(store domain.AssessmentStore, cache domain.AssessmentCache) (*AssessmentService, *bytes.Buffer) {
	logger, buf := testLogger()
	svc := NewAssessmentService(store, cache, domain.EngineConfig{PersistAssessments: true}, logger)
	svc.now = fixedClock
	return svc, buf
}

func adultVisit() VisitRequest {
	return VisitRequest{
		VisitID:       "visit-001",
		ParticipantID: "nik-3201",
		Snapshot: domain.MeasurementSnapshot{
			AgeYears:      domain.IntPtr(45),
			Sex:           domain.SexMale,
			BloodPressure: []domain.BPReading{{Systolic: 185, Diastolic: 70}},
			Diabetic:      true,
			Labs: []domain.LabResult{
				{Analyte: domain.AnalyteKolTotal, Value: *domain.DecimalPtr("250"), Unit: "mg/dL"},
			},
		},
	}
}

func TestAssessmentService_AssessVisit(t *testing.T) {
	ctx := context.Background()
	store := new(MockAssessmentStore)
	store.On("Save", ctx, mock.AnythingOfType("*domain.VisitAssessment")).Return(nil)
	cache := NewAssessmentCache(domain.CacheConfig{}, nil, logrus.New())

	svc, logs := newTestService(store, cache)

	// Act
	got, err := svc.AssessVisit(ctx, adultVisit())

	// Assert
	require.NoError(t, err)
	assert.NotEmpty(t, got.ID)
	assert.Equal(t, fixedClock(), got.AssessedAt)
	assert.True(t, got.Referral.Required)
	// 185/70 is Stage 1 under the vitals cascade, so the crisis reason comes
	// from the CVD rules after the cholesterol lab trigger.
	assert.Equal(t, []string{
		"Kolesterol sangat tinggi",
		"Tekanan darah krisis",
		"Skor risiko tinggi",
		"Diabetes dengan hipertensi",
	}, got.Referral.Reasons)
	require.NotNil(t, got.CVD)
	assert.Equal(t, 10, got.CVD.TotalScore)

	store.AssertNumberOfCalls(t, "Save", 1)

	cached, ok := cache.Get(ctx, got.ID)
	assert.True(t, ok)
	assert.Equal(t, got, cached)

	assert.Contains(t, logs.String(), "Visit requires referral")
}

func TestAssessmentService_AssessVisitUsesExplicitAsOf(t *testing.T) {
	svc, _ := newTestService(nil, nil)

	req := adultVisit()
	asOf := time.Date(2023, 1, 15, 10, 0, 0, 0, time.FixedZone("WIB", 7*3600))
	req.AssessedAt = asOf

	got, err := svc.AssessVisit(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, got.AssessedAt.Equal(asOf))
	assert.Equal(t, time.UTC, got.AssessedAt.Location())
}

func TestAssessmentService_AssessVisitDatesFromAssessedAt(t *testing.T) {
	svc, _ := newTestService(nil, nil)

	birth := time.Date(1990, 5, 10, 0, 0, 0, 0, time.UTC)
	lmp := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	req := VisitRequest{
		VisitID:       "visit-anc-1",
		ParticipantID: "nik-3202",
		AssessedAt:    time.Date(2023, 3, 1, 9, 0, 0, 0, time.UTC),
		Snapshot: domain.MeasurementSnapshot{
			BirthDate:     &birth,
			Sex:           domain.SexFemale,
			BloodPressure: []domain.BPReading{{Systolic: 118, Diastolic: 76}},
			Pregnancy: &domain.PregnancyMeasurements{
				MUACCm:        domain.DecimalPtr("25"),
				LastMenstrual: &lmp,
			},
		},
	}

	// Act
	got, err := svc.AssessVisit(context.Background(), req)

	// Assert
	require.NoError(t, err)
	require.NotNil(t, got.Snapshot.AgeYears)
	assert.Equal(t, 32, *got.Snapshot.AgeYears)
	require.NotNil(t, got.CVD)
	require.NotNil(t, got.Maternal)
	require.NotNil(t, got.Maternal.GestationalAgeWeeks)
	assert.Equal(t, 8, *got.Maternal.GestationalAgeWeeks)
	assert.Equal(t, time.Date(2023, 10, 8, 0, 0, 0, 0, time.UTC), *got.Maternal.EstimatedDueDate)
}

func TestAssessmentService_AgeFromBirthDateForSingleEvaluators(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(nil, nil)
	toddler := time.Date(2022, 3, 15, 0, 0, 0, 0, time.UTC)

	nutrition, err := svc.NutritionStatus(ctx, domain.MeasurementSnapshot{
		BirthDate: &toddler,
		WeightKg:  domain.DecimalPtr("11.3"),
		HeightCm:  domain.DecimalPtr("90"),
	})
	require.NoError(t, err)
	assert.Equal(t, domain.GiziBuruk, nutrition.Category)

	adult := time.Date(1979, 1, 20, 0, 0, 0, 0, time.UTC)
	fromBirth, err := svc.ComputeCVDRisk(ctx, domain.MeasurementSnapshot{
		BirthDate:     &adult,
		Sex:           domain.SexMale,
		BloodPressure: []domain.BPReading{{Systolic: 118, Diastolic: 76}},
	})
	require.NoError(t, err)
	fromAge, err := svc.ComputeCVDRisk(ctx, domain.MeasurementSnapshot{
		AgeYears:      domain.IntPtr(45),
		Sex:           domain.SexMale,
		BloodPressure: []domain.BPReading{{Systolic: 118, Diastolic: 76}},
	})
	require.NoError(t, err)
	assert.Equal(t, fromAge, fromBirth)
}

func TestAssessmentService_AssessVisitValidation(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*VisitRequest)
		target error
	}{
		{"missing visit id", func(r *VisitRequest) { r.VisitID = "" }, domain.ErrIncompleteSnapshot},
		{"missing participant", func(r *VisitRequest) { r.ParticipantID = "" }, domain.ErrIncompleteSnapshot},
		{"unsupported analyte", func(r *VisitRequest) {
			r.Snapshot.Labs = []domain.LabResult{{Analyte: "psa", Value: *domain.DecimalPtr("4")}}
		}, domain.ErrUnsupportedAnalyte},
		{"three readings", func(r *VisitRequest) {
			r.Snapshot.BloodPressure = []domain.BPReading{
				{Systolic: 120, Diastolic: 80}, {Systolic: 121, Diastolic: 80}, {Systolic: 122, Diastolic: 80},
			}
		}, domain.ErrInvalidMeasurement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockAssessmentStore)
			svc, logs := newTestService(store, nil)

			req := adultVisit()
			tt.mutate(&req)

			_, err := svc.AssessVisit(context.Background(), req)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.target))
			store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
			assert.NotContains(t, logs.String(), `"level":"error"`)
		})
	}
}

func TestAssessmentService_AssessVisitStoreFailure(t *testing.T) {
	ctx := context.Background()
	store := new(MockAssessmentStore)
	store.On("Save", ctx, mock.Anything).Return(errors.New("connection refused"))
	cache := NewAssessmentCache(domain.CacheConfig{}, nil, logrus.New())

	svc, logs := newTestService(store, cache)

	_, err := svc.AssessVisit(ctx, adultVisit())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "persisting assessment")
	assert.Equal(t, 0, cache.Stats().MemoryItems)
	assert.Contains(t, logs.String(), "Failed to persist assessment")
}

func TestAssessmentService_PersistDisabled(t *testing.T) {
	store := new(MockAssessmentStore)
	logger, _ := testLogger()
	svc := NewAssessmentService(store, nil, domain.EngineConfig{PersistAssessments: false}, logger)

	_, err := svc.AssessVisit(context.Background(), adultVisit())
	require.NoError(t, err)
	store.AssertNotCalled(t, "Save", mock.Anything, mock.Anything)
}

func TestAssessmentService_GetAssessment(t *testing.T) {
	ctx := context.Background()
	stored := &domain.VisitAssessment{ID: "a-1", VisitID: "v-1"}

	t.Run("cache miss falls through to store", func(t *testing.T) {
		store := new(MockAssessmentStore)
		store.On("GetByID", ctx, "a-1").Return(stored, nil).Once()
		cache := NewAssessmentCache(domain.CacheConfig{}, nil, logrus.New())
		svc, _ := newTestService(store, cache)

		got, err := svc.GetAssessment(ctx, "a-1")
		require.NoError(t, err)
		assert.Equal(t, stored, got)

		// second lookup is served from the cache
		got, err = svc.GetAssessment(ctx, "a-1")
		require.NoError(t, err)
		assert.Equal(t, stored, got)
		store.AssertNumberOfCalls(t, "GetByID", 1)
	})

	t.Run("not found", func(t *testing.T) {
		store := new(MockAssessmentStore)
		store.On("GetByID", ctx, "missing").Return(nil, domain.ErrNotFound)
		svc, _ := newTestService(store, nil)

		_, err := svc.GetAssessment(ctx, "missing")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})

	t.Run("no store", func(t *testing.T) {
		svc, _ := newTestService(nil, nil)

		_, err := svc.GetAssessment(ctx, "a-1")
		assert.True(t, errors.Is(err, domain.ErrNotFound))
	})
}

func TestAssessmentService_ListPagination(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name           string
		limit, offset  int
		expectedLimit  int
		expectedOffset int
	}{
		{"defaults", 0, 0, 20, 0},
		{"capped", 500, 10, 100, 10},
		{"negative offset", 5, -3, 5, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			store := new(MockAssessmentStore)
			store.On("ListReferrals", ctx, tt.expectedLimit, tt.expectedOffset).Return([]*domain.VisitAssessment{}, nil)
			store.On("ListByParticipant", ctx, "p-1", tt.expectedLimit, tt.expectedOffset).Return([]*domain.VisitAssessment{}, nil)
			svc, _ := newTestService(store, nil)

			_, err := svc.ListReferrals(ctx, tt.limit, tt.offset)
			require.NoError(t, err)
			_, err = svc.ListByParticipant(ctx, "p-1", tt.limit, tt.offset)
			require.NoError(t, err)
			store.AssertExpectations(t)
		})
	}

	svc, _ := newTestService(nil, nil)
	_, err := svc.ListByParticipant(ctx, "", 10, 0)
	assert.True(t, errors.Is(err, domain.ErrIncompleteSnapshot))
}

func TestAssessmentService_SingleEvaluators(t *testing.T) {
	ctx := context.Background()
	svc, logs := newTestService(nil, nil)

	vitals, err := svc.ClassifyBloodPressure(ctx, domain.MeasurementSnapshot{
		BloodPressure: []domain.BPReading{{Systolic: 131, Diastolic: 85}, {Systolic: 134, Diastolic: 86}},
	})
	require.NoError(t, err)
	assert.Equal(t, 132, vitals.SystolicAvg)
	assert.Equal(t, domain.BPHighStage1, vitals.BloodPressure.Category)

	anthro, err := svc.ClassifyBMI(ctx, domain.MeasurementSnapshot{BMI: domain.DecimalPtr("27.0")})
	require.NoError(t, err)
	assert.Equal(t, domain.BMIOverweight, anthro.BMI.Category)
	assert.Equal(t, domain.WaistTidakDiukur, anthro.Waist.Category)

	labs, err := svc.InterpretLabs(ctx, []domain.LabResult{{Analyte: domain.AnalyteGDP, Value: *domain.DecimalPtr("100"), Unit: "mg/dL"}})
	require.NoError(t, err)
	assert.Equal(t, domain.LabPraDiabetes, labs[0].Category)

	_, err = svc.InterpretLabs(ctx, nil)
	assert.True(t, errors.Is(err, domain.ErrIncompleteSnapshot))

	cvd, err := svc.ComputeCVDRisk(ctx, adultVisit().Snapshot)
	require.NoError(t, err)
	assert.Equal(t, domain.RiskSangatTinggi, cvd.Category)
	assert.NotEmpty(t, cvd.Recommendations)

	_, err = svc.CheckMaternalRisk(ctx, domain.MeasurementSnapshot{})
	assert.True(t, errors.Is(err, domain.ErrIncompleteSnapshot))
	assert.Contains(t, logs.String(), "Evaluation rejected input")
	assert.Contains(t, logs.String(), `"error_code":"INCOMPLETE_SNAPSHOT"`)
}

func TestAssessmentService_StockStatus(t *testing.T) {
	svc, _ := newTestService(nil, nil)
	expiry := time.Date(2024, 9, 20, 0, 0, 0, 0, time.UTC)

	got, err := svc.StockStatus(context.Background(), "strip kolesterol", expiry, time.Time{})
	require.NoError(t, err)
	assert.Equal(t, domain.StockSegeraKedaluwarsa, got.Status)
	assert.Equal(t, 18, got.DaysRemaining)
}

func TestAssessmentService_UseStock(t *testing.T) {
	ctx := context.Background()
	svc, logs := newTestService(nil, nil)

	got, err := svc.UseStock(ctx, "strip gula darah", 10, 4)
	require.NoError(t, err)
	assert.Equal(t, domain.StockUsage{ItemName: "strip gula darah", Used: 4, Remaining: 6}, got)

	_, err = svc.UseStock(ctx, "strip gula darah", 3, 4)
	assert.True(t, errors.Is(err, domain.ErrInsufficientStock))
	assert.Contains(t, logs.String(), `"error_code":"INSUFFICIENT_STOCK"`)

	_, err = svc.UseStock(ctx, "", 3, 1)
	assert.True(t, errors.Is(err, domain.ErrIncompleteSnapshot))
}

func TestAssessmentService_WaistAndSpO2(t *testing.T) {
	ctx := context.Background()
	svc, _ := newTestService(nil, nil)

	tests := []struct {
		name      string
		snapshot  domain.MeasurementSnapshot
		classify  func(context.Context, domain.MeasurementSnapshot) (domain.ClassificationResult, error)
		expected  domain.Label
		targetErr error
	}{
		{"waist male high", domain.MeasurementSnapshot{Sex: domain.SexMale, WaistCm: domain.DecimalPtr("95")}, svc.ClassifyWaist, domain.WaistRisikoTinggi, nil},
		{"waist female normal", domain.MeasurementSnapshot{Sex: domain.SexFemale, WaistCm: domain.DecimalPtr("78")}, svc.ClassifyWaist, domain.WaistNormal, nil},
		{"waist missing", domain.MeasurementSnapshot{Sex: domain.SexMale}, svc.ClassifyWaist, "", domain.ErrIncompleteSnapshot},
		{"waist without sex", domain.MeasurementSnapshot{WaistCm: domain.DecimalPtr("95")}, svc.ClassifyWaist, "", domain.ErrIncompleteSnapshot},
		{"waist unknown sex", domain.MeasurementSnapshot{Sex: "x", WaistCm: domain.DecimalPtr("95")}, svc.ClassifyWaist, "", domain.ErrUnsupportedCategoryInput},
		{"spo2 absent", domain.MeasurementSnapshot{}, svc.ClassifySpO2, domain.SpO2TidakDiukur, nil},
		{"spo2 normal", domain.MeasurementSnapshot{SpO2: domain.IntPtr(98)}, svc.ClassifySpO2, domain.SpO2Normal, nil},
		{"spo2 out of range", domain.MeasurementSnapshot{SpO2: domain.IntPtr(101)}, svc.ClassifySpO2, "", domain.ErrInvalidMeasurement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := tt.classify(ctx, tt.snapshot)
			if tt.targetErr != nil {
				assert.True(t, errors.Is(err, tt.targetErr))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got.Category)
		})
	}
}
