package clinical

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posbindu-risk-engine/internal/domain"
)

func pregnantSnapshot(p domain.PregnancyMeasurements, readings ...int) domain.MeasurementSnapshot {
	return domain.MeasurementSnapshot{
		Sex:           domain.SexFemale,
		BloodPressure: bp(readings...),
		Pregnancy:     &p,
	}
}

func TestCheckMaternalRisk(t *testing.T) {
	tests := []struct {
		name     string
		snapshot domain.MeasurementSnapshot
		expected []string
	}{
		{
			name:     "no risk",
			snapshot: pregnantSnapshot(domain.PregnancyMeasurements{MUACCm: domain.DecimalPtr("25"), HemoglobinGdL: domain.DecimalPtr("12")}, 110, 70),
			expected: []string{},
		},
		{
			name: "every risk in order",
			snapshot: pregnantSnapshot(domain.PregnancyMeasurements{
				MUACCm:        domain.DecimalPtr("22"),
				HemoglobinGdL: domain.DecimalPtr("10.5"),
				ProteinUrine:  "+2",
				BloodGlucose:  domain.DecimalPtr("150"),
			}, 142, 88),
			expected: []string{"Hipertensi", "Anemia", "Proteinuria", "Diabetes Gestasional", "Kurang Energi Kronis"},
		},
		{
			name:     "diastolic alone is hipertensi",
			snapshot: pregnantSnapshot(domain.PregnancyMeasurements{MUACCm: domain.DecimalPtr("24")}, 120, 90),
			expected: []string{"Hipertensi"},
		},
		{
			name:     "boundaries are not risks",
			snapshot: pregnantSnapshot(domain.PregnancyMeasurements{MUACCm: domain.DecimalPtr("23.5"), HemoglobinGdL: domain.DecimalPtr("11.0"), BloodGlucose: domain.DecimalPtr("139"), ProteinUrine: "negatif"}, 139, 89),
			expected: []string{},
		},
		{
			name:     "protein urine is case insensitive",
			snapshot: pregnantSnapshot(domain.PregnancyMeasurements{MUACCm: domain.DecimalPtr("24"), ProteinUrine: " Positif "}, 110, 70),
			expected: []string{"Proteinuria"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := CheckMaternalRisk(tt.snapshot, visitDay)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got.RiskTypes)
			assert.Equal(t, len(tt.expected) > 0, got.HighRisk)
		})
	}
}

func TestCheckMaternalRisk_GlucoseFromLab(t *testing.T) {
	s := pregnantSnapshot(domain.PregnancyMeasurements{MUACCm: domain.DecimalPtr("25")}, 110, 70)
	s.Labs = []domain.LabResult{{Analyte: domain.AnalyteGDS, Value: dec("8.0"), Unit: "mmol/L"}}

	got, err := CheckMaternalRisk(s, visitDay)
	require.NoError(t, err)
	assert.Equal(t, []string{"Diabetes Gestasional"}, got.RiskTypes)
}

func TestCheckMaternalRisk_Errors(t *testing.T) {
	_, err := CheckMaternalRisk(domain.MeasurementSnapshot{BloodPressure: bp(110, 70)}, visitDay)
	assert.True(t, errors.Is(err, domain.ErrIncompleteSnapshot))

	_, err = CheckMaternalRisk(pregnantSnapshot(domain.PregnancyMeasurements{}, 110, 70), visitDay)
	assert.True(t, errors.Is(err, domain.ErrIncompleteSnapshot))

	_, err = CheckMaternalRisk(pregnantSnapshot(domain.PregnancyMeasurements{MUACCm: domain.DecimalPtr("25")}), visitDay)
	assert.True(t, errors.Is(err, domain.ErrIncompleteSnapshot))

	_, err = CheckMaternalRisk(pregnantSnapshot(domain.PregnancyMeasurements{MUACCm: domain.DecimalPtr("0")}, 110, 70), visitDay)
	assert.True(t, errors.Is(err, domain.ErrInvalidMeasurement))
}

func TestCheckMaternalRisk_PregnancyDating(t *testing.T) {
	lmp := date(2024, 1, 1)
	s := pregnantSnapshot(domain.PregnancyMeasurements{MUACCm: domain.DecimalPtr("25"), LastMenstrual: &lmp}, 110, 70)

	// Act
	got, err := CheckMaternalRisk(s, visitDay)

	// Assert
	require.NoError(t, err)
	assert.False(t, got.HighRisk)
	require.NotNil(t, got.GestationalAgeWeeks)
	assert.Equal(t, 35, *got.GestationalAgeWeeks)
	require.NotNil(t, got.EstimatedDueDate)
	assert.Equal(t, date(2024, 10, 7), *got.EstimatedDueDate)

	undated, err := CheckMaternalRisk(pregnantSnapshot(domain.PregnancyMeasurements{MUACCm: domain.DecimalPtr("25")}, 110, 70), visitDay)
	require.NoError(t, err)
	assert.Nil(t, undated.GestationalAgeWeeks)
	assert.Nil(t, undated.EstimatedDueDate)

	future := date(2024, 10, 1)
	_, err = CheckMaternalRisk(pregnantSnapshot(domain.PregnancyMeasurements{MUACCm: domain.DecimalPtr("25"), LastMenstrual: &future}, 110, 70), visitDay)
	assert.True(t, errors.Is(err, domain.ErrInvalidMeasurement))
}
