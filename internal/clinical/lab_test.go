package clinical

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/posbindu-risk-engine/internal/domain"
)

func TestInterpretLab(t *testing.T) {
	tests := []struct {
		name     string
		analyte  domain.Analyte
		value    string
		unit     string
		expected domain.Label
	}{
		{"gdp 95", domain.AnalyteGDP, "95", "", domain.LabNormal},
		{"gdp 100", domain.AnalyteGDP, "100", "", domain.LabPraDiabetes},
		{"gdp 110", domain.AnalyteGDP, "110", "mg/dL", domain.LabPraDiabetes},
		{"gdp 126", domain.AnalyteGDP, "126", "", domain.LabDiabetes},
		{"gdp 130", domain.AnalyteGDP, "130", "", domain.LabDiabetes},
		{"gds 139", domain.AnalyteGDS, "139", "", domain.LabNormal},
		{"gds 199", domain.AnalyteGDS, "199", "", domain.LabPraDiabetes},
		{"gds 200", domain.AnalyteGDS, "200", "", domain.LabDiabetes},
		{"kolesterol 199", domain.AnalyteKolTotal, "199", "", domain.LabNormal},
		{"kolesterol 200", domain.AnalyteKolTotal, "200", "", domain.LabBatasTinggi},
		{"kolesterol 240", domain.AnalyteKolTotal, "240", "", domain.LabTinggi},
		{"hdl 60", domain.AnalyteHDL, "60", "", domain.LabNormal},
		{"hdl 59", domain.AnalyteHDL, "59", "", domain.LabBatasRendah},
		{"hdl 40", domain.AnalyteHDL, "40", "", domain.LabBatasRendah},
		{"hdl 39", domain.AnalyteHDL, "39", "", domain.LabRendah},
		{"ldl 99", domain.AnalyteLDL, "99", "", domain.LabNormal},
		{"ldl 129", domain.AnalyteLDL, "129", "", domain.LabBatasTinggi},
		{"ldl 159.9", domain.AnalyteLDL, "159.9", "", domain.LabTinggi},
		{"ldl 160", domain.AnalyteLDL, "160", "", domain.LabSangatTinggi},
		{"trigliserida 149", domain.AnalyteTrigliserida, "149", "", domain.LabNormal},
		{"trigliserida 150", domain.AnalyteTrigliserida, "150", "", domain.LabBatasTinggi},
		{"trigliserida 200", domain.AnalyteTrigliserida, "200", "", domain.LabTinggi},
		{"asam urat 6.9", domain.AnalyteAsamUrat, "6.9", "", domain.LabNormal},
		{"asam urat 7.0", domain.AnalyteAsamUrat, "7.0", "", domain.LabTinggi},
		{"gdp 7 mmol/L", domain.AnalyteGDP, "7.0", "mmol/L", domain.LabDiabetes},
		{"kolesterol 5.2 mmol/L", domain.AnalyteKolTotal, "5.2", "MMOL/L", domain.LabBatasTinggi},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := InterpretLab(domain.LabResult{Analyte: tt.analyte, Value: dec(tt.value), Unit: tt.unit})
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got.Category)
			assert.Equal(t, tt.analyte, got.Analyte)
		})
	}
}

func TestNormalizeLabValue(t *testing.T) {
	v, err := NormalizeLabValue(domain.LabResult{Analyte: domain.AnalyteKolTotal, Value: dec("5.2"), Unit: "mmol/L"})
	require.NoError(t, err)
	assertDecimal(t, "201.1", v)

	v, err = NormalizeLabValue(domain.LabResult{Analyte: domain.AnalyteGDS, Value: dec("11.1"), Unit: "mmol/L"})
	require.NoError(t, err)
	assertDecimal(t, "199.8", v)

	v, err = NormalizeLabValue(lab(domain.AnalyteHDL, "45"))
	require.NoError(t, err)
	assertDecimal(t, "45", v)
}

func TestInterpretLab_Errors(t *testing.T) {
	tests := []struct {
		name    string
		input   domain.LabResult
		errKind error
	}{
		{"unknown analyte", lab("hba1c", "6.5"), domain.ErrUnsupportedAnalyte},
		{"empty analyte", lab("", "100"), domain.ErrUnsupportedAnalyte},
		{"negative value", lab(domain.AnalyteGDP, "-1"), domain.ErrInvalidMeasurement},
		{"unknown unit", domain.LabResult{Analyte: domain.AnalyteGDP, Value: dec("1"), Unit: "g/L"}, domain.ErrInvalidMeasurement},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := InterpretLab(tt.input)
			require.Error(t, err)
			assert.True(t, errors.Is(err, tt.errKind), "got %v", err)
		})
	}
}

func TestInterpretLabs_PreservesOrder(t *testing.T) {
	got, err := InterpretLabs([]domain.LabResult{
		lab(domain.AnalyteLDL, "170"),
		lab(domain.AnalyteGDP, "95"),
		lab(domain.AnalyteHDL, "35"),
	})
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, domain.AnalyteLDL, got[0].Analyte)
	assert.Equal(t, domain.AnalyteGDP, got[1].Analyte)
	assert.Equal(t, domain.LabRendah, got[2].Category)

	_, err = InterpretLabs([]domain.LabResult{lab(domain.AnalyteGDP, "95"), lab("psa", "1")})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "lab result 1")
	assert.True(t, errors.Is(err, domain.ErrUnsupportedAnalyte))
}
