package clinical

import (
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"

	"github.com/posbindu-risk-engine/internal/domain"
)

func dec(v string) decimal.Decimal {
	return decimal.RequireFromString(v)
}

func assertDecimal(t *testing.T, want string, got decimal.Decimal) {
	t.Helper()
	assert.True(t, dec(want).Equal(got), "expected %s, got %s", want, got)
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// visitDay is the as-of date of visits evaluated in tests.
var visitDay = date(2024, 9, 2)

func bp(readings ...int) []domain.BPReading {
	out := make([]domain.BPReading, 0, len(readings)/2)
	for i := 0; i+1 < len(readings); i += 2 {
		out = append(out, domain.BPReading{Systolic: readings[i], Diastolic: readings[i+1]})
	}
	return out
}

func lab(analyte domain.Analyte, value string) domain.LabResult {
	return domain.LabResult{Analyte: analyte, Value: dec(value)}
}

// adultSnapshot is a 45 year old man with a normal reading and nothing else.
func adultSnapshot() domain.MeasurementSnapshot {
	return domain.MeasurementSnapshot{
		AgeYears:      domain.IntPtr(45),
		Sex:           domain.SexMale,
		BloodPressure: bp(118, 76),
	}
}
