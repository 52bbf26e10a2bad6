package clinical

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/posbindu-risk-engine/internal/domain"
	"github.com/posbindu-risk-engine/pkg/threshold"
)

// bpCategoryCascade mixes AND and OR predicates; the order and the operators
// are part of the recorded rule and must not be made symmetric.
var bpCategoryCascade = threshold.NewCascade("blood_pressure",
	threshold.Case[domain.BPReading, domain.Label]{
		Name:  "normal",
		When:  func(r domain.BPReading) bool { return r.Systolic < 120 && r.Diastolic < 80 },
		Label: domain.BPNormal,
	},
	threshold.Case[domain.BPReading, domain.Label]{
		Name:  "elevated",
		When:  func(r domain.BPReading) bool { return r.Systolic < 130 && r.Diastolic < 80 },
		Label: domain.BPElevated,
	},
	threshold.Case[domain.BPReading, domain.Label]{
		Name:  "stage_1",
		When:  func(r domain.BPReading) bool { return r.Systolic < 140 || r.Diastolic < 90 },
		Label: domain.BPHighStage1,
	},
	threshold.Case[domain.BPReading, domain.Label]{
		Name:  "stage_2",
		When:  func(r domain.BPReading) bool { return r.Systolic < 180 || r.Diastolic < 120 },
		Label: domain.BPHighStage2,
	},
	threshold.Case[domain.BPReading, domain.Label]{
		Name:  "crisis",
		Label: domain.BPCrisis,
	},
)

var spo2Table = threshold.NewTable("spo2",
	threshold.When(threshold.GreaterOrEqual, "95", domain.SpO2Normal),
	threshold.When(threshold.GreaterOrEqual, "90", domain.SpO2HipoksiaRingan),
	threshold.Otherwise(domain.SpO2HipoksiaBerat),
)

const maxBPReadings = 2

// AverageBloodPressure averages two readings with integer floor division.
func AverageBloodPressure(sys1, dia1, sys2, dia2 int) (int, int, error) {
	readings := []struct {
		field string
		value int
	}{
		{"systolic_1", sys1}, {"diastolic_1", dia1},
		{"systolic_2", sys2}, {"diastolic_2", dia2},
	}
	for _, r := range readings {
		if r.value < 0 {
			return 0, 0, domain.Invalid(r.field, r.value, "blood pressure must not be negative")
		}
	}
	return (sys1 + sys2) / 2, (dia1 + dia2) / 2, nil
}

// ResolveBloodPressure reduces the raw readings of a snapshot to the single
// value used for classification: the only reading, or the floor average of two.
func ResolveBloodPressure(readings []domain.BPReading) (domain.BPReading, error) {
	switch len(readings) {
	case 0:
		return domain.BPReading{}, domain.Missing("blood_pressure")
	case 1:
		r := readings[0]
		if r.Systolic < 0 || r.Diastolic < 0 {
			return domain.BPReading{}, domain.Invalid("blood_pressure", r, "blood pressure must not be negative")
		}
		return r, nil
	case maxBPReadings:
		sys, dia, err := AverageBloodPressure(readings[0].Systolic, readings[0].Diastolic,
			readings[1].Systolic, readings[1].Diastolic)
		if err != nil {
			return domain.BPReading{}, err
		}
		return domain.BPReading{Systolic: sys, Diastolic: dia}, nil
	default:
		return domain.BPReading{}, domain.Invalid("blood_pressure", len(readings),
			fmt.Sprintf("at most %d readings are supported", maxBPReadings))
	}
}

// CategorizeBloodPressure classifies an (averaged) blood pressure.
func CategorizeBloodPressure(systolic, diastolic int) (domain.Label, error) {
	if systolic < 0 || diastolic < 0 {
		return "", domain.Invalid("blood_pressure", fmt.Sprintf("%d/%d", systolic, diastolic), "blood pressure must not be negative")
	}
	return bpCategoryCascade.Classify(domain.BPReading{Systolic: systolic, Diastolic: diastolic})
}

// CategorizeSpO2 classifies oxygen saturation. A nil reading is TidakDiukur.
func CategorizeSpO2(spo2 *int) (domain.Label, error) {
	if spo2 == nil {
		return domain.SpO2TidakDiukur, nil
	}
	if *spo2 < 0 || *spo2 > 100 {
		return "", domain.Invalid("spo2", *spo2, "SpO2 must be between 0 and 100")
	}
	return spo2Table.ClassifyInt(*spo2)
}

// EvaluateVitals classifies blood pressure and SpO2 for one snapshot.
func EvaluateVitals(s domain.MeasurementSnapshot) (domain.VitalsResult, error) {
	bp, err := ResolveBloodPressure(s.BloodPressure)
	if err != nil {
		return domain.VitalsResult{}, err
	}
	bpLabel, err := CategorizeBloodPressure(bp.Systolic, bp.Diastolic)
	if err != nil {
		return domain.VitalsResult{}, err
	}
	spo2Label, err := CategorizeSpO2(s.SpO2)
	if err != nil {
		return domain.VitalsResult{}, err
	}

	result := domain.VitalsResult{
		SystolicAvg:  bp.Systolic,
		DiastolicAvg: bp.Diastolic,
		BloodPressure: domain.ClassificationResult{
			Category:    bpLabel,
			Explanation: fmt.Sprintf("%d/%d mmHg dari %d pengukuran", bp.Systolic, bp.Diastolic, len(s.BloodPressure)),
		},
		SpO2: domain.ClassificationResult{Category: spo2Label},
	}
	if s.SpO2 != nil {
		score := decimal.NewFromInt(int64(*s.SpO2))
		result.SpO2.NumericScore = &score
		result.SpO2.Explanation = fmt.Sprintf("SpO2 %d%%", *s.SpO2)
	}
	return result, nil
}
