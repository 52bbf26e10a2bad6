package clinical

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/posbindu-risk-engine/internal/domain"
)

var (
	anemiaHemoglobin      = decimal.RequireFromString("11.0")
	gestationalDiabetesGD = decimal.NewFromInt(140)
	chronicEnergyMUAC     = decimal.RequireFromString("23.5")

	positiveProteinUrine = map[string]struct{}{
		"positif": {}, "+1": {}, "+2": {}, "+3": {},
	}
)

// maternalRiskChecks run in this order; each match adds its risk type.
var maternalRiskChecks = []struct {
	RiskType string
	When     func(bp domain.BPReading, p domain.PregnancyMeasurements, glucose *decimal.Decimal) bool
}{
	{domain.MaternalHipertensi, func(bp domain.BPReading, _ domain.PregnancyMeasurements, _ *decimal.Decimal) bool {
		return bp.Systolic >= 140 || bp.Diastolic >= 90
	}},
	{domain.MaternalAnemia, func(_ domain.BPReading, p domain.PregnancyMeasurements, _ *decimal.Decimal) bool {
		return p.HemoglobinGdL != nil && p.HemoglobinGdL.LessThan(anemiaHemoglobin)
	}},
	{domain.MaternalProteinuria, func(_ domain.BPReading, p domain.PregnancyMeasurements, _ *decimal.Decimal) bool {
		_, ok := positiveProteinUrine[strings.ToLower(strings.TrimSpace(p.ProteinUrine))]
		return ok
	}},
	{domain.MaternalDiabetesGestasional, func(_ domain.BPReading, _ domain.PregnancyMeasurements, glucose *decimal.Decimal) bool {
		return glucose != nil && glucose.GreaterThanOrEqual(gestationalDiabetesGD)
	}},
	{domain.MaternalKEK, func(_ domain.BPReading, p domain.PregnancyMeasurements, _ *decimal.Decimal) bool {
		return p.MUACCm.LessThan(chronicEnergyMUAC)
	}},
}

// CheckMaternalRisk evaluates the antenatal high-risk checks. Blood pressure
// and mid-upper arm circumference are required; hemoglobin, protein urine and
// glucose are checked when present. Glucose falls back to a gds lab result.
// With a last menstrual period the result also carries the gestational age
// as of asOf and the estimated due date.
func CheckMaternalRisk(s domain.MeasurementSnapshot, asOf time.Time) (domain.MaternalRiskResult, error) {
	if s.Pregnancy == nil {
		return domain.MaternalRiskResult{}, domain.Missing("pregnancy")
	}
	p := *s.Pregnancy

	bp, err := ResolveBloodPressure(s.BloodPressure)
	if err != nil {
		return domain.MaternalRiskResult{}, err
	}
	if p.MUACCm == nil {
		return domain.MaternalRiskResult{}, domain.Missing("muac_cm")
	}
	if !p.MUACCm.IsPositive() {
		return domain.MaternalRiskResult{}, domain.Invalid("muac_cm", p.MUACCm.String(), "must be greater than zero")
	}
	if p.HemoglobinGdL != nil && p.HemoglobinGdL.IsNegative() {
		return domain.MaternalRiskResult{}, domain.Invalid("hemoglobin_g_dl", p.HemoglobinGdL.String(), "must not be negative")
	}

	glucose := p.BloodGlucose
	if glucose == nil {
		if lab, ok := s.Lab(domain.AnalyteGDS); ok {
			v, err := NormalizeLabValue(lab)
			if err != nil {
				return domain.MaternalRiskResult{}, err
			}
			glucose = &v
		}
	}
	if glucose != nil && glucose.IsNegative() {
		return domain.MaternalRiskResult{}, domain.Invalid("blood_glucose", glucose.String(), "must not be negative")
	}

	types := []string{}
	for _, check := range maternalRiskChecks {
		if check.When(bp, p, glucose) {
			types = append(types, check.RiskType)
		}
	}
	result := domain.MaternalRiskResult{HighRisk: len(types) > 0, RiskTypes: types}

	if lmp := p.LastMenstrual; lmp != nil {
		weeks, err := GestationalAgeWeeks(*lmp, asOf)
		if err != nil {
			return domain.MaternalRiskResult{}, err
		}
		due := EstimatedDueDate(*lmp)
		result.GestationalAgeWeeks = &weeks
		result.EstimatedDueDate = &due
	}
	return result, nil
}
