// Package clinical implements the posbindu/posyandu rule evaluators. Every
// evaluator is a pure function over a domain.MeasurementSnapshot; rule tables
// are package-level data built on pkg/threshold.
package clinical

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/posbindu-risk-engine/internal/domain"
	"github.com/posbindu-risk-engine/pkg/threshold"
)

var (
	hundred = decimal.NewFromInt(100)

	bmiTable = threshold.NewTable("bmi",
		threshold.When(threshold.LessThan, "18.5", domain.BMIKurus),
		threshold.When(threshold.LessThan, "25", domain.BMINormal),
		threshold.When(threshold.LessThan, "30", domain.BMIOverweight),
		threshold.Otherwise(domain.BMIObesitas),
	)

	waistTables = map[domain.Sex]threshold.Table[domain.Label]{
		domain.SexMale: threshold.NewTable("waist_male",
			threshold.When(threshold.GreaterOrEqual, "90", domain.WaistRisikoTinggi),
			threshold.Otherwise(domain.WaistNormal),
		),
		domain.SexFemale: threshold.NewTable("waist_female",
			threshold.When(threshold.GreaterOrEqual, "80", domain.WaistRisikoTinggi),
			threshold.Otherwise(domain.WaistNormal),
		),
	}

	// Under 24 months: weight-for-age bands in kg.
	nutritionWeightTable = threshold.NewTable("nutrition_weight_under_24m",
		threshold.When(threshold.LessThan, "7.0", domain.GiziBuruk),
		threshold.When(threshold.LessThan, "8.5", domain.GiziKurang),
		threshold.When(threshold.GreaterThan, "12.0", domain.GiziLebih),
		threshold.Otherwise(domain.GiziNormal),
	)

	// 24 months and older: BMI bands.
	nutritionBMITable = threshold.NewTable("nutrition_bmi_24m_plus",
		threshold.When(threshold.LessThan, "14", domain.GiziBuruk),
		threshold.When(threshold.LessThan, "16", domain.GiziKurang),
		threshold.When(threshold.GreaterThan, "20", domain.GiziObesitas),
		threshold.Otherwise(domain.GiziNormal),
	)
)

const nutritionBMIAgeMonths = 24

// ComputeBMI returns weight / (height in m)^2 rounded half-up to one decimal.
func ComputeBMI(weightKg, heightCm decimal.Decimal) (decimal.Decimal, error) {
	bmi, err := rawBMI(weightKg, heightCm)
	if err != nil {
		return decimal.Zero, err
	}
	return bmi.Round(1), nil
}

func rawBMI(weightKg, heightCm decimal.Decimal) (decimal.Decimal, error) {
	if !heightCm.IsPositive() {
		return decimal.Zero, domain.Invalid("height_cm", heightCm.String(), "height must be greater than zero")
	}
	if !weightKg.IsPositive() {
		return decimal.Zero, domain.Invalid("weight_kg", weightKg.String(), "weight must be greater than zero")
	}
	meters := heightCm.Div(hundred)
	return weightKg.Div(meters.Mul(meters)), nil
}

// CategorizeBMI classifies an adult BMI.
func CategorizeBMI(bmi decimal.Decimal) (domain.Label, error) {
	return bmiTable.Classify(bmi)
}

// CategorizeWaist classifies waist circumference against the sex-specific
// abdominal obesity threshold.
func CategorizeWaist(circumferenceCm decimal.Decimal, sex domain.Sex) (domain.Label, error) {
	table, ok := waistTables[sex]
	if !ok {
		return "", domain.NewValidationError("sex", fmt.Sprintf("no waist threshold for sex %q", sex), sex, domain.ErrUnsupportedCategoryInput)
	}
	if !circumferenceCm.IsPositive() {
		return "", domain.Invalid("waist_cm", circumferenceCm.String(), "waist circumference must be greater than zero")
	}
	return table.Classify(circumferenceCm)
}

// CategorizeNutritionStatus returns the pediatric nutrition status. Children
// under 24 months are classified by weight alone; older children by unrounded
// BMI. The two bands are separate tables and are never merged.
func CategorizeNutritionStatus(weightKg, heightCm decimal.Decimal, ageMonths int) (domain.ClassificationResult, error) {
	if ageMonths < 0 {
		return domain.ClassificationResult{}, domain.Invalid("age_months", ageMonths, "age must not be negative")
	}
	if !weightKg.IsPositive() {
		return domain.ClassificationResult{}, domain.Invalid("weight_kg", weightKg.String(), "weight must be greater than zero")
	}

	if ageMonths < nutritionBMIAgeMonths {
		label, err := nutritionWeightTable.Classify(weightKg)
		if err != nil {
			return domain.ClassificationResult{}, err
		}
		return domain.ClassificationResult{
			Category:     label,
			NumericScore: &weightKg,
			Explanation:  fmt.Sprintf("berat badan %s kg pada umur %d bulan", weightKg.String(), ageMonths),
		}, nil
	}

	bmi, err := rawBMI(weightKg, heightCm)
	if err != nil {
		return domain.ClassificationResult{}, err
	}
	label, err := nutritionBMITable.Classify(bmi)
	if err != nil {
		return domain.ClassificationResult{}, err
	}
	rounded := bmi.Round(1)
	return domain.ClassificationResult{
		Category:     label,
		NumericScore: &rounded,
		Explanation:  fmt.Sprintf("IMT %s pada umur %d bulan", bmi.StringFixed(2), ageMonths),
	}, nil
}

// EvaluateNutrition reads age, weight and height from the snapshot.
func EvaluateNutrition(s domain.MeasurementSnapshot) (domain.ClassificationResult, error) {
	if s.AgeMonths == nil {
		return domain.ClassificationResult{}, domain.Missing("age_months")
	}
	if s.WeightKg == nil {
		return domain.ClassificationResult{}, domain.Missing("weight_kg")
	}
	height := decimal.Zero
	if s.HeightCm != nil {
		height = *s.HeightCm
	} else if *s.AgeMonths >= nutritionBMIAgeMonths {
		return domain.ClassificationResult{}, domain.Missing("height_cm")
	}
	return CategorizeNutritionStatus(*s.WeightKg, height, *s.AgeMonths)
}

// SnapshotBMI returns the BMI computed from weight and height, or the
// directly supplied BMI when either is missing. ok is false when neither is
// available.
func SnapshotBMI(s domain.MeasurementSnapshot) (bmi decimal.Decimal, ok bool, err error) {
	if s.WeightKg != nil && s.HeightCm != nil {
		bmi, err = ComputeBMI(*s.WeightKg, *s.HeightCm)
		return bmi, err == nil, err
	}
	if s.BMI != nil {
		if !s.BMI.IsPositive() {
			return decimal.Zero, false, domain.Invalid("bmi", s.BMI.String(), "BMI must be greater than zero")
		}
		return *s.BMI, true, nil
	}
	return decimal.Zero, false, nil
}

// EvaluateAnthropometry classifies BMI and waist circumference. An absent
// waist measurement is reported as TidakDiukur.
func EvaluateAnthropometry(s domain.MeasurementSnapshot) (domain.AnthropometryResult, error) {
	bmi, ok, err := SnapshotBMI(s)
	if err != nil {
		return domain.AnthropometryResult{}, err
	}
	if !ok {
		return domain.AnthropometryResult{}, domain.Missing("weight_kg")
	}
	bmiLabel, err := CategorizeBMI(bmi)
	if err != nil {
		return domain.AnthropometryResult{}, err
	}

	result := domain.AnthropometryResult{
		BMI: domain.ClassificationResult{
			Category:     bmiLabel,
			NumericScore: &bmi,
			Explanation:  fmt.Sprintf("IMT %s kg/m2", bmi.StringFixed(1)),
		},
		Waist: domain.ClassificationResult{Category: domain.WaistTidakDiukur},
	}

	if s.WaistCm != nil {
		if s.Sex == "" {
			return domain.AnthropometryResult{}, domain.Missing("sex")
		}
		waistLabel, err := CategorizeWaist(*s.WaistCm, s.Sex)
		if err != nil {
			return domain.AnthropometryResult{}, err
		}
		waist := *s.WaistCm
		result.Waist = domain.ClassificationResult{
			Category:     waistLabel,
			NumericScore: &waist,
			Explanation:  fmt.Sprintf("lingkar perut %s cm (%s)", waist.String(), s.Sex),
		}
	}

	return result, nil
}
