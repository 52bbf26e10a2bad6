package clinical

import (
	"errors"
	"fmt"

	"github.com/posbindu-risk-engine/internal/domain"
)

type validator interface {
	Validate() error
}

type labelled interface {
	Labels() []domain.Label
}

// closedSet pairs a label-producing table with the category set its
// evaluator promises.
type closedSet struct {
	name  string
	table labelled
	set   domain.LabelSet
}

func closedSets() []closedSet {
	sets := []closedSet{
		{"bmi", bmiTable, domain.BMICategories},
		{"nutrition_weight", nutritionWeightTable, domain.NutritionCategories},
		{"nutrition_bmi", nutritionBMITable, domain.NutritionCategories},
		{"blood_pressure", bpCategoryCascade, domain.BPCategories},
		{"spo2", spo2Table, domain.SpO2Categories},
		{"screening_category", screeningCategoryTable, domain.ScreeningCategories},
		{"cvd_category", cvdCategoryTable, domain.CVDCategories},
	}
	for sex, table := range waistTables {
		sets = append(sets, closedSet{"waist_" + string(sex), table, domain.WaistCategories})
	}
	return sets
}

// ValidateTables checks that every rule table and cascade of the package ends
// in a catch-all and that category tables only produce labels of their
// evaluator's category set. A failure here is a programming error.
func ValidateTables() error {
	named := map[string]validator{
		"bmi":                bmiTable,
		"nutrition_weight":   nutritionWeightTable,
		"nutrition_bmi":      nutritionBMITable,
		"blood_pressure":     bpCategoryCascade,
		"spo2":               spo2Table,
		"smoking_aktif":      activeSmokerPoints,
		"alcohol_ya":         drinkerPoints,
		"activity":           activityPoints,
		"sleep":              sleepPoints,
		"stress":             stressPoints,
		"screening_category": screeningCategoryTable,
		"cvd_age":            cvdAgePoints,
		"cvd_blood_pressure": cvdBPPoints,
		"cvd_cholesterol":    cvdCholesterolPoints,
		"cvd_hdl":            cvdHDLPoints,
		"cvd_bmi":            cvdBMIPoints,
		"cvd_category":       cvdCategoryTable,
	}
	for sex, table := range waistTables {
		named["waist_"+string(sex)] = table
	}
	for analyte, table := range labTables {
		named["lab_"+string(analyte)] = table
	}

	var errs []error
	for name, v := range named {
		if err := v.Validate(); err != nil {
			errs = append(errs, fmt.Errorf("%s: %w", name, err))
		}
	}
	errs = append(errs, checkClosedSets(closedSets())...)
	return errors.Join(errs...)
}

func checkClosedSets(sets []closedSet) []error {
	var errs []error
	for _, c := range sets {
		for _, label := range c.table.Labels() {
			if !c.set.Contains(label) {
				errs = append(errs, fmt.Errorf("%s: label %q is outside its category set", c.name, label))
			}
		}
	}
	return errs
}
