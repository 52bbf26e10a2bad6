package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// MeasurementSnapshot is one immutable set of measurements for one person at
// one visit. Only the fields required by the invoked evaluator need to be set.
type MeasurementSnapshot struct {
	AgeYears  *int `json:"age_years,omitempty"`
	AgeMonths *int `json:"age_months,omitempty"`
	Sex       Sex  `json:"sex,omitempty"`

	// BirthDate derives the age when neither age field is given.
	BirthDate *time.Time `json:"birth_date,omitempty"`

	// One or two raw blood pressure readings.
	BloodPressure []BPReading      `json:"blood_pressure,omitempty"`
	Pulse         *int             `json:"pulse,omitempty"`
	TemperatureC  *decimal.Decimal `json:"temperature_c,omitempty"`
	SpO2          *int             `json:"spo2,omitempty"`

	HeightCm *decimal.Decimal `json:"height_cm,omitempty"`
	WeightKg *decimal.Decimal `json:"weight_kg,omitempty"`
	// BMI is used when height and weight are not both present.
	BMI     *decimal.Decimal `json:"bmi,omitempty"`
	WaistCm *decimal.Decimal `json:"waist_cm,omitempty"`

	Labs      []LabResult `json:"labs,omitempty"`
	Lifestyle *Lifestyle  `json:"lifestyle,omitempty"`

	Smoker   bool `json:"smoker"`
	Diabetic bool `json:"diabetic"`

	Pregnancy *PregnancyMeasurements `json:"pregnancy,omitempty"`
}

// BPReading is a single systolic/diastolic measurement in mmHg.
type BPReading struct {
	Systolic  int `json:"systolic"`
	Diastolic int `json:"diastolic"`
}

// LabResult is one analyte value as reported by the point-of-care device.
type LabResult struct {
	Analyte Analyte         `json:"analyte"`
	Value   decimal.Decimal `json:"value"`
	// Unit is empty or "mg/dL" for canonical values, or "mmol/L".
	Unit string `json:"unit,omitempty"`
}

// Lifestyle holds the behavioural answers of the PTM screening form.
type Lifestyle struct {
	Smoking          SmokingStatus `json:"smoking"`
	CigarettesPerDay int           `json:"cigarettes_per_day,omitempty"`

	Alcohol       AlcoholUse `json:"alcohol"`
	DrinksPerWeek int        `json:"drinks_per_week,omitempty"`

	ActivityMinutesPerWeek int `json:"activity_minutes_per_week"`

	HighSalt              bool `json:"high_salt"`
	HighSugar             bool `json:"high_sugar"`
	HighFat               bool `json:"high_fat"`
	FruitVegPortionsDaily int  `json:"fruit_veg_portions_daily"`

	SleepHours  decimal.Decimal `json:"sleep_hours"`
	StressScale int             `json:"stress_scale"`
}

// PregnancyMeasurements are the antenatal examination fields.
type PregnancyMeasurements struct {
	HemoglobinGdL *decimal.Decimal `json:"hemoglobin_g_dl,omitempty"`
	ProteinUrine  string           `json:"protein_urine,omitempty"`
	BloodGlucose  *decimal.Decimal `json:"blood_glucose,omitempty"`
	MUACCm        *decimal.Decimal `json:"muac_cm,omitempty"`
	LastMenstrual *time.Time       `json:"last_menstrual_period,omitempty"`
}

// Lab returns the first lab result for the given analyte.
func (s *MeasurementSnapshot) Lab(analyte Analyte) (LabResult, bool) {
	for _, lab := range s.Labs {
		if lab.Analyte == analyte {
			return lab, true
		}
	}
	return LabResult{}, false
}

// IntPtr returns a pointer to v.
func IntPtr(v int) *int {
	return &v
}

// DecimalPtr parses v and returns a pointer to it. It panics on malformed
// input and is meant for literals.
func DecimalPtr(v string) *decimal.Decimal {
	d := decimal.RequireFromString(v)
	return &d
}
