package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// ClassificationResult is the output of a single threshold classifier.
type ClassificationResult struct {
	Category     Label            `json:"category"`
	NumericScore *decimal.Decimal `json:"numeric_score,omitempty"`
	Explanation  string           `json:"explanation,omitempty"`
}

// AnthropometryResult holds BMI and waist classifications for one snapshot.
type AnthropometryResult struct {
	BMI   ClassificationResult `json:"bmi"`
	Waist ClassificationResult `json:"waist"`
}

// VitalsResult holds the averaged blood pressure and its category, plus SpO2.
type VitalsResult struct {
	SystolicAvg   int                  `json:"systolic_avg"`
	DiastolicAvg  int                  `json:"diastolic_avg"`
	BloodPressure ClassificationResult `json:"blood_pressure"`
	SpO2          ClassificationResult `json:"spo2"`
}

// LabInterpretation is a lab value normalised to mg/dL with its category.
type LabInterpretation struct {
	Analyte Analyte         `json:"analyte"`
	ValueMg decimal.Decimal `json:"value_mg_dl"`
	ClassificationResult
}

// RiskFactorScore is the screening composite of six lifestyle sub-scores.
type RiskFactorScore struct {
	Smoking  int   `json:"smoking"`
	Alcohol  int   `json:"alcohol"`
	Activity int   `json:"activity"`
	Diet     int   `json:"diet"`
	Sleep    int   `json:"sleep"`
	Stress   int   `json:"stress"`
	Total    int   `json:"total"`
	Category Label `json:"category"`
}

// FactorPoints is the contribution of one factor to a composite score.
type FactorPoints struct {
	Factor string `json:"factor"`
	Points int    `json:"points"`
}

// CompositeRiskResult is the cardiovascular composite score and referral
// decision. ReferralReasons is empty iff ReferralRequired is false.
type CompositeRiskResult struct {
	TotalScore       int            `json:"total_score"`
	Category         Label          `json:"category"`
	ReferralRequired bool           `json:"referral_required"`
	ReferralReasons  []string       `json:"referral_reasons"`
	Factors          []FactorPoints `json:"factors"`
}

// MaternalRiskResult lists the antenatal risk types found.
type MaternalRiskResult struct {
	HighRisk  bool     `json:"high_risk"`
	RiskTypes []string `json:"risk_types"`

	// Pregnancy dating, set when the last menstrual period is known.
	GestationalAgeWeeks *int       `json:"gestational_age_weeks,omitempty"`
	EstimatedDueDate    *time.Time `json:"estimated_due_date,omitempty"`
}

// ReferralDecision merges every evaluator's referral triggers for one visit.
type ReferralDecision struct {
	Required bool     `json:"required"`
	Reasons  []string `json:"reasons"`
}

// StockStatus is the expiry classification of a consumable.
type StockStatus struct {
	ItemName      string    `json:"item_name"`
	ExpiryDate    time.Time `json:"expiry_date"`
	AsOf          time.Time `json:"as_of"`
	DaysRemaining int       `json:"days_remaining"`
	Status        Label     `json:"status"`
}

// StockUsage is the remaining count of a consumable after units were used.
type StockUsage struct {
	ItemName  string `json:"item_name"`
	Used      int    `json:"used"`
	Remaining int    `json:"remaining"`
}

// VisitAssessment is the full evaluation of one visit, as persisted.
type VisitAssessment struct {
	ID            string    `json:"id"`
	VisitID       string    `json:"visit_id"`
	ParticipantID string    `json:"participant_id"`
	AssessedAt    time.Time `json:"assessed_at"`

	Snapshot MeasurementSnapshot `json:"snapshot"`

	Vitals          *VitalsResult         `json:"vitals,omitempty"`
	Anthropometry   *AnthropometryResult  `json:"anthropometry,omitempty"`
	Nutrition       *ClassificationResult `json:"nutrition,omitempty"`
	Labs            []LabInterpretation   `json:"labs,omitempty"`
	Screening       *RiskFactorScore      `json:"screening,omitempty"`
	CVD             *CompositeRiskResult  `json:"cvd,omitempty"`
	Maternal        *MaternalRiskResult   `json:"maternal,omitempty"`
	Referral        ReferralDecision      `json:"referral"`
	Recommendations []string              `json:"recommendations"`

	CreatedAt time.Time `json:"created_at"`
}
