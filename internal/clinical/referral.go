package clinical

import (
	"strings"

	"github.com/posbindu-risk-engine/internal/domain"
)

// VisitEvaluations is the set of results already computed for one visit.
// Any member may be absent.
type VisitEvaluations struct {
	Vitals        *domain.VitalsResult
	Anthropometry *domain.AnthropometryResult
	Nutrition     *domain.ClassificationResult
	Labs          []domain.LabInterpretation
	CVD           *domain.CompositeRiskResult
	Maternal      *domain.MaternalRiskResult
}

// Trigger sources
const (
	SourceBloodPressure = "blood_pressure"
	SourceSpO2          = "spo2"
	SourceBMI           = "bmi"
	SourceWaist         = "waist"
	SourceNutrition     = "nutrition"
	SourceLab           = "lab"
)

// Referral reasons raised by single classifications.
const (
	ReasonSevereHypoxia      = "Hipoksia berat"
	ReasonSevereMalnutrition = "Gizi buruk"
	ReasonHighBloodGlucose   = "Gula darah tinggi"
	ReasonVeryHighLDL        = "LDL sangat tinggi"
	ReasonHighRiskPregnancy  = "Ibu hamil risiko tinggi"
)

// referralTrigger raises Reason when a classification from Source (and, for
// labs, one of Analytes) lands in Category.
type referralTrigger struct {
	Source   string
	Analytes []domain.Analyte
	Category domain.Label
	Reason   string
}

var referralTriggers = []referralTrigger{
	{Source: SourceBloodPressure, Category: domain.BPCrisis, Reason: ReasonBPCrisis},
	{Source: SourceSpO2, Category: domain.SpO2HipoksiaBerat, Reason: ReasonSevereHypoxia},
	{Source: SourceNutrition, Category: domain.GiziBuruk, Reason: ReasonSevereMalnutrition},
	{Source: SourceLab, Analytes: []domain.Analyte{domain.AnalyteGDP, domain.AnalyteGDS}, Category: domain.LabDiabetes, Reason: ReasonHighBloodGlucose},
	{Source: SourceLab, Analytes: []domain.Analyte{domain.AnalyteKolTotal}, Category: domain.LabTinggi, Reason: ReasonVeryHighCholesterol},
	{Source: SourceLab, Analytes: []domain.Analyte{domain.AnalyteLDL}, Category: domain.LabSangatTinggi, Reason: ReasonVeryHighLDL},
}

type observation struct {
	source   string
	analyte  domain.Analyte
	category domain.Label
}

func (t referralTrigger) matches(o observation) bool {
	if t.Source != o.source || t.Category != o.category {
		return false
	}
	if len(t.Analytes) == 0 {
		return true
	}
	for _, a := range t.Analytes {
		if a == o.analyte {
			return true
		}
	}
	return false
}

// AggregateReferral merges the referral triggers of every evaluator in the
// order vitals, anthropometry and nutrition, labs (input order), CVD
// composite, maternal. Reasons are de-duplicated keeping first occurrence.
func AggregateReferral(e VisitEvaluations) domain.ReferralDecision {
	reasons := newReasonSet()

	for _, o := range e.observations() {
		for _, t := range referralTriggers {
			if t.matches(o) {
				reasons.add(t.Reason)
			}
		}
	}
	if e.CVD != nil {
		for _, r := range e.CVD.ReferralReasons {
			reasons.add(r)
		}
	}
	if e.Maternal != nil && e.Maternal.HighRisk {
		reasons.add(ReasonHighRiskPregnancy + ": " + strings.Join(e.Maternal.RiskTypes, ", "))
	}

	return domain.ReferralDecision{
		Required: len(reasons.items) > 0,
		Reasons:  reasons.items,
	}
}

func (e VisitEvaluations) observations() []observation {
	var out []observation
	if e.Vitals != nil {
		out = append(out,
			observation{source: SourceBloodPressure, category: e.Vitals.BloodPressure.Category},
			observation{source: SourceSpO2, category: e.Vitals.SpO2.Category},
		)
	}
	if e.Anthropometry != nil {
		out = append(out,
			observation{source: SourceBMI, category: e.Anthropometry.BMI.Category},
			observation{source: SourceWaist, category: e.Anthropometry.Waist.Category},
		)
	}
	if e.Nutrition != nil {
		out = append(out, observation{source: SourceNutrition, category: e.Nutrition.Category})
	}
	for _, lab := range e.Labs {
		out = append(out, observation{source: SourceLab, analyte: lab.Analyte, category: lab.Category})
	}
	return out
}

type reasonSet struct {
	seen  map[string]struct{}
	items []string
}

func newReasonSet() *reasonSet {
	return &reasonSet{seen: make(map[string]struct{}), items: []string{}}
}

func (r *reasonSet) add(reason string) {
	if _, ok := r.seen[reason]; ok {
		return
	}
	r.seen[reason] = struct{}{}
	r.items = append(r.items, reason)
}
