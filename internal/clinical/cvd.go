package clinical

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/posbindu-risk-engine/internal/domain"
	"github.com/posbindu-risk-engine/pkg/threshold"
)

// CVD factor names, in breakdown order.
const (
	FactorAge           = "age"
	FactorSex           = "sex"
	FactorBloodPressure = "blood_pressure"
	FactorSmoking       = "smoking"
	FactorDiabetes      = "diabetes"
	FactorCholesterol   = "cholesterol"
	FactorHDL           = "hdl"
	FactorBMI           = "bmi"
	FactorWaist         = "waist"
)

// Referral reasons, part of the observable contract.
const (
	ReasonBPCrisis             = "Tekanan darah krisis"
	ReasonHighRiskScore        = "Skor risiko tinggi"
	ReasonDiabetesHypertension = "Diabetes dengan hipertensi"
	ReasonVeryHighCholesterol  = "Kolesterol sangat tinggi"
)

var (
	cvdAgePoints = threshold.NewTable("cvd_age",
		threshold.When(threshold.GreaterOrEqual, "60", 3),
		threshold.When(threshold.GreaterOrEqual, "50", 2),
		threshold.When(threshold.GreaterOrEqual, "40", 1),
		threshold.Otherwise(0),
	)

	cvdBPPoints = threshold.NewCascade("cvd_blood_pressure",
		threshold.Case[domain.BPReading, int]{
			Name:  "crisis",
			When:  func(r domain.BPReading) bool { return r.Systolic >= 180 || r.Diastolic >= 110 },
			Label: 4,
		},
		threshold.Case[domain.BPReading, int]{
			Name:  "stage_2",
			When:  func(r domain.BPReading) bool { return r.Systolic >= 160 || r.Diastolic >= 100 },
			Label: 3,
		},
		threshold.Case[domain.BPReading, int]{
			Name:  "stage_1",
			When:  func(r domain.BPReading) bool { return r.Systolic >= 140 || r.Diastolic >= 90 },
			Label: 2,
		},
		threshold.Case[domain.BPReading, int]{
			Name:  "elevated",
			When:  func(r domain.BPReading) bool { return r.Systolic >= 130 || r.Diastolic >= 80 },
			Label: 1,
		},
		threshold.Case[domain.BPReading, int]{Name: "normal", Label: 0},
	)

	cvdCholesterolPoints = threshold.NewTable("cvd_cholesterol",
		threshold.When(threshold.GreaterOrEqual, "240", 2),
		threshold.When(threshold.GreaterOrEqual, "200", 1),
		threshold.Otherwise(0),
	)

	cvdHDLPoints = threshold.NewTable("cvd_hdl",
		threshold.When(threshold.LessThan, "40", 1),
		threshold.Otherwise(0),
	)

	cvdBMIPoints = threshold.NewTable("cvd_bmi",
		threshold.When(threshold.GreaterOrEqual, "30", 2),
		threshold.When(threshold.GreaterOrEqual, "25", 1),
		threshold.Otherwise(0),
	)

	cvdCategoryTable = threshold.NewTable("cvd_category",
		threshold.When(threshold.LessOrEqual, "2", domain.RiskRendah),
		threshold.When(threshold.LessOrEqual, "4", domain.RiskSedang),
		threshold.When(threshold.LessOrEqual, "6", domain.RiskTinggi),
		threshold.Otherwise(domain.RiskSangatTinggi),
	)
)

const (
	malePoints     = 1
	smokerPoints   = 2
	diabeticPoints = 2
	waistPoints    = 1
)

var (
	cholesterolReferral       = decimal.NewFromInt(240)
	cholesterolRecommendation = decimal.NewFromInt(200)
	overweightBMI             = decimal.NewFromInt(25)
)

// cvdInputs is the resolved factor set of one snapshot. Optional factors are
// nil when not measured and then contribute no points.
type cvdInputs struct {
	Age         int
	Sex         domain.Sex
	BP          domain.BPReading
	Smoker      bool
	Diabetic    bool
	Cholesterol *decimal.Decimal
	HDL         *decimal.Decimal
	BMI         *decimal.Decimal
	Waist       *domain.Label
}

type cvdEvaluation struct {
	cvdInputs
	Score int
}

// cvdReferralRules are checked in this order; each match adds its reason.
var cvdReferralRules = []struct {
	Reason string
	When   func(e cvdEvaluation) bool
}{
	{ReasonBPCrisis, func(e cvdEvaluation) bool { return e.BP.Systolic >= 180 || e.BP.Diastolic >= 110 }},
	{ReasonHighRiskScore, func(e cvdEvaluation) bool { return e.Score >= 6 }},
	{ReasonDiabetesHypertension, func(e cvdEvaluation) bool { return e.Diabetic && e.BP.Systolic >= 140 }},
	{ReasonVeryHighCholesterol, func(e cvdEvaluation) bool {
		return e.Cholesterol != nil && e.Cholesterol.GreaterThanOrEqual(cholesterolReferral)
	}},
}

// cvdRecommendations are checked in this order; each match adds its text.
var cvdRecommendations = []struct {
	Text string
	When func(e cvdEvaluation, category domain.Label) bool
}{
	{"Kontrol tekanan darah dengan diet rendah garam dan olahraga teratur", func(e cvdEvaluation, _ domain.Label) bool {
		return e.BP.Systolic >= 140 || e.BP.Diastolic >= 90
	}},
	{"Berhenti merokok untuk mengurangi risiko kardiovaskular", func(e cvdEvaluation, _ domain.Label) bool {
		return e.Smoker
	}},
	{"Kontrol gula darah dengan diet dan obat sesuai anjuran dokter", func(e cvdEvaluation, _ domain.Label) bool {
		return e.Diabetic
	}},
	{"Diet rendah lemak dan konsultasi untuk pengobatan kolesterol", func(e cvdEvaluation, _ domain.Label) bool {
		return e.Cholesterol != nil && e.Cholesterol.GreaterThanOrEqual(cholesterolRecommendation)
	}},
	{"Turunkan berat badan dengan diet seimbang dan olahraga", func(e cvdEvaluation, _ domain.Label) bool {
		return e.BMI != nil && e.BMI.GreaterThanOrEqual(overweightBMI)
	}},
	{"Kurangi lingkar perut dengan olahraga dan diet", func(e cvdEvaluation, _ domain.Label) bool {
		return e.Waist != nil && *e.Waist == domain.WaistRisikoTinggi
	}},
	{"Konsultasi rutin dengan dokter untuk monitoring", func(_ cvdEvaluation, category domain.Label) bool {
		return category == domain.RiskTinggi || category == domain.RiskSangatTinggi
	}},
}

// ComputeCVDRisk scores the cardiovascular composite, derives its category and
// applies the referral rules. Age, sex and blood pressure are required;
// cholesterol, HDL, BMI and waist are scored only when measured.
func ComputeCVDRisk(s domain.MeasurementSnapshot) (domain.CompositeRiskResult, error) {
	eval, factors, err := evaluateCVD(s)
	if err != nil {
		return domain.CompositeRiskResult{}, err
	}
	category, err := cvdCategoryTable.ClassifyInt(eval.Score)
	if err != nil {
		return domain.CompositeRiskResult{}, err
	}

	reasons := []string{}
	for _, rule := range cvdReferralRules {
		if rule.When(eval) {
			reasons = append(reasons, rule.Reason)
		}
	}

	return domain.CompositeRiskResult{
		TotalScore:       eval.Score,
		Category:         category,
		ReferralRequired: len(reasons) > 0,
		ReferralReasons:  reasons,
		Factors:          factors,
	}, nil
}

// CVDRecommendations returns the lifestyle and follow-up advice for a scored
// snapshot, in fixed order.
func CVDRecommendations(s domain.MeasurementSnapshot, result domain.CompositeRiskResult) ([]string, error) {
	eval, _, err := evaluateCVD(s)
	if err != nil {
		return nil, err
	}
	out := []string{}
	for _, rec := range cvdRecommendations {
		if rec.When(eval, result.Category) {
			out = append(out, rec.Text)
		}
	}
	return out, nil
}

func resolveCVDInputs(s domain.MeasurementSnapshot) (cvdInputs, error) {
	in := cvdInputs{Smoker: s.Smoker, Diabetic: s.Diabetic}

	if s.AgeYears == nil {
		return cvdInputs{}, domain.Missing("age_years")
	}
	if *s.AgeYears < 0 {
		return cvdInputs{}, domain.Invalid("age_years", *s.AgeYears, "age must not be negative")
	}
	in.Age = *s.AgeYears

	if s.Sex == "" {
		return cvdInputs{}, domain.Missing("sex")
	}
	if !s.Sex.IsValid() {
		return cvdInputs{}, domain.NewValidationError("sex", fmt.Sprintf("unsupported sex %q", s.Sex), s.Sex, domain.ErrUnsupportedCategoryInput)
	}
	in.Sex = s.Sex

	bp, err := ResolveBloodPressure(s.BloodPressure)
	if err != nil {
		return cvdInputs{}, err
	}
	in.BP = bp

	if lab, ok := s.Lab(domain.AnalyteKolTotal); ok {
		v, err := NormalizeLabValue(lab)
		if err != nil {
			return cvdInputs{}, err
		}
		in.Cholesterol = &v
	}
	if lab, ok := s.Lab(domain.AnalyteHDL); ok {
		v, err := NormalizeLabValue(lab)
		if err != nil {
			return cvdInputs{}, err
		}
		in.HDL = &v
	}

	bmi, ok, err := SnapshotBMI(s)
	if err != nil {
		return cvdInputs{}, err
	}
	if ok {
		in.BMI = &bmi
	}

	if s.WaistCm != nil {
		label, err := CategorizeWaist(*s.WaistCm, s.Sex)
		if err != nil {
			return cvdInputs{}, err
		}
		in.Waist = &label
	}

	return in, nil
}

func evaluateCVD(s domain.MeasurementSnapshot) (cvdEvaluation, []domain.FactorPoints, error) {
	in, err := resolveCVDInputs(s)
	if err != nil {
		return cvdEvaluation{}, nil, err
	}

	factors := make([]domain.FactorPoints, 0, 9)
	add := func(name string, points int) {
		factors = append(factors, domain.FactorPoints{Factor: name, Points: points})
	}

	agePts, err := cvdAgePoints.ClassifyInt(in.Age)
	if err != nil {
		return cvdEvaluation{}, nil, err
	}
	add(FactorAge, agePts)
	add(FactorSex, boolPoints(in.Sex == domain.SexMale, malePoints))

	bpPts, err := cvdBPPoints.Classify(in.BP)
	if err != nil {
		return cvdEvaluation{}, nil, err
	}
	add(FactorBloodPressure, bpPts)
	add(FactorSmoking, boolPoints(in.Smoker, smokerPoints))
	add(FactorDiabetes, boolPoints(in.Diabetic, diabeticPoints))

	for _, opt := range []struct {
		name  string
		value *decimal.Decimal
		table threshold.Points
	}{
		{FactorCholesterol, in.Cholesterol, cvdCholesterolPoints},
		{FactorHDL, in.HDL, cvdHDLPoints},
		{FactorBMI, in.BMI, cvdBMIPoints},
	} {
		pts := 0
		if opt.value != nil {
			if pts, err = opt.table.Classify(*opt.value); err != nil {
				return cvdEvaluation{}, nil, err
			}
		}
		add(opt.name, pts)
	}
	add(FactorWaist, boolPoints(in.Waist != nil && *in.Waist == domain.WaistRisikoTinggi, waistPoints))

	eval := cvdEvaluation{cvdInputs: in}
	for _, f := range factors {
		eval.Score += f.Points
	}
	return eval, factors, nil
}

func boolPoints(cond bool, points int) int {
	if cond {
		return points
	}
	return 0
}
