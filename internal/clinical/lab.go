package clinical

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"

	"github.com/posbindu-risk-engine/internal/domain"
	"github.com/posbindu-risk-engine/pkg/threshold"
)

// Lab interpretation tables in mg/dL, selected by analyte tag.
var labTables = map[domain.Analyte]threshold.Table[domain.Label]{
	domain.AnalyteGDP: threshold.NewTable("gdp",
		threshold.When(threshold.LessThan, "100", domain.LabNormal),
		threshold.When(threshold.LessThan, "126", domain.LabPraDiabetes),
		threshold.Otherwise(domain.LabDiabetes),
	),
	domain.AnalyteGDS: threshold.NewTable("gds",
		threshold.When(threshold.LessThan, "140", domain.LabNormal),
		threshold.When(threshold.LessThan, "200", domain.LabPraDiabetes),
		threshold.Otherwise(domain.LabDiabetes),
	),
	domain.AnalyteKolTotal: threshold.NewTable("kol_total",
		threshold.When(threshold.LessThan, "200", domain.LabNormal),
		threshold.When(threshold.LessThan, "240", domain.LabBatasTinggi),
		threshold.Otherwise(domain.LabTinggi),
	),
	// Higher HDL is better.
	domain.AnalyteHDL: threshold.NewTable("hdl",
		threshold.When(threshold.GreaterOrEqual, "60", domain.LabNormal),
		threshold.When(threshold.GreaterOrEqual, "40", domain.LabBatasRendah),
		threshold.Otherwise(domain.LabRendah),
	),
	domain.AnalyteLDL: threshold.NewTable("ldl",
		threshold.When(threshold.LessThan, "100", domain.LabNormal),
		threshold.When(threshold.LessThan, "130", domain.LabBatasTinggi),
		threshold.When(threshold.LessThan, "160", domain.LabTinggi),
		threshold.Otherwise(domain.LabSangatTinggi),
	),
	domain.AnalyteTrigliserida: threshold.NewTable("trigliserida",
		threshold.When(threshold.LessThan, "150", domain.LabNormal),
		threshold.When(threshold.LessThan, "200", domain.LabBatasTinggi),
		threshold.Otherwise(domain.LabTinggi),
	),
	domain.AnalyteAsamUrat: threshold.NewTable("asam_urat",
		threshold.When(threshold.LessThan, "7.0", domain.LabNormal),
		threshold.Otherwise(domain.LabTinggi),
	),
}

// mmol/L to mg/dL factors.
var mmolFactors = map[domain.Analyte]decimal.Decimal{
	domain.AnalyteGDP:          decimal.NewFromInt(18),
	domain.AnalyteGDS:          decimal.NewFromInt(18),
	domain.AnalyteKolTotal:     decimal.RequireFromString("38.67"),
	domain.AnalyteHDL:          decimal.RequireFromString("38.67"),
	domain.AnalyteLDL:          decimal.RequireFromString("38.67"),
	domain.AnalyteTrigliserida: decimal.RequireFromString("88.57"),
	domain.AnalyteAsamUrat:     decimal.RequireFromString("16.81"),
}

const (
	UnitMgDL  = "mg/dL"
	UnitMmolL = "mmol/L"
)

// NormalizeLabValue returns the value of a lab result in mg/dL.
func NormalizeLabValue(lab domain.LabResult) (decimal.Decimal, error) {
	if _, ok := labTables[lab.Analyte]; !ok {
		return decimal.Zero, domain.NewValidationError("analyte",
			fmt.Sprintf("no interpretation table for analyte %q", lab.Analyte), lab.Analyte, domain.ErrUnsupportedAnalyte)
	}
	if lab.Value.IsNegative() {
		return decimal.Zero, domain.Invalid(string(lab.Analyte), lab.Value.String(), "lab value must not be negative")
	}

	switch strings.ToLower(strings.TrimSpace(lab.Unit)) {
	case "", strings.ToLower(UnitMgDL):
		return lab.Value, nil
	case strings.ToLower(UnitMmolL):
		return lab.Value.Mul(mmolFactors[lab.Analyte]).Round(1), nil
	default:
		return decimal.Zero, domain.Invalid("unit", lab.Unit,
			fmt.Sprintf("unsupported unit for %s, expected %s or %s", lab.Analyte, UnitMgDL, UnitMmolL))
	}
}

// InterpretLab classifies one lab value with the table selected by its tag.
func InterpretLab(lab domain.LabResult) (domain.LabInterpretation, error) {
	value, err := NormalizeLabValue(lab)
	if err != nil {
		return domain.LabInterpretation{}, err
	}
	label, err := labTables[lab.Analyte].Classify(value)
	if err != nil {
		return domain.LabInterpretation{}, err
	}
	score := value
	return domain.LabInterpretation{
		Analyte: lab.Analyte,
		ValueMg: value,
		ClassificationResult: domain.ClassificationResult{
			Category:     label,
			NumericScore: &score,
			Explanation:  fmt.Sprintf("%s %s mg/dL", lab.Analyte, value.String()),
		},
	}, nil
}

// InterpretLabs interprets every result in input order.
func InterpretLabs(labs []domain.LabResult) ([]domain.LabInterpretation, error) {
	out := make([]domain.LabInterpretation, 0, len(labs))
	for i, lab := range labs {
		interp, err := InterpretLab(lab)
		if err != nil {
			return nil, fmt.Errorf("lab result %d: %w", i, err)
		}
		out = append(out, interp)
	}
	return out, nil
}
