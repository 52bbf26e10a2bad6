// Package domain contains the core value objects of the posbindu/posyandu
// risk-scoring engine: measurement snapshots, classification labels, and the
// result records produced by the clinical evaluators.
//
// Category labels are Indonesian terms as used on posbindu and posyandu
// examination forms and are part of the observable contract.
package domain

import (
	"encoding/json"
	"fmt"
	"strings"
)

// Label is a category produced by a classifier. Each evaluator draws its
// labels from a fixed, closed set declared below.
type Label string

// String returns the label text.
func (l Label) String() string {
	return string(l)
}

// BMI categories
const (
	BMIKurus      Label = "Kurus"
	BMINormal     Label = "Normal"
	BMIOverweight Label = "Overweight"
	BMIObesitas   Label = "Obesitas"
)

// Waist circumference categories
const (
	WaistNormal       Label = "Normal"
	WaistRisikoTinggi Label = "RisikoTinggi"
	WaistTidakDiukur  Label = "TidakDiukur"
)

// Blood pressure categories
const (
	BPNormal     Label = "Normal"
	BPElevated   Label = "Elevated"
	BPHighStage1 Label = "High Stage 1"
	BPHighStage2 Label = "High Stage 2"
	BPCrisis     Label = "Crisis"
)

// SpO2 categories
const (
	SpO2TidakDiukur    Label = "TidakDiukur"
	SpO2Normal         Label = "Normal"
	SpO2HipoksiaRingan Label = "HipoksiaRingan"
	SpO2HipoksiaBerat  Label = "HipoksiaBerat"
)

// Lab interpretation categories
const (
	LabNormal       Label = "Normal"
	LabPraDiabetes  Label = "PraDiabetes"
	LabDiabetes     Label = "Diabetes"
	LabBatasTinggi  Label = "BatasTinggi"
	LabTinggi       Label = "Tinggi"
	LabSangatTinggi Label = "SangatTinggi"
	LabBatasRendah  Label = "BatasRendah"
	LabRendah       Label = "Rendah"
)

// Pediatric nutrition status (status gizi)
const (
	GiziBuruk    Label = "buruk"
	GiziKurang   Label = "kurang"
	GiziNormal   Label = "normal"
	GiziLebih    Label = "lebih"
	GiziObesitas Label = "obesitas"
)

// Risk categories shared by the screening and CVD scorers. SangatTinggi is
// only produced by the CVD composite.
const (
	RiskRendah       Label = "Rendah"
	RiskSedang       Label = "Sedang"
	RiskTinggi       Label = "Tinggi"
	RiskSangatTinggi Label = "SangatTinggi"
)

// Consumable stock status
const (
	StockBaik              Label = "Baik"
	StockSegeraKedaluwarsa Label = "SegeraKedaluwarsa"
	StockKedaluwarsa       Label = "Kedaluwarsa"
)

// LabelSet is a closed enumeration of labels for one evaluator.
type LabelSet []Label

// Contains reports whether l is a member of the set.
func (s LabelSet) Contains(l Label) bool {
	for _, candidate := range s {
		if candidate == l {
			return true
		}
	}
	return false
}

var (
	BMICategories       = LabelSet{BMIKurus, BMINormal, BMIOverweight, BMIObesitas}
	WaistCategories     = LabelSet{WaistNormal, WaistRisikoTinggi, WaistTidakDiukur}
	BPCategories        = LabelSet{BPNormal, BPElevated, BPHighStage1, BPHighStage2, BPCrisis}
	SpO2Categories      = LabelSet{SpO2TidakDiukur, SpO2Normal, SpO2HipoksiaRingan, SpO2HipoksiaBerat}
	NutritionCategories = LabelSet{GiziBuruk, GiziKurang, GiziNormal, GiziLebih, GiziObesitas}
	ScreeningCategories = LabelSet{RiskRendah, RiskSedang, RiskTinggi}
	CVDCategories       = LabelSet{RiskRendah, RiskSedang, RiskTinggi, RiskSangatTinggi}
)

// Sex of the examined person.
type Sex string

const (
	SexMale   Sex = "male"
	SexFemale Sex = "female"
)

// IsValid checks if the sex is one of the supported values
func (s Sex) IsValid() bool {
	return s == SexMale || s == SexFemale
}

// ParseSex accepts the English tags and the L/P codes used on Indonesian forms.
func ParseSex(raw string) (Sex, error) {
	switch strings.ToLower(strings.TrimSpace(raw)) {
	case "male", "m", "l", "laki-laki", "laki_laki":
		return SexMale, nil
	case "female", "f", "p", "perempuan":
		return SexFemale, nil
	}
	return "", NewValidationError("sex", fmt.Sprintf("unsupported sex %q", raw), raw, ErrUnsupportedCategoryInput)
}

// UnmarshalJSON normalises form codes through ParseSex. Unrecognised values
// are kept as sent so the evaluator that needs the sex reports them.
func (s *Sex) UnmarshalJSON(data []byte) error {
	var raw string
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if parsed, err := ParseSex(raw); err == nil {
		*s = parsed
		return nil
	}
	*s = Sex(raw)
	return nil
}

// Analyte is the tag selecting a lab interpretation table.
type Analyte string

const (
	AnalyteGDP          Analyte = "gdp"
	AnalyteGDS          Analyte = "gds"
	AnalyteKolTotal     Analyte = "kol_total"
	AnalyteHDL          Analyte = "hdl"
	AnalyteLDL          Analyte = "ldl"
	AnalyteTrigliserida Analyte = "trigliserida"
	AnalyteAsamUrat     Analyte = "asam_urat"
)

// Analytes lists every supported analyte in display order.
var Analytes = []Analyte{
	AnalyteGDP, AnalyteGDS, AnalyteKolTotal, AnalyteHDL,
	AnalyteLDL, AnalyteTrigliserida, AnalyteAsamUrat,
}

// IsValid checks if the analyte has an interpretation table
func (a Analyte) IsValid() bool {
	for _, known := range Analytes {
		if a == known {
			return true
		}
	}
	return false
}

// SmokingStatus as recorded on the screening form.
type SmokingStatus string

const (
	SmokingTidak SmokingStatus = "Tidak"
	SmokingEks   SmokingStatus = "Eks"
	SmokingAktif SmokingStatus = "Aktif"
)

// IsValid checks if the smoking status is recognised
func (s SmokingStatus) IsValid() bool {
	return s == SmokingTidak || s == SmokingEks || s == SmokingAktif
}

// AlcoholUse as recorded on the screening form.
type AlcoholUse string

const (
	AlcoholTidak AlcoholUse = "Tidak"
	AlcoholYa    AlcoholUse = "Ya"
)

// IsValid checks if the alcohol answer is recognised
func (a AlcoholUse) IsValid() bool {
	return a == AlcoholTidak || a == AlcoholYa
}

// Maternal risk types
const (
	MaternalHipertensi          = "Hipertensi"
	MaternalAnemia              = "Anemia"
	MaternalProteinuria         = "Proteinuria"
	MaternalDiabetesGestasional = "Diabetes Gestasional"
	MaternalKEK                 = "Kurang Energi Kronis"
)
