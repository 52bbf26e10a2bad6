package clinical

import (
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/posbindu-risk-engine/internal/domain"
	"github.com/posbindu-risk-engine/pkg/threshold"
)

// Screening sub-score tables. Each sub-score is bounded by the range noted.
var (
	// smoking 0-3: Tidak 0, Eks 1, Aktif 2, Aktif with 10+ sticks a day 3
	activeSmokerPoints = threshold.NewTable("smoking_aktif",
		threshold.When(threshold.GreaterOrEqual, "10", 3),
		threshold.Otherwise(2),
	)

	// alcohol 0-2: Tidak 0, Ya 1, Ya three or more times a week 2
	drinkerPoints = threshold.NewTable("alcohol_ya",
		threshold.When(threshold.GreaterOrEqual, "3", 2),
		threshold.Otherwise(1),
	)

	// activity 0-2, minutes of moderate activity per week
	activityPoints = threshold.NewTable("activity",
		threshold.When(threshold.GreaterOrEqual, "150", 0),
		threshold.When(threshold.GreaterOrEqual, "75", 1),
		threshold.Otherwise(2),
	)

	// sleep 0-2, hours per night
	sleepPoints = threshold.NewTable("sleep",
		threshold.When(threshold.LessThan, "6", 2),
		threshold.When(threshold.LessThan, "7", 1),
		threshold.When(threshold.LessOrEqual, "9", 0),
		threshold.When(threshold.LessOrEqual, "10", 1),
		threshold.Otherwise(2),
	)

	// stress 0-2 on a 1-5 self-report scale
	stressPoints = threshold.NewTable("stress",
		threshold.When(threshold.LessOrEqual, "2", 0),
		threshold.When(threshold.Equal, "3", 1),
		threshold.Otherwise(2),
	)

	screeningCategoryTable = threshold.NewTable("screening_category",
		threshold.When(threshold.LessOrEqual, "3", domain.RiskRendah),
		threshold.When(threshold.LessOrEqual, "6", domain.RiskSedang),
		threshold.Otherwise(domain.RiskTinggi),
	)
)

const (
	maxDietPoints       = 3
	minFruitVegPortions = 5
	minStressScale      = 1
	maxStressScale      = 5
)

var maxSleepHours = decimal.NewFromInt(24)

// RiskFactorScorer computes the PTM screening composite. It holds no state,
// so Recompute on an unchanged snapshot always returns an equal score.
type RiskFactorScorer struct{}

// NewRiskFactorScorer creates a new scorer
func NewRiskFactorScorer() *RiskFactorScorer {
	return &RiskFactorScorer{}
}

// Recompute scores the lifestyle block of the snapshot.
func (s *RiskFactorScorer) Recompute(snapshot domain.MeasurementSnapshot) (domain.RiskFactorScore, error) {
	if snapshot.Lifestyle == nil {
		return domain.RiskFactorScore{}, domain.Missing("lifestyle")
	}
	return ScoreLifestyle(*snapshot.Lifestyle)
}

// ScoreLifestyle computes the six sub-scores, their total and the category.
func ScoreLifestyle(l domain.Lifestyle) (domain.RiskFactorScore, error) {
	var (
		score domain.RiskFactorScore
		err   error
	)

	if score.Smoking, err = smokingScore(l); err != nil {
		return domain.RiskFactorScore{}, err
	}
	if score.Alcohol, err = alcoholScore(l); err != nil {
		return domain.RiskFactorScore{}, err
	}
	if l.ActivityMinutesPerWeek < 0 {
		return domain.RiskFactorScore{}, domain.Invalid("activity_minutes_per_week", l.ActivityMinutesPerWeek, "must not be negative")
	}
	if score.Activity, err = activityPoints.ClassifyInt(l.ActivityMinutesPerWeek); err != nil {
		return domain.RiskFactorScore{}, err
	}
	if score.Diet, err = dietScore(l); err != nil {
		return domain.RiskFactorScore{}, err
	}
	if l.SleepHours.IsNegative() || l.SleepHours.GreaterThan(maxSleepHours) {
		return domain.RiskFactorScore{}, domain.Invalid("sleep_hours", l.SleepHours.String(), "must be between 0 and 24")
	}
	if score.Sleep, err = sleepPoints.Classify(l.SleepHours); err != nil {
		return domain.RiskFactorScore{}, err
	}
	if l.StressScale < minStressScale || l.StressScale > maxStressScale {
		return domain.RiskFactorScore{}, domain.Invalid("stress_scale", l.StressScale,
			fmt.Sprintf("must be between %d and %d", minStressScale, maxStressScale))
	}
	if score.Stress, err = stressPoints.ClassifyInt(l.StressScale); err != nil {
		return domain.RiskFactorScore{}, err
	}

	score.Total = score.Smoking + score.Alcohol + score.Activity + score.Diet + score.Sleep + score.Stress
	if score.Category, err = screeningCategoryTable.ClassifyInt(score.Total); err != nil {
		return domain.RiskFactorScore{}, err
	}
	return score, nil
}

func smokingScore(l domain.Lifestyle) (int, error) {
	switch l.Smoking {
	case domain.SmokingTidak:
		return 0, nil
	case domain.SmokingEks:
		return 1, nil
	case domain.SmokingAktif:
		if l.CigarettesPerDay < 0 {
			return 0, domain.Invalid("cigarettes_per_day", l.CigarettesPerDay, "must not be negative")
		}
		return activeSmokerPoints.ClassifyInt(l.CigarettesPerDay)
	default:
		return 0, domain.NewValidationError("smoking", fmt.Sprintf("unsupported smoking status %q", l.Smoking),
			l.Smoking, domain.ErrUnsupportedCategoryInput)
	}
}

func alcoholScore(l domain.Lifestyle) (int, error) {
	switch l.Alcohol {
	case domain.AlcoholTidak:
		return 0, nil
	case domain.AlcoholYa:
		if l.DrinksPerWeek < 0 {
			return 0, domain.Invalid("drinks_per_week", l.DrinksPerWeek, "must not be negative")
		}
		return drinkerPoints.ClassifyInt(l.DrinksPerWeek)
	default:
		return 0, domain.NewValidationError("alcohol", fmt.Sprintf("unsupported alcohol answer %q", l.Alcohol),
			l.Alcohol, domain.ErrUnsupportedCategoryInput)
	}
}

func dietScore(l domain.Lifestyle) (int, error) {
	if l.FruitVegPortionsDaily < 0 {
		return 0, domain.Invalid("fruit_veg_portions_daily", l.FruitVegPortionsDaily, "must not be negative")
	}
	points := 0
	for _, risky := range []bool{l.HighSalt, l.HighSugar, l.HighFat, l.FruitVegPortionsDaily < minFruitVegPortions} {
		if risky {
			points++
		}
	}
	return min(points, maxDietPoints), nil
}
