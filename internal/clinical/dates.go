package clinical

import (
	"time"

	"github.com/posbindu-risk-engine/internal/domain"
)

const (
	pregnancyDays = 280
	hoursPerDay   = 24

	// Posyandu follows children up to five years old by age in months.
	underFiveMonths = 60
)

// ResolveAges derives the age from BirthDate as of asOf when the snapshot
// carries neither AgeYears nor AgeMonths. Children under five get an age in
// months, everyone else an age in years.
func ResolveAges(s domain.MeasurementSnapshot, asOf time.Time) (domain.MeasurementSnapshot, error) {
	if s.BirthDate == nil || s.AgeYears != nil || s.AgeMonths != nil {
		return s, nil
	}

	months, err := AgeInMonths(*s.BirthDate, asOf)
	if err != nil {
		return s, err
	}
	if months < underFiveMonths {
		s.AgeMonths = &months
		return s, nil
	}

	years, err := AgeInYears(*s.BirthDate, asOf)
	if err != nil {
		return s, err
	}
	s.AgeYears = &years
	return s, nil
}

// AgeInMonths counts calendar months between birth and asOf. The day of the
// month is ignored.
func AgeInMonths(birth, asOf time.Time) (int, error) {
	if asOf.Before(birth) {
		return 0, domain.Invalid("as_of", asOf.Format(time.DateOnly), "must not be before the date of birth")
	}
	return (asOf.Year()-birth.Year())*12 + int(asOf.Month()) - int(birth.Month()), nil
}

// AgeInYears counts completed years between birth and asOf.
func AgeInYears(birth, asOf time.Time) (int, error) {
	if asOf.Before(birth) {
		return 0, domain.Invalid("as_of", asOf.Format(time.DateOnly), "must not be before the date of birth")
	}
	years := asOf.Year() - birth.Year()
	if asOf.Month() < birth.Month() || (asOf.Month() == birth.Month() && asOf.Day() < birth.Day()) {
		years--
	}
	return years, nil
}

// EstimatedDueDate is the last menstrual period plus 280 days.
func EstimatedDueDate(lastMenstrualPeriod time.Time) time.Time {
	return lastMenstrualPeriod.AddDate(0, 0, pregnancyDays)
}

// GestationalAgeWeeks counts completed weeks since the last menstrual period.
func GestationalAgeWeeks(lastMenstrualPeriod, asOf time.Time) (int, error) {
	if asOf.Before(lastMenstrualPeriod) {
		return 0, domain.Invalid("as_of", asOf.Format(time.DateOnly), "must not be before the last menstrual period")
	}
	return daysBetween(lastMenstrualPeriod, asOf) / 7, nil
}

// daysBetween counts calendar days from a to b, ignoring the time of day.
func daysBetween(a, b time.Time) int {
	da := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	db := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int(db.Sub(da).Hours() / hoursPerDay)
}
