// Package threshold provides the ordered first-match rule tables shared by every
// clinical evaluator. A table maps a measurement to a category label; rules are
// evaluated top to bottom and the first rule whose comparison holds wins.
//
// Tables are plain data so that each one can be tested on its own and reused by
// several evaluators without copying the cascade.
package threshold

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

// ErrRuleSetExhausted is returned when no rule of a table matched. Every table
// must end with a catch-all, so this always indicates a broken table.
var ErrRuleSetExhausted = errors.New("rule set exhausted")

// Comparison is the operator a rule applies between the measured value and its bound.
type Comparison string

const (
	LessThan       Comparison = "<"
	LessOrEqual    Comparison = "<="
	GreaterThan    Comparison = ">"
	GreaterOrEqual Comparison = ">="
	Equal          Comparison = "=="
	Always         Comparison = "*"
)

// IsValid reports whether the comparison is one of the supported operators.
func (c Comparison) IsValid() bool {
	switch c {
	case LessThan, LessOrEqual, GreaterThan, GreaterOrEqual, Equal, Always:
		return true
	default:
		return false
	}
}

// Holds applies the comparison as "value <op> bound".
func (c Comparison) Holds(value, bound decimal.Decimal) bool {
	switch c {
	case LessThan:
		return value.LessThan(bound)
	case LessOrEqual:
		return value.LessThanOrEqual(bound)
	case GreaterThan:
		return value.GreaterThan(bound)
	case GreaterOrEqual:
		return value.GreaterThanOrEqual(bound)
	case Equal:
		return value.Equal(bound)
	case Always:
		return true
	default:
		return false
	}
}

// Rule is one row of a threshold table.
type Rule[L comparable] struct {
	Op    Comparison
	Bound decimal.Decimal
	Label L
}

// Table is an ordered rule list. Order is significant: adjacent rules such as
// "< 100" followed by "< 126" overlap and rely on first-match semantics.
type Table[L comparable] struct {
	Name  string
	Rules []Rule[L]
}

// When builds a rule from a string bound, e.g. When(LessThan, "18.5", Kurus).
// It panics on a malformed literal since tables are declared at package level.
func When[L comparable](op Comparison, bound string, label L) Rule[L] {
	return Rule[L]{Op: op, Bound: decimal.RequireFromString(bound), Label: label}
}

// Otherwise builds the catch-all rule that terminates a table.
func Otherwise[L comparable](label L) Rule[L] {
	return Rule[L]{Op: Always, Label: label}
}

// NewTable assembles a named table.
func NewTable[L comparable](name string, rules ...Rule[L]) Table[L] {
	return Table[L]{Name: name, Rules: rules}
}

// Classify returns the label of the first rule that holds for value.
func (t Table[L]) Classify(value decimal.Decimal) (L, error) {
	for _, rule := range t.Rules {
		if rule.Op.Holds(value, rule.Bound) {
			return rule.Label, nil
		}
	}
	var zero L
	return zero, fmt.Errorf("table %q, value %s: %w", t.Name, value.String(), ErrRuleSetExhausted)
}

// ClassifyInt is Classify for integer measurements such as blood pressure or scores.
func (t Table[L]) ClassifyInt(value int) (L, error) {
	return t.Classify(decimal.NewFromInt(int64(value)))
}

// Validate checks that the table is non-empty, uses known operators and ends in a catch-all.
func (t Table[L]) Validate() error {
	if len(t.Rules) == 0 {
		return fmt.Errorf("table %q has no rules", t.Name)
	}
	for i, rule := range t.Rules {
		if !rule.Op.IsValid() {
			return fmt.Errorf("table %q rule %d: unknown comparison %q", t.Name, i, rule.Op)
		}
	}
	if last := t.Rules[len(t.Rules)-1]; last.Op != Always {
		return fmt.Errorf("table %q: last rule is %s %s, want catch-all: %w",
			t.Name, last.Op, last.Bound.String(), ErrRuleSetExhausted)
	}
	return nil
}

// Labels lists the labels a table can produce, in rule order, without duplicates.
func (t Table[L]) Labels() []L {
	seen := make(map[L]bool, len(t.Rules))
	labels := make([]L, 0, len(t.Rules))
	for _, rule := range t.Rules {
		if !seen[rule.Label] {
			seen[rule.Label] = true
			labels = append(labels, rule.Label)
		}
	}
	return labels
}
