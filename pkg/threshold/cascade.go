package threshold

import "fmt"

// Case is a rule over a compound input, for cascades that mix several
// measurements (systolic AND diastolic, systolic OR diastolic).
type Case[T any, L comparable] struct {
	Name  string
	When  func(T) bool
	Label L
}

// Cascade is the compound counterpart of Table: ordered, first match wins.
// A nil When is the catch-all.
type Cascade[T any, L comparable] struct {
	Name  string
	Cases []Case[T, L]
}

// NewCascade assembles a named cascade.
func NewCascade[T any, L comparable](name string, cases ...Case[T, L]) Cascade[T, L] {
	return Cascade[T, L]{Name: name, Cases: cases}
}

// Classify returns the label of the first case whose predicate holds.
func (c Cascade[T, L]) Classify(input T) (L, error) {
	for _, cs := range c.Cases {
		if cs.When == nil || cs.When(input) {
			return cs.Label, nil
		}
	}
	var zero L
	return zero, fmt.Errorf("cascade %q: %w", c.Name, ErrRuleSetExhausted)
}

// Validate checks that the cascade ends in a catch-all.
func (c Cascade[T, L]) Validate() error {
	if len(c.Cases) == 0 {
		return fmt.Errorf("cascade %q has no cases", c.Name)
	}
	if c.Cases[len(c.Cases)-1].When != nil {
		return fmt.Errorf("cascade %q: last case %q is not a catch-all: %w",
			c.Name, c.Cases[len(c.Cases)-1].Name, ErrRuleSetExhausted)
	}
	return nil
}

// Labels lists the labels a cascade can produce, in case order, without duplicates.
func (c Cascade[T, L]) Labels() []L {
	seen := make(map[L]bool, len(c.Cases))
	labels := make([]L, 0, len(c.Cases))
	for _, cs := range c.Cases {
		if !seen[cs.Label] {
			seen[cs.Label] = true
			labels = append(labels, cs.Label)
		}
	}
	return labels
}

// Points is an ordered score table: the first band that holds contributes its
// points, and the table's catch-all usually contributes zero.
type Points = Table[int]
