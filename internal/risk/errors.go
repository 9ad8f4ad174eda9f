package risk

import (
	"errors"
	"fmt"
)

// ErrEmptyAggregation is returned when aggregation is invoked over zero
// risk values. Aggregating nothing is undefined, not zero risk.
var ErrEmptyAggregation = errors.New("risk aggregation requires at least one value")

// MissingRatingError reports a calculation attempted without one of its two
// input ratings. The engine never substitutes defaults.
type MissingRatingError struct {
	Which string
}

func (e *MissingRatingError) Error() string {
	return fmt.Sprintf("risk calculation missing %s rating", e.Which)
}

// InvalidDomainError reports an impact or likelihood value outside the
// matrix's defined ordinal domain. Lookups reject unknown values rather
// than falling through to a default cell.
type InvalidDomainError struct {
	Domain string
	Value  string
}

func (e *InvalidDomainError) Error() string {
	return fmt.Sprintf("value %q is outside the %s domain", e.Value, e.Domain)
}

// InconsistentStateError reports a risk value whose stored score and level
// disagree under its own declared calculation method.
type InconsistentStateError struct {
	ID      string
	Method  string
	Stored  string
	Derived string
	Score   float64
}

func (e *InconsistentStateError) Error() string {
	return fmt.Sprintf("risk value %s is inconsistent under method %s: stored level %s, score %v derives %s",
		e.ID, e.Method, e.Stored, e.Score, e.Derived)
}
