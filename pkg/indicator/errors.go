package indicator

import (
	"errors"
	"fmt"
	"math"
)

// ErrInvalidInput is matched by every *InvalidInputError via errors.Is
var ErrInvalidInput = errors.New("invalid indicator input")

// InvalidInputError reports a price series element that cannot be used in
// any calculation. Index is the position in the caller's slice.
type InvalidInputError struct {
	Index  int
	Field  string
	Value  float64
	Reason string
}

func (e *InvalidInputError) Error() string {
	field := e.Field
	if field == "" {
		field = "price"
	}
	if e.Reason != "" {
		return fmt.Sprintf("invalid %s at index %d: %s", field, e.Index, e.Reason)
	}
	return fmt.Sprintf("invalid %s at index %d: %v", field, e.Index, e.Value)
}

// Is makes errors.Is(err, ErrInvalidInput) true
func (e *InvalidInputError) Is(target error) bool {
	return target == ErrInvalidInput
}

// Validate checks that every price is a finite number.
// It returns the first offending element as *InvalidInputError.
func Validate(prices []float64) error {
	for i, p := range prices {
		if math.IsNaN(p) || math.IsInf(p, 0) {
			return &InvalidInputError{Index: i, Field: "price", Value: p}
		}
	}
	return nil
}

// checkFinite rejects a series whose magnitude overflows the indicator
// arithmetic even though every element is finite. The error points at the
// largest element by absolute value.
func checkFinite(prices []float64, set IndicatorSet) error {
	if set.finite() {
		return nil
	}
	worst := 0
	for i, p := range prices {
		if math.Abs(p) > math.Abs(prices[worst]) {
			worst = i
		}
	}
	p := prices[worst]
	return &InvalidInputError{
		Index:  worst,
		Field:  "price",
		Value:  p,
		Reason: fmt.Sprintf("%g overflows indicator arithmetic", p),
	}
}

func isFinite(f float64) bool {
	return !math.IsNaN(f) && !math.IsInf(f, 0)
}
