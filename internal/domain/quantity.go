package domain

import (
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
)

// ParseQuantity converts a loosely typed value from a request body or a
// stored document into a finite float. Nil and blank strings are zero.
// Anything else that is not a finite number yields ErrInvalidQuantity.
func ParseQuantity(v any) (float64, error) {
	var f float64
	switch n := v.(type) {
	case nil:
		return 0, nil
	case float64:
		f = n
	case float32:
		f = float64(n)
	case int:
		f = float64(n)
	case int32:
		f = float64(n)
	case int64:
		f = float64(n)
	case json.Number:
		parsed, err := n.Float64()
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidQuantity, n.String())
		}
		f = parsed
	case string:
		s := strings.TrimSpace(n)
		if s == "" {
			return 0, nil
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, fmt.Errorf("%w: %q", ErrInvalidQuantity, n)
		}
		f = parsed
	default:
		return 0, fmt.Errorf("%w: unsupported type %T", ErrInvalidQuantity, v)
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, fmt.Errorf("%w: %v", ErrInvalidQuantity, f)
	}
	return f, nil
}

// QuantityOrZero is ParseQuantity with errors mapped to zero, for callers
// that must never fail on a bad number.
func QuantityOrZero(v any) float64 {
	f, err := ParseQuantity(v)
	if err != nil {
		return 0
	}
	return f
}
