package domain

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// NumberState tags the content of a numeric cell.
type NumberState int

const (
	NumberMissing NumberState = iota
	NumberValid
	NumberInvalid
)

func (s NumberState) String() string {
	switch s {
	case NumberValid:
		return "valid"
	case NumberInvalid:
		return "invalid"
	default:
		return "missing"
	}
}

// Number is a numeric cell value. Raw keeps the original text of an Invalid cell.
type Number struct {
	State NumberState
	Value float64
	Raw   string
}

// NumberOf returns a Valid number.
func NumberOf(v float64) Number {
	return Number{State: NumberValid, Value: v}
}

// ParseNumber decodes a cell: blank is Missing, a float is Valid, anything else Invalid.
func ParseNumber(s string) Number {
	s = strings.TrimSpace(s)
	if s == "" {
		return Number{}
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil || math.IsNaN(v) || math.IsInf(v, 0) {
		return Number{State: NumberInvalid, Raw: s}
	}
	return NumberOf(v)
}

// IsValid reports whether n holds a usable value.
func (n Number) IsValid() bool { return n.State == NumberValid }

// String encodes n back into a cell.
func (n Number) String() string {
	switch n.State {
	case NumberValid:
		return strconv.FormatFloat(n.Value, 'f', -1, 64)
	case NumberInvalid:
		return n.Raw
	default:
		return ""
	}
}

// Sub returns a - b, or Missing if either operand is not Valid.
func Sub(a, b Number) Number {
	if !a.IsValid() || !b.IsValid() {
		return Number{}
	}
	return NumberOf(a.Value - b.Value)
}

// Mean returns (a + b) / 2, or Missing if either operand is not Valid.
func Mean(a, b Number) Number {
	if !a.IsValid() || !b.IsValid() {
		return Number{}
	}
	return NumberOf((a.Value + b.Value) / 2)
}

// MarshalJSON writes a number, null for Missing, or the raw text for Invalid.
func (n Number) MarshalJSON() ([]byte, error) {
	switch n.State {
	case NumberValid:
		return json.Marshal(n.Value)
	case NumberInvalid:
		return json.Marshal(n.Raw)
	default:
		return []byte("null"), nil
	}
}

// UnmarshalJSON accepts a JSON number, a numeric string, or null.
func (n *Number) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if trimmed == "null" {
		*n = Number{}
		return nil
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*n = ParseNumber(s)
		return nil
	}
	var v float64
	if err := json.Unmarshal(data, &v); err != nil {
		return err
	}
	*n = NumberOf(v)
	return nil
}
