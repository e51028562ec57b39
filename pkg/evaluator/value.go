// Package evaluator implements the pseudocode value model, the variable
// environment and expression evaluation.
package evaluator

import (
	"strconv"
	"strings"
)

// Value is the interface for all runtime values.
// Use the sealed marker method to restrict implementations to this package.
type Value interface {
	value() // sealed marker
}

// Integer is an integral number, produced by literals without a decimal point.
type Integer struct {
	Value int64
}

func (Integer) value() {}

// Float is a floating-point number, produced by literals with a decimal point.
type Float struct {
	Value float64
}

func (Float) value() {}

// String is a text value.
type String struct {
	Value string
}

func (String) value() {}

// Boolean is the result of relational and logical operators.
type Boolean struct {
	Value bool
}

func (Boolean) value() {}

// Array is an ordered, mutable sequence of values. Arrays are shared by
// reference: assigning an element through any binding mutates the same array.
type Array struct {
	Items []Value
}

func (*Array) value() {}

// NewInteger creates an integer value.
func NewInteger(n int64) Value {
	return Integer{Value: n}
}

// NewFloat creates a floating-point value.
func NewFloat(f float64) Value {
	return Float{Value: f}
}

// NewString creates a string value.
func NewString(s string) Value {
	return String{Value: s}
}

// NewBoolean creates a boolean value.
func NewBoolean(b bool) Value {
	return Boolean{Value: b}
}

// NewArray creates an array value holding items.
func NewArray(items []Value) *Array {
	return &Array{Items: items}
}

// Len returns the number of elements.
func (a *Array) Len() int {
	return len(a.Items)
}

// Truthiness returns the boolean interpretation of a value.
// false, 0, 0.0 and "" are falsy; everything else is truthy.
func Truthiness(v Value) bool {
	switch val := v.(type) {
	case Boolean:
		return val.Value
	case Integer:
		return val.Value != 0
	case Float:
		return val.Value != 0
	case String:
		return val.Value != ""
	case *Array:
		return true
	default:
		return false
	}
}

// Format renders the textual form of a value, as shown by display and used
// for string concatenation. Arrays render their elements joined by commas.
func Format(v Value) string {
	switch val := v.(type) {
	case Integer:
		return strconv.FormatInt(val.Value, 10)
	case Float:
		return strconv.FormatFloat(val.Value, 'f', -1, 64)
	case String:
		return val.Value
	case Boolean:
		return strconv.FormatBool(val.Value)
	case *Array:
		parts := make([]string, len(val.Items))
		for i, item := range val.Items {
			parts[i] = Format(item)
		}
		return strings.Join(parts, ",")
	default:
		return ""
	}
}

// ParseNumber interprets text as a numeric literal. Text containing a
// decimal point becomes a Float, other digit strings an Integer. Surrounding
// whitespace is ignored; anything else is rejected.
func ParseNumber(text string) (Value, bool) {
	s := strings.TrimSpace(text)
	if !isNumeric(s) {
		return nil, false
	}
	if strings.Contains(s, ".") {
		f, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return nil, false
		}
		return NewFloat(f), true
	}
	n, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return nil, false
	}
	return NewInteger(n), true
}

// isNumeric accepts an optional sign followed by digits with at most one
// decimal point and at least one digit.
func isNumeric(s string) bool {
	if s != "" && (s[0] == '-' || s[0] == '+') {
		s = s[1:]
	}
	digits, dots := 0, 0
	for i := 0; i < len(s); i++ {
		switch {
		case s[i] >= '0' && s[i] <= '9':
			digits++
		case s[i] == '.':
			dots++
		default:
			return false
		}
	}
	return digits > 0 && dots <= 1
}

// TypeName returns the type name used in error messages.
func TypeName(v Value) string {
	switch v.(type) {
	case Integer:
		return "integer"
	case Float:
		return "float"
	case String:
		return "string"
	case Boolean:
		return "boolean"
	case *Array:
		return "array"
	default:
		return "unknown"
	}
}

// Equal compares two values. Integers and floats compare numerically;
// arrays compare element-wise; values of different kinds are never equal.
func Equal(a, b Value) bool {
	if an, ok := toFloat(a); ok {
		if bn, ok := toFloat(b); ok {
			if ai, ok := a.(Integer); ok {
				if bi, ok := b.(Integer); ok {
					return ai.Value == bi.Value
				}
			}
			return an == bn
		}
		return false
	}

	switch av := a.(type) {
	case String:
		bv, ok := b.(String)
		return ok && av.Value == bv.Value
	case Boolean:
		bv, ok := b.(Boolean)
		return ok && av.Value == bv.Value
	case *Array:
		bv, ok := b.(*Array)
		if !ok || len(av.Items) != len(bv.Items) {
			return false
		}
		for i := range av.Items {
			if !Equal(av.Items[i], bv.Items[i]) {
				return false
			}
		}
		return true
	}
	return false
}

func toFloat(v Value) (float64, bool) {
	switch n := v.(type) {
	case Integer:
		return float64(n.Value), true
	case Float:
		return n.Value, true
	}
	return 0, false
}

// AsInt returns v as an int64 when it is an Integer or a Float without a
// fractional part.
func AsInt(v Value) (int64, bool) {
	switch n := v.(type) {
	case Integer:
		return n.Value, true
	case Float:
		if n.Value == float64(int64(n.Value)) {
			return int64(n.Value), true
		}
	}
	return 0, false
}
