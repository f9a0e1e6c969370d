package answer

import (
	"encoding/json"
	"math"
	"time"
)

// Kind is the discriminator of an answer type.
type Kind string

const (
	KindBoolean     Kind = "boolean"
	KindInteger     Kind = "integer"
	KindNumber      Kind = "number"
	KindString      Kind = "string"
	KindDateTime    Kind = "date-time"
	KindTime        Kind = "time"
	KindDuration    Kind = "duration"
	KindArray       Kind = "array"
	KindObject      Kind = "object"
	KindMeasurement Kind = "measurement"
)

// Type defines the contract for a typed answer.
type Type interface {
	// Kind returns the discriminator used when serializing the type.
	Kind() Kind
	// Encode converts a typed value into its generic structured form.
	Encode(value any) (any, error)
	// Decode converts a generic structured value into its typed form.
	Decode(raw any) (any, error)
}

// DefaultSignificantDigits is used when comparing non-integer numbers that
// declare no precision of their own.
const DefaultSignificantDigits = 5

// --- Built-in Type Implementations ---

// BooleanType holds bool answers.
type BooleanType struct{}

func (t *BooleanType) Kind() Kind { return KindBoolean }

func (t *BooleanType) Encode(value any) (any, error) { return t.Decode(value) }

func (t *BooleanType) Decode(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case bool:
		return v, nil
	default:
		return nil, mismatch(KindBoolean, raw, "expected bool")
	}
}

// IntegerType holds whole-number answers as int64.
type IntegerType struct{}

func (t *IntegerType) Kind() Kind { return KindInteger }

func (t *IntegerType) Encode(value any) (any, error) {
	v, err := t.Decode(value)
	if err != nil || v == nil {
		return nil, err
	}
	return v, nil
}

func (t *IntegerType) Decode(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case json.Number:
		i, err := v.Int64()
		if err != nil {
			return nil, mismatch(KindInteger, raw, "not a whole number")
		}
		return i, nil
	}
	if i, ok := asInt(raw); ok {
		return i, nil
	}
	f, ok := AsFloat(raw)
	if !ok {
		return nil, mismatch(KindInteger, raw, "expected integer")
	}
	if f != math.Trunc(f) || f >= 0x1p63 || f < -0x1p63 {
		return nil, mismatch(KindInteger, raw, "not a whole number")
	}
	return int64(f), nil
}

// NumberType holds decimal answers as float64.
type NumberType struct {
	// SignificantDigits is the precision used when comparing values.
	SignificantDigits *int
}

func (t *NumberType) Kind() Kind { return KindNumber }

func (t *NumberType) Encode(value any) (any, error) { return decodeFloat(KindNumber, value) }

func (t *NumberType) Decode(raw any) (any, error) { return decodeFloat(KindNumber, raw) }

// MeasurementType holds a decimal answer expressed in a unit.
type MeasurementType struct {
	Unit string
}

func (t *MeasurementType) Kind() Kind { return KindMeasurement }

func (t *MeasurementType) Encode(value any) (any, error) { return decodeFloat(KindMeasurement, value) }

func (t *MeasurementType) Decode(raw any) (any, error) { return decodeFloat(KindMeasurement, raw) }

// StringType holds text answers.
type StringType struct{}

func (t *StringType) Kind() Kind { return KindString }

func (t *StringType) Encode(value any) (any, error) { return t.Decode(value) }

func (t *StringType) Decode(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return v, nil
	default:
		return nil, mismatch(KindString, raw, "expected string")
	}
}

// DurationType holds time.Duration answers, serialized as seconds.
type DurationType struct{}

func (t *DurationType) Kind() Kind { return KindDuration }

func (t *DurationType) Encode(value any) (any, error) {
	switch v := value.(type) {
	case nil:
		return nil, nil
	case time.Duration:
		return v.Seconds(), nil
	default:
		return nil, mismatch(KindDuration, value, "expected time.Duration")
	}
}

func (t *DurationType) Decode(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	if d, ok := raw.(time.Duration); ok {
		return d, nil
	}
	f, ok := AsFloat(raw)
	if !ok {
		return nil, mismatch(KindDuration, raw, "expected seconds")
	}
	return time.Duration(math.Round(f * float64(time.Second))), nil
}

// ObjectType holds free-form structured answers.
type ObjectType struct{}

func (t *ObjectType) Kind() Kind { return KindObject }

func (t *ObjectType) Encode(value any) (any, error) { return t.Decode(value) }

func (t *ObjectType) Decode(raw any) (any, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case map[string]any:
		return PlainNumbers(v), nil
	default:
		return nil, mismatch(KindObject, raw, "expected object")
	}
}

// PlainNumbers replaces json.Number values found anywhere in v with float64,
// the form free-form values take after a default JSON decode.
func PlainNumbers(v any) any {
	switch n := v.(type) {
	case json.Number:
		if f, err := n.Float64(); err == nil {
			return f
		}
		return n.String()
	case map[string]any:
		out := make(map[string]any, len(n))
		for key, item := range n {
			out[key] = PlainNumbers(item)
		}
		return out
	case []any:
		out := make([]any, len(n))
		for i, item := range n {
			out[i] = PlainNumbers(item)
		}
		return out
	default:
		return v
	}
}

// --- Factory Functions ---

// Boolean creates a boolean answer type.
func Boolean() Type { return &BooleanType{} }

// Integer creates an integer answer type.
func Integer() Type { return &IntegerType{} }

// Number creates a decimal answer type. A negative digits value leaves the
// precision undeclared.
func Number(digits int) Type {
	if digits < 0 {
		return &NumberType{}
	}
	return &NumberType{SignificantDigits: &digits}
}

// Measurement creates a decimal answer type with a unit.
func Measurement(unit string) Type { return &MeasurementType{Unit: unit} }

// String creates a text answer type.
func String() Type { return &StringType{} }

// Duration creates a duration answer type.
func Duration() Type { return &DurationType{} }

// Object creates a free-form object answer type.
func Object() Type { return &ObjectType{} }

// SignificantDigits returns the precision used to compare numeric answers of
// the given type: zero for integers, the declared precision for numbers and
// DefaultSignificantDigits otherwise.
func SignificantDigits(t Type) int {
	switch v := t.(type) {
	case *IntegerType:
		return 0
	case *NumberType:
		if v.SignificantDigits != nil {
			return *v.SignificantDigits
		}
	case *ArrayType:
		if v.BaseType == KindInteger {
			return 0
		}
	}
	return DefaultSignificantDigits
}

// AsFloat reports the numeric value of v when v is any Go number.
func AsFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case json.Number:
		f, err := n.Float64()
		return f, err == nil
	}
	if i, ok := asInt(v); ok {
		return float64(i), true
	}
	switch n := v.(type) {
	case uint:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

func asInt(v any) (int64, bool) {
	switch n := v.(type) {
	case int:
		return int64(n), true
	case int8:
		return int64(n), true
	case int16:
		return int64(n), true
	case int32:
		return int64(n), true
	case int64:
		return n, true
	case uint8:
		return int64(n), true
	case uint16:
		return int64(n), true
	case uint32:
		return int64(n), true
	}
	return 0, false
}

func decodeFloat(kind Kind, raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	f, ok := AsFloat(raw)
	if !ok {
		return nil, mismatch(kind, raw, "expected number")
	}
	return f, nil
}
