package answer

import (
	"encoding/json"
	"fmt"
)

// ToMap converts a type into its generic structured form, keyed by "type".
func ToMap(t Type) map[string]any {
	if t == nil {
		return nil
	}
	m := map[string]any{"type": string(t.Kind())}
	switch v := t.(type) {
	case *NumberType:
		if v.SignificantDigits != nil {
			m["significantDigits"] = float64(*v.SignificantDigits)
		}
	case *MeasurementType:
		if v.Unit != "" {
			m["unit"] = v.Unit
		}
	case *DateTimeType:
		if v.CodingFormat != "" {
			m["codingFormat"] = v.CodingFormat
		}
	case *TimeType:
		if v.CodingFormat != "" {
			m["codingFormat"] = v.CodingFormat
		}
	case *ArrayType:
		m["baseType"] = string(v.base())
		if v.Separator != "" {
			m["sequenceSeparator"] = v.Separator
		}
	}
	return m
}

// FromMap parses a type from its generic structured form. A bare string is
// accepted as a type without parameters.
func FromMap(raw any) (Type, error) {
	switch v := raw.(type) {
	case nil:
		return nil, nil
	case string:
		return FromMap(map[string]any{"type": v})
	case map[string]any:
		return fromFields(v)
	case map[any]any:
		m := make(map[string]any, len(v))
		for key, value := range v {
			m[fmt.Sprint(key)] = value
		}
		return fromFields(m)
	default:
		return nil, fmt.Errorf("answer type: expected object, got %T", raw)
	}
}

func fromFields(m map[string]any) (Type, error) {
	kind, _ := m["type"].(string)
	str := func(key string) string {
		s, _ := m[key].(string)
		return s
	}

	switch Kind(kind) {
	case KindBoolean:
		return Boolean(), nil
	case KindInteger:
		return Integer(), nil
	case KindNumber:
		digits := -1
		if f, ok := AsFloat(m["significantDigits"]); ok {
			digits = int(f)
		}
		return Number(digits), nil
	case KindMeasurement:
		return Measurement(str("unit")), nil
	case KindString:
		return String(), nil
	case KindDateTime:
		return DateTime(str("codingFormat")), nil
	case KindTime:
		return TimeOfDay(str("codingFormat")), nil
	case KindDuration:
		return Duration(), nil
	case KindObject:
		return Object(), nil
	case KindArray:
		base := Kind(str("baseType"))
		if base == "" {
			base = KindString
		}
		t := &ArrayType{BaseType: base, Separator: str("sequenceSeparator")}
		if _, err := t.elemType(); err != nil {
			return nil, err
		}
		return t, nil
	case "":
		return nil, fmt.Errorf("answer type: missing \"type\" discriminator")
	default:
		return nil, fmt.Errorf("answer type: unsupported type %q", kind)
	}
}

// Marshal serializes a type as a JSON object with a "type" discriminator.
func Marshal(t Type) ([]byte, error) {
	if t == nil {
		return []byte("null"), nil
	}
	return json.Marshal(ToMap(t))
}

// Unmarshal deserializes a type written by Marshal.
func Unmarshal(data []byte) (Type, error) {
	var raw any
	if err := json.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("answer type: %w", err)
	}
	return FromMap(raw)
}
