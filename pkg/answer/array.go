package answer

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ArrayType holds a list of base-typed answers. When Separator is set the
// list is serialized as a single delimited string.
type ArrayType struct {
	BaseType  Kind
	Separator string
}

// Array creates a list answer type. An empty separator keeps the list form.
func Array(base Kind, separator string) Type {
	return &ArrayType{BaseType: base, Separator: separator}
}

func (t *ArrayType) Kind() Kind { return KindArray }

func (t *ArrayType) base() Kind {
	if t.BaseType == "" {
		return KindString
	}
	return t.BaseType
}

func (t *ArrayType) elemType() (Type, error) {
	switch t.base() {
	case KindString:
		return String(), nil
	case KindInteger:
		return Integer(), nil
	case KindNumber:
		return Number(-1), nil
	case KindBoolean:
		return Boolean(), nil
	case KindObject:
		if t.Separator != "" {
			return nil, fmt.Errorf("array of %s cannot use a separator", KindObject)
		}
		return Object(), nil
	default:
		return nil, fmt.Errorf("unsupported array base type: %s", t.BaseType)
	}
}

func (t *ArrayType) Encode(value any) (any, error) {
	if value == nil {
		return nil, nil
	}
	elem, err := t.elemType()
	if err != nil {
		return nil, err
	}
	items, ok := toSlice(value)
	if !ok {
		if s, isString := value.(string); isString && t.Separator != "" {
			// Already in wire form; validate it by decoding.
			if _, err := t.Decode(s); err != nil {
				return nil, err
			}
			return s, nil
		}
		return nil, mismatch(KindArray, value, "expected slice")
	}

	raws := make([]any, 0, len(items))
	for i, item := range items {
		raw, err := elem.Encode(item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		raws = append(raws, raw)
	}
	if t.Separator == "" {
		return raws, nil
	}

	parts := make([]string, 0, len(raws))
	for i, raw := range raws {
		s, err := formatElement(raw)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		if strings.Contains(s, t.Separator) {
			return nil, fmt.Errorf("element %d: %w", i, mismatch(KindArray, s, "contains separator %q", t.Separator))
		}
		parts = append(parts, s)
	}
	// A lone empty element joins to the empty string, which reads back as
	// an empty list.
	if len(parts) == 1 && parts[0] == "" {
		return nil, mismatch(KindArray, value, "single empty element cannot be joined")
	}
	return strings.Join(parts, t.Separator), nil
}

func (t *ArrayType) Decode(raw any) (any, error) {
	if raw == nil {
		return nil, nil
	}
	elem, err := t.elemType()
	if err != nil {
		return nil, err
	}

	if s, ok := raw.(string); ok {
		if t.Separator == "" {
			return nil, mismatch(KindArray, raw, "expected list")
		}
		if s == "" {
			return []any{}, nil
		}
		parts := strings.Split(s, t.Separator)
		out := make([]any, 0, len(parts))
		for i, part := range parts {
			v, err := parseElement(t.base(), part)
			if err != nil {
				return nil, fmt.Errorf("element %d: %w", i, err)
			}
			out = append(out, v)
		}
		return out, nil
	}

	items, ok := toSlice(raw)
	if !ok {
		return nil, mismatch(KindArray, raw, "expected list")
	}
	out := make([]any, 0, len(items))
	for i, item := range items {
		v, err := elem.Decode(item)
		if err != nil {
			return nil, fmt.Errorf("element %d: %w", i, err)
		}
		out = append(out, v)
	}
	return out, nil
}

func toSlice(value any) ([]any, bool) {
	if items, ok := value.([]any); ok {
		return items, true
	}
	rv := reflect.ValueOf(value)
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return nil, false
	}
	items := make([]any, rv.Len())
	for i := 0; i < rv.Len(); i++ {
		items[i] = rv.Index(i).Interface()
	}
	return items, true
}

func formatElement(raw any) (string, error) {
	switch v := raw.(type) {
	case string:
		return v, nil
	case int64:
		return strconv.FormatInt(v, 10), nil
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64), nil
	case bool:
		return strconv.FormatBool(v), nil
	default:
		return "", mismatch(KindArray, raw, "element cannot be joined")
	}
}

func parseElement(kind Kind, s string) (any, error) {
	switch kind {
	case KindInteger:
		i, err := strconv.ParseInt(strings.TrimSpace(s), 10, 64)
		if err != nil {
			return nil, mismatch(KindInteger, s, "not a whole number")
		}
		return i, nil
	case KindNumber:
		f, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return nil, mismatch(KindNumber, s, "not a number")
		}
		return f, nil
	case KindBoolean:
		b, err := strconv.ParseBool(strings.TrimSpace(s))
		if err != nil {
			return nil, mismatch(KindBoolean, s, "not a bool")
		}
		return b, nil
	default:
		return s, nil
	}
}
