package answer

import (
	"bytes"
	"encoding/json"
	"errors"
	"math"
	"reflect"
	"testing"
	"time"
)

func wireRoundTrip(t *testing.T, raw any) any {
	t.Helper()
	data, err := json.Marshal(raw)
	if err != nil {
		t.Fatalf("marshal %v: %v", raw, err)
	}
	var out any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		t.Fatalf("unmarshal %s: %v", data, err)
	}
	return out
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name  string
		typ   Type
		value any
		wire  any
	}{
		{"boolean", Boolean(), true, true},
		{"integer", Integer(), int64(42), int64(42)},
		{"integer beyond float precision", Integer(), int64(1<<53 + 1), int64(1<<53 + 1)},
		{"number", Number(2), 3.25, 3.25},
		{"measurement", Measurement("cm"), 172.5, 172.5},
		{"string", String(), "hello", "hello"},
		{"date-time default", DateTime(""), time.Date(2024, 3, 5, 14, 30, 15, 123000000, time.UTC), "2024-03-05T14:30:15.123Z"},
		{"date only", DateTime("yyyy-MM-dd"), time.Date(2024, 3, 5, 0, 0, 0, 0, time.UTC), "2024-03-05"},
		{"time of day", TimeOfDay("HH:mm"), time.Date(0, 1, 1, 14, 30, 0, 0, time.UTC), "14:30"},
		{"duration", Duration(), 90 * time.Second, 90.0},
		{"array with separator", Array(KindString, "-"), []any{"a", "b"}, "a-b"},
		{"integer array", Array(KindInteger, ""), []any{int64(1), int64(2)}, []any{int64(1), int64(2)}},
		{"number array with separator", Array(KindNumber, ","), []any{1.5, 2.0}, "1.5,2"},
		{"object", Object(), map[string]any{"a": "b", "n": 1.0}, map[string]any{"a": "b", "n": 1.0}},
		{"null", Integer(), nil, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := tt.typ.Encode(tt.value)
			if err != nil {
				t.Fatalf("Encode(%v) error = %v", tt.value, err)
			}
			if !reflect.DeepEqual(raw, tt.wire) {
				t.Errorf("Encode(%v) = %#v, want %#v", tt.value, raw, tt.wire)
			}

			got, err := tt.typ.Decode(wireRoundTrip(t, raw))
			if err != nil {
				t.Fatalf("Decode(%v) error = %v", raw, err)
			}
			if !reflect.DeepEqual(got, tt.value) {
				t.Errorf("Decode(Encode(%v)) = %#v", tt.value, got)
			}
		})
	}
}

func TestEncodeAcceptsLooseValues(t *testing.T) {
	raw, err := Integer().Encode(7)
	if err != nil || raw != int64(7) {
		t.Errorf("Integer().Encode(7) = %v, %v", raw, err)
	}

	raw, err = Array(KindString, ",").Encode([]string{"x", "y"})
	if err != nil || raw != "x,y" {
		t.Errorf("Array().Encode([]string) = %v, %v", raw, err)
	}

	raw, err = Array(KindString, ",").Encode("x,y")
	if err != nil || raw != "x,y" {
		t.Errorf("Array().Encode(wire) = %v, %v", raw, err)
	}
}

func TestDecodeMismatch(t *testing.T) {
	tests := []struct {
		name string
		typ  Type
		raw  any
	}{
		{"integer from string", Integer(), "x"},
		{"integer from fraction", Integer(), 1.5},
		{"boolean from string", Boolean(), "true"},
		{"string from number", String(), 3.0},
		{"date-time garbage", DateTime("yyyy-MM-dd"), "not a date"},
		{"array without separator from string", Array(KindString, ""), "a-b"},
		{"integer array element", Array(KindInteger, "-"), "1-x"},
		{"object from list", Object(), []any{1.0}},
		{"duration from bool", Duration(), true},
		{"integer at 2^63", Integer(), 0x1p63},
		{"integer below -2^63", Integer(), -0x1p64},
		{"integer beyond int64", Integer(), json.Number("9223372036854775808")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := tt.typ.Decode(tt.raw)
			if !errors.Is(err, ErrTypeMismatch) {
				t.Errorf("Decode(%v) error = %v, want ErrTypeMismatch", tt.raw, err)
			}
		})
	}
}

func TestIntegerBounds(t *testing.T) {
	got, err := Integer().Decode(-0x1p63)
	if err != nil || got != int64(math.MinInt64) {
		t.Errorf("Decode(-2^63) = %v, %v", got, err)
	}
	got, err = Integer().Decode(json.Number("9223372036854775807"))
	if err != nil || got != int64(math.MaxInt64) {
		t.Errorf("Decode(MaxInt64) = %v, %v", got, err)
	}
}

func TestSeparatedArrayRejectsAmbiguousElements(t *testing.T) {
	tests := []struct {
		name  string
		typ   Type
		value any
	}{
		{"element holds separator", Array(KindString, "-"), []any{"a-b", "c"}},
		{"single empty element", Array(KindString, "-"), []any{""}},
		{"multi-rune separator", Array(KindString, "||"), []string{"x||y"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			raw, err := tt.typ.Encode(tt.value)
			if !errors.Is(err, ErrTypeMismatch) {
				t.Errorf("Encode(%v) = %#v, %v, want ErrTypeMismatch", tt.value, raw, err)
			}
		})
	}

	raw, err := Array(KindString, "-").Encode([]any{"", "a"})
	if err != nil || raw != "-a" {
		t.Errorf("Encode with leading empty element = %v, %v", raw, err)
	}
}

func TestEmptySeparatedArray(t *testing.T) {
	got, err := Array(KindString, "|").Decode("")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !reflect.DeepEqual(got, []any{}) {
		t.Errorf("Decode(\"\") = %#v, want empty list", got)
	}
}

func TestLayout(t *testing.T) {
	tests := []struct {
		format string
		want   string
	}{
		{DefaultDateTimeFormat, "2006-01-02T15:04:05.000Z07:00"},
		{"yyyy-MM-dd", "2006-01-02"},
		{"HH:mm", "15:04"},
		{"dd MMM yy", "02 Jan 06"},
		{"h:mm a", "3:04 PM"},
		{"'o''clock' HH", "o'clock 15"},
	}
	for _, tt := range tests {
		if got := Layout(tt.format); got != tt.want {
			t.Errorf("Layout(%q) = %q, want %q", tt.format, got, tt.want)
		}
	}
}

func TestSignificantDigits(t *testing.T) {
	tests := []struct {
		typ  Type
		want int
	}{
		{Integer(), 0},
		{Number(2), 2},
		{Number(-1), DefaultSignificantDigits},
		{String(), DefaultSignificantDigits},
		{Array(KindInteger, ""), 0},
	}
	for _, tt := range tests {
		if got := SignificantDigits(tt.typ); got != tt.want {
			t.Errorf("SignificantDigits(%s) = %d, want %d", tt.typ.Kind(), got, tt.want)
		}
	}
}
