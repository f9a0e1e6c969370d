package answer

import (
	"bytes"
	"encoding/json"
	"reflect"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
)

func roundTrips(typ Type, value any) bool {
	raw, err := typ.Encode(value)
	if err != nil {
		return false
	}
	data, err := json.Marshal(raw)
	if err != nil {
		return false
	}
	var wire any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&wire); err != nil {
		return false
	}
	got, err := typ.Decode(wire)
	if err != nil {
		return false
	}
	return reflect.DeepEqual(got, value)
}

func TestCodecProperties(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("integers survive the wire", prop.ForAll(
		func(v int64) bool {
			return roundTrips(Integer(), v)
		},
		gen.Int64(),
	))

	properties.Property("numbers survive the wire", prop.ForAll(
		func(v float64) bool {
			return roundTrips(Number(-1), v)
		},
		gen.Float64Range(-1e9, 1e9),
	))

	properties.Property("strings survive the wire", prop.ForAll(
		func(v string) bool {
			return roundTrips(String(), v)
		},
		gen.AlphaString(),
	))

	properties.Property("separated arrays survive the wire", prop.ForAll(
		func(items []string) bool {
			value := make([]any, len(items))
			for i, item := range items {
				value[i] = item
			}
			return roundTrips(Array(KindString, "-"), value)
		},
		gen.SliceOf(gen.Identifier()),
	))

	properties.Property("separated arrays never read back differently", prop.ForAll(
		func(items []string) bool {
			value := make([]any, len(items))
			for i, item := range items {
				value[i] = item
			}
			if _, err := Array(KindString, "-").Encode(value); err != nil {
				return strings.Contains(strings.Join(items, ""), "-") || (len(items) == 1 && items[0] == "")
			}
			return roundTrips(Array(KindString, "-"), value)
		},
		gen.SliceOf(gen.OneGenOf(gen.AlphaString(), gen.Const("-"), gen.Const("a-b"), gen.Const(""))),
	))

	properties.Property("integer lists survive the wire", prop.ForAll(
		func(items []int64) bool {
			value := make([]any, len(items))
			for i, item := range items {
				value[i] = item
			}
			return roundTrips(Array(KindInteger, ""), value)
		},
		gen.SliceOf(gen.Int64()),
	))

	properties.TestingRun(t)
}
