// Package answer implements the typed answer values collected by questions.
//
// Every question declares an answer Type. A Type converts between the typed Go
// value handed around by callers and the generic structured form used on the
// wire (the values encoding/json produces when decoding into an interface:
// nil, bool, float64, string, []any and map[string]any).
//
// Basic usage:
//
//	typ := answer.Array(answer.KindString, "-")
//
//	raw, err := typ.Encode([]any{"a", "b"}) // "a-b"
//	if err != nil {
//	    // Handle encoding errors
//	}
//
//	value, err := typ.Decode(raw) // []any{"a", "b"}
//
// The type itself round-trips through JSON with a "type" discriminator:
//
//	data, _ := answer.Marshal(typ) // {"baseType":"string","sequenceSeparator":"-","type":"array"}
//	typ, _ = answer.Unmarshal(data)
//
// Decoding a value against the wrong type fails with an error wrapping
// ErrTypeMismatch. Callers may treat such a value as absent.
package answer
