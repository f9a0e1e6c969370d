// Package persistence implements the result cache on top of a byte-level
// entry store.
//
// Each entry is an envelope holding the expiry and the JSON encoding of an
// assessment result. Entries that cannot be decoded are reported as missing so
// that a damaged cache degrades into a fresh run.
package persistence
