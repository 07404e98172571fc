// Package canon implements the JSON value tree carried in wire records and
// its RFC 8785 canonical serialization.
//
// Canonical bytes are what content hashes are computed over, so two
// encodings of the same entity always hash equal regardless of map order or
// Unicode normalization form.
package canon
