// Package model defines the scene entities a publisher streams to a sync
// server: meshes, materials, objects and object instances, plus the identity,
// transform and colour primitives they are built from.
//
// Entities are plain values. Every constructor validates its result and
// returns a *ValidationError on malformed data; Validate re-runs the same
// checks for values assembled by hand. Nothing leaves this package in wire
// form without passing validation (see Encode).
//
// Wire records are tagged variants keyed by identifier. Their payload is a
// canonical JSON value tree (RFC 8785 key ordering, NFC strings, ECMAScript
// number formatting) so that content hashes are stable across processes.
package model
