// Package harness runs conformance scenarios against an in-process sync
// server.
//
// A scenario opens one publishing session, executes its steps in order and
// then checks the server state. Each run uses a fresh in-memory store, and
// session identifiers and sequence numbers are assigned deterministically,
// so the trace and final state can be compared against golden snapshots.
//
// # Scenario Format
//
//	name: quad_export
//	description: "What this scenario validates"
//	session:            # optional handshake overrides
//	  user: "Jane Doe"
//	  rules: "..."
//	steps:
//	  - progress: 0
//	  - commit:
//	      transaction: tx-1     # optional, defaults to tx-<n>
//	      records:
//	        - kind: material
//	          id: "Material id"
//	          data: { base_color: { r: 255, g: 0, b: 0, a: 255 } }
//	  - commit:
//	      records: [...]
//	    expect_error: UNRESOLVED_REFERENCE
//	  - close: true
//	assertions:
//	  - type: entity
//	    id: "Material id"
//	    kind: material
//	    expect: { base_color: { r: 255, g: 0, b: 0, a: 255 } }
//
// # Assertion Types
//
//   - entity: the entity exists, optionally with a kind, a parent and a
//     payload subset
//   - absent: no entity has the identifier
//   - entity_count, transactions: exact counts
//   - children: ordered child identifiers of an object
//   - progress: the exact progress history
//   - session: whether the session is closed
//
// # Golden Snapshots
//
// RunWithGolden serializes the trace and final state as canonical JSON and
// compares it against testdata/golden/<name>.golden. Entity payloads and
// hashes are left out of the snapshot; use entity assertions for those.
package harness
