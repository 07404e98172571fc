// Package settings holds the publisher settings produced by project
// selection: who is publishing, to which target project and server, and the
// unit, axis and rules options applied to the export.
//
// Settings are persisted as YAML on a billy filesystem and validated
// against an embedded CUE schema.
package settings
