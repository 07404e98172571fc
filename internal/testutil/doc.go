// Package testutil provides deterministic stand-ins for the collaborators
// of the publisher and sync loop: a scriptable connection, a recording log
// sink and a manually fired trigger.
package testutil
