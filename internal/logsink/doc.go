// Package logsink carries user-facing publisher log lines to any number of
// receivers.
//
// A Sink receives entries fire-and-forget. The Hub fans entries out to its
// subscribers from a single goroutine, so a slow receiver never blocks the
// publisher. Logger is the component-tagged front end the publisher code
// writes to.
package logsink
