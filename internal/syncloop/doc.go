// Package syncloop keeps a published scene up to date after the initial
// export.
//
// A Driver waits for ticks from a Trigger. On each tick it opens a
// transaction on the publisher client, sends the entities whose content
// changed since the last successful commit, and commits in the background
// so a slow server does not delay the next tick. While that commit is
// outstanding the client refuses new transactions and the driver simply
// skips the tick.
//
// Triggers are interchangeable: a fixed interval, an explicit "scene
// changed" notification, or a file watched with fsnotify.
package syncloop
