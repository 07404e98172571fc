// Package ident provides logical clocks and identifier generators shared by
// the publisher client and the sync server.
package ident
