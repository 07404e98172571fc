// Package server implements a sync server for the publisher protocol.
//
// The server accepts JSON-RPC 2.0 connections (TCP or in-process pipes),
// opens a session per publisher client, and applies each committed
// transaction atomically to the store. It exists so the publishing path can
// be exercised end to end; it performs no authentication and no rendering.
package server
