// Package protocol defines the JSON-RPC 2.0 methods, parameters and error
// codes spoken between the publisher client and the sync server.
package protocol
