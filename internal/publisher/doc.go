// Package publisher is the client side of the scene sync protocol.
//
// A Client owns one connection to a sync server, bound to one target
// project. Callers batch entity upserts into a Transaction and commit it
// as a unit:
//
//	tx, err := client.StartTransaction()
//	if err != nil { ... }
//	tx.Send(mesh)
//	tx.Send(material)
//	tx.Send(object)
//	err = tx.Commit(ctx)
//
// At most one transaction is outstanding per client. StartTransaction fails
// with a CONCURRENT_TRANSACTION error until the previous one has resolved,
// which lets a background sync loop share the client with a foreground
// export without holding a lock across commits.
//
// CloseAndWait waits for the outstanding transaction, ends the server
// session and releases the connection. It is safe to call more than once.
package publisher
