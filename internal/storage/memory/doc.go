// Package memory provides an in-process storage.Store.
//
// It is used by tests and for local development. Transactions are
// serialized by a single writer lock; writes are staged and applied to the
// map only when the callback succeeds.
package memory
