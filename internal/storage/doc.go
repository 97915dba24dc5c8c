// Package storage defines the store of record for quota control fields and
// its embedded Badger adapter.
//
// Every stored record is one signed quota envelope plus its lifecycle
// state. All ledger workflows run inside Store.InTx: either every write of
// the callback is applied or none is. Transition is a conditional update,
// so two workflows racing on the same quota cannot both move it out of the
// issued state.
//
// Adapters:
//
//   - BadgerStore: embedded, serializable transactions with conflict detection
//   - memory.Store: in-process, for tests and development
//   - postgres.Store: relational store of record (pgx)
package storage
