// Package digest provides the hashing and randomness primitives used to
// content-address ledger records.
//
// All digests are BLAKE2b-256 over the concatenation of their inputs.
// Random material is drawn from crypto/rand unless a reader is supplied.
package digest
