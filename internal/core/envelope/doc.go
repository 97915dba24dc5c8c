// Package envelope implements the signed envelope that carries every
// message exchanged with the ledger.
//
// Wire layout:
//
//	type(1) ‖ body ‖ signer_certificate(33) ‖ signature(64)
//
// The signature is a deterministic (RFC 6979) low-S ECDSA signature over
// secp256k1, encoded as R‖S, of the digest BLAKE2b-256(type ‖ body). The
// external form of an envelope is its lower-case hex encoding.
//
// A verified envelope proves that the holder of Signer produced it. Whether
// that signer is allowed to do anything is decided by the ledger.
package envelope
