// Package identity manages the issuing authority's key material.
//
// An Identity is a pure function of a 32-byte seed: the secp256k1 signing
// key is expanded from the seed with HKDF-SHA256, the certificate is the
// compressed public point, and the code is a short human-readable tag
// derived from the certificate. The seed can be exported as a BIP-39
// mnemonic for offline backup.
//
// FileStore persists one identity as JSON, optionally sealed under a
// passphrase. Authority holds the identity in effect and swaps it
// atomically on rotation.
package identity
