// Package seal encrypts small secrets (identity seeds) at rest under a
// passphrase.
//
// A passphrase is stretched with Argon2id and the result keys an
// XChaCha20-Poly1305 AEAD. The KDF parameters, salt and nonce travel with
// the ciphertext in a Box so a sealed secret can be opened without any
// out-of-band configuration.
//
// Usage:
//
//	box, err := seal.Seal(secret, passphrase, nil)
//	secret, err := seal.Open(box, passphrase, nil)
package seal
