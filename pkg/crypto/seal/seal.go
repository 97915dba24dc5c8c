package seal

import (
	"crypto/rand"
	"errors"
	"fmt"

	"golang.org/x/crypto/argon2"
	"golang.org/x/crypto/chacha20poly1305"
)

// Version is the Box format version produced by Seal.
const Version = 1

// KDFArgon2id names the only supported key derivation function.
const KDFArgon2id = "argon2id"

const saltSize = 16

// Errors returned by Open.
var (
	ErrEmptyPassphrase = errors.New("seal: empty passphrase")
	ErrUnsupported     = errors.New("seal: unsupported box")
	ErrAuthFailed      = errors.New("seal: wrong passphrase or corrupted box")
)

// Params are the Argon2id cost parameters.
type Params struct {
	Time     uint32 `json:"time"`
	MemoryKB uint32 `json:"memory_kb"`
	Threads  uint8  `json:"threads"`
}

// DefaultParams are interactive-login costs: 2 passes over 64 MiB.
var DefaultParams = Params{Time: 2, MemoryKB: 64 * 1024, Threads: 1}

// Box is a sealed secret together with everything needed to open it.
type Box struct {
	Version    int    `json:"version"`
	KDF        string `json:"kdf"`
	Params     Params `json:"params"`
	Salt       []byte `json:"salt"`
	Nonce      []byte `json:"nonce"`
	Ciphertext []byte `json:"ciphertext"`
}

// Seal encrypts secret under passphrase. additionalData is authenticated
// but not stored; the same value must be passed to Open.
func Seal(secret, passphrase, additionalData []byte) (*Box, error) {
	return SealWithParams(secret, passphrase, additionalData, DefaultParams)
}

// SealWithParams is Seal with explicit KDF costs.
func SealWithParams(secret, passphrase, additionalData []byte, p Params) (*Box, error) {
	if len(passphrase) == 0 {
		return nil, ErrEmptyPassphrase
	}

	salt := make([]byte, saltSize)
	if _, err := rand.Read(salt); err != nil {
		return nil, fmt.Errorf("seal: read salt: %w", err)
	}
	nonce := make([]byte, chacha20poly1305.NonceSizeX)
	if _, err := rand.Read(nonce); err != nil {
		return nil, fmt.Errorf("seal: read nonce: %w", err)
	}

	key := deriveKey(passphrase, salt, p)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}

	return &Box{
		Version:    Version,
		KDF:        KDFArgon2id,
		Params:     p,
		Salt:       salt,
		Nonce:      nonce,
		Ciphertext: aead.Seal(nil, nonce, secret, additionalData),
	}, nil
}

// Open decrypts a Box.
func Open(box *Box, passphrase, additionalData []byte) ([]byte, error) {
	if len(passphrase) == 0 {
		return nil, ErrEmptyPassphrase
	}
	if box == nil || box.Version != Version || box.KDF != KDFArgon2id {
		return nil, ErrUnsupported
	}
	if len(box.Nonce) != chacha20poly1305.NonceSizeX || len(box.Salt) == 0 {
		return nil, ErrUnsupported
	}

	key := deriveKey(passphrase, box.Salt, box.Params)
	defer zero(key)

	aead, err := chacha20poly1305.NewX(key)
	if err != nil {
		return nil, err
	}
	plaintext, err := aead.Open(nil, box.Nonce, box.Ciphertext, additionalData)
	if err != nil {
		return nil, ErrAuthFailed
	}
	return plaintext, nil
}

func deriveKey(passphrase, salt []byte, p Params) []byte {
	return argon2.IDKey(passphrase, salt, p.Time, p.MemoryKB, p.Threads, chacha20poly1305.KeySize)
}

func zero(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
