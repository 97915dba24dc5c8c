package identity

import (
	"crypto/rand"
	"crypto/sha256"
	"io"
	"strings"

	"github.com/decred/dcrd/dcrec/secp256k1/v4"
	"github.com/decred/dcrd/dcrec/secp256k1/v4/ecdsa"
	"github.com/mr-tron/base58/base58"
	"github.com/tyler-smith/go-bip39"
	"golang.org/x/crypto/hkdf"

	"github.com/yndnr/quotaledger/internal/core/domain"
	"github.com/yndnr/quotaledger/pkg/digest"
)

const (
	// SeedSize is the length of an identity seed.
	SeedSize = 32

	// CodePrefix prefixes every identity code.
	CodePrefix = "qa1"

	hkdfInfoSigning = "quotaledger/authority/signing/v1"
	codeHashLen     = 20
)

// Identity is a derived keypair together with its seed and code.
type Identity struct {
	seed   [SeedSize]byte
	secret *secp256k1.PrivateKey
	public domain.Certificate
	code   string
}

// Generate creates an identity from a fresh random seed.
func Generate() (*Identity, error) {
	seed, err := digest.Random32(rand.Reader)
	if err != nil {
		return nil, domain.ErrInternalServer.WithDetails("draw identity seed").WithCause(err)
	}
	return FromSeed(seed)
}

// FromSeed derives an identity deterministically from seed.
func FromSeed(seed [SeedSize]byte) (*Identity, error) {
	signing, err := hkdfExpand(seed[:], hkdfInfoSigning, 32)
	if err != nil {
		return nil, domain.ErrInvalidSeed.WithCause(err)
	}
	defer zeroBytes(signing)

	secret := secp256k1.PrivKeyFromBytes(signing)
	if secret.Key.IsZero() {
		return nil, domain.ErrInvalidSeed.WithDetails("seed derives the zero scalar")
	}

	var public domain.Certificate
	copy(public[:], secret.PubKey().SerializeCompressed())

	return &Identity{
		seed:   seed,
		secret: secret,
		public: public,
		code:   CodeFor(public),
	}, nil
}

// FromSeedBytes is FromSeed for a slice that must be exactly SeedSize long.
func FromSeedBytes(b []byte) (*Identity, error) {
	if len(b) != SeedSize {
		return nil, domain.ErrInvalidSeed.WithDetailsf("got %d bytes, want %d", len(b), SeedSize)
	}
	var seed [SeedSize]byte
	copy(seed[:], b)
	return FromSeed(seed)
}

// FromMnemonic restores an identity from its BIP-39 backup phrase.
func FromMnemonic(mnemonic string) (*Identity, error) {
	entropy, err := bip39.EntropyFromMnemonic(strings.TrimSpace(mnemonic))
	if err != nil {
		return nil, domain.ErrInvalidSeed.WithDetails("invalid mnemonic").WithCause(err)
	}
	return FromSeedBytes(entropy)
}

// CodeFor renders the identity code of a certificate:
// "qa1" + base58(BLAKE2b-256(certificate)[:20]).
func CodeFor(c domain.Certificate) string {
	h := digest.Sum256(c[:])
	return CodePrefix + base58.Encode(h[:codeHashLen])
}

// Certificate returns the public certificate.
func (id *Identity) Certificate() domain.Certificate {
	return id.public
}

// Code returns the identity code.
func (id *Identity) Code() string {
	return id.code
}

// Seed returns a copy of the seed.
func (id *Identity) Seed() [SeedSize]byte {
	return id.seed
}

// Mnemonic renders the seed as a 24-word BIP-39 phrase.
func (id *Identity) Mnemonic() (string, error) {
	return bip39.NewMnemonic(id.seed[:])
}

// SignDigest signs a 32-byte digest. The signature is deterministic and
// low-S, encoded as R‖S.
func (id *Identity) SignDigest(d [digest.Size]byte) ([domain.SignatureSize]byte, error) {
	var out [domain.SignatureSize]byte
	// Compact form is recovery(1) ‖ R(32) ‖ S(32).
	compact := ecdsa.SignCompact(id.secret, d[:], true)
	copy(out[:], compact[1:])
	return out, nil
}

// Equal reports whether two identities hold the same key.
func (id *Identity) Equal(other *Identity) bool {
	if id == nil || other == nil {
		return id == other
	}
	return id.public == other.public
}

func (id *Identity) secretBytes() []byte {
	return id.secret.Serialize()
}

func hkdfExpand(seed []byte, info string, outLen int) ([]byte, error) {
	reader := hkdf.New(sha256.New, seed, nil, []byte(info))
	out := make([]byte, outLen)
	if _, err := io.ReadFull(reader, out); err != nil {
		return nil, err
	}
	return out, nil
}

func zeroBytes(b []byte) {
	for i := range b {
		b[i] = 0
	}
}
