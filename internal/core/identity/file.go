package identity

import (
	"encoding/hex"
	"encoding/json"
	"errors"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/yndnr/quotaledger/internal/core/domain"
	"github.com/yndnr/quotaledger/pkg/crypto/seal"
	"github.com/yndnr/quotaledger/pkg/digest"
)

const fileVersion = 1

// sealAAD binds a sealed payload to its purpose.
var sealAAD = []byte("quotaledger/identity/v1")

// Store loads and persists the authority identity.
type Store interface {
	Load() (*Identity, error)
	Persist(id *Identity) error
}

// FileStore keeps one identity in a JSON file.
//
// With a Passphrase the key material is sealed; the certificate and code
// stay readable.
type FileStore struct {
	Path       string
	Passphrase string
}

// NewFileStore creates a FileStore.
func NewFileStore(path, passphrase string) *FileStore {
	return &FileStore{Path: path, Passphrase: passphrase}
}

type keyMaterial struct {
	Seed      string `json:"seed"`
	SecretKey string `json:"secret_key"`
}

type identityFile struct {
	Version   int       `json:"version"`
	PublicKey string    `json:"public_key"`
	Code      string    `json:"code"`
	Seed      string    `json:"seed,omitempty"`
	SecretKey string    `json:"secret_key,omitempty"`
	Sealed    *seal.Box `json:"sealed,omitempty"`
}

// Load reads and re-derives the identity, checking that every stored field
// agrees with the seed.
func (s *FileStore) Load() (*Identity, error) {
	data, err := os.ReadFile(s.Path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, domain.ErrKeyMaterialMissing.WithDetails(s.Path)
	}
	if err != nil {
		return nil, domain.ErrKeyMaterialCorrupt.WithDetails(s.Path).WithCause(err)
	}

	var f identityFile
	if err := json.Unmarshal(data, &f); err != nil {
		return nil, domain.ErrKeyMaterialCorrupt.WithDetails("not valid JSON").WithCause(err)
	}
	if f.Version != fileVersion {
		return nil, domain.ErrKeyMaterialCorrupt.WithDetailsf("unsupported version %d", f.Version)
	}

	km := keyMaterial{Seed: f.Seed, SecretKey: f.SecretKey}
	if f.Sealed != nil {
		if s.Passphrase == "" {
			return nil, domain.ErrKeyMaterialCorrupt.WithDetails("identity is sealed and no passphrase is configured")
		}
		plain, err := seal.Open(f.Sealed, []byte(s.Passphrase), sealAAD)
		if err != nil {
			return nil, domain.ErrKeyMaterialCorrupt.WithDetails("unseal").WithCause(err)
		}
		err = json.Unmarshal(plain, &km)
		zeroBytes(plain)
		if err != nil {
			return nil, domain.ErrKeyMaterialCorrupt.WithDetails("sealed payload").WithCause(err)
		}
	}

	seed, err := hex.DecodeString(km.Seed)
	if err != nil || len(seed) != SeedSize {
		return nil, domain.ErrKeyMaterialCorrupt.WithDetails("seed must be 32 hex-encoded bytes")
	}
	id, err := FromSeedBytes(seed)
	zeroBytes(seed)
	if err != nil {
		return nil, domain.ErrKeyMaterialCorrupt.WithCause(err)
	}

	secret, err := hex.DecodeString(km.SecretKey)
	if err != nil || !digest.Equal(secret, id.secretBytes()) {
		return nil, domain.ErrKeyMaterialCorrupt.WithDetails("secret key does not match seed")
	}
	if f.PublicKey != id.Certificate().String() {
		return nil, domain.ErrKeyMaterialCorrupt.WithDetails("public key does not match seed")
	}
	if f.Code != id.Code() {
		return nil, domain.ErrKeyMaterialCorrupt.WithDetails("code does not match seed")
	}
	return id, nil
}

// Persist replaces the file with id. The write goes to a temporary file in
// the same directory which is renamed over the target.
func (s *FileStore) Persist(id *Identity) error {
	seed := id.Seed()
	km := keyMaterial{
		Seed:      hex.EncodeToString(seed[:]),
		SecretKey: hex.EncodeToString(id.secretBytes()),
	}
	f := identityFile{
		Version:   fileVersion,
		PublicKey: id.Certificate().String(),
		Code:      id.Code(),
	}

	if s.Passphrase != "" {
		plain, err := json.Marshal(km)
		if err != nil {
			return domain.ErrInternalServer.WithCause(err)
		}
		box, err := seal.Seal(plain, []byte(s.Passphrase), sealAAD)
		zeroBytes(plain)
		if err != nil {
			return domain.ErrInternalServer.WithDetails("seal identity").WithCause(err)
		}
		f.Sealed = box
	} else {
		f.Seed, f.SecretKey = km.Seed, km.SecretKey
	}

	data, err := json.MarshalIndent(f, "", "  ")
	if err != nil {
		return domain.ErrInternalServer.WithCause(err)
	}
	return writeFileAtomic(s.Path, append(data, '\n'))
}

func writeFileAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return domain.ErrPersistence.WithDetails("create identity directory").WithCause(err)
	}

	tmp, err := os.CreateTemp(dir, ".identity-*.tmp")
	if err != nil {
		return domain.ErrPersistence.WithDetails("create temp file").WithCause(err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		return domain.ErrPersistence.WithCause(err)
	}
	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return domain.ErrPersistence.WithDetails("write identity").WithCause(err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return domain.ErrPersistence.WithCause(err)
	}
	if err := tmp.Close(); err != nil {
		return domain.ErrPersistence.WithCause(err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return domain.ErrPersistence.WithDetails("replace identity file").WithCause(err)
	}
	return nil
}
