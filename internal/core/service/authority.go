package service

import (
	"context"
	"log/slog"

	"github.com/yndnr/quotaledger/internal/core/domain"
	"github.com/yndnr/quotaledger/internal/core/identity"
)

// AuthorityView is the public description of the authority identity.
// It never carries the seed or the secret key.
type AuthorityView struct {
	Code      string `json:"code"`
	PublicKey string `json:"public_key"`
}

// ViewOf returns the public view of id.
func ViewOf(id *identity.Identity) *AuthorityView {
	return &AuthorityView{
		Code:      id.Code(),
		PublicKey: id.Certificate().String(),
	}
}

// AuthorityService administers the authority identity.
type AuthorityService struct {
	holder *identity.Authority
	logger *slog.Logger
}

// NewAuthorityService creates an AuthorityService over holder.
func NewAuthorityService(holder *identity.Authority, logger *slog.Logger) *AuthorityService {
	if logger == nil {
		logger = slog.Default()
	}
	return &AuthorityService{holder: holder, logger: logger}
}

// Create replaces the authority with a fresh random identity.
//
// Quotas issued under the previous identity stay valid: their envelopes
// carry the certificate that signed them.
func (s *AuthorityService) Create(ctx context.Context) (*AuthorityView, error) {
	id, err := s.holder.Rotate(nil)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "authority identity created", "code", id.Code())
	return ViewOf(id), nil
}

// Rotate replaces the authority with the identity derived from seed.
func (s *AuthorityService) Rotate(ctx context.Context, seed []byte) (*AuthorityView, error) {
	if len(seed) != identity.SeedSize {
		return nil, domain.ErrInvalidSeed.WithDetailsf("got %d bytes, want %d", len(seed), identity.SeedSize)
	}
	var s32 [identity.SeedSize]byte
	copy(s32[:], seed)
	defer func() { s32 = [identity.SeedSize]byte{} }()

	id, err := s.holder.Rotate(&s32)
	if err != nil {
		return nil, err
	}
	s.logger.InfoContext(ctx, "authority identity rotated", "code", id.Code())
	return ViewOf(id), nil
}

// Describe returns the current authority's public view.
func (s *AuthorityService) Describe(ctx context.Context) (*AuthorityView, error) {
	id, err := s.holder.Require()
	if err != nil {
		return nil, err
	}
	return ViewOf(id), nil
}
