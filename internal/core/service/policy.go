package service

import (
	"sync"

	"github.com/yndnr/quotaledger/internal/core/domain"
)

// RequesterPolicy decides whether a requester may have quotas issued or
// converted. authority is the certificate currently signing quotas.
type RequesterPolicy interface {
	Authorize(requester, authority domain.Certificate) error
}

// StaticPolicy allows a fixed set of requester certificates.
//
// The authority certificate is always allowed. With AllowAny every
// certificate is allowed.
type StaticPolicy struct {
	mu       sync.RWMutex
	allowed  map[domain.Certificate]struct{}
	allowAny bool
}

// NewStaticPolicy creates a policy for the given certificates.
func NewStaticPolicy(allowAny bool, allowed ...domain.Certificate) *StaticPolicy {
	p := &StaticPolicy{
		allowed:  make(map[domain.Certificate]struct{}, len(allowed)),
		allowAny: allowAny,
	}
	for _, c := range allowed {
		p.allowed[c] = struct{}{}
	}
	return p
}

// ParseStaticPolicy builds a policy from hex-encoded certificates.
func ParseStaticPolicy(allowAny bool, hexCerts []string) (*StaticPolicy, error) {
	certs := make([]domain.Certificate, 0, len(hexCerts))
	for _, s := range hexCerts {
		c, err := domain.ParseCertificate(s)
		if err != nil {
			return nil, err
		}
		certs = append(certs, c)
	}
	return NewStaticPolicy(allowAny, certs...), nil
}

// Authorize implements RequesterPolicy.
func (p *StaticPolicy) Authorize(requester, authority domain.Certificate) error {
	if requester == authority {
		return nil
	}

	p.mu.RLock()
	defer p.mu.RUnlock()

	if p.allowAny {
		return nil
	}
	if _, ok := p.allowed[requester]; ok {
		return nil
	}
	return domain.ErrRequesterNotAuthorized.WithDetails(requester.String())
}

// Allow adds a requester.
func (p *StaticPolicy) Allow(c domain.Certificate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.allowed[c] = struct{}{}
}

// Revoke removes a requester. The authority itself cannot be revoked.
func (p *StaticPolicy) Revoke(c domain.Certificate) {
	p.mu.Lock()
	defer p.mu.Unlock()
	delete(p.allowed, c)
}
