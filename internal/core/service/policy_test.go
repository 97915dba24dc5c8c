package service

import (
	"errors"
	"testing"

	"github.com/yndnr/quotaledger/internal/core/domain"
)

func TestStaticPolicy_Authorize(t *testing.T) {
	authority := seededIdentity(t, 1).Certificate()
	allowed := seededIdentity(t, 2).Certificate()
	stranger := seededIdentity(t, 3).Certificate()

	tests := []struct {
		name      string
		policy    *StaticPolicy
		requester domain.Certificate
		wantErr   bool
	}{
		{"authority always", NewStaticPolicy(false), authority, false},
		{"listed", NewStaticPolicy(false, allowed), allowed, false},
		{"unlisted", NewStaticPolicy(false, allowed), stranger, true},
		{"allow any", NewStaticPolicy(true), stranger, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.policy.Authorize(tt.requester, authority)
			if (err != nil) != tt.wantErr {
				t.Fatalf("Authorize() error = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, domain.ErrRequesterNotAuthorized) {
				t.Errorf("Authorize() error = %v, want ErrRequesterNotAuthorized", err)
			}
			if err != nil && domain.KindOf(err) != domain.KindSignature {
				t.Errorf("kind = %s, want signature", domain.KindOf(err))
			}
		})
	}
}

func TestStaticPolicy_AllowRevoke(t *testing.T) {
	authority := seededIdentity(t, 1).Certificate()
	req := seededIdentity(t, 2).Certificate()
	p := NewStaticPolicy(false)

	if p.Authorize(req, authority) == nil {
		t.Fatal("unlisted requester authorized")
	}
	p.Allow(req)
	if err := p.Authorize(req, authority); err != nil {
		t.Fatalf("allowed requester rejected: %v", err)
	}
	p.Revoke(req)
	if p.Authorize(req, authority) == nil {
		t.Error("revoked requester authorized")
	}
}

func TestParseStaticPolicy(t *testing.T) {
	req := seededIdentity(t, 2).Certificate()

	p, err := ParseStaticPolicy(false, []string{req.String()})
	if err != nil {
		t.Fatalf("ParseStaticPolicy() error = %v", err)
	}
	if err := p.Authorize(req, seededIdentity(t, 1).Certificate()); err != nil {
		t.Errorf("parsed requester rejected: %v", err)
	}

	if _, err := ParseStaticPolicy(false, []string{"not-hex"}); err == nil {
		t.Error("invalid certificate accepted")
	}
}
