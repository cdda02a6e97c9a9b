package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/learnpath/lms-api/internal/core/domain"
)

func reasonOf(t *testing.T, err error) domain.AuthFailureReason {
	t.Helper()
	var ue *domain.UnauthenticatedError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UnauthenticatedError, got %v", err)
	}
	return ue.Reason
}

func testUser() *domain.User {
	return &domain.User{ID: "u-42", Email: "instructor@x.com", Role: domain.RoleInstructor}
}

func TestTokenService_IssueAndParse(t *testing.T) {
	svc := NewTokenService("secret", "lms", TokenTTLs{Login: 2 * time.Hour, ShortLived: 5 * time.Minute})
	fixed := time.Date(2025, 1, 10, 8, 30, 15, 500, time.UTC)
	svc.now = func() time.Time { return fixed }

	for policy, ttl := range map[domain.TokenPolicy]time.Duration{
		domain.PolicyLogin:      2 * time.Hour,
		domain.PolicyShortLived: 5 * time.Minute,
	} {
		tok, err := svc.Issue(testUser(), policy)
		if err != nil {
			t.Fatalf("%s: Issue returned error: %v", policy, err)
		}
		if !tok.IssuedAt.Equal(fixed.Truncate(time.Second)) {
			t.Fatalf("%s: unexpected issued-at %v", policy, tok.IssuedAt)
		}
		if got := tok.ExpiresAt.Sub(tok.IssuedAt); got != ttl {
			t.Fatalf("%s: expected lifetime %v, got %v", policy, ttl, got)
		}

		claims, err := svc.Parse(tok.Token)
		if err != nil {
			t.Fatalf("%s: Parse returned error: %v", policy, err)
		}
		if claims.Subject != "u-42" || claims.Email != "instructor@x.com" || claims.Role != domain.RoleInstructor {
			t.Fatalf("%s: unexpected claims %+v", policy, claims)
		}
		if claims.Issuer != "lms" || claims.ID == "" {
			t.Fatalf("%s: expected issuer and jti, got %+v", policy, claims.RegisteredClaims)
		}
	}
}

func TestTokenService_DefaultTTLs(t *testing.T) {
	svc := NewTokenService("secret", "", TokenTTLs{})
	if svc.TTL(domain.PolicyLogin) != 7*24*time.Hour {
		t.Fatalf("unexpected login ttl %v", svc.TTL(domain.PolicyLogin))
	}
	if svc.TTL(domain.PolicyShortLived) != 60*time.Minute {
		t.Fatalf("unexpected short-lived ttl %v", svc.TTL(domain.PolicyShortLived))
	}
}

func TestTokenService_IssueRequiresSubject(t *testing.T) {
	svc := NewTokenService("secret", "", TokenTTLs{})
	if _, err := svc.Issue(&domain.User{Email: "x@x.com"}, domain.PolicyLogin); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput, got %v", err)
	}
	if _, err := svc.Issue(nil, domain.PolicyLogin); !errors.Is(err, domain.ErrInvalidInput) {
		t.Fatalf("expected ErrInvalidInput for nil user, got %v", err)
	}
}

func TestTokenService_Expired(t *testing.T) {
	svc := NewTokenService("secret", "", TokenTTLs{ShortLived: time.Minute})
	start := time.Now()
	svc.now = func() time.Time { return start }

	tok, err := svc.Issue(testUser(), domain.PolicyShortLived)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}

	svc.now = func() time.Time { return start.Add(2 * time.Minute) }
	_, err = svc.Parse(tok.Token)
	if !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
	if r := reasonOf(t, err); r != domain.ReasonTokenExpired {
		t.Fatalf("expected token_expired, got %s", r)
	}
}

func TestTokenService_WrongSecret(t *testing.T) {
	issuer := NewTokenService("secret-a", "", TokenTTLs{})
	verifier := NewTokenService("secret-b", "", TokenTTLs{})

	tok, err := issuer.Issue(testUser(), domain.PolicyLogin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	_, err = verifier.Parse(tok.Token)
	if r := reasonOf(t, err); r != domain.ReasonBadSignature {
		t.Fatalf("expected signature_invalid, got %s", r)
	}
}

func TestTokenService_WrongIssuer(t *testing.T) {
	a := NewTokenService("secret", "other", TokenTTLs{})
	b := NewTokenService("secret", "lms", TokenTTLs{})

	tok, err := a.Issue(testUser(), domain.PolicyLogin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	if _, err := b.Parse(tok.Token); !errors.Is(err, domain.ErrUnauthenticated) {
		t.Fatalf("expected ErrUnauthenticated, got %v", err)
	}
}

func TestTokenService_RejectsOtherAlgorithms(t *testing.T) {
	svc := NewTokenService("secret", "", TokenTTLs{})
	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "u-42",
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
		Role: domain.RoleAdmin,
	}

	none, err := jwt.NewWithClaims(jwt.SigningMethodNone, claims).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign none: %v", err)
	}
	hs512, err := jwt.NewWithClaims(jwt.SigningMethodHS512, claims).SignedString([]byte("secret"))
	if err != nil {
		t.Fatalf("sign HS512: %v", err)
	}

	for name, raw := range map[string]string{"none": none, "HS512": hs512} {
		if _, err := svc.Parse(raw); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Fatalf("%s: expected ErrUnauthenticated, got %v", name, err)
		}
	}
}

func TestTokenService_MissingExpiryOrSubject(t *testing.T) {
	svc := NewTokenService("secret", "", TokenTTLs{})

	noExp, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "u-42"},
	}).SignedString([]byte("secret"))
	noSub, _ := jwt.NewWithClaims(jwt.SigningMethodHS256, &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour))},
	}).SignedString([]byte("secret"))

	for name, raw := range map[string]string{"no exp": noExp, "no sub": noSub} {
		if _, err := svc.Parse(raw); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Fatalf("%s: expected ErrUnauthenticated, got %v", name, err)
		}
	}
}

func TestTokenService_Garbage(t *testing.T) {
	svc := NewTokenService("secret", "", TokenTTLs{})
	for _, raw := range []string{"", "abc", "a.b.c", "....."} {
		_, err := svc.Parse(raw)
		if r := reasonOf(t, err); r != domain.ReasonMalformedToken {
			t.Fatalf("%q: expected malformed_token, got %s", raw, r)
		}
	}
}

func TestTokenService_AnySingleCharacterEditFails(t *testing.T) {
	svc := NewTokenService("secret", "lms", TokenTTLs{})
	tok, err := svc.Issue(testUser(), domain.PolicyLogin)
	if err != nil {
		t.Fatalf("Issue: %v", err)
	}
	raw := tok.Token
	if strings.Count(raw, ".") != 2 {
		t.Fatalf("unexpected token shape %q", raw)
	}

	for i := 0; i < len(raw); i++ {
		if raw[i] == '.' {
			continue
		}
		repl := byte('A')
		if raw[i] == 'A' {
			repl = 'B'
		}
		tampered := raw[:i] + string(repl) + raw[i+1:]
		if _, err := svc.Parse(tampered); !errors.Is(err, domain.ErrUnauthenticated) {
			t.Fatalf("edit at offset %d accepted", i)
		}
	}
}
