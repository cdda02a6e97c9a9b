package service

import (
	"errors"
	"fmt"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"

	"github.com/learnpath/lms-api/internal/core/domain"
	"github.com/learnpath/lms-api/internal/pkg/metrics"
)

const (
	DefaultLoginTTL      = 7 * 24 * time.Hour
	DefaultShortLivedTTL = 60 * time.Minute
)

// TokenTTLs holds the lifetime of each issuing policy.
type TokenTTLs struct {
	Login      time.Duration
	ShortLived time.Duration
}

// TokenClaims is the signed payload of a bearer token. The subject id lives in
// the registered "sub" claim.
type TokenClaims struct {
	jwt.RegisteredClaims
	Email string      `json:"email"`
	Role  domain.Role `json:"role"`
}

// TokenService signs and verifies HS256 bearer tokens. It keeps no record of
// the tokens it issues.
type TokenService struct {
	secret []byte
	issuer string
	ttls   TokenTTLs
	now    func() time.Time
}

// NewTokenService returns a TokenService signing with secret. Zero TTLs are
// replaced with DefaultLoginTTL and DefaultShortLivedTTL.
func NewTokenService(secret, issuer string, ttls TokenTTLs) *TokenService {
	if ttls.Login <= 0 {
		ttls.Login = DefaultLoginTTL
	}
	if ttls.ShortLived <= 0 {
		ttls.ShortLived = DefaultShortLivedTTL
	}
	return &TokenService{
		secret: []byte(secret),
		issuer: issuer,
		ttls:   ttls,
		now:    time.Now,
	}
}

// TTL returns the lifetime applied for policy.
func (s *TokenService) TTL(policy domain.TokenPolicy) time.Duration {
	if policy == domain.PolicyShortLived {
		return s.ttls.ShortLived
	}
	return s.ttls.Login
}

// Issue signs a token for user under policy.
func (s *TokenService) Issue(user *domain.User, policy domain.TokenPolicy) (*domain.IssuedToken, error) {
	if user == nil || user.ID == "" {
		return nil, fmt.Errorf("issue token: %w: missing subject", domain.ErrInvalidInput)
	}

	// Registered claims carry whole seconds; truncating keeps exp - iat exact.
	issuedAt := s.now().UTC().Truncate(time.Second)
	expiresAt := issuedAt.Add(s.TTL(policy))

	claims := &TokenClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			ID:        uuid.NewString(),
			Issuer:    s.issuer,
			Subject:   user.ID,
			IssuedAt:  jwt.NewNumericDate(issuedAt),
			ExpiresAt: jwt.NewNumericDate(expiresAt),
		},
		Email: user.Email,
		Role:  user.Role,
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return nil, fmt.Errorf("issue token: %w", err)
	}

	metrics.TokensIssuedTotal.WithLabelValues(string(policy)).Inc()
	return &domain.IssuedToken{Token: signed, IssuedAt: issuedAt, ExpiresAt: expiresAt}, nil
}

// Parse verifies the signature, algorithm, issuer and expiry of raw. Segments
// must be canonical base64url, so no single-character edit goes unnoticed. Failures
// are *domain.UnauthenticatedError values naming the failed check.
func (s *TokenService) Parse(raw string) (*TokenClaims, error) {
	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
		jwt.WithStrictDecoding(),
		jwt.WithTimeFunc(s.now),
	}
	if s.issuer != "" {
		opts = append(opts, jwt.WithIssuer(s.issuer))
	}

	claims := &TokenClaims{}
	tkn, err := jwt.ParseWithClaims(raw, claims, func(*jwt.Token) (any, error) {
		return s.secret, nil
	}, opts...)
	switch {
	case err == nil && tkn.Valid:
	case errors.Is(err, jwt.ErrTokenExpired):
		return nil, domain.Unauthenticated(domain.ReasonTokenExpired)
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return nil, domain.Unauthenticated(domain.ReasonBadSignature)
	default:
		return nil, domain.Unauthenticated(domain.ReasonMalformedToken)
	}

	if claims.Subject == "" {
		return nil, domain.Unauthenticated(domain.ReasonMalformedToken)
	}
	return claims, nil
}
