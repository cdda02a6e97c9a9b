package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/learnpath/lms-api/internal/core/domain"
	"github.com/learnpath/lms-api/internal/core/ports"
	"github.com/learnpath/lms-api/internal/pkg/metrics"
)

const bearerScheme = "bearer"

// IdentityResolver validates bearer tokens and re-reads the identity they name.
type IdentityResolver struct {
	tokens *TokenService
	users  ports.IdentityReader
	cache  ports.IdentityCache
	log    zerolog.Logger
	now    func() time.Time
}

// NewIdentityResolver returns a resolver. cache may be nil, in which case every
// request reads the credential store.
func NewIdentityResolver(tokens *TokenService, users ports.IdentityReader, cache ports.IdentityCache, log zerolog.Logger) *IdentityResolver {
	return &IdentityResolver{tokens: tokens, users: users, cache: cache, log: log, now: time.Now}
}

// Resolve turns the raw Authorization header value into an AuthContext.
// Every authentication failure is a *domain.UnauthenticatedError; store
// failures are returned wrapped as-is.
func (r *IdentityResolver) Resolve(ctx context.Context, authorization string) (*domain.AuthContext, error) {
	ac, err := r.resolve(ctx, authorization)
	if err != nil {
		var ue *domain.UnauthenticatedError
		if errors.As(err, &ue) {
			metrics.TokenVerificationsTotal.WithLabelValues(string(ue.Reason)).Inc()
			r.log.Debug().Str("reason", string(ue.Reason)).Msg("bearer token rejected")
		}
		return nil, err
	}
	metrics.TokenVerificationsTotal.WithLabelValues("ok").Inc()
	return ac, nil
}

func (r *IdentityResolver) resolve(ctx context.Context, authorization string) (*domain.AuthContext, error) {
	authorization = strings.TrimSpace(authorization)
	if authorization == "" {
		return nil, domain.Unauthenticated(domain.ReasonMissingHeader)
	}

	scheme, raw, ok := strings.Cut(authorization, " ")
	raw = strings.TrimSpace(raw)
	if !ok || !strings.EqualFold(scheme, bearerScheme) || raw == "" {
		return nil, domain.Unauthenticated(domain.ReasonBadScheme)
	}

	claims, err := r.tokens.Parse(raw)
	if err != nil {
		return nil, err
	}

	user, err := r.lookup(ctx, claims.Subject)
	if err != nil {
		if errors.Is(err, domain.ErrUserNotFound) {
			return nil, domain.Unauthenticated(domain.ReasonSubjectNotFound)
		}
		return nil, fmt.Errorf("resolve identity: %w", err)
	}

	return &domain.AuthContext{Identity: *user, Role: user.Role}, nil
}

// lookup fetches the subject from the cache when one is configured, falling
// back to the credential store. Cache failures degrade to a store read.
func (r *IdentityResolver) lookup(ctx context.Context, id string) (*domain.User, error) {
	if r.cache == nil {
		return r.users.FindByID(ctx, id)
	}

	user, hit, err := r.cache.Get(ctx, id)
	switch {
	case err != nil:
		metrics.IdentityCacheTotal.WithLabelValues("error").Inc()
		r.log.Warn().Err(err).Str("user_id", id).Msg("identity cache read failed, using store")
	case hit:
		metrics.IdentityCacheTotal.WithLabelValues("hit").Inc()
		return user, nil
	default:
		metrics.IdentityCacheTotal.WithLabelValues("miss").Inc()
	}

	readAt := r.now()
	user, err = r.users.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if setErr := r.cache.Set(ctx, user, readAt); setErr != nil {
		r.log.Warn().Err(setErr).Str("user_id", id).Msg("identity cache write failed")
	}
	return user, nil
}
