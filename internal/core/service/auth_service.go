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

// dummyPassword is hashed at construction with the configured algorithm and
// compared against when the submitted email is unknown, so both failure paths
// cost one comparison of the kind new accounts are stored with.
const dummyPassword = "lms-dummy-password-never-valid"

// AuthService implements registration, login and token exchange.
type AuthService struct {
	users  ports.UserRepository
	hasher *PasswordHasher
	tokens *TokenService
	events ports.AuthEventPublisher
	log    zerolog.Logger
	now    func() time.Time

	dummyHash string
}

// NewAuthService returns an AuthService. events may be nil.
func NewAuthService(
	users ports.UserRepository,
	hasher *PasswordHasher,
	tokens *TokenService,
	events ports.AuthEventPublisher,
	log zerolog.Logger,
) *AuthService {
	s := &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		events: events,
		log:    log,
		now:    time.Now,
	}
	hash, err := hasher.Hash(dummyPassword)
	if err != nil {
		log.Warn().Err(err).Msg("could not prepare dummy password hash")
	}
	s.dummyHash = hash
	return s
}

// Register creates a self-service account. New accounts are always students.
func (s *AuthService) Register(ctx context.Context, in ports.RegisterInput) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("register: %w: email and password are required", domain.ErrInvalidInput)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	now := s.now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Role:         domain.RoleStudent,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("register: %w", err)
	}

	s.publish(domain.AuthEvent{
		Type:    domain.EventUserRegistered,
		Subject: created.ID,
		Role:    created.Role,
		IP:      in.IP,
	})
	return created, nil
}

// Login verifies credentials and issues a login-policy token. Unknown emails
// and wrong passwords fail identically.
func (s *AuthService) Login(ctx context.Context, in ports.LoginInput) (*domain.LoginResult, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		metrics.LoginAttemptsTotal.WithLabelValues("invalid_input").Inc()
		return nil, fmt.Errorf("login: %w: email and password are required", domain.ErrInvalidInput)
	}

	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if !errors.Is(err, domain.ErrUserNotFound) {
			metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
			return nil, fmt.Errorf("login: %w", err)
		}
		_, _ = s.hasher.Verify(in.Password, s.dummyHash)
		return nil, s.rejectLogin(email, in.IP)
	}

	ok, err := s.hasher.Verify(in.Password, user.PasswordHash)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		metrics.DataIntegrityFaultsTotal.Inc()
		s.log.Error().Err(err).Str("user_id", user.ID).Msg("stored password hash is unreadable")
		return nil, fmt.Errorf("login: %w", err)
	}
	if !ok {
		return nil, s.rejectLogin(user.ID, in.IP)
	}

	token, err := s.tokens.Issue(user, domain.PolicyLogin)
	if err != nil {
		metrics.LoginAttemptsTotal.WithLabelValues("error").Inc()
		return nil, fmt.Errorf("login: %w", err)
	}

	metrics.LoginAttemptsTotal.WithLabelValues("success").Inc()
	s.publish(domain.AuthEvent{
		Type:    domain.EventLoginSucceeded,
		Subject: user.ID,
		Role:    user.Role,
		IP:      in.IP,
	})
	return &domain.LoginResult{Token: *token, User: user}, nil
}

// IssueShortLived signs a short-lived token for an already authenticated caller.
func (s *AuthService) IssueShortLived(_ context.Context, ac *domain.AuthContext) (*domain.IssuedToken, error) {
	if ac == nil {
		return nil, domain.Unauthenticated(domain.ReasonMissingHeader)
	}
	token, err := s.tokens.Issue(&ac.Identity, domain.PolicyShortLived)
	if err != nil {
		return nil, fmt.Errorf("issue short-lived token: %w", err)
	}
	return token, nil
}

func (s *AuthService) rejectLogin(subject, ip string) error {
	metrics.LoginAttemptsTotal.WithLabelValues("unauthenticated").Inc()
	s.publish(domain.AuthEvent{
		Type:    domain.EventLoginFailed,
		Subject: subject,
		Reason:  domain.ReasonBadCredentials,
		IP:      ip,
	})
	return domain.Unauthenticated(domain.ReasonBadCredentials)
}

func (s *AuthService) publish(event domain.AuthEvent) {
	if s.events == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	s.events.Publish(event)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}
