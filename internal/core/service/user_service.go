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
)

// UserService implements account administration. Role changes and deletions
// evict the account from the identity cache so they apply to the next request.
type UserService struct {
	users  ports.UserRepository
	hasher *PasswordHasher
	cache  ports.IdentityCache
	events ports.AuthEventPublisher
	log    zerolog.Logger
	now    func() time.Time
}

// NewUserService returns a UserService. cache and events may be nil.
func NewUserService(
	users ports.UserRepository,
	hasher *PasswordHasher,
	cache ports.IdentityCache,
	events ports.AuthEventPublisher,
	log zerolog.Logger,
) *UserService {
	return &UserService{
		users:  users,
		hasher: hasher,
		cache:  cache,
		events: events,
		log:    log,
		now:    time.Now,
	}
}

func (s *UserService) CreateUser(ctx context.Context, in ports.CreateUserInput) (*domain.User, error) {
	email := normalizeEmail(in.Email)
	if email == "" || in.Password == "" {
		return nil, fmt.Errorf("create user: %w: email and password are required", domain.ErrInvalidInput)
	}
	role, ok := domain.ParseRole(in.Role)
	if !ok {
		return nil, fmt.Errorf("create user: %w: unknown role %q", domain.ErrInvalidInput, in.Role)
	}

	hash, err := s.hasher.Hash(in.Password)
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	now := s.now().UTC()
	created, err := s.users.Create(ctx, &domain.User{
		Email:        email,
		Name:         strings.TrimSpace(in.Name),
		PasswordHash: hash,
		Role:         role,
		CreatedAt:    now,
		UpdatedAt:    now,
	})
	if err != nil {
		return nil, fmt.Errorf("create user: %w", err)
	}

	s.publish(domain.AuthEvent{
		Type:    domain.EventUserCreated,
		Subject: created.ID,
		ActorID: in.ActorID,
		Role:    created.Role,
	})
	return created, nil
}

func (s *UserService) GetUser(ctx context.Context, id string) (*domain.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("get user: %w: id is required", domain.ErrInvalidInput)
	}
	user, err := s.users.FindByID(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("get user: %w", err)
	}
	return user, nil
}

func (s *UserService) ChangeRole(ctx context.Context, actorID, id, role string) (*domain.User, error) {
	if strings.TrimSpace(id) == "" {
		return nil, fmt.Errorf("change role: %w: id is required", domain.ErrInvalidInput)
	}
	r, ok := domain.ParseRole(role)
	if !ok {
		return nil, fmt.Errorf("change role: %w: unknown role %q", domain.ErrInvalidInput, role)
	}

	updated, err := s.users.UpdateRole(ctx, id, r)
	if err != nil {
		return nil, fmt.Errorf("change role: %w", err)
	}
	s.invalidate(ctx, id)

	s.publish(domain.AuthEvent{
		Type:    domain.EventRoleChanged,
		Subject: id,
		ActorID: actorID,
		Role:    r,
	})
	return updated, nil
}

func (s *UserService) DeleteUser(ctx context.Context, actorID, id string) error {
	if strings.TrimSpace(id) == "" {
		return fmt.Errorf("delete user: %w: id is required", domain.ErrInvalidInput)
	}
	if id == actorID {
		return fmt.Errorf("delete user: %w: administrators cannot delete their own account", domain.ErrInvalidInput)
	}

	if err := s.users.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	s.invalidate(ctx, id)

	s.publish(domain.AuthEvent{
		Type:    domain.EventUserDeleted,
		Subject: id,
		ActorID: actorID,
	})
	return nil
}

// EnsureSeedAdmin creates an administrator with email and password unless the
// email is already registered. It reports whether an account was created.
// Empty credentials disable seeding.
func (s *UserService) EnsureSeedAdmin(ctx context.Context, email, password string) (bool, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return false, nil
	}

	_, err := s.users.FindByEmail(ctx, email)
	switch {
	case err == nil:
		return false, nil
	case !errors.Is(err, domain.ErrUserNotFound):
		return false, fmt.Errorf("seed admin: %w", err)
	}

	_, err = s.CreateUser(ctx, ports.CreateUserInput{
		Email:    email,
		Password: password,
		Name:     "Administrator",
		Role:     string(domain.RoleAdmin),
	})
	if errors.Is(err, domain.ErrUserExists) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *UserService) invalidate(ctx context.Context, id string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Invalidate(ctx, id); err != nil {
		s.log.Error().Err(err).Str("user_id", id).Msg("identity cache invalidation failed")
	}
}

func (s *UserService) publish(event domain.AuthEvent) {
	if s.events == nil {
		return
	}
	if event.Timestamp.IsZero() {
		event.Timestamp = s.now().UTC()
	}
	s.events.Publish(event)
}
