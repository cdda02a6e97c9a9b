// Package memory holds an in-process credential store for local development
// and tests. Data is lost on restart.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/learnpath/lms-api/internal/core/domain"
)

// Store implements ports.UserRepository and ports.AuthEventRepository.
type Store struct {
	mu      sync.RWMutex
	users   map[string]*domain.User
	byEmail map[string]string
	events  []domain.AuthEvent
	maxLen  int
}

// NewStore returns an empty Store keeping at most maxEvents audit events.
func NewStore(maxEvents int) *Store {
	if maxEvents <= 0 {
		maxEvents = 10000
	}
	return &Store{
		users:   make(map[string]*domain.User),
		byEmail: make(map[string]string),
		maxLen:  maxEvents,
	}
}

func (s *Store) FindByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	id, ok := s.byEmail[email]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return clone(s.users[id]), nil
}

func (s *Store) FindByID(_ context.Context, id string) (*domain.User, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	return clone(u), nil
}

func (s *Store) Create(_ context.Context, user *domain.User) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.byEmail[user.Email]; exists {
		return nil, domain.ErrUserExists
	}
	u := clone(user)
	if u.ID == "" {
		u.ID = uuid.NewString()
	}
	if u.CreatedAt.IsZero() {
		u.CreatedAt = time.Now().UTC()
		u.UpdatedAt = u.CreatedAt
	}
	s.users[u.ID] = u
	s.byEmail[u.Email] = u.ID
	return clone(u), nil
}

func (s *Store) UpdateRole(_ context.Context, id string, role domain.Role) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, domain.ErrUserNotFound
	}
	u.Role = role
	u.UpdatedAt = time.Now().UTC()
	return clone(u), nil
}

func (s *Store) Delete(_ context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return domain.ErrUserNotFound
	}
	delete(s.byEmail, u.Email)
	delete(s.users, id)
	return nil
}

// InsertEvent appends event, dropping the oldest tenth once the log is full.
func (s *Store) InsertEvent(_ context.Context, event *domain.AuthEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if len(s.events) >= s.maxLen {
		s.events = s.events[s.maxLen/10+1:]
	}
	s.events = append(s.events, *event)
	return nil
}

// Events returns a copy of the stored audit events, oldest first.
func (s *Store) Events() []domain.AuthEvent {
	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.AuthEvent, len(s.events))
	copy(out, s.events)
	return out
}

// Ping always succeeds.
func (s *Store) Ping(context.Context) error { return nil }

func clone(u *domain.User) *domain.User {
	c := *u
	return &c
}
