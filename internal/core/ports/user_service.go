package ports

import (
	"context"

	"github.com/learnpath/lms-api/internal/core/domain"
)

// CreateUserInput carries an administrator-provisioned account.
type CreateUserInput struct {
	Email    string
	Password string
	Name     string
	Role     string
	ActorID  string
}

// UserService covers account administration.
type UserService interface {
	CreateUser(ctx context.Context, in CreateUserInput) (*domain.User, error)
	GetUser(ctx context.Context, id string) (*domain.User, error)
	ChangeRole(ctx context.Context, actorID, id, role string) (*domain.User, error)
	DeleteUser(ctx context.Context, actorID, id string) error
}
