package ports

import (
	"context"

	"github.com/learnpath/lms-api/internal/core/domain"
)

// RegisterInput carries a self-service sign-up.
type RegisterInput struct {
	Email    string
	Password string
	Name     string
	IP       string
}

// LoginInput carries the credentials submitted at login.
type LoginInput struct {
	Email    string
	Password string
	IP       string
}

// AuthService covers the unauthenticated entry points and token exchange.
type AuthService interface {
	Register(ctx context.Context, in RegisterInput) (*domain.User, error)
	Login(ctx context.Context, in LoginInput) (*domain.LoginResult, error)
	IssueShortLived(ctx context.Context, ac *domain.AuthContext) (*domain.IssuedToken, error)
}

// IdentityResolver turns an Authorization header value into an AuthContext.
type IdentityResolver interface {
	Resolve(ctx context.Context, authorization string) (*domain.AuthContext, error)
}
