package ports

import (
	"context"
	"time"

	"github.com/learnpath/lms-api/internal/core/domain"
)

// IdentityReader is the read-only view of the credential store used by the
// authentication core. Both lookups return domain.ErrUserNotFound when absent.
type IdentityReader interface {
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByID(ctx context.Context, id string) (*domain.User, error)
}

// UserRepository adds the writes needed by registration and account administration.
type UserRepository interface {
	IdentityReader
	Create(ctx context.Context, user *domain.User) (*domain.User, error)
	UpdateRole(ctx context.Context, id string, role domain.Role) (*domain.User, error)
	Delete(ctx context.Context, id string) error
}

// IdentityCache holds recently resolved identities keyed by user id.
//
// Set must not store user when its id was invalidated at or after readAt, the
// moment the caller started reading user from the store. Invalidate records
// the invalidation time so a read that raced an admin change is not cached.
type IdentityCache interface {
	Get(ctx context.Context, id string) (*domain.User, bool, error)
	Set(ctx context.Context, user *domain.User, readAt time.Time) error
	Invalidate(ctx context.Context, id string) error
}
