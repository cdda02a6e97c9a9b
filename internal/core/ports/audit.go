package ports

import (
	"context"

	"github.com/learnpath/lms-api/internal/core/domain"
)

// AuthEventPublisher hands audit events to asynchronous processing. Publish
// must not block the caller.
type AuthEventPublisher interface {
	Publish(event domain.AuthEvent)
}

// AuthEventRepository persists audit events.
type AuthEventRepository interface {
	InsertEvent(ctx context.Context, event *domain.AuthEvent) error
}

// AuditService processes a single audit event.
type AuditService interface {
	Record(ctx context.Context, event domain.AuthEvent) error
}
