package service

import (
	"github.com/learnpath/lms-api/internal/core/domain"
	"github.com/learnpath/lms-api/internal/pkg/metrics"
)

// Authorize decides whether ac may use a route requiring one of required.
// An empty requirement always allows. A denial is a *domain.ForbiddenError
// listing the accepted roles.
func Authorize(ac *domain.AuthContext, required domain.RoleSet) error {
	if ac == nil {
		return domain.Unauthenticated(domain.ReasonMissingHeader)
	}
	if len(required) == 0 || required.Contains(ac.Role) {
		metrics.AuthorizationDecisionsTotal.WithLabelValues("allow").Inc()
		return nil
	}
	metrics.AuthorizationDecisionsTotal.WithLabelValues("deny").Inc()
	return &domain.ForbiddenError{Allowed: required.Roles()}
}
