package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/learnpath/lms-api/internal/core/domain"
	"github.com/learnpath/lms-api/internal/core/ports"
	"github.com/learnpath/lms-api/internal/core/service"
)

// RequireRoles admits requests whose authenticated role is one of roles. With
// no roles every authenticated request is admitted. It must run after
// Authenticate.
func RequireRoles(roles ...domain.Role) echo.MiddlewareFunc {
	required := domain.NewRoleSet(roles...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			ac, ok := domain.AuthContextFrom(c.Request().Context())
			if !ok {
				return domain.Unauthenticated(domain.ReasonMissingHeader)
			}
			if err := service.Authorize(ac, required); err != nil {
				return err
			}
			return next(c)
		}
	}
}

// Gate authenticates the request and then checks its role against roles.
func Gate(resolver ports.IdentityResolver, roles ...domain.Role) echo.MiddlewareFunc {
	authenticate := Authenticate(resolver)
	authorize := RequireRoles(roles...)

	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return authenticate(authorize(next))
	}
}
