package middleware

import (
	"github.com/labstack/echo/v4"

	"github.com/learnpath/lms-api/internal/core/domain"
	"github.com/learnpath/lms-api/internal/core/ports"
)

// ContextKeyUserID is the echo context key holding the authenticated user id,
// read by the request logger.
const ContextKeyUserID = "user_id"

// Authenticate resolves the bearer token on every request and attaches the
// resulting AuthContext to the request context. Failures are returned to the
// HTTP error handler and the next handler is not called.
func Authenticate(resolver ports.IdentityResolver) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			req := c.Request()
			ac, err := resolver.Resolve(req.Context(), req.Header.Get(echo.HeaderAuthorization))
			if err != nil {
				return err
			}

			c.SetRequest(req.WithContext(domain.WithAuthContext(req.Context(), ac)))
			c.Set(ContextKeyUserID, ac.Identity.ID)
			return next(c)
		}
	}
}
