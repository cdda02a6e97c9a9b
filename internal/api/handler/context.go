package handler

import (
	"github.com/labstack/echo/v4"

	"github.com/learnpath/lms-api/internal/core/domain"
)

// authContext returns the identity attached by the Authenticate middleware.
// Its absence means the route was registered without the gate.
func authContext(c echo.Context) (*domain.AuthContext, error) {
	ac, ok := domain.AuthContextFrom(c.Request().Context())
	if !ok {
		return nil, domain.Unauthenticated(domain.ReasonMissingHeader)
	}
	return ac, nil
}

// bindAndValidate decodes the request body into req and runs the validator.
func bindAndValidate(c echo.Context, req any) error {
	if err := c.Bind(req); err != nil {
		return invalidInput("invalid payload")
	}
	if err := c.Validate(req); err != nil {
		return invalidInput(err.Error())
	}
	return nil
}
