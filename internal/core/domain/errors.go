package domain

import (
	"errors"
	"strings"
)

var (
	ErrInvalidInput    = errors.New("invalid input")
	ErrUnauthenticated = errors.New("unauthenticated")
	ErrForbidden       = errors.New("insufficient role")
	// ErrDataIntegrity marks stored data the service cannot interpret, such as a
	// malformed password hash. It is never retried.
	ErrDataIntegrity = errors.New("data integrity fault")

	ErrUserNotFound = errors.New("user not found")
	ErrUserExists   = errors.New("user already exists")
)

// AuthFailureReason names the check that rejected a request. It is recorded in
// logs and metrics only; clients always see a plain "unauthenticated".
type AuthFailureReason string

const (
	ReasonMissingHeader   AuthFailureReason = "missing_header"
	ReasonBadScheme       AuthFailureReason = "bad_scheme"
	ReasonMalformedToken  AuthFailureReason = "malformed_token"
	ReasonBadSignature    AuthFailureReason = "signature_invalid"
	ReasonTokenExpired    AuthFailureReason = "token_expired"
	ReasonSubjectNotFound AuthFailureReason = "subject_not_found"
	ReasonBadCredentials  AuthFailureReason = "bad_credentials"
)

// UnauthenticatedError is returned by every authentication failure.
type UnauthenticatedError struct {
	Reason AuthFailureReason
}

func (e *UnauthenticatedError) Error() string {
	return "unauthenticated: " + string(e.Reason)
}

func (e *UnauthenticatedError) Is(target error) bool {
	return target == ErrUnauthenticated
}

// Unauthenticated builds an UnauthenticatedError for reason.
func Unauthenticated(reason AuthFailureReason) error {
	return &UnauthenticatedError{Reason: reason}
}

// ForbiddenError carries the roles a route would have accepted.
type ForbiddenError struct {
	Allowed []Role
}

func (e *ForbiddenError) Error() string {
	names := make([]string, len(e.Allowed))
	for i, r := range e.Allowed {
		names[i] = string(r)
	}
	return "insufficient role (allowed: " + strings.Join(names, ", ") + ")"
}

func (e *ForbiddenError) Is(target error) bool {
	return target == ErrForbidden
}
