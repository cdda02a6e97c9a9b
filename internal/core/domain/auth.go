package domain

import (
	"context"
	"sort"
	"time"
)

// RoleSet is the set of roles a route accepts. An empty set places no
// restriction on the route.
type RoleSet map[Role]struct{}

// NewRoleSet builds a RoleSet from roles.
func NewRoleSet(roles ...Role) RoleSet {
	set := make(RoleSet, len(roles))
	for _, r := range roles {
		set[r] = struct{}{}
	}
	return set
}

// Contains reports whether r is accepted.
func (s RoleSet) Contains(r Role) bool {
	_, ok := s[r]
	return ok
}

// Roles returns the members in a stable order.
func (s RoleSet) Roles() []Role {
	out := make([]Role, 0, len(s))
	for r := range s {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// AuthContext is the identity attached to a single authenticated request.
// Identity is always the record fetched while resolving the request, never the
// token's copy of it.
type AuthContext struct {
	Identity User
	Role     Role
}

// TokenPolicy selects the lifetime applied when issuing a token.
type TokenPolicy string

const (
	// PolicyLogin is used by the primary login flow.
	PolicyLogin TokenPolicy = "login"
	// PolicyShortLived is used when an authenticated caller asks for a
	// short-lived access token.
	PolicyShortLived TokenPolicy = "short_lived"
)

// IssuedToken is a freshly signed bearer token.
type IssuedToken struct {
	Token     string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// LoginResult is returned by a successful login.
type LoginResult struct {
	Token IssuedToken
	User  *User
}

type authContextKey struct{}

// WithAuthContext returns a copy of ctx carrying ac.
func WithAuthContext(ctx context.Context, ac *AuthContext) context.Context {
	return context.WithValue(ctx, authContextKey{}, ac)
}

// AuthContextFrom returns the AuthContext attached to ctx, if any.
func AuthContextFrom(ctx context.Context) (*AuthContext, bool) {
	ac, ok := ctx.Value(authContextKey{}).(*AuthContext)
	return ac, ok && ac != nil
}
