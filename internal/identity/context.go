package identity

import (
	"context"
	"strings"
)

// Role is the application role of an authenticated user.
type Role string

const (
	RoleCitizen Role = "citizen"
	RoleOfficer Role = "officer"
	RoleAdmin   Role = "admin"
)

// ParseRole maps a claim value to a Role, treating anything unknown as citizen.
func ParseRole(raw string) Role {
	switch Role(strings.ToLower(strings.TrimSpace(raw))) {
	case RoleOfficer:
		return RoleOfficer
	case RoleAdmin:
		return RoleAdmin
	default:
		return RoleCitizen
	}
}

// IsStaff reports whether the role can see and update every grievance.
func (r Role) IsStaff() bool {
	return r == RoleOfficer || r == RoleAdmin
}

// Principal is the caller resolved from a bearer token.
type Principal struct {
	UserID string
	Email  string
	Role   Role
}

type ctxKey string

const principalKey ctxKey = "grievai.principal"

// WithPrincipal stores the principal in context.
func WithPrincipal(ctx context.Context, p Principal) context.Context {
	return context.WithValue(ctx, principalKey, p)
}

// PrincipalFromContext extracts the principal if present.
func PrincipalFromContext(ctx context.Context) (Principal, bool) {
	p, ok := ctx.Value(principalKey).(Principal)
	return p, ok && p.UserID != ""
}
