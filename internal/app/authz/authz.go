package authz

import (
	"context"
	"errors"

	domainuser "stayfinder/internal/domain/user"
)

var (
	ErrUnauthenticated = errors.New("authz: authentication required")
	ErrForbidden       = errors.New("authz: insufficient role")
)

// Actor is the verified caller of a command or query.
type Actor struct {
	ID    string
	Roles []domainuser.Role
}

func (a Actor) Authenticated() bool {
	return a.ID != ""
}

func (a Actor) HasRole(role domainuser.Role) bool {
	for _, r := range a.Roles {
		if r == role {
			return true
		}
	}
	return false
}

func (a Actor) IsAdmin() bool {
	return a.HasRole(domainuser.RoleAdmin)
}

// Restricted messages name the caller and the roles allowed to send them.
// Admins pass every role check.
type Restricted interface {
	Caller() Actor
	AllowedRoles() []domainuser.Role
}

// RoleAuthorizer checks Restricted messages and lets everything else through.
type RoleAuthorizer struct{}

func (RoleAuthorizer) Authorize(ctx context.Context, message any) error {
	restricted, ok := message.(Restricted)
	if !ok {
		return nil
	}
	actor := restricted.Caller()
	if !actor.Authenticated() {
		return ErrUnauthenticated
	}
	allowed := restricted.AllowedRoles()
	if len(allowed) == 0 || actor.IsAdmin() {
		return nil
	}
	for _, role := range allowed {
		if actor.HasRole(role) {
			return nil
		}
	}
	return ErrForbidden
}
