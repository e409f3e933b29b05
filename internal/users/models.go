package users

import (
	"github.com/google/uuid"
)

// Role is the role claim issued by the external auth provider
type Role string

const (
	RoleUser  Role = "user"
	RoleAdmin Role = "admin"
)

func IsValidRole(role string) bool {
	switch role {
	case string(RoleUser), string(RoleAdmin):
		return true
	default:
		return false
	}
}

// Identity is the verified caller of a request
type Identity struct {
	UserID uuid.UUID
	Email  string
	Role   Role
}

// IsAdmin reports whether the caller carries the admin role
func (i Identity) IsAdmin() bool {
	return i.Role == RoleAdmin
}

// HolderKey scopes a client chosen session id to the caller, so one account can never
// act on holds made under another
func (i Identity) HolderKey(session string) string {
	return i.UserID.String() + ":" + session
}

// CanAccess reports whether the caller may read a resource owned by ownerID
func (i Identity) CanAccess(ownerID uuid.UUID) bool {
	return i.IsAdmin() || i.UserID == ownerID
}
