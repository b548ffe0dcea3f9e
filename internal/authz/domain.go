package authz

import (
	"bytes"
	"encoding/json"
	"fmt"
	"time"
)

// AuthProvider identifies how an account authenticates.
type AuthProvider string

const (
	ProviderLocal    AuthProvider = "local"
	ProviderGoogle   AuthProvider = "google"
	ProviderFacebook AuthProvider = "facebook"
	ProviderApple    AuthProvider = "apple"
)

// Role is a named collection of permission keys plus activation state.
// Permission keys are not validated against the catalog here; a role may
// reference an unknown key without error.
type Role struct {
	ID          string    `json:"_id"`
	Name        string    `json:"name"`
	Permissions []string  `json:"permissions"`
	Description string    `json:"description"`
	IsActive    bool      `json:"isActive"`
	CreatedAt   time.Time `json:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt"`
}

// RoleRef is the role field of a user record. The backend ships it either as
// a fully populated role object or as a bare role identifier; RoleRef keeps
// the two shapes apart so callers must handle the unresolved case explicitly.
type RoleRef struct {
	role     *Role
	id       string
	resolved bool
}

// ResolvedRole builds a RoleRef carrying a populated role.
func ResolvedRole(role Role) RoleRef {
	return RoleRef{role: &role, id: role.ID, resolved: true}
}

// UnresolvedRole builds a RoleRef carrying only a role identifier.
func UnresolvedRole(id string) RoleRef {
	return RoleRef{id: id}
}

// Resolved returns the populated role when present.
func (r RoleRef) Resolved() (Role, bool) {
	if !r.resolved || r.role == nil {
		return Role{}, false
	}
	return *r.role, true
}

// ID returns the role identifier regardless of resolution state.
func (r RoleRef) ID() string {
	return r.id
}

// UnmarshalJSON accepts either a role object or a bare identifier string.
func (r *RoleRef) UnmarshalJSON(data []byte) error {
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		*r = RoleRef{}
		return nil
	}
	if trimmed[0] == '"' {
		var id string
		if err := json.Unmarshal(trimmed, &id); err != nil {
			return err
		}
		*r = UnresolvedRole(id)
		return nil
	}
	var role Role
	if err := json.Unmarshal(trimmed, &role); err != nil {
		return fmt.Errorf("authz: decode role: %w", err)
	}
	*r = ResolvedRole(role)
	return nil
}

// MarshalJSON writes back the same shape that was decoded.
func (r RoleRef) MarshalJSON() ([]byte, error) {
	if role, ok := r.Resolved(); ok {
		return json.Marshal(role)
	}
	return json.Marshal(r.id)
}

// User is the portal's view of an authenticated account. The session store
// owns the current user for the lifetime of the session; it is replaced
// wholesale on login and refresh and cleared wholesale on logout.
type User struct {
	ID              string       `json:"_id"`
	Name            string       `json:"name"`
	Email           string       `json:"email"`
	Phone           string       `json:"phone,omitempty"`
	IsActive        bool         `json:"isActive"`
	IsEmailVerified bool         `json:"isEmailVerified"`
	IsPhoneVerified bool         `json:"isPhoneVerified"`
	AuthProvider    AuthProvider `json:"authProvider"`
	GoogleID        string       `json:"googleId,omitempty"`
	FacebookID      string       `json:"facebookId,omitempty"`
	AppleID         string       `json:"appleId,omitempty"`
	PhotoURL        string       `json:"photoUrl,omitempty"`
	Role            RoleRef      `json:"role"`
	CreatedAt       *time.Time   `json:"createdAt,omitempty"`
	UpdatedAt       *time.Time   `json:"updatedAt,omitempty"`
}
