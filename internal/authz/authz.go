// Package authz holds the portal's access decision functions. Every
// predicate is pure and total: an absent user, an unresolved role or a
// missing grant is an ordinary false, never an error, so gating code does
// not need failure paths.
package authz

import "github.com/meridian-hq/meridian-portal/internal/catalog"

// HasPermission reports whether the user's resolved role grants key. A nil
// user or an unresolved role denies. Matching is exact string membership:
// "roles.manage" does not imply "roles.read".
func HasPermission(user *User, key string) bool {
	if user == nil {
		return false
	}
	role, ok := user.Role.Resolved()
	if !ok {
		return false
	}
	for _, p := range role.Permissions {
		if p == key {
			return true
		}
	}
	return false
}

// HasAnyPermission reports whether at least one key is granted. An empty
// key set denies.
func HasAnyPermission(user *User, keys []string) bool {
	for _, key := range keys {
		if HasPermission(user, key) {
			return true
		}
	}
	return false
}

// HasAllPermissions reports whether every key is granted. An empty key set
// is vacuously true; callers wanting stricter semantics must guard against
// passing one.
func HasAllPermissions(user *User, keys []string) bool {
	for _, key := range keys {
		if !HasPermission(user, key) {
			return false
		}
	}
	return true
}

// HasPortalAccess is the coarse account gate: the user must exist and be
// active. It is deliberately independent of any permission.
func HasPortalAccess(user *User) bool {
	return user != nil && user.IsActive
}

// IsSystemAdmin reports whether perms contains the system.admin sentinel.
// It takes a raw key list so it composes with any permission source.
func IsSystemAdmin(perms []string) bool {
	for _, p := range perms {
		if p == catalog.SystemAdminKey {
			return true
		}
	}
	return false
}

// UserIsSystemAdmin applies IsSystemAdmin to the user's resolved role.
func UserIsSystemAdmin(user *User) bool {
	if user == nil {
		return false
	}
	role, ok := user.Role.Resolved()
	if !ok {
		return false
	}
	return IsSystemAdmin(role.Permissions)
}
