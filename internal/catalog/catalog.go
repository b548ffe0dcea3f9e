package catalog

// Permission represents a single grantable capability known to the portal.
// MaskIndex mirrors the bit position the backend reserves for the key; the
// portal treats it as opaque metadata and never does bitwise arithmetic.
type Permission struct {
	Key         string
	MaskIndex   int
	Description string
	Category    string
}

// SystemAdminKey is the sentinel permission granting full administration.
const SystemAdminKey = "system.admin"

// Permissions is the full ordered catalog. Mask indexes are sparse: the gaps
// between categories are reserved by the backend and must not be filled.
var Permissions = []Permission{
	// User management (0-8)
	{Key: "users.read", MaskIndex: 0, Description: "View user information and list users", Category: "User Management"},
	{Key: "users.create", MaskIndex: 1, Description: "Create new users", Category: "User Management"},
	{Key: "users.update", MaskIndex: 2, Description: "Update existing user information", Category: "User Management"},
	{Key: "users.delete", MaskIndex: 3, Description: "Delete users from the system", Category: "User Management"},
	{Key: "users.manage", MaskIndex: 4, Description: "Full user management access", Category: "User Management"},
	{Key: "users.activate", MaskIndex: 5, Description: "Activate or deactivate user accounts", Category: "User Management"},
	{Key: "users.verify", MaskIndex: 6, Description: "Manually verify user email or phone", Category: "User Management"},
	{Key: "users.profile.read", MaskIndex: 7, Description: "View own profile information", Category: "User Management"},
	{Key: "users.profile.update", MaskIndex: 8, Description: "Update own profile information", Category: "User Management"},

	// Role management (20-26)
	{Key: "roles.read", MaskIndex: 20, Description: "View roles and their permissions", Category: "Role Management"},
	{Key: "roles.create", MaskIndex: 21, Description: "Create new roles", Category: "Role Management"},
	{Key: "roles.update", MaskIndex: 22, Description: "Update existing roles", Category: "Role Management"},
	{Key: "roles.delete", MaskIndex: 23, Description: "Delete roles from the system", Category: "Role Management"},
	{Key: "roles.manage", MaskIndex: 24, Description: "Full role management access", Category: "Role Management"},
	{Key: "roles.permissions.update", MaskIndex: 25, Description: "Update permissions for a role", Category: "Role Management"},
	{Key: "roles.assign", MaskIndex: 26, Description: "Assign roles to users", Category: "Role Management"},

	// Authentication (40-49)
	{Key: "auth.register", MaskIndex: 40, Description: "Register new user accounts", Category: "Authentication"},
	{Key: "auth.login", MaskIndex: 41, Description: "Login to the system", Category: "Authentication"},
	{Key: "auth.logout", MaskIndex: 42, Description: "Logout from the system", Category: "Authentication"},
	{Key: "auth.refresh.token", MaskIndex: 43, Description: "Refresh authentication tokens", Category: "Authentication"},
	{Key: "auth.password.reset", MaskIndex: 44, Description: "Reset user passwords", Category: "Authentication"},
	{Key: "auth.password.change", MaskIndex: 45, Description: "Change own password", Category: "Authentication"},
	{Key: "auth.otp.verify", MaskIndex: 46, Description: "Verify OTP codes", Category: "Authentication"},
	{Key: "auth.otp.resend", MaskIndex: 47, Description: "Resend OTP codes", Category: "Authentication"},
	{Key: "auth.google.login", MaskIndex: 48, Description: "Login with Google account", Category: "Authentication"},
	{Key: "auth.social.login", MaskIndex: 49, Description: "Login with any social provider", Category: "Authentication"},

	// System (100-105)
	{Key: "system.health.check", MaskIndex: 100, Description: "Check system health status", Category: "System"},
	{Key: "system.settings.read", MaskIndex: 101, Description: "View system settings", Category: "System"},
	{Key: "system.settings.update", MaskIndex: 102, Description: "Update system settings", Category: "System"},
	{Key: "system.logs.read", MaskIndex: 103, Description: "View system logs", Category: "System"},
	{Key: "system.cleanup.run", MaskIndex: 104, Description: "Manually run cleanup jobs", Category: "System"},
	{Key: SystemAdminKey, MaskIndex: 105, Description: "Full system administration access", Category: "System"},
}

var byKey map[string]Permission

func init() {
	byKey = make(map[string]Permission, len(Permissions))
	masks := make(map[int]string, len(Permissions))
	for _, p := range Permissions {
		if _, dup := byKey[p.Key]; dup {
			panic("catalog: duplicate permission key " + p.Key)
		}
		if prev, dup := masks[p.MaskIndex]; dup {
			panic("catalog: mask index of " + p.Key + " collides with " + prev)
		}
		byKey[p.Key] = p
		masks[p.MaskIndex] = p.Key
	}
}

// All returns the catalog in declaration order.
func All() []Permission {
	out := make([]Permission, len(Permissions))
	copy(out, Permissions)
	return out
}

// ByKey looks up a permission by its key.
func ByKey(key string) (Permission, bool) {
	p, ok := byKey[key]
	return p, ok
}

// Keys returns every permission key in catalog order.
func Keys() []string {
	keys := make([]string, 0, len(Permissions))
	for _, p := range Permissions {
		keys = append(keys, p.Key)
	}
	return keys
}

// Categories returns distinct category names in catalog order.
func Categories() []string {
	seen := make(map[string]struct{}, 4)
	var out []string
	for _, p := range Permissions {
		if _, ok := seen[p.Category]; ok {
			continue
		}
		seen[p.Category] = struct{}{}
		out = append(out, p.Category)
	}
	return out
}

// ByCategory returns the permissions belonging to category, in catalog
// order. An unknown category yields an empty slice, not an error.
func ByCategory(category string) []Permission {
	var out []Permission
	for _, p := range Permissions {
		if p.Category == category {
			out = append(out, p)
		}
	}
	return out
}

// DefaultUserPermissions is the baseline grant for ordinary accounts.
var DefaultUserPermissions = []string{
	"users.profile.read",
	"users.profile.update",
	"auth.login",
	"auth.logout",
	"auth.password.change",
	"auth.refresh.token",
}

// DefaultAdminPermissions grants the entire catalog.
func DefaultAdminPermissions() []string {
	return Keys()
}
