package catalog

import (
	"strings"

	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// actionVerbs are the trailing segments FormatKey moves to the front of a
// two-segment key.
var actionVerbs = map[string]struct{}{
	"read": {}, "create": {}, "update": {}, "delete": {},
	"manage": {}, "assign": {}, "activate": {}, "verify": {},
	"register": {}, "login": {}, "logout": {}, "reset": {},
	"change": {}, "resend": {}, "check": {}, "run": {},
}

var titler = cases.Title(language.English)

// FormatKey turns a dotted permission key into a display label. Two-segment
// keys ending in a recognized action verb are reordered verb-first
// ("roles.read" becomes "Read Roles"); everything else keeps its segment
// order with each segment capitalized. Unrecognized input degrades to the
// plain capitalized join and never fails.
func FormatKey(key string) string {
	if key == "" {
		return ""
	}

	parts := strings.Split(key, ".")
	last := strings.ToLower(parts[len(parts)-1])
	_, isAction := actionVerbs[last]

	if isAction && len(parts) == 2 {
		parts = []string{parts[1], parts[0]}
	}

	for i, part := range parts {
		parts[i] = titler.String(strings.ToLower(part))
	}
	return strings.Join(parts, " ")
}

// FormatKeyWithIcon prefixes the formatted label with an emoji hinting at
// the action class.
func FormatKeyWithIcon(key string) string {
	formatted := FormatKey(key)
	lower := strings.ToLower(key)

	switch {
	case strings.Contains(lower, "read"), strings.Contains(lower, "check"):
		return "👁️ " + formatted
	case strings.Contains(lower, "create"), strings.Contains(lower, "register"):
		return "➕ " + formatted
	case strings.Contains(lower, "update"), strings.Contains(lower, "change"):
		return "✏️ " + formatted
	case strings.Contains(lower, "delete"):
		return "🗑️ " + formatted
	case strings.Contains(lower, "manage"), strings.Contains(lower, "admin"):
		return "⚙️ " + formatted
	case strings.Contains(lower, "login"), strings.Contains(lower, "logout"):
		return "🔐 " + formatted
	case strings.Contains(lower, "verify"), strings.Contains(lower, "activate"):
		return "✅ " + formatted
	}
	return formatted
}
