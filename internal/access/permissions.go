// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package access

// Actions checked against account resources.
const (
	ActionList     = "list"
	ActionRead     = "read"
	ActionDelete   = "delete"
	ActionUnlock   = "unlock"
	ActionActivate = "activate"
)

// ResourceAccount prefixes account resources, e.g. "account:42".
const ResourceAccount = "account:"

// Permission groups define reusable sets of permissions.
// Roles compose these groups rather than inheriting.

var userPowers = []string{
	"read:account:$self",
}

var adminPowers = []string{
	"list:account:*",
	"read:account:*",
	"delete:account:*",
	"unlock:account:*",
	"activate:account:*",
}

// DefaultAdminRole is the role that manages the directory by default.
const DefaultAdminRole = "admin"

// DefaultRoles returns the default role definitions.
func DefaultRoles() map[string][]string {
	return RolesWithAdmins(DefaultAdminRole)
}

// RolesWithAdmins returns the user role plus one administrative role per
// name in admins.
func RolesWithAdmins(admins ...string) map[string][]string {
	roles := map[string][]string{
		"user": userPowers,
	}
	for _, name := range admins {
		roles[name] = compose(userPowers, adminPowers)
	}
	return roles
}

// compose merges multiple permission slices into one.
func compose(groups ...[]string) []string {
	total := 0
	for _, g := range groups {
		total += len(g)
	}
	result := make([]string, 0, total)
	for _, g := range groups {
		result = append(result, g...)
	}
	return result
}
