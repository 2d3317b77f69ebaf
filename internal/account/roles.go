// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"sort"
	"strings"
)

// RoleSet is a set of role names. The zero value is an empty set; use
// Add before storing into a nil RoleSet field.
type RoleSet map[string]struct{}

// NewRoleSet builds a set from names, skipping blanks.
func NewRoleSet(names ...string) RoleSet {
	rs := make(RoleSet, len(names))
	for _, n := range names {
		rs.Add(n)
	}
	return rs
}

// Add inserts a role. Blank names are ignored.
func (rs RoleSet) Add(name string) {
	name = strings.TrimSpace(name)
	if name == "" {
		return
	}
	rs[name] = struct{}{}
}

// Remove deletes a role if present.
func (rs RoleSet) Remove(name string) {
	delete(rs, strings.TrimSpace(name))
}

// Has reports membership.
func (rs RoleSet) Has(name string) bool {
	_, ok := rs[name]
	return ok
}

// Len returns the number of roles.
func (rs RoleSet) Len() int {
	return len(rs)
}

// Slice returns the roles sorted by name.
func (rs RoleSet) Slice() []string {
	out := make([]string, 0, len(rs))
	for n := range rs {
		out = append(out, n)
	}
	sort.Strings(out)
	return out
}

// Clone returns an independent copy.
func (rs RoleSet) Clone() RoleSet {
	out := make(RoleSet, len(rs))
	for n := range rs {
		out[n] = struct{}{}
	}
	return out
}
