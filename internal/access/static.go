// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package access decides which console operations an identity may perform.
package access

import (
	"log/slog"
	"strconv"
	"strings"

	"github.com/gobwas/glob"
	"github.com/samber/oops"

	"github.com/holomush/admindesk/internal/account"
)

// Checker answers whether an identity may perform action on resource.
type Checker interface {
	Check(id account.Identity, action, resource string) bool
}

// StaticPolicy implements Checker with fixed role definitions. It is
// immutable after construction.
type StaticPolicy struct {
	roles map[string][]compiledPermission
}

// compiledPermission holds a permission pattern and its compiled glob.
type compiledPermission struct {
	pattern string
	glob    glob.Glob
}

// NewStaticPolicy creates a policy with DefaultRoles.
//
// Panics if the default patterns do not compile.
func NewStaticPolicy() *StaticPolicy {
	p, err := NewStaticPolicyWithRoles(DefaultRoles())
	if err != nil {
		panic("invalid permission pattern in DefaultRoles: " + err.Error())
	}
	return p
}

// NewStaticPolicyWithRoles compiles roles, a map of role name to
// permission patterns of the form action:resource.
func NewStaticPolicyWithRoles(roles map[string][]string) (*StaticPolicy, error) {
	compiledRoles := make(map[string][]compiledPermission, len(roles))
	for role, perms := range roles {
		compiled := make([]compiledPermission, 0, len(perms))
		for _, p := range perms {
			g, err := glob.Compile(p, ':')
			if err != nil {
				return nil, oops.In("access").
					Code("INVALID_PERMISSION_PATTERN").
					With("role", role).
					With("pattern", p).
					Wrap(err)
			}
			compiled = append(compiled, compiledPermission{pattern: p, glob: g})
		}
		compiledRoles[role] = compiled
	}
	return &StaticPolicy{roles: compiledRoles}, nil
}

// Check implements Checker. The zero identity is always denied.
func (s *StaticPolicy) Check(id account.Identity, action, resource string) bool {
	if id.IsZero() {
		return false
	}

	requested := action + ":" + resource
	self := strconv.FormatInt(id.ID, 10)

	for _, role := range id.Roles.Slice() {
		for _, perm := range s.roles[role] {
			if s.match(perm, self, requested) {
				return true
			}
		}
	}
	return false
}

func (s *StaticPolicy) match(perm compiledPermission, self, requested string) bool {
	if !strings.Contains(perm.pattern, "$self") {
		return perm.glob.Match(requested)
	}
	resolved := strings.ReplaceAll(perm.pattern, "$self", self)
	g, err := glob.Compile(resolved, ':')
	if err != nil {
		slog.Warn("failed to compile resolved permission pattern",
			"pattern", perm.pattern,
			"resolved", resolved,
			"error", err)
		return false
	}
	return g.Match(requested)
}

// AccountResource names the account with id as a resource.
func AccountResource(id int64) string {
	return ResourceAccount + strconv.FormatInt(id, 10)
}

// Compile-time interface check.
var _ Checker = (*StaticPolicy)(nil)
