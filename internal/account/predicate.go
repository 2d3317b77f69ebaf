// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

// Column is a queryable account attribute. Only the constants below are
// valid; stores translate them to their own field names.
type Column string

// Queryable columns.
const (
	ColumnID          Column = "id"
	ColumnHandle      Column = "handle"
	ColumnEmail       Column = "email"
	ColumnFirstName   Column = "first_name"
	ColumnLastName    Column = "last_name"
	ColumnActive      Column = "active"
	ColumnCreatedAt   Column = "created_at"
	ColumnLastLoginAt Column = "last_login_at"
)

var sortable = map[Column]bool{
	ColumnID:          true,
	ColumnHandle:      true,
	ColumnEmail:       true,
	ColumnFirstName:   true,
	ColumnLastName:    true,
	ColumnActive:      true,
	ColumnCreatedAt:   true,
	ColumnLastLoginAt: true,
}

var filterable = map[Column]bool{
	ColumnHandle:    true,
	ColumnEmail:     true,
	ColumnFirstName: true,
	ColumnLastName:  true,
}

// Sortable reports whether c may appear in an ORDER BY.
func (c Column) Sortable() bool { return sortable[c] }

// Filterable reports whether c accepts a substring filter.
func (c Column) Filterable() bool { return filterable[c] }

// Filter is a case-insensitive substring match on one text column.
type Filter struct {
	Column Column
	Text   string
}

// Predicate is a conjunction of filters. An empty predicate matches
// every account.
type Predicate []Filter

// Sort orders results by one column. The zero value orders by ID.
type Sort struct {
	Column Column
	Desc   bool
}

// IsZero reports whether no explicit sort was requested.
func (s Sort) IsZero() bool {
	return s.Column == ""
}

// Value returns the text value of a filterable column.
func (a *Account) Value(c Column) string {
	switch c {
	case ColumnHandle:
		return a.Handle
	case ColumnEmail:
		return a.Email
	case ColumnFirstName:
		return a.FirstName
	case ColumnLastName:
		return a.LastName
	default:
		return ""
	}
}
