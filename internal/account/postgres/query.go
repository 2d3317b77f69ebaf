// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package postgres

import (
	"fmt"
	"strings"

	"github.com/samber/oops"

	"github.com/holomush/admindesk/internal/account"
)

// columnSQL maps allow-listed columns to SQL identifiers. Nothing outside
// this table is ever interpolated into a statement.
var columnSQL = map[account.Column]string{
	account.ColumnID:          "id",
	account.ColumnHandle:      "handle",
	account.ColumnEmail:       "email",
	account.ColumnFirstName:   "first_name",
	account.ColumnLastName:    "last_name",
	account.ColumnActive:      "active",
	account.ColumnCreatedAt:   "created_at",
	account.ColumnLastLoginAt: "last_login_at",
}

var likeEscaper = strings.NewReplacer(`\`, `\\`, `%`, `\%`, `_`, `\_`)

// likePattern turns free text into a contains pattern with LIKE
// metacharacters escaped.
func likePattern(text string) string {
	return "%" + likeEscaper.Replace(text) + "%"
}

// buildWhere renders pred as a WHERE clause whose placeholders start at
// $1. An empty predicate renders as the empty string.
func buildWhere(pred account.Predicate) (string, []any, error) {
	if len(pred) == 0 {
		return "", nil, nil
	}

	conds := make([]string, 0, len(pred))
	args := make([]any, 0, len(pred))
	for _, f := range pred {
		col, ok := columnSQL[f.Column]
		if !ok || !f.Column.Filterable() {
			return "", nil, oops.Code("ACCOUNT_QUERY_INVALID").
				With("column", string(f.Column)).
				Errorf("column %q is not filterable", f.Column)
		}
		args = append(args, likePattern(f.Text))
		conds = append(conds, fmt.Sprintf("%s ILIKE $%d", col, len(args)))
	}
	return " WHERE " + strings.Join(conds, " AND "), args, nil
}

// buildOrderBy renders the ORDER BY clause. ID is always the final key so
// pages are stable.
func buildOrderBy(sort account.Sort) (string, error) {
	if sort.IsZero() || sort.Column == account.ColumnID {
		if sort.Desc {
			return " ORDER BY id DESC", nil
		}
		return " ORDER BY id ASC", nil
	}

	col, ok := columnSQL[sort.Column]
	if !ok || !sort.Column.Sortable() {
		return "", oops.Code("ACCOUNT_QUERY_INVALID").
			With("column", string(sort.Column)).
			Errorf("column %q is not sortable", sort.Column)
	}
	dir := "ASC"
	if sort.Desc {
		dir = "DESC"
	}
	return fmt.Sprintf(" ORDER BY %s %s, id ASC", col, dir), nil
}

// buildPageQuery renders the page SELECT and its arguments.
func buildPageQuery(pred account.Predicate, sort account.Sort, offset, limit int) (string, []any, error) {
	where, args, err := buildWhere(pred)
	if err != nil {
		return "", nil, err
	}
	order, err := buildOrderBy(sort)
	if err != nil {
		return "", nil, err
	}

	args = append(args, limit, offset)
	sql := "SELECT " + accountColumns + " FROM accounts" + where + order +
		fmt.Sprintf(" LIMIT $%d OFFSET $%d", len(args)-1, len(args))
	return sql, args, nil
}

// buildCountQuery renders the COUNT that shares buildPageQuery's WHERE.
func buildCountQuery(pred account.Predicate) (string, []any, error) {
	where, args, err := buildWhere(pred)
	if err != nil {
		return "", nil, err
	}
	return "SELECT COUNT(*) FROM accounts" + where, args, nil
}
