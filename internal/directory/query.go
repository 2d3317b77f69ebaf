// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package directory

import (
	"errors"
	"sort"
	"strings"

	"github.com/samber/oops"

	"github.com/holomush/admindesk/internal/account"
)

// Paging defaults.
const (
	DefaultPageSize = 10
	DefaultMaxLimit = 500
)

// ErrInvalidQuery is wrapped by every Normalize rejection.
var ErrInvalidQuery = errors.New("invalid listing query")

// SortSpec selects at most one sort column.
type SortSpec struct {
	Column string
	Desc   bool
}

// Query is a listing request as received from a caller.
type Query struct {
	Offset  int
	Limit   int
	Sort    *SortSpec
	Filters map[string]string
}

// Plan is a validated Query ready for the store.
type Plan struct {
	Offset    int
	Limit     int
	Sort      account.Sort
	Predicate account.Predicate
}

// Result is one page plus the total number of matching accounts.
type Result struct {
	Accounts []*account.Account
	Total    int
	Offset   int
	Limit    int
}

// Page returns the 1-based page number of the result.
func (r *Result) Page() int {
	if r.Limit <= 0 {
		return 1
	}
	return r.Offset/r.Limit + 1
}

// Pages returns the number of pages needed for Total, at least 1.
func (r *Result) Pages() int {
	if r.Limit <= 0 || r.Total == 0 {
		return 1
	}
	return (r.Total + r.Limit - 1) / r.Limit
}

func invalid(reason string) oops.OopsErrorBuilder {
	return oops.Code("LISTING_INVALID_QUERY").With("reason", reason)
}

// Normalize validates q and clamps its limit to maxLimit. A non-positive
// maxLimit means DefaultMaxLimit.
func Normalize(q Query, maxLimit int) (Plan, error) {
	if maxLimit <= 0 {
		maxLimit = DefaultMaxLimit
	}
	if q.Offset < 0 {
		return Plan{}, invalid("offset").With("offset", q.Offset).Wrap(ErrInvalidQuery)
	}
	if q.Limit <= 0 {
		return Plan{}, invalid("limit").With("limit", q.Limit).Wrap(ErrInvalidQuery)
	}

	plan := Plan{Offset: q.Offset, Limit: min(q.Limit, maxLimit)}

	if q.Sort != nil {
		col := account.Column(strings.TrimSpace(q.Sort.Column))
		if !col.Sortable() {
			return Plan{}, invalid("sort").With("column", q.Sort.Column).Wrap(ErrInvalidQuery)
		}
		plan.Sort = account.Sort{Column: col, Desc: q.Sort.Desc}
	}

	for key, text := range q.Filters {
		col := account.Column(strings.TrimSpace(key))
		if !col.Filterable() {
			return Plan{}, invalid("filter").With("column", key).Wrap(ErrInvalidQuery)
		}
		text = strings.TrimSpace(text)
		if text == "" {
			continue
		}
		plan.Predicate = append(plan.Predicate, account.Filter{Column: col, Text: text})
	}
	sort.Slice(plan.Predicate, func(i, j int) bool {
		return plan.Predicate[i].Column < plan.Predicate[j].Column
	})

	return plan, nil
}
