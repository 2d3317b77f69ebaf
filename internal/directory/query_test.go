// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package directory

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/admindesk/internal/account"
	"github.com/holomush/admindesk/pkg/errutil"
)

func TestNormalize_Valid(t *testing.T) {
	plan, err := Normalize(Query{
		Offset: 20,
		Limit:  10,
		Sort:   &SortSpec{Column: "last_login_at", Desc: true},
		Filters: map[string]string{
			"handle":     "al",
			"email":      " x.com ",
			"first_name": "   ",
		},
	}, 0)
	require.NoError(t, err)

	assert.Equal(t, 20, plan.Offset)
	assert.Equal(t, 10, plan.Limit)
	assert.Equal(t, account.Sort{Column: account.ColumnLastLoginAt, Desc: true}, plan.Sort)
	assert.Equal(t, account.Predicate{
		{Column: account.ColumnEmail, Text: "x.com"},
		{Column: account.ColumnHandle, Text: "al"},
	}, plan.Predicate, "blank filters are dropped and the rest ordered by column")
}

func TestNormalize_ClampsLimit(t *testing.T) {
	plan, err := Normalize(Query{Limit: 10_000}, 0)
	require.NoError(t, err)
	assert.Equal(t, DefaultMaxLimit, plan.Limit)

	plan, err = Normalize(Query{Limit: 80}, 50)
	require.NoError(t, err)
	assert.Equal(t, 50, plan.Limit)
}

func TestNormalize_Rejects(t *testing.T) {
	tests := []struct {
		name  string
		query Query
	}{
		{"negative offset", Query{Offset: -1, Limit: 10}},
		{"zero limit", Query{Limit: 0}},
		{"negative limit", Query{Limit: -5}},
		{"unknown sort column", Query{Limit: 10, Sort: &SortSpec{Column: "password_hash"}}},
		{"injection in sort", Query{Limit: 10, Sort: &SortSpec{Column: "handle; DROP TABLE accounts"}}},
		{"unfilterable column", Query{Limit: 10, Filters: map[string]string{"active": "true"}}},
		{"unknown filter column", Query{Limit: 10, Filters: map[string]string{"1=1": "x"}}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Normalize(tt.query, 0)
			assert.ErrorIs(t, err, ErrInvalidQuery)
			errutil.AssertErrorCode(t, err, "LISTING_INVALID_QUERY")
		})
	}
}

func TestResult_Pages(t *testing.T) {
	r := &Result{Total: 25, Offset: 20, Limit: 10}
	assert.Equal(t, 3, r.Page())
	assert.Equal(t, 3, r.Pages())

	empty := &Result{Limit: 10}
	assert.Equal(t, 1, empty.Page())
	assert.Equal(t, 1, empty.Pages())
}
