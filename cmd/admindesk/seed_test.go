// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package main

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	accountmem "github.com/holomush/admindesk/internal/account/memory"
	"github.com/holomush/admindesk/internal/auth"
	"github.com/holomush/admindesk/pkg/errutil"
)

var testCodec = auth.NewArgon2Codec(auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32})

func writeSeed(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "seed.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

const seedYAML = `accounts:
  - handle: root
    email: root@example.com
    password: Change-me-123
    first_name: Ada
    roles: [admin]
  - handle: alice
    email: alice@example.com
    password: Secret1234
`

func TestSeedFromFile(t *testing.T) {
	ctx := context.Background()
	store := accountmem.NewStore()
	path := writeSeed(t, seedYAML)

	created, skipped, err := seedFromFile(ctx, path, store, testCodec)
	require.NoError(t, err)
	assert.Equal(t, 2, created)
	assert.Equal(t, 0, skipped)

	root, err := store.FindByHandle(ctx, "root")
	require.NoError(t, err)
	assert.True(t, root.Roles.Has("admin"))
	assert.True(t, root.Roles.Has("user"))
	assert.Equal(t, "Ada", root.FirstName)
	ok, err := testCodec.Verify("Change-me-123", root.PasswordHash, root.PasswordSalt)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestSeedFromFile_Idempotent(t *testing.T) {
	ctx := context.Background()
	store := accountmem.NewStore()
	path := writeSeed(t, seedYAML)

	_, _, err := seedFromFile(ctx, path, store, testCodec)
	require.NoError(t, err)
	created, skipped, err := seedFromFile(ctx, path, store, testCodec)
	require.NoError(t, err)

	assert.Equal(t, 0, created)
	assert.Equal(t, 2, skipped)
}

func TestSeedFromFile_Errors(t *testing.T) {
	tests := []struct {
		name     string
		path     func(t *testing.T) string
		wantCode string
	}{
		{
			name:     "missing file",
			path:     func(t *testing.T) string { return filepath.Join(t.TempDir(), "nope.yaml") },
			wantCode: "SEED_READ_FAILED",
		},
		{
			name:     "malformed yaml",
			path:     func(t *testing.T) string { return writeSeed(t, "accounts: [") },
			wantCode: "SEED_INVALID",
		},
		{
			name: "weak password",
			path: func(t *testing.T) string {
				return writeSeed(t, "accounts:\n  - handle: weak\n    email: weak@example.com\n    password: short\n")
			},
			wantCode: "SEED_WEAK_PASSWORD",
		},
		{
			name: "invalid email",
			path: func(t *testing.T) string {
				return writeSeed(t, "accounts:\n  - handle: bob\n    email: not-an-email\n    password: Secret1234\n")
			},
			wantCode: "ACCOUNT_INVALID_EMAIL",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, _, err := seedFromFile(context.Background(), tt.path(t), accountmem.NewStore(), testCodec)
			errutil.AssertErrorCode(t, err, tt.wantCode)
		})
	}
}
