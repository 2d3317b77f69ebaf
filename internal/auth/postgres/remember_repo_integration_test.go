// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package postgres_test

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/holomush/admindesk/internal/account"
	accountpg "github.com/holomush/admindesk/internal/account/postgres"
	"github.com/holomush/admindesk/internal/auth"
	"github.com/holomush/admindesk/internal/auth/postgres"
	"github.com/holomush/admindesk/internal/store/storetest"
)

var testDB *storetest.Database

func TestMain(m *testing.M) {
	ctx := context.Background()
	db, err := storetest.Start(ctx)
	if err != nil {
		panic("failed to start postgres: " + err.Error())
	}
	testDB = db

	code := m.Run()
	db.Close(ctx)
	os.Exit(code)
}

func seedAccount(t *testing.T, handle string) *account.Account {
	t.Helper()
	a, err := account.NewAccount(handle, handle+"@example.com", "", "", "digest", []byte("salt"))
	require.NoError(t, err)
	_, err = accountpg.NewAccountRepository(testDB.Pool).Save(context.Background(), a)
	require.NoError(t, err)
	return a
}

func TestRememberTokenRepository_Integration(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.Truncate(ctx))
	repo := postgres.NewRememberTokenRepository(testDB.Pool)
	alice := seedAccount(t, "alice")

	issued := time.Now().UTC().Truncate(time.Microsecond)
	live := &auth.RememberToken{
		ID: ulid.Make(), AccountID: alice.ID, Handle: "alice", TokenHash: "live",
		IssuedAt: issued, ExpiresAt: issued.Add(auth.RememberTokenExpiry),
	}
	stale := &auth.RememberToken{
		ID: ulid.Make(), AccountID: alice.ID, Handle: "alice", TokenHash: "stale",
		IssuedAt: issued.Add(-48 * time.Hour), ExpiresAt: issued.Add(-time.Hour),
	}
	require.NoError(t, repo.Create(ctx, live))
	require.NoError(t, repo.Create(ctx, stale))

	got, err := repo.GetByTokenHash(ctx, "live")
	require.NoError(t, err)
	assert.Equal(t, live.ID, got.ID)
	assert.True(t, live.ExpiresAt.Equal(got.ExpiresAt))

	n, err := repo.DeleteExpired(ctx, issued)
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	_, err = repo.GetByTokenHash(ctx, "stale")
	assert.ErrorIs(t, err, account.ErrNotFound)

	require.NoError(t, repo.DeleteByAccount(ctx, alice.ID))
	_, err = repo.GetByTokenHash(ctx, "live")
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func TestRememberTokenRepository_CascadesOnAccountDelete(t *testing.T) {
	ctx := context.Background()
	require.NoError(t, testDB.Truncate(ctx))
	repo := postgres.NewRememberTokenRepository(testDB.Pool)
	bob := seedAccount(t, "bob")

	now := time.Now().UTC()
	require.NoError(t, repo.Create(ctx, &auth.RememberToken{
		ID: ulid.Make(), AccountID: bob.ID, Handle: "bob", TokenHash: "h",
		IssuedAt: now, ExpiresAt: now.Add(time.Hour),
	}))

	require.NoError(t, accountpg.NewAccountRepository(testDB.Pool).Delete(ctx, bob.ID))
	_, err := repo.GetByTokenHash(ctx, "h")
	assert.ErrorIs(t, err, account.ErrNotFound)
}
