// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package directory_test

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/holomush/admindesk/internal/account"
	"github.com/holomush/admindesk/internal/account/memory"
	"github.com/holomush/admindesk/internal/directory"
)

func seed(t *testing.T, store *memory.Store, handles ...string) []*account.Account {
	t.Helper()
	out := make([]*account.Account, 0, len(handles))
	for _, h := range handles {
		a, err := account.NewAccount(h, h+"@x.com", "", "", "digest", []byte("salt"))
		require.NoError(t, err)
		_, err = store.Save(context.Background(), a)
		require.NoError(t, err)
		out = append(out, a)
	}
	return out
}

func adminOf(a *account.Account) account.Identity {
	return account.Identity{ID: a.ID, Handle: a.Handle, Roles: account.NewRoleSet("user", "admin")}
}

func newEngine(t *testing.T, store account.Store, opts ...directory.EngineOption) *directory.Engine {
	t.Helper()
	e, err := directory.NewEngine(store, nil, opts...)
	require.NoError(t, err)
	return e
}

func TestList_FilterScenario(t *testing.T) {
	store := memory.NewStore()
	seed(t, store, "alice", "bob")
	e := newEngine(t, store)

	res, err := e.List(context.Background(), directory.Query{
		Limit:   10,
		Sort:    &directory.SortSpec{Column: "handle"},
		Filters: map[string]string{"handle": "al"},
	})
	require.NoError(t, err)
	require.Len(t, res.Accounts, 1)
	assert.Equal(t, "alice", res.Accounts[0].Handle)
	assert.Equal(t, 1, res.Total)
}

func TestList_PagesPartitionAllAccounts(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	handles := make([]string, 0, 37)
	for i := range 37 {
		handles = append(handles, fmt.Sprintf("user%02d", i))
	}
	accounts := seed(t, store, handles...)
	require.NoError(t, store.SetActive(ctx, accounts[3].ID, false))
	e := newEngine(t, store)

	collect := func() []int64 {
		var ids []int64
		sum := 0
		for offset := 0; ; offset += 10 {
			res, err := e.List(ctx, directory.Query{Offset: offset, Limit: 10})
			require.NoError(t, err)
			assert.Equal(t, 37, res.Total)
			if len(res.Accounts) == 0 {
				break
			}
			sum += len(res.Accounts)
			for _, a := range res.Accounts {
				ids = append(ids, a.ID)
			}
		}
		assert.Equal(t, 37, sum, "count equals the sum of page sizes")
		return ids
	}

	first := collect()
	assert.Len(t, first, 37)
	assert.Equal(t, first, collect(), "order is stable across calls")

	seen := make(map[int64]bool)
	for _, id := range first {
		assert.False(t, seen[id], "id %d appears twice", id)
		seen[id] = true
	}
}

type spyStore struct {
	mock.Mock
	account.Store
}

func (s *spyStore) QueryPage(ctx context.Context, pred account.Predicate, sort account.Sort, offset, limit int) ([]*account.Account, error) {
	args := s.Called(ctx, pred, sort, offset, limit)
	rows, _ := args.Get(0).([]*account.Account)
	return rows, args.Error(1)
}

func (s *spyStore) CountMatching(ctx context.Context, pred account.Predicate) (int, error) {
	args := s.Called(ctx, pred)
	return args.Int(0), args.Error(1)
}

func (s *spyStore) FindByID(ctx context.Context, id int64) (*account.Account, error) {
	args := s.Called(ctx, id)
	a, _ := args.Get(0).(*account.Account)
	return a, args.Error(1)
}

func (s *spyStore) Delete(ctx context.Context, id int64) error {
	return s.Called(ctx, id).Error(0)
}

func TestList_InvalidQueryNeverTouchesStore(t *testing.T) {
	store := &spyStore{}
	e := newEngine(t, store)

	_, err := e.List(context.Background(), directory.Query{Limit: 10, Sort: &directory.SortSpec{Column: "nope"}})
	assert.ErrorIs(t, err, directory.ErrInvalidQuery)
	store.AssertNotCalled(t, "QueryPage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	store.AssertNotCalled(t, "CountMatching", mock.Anything, mock.Anything)
}

func TestList_CountAndPageShareThePredicate(t *testing.T) {
	store := &spyStore{}
	pred := account.Predicate{{Column: account.ColumnHandle, Text: "al"}}
	store.On("QueryPage", mock.Anything, pred, account.Sort{}, 0, 5).Return([]*account.Account{}, nil)
	store.On("CountMatching", mock.Anything, pred).Return(0, nil)

	e := newEngine(t, store)
	_, err := e.List(context.Background(), directory.Query{Limit: 5, Filters: map[string]string{"handle": "al"}})
	require.NoError(t, err)
	store.AssertExpectations(t)
}

func TestList_StorageErrorPropagates(t *testing.T) {
	store := &spyStore{}
	storageErr := account.NewStorageError("query", errors.New("timeout"))
	store.On("QueryPage", mock.Anything, mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(nil, storageErr)

	obs := &recordingObserver{}
	e := newEngine(t, store, directory.WithObserver(obs))
	_, err := e.List(context.Background(), directory.Query{Limit: 5})
	require.Error(t, err)
	assert.True(t, account.IsStorage(err))
	assert.Equal(t, []string{directory.StatusError}, obs.statuses)
}

type recordingObserver struct {
	statuses []string
}

func (o *recordingObserver) ObserveDirectoryQuery(status string, _ time.Duration) {
	o.statuses = append(o.statuses, status)
}

func TestList_ObservesOutcomes(t *testing.T) {
	store := memory.NewStore()
	obs := &recordingObserver{}
	e := newEngine(t, store, directory.WithObserver(obs))

	_, err := e.List(context.Background(), directory.Query{Limit: 5})
	require.NoError(t, err)
	_, err = e.List(context.Background(), directory.Query{Limit: 0})
	require.Error(t, err)
	assert.Equal(t, []string{directory.StatusOK, directory.StatusInvalid}, obs.statuses)
}

func TestRowKeyRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	accounts := seed(t, store, "alice")
	e := newEngine(t, store)

	key := e.RowKey(accounts[0])
	assert.Equal(t, fmt.Sprint(accounts[0].ID), key)

	got, err := e.ResolveRow(ctx, key)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "alice", got.Handle)

	for _, bad := range []string{"", "abc", "-1", "0", "999", "1.5"} {
		got, err := e.ResolveRow(ctx, bad)
		require.NoError(t, err, bad)
		assert.Nil(t, got, bad)
	}
}

func TestResolveRow_StorageError(t *testing.T) {
	store := &spyStore{}
	store.On("FindByID", mock.Anything, int64(4)).Return(nil, account.NewStorageError("select", errors.New("boom")))
	e := newEngine(t, store)

	_, err := e.ResolveRow(context.Background(), "4")
	assert.True(t, account.IsStorage(err))
}

func TestDelete_SelfIsRejectedRegardlessOfStore(t *testing.T) {
	store := &spyStore{}
	e := newEngine(t, store)
	self := account.Identity{ID: 7, Handle: "root", Roles: account.NewRoleSet("admin")}

	err := e.Delete(context.Background(), self, 7)
	assert.ErrorIs(t, err, directory.ErrSelfTarget)
	store.AssertNotCalled(t, "Delete", mock.Anything, mock.Anything)
}

func TestDelete(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	accounts := seed(t, store, "admin1", "bob")
	e := newEngine(t, store)

	require.NoError(t, e.Delete(ctx, adminOf(accounts[0]), accounts[1].ID))
	_, err := store.FindByID(ctx, accounts[1].ID)
	assert.ErrorIs(t, err, account.ErrNotFound)

	err = e.Delete(ctx, adminOf(accounts[0]), accounts[1].ID)
	assert.ErrorIs(t, err, account.ErrNotFound)
}

func TestDelete_ForbiddenWithoutAdminRole(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	accounts := seed(t, store, "carol", "bob")
	e := newEngine(t, store)

	err := e.Delete(ctx, accounts[0].Identity(), accounts[1].ID)
	assert.ErrorIs(t, err, directory.ErrForbidden)
	_, err = store.FindByID(ctx, accounts[1].ID)
	require.NoError(t, err)
}

func TestDeleteMany(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	accounts := seed(t, store, "admin1", "bob", "carol", "dave")
	e := newEngine(t, store)
	actor := adminOf(accounts[0])

	_, err := e.DeleteMany(ctx, actor, []int64{accounts[1].ID, accounts[0].ID, accounts[2].ID})
	assert.ErrorIs(t, err, directory.ErrSelfTarget)
	n, err := store.CountMatching(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 4, n, "a batch containing the actor deletes nothing")

	deleted, err := e.DeleteMany(ctx, actor, []int64{accounts[1].ID, accounts[2].ID, 9999})
	require.NoError(t, err)
	assert.Equal(t, 2, deleted)
	n, err = store.CountMatching(ctx, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, n)
}

func TestUnlockAndSetActive(t *testing.T) {
	ctx := context.Background()
	store := memory.NewStore()
	accounts := seed(t, store, "admin1", "bob")
	e := newEngine(t, store)
	actor := adminOf(accounts[0])
	bob := accounts[1]

	for range 5 {
		_, err := store.RecordLoginOutcome(ctx, bob.ID, account.LoginOutcome{At: time.Now(), MaxAttempts: 5})
		require.NoError(t, err)
	}
	require.NoError(t, e.Unlock(ctx, actor, bob.ID))
	got, err := store.FindByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.False(t, got.Locked)
	assert.Zero(t, got.FailedAttempts)

	require.NoError(t, e.SetActive(ctx, actor, bob.ID, false))
	got, err = store.FindByID(ctx, bob.ID)
	require.NoError(t, err)
	assert.False(t, got.Active)

	err = e.SetActive(ctx, actor, actor.ID, false)
	assert.ErrorIs(t, err, directory.ErrSelfTarget, "cannot deactivate self")
	require.NoError(t, e.SetActive(ctx, actor, actor.ID, true), "re-activating self is harmless")

	err = e.Unlock(ctx, bob.Identity(), actor.ID)
	assert.ErrorIs(t, err, directory.ErrForbidden)
}

func TestCanList(t *testing.T) {
	store := memory.NewStore()
	accounts := seed(t, store, "admin1", "bob")
	e := newEngine(t, store)

	assert.True(t, e.CanList(adminOf(accounts[0])))
	assert.False(t, e.CanList(accounts[1].Identity()))
	assert.False(t, e.CanList(account.Identity{}))
}
