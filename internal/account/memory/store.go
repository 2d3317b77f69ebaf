// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides an in-process account.Store for development
// and tests.
package memory

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/samber/oops"
	"golang.org/x/text/cases"

	"github.com/holomush/admindesk/internal/account"
)

// Store is a mutex-guarded account.Store.
type Store struct {
	mu     sync.RWMutex
	nextID int64
	byID   map[int64]*account.Account
	now    func() time.Time
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the clock used for CreatedAt.
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// NewStore creates an empty Store.
func NewStore(opts ...Option) *Store {
	s := &Store{
		nextID: 1,
		byID:   make(map[int64]*account.Account),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// fold returns the caseless form used for comparisons. cases.Caser is
// stateful so a fresh one is taken per call.
func fold(s string) string {
	return cases.Fold().String(s)
}

// FindByID implements account.Store.
func (s *Store) FindByID(_ context.Context, id int64) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("id", id).Wrap(account.ErrNotFound)
	}
	return clone(a), nil
}

// FindByHandle implements account.Store.
func (s *Store) FindByHandle(_ context.Context, handle string) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a := s.findLocked(func(a *account.Account) string { return a.Handle }, handle); a != nil {
		return clone(a), nil
	}
	return nil, oops.Code("ACCOUNT_NOT_FOUND").With("handle", handle).Wrap(account.ErrNotFound)
}

// FindByEmail implements account.Store.
func (s *Store) FindByEmail(_ context.Context, email string) (*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	if a := s.findLocked(func(a *account.Account) string { return a.Email }, email); a != nil {
		return clone(a), nil
	}
	return nil, oops.Code("ACCOUNT_NOT_FOUND").With("email", email).Wrap(account.ErrNotFound)
}

func (s *Store) findLocked(field func(*account.Account) string, value string) *account.Account {
	want := fold(value)
	for _, a := range s.byID {
		if fold(field(a)) == want {
			return a
		}
	}
	return nil
}

// Save implements account.Store.
func (s *Store) Save(_ context.Context, a *account.Account) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, other := range s.byID {
		if other.ID == a.ID {
			continue
		}
		if fold(other.Handle) == fold(a.Handle) {
			return 0, oops.Code("ACCOUNT_DUPLICATE").With("handle", a.Handle).Wrap(account.ErrDuplicate)
		}
		if fold(other.Email) == fold(a.Email) {
			return 0, oops.Code("ACCOUNT_DUPLICATE").With("email", a.Email).Wrap(account.ErrDuplicate)
		}
	}

	if a.ID == 0 {
		stored := clone(a)
		stored.ID = s.nextID
		stored.CreatedAt = s.now().UTC()
		stored.Version = 1
		s.nextID++
		s.byID[stored.ID] = stored

		a.ID, a.CreatedAt, a.Version = stored.ID, stored.CreatedAt, stored.Version
		return a.ID, nil
	}

	existing, ok := s.byID[a.ID]
	if !ok {
		return 0, oops.Code("ACCOUNT_NOT_FOUND").With("id", a.ID).Wrap(account.ErrNotFound)
	}
	if existing.Version != a.Version {
		return 0, oops.Code("ACCOUNT_STALE").
			With("id", a.ID).
			With("version", a.Version).
			Wrap(account.ErrStale)
	}
	stored := clone(a)
	stored.CreatedAt = existing.CreatedAt
	stored.Version = existing.Version + 1
	s.byID[a.ID] = stored

	a.CreatedAt, a.Version = stored.CreatedAt, stored.Version
	return a.ID, nil
}

// Delete implements account.Store.
func (s *Store) Delete(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, ok := s.byID[id]; !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", id).Wrap(account.ErrNotFound)
	}
	delete(s.byID, id)
	return nil
}

// RecordLoginOutcome implements account.Store.
func (s *Store) RecordLoginOutcome(_ context.Context, id int64, outcome account.LoginOutcome) (*account.Account, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("id", id).Wrap(account.ErrNotFound)
	}
	outcome.Apply(a)
	a.Version++
	return clone(a), nil
}

// Unlock implements account.Store.
func (s *Store) Unlock(_ context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", id).Wrap(account.ErrNotFound)
	}
	a.Locked = false
	a.LockedAt = nil
	a.FailedAttempts = 0
	a.Version++
	return nil
}

// SetActive implements account.Store.
func (s *Store) SetActive(_ context.Context, id int64, active bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	a, ok := s.byID[id]
	if !ok {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", id).Wrap(account.ErrNotFound)
	}
	a.Active = active
	a.Version++
	return nil
}

// QueryPage implements account.Store.
func (s *Store) QueryPage(_ context.Context, pred account.Predicate, order account.Sort, offset, limit int) ([]*account.Account, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	matched := s.matchLocked(pred)
	sort.SliceStable(matched, func(i, j int) bool {
		return less(matched[i], matched[j], order)
	})

	if offset >= len(matched) {
		return []*account.Account{}, nil
	}
	end := len(matched)
	if limit >= 0 && offset+limit < end {
		end = offset + limit
	}
	page := make([]*account.Account, 0, end-offset)
	for _, a := range matched[offset:end] {
		page = append(page, clone(a))
	}
	return page, nil
}

// CountMatching implements account.Store.
func (s *Store) CountMatching(_ context.Context, pred account.Predicate) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.matchLocked(pred)), nil
}

func (s *Store) matchLocked(pred account.Predicate) []*account.Account {
	folded := make([]account.Filter, len(pred))
	for i, f := range pred {
		folded[i] = account.Filter{Column: f.Column, Text: fold(f.Text)}
	}

	out := make([]*account.Account, 0, len(s.byID))
	for _, a := range s.byID {
		if matches(a, folded) {
			out = append(out, a)
		}
	}
	return out
}

func matches(a *account.Account, pred account.Predicate) bool {
	for _, f := range pred {
		if !strings.Contains(fold(a.Value(f.Column)), f.Text) {
			return false
		}
	}
	return true
}

// less orders by the requested column, then by ID ascending.
func less(a, b *account.Account, order account.Sort) bool {
	c := compare(a, b, order.Column)
	if order.Desc {
		c = -c
	}
	if c != 0 {
		return c < 0
	}
	return a.ID < b.ID
}

func compare(a, b *account.Account, col account.Column) int {
	switch col {
	case account.ColumnHandle, account.ColumnEmail, account.ColumnFirstName, account.ColumnLastName:
		return strings.Compare(fold(a.Value(col)), fold(b.Value(col)))
	case account.ColumnActive:
		return compareBool(a.Active, b.Active)
	case account.ColumnCreatedAt:
		return a.CreatedAt.Compare(b.CreatedAt)
	case account.ColumnLastLoginAt:
		return compareTimePtr(a.LastLoginAt, b.LastLoginAt)
	case account.ColumnID:
		return compareInt(a.ID, b.ID)
	default:
		return 0
	}
}

func compareInt(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func compareBool(a, b bool) int {
	switch {
	case a == b:
		return 0
	case !a:
		return -1
	default:
		return 1
	}
}

// compareTimePtr sorts nil after every timestamp, matching NULLS LAST.
func compareTimePtr(a, b *time.Time) int {
	switch {
	case a == nil && b == nil:
		return 0
	case a == nil:
		return 1
	case b == nil:
		return -1
	default:
		return a.Compare(*b)
	}
}

func clone(a *account.Account) *account.Account {
	c := *a
	c.Roles = a.Roles.Clone()
	if a.PasswordSalt != nil {
		c.PasswordSalt = append([]byte(nil), a.PasswordSalt...)
	}
	if a.LockedAt != nil {
		t := *a.LockedAt
		c.LockedAt = &t
	}
	if a.LastLoginAt != nil {
		t := *a.LastLoginAt
		c.LastLoginAt = &t
	}
	return &c
}

// Compile-time interface check.
var _ account.Store = (*Store)(nil)
