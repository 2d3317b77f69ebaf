// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package memory provides an in-process auth.RememberTokenStore.
package memory

import (
	"context"
	"sync"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/admindesk/internal/account"
	"github.com/holomush/admindesk/internal/auth"
)

// TokenStore keeps remember-me tokens in a map keyed by hash.
type TokenStore struct {
	mu     sync.Mutex
	byHash map[string]auth.RememberToken
}

// NewTokenStore creates an empty TokenStore.
func NewTokenStore() *TokenStore {
	return &TokenStore{byHash: make(map[string]auth.RememberToken)}
}

// Create implements auth.RememberTokenStore.
func (s *TokenStore) Create(_ context.Context, token *auth.RememberToken) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.byHash[token.TokenHash]; ok {
		return oops.Code("REMEMBER_DUPLICATE").Wrap(account.ErrDuplicate)
	}
	s.byHash[token.TokenHash] = *token
	return nil
}

// GetByTokenHash implements auth.RememberTokenStore.
func (s *TokenStore) GetByTokenHash(_ context.Context, tokenHash string) (*auth.RememberToken, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t, ok := s.byHash[tokenHash]
	if !ok {
		return nil, oops.Code("REMEMBER_NOT_FOUND").Wrap(account.ErrNotFound)
	}
	return &t, nil
}

// DeleteByAccount implements auth.RememberTokenStore.
func (s *TokenStore) DeleteByAccount(_ context.Context, accountID int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for hash, t := range s.byHash {
		if t.AccountID == accountID {
			delete(s.byHash, hash)
		}
	}
	return nil
}

// DeleteExpired implements auth.RememberTokenStore.
func (s *TokenStore) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	var n int64
	for hash, t := range s.byHash {
		if t.ExpiredAt(now) {
			delete(s.byHash, hash)
			n++
		}
	}
	return n, nil
}

// Len returns the number of stored tokens.
func (s *TokenStore) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.byHash)
}

// Compile-time interface check.
var _ auth.RememberTokenStore = (*TokenStore)(nil)
