// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Remember-me token configuration.
const (
	RememberTokenLength = 43
	RememberTokenExpiry = 30 * 24 * time.Hour
)

// RememberToken is the server-side record behind a remember-me cookie.
// The cookie carries an opaque random value; only its hash is stored.
type RememberToken struct {
	ID        ulid.ULID
	AccountID int64
	Handle    string
	TokenHash string
	IssuedAt  time.Time
	ExpiresAt time.Time
}

// newRememberToken builds a token record expiring RememberTokenExpiry
// after now.
func newRememberToken(s *Session, tokenHash string, now time.Time) (*RememberToken, error) {
	if s == nil || s.AccountID == 0 {
		return nil, oops.Code("REMEMBER_INVALID_SESSION").Errorf("a live session is required")
	}
	if tokenHash == "" {
		return nil, oops.Code("REMEMBER_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	return &RememberToken{
		ID:        ulid.Make(),
		AccountID: s.AccountID,
		Handle:    s.Handle,
		TokenHash: tokenHash,
		IssuedAt:  now,
		ExpiresAt: now.Add(RememberTokenExpiry),
	}, nil
}

// ExpiredAt reports whether the token is no longer valid at t.
func (t *RememberToken) ExpiredAt(at time.Time) bool {
	return !at.Before(t.ExpiresAt)
}

// RememberTokenStore persists remember-me tokens.
type RememberTokenStore interface {
	// Create stores a new token.
	Create(ctx context.Context, token *RememberToken) error

	// GetByTokenHash returns account.ErrNotFound for unknown hashes.
	GetByTokenHash(ctx context.Context, tokenHash string) (*RememberToken, error)

	// DeleteByAccount removes every token of an account.
	DeleteByAccount(ctx context.Context, accountID int64) error

	// DeleteExpired removes tokens expired at now and returns how many.
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}
