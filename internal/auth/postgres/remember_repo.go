// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres provides the PostgreSQL remember-me token store.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/admindesk/internal/account"
	"github.com/holomush/admindesk/internal/auth"
	"github.com/holomush/admindesk/internal/store"
)

// RememberTokenRepository implements auth.RememberTokenStore using PostgreSQL.
type RememberTokenRepository struct {
	db store.Querier
}

// NewRememberTokenRepository creates a new RememberTokenRepository.
func NewRememberTokenRepository(db store.Querier) *RememberTokenRepository {
	return &RememberTokenRepository{db: db}
}

// Create stores a new token.
func (r *RememberTokenRepository) Create(ctx context.Context, t *auth.RememberToken) error {
	_, err := r.db.Exec(ctx, `
		INSERT INTO remember_tokens (id, account_id, handle, token_hash, issued_at, expires_at)
		VALUES ($1, $2, $3, $4, $5, $6)
	`, t.ID.String(), t.AccountID, t.Handle, t.TokenHash, t.IssuedAt, t.ExpiresAt)
	if err != nil {
		return oops.Code("REMEMBER_CREATE_FAILED").
			With("operation", "insert remember_token").
			With("account_id", t.AccountID).
			Wrap(account.NewStorageError("insert remember token", err))
	}
	return nil
}

// GetByTokenHash retrieves a token by the hash of its value.
func (r *RememberTokenRepository) GetByTokenHash(ctx context.Context, tokenHash string) (*auth.RememberToken, error) {
	row := r.db.QueryRow(ctx, `
		SELECT id, account_id, handle, token_hash, issued_at, expires_at
		FROM remember_tokens
		WHERE token_hash = $1
	`, tokenHash)

	t, err := scanToken(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("REMEMBER_NOT_FOUND").Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return t, nil
}

// DeleteByAccount removes every token of an account. Deleting none is
// not an error.
func (r *RememberTokenRepository) DeleteByAccount(ctx context.Context, accountID int64) error {
	_, err := r.db.Exec(ctx, `DELETE FROM remember_tokens WHERE account_id = $1`, accountID)
	if err != nil {
		return oops.Code("REMEMBER_DELETE_FAILED").
			With("operation", "delete remember_tokens by account").
			With("account_id", accountID).
			Wrap(account.NewStorageError("delete remember tokens", err))
	}
	return nil
}

// DeleteExpired removes tokens expired at now and returns the count.
func (r *RememberTokenRepository) DeleteExpired(ctx context.Context, now time.Time) (int64, error) {
	result, err := r.db.Exec(ctx, `DELETE FROM remember_tokens WHERE expires_at <= $1`, now)
	if err != nil {
		return 0, oops.Code("REMEMBER_DELETE_EXPIRED_FAILED").
			With("operation", "delete expired remember_tokens").
			Wrap(account.NewStorageError("delete expired remember tokens", err))
	}
	return result.RowsAffected(), nil
}

// scanToken scans one row. pgx.ErrNoRows is returned unwrapped.
func scanToken(row pgx.Row) (*auth.RememberToken, error) {
	var (
		idStr string
		t     auth.RememberToken
	)
	err := row.Scan(&idStr, &t.AccountID, &t.Handle, &t.TokenHash, &t.IssuedAt, &t.ExpiresAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // callers wrap with context
		}
		return nil, oops.Code("REMEMBER_SCAN_FAILED").
			With("operation", "scan remember_token").
			Wrap(account.NewStorageError("scan remember token", err))
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("REMEMBER_INVALID_ID").
			With("id", idStr).
			Wrap(err)
	}
	t.ID = id
	return &t, nil
}

// Compile-time interface check.
var _ auth.RememberTokenStore = (*RememberTokenRepository)(nil)
