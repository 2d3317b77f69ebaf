// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package postgres implements account.Store on PostgreSQL.
package postgres

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgerrcode"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/samber/oops"

	"github.com/holomush/admindesk/internal/account"
	"github.com/holomush/admindesk/internal/store"
)

const accountColumns = `id, handle, email, first_name, last_name, password_hash, password_salt,
	active, roles, account_locked, locked_at, failed_attempts, created_at, last_login_at, version`

// AccountRepository implements account.Store using PostgreSQL.
type AccountRepository struct {
	db store.Querier
}

// NewAccountRepository creates a new AccountRepository.
func NewAccountRepository(db store.Querier) *AccountRepository {
	return &AccountRepository{db: db}
}

// FindByID retrieves an account by ID.
func (r *AccountRepository) FindByID(ctx context.Context, id int64) (*account.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE id = $1`, id)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("id", id).Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("id", id).
			Wrap(account.NewStorageError("find by id", err))
	}
	return a, nil
}

// FindByHandle retrieves an account by handle (case-insensitive).
func (r *AccountRepository) FindByHandle(ctx context.Context, handle string) (*account.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE LOWER(handle) = LOWER($1)`, handle)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("handle", handle).Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("handle", handle).
			Wrap(account.NewStorageError("find by handle", err))
	}
	return a, nil
}

// FindByEmail retrieves an account by email (case-insensitive).
func (r *AccountRepository) FindByEmail(ctx context.Context, email string) (*account.Account, error) {
	row := r.db.QueryRow(ctx, `SELECT `+accountColumns+` FROM accounts WHERE LOWER(email) = LOWER($1)`, email)
	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("email", email).Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_GET_FAILED").
			With("email", email).
			Wrap(account.NewStorageError("find by email", err))
	}
	return a, nil
}

// Save inserts or updates an account.
func (r *AccountRepository) Save(ctx context.Context, a *account.Account) (int64, error) {
	if a.ID == 0 {
		return r.insert(ctx, a)
	}
	return r.update(ctx, a)
}

func (r *AccountRepository) insert(ctx context.Context, a *account.Account) (int64, error) {
	err := r.db.QueryRow(ctx, `
		INSERT INTO accounts (
			handle, email, first_name, last_name, password_hash, password_salt,
			active, roles, account_locked, locked_at, failed_attempts, last_login_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		RETURNING id, created_at, version
	`,
		a.Handle, a.Email, a.FirstName, a.LastName, a.PasswordHash, a.PasswordSalt,
		a.Active, a.Roles.Slice(), a.Locked, a.LockedAt, a.FailedAttempts, a.LastLoginAt,
	).Scan(&a.ID, &a.CreatedAt, &a.Version)
	if err != nil {
		if isUniqueViolation(err) {
			return 0, oops.Code("ACCOUNT_DUPLICATE").
				With("handle", a.Handle).
				With("email", a.Email).
				Wrap(account.ErrDuplicate)
		}
		return 0, oops.Code("ACCOUNT_CREATE_FAILED").
			With("handle", a.Handle).
			Wrap(account.NewStorageError("insert account", err))
	}
	return a.ID, nil
}

func (r *AccountRepository) update(ctx context.Context, a *account.Account) (int64, error) {
	var version int64
	err := r.db.QueryRow(ctx, `
		UPDATE accounts SET
			handle = $2,
			email = $3,
			first_name = $4,
			last_name = $5,
			password_hash = $6,
			password_salt = $7,
			active = $8,
			roles = $9,
			account_locked = $10,
			locked_at = $11,
			failed_attempts = $12,
			last_login_at = $13,
			version = version + 1
		WHERE id = $1 AND version = $14
		RETURNING version
	`,
		a.ID, a.Handle, a.Email, a.FirstName, a.LastName, a.PasswordHash, a.PasswordSalt,
		a.Active, a.Roles.Slice(), a.Locked, a.LockedAt, a.FailedAttempts, a.LastLoginAt,
		a.Version,
	).Scan(&version)

	switch {
	case err == nil:
		a.Version = version
		return a.ID, nil
	case isUniqueViolation(err):
		return 0, oops.Code("ACCOUNT_DUPLICATE").
			With("id", a.ID).
			Wrap(account.ErrDuplicate)
	case errors.Is(err, pgx.ErrNoRows):
		return 0, r.missOrStale(ctx, a.ID, a.Version)
	default:
		return 0, oops.Code("ACCOUNT_UPDATE_FAILED").
			With("id", a.ID).
			Wrap(account.NewStorageError("update account", err))
	}
}

// missOrStale explains why a versioned UPDATE matched no row.
func (r *AccountRepository) missOrStale(ctx context.Context, id, version int64) error {
	var exists bool
	if err := r.db.QueryRow(ctx, `SELECT EXISTS(SELECT 1 FROM accounts WHERE id = $1)`, id).Scan(&exists); err != nil {
		return oops.Code("ACCOUNT_UPDATE_FAILED").
			With("id", id).
			Wrap(account.NewStorageError("check account exists", err))
	}
	if !exists {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", id).Wrap(account.ErrNotFound)
	}
	return oops.Code("ACCOUNT_STALE").
		With("id", id).
		With("version", version).
		Wrap(account.ErrStale)
}

// Delete removes an account. Remember tokens cascade.
func (r *AccountRepository) Delete(ctx context.Context, id int64) error {
	return r.execOne(ctx, "delete account", `DELETE FROM accounts WHERE id = $1`, id)
}

// RecordLoginOutcome updates counters in one statement so concurrent
// attempts cannot lose increments. A success against a row that another
// attempt has locked leaves the row untouched and returns it locked.
func (r *AccountRepository) RecordLoginOutcome(ctx context.Context, id int64, outcome account.LoginOutcome) (*account.Account, error) {
	var row pgx.Row
	if outcome.Success {
		row = r.db.QueryRow(ctx, `
			UPDATE accounts SET
				failed_attempts = CASE WHEN account_locked THEN failed_attempts ELSE 0 END,
				last_login_at = CASE WHEN account_locked THEN last_login_at ELSE $2 END,
				version = version + 1
			WHERE id = $1
			RETURNING `+accountColumns,
			id, outcome.At)
	} else {
		row = r.db.QueryRow(ctx, `
			UPDATE accounts SET
				failed_attempts = failed_attempts + 1,
				locked_at = CASE
					WHEN NOT account_locked AND $2 > 0 AND failed_attempts + 1 >= $2 THEN $3
					ELSE locked_at
				END,
				account_locked = account_locked OR ($2 > 0 AND failed_attempts + 1 >= $2),
				version = version + 1
			WHERE id = $1
			RETURNING `+accountColumns,
			id, outcome.MaxAttempts, outcome.At)
	}

	a, err := scanAccount(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("ACCOUNT_NOT_FOUND").With("id", id).Wrap(account.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("ACCOUNT_LOGIN_OUTCOME_FAILED").
			With("id", id).
			With("success", outcome.Success).
			Wrap(account.NewStorageError("record login outcome", err))
	}
	return a, nil
}

// Unlock clears lock state.
func (r *AccountRepository) Unlock(ctx context.Context, id int64) error {
	return r.execOne(ctx, "unlock account", `
		UPDATE accounts SET
			account_locked = FALSE,
			locked_at = NULL,
			failed_attempts = 0,
			version = version + 1
		WHERE id = $1
	`, id)
}

// SetActive toggles the active flag.
func (r *AccountRepository) SetActive(ctx context.Context, id int64, active bool) error {
	return r.execOne(ctx, "set account active", `
		UPDATE accounts SET active = $2, version = version + 1 WHERE id = $1
	`, id, active)
}

func (r *AccountRepository) execOne(ctx context.Context, op, sql string, id int64, args ...any) error {
	result, err := r.db.Exec(ctx, sql, append([]any{id}, args...)...)
	if err != nil {
		return oops.Code("ACCOUNT_WRITE_FAILED").
			With("operation", op).
			With("id", id).
			Wrap(account.NewStorageError(op, err))
	}
	if result.RowsAffected() == 0 {
		return oops.Code("ACCOUNT_NOT_FOUND").With("id", id).Wrap(account.ErrNotFound)
	}
	return nil
}

// QueryPage returns one page of matching accounts.
func (r *AccountRepository) QueryPage(ctx context.Context, pred account.Predicate, sort account.Sort, offset, limit int) ([]*account.Account, error) {
	sql, args, err := buildPageQuery(pred, sort, offset, limit)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.Query(ctx, sql, args...)
	if err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").
			With("offset", offset).
			With("limit", limit).
			Wrap(account.NewStorageError("query page", err))
	}
	defer rows.Close()

	page := make([]*account.Account, 0, limit)
	for rows.Next() {
		a, err := scanAccount(rows)
		if err != nil {
			return nil, oops.Code("ACCOUNT_LIST_FAILED").Wrap(account.NewStorageError("scan page", err))
		}
		page = append(page, a)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ACCOUNT_LIST_FAILED").Wrap(account.NewStorageError("iterate page", err))
	}
	return page, nil
}

// CountMatching counts accounts matching pred.
func (r *AccountRepository) CountMatching(ctx context.Context, pred account.Predicate) (int, error) {
	sql, args, err := buildCountQuery(pred)
	if err != nil {
		return 0, err
	}

	var n int64
	if err := r.db.QueryRow(ctx, sql, args...).Scan(&n); err != nil {
		return 0, oops.Code("ACCOUNT_COUNT_FAILED").Wrap(account.NewStorageError("count accounts", err))
	}
	return int(n), nil
}

// scanAccount scans one row. pgx.ErrNoRows is returned unwrapped.
func scanAccount(row pgx.Row) (*account.Account, error) {
	var (
		a           account.Account
		roles       []string
		lockedAt    *time.Time
		lastLoginAt *time.Time
	)
	err := row.Scan(
		&a.ID,
		&a.Handle,
		&a.Email,
		&a.FirstName,
		&a.LastName,
		&a.PasswordHash,
		&a.PasswordSalt,
		&a.Active,
		&roles,
		&a.Locked,
		&lockedAt,
		&a.FailedAttempts,
		&a.CreatedAt,
		&lastLoginAt,
		&a.Version,
	)
	if err != nil {
		return nil, err //nolint:wrapcheck // callers wrap with context
	}
	a.Roles = account.NewRoleSet(roles...)
	a.LockedAt = lockedAt
	a.LastLoginAt = lastLoginAt
	return &a, nil
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgerrcode.UniqueViolation
}

// Compile-time interface check.
var _ account.Store = (*AccountRepository)(nil)
