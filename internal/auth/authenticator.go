// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/admindesk/internal/account"
)

// Lockout defaults.
const (
	DefaultMaxFailedAttempts = 5
	DefaultLockoutWindow     = 15 * time.Minute
)

// dummyDigest is verified when the handle is unknown so that response time
// does not reveal which handles exist. It matches no password.
//
//nolint:gosec // G101: not a credential
const dummyDigest = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

var dummySalt = make([]byte, SaltLength)

// Deps are the collaborators an Authenticator needs.
type Deps struct {
	Accounts account.Store
	Tokens   RememberTokenStore
	Sessions SessionRegistry
	Codec    PasswordCodec
}

// Authenticator signs accounts in and out and manages remember-me tokens.
type Authenticator struct {
	accounts    account.Store
	tokens      RememberTokenStore
	sessions    SessionRegistry
	codec       PasswordCodec
	maxAttempts int
	window      time.Duration
	now         func() time.Time
	logger      *slog.Logger
}

// Option configures an Authenticator.
type Option func(*Authenticator)

// WithMaxFailedAttempts sets how many consecutive failures lock an account.
func WithMaxFailedAttempts(n int) Option {
	return func(a *Authenticator) { a.maxAttempts = n }
}

// WithLockoutWindow sets how long a lock lasts. Zero means only an
// administrator can unlock.
func WithLockoutWindow(d time.Duration) Option {
	return func(a *Authenticator) { a.window = d }
}

// WithClock overrides time.Now.
func WithClock(now func() time.Time) Option {
	return func(a *Authenticator) { a.now = now }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) Option {
	return func(a *Authenticator) { a.logger = l }
}

// NewAuthenticator validates deps and applies opts.
func NewAuthenticator(deps Deps, opts ...Option) (*Authenticator, error) {
	switch {
	case deps.Accounts == nil:
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("account store is required")
	case deps.Tokens == nil:
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("remember token store is required")
	case deps.Sessions == nil:
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("session registry is required")
	case deps.Codec == nil:
		return nil, oops.Code("AUTH_INVALID_DEPS").Errorf("password codec is required")
	}

	a := &Authenticator{
		accounts:    deps.Accounts,
		tokens:      deps.Tokens,
		sessions:    deps.Sessions,
		codec:       deps.Codec,
		maxAttempts: DefaultMaxFailedAttempts,
		window:      DefaultLockoutWindow,
		now:         time.Now,
		logger:      slog.Default(),
	}
	for _, opt := range opts {
		opt(a)
	}
	return a, nil
}

func invalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Wrap(ErrInvalidCredentials)
}

// Authenticate checks handle and password and opens a session. It returns
// the session and the plaintext session token for the client.
//
// Unknown handles, inactive accounts and wrong passwords all fail with
// ErrInvalidCredentials. A locked account fails with ErrLockedOut even if
// the password is right. Storage faults are returned as they are.
func (a *Authenticator) Authenticate(ctx context.Context, handle, password string) (*Session, string, error) {
	acct, err := a.accounts.FindByHandle(ctx, handle)
	if err != nil && !errors.Is(err, account.ErrNotFound) {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "find account").
			Wrap(err)
	}

	digest, salt := dummyDigest, dummySalt
	if acct != nil {
		digest, salt = acct.PasswordHash, acct.PasswordSalt
	}

	// Always verify so that every path costs one key derivation.
	valid, verifyErr := a.codec.Verify(password, digest, salt)

	if acct == nil || !acct.Active {
		a.logger.InfoContext(ctx, "login rejected", "handle", handle, "reason", "unknown or inactive")
		return nil, "", invalidCredentials()
	}
	if verifyErr != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			With("account_id", acct.ID).
			Wrap(verifyErr)
	}

	now := a.now()
	if acct.Locked {
		if !acct.LockExpired(a.window, now) {
			a.logger.InfoContext(ctx, "login rejected", "account_id", acct.ID, "reason", "locked")
			return nil, "", oops.Code("AUTH_ACCOUNT_LOCKED").
				With("account_id", acct.ID).
				With("locked_at", acct.LockedAt).
				Wrap(ErrLockedOut)
		}
		if err := a.accounts.Unlock(ctx, acct.ID); err != nil {
			return nil, "", oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "expire lock").
				With("account_id", acct.ID).
				Wrap(err)
		}
		a.logger.InfoContext(ctx, "lockout window elapsed", "account_id", acct.ID)
	}

	outcome := account.LoginOutcome{Success: valid, At: now, MaxAttempts: a.maxAttempts}
	updated, err := a.accounts.RecordLoginOutcome(ctx, acct.ID, outcome)
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "record login outcome").
			With("account_id", acct.ID).
			Wrap(err)
	}

	if !valid {
		a.logger.InfoContext(ctx, "login rejected",
			"account_id", acct.ID,
			"reason", "bad password",
			"failed_attempts", updated.FailedAttempts,
			"locked", updated.Locked)
		return nil, "", invalidCredentials()
	}

	if updated.IsLocked() {
		a.logger.InfoContext(ctx, "login rejected", "account_id", acct.ID, "reason", "locked concurrently")
		return nil, "", oops.Code("AUTH_ACCOUNT_LOCKED").
			With("account_id", acct.ID).
			With("locked_at", updated.LockedAt).
			Wrap(ErrLockedOut)
	}

	a.rehashIfNeeded(ctx, updated, password)

	token, hash, err := GenerateSessionToken()
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").With("operation", "generate session token").Wrap(err)
	}
	session, err := newSession(updated, hash, now)
	if err != nil {
		return nil, "", oops.Code("AUTH_LOGIN_FAILED").With("operation", "create session").Wrap(err)
	}
	if err := a.sessions.Put(ctx, session); err != nil {
		return nil, "", oops.Code("AUTH_SESSION_CREATE_FAILED").Wrap(err)
	}

	a.logger.InfoContext(ctx, "login succeeded", "account_id", updated.ID, "session_id", session.ID.String())
	return session, token, nil
}

// rehashIfNeeded upgrades a digest made with old parameters. Failure is
// logged and does not fail the login.
func (a *Authenticator) rehashIfNeeded(ctx context.Context, acct *account.Account, password string) {
	if !a.codec.NeedsRehash(acct.PasswordHash) {
		return
	}
	salt, err := a.codec.GenerateSalt()
	if err != nil {
		a.logger.WarnContext(ctx, "rehash skipped", "account_id", acct.ID, "error", err)
		return
	}
	digest, err := a.codec.Hash(password, salt)
	if err != nil {
		a.logger.WarnContext(ctx, "rehash skipped", "account_id", acct.ID, "error", err)
		return
	}
	acct.PasswordHash, acct.PasswordSalt = digest, salt
	if _, err := a.accounts.Save(ctx, acct); err != nil {
		a.logger.WarnContext(ctx, "rehash not saved", "account_id", acct.ID, "error", err)
	}
}

// Resume looks up the session for a plaintext session token.
func (a *Authenticator) Resume(ctx context.Context, token string) (*Session, error) {
	if token == "" {
		return nil, oops.Code("SESSION_INVALID").Wrap(ErrSessionInvalid)
	}
	//nolint:wrapcheck // registry errors already carry SESSION_INVALID
	return a.sessions.Touch(ctx, HashToken(token), a.now())
}

// IssueRememberToken creates a 30-day remember-me token for the session's
// account and returns the record and the plaintext cookie value.
func (a *Authenticator) IssueRememberToken(ctx context.Context, s *Session) (*RememberToken, string, error) {
	if s == nil {
		return nil, "", oops.Code("REMEMBER_INVALID_SESSION").Wrap(ErrSessionInvalid)
	}

	value, err := RandomToken(RememberTokenLength)
	if err != nil {
		return nil, "", oops.Code("REMEMBER_ISSUE_FAILED").With("operation", "generate value").Wrap(err)
	}
	token, err := newRememberToken(s, HashToken(value), a.now())
	if err != nil {
		return nil, "", err
	}
	if err := a.tokens.Create(ctx, token); err != nil {
		return nil, "", oops.Code("REMEMBER_ISSUE_FAILED").
			With("operation", "persist token").
			With("account_id", s.AccountID).
			Wrap(err)
	}
	return token, value, nil
}

// ResolveRememberToken returns the handle recorded for a remember-me value
// if it is known and unexpired. It never authenticates.
func (a *Authenticator) ResolveRememberToken(ctx context.Context, value string) (string, bool, error) {
	if value == "" {
		return "", false, nil
	}
	token, err := a.tokens.GetByTokenHash(ctx, HashToken(value))
	if errors.Is(err, account.ErrNotFound) {
		return "", false, nil
	}
	if err != nil {
		return "", false, oops.Code("REMEMBER_RESOLVE_FAILED").Wrap(err)
	}
	if token.ExpiredAt(a.now()) {
		return "", false, nil
	}
	return token.Handle, true, nil
}

// Logout ends the session and revokes the account's remember-me tokens.
func (a *Authenticator) Logout(ctx context.Context, s *Session) error {
	if s == nil {
		return nil
	}
	if err := a.sessions.Remove(ctx, s.ID); err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "remove session").
			With("session_id", s.ID.String()).
			Wrap(err)
	}
	if err := a.tokens.DeleteByAccount(ctx, s.AccountID); err != nil {
		return oops.Code("AUTH_LOGOUT_FAILED").
			With("operation", "revoke remember tokens").
			With("account_id", s.AccountID).
			Wrap(err)
	}
	a.logger.InfoContext(ctx, "logout", "account_id", s.AccountID, "session_id", s.ID.String())
	return nil
}

// EndAccountSessions ends every session of an account, for example after
// it is deleted or deactivated.
func (a *Authenticator) EndAccountSessions(ctx context.Context, accountID int64) error {
	if _, err := a.sessions.RemoveAccount(ctx, accountID); err != nil {
		return oops.Code("AUTH_END_SESSIONS_FAILED").With("account_id", accountID).Wrap(err)
	}
	if err := a.tokens.DeleteByAccount(ctx, accountID); err != nil {
		return oops.Code("AUTH_END_SESSIONS_FAILED").With("account_id", accountID).Wrap(err)
	}
	return nil
}

// PurgeExpiredTokens deletes remember-me tokens that have expired.
func (a *Authenticator) PurgeExpiredTokens(ctx context.Context) (int64, error) {
	n, err := a.tokens.DeleteExpired(ctx, a.now())
	if err != nil {
		return 0, oops.Code("REMEMBER_PURGE_FAILED").Wrap(err)
	}
	return n, nil
}

// ChangePassword replaces the password of the session's account after
// checking the current one.
func (a *Authenticator) ChangePassword(ctx context.Context, s *Session, current, next string) error {
	if s == nil {
		return oops.Code("SESSION_INVALID").Wrap(ErrSessionInvalid)
	}
	if !IsStrong(next) {
		return oops.Code("AUTH_WEAK_PASSWORD").Wrap(ErrValidation)
	}

	acct, err := a.accounts.FindByID(ctx, s.AccountID)
	if err != nil {
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").With("account_id", s.AccountID).Wrap(err)
	}
	ok, err := a.codec.Verify(current, acct.PasswordHash, acct.PasswordSalt)
	if err != nil {
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").With("account_id", acct.ID).Wrap(err)
	}
	if !ok {
		return invalidCredentials()
	}

	salt, err := a.codec.GenerateSalt()
	if err != nil {
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").Wrap(err)
	}
	digest, err := a.codec.Hash(next, salt)
	if err != nil {
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").Wrap(err)
	}
	acct.PasswordHash, acct.PasswordSalt = digest, salt
	if _, err := a.accounts.Save(ctx, acct); err != nil {
		return oops.Code("AUTH_CHANGE_PASSWORD_FAILED").With("account_id", acct.ID).Wrap(err)
	}

	// Remember-me pre-fill does not outlive the old password.
	if err := a.tokens.DeleteByAccount(ctx, acct.ID); err != nil {
		a.logger.WarnContext(ctx, "remember tokens not revoked", "account_id", acct.ID, "error", err)
	}
	return nil
}
