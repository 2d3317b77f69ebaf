// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"

	"github.com/samber/oops"

	"github.com/holomush/admindesk/internal/account"
)

// VerificationTokenLength is the length of email verification tokens.
const VerificationTokenLength = 32

// RegistrationRequest is a self-service sign-up form.
type RegistrationRequest struct {
	Handle          string
	Email           string
	Password        string
	ConfirmPassword string
	FirstName       string
	LastName        string
	AcceptTerms     bool
}

// Registration is the result of a successful sign-up.
type Registration struct {
	Account           *account.Account
	VerificationToken string
}

// Notifier delivers the verification token to the new account holder.
type Notifier interface {
	SendVerification(ctx context.Context, a *account.Account, token string) error
}

// LogNotifier only logs that a verification would be sent.
type LogNotifier struct {
	Logger *slog.Logger
}

// SendVerification implements Notifier.
func (n LogNotifier) SendVerification(ctx context.Context, a *account.Account, _ string) error {
	logger := n.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger.InfoContext(ctx, "verification token issued", "account_id", a.ID, "email", a.Email)
	return nil
}

// Registrar creates accounts from registration requests.
type Registrar struct {
	accounts account.Store
	codec    PasswordCodec
	notifier Notifier
	logger   *slog.Logger
}

// NewRegistrar creates a Registrar. A nil notifier logs only.
func NewRegistrar(accounts account.Store, codec PasswordCodec, notifier Notifier, logger *slog.Logger) (*Registrar, error) {
	if accounts == nil {
		return nil, oops.Code("REGISTER_INVALID_DEPS").Errorf("account store is required")
	}
	if codec == nil {
		return nil, oops.Code("REGISTER_INVALID_DEPS").Errorf("password codec is required")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	return &Registrar{accounts: accounts, codec: codec, notifier: notifier, logger: logger}, nil
}

func validation(code, msg string) error {
	return oops.Code(code).With("reason", msg).Wrap(ErrValidation)
}

// Register validates req and creates an active account with the default
// role. Duplicate handles and emails are detected case-insensitively.
func (r *Registrar) Register(ctx context.Context, req RegistrationRequest) (*Registration, error) {
	if req.Password != req.ConfirmPassword {
		return nil, validation("REGISTER_PASSWORD_MISMATCH", "passwords do not match")
	}
	if !req.AcceptTerms {
		return nil, validation("REGISTER_TERMS_REQUIRED", "terms must be accepted")
	}
	if !IsStrong(req.Password) {
		return nil, validation("REGISTER_WEAK_PASSWORD", "password is too weak")
	}
	if err := account.ValidateHandle(req.Handle); err != nil {
		return nil, oops.Code("REGISTER_INVALID_HANDLE").Wrap(errors.Join(ErrValidation, err))
	}
	if err := account.ValidateEmail(req.Email); err != nil {
		return nil, oops.Code("REGISTER_INVALID_EMAIL").Wrap(errors.Join(ErrValidation, err))
	}

	free, err := r.HandleAvailable(ctx, req.Handle)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, oops.Code("REGISTER_HANDLE_TAKEN").With("handle", req.Handle).Wrap(account.ErrDuplicate)
	}
	free, err = r.EmailAvailable(ctx, req.Email)
	if err != nil {
		return nil, err
	}
	if !free {
		return nil, oops.Code("REGISTER_EMAIL_TAKEN").With("email", req.Email).Wrap(account.ErrDuplicate)
	}

	salt, err := r.codec.GenerateSalt()
	if err != nil {
		return nil, oops.Code("REGISTER_FAILED").With("operation", "generate salt").Wrap(err)
	}
	digest, err := r.codec.Hash(req.Password, salt)
	if err != nil {
		return nil, oops.Code("REGISTER_FAILED").With("operation", "hash password").Wrap(err)
	}

	acct, err := account.NewAccount(req.Handle, req.Email, req.FirstName, req.LastName, digest, salt)
	if err != nil {
		return nil, oops.Code("REGISTER_INVALID_ACCOUNT").Wrap(errors.Join(ErrValidation, err))
	}
	if _, err := r.accounts.Save(ctx, acct); err != nil {
		// A concurrent sign-up can still win the unique index.
		return nil, oops.Code("REGISTER_FAILED").With("operation", "save account").Wrap(err)
	}

	token, err := RandomToken(VerificationTokenLength)
	if err != nil {
		return nil, oops.Code("REGISTER_FAILED").With("operation", "verification token").Wrap(err)
	}
	if err := r.notifier.SendVerification(ctx, acct, token); err != nil {
		r.logger.WarnContext(ctx, "verification not sent", "account_id", acct.ID, "error", err)
	}

	r.logger.InfoContext(ctx, "account registered", "account_id", acct.ID, "handle", acct.Handle)
	return &Registration{Account: acct, VerificationToken: token}, nil
}

// HandleAvailable reports whether no account uses handle.
func (r *Registrar) HandleAvailable(ctx context.Context, handle string) (bool, error) {
	return r.available(ctx, "handle", func() error {
		_, err := r.accounts.FindByHandle(ctx, handle)
		return err
	})
}

// EmailAvailable reports whether no account uses email.
func (r *Registrar) EmailAvailable(ctx context.Context, email string) (bool, error) {
	return r.available(ctx, "email", func() error {
		_, err := r.accounts.FindByEmail(ctx, email)
		return err
	})
}

func (r *Registrar) available(_ context.Context, field string, lookup func() error) (bool, error) {
	err := lookup()
	switch {
	case err == nil:
		return false, nil
	case errors.Is(err, account.ErrNotFound):
		return true, nil
	default:
		return false, oops.Code("REGISTER_LOOKUP_FAILED").With("field", field).Wrap(err)
	}
}
