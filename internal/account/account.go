// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"regexp"
	"strings"
	"time"

	"github.com/samber/oops"
)

// Handle constraints.
const (
	HandleMinLength = 3
	HandleMaxLength = 50
	EmailMaxLength  = 254
	NameMaxLength   = 100
)

// DefaultRole is granted to every self-registered account.
const DefaultRole = "user"

var (
	handlePattern = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_.-]*$`)
	emailPattern  = regexp.MustCompile(`^[A-Za-z0-9._%+-]+@[A-Za-z0-9.-]+\.[A-Za-z]{2,63}$`)
)

// Account is a console user with credentials and lockout state.
type Account struct {
	ID             int64
	Handle         string
	Email          string
	FirstName      string
	LastName       string
	PasswordHash   string
	PasswordSalt   []byte
	Active         bool
	Roles          RoleSet
	Locked         bool
	LockedAt       *time.Time
	FailedAttempts int
	CreatedAt      time.Time
	LastLoginAt    *time.Time
	Version        int64
}

// NewAccount creates a validated, active, unsaved Account.
func NewAccount(handle, email, firstName, lastName, passwordHash string, salt []byte) (*Account, error) {
	if err := ValidateHandle(handle); err != nil {
		return nil, err
	}
	if err := ValidateEmail(email); err != nil {
		return nil, err
	}
	if passwordHash == "" || len(salt) == 0 {
		return nil, oops.Code("ACCOUNT_INVALID_PASSWORD").Errorf("password hash and salt are required")
	}
	if len(firstName) > NameMaxLength || len(lastName) > NameMaxLength {
		return nil, oops.Code("ACCOUNT_INVALID_NAME").
			With("max_length", NameMaxLength).
			Errorf("names cannot exceed %d characters", NameMaxLength)
	}

	return &Account{
		Handle:       handle,
		Email:        strings.TrimSpace(email),
		FirstName:    firstName,
		LastName:     lastName,
		PasswordHash: passwordHash,
		PasswordSalt: salt,
		Active:       true,
		Roles:        NewRoleSet(DefaultRole),
	}, nil
}

// ValidateHandle checks handle length and characters.
func ValidateHandle(handle string) error {
	if len(handle) < HandleMinLength || len(handle) > HandleMaxLength {
		return oops.Code("ACCOUNT_INVALID_HANDLE").
			With("handle", handle).
			Errorf("handle must be %d-%d characters", HandleMinLength, HandleMaxLength)
	}
	if !handlePattern.MatchString(handle) {
		return oops.Code("ACCOUNT_INVALID_HANDLE").
			With("handle", handle).
			Errorf("handle must start with a letter and contain only letters, digits, '_', '.' or '-'")
	}
	return nil
}

// ValidateEmail checks the email address format.
func ValidateEmail(email string) error {
	email = strings.TrimSpace(email)
	if email == "" || len(email) > EmailMaxLength || !emailPattern.MatchString(email) {
		return oops.Code("ACCOUNT_INVALID_EMAIL").
			With("email", email).
			Errorf("invalid email format")
	}
	return nil
}

// IsLocked reports whether the account is locked out.
func (a *Account) IsLocked() bool {
	return a.Locked
}

// LockExpired reports whether a lock has outlived window at now.
// A zero window means locks never expire on their own.
func (a *Account) LockExpired(window time.Duration, now time.Time) bool {
	if !a.Locked || window <= 0 || a.LockedAt == nil {
		return false
	}
	return !now.Before(a.LockedAt.Add(window))
}

// Identity returns the acting identity for this account.
func (a *Account) Identity() Identity {
	return Identity{ID: a.ID, Handle: a.Handle, Roles: a.Roles.Clone()}
}

// Identity is who is performing an operation. It is passed explicitly
// to every operation that needs an actor.
type Identity struct {
	ID     int64
	Handle string
	Roles  RoleSet
}

// IsZero reports whether the identity is unset.
func (i Identity) IsZero() bool {
	return i.ID == 0
}

// LoginOutcome describes one authentication attempt for RecordLoginOutcome.
type LoginOutcome struct {
	Success bool
	At      time.Time
	// MaxAttempts is the failure count at which the account locks.
	// Values <= 0 disable locking.
	MaxAttempts int
}

// Apply mutates a in place the way a store records the outcome.
// Stores that cannot express the update in a single statement use this
// while holding their own lock. A success leaves a locked account
// unchanged.
func (o LoginOutcome) Apply(a *Account) {
	if o.Success {
		if a.Locked {
			return
		}
		a.FailedAttempts = 0
		at := o.At
		a.LastLoginAt = &at
		return
	}
	a.FailedAttempts++
	if !a.Locked && o.MaxAttempts > 0 && a.FailedAttempts >= o.MaxAttempts {
		a.Locked = true
		at := o.At
		a.LockedAt = &at
	}
}
