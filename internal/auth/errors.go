// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import "errors"

var (
	// ErrInvalidCredentials covers unknown handles, inactive accounts and
	// wrong passwords alike.
	ErrInvalidCredentials = errors.New("invalid handle or password")

	// ErrLockedOut is returned while an account is locked.
	ErrLockedOut = errors.New("account is locked")

	// ErrSessionInvalid is returned for unknown or idle sessions.
	ErrSessionInvalid = errors.New("session is not valid")

	// ErrValidation is wrapped by registration and password-change input errors.
	ErrValidation = errors.New("validation failed")
)
