// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a requested account does not exist.
	ErrNotFound = errors.New("not found")

	// ErrDuplicate is returned when a handle or email is already taken.
	ErrDuplicate = errors.New("duplicate account")

	// ErrStale is returned when an update races a concurrent update.
	ErrStale = errors.New("account was modified concurrently")
)

// StorageError reports a fault in the underlying store. It is distinct
// from ErrNotFound: a missing row is an answer, a StorageError is not.
type StorageError struct {
	Op  string
	Err error
}

// NewStorageError wraps err as a storage fault for op.
func NewStorageError(op string, err error) *StorageError {
	return &StorageError{Op: op, Err: err}
}

func (e *StorageError) Error() string {
	return fmt.Sprintf("storage: %s: %v", e.Op, e.Err)
}

func (e *StorageError) Unwrap() error {
	return e.Err
}

// IsStorage reports whether err contains a StorageError.
func IsStorage(err error) bool {
	var se *StorageError
	return errors.As(err, &se)
}
