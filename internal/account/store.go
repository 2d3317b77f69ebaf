// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package account

import "context"

// Store persists accounts. Implementations must be safe for concurrent use.
type Store interface {
	// FindByID returns ErrNotFound when no account has id.
	FindByID(ctx context.Context, id int64) (*Account, error)

	// FindByHandle matches case-insensitively.
	FindByHandle(ctx context.Context, handle string) (*Account, error)

	// FindByEmail matches case-insensitively.
	FindByEmail(ctx context.Context, email string) (*Account, error)

	// Save inserts when a.ID is zero and updates otherwise. On insert the
	// assigned ID, CreatedAt and Version are written back into a. Updates
	// never change CreatedAt and fail with ErrStale if a.Version is old.
	Save(ctx context.Context, a *Account) (int64, error)

	// Delete removes an account and returns ErrNotFound if it was absent.
	Delete(ctx context.Context, id int64) error

	// RecordLoginOutcome atomically applies a login outcome to the stored
	// failure counter and lock state and returns the updated account.
	RecordLoginOutcome(ctx context.Context, id int64, outcome LoginOutcome) (*Account, error)

	// Unlock clears the lock flag and failure counter.
	Unlock(ctx context.Context, id int64) error

	// SetActive toggles whether the account may sign in.
	SetActive(ctx context.Context, id int64, active bool) error

	// QueryPage returns at most limit accounts matching pred, ordered by
	// sort then ID, skipping offset rows.
	QueryPage(ctx context.Context, pred Predicate, sort Sort, offset, limit int) ([]*Account, error)

	// CountMatching counts accounts matching pred.
	CountMatching(ctx context.Context, pred Predicate) (int, error)
}
