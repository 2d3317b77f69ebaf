// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package directory lists and administers console accounts.
//
// A Query is plain data. Normalize turns it into a Plan without touching
// storage, rejecting unknown sort columns and filter keys. Engine.List
// runs the page and the count with the same predicate so totals never
// drift from pages.
//
// Mutating operations take the acting identity explicitly. An actor can
// never delete or deactivate its own account.
package directory
