// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package auth authenticates console accounts.
//
// # Credentials
//
// PasswordCodec hashes passwords with argon2id under a per-account salt.
// IsStrong and RandomToken back registration and token issuance.
//
// # Sessions
//
// Authenticator.Authenticate verifies a handle and password, applies the
// lockout policy and registers a Session in a SessionRegistry. The caller
// receives an opaque token; only its SHA-256 hash is kept. Sessions are
// passed explicitly to every operation that needs one.
//
// # Remember me
//
// IssueRememberToken stores the hash of a random value for 30 days.
// ResolveRememberToken only recovers the handle to pre-fill a login form.
// It never creates a session.
//
// # Registration
//
// Registrar validates and creates self-service accounts.
package auth
