// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"encoding/hex"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/holomush/admindesk/internal/account"
)

// Session token configuration.
const (
	SessionTokenBytes         = 32 // 64 hex chars
	DefaultSessionIdleTimeout = 30 * time.Minute
)

// Session is an authenticated console session. It exists only inside a
// SessionRegistry and ends on logout or idle timeout.
type Session struct {
	ID         ulid.ULID
	TokenHash  string
	AccountID  int64
	Handle     string
	Roles      account.RoleSet
	CreatedAt  time.Time
	LastSeenAt time.Time
}

// Identity returns the acting identity carried by the session.
func (s *Session) Identity() account.Identity {
	return account.Identity{ID: s.AccountID, Handle: s.Handle, Roles: s.Roles.Clone()}
}

// newSession binds a fresh session to a.
func newSession(a *account.Account, tokenHash string, now time.Time) (*Session, error) {
	if a == nil || a.ID == 0 {
		return nil, oops.Code("SESSION_INVALID_ACCOUNT").Errorf("account must be saved before a session can be bound")
	}
	if tokenHash == "" {
		return nil, oops.Code("SESSION_INVALID_HASH").Errorf("token hash cannot be empty")
	}
	return &Session{
		ID:         ulid.Make(),
		TokenHash:  tokenHash,
		AccountID:  a.ID,
		Handle:     a.Handle,
		Roles:      a.Roles.Clone(),
		CreatedAt:  now,
		LastSeenAt: now,
	}, nil
}

// GenerateSessionToken creates a random token and its hash.
// The plaintext goes to the client; only the hash is kept.
func GenerateSessionToken() (token, hash string, err error) {
	tokenBytes := make([]byte, SessionTokenBytes)
	if _, err = rand.Read(tokenBytes); err != nil {
		return "", "", oops.Code("SESSION_TOKEN_GENERATE_FAILED").
			With("requested_bytes", SessionTokenBytes).
			Wrap(err)
	}
	token = hex.EncodeToString(tokenBytes)
	return token, HashToken(token), nil
}

// HashToken computes the hex SHA-256 of a session or remember token.
func HashToken(token string) string {
	h := sha256.Sum256([]byte(token))
	return hex.EncodeToString(h[:])
}

// SessionRegistry holds live sessions.
type SessionRegistry interface {
	// Put registers a session.
	Put(ctx context.Context, s *Session) error

	// Touch returns the session for tokenHash and refreshes its idle
	// timer. Unknown or idle sessions yield ErrSessionInvalid.
	Touch(ctx context.Context, tokenHash string, now time.Time) (*Session, error)

	// Remove ends one session. Removing an unknown session is not an error.
	Remove(ctx context.Context, id ulid.ULID) error

	// RemoveAccount ends every session of an account and returns how many.
	RemoveAccount(ctx context.Context, accountID int64) (int, error)
}

// MemorySessionRegistry keeps sessions in process memory. Idle sessions
// are dropped lazily when looked up.
type MemorySessionRegistry struct {
	mu          sync.Mutex
	idleTimeout time.Duration
	byHash      map[string]*Session
}

// NewMemorySessionRegistry creates a registry. A non-positive timeout
// uses DefaultSessionIdleTimeout.
func NewMemorySessionRegistry(idleTimeout time.Duration) *MemorySessionRegistry {
	if idleTimeout <= 0 {
		idleTimeout = DefaultSessionIdleTimeout
	}
	return &MemorySessionRegistry{
		idleTimeout: idleTimeout,
		byHash:      make(map[string]*Session),
	}
}

// Put implements SessionRegistry.
func (r *MemorySessionRegistry) Put(_ context.Context, s *Session) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byHash[s.TokenHash] = s
	return nil
}

// Touch implements SessionRegistry.
func (r *MemorySessionRegistry) Touch(_ context.Context, tokenHash string, now time.Time) (*Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.byHash[tokenHash]
	if !ok {
		return nil, oops.Code("SESSION_INVALID").Wrap(ErrSessionInvalid)
	}
	if now.Sub(s.LastSeenAt) >= r.idleTimeout {
		delete(r.byHash, tokenHash)
		return nil, oops.Code("SESSION_INVALID").
			With("session_id", s.ID.String()).
			With("reason", "idle").
			Wrap(ErrSessionInvalid)
	}
	s.LastSeenAt = now
	out := *s
	out.Roles = s.Roles.Clone()
	return &out, nil
}

// Remove implements SessionRegistry.
func (r *MemorySessionRegistry) Remove(_ context.Context, id ulid.ULID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	for hash, s := range r.byHash {
		if s.ID == id {
			delete(r.byHash, hash)
		}
	}
	return nil
}

// RemoveAccount implements SessionRegistry.
func (r *MemorySessionRegistry) RemoveAccount(_ context.Context, accountID int64) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for hash, s := range r.byHash {
		if s.AccountID == accountID {
			delete(r.byHash, hash)
			n++
		}
	}
	return n, nil
}

// Len returns the number of registered sessions, idle ones included.
func (r *MemorySessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.byHash)
}

// Compile-time interface check.
var _ SessionRegistry = (*MemorySessionRegistry)(nil)
