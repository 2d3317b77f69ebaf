// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package directory

import (
	"context"
	"errors"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/samber/oops"

	"github.com/holomush/admindesk/internal/access"
	"github.com/holomush/admindesk/internal/account"
)

var (
	// ErrForbidden is returned when the actor's roles do not allow an operation.
	ErrForbidden = errors.New("operation not permitted")

	// ErrSelfTarget is returned when an actor targets its own account with
	// a destructive operation.
	ErrSelfTarget = errors.New("cannot target your own account")
)

// Query outcome labels passed to an Observer.
const (
	StatusOK      = "ok"
	StatusInvalid = "invalid"
	StatusError   = "error"
)

// Observer receives one call per List.
type Observer interface {
	ObserveDirectoryQuery(status string, elapsed time.Duration)
}

type nopObserver struct{}

func (nopObserver) ObserveDirectoryQuery(string, time.Duration) {}

// Engine runs listing queries and administrative actions against an
// account.Store.
type Engine struct {
	accounts account.Store
	policy   access.Checker
	maxLimit int
	observer Observer
	logger   *slog.Logger
}

// EngineOption configures an Engine.
type EngineOption func(*Engine)

// WithMaxLimit clamps page sizes. Non-positive values mean DefaultMaxLimit.
func WithMaxLimit(n int) EngineOption {
	return func(e *Engine) { e.maxLimit = n }
}

// WithObserver records query outcomes and latency.
func WithObserver(o Observer) EngineOption {
	return func(e *Engine) { e.observer = o }
}

// WithLogger sets the logger.
func WithLogger(l *slog.Logger) EngineOption {
	return func(e *Engine) { e.logger = l }
}

// NewEngine creates an Engine. A nil policy uses access.NewStaticPolicy.
func NewEngine(accounts account.Store, policy access.Checker, opts ...EngineOption) (*Engine, error) {
	if accounts == nil {
		return nil, oops.Code("DIRECTORY_INVALID_DEPS").Errorf("account store is required")
	}
	if policy == nil {
		policy = access.NewStaticPolicy()
	}
	e := &Engine{
		accounts: accounts,
		policy:   policy,
		maxLimit: DefaultMaxLimit,
		observer: nopObserver{},
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(e)
	}
	return e, nil
}

// List returns one page of accounts and the total matching count. Invalid
// queries are rejected before the store is consulted.
func (e *Engine) List(ctx context.Context, q Query) (*Result, error) {
	start := time.Now()

	plan, err := Normalize(q, e.maxLimit)
	if err != nil {
		e.observer.ObserveDirectoryQuery(StatusInvalid, time.Since(start))
		return nil, err
	}

	rows, err := e.accounts.QueryPage(ctx, plan.Predicate, plan.Sort, plan.Offset, plan.Limit)
	if err != nil {
		e.observer.ObserveDirectoryQuery(StatusError, time.Since(start))
		return nil, oops.Code("DIRECTORY_QUERY_FAILED").With("operation", "query page").Wrap(err)
	}
	total, err := e.accounts.CountMatching(ctx, plan.Predicate)
	if err != nil {
		e.observer.ObserveDirectoryQuery(StatusError, time.Since(start))
		return nil, oops.Code("DIRECTORY_QUERY_FAILED").With("operation", "count").Wrap(err)
	}

	e.observer.ObserveDirectoryQuery(StatusOK, time.Since(start))
	return &Result{Accounts: rows, Total: total, Offset: plan.Offset, Limit: plan.Limit}, nil
}

// RowKey returns the stable row identity of a: its decimal ID.
func RowKey(a *account.Account) string {
	return strconv.FormatInt(a.ID, 10)
}

// RowKey is a method form of the package function for callers holding an Engine.
func (e *Engine) RowKey(a *account.Account) string {
	return RowKey(a)
}

// ResolveRow is the inverse of RowKey. Malformed and unknown keys yield
// (nil, nil); only storage faults are errors.
func (e *Engine) ResolveRow(ctx context.Context, key string) (*account.Account, error) {
	id, err := strconv.ParseInt(strings.TrimSpace(key), 10, 64)
	if err != nil || id <= 0 {
		return nil, nil
	}
	a, err := e.accounts.FindByID(ctx, id)
	if errors.Is(err, account.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, oops.Code("DIRECTORY_RESOLVE_FAILED").With("key", key).Wrap(err)
	}
	return a, nil
}

// authorize checks the policy and, for destructive actions, self-targeting.
// The self check comes first so it holds regardless of roles or store state.
func (e *Engine) authorize(actor account.Identity, action string, id int64, protectSelf bool) error {
	if protectSelf && !actor.IsZero() && actor.ID == id {
		return oops.Code("DIRECTORY_SELF_TARGET").
			With("action", action).
			With("account_id", id).
			Wrap(ErrSelfTarget)
	}
	if !e.policy.Check(actor, action, access.AccountResource(id)) {
		return oops.Code("DIRECTORY_FORBIDDEN").
			With("action", action).
			With("actor", actor.Handle).
			With("account_id", id).
			Wrap(ErrForbidden)
	}
	return nil
}

// Delete removes the account id on behalf of actor.
func (e *Engine) Delete(ctx context.Context, actor account.Identity, id int64) error {
	if err := e.authorize(actor, access.ActionDelete, id, true); err != nil {
		return err
	}
	if err := e.accounts.Delete(ctx, id); err != nil {
		return oops.Code("DIRECTORY_DELETE_FAILED").With("account_id", id).Wrap(err)
	}
	e.logger.InfoContext(ctx, "account deleted", "actor", actor.Handle, "account_id", id)
	return nil
}

// DeleteMany removes every account in ids. The whole batch is rejected
// before any deletion if it names the actor or a forbidden target.
// Accounts that are already gone are skipped. It returns how many were
// deleted.
func (e *Engine) DeleteMany(ctx context.Context, actor account.Identity, ids []int64) (int, error) {
	for _, id := range ids {
		if err := e.authorize(actor, access.ActionDelete, id, true); err != nil {
			return 0, err
		}
	}

	deleted := 0
	for _, id := range ids {
		err := e.accounts.Delete(ctx, id)
		switch {
		case err == nil:
			deleted++
		case errors.Is(err, account.ErrNotFound):
		default:
			return deleted, oops.Code("DIRECTORY_DELETE_FAILED").
				With("account_id", id).
				With("deleted", deleted).
				Wrap(err)
		}
	}
	e.logger.InfoContext(ctx, "accounts deleted", "actor", actor.Handle, "requested", len(ids), "deleted", deleted)
	return deleted, nil
}

// Unlock clears the lock and failure counter of account id.
func (e *Engine) Unlock(ctx context.Context, actor account.Identity, id int64) error {
	if err := e.authorize(actor, access.ActionUnlock, id, false); err != nil {
		return err
	}
	if err := e.accounts.Unlock(ctx, id); err != nil {
		return oops.Code("DIRECTORY_UNLOCK_FAILED").With("account_id", id).Wrap(err)
	}
	e.logger.InfoContext(ctx, "account unlocked", "actor", actor.Handle, "account_id", id)
	return nil
}

// SetActive enables or disables sign-in for account id. An actor may
// activate but never deactivate itself.
func (e *Engine) SetActive(ctx context.Context, actor account.Identity, id int64, active bool) error {
	if err := e.authorize(actor, access.ActionActivate, id, !active); err != nil {
		return err
	}
	if err := e.accounts.SetActive(ctx, id, active); err != nil {
		return oops.Code("DIRECTORY_SET_ACTIVE_FAILED").With("account_id", id).Wrap(err)
	}
	e.logger.InfoContext(ctx, "account active flag changed", "actor", actor.Handle, "account_id", id, "active", active)
	return nil
}

// CanList reports whether actor may list the directory.
func (e *Engine) CanList(actor account.Identity) bool {
	return e.policy.Check(actor, access.ActionList, access.ResourceAccount+"*")
}

// CanRead reports whether actor may view account id.
func (e *Engine) CanRead(actor account.Identity, id int64) bool {
	return e.policy.Check(actor, access.ActionRead, access.AccountResource(id))
}
