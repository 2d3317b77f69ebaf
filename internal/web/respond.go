// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"

	"github.com/holomush/admindesk/internal/account"
	"github.com/holomush/admindesk/internal/auth"
	"github.com/holomush/admindesk/internal/directory"
	"github.com/holomush/admindesk/pkg/errutil"
)

// Messages shown to clients. Login failures never say which part was wrong.
const (
	msgInvalidCredentials = "invalid handle or password"
	msgLockedOut          = "account is locked, try again later or contact an administrator"
	msgRateLimited        = "too many login attempts, slow down"
	msgUnauthenticated    = "login required"
	msgForbidden          = "not permitted"
	msgSelfTarget         = "you cannot do that to your own account"
	msgNotFound           = "not found"
	msgConflict           = "conflicts with an existing account"
	msgStale              = "account changed concurrently, reload and retry"
	msgBadRequest         = "invalid request"
	msgTimeout            = "storage did not answer in time"
	msgInternal           = "internal error"
)

type errorBody struct {
	Error string `json:"error"`
	Code  string `json:"code,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	//nolint:errcheck // client may disconnect
	json.NewEncoder(w).Encode(v)
}

func writeMessage(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorBody{Error: msg})
}

// statusFor maps a domain error to an HTTP status and client message.
func statusFor(err error) (int, string) {
	switch {
	case errors.Is(err, auth.ErrInvalidCredentials):
		return http.StatusUnauthorized, msgInvalidCredentials
	case errors.Is(err, auth.ErrLockedOut):
		return http.StatusLocked, msgLockedOut
	case errors.Is(err, auth.ErrSessionInvalid):
		return http.StatusUnauthorized, msgUnauthenticated
	case errors.Is(err, auth.ErrValidation), errors.Is(err, directory.ErrInvalidQuery):
		return http.StatusBadRequest, msgBadRequest
	case errors.Is(err, directory.ErrForbidden):
		return http.StatusForbidden, msgForbidden
	case errors.Is(err, directory.ErrSelfTarget):
		return http.StatusConflict, msgSelfTarget
	case errors.Is(err, account.ErrDuplicate):
		return http.StatusConflict, msgConflict
	case errors.Is(err, account.ErrStale):
		return http.StatusConflict, msgStale
	case errors.Is(err, account.ErrNotFound):
		return http.StatusNotFound, msgNotFound
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout, msgTimeout
	default:
		return http.StatusInternalServerError, msgInternal
	}
}

// writeError responds with the status for err. Server-side failures are
// logged; client errors carry their code for the caller.
func writeError(ctx context.Context, logger *slog.Logger, w http.ResponseWriter, err error) {
	status, msg := statusFor(err)
	body := errorBody{Error: msg}
	if status >= http.StatusInternalServerError {
		errutil.LogErrorContext(ctx, logger, "request failed", err)
	} else if status == http.StatusBadRequest || status == http.StatusConflict {
		body.Code = errutil.Code(err)
	}
	writeJSON(w, status, body)
}

func decodeJSON(r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(nil, r.Body, 1<<20))
	dec.DisallowUnknownFields()
	//nolint:wrapcheck // mapped to 400 by the caller
	return dec.Decode(v)
}
