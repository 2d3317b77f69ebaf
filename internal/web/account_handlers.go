// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

package web

import (
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/holomush/admindesk/internal/account"
	"github.com/holomush/admindesk/internal/directory"
)

// filterPrefix marks listing filter parameters, e.g. filter.handle=al.
const filterPrefix = "filter."

type accountView struct {
	ID             int64      `json:"id"`
	Key            string     `json:"key"`
	Handle         string     `json:"handle"`
	Email          string     `json:"email"`
	FirstName      string     `json:"first_name"`
	LastName       string     `json:"last_name"`
	Active         bool       `json:"active"`
	Locked         bool       `json:"locked"`
	FailedAttempts int        `json:"failed_attempts"`
	Roles          []string   `json:"roles"`
	CreatedAt      time.Time  `json:"created_at"`
	LastLoginAt    *time.Time `json:"last_login_at,omitempty"`
}

func viewAccount(a *account.Account) accountView {
	return accountView{
		ID:             a.ID,
		Key:            directory.RowKey(a),
		Handle:         a.Handle,
		Email:          a.Email,
		FirstName:      a.FirstName,
		LastName:       a.LastName,
		Active:         a.Active,
		Locked:         a.Locked,
		FailedAttempts: a.FailedAttempts,
		Roles:          a.Roles.Slice(),
		CreatedAt:      a.CreatedAt,
		LastLoginAt:    a.LastLoginAt,
	}
}

type listView struct {
	Accounts []accountView `json:"accounts"`
	Total    int           `json:"total"`
	Offset   int           `json:"offset"`
	Limit    int           `json:"limit"`
	Page     int           `json:"page"`
	Pages    int           `json:"pages"`
}

// parseQuery turns URL parameters into a directory.Query. Shape errors
// are reported here; column checks are left to directory.Normalize.
func parseQuery(values url.Values) (directory.Query, bool) {
	q := directory.Query{Limit: directory.DefaultPageSize}

	if v := values.Get("offset"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, false
		}
		q.Offset = n
	}
	if v := values.Get("limit"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return q, false
		}
		q.Limit = n
	}
	if col := values.Get("sort"); col != "" {
		spec := &directory.SortSpec{Column: col}
		switch strings.ToLower(values.Get("dir")) {
		case "", "asc":
		case "desc":
			spec.Desc = true
		default:
			return q, false
		}
		q.Sort = spec
	}
	for key, vals := range values {
		col, ok := strings.CutPrefix(key, filterPrefix)
		if !ok || len(vals) == 0 {
			continue
		}
		if q.Filters == nil {
			q.Filters = make(map[string]string)
		}
		q.Filters[col] = vals[0]
	}
	return q, true
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	actor := sessionFrom(r.Context()).Identity()
	if !s.directory.CanList(actor) {
		writeMessage(w, http.StatusForbidden, msgForbidden)
		return
	}

	q, ok := parseQuery(r.URL.Query())
	if !ok {
		writeMessage(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	res, err := s.directory.List(r.Context(), q)
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}

	out := listView{
		Accounts: make([]accountView, 0, len(res.Accounts)),
		Total:    res.Total,
		Offset:   res.Offset,
		Limit:    res.Limit,
		Page:     res.Page(),
		Pages:    res.Pages(),
	}
	for _, a := range res.Accounts {
		out.Accounts = append(out.Accounts, viewAccount(a))
	}
	writeJSON(w, http.StatusOK, out)
}

// handleGet resolves a row key. Unknown and malformed keys are 404.
func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	a, err := s.directory.ResolveRow(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	actor := sessionFrom(r.Context()).Identity()
	if a == nil {
		if !s.directory.CanList(actor) {
			writeMessage(w, http.StatusForbidden, msgForbidden)
			return
		}
		writeMessage(w, http.StatusNotFound, msgNotFound)
		return
	}
	if !s.directory.CanRead(actor, a.ID) {
		writeMessage(w, http.StatusForbidden, msgForbidden)
		return
	}
	writeJSON(w, http.StatusOK, viewAccount(a))
}

func pathID(r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	return id, err == nil && id > 0
}

func (s *Server) handleDelete(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	actor := sessionFrom(r.Context()).Identity()
	if err := s.directory.Delete(r.Context(), actor, id); err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	s.endSessions(r, id)
	w.WriteHeader(http.StatusNoContent)
}

type bulkDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

type bulkDeleteResponse struct {
	Deleted int `json:"deleted"`
}

func (s *Server) handleBulkDelete(w http.ResponseWriter, r *http.Request) {
	var req bulkDeleteRequest
	if err := decodeJSON(r, &req); err != nil || len(req.IDs) == 0 {
		writeMessage(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	actor := sessionFrom(r.Context()).Identity()
	n, err := s.directory.DeleteMany(r.Context(), actor, req.IDs)
	if err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	for _, id := range req.IDs {
		s.endSessions(r, id)
	}
	writeJSON(w, http.StatusOK, bulkDeleteResponse{Deleted: n})
}

func (s *Server) handleUnlock(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	if err := s.directory.Unlock(r.Context(), sessionFrom(r.Context()).Identity(), id); err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type activeRequest struct {
	Active *bool `json:"active"`
}

func (s *Server) handleSetActive(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(r)
	if !ok {
		writeMessage(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	var req activeRequest
	if err := decodeJSON(r, &req); err != nil || req.Active == nil {
		writeMessage(w, http.StatusBadRequest, msgBadRequest)
		return
	}
	if err := s.directory.SetActive(r.Context(), sessionFrom(r.Context()).Identity(), id, *req.Active); err != nil {
		writeError(r.Context(), s.logger, w, err)
		return
	}
	if !*req.Active {
		s.endSessions(r, id)
	}
	w.WriteHeader(http.StatusNoContent)
}

// endSessions signs a removed or disabled account out everywhere. The
// administrative change already succeeded, so failure is only logged.
func (s *Server) endSessions(r *http.Request, id int64) {
	if err := s.auth.EndAccountSessions(r.Context(), id); err != nil {
		s.logger.WarnContext(r.Context(), "sessions not ended", "account_id", id, "error", err)
	}
}
