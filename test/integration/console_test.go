// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package integration

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/cookiejar"
	"net/http/httptest"
	"time"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention

	"github.com/holomush/admindesk/internal/access"
	"github.com/holomush/admindesk/internal/account"
	accountpg "github.com/holomush/admindesk/internal/account/postgres"
	"github.com/holomush/admindesk/internal/auth"
	authpg "github.com/holomush/admindesk/internal/auth/postgres"
	"github.com/holomush/admindesk/internal/directory"
	"github.com/holomush/admindesk/internal/web"
)

const password = "Secret1234"

type listPage struct {
	Accounts []struct {
		ID     int64  `json:"id"`
		Handle string `json:"handle"`
	} `json:"accounts"`
	Total int `json:"total"`
	Page  int `json:"page"`
	Pages int `json:"pages"`
}

var _ = Describe("Account console over PostgreSQL", func() {
	var (
		ctx      context.Context
		accounts *accountpg.AccountRepository
		codec    *auth.Argon2Codec
		server   *httptest.Server
	)

	addAccount := func(handle string, roles ...string) *account.Account {
		salt, err := codec.GenerateSalt()
		Expect(err).NotTo(HaveOccurred())
		digest, err := codec.Hash(password, salt)
		Expect(err).NotTo(HaveOccurred())
		a, err := account.NewAccount(handle, handle+"@example.com", "", "", digest, salt)
		Expect(err).NotTo(HaveOccurred())
		for _, r := range roles {
			a.Roles.Add(r)
		}
		_, err = accounts.Save(ctx, a)
		Expect(err).NotTo(HaveOccurred())
		return a
	}

	newClient := func() *http.Client {
		jar, err := cookiejar.New(nil)
		Expect(err).NotTo(HaveOccurred())
		return &http.Client{Jar: jar, Timeout: 10 * time.Second}
	}

	send := func(c *http.Client, method, path string, body any) *http.Response {
		var buf bytes.Buffer
		if body != nil {
			Expect(json.NewEncoder(&buf).Encode(body)).To(Succeed())
		}
		req, err := http.NewRequestWithContext(ctx, method, server.URL+path, &buf)
		Expect(err).NotTo(HaveOccurred())
		resp, err := c.Do(req)
		Expect(err).NotTo(HaveOccurred())
		DeferCleanup(resp.Body.Close)
		return resp
	}

	login := func(handle string) *http.Client {
		c := newClient()
		resp := send(c, http.MethodPost, "/auth/login", map[string]any{"handle": handle, "password": password})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))
		return c
	}

	BeforeEach(func() {
		ctx = context.Background()
		Expect(db.Truncate(ctx)).To(Succeed())

		accounts = accountpg.NewAccountRepository(db.Pool)
		codec = auth.NewArgon2Codec(auth.Argon2Params{Time: 1, Memory: 1024, Threads: 1, KeyLen: 32})
		authenticator, err := auth.NewAuthenticator(auth.Deps{
			Accounts: accounts,
			Tokens:   authpg.NewRememberTokenRepository(db.Pool),
			Sessions: auth.NewMemorySessionRegistry(time.Hour),
			Codec:    codec,
		}, auth.WithMaxFailedAttempts(3))
		Expect(err).NotTo(HaveOccurred())
		registrar, err := auth.NewRegistrar(accounts, codec, nil, nil)
		Expect(err).NotTo(HaveOccurred())
		engine, err := directory.NewEngine(accounts, access.NewStaticPolicy())
		Expect(err).NotTo(HaveOccurred())
		srv, err := web.NewServer(web.Deps{Auth: authenticator, Registrar: registrar, Directory: engine},
			web.Options{LoginBurst: 50})
		Expect(err).NotTo(HaveOccurred())

		server = httptest.NewServer(srv.Handler())
		DeferCleanup(server.Close)
	})

	It("pages through the directory in a stable order", func() {
		addAccount("root", access.DefaultAdminRole)
		for i := range 25 {
			addAccount(fmt.Sprintf("member%02d", i))
		}
		admin := login("root")

		seen := map[int64]bool{}
		for page := range 3 {
			resp := send(admin, http.MethodGet, fmt.Sprintf("/accounts/?offset=%d&limit=10&sort=handle", page*10), nil)
			Expect(resp.StatusCode).To(Equal(http.StatusOK))
			var got listPage
			Expect(json.NewDecoder(resp.Body).Decode(&got)).To(Succeed())
			Expect(got.Total).To(Equal(26))
			Expect(got.Page).To(Equal(page + 1))
			Expect(got.Pages).To(Equal(3))
			for _, a := range got.Accounts {
				Expect(seen).NotTo(HaveKey(a.ID))
				seen[a.ID] = true
			}
		}
		Expect(seen).To(HaveLen(26))
	})

	It("locks an account after repeated failures until an admin unlocks it", func() {
		addAccount("root", access.DefaultAdminRole)
		alice := addAccount("alice")
		anon := newClient()

		for range 3 {
			resp := send(anon, http.MethodPost, "/auth/login", map[string]any{"handle": "alice", "password": "wrong"})
			Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		}
		resp := send(anon, http.MethodPost, "/auth/login", map[string]any{"handle": "alice", "password": password})
		Expect(resp.StatusCode).To(Equal(http.StatusLocked))

		admin := login("root")
		resp = send(admin, http.MethodPost, fmt.Sprintf("/accounts/%d/unlock", alice.ID), nil)
		Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

		login("alice")
	})

	It("remembers the handle across sessions and forgets it when the account is deleted", func() {
		addAccount("root", access.DefaultAdminRole)
		alice := addAccount("alice")

		c := newClient()
		resp := send(c, http.MethodPost, "/auth/login", map[string]any{"handle": "alice", "password": password, "remember": true})
		Expect(resp.StatusCode).To(Equal(http.StatusOK))

		resp = send(c, http.MethodGet, "/auth/login", nil)
		var form struct {
			Handle   string `json:"handle"`
			Remember bool   `json:"remember"`
		}
		Expect(json.NewDecoder(resp.Body).Decode(&form)).To(Succeed())
		Expect(form.Handle).To(Equal("alice"))
		Expect(form.Remember).To(BeTrue())

		admin := login("root")
		resp = send(admin, http.MethodDelete, fmt.Sprintf("/accounts/%d", alice.ID), nil)
		Expect(resp.StatusCode).To(Equal(http.StatusNoContent))

		resp = send(c, http.MethodGet, "/auth/session", nil)
		Expect(resp.StatusCode).To(Equal(http.StatusUnauthorized))
		resp = send(c, http.MethodGet, "/auth/login", nil)
		form.Handle, form.Remember = "", false
		Expect(json.NewDecoder(resp.Body).Decode(&form)).To(Succeed())
		Expect(form.Remember).To(BeFalse())
	})

	It("registers an account and rejects a case-insensitive duplicate", func() {
		anon := newClient()
		req := map[string]any{
			"handle": "Newbie", "email": "newbie@example.com",
			"password": password, "confirm_password": password, "accept_terms": true,
		}
		resp := send(anon, http.MethodPost, "/auth/register", req)
		Expect(resp.StatusCode).To(Equal(http.StatusCreated))

		req["handle"] = "NEWBIE"
		req["email"] = "other@example.com"
		resp = send(anon, http.MethodPost, "/auth/register", req)
		Expect(resp.StatusCode).To(Equal(http.StatusConflict))

		login("newbie")
	})
})
