// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

//go:build integration

package cli_test

import (
	"context"
	"os"
	"path/filepath"

	. "github.com/onsi/ginkgo/v2" //nolint:revive // ginkgo convention
	. "github.com/onsi/gomega"    //nolint:revive // gomega convention
)

const seedYAML = `accounts:
  - handle: root
    email: root@example.com
    password: Change-me-123
    roles: [admin]
`

var _ = Describe("CLI", func() {
	var ctx context.Context

	BeforeEach(func() {
		ctx = context.Background()
		Expect(db.Truncate(ctx)).To(Succeed())
	})

	Describe("migrate status", func() {
		It("reports the schema as current", func() {
			out, err := admindesk(ctx, "migrate", "status")
			Expect(err).NotTo(HaveOccurred(), "migrate status failed: %s", out)
			Expect(out).To(ContainSubstring("No pending migrations"))
		})
	})

	Describe("seed", func() {
		var path string

		BeforeEach(func() {
			path = filepath.Join(GinkgoT().TempDir(), "seed.yaml")
			Expect(os.WriteFile(path, []byte(seedYAML), 0o600)).To(Succeed())
		})

		It("creates the listed accounts with their roles", func() {
			out, err := admindesk(ctx, "seed", path)
			Expect(err).NotTo(HaveOccurred(), "seed failed: %s", out)
			Expect(out).To(ContainSubstring("1 created"))

			var roles []string
			err = db.Pool.QueryRow(ctx, `SELECT roles FROM accounts WHERE handle = 'root'`).Scan(&roles)
			Expect(err).NotTo(HaveOccurred())
			Expect(roles).To(ContainElements("admin", "user"))
		})

		It("is idempotent (running twice succeeds without duplicates)", func() {
			out, err := admindesk(ctx, "seed", path)
			Expect(err).NotTo(HaveOccurred(), "first seed failed: %s", out)

			out, err = admindesk(ctx, "seed", path)
			Expect(err).NotTo(HaveOccurred(), "second seed failed: %s", out)
			Expect(out).To(ContainSubstring("0 created, 1 already present"))

			var count int
			Expect(db.Pool.QueryRow(ctx, `SELECT COUNT(*) FROM accounts`).Scan(&count)).To(Succeed())
			Expect(count).To(Equal(1))
		})
	})
})
