// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package web serves the console's JSON HTTP API.
//
// Login sets an HTTP-only session cookie and, on request, a 30-day
// remember-me cookie. The remember-me cookie only pre-fills the handle on
// the login form; every account route requires a live session.
package web
