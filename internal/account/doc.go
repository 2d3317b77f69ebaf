// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 HoloMUSH Contributors

// Package account defines the console account model and the storage
// contract shared by authentication and the account directory.
//
// Accounts are identified by a store-assigned numeric ID. Handles and
// emails are unique regardless of letter case. The Store interface is
// implemented by the postgres and memory subpackages.
package account
