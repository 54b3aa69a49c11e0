// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

// Package auth provides the identity core for FolkVault: user accounts,
// password hashing, handle (username) policy, and the startup handle
// backfill.
//
// # Domain Types
//
// User is the canonical account record. Fields that legacy rows may lack
// (role, username, theme preference) are defaulted at read time via
// EffectiveRole and EffectiveTheme rather than migrated eagerly; missing
// handles are assigned lazily on first profile read or by the Backfiller.
//
// # Services
//
//   - Service - registration and login
//   - Generator - unique handle generation
//   - Backfiller - one-time pass assigning handles to pre-existing users
//
// Mutation happens only through these services; callers never write User
// fields directly.
package auth
