// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

package auth

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// RoleUser is the default role assigned at registration. The role set is
// open; legacy rows may carry no role at all.
const RoleUser = "USER"

// Theme preference values. Stored uppercase; compared case-insensitively.
const (
	ThemeDark   = "DARK"
	ThemeLight  = "LIGHT"
	ThemeSystem = "SYSTEM"
)

// User represents an account record.
//
// Email is the login key and never changes after registration. Username is
// the user-facing handle; it may be empty on legacy rows until backfilled.
type User struct {
	ID              ulid.ULID
	Email           string
	PasswordHash    string
	Role            string
	Username        string
	ThemePreference string
	AvatarURL       string
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

// EffectiveRole returns the stored role, defaulting to RoleUser for legacy
// rows that predate role assignment.
func (u *User) EffectiveRole() string {
	if u.Role == "" {
		return RoleUser
	}
	return u.Role
}

// EffectiveTheme returns the stored theme preference normalized to
// uppercase, defaulting to ThemeSystem when unset.
func (u *User) EffectiveTheme() string {
	if u.ThemePreference == "" {
		return ThemeSystem
	}
	return strings.ToUpper(u.ThemePreference)
}

// HasUsername reports whether the user holds a non-blank handle.
func (u *User) HasUsername() bool {
	return strings.TrimSpace(u.Username) != ""
}

// NormalizeTheme uppercases a theme preference and reports whether it is
// one of the recognized values.
func NormalizeTheme(theme string) (string, bool) {
	normalized := strings.ToUpper(strings.TrimSpace(theme))
	switch normalized {
	case ThemeDark, ThemeLight, ThemeSystem:
		return normalized, true
	}
	return normalized, false
}

// UserRepository manages user persistence.
//
// Create and Update surface uniqueness violations as errors wrapping
// ErrEmailTaken or ErrUsernameTaken so callers can react without crashing.
type UserRepository interface {
	// Create stores a new user.
	Create(ctx context.Context, user *User) error

	// GetByEmail retrieves a user by email (case-insensitive).
	// Returns an error wrapping ErrNotFound if no user has the given email.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// GetByUsername retrieves a user by username.
	// Returns an error wrapping ErrNotFound if no user holds the handle.
	GetByUsername(ctx context.Context, username string) (*User, error)

	// ExistsByUsername checks if any user holds the given handle.
	ExistsByUsername(ctx context.Context, username string) (bool, error)

	// Update updates an existing user.
	Update(ctx context.Context, user *User) error

	// ListAll returns every user. Used only by the startup backfill.
	ListAll(ctx context.Context) ([]*User, error)
}
