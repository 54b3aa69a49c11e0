// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

// Package authtest provides an in-memory UserRepository for tests.
package authtest

import (
	"context"
	"strings"
	"sync"

	"github.com/samber/oops"

	"github.com/folkvault/folkvault/internal/auth"
)

// UserRepo is an in-memory auth.UserRepository. It enforces the same
// email and username uniqueness the Postgres schema does, surfacing
// violations as auth.ErrEmailTaken / auth.ErrUsernameTaken.
type UserRepo struct {
	mu    sync.Mutex
	users map[string]*auth.User // keyed by lowercased email
}

// NewUserRepo creates an empty repository.
func NewUserRepo() *UserRepo {
	return &UserRepo{users: make(map[string]*auth.User)}
}

// Seed inserts users directly, bypassing uniqueness checks. Intended for
// test setup only.
func (r *UserRepo) Seed(users ...*auth.User) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for _, u := range users {
		clone := *u
		r.users[strings.ToLower(u.Email)] = &clone
	}
}

// Create stores a new user.
func (r *UserRepo) Create(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, ok := r.users[key]; ok {
		return oops.Code("AUTH_EMAIL_TAKEN").Wrap(auth.ErrEmailTaken)
	}
	if user.Username != "" && r.usernameHeldLocked(user.Username, "") {
		return oops.Code("AUTH_USERNAME_TAKEN").Wrap(auth.ErrUsernameTaken)
	}

	clone := *user
	r.users[key] = &clone
	return nil
}

// GetByEmail retrieves a user by email (case-insensitive).
func (r *UserRepo) GetByEmail(_ context.Context, email string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	u, ok := r.users[strings.ToLower(email)]
	if !ok {
		return nil, oops.Code("AUTH_USER_NOT_FOUND").
			With("email", email).
			Wrap(auth.ErrNotFound)
	}
	clone := *u
	return &clone, nil
}

// GetByUsername retrieves a user by username.
func (r *UserRepo) GetByUsername(_ context.Context, username string) (*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, u := range r.users {
		if u.Username == username {
			clone := *u
			return &clone, nil
		}
	}
	return nil, oops.Code("AUTH_USER_NOT_FOUND").
		With("username", username).
		Wrap(auth.ErrNotFound)
}

// ExistsByUsername checks if any user holds the given handle.
func (r *UserRepo) ExistsByUsername(_ context.Context, username string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.usernameHeldLocked(username, ""), nil
}

// Update updates an existing user, matched by email.
func (r *UserRepo) Update(_ context.Context, user *auth.User) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	key := strings.ToLower(user.Email)
	if _, ok := r.users[key]; !ok {
		return oops.Code("AUTH_USER_NOT_FOUND").Wrap(auth.ErrNotFound)
	}
	if user.Username != "" && r.usernameHeldLocked(user.Username, key) {
		return oops.Code("AUTH_USERNAME_TAKEN").Wrap(auth.ErrUsernameTaken)
	}

	clone := *user
	r.users[key] = &clone
	return nil
}

// ListAll returns every user.
func (r *UserRepo) ListAll(_ context.Context) ([]*auth.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make([]*auth.User, 0, len(r.users))
	for _, u := range r.users {
		clone := *u
		out = append(out, &clone)
	}
	return out, nil
}

// usernameHeldLocked reports whether a user other than exceptKey holds the
// handle. Callers must hold r.mu.
func (r *UserRepo) usernameHeldLocked(username, exceptKey string) bool {
	for key, u := range r.users {
		if key == exceptKey {
			continue
		}
		if u.Username == username {
			return true
		}
	}
	return false
}

// Compile-time interface check.
var _ auth.UserRepository = (*UserRepo)(nil)
