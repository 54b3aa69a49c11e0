// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

package auth

import "errors"

// ErrNotFound is returned when a requested entity does not exist.
var ErrNotFound = errors.New("not found")

// ErrEmailTaken is wrapped by repository errors when an insert or update
// violates the email uniqueness constraint.
var ErrEmailTaken = errors.New("email already registered")

// ErrUsernameTaken is wrapped by repository errors when an insert or update
// violates the username uniqueness constraint.
var ErrUsernameTaken = errors.New("username already taken")
