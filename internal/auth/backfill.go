// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// Backfiller assigns handles to users that predate the username field.
//
// It may run concurrently with live registrations: uniqueness is probed
// against the store's current state at the moment of each write, and a
// conflicting write is retried with a fresh candidate rather than crashing.
type Backfiller struct {
	users     UserRepository
	generator *Generator
	logger    *slog.Logger
}

// NewBackfiller creates a Backfiller.
func NewBackfiller(users UserRepository, logger *slog.Logger) (*Backfiller, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	generator, err := NewGenerator(users)
	if err != nil {
		return nil, err
	}
	return &Backfiller{users: users, generator: generator, logger: logger}, nil
}

// Run walks all users and fills in missing handles. It returns the number
// of handles assigned. A failure on one user aborts the pass; the pass is
// safe to re-run since users already holding a handle are skipped.
func (b *Backfiller) Run(ctx context.Context) (int, error) {
	users, err := b.users.ListAll(ctx)
	if err != nil {
		return 0, oops.Code("BACKFILL_FAILED").
			With("operation", "list users").
			Wrap(err)
	}

	assigned := 0
	for _, user := range users {
		if user.HasUsername() {
			continue
		}
		if err := b.assignHandle(ctx, user); err != nil {
			return assigned, oops.Code("BACKFILL_FAILED").
				With("email", user.Email).
				Wrap(err)
		}
		assigned++
		b.logger.Info("backfilled username",
			"email", user.Email,
			"username", user.Username,
		)
	}

	return assigned, nil
}

// assignHandle generates and persists a handle for one user, retrying when
// a concurrent writer commits the same candidate first.
func (b *Backfiller) assignHandle(ctx context.Context, user *User) error {
	backoff := retry.WithMaxRetries(usernameCommitRetries, retry.NewConstant(5*time.Millisecond))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		handle, genErr := b.generator.Generate(ctx, DefaultHandleSeed)
		if genErr != nil {
			return genErr
		}
		user.Username = handle
		user.UpdatedAt = time.Now().UTC()
		if updateErr := b.users.Update(ctx, user); updateErr != nil {
			if errors.Is(updateErr, ErrUsernameTaken) {
				return retry.RetryableError(updateErr)
			}
			return updateErr
		}
		return nil
	})
}
