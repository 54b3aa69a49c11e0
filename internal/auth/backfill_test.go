// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

package auth_test

import (
	"context"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/folkvault/folkvault/internal/auth"
	"github.com/folkvault/folkvault/internal/auth/authtest"
	"github.com/folkvault/folkvault/pkg/errutil"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func legacyUser(email string) *auth.User {
	return &auth.User{
		ID:           ulid.Make(),
		Email:        email,
		PasswordHash: "$argon2id$fake",
		CreatedAt:    time.Now().UTC(),
	}
}

func TestNewBackfiller_NilDependencies(t *testing.T) {
	_, err := auth.NewBackfiller(nil, discardLogger())
	require.Error(t, err)

	_, err = auth.NewBackfiller(authtest.NewUserRepo(), nil)
	require.Error(t, err)
}

func TestBackfiller_Run(t *testing.T) {
	ctx := context.Background()

	t.Run("assigns handles to users without one", func(t *testing.T) {
		repo := authtest.NewUserRepo()
		repo.Seed(legacyUser("a@example.com"), legacyUser("b@example.com"))

		backfiller, err := auth.NewBackfiller(repo, discardLogger())
		require.NoError(t, err)

		assigned, err := backfiller.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 2, assigned)

		handles := map[string]bool{}
		all, err := repo.ListAll(ctx)
		require.NoError(t, err)
		for _, u := range all {
			assert.True(t, auth.IsValidUsername(u.Username), "user %s got invalid handle %q", u.Email, u.Username)
			assert.False(t, handles[u.Username], "handle %q assigned twice", u.Username)
			handles[u.Username] = true
		}
	})

	t.Run("skips users that already hold a handle", func(t *testing.T) {
		repo := authtest.NewUserRepo()
		existing := legacyUser("a@example.com")
		existing.Username = "alice"
		repo.Seed(existing, legacyUser("b@example.com"))

		backfiller, err := auth.NewBackfiller(repo, discardLogger())
		require.NoError(t, err)

		assigned, err := backfiller.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, assigned)

		kept, err := repo.GetByEmail(ctx, "a@example.com")
		require.NoError(t, err)
		assert.Equal(t, "alice", kept.Username)
	})

	t.Run("second run is a no-op", func(t *testing.T) {
		repo := authtest.NewUserRepo()
		repo.Seed(legacyUser("a@example.com"))

		backfiller, err := auth.NewBackfiller(repo, discardLogger())
		require.NoError(t, err)

		assigned, err := backfiller.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 1, assigned)

		assigned, err = backfiller.Run(ctx)
		require.NoError(t, err)
		assert.Equal(t, 0, assigned)
	})

	t.Run("empty store", func(t *testing.T) {
		backfiller, err := auth.NewBackfiller(authtest.NewUserRepo(), discardLogger())
		require.NoError(t, err)

		assigned, err := backfiller.Run(ctx)
		require.NoError(t, err)
		assert.Zero(t, assigned)
	})
}

func TestBackfiller_Run_ListFailure(t *testing.T) {
	users := newFailingListRepo()
	backfiller, err := auth.NewBackfiller(users, discardLogger())
	require.NoError(t, err)

	_, err = backfiller.Run(context.Background())
	require.Error(t, err)
	errutil.AssertErrorCode(t, err, "BACKFILL_FAILED")
}

// failingListRepo wraps the in-memory repo but fails ListAll.
type failingListRepo struct {
	*authtest.UserRepo
}

func newFailingListRepo() *failingListRepo {
	return &failingListRepo{UserRepo: authtest.NewUserRepo()}
}

func (r *failingListRepo) ListAll(context.Context) ([]*auth.User, error) {
	return nil, assert.AnError
}
