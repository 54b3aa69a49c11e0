// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

package auth_test

import (
	"context"
	"testing"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/folkvault/folkvault/internal/auth"
	"github.com/folkvault/folkvault/internal/auth/authtest"
	"github.com/folkvault/folkvault/internal/auth/mocks"
	"github.com/folkvault/folkvault/pkg/errutil"
)

func newTestService(t *testing.T, users auth.UserRepository) *auth.Service {
	t.Helper()
	hasher := auth.NewArgon2idHasherWithParams(auth.Argon2Params{
		Time: 1, Memory: 8 * 1024, Threads: 1, SaltLen: 16, KeyLen: 32,
	})
	svc, err := auth.NewService(users, hasher)
	require.NoError(t, err)
	return svc
}

func TestNewService_NilDependencies(t *testing.T) {
	tests := []struct {
		name        string
		users       auth.UserRepository
		hasher      auth.PasswordHasher
		expectError string
	}{
		{
			name:        "nil users repository",
			users:       nil,
			hasher:      mocks.NewMockPasswordHasher(t),
			expectError: "users repository is required",
		},
		{
			name:        "nil password hasher",
			users:       mocks.NewMockUserRepository(t),
			hasher:      nil,
			expectError: "password hasher is required",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, err := auth.NewService(tt.users, tt.hasher)
			require.Error(t, err)
			assert.Nil(t, svc)
			assert.Contains(t, err.Error(), tt.expectError)
		})
	}
}

func TestService_Register_Validation(t *testing.T) {
	ctx := context.Background()

	t.Run("password below minimum", func(t *testing.T) {
		svc := newTestService(t, authtest.NewUserRepo())

		_, err := svc.Register(ctx, "a@example.com", "12345", "")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_WEAK_PASSWORD")
	})

	t.Run("password at minimum succeeds", func(t *testing.T) {
		svc := newTestService(t, authtest.NewUserRepo())

		user, err := svc.Register(ctx, "a@example.com", "123456", "alice")
		require.NoError(t, err)
		assert.Equal(t, "alice", user.Username)
	})

	t.Run("missing email", func(t *testing.T) {
		svc := newTestService(t, authtest.NewUserRepo())

		_, err := svc.Register(ctx, "   ", "123456", "alice")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_MISSING_EMAIL")
	})

	t.Run("weak password reported before missing email", func(t *testing.T) {
		svc := newTestService(t, authtest.NewUserRepo())

		_, err := svc.Register(ctx, "", "123", "")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_WEAK_PASSWORD")
	})

	t.Run("duplicate email", func(t *testing.T) {
		repo := authtest.NewUserRepo()
		svc := newTestService(t, repo)

		_, err := svc.Register(ctx, "a@example.com", "123456", "alice")
		require.NoError(t, err)

		_, err = svc.Register(ctx, "a@example.com", "123456", "bob")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_EMAIL_TAKEN")
	})

	t.Run("duplicate email reported before invalid username", func(t *testing.T) {
		repo := authtest.NewUserRepo()
		svc := newTestService(t, repo)

		_, err := svc.Register(ctx, "a@example.com", "123456", "alice")
		require.NoError(t, err)

		_, err = svc.Register(ctx, "a@example.com", "123456", "no way!")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_EMAIL_TAKEN")
	})

	t.Run("invalid username", func(t *testing.T) {
		svc := newTestService(t, authtest.NewUserRepo())

		_, err := svc.Register(ctx, "a@example.com", "123456", "bad name!")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_USERNAME")
	})

	t.Run("taken username", func(t *testing.T) {
		repo := authtest.NewUserRepo()
		svc := newTestService(t, repo)

		_, err := svc.Register(ctx, "a@example.com", "123456", "alice")
		require.NoError(t, err)

		_, err = svc.Register(ctx, "b@example.com", "123456", "alice")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_USERNAME_TAKEN")
	})
}

func TestService_Register_Defaults(t *testing.T) {
	ctx := context.Background()
	repo := authtest.NewUserRepo()
	svc := newTestService(t, repo)

	user, err := svc.Register(ctx, "a@example.com", "123456", "alice")
	require.NoError(t, err)

	assert.Equal(t, auth.RoleUser, user.Role)
	assert.Equal(t, auth.ThemeDark, user.ThemePreference)
	assert.NotEqual(t, ulid.ULID{}, user.ID)
	assert.NotEqual(t, "123456", user.PasswordHash)
	assert.Contains(t, user.PasswordHash, "$argon2id$")
	assert.False(t, user.CreatedAt.IsZero())
}

func TestService_Register_GeneratesUsername(t *testing.T) {
	ctx := context.Background()

	t.Run("blank username gets generated handle", func(t *testing.T) {
		repo := authtest.NewUserRepo()
		svc := newTestService(t, repo)

		user, err := svc.Register(ctx, "a@example.com", "123456", "")
		require.NoError(t, err)
		assert.Equal(t, "user", user.Username)
	})

	t.Run("subsequent registrations get numbered handles", func(t *testing.T) {
		repo := authtest.NewUserRepo()
		svc := newTestService(t, repo)

		first, err := svc.Register(ctx, "a@example.com", "123456", "")
		require.NoError(t, err)
		second, err := svc.Register(ctx, "b@example.com", "123456", "  ")
		require.NoError(t, err)
		third, err := svc.Register(ctx, "c@example.com", "123456", "")
		require.NoError(t, err)

		assert.Equal(t, "user", first.Username)
		assert.Equal(t, "user1", second.Username)
		assert.Equal(t, "user2", third.Username)
	})
}

func TestService_Register_LateUniqueViolations(t *testing.T) {
	ctx := context.Background()

	t.Run("email conflict at insert maps to taken error", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, hasher)
		require.NoError(t, err)

		users.On("GetByEmail", ctx, "a@example.com").Return(nil, auth.ErrNotFound)
		users.On("ExistsByUsername", ctx, "alice").Return(false, nil)
		hasher.On("Hash", "123456").Return("$argon2id$fake", nil)
		users.On("Create", ctx, mock.AnythingOfType("*auth.User")).Return(auth.ErrEmailTaken)

		_, err = svc.Register(ctx, "a@example.com", "123456", "alice")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_EMAIL_TAKEN")
	})

	t.Run("username conflict at insert maps to taken error", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, hasher)
		require.NoError(t, err)

		users.On("GetByEmail", ctx, "a@example.com").Return(nil, auth.ErrNotFound)
		users.On("ExistsByUsername", ctx, "alice").Return(false, nil)
		hasher.On("Hash", "123456").Return("$argon2id$fake", nil)
		users.On("Create", ctx, mock.AnythingOfType("*auth.User")).Return(auth.ErrUsernameTaken)

		_, err = svc.Register(ctx, "a@example.com", "123456", "alice")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_USERNAME_TAKEN")
	})

	t.Run("generated handle conflict regenerates and retries", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, hasher)
		require.NoError(t, err)

		users.On("GetByEmail", ctx, "a@example.com").Return(nil, auth.ErrNotFound)
		hasher.On("Hash", "123456").Return("$argon2id$fake", nil)
		users.On("ExistsByUsername", ctx, "user").Return(false, nil)

		// First insert loses the race, second succeeds.
		users.On("Create", ctx, mock.AnythingOfType("*auth.User")).Return(auth.ErrUsernameTaken).Once()
		users.On("Create", ctx, mock.AnythingOfType("*auth.User")).Return(nil).Once()

		user, err := svc.Register(ctx, "a@example.com", "123456", "")
		require.NoError(t, err)
		assert.Equal(t, "user", user.Username)
	})
}

func TestService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials return role", func(t *testing.T) {
		repo := authtest.NewUserRepo()
		svc := newTestService(t, repo)

		_, err := svc.Register(ctx, "a@example.com", "123456", "alice")
		require.NoError(t, err)

		role, err := svc.Login(ctx, "a@example.com", "123456")
		require.NoError(t, err)
		assert.Equal(t, auth.RoleUser, role)
	})

	t.Run("wrong password", func(t *testing.T) {
		repo := authtest.NewUserRepo()
		svc := newTestService(t, repo)

		_, err := svc.Register(ctx, "a@example.com", "123456", "alice")
		require.NoError(t, err)

		_, err = svc.Login(ctx, "a@example.com", "wrongpw")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
	})

	t.Run("unknown email gets the same error as wrong password", func(t *testing.T) {
		svc := newTestService(t, authtest.NewUserRepo())

		_, err := svc.Login(ctx, "nobody@example.com", "123456")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
	})

	t.Run("unknown email still runs verification", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, hasher)
		require.NoError(t, err)

		users.On("GetByEmail", ctx, "nobody@example.com").Return(nil, auth.ErrNotFound)
		// Verify is called against the dummy hash to keep timing consistent.
		hasher.On("Verify", "123456", mock.AnythingOfType("string")).Return(false, nil)

		_, err = svc.Login(ctx, "nobody@example.com", "123456")
		require.Error(t, err)
		errutil.AssertErrorCode(t, err, "AUTH_INVALID_CREDENTIALS")
	})

	t.Run("legacy row without role defaults to USER", func(t *testing.T) {
		repo := authtest.NewUserRepo()
		hasher := auth.NewArgon2idHasherWithParams(auth.Argon2Params{
			Time: 1, Memory: 8 * 1024, Threads: 1, SaltLen: 16, KeyLen: 32,
		})
		hash, err := hasher.Hash("123456")
		require.NoError(t, err)

		repo.Seed(&auth.User{
			ID:           ulid.Make(),
			Email:        "legacy@example.com",
			PasswordHash: hash,
			CreatedAt:    time.Now().UTC(),
		})

		svc, err := auth.NewService(repo, hasher)
		require.NoError(t, err)

		role, err := svc.Login(ctx, "legacy@example.com", "123456")
		require.NoError(t, err)
		assert.Equal(t, auth.RoleUser, role)
	})

	t.Run("non-argon2id hash is upgraded on successful login", func(t *testing.T) {
		users := mocks.NewMockUserRepository(t)
		hasher := mocks.NewMockPasswordHasher(t)
		svc, err := auth.NewService(users, hasher)
		require.NoError(t, err)

		user := &auth.User{
			ID:           ulid.Make(),
			Email:        "a@example.com",
			PasswordHash: "$2a$10$oldbcrypt",
			Role:         auth.RoleUser,
		}

		users.On("GetByEmail", ctx, "a@example.com").Return(user, nil)
		hasher.On("Verify", "123456", "$2a$10$oldbcrypt").Return(true, nil)
		hasher.On("NeedsUpgrade", "$2a$10$oldbcrypt").Return(true)
		hasher.On("Hash", "123456").Return("$argon2id$new", nil)
		users.On("Update", ctx, mock.AnythingOfType("*auth.User")).Return(nil)

		role, err := svc.Login(ctx, "a@example.com", "123456")
		require.NoError(t, err)
		assert.Equal(t, auth.RoleUser, role)
	})
}
