// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

package auth

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"
)

// MinPasswordLength is the minimum accepted password length.
const MinPasswordLength = 6

// usernameCommitRetries bounds the retry-on-conflict loop around committing
// a generated handle. Each attempt re-probes the store, so a small number
// of retries is enough to absorb concurrent registrations.
const usernameCommitRetries = 3

// dummyPasswordHash is used when a user doesn't exist to prevent timing attacks.
// We still run password verification to make response time consistent.
// This is NOT a real credential - it's a fake hash that will never match any password.
//
//nolint:gosec // G101: This is an intentionally fake hash for timing attack prevention, not a credential.
const dummyPasswordHash = "$argon2id$v=19$m=65536,t=1,p=4$AAAAAAAAAAAAAAAAAAAAAA$AAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAAA"

// Service provides registration and login.
type Service struct {
	users     UserRepository
	hasher    PasswordHasher
	generator *Generator
	logger    *slog.Logger
}

// NewService creates a new Service.
func NewService(users UserRepository, hasher PasswordHasher) (*Service, error) {
	return NewServiceWithLogger(users, hasher, slog.Default())
}

// NewServiceWithLogger creates a new Service with an explicit logger.
func NewServiceWithLogger(users UserRepository, hasher PasswordHasher, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if hasher == nil {
		return nil, oops.Errorf("password hasher is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	generator, err := NewGenerator(users)
	if err != nil {
		return nil, err
	}
	return &Service{
		users:     users,
		hasher:    hasher,
		generator: generator,
		logger:    logger,
	}, nil
}

// Register creates a new user account.
//
// Validation short-circuits in a fixed order so ambiguous inputs always
// produce the same error: password strength, email presence, email
// uniqueness, username validity, username uniqueness. When username is
// blank a free handle is generated from DefaultHandleSeed.
//
// On success the user is persisted with a hashed password, role RoleUser,
// and theme ThemeDark.
func (s *Service) Register(ctx context.Context, email, password, username string) (*User, error) {
	if len(password) < MinPasswordLength {
		return nil, oops.Code("AUTH_WEAK_PASSWORD").
			With("min", MinPasswordLength).
			Errorf("password must be at least %d characters", MinPasswordLength)
	}

	email = strings.TrimSpace(email)
	if email == "" {
		return nil, oops.Code("AUTH_MISSING_EMAIL").Errorf("email is required")
	}

	_, err := s.users.GetByEmail(ctx, email)
	switch {
	case err == nil:
		return nil, oops.Code("AUTH_EMAIL_TAKEN").
			With("email", email).
			Errorf("a user with this email already exists")
	case !errors.Is(err, ErrNotFound):
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}

	username = strings.TrimSpace(username)
	if username != "" {
		if !IsValidUsername(username) {
			return nil, oops.Code("AUTH_INVALID_USERNAME").
				With("username", username).
				Errorf("username must be %d-%d characters of letters, digits, or underscores",
					MinUsernameLength, MaxUsernameLength)
		}
		exists, existsErr := s.users.ExistsByUsername(ctx, username)
		if existsErr != nil {
			return nil, oops.Code("AUTH_REGISTER_FAILED").
				With("operation", "check username").
				Wrap(existsErr)
		}
		if exists {
			return nil, oops.Code("AUTH_USERNAME_TAKEN").
				With("username", username).
				Errorf("username %q is already taken", username)
		}
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "hash password").
			Wrap(err)
	}

	now := time.Now().UTC()
	user := &User{
		ID:              ulid.Make(),
		Email:           email,
		PasswordHash:    hash,
		Role:            RoleUser,
		Username:        username,
		ThemePreference: ThemeDark,
		CreatedAt:       now,
		UpdatedAt:       now,
	}

	if username != "" {
		if err := s.users.Create(ctx, user); err != nil {
			return nil, mapUniqueViolation(err)
		}
		return user, nil
	}

	// No handle supplied: generate one and commit, retrying when a
	// concurrent writer grabs the candidate first.
	if err := s.commitWithGeneratedUsername(ctx, user); err != nil {
		return nil, err
	}
	return user, nil
}

// commitWithGeneratedUsername assigns a generated handle and inserts the
// user, regenerating on username conflicts. Email conflicts are not
// retried; they mean the pre-check lost a race and the caller gets the
// same AUTH_EMAIL_TAKEN as if the check had caught it.
func (s *Service) commitWithGeneratedUsername(ctx context.Context, user *User) error {
	backoff := retry.WithMaxRetries(usernameCommitRetries, retry.NewConstant(5*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		handle, genErr := s.generator.Generate(ctx, DefaultHandleSeed)
		if genErr != nil {
			return genErr
		}
		user.Username = handle
		if createErr := s.users.Create(ctx, user); createErr != nil {
			if errors.Is(createErr, ErrUsernameTaken) {
				return retry.RetryableError(createErr)
			}
			return createErr
		}
		return nil
	})
	if err != nil {
		return mapUniqueViolation(err)
	}
	return nil
}

// Login authenticates a user by email and password and returns the user's
// role. No session or token is established here; the transport layer owns
// that. Uses constant-time operations to prevent timing-based email
// enumeration.
func (s *Service) Login(ctx context.Context, email, password string) (string, error) {
	user, lookupErr := s.users.GetByEmail(ctx, email)

	targetHash := dummyPasswordHash
	userExists := false
	if lookupErr != nil {
		if !errors.Is(lookupErr, ErrNotFound) {
			return "", oops.Code("AUTH_LOGIN_FAILED").
				With("operation", "get user by email").
				Wrap(lookupErr)
		}
	} else {
		targetHash = user.PasswordHash
		userExists = true
	}

	// Always verify, against the dummy hash for unknown emails, to keep
	// response time consistent.
	valid, verifyErr := s.hasher.Verify(password, targetHash)
	if verifyErr != nil {
		if !userExists {
			return "", invalidCredentials()
		}
		return "", oops.Code("AUTH_LOGIN_FAILED").
			With("operation", "verify password").
			Wrap(verifyErr)
	}

	if !userExists || !valid {
		return "", invalidCredentials()
	}

	// Re-hash transparently when the stored hash predates argon2id.
	if s.hasher.NeedsUpgrade(user.PasswordHash) {
		if newHash, hashErr := s.hasher.Hash(password); hashErr == nil {
			user.PasswordHash = newHash
			user.UpdatedAt = time.Now().UTC()
			if updateErr := s.users.Update(ctx, user); updateErr != nil {
				s.logger.Warn("password hash upgrade failed",
					"email", user.Email,
					"error", updateErr,
				)
			}
		}
	}

	return user.EffectiveRole(), nil
}

func invalidCredentials() error {
	return oops.Code("AUTH_INVALID_CREDENTIALS").Errorf("invalid email or password")
}

// mapUniqueViolation converts late-discovered store uniqueness violations
// into the same typed failures the pre-checks produce.
func mapUniqueViolation(err error) error {
	switch {
	case errors.Is(err, ErrEmailTaken):
		return oops.Code("AUTH_EMAIL_TAKEN").Wrap(err)
	case errors.Is(err, ErrUsernameTaken):
		return oops.Code("AUTH_USERNAME_TAKEN").Wrap(err)
	default:
		return oops.Code("AUTH_REGISTER_FAILED").
			With("operation", "insert user").
			Wrap(err)
	}
}
