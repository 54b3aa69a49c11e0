// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

// Package profile reads and updates user preference fields and avatar
// references. Uniqueness checks delegate to the auth handle policy.
package profile

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"github.com/samber/oops"
	"github.com/sethvargo/go-retry"

	"github.com/folkvault/folkvault/internal/auth"
	"github.com/folkvault/folkvault/internal/avatar"
)

// MaxAvatarBytes is the largest accepted avatar upload.
const MaxAvatarBytes = 5 * 1024 * 1024

// handleCommitRetries bounds the retry loop around committing a lazily
// backfilled handle.
const handleCommitRetries = 3

// allowedContentTypes are the accepted avatar MIME types. An upload passes
// the type check when EITHER its content type is listed here OR its
// extension is listed in allowedExtensions.
var allowedContentTypes = map[string]bool{
	"image/jpeg": true,
	"image/png":  true,
	"image/webp": true,
}

var allowedExtensions = map[string]bool{
	"jpg":  true,
	"jpeg": true,
	"png":  true,
	"webp": true,
}

// View is the profile as returned to the client. Unset avatar renders as
// an empty string.
type View struct {
	Email           string `json:"email"`
	Role            string `json:"role"`
	Username        string `json:"username"`
	ThemePreference string `json:"themePreference"`
	AvatarURL       string `json:"avatarUrl"`
}

// UpdateRequest carries the optional profile fields to change. Nil means
// "leave unchanged".
type UpdateRequest struct {
	ThemePreference *string `json:"themePreference"`
	Username        *string `json:"username"`
}

// Upload carries one avatar upload.
type Upload struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Service provides profile reads and updates.
type Service struct {
	users     auth.UserRepository
	generator *auth.Generator
	avatars   avatar.Store
	logger    *slog.Logger
}

// NewService creates a Service.
func NewService(users auth.UserRepository, avatars avatar.Store, logger *slog.Logger) (*Service, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	if avatars == nil {
		return nil, oops.Errorf("avatar store is required")
	}
	if logger == nil {
		return nil, oops.Errorf("logger is required")
	}
	generator, err := auth.NewGenerator(users)
	if err != nil {
		return nil, err
	}
	return &Service{
		users:     users,
		generator: generator,
		avatars:   avatars,
		logger:    logger,
	}, nil
}

// Get returns the profile view for the given email.
//
// Legacy users without a handle get one generated and persisted before the
// view is returned; a second call returns the same handle without
// regenerating.
func (s *Service) Get(ctx context.Context, email string) (*View, error) {
	user, err := s.getUser(ctx, email)
	if err != nil {
		return nil, err
	}

	if !user.HasUsername() {
		if err := s.backfillHandle(ctx, user); err != nil {
			return nil, err
		}
		s.logger.Info("lazily backfilled username",
			"email", user.Email,
			"username", user.Username,
		)
	}

	return &View{
		Email:           user.Email,
		Role:            user.EffectiveRole(),
		Username:        user.Username,
		ThemePreference: user.EffectiveTheme(),
		AvatarURL:       user.AvatarURL,
	}, nil
}

// Update applies the requested profile changes.
func (s *Service) Update(ctx context.Context, email string, req UpdateRequest) error {
	user, err := s.getUser(ctx, email)
	if err != nil {
		return err
	}

	if req.ThemePreference != nil && strings.TrimSpace(*req.ThemePreference) != "" {
		theme, ok := auth.NormalizeTheme(*req.ThemePreference)
		if !ok {
			return oops.Code("PROFILE_INVALID_THEME").
				With("theme", *req.ThemePreference).
				Errorf("theme must be one of DARK, LIGHT, SYSTEM")
		}
		user.ThemePreference = theme
	}

	if req.Username != nil {
		username := strings.TrimSpace(*req.Username)
		if !auth.IsValidUsername(username) {
			return oops.Code("AUTH_INVALID_USERNAME").
				With("username", username).
				Errorf("username must be %d-%d characters of letters, digits, or underscores",
					auth.MinUsernameLength, auth.MaxUsernameLength)
		}
		// Updating to one's own current handle is not a conflict.
		if username != user.Username {
			exists, existsErr := s.users.ExistsByUsername(ctx, username)
			if existsErr != nil {
				return oops.Code("PROFILE_UPDATE_FAILED").
					With("operation", "check username").
					Wrap(existsErr)
			}
			if exists {
				return oops.Code("AUTH_USERNAME_TAKEN").
					With("username", username).
					Errorf("username %q is already taken", username)
			}
		}
		user.Username = username
	}

	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		if errors.Is(err, auth.ErrUsernameTaken) {
			return oops.Code("AUTH_USERNAME_TAKEN").Wrap(err)
		}
		return oops.Code("PROFILE_UPDATE_FAILED").
			With("operation", "update user").
			Wrap(err)
	}
	return nil
}

// UploadAvatar validates and stores an avatar, persisting the resulting
// reference on the user.
func (s *Service) UploadAvatar(ctx context.Context, email string, upload Upload) (string, error) {
	user, err := s.getUser(ctx, email)
	if err != nil {
		return "", err
	}

	if len(upload.Data) == 0 {
		return "", oops.Code("AVATAR_EMPTY_FILE").Errorf("uploaded file is empty")
	}
	if len(upload.Data) > MaxAvatarBytes {
		return "", oops.Code("AVATAR_FILE_TOO_LARGE").
			With("size", len(upload.Data)).
			With("max", MaxAvatarBytes).
			Errorf("avatar exceeds %d bytes", MaxAvatarBytes)
	}

	ext := extension(upload.Filename)
	if !allowedContentTypes[upload.ContentType] && !allowedExtensions[ext] {
		return "", oops.Code("AVATAR_UNSUPPORTED_TYPE").
			With("content_type", upload.ContentType).
			With("extension", ext).
			Errorf("avatar must be a jpeg, png, or webp image")
	}

	if ext == "" {
		ext = "jpg"
	}

	ref, err := s.avatars.Save(ctx, upload.Data, ext)
	if err != nil {
		return "", err
	}

	user.AvatarURL = ref
	user.UpdatedAt = time.Now().UTC()
	if err := s.users.Update(ctx, user); err != nil {
		return "", oops.Code("PROFILE_UPDATE_FAILED").
			With("operation", "persist avatar reference").
			Wrap(err)
	}
	return ref, nil
}

// getUser fetches a user, translating a repository miss into the profile
// error taxonomy.
func (s *Service) getUser(ctx context.Context, email string) (*auth.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, auth.ErrNotFound) {
			return nil, oops.Code("PROFILE_USER_NOT_FOUND").
				With("email", email).
				Errorf("user not found")
		}
		return nil, oops.Code("PROFILE_GET_FAILED").
			With("operation", "get user by email").
			Wrap(err)
	}
	return user, nil
}

// backfillHandle generates and persists a handle for a legacy user,
// retrying when a concurrent writer commits the same candidate first.
func (s *Service) backfillHandle(ctx context.Context, user *auth.User) error {
	backoff := retry.WithMaxRetries(handleCommitRetries, retry.NewConstant(5*time.Millisecond))
	err := retry.Do(ctx, backoff, func(ctx context.Context) error {
		handle, genErr := s.generator.Generate(ctx, auth.DefaultHandleSeed)
		if genErr != nil {
			return genErr
		}
		user.Username = handle
		user.UpdatedAt = time.Now().UTC()
		if updateErr := s.users.Update(ctx, user); updateErr != nil {
			if errors.Is(updateErr, auth.ErrUsernameTaken) {
				return retry.RetryableError(updateErr)
			}
			return updateErr
		}
		return nil
	})
	if err != nil {
		return oops.Code("PROFILE_BACKFILL_FAILED").
			With("email", user.Email).
			Wrap(err)
	}
	return nil
}

// extension returns the lowercased filename extension without the dot, or
// an empty string when the filename has none.
func extension(filename string) string {
	filename = strings.ToLower(filename)
	idx := strings.LastIndex(filename, ".")
	if idx < 0 || idx == len(filename)-1 {
		return ""
	}
	return filename[idx+1:]
}
