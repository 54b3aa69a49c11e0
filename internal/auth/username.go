// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

package auth

import (
	"context"
	"regexp"
	"strconv"
	"strings"

	"github.com/samber/oops"
)

// Username validation constraints.
const (
	MinUsernameLength = 3
	MaxUsernameLength = 20
)

// DefaultHandleSeed is the seed used when generating a handle for a user
// who never chose one.
const DefaultHandleSeed = "user"

// usernameRegex matches handles of 3 to 20 ASCII letters, digits, or
// underscores. Anchored: no substrings, no other punctuation, no unicode.
var usernameRegex = regexp.MustCompile(`^[a-zA-Z0-9_]{3,20}$`)

// IsValidUsername reports whether candidate is an acceptable handle.
func IsValidUsername(candidate string) bool {
	return usernameRegex.MatchString(candidate)
}

// HandleExistenceChecker is the slice of UserRepository the Generator needs.
type HandleExistenceChecker interface {
	ExistsByUsername(ctx context.Context, username string) (bool, error)
}

// Generator produces handles that are unique at decision time.
//
// Generated candidates inherit the seed's characters unmodified; the
// Generator does not re-validate them. Callers must pass seeds that already
// satisfy IsValidUsername, such as DefaultHandleSeed.
type Generator struct {
	users HandleExistenceChecker
}

// NewGenerator creates a Generator backed by the given repository.
func NewGenerator(users HandleExistenceChecker) (*Generator, error) {
	if users == nil {
		return nil, oops.Errorf("users repository is required")
	}
	return &Generator{users: users}, nil
}

// Generate returns the first free candidate in the deterministic sequence
// seed, seed1, seed2, ... A blank seed normalizes to DefaultHandleSeed.
//
// Uniqueness is checked against the store at the moment of each probe, not
// a snapshot. Two concurrent callers can still pick the same candidate
// before either commits; the store's uniqueness constraint plus the
// retry-on-conflict loop in Service and Backfiller closes that gap.
func (g *Generator) Generate(ctx context.Context, seed string) (string, error) {
	seed = strings.TrimSpace(seed)
	if seed == "" {
		seed = DefaultHandleSeed
	}

	candidate := seed
	for i := 1; ; i++ {
		exists, err := g.users.ExistsByUsername(ctx, candidate)
		if err != nil {
			return "", oops.Code("AUTH_GENERATE_USERNAME_FAILED").
				With("candidate", candidate).
				Wrap(err)
		}
		if !exists {
			return candidate, nil
		}
		candidate = seed + strconv.Itoa(i)
	}
}
