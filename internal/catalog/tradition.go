// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

// Package catalog manages the tradition records: plain CRUD with fixed
// sort orders and no cross-record invariants.
package catalog

import (
	"context"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Tradition is a catalog record.
type Tradition struct {
	ID          ulid.ULID `json:"id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	Meaning     string    `json:"meaning,omitempty"`
	Category    string    `json:"category,omitempty"`
	ImageURL    string    `json:"imageUrl,omitempty"`
	YouTubeURL  string    `json:"youtubeUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// ErrNotFound is returned when a requested tradition does not exist.
var ErrNotFound = oops.Code("TRADITION_NOT_FOUND").Errorf("tradition not found")

// Repository manages tradition persistence.
type Repository interface {
	// ListByTitle returns all traditions sorted by title ascending.
	ListByTitle(ctx context.Context) ([]*Tradition, error)

	// ListNewest returns all traditions sorted by creation time descending.
	ListNewest(ctx context.Context) ([]*Tradition, error)

	// Create persists a new tradition.
	Create(ctx context.Context, t *Tradition) error

	// Get retrieves a tradition by ID.
	// Returns an error wrapping ErrNotFound if absent.
	Get(ctx context.Context, id ulid.ULID) (*Tradition, error)

	// Update replaces the mutable fields of an existing tradition.
	// Returns an error wrapping ErrNotFound if absent.
	Update(ctx context.Context, t *Tradition) error

	// Delete removes a tradition. Deleting an absent ID is not an error.
	Delete(ctx context.Context, id ulid.ULID) error
}

// Service validates and coordinates catalog operations.
type Service struct {
	repo Repository
}

// NewService creates a Service.
func NewService(repo Repository) (*Service, error) {
	if repo == nil {
		return nil, oops.Errorf("traditions repository is required")
	}
	return &Service{repo: repo}, nil
}

// ListByTitle returns all traditions sorted by title ascending.
func (s *Service) ListByTitle(ctx context.Context) ([]*Tradition, error) {
	return s.repo.ListByTitle(ctx)
}

// ListNewest returns all traditions sorted by creation time descending.
func (s *Service) ListNewest(ctx context.Context) ([]*Tradition, error) {
	return s.repo.ListNewest(ctx)
}

// Create validates and persists a new tradition, assigning its ID.
func (s *Service) Create(ctx context.Context, t *Tradition) (*Tradition, error) {
	if strings.TrimSpace(t.Title) == "" {
		return nil, oops.Code("TRADITION_MISSING_TITLE").Errorf("title is required")
	}
	if strings.TrimSpace(t.Description) == "" {
		return nil, oops.Code("TRADITION_MISSING_DESCRIPTION").Errorf("description is required")
	}

	t.ID = ulid.Make()
	t.CreatedAt = time.Now().UTC()
	if err := s.repo.Create(ctx, t); err != nil {
		return nil, oops.Code("TRADITION_CREATE_FAILED").Wrap(err)
	}
	return t, nil
}

// Update replaces the mutable fields of the tradition with the given ID.
func (s *Service) Update(ctx context.Context, id ulid.ULID, updated *Tradition) (*Tradition, error) {
	current, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	current.Title = updated.Title
	current.Description = updated.Description
	current.Meaning = updated.Meaning
	current.Category = updated.Category
	current.ImageURL = updated.ImageURL
	current.YouTubeURL = updated.YouTubeURL

	if err := s.repo.Update(ctx, current); err != nil {
		return nil, err
	}
	return current, nil
}

// Delete removes a tradition.
func (s *Service) Delete(ctx context.Context, id ulid.ULID) error {
	return s.repo.Delete(ctx, id)
}
