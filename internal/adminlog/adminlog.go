// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

// Package adminlog keeps an append-only record of admin actions.
package adminlog

import (
	"context"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"
)

// Entry is one recorded admin action. Entries are never updated or deleted.
type Entry struct {
	ID         ulid.ULID `json:"id"`
	AdminEmail string    `json:"adminEmail"`
	Action     string    `json:"action"`
	CreatedAt  time.Time `json:"createdAt"`
}

// Repository persists admin log entries.
type Repository interface {
	// Append stores a new entry.
	Append(ctx context.Context, entry *Entry) error

	// ListRecent returns entries sorted by creation time descending.
	ListRecent(ctx context.Context, limit int) ([]*Entry, error)
}

// Recorder writes admin actions to the log.
type Recorder struct {
	repo Repository
}

// NewRecorder creates a Recorder.
func NewRecorder(repo Repository) (*Recorder, error) {
	if repo == nil {
		return nil, oops.Errorf("admin log repository is required")
	}
	return &Recorder{repo: repo}, nil
}

// Record appends an action attributed to adminEmail.
func (r *Recorder) Record(ctx context.Context, adminEmail, action string) error {
	entry := &Entry{
		ID:         ulid.Make(),
		AdminEmail: adminEmail,
		Action:     action,
		CreatedAt:  time.Now().UTC(),
	}
	if err := r.repo.Append(ctx, entry); err != nil {
		return oops.Code("ADMINLOG_APPEND_FAILED").
			With("action", action).
			Wrap(err)
	}
	return nil
}

// ListRecent returns the most recent entries, newest first.
func (r *Recorder) ListRecent(ctx context.Context, limit int) ([]*Entry, error) {
	return r.repo.ListRecent(ctx, limit)
}
