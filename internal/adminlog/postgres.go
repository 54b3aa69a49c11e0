// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

package adminlog

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/folkvault/folkvault/internal/store"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	pool store.Pool
}

// NewPostgresRepository creates a new PostgresRepository.
func NewPostgresRepository(pool store.Pool) *PostgresRepository {
	return &PostgresRepository{pool: pool}
}

// Append stores a new entry.
func (r *PostgresRepository) Append(ctx context.Context, entry *Entry) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO admin_logs (id, admin_email, action, created_at)
		VALUES ($1, $2, $3, $4)
	`,
		entry.ID.String(),
		entry.AdminEmail,
		entry.Action,
		entry.CreatedAt,
	)
	if err != nil {
		return oops.Code("ADMINLOG_APPEND_FAILED").
			With("operation", "insert admin log entry").
			Wrap(err)
	}
	return nil
}

// ListRecent returns entries sorted by creation time descending.
func (r *PostgresRepository) ListRecent(ctx context.Context, limit int) ([]*Entry, error) {
	rows, err := r.pool.Query(ctx, `
		SELECT id, admin_email, action, created_at
		FROM admin_logs
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, oops.Code("ADMINLOG_LIST_FAILED").
			With("operation", "query admin logs").
			Wrap(err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		var (
			idStr     string
			email     string
			action    string
			createdAt time.Time
		)
		if err := rows.Scan(&idStr, &email, &action, &createdAt); err != nil {
			if errors.Is(err, pgx.ErrNoRows) {
				break
			}
			return nil, oops.Code("ADMINLOG_LIST_FAILED").
				With("operation", "scan admin log row").
				Wrap(err)
		}
		id, err := ulid.Parse(idStr)
		if err != nil {
			return nil, oops.Code("ADMINLOG_INVALID_ID").
				With("id", idStr).
				Wrap(err)
		}
		entries = append(entries, &Entry{
			ID:         id,
			AdminEmail: email,
			Action:     action,
			CreatedAt:  createdAt,
		})
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("ADMINLOG_LIST_FAILED").
			With("operation", "iterate admin logs").
			Wrap(err)
	}
	return entries, nil
}

// Compile-time interface check.
var _ Repository = (*PostgresRepository)(nil)
