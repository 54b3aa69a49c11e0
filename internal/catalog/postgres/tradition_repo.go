// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

// Package postgres implements the catalog repository using PostgreSQL.
package postgres

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/oklog/ulid/v2"
	"github.com/samber/oops"

	"github.com/folkvault/folkvault/internal/catalog"
	"github.com/folkvault/folkvault/internal/store"
)

const traditionColumns = `id, title, description, meaning, category, image_url, youtube_url, created_at`

// TraditionRepository implements catalog.Repository using PostgreSQL.
type TraditionRepository struct {
	pool store.Pool
}

// NewTraditionRepository creates a new TraditionRepository.
func NewTraditionRepository(pool store.Pool) *TraditionRepository {
	return &TraditionRepository{pool: pool}
}

// ListByTitle returns all traditions sorted by title ascending.
func (r *TraditionRepository) ListByTitle(ctx context.Context) ([]*catalog.Tradition, error) {
	return r.list(ctx, `
		SELECT `+traditionColumns+`
		FROM traditions
		ORDER BY title ASC
	`)
}

// ListNewest returns all traditions sorted by creation time descending.
func (r *TraditionRepository) ListNewest(ctx context.Context) ([]*catalog.Tradition, error) {
	return r.list(ctx, `
		SELECT `+traditionColumns+`
		FROM traditions
		ORDER BY created_at DESC
	`)
}

func (r *TraditionRepository) list(ctx context.Context, query string) ([]*catalog.Tradition, error) {
	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, oops.Code("TRADITION_LIST_FAILED").
			With("operation", "query traditions").
			Wrap(err)
	}
	defer rows.Close()

	var traditions []*catalog.Tradition
	for rows.Next() {
		t, err := scanTradition(rows)
		if err != nil {
			return nil, oops.Code("TRADITION_LIST_FAILED").
				With("operation", "scan tradition row").
				Wrap(err)
		}
		traditions = append(traditions, t)
	}
	if err := rows.Err(); err != nil {
		return nil, oops.Code("TRADITION_LIST_FAILED").
			With("operation", "iterate traditions").
			Wrap(err)
	}
	return traditions, nil
}

// Create persists a new tradition.
func (r *TraditionRepository) Create(ctx context.Context, t *catalog.Tradition) error {
	_, err := r.pool.Exec(ctx, `
		INSERT INTO traditions (
			id, title, description, meaning, category,
			image_url, youtube_url, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`,
		t.ID.String(),
		t.Title,
		t.Description,
		t.Meaning,
		t.Category,
		t.ImageURL,
		t.YouTubeURL,
		t.CreatedAt,
	)
	if err != nil {
		return oops.Code("TRADITION_CREATE_FAILED").
			With("operation", "insert tradition").
			With("title", t.Title).
			Wrap(err)
	}
	return nil
}

// Get retrieves a tradition by ID.
func (r *TraditionRepository) Get(ctx context.Context, id ulid.ULID) (*catalog.Tradition, error) {
	row := r.pool.QueryRow(ctx, `
		SELECT `+traditionColumns+`
		FROM traditions
		WHERE id = $1
	`, id.String())

	t, err := scanTradition(row)
	if errors.Is(err, pgx.ErrNoRows) {
		return nil, oops.Code("TRADITION_NOT_FOUND").
			With("id", id.String()).
			Wrap(catalog.ErrNotFound)
	}
	if err != nil {
		return nil, oops.Code("TRADITION_GET_FAILED").
			With("operation", "get tradition").
			With("id", id.String()).
			Wrap(err)
	}
	return t, nil
}

// Update replaces the mutable fields of an existing tradition.
func (r *TraditionRepository) Update(ctx context.Context, t *catalog.Tradition) error {
	result, err := r.pool.Exec(ctx, `
		UPDATE traditions SET
			title = $2,
			description = $3,
			meaning = $4,
			category = $5,
			image_url = $6,
			youtube_url = $7
		WHERE id = $1
	`,
		t.ID.String(),
		t.Title,
		t.Description,
		t.Meaning,
		t.Category,
		t.ImageURL,
		t.YouTubeURL,
	)
	if err != nil {
		return oops.Code("TRADITION_UPDATE_FAILED").
			With("operation", "update tradition").
			With("id", t.ID.String()).
			Wrap(err)
	}
	if result.RowsAffected() == 0 {
		return oops.Code("TRADITION_NOT_FOUND").
			With("id", t.ID.String()).
			Wrap(catalog.ErrNotFound)
	}
	return nil
}

// Delete removes a tradition. Deleting an absent ID is not an error.
func (r *TraditionRepository) Delete(ctx context.Context, id ulid.ULID) error {
	_, err := r.pool.Exec(ctx, `
		DELETE FROM traditions WHERE id = $1
	`, id.String())
	if err != nil {
		return oops.Code("TRADITION_DELETE_FAILED").
			With("operation", "delete tradition").
			With("id", id.String()).
			Wrap(err)
	}
	return nil
}

// scanTradition scans a single row into a Tradition.
// Callers are responsible for handling pgx.ErrNoRows.
func scanTradition(row pgx.Row) (*catalog.Tradition, error) {
	var (
		idStr   string
		t       catalog.Tradition
		meaning *string
		cat     *string
		img     *string
		yt      *string
	)

	err := row.Scan(&idStr, &t.Title, &t.Description, &meaning, &cat, &img, &yt, &t.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, err //nolint:wrapcheck // Callers wrap with context-specific info
		}
		return nil, oops.Code("TRADITION_SCAN_FAILED").
			With("operation", "scan tradition").
			Wrap(err)
	}

	id, err := ulid.Parse(idStr)
	if err != nil {
		return nil, oops.Code("TRADITION_INVALID_ID").
			With("operation", "parse tradition id").
			With("id", idStr).
			Wrap(err)
	}
	t.ID = id

	if meaning != nil {
		t.Meaning = *meaning
	}
	if cat != nil {
		t.Category = *cat
	}
	if img != nil {
		t.ImageURL = *img
	}
	if yt != nil {
		t.YouTubeURL = *yt
	}
	return &t, nil
}

// Compile-time interface check.
var _ catalog.Repository = (*TraditionRepository)(nil)
