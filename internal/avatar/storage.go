// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

// Package avatar stores uploaded avatar images under opaque random names.
//
// Two implementations exist: DiskStore writes to a local uploads directory
// and S3Store writes to an S3-compatible bucket (MinIO in development).
// Validation of size and file type happens in the profile service; stores
// only persist already-accepted bytes.
package avatar

import (
	"context"

	"github.com/google/uuid"
)

// Store persists avatar bytes and returns a reference path for the user
// record.
type Store interface {
	// Save writes data under a generated random opaque filename with the
	// given extension and returns the reference to persist.
	Save(ctx context.Context, data []byte, ext string) (string, error)
}

// randomFilename generates an opaque filename preserving the extension.
func randomFilename(ext string) string {
	return uuid.NewString() + "." + ext
}
