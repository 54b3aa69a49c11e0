// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

package avatar

import (
	"context"
	"os"
	"path/filepath"

	"github.com/samber/oops"
)

// DefaultURLPrefix is the public path prefix for disk-stored avatars.
const DefaultURLPrefix = "/uploads/avatars"

// DiskStore writes avatars to a local directory and returns URL-path
// references under a fixed prefix.
type DiskStore struct {
	dir       string
	urlPrefix string
}

// NewDiskStore creates a DiskStore rooted at dir. The directory is created
// on first save, not here, so constructing a store never touches the
// filesystem.
func NewDiskStore(dir string) (*DiskStore, error) {
	if dir == "" {
		return nil, oops.Errorf("upload directory is required")
	}
	abs, err := filepath.Abs(dir)
	if err != nil {
		return nil, oops.Code("AVATAR_STORAGE_FAILED").
			With("dir", dir).
			Wrap(err)
	}
	return &DiskStore{dir: abs, urlPrefix: DefaultURLPrefix}, nil
}

// Save writes data under a random filename and returns the public URL path.
func (s *DiskStore) Save(_ context.Context, data []byte, ext string) (string, error) {
	if err := os.MkdirAll(s.dir, 0o755); err != nil {
		return "", oops.Code("AVATAR_STORAGE_FAILED").
			With("operation", "create upload dir").
			With("dir", s.dir).
			Wrap(err)
	}

	name := randomFilename(ext)
	target := filepath.Join(s.dir, name)
	if err := os.WriteFile(target, data, 0o644); err != nil {
		return "", oops.Code("AVATAR_STORAGE_FAILED").
			With("operation", "write avatar file").
			With("path", target).
			Wrap(err)
	}

	return s.urlPrefix + "/" + name, nil
}

// Dir returns the absolute upload directory.
func (s *DiskStore) Dir() string {
	return s.dir
}

// Compile-time interface check.
var _ Store = (*DiskStore)(nil)
