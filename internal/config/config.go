// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

// Package config loads server configuration, layering defaults, an
// optional YAML file, FOLKVAULT_* environment variables, and command
// line flags, in that order of precedence.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/confmap"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/posflag"
	"github.com/knadh/koanf/v2"
	"github.com/samber/oops"
	"github.com/spf13/pflag"
)

// Storage backends for avatar uploads.
const (
	StorageDisk = "disk"
	StorageS3   = "s3"
)

// Config is the full server configuration.
type Config struct {
	HTTPAddr    string        `koanf:"http_addr"`
	MetricsAddr string        `koanf:"metrics_addr"`
	DatabaseURL string        `koanf:"database_url"`
	JWTSecret   string        `koanf:"jwt_secret"`
	TokenTTL    time.Duration `koanf:"token_ttl"`
	LogFormat   string        `koanf:"log_format"`
	AutoMigrate bool          `koanf:"auto_migrate"`

	Avatar AvatarConfig `koanf:"avatar"`
}

// AvatarConfig selects and configures the avatar storage backend.
type AvatarConfig struct {
	Backend string `koanf:"backend"`
	Dir     string `koanf:"dir"`

	S3Region        string `koanf:"s3_region"`
	S3Endpoint      string `koanf:"s3_endpoint"`
	S3Bucket        string `koanf:"s3_bucket"`
	S3AccessKey     string `koanf:"s3_access_key"`
	S3SecretKey     string `koanf:"s3_secret_key"`
	S3PublicBaseURL string `koanf:"s3_public_base_url"`
}

// defaults is the lowest-precedence configuration layer.
var defaults = map[string]any{
	"http_addr":      ":8080",
	"metrics_addr":   "127.0.0.1:9100",
	"token_ttl":      24 * time.Hour,
	"log_format":     "json",
	"auto_migrate":   true,
	"avatar.backend": StorageDisk,
	"avatar.dir":     "./data/avatars",
}

// Validate checks the configuration for problems that would prevent
// the server from starting.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return oops.Errorf("http_addr is required")
	}
	if c.DatabaseURL == "" {
		return oops.Errorf("database_url is required (set DATABASE_URL)")
	}
	if c.JWTSecret == "" {
		return oops.Errorf("jwt_secret is required (set FOLKVAULT_JWT_SECRET)")
	}
	if c.LogFormat != "json" && c.LogFormat != "text" {
		return oops.With("log_format", c.LogFormat).
			Errorf("log_format must be 'json' or 'text'")
	}
	switch c.Avatar.Backend {
	case StorageDisk:
		if c.Avatar.Dir == "" {
			return oops.Errorf("avatar.dir is required for disk storage")
		}
	case StorageS3:
		if c.Avatar.S3Bucket == "" {
			return oops.Errorf("avatar.s3_bucket is required for s3 storage")
		}
	default:
		return oops.With("backend", c.Avatar.Backend).
			Errorf("avatar.backend must be 'disk' or 's3'")
	}
	return nil
}

// Load builds a Config. path may be empty; flags may be nil. A missing
// config file at an explicitly given path is an error, otherwise the
// layer is skipped.
func Load(path string, flags *pflag.FlagSet) (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(confmap.Provider(defaults, "."), nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
	}

	if path != "" {
		if err := k.Load(file.Provider(path), yaml.Parser()); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").
				With("path", path).
				Wrap(err)
		}
	}

	// FOLKVAULT_AVATAR_DIR -> avatar.dir, FOLKVAULT_HTTP_ADDR -> http_addr.
	envProvider := env.Provider("FOLKVAULT_", ".", func(key string) string {
		key = strings.ToLower(strings.TrimPrefix(key, "FOLKVAULT_"))
		if rest, ok := strings.CutPrefix(key, "avatar_"); ok {
			return "avatar." + rest
		}
		return key
	})
	if err := k.Load(envProvider, nil); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
	}

	if flags != nil {
		if err := k.Load(posflag.Provider(flags, ".", k), nil); err != nil {
			return nil, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
		}
	}

	var cfg Config
	if err := k.Unmarshal("", &cfg); err != nil {
		return nil, oops.Code("CONFIG_LOAD_FAILED").Wrap(err)
	}

	// DATABASE_URL keeps its conventional unprefixed name.
	if cfg.DatabaseURL == "" {
		cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	}

	return &cfg, nil
}
