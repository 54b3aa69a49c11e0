// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/folkvault/folkvault/internal/adminlog"
	"github.com/folkvault/folkvault/internal/auth"
	authpg "github.com/folkvault/folkvault/internal/auth/postgres"
	"github.com/folkvault/folkvault/internal/avatar"
	"github.com/folkvault/folkvault/internal/catalog"
	catalogpg "github.com/folkvault/folkvault/internal/catalog/postgres"
	"github.com/folkvault/folkvault/internal/config"
	"github.com/folkvault/folkvault/internal/httpapi"
	"github.com/folkvault/folkvault/internal/logging"
	"github.com/folkvault/folkvault/internal/observability"
	"github.com/folkvault/folkvault/internal/profile"
	"github.com/folkvault/folkvault/internal/store"
	"github.com/folkvault/folkvault/internal/xdg"
)

const shutdownTimeout = 5 * time.Second

// NewServeCmd creates the serve subcommand.
func NewServeCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the FolkVault HTTP server",
		Long: `Start the HTTP API server. Applies pending database migrations on
startup unless auto_migrate is disabled.`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			path := configFile
			if path == "" {
				if _, statErr := os.Stat(xdg.DefaultConfigFile()); statErr == nil {
					path = xdg.DefaultConfigFile()
				}
			}
			cfg, err := config.Load(path, cmd.Flags())
			if err != nil {
				return err
			}
			return runServe(cmd.Context(), cfg, cmd)
		},
	}

	cmd.Flags().String("http_addr", "", "HTTP listen address")
	cmd.Flags().String("metrics_addr", "", "metrics/health HTTP address (empty = disabled)")
	cmd.Flags().String("log_format", "", "log format (json or text)")

	return cmd
}

func runServe(ctx context.Context, cfg *config.Config, cmd *cobra.Command) error {
	if err := cfg.Validate(); err != nil {
		return oops.Code("CONFIG_INVALID").Wrap(err)
	}

	logger := logging.Setup("folkvault", version, cfg.LogFormat, os.Stderr)
	slog.SetDefault(logger)

	logger.Info("starting server",
		slog.String("http_addr", cfg.HTTPAddr),
		slog.String("avatar_backend", cfg.Avatar.Backend),
	)

	if cfg.AutoMigrate {
		if err := migrateUp(cfg.DatabaseURL); err != nil {
			return err
		}
		logger.Info("migrations applied")
	}

	db, err := store.Connect(ctx, cfg.DatabaseURL)
	if err != nil {
		return oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	defer db.Close()

	logger.Info("connected to database")

	avatars, err := newAvatarStore(ctx, cfg)
	if err != nil {
		return err
	}

	users := authpg.NewUserRepository(db.Pool())
	traditions := catalogpg.NewTraditionRepository(db.Pool())
	logs := adminlog.NewPostgresRepository(db.Pool())

	authService, err := auth.NewServiceWithLogger(users, auth.NewArgon2idHasher(), logger)
	if err != nil {
		return oops.Wrap(err)
	}
	profileService, err := profile.NewService(users, avatars, logger)
	if err != nil {
		return oops.Wrap(err)
	}
	catalogService, err := catalog.NewService(traditions)
	if err != nil {
		return oops.Wrap(err)
	}
	recorder, err := adminlog.NewRecorder(logs)
	if err != nil {
		return oops.Wrap(err)
	}
	tokens, err := httpapi.NewTokenManager(cfg.JWTSecret, cfg.TokenTTL)
	if err != nil {
		return oops.Wrap(err)
	}

	// Assign handles to any accounts that predate usernames.
	backfiller, err := auth.NewBackfiller(users, logger)
	if err != nil {
		return oops.Wrap(err)
	}
	assigned, err := backfiller.Run(ctx)
	if err != nil {
		logger.Warn("startup username backfill failed", slog.Any("error", err))
	} else if assigned > 0 {
		logger.Info("startup username backfill complete", slog.Int("assigned", assigned))
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	// Metrics/health server, optional.
	var metrics *observability.Metrics
	var obsServer *observability.Server
	if cfg.MetricsAddr != "" {
		obsServer = observability.NewServer(cfg.MetricsAddr, func() bool {
			pingCtx, pingCancel := context.WithTimeout(context.Background(), time.Second)
			defer pingCancel()
			return db.Pool().Ping(pingCtx) == nil
		})
		metrics = obsServer.Metrics()

		obsErrChan, err := obsServer.Start()
		if err != nil {
			return oops.Code("OBSERVABILITY_START_FAILED").Wrap(err)
		}
		go monitorServerErrors(ctx, cancel, obsErrChan, "observability", logger)
		logger.Info("observability server started", slog.String("addr", obsServer.Addr()))
	}

	deps := httpapi.Deps{
		Auth:     authService,
		Profiles: profileService,
		Catalog:  catalogService,
		AdminLog: recorder,
		Tokens:   tokens,
		Metrics:  metrics,
		Logger:   logger,
	}
	if disk, ok := avatars.(*avatar.DiskStore); ok {
		deps.AvatarDir = disk.Dir()
	}

	server, err := httpapi.NewServer(deps)
	if err != nil {
		return oops.Wrap(err)
	}

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, syscall.SIGINT, syscall.SIGTERM)
	defer signal.Stop(sigChan)

	errChan := make(chan error, 1)
	go func() {
		if serveErr := server.Start(cfg.HTTPAddr); serveErr != nil {
			errChan <- serveErr
		}
	}()

	cmd.Println("Server started on " + cfg.HTTPAddr)
	logger.Info("server ready", slog.String("http_addr", cfg.HTTPAddr))

	select {
	case sig := <-sigChan:
		logger.Info("received shutdown signal", slog.String("signal", sig.String()))
	case err := <-errChan:
		return oops.Code("HTTP_SERVE_FAILED").Wrap(err)
	case <-ctx.Done():
		logger.Info("context cancelled, shutting down")
	}

	logger.Info("shutting down...")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer shutdownCancel()

	if err := server.Shutdown(shutdownCtx); err != nil {
		logger.Warn("error stopping HTTP server", slog.Any("error", err))
	}
	if obsServer != nil {
		if err := obsServer.Stop(shutdownCtx); err != nil {
			logger.Warn("error stopping observability server", slog.Any("error", err))
		}
	}

	logger.Info("shutdown complete")
	return nil
}

// migrateUp applies all pending migrations.
func migrateUp(databaseURL string) error {
	migrator, err := store.NewMigrator(databaseURL)
	if err != nil {
		return oops.Code("MIGRATION_FAILED").Wrap(err)
	}
	defer migrator.Close() //nolint:errcheck

	if err := migrator.Up(); err != nil {
		return oops.Code("MIGRATION_FAILED").Wrap(err)
	}
	return nil
}

// newAvatarStore builds the configured avatar storage backend.
func newAvatarStore(ctx context.Context, cfg *config.Config) (avatar.Store, error) {
	switch cfg.Avatar.Backend {
	case config.StorageS3:
		return avatar.NewS3Store(ctx, avatar.S3Config{
			Region:        cfg.Avatar.S3Region,
			Endpoint:      cfg.Avatar.S3Endpoint,
			Bucket:        cfg.Avatar.S3Bucket,
			AccessKey:     cfg.Avatar.S3AccessKey,
			SecretKey:     cfg.Avatar.S3SecretKey,
			PublicBaseURL: cfg.Avatar.S3PublicBaseURL,
		})
	default:
		if err := xdg.EnsureDir(cfg.Avatar.Dir); err != nil {
			return nil, oops.Code("AVATAR_STORE_FAILED").With("dir", cfg.Avatar.Dir).Wrap(err)
		}
		return avatar.NewDiskStore(cfg.Avatar.Dir)
	}
}

// monitorServerErrors cancels the run context when a background server
// reports a fatal error.
func monitorServerErrors(ctx context.Context, cancel context.CancelFunc, errCh <-chan error, serverName string, logger *slog.Logger) {
	select {
	case err, ok := <-errCh:
		if !ok {
			return
		}
		if err != nil {
			logger.Error("server error, triggering shutdown",
				slog.String("server", serverName),
				slog.Any("error", err),
			)
			cancel()
		}
	case <-ctx.Done():
	}
}
