// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

// Package httpapi is the HTTP transport for FolkVault. It owns request
// parsing, token issuance, and the mapping of core error codes to HTTP
// statuses; all business rules live in the service packages.
package httpapi

import (
	"context"
	"log/slog"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/samber/oops"

	"github.com/folkvault/folkvault/internal/adminlog"
	"github.com/folkvault/folkvault/internal/auth"
	"github.com/folkvault/folkvault/internal/catalog"
	"github.com/folkvault/folkvault/internal/observability"
	"github.com/folkvault/folkvault/internal/profile"
)

// emailContextKey is the echo context key holding the authenticated email.
const emailContextKey = "authEmail"

// Deps are the collaborators the server needs.
type Deps struct {
	Auth     *auth.Service
	Profiles *profile.Service
	Catalog  *catalog.Service
	AdminLog *adminlog.Recorder
	Tokens   *TokenManager
	Metrics  *observability.Metrics // optional
	Logger   *slog.Logger

	// AvatarDir, when non-empty, is served statically under /uploads/avatars.
	AvatarDir string
}

// Server is the HTTP API server.
type Server struct {
	echo    *echo.Echo
	deps    Deps
	metrics *observability.Metrics
}

// NewServer creates the server and registers all routes.
func NewServer(deps Deps) (*Server, error) {
	if deps.Auth == nil {
		return nil, oops.Errorf("auth service is required")
	}
	if deps.Profiles == nil {
		return nil, oops.Errorf("profile service is required")
	}
	if deps.Catalog == nil {
		return nil, oops.Errorf("catalog service is required")
	}
	if deps.AdminLog == nil {
		return nil, oops.Errorf("admin log recorder is required")
	}
	if deps.Tokens == nil {
		return nil, oops.Errorf("token manager is required")
	}
	if deps.Logger == nil {
		return nil, oops.Errorf("logger is required")
	}

	e := echo.New()
	e.HideBanner = true
	e.HidePort = true
	e.Use(middleware.Recover())
	e.Use(middleware.CORS())

	s := &Server{echo: e, deps: deps, metrics: deps.Metrics}
	s.routes()
	return s, nil
}

func (s *Server) routes() {
	e := s.echo

	e.POST("/auth/register", s.handleRegister)
	e.POST("/auth/login", s.handleLogin)

	e.GET("/traditions", s.handleListTraditions)
	e.GET("/traditions/new", s.handleListNewestTraditions)

	authed := e.Group("", s.requireToken)
	authed.GET("/api/profile/me", s.handleGetProfile)
	authed.PUT("/api/profile/me", s.handleUpdateProfile)
	authed.POST("/api/profile/me/avatar", s.handleUploadAvatar)

	authed.POST("/traditions", s.handleCreateTradition)
	authed.PUT("/traditions/:id", s.handleUpdateTradition)
	authed.DELETE("/traditions/:id", s.handleDeleteTradition)
	authed.GET("/admin/logs", s.handleListAdminLogs)

	if s.deps.AvatarDir != "" {
		e.Static("/uploads/avatars", s.deps.AvatarDir)
	}
}

// requireToken authenticates the request via its bearer token and stores
// the caller's email in the echo context.
func (s *Server) requireToken(next echo.HandlerFunc) echo.HandlerFunc {
	return func(c echo.Context) error {
		header := c.Request().Header.Get(echo.HeaderAuthorization)
		token, ok := strings.CutPrefix(header, "Bearer ")
		if !ok || token == "" {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "missing bearer token"})
		}

		claims, err := s.deps.Tokens.Parse(token)
		if err != nil {
			return c.JSON(http.StatusUnauthorized, map[string]string{"error": "invalid token"})
		}

		c.Set(emailContextKey, claims.Email)
		return next(c)
	}
}

// callerEmail returns the authenticated email set by requireToken.
func callerEmail(c echo.Context) string {
	email, _ := c.Get(emailContextKey).(string)
	return email
}

// Handler exposes the echo engine as an http.Handler for tests and for
// embedding in an outer server.
func (s *Server) Handler() http.Handler {
	return s.echo
}

// Start serves the API on addr, blocking until the server stops.
func (s *Server) Start(addr string) error {
	if err := s.echo.Start(addr); err != nil && err != http.ErrServerClosed {
		return oops.Code("HTTP_SERVE_FAILED").With("addr", addr).Wrap(err)
	}
	return nil
}

// Shutdown gracefully stops the server.
func (s *Server) Shutdown(ctx context.Context) error {
	if err := s.echo.Shutdown(ctx); err != nil {
		return oops.Code("HTTP_SHUTDOWN_FAILED").Wrap(err)
	}
	return nil
}
