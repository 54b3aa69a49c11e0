// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

package httpapi

import (
	"log/slog"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/oklog/ulid/v2"

	"github.com/folkvault/folkvault/internal/catalog"
)

// defaultAdminLogLimit bounds GET /admin/logs when no limit is given.
const defaultAdminLogLimit = 100

func (s *Server) handleListTraditions(c echo.Context) error {
	list, err := s.deps.Catalog.ListByTitle(c.Request().Context())
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) handleListNewestTraditions(c echo.Context) error {
	list, err := s.deps.Catalog.ListNewest(c.Request().Context())
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, list)
}

func (s *Server) handleCreateTradition(c echo.Context) error {
	var t catalog.Tradition
	if err := c.Bind(&t); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	created, err := s.deps.Catalog.Create(c.Request().Context(), &t)
	if err != nil {
		return errorJSON(c, err)
	}

	s.recordAdminAction(c, "create tradition "+created.Title)
	return c.JSON(http.StatusCreated, created)
}

func (s *Server) handleUpdateTradition(c echo.Context) error {
	id, err := ulid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid tradition id"})
	}

	var t catalog.Tradition
	if err := c.Bind(&t); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	updated, err := s.deps.Catalog.Update(c.Request().Context(), id, &t)
	if err != nil {
		return errorJSON(c, err)
	}

	s.recordAdminAction(c, "update tradition "+updated.Title)
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) handleDeleteTradition(c echo.Context) error {
	id, err := ulid.Parse(c.Param("id"))
	if err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid tradition id"})
	}

	if err := s.deps.Catalog.Delete(c.Request().Context(), id); err != nil {
		return errorJSON(c, err)
	}

	s.recordAdminAction(c, "delete tradition "+id.String())
	return c.NoContent(http.StatusNoContent)
}

func (s *Server) handleListAdminLogs(c echo.Context) error {
	limit := defaultAdminLogLimit
	if raw := c.QueryParam("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 1 {
			return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid limit"})
		}
		limit = n
	}

	entries, err := s.deps.AdminLog.ListRecent(c.Request().Context(), limit)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, entries)
}

// recordAdminAction logs a catalog mutation. Failures are logged, not
// surfaced: the mutation itself already succeeded.
func (s *Server) recordAdminAction(c echo.Context, action string) {
	ctx := c.Request().Context()
	if err := s.deps.AdminLog.Record(ctx, callerEmail(c), action); err != nil {
		s.deps.Logger.WarnContext(ctx, "failed to record admin action",
			slog.String("action", action),
			slog.Any("error", err))
	}
}
