// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

package httpapi

import (
	"io"
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/oops"

	"github.com/folkvault/folkvault/internal/profile"
)

func (s *Server) handleGetProfile(c echo.Context) error {
	view, err := s.deps.Profiles.Get(c.Request().Context(), callerEmail(c))
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

func (s *Server) handleUpdateProfile(c echo.Context) error {
	var req profile.UpdateRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	email := callerEmail(c)
	if err := s.deps.Profiles.Update(c.Request().Context(), email, req); err != nil {
		return errorJSON(c, err)
	}

	view, err := s.deps.Profiles.Get(c.Request().Context(), email)
	if err != nil {
		return errorJSON(c, err)
	}
	return c.JSON(http.StatusOK, view)
}

func (s *Server) handleUploadAvatar(c echo.Context) error {
	header, err := c.FormFile("file")
	if err != nil {
		return errorJSON(c, oops.Code("AVATAR_EMPTY_FILE").Wrap(err))
	}

	file, err := header.Open()
	if err != nil {
		return errorJSON(c, oops.Code("AVATAR_EMPTY_FILE").Wrap(err))
	}
	defer file.Close()

	data, err := io.ReadAll(io.LimitReader(file, profile.MaxAvatarBytes+1))
	if err != nil {
		return errorJSON(c, oops.Code("AVATAR_STORAGE_FAILED").Wrap(err))
	}

	url, err := s.deps.Profiles.UploadAvatar(c.Request().Context(), callerEmail(c), profile.Upload{
		Filename:    header.Filename,
		ContentType: header.Header.Get("Content-Type"),
		Data:        data,
	})
	if err != nil {
		return errorJSON(c, err)
	}

	if s.metrics != nil {
		s.metrics.AvatarUploadsTotal.Inc()
	}
	return c.JSON(http.StatusOK, map[string]string{"avatarUrl": url})
}
