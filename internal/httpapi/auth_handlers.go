// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
)

type registerRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
	Username string `json:"username"`
}

type loginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

func (s *Server) handleRegister(c echo.Context) error {
	var req registerRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	user, err := s.deps.Auth.Register(c.Request().Context(), req.Email, req.Password, req.Username)
	if err != nil {
		return errorJSON(c, err)
	}

	if s.metrics != nil {
		s.metrics.RegistrationsTotal.Inc()
	}
	return c.JSON(http.StatusCreated, map[string]string{
		"status":   "ok",
		"email":    user.Email,
		"username": user.Username,
	})
}

func (s *Server) handleLogin(c echo.Context) error {
	var req loginRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, map[string]string{"error": "invalid request body"})
	}

	role, err := s.deps.Auth.Login(c.Request().Context(), req.Email, req.Password)
	if err != nil {
		if s.metrics != nil {
			s.metrics.LoginsTotal.WithLabelValues("failure").Inc()
		}
		return errorJSON(c, err)
	}

	token, err := s.deps.Tokens.Issue(req.Email, role)
	if err != nil {
		return errorJSON(c, err)
	}

	if s.metrics != nil {
		s.metrics.LoginsTotal.WithLabelValues("success").Inc()
	}
	return c.JSON(http.StatusOK, map[string]string{
		"status": "ok",
		"role":   role,
		"token":  token,
	})
}
