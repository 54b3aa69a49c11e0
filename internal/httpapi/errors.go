// SPDX-License-Identifier: Apache-2.0
// Copyright 2026 FolkVault Contributors

package httpapi

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"github.com/samber/oops"
)

// codeStatus maps core error codes to HTTP statuses. Anything unmapped is
// an internal error.
var codeStatus = map[string]int{
	"AUTH_WEAK_PASSWORD":            http.StatusBadRequest,
	"AUTH_MISSING_EMAIL":            http.StatusBadRequest,
	"AUTH_INVALID_USERNAME":         http.StatusBadRequest,
	"AUTH_INVALID_CREDENTIALS":      http.StatusBadRequest,
	"PROFILE_INVALID_THEME":         http.StatusBadRequest,
	"AVATAR_EMPTY_FILE":             http.StatusBadRequest,
	"AVATAR_FILE_TOO_LARGE":         http.StatusBadRequest,
	"AVATAR_UNSUPPORTED_TYPE":       http.StatusBadRequest,
	"TRADITION_MISSING_TITLE":       http.StatusBadRequest,
	"TRADITION_MISSING_DESCRIPTION": http.StatusBadRequest,

	"PROFILE_USER_NOT_FOUND": http.StatusNotFound,
	"TRADITION_NOT_FOUND":    http.StatusNotFound,

	"AUTH_EMAIL_TAKEN":    http.StatusConflict,
	"AUTH_USERNAME_TAKEN": http.StatusConflict,
}

// errorJSON writes the error as a JSON body with the status its code maps
// to. Internal errors hide their detail from the client.
func errorJSON(c echo.Context, err error) error {
	status := http.StatusInternalServerError
	message := "internal error"

	if oopsErr, ok := oops.AsOops(err); ok {
		if mapped, known := codeStatus[oopsErr.Code()]; known {
			status = mapped
			message = oopsErr.Error()
		}
	}

	return c.JSON(status, map[string]string{"error": message})
}
