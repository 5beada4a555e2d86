package controllers

import (
	"net/http"
	"strconv"
	"strings"

	"github.com/labstack/echo/v4"

	apperrors "github.com/geniusappsio/tramita/pkg/errors"
)

func parseID(ctx echo.Context, param string) (uint64, error) {
	id, err := strconv.ParseUint(ctx.Param(param), 10, 64)
	if err != nil || id == 0 {
		return 0, apperrors.NewHttpError(http.StatusBadRequest, "Invalid ID in URL", err, map[string]string{"param": param})
	}
	return id, nil
}

// parseOptionalID reads a numeric query parameter. Absent means zero.
func parseOptionalID(ctx echo.Context, name string) (uint64, error) {
	raw := strings.TrimSpace(ctx.QueryParam(name))
	if raw == "" {
		return 0, nil
	}
	id, err := strconv.ParseUint(raw, 10, 64)
	if err != nil {
		return 0, apperrors.NewHttpError(http.StatusBadRequest, "Invalid query parameter", err, map[string]string{"param": name})
	}
	return id, nil
}

func bindAndValidate(ctx echo.Context, dst interface{}) error {
	if err := ctx.Bind(dst); err != nil {
		return apperrors.NewHttpError(http.StatusBadRequest, "Invalid request body", err, nil)
	}
	return ctx.Validate(dst)
}
