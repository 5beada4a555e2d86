package utils

import (
	"context"
	"time"

	"github.com/labstack/echo/v4"
)

const ActingUserHeader = "X-Tramita-User"

// ContextWithTimeout derives a bounded context from the HTTP request.
func ContextWithTimeout(ctx echo.Context, timeout time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request().Context(), timeout)
}

// ActingUser returns the caller-supplied user id. Authentication happens upstream.
func ActingUser(ctx echo.Context) string {
	return ctx.Request().Header.Get(ActingUserHeader)
}
