package controllers

import (
	"bytes"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/services"
	"github.com/geniusappsio/tramita/pkg/utils"
)

const xlsxContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"

type BoardController struct {
	service services.BoardServiceInterface
	logger  *zap.Logger
}

func NewBoardController(service services.BoardServiceInterface, logger *zap.Logger) *BoardController {
	return &BoardController{service: service, logger: logger}
}

// Summary handles GET /process-types/:id/board.
func (c *BoardController) Summary(ctx echo.Context) error {
	processTypeID, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	result, err := c.service.Summary(ctx.Request().Context(), processTypeID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Board summary", http.StatusOK)
}

// Export handles GET /process-types/:id/board.xlsx.
func (c *BoardController) Export(ctx echo.Context) error {
	processTypeID, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	reqCtx, cancel := utils.ContextWithTimeout(ctx, 30*time.Second)
	defer cancel()

	// buffered so a failed export still gets a JSON error body
	var buf bytes.Buffer
	if err := c.service.Export(reqCtx, processTypeID, &buf); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	fileName := fmt.Sprintf("board_%d_%s.xlsx", processTypeID, time.Now().Format("2006-01-02"))
	ctx.Response().Header().Set("Content-Disposition", "attachment; filename="+fileName)
	return ctx.Blob(http.StatusOK, xlsxContentType, buf.Bytes())
}
