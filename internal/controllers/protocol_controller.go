package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/dto"
	"github.com/geniusappsio/tramita/internal/services"
	"github.com/geniusappsio/tramita/pkg/utils"
)

type ProtocolController struct {
	allocator services.ProtocolAllocatorInterface
	logger    *zap.Logger
}

func NewProtocolController(allocator services.ProtocolAllocatorInterface, logger *zap.Logger) *ProtocolController {
	return &ProtocolController{allocator: allocator, logger: logger}
}

// Allocate handles POST /protocols. The number is reserved without a request attached.
func (c *ProtocolController) Allocate(ctx echo.Context) error {
	var in dto.AllocateProtocolDTO
	if err := bindAndValidate(ctx, &in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	result, err := c.allocator.AllocateProtocol(ctx.Request().Context(), in.ProcessTypeID, in.Prefix, in.GroupID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Protocol allocated", http.StatusCreated)
}

// Lookup handles GET /protocols?number=MEM-2026/000001.
func (c *ProtocolController) Lookup(ctx echo.Context) error {
	result, err := c.allocator.Lookup(ctx.Request().Context(), ctx.QueryParam("number"))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Protocol found", http.StatusOK)
}
