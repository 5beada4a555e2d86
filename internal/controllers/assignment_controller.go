package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/dto"
	"github.com/geniusappsio/tramita/internal/services"
	"github.com/geniusappsio/tramita/pkg/utils"
)

type AssignmentController struct {
	service services.AssignmentServiceInterface
	logger  *zap.Logger
}

func NewAssignmentController(service services.AssignmentServiceInterface, logger *zap.Logger) *AssignmentController {
	return &AssignmentController{service: service, logger: logger}
}

// Assign handles POST /requests/:id/assignments.
func (c *AssignmentController) Assign(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var in dto.AssignDTO
	if err := bindAndValidate(ctx, &in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	result, err := c.service.Assign(ctx.Request().Context(), id, in, utils.ActingUser(ctx))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "User assigned", http.StatusCreated)
}

// Unassign handles DELETE /requests/:id/assignments/:userId?role=.
func (c *AssignmentController) Unassign(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	result, err := c.service.Unassign(ctx.Request().Context(), id, ctx.Param("userId"), ctx.QueryParam("role"), utils.ActingUser(ctx))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "User unassigned", http.StatusOK)
}

func (c *AssignmentController) ListByRequest(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	result, err := c.service.ListByRequest(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Assignments listed", http.StatusOK)
}

func (c *AssignmentController) ListByUser(ctx echo.Context) error {
	result, err := c.service.ListByUser(ctx.Request().Context(), ctx.Param("userId"))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Assignments listed", http.StatusOK)
}
