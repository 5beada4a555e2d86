package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/dto"
	"github.com/geniusappsio/tramita/internal/services"
	"github.com/geniusappsio/tramita/pkg/utils"
)

type ProcessTypeController struct {
	service services.ProcessTypeServiceInterface
	logger  *zap.Logger
}

func NewProcessTypeController(service services.ProcessTypeServiceInterface, logger *zap.Logger) *ProcessTypeController {
	return &ProcessTypeController{service: service, logger: logger}
}

// Create handles POST /process-types.
func (c *ProcessTypeController) Create(ctx echo.Context) error {
	var in dto.CreateProcessTypeDTO
	if err := bindAndValidate(ctx, &in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	in.CreatedBy = utils.ActingUser(ctx)

	result, err := c.service.Create(ctx.Request().Context(), in)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Process type created", http.StatusCreated)
}

func (c *ProcessTypeController) Update(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var in dto.UpdateProcessTypeDTO
	if err := bindAndValidate(ctx, &in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	result, err := c.service.Update(ctx.Request().Context(), id, in)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Process type updated", http.StatusOK)
}

func (c *ProcessTypeController) Delete(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if err := c.service.Delete(ctx.Request().Context(), id); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, struct{}{}, "Process type deleted", http.StatusOK)
}

func (c *ProcessTypeController) Restore(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	result, err := c.service.Restore(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Process type restored", http.StatusOK)
}

func (c *ProcessTypeController) GetByID(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	result, err := c.service.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Process type found", http.StatusOK)
}

// List handles GET /process-types?groupId=&active=true.
func (c *ProcessTypeController) List(ctx echo.Context) error {
	activeOnly, _ := strconv.ParseBool(ctx.QueryParam("active"))

	result, err := c.service.List(ctx.Request().Context(), ctx.QueryParam("groupId"), activeOnly)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Process types listed", http.StatusOK)
}
