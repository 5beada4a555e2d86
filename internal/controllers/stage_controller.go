package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/dto"
	"github.com/geniusappsio/tramita/internal/services"
	"github.com/geniusappsio/tramita/pkg/utils"
)

type StageController struct {
	service services.StageServiceInterface
	logger  *zap.Logger
}

func NewStageController(service services.StageServiceInterface, logger *zap.Logger) *StageController {
	return &StageController{service: service, logger: logger}
}

// Create handles POST /process-types/:id/stages.
func (c *StageController) Create(ctx echo.Context) error {
	processTypeID, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var in dto.CreateStageDTO
	in.ProcessTypeID = processTypeID
	if err := bindAndValidate(ctx, &in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	// the path wins over the body
	in.ProcessTypeID = processTypeID

	result, err := c.service.CreateStage(ctx.Request().Context(), in)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Stage created", http.StatusCreated)
}

func (c *StageController) List(ctx echo.Context) error {
	processTypeID, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	result, err := c.service.ListStages(ctx.Request().Context(), processTypeID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Stages listed", http.StatusOK)
}

// Reorder handles PUT /process-types/:id/stages/order.
func (c *StageController) Reorder(ctx echo.Context) error {
	processTypeID, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var in dto.ReorderDTO
	if err := bindAndValidate(ctx, &in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if err := c.service.ReorderStages(ctx.Request().Context(), processTypeID, in.IDs); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, struct{}{}, "Stages reordered", http.StatusOK)
}

func (c *StageController) GetByID(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	result, err := c.service.GetStage(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Stage found", http.StatusOK)
}

func (c *StageController) Update(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var in dto.UpdateStageDTO
	if err := bindAndValidate(ctx, &in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	result, err := c.service.UpdateStage(ctx.Request().Context(), id, in)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Stage updated", http.StatusOK)
}

func (c *StageController) Delete(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if err := c.service.DeleteStage(ctx.Request().Context(), id); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, struct{}{}, "Stage deleted", http.StatusOK)
}
