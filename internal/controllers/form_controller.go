package controllers

import (
	"net/http"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/dto"
	"github.com/geniusappsio/tramita/internal/services"
	apperrors "github.com/geniusappsio/tramita/pkg/errors"
	"github.com/geniusappsio/tramita/pkg/utils"
)

type FormController struct {
	service services.FormServiceInterface
	logger  *zap.Logger
}

func NewFormController(service services.FormServiceInterface, logger *zap.Logger) *FormController {
	return &FormController{service: service, logger: logger}
}

func (c *FormController) CreateTemplate(ctx echo.Context) error {
	var in dto.CreateFormTemplateDTO
	if err := bindAndValidate(ctx, &in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	in.CreatedBy = utils.ActingUser(ctx)

	result, err := c.service.CreateTemplate(ctx.Request().Context(), in)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Form template created", http.StatusCreated)
}

// ListTemplates handles GET /form-templates?processTypeId=.
func (c *FormController) ListTemplates(ctx echo.Context) error {
	processTypeID, err := parseOptionalID(ctx, "processTypeId")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if processTypeID == 0 {
		return utils.ErrorResponse(ctx, apperrors.NewValidationError("processTypeId", "Process type is required"), c.logger)
	}

	result, err := c.service.ListTemplates(ctx.Request().Context(), processTypeID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Form templates listed", http.StatusOK)
}

func (c *FormController) GetTemplate(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	result, err := c.service.GetTemplate(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Form template", http.StatusOK)
}

func (c *FormController) UpdateTemplate(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var in dto.UpdateFormTemplateDTO
	if err := bindAndValidate(ctx, &in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	result, err := c.service.UpdateTemplate(ctx.Request().Context(), id, in)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Form template updated", http.StatusOK)
}

func (c *FormController) DeleteTemplate(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if err := c.service.DeleteTemplate(ctx.Request().Context(), id); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, struct{}{}, "Form template deleted", http.StatusOK)
}

// CreateField handles POST /form-templates/:id/fields.
func (c *FormController) CreateField(ctx echo.Context) error {
	templateID, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var in dto.CreateFormFieldDTO
	if err := bindAndValidate(ctx, &in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	result, err := c.service.CreateField(ctx.Request().Context(), templateID, in)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Form field created", http.StatusCreated)
}

func (c *FormController) ListFields(ctx echo.Context) error {
	templateID, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	result, err := c.service.ListFields(ctx.Request().Context(), templateID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Form fields listed", http.StatusOK)
}

// ReorderFields handles PUT /form-templates/:id/fields/order.
func (c *FormController) ReorderFields(ctx echo.Context) error {
	templateID, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var in dto.ReorderDTO
	if err := bindAndValidate(ctx, &in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if err := c.service.ReorderFields(ctx.Request().Context(), templateID, in.IDs); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, struct{}{}, "Form fields reordered", http.StatusOK)
}

func (c *FormController) UpdateField(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var in dto.UpdateFormFieldDTO
	if err := bindAndValidate(ctx, &in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	result, err := c.service.UpdateField(ctx.Request().Context(), id, in)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Form field updated", http.StatusOK)
}

func (c *FormController) DeleteField(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if err := c.service.DeleteField(ctx.Request().Context(), id); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, struct{}{}, "Form field deleted", http.StatusOK)
}
