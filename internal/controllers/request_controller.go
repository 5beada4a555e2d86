package controllers

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/dto"
	"github.com/geniusappsio/tramita/internal/entities"
	"github.com/geniusappsio/tramita/internal/services"
	apperrors "github.com/geniusappsio/tramita/pkg/errors"
	"github.com/geniusappsio/tramita/pkg/utils"
)

type RequestController struct {
	workflow services.WorkflowServiceInterface
	activity services.ActivityLogServiceInterface
	logger   *zap.Logger
}

func NewRequestController(
	workflow services.WorkflowServiceInterface,
	activity services.ActivityLogServiceInterface,
	logger *zap.Logger,
) *RequestController {
	return &RequestController{workflow: workflow, activity: activity, logger: logger}
}

// Create handles POST /requests. The acting user becomes the requester when none is given.
func (c *RequestController) Create(ctx echo.Context) error {
	var in dto.CreateRequestDTO
	if err := bindAndValidate(ctx, &in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	result, err := c.workflow.Create(ctx.Request().Context(), in, utils.ActingUser(ctx))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Request created", http.StatusCreated)
}

// Move handles POST /requests/:id/move.
func (c *RequestController) Move(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var in dto.MoveRequestDTO
	if err := bindAndValidate(ctx, &in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	result, err := c.workflow.Move(ctx.Request().Context(), id, in, utils.ActingUser(ctx))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Request moved", http.StatusOK)
}

func (c *RequestController) Update(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var in dto.UpdateRequestDTO
	if err := bindAndValidate(ctx, &in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}

	result, err := c.workflow.Update(ctx.Request().Context(), id, in, utils.ActingUser(ctx))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Request updated", http.StatusOK)
}

func (c *RequestController) Delete(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if err := c.workflow.Delete(ctx.Request().Context(), id, utils.ActingUser(ctx)); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, struct{}{}, "Request deleted", http.StatusOK)
}

func (c *RequestController) GetByID(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	result, err := c.workflow.GetByID(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Request found", http.StatusOK)
}

// GetByProtocol handles GET /requests/by-protocol?number=MEM-2026/000001.
func (c *RequestController) GetByProtocol(ctx echo.Context) error {
	result, err := c.workflow.GetByProtocol(ctx.Request().Context(), ctx.QueryParam("number"))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Request found", http.StatusOK)
}

// Search handles GET /requests?groupId=&search=&filter[status]=&filter[priority]=&limit=&page=.
func (c *RequestController) Search(ctx echo.Context) error {
	query := ctx.Request().URL.Query()
	filter := utils.ParseFilterFromQuery(query)

	rf := entities.RequestFilter{Query: filter.Search}
	if v, ok := filter.Filter["status"].(string); ok {
		rf.Status = entities.RequestStatus(v)
	}
	if v, ok := filter.Filter["requesterId"].(string); ok {
		rf.RequesterID = v
	}
	if v, ok := filter.Filter["priority"].(string); ok {
		p, err := strconv.Atoi(v)
		if err != nil {
			return utils.ErrorResponse(ctx, apperrors.NewValidationError("priority", "Priority must be a number"), c.logger)
		}
		rf.Priority = entities.Priority(p)
	}
	for key, dst := range map[string]*uint64{"processTypeId": &rf.ProcessTypeID, "stageId": &rf.StageID} {
		if v, ok := filter.Filter[key].(string); ok {
			id, err := strconv.ParseUint(v, 10, 64)
			if err != nil {
				return utils.ErrorResponse(ctx, apperrors.NewValidationError(key, "Must be a numeric ID"), c.logger)
			}
			*dst = id
		}
	}

	list, total, err := c.workflow.Search(ctx.Request().Context(), query.Get("groupId"), rf, uint64(filter.Limit), uint64(filter.Offset))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.PaginatedResponse(ctx, list, total, filter, "Requests listed")
}

// ListByRequester handles GET /requesters/:requesterId/requests?groupId=.
func (c *RequestController) ListByRequester(ctx echo.Context) error {
	result, err := c.workflow.ListByRequester(ctx.Request().Context(), ctx.Param("requesterId"), ctx.QueryParam("groupId"))
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Requests listed", http.StatusOK)
}

// ListByStage handles GET /stages/:id/requests.
func (c *RequestController) ListByStage(ctx echo.Context) error {
	stageID, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	result, err := c.workflow.ListByStage(ctx.Request().Context(), stageID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Requests listed", http.StatusOK)
}

// ReorderCards handles PUT /stages/:id/requests/order.
func (c *RequestController) ReorderCards(ctx echo.Context) error {
	stageID, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	var in dto.ReorderDTO
	if err := bindAndValidate(ctx, &in); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	if err := c.workflow.ReorderCards(ctx.Request().Context(), stageID, in.IDs); err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, struct{}{}, "Requests reordered", http.StatusOK)
}

// CountByStage handles GET /process-types/:id/counts.
func (c *RequestController) CountByStage(ctx echo.Context) error {
	processTypeID, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	result, err := c.workflow.CountByStage(ctx.Request().Context(), processTypeID)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Counts computed", http.StatusOK)
}

// History handles GET /requests/:id/transitions.
func (c *RequestController) History(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	result, err := c.workflow.History(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Transitions listed", http.StatusOK)
}

// Activity handles GET /requests/:id/activity.
func (c *RequestController) Activity(ctx echo.Context) error {
	id, err := parseID(ctx, "id")
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	result, err := c.activity.ListByRequest(ctx.Request().Context(), id)
	if err != nil {
		return utils.ErrorResponse(ctx, err, c.logger)
	}
	return utils.SuccessResponse(ctx, result, "Activity listed", http.StatusOK)
}
