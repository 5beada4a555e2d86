package utils

import (
	"errors"
	"net/http"

	apperrors "github.com/geniusappsio/tramita/pkg/errors"
	"github.com/geniusappsio/tramita/pkg/types"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"
)

type HTTPResponse struct {
	Status  bool        `json:"status"`
	Body    interface{} `json:"body,omitempty"`
	Message string      `json:"message"`
}

type listBody struct {
	List       interface{}      `json:"list"`
	Pagination types.Pagination `json:"pagination"`
}

func SuccessResponse(ctx echo.Context, body interface{}, message string, code int) error {
	return ctx.JSON(code, &HTTPResponse{Status: true, Body: body, Message: message})
}

// PaginatedResponse wraps a list with pagination metadata derived from filter.
func PaginatedResponse(ctx echo.Context, list interface{}, total uint64, filter types.Filter, message string) error {
	return SuccessResponse(ctx, listBody{
		List:       list,
		Pagination: types.NewPagination(total, filter.Page, filter.Limit),
	}, message, http.StatusOK)
}

// ErrorResponse maps the error taxonomy onto HTTP statuses.
func ErrorResponse(c echo.Context, err error, logger *zap.Logger) error {
	var httpErr *apperrors.HttpError
	if errors.As(err, &httpErr) {
		if httpErr.Err != nil {
			logger.Warn("HTTP error",
				zap.Int("code", httpErr.Code),
				zap.String("message", httpErr.Message),
				zap.Error(httpErr.Err),
				zap.Any("context", httpErr.Context),
			)
		}
		return c.JSON(httpErr.Code, &HTTPResponse{Status: false, Message: httpErr.Message, Body: httpErr.Details})
	}

	if ve, ok := apperrors.AsValidation(err); ok {
		return c.JSON(http.StatusUnprocessableEntity, &HTTPResponse{Status: false, Message: "Validation failed", Body: ve.Fields})
	}

	var conflict *apperrors.ConflictError
	if errors.As(err, &conflict) {
		return c.JSON(http.StatusConflict, &HTTPResponse{
			Status:  false,
			Message: conflict.Resource + " already exists",
			Body:    map[string]interface{}{"retryable": conflict.Retryable},
		})
	}

	if errors.Is(err, apperrors.ErrNotFound) {
		return c.JSON(http.StatusNotFound, &HTTPResponse{Status: false, Message: "Not found"})
	}

	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		fields := make(map[string]string, len(validationErrors))
		for _, fe := range validationErrors {
			fields[fe.Field()] = "failed rule '" + fe.Tag() + "'"
		}
		return c.JSON(http.StatusBadRequest, &HTTPResponse{Status: false, Message: "Invalid request", Body: fields})
	}

	logger.Error("Unexpected error", zap.Error(err))
	return c.JSON(http.StatusInternalServerError, &HTTPResponse{Status: false, Message: "Internal server error"})
}
