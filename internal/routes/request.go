package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/controllers"
	"github.com/geniusappsio/tramita/internal/services"
)

func runRequestRouter(
	api *echo.Group,
	workflowService services.WorkflowServiceInterface,
	activityService services.ActivityLogServiceInterface,
	logger *zap.Logger,
) {
	requestCtrl := controllers.NewRequestController(workflowService, activityService, logger)

	request := api.Group("/requests")
	{
		request.POST("", requestCtrl.Create)
		request.GET("", requestCtrl.Search)
		request.GET("/by-protocol", requestCtrl.GetByProtocol)
		request.GET("/:id", requestCtrl.GetByID)
		request.PUT("/:id", requestCtrl.Update)
		request.DELETE("/:id", requestCtrl.Delete)
		request.POST("/:id/move", requestCtrl.Move)
		request.GET("/:id/transitions", requestCtrl.History)
		request.GET("/:id/activity", requestCtrl.Activity)
	}

	api.GET("/stages/:id/requests", requestCtrl.ListByStage)
	api.PUT("/stages/:id/requests/order", requestCtrl.ReorderCards)
	api.GET("/requesters/:requesterId/requests", requestCtrl.ListByRequester)
}
