package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/controllers"
	"github.com/geniusappsio/tramita/internal/services"
)

func runProcessTypeRouter(
	api *echo.Group,
	processTypeService services.ProcessTypeServiceInterface,
	workflowService services.WorkflowServiceInterface,
	boardService services.BoardServiceInterface,
	logger *zap.Logger,
) {
	processTypeCtrl := controllers.NewProcessTypeController(processTypeService, logger)
	boardCtrl := controllers.NewBoardController(boardService, logger)
	requestCtrl := controllers.NewRequestController(workflowService, nil, logger)

	processType := api.Group("/process-types")
	{
		processType.POST("", processTypeCtrl.Create)
		processType.GET("", processTypeCtrl.List)
		processType.GET("/:id", processTypeCtrl.GetByID)
		processType.PUT("/:id", processTypeCtrl.Update)
		processType.DELETE("/:id", processTypeCtrl.Delete)
		processType.POST("/:id/restore", processTypeCtrl.Restore)

		processType.GET("/:id/board", boardCtrl.Summary)
		processType.GET("/:id/board.xlsx", boardCtrl.Export)
		processType.GET("/:id/counts", requestCtrl.CountByStage)
	}
}
