package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/controllers"
	"github.com/geniusappsio/tramita/internal/services"
)

func runStageRouter(api *echo.Group, stageService services.StageServiceInterface, logger *zap.Logger) {
	stageCtrl := controllers.NewStageController(stageService, logger)

	api.POST("/process-types/:id/stages", stageCtrl.Create)
	api.GET("/process-types/:id/stages", stageCtrl.List)
	api.PUT("/process-types/:id/stages/order", stageCtrl.Reorder)

	stage := api.Group("/stages")
	{
		stage.GET("/:id", stageCtrl.GetByID)
		stage.PUT("/:id", stageCtrl.Update)
		stage.DELETE("/:id", stageCtrl.Delete)
	}
}
