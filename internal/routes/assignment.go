package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/controllers"
	"github.com/geniusappsio/tramita/internal/services"
)

func runAssignmentRouter(api *echo.Group, assignmentService services.AssignmentServiceInterface, logger *zap.Logger) {
	assignmentCtrl := controllers.NewAssignmentController(assignmentService, logger)

	api.POST("/requests/:id/assignments", assignmentCtrl.Assign)
	api.GET("/requests/:id/assignments", assignmentCtrl.ListByRequest)
	api.DELETE("/requests/:id/assignments/:userId", assignmentCtrl.Unassign)
	api.GET("/assignees/:userId/assignments", assignmentCtrl.ListByUser)
}
