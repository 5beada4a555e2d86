package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/controllers"
	"github.com/geniusappsio/tramita/internal/services"
)

func runFormRouter(api *echo.Group, formService services.FormServiceInterface, logger *zap.Logger) {
	formCtrl := controllers.NewFormController(formService, logger)

	template := api.Group("/form-templates")
	{
		template.POST("", formCtrl.CreateTemplate)
		template.GET("", formCtrl.ListTemplates)
		template.GET("/:id", formCtrl.GetTemplate)
		template.PUT("/:id", formCtrl.UpdateTemplate)
		template.DELETE("/:id", formCtrl.DeleteTemplate)
		template.POST("/:id/fields", formCtrl.CreateField)
		template.GET("/:id/fields", formCtrl.ListFields)
		template.PUT("/:id/fields/order", formCtrl.ReorderFields)
	}

	field := api.Group("/form-fields")
	{
		field.PUT("/:id", formCtrl.UpdateField)
		field.DELETE("/:id", formCtrl.DeleteField)
	}
}
