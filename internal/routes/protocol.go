package routes

import (
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/controllers"
	"github.com/geniusappsio/tramita/internal/services"
)

func runProtocolRouter(api *echo.Group, allocator services.ProtocolAllocatorInterface, logger *zap.Logger) {
	protocolCtrl := controllers.NewProtocolController(allocator, logger)

	api.POST("/protocols", protocolCtrl.Allocate)
	api.GET("/protocols", protocolCtrl.Lookup)
}
