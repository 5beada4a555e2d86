package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/pkg/config"
	"github.com/geniusappsio/tramita/pkg/metrics"
	"github.com/geniusappsio/tramita/pkg/utils"
)

func InitRouter(e *echo.Echo, dbConn *pgxpool.Pool, svc *Services, m *metrics.Metrics, logger *zap.Logger, cfg *config.Config) {
	logger.Info("InitRouter: registering routes")

	e.GET("/health", healthHandler(dbConn))
	if cfg.Metrics.Enabled && m != nil {
		e.GET("/metrics", echo.WrapHandler(m.Handler()))
	}

	api := e.Group("/api")

	runProcessTypeRouter(api, svc.ProcessTypes, svc.Workflow, svc.Board, logger)
	runStageRouter(api, svc.Stages, logger)
	runRequestRouter(api, svc.Workflow, svc.Activity, logger)
	runProtocolRouter(api, svc.Protocols, logger)
	runFormRouter(api, svc.Forms, logger)
	runAssignmentRouter(api, svc.Assignments, logger)

	logger.Info("InitRouter: routes registered", zap.Int("count", len(e.Routes())))
}

func healthHandler(dbConn *pgxpool.Pool) echo.HandlerFunc {
	return func(ctx echo.Context) error {
		if dbConn != nil {
			pingCtx, cancel := context.WithTimeout(ctx.Request().Context(), 2*time.Second)
			defer cancel()
			if err := dbConn.Ping(pingCtx); err != nil {
				return ctx.JSON(http.StatusServiceUnavailable, &utils.HTTPResponse{Status: false, Message: "database unavailable"})
			}
		}
		return utils.SuccessResponse(ctx, struct{}{}, "ok", http.StatusOK)
	}
}
