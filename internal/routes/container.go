package routes

import (
	"github.com/go-redis/redis/v8"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/listeners"
	"github.com/geniusappsio/tramita/internal/repositories"
	"github.com/geniusappsio/tramita/internal/services"
	"github.com/geniusappsio/tramita/pkg/config"
	"github.com/geniusappsio/tramita/pkg/eventbus"
	"github.com/geniusappsio/tramita/pkg/metrics"
	"github.com/geniusappsio/tramita/pkg/utils"
)

// Services is the wired service layer shared by the HTTP server and the CLI commands.
type Services struct {
	ProcessTypes services.ProcessTypeServiceInterface
	Stages       services.StageServiceInterface
	Workflow     services.WorkflowServiceInterface
	Protocols    services.ProtocolAllocatorInterface
	Forms        services.FormServiceInterface
	Board        services.BoardServiceInterface
	Activity     services.ActivityLogServiceInterface
	Assignments  services.AssignmentServiceInterface
}

// NewServices builds repositories and services over dbConn. A nil redisClient
// or a disabled Redis config falls back to a cache that stores nothing.
func NewServices(
	dbConn *pgxpool.Pool,
	redisClient *redis.Client,
	bus *eventbus.Bus,
	m *metrics.Metrics,
	logger *zap.Logger,
	cfg *config.Config,
) *Services {
	clock := utils.SystemClock{}
	txManager := repositories.NewTxManager(dbConn)

	// --- repositories ---
	processTypeRepo := repositories.NewProcessTypeRepository(dbConn)
	stageRepo := repositories.NewStageRepository(dbConn)
	requestRepo := repositories.NewRequestRepository(dbConn)
	transitionRepo := repositories.NewStageTransitionRepository(dbConn)
	protocolRepo := repositories.NewProtocolRepository(dbConn)
	sequenceRepo := repositories.NewSequenceRepository(dbConn)
	sortRepo := repositories.NewSortOrderRepository(dbConn)
	formRepo := repositories.NewFormRepository(dbConn)
	activityRepo := repositories.NewActivityLogRepository(dbConn)
	assignmentRepo := repositories.NewAssignmentRepository(dbConn)

	cache := repositories.NewNoopCache()
	if redisClient != nil && cfg.Redis.Enabled {
		cache = repositories.NewRedisCacheRepository(redisClient)
	}

	// --- services ---
	ordering := services.NewOrderingService(sortRepo, txManager, m, logger)
	allocator := services.NewProtocolAllocator(sequenceRepo, protocolRepo, txManager, clock, m, logger)
	stageService := services.NewStageService(
		processTypeRepo, stageRepo, requestRepo, ordering, cache, txManager, clock, cfg.Cache.StageListTTL, logger,
	)
	activityService := services.NewActivityLogService(activityRepo, logger)

	s := &Services{
		ProcessTypes: services.NewProcessTypeService(processTypeRepo, sequenceRepo, txManager, clock, logger),
		Stages:       stageService,
		Workflow: services.NewWorkflowService(
			processTypeRepo, stageRepo, requestRepo, transitionRepo, protocolRepo,
			allocator, ordering, txManager, bus, clock, cfg.Workflow, m, logger,
		),
		Protocols:   allocator,
		Forms:       services.NewFormService(formRepo, processTypeRepo, stageRepo, ordering, txManager, clock, logger),
		Board:       services.NewBoardService(processTypeRepo, requestRepo, stageService, logger),
		Activity:    activityService,
		Assignments: services.NewAssignmentService(assignmentRepo, requestRepo, txManager, bus, clock, logger),
	}

	// --- listeners ---
	listeners.NewActivityLogListener(activityService, logger).Register(bus)

	return s
}
