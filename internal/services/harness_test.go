package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/dto"
	"github.com/geniusappsio/tramita/internal/entities"
	"github.com/geniusappsio/tramita/pkg/config"
	"github.com/geniusappsio/tramita/pkg/metrics"
	"github.com/geniusappsio/tramita/pkg/utils"
)

var testNow = time.Date(2026, time.March, 10, 9, 0, 0, 0, time.UTC)

type harness struct {
	store     *memStore
	clock     *utils.FixedClock
	cache     *memCache
	publisher *recordingPublisher
	metrics   *metrics.Metrics

	allocator    ProtocolAllocatorInterface
	ordering     OrderingServiceInterface
	processTypes ProcessTypeServiceInterface
	stages       StageServiceInterface
	workflow     WorkflowServiceInterface
	forms        FormServiceInterface
	board        BoardServiceInterface
	assignments  AssignmentServiceInterface
}

func newHarness(t *testing.T, cfg config.WorkflowConfig) *harness {
	t.Helper()

	logger := zap.NewNop()
	h := &harness{
		store:     newMemStore(),
		clock:     utils.NewFixedClock(testNow),
		cache:     newMemCache(),
		publisher: &recordingPublisher{},
		metrics:   metrics.New(),
	}
	tx := passThroughTx{}

	ptRepo := memProcessTypes{h.store}
	stageRepo := memStages{h.store}
	requestRepo := memRequests{h.store}
	protocolRepo := memProtocols{h.store}

	h.allocator = NewProtocolAllocator(memSequences{h.store}, protocolRepo, tx, h.clock, h.metrics, logger)
	h.ordering = NewOrderingService(memSortOrders{h.store}, tx, h.metrics, logger)
	h.processTypes = NewProcessTypeService(ptRepo, memSequences{h.store}, tx, h.clock, logger)
	h.stages = NewStageService(ptRepo, stageRepo, requestRepo, h.ordering, h.cache, tx, h.clock, time.Minute, logger)
	h.workflow = NewWorkflowService(
		ptRepo, stageRepo, requestRepo, memTransitions{h.store}, protocolRepo,
		h.allocator, h.ordering, tx, h.publisher, h.clock, cfg, h.metrics, logger,
	)
	h.forms = NewFormService(memForms{h.store}, ptRepo, stageRepo, h.ordering, tx, h.clock, logger)
	h.board = NewBoardService(ptRepo, requestRepo, h.stages, logger)
	h.assignments = NewAssignmentService(memAssignments{h.store}, requestRepo, tx, h.publisher, h.clock, logger)
	return h
}

func (h *harness) processType(t *testing.T, name, prefix string) *entities.ProcessType {
	t.Helper()
	pt, err := h.processTypes.Create(context.Background(), dto.CreateProcessTypeDTO{
		Name:    name,
		Prefix:  prefix,
		GroupID: "org-1",
	})
	require.NoError(t, err)
	return pt
}

func (h *harness) stage(t *testing.T, processTypeID uint64, name string, initial, final bool) *entities.Stage {
	t.Helper()
	st, err := h.stages.CreateStage(context.Background(), dto.CreateStageDTO{
		ProcessTypeID: processTypeID,
		Name:          name,
		IsInitial:     initial,
		IsFinal:       final,
	})
	require.NoError(t, err)
	return st
}

func (h *harness) request(t *testing.T, processTypeID uint64, title string) *entities.Request {
	t.Helper()
	req, err := h.workflow.Create(context.Background(), dto.CreateRequestDTO{
		ProcessTypeID: processTypeID,
		Title:         title,
		GroupID:       "org-1",
	}, "user-1")
	require.NoError(t, err)
	return req
}

// board builds a process type with the stages Aberto (initial), Em Análise and Concluído (final).
func (h *harness) boardFixture(t *testing.T) (*entities.ProcessType, []*entities.Stage) {
	t.Helper()
	pt := h.processType(t, "Manutenção", "MEM")
	return pt, []*entities.Stage{
		h.stage(t, pt.ID, "Aberto", true, false),
		h.stage(t, pt.ID, "Em Análise", false, false),
		h.stage(t, pt.ID, "Concluído", false, true),
	}
}
