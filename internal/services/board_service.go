package services

import (
	"context"
	"fmt"
	"io"

	"github.com/xuri/excelize/v2"
	"go.uber.org/zap"

	"github.com/geniusappsio/tramita/internal/dto"
	"github.com/geniusappsio/tramita/internal/entities"
	"github.com/geniusappsio/tramita/internal/repositories"
	"github.com/geniusappsio/tramita/pkg/utils"
)

const boardSheet = "Board"

var boardHeaders = []interface{}{
	"Protocol", "Title", "Stage", "Status", "Priority", "Requester", "Created", "Completed", "Time to complete",
}

var priorityLabels = map[entities.Priority]string{
	entities.PriorityUrgent: "urgent",
	entities.PriorityNormal: "normal",
	entities.PriorityLow:    "low",
}

type BoardServiceInterface interface {
	Summary(ctx context.Context, processTypeID uint64) (*dto.BoardSummaryDTO, error)
	// Export writes an xlsx workbook with one row per live request.
	Export(ctx context.Context, processTypeID uint64, w io.Writer) error
}

type BoardService struct {
	processTypeRepo repositories.ProcessTypeRepositoryInterface
	requestRepo     repositories.RequestRepositoryInterface
	stages          StageServiceInterface
	logger          *zap.Logger
}

func NewBoardService(
	processTypeRepo repositories.ProcessTypeRepositoryInterface,
	requestRepo repositories.RequestRepositoryInterface,
	stages StageServiceInterface,
	logger *zap.Logger,
) BoardServiceInterface {
	return &BoardService{processTypeRepo: processTypeRepo, requestRepo: requestRepo, stages: stages, logger: logger}
}

func (s *BoardService) Summary(ctx context.Context, processTypeID uint64) (*dto.BoardSummaryDTO, error) {
	pt, err := s.processTypeRepo.FindByID(ctx, nil, processTypeID)
	if err != nil {
		return nil, err
	}
	stages, err := s.stages.ListStages(ctx, processTypeID)
	if err != nil {
		return nil, err
	}
	counts, err := s.requestRepo.CountByStage(ctx, processTypeID)
	if err != nil {
		return nil, err
	}

	summary := &dto.BoardSummaryDTO{ProcessType: pt, Columns: make([]dto.BoardColumnDTO, 0, len(stages))}
	for _, stage := range stages {
		summary.Columns = append(summary.Columns, dto.BoardColumnDTO{Stage: stage, Count: counts[stage.ID]})
		summary.Total += counts[stage.ID]
	}
	return summary, nil
}

func boardRow(req *entities.Request, stageNames map[uint64]string) []interface{} {
	const dateFmt = "2006-01-02 15:04"

	var completed, elapsed string
	if req.CompletedAt.Valid {
		completed = req.CompletedAt.Time.Format(dateFmt)
		elapsed = utils.FormatSecondsToHumanReadable(int64(req.CompletedAt.Time.Sub(req.CreatedAt).Seconds()))
	}

	return []interface{}{
		req.ProtocolNumber.String, req.Title, stageNames[req.CurrentStageID], string(req.Status),
		priorityLabels[req.Priority], req.RequesterName.String, req.CreatedAt.Format(dateFmt), completed, elapsed,
	}
}

func (s *BoardService) Export(ctx context.Context, processTypeID uint64, w io.Writer) error {
	if _, err := s.processTypeRepo.FindByID(ctx, nil, processTypeID); err != nil {
		return err
	}
	stages, err := s.stages.ListStages(ctx, processTypeID)
	if err != nil {
		return err
	}
	requests, err := s.requestRepo.ListByProcessType(ctx, processTypeID)
	if err != nil {
		return err
	}

	stageNames := make(map[uint64]string, len(stages))
	for _, st := range stages {
		stageNames[st.ID] = st.Name
	}

	f := excelize.NewFile()
	defer func() {
		if err := f.Close(); err != nil {
			s.logger.Warn("failed to close workbook", zap.Error(err))
		}
	}()

	if err := f.SetSheetName("Sheet1", boardSheet); err != nil {
		return fmt.Errorf("failed to prepare sheet: %w", err)
	}
	if err := f.SetSheetRow(boardSheet, "A1", &boardHeaders); err != nil {
		return fmt.Errorf("failed to write header: %w", err)
	}
	if style, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}}); err == nil {
		_ = f.SetCellStyle(boardSheet, "A1", "I1", style)
	}

	for i, req := range requests {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return err
		}
		row := boardRow(req, stageNames)
		if err := f.SetSheetRow(boardSheet, cell, &row); err != nil {
			return fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	_ = f.SetColWidth(boardSheet, "A", "A", 20)
	_ = f.SetColWidth(boardSheet, "B", "B", 40)
	_ = f.SetColWidth(boardSheet, "C", "F", 18)

	if _, err := f.WriteTo(w); err != nil {
		return fmt.Errorf("failed to write workbook: %w", err)
	}
	return nil
}
