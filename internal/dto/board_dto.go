package dto

import "github.com/geniusappsio/tramita/internal/entities"

type BoardColumnDTO struct {
	Stage *entities.Stage `json:"stage"`
	Count int             `json:"count"`
}

type BoardSummaryDTO struct {
	ProcessType *entities.ProcessType `json:"processType"`
	Columns     []BoardColumnDTO      `json:"columns"`
	Total       int                   `json:"total"`
}
