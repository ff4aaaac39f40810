package service

import (
	"context"

	"github.com/google/uuid"
	"github.com/stemsi/exstem-assessment/internal/model"
)

// ResultService serves finalized results to administrators.
type ResultService struct {
	lister ResultLister
}

// NewResultService creates a new ResultService.
func NewResultService(lister ResultLister) *ResultService {
	return &ResultService{lister: lister}
}

// ListByExam returns one page of an exam's results and the total count.
func (s *ResultService) ListByExam(ctx context.Context, examID uuid.UUID, categoryID *int, page, perPage int) ([]model.ResultListItem, int, error) {
	if page < 1 {
		page = 1
	}
	if perPage < 1 || perPage > 100 {
		perPage = 20
	}
	items, total, err := s.lister.ListByExam(ctx, examID, categoryID, perPage, (page-1)*perPage)
	if err != nil {
		return nil, 0, err
	}
	if items == nil {
		items = []model.ResultListItem{}
	}
	return items, total, nil
}
