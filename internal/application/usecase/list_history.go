package usecase

import (
	"context"
	"time"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/application/dto"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/repository"
)

const (
	defaultHistoryWindow = 24 * time.Hour
	maxHistoryLimit      = 200
)

// ListHistoryUseCase возвращает сохраненные assessments за период
type ListHistoryUseCase struct {
	repository repository.AssessmentRepository
	now        func() time.Time
}

// NewListHistoryUseCase создает use case истории
func NewListHistoryUseCase(repo repository.AssessmentRepository) *ListHistoryUseCase {
	return &ListHistoryUseCase{
		repository: repo,
		now:        time.Now,
	}
}

// Execute возвращает assessments за последние window часов (не более limit).
// Нулевые параметры заменяются на значения по умолчанию.
func (uc *ListHistoryUseCase) Execute(ctx context.Context, window time.Duration, limit int) ([]*dto.AssessmentDTO, error) {
	if window <= 0 {
		window = defaultHistoryWindow
	}
	if limit <= 0 || limit > maxHistoryLimit {
		limit = maxHistoryLimit
	}

	assessments, err := uc.repository.FindSince(ctx, uc.now().Add(-window), limit)
	if err != nil {
		return nil, err
	}

	out := make([]*dto.AssessmentDTO, 0, len(assessments))
	for _, a := range assessments {
		out = append(out, dto.FromAssessment(a))
	}
	return out, nil
}
