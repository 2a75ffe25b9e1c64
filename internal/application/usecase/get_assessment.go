package usecase

import (
	"context"
	"errors"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/application/dto"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/application/port"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/pkg/logger"
)

// GetAssessmentUseCase обслуживает pull endpoint.
// Порядок источников: cache -> свежий прогон -> последний завершенный snapshot.
type GetAssessmentUseCase struct {
	runner *RunAssessmentUseCase
	cache  port.Cache
	logger *logger.Logger
}

// NewGetAssessmentUseCase создает use case чтения assessment
func NewGetAssessmentUseCase(runner *RunAssessmentUseCase, cache port.Cache, log *logger.Logger) *GetAssessmentUseCase {
	return &GetAssessmentUseCase{
		runner: runner,
		cache:  cache,
		logger: log,
	}
}

// Execute возвращает актуальный assessment и флаг notifications_sent
// того прогона, который его породил.
func (uc *GetAssessmentUseCase) Execute(ctx context.Context) (*dto.AssessmentDTO, bool, error) {
	if uc.cache != nil {
		var entry CacheEntry
		if err := uc.cache.Get(ctx, CacheKeyLatest, &entry); err == nil && entry.Data != nil {
			return entry.Data, entry.NotificationsSent, nil
		}
	}

	assessment, notified, err := uc.runner.Execute(ctx)
	if err == nil {
		return dto.FromAssessment(assessment), notified, nil
	}

	if errors.Is(err, ErrRunInProgress) {
		// Параллельный прогон уже идет: отдаем последний завершенный snapshot
		if latest := uc.runner.Latest(); latest != nil {
			return dto.FromAssessment(latest), false, nil
		}
		return nil, false, ErrNoData
	}

	return nil, false, err
}
