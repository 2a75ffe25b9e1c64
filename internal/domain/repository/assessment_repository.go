package repository

import (
	"context"
	"time"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/entity"
)

// AssessmentRepository определяет контракт хранилища assessments
// (Dependency Inversion: интерфейс в domain, реализация в infrastructure)
type AssessmentRepository interface {
	// Save сохраняет завершенный assessment
	Save(ctx context.Context, assessment *entity.Assessment) error

	// FindSince возвращает assessments, сгенерированные после since,
	// упорядоченные по времени генерации по убыванию
	FindSince(ctx context.Context, since time.Time, limit int) ([]*entity.Assessment, error)
}
