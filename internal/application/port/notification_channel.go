package port

import (
	"context"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/application/dto"
)

// NotificationChannel - внешний канал уведомлений (chat webhook и т.п.).
// Best-effort: возвращает true при успешной доставке, false при любом
// отказе. Никогда не паникует; отказ одного канала не влияет на другие.
type NotificationChannel interface {
	// Notify доставляет assessment в канал
	Notify(ctx context.Context, assessment *dto.AssessmentDTO) bool

	// Name возвращает имя канала для логов
	Name() string
}
