package service

import (
	"time"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/valueobject"
)

// NotificationPolicy решает, нужно ли отправлять уведомление о новом
// assessment (Domain Service, чистая функция без состояния).
// Состояние (last sent time, last level) держит dispatcher.
type NotificationPolicy struct {
	cooldown time.Duration
	minLevel valueobject.RiskLevel
}

// NewNotificationPolicy создает политику с указанным cool-down
func NewNotificationPolicy(cooldown time.Duration) *NotificationPolicy {
	return &NotificationPolicy{
		cooldown: cooldown,
		minLevel: valueobject.LevelWarning,
	}
}

// ShouldNotify возвращает true если:
//   - уровень не ниже warning, И
//   - cool-down с последней успешной отправки истек, ИЛИ
//   - уровень эскалировал на полный band (эскалация обходит cool-down).
//
// lastSentAt.IsZero() означает, что уведомлений еще не было.
func (p *NotificationPolicy) ShouldNotify(
	level valueobject.RiskLevel,
	lastLevel valueobject.RiskLevel,
	lastSentAt time.Time,
	now time.Time,
) bool {
	if !level.AtLeast(p.minLevel) {
		return false
	}

	if lastSentAt.IsZero() {
		return true
	}

	if level.EscalatedFrom(lastLevel) {
		return true
	}

	return now.Sub(lastSentAt) >= p.cooldown
}
