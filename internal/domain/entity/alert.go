package entity

import (
	"fmt"
	"time"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/valueobject"
)

// AlertSeverity представляет серьезность alert
type AlertSeverity string

const (
	SeverityWarning AlertSeverity = "warning"
	SeverityDanger  AlertSeverity = "danger"
)

// Alert - дискретное предупреждение, выведенное из одного прогона pipeline.
// После создания не мутируется, только добавляется в список assessment.
type Alert struct {
	ID         string
	Timestamp  time.Time
	Severity   AlertSeverity
	Scope      string
	Category   valueobject.Category
	Message    string
	Indicators []string
}

// NewAlert создает alert с детерминированным id: scope + epoch-millis.
// seq > 0 добавляет суффикс, если в одном прогоне scope повторяется
// в пределах одной миллисекунды.
func NewAlert(
	scope string,
	category valueobject.Category,
	severity AlertSeverity,
	message string,
	indicators []string,
	now time.Time,
	seq int,
) Alert {
	id := fmt.Sprintf("%s-%d", scope, now.UnixMilli())
	if seq > 0 {
		id = fmt.Sprintf("%s-%d", id, seq)
	}

	return Alert{
		ID:         id,
		Timestamp:  now,
		Severity:   severity,
		Scope:      scope,
		Category:   category,
		Message:    message,
		Indicators: indicators,
	}
}
