package port

import "github.com/yyyooosi/stock-analyzer-2025-sub001/internal/application/dto"

// Broadcaster рассылает snapshots и alerts подключенным push-клиентам
// (реализация - websocket hub)
type Broadcaster interface {
	// Broadcast отправляет assessment всем клиентам
	Broadcast(assessment *dto.AssessmentDTO)

	// BroadcastAlert отправляет alert всем клиентам
	BroadcastAlert(alert *dto.AlertDTO)

	// ClientCount возвращает количество подключенных клиентов
	ClientCount() int
}
