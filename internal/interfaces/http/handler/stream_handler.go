package handler

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/metrics"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/stream"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/pkg/logger"
)

// StreamHandler обслуживает push-канал обновлений в формате
// text/event-stream
type StreamHandler struct {
	manager *stream.Manager
	metrics *metrics.Metrics
	logger  *logger.Logger
}

// NewStreamHandler создает новый handler
func NewStreamHandler(manager *stream.Manager, m *metrics.Metrics, logger *logger.Logger) *StreamHandler {
	return &StreamHandler{
		manager: manager,
		metrics: m,
		logger:  logger,
	}
}

// HandleStream держит соединение открытым и транслирует события
// подписки. Heartbeat уходит comment-строкой, именованные события
// в формате "event:/data:".
func (h *StreamHandler) HandleStream(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		http.Error(w, "Streaming unsupported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	// Отключает буферизацию на reverse proxy
	w.Header().Set("X-Accel-Buffering", "no")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	sub := h.manager.Subscribe(r.Context())
	defer sub.Close()

	if h.metrics != nil {
		h.metrics.ActiveStreams.Inc()
		defer h.metrics.ActiveStreams.Dec()
	}

	for {
		select {
		case <-r.Context().Done():
			return
		case event, ok := <-sub.Events():
			if !ok {
				return
			}
			if err := writeEvent(w, event); err != nil {
				h.logger.Debug("Stream write failed, closing",
					"subscriber_id", sub.ID(), "error", err.Error())
				return
			}
			flusher.Flush()
		}
	}
}

// writeEvent сериализует событие в wire-формат event stream
func writeEvent(w http.ResponseWriter, event stream.Event) error {
	if event.Name == stream.EventHeartbeat {
		// Heartbeat - это comment-строка: клиенты ее не парсят,
		// но соединение не считается мертвым
		_, err := fmt.Fprintf(w, ": heartbeat %s\n\n", time.Now().UTC().Format(time.RFC3339))
		return err
	}

	data, err := json.Marshal(event.Data)
	if err != nil {
		return err
	}

	_, err = fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event.Name, data)
	return err
}
