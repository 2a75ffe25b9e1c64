package handler

import (
	"net/http"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/infrastructure/diagnostics"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/interfaces/http/middleware"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/stream"
)

// DiagnosticsHandler отдает эксплуатационную информацию о процессе
// и хосте (admin endpoint)
type DiagnosticsHandler struct {
	probe   *diagnostics.SystemProbe
	manager *stream.Manager
}

// NewDiagnosticsHandler создает новый handler
func NewDiagnosticsHandler(probe *diagnostics.SystemProbe, manager *stream.Manager) *DiagnosticsHandler {
	return &DiagnosticsHandler{
		probe:   probe,
		manager: manager,
	}
}

// GetDiagnostics возвращает snapshot состояния системы
func (h *DiagnosticsHandler) GetDiagnostics(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	snapshot := h.probe.Collect(r.Context())

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success":        true,
		"system":         snapshot,
		"active_streams": h.manager.ActiveCount(),
	})
}
