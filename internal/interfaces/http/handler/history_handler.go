package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/application/usecase"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/interfaces/http/middleware"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/pkg/logger"
)

// HistoryHandler обрабатывает запросы истории assessments
type HistoryHandler struct {
	listHistoryUC *usecase.ListHistoryUseCase
	maxWindow     time.Duration
	logger        *logger.Logger
}

// NewHistoryHandler создает новый handler
func NewHistoryHandler(listHistoryUC *usecase.ListHistoryUseCase, maxWindow time.Duration, logger *logger.Logger) *HistoryHandler {
	if maxWindow <= 0 {
		maxWindow = 30 * 24 * time.Hour
	}

	return &HistoryHandler{
		listHistoryUC: listHistoryUC,
		maxWindow:     maxWindow,
		logger:        logger,
	}
}

// GetHistory возвращает сохраненные assessments за период.
// Query параметры: window (duration, по умолчанию 24h), limit.
func (h *HistoryHandler) GetHistory(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	window := 24 * time.Hour
	if raw := r.URL.Query().Get("window"); raw != "" {
		parsed, err := time.ParseDuration(raw)
		if err != nil {
			http.Error(w, "Invalid window format", http.StatusBadRequest)
			return
		}
		if parsed <= 0 || parsed > h.maxWindow {
			http.Error(w, "Window out of allowed range", http.StatusBadRequest)
			return
		}
		window = parsed
	}

	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed <= 0 {
			http.Error(w, "Invalid limit", http.StatusBadRequest)
			return
		}
		limit = parsed
	}

	history, err := h.listHistoryUC.Execute(r.Context(), window, limit)
	if err != nil {
		h.logger.Error("Failed to get assessment history", err)
		http.Error(w, "Failed to fetch history", http.StatusInternalServerError)
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    history,
		"count":   len(history),
	})
}
