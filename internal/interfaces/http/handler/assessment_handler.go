package handler

import (
	"errors"
	"net/http"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/application/usecase"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/interfaces/http/middleware"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/pkg/logger"
)

// AssessmentHandler обрабатывает pull endpoint risk assessment
type AssessmentHandler struct {
	getAssessmentUC *usecase.GetAssessmentUseCase
	logger          *logger.Logger
}

// NewAssessmentHandler создает новый handler
func NewAssessmentHandler(getAssessmentUC *usecase.GetAssessmentUseCase, logger *logger.Logger) *AssessmentHandler {
	return &AssessmentHandler{
		getAssessmentUC: getAssessmentUC,
		logger:          logger,
	}
}

// GetAssessment возвращает текущий assessment.
// Тотальный отказ источников данных отдается как 503, без
// сфабрикованного нулевого результата.
func (h *AssessmentHandler) GetAssessment(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	assessment, notified, err := h.getAssessmentUC.Execute(r.Context())
	if err != nil {
		if errors.Is(err, usecase.ErrNoData) {
			middleware.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{
				"success": false,
				"error":   "no indicator data available",
			})
			return
		}

		h.logger.Error("Failed to get assessment", err)
		middleware.WriteJSON(w, http.StatusInternalServerError, map[string]any{
			"success": false,
			"error":   "failed to build assessment",
		})
		return
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success":            true,
		"data":               assessment,
		"notifications_sent": notified,
	})
}
