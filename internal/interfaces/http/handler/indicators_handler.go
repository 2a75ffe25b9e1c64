package handler

import (
	"net/http"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/interfaces/http/middleware"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/registry"
)

// IndicatorsHandler отдает текущую таблицу определений индикаторов
type IndicatorsHandler struct {
	registry *registry.Registry
}

// NewIndicatorsHandler создает новый handler
func NewIndicatorsHandler(reg *registry.Registry) *IndicatorsHandler {
	return &IndicatorsHandler{registry: reg}
}

type indicatorDefinition struct {
	ID            string  `json:"id"`
	Name          string  `json:"name"`
	Category      string  `json:"category"`
	SeriesID      string  `json:"series_id"`
	Min           float64 `json:"min"`
	Max           float64 `json:"max"`
	Percentile90  float64 `json:"percentile_90"`
	Threshold     float64 `json:"threshold"`
	HigherIsWorse bool    `json:"higher_is_worse"`
}

// GetIndicators возвращает определения всех индикаторов
func (h *IndicatorsHandler) GetIndicators(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	defs := h.registry.Definitions()
	out := make([]indicatorDefinition, 0, len(defs))
	for _, def := range defs {
		out = append(out, indicatorDefinition{
			ID:            def.ID,
			Name:          def.Name,
			Category:      def.Category.String(),
			SeriesID:      def.SeriesID,
			Min:           def.Min,
			Max:           def.Max,
			Percentile90:  def.Percentile90,
			Threshold:     def.Threshold,
			HigherIsWorse: def.HigherIsWorse,
		})
	}

	middleware.WriteJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    out,
		"count":   len(out),
	})
}
