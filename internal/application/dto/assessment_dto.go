package dto

import (
	"time"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/entity"
)

// IndicatorDTO представляет индикатор для передачи клиентам
type IndicatorDTO struct {
	ID            string   `json:"id"`
	Category      string   `json:"category"`
	Name          string   `json:"name"`
	Value         float64  `json:"value"`
	Score         float64  `json:"score"`
	Threshold     float64  `json:"threshold"`
	IsWarning     bool     `json:"is_warning"`
	Percentile    float64  `json:"percentile"`
	Trend         string   `json:"trend"`
	PreviousValue *float64 `json:"previous_value,omitempty"`
	ChangePercent *float64 `json:"change_percent,omitempty"`
	CollectedAt   time.Time `json:"collected_at"`
}

// CategoryScoreDTO представляет агрегат категории
type CategoryScoreDTO struct {
	Category        string  `json:"category"`
	Name            string  `json:"name"`
	Score           float64 `json:"score"`
	Level           string  `json:"level"`
	WarningCount    int     `json:"warning_count"`
	TotalIndicators int     `json:"total_indicators"`
}

// PatternMatchDTO представляет similarity к историческому кризису
type PatternMatchDTO struct {
	Pattern    string  `json:"pattern"`
	Label      string  `json:"label"`
	Similarity float64 `json:"similarity"`
}

// AlertDTO представляет alert для передачи клиентам
type AlertDTO struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Severity   string    `json:"severity"`
	Category   string    `json:"category,omitempty"`
	Message    string    `json:"message"`
	Indicators []string  `json:"indicators,omitempty"`
}

// AssessmentDTO - полный snapshot одного прогона pipeline
type AssessmentDTO struct {
	GeneratedAt  time.Time          `json:"generated_at"`
	OverallScore float64            `json:"overall_score"`
	OverallLevel string             `json:"overall_level"`
	Categories   []CategoryScoreDTO `json:"categories"`
	Indicators   []IndicatorDTO     `json:"indicators"`
	TopWarnings  []IndicatorDTO     `json:"top_warnings"`
	Similarity   []PatternMatchDTO  `json:"similarity"`
	Alerts       []AlertDTO         `json:"alerts"`
}

// FromIndicator конвертирует domain entity в DTO
func FromIndicator(ind *entity.Indicator) IndicatorDTO {
	return IndicatorDTO{
		ID:            ind.ID(),
		Category:      ind.Category().String(),
		Name:          ind.Name(),
		Value:         ind.Value(),
		Score:         ind.Score(),
		Threshold:     ind.Threshold(),
		IsWarning:     ind.IsWarning(),
		Percentile:    ind.Percentile(),
		Trend:         ind.Trend().String(),
		PreviousValue: ind.PreviousValue(),
		ChangePercent: ind.ChangePercent(),
		CollectedAt:   ind.CollectedAt(),
	}
}

// FromAlert конвертирует alert в DTO
func FromAlert(alert entity.Alert) AlertDTO {
	return AlertDTO{
		ID:         alert.ID,
		Timestamp:  alert.Timestamp,
		Severity:   string(alert.Severity),
		Category:   alert.Category.String(),
		Message:    alert.Message,
		Indicators: alert.Indicators,
	}
}

// FromAssessment конвертирует assessment в DTO
func FromAssessment(a *entity.Assessment) *AssessmentDTO {
	out := &AssessmentDTO{
		GeneratedAt:  a.GeneratedAt,
		OverallScore: a.OverallScore,
		OverallLevel: a.OverallLevel.String(),
		Categories:   make([]CategoryScoreDTO, 0, len(a.Categories)),
		Indicators:   make([]IndicatorDTO, 0, len(a.Indicators)),
		TopWarnings:  make([]IndicatorDTO, 0, len(a.TopWarnings)),
		Similarity:   make([]PatternMatchDTO, 0, len(a.Similarity)),
		Alerts:       make([]AlertDTO, 0, len(a.Alerts)),
	}

	for _, cs := range a.Categories {
		out.Categories = append(out.Categories, CategoryScoreDTO{
			Category:        cs.Category.String(),
			Name:            cs.Name,
			Score:           cs.Score,
			Level:           cs.Level.String(),
			WarningCount:    cs.WarningCount,
			TotalIndicators: cs.TotalIndicators,
		})
	}

	for _, ind := range a.Indicators {
		out.Indicators = append(out.Indicators, FromIndicator(ind))
	}
	for _, ind := range a.TopWarnings {
		out.TopWarnings = append(out.TopWarnings, FromIndicator(ind))
	}

	for _, pm := range a.Similarity {
		out.Similarity = append(out.Similarity, PatternMatchDTO{
			Pattern:    pm.Pattern,
			Label:      pm.Label,
			Similarity: pm.Similarity,
		})
	}

	for _, alert := range a.Alerts {
		out.Alerts = append(out.Alerts, FromAlert(alert))
	}

	return out
}
