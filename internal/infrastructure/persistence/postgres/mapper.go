package postgres

import (
	"encoding/json"
	"time"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/entity"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/valueobject"
)

// AssessmentDBModel представляет assessment в БД: скалярные колонки для
// выборок плюс полный snapshot в JSONB
type AssessmentDBModel struct {
	ID           string
	GeneratedAt  time.Time
	OverallScore float64
	OverallLevel string
	Payload      []byte
	CreatedAt    time.Time
}

type indicatorPayload struct {
	ID            string    `json:"id"`
	Category      string    `json:"category"`
	Name          string    `json:"name"`
	Value         float64   `json:"value"`
	Score         float64   `json:"score"`
	Threshold     float64   `json:"threshold"`
	HigherIsWorse bool      `json:"higher_is_worse"`
	Percentile    float64   `json:"percentile"`
	Trend         string    `json:"trend"`
	PreviousValue *float64  `json:"previous_value,omitempty"`
	ChangePercent *float64  `json:"change_percent,omitempty"`
	CollectedAt   time.Time `json:"collected_at"`
}

type categoryPayload struct {
	Category        string  `json:"category"`
	Name            string  `json:"name"`
	Score           float64 `json:"score"`
	Level           string  `json:"level"`
	WarningCount    int     `json:"warning_count"`
	TotalIndicators int     `json:"total_indicators"`
}

type patternPayload struct {
	Pattern    string  `json:"pattern"`
	Label      string  `json:"label"`
	Similarity float64 `json:"similarity"`
}

type alertPayload struct {
	ID         string    `json:"id"`
	Timestamp  time.Time `json:"timestamp"`
	Severity   string    `json:"severity"`
	Scope      string    `json:"scope"`
	Category   string    `json:"category,omitempty"`
	Message    string    `json:"message"`
	Indicators []string  `json:"indicators,omitempty"`
}

// assessmentPayload - JSONB snapshot; top warnings хранятся как ссылки
// по id, чтобы не дублировать индикаторы
type assessmentPayload struct {
	Categories    []categoryPayload  `json:"categories"`
	Indicators    []indicatorPayload `json:"indicators"`
	TopWarningIDs []string           `json:"top_warning_ids"`
	Similarity    []patternPayload   `json:"similarity"`
	Alerts        []alertPayload     `json:"alerts"`
}

// ToDBModel конвертирует Domain Entity в DB Model
func ToDBModel(id string, a *entity.Assessment, createdAt time.Time) (*AssessmentDBModel, error) {
	payload := assessmentPayload{
		Categories:    make([]categoryPayload, 0, len(a.Categories)),
		Indicators:    make([]indicatorPayload, 0, len(a.Indicators)),
		TopWarningIDs: make([]string, 0, len(a.TopWarnings)),
		Similarity:    make([]patternPayload, 0, len(a.Similarity)),
		Alerts:        make([]alertPayload, 0, len(a.Alerts)),
	}

	for _, cs := range a.Categories {
		payload.Categories = append(payload.Categories, categoryPayload{
			Category:        cs.Category.String(),
			Name:            cs.Name,
			Score:           cs.Score,
			Level:           cs.Level.String(),
			WarningCount:    cs.WarningCount,
			TotalIndicators: cs.TotalIndicators,
		})
	}

	for _, ind := range a.Indicators {
		payload.Indicators = append(payload.Indicators, indicatorPayload{
			ID:            ind.ID(),
			Category:      ind.Category().String(),
			Name:          ind.Name(),
			Value:         ind.Value(),
			Score:         ind.Score(),
			Threshold:     ind.Threshold(),
			HigherIsWorse: ind.HigherIsWorse(),
			Percentile:    ind.Percentile(),
			Trend:         ind.Trend().String(),
			PreviousValue: ind.PreviousValue(),
			ChangePercent: ind.ChangePercent(),
			CollectedAt:   ind.CollectedAt(),
		})
	}

	for _, ind := range a.TopWarnings {
		payload.TopWarningIDs = append(payload.TopWarningIDs, ind.ID())
	}

	for _, pm := range a.Similarity {
		payload.Similarity = append(payload.Similarity, patternPayload{
			Pattern:    pm.Pattern,
			Label:      pm.Label,
			Similarity: pm.Similarity,
		})
	}

	for _, alert := range a.Alerts {
		payload.Alerts = append(payload.Alerts, alertPayload{
			ID:         alert.ID,
			Timestamp:  alert.Timestamp,
			Severity:   string(alert.Severity),
			Scope:      alert.Scope,
			Category:   alert.Category.String(),
			Message:    alert.Message,
			Indicators: alert.Indicators,
		})
	}

	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &AssessmentDBModel{
		ID:           id,
		GeneratedAt:  a.GeneratedAt,
		OverallScore: a.OverallScore,
		OverallLevel: a.OverallLevel.String(),
		Payload:      payloadBytes,
		CreatedAt:    createdAt,
	}, nil
}

// ToEntity конвертирует DB Model в Domain Entity
func ToEntity(model *AssessmentDBModel) (*entity.Assessment, error) {
	var payload assessmentPayload
	if err := json.Unmarshal(model.Payload, &payload); err != nil {
		return nil, err
	}

	assessment := &entity.Assessment{
		GeneratedAt:  model.GeneratedAt,
		OverallScore: model.OverallScore,
		OverallLevel: valueobject.RiskLevel(model.OverallLevel),
		Categories:   make([]entity.CategoryScore, 0, len(payload.Categories)),
		Indicators:   make([]*entity.Indicator, 0, len(payload.Indicators)),
		TopWarnings:  make([]*entity.Indicator, 0, len(payload.TopWarningIDs)),
		Similarity:   make([]entity.PatternMatch, 0, len(payload.Similarity)),
		Alerts:       make([]entity.Alert, 0, len(payload.Alerts)),
	}

	for _, cs := range payload.Categories {
		assessment.Categories = append(assessment.Categories, entity.CategoryScore{
			Category:        valueobject.Category(cs.Category),
			Name:            cs.Name,
			Score:           cs.Score,
			Level:           valueobject.RiskLevel(cs.Level),
			WarningCount:    cs.WarningCount,
			TotalIndicators: cs.TotalIndicators,
		})
	}

	byID := make(map[string]*entity.Indicator, len(payload.Indicators))
	for _, ip := range payload.Indicators {
		ind := entity.ReconstructIndicator(
			ip.ID,
			valueobject.Category(ip.Category),
			ip.Name,
			ip.Value,
			ip.Score,
			ip.Threshold,
			ip.HigherIsWorse,
			ip.Percentile,
			valueobject.Trend(ip.Trend),
			ip.PreviousValue,
			ip.ChangePercent,
			ip.CollectedAt,
		)
		assessment.Indicators = append(assessment.Indicators, ind)
		byID[ip.ID] = ind
	}

	for _, id := range payload.TopWarningIDs {
		if ind, ok := byID[id]; ok {
			assessment.TopWarnings = append(assessment.TopWarnings, ind)
		}
	}

	for _, pm := range payload.Similarity {
		assessment.Similarity = append(assessment.Similarity, entity.PatternMatch{
			Pattern:    pm.Pattern,
			Label:      pm.Label,
			Similarity: pm.Similarity,
		})
	}

	for _, ap := range payload.Alerts {
		assessment.Alerts = append(assessment.Alerts, entity.Alert{
			ID:         ap.ID,
			Timestamp:  ap.Timestamp,
			Severity:   entity.AlertSeverity(ap.Severity),
			Scope:      ap.Scope,
			Category:   valueobject.Category(ap.Category),
			Message:    ap.Message,
			Indicators: ap.Indicators,
		})
	}

	return assessment, nil
}

// ScanAssessmentRow сканирует строку БД в AssessmentDBModel
func ScanAssessmentRow(row interface {
	Scan(dest ...interface{}) error
}) (*AssessmentDBModel, error) {
	var model AssessmentDBModel

	err := row.Scan(
		&model.ID,
		&model.GeneratedAt,
		&model.OverallScore,
		&model.OverallLevel,
		&model.Payload,
		&model.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	return &model, nil
}
