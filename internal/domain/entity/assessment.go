package entity

import (
	"time"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/valueobject"
)

// CategoryScore - агрегированный результат одной категории.
// Инвариант: WarningCount <= TotalIndicators.
type CategoryScore struct {
	Category        valueobject.Category
	Name            string
	Score           float64
	Level           valueobject.RiskLevel
	WarningCount    int
	TotalIndicators int
}

// PatternMatch - близость текущего вектора категорий к историческому
// crash fingerprint, в процентах [0,100].
type PatternMatch struct {
	Pattern    string
	Label      string
	Similarity float64
}

// Assessment - иммутабельный snapshot одного прогона pipeline.
// Предыдущий snapshot хранится только для вычисления дельт, затем вытесняется.
type Assessment struct {
	GeneratedAt  time.Time
	OverallScore float64
	OverallLevel valueobject.RiskLevel
	Categories   []CategoryScore
	Indicators   []*Indicator
	TopWarnings  []*Indicator
	Similarity   []PatternMatch
	Alerts       []Alert
}

// CategoryVector возвращает scores категорий в каноническом порядке
// (вход для similarity engine)
func (a *Assessment) CategoryVector() []float64 {
	byCategory := make(map[valueobject.Category]float64, len(a.Categories))
	for _, cs := range a.Categories {
		byCategory[cs.Category] = cs.Score
	}

	vector := make([]float64, 0, len(valueobject.AllCategories()))
	for _, c := range valueobject.AllCategories() {
		vector = append(vector, byCategory[c])
	}
	return vector
}

// IndicatorValue возвращает сырое значение индикатора по id
func (a *Assessment) IndicatorValue(id string) (float64, bool) {
	for _, ind := range a.Indicators {
		if ind.ID() == id {
			return ind.Value(), true
		}
	}
	return 0, false
}
