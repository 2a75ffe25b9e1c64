package service

import (
	"sort"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/entity"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/valueobject"
)

// CategoryAggregator группирует индикаторы по категориям и считает
// category scores (Domain Service)
type CategoryAggregator struct {
	bands valueobject.Bands
}

// NewCategoryAggregator создает aggregator с указанной политикой bands
func NewCategoryAggregator(bands valueobject.Bands) *CategoryAggregator {
	return &CategoryAggregator{bands: bands}
}

// Aggregate возвращает category scores в каноническом порядке категорий.
// Пустая категория дает score 0 и warningCount 0 - это документированное
// поведение, не ошибка; caller отличает ее по TotalIndicators == 0.
func (a *CategoryAggregator) Aggregate(indicators []*entity.Indicator) []entity.CategoryScore {
	grouped := make(map[valueobject.Category][]*entity.Indicator)
	for _, ind := range indicators {
		grouped[ind.Category()] = append(grouped[ind.Category()], ind)
	}

	scores := make([]entity.CategoryScore, 0, len(valueobject.AllCategories()))
	for _, category := range valueobject.AllCategories() {
		members := grouped[category]

		var sum float64
		var warnings int
		for _, ind := range members {
			sum += ind.Score()
			if ind.IsWarning() {
				warnings++
			}
		}

		score := 0.0
		if len(members) > 0 {
			score = sum / float64(len(members))
		}

		scores = append(scores, entity.CategoryScore{
			Category:        category,
			Name:            category.DisplayName(),
			Score:           score,
			Level:           a.bands.LevelFor(score),
			WarningCount:    warnings,
			TotalIndicators: len(members),
		})
	}

	return scores
}

// OverallScore считает взвешенное среднее category scores.
// Веса по умолчанию равные; категории без индикаторов исключаются,
// чтобы пустая категория не тянула overall к нулю.
func (a *CategoryAggregator) OverallScore(scores []entity.CategoryScore, weights map[valueobject.Category]float64) float64 {
	var weighted, totalWeight float64
	for _, cs := range scores {
		if cs.TotalIndicators == 0 {
			continue
		}
		w := 1.0
		if custom, ok := weights[cs.Category]; ok && custom > 0 {
			w = custom
		}
		weighted += cs.Score * w
		totalWeight += w
	}

	if totalWeight == 0 {
		return 0
	}
	return weighted / totalWeight
}

// LevelFor возвращает уровень риска по общей политике bands
func (a *CategoryAggregator) LevelFor(score float64) valueobject.RiskLevel {
	return a.bands.LevelFor(score)
}

// TopWarnings возвращает top-N warning индикаторов по score.
// При равных score сохраняется канонический порядок категорий
// (sort.SliceStable поверх входа, уже упорядоченного по категориям).
func (a *CategoryAggregator) TopWarnings(indicators []*entity.Indicator, n int) []*entity.Indicator {
	warnings := make([]*entity.Indicator, 0, len(indicators))
	for _, ind := range indicators {
		if ind.IsWarning() {
			warnings = append(warnings, ind)
		}
	}

	sort.SliceStable(warnings, func(i, j int) bool {
		return warnings[i].Score() > warnings[j].Score()
	})

	if len(warnings) > n {
		warnings = warnings[:n]
	}
	return warnings
}
