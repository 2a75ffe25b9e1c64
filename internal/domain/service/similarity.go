package service

import (
	"fmt"
	"math"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/entity"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/valueobject"
)

// CrashPattern - фиксированный fingerprint исторического кризиса:
// вектор из пяти category scores в каноническом порядке категорий
type CrashPattern struct {
	ID     string
	Label  string
	Vector []float64
}

// ReferencePatterns возвращает эталонные fingerprints.
// Значения зафиксированы по ретроспективной оценке категорий
// накануне каждого кризиса (valuation, financial, macro, market, sentiment).
func ReferencePatterns() []CrashPattern {
	return []CrashPattern{
		{ID: "dotcom_2000", Label: "Dot-com bust (2000)", Vector: []float64{95, 55, 45, 70, 90}},
		{ID: "gfc_2008", Label: "Global financial crisis (2008)", Vector: []float64{70, 95, 75, 80, 65}},
		{ID: "covid_2020", Label: "COVID crash (2020)", Vector: []float64{75, 50, 40, 85, 60}},
	}
}

// SimilarityEngine сравнивает текущий вектор категорий с историческими
// fingerprints (Domain Service)
type SimilarityEngine struct {
	patterns []CrashPattern
}

// NewSimilarityEngine создает engine с эталонными паттернами
func NewSimilarityEngine() (*SimilarityEngine, error) {
	return NewSimilarityEngineWithPatterns(ReferencePatterns())
}

// NewSimilarityEngineWithPatterns создает engine с кастомными паттернами
// (fail fast при неверной размерности вектора)
func NewSimilarityEngineWithPatterns(patterns []CrashPattern) (*SimilarityEngine, error) {
	want := len(valueobject.AllCategories())
	for _, p := range patterns {
		if len(p.Vector) != want {
			return nil, fmt.Errorf("pattern %s: vector length %d, want %d", p.ID, len(p.Vector), want)
		}
	}
	return &SimilarityEngine{patterns: patterns}, nil
}

// Match возвращает similarity текущего вектора к каждому паттерну.
// similarity = 100 - среднее абсолютное поэлементное расхождение;
// гарантированно в [0,100], идентичные векторы дают ровно 100.
// Расстояние симметрично: Match(C,P) == Match(P,C).
func (e *SimilarityEngine) Match(current []float64) ([]entity.PatternMatch, error) {
	want := len(valueobject.AllCategories())
	if len(current) != want {
		return nil, fmt.Errorf("category vector length %d, want %d", len(current), want)
	}

	matches := make([]entity.PatternMatch, 0, len(e.patterns))
	for _, p := range e.patterns {
		matches = append(matches, entity.PatternMatch{
			Pattern:    p.ID,
			Label:      p.Label,
			Similarity: similarity(current, p.Vector),
		})
	}
	return matches, nil
}

func similarity(a, b []float64) float64 {
	var total float64
	for i := range a {
		total += math.Abs(a[i] - b[i])
	}
	distance := total / float64(len(a))

	s := 100 - distance
	if s < 0 {
		return 0
	}
	if s > 100 {
		return 100
	}
	return s
}
