package service

import (
	"math"
	"testing"
	"time"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/entity"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/valueobject"
)

func mustIndicator(t *testing.T, id string, category valueobject.Category, value, score, threshold float64, higherIsWorse bool) *entity.Indicator {
	t.Helper()
	ind, err := entity.NewIndicator(id, category, id, value, score, threshold, higherIsWorse, score, time.Now())
	if err != nil {
		t.Fatalf("NewIndicator(%s) error = %v", id, err)
	}
	return ind
}

func TestAggregate_CanonicalOrder(t *testing.T) {
	agg := NewCategoryAggregator(valueobject.DefaultBands())

	// Намеренно подаем в обратном порядке категорий
	indicators := []*entity.Indicator{
		mustIndicator(t, "put_call", valueobject.Sentiment, 0.6, 40, 0.9, true),
		mustIndicator(t, "vix", valueobject.Market, 25, 55, 30, true),
		mustIndicator(t, "cape", valueobject.Valuation, 32, 80, 30, true),
	}

	scores := agg.Aggregate(indicators)
	if len(scores) != len(valueobject.AllCategories()) {
		t.Fatalf("Aggregate() returned %d categories, want %d", len(scores), len(valueobject.AllCategories()))
	}
	for i, category := range valueobject.AllCategories() {
		if scores[i].Category != category {
			t.Fatalf("Aggregate()[%d].Category = %s, want %s", i, scores[i].Category, category)
		}
	}
}

func TestAggregate_EmptyCategoryScoresZero(t *testing.T) {
	agg := NewCategoryAggregator(valueobject.DefaultBands())

	indicators := []*entity.Indicator{
		mustIndicator(t, "cape", valueobject.Valuation, 32, 80, 30, true),
	}

	scores := agg.Aggregate(indicators)
	for _, cs := range scores {
		if cs.Category == valueobject.Valuation {
			continue
		}
		if cs.Score != 0 || cs.TotalIndicators != 0 || cs.WarningCount != 0 {
			t.Fatalf("empty category %s: score=%v total=%d warnings=%d, want zeros",
				cs.Category, cs.Score, cs.TotalIndicators, cs.WarningCount)
		}
		if cs.Level != valueobject.LevelSafe {
			t.Fatalf("empty category %s: level = %s, want safe", cs.Category, cs.Level)
		}
	}
}

func TestAggregate_MeanAndWarnings(t *testing.T) {
	agg := NewCategoryAggregator(valueobject.DefaultBands())

	indicators := []*entity.Indicator{
		mustIndicator(t, "cape", valueobject.Valuation, 35, 80, 30, true),     // warning: 35 >= 30
		mustIndicator(t, "buffett", valueobject.Valuation, 120, 60, 150, true), // не warning: 120 < 150
	}

	scores := agg.Aggregate(indicators)
	valuation := scores[0]
	if math.Abs(valuation.Score-70) > 1e-9 {
		t.Fatalf("valuation score = %v, want 70", valuation.Score)
	}
	if valuation.WarningCount != 1 {
		t.Fatalf("valuation warnings = %d, want 1", valuation.WarningCount)
	}
	if valuation.TotalIndicators != 2 {
		t.Fatalf("valuation total = %d, want 2", valuation.TotalIndicators)
	}
	if valuation.Level != valueobject.LevelDanger {
		t.Fatalf("valuation level = %s, want danger", valuation.Level)
	}
}

func TestOverallScore_WeightedMeanSkipsEmpty(t *testing.T) {
	agg := NewCategoryAggregator(valueobject.DefaultBands())

	scores := []entity.CategoryScore{
		{Category: valueobject.Valuation, Score: 80, TotalIndicators: 2},
		{Category: valueobject.Financial, Score: 40, TotalIndicators: 1},
		{Category: valueobject.Macro, Score: 0, TotalIndicators: 0}, // пустая, не участвует
	}

	// Равные веса: (80 + 40) / 2 = 60
	got := agg.OverallScore(scores, nil)
	if math.Abs(got-60) > 1e-9 {
		t.Fatalf("OverallScore() = %v, want 60", got)
	}

	// Valuation с двойным весом: (80*2 + 40*1) / 3 = 66.66...
	weights := map[valueobject.Category]float64{valueobject.Valuation: 2}
	got = agg.OverallScore(scores, weights)
	if math.Abs(got-200.0/3) > 1e-9 {
		t.Fatalf("OverallScore() weighted = %v, want %v", got, 200.0/3)
	}
}

func TestOverallScore_AllEmpty(t *testing.T) {
	agg := NewCategoryAggregator(valueobject.DefaultBands())

	scores := []entity.CategoryScore{
		{Category: valueobject.Valuation, Score: 0, TotalIndicators: 0},
	}
	if got := agg.OverallScore(scores, nil); got != 0 {
		t.Fatalf("OverallScore() = %v, want 0 for empty input", got)
	}
}

func TestTopWarnings(t *testing.T) {
	agg := NewCategoryAggregator(valueobject.DefaultBands())

	indicators := []*entity.Indicator{
		mustIndicator(t, "cape", valueobject.Valuation, 35, 80, 30, true),
		mustIndicator(t, "margin_debt", valueobject.Valuation, 4, 80, 3, true), // тот же score, позже во входе
		mustIndicator(t, "vix", valueobject.Market, 45, 95, 30, true),
		mustIndicator(t, "hy_spread", valueobject.Financial, 3, 20, 6, true), // не warning
	}

	top := agg.TopWarnings(indicators, 2)
	if len(top) != 2 {
		t.Fatalf("TopWarnings() returned %d, want 2", len(top))
	}
	if top[0].ID() != "vix" {
		t.Fatalf("TopWarnings()[0] = %s, want vix", top[0].ID())
	}
	// При равных score стабильная сортировка сохраняет входной порядок
	if top[1].ID() != "cape" {
		t.Fatalf("TopWarnings()[1] = %s, want cape", top[1].ID())
	}
}

func TestTopWarnings_FewerThanN(t *testing.T) {
	agg := NewCategoryAggregator(valueobject.DefaultBands())

	indicators := []*entity.Indicator{
		mustIndicator(t, "cape", valueobject.Valuation, 35, 80, 30, true),
	}

	top := agg.TopWarnings(indicators, 5)
	if len(top) != 1 {
		t.Fatalf("TopWarnings() returned %d, want 1", len(top))
	}
}
