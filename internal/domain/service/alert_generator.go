package service

import (
	"fmt"
	"strings"
	"time"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/entity"
	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/valueobject"
)

// IndicatorRule - явное правило для именованного индикатора,
// срабатывающее при пересечении жесткого порога сырым значением
type IndicatorRule struct {
	IndicatorID string
	Operator    string // "gt", "gte", "lt", "lte"
	Threshold   float64
	Severity    entity.AlertSeverity
	Message     string // format string с одним %v для значения
}

// DefaultIndicatorRules возвращает стандартный набор правил.
// Правила перечислимые и явные, они не выводятся из данных.
func DefaultIndicatorRules() []IndicatorRule {
	return []IndicatorRule{
		{IndicatorID: "yield_curve_10y2y", Operator: "lt", Threshold: 0, Severity: entity.SeverityDanger,
			Message: "10Y-2Y yield curve is inverted at %.2f: historically precedes recessions"},
		{IndicatorID: "vix", Operator: "gte", Threshold: 40, Severity: entity.SeverityWarning,
			Message: "VIX at %.1f signals extreme volatility expectations"},
		{IndicatorID: "hy_spread", Operator: "gte", Threshold: 8, Severity: entity.SeverityWarning,
			Message: "High-yield spread at %.1f%% indicates severe credit stress"},
	}
}

// AlertThresholds - политика генерации alerts по score
type AlertThresholds struct {
	OverallDanger    float64 // overall score >= -> danger alert
	OverallWarning   float64 // overall score >= -> warning alert
	CategoryScore    float64 // category score >= вместе с ...
	CategoryWarnings int     // ... таким количеством warning индикаторов -> category alert
}

// DefaultAlertThresholds возвращает стандартную политику 80/60/75/2
func DefaultAlertThresholds() AlertThresholds {
	return AlertThresholds{
		OverallDanger:    80,
		OverallWarning:   60,
		CategoryScore:    75,
		CategoryWarnings: 2,
	}
}

// AlertGenerator выводит дискретные alerts из assessment (Domain Service).
// Детерминированная чистая функция одного assessment: без состояния,
// без гистерезиса по overall score.
type AlertGenerator struct {
	thresholds AlertThresholds
	rules      []IndicatorRule
}

// NewAlertGenerator создает generator со стандартными правилами
func NewAlertGenerator() *AlertGenerator {
	return &AlertGenerator{
		thresholds: DefaultAlertThresholds(),
		rules:      DefaultIndicatorRules(),
	}
}

// NewAlertGeneratorWithPolicy создает generator с кастомной политикой
func NewAlertGeneratorWithPolicy(thresholds AlertThresholds, rules []IndicatorRule) *AlertGenerator {
	return &AlertGenerator{thresholds: thresholds, rules: rules}
}

// Generate возвращает alerts для assessment. Id каждого alert уникален
// в пределах прогона: scope + millis, плюс счетчик при коллизии.
func (g *AlertGenerator) Generate(assessment *entity.Assessment, now time.Time) []entity.Alert {
	var alerts []entity.Alert
	used := make(map[string]int)

	emit := func(scope string, category valueobject.Category, severity entity.AlertSeverity, message string, indicators []string) {
		seq := used[scope]
		used[scope] = seq + 1
		alerts = append(alerts, entity.NewAlert(scope, category, severity, message, indicators, now, seq))
	}

	topIDs := make([]string, 0, len(assessment.TopWarnings))
	topNames := make([]string, 0, len(assessment.TopWarnings))
	for _, ind := range assessment.TopWarnings {
		topIDs = append(topIDs, ind.ID())
		topNames = append(topNames, ind.Name())
	}

	// Overall score alerts
	switch {
	case assessment.OverallScore >= g.thresholds.OverallDanger:
		emit("overall", "", entity.SeverityDanger,
			fmt.Sprintf("Overall risk score %.1f is in the danger zone. Watch: %s",
				assessment.OverallScore, strings.Join(topNames, ", ")),
			topIDs)
	case assessment.OverallScore >= g.thresholds.OverallWarning:
		emit("overall", "", entity.SeverityWarning,
			fmt.Sprintf("Overall risk score %.1f is elevated. Watch: %s",
				assessment.OverallScore, strings.Join(topNames, ", ")),
			topIDs)
	}

	// Category alerts срабатывают независимо от overall score
	for _, cs := range assessment.Categories {
		if cs.Score >= g.thresholds.CategoryScore && cs.WarningCount >= g.thresholds.CategoryWarnings {
			ids := categoryWarningIDs(assessment, cs.Category)
			emit(cs.Category.String(), cs.Category, entity.SeverityWarning,
				fmt.Sprintf("%s risk is concentrated: score %.1f with %d of %d indicators in warning",
					cs.Name, cs.Score, cs.WarningCount, cs.TotalIndicators),
				ids)
		}
	}

	// Явные правила для именованных индикаторов
	for _, rule := range g.rules {
		value, ok := assessment.IndicatorValue(rule.IndicatorID)
		if !ok {
			continue
		}
		if !conditionHolds(rule.Operator, value, rule.Threshold) {
			continue
		}
		category := indicatorCategory(assessment, rule.IndicatorID)
		emit(rule.IndicatorID, category, rule.Severity,
			fmt.Sprintf(rule.Message, value),
			[]string{rule.IndicatorID})
	}

	return alerts
}

func conditionHolds(op string, value, threshold float64) bool {
	switch op {
	case "gt":
		return value > threshold
	case "gte":
		return value >= threshold
	case "lt":
		return value < threshold
	case "lte":
		return value <= threshold
	default:
		return false
	}
}

func categoryWarningIDs(assessment *entity.Assessment, category valueobject.Category) []string {
	var ids []string
	for _, ind := range assessment.Indicators {
		if ind.Category() == category && ind.IsWarning() {
			ids = append(ids, ind.ID())
		}
	}
	return ids
}

func indicatorCategory(assessment *entity.Assessment, id string) valueobject.Category {
	for _, ind := range assessment.Indicators {
		if ind.ID() == id {
			return ind.Category()
		}
	}
	return ""
}
