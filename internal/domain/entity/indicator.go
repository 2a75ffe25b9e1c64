package entity

import (
	"time"

	"github.com/yyyooosi/stock-analyzer-2025-sub001/internal/domain/valueobject"
)

// Indicator представляет один оцененный риск-индикатор (Aggregate Root).
// Создается заново на каждом прогоне pipeline и после этого не мутируется.
type Indicator struct {
	id            string
	category      valueobject.Category
	name          string
	value         float64
	score         float64
	threshold     float64
	higherIsWorse bool
	percentile    float64
	trend         valueobject.Trend
	previousValue *float64
	changePercent *float64
	collectedAt   time.Time
}

// NewIndicator создает индикатор (Factory Method).
// Normalized score всегда clamp-ится в [0,100] - инвариант модели.
func NewIndicator(
	id string,
	category valueobject.Category,
	name string,
	value float64,
	score float64,
	threshold float64,
	higherIsWorse bool,
	percentile float64,
	collectedAt time.Time,
) (*Indicator, error) {
	if err := category.Validate(); err != nil {
		return nil, err
	}

	return &Indicator{
		id:            id,
		category:      category,
		name:          name,
		value:         value,
		score:         clamp(score, 0, 100),
		threshold:     threshold,
		higherIsWorse: higherIsWorse,
		percentile:    clamp(percentile, 0, 100),
		trend:         valueobject.TrendStable,
		collectedAt:   collectedAt,
	}, nil
}

// ReconstructIndicator восстанавливает индикатор из хранилища
// без повторной валидации бизнес-правил
func ReconstructIndicator(
	id string,
	category valueobject.Category,
	name string,
	value float64,
	score float64,
	threshold float64,
	higherIsWorse bool,
	percentile float64,
	trend valueobject.Trend,
	previousValue *float64,
	changePercent *float64,
	collectedAt time.Time,
) *Indicator {
	return &Indicator{
		id:            id,
		category:      category,
		name:          name,
		value:         value,
		score:         score,
		threshold:     threshold,
		higherIsWorse: higherIsWorse,
		percentile:    percentile,
		trend:         trend,
		previousValue: previousValue,
		changePercent: changePercent,
		collectedAt:   collectedAt,
	}
}

// ApplyPrevious заполняет previous value, percent change и trend
// по значению из предыдущего завершенного assessment
func (i *Indicator) ApplyPrevious(previousValue float64) {
	prev := previousValue
	i.previousValue = &prev

	if previousValue != 0 {
		change := (i.value - previousValue) / previousValue * 100
		i.changePercent = &change
		i.trend = valueobject.TrendFromChange(change)
	}
}

// ID возвращает идентификатор индикатора
func (i *Indicator) ID() string {
	return i.id
}

// Category возвращает категорию индикатора
func (i *Indicator) Category() valueobject.Category {
	return i.category
}

// Name возвращает display name индикатора
func (i *Indicator) Name() string {
	return i.name
}

// Value возвращает сырое значение индикатора
func (i *Indicator) Value() float64 {
	return i.value
}

// Score возвращает normalized score в [0,100]
func (i *Indicator) Score() float64 {
	return i.score
}

// Threshold возвращает порог предупреждения
func (i *Indicator) Threshold() float64 {
	return i.threshold
}

// HigherIsWorse возвращает направление риска индикатора
func (i *Indicator) HigherIsWorse() bool {
	return i.higherIsWorse
}

// Percentile возвращает позицию значения в историческом диапазоне [0,100]
func (i *Indicator) Percentile() float64 {
	return i.percentile
}

// Trend возвращает направление движения значения
func (i *Indicator) Trend() valueobject.Trend {
	return i.trend
}

// PreviousValue возвращает значение из предыдущего прогона (nil если его не было)
func (i *Indicator) PreviousValue() *float64 {
	return i.previousValue
}

// ChangePercent возвращает процентное изменение к предыдущему прогону
func (i *Indicator) ChangePercent() *float64 {
	return i.changePercent
}

// CollectedAt возвращает время сбора значения
func (i *Indicator) CollectedAt() time.Time {
	return i.collectedAt
}

// IsWarning выводится из текущего значения и порога с учетом направления.
// Никогда не хранится отдельно - чистая функция от value/threshold.
func (i *Indicator) IsWarning() bool {
	if i.higherIsWorse {
		return i.value >= i.threshold
	}
	return i.value <= i.threshold
}

func clamp(v, min, max float64) float64 {
	if v < min {
		return min
	}
	if v > max {
		return max
	}
	return v
}
