package service

import (
	"errors"
	"fmt"
)

var (
	// ErrDegenerateRange возвращается когда min == max - это ошибка
	// конфигурации индикатора, а не повод делить на ноль в runtime
	ErrDegenerateRange = errors.New("indicator range is degenerate: min must be less than max")
)

// Normalizer переводит сырые значения индикаторов на общую шкалу риска
// 0-100 (Domain Service). Кривая нелинейная: верхний дециль исторического
// диапазона занимает [90,100], поэтому недавние экстремумы доминируют
// в score сильнее, чем дрейф вокруг медианы.
type Normalizer struct{}

// NewNormalizer создает новый Normalizer
func NewNormalizer() *Normalizer {
	return &Normalizer{}
}

// Normalize возвращает risk score в [0,100].
//
// higherIsWorse: value <= min -> 0; value >= p90 -> [90,100] линейно к max;
// между min и p90 - линейно по [0,90].
// Иначе (ниже = хуже, например инвертированная кривая доходности):
// отображение зеркальное, value <= min -> 100, value >= max -> 0.
// Значения вне [min,max] clamp-ятся, экстраполяции за [0,100] нет.
func (n *Normalizer) Normalize(value, min, max, p90 float64, higherIsWorse bool) (float64, error) {
	if min >= max {
		return 0, fmt.Errorf("%w: min=%.4f max=%.4f", ErrDegenerateRange, min, max)
	}

	if !higherIsWorse {
		switch {
		case value <= min:
			return 100, nil
		case value >= max:
			return 0, nil
		default:
			return (max - value) / (max - min) * 100, nil
		}
	}

	if p90 <= min || p90 >= max {
		return 0, fmt.Errorf("percentile90 %.4f must lie strictly inside (%.4f, %.4f)", p90, min, max)
	}

	switch {
	case value <= min:
		return 0, nil
	case value >= max:
		return 100, nil
	case value >= p90:
		return 90 + (value-p90)/(max-p90)*10, nil
	default:
		return (value - min) / (p90 - min) * 90, nil
	}
}

// Percentile возвращает позицию значения в историческом диапазоне [0,100].
// Используется для отображения/диагностики, не участвует в score.
func (n *Normalizer) Percentile(value, min, max float64) (float64, error) {
	if min >= max {
		return 0, fmt.Errorf("%w: min=%.4f max=%.4f", ErrDegenerateRange, min, max)
	}

	switch {
	case value <= min:
		return 0, nil
	case value >= max:
		return 100, nil
	default:
		return (value - min) / (max - min) * 100, nil
	}
}
